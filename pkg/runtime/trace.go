package runtime

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ormasoftchile/clickcheck/pkg/assertions"
)

// TraceWriter writes run events to a JSONL trace file.
type TraceWriter struct {
	file   *os.File
	writer *bufio.Writer
	enc    *json.Encoder
}

// NewTraceWriter creates a trace writer that appends to the given file.
func NewTraceWriter(path string) (*TraceWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	w := bufio.NewWriter(f)
	return &TraceWriter{
		file:   f,
		writer: w,
		enc:    json.NewEncoder(w),
	}, nil
}

// WriteStage appends a stage result and flushes to disk.
func (tw *TraceWriter) WriteStage(result *StageResult) error {
	return tw.write(TraceEvent{
		Type:      "stage_result",
		Timestamp: time.Now(),
		RunID:     result.RunID,
		Stage:     result,
	})
}

// WriteAssertion appends an assertion record and flushes to disk.
func (tw *TraceWriter) WriteAssertion(runID string, r assertions.Record) error {
	return tw.write(TraceEvent{
		Type:      "assertion",
		Timestamp: time.Now(),
		RunID:     runID,
		Assertion: &r,
	})
}

func (tw *TraceWriter) write(event TraceEvent) error {
	if err := tw.enc.Encode(event); err != nil {
		return fmt.Errorf("encode trace event: %w", err)
	}
	// Flush and sync at stage boundaries
	if err := tw.writer.Flush(); err != nil {
		return fmt.Errorf("flush trace: %w", err)
	}
	if err := tw.file.Sync(); err != nil {
		return fmt.Errorf("sync trace: %w", err)
	}
	return nil
}

// Close flushes and closes the trace file.
func (tw *TraceWriter) Close() error {
	if err := tw.writer.Flush(); err != nil {
		return err
	}
	return tw.file.Close()
}
