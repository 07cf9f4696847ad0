package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ormasoftchile/clickcheck/pkg/config"
	"github.com/ormasoftchile/clickcheck/pkg/extract"
	"github.com/ormasoftchile/clickcheck/pkg/report"
	"github.com/ormasoftchile/clickcheck/pkg/resolve"
	"github.com/ormasoftchile/clickcheck/pkg/runtime"
	"github.com/ormasoftchile/clickcheck/pkg/snapshot"
)

// HandleValidate implements the clickcheck/validate MCP tool.
func HandleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, _ := args["path"].(string)
	if path == "" {
		return errorResult("path argument is required"), nil
	}

	cfg, errs := config.ValidateFile(path)
	if hasErrors(errs) {
		return errorResult(formatErrors(errs)), nil
	}
	return textResult(fmt.Sprintf("✓ %s is valid (app %s, driver %s, db %s)", path, cfg.AppURL, cfg.Driver, cfg.DB)), nil
}

// HandleSchema implements the clickcheck/schema MCP tool.
func HandleSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := config.GenerateJSONSchema()
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(string(data)), nil
}

// HandleRefs implements the clickcheck/refs MCP tool.
func HandleRefs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	text, _ := args["snapshot"].(string)
	if text == "" {
		path, _ := args["path"].(string)
		if path == "" {
			return errorResult("snapshot or path argument is required"), nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return errorResult(fmt.Sprintf("read snapshot: %s", err)), nil
		}
		text = string(data)
	}
	refs := snapshot.Parse(text)

	var chain resolve.Chain
	if kw, _ := args["keywords"].(string); kw != "" {
		chain = append(chain, resolve.Keywords(splitKeywords(kw)...))
	}
	if src, _ := args["expr"].(string); src != "" {
		m, err := resolve.Expr(src)
		if err != nil {
			return errorResult(err.Error()), nil
		}
		chain = append(chain, m)
	}

	response := map[string]any{
		"count":   refs.Len(),
		"entries": refs.Entries(),
	}
	if len(chain) > 0 {
		ref, matcher, ok := chain.Resolve(refs)
		response["found"] = ok
		if ok {
			response["ref"] = ref
			response["matcher"] = matcher
		}
	}
	return jsonResult(response, false), nil
}

// HandleExtract implements the clickcheck/extract MCP tool.
func HandleExtract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	pathname, _ := args["pathname"].(string)
	text, _ := args["snapshot"].(string)
	if pathname == "" && text == "" {
		return errorResult("pathname or snapshot argument is required"), nil
	}

	if code, ok := extract.RoomCodeFromPath(pathname); ok {
		return jsonResult(map[string]any{"code": code, "source": "url"}, false), nil
	}
	if code, ok := extract.RoomCode(text); ok {
		return jsonResult(map[string]any{"code": code, "source": "snapshot"}, false), nil
	}
	return errorResult("no room code found"), nil
}

// HandleRun implements the clickcheck/run MCP tool. Only replayed runs are
// offered: a live run mutates the game database.
func HandleRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	scenario, _ := args["scenario"].(string)
	if scenario == "" {
		return errorResult("scenario argument is required"), nil
	}

	cfg := config.Default()
	if path, _ := args["config"].(string); path != "" {
		c, errs := config.ValidateFile(path)
		if hasErrors(errs) {
			return errorResult(formatErrors(errs)), nil
		}
		cfg = c
	}
	cfg.RunDir = ""

	var out bytes.Buffer
	h, err := runtime.Wire(cfg, runtime.WireOptions{
		ScenarioPath: scenario,
		Out:          report.New(&out, false),
	})
	if err != nil {
		return errorResult(err.Error()), nil
	}
	defer h.Close()

	code := h.Run(ctx)
	m := h.Engine.BuildManifest()
	m.ExitCode = code

	response := map[string]any{
		"run_id":     m.RunID,
		"exit_code":  code,
		"outcome":    m.Outcome,
		"assertions": m.Assertions,
		"stages":     m.StagesSummary,
		"results":    h.Engine.Results(),
		"room_code":  m.RoomCode,
		"output":     out.String(),
	}
	return jsonResult(response, code != 0), nil
}

func splitKeywords(s string) []string {
	var out []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

func hasErrors(errs []*config.ValidationError) bool {
	for _, e := range errs {
		if e.Severity == "error" {
			return true
		}
	}
	return false
}

func formatErrors(errs []*config.ValidationError) string {
	var msgs []string
	for _, e := range errs {
		if e.Severity == "error" {
			msgs = append(msgs, fmt.Sprintf("[%s] %s", e.Phase, e.Message))
		}
	}
	return strings.Join(msgs, "; ")
}

func jsonResult(v any, isErr bool) *mcp.CallToolResult {
	data, _ := json.MarshalIndent(v, "", "  ")
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(data))},
		IsError: isErr,
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(msg),
		},
		IsError: true,
	}
}
