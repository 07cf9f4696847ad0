// Package main provides the clickcheck binary: an end-to-end check of the
// ClickTrainer game lifecycle driven through a browser and the game database.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ormasoftchile/clickcheck/pkg/config"
	"github.com/ormasoftchile/clickcheck/pkg/history"
	"github.com/ormasoftchile/clickcheck/pkg/report"
	"github.com/ormasoftchile/clickcheck/pkg/resolve"
	"github.com/ormasoftchile/clickcheck/pkg/runtime"
	"github.com/ormasoftchile/clickcheck/pkg/snapshot"
)

// Version is set at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

var (
	verbose  bool
	noColor  bool
	logger   = zap.NewNop()
	exitCode int
)

func main() {
	loadDotEnv() // load .env file if present (gitignored)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
	os.Exit(exitCode)
}

// loadDotEnv reads a .env file from the working directory and sets
// any variables that aren't already set in the environment.
// Lines are KEY=VALUE (or KEY="VALUE"). Comments (#) and blanks are skipped.
func loadDotEnv() {
	f, err := os.Open(".env")
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.Trim(strings.TrimSpace(val), `"'`)
		if os.Getenv(key) == "" {
			os.Setenv(key, val)
		}
	}
}

var rootCmd = &cobra.Command{
	Use:   "clickcheck",
	Short: "End-to-end lifecycle check for ClickTrainer",
	Long: `clickcheck drives two browser sessions through a full ClickTrainer game
(create room, join, ready up, play a round) and asserts on what the game
server persisted.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zc := zap.NewProductionConfig()
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		l, err := zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// --- run ---

var (
	runConfig   string
	runDriver   string
	runDB       string
	runScenario string
	runRecord   string
	runHistory  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full game lifecycle check",
	Args:  cobra.NoArgs,
	RunE:  runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(runConfig)
	if err != nil {
		return err
	}
	if runDriver != "" {
		cfg.Driver = runDriver
	}
	if runDB != "" {
		cfg.DB = runDB
	}
	if errs := config.Validate(cfg); hasErrors(errs) {
		printErrors(os.Stderr, errs)
		return fmt.Errorf("invalid configuration")
	}

	opts := runtime.WireOptions{
		ScenarioPath: runScenario,
		RecordPath:   runRecord,
		Out:          report.New(os.Stdout, !noColor),
		Logger:       logger,
	}
	if runHistory != "" {
		journal, err := history.Open(runHistory)
		if err != nil {
			return err
		}
		defer journal.Close()
		opts.Journal = journal
	}

	h, err := runtime.Wire(cfg, opts)
	if err != nil {
		return err
	}
	defer h.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exitCode = h.Run(ctx)
	return nil
}

// --- validate ---

var validateCmd = &cobra.Command{
	Use:   "validate [config.yaml]",
	Short: "Validate a configuration file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, errs := config.ValidateFile(args[0])
		if hasErrors(errs) {
			printErrors(os.Stderr, errs)
			return fmt.Errorf("validation failed")
		}
		fmt.Printf("✓ %s is valid (app %s, driver %s, db %s)\n", args[0], cfg.AppURL, cfg.Driver, cfg.DB)
		return nil
	},
}

// --- schema ---

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of the configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := config.GenerateJSONSchema()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

// --- refs ---

var refsCmd = &cobra.Command{
	Use:   "refs <snapshot.yml> [keywords...]",
	Short: "List element refs in a snapshot, optionally resolving keywords",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		return describeRefs(os.Stdout, string(data), args[1:])
	},
}

func describeRefs(w io.Writer, text string, keywords []string) error {
	refs := snapshot.Parse(text)
	fmt.Fprintf(w, "%d refs\n", refs.Len())
	fmt.Fprint(w, snapshot.Dump(refs, 0))
	if len(keywords) == 0 {
		return nil
	}
	ref, ok := resolve.Find(refs, keywords...)
	if !ok {
		return fmt.Errorf("no ref matches %s", strings.Join(keywords, ", "))
	}
	fmt.Fprintf(w, "match: %s\n", ref)
	return nil
}

// --- history ---

var (
	historyLimit int
	historyRun   string
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history <file.db>",
	Short: "Show journaled runs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := history.Open(args[0])
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		if historyRun != "" {
			records, err := store.Assertions(ctx, historyRun)
			if err != nil {
				return err
			}
			if historyJSON {
				return writeJSON(os.Stdout, records)
			}
			for _, r := range records {
				fmt.Printf("%-22s %s\n", r.Stage, r.Message())
			}
			return nil
		}

		runs, err := store.List(ctx, historyLimit)
		if err != nil {
			return err
		}
		if historyJSON {
			return writeJSON(os.Stdout, runs)
		}
		printRuns(os.Stdout, runs)
		return nil
	},
}

func printRuns(w io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return
	}
	for _, r := range runs {
		line := fmt.Sprintf("%s  %-8s  %d passed, %d failed  exit %d", r.RunID, r.Outcome, r.Passed, r.Failed, r.ExitCode)
		if r.FailedStage != "" {
			line += fmt.Sprintf("  (%s: %s)", r.FailedStage, r.Message)
		}
		fmt.Fprintln(w, line)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// --- version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("clickcheck %s (build: %s)\n", version, commit)
	},
}

func hasErrors(errs []*config.ValidationError) bool {
	for _, e := range errs {
		if e.Severity != "warning" {
			return true
		}
	}
	return false
}

func printErrors(w io.Writer, errs []*config.ValidationError) {
	for _, e := range errs {
		if e.Severity == "warning" {
			fmt.Fprintf(w, "  ⚠ [%s] %s\n", e.Phase, e.Message)
			continue
		}
		fmt.Fprintf(w, "  ✗ [%s] %s\n", e.Phase, e.Message)
		if e.Path != "" {
			fmt.Fprintf(w, "    at: %s\n", e.Path)
		}
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug-level structured logs on stderr")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable styled transcript output")

	runCmd.Flags().StringVar(&runConfig, "config", "", "Path to a configuration YAML (default: built-in settings)")
	runCmd.Flags().StringVar(&runDriver, "driver", "", "Browser driver: cli or rod (overrides config)")
	runCmd.Flags().StringVar(&runDB, "db", "", "Database backend: psql or sql (overrides config)")
	runCmd.Flags().StringVar(&runScenario, "scenario", "", "Replay tool output from a recorded scenario")
	runCmd.Flags().StringVar(&runRecord, "record", "", "Record tool output to this scenario file")
	runCmd.Flags().StringVar(&runHistory, "history", "", "Journal the run into this SQLite file")

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Max runs to list")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "Show the assertions of one run")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Output as JSON")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(refsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}
