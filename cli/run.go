// Package cli implements the crisisflow command surface: running,
// validating, seeding and drilling crisis pipelines.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/crisis-labs/crisisflow/advisory"
	"github.com/crisis-labs/crisisflow/core"
	"github.com/crisis-labs/crisisflow/executor"
	"github.com/crisis-labs/crisisflow/loader"
	"github.com/crisis-labs/crisisflow/otel"
	"github.com/crisis-labs/crisisflow/store"
)

// NewRunCmd creates the "run" subcommand.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Execute a crisis pipeline",
		Long: "Execute a pipeline definition file, or a stored pipeline when --pipeline\n" +
			"is given instead of a file.",
		Args: cobra.MaximumNArgs(1),
		RunE: runRun,
	}

	cmd.Flags().StringP("input", "i", "", "Trigger input as inline JSON string")
	cmd.Flags().StringP("input-file", "f", "", "Trigger input from a JSON file")
	cmd.Flags().String("mode", "production", "Execution mode recorded on the run")
	cmd.Flags().StringP("output", "o", "", "Write the run response to file (default: stdout)")
	cmd.Flags().String("format", "pretty", "Output format: json | text | pretty")
	cmd.Flags().Duration("timeout", 5*time.Minute, "Execution timeout")
	cmd.Flags().String("pipeline", "", "Run a stored pipeline by id (requires --store-path)")
	cmd.Flags().String("store-path", "", "Path to the SQLite pipeline store")
	cmd.Flags().String("provider", "", "Advisory provider (openai, anthropic, ollama); default $CRISISFLOW_PROVIDER")
	cmd.Flags().String("model", "", "Advisory model; default $CRISISFLOW_MODEL")
	cmd.Flags().String("otlp-endpoint", "", "OTLP HTTP endpoint for traces and metrics")

	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, cancel, timeout := runContext(cmd)
	defer cancel()

	logger := newLogger(cmd)

	graphs, pipelineID, cleanup, err := resolveRunTarget(cmd, args)
	if err != nil {
		return err
	}
	defer cleanup()

	triggerInput, err := resolveTriggerInput(cmd)
	if err != nil {
		return err
	}

	planner, err := buildAdvisoryClient(cmd)
	if err != nil {
		return exitError(exitRuntime, "configuring advisory client: %v", err)
	}

	events, telemetryShutdown, err := buildRunEvents(ctx, cmd, logger)
	if err != nil {
		return exitError(exitRuntime, "starting telemetry: %v", err)
	}
	defer telemetryShutdown()

	opts := []executor.Option{
		executor.WithLogger(logger),
		executor.WithAdvisory(planner),
	}
	if reg, ok := graphs.(store.ToolRegistry); ok {
		opts = append(opts, executor.WithToolRegistry(reg))
	}
	if events != nil {
		opts = append(opts, executor.WithEvents(events))
	}

	mode, _ := cmd.Flags().GetString("mode")
	exec := executor.New(graphs, opts...)

	resp, err := exec.Execute(ctx, pipelineID, mode, triggerInput)
	if err != nil {
		if ctx.Err() != nil {
			return exitError(exitTimeout, "run timed out after %s", timeout)
		}
		if errors.Is(err, store.ErrNotFound) {
			return exitError(exitRuntime, "pipeline not found: %s", pipelineID)
		}
		return exitError(exitRuntime, "run failed: %v", err)
	}

	return writeRunResponse(cmd, resp)
}

// resolveRunTarget loads the pipeline to execute: either a definition
// file seeded into a throwaway in-memory store, or a stored pipeline from
// the SQLite store. Returns the graph store, pipeline id and a cleanup.
func resolveRunTarget(cmd *cobra.Command, args []string) (store.GraphStore, string, func(), error) {
	storedID, _ := cmd.Flags().GetString("pipeline")
	storePath, _ := cmd.Flags().GetString("store-path")
	noop := func() {}

	if storedID != "" {
		if storePath == "" {
			return nil, "", noop, exitError(exitValidation, "--pipeline requires --store-path")
		}
		db, err := store.NewSQLiteStore(store.SQLiteStoreConfig{DSN: storePath})
		if err != nil {
			return nil, "", noop, exitError(exitRuntime, "opening store %s: %v", storePath, err)
		}
		return db, storedID, func() { _ = db.Close() }, nil
	}

	if len(args) == 0 {
		return nil, "", noop, exitError(exitValidation, "either a pipeline file or --pipeline is required")
	}

	def, err := loader.Load(args[0])
	if err != nil {
		var diagErr *loader.DiagnosticError
		switch {
		case errors.Is(err, os.ErrNotExist):
			return nil, "", noop, exitError(exitFileNotFound, "file not found: %s", args[0])
		case errors.As(err, &diagErr):
			printDiagnosticsText(cmd.ErrOrStderr(), diagErr.Diagnostics)
			return nil, "", noop, exitError(exitValidation, "validation failed")
		default:
			return nil, "", noop, exitError(exitValidation, "loading pipeline: %v", err)
		}
	}

	mem := store.NewMemStore()
	pipelineID, _, err := loader.Seed(cmd.Context(), mem, def)
	if err != nil {
		return nil, "", noop, exitError(exitRuntime, "seeding pipeline: %v", err)
	}
	return mem, pipelineID, noop, nil
}

// resolveTriggerInput returns the trigger input JSON from --input or
// --input-file, verifying it parses as a JSON object.
func resolveTriggerInput(cmd *cobra.Command) (string, error) {
	inline, _ := cmd.Flags().GetString("input")
	file, _ := cmd.Flags().GetString("input-file")

	if inline != "" && file != "" {
		return "", exitError(exitValidation, "--input and --input-file are mutually exclusive")
	}

	raw := inline
	if file != "" {
		data, err := os.ReadFile(file) // #nosec G304 -- path from caller
		if err != nil {
			return "", exitError(exitFileNotFound, "reading input file: %v", err)
		}
		raw = string(data)
	}
	if raw == "" {
		return "", nil
	}

	var probe map[string]any
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return "", exitError(exitInputParse, "trigger input is not a JSON object: %v", err)
	}
	return raw, nil
}

// buildAdvisoryClient wires the iris-backed planner from flags,
// environment and config file. Without credentials the client degrades:
// runs proceed on the deterministic fallbacks.
func buildAdvisoryClient(cmd *cobra.Command) (advisory.Planner, error) {
	flagProvider, _ := cmd.Flags().GetString("provider")
	flagModel, _ := cmd.Flags().GetString("model")

	cfg, err := resolveAdvisoryConfig(flagProvider, flagModel)
	if err != nil {
		return nil, err
	}
	return advisory.NewClient(advisory.ClientConfig{
		Provider: cfg.Provider,
		APIKey:   cfg.APIKey,
		Model:    cfg.Model,
	})
}

// buildRunEvents assembles the event handler chain: optional OTLP
// tracing/metrics plus verbose event logging.
func buildRunEvents(ctx context.Context, cmd *cobra.Command, logger *slog.Logger) (executor.EventHandler, func(), error) {
	endpoint, _ := cmd.Flags().GetString("otlp-endpoint")
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")

	var handlers []executor.EventHandler
	shutdown := func() {}

	if verbose {
		handlers = append(handlers, func(e executor.Event) {
			logger.Debug("event",
				"kind", e.Kind, "run", e.RunID, "node", e.NodeID, "seq", e.Seq)
		})
	}

	if endpoint != "" {
		tel, err := startTelemetry(ctx, endpoint)
		if err != nil {
			return nil, shutdown, err
		}
		shutdown = tel.shutdown

		tracing := otel.NewTracingHandler(tel.tracer)
		metrics, err := otel.NewMetricsHandler(tel.meter)
		if err != nil {
			return nil, shutdown, err
		}
		handlers = append(handlers,
			tracing.Handle,
			otel.EnrichHandler(metrics.Handle, tracing),
		)
	}

	if len(handlers) == 0 {
		return nil, shutdown, nil
	}
	return executor.MultiEventHandler(handlers...), shutdown, nil
}

func runContext(cmd *cobra.Command) (context.Context, context.CancelFunc, time.Duration) {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout <= 0 {
		return cmd.Context(), func() {}, 0
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	return ctx, cancel, timeout
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if quiet {
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// writeRunResponse renders the run response in the requested format.
func writeRunResponse(cmd *cobra.Command, resp *core.ExecutionResponse) error {
	format, _ := cmd.Flags().GetString("format")
	outPath, _ := cmd.Flags().GetString("output")

	out := cmd.OutOrStdout()
	if outPath != "" {
		f, err := os.Create(outPath) // #nosec G304 -- path from caller
		if err != nil {
			return exitError(exitRuntime, "creating output file: %v", err)
		}
		defer f.Close()
		out = f
	}

	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			return exitError(exitRuntime, "encoding response: %v", err)
		}
	case "text":
		fmt.Fprintln(out, resp.FinalOutput)
	default:
		printRunPretty(out, resp)
	}

	if failed := failedResult(resp); failed != nil {
		return exitError(exitRuntime, "node %s failed: %s", failed.NodeID, failed.Error)
	}
	return nil
}

func printRunPretty(out io.Writer, resp *core.ExecutionResponse) {
	for _, r := range resp.Results {
		marker := "ok"
		if r.Status == core.StatusFailed {
			marker = "FAILED"
		}
		fmt.Fprintf(out, "[%s] %s (%s)\n", marker, r.NodeID, r.Type)
		if r.Error != "" {
			fmt.Fprintf(out, "    %s\n", r.Error)
		}
	}
	if resp.FinalOutput != "" {
		fmt.Fprintf(out, "\n%s\n", strings.TrimSpace(resp.FinalOutput))
	}
}

func failedResult(resp *core.ExecutionResponse) *core.ExecutionResult {
	for i := range resp.Results {
		if resp.Results[i].Status == core.StatusFailed {
			return &resp.Results[i]
		}
	}
	return nil
}
