package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/crisis-labs/crisisflow/executor"
	"github.com/crisis-labs/crisisflow/store"
)

var drillCronParser = cron.NewParser(
	cron.Minute |
		cron.Hour |
		cron.Dom |
		cron.Month |
		cron.Dow,
)

// NewDrillCmd creates the "drill" subcommand: recurring execution of a
// stored pipeline on a cron schedule, for readiness drills against a
// known crisis scenario.
func NewDrillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drill",
		Short: "Run a stored pipeline on a cron schedule",
		RunE:  runDrill,
	}

	cmd.Flags().String("pipeline", "", "Stored pipeline id (required)")
	cmd.Flags().String("store-path", "", "Path to the SQLite pipeline store (required)")
	cmd.Flags().String("schedule", "", "UTC cron expression, e.g. \"0 6 * * 1\" (required)")
	cmd.Flags().StringP("input", "i", "", "Trigger input as inline JSON string")
	cmd.Flags().String("mode", "drill", "Execution mode recorded on the runs")
	cmd.Flags().Int("count", 0, "Stop after this many runs (0: run until interrupted)")
	cmd.Flags().Bool("next", false, "Print the next run time and exit")
	cmd.Flags().String("provider", "", "Advisory provider (openai, anthropic, ollama); default $CRISISFLOW_PROVIDER")
	cmd.Flags().String("model", "", "Advisory model; default $CRISISFLOW_MODEL")

	_ = cmd.MarkFlagRequired("pipeline")
	_ = cmd.MarkFlagRequired("store-path")
	_ = cmd.MarkFlagRequired("schedule")

	return cmd
}

func runDrill(cmd *cobra.Command, args []string) error {
	expr, _ := cmd.Flags().GetString("schedule")
	schedule, err := parseDrillSchedule(expr)
	if err != nil {
		return exitError(exitValidation, "%v", err)
	}

	if nextOnly, _ := cmd.Flags().GetBool("next"); nextOnly {
		next := schedule.Next(time.Now().UTC())
		fmt.Fprintf(cmd.OutOrStdout(), "Next drill: %s\n", next.Format(time.RFC3339))
		return nil
	}

	storePath, _ := cmd.Flags().GetString("store-path")
	pipelineID, _ := cmd.Flags().GetString("pipeline")
	mode, _ := cmd.Flags().GetString("mode")
	count, _ := cmd.Flags().GetInt("count")

	triggerInput, err := resolveTriggerInput(cmd)
	if err != nil {
		return err
	}

	db, err := store.NewSQLiteStore(store.SQLiteStoreConfig{DSN: storePath})
	if err != nil {
		return exitError(exitRuntime, "opening store %s: %v", storePath, err)
	}
	defer db.Close()

	logger := newLogger(cmd)
	planner, err := buildAdvisoryClient(cmd)
	if err != nil {
		return exitError(exitRuntime, "configuring advisory client: %v", err)
	}

	exec := executor.New(db,
		executor.WithLogger(logger),
		executor.WithToolRegistry(db),
		executor.WithAdvisory(planner),
	)

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	ran := 0
	for {
		next := schedule.Next(time.Now().UTC())
		logger.Info("drill scheduled", "pipeline", pipelineID, "at", next.Format(time.RFC3339))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Until(next)):
		}

		resp, err := exec.Execute(ctx, pipelineID, mode, triggerInput)
		if err != nil {
			logger.Error("drill run failed", "pipeline", pipelineID, "error", err)
		} else {
			fmt.Fprintf(out, "drill %s at %s:\n", pipelineID, next.Format(time.RFC3339))
			printRunPretty(out, resp)
		}

		ran++
		if count > 0 && ran >= count {
			return nil
		}
	}
}

// parseDrillSchedule parses a UTC-only five-field cron expression.
// Timezone prefixes are rejected so schedules mean the same thing on
// every host.
func parseDrillSchedule(expr string) (cron.Schedule, error) {
	clean := strings.TrimSpace(expr)
	if clean == "" {
		return nil, fmt.Errorf("cron expression is required")
	}

	upper := strings.ToUpper(clean)
	if strings.Contains(upper, "CRON_TZ=") || strings.Contains(upper, "TZ=") {
		return nil, fmt.Errorf("cron expression must be UTC-only (timezone prefixes are not allowed)")
	}

	schedule, err := drillCronParser.Parse(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}
	return schedule, nil
}
