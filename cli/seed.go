package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crisis-labs/crisisflow/loader"
	"github.com/crisis-labs/crisisflow/store"
)

// NewSeedCmd creates the "seed" subcommand, which stores a pipeline
// definition file into the SQLite store as a new pipeline version.
func NewSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed <file>",
		Short: "Store a pipeline definition into the SQLite store",
		Args:  cobra.ExactArgs(1),
		RunE:  runSeed,
	}

	cmd.Flags().String("store-path", "", "Path to the SQLite pipeline store (required)")
	_ = cmd.MarkFlagRequired("store-path")

	return cmd
}

func runSeed(cmd *cobra.Command, args []string) error {
	storePath, _ := cmd.Flags().GetString("store-path")

	def, err := loader.Load(args[0])
	if err != nil {
		var diagErr *loader.DiagnosticError
		switch {
		case errors.Is(err, os.ErrNotExist):
			return exitError(exitFileNotFound, "file not found: %s", args[0])
		case errors.As(err, &diagErr):
			printDiagnosticsText(cmd.ErrOrStderr(), diagErr.Diagnostics)
			return exitError(exitValidation, "validation failed")
		default:
			return exitError(exitValidation, "loading pipeline: %v", err)
		}
	}

	db, err := store.NewSQLiteStore(store.SQLiteStoreConfig{DSN: storePath})
	if err != nil {
		return exitError(exitRuntime, "opening store %s: %v", storePath, err)
	}
	defer db.Close()

	pipelineID, versionID, err := loader.Seed(cmd.Context(), db, def)
	if err != nil {
		return exitError(exitRuntime, "seeding pipeline: %v", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Seeded pipeline %s (version %s)\n", pipelineID, versionID)
	return nil
}
