package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crisis-labs/crisisflow/loader"
)

// NewValidateCmd creates the "validate" subcommand.
func NewValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a pipeline definition without executing",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidate,
	}

	cmd.Flags().String("format", "text", "Output format: text | json")
	cmd.Flags().Bool("strict", false, "Treat warnings as errors")

	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	filePath := args[0]
	format, _ := cmd.Flags().GetString("format")
	strict, _ := cmd.Flags().GetBool("strict")
	out := cmd.OutOrStdout()

	data, err := os.ReadFile(filePath) // #nosec G304 -- path from caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return exitError(exitFileNotFound, "file not found: %s", filePath)
		}
		return fmt.Errorf("reading file: %w", err)
	}

	diags := validateDefinition(data, filePath)

	if format == "json" {
		printDiagnosticsJSON(out, diags)
	} else {
		printDiagnosticsText(out, diags)
	}

	hasErrs := loader.HasErrors(diags)
	hasWarns := len(diags) > len(loader.Errors(diags))

	if hasErrs || (strict && hasWarns) {
		return exitError(exitValidation, "validation failed")
	}
	return nil
}

// validateDefinition parses the file and runs structural validation,
// folding parse failures into the diagnostic list.
func validateDefinition(data []byte, filePath string) []loader.Diagnostic {
	def, err := loader.LoadBytes(data, filePath)
	if err != nil {
		var diagErr *loader.DiagnosticError
		if errors.As(err, &diagErr) {
			return diagErr.Diagnostics
		}
		return []loader.Diagnostic{{
			Code:     "PL-000",
			Severity: loader.SeverityError,
			Message:  fmt.Sprintf("Failed to parse file: %v", err),
		}}
	}
	// LoadBytes only fails on errors; rerun to surface warnings too.
	return def.Validate()
}

// printDiagnosticsText writes diagnostics as formatted text lines followed
// by a summary line. Used by both the validate and run commands.
func printDiagnosticsText(w io.Writer, diags []loader.Diagnostic) {
	for _, d := range diags {
		sev := strings.ToUpper(d.Severity)
		if d.Path != "" {
			fmt.Fprintf(w, "%s [%s]: %s (at %s)\n", sev, d.Code, d.Message, d.Path)
		} else {
			fmt.Fprintf(w, "%s [%s]: %s\n", sev, d.Code, d.Message)
		}
	}

	errs := loader.Errors(diags)
	warns := len(diags) - len(errs)

	switch {
	case len(errs) == 0 && warns == 0:
		fmt.Fprintln(w, "Valid!")
	case len(errs) == 0:
		fmt.Fprintf(w, "\nValid! (%d %s)\n", warns, pluralize("warning", warns))
	default:
		fmt.Fprintf(w, "\n%d %s, %d %s\n",
			len(errs), pluralize("error", len(errs)),
			warns, pluralize("warning", warns))
	}
}

func printDiagnosticsJSON(w io.Writer, diags []loader.Diagnostic) {
	// Output an empty array rather than null when there are no diagnostics.
	if diags == nil {
		diags = []loader.Diagnostic{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(diags)
}

// pluralize returns the singular or plural form of a word based on count.
func pluralize(word string, count int) string {
	if count == 1 {
		return word
	}
	return word + "s"
}
