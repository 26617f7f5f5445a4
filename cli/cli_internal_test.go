package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/crisis-labs/crisisflow/loader"
)

func TestParseDrillSchedule(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantErr bool
	}{
		{name: "every monday morning", expr: "0 6 * * 1"},
		{name: "every minute", expr: "* * * * *"},
		{name: "empty", expr: "", wantErr: true},
		{name: "too few fields", expr: "* * *", wantErr: true},
		{name: "cron tz prefix rejected", expr: "CRON_TZ=Asia/Tokyo 0 6 * * 1", wantErr: true},
		{name: "tz prefix rejected", expr: "TZ=UTC 0 6 * * 1", wantErr: true},
		{name: "seconds field rejected", expr: "0 0 6 * * 1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schedule, err := parseDrillSchedule(tt.expr)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected an error for %q", tt.expr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseDrillSchedule(%q): %v", tt.expr, err)
			}
			now := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
			if next := schedule.Next(now); !next.After(now) {
				t.Errorf("next run %v not after %v", next, now)
			}
		})
	}
}

func TestResolveTriggerInput(t *testing.T) {
	t.Run("inline object", func(t *testing.T) {
		cmd := NewRunCmd()
		if err := cmd.Flags().Set("input", `{"quantity": 20}`); err != nil {
			t.Fatal(err)
		}
		raw, err := resolveTriggerInput(cmd)
		if err != nil {
			t.Fatalf("resolveTriggerInput: %v", err)
		}
		if raw != `{"quantity": 20}` {
			t.Errorf("raw: %q", raw)
		}
	})

	t.Run("empty is allowed", func(t *testing.T) {
		cmd := NewRunCmd()
		raw, err := resolveTriggerInput(cmd)
		if err != nil || raw != "" {
			t.Errorf("got %q, %v", raw, err)
		}
	})

	t.Run("non-object rejected", func(t *testing.T) {
		cmd := NewRunCmd()
		if err := cmd.Flags().Set("input", `[1,2]`); err != nil {
			t.Fatal(err)
		}
		_, err := resolveTriggerInput(cmd)
		var exitErr *ExitError
		if !errors.As(err, &exitErr) || exitErr.Code != exitInputParse {
			t.Errorf("got %v, want ExitError with input parse code", err)
		}
	})

	t.Run("input file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "input.json")
		if err := os.WriteFile(path, []byte(`{"vip": true}`), 0o600); err != nil {
			t.Fatal(err)
		}
		cmd := NewRunCmd()
		if err := cmd.Flags().Set("input-file", path); err != nil {
			t.Fatal(err)
		}
		raw, err := resolveTriggerInput(cmd)
		if err != nil {
			t.Fatalf("resolveTriggerInput: %v", err)
		}
		if raw != `{"vip": true}` {
			t.Errorf("raw: %q", raw)
		}
	})

	t.Run("inline and file are exclusive", func(t *testing.T) {
		cmd := NewRunCmd()
		_ = cmd.Flags().Set("input", `{}`)
		_ = cmd.Flags().Set("input-file", "x.json")
		if _, err := resolveTriggerInput(cmd); err == nil {
			t.Fatal("expected an error")
		}
	})
}

func TestDrillDefinesAdvisoryFlags(t *testing.T) {
	// buildAdvisoryClient reads these flags; every command calling it
	// must define them so explicit overrides are not silently dropped.
	for _, cmd := range []*cobra.Command{NewRunCmd(), NewDrillCmd()} {
		for _, name := range []string{"provider", "model"} {
			if cmd.Flags().Lookup(name) == nil {
				t.Errorf("%s: missing --%s flag", cmd.Name(), name)
			}
		}
	}
}

func TestResolveAdvisoryConfigPrecedence(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.json")
	fileCfg := `{"advisory":{"provider":"ollama","model":"file-model","api_key":"file-key"}}`
	if err := os.WriteFile(cfgPath, []byte(fileCfg), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CRISISFLOW_CONFIG", cfgPath)
	t.Setenv("CRISISFLOW_PROVIDER", "")
	t.Setenv("CRISISFLOW_MODEL", "env-model")
	t.Setenv("CRISISFLOW_API_KEY", "")

	cfg, err := resolveAdvisoryConfig("anthropic", "")
	if err != nil {
		t.Fatalf("resolveAdvisoryConfig: %v", err)
	}
	if cfg.Provider != "anthropic" {
		t.Errorf("flag should win over file, got provider %q", cfg.Provider)
	}
	if cfg.Model != "env-model" {
		t.Errorf("env should win over file, got model %q", cfg.Model)
	}
	if cfg.APIKey != "file-key" {
		t.Errorf("file should supply the key, got %q", cfg.APIKey)
	}
}

func TestResolveAdvisoryConfigDefaultsProvider(t *testing.T) {
	t.Setenv("CRISISFLOW_CONFIG", filepath.Join(t.TempDir(), "missing.json"))
	t.Setenv("CRISISFLOW_PROVIDER", "")
	t.Setenv("CRISISFLOW_MODEL", "")
	t.Setenv("CRISISFLOW_API_KEY", "")

	cfg, err := resolveAdvisoryConfig("", "")
	if err != nil {
		t.Fatalf("resolveAdvisoryConfig: %v", err)
	}
	if cfg.Provider != "openai" {
		t.Errorf("provider: got %q, want openai", cfg.Provider)
	}
}

func TestResolveAdvisoryConfigMalformedFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(cfgPath, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CRISISFLOW_CONFIG", cfgPath)

	if _, err := resolveAdvisoryConfig("", ""); err == nil {
		t.Fatal("expected an error for a malformed config file")
	}
}

func TestValidateDefinitionFoldsParseErrors(t *testing.T) {
	diags := validateDefinition([]byte("{not json"), "pipeline.json")
	if len(diags) != 1 || diags[0].Code != "PL-000" {
		t.Fatalf("diags: %+v", diags)
	}
	if diags[0].Severity != loader.SeverityError {
		t.Errorf("severity: %s", diags[0].Severity)
	}
}

func TestPrintDiagnosticsText(t *testing.T) {
	var out bytes.Buffer
	printDiagnosticsText(&out, nil)
	if got := out.String(); got != "Valid!\n" {
		t.Errorf("clean output: %q", got)
	}

	out.Reset()
	printDiagnosticsText(&out, []loader.Diagnostic{
		{Code: "PL-001", Severity: loader.SeverityError, Message: "bad edge", Path: "edges[0].to"},
		{Code: "PL-004", Severity: loader.SeverityWarning, Message: "cycle"},
	})
	got := out.String()
	if !strings.Contains(got, "ERROR [PL-001]: bad edge (at edges[0].to)") {
		t.Errorf("missing error line: %q", got)
	}
	if !strings.Contains(got, "1 error, 1 warning") {
		t.Errorf("missing summary: %q", got)
	}
}

func TestPluralize(t *testing.T) {
	if got := pluralize("error", 1); got != "error" {
		t.Errorf("got %q", got)
	}
	if got := pluralize("warning", 2); got != "warnings" {
		t.Errorf("got %q", got)
	}
}

func TestExitError(t *testing.T) {
	err := exitError(exitValidation, "bad %s", "pipeline")
	if err.Code != exitValidation {
		t.Errorf("code: %d", err.Code)
	}
	if err.Error() != "bad pipeline" {
		t.Errorf("message: %q", err.Error())
	}
}
