package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// AdvisoryConfig holds configuration for the advisory language service.
type AdvisoryConfig struct {
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	APIKey   string `json:"api_key,omitempty"`
}

// Config represents the ~/.crisisflow/config.json file structure.
type Config struct {
	Advisory AdvisoryConfig `json:"advisory,omitempty"`
}

// resolveAdvisoryConfig builds the advisory configuration from CLI flags,
// environment variables, and the config file. Priority: flags > env >
// config file.
func resolveAdvisoryConfig(flagProvider, flagModel string) (AdvisoryConfig, error) {
	var out AdvisoryConfig

	// 1. Config file (lowest priority)
	cfg, err := loadConfigFile()
	if err != nil {
		// Config file is optional; only error if it exists but is malformed.
		return AdvisoryConfig{}, err
	}
	if cfg != nil {
		out = cfg.Advisory
	}

	// 2. Environment variables
	if v := os.Getenv("CRISISFLOW_PROVIDER"); v != "" {
		out.Provider = v
	}
	if v := os.Getenv("CRISISFLOW_MODEL"); v != "" {
		out.Model = v
	}
	if v := os.Getenv("CRISISFLOW_API_KEY"); v != "" {
		out.APIKey = v
	}

	// 3. Flags
	if flagProvider != "" {
		out.Provider = flagProvider
	}
	if flagModel != "" {
		out.Model = flagModel
	}

	if out.Provider == "" {
		out.Provider = "openai"
	}
	return out, nil
}

// loadConfigFile reads ~/.crisisflow/config.json (or the path in the
// CRISISFLOW_CONFIG env var). A missing file is not an error.
func loadConfigFile() (*Config, error) {
	path := os.Getenv("CRISISFLOW_CONFIG")
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, nil
		}
		path = filepath.Join(home, ".crisisflow", "config.json")
	}

	data, err := os.ReadFile(path) // #nosec G304 -- well-known config path
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return &cfg, nil
}
