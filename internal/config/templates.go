package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const credentialsTemplate = `# Tradegate Credentials
# Keep this file private (chmod 600).

[generation]
api_key = ""
base_url = ""

[validation]
api_key = ""
base_url = ""
`

const configTemplate = `# Tradegate Configuration

[pipeline]
# Timeout for a single model call
model_timeout = "45s"
# Retries for infrastructure failures on model calls
max_model_retries = 3
retry_initial_delay = "500ms"
# How long a generated signal stays executable
signal_ttl = "15m"

[execution]
# Execution mode: "live" or "paper"
mode = "paper"
# Reject locally when a signal carries no stop loss
require_stop_loss = true
default_quantity = 1.0
submit_max_retries = 3

[audit]
max_size = 50
max_backups = 30
max_age = 365
compress = true
`

// WriteTemplates writes template config files into the config directory,
// skipping any file that already exists.
func WriteTemplates(configDir string) error {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	files := map[string]string{
		"config.toml":      configTemplate,
		"credentials.toml": credentialsTemplate,
	}
	for name, content := range files {
		path := filepath.Join(configDir, name)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	return nil
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	path := filepath.Join(configDir, "credentials.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return os.WriteFile(path, []byte(credentialsTemplate), 0600)
}
