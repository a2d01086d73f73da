package testing

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

// WriteConfigFile marshals values to YAML and writes it to a temp config
// file, returning its path. Useful for tests that exercise the config
// loader against a real file.
func WriteConfigFile(t *testing.T, values map[string]any) string {
	t.Helper()

	data, err := yaml.Marshal(values)
	if err != nil {
		t.Fatalf("failed to marshal config to YAML: %v", err)
	}

	path := filepath.Join(t.TempDir(), "zap.yaml")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}
