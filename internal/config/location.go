package config

import (
	"os"
	"path/filepath"
)

// Path returns the configuration file path. The PAGESCOPE_CONFIG environment
// variable overrides the default ~/.pagescope/config.
func Path() (string, error) {
	if p := os.Getenv("PAGESCOPE_CONFIG"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".pagescope", "config"), nil
}

// EnsureDir creates the configuration directory if needed.
func EnsureDir() error {
	p, err := Path()
	if err != nil {
		return err
	}
	return os.MkdirAll(filepath.Dir(p), 0755)
}
