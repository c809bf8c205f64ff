package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// SetKeyInFile updates or adds a global option in the config file at path,
// preserving comments and formatting. An existing global line for key is
// replaced in place; otherwise the key is inserted before the first section
// header, or appended when no sections exist. Keys inside [section] blocks
// are never touched.
func SetKeyInFile(path, key, value string) error {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config file: %w", err)
	}

	var lines []string
	if len(data) > 0 {
		lines = strings.Split(string(data), "\n")
	}

	entry := key
	if value != "" {
		entry = key + " " + value
	}

	found := false
	inGlobal := true
	insertAt := len(lines)
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			if inGlobal && !found {
				insertAt = i
			}
			inGlobal = false
			continue
		}
		if !inGlobal || trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		name, _, _ := strings.Cut(trimmed, " ")
		if name == key {
			lines[i] = entry
			found = true
			break
		}
	}

	if !found {
		if insertAt >= len(lines) {
			if n := len(lines); n > 0 && lines[n-1] == "" {
				lines = append(lines[:n-1], entry, "")
			} else {
				lines = append(lines, entry)
			}
		} else {
			lines = append(lines[:insertAt+1], lines[insertAt:]...)
			lines[insertAt] = entry
		}
	}

	return atomicWrite(path, []byte(strings.Join(lines, "\n")), 0644)
}

// atomicWrite writes data to path via a same-directory temp file and rename,
// so readers never observe a partially written config.
func atomicWrite(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-config-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	var renamed bool
	defer func() {
		if !renamed {
			if err := os.Remove(tmp.Name()); err != nil {
				slog.Warn("failed to remove temporary file", "path", tmp.Name(), "error", err)
			}
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing config file: %w", err)
	}
	renamed = true
	return nil
}
