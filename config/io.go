package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Save writes the current configuration to a TOML file atomically.
func (c *Config) Save(path string) error {
	return c.SaveSource(path, "")
}

// SaveSource writes the values of one source (or the merged state for "") to a TOML file.
func (c *Config) SaveSource(path string, source Source) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c.nested(source)); err != nil {
		return fmt.Errorf("failed to marshal config data to TOML: %w", err)
	}
	return atomicWriteFile(path, buf.Bytes())
}

// Dump writes the merged configuration to w as "toml", "json" or "yaml".
// Indexed paths are written as arrays.
func (c *Config) Dump(w io.Writer, format string) error {
	data := c.nested("")
	foldIndexedKeys(data)
	switch format {
	case "", "toml":
		return toml.NewEncoder(w).Encode(data)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported dump format %q", format)
	}
}

// Debug returns every path with its current, default and per-source values, sorted by path.
func (c *Config) Debug() string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	paths := make([]string, 0, len(c.items))
	for path := range c.items {
		paths = append(paths, path)
	}
	slices.Sort(paths)

	var b strings.Builder
	fmt.Fprintf(&b, "Precedence: %v\n", c.precedence())
	for _, path := range paths {
		item := c.items[path]
		fmt.Fprintf(&b, "  %s = %v (default: %v)\n", path, item.currentValue, item.defaultValue)
		for _, source := range c.precedence() {
			if val, exists := item.values[source]; exists {
				fmt.Fprintf(&b, "    %s: %v\n", source, val)
			}
		}
	}
	return b.String()
}

// Validate checks that every required path is registered and set by some source.
func (c *Config) Validate(required ...string) error {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var missing []string
	for _, path := range required {
		item, exists := c.items[path]
		if !exists {
			missing = append(missing, path+" (not registered)")
			continue
		}
		if len(item.values) == 0 && (item.defaultValue == nil || reflect.ValueOf(item.defaultValue).IsZero()) {
			missing = append(missing, path)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// nested builds a nested map of the merged state, or of one source's values.
func (c *Config) nested(source Source) map[string]any {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	data := make(map[string]any)
	for path, item := range c.items {
		if source == "" {
			if item.currentValue != nil {
				setNestedValue(data, path, item.currentValue)
			}
		} else if val, exists := item.values[source]; exists {
			setNestedValue(data, path, val)
		}
	}
	return data
}

// atomicWriteFile writes data to a temp file in the target directory and renames it into place.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tempPath := tempFile.Name()
	defer os.Remove(tempPath)

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Chmod(tempPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}
