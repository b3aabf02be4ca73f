package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Source names a layer of configuration values.
type Source string

const (
	// SourceDefault represents registered default values
	SourceDefault Source = "default"
	// SourceFile represents values loaded from a configuration file
	SourceFile Source = "file"
	// SourceEnv represents values loaded from environment variables
	SourceEnv Source = "env"
	// SourceCLI represents values loaded from command-line arguments
	SourceCLI Source = "cli"
)

func (s Source) builtin() bool {
	switch s {
	case SourceDefault, SourceFile, SourceEnv, SourceCLI:
		return true
	}
	return false
}

// EnvTransformFunc converts a configuration path to an environment variable name.
type EnvTransformFunc func(path string) string

// LoadOptions configures how the built-in sources are loaded and layered.
type LoadOptions struct {
	// Sources defines the precedence order (first = highest priority).
	// Property sources always sit above these.
	Sources []Source

	// EnvPrefix is prepended to environment variable names.
	// Example: "MYAPP_" transforms "server.port" to "MYAPP_SERVER_PORT"
	EnvPrefix string

	// EnvTransform overrides the default path to variable name mapping.
	EnvTransform EnvTransformFunc

	// EnvWhitelist limits which paths are checked for env vars (nil = all)
	EnvWhitelist map[string]bool
}

// DefaultLoadOptions returns the standard precedence: CLI > Env > File > Default.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		Sources: []Source{SourceCLI, SourceEnv, SourceFile, SourceDefault},
	}
}

// Load reads the configuration file and command-line overrides with the current options.
func (c *Config) Load(filePath string, args []string) error {
	c.mutex.RLock()
	opts := c.options
	c.mutex.RUnlock()
	return c.LoadWithOptions(filePath, args, opts)
}

// LoadWithOptions loads every built-in source named in opts, lowest precedence first.
// A missing file is reported as ErrConfigNotFound alongside any other non-fatal errors.
func (c *Config) LoadWithOptions(filePath string, args []string, opts LoadOptions) error {
	c.mutex.Lock()
	c.options = opts
	c.recomputeAll()
	c.mutex.Unlock()

	var loadErrors []error
	for i := len(opts.Sources) - 1; i >= 0; i-- {
		switch opts.Sources[i] {
		case SourceFile:
			if filePath == "" {
				continue
			}
			if err := c.loadFile(filePath); err != nil {
				if !errors.Is(err, ErrConfigNotFound) {
					return err
				}
				loadErrors = append(loadErrors, err)
			}
		case SourceEnv:
			if err := c.loadEnv(opts); err != nil {
				loadErrors = append(loadErrors, err)
			}
		case SourceCLI:
			if len(args) > 0 {
				if err := c.loadCLI(args); err != nil {
					loadErrors = append(loadErrors, err)
				}
			}
		}
	}

	return errors.Join(loadErrors...)
}

// LoadFile loads configuration values from a TOML, JSON or YAML file.
func (c *Config) LoadFile(filePath string) error {
	return c.loadFile(filePath)
}

// LoadEnv loads configuration values from environment variables.
func (c *Config) LoadEnv(prefix string) error {
	c.mutex.RLock()
	opts := c.options
	c.mutex.RUnlock()

	opts.EnvPrefix = prefix
	return c.loadEnv(opts)
}

// LoadCLI loads configuration values from command-line arguments.
func (c *Config) LoadCLI(args []string) error {
	return c.loadCLI(args)
}

func (c *Config) loadFile(path string) error {
	fileData, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrConfigNotFound
		}
		return fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	c.mutex.RLock()
	format := c.fileFormat
	c.mutex.RUnlock()

	if format == "" || format == "auto" {
		format = detectFileFormat(path)
		if format == "" {
			format = detectFormatFromContent(fileData)
		}
	}

	fileConfig := make(map[string]any)
	switch format {
	case "toml":
		if err := toml.Unmarshal(fileData, &fileConfig); err != nil {
			return fmt.Errorf("failed to parse TOML config file '%s': %w", path, err)
		}
	case "json":
		decoder := json.NewDecoder(bytes.NewReader(fileData))
		decoder.UseNumber()
		if err := decoder.Decode(&fileConfig); err != nil {
			return fmt.Errorf("failed to parse JSON config file '%s': %w", path, err)
		}
	case "yaml":
		if err := yaml.Unmarshal(fileData, &fileConfig); err != nil {
			return fmt.Errorf("failed to parse YAML config file '%s': %w", path, err)
		}
	default:
		return fmt.Errorf("unable to determine config format for file '%s'", path)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	// Registered paths win over deeper keys, so a table registered as a whole
	// (e.g. a map default) is taken as one value.
	newFileData := make(map[string]any)
	var apply func(prefix string, data map[string]any)
	apply = func(prefix string, data map[string]any) {
		for key, value := range data {
			fullPath := key
			if prefix != "" {
				fullPath = prefix + "." + key
			}
			if _, registered := c.items[fullPath]; registered {
				newFileData[fullPath] = value
			} else if sub, isMap := value.(map[string]any); isMap {
				apply(fullPath, sub)
			}
		}
	}
	apply("", fileConfig)

	c.configFilePath = path
	for itemPath, item := range c.items {
		if value, exists := newFileData[itemPath]; exists {
			if item.values == nil {
				item.values = make(map[Source]any)
			}
			item.values[SourceFile] = value
		} else {
			delete(item.values, SourceFile)
		}
		item.currentValue = c.computeValue(item)
		c.items[itemPath] = item
	}

	c.logger.Debug("config file loaded", "path", path, "format", format, "values", len(newFileData))
	return nil
}

func (c *Config) loadEnv(opts LoadOptions) error {
	transform := opts.EnvTransform
	if transform == nil {
		transform = defaultEnvTransform(opts.EnvPrefix)
	}

	c.mutex.RLock()
	paths := make([]string, 0, len(c.items))
	for p := range c.items {
		paths = append(paths, p)
	}
	c.mutex.RUnlock()

	found := make(map[string]string)
	for _, path := range paths {
		if opts.EnvWhitelist != nil && !opts.EnvWhitelist[path] {
			continue
		}
		if value, exists := os.LookupEnv(transform(path)); exists {
			if len(value) > MaxValueSize {
				return fmt.Errorf("%w: %s", ErrValueSize, transform(path))
			}
			found[path] = value
		}
	}
	if len(found) == 0 {
		return nil
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	for path, value := range found {
		item, exists := c.items[path]
		if !exists {
			continue
		}
		if item.values == nil {
			item.values = make(map[Source]any)
		}
		// Raw string; Scan converts to the target type.
		item.values[SourceEnv] = value
		item.currentValue = c.computeValue(item)
		c.items[path] = item
	}

	c.logger.Debug("environment loaded", "prefix", opts.EnvPrefix, "values", len(found))
	return nil
}

func (c *Config) loadCLI(args []string) error {
	parsed, err := parseArgs(args)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCLIParse, err)
	}

	flattened := flattenMap(parsed, "")
	if len(flattened) == 0 {
		return nil
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	for path, value := range flattened {
		item, exists := c.items[path]
		if !exists {
			continue
		}
		if item.values == nil {
			item.values = make(map[Source]any)
		}
		item.values[SourceCLI] = value
		item.currentValue = c.computeValue(item)
		c.items[path] = item
	}
	return nil
}

// DiscoverEnv returns path -> variable name for every registered path whose
// environment variable is set.
func (c *Config) DiscoverEnv(prefix string) map[string]string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	transform := c.options.EnvTransform
	if transform == nil {
		transform = defaultEnvTransform(prefix)
	}

	discovered := make(map[string]string)
	for path := range c.items {
		envVar := transform(path)
		if _, exists := os.LookupEnv(envVar); exists {
			discovered[path] = envVar
		}
	}
	return discovered
}

var envReplacer = strings.NewReplacer(".", "_", "-", "_", "[", "_", "]", "")

// defaultEnvTransform maps "test.json-testers.enabled" to "<PREFIX>TEST_JSON_TESTERS_ENABLED".
func defaultEnvTransform(prefix string) EnvTransformFunc {
	return func(path string) string {
		return prefix + strings.ToUpper(envReplacer.Replace(path))
	}
}

// parseArgs processes "--key=value", "--key value" and "--flag" arguments into a nested map.
// Values are kept as strings; Scan converts them.
func parseArgs(args []string) (map[string]any, error) {
	result := make(map[string]any)
	for i := 0; i < len(args); i++ {
		content, isFlag := strings.CutPrefix(args[i], "--")
		if !isFlag || content == "" {
			continue
		}

		keyPath, valueStr, hasValue := strings.Cut(content, "=")
		if !hasValue {
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "--") {
				valueStr = args[i+1]
				i++
			} else {
				valueStr = "true"
			}
		}
		if keyPath == "" {
			continue
		}

		if err := validatePath(keyPath); err != nil {
			return nil, fmt.Errorf("command-line key %q: %w", keyPath, err)
		}
		setNestedValue(result, keyPath, valueStr)
	}
	return result, nil
}

// detectFileFormat determines the format from the file extension.
func detectFileFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", ".tml":
		return "toml"
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	default:
		return ""
	}
}

// detectFormatFromContent tries JSON, then YAML, then TOML.
func detectFormatFromContent(data []byte) string {
	var probe map[string]any
	if err := json.Unmarshal(data, &probe); err == nil {
		return "json"
	}
	// TOML before YAML: most TOML tables fail YAML parsing, but simple
	// "key = value" lines would otherwise be read as a YAML scalar.
	if err := toml.Unmarshal(data, &probe); err == nil {
		return "toml"
	}
	if err := yaml.Unmarshal(data, &probe); err == nil {
		return "yaml"
	}
	return ""
}
