package config

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
)

// configItem holds the default, the per-source values and the resolved value of one path.
type configItem struct {
	defaultValue any
	values       map[Source]any
	currentValue any
}

// PropertySource is a named, enumerable set of dotted properties that can be layered
// into a Config above the built-in sources.
type PropertySource interface {
	Name() string
	PropertyNames() []string
	Property(name string) (any, bool)
}

// Config manages configuration values layered from defaults, files, environment,
// command-line arguments and property sources.
type Config struct {
	items           map[string]configItem
	options         LoadOptions
	propertySources []Source // highest precedence first
	tagName         string
	fileFormat      string
	configFilePath  string
	logger          *slog.Logger
	mutex           sync.RWMutex
}

// New creates a Config with the default load options.
func New() *Config {
	return NewWithOptions(DefaultLoadOptions())
}

// NewWithOptions creates a Config with custom load options.
func NewWithOptions(opts LoadOptions) *Config {
	return &Config{
		items:      make(map[string]configItem),
		options:    opts,
		tagName:    "toml",
		fileFormat: "auto",
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger replaces the logger used for debug output. A nil logger is ignored.
func (c *Config) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	c.mutex.Lock()
	c.logger = logger
	c.mutex.Unlock()
}

// SetLoadOptions replaces the load options and recomputes every value with the new precedence.
func (c *Config) SetLoadOptions(opts LoadOptions) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.options = opts
	c.recomputeAll()
}

// Get returns the resolved value of a path and whether the path is registered.
func (c *Config) Get(path string) (any, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, registered := c.items[path]
	if !registered {
		return nil, false
	}
	return item.currentValue, true
}

// Set stores a value for a path in the CLI source, the highest built-in precedence.
func (c *Config) Set(path string, value any) error {
	return c.SetSource(path, SourceCLI, value)
}

// SetSource stores a value for a path in a specific source.
func (c *Config) SetSource(path string, source Source, value any) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	item, registered := c.items[path]
	if !registered {
		return fmt.Errorf("%w: %s", ErrNotRegistered, path)
	}
	if item.values == nil {
		item.values = make(map[Source]any)
	}
	item.values[source] = value
	item.currentValue = c.computeValue(item)
	c.items[path] = item
	return nil
}

// GetSource returns the value a specific source holds for a path.
func (c *Config) GetSource(path string, source Source) (any, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, registered := c.items[path]
	if !registered {
		return nil, false
	}
	val, exists := item.values[source]
	return val, exists
}

// GetSources returns a copy of all source values held for a path.
func (c *Config) GetSources(path string) map[Source]any {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	result := make(map[Source]any)
	for source, val := range c.items[path].values {
		result[source] = val
	}
	return result
}

// ResetSource drops every value held by one source.
func (c *Config) ResetSource(source Source) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for path, item := range c.items {
		delete(item.values, source)
		item.currentValue = c.computeValue(item)
		c.items[path] = item
	}
	c.propertySources = slices.DeleteFunc(c.propertySources, func(s Source) bool { return s == source })
}

// Reset drops all source values, returning every path to its default.
func (c *Config) Reset() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for path, item := range c.items {
		item.values = nil
		item.currentValue = item.defaultValue
		c.items[path] = item
	}
	c.propertySources = nil
}

// AddPropertySource layers a property source above all built-in sources. Sources added
// later take precedence over sources added earlier. Paths the source carries that are not
// registered yet are registered with a nil default.
func (c *Config) AddPropertySource(ps PropertySource) error {
	if ps == nil {
		return fmt.Errorf("%w: nil source", ErrPropertySource)
	}
	name := Source(ps.Name())
	if name == "" || name.builtin() {
		return fmt.Errorf("%w: name %q is empty or reserved", ErrPropertySource, name)
	}

	names := ps.PropertyNames()
	for _, path := range names {
		if err := validatePath(path); err != nil {
			return fmt.Errorf("%w: source %q: %w", ErrPropertySource, name, err)
		}
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !slices.Contains(c.propertySources, name) {
		c.propertySources = append([]Source{name}, c.propertySources...)
	}

	for _, path := range names {
		value, _ := ps.Property(path)
		item := c.items[path]
		if item.values == nil {
			item.values = make(map[Source]any)
		}
		item.values[name] = value
		item.currentValue = c.computeValue(item)
		c.items[path] = item
	}

	c.logger.Debug("property source added",
		"source", string(name),
		"properties", len(names),
		"precedence", c.precedence())
	return nil
}

// PropertySources returns the names of the layered property sources, highest precedence first.
func (c *Config) PropertySources() []Source {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return slices.Clone(c.propertySources)
}

// precedence returns the effective source order, property sources first.
func (c *Config) precedence() []Source {
	order := make([]Source, 0, len(c.propertySources)+len(c.options.Sources))
	order = append(order, c.propertySources...)
	return append(order, c.options.Sources...)
}

// computeValue resolves an item against the effective precedence. Caller holds the lock.
func (c *Config) computeValue(item configItem) any {
	for _, source := range c.precedence() {
		if source == SourceDefault {
			return item.defaultValue
		}
		if val, exists := item.values[source]; exists {
			return val
		}
	}
	return item.defaultValue
}

func (c *Config) recomputeAll() {
	for path, item := range c.items {
		item.currentValue = c.computeValue(item)
		c.items[path] = item
	}
}
