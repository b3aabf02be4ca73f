package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// ValidatorFunc validates a fully loaded Config.
type ValidatorFunc func(c *Config) error

// Builder provides a fluent interface for building configurations.
type Builder struct {
	cfg        *Config
	opts       LoadOptions
	defaults   []defaultsEntry
	prefix     string
	file       string
	args       []string
	sources    []PropertySource
	err        error
	validators []ValidatorFunc
}

type defaultsEntry struct {
	prefix string
	value  any
}

// NewBuilder creates a new configuration builder reading os.Args by default.
func NewBuilder() *Builder {
	return &Builder{
		cfg:  New(),
		opts: DefaultLoadOptions(),
		args: os.Args[1:],
	}
}

// WithDefaults registers a struct of defaults under the builder prefix.
func (b *Builder) WithDefaults(defaults any) *Builder {
	b.defaults = append(b.defaults, defaultsEntry{value: defaults})
	return b
}

// WithDefaultsAt registers a struct of defaults under an explicit prefix.
// It can be called repeatedly to assemble settings owned by different packages.
func (b *Builder) WithDefaultsAt(prefix string, defaults any) *Builder {
	b.defaults = append(b.defaults, defaultsEntry{prefix: prefix, value: defaults})
	return b
}

// WithPrefix sets the prefix for WithDefaults registration and BuildAndScan.
func (b *Builder) WithPrefix(prefix string) *Builder {
	b.prefix = prefix
	return b
}

// WithTagName sets the struct tag used for registration and scanning.
func (b *Builder) WithTagName(tagName string) *Builder {
	switch tagName {
	case "toml", "json", "yaml", "prop":
		b.cfg.tagName = tagName
	default:
		b.err = fmt.Errorf("unsupported tag name %q", tagName)
	}
	return b
}

// WithFileFormat forces the file format instead of detecting it.
func (b *Builder) WithFileFormat(format string) *Builder {
	switch format {
	case "toml", "json", "yaml", "auto":
		b.cfg.fileFormat = format
	default:
		b.err = fmt.Errorf("unsupported file format %q", format)
	}
	return b
}

// WithEnvPrefix sets the environment variable prefix.
func (b *Builder) WithEnvPrefix(prefix string) *Builder {
	b.opts.EnvPrefix = prefix
	return b
}

// WithFile sets the configuration file path.
func (b *Builder) WithFile(path string) *Builder {
	b.file = path
	return b
}

// WithArgs sets the command-line arguments.
func (b *Builder) WithArgs(args []string) *Builder {
	b.args = args
	return b
}

// WithSources sets the precedence order of the built-in sources.
func (b *Builder) WithSources(sources ...Source) *Builder {
	b.opts.Sources = sources
	return b
}

// WithEnvTransform sets a custom environment variable transformer.
func (b *Builder) WithEnvTransform(fn EnvTransformFunc) *Builder {
	b.opts.EnvTransform = fn
	return b
}

// WithEnvWhitelist limits which paths are checked for env vars.
func (b *Builder) WithEnvWhitelist(paths ...string) *Builder {
	if b.opts.EnvWhitelist == nil {
		b.opts.EnvWhitelist = make(map[string]bool)
	}
	for _, path := range paths {
		b.opts.EnvWhitelist[path] = true
	}
	return b
}

// WithPropertySource layers a property source above the built-in sources.
// Later calls take precedence over earlier ones.
func (b *Builder) WithPropertySource(ps PropertySource) *Builder {
	if ps == nil {
		b.err = fmt.Errorf("%w: nil source", ErrPropertySource)
		return b
	}
	b.sources = append(b.sources, ps)
	return b
}

// WithLogger sets the logger for debug output.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.cfg.SetLogger(logger)
	return b
}

// WithValidator adds a validation function run at the end of Build, in order of addition.
func (b *Builder) WithValidator(fn ValidatorFunc) *Builder {
	if fn != nil {
		b.validators = append(b.validators, fn)
	}
	return b
}

// Build creates the Config. A missing file is returned as ErrConfigNotFound together
// with a usable Config.
func (b *Builder) Build() (*Config, error) {
	if b.err != nil {
		return nil, b.err
	}

	for _, d := range b.defaults {
		prefix := d.prefix
		if prefix == "" {
			prefix = b.prefix
		}
		if err := b.cfg.RegisterStruct(prefix, d.value); err != nil {
			return nil, fmt.Errorf("failed to register defaults: %w", err)
		}
	}

	for _, ps := range b.sources {
		if err := b.cfg.AddPropertySource(ps); err != nil {
			return nil, err
		}
	}

	loadErr := b.cfg.LoadWithOptions(b.file, b.args, b.opts)
	if loadErr != nil && !errors.Is(loadErr, ErrConfigNotFound) {
		return nil, loadErr
	}

	for _, validator := range b.validators {
		if err := validator(b.cfg); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	return b.cfg, loadErr
}

// MustBuild is like Build but panics on any error other than ErrConfigNotFound.
func (b *Builder) MustBuild() *Config {
	cfg, err := b.Build()
	if err != nil && !errors.Is(err, ErrConfigNotFound) {
		panic(fmt.Sprintf("config build failed: %v", err))
	}
	return cfg
}

// BuildAndScan builds and decodes the configuration under the builder prefix into target.
func (b *Builder) BuildAndScan(target any) error {
	cfg, err := b.Build()
	if err != nil && !errors.Is(err, ErrConfigNotFound) {
		return err
	}
	if scanErr := cfg.Scan(b.prefix, target); scanErr != nil {
		return fmt.Errorf("failed to scan final config into target: %w", scanErr)
	}
	return err
}
