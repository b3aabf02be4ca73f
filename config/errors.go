package config

import "errors"

// MaxValueSize caps the size of a single string value read from the environment.
const MaxValueSize = 1 << 20

var (
	// ErrConfigNotFound is returned when the configuration file does not exist.
	// It is not fatal: the application can run on defaults, env and CLI values.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrCLIParse wraps failures to parse command-line arguments.
	ErrCLIParse = errors.New("failed to parse command-line arguments")

	// ErrNotRegistered is returned when a path has not been registered.
	ErrNotRegistered = errors.New("path not registered")

	// ErrInvalidPath is returned for empty or malformed dotted paths.
	ErrInvalidPath = errors.New("invalid configuration path")

	// ErrValueSize is returned when an environment value exceeds MaxValueSize.
	ErrValueSize = errors.New("value size exceeds maximum")

	// ErrPropertySource is returned when a property source cannot be added.
	ErrPropertySource = errors.New("invalid property source")

	// ErrPermissionsChanged is reported by Watch when a watched file's group or
	// world permission bits change. The file is not reloaded.
	ErrPermissionsChanged = errors.New("config file permissions changed")
)
