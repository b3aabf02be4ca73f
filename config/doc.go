// Package config provides thread-safe, layered configuration keyed by dotted paths.
//
// Values come from registered defaults, a TOML, JSON or YAML file, environment
// variables, command-line arguments and any number of property sources. The
// default precedence, highest first, is:
//
//  1. Property sources, most recently added first
//  2. Command-line arguments (--server.port=9090)
//  3. Environment variables (MYAPP_SERVER_PORT=9090)
//  4. Configuration file
//  5. Default values
//
// A property source is anything that enumerates dotted names and values, such as
// the annotation-derived sources of package mapping:
//
//	cfg, err := config.NewBuilder().
//	    WithDefaultsAt("management.info", info.NewProperties()).
//	    WithPropertySource(src).
//	    WithFile("app.toml").
//	    Build()
//	if err != nil && !errors.Is(err, config.ErrConfigNotFound) {
//	    return err
//	}
//
// Paths are TOML bare keys joined by dots. A segment may carry index suffixes
// ("hosts[0]"); Scan folds such siblings back into a slice.
//
// Watch polls the loaded file and reloads it when it changes, reporting the paths
// whose values changed until its context is done.
package config
