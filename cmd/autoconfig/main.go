// Command autoconfig scans a Go package for struct types annotated with //prop:
// directives and prints the configuration they produce when merged with defaults,
// a config file, the environment and the command line.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/fatih/color"
	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/lixenwraith/autoconfig/config"
	"github.com/lixenwraith/autoconfig/directive"
	"github.com/lixenwraith/autoconfig/info"
	"github.com/lixenwraith/autoconfig/jsontest"
	"github.com/lixenwraith/autoconfig/mapping"
)

const appName = "autoconfig"

type options struct {
	dir        string
	typeName   string
	format     string
	configFile string
	envPrefix  string
	showInfo   bool
	tests      bool
	verbose    bool
	noColor    bool
	watch      bool
	overrides  []string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if opts.noColor {
		color.NoColor = true
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	if err := execute(ctx, opts, stdout, logger); err != nil {
		color.New(color.FgRed, color.Bold).Fprint(stderr, "error: ")
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.dir, "dir", ".", "package directory to scan")
	fs.StringVar(&opts.typeName, "type", "", "annotated type to resolve (lists types when empty)")
	fs.StringVar(&opts.format, "format", "text", "output format: text, toml, json or yaml")
	fs.StringVar(&opts.configFile, "config", "", "config file (discovered when empty)")
	fs.StringVar(&opts.envPrefix, "env-prefix", "", "environment variable prefix")
	fs.BoolVar(&opts.showInfo, "info", false, "print build and git info using the resolved modes")
	fs.BoolVar(&opts.tests, "tests", false, "include _test.go files")
	fs.BoolVar(&opts.verbose, "verbose", false, "log debug output to stderr")
	fs.BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	fs.BoolVar(&opts.watch, "watch", false, "reprint when the config file changes, until interrupted")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s [options] [-- --path=value ...]\n\n", appName)
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if !slices.Contains([]string{"text", "toml", "json", "yaml"}, opts.format) {
		fmt.Fprintf(stderr, "unsupported format %q\n", opts.format)
		fs.Usage()
		return opts, fmt.Errorf("unsupported format %q", opts.format)
	}
	opts.overrides = fs.Args()
	return opts, nil
}

func newRegistry() (*mapping.Registry, error) {
	reg := mapping.NewRegistry()
	if err := info.RegisterAnnotations(reg); err != nil {
		return nil, err
	}
	if err := jsontest.RegisterAnnotations(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

func execute(ctx context.Context, opts options, w io.Writer, logger *slog.Logger) error {
	reg, err := newRegistry()
	if err != nil {
		return err
	}

	scanOpts := []directive.ScannerOption{directive.WithLogger(logger)}
	if opts.tests {
		scanOpts = append(scanOpts, directive.WithTests())
	}
	classes, err := directive.NewScanner(reg, scanOpts...).ScanDir(opts.dir)
	if err != nil {
		return err
	}

	if opts.typeName == "" {
		return listTypes(w, opts.dir, classes, logger)
	}
	class, ok := classes[opts.typeName]
	if !ok {
		return fmt.Errorf("type %s not found in %s", opts.typeName, opts.dir)
	}

	src, err := mapping.NewSource(class, reg)
	if err != nil {
		return err
	}

	builder := config.NewBuilder().
		WithLogger(logger).
		WithDefaultsAt(info.Prefix, info.NewProperties()).
		WithEnvPrefix(opts.envPrefix).
		WithArgs(opts.overrides).
		WithPropertySource(src)
	if opts.configFile != "" {
		builder = builder.WithFile(opts.configFile)
	} else {
		builder = builder.WithFileDiscovery(config.DefaultDiscoveryOptions(appName))
	}

	cfg, err := builder.Build()
	if err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		return err
	}
	if err != nil && opts.configFile != "" {
		return fmt.Errorf("%s: %w", opts.configFile, err)
	}

	render := func() error {
		if opts.format == "text" {
			printText(w, class, src, cfg)
			printTesters(w, cfg, logger)
		} else if err := cfg.Dump(w, opts.format); err != nil {
			return err
		}

		if opts.showInfo {
			props, err := info.Bind(cfg)
			if err != nil {
				return err
			}
			details := info.Collect(info.Contributors(props, nil)...)
			return encode(w, opts.format, map[string]any{"info": details})
		}
		return nil
	}
	if err := render(); err != nil {
		return err
	}
	if !opts.watch {
		return nil
	}

	events, err := cfg.Watch(ctx, config.DefaultWatchOptions())
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	for ev := range events {
		if ev.Err != nil {
			color.New(color.FgYellow).Fprintf(w, "reload failed: %v\n", ev.Err)
			continue
		}
		fmt.Fprintf(w, "\nreloaded (%d changed)\n", len(ev.Changed))
		if err := render(); err != nil {
			return err
		}
	}
	return nil
}

func listTypes(w io.Writer, dir string, classes directive.Classes, logger *slog.Logger) error {
	if pkg, err := directive.ImportPath(dir); err == nil {
		color.New(color.Bold).Fprintf(w, "package %s\n", pkg)
	} else {
		logger.Debug("import path unknown", "dir", dir, "error", err)
	}

	name := color.New(color.FgCyan)
	for _, n := range classes.Names() {
		class := classes[n]
		name.Fprint(w, n)
		if class.Super != nil {
			fmt.Fprintf(w, " : %s", class.Super.Name)
		}
		fmt.Fprintf(w, " (%d annotations)\n", len(class.Annotations))
	}
	return nil
}

func printText(w io.Writer, class *mapping.Class, src *mapping.Source, cfg *config.Config) {
	header := color.New(color.FgGreen, color.Bold)
	key := color.New(color.FgCyan)
	origin := color.New(color.FgHiBlack)

	chain := []string{}
	for c := class; c != nil; c = c.Super {
		chain = append(chain, c.Name)
	}
	header.Fprintf(w, "%s\n", strings.Join(chain, " -> "))

	paths := make([]string, 0)
	for path := range cfg.GetRegisteredPaths("") {
		paths = append(paths, path)
	}
	slices.Sort(paths)

	for _, path := range paths {
		value, _ := cfg.Get(path)
		key.Fprint(w, path)
		fmt.Fprintf(w, " = %v", value)
		origin.Fprintf(w, "  [%s]\n", winningSource(cfg, path, src))
	}
}

// winningSource names the source that supplied the current value of path.
func winningSource(cfg *config.Config, path string, src *mapping.Source) string {
	if src.ContainsProperty(path) {
		return src.Name()
	}
	sources := cfg.GetSources(path)
	for _, s := range []config.Source{config.SourceCLI, config.SourceEnv, config.SourceFile} {
		if _, ok := sources[s]; ok {
			return string(s)
		}
	}
	return string(config.SourceDefault)
}

func printTesters(w io.Writer, cfg *config.Config, logger *slog.Logger) {
	ts, err := jsontest.AutoConfigure(cfg, map[string]jsontest.Marshaller{
		jsontest.StdJSONName:  jsontest.StdJSON{},
		jsontest.GoJSONName:   jsontest.GoJSON{},
		jsontest.JsoniterName: jsontest.Jsoniter{},
	}, jsontest.WithLogger(logger))
	switch {
	case errors.Is(err, jsontest.ErrDisabled):
		fmt.Fprintln(w, "json testers: disabled")
	case err != nil:
		color.New(color.FgYellow).Fprintf(w, "json testers: %v\n", err)
	default:
		fmt.Fprintf(w, "json testers: %s\n", strings.Join(ts.Names(), ", "))
	}
}

func encode(w io.Writer, format string, v any) error {
	switch format {
	case "toml":
		return toml.NewEncoder(w).Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		data, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(v)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return err
		}
		buf.WriteByte('\n')
		_, err = buf.WriteTo(w)
		return err
	}
}
