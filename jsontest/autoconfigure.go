package jsontest

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/lixenwraith/autoconfig/config"
	"github.com/lixenwraith/autoconfig/mapping"
)

// EnabledProperty switches the testers on. A missing or nil value leaves them off.
const EnabledProperty = "test.jsontesters.enabled"

// BasicName is the factory name of the marshaller-less tester.
const BasicName = "basic"

// AutoConfigureJsonTesters is the annotation a test class carries to enable the
// testers. Registered through RegisterAnnotations, it maps to EnabledProperty.
type AutoConfigureJsonTesters struct {
	Enabled bool
}

// RegisterAnnotations adds AutoConfigureJsonTesters to reg under the name
// "AutoConfigureJsonTesters" with Enabled defaulting to true.
func RegisterAnnotations(reg *mapping.Registry) error {
	at, err := mapping.DefineStruct[AutoConfigureJsonTesters](reg, "AutoConfigureJsonTesters", mapping.Mapped("test.jsontesters"))
	if err != nil {
		return err
	}
	at.Defaults = func() any { return AutoConfigureJsonTesters{Enabled: true} }
	return nil
}

// Option configures AutoConfigure.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger for configuration decisions.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Testers holds one factory per available tester.
type Testers struct {
	factories map[string]*Factory
}

// AutoConfigure builds the tester factories when EnabledProperty is true in cfg.
// The basic tester is always present; each non-nil collaborator adds a marshaller
// tester under its name. It returns ErrDisabled when the property is off.
func AutoConfigure(cfg *config.Config, collaborators map[string]Marshaller, opts ...Option) (*Testers, error) {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	enabled, err := enabledIn(cfg)
	if err != nil {
		return nil, err
	}
	if !enabled {
		o.logger.Debug("json testers not configured", "property", EnabledProperty)
		return nil, ErrDisabled
	}

	ts := &Testers{factories: map[string]*Factory{
		BasicName: NewFactory(BasicName, nil, NewBasicTester),
	}}

	for name, m := range collaborators {
		if m == nil {
			o.logger.Debug("json tester collaborator absent", "name", name)
			continue
		}
		if name == BasicName {
			return nil, fmt.Errorf("collaborator name %q is reserved", name)
		}
		ts.factories[name] = NewFactory(name, m, NewJSONTester)
	}

	o.logger.Debug("json testers configured", "testers", ts.Names())
	return ts, nil
}

func enabledIn(cfg *config.Config) (bool, error) {
	if cfg == nil {
		return false, nil
	}
	val, ok := cfg.Get(EnabledProperty)
	if !ok || val == nil {
		return false, nil
	}
	enabled, err := cfg.Bool(EnabledProperty)
	if err != nil {
		return false, fmt.Errorf("json testers: %w", err)
	}
	return enabled, nil
}

// Names returns the configured tester names in sorted order.
func (ts *Testers) Names() []string {
	names := make([]string, 0, len(ts.factories))
	for name := range ts.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Factory returns the factory registered under name.
func (ts *Testers) Factory(name string) (*Factory, bool) {
	f, ok := ts.factories[name]
	return f, ok
}

// Basic builds a new basic tester.
func (ts *Testers) Basic() (*BasicTester, error) {
	obj, err := ts.factories[BasicName].Object()
	if err != nil {
		return nil, err
	}
	return obj.(*BasicTester), nil
}

// JSON builds a new marshaller tester for the named collaborator.
func (ts *Testers) JSON(name string) (*JSONTester, error) {
	f, ok := ts.factories[name]
	if !ok || name == BasicName {
		return nil, fmt.Errorf("no json tester named %q", name)
	}
	obj, err := f.Object()
	if err != nil {
		return nil, err
	}
	return obj.(*JSONTester), nil
}
