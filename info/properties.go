package info

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lixenwraith/autoconfig/config"
)

// Prefix is the configuration path the settings bind under.
const Prefix = "management.info"

// ErrUnknownMode is returned when a mode string is not recognized.
var ErrUnknownMode = errors.New("unknown info mode")

// Mode selects how much metadata a contributor exposes. The zero value is ModeSimple.
type Mode int

const (
	ModeSimple Mode = iota
	ModeFull
	ModeOff
)

func (m Mode) String() string {
	switch m {
	case ModeSimple:
		return "simple"
	case ModeFull:
		return "full"
	case ModeOff:
		return "off"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "off", "simple" or "full", ignoring case and surrounding space.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "simple":
		return ModeSimple, nil
	case "full":
		return ModeFull, nil
	case "off":
		return ModeOff, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

func (m Mode) MarshalText() ([]byte, error) {
	if m < ModeSimple || m > ModeOff {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, int(m))
	}
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Build holds the build info settings.
type Build struct {
	// Mode to use to expose build information.
	Mode Mode `toml:"mode" json:"mode" yaml:"mode"`
}

// Git holds the git info settings.
type Git struct {
	// Mode to use to expose git information.
	Mode Mode `toml:"mode" json:"mode" yaml:"mode"`
}

// Properties are the management.info settings.
type Properties struct {
	Build Build `toml:"build" json:"build" yaml:"build"`
	Git   Git   `toml:"git" json:"git" yaml:"git"`
}

// NewProperties returns the defaults: both modes simple.
func NewProperties() *Properties {
	return &Properties{
		Build: Build{Mode: ModeSimple},
		Git:   Git{Mode: ModeSimple},
	}
}

// BuildMode returns the build info mode.
func (p *Properties) BuildMode() Mode { return p.Build.Mode }

// SetBuildMode replaces the build info mode.
func (p *Properties) SetBuildMode(m Mode) { p.Build.Mode = m }

// GitMode returns the git info mode.
func (p *Properties) GitMode() Mode { return p.Git.Mode }

// SetGitMode replaces the git info mode.
func (p *Properties) SetGitMode(m Mode) { p.Git.Mode = m }

// Bind registers the defaults under Prefix when they are not registered yet and
// decodes the merged configuration into a new Properties.
func Bind(cfg *config.Config) (*Properties, error) {
	if len(cfg.GetRegisteredPaths(Prefix+".")) == 0 {
		if err := cfg.RegisterStruct(Prefix, NewProperties()); err != nil {
			return nil, fmt.Errorf("info: register defaults: %w", err)
		}
	}

	props := NewProperties()
	if err := cfg.Scan(Prefix, props); err != nil {
		return nil, fmt.Errorf("info: bind %s: %w", Prefix, err)
	}
	return props, nil
}
