package info

import "github.com/lixenwraith/autoconfig/mapping"

// AnnotationName is the name Settings registers under.
const AnnotationName = "InfoSettings"

// Settings is the annotation form of Properties. A class carrying it overrides
// the build and git modes for the configuration derived from that class.
type Settings struct {
	Build Mode `prop:"build.mode"`
	Git   Mode `prop:"git.mode"`
}

// RegisterAnnotations adds Settings to reg, mapped under Prefix.
func RegisterAnnotations(reg *mapping.Registry) error {
	at, err := mapping.DefineStruct[Settings](reg, AnnotationName, mapping.Mapped(Prefix))
	if err != nil {
		return err
	}
	at.Defaults = func() any { return Settings{Build: ModeSimple, Git: ModeSimple} }
	return nil
}
