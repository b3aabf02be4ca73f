package directive

import (
	"fmt"
	"reflect"

	"github.com/go-viper/mapstructure/v2"

	"github.com/lixenwraith/autoconfig/config"
	"github.com/lixenwraith/autoconfig/mapping"
)

// Instantiate builds the annotation value a directive names. The value starts from
// the annotation type's defaults and the directive arguments are decoded over it,
// matching argument names to struct fields case-insensitively.
func Instantiate(reg *mapping.Registry, d Directive) (any, error) {
	at, goType, ok := reg.LookupName(d.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknown, d.Name)
	}

	ptr := reflect.New(goType)
	if at.Defaults != nil {
		def := reflect.ValueOf(at.Defaults())
		if def.Kind() == reflect.Ptr && !def.IsNil() {
			def = def.Elem()
		}
		if !def.IsValid() {
			return nil, fmt.Errorf("@%s: nil defaults", d.Name)
		}
		if !def.Type().AssignableTo(goType) {
			return nil, fmt.Errorf("@%s: defaults of type %s do not fit %s", d.Name, def.Type(), goType)
		}
		ptr.Elem().Set(def)
	}

	if len(d.Args) == 0 {
		return ptr.Elem().Interface(), nil
	}
	if goType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("@%s: %s takes no arguments", d.Name, goType)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       config.DecodeHook(),
		Result:           ptr.Interface(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("@%s: create decoder: %w", d.Name, err)
	}
	if err := decoder.Decode(d.Args); err != nil {
		return nil, fmt.Errorf("@%s at %s: %w", d.Name, d.Pos, err)
	}
	return ptr.Elem().Interface(), nil
}
