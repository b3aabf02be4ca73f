package mapping

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"
)

// PropertyMapping marks an annotation type or one of its attributes as surfaced
// configuration. On a type, Value is a dotted prefix for every attribute. On an
// attribute, Value replaces the derived name and Map overrides the type's flag.
type PropertyMapping struct {
	Value string
	Map   bool
}

// Mapped returns a marker that maps, with an optional prefix or name.
func Mapped(value string) *PropertyMapping {
	return &PropertyMapping{Value: value, Map: true}
}

// Skip returns a marker that excludes an attribute even when its type is mapped.
func Skip() *PropertyMapping {
	return &PropertyMapping{}
}

// AttributeFunc extracts one attribute value from an annotation instance.
type AttributeFunc func(annotation any) (any, error)

// Attribute is one declared attribute of an annotation type.
type Attribute struct {
	Name    string
	Mapping *PropertyMapping
	Get     AttributeFunc
}

// AnnotationType is the statically declared metadata of an annotation.
type AnnotationType struct {
	Name    string
	Mapping *PropertyMapping
	// Builtin types describe the host language rather than the application and never map.
	Builtin    bool
	Attributes []Attribute
	// Defaults, when set, returns an instance holding the attribute defaults.
	// Declarative front ends start from it before applying explicit values.
	Defaults func() any
}

// Attr declares an attribute read from annotations of type A (or *A).
func Attr[A any](name string, mapping *PropertyMapping, get func(A) any) Attribute {
	return Attribute{
		Name:    name,
		Mapping: mapping,
		Get: func(annotation any) (any, error) {
			switch a := annotation.(type) {
			case A:
				return get(a), nil
			case *A:
				if a == nil {
					return nil, fmt.Errorf("%w: attribute %q on nil annotation", ErrAttributeAccess, name)
				}
				return get(*a), nil
			}
			return nil, fmt.Errorf("%w: attribute %q cannot read %T", ErrAttributeAccess, name, annotation)
		},
	}
}

// Registry is the table from Go annotation types to their declared metadata.
// Annotation values whose type is not registered carry no metadata.
type Registry struct {
	mu     sync.RWMutex
	types  map[reflect.Type]*AnnotationType
	byName map[string]reflect.Type
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		types:  make(map[reflect.Type]*AnnotationType),
		byName: make(map[string]reflect.Type),
	}
}

// Register binds an annotation type to the Go type of its instances.
func (r *Registry) Register(goType reflect.Type, at *AnnotationType) error {
	if goType == nil || at == nil {
		return fmt.Errorf("%w: nil type", ErrInvalidAnnotation)
	}
	if goType.Kind() == reflect.Ptr {
		goType = goType.Elem()
	}
	if at.Name == "" {
		return fmt.Errorf("%w: %s has no name", ErrInvalidAnnotation, goType)
	}
	seen := make(map[string]bool, len(at.Attributes))
	for _, attr := range at.Attributes {
		if attr.Name == "" || attr.Get == nil {
			return fmt.Errorf("%w: %s has an attribute without name or accessor", ErrInvalidAnnotation, at.Name)
		}
		if seen[attr.Name] {
			return fmt.Errorf("%w: %s declares attribute %q twice", ErrInvalidAnnotation, at.Name, attr.Name)
		}
		seen[attr.Name] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byName[at.Name]; ok && existing != goType {
		return fmt.Errorf("%w: name %q already bound to %s", ErrInvalidAnnotation, at.Name, existing)
	}
	r.types[goType] = at
	r.byName[at.Name] = goType
	return nil
}

// Lookup returns the metadata for an annotation instance.
func (r *Registry) Lookup(annotation any) (*AnnotationType, bool) {
	t := reflect.TypeOf(annotation)
	if t == nil {
		return nil, false
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	at, ok := r.types[t]
	return at, ok
}

// LookupName returns the metadata and Go type registered under an annotation name.
func (r *Registry) LookupName(name string) (*AnnotationType, reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byName[name]
	if !ok {
		return nil, nil, false
	}
	return r.types[t], t, true
}

// Define registers annotation type A with explicit attributes.
func Define[A any](r *Registry, name string, mapping *PropertyMapping, attrs ...Attribute) (*AnnotationType, error) {
	at := &AnnotationType{Name: name, Mapping: mapping, Attributes: attrs}
	if err := r.Register(reflect.TypeFor[A](), at); err != nil {
		return nil, err
	}
	return at, nil
}

// DefineStruct registers struct type A, deriving one attribute per exported field in
// declaration order. The attribute name is the field name with its leading initialism
// lower-cased ("ShowSQL" -> "showSQL"). A `prop:"name"` tag maps the field under that
// name and `prop:"-"` skips it; untagged fields follow the type-level mapping.
func DefineStruct[A any](r *Registry, name string, mapping *PropertyMapping) (*AnnotationType, error) {
	t := reflect.TypeFor[A]()
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct", ErrInvalidAnnotation, t)
	}

	var attrs []Attribute
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		var attrMapping *PropertyMapping
		if tag, ok := field.Tag.Lookup("prop"); ok {
			if tag == "-" {
				attrMapping = Skip()
			} else {
				attrMapping = Mapped(tag)
			}
		}

		index := field.Index
		attrs = append(attrs, Attr(attributeName(field.Name), attrMapping, func(a A) any {
			return reflect.ValueOf(a).FieldByIndex(index).Interface()
		}))
	}

	return Define[A](r, name, mapping, attrs...)
}

// attributeName lower-cases the leading initialism of an exported Go identifier:
// "Enabled" -> "enabled", "URLPath" -> "urlPath", "ID" -> "id".
func attributeName(field string) string {
	runes := []rune(field)
	n := 0
	for n < len(runes) && unicode.IsUpper(runes[n]) {
		n++
	}
	switch {
	case n == 0:
		return field
	case n == len(runes):
		return strings.ToLower(field)
	case n > 1:
		// keep the capital that starts the next word
		n--
	}
	for i := 0; i < n; i++ {
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}

// Class is a type carrying annotations, with an optional supertype.
type Class struct {
	Name        string
	Annotations []any
	Super       *Class
}

// NewClass creates a class with its directly declared annotations.
func NewClass(name string, super *Class, annotations ...any) *Class {
	return &Class{Name: name, Super: super, Annotations: annotations}
}

func (c *Class) String() string {
	if c == nil {
		return "<nil>"
	}
	return c.Name
}
