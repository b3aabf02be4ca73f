package mapping

import (
	"fmt"
	"hash/fnv"
	"reflect"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// DefaultSourceName names sources built by NewSource.
const DefaultSourceName = "Annotations"

var camelCasePattern = regexp.MustCompile(`([^A-Z-])([A-Z])`)

// Source is a read-only, ordered set of properties derived from the mapped
// annotations of a class and its ancestors.
type Source struct {
	name   string
	class  *Class
	keys   []string
	values map[string]any
}

// NewSource derives the properties of class using the metadata in r.
func NewSource(class *Class, r *Registry) (*Source, error) {
	return NewNamedSource(DefaultSourceName, class, r)
}

// NewNamedSource is NewSource with an explicit source name.
func NewNamedSource(name string, class *Class, r *Registry) (*Source, error) {
	if r == nil {
		r = NewRegistry()
	}
	s := &Source{
		name:   name,
		class:  class,
		values: make(map[string]any),
	}
	for c := class; c != nil; c = c.Super {
		if err := s.collect(c, r); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// MustNewSource is like NewSource but panics on error.
func MustNewSource(class *Class, r *Registry) *Source {
	s, err := NewSource(class, r)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Source) collect(class *Class, r *Registry) error {
	for _, annotation := range class.Annotations {
		at, ok := r.Lookup(annotation)
		if !ok || at.Builtin {
			continue
		}
		for _, attr := range at.Attributes {
			if !isMapped(at.Mapping, attr.Mapping) {
				continue
			}
			value, err := attr.Get(annotation)
			if err != nil {
				return fmt.Errorf("%s: @%s.%s: %w", class.Name, at.Name, attr.Name, err)
			}
			s.put(propertyName(at.Mapping, attr), value)
		}
	}
	return nil
}

// put stores value, expanding slices and arrays into name[i] entries.
// The first value stored under a key is kept.
func (s *Source) put(name string, value any) {
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		for i := 0; i < rv.Len(); i++ {
			s.putOnce(name+"["+strconv.Itoa(i)+"]", rv.Index(i).Interface())
		}
		return
	}
	s.putOnce(name, value)
}

func (s *Source) putOnce(key string, value any) {
	if _, exists := s.values[key]; exists {
		return
	}
	s.keys = append(s.keys, key)
	s.values[key] = value
}

func isMapped(typeMapping, attrMapping *PropertyMapping) bool {
	if attrMapping != nil {
		return attrMapping.Map
	}
	return typeMapping != nil && typeMapping.Map
}

func propertyName(typeMapping *PropertyMapping, attr Attribute) string {
	prefix := ""
	if typeMapping != nil {
		prefix = typeMapping.Value
	}
	name := ""
	if attr.Mapping != nil {
		name = attr.Mapping.Value
	}
	if strings.TrimSpace(name) == "" {
		name = toKebabCase(attr.Name)
	}
	return dotAppend(prefix, name)
}

// toKebabCase inserts a hyphen before every capital that follows a non-capital,
// non-hyphen character, then lower-cases: "showSqlOutput" -> "show-sql-output".
func toKebabCase(name string) string {
	return strings.ToLower(camelCasePattern.ReplaceAllString(name, "$1-$2"))
}

func dotAppend(prefix, postfix string) string {
	if strings.TrimSpace(prefix) == "" {
		return postfix
	}
	if strings.HasSuffix(prefix, ".") {
		return prefix + postfix
	}
	return prefix + "." + postfix
}

// Name returns the source name.
func (s *Source) Name() string {
	return s.name
}

// Class returns the class the properties were derived from.
func (s *Source) Class() *Class {
	return s.class
}

// ContainsProperty reports whether name is present.
func (s *Source) ContainsProperty(name string) bool {
	_, ok := s.values[name]
	return ok
}

// Property returns the value stored under name.
func (s *Source) Property(name string) (any, bool) {
	v, ok := s.values[name]
	return v, ok
}

// PropertyNames returns the property names in insertion order.
func (s *Source) PropertyNames() []string {
	return slices.Clone(s.keys)
}

// Map returns a copy of the properties.
func (s *Source) Map() map[string]any {
	m := make(map[string]any, len(s.values))
	for k, v := range s.values {
		m[k] = v
	}
	return m
}

// Len returns the number of properties.
func (s *Source) Len() int {
	return len(s.keys)
}

// IsEmpty reports whether no property was derived.
func (s *Source) IsEmpty() bool {
	return len(s.keys) == 0
}

// Equal reports whether both sources hold the same properties. Name, class and
// insertion order are not compared.
func (s *Source) Equal(other *Source) bool {
	if s == other {
		return true
	}
	if s == nil || other == nil || len(s.values) != len(other.values) {
		return false
	}
	for k, v := range s.values {
		ov, ok := other.values[k]
		if !ok || !reflect.DeepEqual(v, ov) {
			return false
		}
	}
	return true
}

// Hash returns a hash of the properties consistent with Equal.
func (s *Source) Hash() uint64 {
	if s == nil {
		return 0
	}
	var sum uint64
	for k, v := range s.values {
		sum += hashString(k) ^ hashValue(reflect.ValueOf(v), 0)
	}
	return sum
}

// maxHashDepth bounds the walk through self-referencing values.
const maxHashDepth = 32

// hashValue hashes v by content, following pointers and interfaces the way
// reflect.DeepEqual compares them.
func hashValue(v reflect.Value, depth int) uint64 {
	var b strings.Builder
	writeValue(&b, v, depth)
	return hashString(b.String())
}

func writeValue(b *strings.Builder, v reflect.Value, depth int) {
	if !v.IsValid() {
		b.WriteString("<invalid>")
		return
	}
	b.WriteString(v.Type().String())
	b.WriteByte(':')
	if depth > maxHashDepth {
		return
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			b.WriteString("nil")
			return
		}
		writeValue(b, v.Elem(), depth+1)
	case reflect.Slice, reflect.Array:
		b.WriteByte('[')
		for i := 0; i < v.Len(); i++ {
			writeValue(b, v.Index(i), depth+1)
			b.WriteByte(',')
		}
		b.WriteByte(']')
	case reflect.Struct:
		b.WriteByte('{')
		for i := 0; i < v.NumField(); i++ {
			writeValue(b, v.Field(i), depth+1)
			b.WriteByte(',')
		}
		b.WriteByte('}')
	case reflect.Map:
		// entry hashes are summed so iteration order does not matter
		var sum uint64
		iter := v.MapRange()
		for iter.Next() {
			sum += hashValue(iter.Key(), depth+1) ^ hashValue(iter.Value(), depth+1)
		}
		b.WriteString(strconv.FormatUint(sum, 16))
	case reflect.Float32, reflect.Float64:
		if v.Float() == 0 {
			// -0 equals 0
			b.WriteByte('0')
			return
		}
		fmt.Fprintf(b, "%v", v)
	default:
		fmt.Fprintf(b, "%v", v)
	}
}

func hashString(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

func (s *Source) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%s]{", s.name, s.class)
	for i, k := range s.keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%v", k, s.values[k])
	}
	b.WriteString("}")
	return b.String()
}
