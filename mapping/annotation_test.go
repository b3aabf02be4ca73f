package mapping

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToKebabCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"value", "value"},
		{"showSql", "show-sql"},
		{"showSqlOutput", "show-sql-output"},
		{"aBC", "a-bc"},
		{"already-kebab", "already-kebab"},
		{"pre-Upper", "pre-upper"},
		{"URL", "url"},
		{"maxHTTPConns", "max-httpconns"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, toKebabCase(tt.in))
		})
	}
}

func TestDotAppend(t *testing.T) {
	assert.Equal(t, "name", dotAppend("", "name"))
	assert.Equal(t, "name", dotAppend("  ", "name"))
	assert.Equal(t, "a.b.name", dotAppend("a.b", "name"))
	assert.Equal(t, "a.b.name", dotAppend("a.b.", "name"))
}

func TestAttributeName(t *testing.T) {
	tests := map[string]string{
		"Enabled":  "enabled",
		"ShowSQL":  "showSQL",
		"URLPath":  "urlPath",
		"ID":       "id",
		"already":  "already",
		"XMLParse": "xmlParse",
	}
	for in, want := range tests {
		assert.Equal(t, want, attributeName(in), in)
	}
}

func TestDefineStruct(t *testing.T) {
	type Cache struct {
		Provider  string
		ShowSQL   bool `prop:"sql.visible"`
		Regions   []string
		Secret    string `prop:"-"`
		unexposed int
	}

	reg := NewRegistry()
	at, err := DefineStruct[Cache](reg, "AutoConfigureCache", Mapped("test.cache"))
	require.NoError(t, err)
	require.Len(t, at.Attributes, 4)
	assert.Equal(t, "provider", at.Attributes[0].Name)
	assert.Equal(t, "showSQL", at.Attributes[1].Name)
	assert.Equal(t, "sql.visible", at.Attributes[1].Mapping.Value)
	assert.False(t, at.Attributes[3].Mapping.Map)

	class := NewClass("Test", nil, Cache{Provider: "redis", ShowSQL: true, Regions: []string{"a"}, Secret: "x", unexposed: 1})
	src, err := NewSource(class, reg)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"test.cache.provider",
		"test.cache.sql.visible",
		"test.cache.regions[0]",
	}, src.PropertyNames())

	byName, goType, ok := reg.LookupName("AutoConfigureCache")
	require.True(t, ok)
	assert.Same(t, at, byName)
	assert.Equal(t, reflect.TypeOf(Cache{}), goType)
}

func TestRegistryValidation(t *testing.T) {
	type A struct{ V string }
	type B struct{ V string }

	reg := NewRegistry()

	_, err := Define[A](reg, "", nil)
	assert.ErrorIs(t, err, ErrInvalidAnnotation)

	_, err = Define[A](reg, "A", nil,
		Attr("v", nil, func(a A) any { return a.V }),
		Attr("v", nil, func(a A) any { return a.V }),
	)
	assert.ErrorIs(t, err, ErrInvalidAnnotation)

	_, err = Define[A](reg, "A", nil, Attribute{Name: "v"})
	assert.ErrorIs(t, err, ErrInvalidAnnotation)

	_, err = Define[A](reg, "Shared", nil)
	require.NoError(t, err)
	_, err = Define[B](reg, "Shared", nil)
	assert.ErrorIs(t, err, ErrInvalidAnnotation)

	_, err = DefineStruct[string](reg, "NotStruct", nil)
	assert.ErrorIs(t, err, ErrInvalidAnnotation)

	assert.Error(t, reg.Register(nil, &AnnotationType{Name: "x"}))
}

func TestAttrTypeMismatch(t *testing.T) {
	type A struct{ V string }
	attr := Attr("v", nil, func(a A) any { return a.V })

	v, err := attr.Get(A{V: "x"})
	require.NoError(t, err)
	assert.Equal(t, "x", v)

	v, err = attr.Get(&A{V: "y"})
	require.NoError(t, err)
	assert.Equal(t, "y", v)

	_, err = attr.Get((*A)(nil))
	assert.ErrorIs(t, err, ErrAttributeAccess)

	_, err = attr.Get(42)
	assert.ErrorIs(t, err, ErrAttributeAccess)
}
