package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapSource is a minimal PropertySource backed by an ordered key list.
type mapSource struct {
	name   string
	keys   []string
	values map[string]any
}

func newMapSource(name string, kv ...any) *mapSource {
	s := &mapSource{name: name, values: make(map[string]any)}
	for i := 0; i+1 < len(kv); i += 2 {
		key := kv[i].(string)
		s.keys = append(s.keys, key)
		s.values[key] = kv[i+1]
	}
	return s
}

func (s *mapSource) Name() string            { return s.name }
func (s *mapSource) PropertyNames() []string { return s.keys }
func (s *mapSource) Property(name string) (any, bool) {
	v, ok := s.values[name]
	return v, ok
}

func TestRegisterAndGet(t *testing.T) {
	t.Run("BasicRegistration", func(t *testing.T) {
		cfg := New()
		require.NoError(t, cfg.Register("server.port", 8080))
		require.NoError(t, cfg.Register("server.hosts[0]", "a"))

		val, exists := cfg.Get("server.port")
		assert.True(t, exists)
		assert.Equal(t, 8080, val)

		_, exists = cfg.Get("server.missing")
		assert.False(t, exists)
	})

	t.Run("InvalidPaths", func(t *testing.T) {
		cfg := New()
		for _, path := range []string{"", "a..b", ".a", "a.", "a b", "a.b[", "a.b[]", "a.b[x]", "a.[0]"} {
			err := cfg.Register(path, 1)
			assert.ErrorIs(t, err, ErrInvalidPath, path)
		}
	})

	t.Run("ReRegisterKeepsSourceValues", func(t *testing.T) {
		cfg := New()
		require.NoError(t, cfg.Register("level", "info"))
		require.NoError(t, cfg.Set("level", "debug"))
		require.NoError(t, cfg.Register("level", "warn"))

		val, _ := cfg.Get("level")
		assert.Equal(t, "debug", val)
	})

	t.Run("Unregister", func(t *testing.T) {
		cfg := New()
		require.NoError(t, cfg.Register("db.host", "localhost"))
		require.NoError(t, cfg.Register("db.port", 5432))
		require.NoError(t, cfg.Register("dbx", true))

		require.NoError(t, cfg.Unregister("db"))
		assert.Equal(t, map[string]bool{"dbx": true}, cfg.GetRegisteredPaths(""))
		assert.ErrorIs(t, cfg.Unregister("db"), ErrNotRegistered)
	})

	t.Run("RegisterStruct", func(t *testing.T) {
		type Nested struct {
			Enabled bool `toml:"enabled"`
		}
		type Settings struct {
			Name    string  `toml:"name"`
			Skipped string  `toml:"-"`
			Nested  Nested  `toml:"nested"`
			Ptr     *Nested `toml:"ptr"`
			NilPtr  *Nested `toml:"nil_ptr"`
			Untag   int
			private int
		}
		cfg := New()
		require.NoError(t, cfg.RegisterStruct("app.", Settings{Name: "x", Ptr: &Nested{Enabled: true}, Untag: 3, private: 1}))

		assert.Equal(t, map[string]bool{
			"app.name":           true,
			"app.nested.enabled": true,
			"app.ptr.enabled":    true,
			"app.Untag":          true,
		}, cfg.GetRegisteredPaths("app."))

		assert.Error(t, cfg.RegisterStruct("", 42))
		assert.Error(t, cfg.RegisterStruct("", (*Settings)(nil)))
	})
}

func TestSourcePrecedence(t *testing.T) {
	cfg := New()
	require.NoError(t, cfg.Register("port", 1))

	require.NoError(t, cfg.SetSource("port", SourceFile, 2))
	val, _ := cfg.Get("port")
	assert.Equal(t, 2, val)

	require.NoError(t, cfg.SetSource("port", SourceEnv, 3))
	val, _ = cfg.Get("port")
	assert.Equal(t, 3, val)

	require.NoError(t, cfg.Set("port", 4))
	val, _ = cfg.Get("port")
	assert.Equal(t, 4, val)

	assert.Equal(t, map[Source]any{SourceFile: 2, SourceEnv: 3, SourceCLI: 4}, cfg.GetSources("port"))
	v, ok := cfg.GetSource("port", SourceEnv)
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	t.Run("ChangedOrder", func(t *testing.T) {
		cfg.SetLoadOptions(LoadOptions{Sources: []Source{SourceFile, SourceCLI, SourceEnv, SourceDefault}})
		val, _ := cfg.Get("port")
		assert.Equal(t, 2, val)

		cfg.SetLoadOptions(DefaultLoadOptions())
	})

	t.Run("DefaultShadowsLowerSources", func(t *testing.T) {
		c := NewWithOptions(LoadOptions{Sources: []Source{SourceCLI, SourceDefault, SourceFile}})
		require.NoError(t, c.Register("x", "default"))
		require.NoError(t, c.SetSource("x", SourceFile, "file"))
		val, _ := c.Get("x")
		assert.Equal(t, "default", val)
	})

	t.Run("ResetSource", func(t *testing.T) {
		cfg.ResetSource(SourceCLI)
		val, _ := cfg.Get("port")
		assert.Equal(t, 3, val)
		_, ok := cfg.GetSource("port", SourceCLI)
		assert.False(t, ok)
	})

	t.Run("Reset", func(t *testing.T) {
		cfg.Reset()
		val, _ := cfg.Get("port")
		assert.Equal(t, 1, val)
		assert.Empty(t, cfg.GetSources("port"))
	})

	t.Run("Unregistered", func(t *testing.T) {
		assert.ErrorIs(t, cfg.Set("nope", 1), ErrNotRegistered)
		_, ok := cfg.GetSource("nope", SourceCLI)
		assert.False(t, ok)
	})
}

func TestPropertySources(t *testing.T) {
	t.Run("AboveBuiltins", func(t *testing.T) {
		cfg := New()
		require.NoError(t, cfg.Register("test.cache.provider", "none"))
		require.NoError(t, cfg.Set("test.cache.provider", "cli"))

		src := newMapSource("Annotations", "test.cache.provider", "redis", "test.cache.regions[0]", "eu")
		require.NoError(t, cfg.AddPropertySource(src))

		val, _ := cfg.Get("test.cache.provider")
		assert.Equal(t, "redis", val)

		val, exists := cfg.Get("test.cache.regions[0]")
		assert.True(t, exists, "unknown paths are registered")
		assert.Equal(t, "eu", val)

		assert.Equal(t, []Source{"Annotations"}, cfg.PropertySources())
	})

	t.Run("LaterSourcesWin", func(t *testing.T) {
		cfg := New()
		require.NoError(t, cfg.AddPropertySource(newMapSource("first", "a", 1, "b", 1)))
		require.NoError(t, cfg.AddPropertySource(newMapSource("second", "a", 2)))

		a, _ := cfg.Get("a")
		b, _ := cfg.Get("b")
		assert.Equal(t, 2, a)
		assert.Equal(t, 1, b)
		assert.Equal(t, []Source{"second", "first"}, cfg.PropertySources())
	})

	t.Run("SurvivesLoad", func(t *testing.T) {
		cfg := New()
		require.NoError(t, cfg.Register("a", 0))
		require.NoError(t, cfg.AddPropertySource(newMapSource("ps", "a", 5)))
		require.NoError(t, cfg.LoadWithOptions("", []string{"--a=9"}, DefaultLoadOptions()))

		a, _ := cfg.Get("a")
		assert.Equal(t, 5, a)
	})

	t.Run("ResetSourceRemovesLayer", func(t *testing.T) {
		cfg := New()
		require.NoError(t, cfg.Register("a", 0))
		require.NoError(t, cfg.AddPropertySource(newMapSource("ps", "a", 5)))
		cfg.ResetSource("ps")

		a, _ := cfg.Get("a")
		assert.Equal(t, 0, a)
		assert.Empty(t, cfg.PropertySources())
	})

	t.Run("Rejected", func(t *testing.T) {
		cfg := New()
		assert.ErrorIs(t, cfg.AddPropertySource(nil), ErrPropertySource)
		assert.ErrorIs(t, cfg.AddPropertySource(newMapSource("")), ErrPropertySource)
		assert.ErrorIs(t, cfg.AddPropertySource(newMapSource("cli", "a", 1)), ErrPropertySource)

		err := cfg.AddPropertySource(newMapSource("bad", "a..b", 1))
		assert.ErrorIs(t, err, ErrPropertySource)
		assert.ErrorIs(t, err, ErrInvalidPath)
		assert.Empty(t, cfg.PropertySources())
	})
}

func TestTypedAccessors(t *testing.T) {
	cfg := New()
	require.NoError(t, cfg.Register("s", "42"))
	require.NoError(t, cfg.Register("i", 7))
	require.NoError(t, cfg.Register("u", uint8(3)))
	require.NoError(t, cfg.Register("f", 2.5))
	require.NoError(t, cfg.Register("b", "true"))
	require.NoError(t, cfg.Register("hex", "0x10"))
	require.NoError(t, cfg.Register("nil", nil))
	require.NoError(t, cfg.Register("bad", []int{1}))

	str, err := cfg.String("i")
	require.NoError(t, err)
	assert.Equal(t, "7", str)

	str, err = cfg.String("nil")
	require.NoError(t, err)
	assert.Empty(t, str)

	i, err := cfg.Int64("s")
	require.NoError(t, err)
	assert.Equal(t, int64(42), i)

	i, err = cfg.Int64("hex")
	require.NoError(t, err)
	assert.Equal(t, int64(16), i)

	i, err = cfg.Int64("f")
	require.NoError(t, err)
	assert.Equal(t, int64(2), i)

	f, err := cfg.Float64("u")
	require.NoError(t, err)
	assert.Equal(t, 3.0, f)

	b, err := cfg.Bool("b")
	require.NoError(t, err)
	assert.True(t, b)

	b, err = cfg.Bool("i")
	require.NoError(t, err)
	assert.True(t, b)

	_, err = cfg.Int64("missing")
	assert.ErrorIs(t, err, ErrNotRegistered)
	_, err = cfg.Bool("nil")
	assert.Error(t, err)
	_, err = cfg.Bool("s")
	assert.Error(t, err)
	_, err = cfg.String("bad")
	assert.Error(t, err)
	_, err = cfg.Float64("bad")
	assert.Error(t, err)
}
