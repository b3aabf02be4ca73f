package jsontest

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"reflect"
	"strings"

	"github.com/stretchr/testify/assert"
)

// Initializer is implemented by testers that must learn their owner before use.
// typ is the declared value type for typed testers and nil otherwise.
type Initializer interface {
	Initialize(owner reflect.Type, typ reflect.Type)
}

// binding records the first Initialize call; later calls are ignored.
type binding struct {
	owner reflect.Type
	typ   reflect.Type
}

func (b *binding) bind(owner, typ reflect.Type) {
	if b.owner != nil || owner == nil {
		return
	}
	b.owner = owner
	b.typ = typ
}

func (b *binding) check(op string) error {
	if b.owner == nil {
		return fmt.Errorf("%w: %s", ErrNotInitialized, op)
	}
	return nil
}

// Content is JSON produced or loaded by a tester.
type Content struct {
	data       []byte
	owner      reflect.Type
	marshaller Marshaller
}

// Bytes returns a copy of the raw JSON.
func (c *Content) Bytes() []byte {
	return bytes.Clone(c.data)
}

// JSON returns the raw JSON as a string.
func (c *Content) JSON() string {
	return string(c.data)
}

func (c *Content) String() string {
	if c.owner == nil {
		return c.JSON()
	}
	return fmt.Sprintf("%s (from %s)", c.data, c.owner)
}

// AssertEqual reports whether the content is JSON-equivalent to expected, ignoring
// key order and whitespace.
func (c *Content) AssertEqual(t assert.TestingT, expected string, msgAndArgs ...any) bool {
	if h, ok := t.(interface{ Helper() }); ok {
		h.Helper()
	}
	return assert.JSONEq(t, expected, c.JSON(), msgAndArgs...)
}

// AssertContains reports whether the top-level JSON object holds key.
func (c *Content) AssertContains(t assert.TestingT, key string, msgAndArgs ...any) bool {
	if h, ok := t.(interface{ Helper() }); ok {
		h.Helper()
	}
	var obj map[string]any
	if err := c.Decode(&obj); err != nil {
		return assert.Fail(t, fmt.Sprintf("content is not a JSON object: %v", err), msgAndArgs...)
	}
	return assert.Contains(t, obj, key, msgAndArgs...)
}

// Decode unmarshals the content into v with the marshaller that produced it.
func (c *Content) Decode(v any) error {
	m := c.marshaller
	if m == nil {
		m = StdJSON{}
	}
	return m.Unmarshal(c.data, v)
}

// BasicTester compares raw JSON without a marshaller. Sources ending in ".json" are
// read from its file system, everything else is taken as JSON text.
type BasicTester struct {
	binding
	fsys fs.FS
}

// NewBasicTester creates a tester that resolves files under ./testdata.
func NewBasicTester() *BasicTester {
	return &BasicTester{fsys: os.DirFS("testdata")}
}

// NewBasicTesterFS creates a tester that resolves files in fsys.
func NewBasicTesterFS(fsys fs.FS) *BasicTester {
	return &BasicTester{fsys: fsys}
}

func (b *BasicTester) Initialize(owner, _ reflect.Type) {
	b.bind(owner, nil)
}

// From loads content from a string, a byte slice or a reader.
func (b *BasicTester) From(source any) (*Content, error) {
	if err := b.check("BasicTester.From"); err != nil {
		return nil, err
	}

	var data []byte
	switch s := source.(type) {
	case []byte:
		data = bytes.Clone(s)
	case string:
		if strings.HasSuffix(s, ".json") {
			raw, err := fs.ReadFile(b.fsys, s)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", s, err)
			}
			data = raw
		} else {
			data = []byte(s)
		}
	case io.Reader:
		raw, err := io.ReadAll(s)
		if err != nil {
			return nil, fmt.Errorf("read json: %w", err)
		}
		data = raw
	default:
		return nil, fmt.Errorf("unsupported json source %T", source)
	}
	return &Content{data: data, owner: b.owner}, nil
}

// JSONTester writes and parses values through a marshaller. It is the untyped form
// produced by a Factory; use For to get a typed view.
type JSONTester struct {
	binding
	marshaller Marshaller
}

// NewJSONTester creates a tester backed by m.
func NewJSONTester(m Marshaller) *JSONTester {
	return &JSONTester{marshaller: m}
}

func (j *JSONTester) Initialize(owner, typ reflect.Type) {
	j.bind(owner, typ)
}

// Marshaller returns the backing marshaller.
func (j *JSONTester) Marshaller() Marshaller {
	return j.marshaller
}

// Write marshals v. When a declared type is set, v must be assignable to it.
func (j *JSONTester) Write(v any) (*Content, error) {
	if err := j.check("JSONTester.Write"); err != nil {
		return nil, err
	}
	if j.typ != nil && v != nil && !reflect.TypeOf(v).AssignableTo(j.typ) {
		return nil, fmt.Errorf("cannot write %T with a tester declared for %s", v, j.typ)
	}
	data, err := j.marshaller.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", v, err)
	}
	return &Content{data: data, owner: j.owner, marshaller: j.marshaller}, nil
}

// Parse unmarshals data into target.
func (j *JSONTester) Parse(data []byte, target any) error {
	if err := j.check("JSONTester.Parse"); err != nil {
		return err
	}
	if err := j.marshaller.Unmarshal(data, target); err != nil {
		return fmt.Errorf("unmarshal into %T: %w", target, err)
	}
	return nil
}

// Tester is a JSON tester for values of type T.
type Tester[T any] struct {
	binding
	marshaller Marshaller
}

// NewTester creates a typed tester backed by m.
func NewTester[T any](m Marshaller) *Tester[T] {
	return &Tester[T]{marshaller: m}
}

// For returns a typed tester sharing j's marshaller. It is not initialized.
func For[T any](j *JSONTester) *Tester[T] {
	return NewTester[T](j.marshaller)
}

// DeclaredType returns T.
func (t *Tester[T]) DeclaredType() reflect.Type {
	return reflect.TypeFor[T]()
}

func (t *Tester[T]) Initialize(owner, typ reflect.Type) {
	if typ == nil {
		typ = t.DeclaredType()
	}
	t.bind(owner, typ)
}

// Write marshals v.
func (t *Tester[T]) Write(v T) (*Content, error) {
	if err := t.check("Tester.Write"); err != nil {
		return nil, err
	}
	data, err := t.marshaller.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", t.typ, err)
	}
	return &Content{data: data, owner: t.owner, marshaller: t.marshaller}, nil
}

// Parse unmarshals data into a new T.
func (t *Tester[T]) Parse(data []byte) (T, error) {
	var v T
	if err := t.check("Tester.Parse"); err != nil {
		return v, err
	}
	if err := t.marshaller.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("unmarshal %s: %w", t.typ, err)
	}
	return v, nil
}

// Read parses a JSON file into a new T.
func (t *Tester[T]) Read(path string) (T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("read %s: %w", path, err)
	}
	return t.Parse(data)
}
