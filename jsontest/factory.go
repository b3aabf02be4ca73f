package jsontest

import (
	"fmt"
	"reflect"
)

var errorType = reflect.TypeFor[error]()

// Factory instantiates a tester from one of several candidate constructors.
// Constructors are funcs returning the tester, optionally followed by an error.
// A factory is never a singleton: each Object call builds a new value.
type Factory struct {
	name         string
	marshaller   any
	constructors []reflect.Value
}

// NewFactory creates a factory for the named tester. marshaller may be nil.
func NewFactory(name string, marshaller any, constructors ...any) *Factory {
	f := &Factory{name: name, marshaller: marshaller}
	for _, c := range constructors {
		f.constructors = append(f.constructors, reflect.ValueOf(c))
	}
	return f
}

// Name returns the tester name.
func (f *Factory) Name() string {
	return f.name
}

// IsSingleton is always false.
func (f *Factory) IsSingleton() bool {
	return false
}

// ObjectType returns the result type of the first valid constructor.
func (f *Factory) ObjectType() reflect.Type {
	for _, c := range f.constructors {
		if isConstructor(c) {
			return c.Type().Out(0)
		}
	}
	return nil
}

// Object builds a new tester. Without a marshaller the zero-argument constructor is
// used; otherwise the first single-argument constructor that accepts the marshaller.
func (f *Factory) Object() (any, error) {
	c, args, err := f.selectConstructor()
	if err != nil {
		return nil, err
	}

	out := c.Call(args)
	if len(out) == 2 && !out[1].IsNil() {
		return nil, fmt.Errorf("construct %s: %w", f.name, out[1].Interface().(error))
	}
	return out[0].Interface(), nil
}

func (f *Factory) selectConstructor() (reflect.Value, []reflect.Value, error) {
	m := reflect.ValueOf(f.marshaller)
	for _, c := range f.constructors {
		if !isConstructor(c) {
			continue
		}
		t := c.Type()
		if !m.IsValid() {
			if t.NumIn() == 0 {
				return c, nil, nil
			}
			continue
		}
		if t.NumIn() == 1 && m.Type().AssignableTo(t.In(0)) {
			return c, []reflect.Value{m}, nil
		}
	}
	return reflect.Value{}, nil, fmt.Errorf("%s: %w", f.name, ErrNoUsableConstructor)
}

func isConstructor(c reflect.Value) bool {
	if !c.IsValid() || c.Kind() != reflect.Func || c.IsNil() {
		return false
	}
	t := c.Type()
	if t.IsVariadic() {
		return false
	}
	switch t.NumOut() {
	case 1:
		return true
	case 2:
		return t.Out(1) == errorType
	}
	return false
}
