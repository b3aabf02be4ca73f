package jsontest

import (
	"fmt"
	"reflect"
)

var initializerType = reflect.TypeFor[Initializer]()

// declared is implemented by typed testers.
type declared interface {
	DeclaredType() reflect.Type
}

// Init initializes each non-nil tester with owner's type and the tester's declared
// value type.
func Init(owner any, testers ...Initializer) error {
	ownerType := reflect.TypeOf(owner)
	if ownerType == nil {
		return ErrNilOwner
	}
	for _, t := range testers {
		if isNil(t) {
			continue
		}
		t.Initialize(ownerType, declaredType(t))
	}
	return nil
}

// InitFields initializes every non-nil exported tester field of the struct pointed
// to by owner. Testers held by value are initialized through their address.
// Embedded structs and non-nil embedded struct pointers are walked.
func InitFields(owner any) error {
	v := reflect.ValueOf(owner)
	if !v.IsValid() {
		return ErrNilOwner
	}
	if v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("init fields: %T is not a pointer to a struct", owner)
	}
	initFields(v.Elem(), v.Type())
	return nil
}

func initFields(v reflect.Value, ownerType reflect.Type) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fv := v.Field(i)

		// promoted fields of unexported embedded structs are still reachable
		if field.Anonymous && !isTesterType(field.Type) {
			switch {
			case field.Type.Kind() == reflect.Struct:
				initFields(fv, ownerType)
			case field.Type.Kind() == reflect.Ptr && field.Type.Elem().Kind() == reflect.Struct && !fv.IsNil():
				initFields(fv.Elem(), ownerType)
			}
			continue
		}
		if !field.IsExported() {
			continue
		}

		if tester, ok := initializerOf(fv); ok {
			tester.Initialize(ownerType, declaredType(tester))
		}
	}
}

func isTesterType(t reflect.Type) bool {
	return t.Implements(initializerType) || reflect.PointerTo(t).Implements(initializerType)
}

// initializerOf returns the tester held in fv, taking the address of testers
// stored by value.
func initializerOf(fv reflect.Value) (Initializer, bool) {
	switch {
	case fv.Type().Implements(initializerType):
		if (fv.Kind() == reflect.Interface || fv.Kind() == reflect.Ptr) && fv.IsNil() {
			return nil, false
		}
		return fv.Interface().(Initializer), true
	case fv.CanAddr() && reflect.PointerTo(fv.Type()).Implements(initializerType):
		return fv.Addr().Interface().(Initializer), true
	}
	return nil, false
}

func declaredType(t Initializer) reflect.Type {
	if d, ok := t.(declared); ok {
		return d.DeclaredType()
	}
	return nil
}

func isNil(t Initializer) bool {
	if t == nil {
		return true
	}
	v := reflect.ValueOf(t)
	return v.Kind() == reflect.Ptr && v.IsNil()
}
