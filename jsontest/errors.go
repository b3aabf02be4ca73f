package jsontest

import "errors"

var (
	ErrNoUsableConstructor = errors.New("no usable constructor")
	ErrNotInitialized      = errors.New("json tester not initialized")
	ErrDisabled            = errors.New("json testers disabled")
	ErrNilOwner            = errors.New("nil tester owner")
)
