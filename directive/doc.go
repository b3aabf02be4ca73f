// Package directive reads annotations written as Go comments.
//
// A directive sits in the doc comment of a struct type and names an annotation
// registered in a mapping.Registry, optionally with arguments:
//
//	//prop:AutoConfigureJsonTesters(enabled=false)
//	type OrderJSONTest struct {
//		BaseTest
//	}
//
// Argument values are quoted strings, integers, floats, true or false, bare
// identifiers (taken as strings) and bracketed lists. The first embedded struct of
// the same package becomes the supertype, so annotations on BaseTest are inherited.
package directive
