// Package jsontest provides JSON testers for use in tests and the configuration
// switch that makes them available.
//
// Testers must be initialized with their owner before use, either explicitly:
//
//	type orderTest struct {
//		json *jsontest.Tester[Order]
//	}
//
//	ot := &orderTest{json: jsontest.NewTester[Order](jsontest.GoJSON{})}
//	_ = jsontest.Init(ot, ot.json)
//
// or by letting InitFields walk exported tester fields.
//
// AutoConfigure reads test.jsontesters.enabled from a config.Config and returns
// factories for the basic tester plus one tester per marshaller collaborator.
// Annotating a test class with AutoConfigureJsonTesters and adding its
// mapping.Source to the config sets that property.
package jsontest
