// Package harness runs engine conformance scenarios.
//
// A scenario is a YAML file that scripts the declarations a host presents,
// the generators registered with the engine and how each one behaves per
// pass. The harness drives a real engine through the scripted passes with a
// fake wall clock and an in-memory filer, records every engine event and
// diagnostic, then evaluates the scenario's assertions.
//
// Scripted behavior:
//
//	generators:
//	  - name: mapper
//	    tags: [Mapper]
//	    rules:
//	      - pass: 1
//	        decl: Order
//	        action: defer
//	        message: "Customer is not generated yet"
//
// Rule actions are ok, defer, defer-batch, fault, fatal and panic. A rule
// without decl applies to the whole batch and takes precedence in batch
// form. Generators with form: single go through generator.Adapt.
//
// Results are compared against golden files with RunWithGolden. Every
// scenario is reproducible: events carry logical sequence numbers and pass
// timings come from a fixed-step clock.
package harness
