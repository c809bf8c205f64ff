// Package inspect provides the inspected execution context: the capability to
// run a script string inside a page and observe its outcome.
//
// Two implementations exist. Sandbox evaluates against an embedded JavaScript
// runtime holding a parsed HTML document, which makes it fully offline and
// deterministic. Live drives a real browser tab over the DevTools protocol.
// Both present the same contract: the outcome of an evaluation is a Result
// (value produced, nothing produced, or a thrown error), while the Go error
// return is reserved for the transport itself breaking.
package inspect

import "context"

// Result is the outcome of one evaluation in the inspected context.
//
// Exactly one of three shapes holds: a produced value (Value, possibly nil
// for JS null), no value at all (Undefined), or a thrown evaluation error
// (Thrown with Message). Transport failures never appear here; they surface
// as the error return of Evaluate.
type Result struct {
	Value     any
	Undefined bool
	Thrown    bool
	Message   string
}

// Evaluator runs script source inside the inspected context.
type Evaluator interface {
	// Evaluate runs source and reports its outcome. The error return means
	// the evaluation host itself failed (connection lost, runtime
	// interrupted); errors thrown by the evaluated script come back as a
	// Result with Thrown set.
	Evaluate(ctx context.Context, source string) (Result, error)

	// Navigate points the inspected context at a new page.
	Navigate(ctx context.Context, url string) error

	// Location returns the URL of the current page, or "" before the first
	// navigation.
	Location() string

	// Describe identifies the backend for status display.
	Describe() string

	// Close releases the inspected context.
	Close() error
}
