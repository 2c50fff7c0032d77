// Package visibility decides whether conditional parts of the contact form
// apply to the request being edited. Rules are short expressions over the
// form's current values, for example `service == "引越し"`, and drive both
// required-if validation and the conditional destination block.
package visibility

// Evaluator reports whether rule holds for the supplied context. An empty rule
// always holds.
type Evaluator interface {
	Eval(rule string, ctx Context) (bool, error)
}

// Context carries the values a rule may reference, keyed by form key.
type Context struct {
	Values map[string]any
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(rule string, ctx Context) (bool, error)

// Eval delegates to the underlying function.
func (fn EvaluatorFunc) Eval(rule string, ctx Context) (bool, error) {
	return fn(rule, ctx)
}
