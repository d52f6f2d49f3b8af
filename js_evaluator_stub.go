//go:build !js_eval

package immutable

// NewJSEvaluator returns nil unless built with the js_eval tag.
func NewJSEvaluator(opts ...EvaluatorOption) Evaluator {
	_ = applyEvaluatorOptions(opts)
	return nil
}

func jsEvaluatorAvailable() bool {
	return false
}
