package immutable

import (
	"errors"
	"fmt"
	"strings"
)

// EvaluationError captures evaluator metadata alongside the originating error.
// Rule is set when the expression belongs to a named snapshot rule.
type EvaluationError struct {
	Engine string
	Rule   string
	Expr   string
	Scope  string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	subject := describeExpression(e.Expr)
	if e.Rule != "" {
		subject = fmt.Sprintf("rule=%q %s", e.Rule, subject)
	}
	return fmt.Sprintf("immutable: %s evaluator %s scope=%s: %v", e.Engine, subject, e.Scope, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}

	if strings.HasPrefix(err.Error(), "immutable:") {
		return err
	}
	return fmt.Errorf("immutable: %s evaluator: %w", engine, err)
}

// wrapEvaluationError attaches evaluator metadata to err, filling blanks on
// an existing EvaluationError instead of nesting a second one.
func wrapEvaluationError(engine, expr, scope string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Scope == "" {
			evalErr.Scope = scope
		}
		return evalErr
	}

	return &EvaluationError{
		Engine: engine,
		Expr:   expr,
		Scope:  scope,
		Err:    err,
	}
}
