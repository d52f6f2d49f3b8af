package immutable

import (
	"errors"
	"reflect"
	"strings"
)

// Rule is a named boolean expression every valid snapshot must satisfy.
type Rule struct {
	Name string
	Expr string
}

// WithRule adds a rule checked by Validate. Rules are evaluated in the order
// they were added.
func WithRule(name, expr string) Option {
	return func(cfg *config) {
		rules := make([]Rule, 0, len(cfg.rules)+1)
		rules = append(rules, cfg.rules...)
		cfg.rules = append(rules, Rule{Name: strings.TrimSpace(name), Expr: expr})
	}
}

// Rules returns the configured rules.
func (im *Immutable[S]) Rules() []Rule {
	rules := im.config().rules
	if len(rules) == 0 {
		return nil
	}
	return append([]Rule(nil), rules...)
}

// Validate checks the snapshot. It calls Validate on the decoded S when S
// implements it, then evaluates every configured rule and reports the first
// one that does not yield true as a *RuleViolationError.
func (im *Immutable[S]) Validate() error {
	object, err := im.AsObject()
	if err != nil {
		return err
	}
	if err := validateValue(object); err != nil {
		return err
	}

	rules := im.config().rules
	if len(rules) == 0 {
		return nil
	}
	evaluator, err := im.resolveEvaluator()
	if err != nil {
		return err
	}
	ctx := RuleContext{Snapshot: im.AsMap()}.withDefaults().withDefaultScope(im.config().scope)
	for _, rule := range rules {
		result, evalErr := im.run(evaluator, ctx, rule.Name, rule.Expr)
		if evalErr != nil {
			var evaluationErr *EvaluationError
			if errors.As(evalErr, &evaluationErr) && evaluationErr.Rule == "" {
				evaluationErr.Rule = rule.Name
			}
			return &RuleViolationError{Rule: rule.Name, Expr: rule.Expr, Err: evalErr}
		}
		if passed, ok := result.(bool); !ok || !passed {
			return &RuleViolationError{Rule: rule.Name, Expr: rule.Expr, Result: result}
		}
	}
	return nil
}

func validateValue[T any](value T) error {
	if v, ok := any(value).(interface{ Validate() error }); ok {
		return v.Validate()
	}
	if rv := reflect.ValueOf(&value).Elem(); rv.Kind() != reflect.Pointer {
		if v, ok := rv.Addr().Interface().(interface{ Validate() error }); ok {
			return v.Validate()
		}
	}
	return nil
}
