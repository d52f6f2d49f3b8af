package immutable

import (
	"errors"
	"fmt"
	"time"
)

var ErrNoEvaluator = errors.New("immutable: evaluator not configured")

// Evaluate executes expr against the snapshot content using the configured
// evaluator, or an expr-lang evaluator when none is configured. Top-level
// keys of the snapshot are bound as variables.
func (im *Immutable[S]) Evaluate(expr string) (Response[any], error) {
	return im.EvaluateWith(RuleContext{}, expr)
}

// EvaluateWith executes expr using ctx, falling back to the snapshot content
// when ctx.Snapshot is nil.
func (im *Immutable[S]) EvaluateWith(ctx RuleContext, expr string) (Response[any], error) {
	if expr == "" {
		return Response[any]{}, fmt.Errorf("expression must not be empty")
	}
	evaluator, err := im.resolveEvaluator()
	if err != nil {
		return Response[any]{}, err
	}
	if ctx.Snapshot == nil {
		ctx.Snapshot = im.AsMap()
	}
	ctx = ctx.withDefaults().withDefaultScope(im.config().scope)
	value, evalErr := im.run(evaluator, ctx, "", expr)
	if evalErr != nil {
		return Response[any]{}, evalErr
	}
	return Response[any]{Value: value}, nil
}

func (im *Immutable[S]) run(evaluator Evaluator, ctx RuleContext, rule, expr string) (any, error) {
	engine := evaluatorEngineName(evaluator)
	start := time.Now()
	value, evalErr := evaluator.Evaluate(ctx, expr)
	duration := time.Since(start)
	evalErr = wrapEvaluationError(engine, expr, ctx.scopeLabel(), evalErr)
	im.config().evaluatorLogger().LogEvaluation(EvaluatorLogEvent{
		Engine:   engine,
		Schema:   SchemaTypeID(im.SchemaType()),
		Rule:     rule,
		Expr:     expr,
		Scope:    ctx.scopeLabel(),
		Duration: duration,
		Err:      evalErr,
	})
	return value, evalErr
}

// resolveEvaluator returns the configured evaluator or builds the default
// one. The default is not stored, snapshots stay read-only.
func (im *Immutable[S]) resolveEvaluator() (Evaluator, error) {
	cfg := im.config()
	if cfg.evaluatorSet {
		if cfg.evaluator == nil {
			return nil, ErrNoEvaluator
		}
		return cfg.evaluator, nil
	}
	return NewExprEvaluator(
		EvaluatorProgramCache(cfg.programCache),
		EvaluatorFunctions(cfg.functions),
	), nil
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	switch fmt.Sprintf("%T", e) {
	case "*immutable.exprEvaluator":
		return "expr"
	case "*immutable.celEvaluator":
		return "cel"
	case "*immutable.jsEvaluator":
		return "js"
	default:
		return "custom"
	}
}
