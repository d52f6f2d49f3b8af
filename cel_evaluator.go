package immutable

import (
	"fmt"
	"slices"
	"strings"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

const engineCEL = "cel"

type celEvaluator struct {
	cfg evaluatorConfig
}

// NewCELEvaluator returns an Evaluator backed by cel-go. Snapshot keys are
// declared as dynamic variables, so programs are compiled per set of
// top-level keys.
func NewCELEvaluator(opts ...EvaluatorOption) Evaluator {
	return &celEvaluator{cfg: applyEvaluatorOptions(opts)}
}

func (e *celEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEvaluatorError(engineCEL, fmt.Errorf("expression must not be empty"))
	}
	ctx = ctx.withDefaults()
	bindings := ruleBindings(ctx)
	program, err := e.program(expression, bindings)
	if err != nil {
		return nil, wrapEvaluationError(engineCEL, expression, ctx.scopeLabel(), err)
	}
	out, _, err := program.Eval(bindings)
	if err != nil {
		return nil, wrapEvaluationError(engineCEL, expression, ctx.scopeLabel(), err)
	}
	return out.Value(), nil
}

// Compile checks nothing up front; the returned rule compiles on first use
// against the variables of its context.
func (e *celEvaluator) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluatorError(engineCEL, fmt.Errorf("expression must not be empty"))
	}
	return &celCompiledRule{evaluator: e, expression: expression}, nil
}

func (e *celEvaluator) program(expression string, bindings map[string]any) (celgo.Program, error) {
	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}
	slices.Sort(names)
	cacheKey := strings.Join(names, ",") + "|" + expression

	if cached, ok := e.cfg.cached(engineCEL, cacheKey); ok {
		if program, ok := cached.(celgo.Program); ok {
			return program, nil
		}
	}

	env, err := e.environment(names)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	e.cfg.store(engineCEL, cacheKey, program)
	return program, nil
}

func (e *celEvaluator) environment(names []string) (*celgo.Env, error) {
	opts := make([]celgo.EnvOption, 0, len(names)+1)
	for _, name := range names {
		if name == "now" {
			opts = append(opts, celgo.Variable(name, celgo.TimestampType))
			continue
		}
		opts = append(opts, celgo.Variable(name, celgo.DynType))
	}
	if e.cfg.registry != nil {
		call := e.cfg.callFunction()
		opts = append(opts, celgo.Function("call", callOverloads("call", true, func(values []ref.Val) ref.Val {
			if len(values) == 0 {
				return types.NewErr("immutable: call requires function name")
			}
			name, ok := values[0].Value().(string)
			if !ok {
				return types.NewErr("immutable: call name must be string")
			}
			return celResult(call(name, celArgs(values[1:])...))
		})...))
		for _, name := range e.cfg.registry.Names() {
			opts = append(opts, celgo.Function(name, callOverloads(name, false, func(values []ref.Val) ref.Val {
				return celResult(call(name, celArgs(values)...))
			})...))
		}
	}
	return celgo.NewEnv(opts...)
}

// celMaxArity bounds the arity of registry functions exposed to CEL, which
// has no variadic overloads.
const celMaxArity = 4

func callOverloads(name string, named bool, fn func([]ref.Val) ref.Val) []celgo.FunctionOpt {
	overloads := make([]celgo.FunctionOpt, 0, celMaxArity+1)
	for arity := 0; arity <= celMaxArity; arity++ {
		args := make([]*celgo.Type, 0, arity+1)
		if named {
			args = append(args, celgo.StringType)
		}
		for range arity {
			args = append(args, celgo.DynType)
		}
		overloads = append(overloads, celgo.Overload(
			fmt.Sprintf("%s_dyn_%d", name, arity),
			args,
			celgo.DynType,
			celgo.FunctionBinding(func(values ...ref.Val) ref.Val { return fn(values) }),
		))
	}
	return overloads
}

func celArgs(values []ref.Val) []any {
	args := make([]any, 0, len(values))
	for _, val := range values {
		args = append(args, val.Value())
	}
	return args
}

func celResult(result any, err error) ref.Val {
	if err != nil {
		return types.NewErr("%s", err.Error())
	}
	if result == nil {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(result)
}

type celCompiledRule struct {
	evaluator  *celEvaluator
	expression string
}

func (r *celCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	if r.evaluator == nil {
		return nil, wrapEvaluatorError(engineCEL, fmt.Errorf("compiled rule missing evaluator"))
	}
	return r.evaluator.Evaluate(ctx, r.expression)
}
