package immutable

import (
	"maps"

	"github.com/goliatone/go-immutable/internal/hydrate"
	"github.com/goliatone/go-immutable/tree"
)

type evaluatorConfig struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// EvaluatorOption configures any of the built-in evaluators.
type EvaluatorOption func(*evaluatorConfig)

// EvaluatorProgramCache stores compiled programs in cache. Keys are prefixed
// with the engine name so one cache can serve several evaluators.
func EvaluatorProgramCache(cache ProgramCache) EvaluatorOption {
	return func(cfg *evaluatorConfig) {
		cfg.cache = cache
	}
}

// EvaluatorFunctions exposes the functions of registry to expressions, both
// by name and through call(name, args...).
func EvaluatorFunctions(registry *FunctionRegistry) EvaluatorOption {
	return func(cfg *evaluatorConfig) {
		if registry != nil {
			cfg.registry = registry.Clone()
		}
	}
}

func applyEvaluatorOptions(opts []EvaluatorOption) evaluatorConfig {
	cfg := evaluatorConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

func (cfg evaluatorConfig) cached(engine, expr string) (any, bool) {
	if cfg.cache == nil {
		return nil, false
	}
	return cfg.cache.Get(engine + ":" + expr)
}

func (cfg evaluatorConfig) store(engine, expr string, program any) {
	if cfg.cache != nil {
		cfg.cache.Set(engine+":"+expr, program)
	}
}

// snapshotBindings returns the plain content of a rule context snapshot.
// Snapshots and nodes are flattened to nested maps.
func snapshotBindings(value any) map[string]any {
	switch typed := value.(type) {
	case nil:
		return map[string]any{}
	case map[string]any:
		return typed
	case Snapshot:
		return hydrate.Plain(typed.Node()).(map[string]any)
	case *tree.Node:
		return hydrate.Plain(typed).(map[string]any)
	default:
		return map[string]any{}
	}
}

// ruleBindings returns the variables an expression sees: now, args,
// metadata, snapshot, scope when set, and every top-level snapshot key.
func ruleBindings(ctx RuleContext) map[string]any {
	snapshot := snapshotBindings(ctx.Snapshot)
	env := make(map[string]any, len(snapshot)+5)
	maps.Copy(env, snapshot)
	env["now"] = ctx.timestamp()
	env["args"] = ctx.Args
	env["metadata"] = ctx.Metadata
	env["snapshot"] = snapshot
	if binding := ctx.scopeBinding(); binding != nil {
		env["scope"] = binding
	}
	return env
}

func (cfg evaluatorConfig) callFunction() func(name string, arguments ...any) (any, error) {
	registry := cfg.registry
	return func(name string, arguments ...any) (any, error) {
		return registry.Call(name, arguments...)
	}
}
