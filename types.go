package immutable

import (
	"reflect"
	"time"

	"github.com/goliatone/go-immutable/keypath"
	"github.com/goliatone/go-immutable/pkg/activity"
	"github.com/goliatone/go-immutable/tree"
)

// SchemaFormat identifies the representation a schema document encodes.
type SchemaFormat string

const (
	// SchemaFormatDescriptors represents the flattened field descriptors.
	SchemaFormatDescriptors SchemaFormat = "descriptors"
	// SchemaFormatOpenAPI represents an OpenAPI 3 document.
	SchemaFormatOpenAPI SchemaFormat = "openapi"
)

// SchemaDocument encapsulates a generated schema output alongside its format
// identifier. Implementations must ensure Document is JSON-serialisable.
type SchemaDocument struct {
	Format   SchemaFormat
	Document any
	Fields   []FieldDescriptor
	Scopes   []SchemaScope
}

// SchemaScope describes a single scope entry included in a schema document.
type SchemaScope struct {
	Name       string         `json:"name"`
	Label      string         `json:"label,omitempty"`
	Priority   int            `json:"priority"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	SnapshotID string         `json:"snapshot_id,omitempty"`
}

// SchemaGenerator describes a snapshot of the given schema type. All
// implementations MUST be safe for concurrent use and handle a nil node by
// describing an empty snapshot.
type SchemaGenerator interface {
	Generate(schema reflect.Type, node *tree.Node) (SchemaDocument, error)
}

// Response stores a typed result produced by an evaluator.
type Response[T any] struct {
	Value T
}

// RuleContext carries inputs needed when evaluating an expression.
type RuleContext struct {
	Snapshot  any
	Now       *time.Time
	Args      map[string]any
	Metadata  map[string]any
	Scope     Scope
	ScopeName string
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) withDefaults() RuleContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx RuleContext) withDefaultMaps() RuleContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) withDefaultScope(scope Scope) RuleContext {
	if ctx.Scope.isZero() && !scope.isZero() {
		ctx.Scope = scope.clone()
	}
	if ctx.ScopeName == "" && ctx.Scope.Name != "" {
		ctx.ScopeName = ctx.Scope.Name
	}
	return ctx
}

func (ctx RuleContext) scopeLabel() string {
	if ctx.Scope.Name != "" {
		return ctx.Scope.Name
	}
	if ctx.ScopeName != "" {
		return ctx.ScopeName
	}
	return "unknown"
}

func (ctx RuleContext) scopeBinding() map[string]any {
	if binding := scopeToBinding(ctx.Scope); binding != nil {
		return binding
	}
	if ctx.ScopeName == "" {
		return nil
	}
	return map[string]any{"name": ctx.ScopeName}
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}

type compileOptionFunc func(*compileConfig)

func (f compileOptionFunc) applyCompileOption(cfg *compileConfig) {
	if f != nil {
		f(cfg)
	}
}

// Option configures a snapshot. Options are carried by every snapshot
// derived from the configured one.
type Option func(*config)

type config struct {
	resolver        *keypath.Context
	evaluator       Evaluator
	evaluatorSet    bool
	programCache    ProgramCache
	functions       *FunctionRegistry
	logger          EvaluatorLogger
	schemaGenerator SchemaGenerator
	scope           Scope
	scopeSchema     bool
	activityHooks   activity.Hooks
	activityConfig  activity.Config
	rules           []Rule
}

func applyOptions(base config, opts []Option) config {
	cfg := base
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

func (cfg config) resolverOrDefault() *keypath.Context {
	if cfg.resolver != nil {
		return cfg.resolver
	}
	return keypath.Default()
}

func (cfg config) evaluatorLogger() EvaluatorLogger {
	if cfg.logger != nil {
		return cfg.logger
	}
	return noopEvaluatorLogger{}
}

func (cfg config) generator() SchemaGenerator {
	if cfg.schemaGenerator != nil {
		return cfg.schemaGenerator
	}
	return DefaultSchemaGenerator()
}

// WithResolver sets the keypath context used to resolve field selections.
// Snapshots sharing a context share virtual roots, so a root obtained from
// Path() on one of them can be used in selections on the others.
func WithResolver(ctx *keypath.Context) Option {
	return func(cfg *config) {
		cfg.resolver = ctx
	}
}

// WithSchemaGenerator configures a custom schema generator implementation.
func WithSchemaGenerator(generator SchemaGenerator) Option {
	return func(cfg *config) {
		cfg.schemaGenerator = generator
	}
}

// WithScope configures the default scope metadata applied to evaluator contexts.
func WithScope(scope Scope) Option {
	return func(cfg *config) {
		cfg.scope = scope.clone()
	}
}

// WithScopeSchema toggles inclusion of scope metadata within generated schemas.
func WithScopeSchema(include bool) Option {
	return func(cfg *config) {
		cfg.scopeSchema = include
	}
}

// WithEvaluator configures the evaluator used by Evaluate and Validate. A
// nil evaluator, such as NewJSEvaluator without the js_eval tag, makes them
// fail with ErrNoEvaluator instead of falling back to expr.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *config) {
		cfg.evaluator = e
		cfg.evaluatorSet = true
	}
}

func scopeToBinding(scope Scope) map[string]any {
	if scope.isZero() {
		return nil
	}
	binding := map[string]any{
		"name":     scope.Name,
		"label":    scope.Label,
		"priority": scope.Priority,
	}
	if len(scope.Metadata) > 0 {
		binding["metadata"] = copyMetadata(scope.Metadata)
	}
	return binding
}
