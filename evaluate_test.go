package immutable

import (
	"errors"
	"fmt"
	"testing"
)

var errInvalid = errors.New("invalid value")

type validated struct {
	Valid bool `json:"valid"`
}

func (v validated) Validate() error {
	if !v.Valid {
		return errInvalid
	}
	return nil
}

var evaluatorFactories = []struct {
	name string
	new  func(cache ProgramCache, registry *FunctionRegistry) Evaluator
}{
	{
		name: "expr",
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			return NewExprEvaluator(EvaluatorProgramCache(cache), EvaluatorFunctions(registry))
		},
	},
	{
		name: "cel",
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			return NewCELEvaluator(EvaluatorProgramCache(cache), EvaluatorFunctions(registry))
		},
	},
	{
		name: "js",
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			return NewJSEvaluator(EvaluatorProgramCache(cache), EvaluatorFunctions(registry))
		},
	},
}

func forEachEvaluator(t *testing.T, fn func(t *testing.T, newEvaluator func(ProgramCache, *FunctionRegistry) Evaluator)) {
	for _, factory := range evaluatorFactories {
		t.Run(factory.name, func(t *testing.T) {
			if factory.new(nil, nil) == nil {
				t.Skipf("%s evaluator not available in this build", factory.name)
			}
			fn(t, factory.new)
		})
	}
}

func TestRulesFixtureAcrossEvaluators(t *testing.T) {
	type testCase struct {
		Name   string         `json:"name"`
		Rule   string         `json:"rule"`
		Args   map[string]any `json:"args"`
		Expect bool           `json:"expect"`
	}
	type fixture struct {
		Snapshot Page       `json:"snapshot"`
		Cases    []testCase `json:"cases"`
	}

	fx := loadFixture[fixture](t, "rules_page.json")

	forEachEvaluator(t, func(t *testing.T, newEvaluator func(ProgramCache, *FunctionRegistry) Evaluator) {
		page := Of(fx.Snapshot, WithEvaluator(newEvaluator(nil, nil)))
		for _, tc := range fx.Cases {
			t.Run(tc.Name, func(t *testing.T) {
				resp, err := page.EvaluateWith(RuleContext{Args: tc.Args}, tc.Rule)
				if err != nil {
					t.Fatalf("evaluate: %v", err)
				}
				value, ok := resp.Value.(bool)
				if !ok {
					t.Fatalf("expected bool response, got %T", resp.Value)
				}
				if value != tc.Expect {
					t.Fatalf("expected %v, got %v", tc.Expect, value)
				}
			})
		}
	})
}

func TestEvaluateDefaultsToExpr(t *testing.T) {
	page := Of(Page{Title: "Hello"})
	resp, err := page.Evaluate("title + '!'")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if resp.Value != "Hello!" {
		t.Fatalf("expected Hello!, got %v", resp.Value)
	}
	if _, err := page.Evaluate(""); err == nil {
		t.Fatalf("expected empty expression to fail")
	}
}

func TestEvaluateWithSnapshotOverride(t *testing.T) {
	forEachEvaluator(t, func(t *testing.T, newEvaluator func(ProgramCache, *FunctionRegistry) Evaluator) {
		page := Of(Page{Pojo: Pojo{WantToClose: false}}, WithEvaluator(newEvaluator(nil, nil)))
		override := Of(Page{Pojo: Pojo{WantToClose: true}})

		resp, err := page.EvaluateWith(RuleContext{Snapshot: override}, "pojo.wantToClose")
		if err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		if resp.Value != true {
			t.Fatalf("expected override snapshot to be used, got %v", resp.Value)
		}
	})
}

func TestRuleContextDefaults(t *testing.T) {
	capture := &capturingEvaluator{}
	page := New[Page](WithEvaluator(capture), WithScope(NewScope("tenant", ScopePriorityTenant)))

	if _, err := page.Evaluate("true"); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(capture.contexts) != 1 {
		t.Fatalf("expected one context, got %d", len(capture.contexts))
	}
	ctx := capture.contexts[0]
	if ctx.Now == nil || ctx.Now.IsZero() {
		t.Fatalf("expected Now to be defaulted")
	}
	if ctx.Args == nil || ctx.Metadata == nil {
		t.Fatalf("expected maps to be defaulted, got %+v", ctx)
	}
	if ctx.Scope.Name != "tenant" || ctx.ScopeName != "tenant" {
		t.Fatalf("expected configured scope, got %+v", ctx.Scope)
	}
	if _, ok := ctx.Snapshot.(map[string]any); !ok {
		t.Fatalf("expected snapshot content as map, got %T", ctx.Snapshot)
	}
}

func TestScopeBindingAcrossEvaluators(t *testing.T) {
	forEachEvaluator(t, func(t *testing.T, newEvaluator func(ProgramCache, *FunctionRegistry) Evaluator) {
		page := Of(Page{Title: "x"},
			WithEvaluator(newEvaluator(nil, nil)),
			WithScope(NewScope("tenant", ScopePriorityTenant, WithScopeLabel("Tenant"))),
		)
		resp, err := page.Evaluate("scope.name == 'tenant' && scope.label == 'Tenant'")
		if err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		if resp.Value != true {
			t.Fatalf("expected scope binding, got %v", resp.Value)
		}
	})
}

func TestEvaluatorProgramCache(t *testing.T) {
	forEachEvaluator(t, func(t *testing.T, newEvaluator func(ProgramCache, *FunctionRegistry) Evaluator) {
		cache := &fakeProgramCache{}
		page := Of(Page{Title: "Hello"}, WithEvaluator(newEvaluator(cache, nil)))
		for i := 0; i < 3; i++ {
			if _, err := page.Evaluate("title == 'Hello'"); err != nil {
				t.Fatalf("iteration %d: %v", i, err)
			}
		}
		if cache.misses != 1 || cache.hits != 2 {
			t.Fatalf("expected 1 miss and 2 hits, got misses=%d hits=%d", cache.misses, cache.hits)
		}
	})
}

func TestLRUProgramCacheBoundsPrograms(t *testing.T) {
	cache, err := NewLRUProgramCache(2)
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	page := Of(Page{Title: "Hello"}, WithProgramCache(cache))
	for _, expr := range []string{"title", "wantToClose", "pojo.title", "title"} {
		if _, err := page.Evaluate(expr); err != nil {
			t.Fatalf("evaluate %q: %v", expr, err)
		}
	}
	if cache.Len() != 2 {
		t.Fatalf("expected cache to hold 2 programs, got %d", cache.Len())
	}
	if _, ok := cache.Get("expr:title"); !ok {
		t.Fatalf("expected most recent program to be cached")
	}
	if _, err := NewLRUProgramCache(0); err == nil {
		t.Fatalf("expected invalid size to fail")
	}
}

func TestCustomFunctionsAcrossEvaluators(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("double", doubleFunction); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register("DOUBLE", doubleFunction); err == nil {
		t.Fatalf("expected case-insensitive duplicate to fail")
	}

	forEachEvaluator(t, func(t *testing.T, newEvaluator func(ProgramCache, *FunctionRegistry) Evaluator) {
		page := Of(Person{Age: 21}, WithEvaluator(newEvaluator(nil, registry)))
		for _, expr := range []string{"double(age) == 42", "call('double', age) == 42"} {
			resp, err := page.Evaluate(expr)
			if err != nil {
				t.Fatalf("evaluate %q: %v", expr, err)
			}
			if resp.Value != true {
				t.Fatalf("expected %q to be true, got %v", expr, resp.Value)
			}
		}
	})
}

func TestWithCustomFunctionDoesNotLeakIntoParent(t *testing.T) {
	base := Of(Person{Age: 2}, WithCustomFunction("double", doubleFunction))
	derived := base.With(WithCustomFunction("triple", func(args ...any) (any, error) {
		return args[0].(int) * 3, nil
	}))

	if resp, err := derived.Evaluate("triple(age) + double(age)"); err != nil || resp.Value != 10 {
		t.Fatalf("expected both functions on derived snapshot, got %v err=%v", resp.Value, err)
	}
	if _, err := base.Evaluate("triple(age)"); err == nil {
		t.Fatalf("expected base snapshot to lack triple")
	}
}

func TestValidateRunsRulesAndValidator(t *testing.T) {
	page := Of(Page{Title: ""},
		WithRule("has-title", "title != ''"),
		WithRule("closable", "wantToClose || !pojo.wantToClose"),
	)
	err := page.Validate()
	var violation *RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected rule violation, got %v", err)
	}
	if violation.Rule != "has-title" || violation.Result != false {
		t.Fatalf("unexpected violation %+v", violation)
	}

	fixed, err := In(page, title).Set("Hello")
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := fixed.Validate(); err != nil {
		t.Fatalf("expected rules to pass, got %v", err)
	}
	if len(fixed.Rules()) != 2 {
		t.Fatalf("expected rules to carry over to derived snapshots")
	}

	broken := Of(Page{}, WithRule("bad", "title +"))
	err = broken.Validate()
	if !errors.As(err, &violation) || violation.Err == nil {
		t.Fatalf("expected rule violation wrapping evaluation error, got %v", err)
	}
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) || evalErr.Rule != "bad" {
		t.Fatalf("expected evaluation error tagged with rule, got %v", err)
	}
}

func TestLoadRunsValidation(t *testing.T) {
	if _, err := Load(validated{Valid: false}); !errors.Is(err, errInvalid) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := Load(validated{Valid: true}); err != nil {
		t.Fatalf("unexpected error from Load: %v", err)
	}
}

func TestNilEvaluatorFailsExplicitly(t *testing.T) {
	page := New[Page](WithEvaluator(nil))
	if _, err := page.Evaluate("true"); !errors.Is(err, ErrNoEvaluator) {
		t.Fatalf("expected ErrNoEvaluator, got %v", err)
	}
}

func TestEvaluatorLoggerReceivesEvents(t *testing.T) {
	var events []EvaluatorLogEvent
	logger := EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
		events = append(events, event)
	})
	page := Of(Page{Title: "x"}, WithEvaluatorLogger(logger), WithRule("has-title", "title != ''"))

	if err := page.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if _, err := page.Evaluate("missing("); err == nil {
		t.Fatalf("expected compile error")
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Rule != "has-title" || events[0].Engine != "expr" || events[0].Failed() {
		t.Fatalf("unexpected rule event %+v", events[0])
	}
	if events[0].Schema != SchemaTypeID(page.SchemaType()) {
		t.Fatalf("expected schema id on event, got %q", events[0].Schema)
	}
	if !events[1].Failed() || events[1].Rule != "" {
		t.Fatalf("expected failed ad hoc event, got %+v", events[1])
	}
}

func doubleFunction(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("double expects 1 argument, got %d", len(args))
	}
	switch v := args[0].(type) {
	case int:
		return v * 2, nil
	case int64:
		return v * 2, nil
	case float64:
		return v * 2, nil
	default:
		return nil, fmt.Errorf("double: unsupported %T", args[0])
	}
}

type fakeProgramCache struct {
	store  map[string]any
	hits   int
	misses int
}

func (c *fakeProgramCache) Get(key string) (any, bool) {
	if c.store == nil {
		c.store = make(map[string]any)
	}
	value, ok := c.store[key]
	if ok {
		c.hits++
		return value, true
	}
	c.misses++
	return nil, false
}

func (c *fakeProgramCache) Set(key string, value any) {
	if c.store == nil {
		c.store = make(map[string]any)
	}
	c.store[key] = value
}

type capturingEvaluator struct {
	contexts []RuleContext
}

func (c *capturingEvaluator) Evaluate(ctx RuleContext, _ string) (any, error) {
	c.contexts = append(c.contexts, ctx)
	return true, nil
}

func (c *capturingEvaluator) Compile(string, ...CompileOption) (CompiledRule, error) {
	return nil, fmt.Errorf("capturing evaluator does not support compile")
}
