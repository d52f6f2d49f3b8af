package immutable

import (
	"fmt"
	"sort"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"
)

// Function is a Go function callable from rule expressions.
type Function func(args ...any) (any, error)

// FunctionRegistry maps case-insensitive names to functions. It is safe for
// concurrent use.
type FunctionRegistry struct {
	functions *xsync.MapOf[string, Function]
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{functions: xsync.NewMapOf[string, Function]()}
}

// Register stores fn under name. Names are unique regardless of case.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("immutable: function %q is nil", name)
	}
	if name == "" {
		return fmt.Errorf("immutable: function name must not be empty")
	}
	if r.functions == nil {
		r.functions = xsync.NewMapOf[string, Function]()
	}
	if _, loaded := r.functions.LoadOrStore(strings.ToLower(name), fn); loaded {
		return fmt.Errorf("immutable: function %q already registered", name)
	}
	return nil
}

// Clone returns a registry holding the same functions.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	clone := NewFunctionRegistry()
	r.each(func(name string, fn Function) {
		clone.functions.Store(name, fn)
	})
	return clone
}

// Call executes the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil || r.functions == nil {
		return nil, fmt.Errorf("immutable: function %q not registered", name)
	}
	fn, ok := r.functions.Load(strings.ToLower(name))
	if !ok {
		return nil, fmt.Errorf("immutable: function %q not registered", name)
	}
	return fn(args...)
}

// Names returns registered function names sorted alphabetically.
func (r *FunctionRegistry) Names() []string {
	var names []string
	r.each(func(name string, _ Function) {
		names = append(names, name)
	})
	sort.Strings(names)
	return names
}

// Len returns the number of registered functions.
func (r *FunctionRegistry) Len() int {
	if r == nil || r.functions == nil {
		return 0
	}
	return r.functions.Size()
}

func (r *FunctionRegistry) each(fn func(name string, f Function)) {
	if r == nil || r.functions == nil {
		return
	}
	r.functions.Range(func(name string, f Function) bool {
		fn(name, f)
		return true
	})
}

// WithFunctionRegistry exposes the functions of registry to rule
// expressions. The registry is copied; later registrations are not seen.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *config) {
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction adds fn to the functions visible to rule expressions.
// Registering a name twice keeps the first function.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *config) {
		registry := cfg.functions.Clone()
		if registry == nil {
			registry = NewFunctionRegistry()
		}
		_ = registry.Register(name, fn)
		cfg.functions = registry
	}
}
