package keypath

import (
	"reflect"
)

// Resolve runs sel against a zero-valued virtual root of S and returns the
// key of the selected field. A nil ctx uses Default(). Every call gets a root
// of its own, so a selector that writes to it cannot affect other
// resolutions or the root returned by RootOf.
//
// The selection fails with *UnboundSelectionError when sel returns nil,
// returns an address outside ctx's root for S, lands on a field whose type is
// not T, or panics.
func Resolve[S, T any](ctx *Context, sel func(*S) *T) (Key[T], error) {
	if ctx == nil {
		ctx = defaultContext
	}
	schema := reflect.TypeFor[S]()
	target := reflect.TypeFor[T]()
	if sel == nil {
		return Key[T]{}, unbound(schema, target, "nil selector", nil)
	}

	in := ctx.layout(schema).instantiate()
	ptr, err := run(in, sel)
	if err != nil {
		return Key[T]{}, unbound(schema, target, "selector panicked", err)
	}
	if ptr == nil {
		return Key[T]{}, unbound(schema, target, "selector returned nil", nil)
	}

	addr := reflect.ValueOf(ptr).Pointer()
	path, ok := in.lookup(addr, target)
	if !ok {
		// selectors may also address the published root captured from RootOf
		if published, loaded := ctx.published.Load(schema); loaded {
			path, ok = published.lookup(addr, target)
		}
	}
	if !ok {
		return Key[T]{}, unbound(schema, target, "address is not a field of the virtual root", nil)
	}
	return Key[T]{path: path.Clone()}, nil
}

// MustResolve is like Resolve but panics on error.
func MustResolve[S, T any](ctx *Context, sel func(*S) *T) Key[T] {
	key, err := Resolve(ctx, sel)
	if err != nil {
		panic(err)
	}
	return key
}

func run[S, T any](in *instance, sel func(*S) *T) (ptr *T, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			ptr = nil
			err = panicError(recovered)
		}
	}()
	return sel(in.value.Interface().(*S)), nil
}
