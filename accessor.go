package immutable

import (
	"github.com/goliatone/go-immutable/internal/hydrate"
	"github.com/goliatone/go-immutable/keypath"
	"github.com/goliatone/go-immutable/tree"
)

// Accessor reads or writes the value of type T at one path of a snapshot.
// Resolution errors are kept and returned by every method.
type Accessor[S, T any] struct {
	snapshot *Immutable[S]
	key      keypath.Key[T]
	err      error
}

// In resolves sel against the snapshot's virtual root and returns an
// accessor for the selected field.
func In[S, T any](im *Immutable[S], sel func(*S) *T) Accessor[S, T] {
	key, err := keypath.Resolve(im.Resolver(), sel)
	return Accessor[S, T]{snapshot: im, key: key, err: err}
}

// At returns an accessor for a key built with keypath.Field or keypath.Join.
func At[S, T any](im *Immutable[S], key keypath.Key[T]) Accessor[S, T] {
	a := Accessor[S, T]{snapshot: im, key: key}
	if key.IsZero() {
		a.err = ErrEmptyPath
	}
	return a
}

// Key returns the resolved key.
func (a Accessor[S, T]) Key() keypath.Key[T] {
	return a.key
}

// Path returns the resolved path, or nil when resolution failed.
func (a Accessor[S, T]) Path() tree.Path {
	if a.err != nil {
		return nil
	}
	return a.key.Path()
}

// Err returns the resolution error, if any.
func (a Accessor[S, T]) Err() error {
	return a.err
}

// Set returns a snapshot with value stored at the accessor's path. Struct
// values replace whatever was stored there; a nil value deletes the path.
func (a Accessor[S, T]) Set(value T) (*Immutable[S], error) {
	if a.err != nil {
		return nil, a.err
	}
	path := a.key.Path()
	stored, ok := hydrate.Encode(value)
	if !ok {
		return a.snapshot.derive(tree.Delete(a.snapshot.Node(), path)), nil
	}
	return a.snapshot.derive(tree.Replace(a.snapshot.Node(), path, stored)), nil
}

// SetSnapshot stores value's node at the accessor's path. Unlike Set, the
// node is merged into a node already stored there.
func (a Accessor[S, T]) SetSnapshot(value *Immutable[T]) (*Immutable[S], error) {
	if a.err != nil {
		return nil, a.err
	}
	return a.snapshot.derive(tree.Set(a.snapshot.Node(), a.key.Path(), value.Node())), nil
}

// Update stores fn(current) where current is the stored value or the zero
// value of T when absent.
func (a Accessor[S, T]) Update(fn func(T) T) (*Immutable[S], error) {
	if a.err != nil {
		return nil, a.err
	}
	current, err := a.Get()
	if err != nil {
		return nil, err
	}
	return a.Set(fn(current))
}

// Delete returns a snapshot without the accessor's path.
func (a Accessor[S, T]) Delete() (*Immutable[S], error) {
	if a.err != nil {
		return nil, a.err
	}
	return a.snapshot.derive(tree.Delete(a.snapshot.Node(), a.key.Path())), nil
}

// Get returns the stored value, or the zero value of T when absent.
func (a Accessor[S, T]) Get() (T, error) {
	value, _, err := a.Lookup()
	return value, err
}

// Lookup returns the stored value and whether the path was present.
func (a Accessor[S, T]) Lookup() (T, bool, error) {
	fallback := a.key.Default()
	if a.err != nil {
		return fallback, false, a.err
	}
	raw, ok := tree.Get(a.snapshot.Node(), a.key.Path())
	if !ok {
		return fallback, false, nil
	}
	value, err := hydrate.DecodeValue[T](raw)
	if err != nil {
		return fallback, true, err
	}
	return value, true, nil
}

// Get returns the value selected by sel, or its zero value when absent.
func Get[S, T any](im *Immutable[S], sel func(*S) *T) (T, error) {
	return In(im, sel).Get()
}

// Lookup returns the value selected by sel and whether it was present.
func Lookup[S, T any](im *Immutable[S], sel func(*S) *T) (T, bool, error) {
	return In(im, sel).Lookup()
}
