package keypath

import "github.com/goliatone/go-immutable/tree"

// Key is a resolved path whose value has declared type T.
type Key[T any] struct {
	path tree.Path
}

// Field builds a key directly from tree keys.
func Field[T any](keys ...string) Key[T] {
	return Key[T]{path: tree.Path(keys).Clone()}
}

// Join extends parent with keys, producing a key for a nested value of type U.
func Join[T, U any](parent Key[T], keys ...string) Key[U] {
	return Key[U]{path: parent.path.Append(keys...)}
}

// Path returns a copy of the key's path.
func (k Key[T]) Path() tree.Path {
	return k.path.Clone()
}

// Default returns the zero value of T, used when the key is absent.
func (k Key[T]) Default() T {
	var zero T
	return zero
}

// IsZero reports whether the key has no path.
func (k Key[T]) IsZero() bool {
	return len(k.path) == 0
}

func (k Key[T]) String() string {
	return k.path.String()
}
