package tree

import (
	"errors"
	"strings"
)

// ErrEmptyPath is the panic value raised by engine functions given an empty
// path.
var ErrEmptyPath = errors.New("tree: empty path")

// Path locates a value from the root to a leaf or sub-tree.
type Path []string

// ParsePath splits a dotted path. An empty string yields a nil Path.
func ParsePath(dotted string) Path {
	if dotted == "" {
		return nil
	}
	return Path(strings.Split(dotted, "."))
}

func (p Path) String() string {
	return strings.Join(p, ".")
}

// Clone returns a copy that does not alias p.
func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// Append returns a new path with keys added after p.
func (p Path) Append(keys ...string) Path {
	out := make(Path, 0, len(p)+len(keys))
	out = append(out, p...)
	return append(out, keys...)
}

// Equal reports whether p and other hold the same keys.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

func mustPath(path Path) {
	if len(path) == 0 {
		panic(ErrEmptyPath)
	}
}
