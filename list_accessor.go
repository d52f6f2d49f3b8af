package immutable

import (
	"github.com/goliatone/go-immutable/keypath"
	"github.com/goliatone/go-immutable/seq"
)

// ListAccessor reads or writes a list of E at one path of a snapshot.
type ListAccessor[S, E any] struct {
	field Accessor[S, []E]
}

// InList resolves sel against the snapshot's virtual root and returns a list
// accessor for the selected slice field.
func InList[S, E any](im *Immutable[S], sel func(*S) *[]E) ListAccessor[S, E] {
	return ListAccessor[S, E]{field: In(im, sel)}
}

// AtList returns a list accessor for a prebuilt key.
func AtList[S, E any](im *Immutable[S], key keypath.Key[[]E]) ListAccessor[S, E] {
	return ListAccessor[S, E]{field: At(im, key)}
}

// Err returns the resolution error, if any.
func (l ListAccessor[S, E]) Err() error {
	return l.field.Err()
}

// Set stores a copy of items. A nil slice deletes the path.
func (l ListAccessor[S, E]) Set(items []E) (*Immutable[S], error) {
	return l.field.Set(items)
}

// SetList stores the elements of list. An empty list stores an empty slice,
// the same as Set with an empty slice.
func (l ListAccessor[S, E]) SetList(list seq.List[E]) (*Immutable[S], error) {
	items := list.Slice()
	if items == nil {
		items = []E{}
	}
	return l.field.Set(items)
}

// Update stores fn applied to the current list, empty when absent.
func (l ListAccessor[S, E]) Update(fn func(seq.List[E]) seq.List[E]) (*Immutable[S], error) {
	current, err := l.List()
	if err != nil {
		return nil, err
	}
	return l.SetList(fn(current))
}

// UpdateList stores fn applied to a copy of the current slice.
func (l ListAccessor[S, E]) UpdateList(fn func([]E) []E) (*Immutable[S], error) {
	return l.field.Update(fn)
}

// Get returns a copy of the stored slice, nil when absent.
func (l ListAccessor[S, E]) Get() ([]E, error) {
	return l.field.Get()
}

// List returns the stored elements as a seq.List.
func (l ListAccessor[S, E]) List() (seq.List[E], error) {
	items, err := l.field.Get()
	if err != nil {
		return seq.List[E]{}, err
	}
	return seq.FromSlice(items), nil
}
