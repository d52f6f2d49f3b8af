// Package seq provides List, the immutable sequence handed to list
// accessors.
package seq

import (
	"fmt"

	pvec "github.com/benbjohnson/immutable"

	"github.com/goliatone/go-immutable/tree"
)

// List is an immutable ordered sequence backed by a persistent vector, so
// Add and Set share structure with the receiver instead of copying it.
// Every modifying method returns a new List; the receiver is never changed.
// The zero value is an empty list.
type List[E any] struct {
	items *pvec.List[E]
}

// Of returns a list holding items.
func Of[E any](items ...E) List[E] {
	return FromSlice(items)
}

// FromSlice returns a list holding a copy of items.
func FromSlice[E any](items []E) List[E] {
	if len(items) == 0 {
		return List[E]{}
	}
	b := pvec.NewListBuilder[E]()
	for _, item := range items {
		b.Append(copyItem(item))
	}
	return List[E]{items: b.List()}
}

// Len returns the number of elements.
func (l List[E]) Len() int {
	if l.items == nil {
		return 0
	}
	return l.items.Len()
}

// IsEmpty reports whether the list has no elements.
func (l List[E]) IsEmpty() bool {
	return l.Len() == 0
}

// At returns the element at index i.
func (l List[E]) At(i int) (E, bool) {
	if i < 0 || i >= l.Len() {
		var zero E
		return zero, false
	}
	return copyItem(l.items.Get(i)), true
}

// Add returns a list with items appended.
func (l List[E]) Add(items ...E) List[E] {
	if len(items) == 0 {
		return l
	}
	out := l.vector()
	for _, item := range items {
		out = out.Append(copyItem(item))
	}
	return List[E]{items: out}
}

// Set returns a list with the element at index i replaced. Out of range
// indexes return the receiver.
func (l List[E]) Set(i int, item E) List[E] {
	if i < 0 || i >= l.Len() {
		return l
	}
	return List[E]{items: l.items.Set(i, copyItem(item))}
}

// Remove returns a list without the element at index i.
func (l List[E]) Remove(i int) List[E] {
	n := l.Len()
	switch {
	case i < 0 || i >= n:
		return l
	case n == 1:
		return List[E]{}
	case i == 0:
		return List[E]{items: l.items.Slice(1, n)}
	case i == n-1:
		return List[E]{items: l.items.Slice(0, n-1)}
	}
	out := l.items.Slice(0, i)
	for j := i + 1; j < n; j++ {
		out = out.Append(l.items.Get(j))
	}
	return List[E]{items: out}
}

// Filter returns the elements for which keep reports true.
func (l List[E]) Filter(keep func(E) bool) List[E] {
	b := pvec.NewListBuilder[E]()
	l.Range(func(_ int, item E) bool {
		if keep(item) {
			b.Append(item)
		}
		return true
	})
	if b.Len() == 0 {
		return List[E]{}
	}
	return List[E]{items: b.List()}
}

// Range calls fn for each element in order until fn returns false.
func (l List[E]) Range(fn func(int, E) bool) {
	if l.items == nil {
		return
	}
	itr := l.items.Iterator()
	for !itr.Done() {
		i, item := itr.Next()
		if !fn(i, item) {
			return
		}
	}
}

// Slice returns a copy of the elements. A nil slice is returned for an empty
// list.
func (l List[E]) Slice() []E {
	n := l.Len()
	if n == 0 {
		return nil
	}
	out := make([]E, 0, n)
	l.Range(func(_ int, item E) bool {
		out = append(out, copyItem(item))
		return true
	})
	return out
}

// Equal reports element-wise structural equality.
func (l List[E]) Equal(other List[E]) bool {
	if l.Len() != other.Len() {
		return false
	}
	for i := 0; i < l.Len(); i++ {
		if !tree.Equal(l.items.Get(i), other.items.Get(i)) {
			return false
		}
	}
	return true
}

func (l List[E]) String() string {
	return fmt.Sprint(l.Slice())
}

func (l List[E]) vector() *pvec.List[E] {
	if l.items == nil {
		return pvec.NewList[E]()
	}
	return l.items
}

func copyItem[E any](item E) E {
	copied, ok := tree.Copy(item).(E)
	if !ok {
		return item
	}
	return copied
}
