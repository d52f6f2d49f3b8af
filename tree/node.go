// Package tree implements the persistent node engine behind go-immutable
// snapshots: an immutable string-keyed mapping whose values are leaves or
// nested nodes, together with get/set/update/merge/diff/visit operations that
// always return new nodes and share unchanged subtrees with their inputs.
//
// A value is a sub-tree if and only if its dynamic type is *Node. Arbitrary
// maps stored by callers are leaves and are never recursed into.
package tree

import (
	"fmt"
	"reflect"

	iradix "github.com/hashicorp/go-immutable-radix"
)

// Node is one immutable level of the tree. The zero value and a nil *Node
// both behave as the empty node.
type Node struct {
	entries *iradix.Tree
}

// Tombstone marks a key removed by Diff. Merge applies it as a deletion.
type Tombstone struct{}

func (Tombstone) String() string { return "<removed>" }

// Removed is the deletion marker recorded by Diff and accepted by Set.
var Removed = Tombstone{}

var (
	empty    = &Node{entries: iradix.New()}
	nodeType = reflect.TypeOf((*Node)(nil))
)

// Empty returns the shared empty node.
func Empty() *Node {
	return empty
}

// IsRemoved reports whether value is the deletion marker.
func IsRemoved(value any) bool {
	_, ok := value.(Tombstone)
	return ok
}

// IsNode reports whether value is a sub-tree.
func IsNode(value any) bool {
	_, ok := value.(*Node)
	return ok
}

func (n *Node) radix() *iradix.Tree {
	if n == nil || n.entries == nil {
		return empty.entries
	}
	return n.entries
}

// Len returns the number of entries, tombstones included.
func (n *Node) Len() int {
	return n.radix().Len()
}

// IsEmpty reports whether n has no entries.
func (n *Node) IsEmpty() bool {
	return n.Len() == 0
}

// Lookup returns the raw stored value for key without copying it.
func (n *Node) Lookup(key string) (any, bool) {
	return n.radix().Get([]byte(key))
}

// With returns a node holding value under key. The receiver is unchanged.
func (n *Node) With(key string, value any) *Node {
	entries, _, _ := n.radix().Insert([]byte(key), value)
	return &Node{entries: entries}
}

// Without returns a node lacking key. The receiver is unchanged.
func (n *Node) Without(key string) *Node {
	entries, _, removed := n.radix().Delete([]byte(key))
	if !removed {
		return n
	}
	return &Node{entries: entries}
}

// Range calls fn for each entry in ascending key order until fn returns
// false.
func (n *Node) Range(fn func(key string, value any) bool) {
	n.radix().Root().Walk(func(k []byte, v interface{}) bool {
		return !fn(string(k), v)
	})
}

// Keys returns the entry keys in ascending order.
func (n *Node) Keys() []string {
	keys := make([]string, 0, n.Len())
	n.Range(func(key string, _ any) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

// Equal reports whether n and other hold structurally equal entries.
func (n *Node) Equal(other *Node) bool {
	if n == other {
		return true
	}
	if n.Len() != other.Len() {
		return false
	}
	equal := true
	n.Range(func(key string, value any) bool {
		otherValue, ok := other.Lookup(key)
		if !ok || !Equal(value, otherValue) {
			equal = false
			return false
		}
		return true
	})
	return equal
}

// ToMap converts n into plain nested maps. Sub-nodes become
// map[string]any, tombstones become nil and leaves are copied.
func (n *Node) ToMap() map[string]any {
	out := make(map[string]any, n.Len())
	n.Range(func(key string, value any) bool {
		out[key] = toPlain(value)
		return true
	})
	return out
}

func (n *Node) String() string {
	return fmt.Sprint(n.ToMap())
}

func toPlain(value any) any {
	switch typed := value.(type) {
	case *Node:
		return typed.ToMap()
	case Tombstone:
		return nil
	case []any:
		out := make([]any, len(typed))
		for i := range typed {
			out[i] = toPlain(typed[i])
		}
		return out
	default:
		return Copy(value)
	}
}

// FromMap builds a node from plain nested maps. Every map[string]any value
// becomes a sub-node; every other value is stored as a copied leaf.
func FromMap(values map[string]any) *Node {
	if len(values) == 0 {
		return Empty()
	}
	txn := iradix.New().Txn()
	for key, value := range values {
		txn.Insert([]byte(key), fromPlain(value))
	}
	return &Node{entries: txn.Commit()}
}

func fromPlain(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return FromMap(typed)
	case []any:
		out := make([]any, len(typed))
		for i := range typed {
			out[i] = fromPlain(typed[i])
		}
		return out
	default:
		return Copy(value)
	}
}
