package tree

import iradix "github.com/hashicorp/go-immutable-radix"

// Visitor receives the dotted path and value of each visited entry.
type Visitor func(path string, value any)

// Get descends path one key at a time. It returns a deep copy of the
// leaf or the sub-node found at the tail, or false when any key is missing.
// Tombstones read as missing.
func Get(n *Node, path Path) (any, bool) {
	mustPath(path)
	value, ok := lookup(n, path)
	if !ok {
		return nil, false
	}
	return Copy(value), true
}

func lookup(n *Node, path Path) (any, bool) {
	value, ok := present(n, path[0])
	if !ok {
		return nil, false
	}
	if len(path) == 1 {
		return value, true
	}
	child, isNode := value.(*Node)
	if !isNode {
		return nil, false
	}
	return lookup(child, path[1:])
}

// Set returns n with value written at path. Intermediate levels are created
// as nodes; a node value is merged into an existing node at the same path.
// Setting Removed deletes the key at the tail.
func Set(n *Node, path Path, value any) *Node {
	mustPath(path)
	return Merge(n, chain(path, value))
}

// Delete returns n without the entry at path. n is returned unchanged when
// path is absent.
func Delete(n *Node, path Path) *Node {
	mustPath(path)
	if _, ok := lookup(n, path); !ok {
		if n == nil {
			return Empty()
		}
		return n
	}
	return Set(n, path, Removed)
}

// Update writes fn(current) at path, where current is the value found at path
// or fallback when absent.
func Update(n *Node, path Path, fallback any, fn func(any) any) *Node {
	current, ok := Get(n, path)
	if !ok {
		current = fallback
	}
	return Set(n, path, fn(current))
}

// Replace writes value at path like Set, but a node value replaces the node
// already stored there instead of merging into it.
func Replace(n *Node, path Path, value any) *Node {
	return Set(Delete(n, path), path, value)
}

func chain(path Path, value any) *Node {
	if len(path) == 1 {
		return Empty().With(path[0], value)
	}
	return Empty().With(path[0], chain(path[1:], value))
}

// Merge returns the key-wise union of a and b. Where both hold a node under
// the same key the nodes are merged recursively, otherwise b's value wins. A
// tombstone in b deletes the key. Entries of a that b does not touch are
// shared, not copied.
func Merge(a, b *Node) *Node {
	if b.IsEmpty() {
		if a == nil {
			return Empty()
		}
		return a
	}
	txn := a.radix().Txn()
	b.Range(func(key string, value any) bool {
		k := []byte(key)
		if IsRemoved(value) {
			txn.Delete(k)
			return true
		}
		incoming, incomingIsNode := value.(*Node)
		if !incomingIsNode {
			txn.Insert(k, Copy(value))
			return true
		}
		current, _ := a.Lookup(key)
		if existing, ok := current.(*Node); ok {
			txn.Insert(k, Merge(existing, incoming))
			return true
		}
		txn.Insert(k, Merge(Empty(), incoming))
		return true
	})
	return &Node{entries: txn.Commit()}
}

// Diff returns the changes that turn a into b: keys whose values differ carry
// b's value, keys missing from b carry Removed, and keys holding nodes on both
// sides are diffed recursively. Equal keys are omitted.
func Diff(a, b *Node) *Node {
	txn := iradix.New().Txn()
	a.Range(func(key string, _ any) bool {
		if _, ok := present(a, key); !ok {
			return true
		}
		if _, ok := present(b, key); !ok {
			txn.Insert([]byte(key), Removed)
		}
		return true
	})
	b.Range(func(key string, value any) bool {
		if IsRemoved(value) {
			return true
		}
		current, ok := present(a, key)
		if ok && Equal(current, value) {
			return true
		}
		from, fromIsNode := current.(*Node)
		to, toIsNode := value.(*Node)
		if ok && fromIsNode && toIsNode {
			txn.Insert([]byte(key), Diff(from, to))
			return true
		}
		txn.Insert([]byte(key), Copy(value))
		return true
	})
	entries := txn.Commit()
	if entries.Len() == 0 {
		return Empty()
	}
	return &Node{entries: entries}
}

// Visit walks n depth-first in pre-order, ascending key order, calling fn for
// every entry and descending into sub-nodes.
func Visit(n *Node, fn Visitor) {
	if fn == nil {
		return
	}
	visit(n, nil, fn)
}

func visit(n *Node, prefix Path, fn Visitor) {
	n.Range(func(key string, value any) bool {
		path := prefix.Append(key)
		if child, ok := value.(*Node); ok {
			fn(path.String(), child)
			visit(child, path, fn)
			return true
		}
		fn(path.String(), Copy(value))
		return true
	})
}

func present(n *Node, key string) (any, bool) {
	value, ok := n.Lookup(key)
	if !ok || IsRemoved(value) {
		return nil, false
	}
	return value, true
}
