package immutable

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-immutable/internal/hydrate"
	"github.com/goliatone/go-immutable/tree"
)

// Change describes one value that differs between two snapshots. Sub-trees
// that appear are reported leaf by leaf; sub-trees that disappear are
// reported once with their previous content.
type Change struct {
	Path    string
	Old     any
	New     any
	Added   bool
	Removed bool
}

// Changes lists what changed from previous to im, in path order.
func (im *Immutable[S]) Changes(previous Snapshot) []Change {
	var before *tree.Node
	if previous != nil {
		before = previous.Node()
	}
	var changes []Change
	collectChanges(tree.Diff(before, im.Node()), before, nil, &changes)
	return changes
}

func collectChanges(diff, before *tree.Node, prefix tree.Path, out *[]Change) {
	diff.Range(func(key string, value any) bool {
		path := prefix.Append(key)
		old, hadOld := before.Lookup(key)
		if tree.IsRemoved(old) {
			old, hadOld = nil, false
		}
		oldNode, oldIsNode := old.(*tree.Node)

		switch typed := value.(type) {
		case tree.Tombstone:
			*out = append(*out, Change{Path: path.String(), Old: hydrate.Plain(old), Removed: true})
		case *tree.Node:
			if hadOld && !oldIsNode {
				*out = append(*out, Change{Path: path.String(), Old: hydrate.Plain(old), New: hydrate.Plain(typed)})
				return true
			}
			collectChanges(typed, oldNode, path, out)
		default:
			change := Change{Path: path.String(), New: hydrate.Plain(typed)}
			if hadOld {
				change.Old = hydrate.Plain(old)
			} else {
				change.Added = true
			}
			*out = append(*out, change)
		}
		return true
	})
}

// GetPath returns the value stored at a dotted path, or nil when absent.
// Sub-trees are returned as map[string]any.
func (im *Immutable[S]) GetPath(path string) (any, error) {
	keys, err := parseDottedPath(path)
	if err != nil {
		return nil, err
	}
	value, ok := tree.Get(im.Node(), keys)
	if !ok {
		return nil, nil
	}
	return hydrate.Plain(value), nil
}

// SetPath stores value at a dotted path. Structs and maps of strings are
// stored as nodes; a nil value deletes the path.
func (im *Immutable[S]) SetPath(path string, value any) (*Immutable[S], error) {
	keys, err := parseDottedPath(path)
	if err != nil {
		return nil, err
	}
	if object, ok := value.(map[string]any); ok {
		return im.derive(tree.Replace(im.Node(), keys, hydrate.EncodeNode(object))), nil
	}
	stored, ok := hydrate.Encode(value)
	if !ok {
		return im.derive(tree.Delete(im.Node(), keys)), nil
	}
	return im.derive(tree.Replace(im.Node(), keys, stored)), nil
}

// DeletePath returns a snapshot without the dotted path.
func (im *Immutable[S]) DeletePath(path string) (*Immutable[S], error) {
	keys, err := parseDottedPath(path)
	if err != nil {
		return nil, err
	}
	return im.derive(tree.Delete(im.Node(), keys)), nil
}

func parseDottedPath(path string) (tree.Path, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, ErrEmptyPath
	}
	keys := tree.ParsePath(trimmed)
	for _, key := range keys {
		if key == "" {
			return nil, fmt.Errorf("immutable: invalid path %q", path)
		}
	}
	return keys, nil
}
