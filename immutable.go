// Package immutable provides persistent, schema-typed snapshots of
// hierarchical values.
//
// An *Immutable[S] pairs a schema type S with an immutable tree.Node. Every
// mutation returns a new snapshot that shares unchanged subtrees with the
// original, so snapshots can be handed between goroutines without locking
// and compared cheaply for change detection.
//
// Fields are addressed through typed selections on a virtual root:
//
//	page := immutable.New[Page]()
//	page, err := immutable.In(page, func(p *Page) *string { return &p.Title }).Set("Test")
//	page, err = immutable.In(page, func(p *Page) *bool { return &p.Pojo.WantToClose }).
//		Update(func(v bool) bool { return !v })
//
// Struct values are stored as nested nodes, so they merge and diff field by
// field. Maps, slices of scalars and any value that marshals itself are
// stored as opaque leaves.
package immutable

import (
	"fmt"
	"reflect"

	"github.com/goliatone/go-immutable/internal/hydrate"
	"github.com/goliatone/go-immutable/keypath"
	"github.com/goliatone/go-immutable/tree"
)

// Snapshot is implemented by every *Immutable[S] and lets packages handle
// snapshots without knowing their schema type.
type Snapshot interface {
	SchemaType() reflect.Type
	Node() *tree.Node
}

// Immutable is a persistent snapshot of schema S. The zero value and a nil
// pointer both behave as an empty snapshot.
type Immutable[S any] struct {
	node   *tree.Node
	cfg    config
	layers []layerSnapshot
}

// New returns an empty snapshot of schema S.
func New[S any](opts ...Option) *Immutable[S] {
	return &Immutable[S]{
		node: tree.Empty(),
		cfg:  applyOptions(config{}, opts),
	}
}

// Of returns a snapshot holding value. Struct fields become nodes; nil
// pointers, slices and maps are not stored.
func Of[S any](value S, opts ...Option) *Immutable[S] {
	return FromNode[S](hydrate.EncodeNode(value), opts...)
}

// Load builds a snapshot from value and validates it with Validate.
func Load[S any](value S, opts ...Option) (*Immutable[S], error) {
	snapshot := Of(value, opts...)
	if err := snapshot.Validate(); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// FromNode wraps an existing node as a snapshot of schema S.
func FromNode[S any](node *tree.Node, opts ...Option) *Immutable[S] {
	if node == nil {
		node = tree.Empty()
	}
	return &Immutable[S]{
		node: node,
		cfg:  applyOptions(config{}, opts),
	}
}

// With returns a copy of the snapshot with additional options applied.
func (im *Immutable[S]) With(opts ...Option) *Immutable[S] {
	return &Immutable[S]{
		node:   im.Node(),
		cfg:    applyOptions(im.config(), opts),
		layers: im.layerMeta(),
	}
}

func (im *Immutable[S]) derive(node *tree.Node) *Immutable[S] {
	if node == nil {
		node = tree.Empty()
	}
	return &Immutable[S]{node: node, cfg: im.config()}
}

func (im *Immutable[S]) config() config {
	if im == nil {
		return config{}
	}
	return im.cfg
}

func (im *Immutable[S]) layerMeta() []layerSnapshot {
	if im == nil {
		return nil
	}
	return im.layers
}

// Node returns the snapshot's root node.
func (im *Immutable[S]) Node() *tree.Node {
	if im == nil || im.node == nil {
		return tree.Empty()
	}
	return im.node
}

// SchemaType returns the reflect.Type of S.
func (im *Immutable[S]) SchemaType() reflect.Type {
	return reflect.TypeFor[S]()
}

// Resolver returns the keypath context used for field selections.
func (im *Immutable[S]) Resolver() *keypath.Context {
	return im.config().resolverOrDefault()
}

// Path returns the virtual root of S used in selections. It carries no data;
// a root that was written to is replaced on the next call.
func (im *Immutable[S]) Path() *S {
	return keypath.RootOf[S](im.Resolver())
}

// AsObject decodes the snapshot into S. Absent fields hold their zero value.
func (im *Immutable[S]) AsObject() (S, error) {
	return hydrate.NewDecoder[S]().Decode(hydrate.Context{
		Schema: SchemaTypeID(im.SchemaType()),
		Scope:  im.config().scope.Name,
	}, im.Node())
}

// MustObject is like AsObject but panics on error.
func (im *Immutable[S]) MustObject() S {
	value, err := im.AsObject()
	if err != nil {
		panic(err)
	}
	return value
}

// AsMap returns the snapshot as plain nested maps.
func (im *Immutable[S]) AsMap() map[string]any {
	return hydrate.Plain(im.Node()).(map[string]any)
}

// Merge returns a snapshot holding the key-wise union of im and other, with
// other winning on conflicting leaves.
func (im *Immutable[S]) Merge(other Snapshot) *Immutable[S] {
	if other == nil {
		return im.derive(im.Node())
	}
	return im.derive(tree.Merge(im.Node(), other.Node()))
}

// Diff returns the changes that turn im into other. Removed keys hold
// tree.Removed, so im.Merge(im.Diff(other)) equals other.
func (im *Immutable[S]) Diff(other Snapshot) *Immutable[S] {
	var target *tree.Node
	if other != nil {
		target = other.Node()
	}
	return im.derive(tree.Diff(im.Node(), target))
}

// Clear returns an empty snapshot carrying the same options.
func (im *Immutable[S]) Clear() *Immutable[S] {
	return im.derive(tree.Empty())
}

// VisitNodes walks the snapshot in pre-order, calling fn with the dotted path
// and value of every entry.
func (im *Immutable[S]) VisitNodes(fn tree.Visitor) {
	tree.Visit(im.Node(), fn)
}

// Equal reports whether other has the same schema type and structurally
// equal content.
func (im *Immutable[S]) Equal(other Snapshot) bool {
	if other == nil {
		return false
	}
	return im.SchemaType() == other.SchemaType() && im.Node().Equal(other.Node())
}

// Hash returns a structural hash consistent with Equal.
func (im *Immutable[S]) Hash() uint64 {
	return im.Node().Hash()
}

func (im *Immutable[S]) String() string {
	return fmt.Sprintf("Immutable[%s]%v", im.SchemaType(), im.Node())
}

// Equal reports whether a and b hold structurally equal content, regardless
// of their schema types.
func Equal(a, b Snapshot) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Node().Equal(b.Node())
}

// SchemaTypeID returns the identifier used for t in serialized snapshots:
// the package path and name for named types, the type literal otherwise.
func SchemaTypeID(t reflect.Type) string {
	if t == nil {
		return ""
	}
	if t.Name() != "" && t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}
