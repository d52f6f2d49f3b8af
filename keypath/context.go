package keypath

import (
	"reflect"

	"github.com/goliatone/go-immutable/internal/structs"
	"github.com/goliatone/go-immutable/tree"
	"github.com/puzpuzpuz/xsync/v3"
)

// DefaultMaxDepth bounds how many pointer-to-struct hops are pre-allocated
// below a virtual root.
const DefaultMaxDepth = 8

// Context owns the root layouts used to resolve selections and the published
// root returned by RootOf.
type Context struct {
	maxDepth  int
	layouts   *xsync.MapOf[reflect.Type, *layout]
	published *xsync.MapOf[reflect.Type, *instance]
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithMaxDepth sets how many nested pointer-to-struct levels are
// pre-allocated. Selections that go deeper fail as unbound.
func WithMaxDepth(depth int) ContextOption {
	return func(c *Context) {
		if depth >= 0 {
			c.maxDepth = depth
		}
	}
}

// NewContext returns an empty resolution context.
func NewContext(opts ...ContextOption) *Context {
	c := &Context{
		maxDepth:  DefaultMaxDepth,
		layouts:   xsync.NewMapOf[reflect.Type, *layout](),
		published: xsync.NewMapOf[reflect.Type, *instance](),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

var defaultContext = NewContext()

// Default returns the process-wide context used when none is supplied.
func Default() *Context {
	return defaultContext
}

// MaxDepth reports the configured pre-allocation depth.
func (c *Context) MaxDepth() int {
	if c == nil {
		return DefaultMaxDepth
	}
	return c.maxDepth
}

// RootOf returns the published virtual root for S. Repeated calls return the
// same root while it stays zero-valued; a root that was written to is
// replaced, and addresses taken from the old one stop resolving.
func RootOf[S any](ctx *Context) *S {
	if ctx == nil {
		ctx = defaultContext
	}
	return ctx.root(reflect.TypeFor[S]()).value.Interface().(*S)
}

func (c *Context) layout(schema reflect.Type) *layout {
	l, _ := c.layouts.LoadOrCompute(schema, func() *layout {
		return newLayout(schema, c.maxDepth)
	})
	return l
}

func (c *Context) root(schema reflect.Type) *instance {
	l := c.layout(schema)
	in, _ := c.published.Compute(schema, func(old *instance, loaded bool) (*instance, bool) {
		if loaded && old.intact() {
			return old, false
		}
		return l.instantiate(), false
	})
	return in
}

// layout records which structs a root pre-allocates and the key prefix of
// each. It holds no addresses, so one layout serves every root of a schema.
type layout struct {
	schema reflect.Type
	blocks []block
}

// block is one allocated struct: the root (parent -1) or the target of a
// pre-allocated pointer field found at index inside the parent block.
type block struct {
	typ      reflect.Type
	parent   int
	index    []int
	path     tree.Path
	children []int
}

func newLayout(schema reflect.Type, maxDepth int) *layout {
	l := &layout{schema: schema}
	if schema.Kind() == reflect.Struct {
		l.blocks = append(l.blocks, block{typ: schema, parent: -1})
		l.walk(0, schema, nil, nil, 0, maxDepth)
	}
	return l
}

func (l *layout) walk(owner int, t reflect.Type, index []int, prefix tree.Path, depth, maxDepth int) {
	for _, field := range structs.For(t).Fields {
		at := append(index[:len(index):len(index)], field.Index)
		path := prefix.Append(field.Key)
		switch {
		case field.Type.Kind() == reflect.Struct:
			l.walk(owner, field.Type, at, path, depth, maxDepth)
		case field.Type.Kind() == reflect.Pointer &&
			field.Type.Elem().Kind() == reflect.Struct &&
			depth < maxDepth:
			child := len(l.blocks)
			l.blocks = append(l.blocks, block{
				typ:    field.Type.Elem(),
				parent: owner,
				index:  at,
				path:   path,
			})
			l.blocks[owner].children = append(l.blocks[owner].children, child)
			l.walk(child, field.Type.Elem(), nil, path, depth+1, maxDepth)
		}
	}
}

func (l *layout) instantiate() *instance {
	in := &instance{layout: l, value: reflect.New(l.schema)}
	if len(l.blocks) == 0 {
		return in
	}
	in.blocks = make([]reflect.Value, len(l.blocks))
	in.blocks[0] = in.value
	for i := 1; i < len(l.blocks); i++ {
		b := l.blocks[i]
		child := reflect.New(b.typ)
		in.blocks[b.parent].Elem().FieldByIndex(b.index).Set(child)
		in.blocks[i] = child
	}
	return in
}

// instance is one allocated virtual root. blocks holds a pointer to every
// allocated struct, in layout order.
type instance struct {
	layout *layout
	value  reflect.Value
	blocks []reflect.Value
}

// lookup maps an address inside the instance to the path of the field of
// type target that starts there.
func (in *instance) lookup(addr uintptr, target reflect.Type) (tree.Path, bool) {
	for i, b := range in.layout.blocks {
		size := b.typ.Size()
		start := in.blocks[i].Pointer()
		if size == 0 || addr < start || addr >= start+size {
			continue
		}
		offset := addr - start
		if offset == 0 && b.typ == target {
			return b.path, len(b.path) > 0
		}
		return locate(b.typ, offset, target, b.path)
	}
	return nil, false
}

// intact reports whether the instance still holds only zero values and the
// pointers it was allocated with.
func (in *instance) intact() bool {
	if len(in.blocks) == 0 {
		return in.value.Elem().IsZero()
	}
	for i, b := range in.layout.blocks {
		v := in.blocks[i].Elem()
		slots := make([][]int, len(b.children))
		for j, child := range b.children {
			slots[j] = in.layout.blocks[child].index
			if v.FieldByIndex(slots[j]).Pointer() != in.blocks[child].Pointer() {
				return false
			}
		}
		if !zeroExcept(v, nil, slots) {
			return false
		}
	}
	return true
}

func zeroExcept(v reflect.Value, index []int, slots [][]int) bool {
	for i := 0; i < v.NumField(); i++ {
		at := append(index[:len(index):len(index)], i)
		field := v.Field(i)
		switch {
		case hasSlot(slots, at, true):
			continue
		case field.Kind() == reflect.Struct && hasSlot(slots, at, false):
			if !zeroExcept(field, at, slots) {
				return false
			}
		case !field.IsZero():
			return false
		}
	}
	return true
}

// hasSlot reports whether a slot equals at, or with exact false, lies below
// it.
func hasSlot(slots [][]int, at []int, exact bool) bool {
	for _, slot := range slots {
		if len(slot) < len(at) || (exact && len(slot) != len(at)) {
			continue
		}
		match := true
		for i := range at {
			if slot[i] != at[i] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func locate(t reflect.Type, offset uintptr, target reflect.Type, prefix tree.Path) (tree.Path, bool) {
	table := structs.For(t)
	for _, field := range table.ByOffset(offset) {
		if field.Type == target {
			return prefix.Append(field.Key), true
		}
	}
	field, ok := table.Enclosing(offset)
	if !ok || field.Type.Kind() != reflect.Struct {
		return nil, false
	}
	return locate(field.Type, offset-field.Offset, target, prefix.Append(field.Key))
}
