package codec

import (
	"reflect"
	"sort"

	"github.com/puzpuzpuz/xsync/v3"

	immutable "github.com/goliatone/go-immutable"
	"github.com/goliatone/go-immutable/internal/hydrate"
)

// factory rebuilds a snapshot of one schema from decoded envelope data.
type factory func(data map[string]any) (immutable.Snapshot, error)

// Registry maps schema type ids to the snapshot types they decode into. It
// is safe for concurrent use.
type Registry struct {
	factories *xsync.MapOf[string, factory]
}

// NewRegistry returns a registry that resolves untyped snapshots only.
func NewRegistry() *Registry {
	r := &Registry{factories: xsync.NewMapOf[string, factory]()}
	Register[map[string]any](r)
	return r
}

// Register makes snapshots of schema S decodable and returns the type id
// they are stored under. Decoded snapshots carry opts. Registering S again
// replaces its options.
func Register[S any](r *Registry, opts ...immutable.Option) string {
	schema := reflect.TypeFor[S]()
	id := immutable.SchemaTypeID(schema)
	r.factories.Store(id, func(data map[string]any) (immutable.Snapshot, error) {
		node, err := hydrate.RehydrateNode(schema, data)
		if err != nil {
			return nil, err
		}
		return immutable.FromNode[S](node, opts...), nil
	})
	return id
}

// Known reports whether id resolves to a registered schema.
func (r *Registry) Known(id string) bool {
	_, ok := r.lookup(id)
	return ok
}

// Types lists the registered type ids in order.
func (r *Registry) Types() []string {
	var ids []string
	r.factories.Range(func(id string, _ factory) bool {
		ids = append(ids, id)
		return true
	})
	sort.Strings(ids)
	return ids
}

func (r *Registry) lookup(id string) (factory, bool) {
	if r == nil || r.factories == nil {
		return nil, false
	}
	return r.factories.Load(id)
}
