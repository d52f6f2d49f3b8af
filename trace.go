package immutable

import (
	"encoding/json"

	"github.com/goliatone/go-immutable/internal/hydrate"
	"github.com/goliatone/go-immutable/tree"
)

// Trace reports, for one path, what every layer of a merged snapshot holds.
type Trace struct {
	Path   string       `json:"path"`
	Layers []Provenance `json:"layers"`
}

// Provenance is the contribution of one scope to a traced path.
type Provenance struct {
	Scope      Scope  `json:"scope"`
	SnapshotID string `json:"snapshot_id,omitempty"`
	Path       string `json:"path"`
	Value      any    `json:"value,omitempty"`
	Found      bool   `json:"found"`
}

// ToJSON encodes the trace.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON decodes a trace produced by ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}

// syntheticScope names the single layer of snapshots not built from a stack.
const syntheticScope = "snapshot"

// ResolveWithTrace returns the value at a dotted path and the value every
// layer holds there, strongest first. Snapshots not built by Stack.Merge
// report a single layer for their own content.
func (im *Immutable[S]) ResolveWithTrace(path string) (any, Trace, error) {
	keys, err := parseDottedPath(path)
	if err != nil {
		return nil, Trace{}, err
	}
	value, _ := tree.Get(im.Node(), keys)
	layers := im.traceLayers()
	trace := Trace{Path: keys.String(), Layers: make([]Provenance, 0, len(layers))}
	for _, layer := range layers {
		trace.Layers = append(trace.Layers, layer.provenance(keys))
	}
	return hydrate.Plain(value), trace, nil
}

// FlattenWithProvenance lists every leaf of the snapshot with the strongest
// layer that provides it, in path order.
func (im *Immutable[S]) FlattenWithProvenance() ([]Provenance, error) {
	layers := im.traceLayers()
	var out []Provenance
	walkLeaves(im.Node(), nil, func(path tree.Path, _ any) {
		for _, layer := range layers {
			if prov := layer.provenance(path); prov.Found {
				out = append(out, prov)
				return
			}
		}
	})
	return out, nil
}

func (im *Immutable[S]) traceLayers() []layerSnapshot {
	if layers := im.layerMeta(); len(layers) > 0 {
		return layers
	}
	scope := im.config().scope.clone()
	if scope.Name == "" {
		scope.Name = syntheticScope
	}
	return []layerSnapshot{{Scope: scope, Node: im.Node()}}
}

func (l layerSnapshot) provenance(path tree.Path) Provenance {
	prov := Provenance{
		Scope:      l.Scope.clone(),
		SnapshotID: l.SnapshotID,
		Path:       path.String(),
	}
	if value, ok := tree.Get(l.Node, path); ok {
		prov.Value = hydrate.Plain(value)
		prov.Found = true
	}
	return prov
}

func walkLeaves(n *tree.Node, prefix tree.Path, fn func(tree.Path, any)) {
	n.Range(func(key string, value any) bool {
		path := prefix.Append(key)
		switch typed := value.(type) {
		case tree.Tombstone:
		case *tree.Node:
			walkLeaves(typed, path, fn)
		default:
			fn(path, value)
		}
		return true
	})
}
