package immutable

import "github.com/goliatone/go-immutable/tree"

// LayerWith merges layers, ordered strongest to weakest, over the snapshot,
// which acts as the weakest layer. Layer metadata from a previous stack merge
// is dropped.
func (im *Immutable[S]) LayerWith(layers ...*Immutable[S]) *Immutable[S] {
	merged := im.Node()
	for i := len(layers) - 1; i >= 0; i-- {
		if layers[i] == nil {
			continue
		}
		merged = tree.Merge(merged, layers[i].Node())
	}
	return im.derive(merged)
}

// Layers returns the scopes that produced the snapshot, strongest first, or
// nil when it was not built by Stack.Merge.
func (im *Immutable[S]) Layers() []Scope {
	meta := im.layerMeta()
	if len(meta) == 0 {
		return nil
	}
	scopes := make([]Scope, len(meta))
	for i, layer := range meta {
		scopes[i] = layer.Scope.clone()
	}
	return scopes
}

// WithDefaults fills the entries missing from the snapshot with those of
// defaults. Entries the snapshot holds always win.
func (im *Immutable[S]) WithDefaults(defaults Snapshot) *Immutable[S] {
	if defaults == nil {
		return im.derive(im.Node())
	}
	return im.derive(tree.Merge(defaults.Node(), im.Node()))
}
