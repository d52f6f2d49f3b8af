package immutable

import (
	"errors"
	"fmt"
	"maps"
	"sort"

	"github.com/goliatone/go-immutable/tree"
)

// Scope names a precedence bucket (system, tenant, user, etc.) a snapshot
// layer belongs to. Higher priority values win when layers are merged.
type Scope struct {
	Name     string         `json:"name"`
	Label    string         `json:"label,omitempty"`
	Priority int            `json:"priority"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ScopeOption configures metadata on Scope creation.
type ScopeOption func(*Scope)

// WithScopeLabel sets a human-friendly label on the scope.
func WithScopeLabel(label string) ScopeOption {
	return func(s *Scope) {
		s.Label = label
	}
}

// WithScopeMetadata attaches a copy of metadata to the scope.
func WithScopeMetadata(metadata map[string]any) ScopeOption {
	return func(s *Scope) {
		s.Metadata = copyMetadata(metadata)
	}
}

// NewScope builds a Scope. Validation happens when a Stack is built.
func NewScope(name string, priority int, opts ...ScopeOption) Scope {
	scope := Scope{Name: name, Priority: priority}
	for _, opt := range opts {
		if opt != nil {
			opt(&scope)
		}
	}
	return scope
}

func (s Scope) clone() Scope {
	s.Metadata = copyMetadata(s.Metadata)
	return s
}

func (s Scope) isZero() bool {
	return s.Name == "" && s.Label == "" && s.Priority == 0 && len(s.Metadata) == 0
}

// Layer pairs a scope with the snapshot captured for it.
type Layer[S any] struct {
	Scope      Scope
	Snapshot   *Immutable[S]
	SnapshotID string
}

// LayerOption configures optional layer metadata.
type LayerOption[S any] func(*Layer[S])

// WithSnapshotID sets the identifier reported in traces for the layer.
func WithSnapshotID[S any](id string) LayerOption[S] {
	return func(layer *Layer[S]) {
		layer.SnapshotID = id
	}
}

// NewLayer pairs scope with snapshot. Snapshots are immutable so the layer
// keeps the pointer as is.
func NewLayer[S any](scope Scope, snapshot *Immutable[S], opts ...LayerOption[S]) Layer[S] {
	layer := Layer[S]{Scope: scope.clone(), Snapshot: snapshot}
	for _, opt := range opts {
		if opt != nil {
			opt(&layer)
		}
	}
	return layer
}

// LayerOf is NewLayer for a plain value of S.
func LayerOf[S any](scope Scope, value S, opts ...LayerOption[S]) Layer[S] {
	return NewLayer(scope, Of(value), opts...)
}

var (
	// ErrScopeNameRequired indicates a missing scope name.
	ErrScopeNameRequired = errors.New("scope: name must be provided")
	// ErrDuplicateScopeName indicates two layers share a scope name.
	ErrDuplicateScopeName = errors.New("scope: names must be unique")
	// ErrPriorityOrder indicates two layers share a priority.
	ErrPriorityOrder = errors.New("scope: priorities must be strictly ordered")
	// ErrEmptyStack is returned when merging a stack without layers.
	ErrEmptyStack = errors.New("scope: stack must include at least one layer")
)

// Stack is a validated set of layers ordered strongest first.
type Stack[S any] struct {
	layers []Layer[S]
}

// NewStack validates layers and sorts them by descending priority.
func NewStack[S any](layers ...Layer[S]) (*Stack[S], error) {
	if len(layers) == 0 {
		return &Stack[S]{}, nil
	}

	seen := make(map[string]struct{}, len(layers))
	copied := make([]Layer[S], len(layers))
	for i, layer := range layers {
		if layer.Scope.Name == "" {
			return nil, ErrScopeNameRequired
		}
		if _, ok := seen[layer.Scope.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateScopeName, layer.Scope.Name)
		}
		seen[layer.Scope.Name] = struct{}{}
		layer.Scope = layer.Scope.clone()
		copied[i] = layer
	}

	sort.Slice(copied, func(i, j int) bool {
		if copied[i].Scope.Priority == copied[j].Scope.Priority {
			return copied[i].Scope.Name < copied[j].Scope.Name
		}
		return copied[i].Scope.Priority > copied[j].Scope.Priority
	})

	for i := 1; i < len(copied); i++ {
		if copied[i-1].Scope.Priority <= copied[i].Scope.Priority {
			return nil, fmt.Errorf("%w: %d", ErrPriorityOrder, copied[i].Scope.Priority)
		}
	}

	return &Stack[S]{layers: copied}, nil
}

// Layers returns the layers strongest first.
func (s *Stack[S]) Layers() []Layer[S] {
	if s == nil || len(s.layers) == 0 {
		return nil
	}
	out := make([]Layer[S], len(s.layers))
	for i, layer := range s.layers {
		layer.Scope = layer.Scope.clone()
		out[i] = layer
	}
	return out
}

// Len returns the number of layers.
func (s *Stack[S]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.layers)
}

// Merge folds the layers from weakest to strongest with tree.Merge. The
// result remembers every layer so ResolveWithTrace can report provenance.
func (s *Stack[S]) Merge(opts ...Option) (*Immutable[S], error) {
	if s.Len() == 0 {
		return nil, ErrEmptyStack
	}
	merged := tree.Empty()
	meta := make([]layerSnapshot, len(s.layers))
	for i := len(s.layers) - 1; i >= 0; i-- {
		layer := s.layers[i]
		merged = tree.Merge(merged, layer.Snapshot.Node())
		meta[i] = layerSnapshot{
			Scope:      layer.Scope.clone(),
			Node:       layer.Snapshot.Node(),
			SnapshotID: layer.SnapshotID,
		}
	}
	result := FromNode[S](merged, opts...)
	result.layers = meta
	return result, nil
}

type layerSnapshot struct {
	Scope      Scope
	Node       *tree.Node
	SnapshotID string
}

func copyMetadata(origin map[string]any) map[string]any {
	if len(origin) == 0 {
		return nil
	}
	return maps.Clone(origin)
}
