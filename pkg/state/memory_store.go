package state

import (
	"context"
	"sync"

	immutable "github.com/goliatone/go-immutable"
	"github.com/goliatone/go-immutable/pkg/codec"
)

// MemoryStore is a minimal in-memory Store implementation intended for tests
// and examples. It uses Ref.Identifier() as its deterministic key and makes no
// persistence assumptions beyond that. Snapshots are immutable, so they are
// kept as is.
type MemoryStore[S any] struct {
	mu      sync.RWMutex
	records map[string]memoryRecord[*immutable.Immutable[S]]
}

type memoryRecord[T any] struct {
	snapshot T
	meta     Meta
}

func NewMemoryStore[S any]() *MemoryStore[S] {
	return &MemoryStore[S]{records: map[string]memoryRecord[*immutable.Immutable[S]]{}}
}

func (s *MemoryStore[S]) Load(_ context.Context, ref Ref) (*immutable.Immutable[S], Meta, bool, error) {
	key, err := ref.Identifier()
	if err != nil {
		return nil, Meta{}, false, err
	}

	s.mu.RLock()
	record, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return nil, Meta{}, false, nil
	}
	return record.snapshot, cloneMeta(record.meta), true, nil
}

func (s *MemoryStore[S]) Save(_ context.Context, ref Ref, snapshot *immutable.Immutable[S], meta Meta) (Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}

	s.mu.Lock()
	s.records[key] = memoryRecord[*immutable.Immutable[S]]{snapshot: snapshot, meta: cloneMeta(meta)}
	s.mu.Unlock()
	return cloneMeta(meta), nil
}

// EncodedStore keeps snapshots as serialized envelopes, the way a store
// backed by a database column or object storage would. It round-trips every
// Save through the codec so decoding problems surface at Load.
type EncodedStore[S any] struct {
	codec   *codec.Codec
	options []immutable.Option

	mu      sync.RWMutex
	records map[string]memoryRecord[[]byte]
}

// NewEncodedStore returns a store serializing with c. Loaded snapshots carry
// opts.
func NewEncodedStore[S any](c *codec.Codec, opts ...immutable.Option) *EncodedStore[S] {
	return &EncodedStore[S]{
		codec:   c,
		options: opts,
		records: map[string]memoryRecord[[]byte]{},
	}
}

func (s *EncodedStore[S]) Load(_ context.Context, ref Ref) (*immutable.Immutable[S], Meta, bool, error) {
	key, err := ref.Identifier()
	if err != nil {
		return nil, Meta{}, false, err
	}

	s.mu.RLock()
	record, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return nil, Meta{}, false, nil
	}
	snapshot, err := codec.UnmarshalAs[S](s.codec, record.snapshot, s.options...)
	if err != nil {
		return nil, Meta{}, false, err
	}
	return snapshot, cloneMeta(record.meta), true, nil
}

func (s *EncodedStore[S]) Save(_ context.Context, ref Ref, snapshot *immutable.Immutable[S], meta Meta) (Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}
	payload, err := s.codec.Marshal(snapshot)
	if err != nil {
		return Meta{}, err
	}

	s.mu.Lock()
	s.records[key] = memoryRecord[[]byte]{snapshot: payload, meta: cloneMeta(meta)}
	s.mu.Unlock()
	return cloneMeta(meta), nil
}

// Payload returns the stored envelope for ref.
func (s *EncodedStore[S]) Payload(ref Ref) ([]byte, bool) {
	key, err := ref.Identifier()
	if err != nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), record.snapshot...), true
}

func cloneMeta(meta Meta) Meta {
	out := meta
	if meta.Extra == nil {
		return out
	}
	out.Extra = make(map[string]string, len(meta.Extra))
	for k, v := range meta.Extra {
		out.Extra[k] = v
	}
	return out
}
