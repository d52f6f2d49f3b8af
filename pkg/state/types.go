package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	immutable "github.com/goliatone/go-immutable"
	"github.com/goliatone/go-immutable/pkg/activity"
)

var ErrETagMismatch = errors.New("state: etag mismatch")

// Ref identifies one persisted snapshot for one domain.
type Ref struct {
	Domain string
	Scope  immutable.Scope
}

// Meta is storage-owned metadata used for trace/audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads/saves one snapshot for a single scope reference.
type Store[S any] interface {
	Load(ctx context.Context, ref Ref) (snapshot *immutable.Immutable[S], meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, snapshot *immutable.Immutable[S], meta Meta) (Meta, error)
}

// Resolver orchestrates scoped loads and merges them into a single snapshot.
// Options are applied to every snapshot the resolver returns.
type Resolver[S any] struct {
	Store   Store[S]
	Options []immutable.Option
}

// Mutator derives the next snapshot from the current one.
type Mutator[S any] func(current *immutable.Immutable[S]) (*immutable.Immutable[S], error)

func (r Ref) Identifier() (string, error) {
	switch r.Scope.Name {
	case "system":
		return fmt.Sprintf("system/%s", r.Domain), nil
	case "tenant", "org", "team", "user":
		metadataKey := r.Scope.Name + "_id"
		id, ok := r.Scope.Metadata[metadataKey]
		if !ok {
			return "", fmt.Errorf("missing metadata key %q for scope %q", metadataKey, r.Scope.Name)
		}
		idString, ok := id.(string)
		if !ok || idString == "" {
			return "", fmt.Errorf("missing metadata key %q for scope %q", metadataKey, r.Scope.Name)
		}
		return fmt.Sprintf("%s/%s/%s", r.Scope.Name, idString, r.Domain), nil
	default:
		return "", fmt.Errorf("unsupported scope name %q", r.Scope.Name)
	}
}

func (r Resolver[S]) Resolve(ctx context.Context, domain string, scopes ...immutable.Scope) (*immutable.Immutable[S], error) {
	if r.Store == nil {
		return nil, fmt.Errorf("state: store is required")
	}
	if domain == "" {
		return nil, fmt.Errorf("state: domain is required")
	}
	if len(scopes) == 0 {
		return nil, fmt.Errorf("state: at least one scope is required")
	}

	layers, err := r.loadLayers(ctx, domain, scopes)
	if err != nil {
		return nil, err
	}
	if len(layers) == 0 {
		return nil, fmt.Errorf("state: no layers found for domain %q", domain)
	}
	return r.merge(layers...)
}

// ResolveWithDefaults resolves scopes over defaults, which become a
// "defaults" layer weaker than every requested scope.
func (r Resolver[S]) ResolveWithDefaults(ctx context.Context, domain string, defaults *immutable.Immutable[S], scopes ...immutable.Scope) (*immutable.Immutable[S], error) {
	if r.Store == nil {
		return nil, fmt.Errorf("state: store is required")
	}
	if domain == "" {
		return nil, fmt.Errorf("state: domain is required")
	}

	prioritySet := make(map[int]struct{}, len(scopes)+1)
	minPriority := 0
	if len(scopes) > 0 {
		minPriority = scopes[0].Priority
	}
	for _, scope := range scopes {
		if scope.Name == "defaults" {
			return nil, fmt.Errorf("state: scope name %q is reserved", "defaults")
		}
		prioritySet[scope.Priority] = struct{}{}
		if scope.Priority < minPriority {
			minPriority = scope.Priority
		}
	}

	defaultsPriority := 0
	if len(scopes) > 0 {
		defaultsPriority = minPriority - 1
		for {
			if _, ok := prioritySet[defaultsPriority]; !ok {
				break
			}
			defaultsPriority--
		}
	}

	layers, err := r.loadLayers(ctx, domain, scopes)
	if err != nil {
		return nil, err
	}
	if defaults == nil {
		defaults = immutable.New[S]()
	}
	defaultsScope := immutable.NewScope("defaults", defaultsPriority, immutable.WithScopeLabel("Defaults"))
	layers = append(layers, immutable.NewLayer(defaultsScope, defaults))
	return r.merge(layers...)
}

// Mutate loads one snapshot, applies fn, validates the result, saves it and
// notifies the activity hooks configured through Options of every changed
// value. A missing record starts from an empty snapshot. Hook errors are
// returned alongside the saved snapshot.
func (r Resolver[S]) Mutate(ctx context.Context, ref Ref, meta Meta, fn Mutator[S]) (*immutable.Immutable[S], Meta, error) {
	if r.Store == nil {
		return nil, Meta{}, fmt.Errorf("state: store is required")
	}
	if ref.Domain == "" {
		return nil, Meta{}, fmt.Errorf("state: domain is required")
	}
	if ref.Scope.Name == "" {
		return nil, Meta{}, fmt.Errorf("state: scope name is required")
	}
	if fn == nil {
		return nil, Meta{}, fmt.Errorf("state: mutator is required")
	}

	current, loadedMeta, ok, err := r.Store.Load(ctx, ref)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("state: load %q for scope %q: %w", ref.Domain, ref.Scope.Name, err)
	}
	if !ok || current == nil {
		current = immutable.New[S]()
		loadedMeta = Meta{}
	}
	current = current.With(r.Options...)

	if meta.ETag != "" && loadedMeta.ETag != "" && meta.ETag != loadedMeta.ETag {
		return nil, loadedMeta, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, meta.ETag, loadedMeta.ETag)
	}

	next, err := fn(current)
	if err != nil {
		return nil, loadedMeta, err
	}
	if next == nil {
		return nil, loadedMeta, fmt.Errorf("state: mutator returned no snapshot")
	}
	next = next.With(r.Options...)
	if err := next.Validate(); err != nil {
		return nil, loadedMeta, err
	}

	saveMeta := mergeMeta(loadedMeta, meta)
	savedMeta, err := r.Store.Save(ctx, ref, next, saveMeta)
	if err != nil {
		return nil, loadedMeta, fmt.Errorf("state: save %q for scope %q: %w", ref.Domain, ref.Scope.Name, err)
	}

	result, err := r.merge(immutable.NewLayer(ref.Scope, next, immutable.WithSnapshotID[S](savedMeta.SnapshotID)))
	if err != nil {
		return nil, loadedMeta, err
	}

	objectID, _ := ref.Identifier()
	notifyErr := result.NotifyChanges(ctx, current, activity.SnapshotEventInput{
		ObjectID: objectID,
		Scope: activity.ScopeContext{
			Name:       ref.Scope.Name,
			Label:      ref.Scope.Label,
			Priority:   ref.Scope.Priority,
			Metadata:   ref.Scope.Metadata,
			SnapshotID: savedMeta.SnapshotID,
		},
		Metadata: map[string]any{"domain": ref.Domain},
	})
	if notifyErr != nil {
		return result, savedMeta, fmt.Errorf("state: notify %q for scope %q: %w", ref.Domain, ref.Scope.Name, notifyErr)
	}
	return result, savedMeta, nil
}

func (r Resolver[S]) loadLayers(ctx context.Context, domain string, scopes []immutable.Scope) ([]immutable.Layer[S], error) {
	layers := make([]immutable.Layer[S], 0, len(scopes)+1)
	for _, scope := range scopes {
		snapshot, meta, ok, err := r.Store.Load(ctx, Ref{Domain: domain, Scope: scope})
		if err != nil {
			return nil, fmt.Errorf("state: load %q for scope %q: %w", domain, scope.Name, err)
		}
		if !ok || snapshot == nil {
			continue
		}
		layers = append(layers, immutable.NewLayer(scope, snapshot, immutable.WithSnapshotID[S](meta.SnapshotID)))
	}
	return layers, nil
}

func (r Resolver[S]) merge(layers ...immutable.Layer[S]) (*immutable.Immutable[S], error) {
	stack, err := immutable.NewStack(layers...)
	if err != nil {
		return nil, fmt.Errorf("state: stack: %w", err)
	}
	opts := make([]immutable.Option, 0, len(r.Options)+1)
	opts = append(opts, r.Options...)
	opts = append(opts, immutable.WithScopeSchema(true))
	return stack.Merge(opts...)
}

func mergeMeta(base, override Meta) Meta {
	out := base
	if override.SnapshotID != "" {
		out.SnapshotID = override.SnapshotID
	}
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return out
}
