package state_test

import (
	"context"
	"errors"
	"testing"

	immutable "github.com/goliatone/go-immutable"
	"github.com/goliatone/go-immutable/pkg/activity"
	"github.com/goliatone/go-immutable/pkg/state"
)

type mutateStore[S any] struct {
	loadSnapshot *immutable.Immutable[S]
	loadMeta     state.Meta
	loadOK       bool
	loadErr      error

	saveCalls  int
	savedRef   state.Ref
	savedMeta  state.Meta
	savedValue *immutable.Immutable[S]
	saveReturn state.Meta
	saveErr    error
}

func (s *mutateStore[S]) Load(_ context.Context, ref state.Ref) (*immutable.Immutable[S], state.Meta, bool, error) {
	if s.loadErr != nil {
		return nil, state.Meta{}, false, s.loadErr
	}
	return s.loadSnapshot, s.loadMeta, s.loadOK, nil
}

func (s *mutateStore[S]) Save(_ context.Context, ref state.Ref, snapshot *immutable.Immutable[S], meta state.Meta) (state.Meta, error) {
	s.saveCalls++
	s.savedRef = ref
	s.savedMeta = meta
	s.savedValue = snapshot
	if s.saveErr != nil {
		return state.Meta{}, s.saveErr
	}
	return s.saveReturn, nil
}

type validatingConfig struct {
	Name string `json:"name"`
}

func (c validatingConfig) Validate() error {
	if c.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func userRef() state.Ref {
	return state.Ref{
		Domain: "notifications",
		Scope:  immutable.NewScope("user", immutable.ScopePriorityUser, immutable.WithScopeMetadata(map[string]any{"user_id": "u42"})),
	}
}

func rename(name string) state.Mutator[validatingConfig] {
	return func(current *immutable.Immutable[validatingConfig]) (*immutable.Immutable[validatingConfig], error) {
		return immutable.In(current, func(c *validatingConfig) *string { return &c.Name }).Set(name)
	}
}

func TestResolverMutateValidationFailureDoesNotSave(t *testing.T) {
	store := &mutateStore[validatingConfig]{
		loadSnapshot: immutable.Of(validatingConfig{Name: "ok"}),
		loadMeta:     state.Meta{SnapshotID: "snap-1", ETag: "v1"},
		loadOK:       true,
		saveReturn:   state.Meta{SnapshotID: "snap-2", ETag: "v2"},
	}

	resolver := state.Resolver[validatingConfig]{Store: store}
	_, _, err := resolver.Mutate(context.Background(), userRef(), state.Meta{ETag: "v1"}, rename(""))
	if err == nil || err.Error() != "name is required" {
		t.Fatalf("expected validation error, got %v", err)
	}
	if store.saveCalls != 0 {
		t.Fatalf("expected no save calls, got %d", store.saveCalls)
	}
}

func TestResolverMutateRulesFromOptions(t *testing.T) {
	store := &mutateStore[validatingConfig]{saveReturn: state.Meta{SnapshotID: "snap-1"}}
	resolver := state.Resolver[validatingConfig]{
		Store:   store,
		Options: []immutable.Option{immutable.WithRule("short-name", "len(name) <= 5")},
	}

	_, _, err := resolver.Mutate(context.Background(), userRef(), state.Meta{}, rename("much-too-long"))
	var violation *immutable.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected rule violation, got %v", err)
	}
	if store.saveCalls != 0 {
		t.Fatalf("expected no save calls, got %d", store.saveCalls)
	}

	if _, _, err := resolver.Mutate(context.Background(), userRef(), state.Meta{}, rename("short")); err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if store.saveCalls != 1 || store.savedValue.MustObject().Name != "short" {
		t.Fatalf("expected one save of the new snapshot, got %d", store.saveCalls)
	}
}

func TestResolverMutatePropagatesMetaAndSnapshotID(t *testing.T) {
	store := &mutateStore[map[string]any]{
		loadSnapshot: immutable.Of(map[string]any{
			"notifications": map[string]any{
				"email": map[string]any{"enabled": false},
			},
		}),
		loadMeta:   state.Meta{SnapshotID: "snap-old", ETag: "v1"},
		loadOK:     true,
		saveReturn: state.Meta{SnapshotID: "snap-new", ETag: "v2"},
	}

	resolver := state.Resolver[map[string]any]{Store: store}
	snapshot, gotMeta, err := resolver.Mutate(context.Background(), userRef(), state.Meta{ETag: "v1"}, func(current *immutable.Immutable[map[string]any]) (*immutable.Immutable[map[string]any], error) {
		return current.SetPath("notifications.email.enabled", true)
	})
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if gotMeta.SnapshotID != "snap-new" || gotMeta.ETag != "v2" {
		t.Fatalf("expected saved meta snap-new/v2, got %q/%q", gotMeta.SnapshotID, gotMeta.ETag)
	}

	if store.saveCalls != 1 {
		t.Fatalf("expected 1 save call, got %d", store.saveCalls)
	}
	if store.savedMeta.SnapshotID != "snap-old" || store.savedMeta.ETag != "v1" {
		t.Fatalf("expected save meta snap-old/v1, got %q/%q", store.savedMeta.SnapshotID, store.savedMeta.ETag)
	}

	// Provenance should reflect the saved SnapshotID.
	_, trace, err := snapshot.ResolveWithTrace("notifications.email.enabled")
	if err != nil {
		t.Fatalf("trace: %v", err)
	}
	if len(trace.Layers) != 1 {
		t.Fatalf("expected 1 trace layer, got %d", len(trace.Layers))
	}
	if trace.Layers[0].SnapshotID != "snap-new" || trace.Layers[0].Scope.Name != "user" {
		t.Fatalf("expected trace snapshot=snap-new scope=user, got snapshot=%q scope=%q", trace.Layers[0].SnapshotID, trace.Layers[0].Scope.Name)
	}

	doc, err := snapshot.Schema()
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	if len(doc.Scopes) != 1 {
		t.Fatalf("expected 1 schema scope, got %d", len(doc.Scopes))
	}
	if doc.Scopes[0].SnapshotID != "snap-new" || doc.Scopes[0].Name != "user" {
		t.Fatalf("expected schema snapshot=snap-new scope=user, got snapshot=%q scope=%q", doc.Scopes[0].SnapshotID, doc.Scopes[0].Name)
	}
}

func TestResolverMutateNotifiesChanges(t *testing.T) {
	capture := &activity.CaptureHook{}
	store := state.NewMemoryStore[validatingConfig]()
	resolver := state.Resolver[validatingConfig]{
		Store:   store,
		Options: []immutable.Option{immutable.WithActivityHooks(activity.Hooks{capture})},
	}

	if _, _, err := resolver.Mutate(context.Background(), userRef(), state.Meta{SnapshotID: "s1"}, rename("first")); err != nil {
		t.Fatalf("first mutate: %v", err)
	}
	if _, _, err := resolver.Mutate(context.Background(), userRef(), state.Meta{}, rename("second")); err != nil {
		t.Fatalf("second mutate: %v", err)
	}

	if len(capture.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(capture.Events))
	}
	created, updated := capture.Events[0], capture.Events[1]
	if created.Verb != activity.VerbSnapshotCreated || updated.Verb != activity.VerbSnapshotUpdated {
		t.Fatalf("expected created then updated, got %q then %q", created.Verb, updated.Verb)
	}
	if updated.ObjectID != "user/u42/notifications" {
		t.Fatalf("expected object id from ref, got %q", updated.ObjectID)
	}
	if updated.Metadata["domain"] != "notifications" || updated.Metadata["snapshot_id"] != "s1" {
		t.Fatalf("unexpected event metadata %v", updated.Metadata)
	}
}

func TestResolverMutateETagMismatch(t *testing.T) {
	store := &mutateStore[validatingConfig]{
		loadSnapshot: immutable.Of(validatingConfig{Name: "ok"}),
		loadMeta:     state.Meta{SnapshotID: "snap-1", ETag: "v1"},
		loadOK:       true,
		saveReturn:   state.Meta{SnapshotID: "snap-2", ETag: "v2"},
	}

	resolver := state.Resolver[validatingConfig]{Store: store}
	_, _, err := resolver.Mutate(context.Background(), userRef(), state.Meta{ETag: "v2"}, rename("still-ok"))
	if err == nil || !errors.Is(err, state.ErrETagMismatch) {
		t.Fatalf("expected ErrETagMismatch, got %v", err)
	}
	if store.saveCalls != 0 {
		t.Fatalf("expected no save calls, got %d", store.saveCalls)
	}
}

func TestResolverMutateRequiresInputs(t *testing.T) {
	store := &mutateStore[validatingConfig]{}
	resolver := state.Resolver[validatingConfig]{Store: store}

	if _, _, err := resolver.Mutate(context.Background(), state.Ref{Scope: userRef().Scope}, state.Meta{}, rename("x")); err == nil {
		t.Fatalf("expected missing domain to fail")
	}
	if _, _, err := resolver.Mutate(context.Background(), userRef(), state.Meta{}, nil); err == nil {
		t.Fatalf("expected missing mutator to fail")
	}
	nilResult := func(*immutable.Immutable[validatingConfig]) (*immutable.Immutable[validatingConfig], error) { return nil, nil }
	if _, _, err := resolver.Mutate(context.Background(), userRef(), state.Meta{}, nilResult); err == nil {
		t.Fatalf("expected nil snapshot to fail")
	}
	store.loadErr = errors.New("boom")
	if _, _, err := resolver.Mutate(context.Background(), userRef(), state.Meta{}, rename("x")); err == nil || !errors.Is(err, store.loadErr) {
		t.Fatalf("expected load error, got %v", err)
	}
}
