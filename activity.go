package immutable

import (
	"context"

	"github.com/goliatone/go-immutable/pkg/activity"
)

// WithActivityHooks sets the hooks notified by NotifyChanges. Nil hooks are
// dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	compact := hooks.Compact()
	return func(cfg *config) {
		cfg.activityHooks = compact
	}
}

// WithActivityConfig sets the channel and verb filter NotifyChanges emits
// with. Enabled is ignored: configured hooks are always notified.
func WithActivityConfig(activityCfg activity.Config) Option {
	return func(cfg *config) {
		cfg.activityConfig = activityCfg
	}
}

// ActivityHooks returns a copy of the configured hooks.
func (im *Immutable[S]) ActivityHooks() activity.Hooks {
	return im.config().activityHooks.Compact()
}

// ChangeEvents builds one activity event per change from previous to im.
// Added values produce created events, removed values deleted events and
// everything else updated events. Fields of input other than the path and
// values are copied to every event.
func (im *Immutable[S]) ChangeEvents(previous Snapshot, input activity.SnapshotEventInput) []activity.Event {
	changes := im.Changes(previous)
	if len(changes) == 0 {
		return nil
	}
	if input.Schema == "" {
		input.Schema = SchemaTypeID(im.SchemaType())
	}
	if input.Scope.Name == "" {
		input.Scope = scopeContext(im.config().scope)
	}
	events := make([]activity.Event, 0, len(changes))
	for _, change := range changes {
		in := input
		in.Path = change.Path
		in.OldValue = change.Old
		in.NewValue = change.New
		switch {
		case change.Added:
			events = append(events, activity.BuildSnapshotCreatedEvent(in))
		case change.Removed:
			events = append(events, activity.BuildSnapshotDeletedEvent(in))
		default:
			events = append(events, activity.BuildSnapshotUpdatedEvent(in))
		}
	}
	return events
}

// NotifyChanges sends ChangeEvents to the configured hooks and returns the
// joined hook errors.
func (im *Immutable[S]) NotifyChanges(ctx context.Context, previous Snapshot, input activity.SnapshotEventInput) error {
	cfg := im.config()
	emitterCfg := cfg.activityConfig
	emitterCfg.Enabled = true
	emitter := activity.NewEmitter(cfg.activityHooks, emitterCfg)
	if !emitter.Enabled() {
		return nil
	}
	return emitter.EmitAll(ctx, im.ChangeEvents(previous, input))
}

// LayerEvents builds one layer applied event per layer of a merged stack.
func (im *Immutable[S]) LayerEvents(input activity.SnapshotEventInput) []activity.Event {
	layers := im.layerMeta()
	if len(layers) == 0 {
		return nil
	}
	if input.Schema == "" {
		input.Schema = SchemaTypeID(im.SchemaType())
	}
	events := make([]activity.Event, 0, len(layers))
	for _, layer := range layers {
		in := input
		in.Scope = scopeContext(layer.Scope)
		in.Scope.SnapshotID = layer.SnapshotID
		events = append(events, activity.BuildSnapshotLayerAppliedEvent(in))
	}
	return events
}

func scopeContext(scope Scope) activity.ScopeContext {
	return activity.ScopeContext{
		Name:     scope.Name,
		Label:    scope.Label,
		Priority: scope.Priority,
		Metadata: copyMetadata(scope.Metadata),
	}
}
