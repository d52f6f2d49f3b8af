package activity

import (
	"context"
	"errors"
	"slices"
	"strings"
)

// DefaultChannel is the channel stamped on events that do not name one.
const DefaultChannel = "snapshots"

// Config controls how an Emitter publishes events.
type Config struct {
	Enabled bool
	// Channel replaces DefaultChannel when set.
	Channel string
	// Verbs restricts emission to the listed verbs. Empty emits every verb.
	Verbs []string
}

// Emitter publishes snapshot events to hooks, applying a default channel and
// an optional verb filter.
type Emitter struct {
	hooks   Hooks
	enabled bool
	channel string
	verbs   []string
}

// NewEmitter builds an emitter. Nil hooks are dropped; an emitter without
// hooks is disabled.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = DefaultChannel
	}
	compact := hooks.Compact()
	return &Emitter{
		hooks:   compact,
		enabled: cfg.Enabled && len(compact) > 0,
		channel: channel,
		verbs:   slices.Clone(cfg.Verbs),
	}
}

// Enabled reports whether emissions should be attempted.
func (e *Emitter) Enabled() bool {
	return e != nil && e.enabled
}

// Emit publishes one event. Explicit channels are kept.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	if len(e.verbs) > 0 && !slices.Contains(e.verbs, strings.TrimSpace(event.Verb)) {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.channel
	}
	return e.hooks.Notify(ctx, event)
}

// EmitAll publishes events in order and joins the errors. A cancelled
// context stops emission.
func (e *Emitter) EmitAll(ctx context.Context, events []Event) error {
	if !e.Enabled() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var errs []error
	for _, event := range events {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := e.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
