// Package usersink forwards snapshot activity to a go-users ActivitySink.
package usersink

import (
	"context"
	"maps"
	"strings"
	"time"

	"github.com/goliatone/go-immutable/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook adapts activity events to a go-users ActivitySink. Identifiers that
// are not UUIDs are kept in the record data under "<field>_ref".
type Hook struct {
	Sink usertypes.ActivitySink
	// Channel is used for events without one.
	Channel string
	// Now stamps events without a timestamp. Defaults to time.Now.
	Now func() time.Time
}

// Notify maps the event into an ActivityRecord and forwards it to the sink.
// Events missing a verb, object type or object id are dropped.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}
	normalized := activity.NormalizeEvent(event)
	if normalized.Verb == "" || normalized.ObjectType == "" || normalized.ObjectID == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return h.Sink.Log(ctx, h.record(event, normalized))
}

func (h Hook) record(raw, event activity.Event) usertypes.ActivityRecord {
	data := maps.Clone(event.Metadata)
	set := func(key string, value any) {
		if data == nil {
			data = map[string]any{}
		}
		data[key] = value
	}

	ids := map[string]uuid.UUID{}
	for field, value := range map[string]string{
		"actor":  event.ActorID,
		"user":   event.UserID,
		"tenant": event.TenantID,
	} {
		id, ok := parseUUID(value)
		if !ok && value != "" {
			set(field+"_ref", value)
		}
		ids[field] = id
	}

	if event.DefinitionCode != "" {
		set("definition_code", event.DefinitionCode)
	}
	if len(event.Recipients) > 0 {
		set("recipients", append([]string{}, event.Recipients...))
	}

	channel := event.Channel
	if channel == "" {
		channel = strings.TrimSpace(h.Channel)
	}

	occurredAt := raw.OccurredAt
	if occurredAt.IsZero() {
		now := h.Now
		if now == nil {
			now = time.Now
		}
		occurredAt = now()
	}

	return usertypes.ActivityRecord{
		ActorID:    ids["actor"],
		UserID:     ids["user"],
		TenantID:   ids["tenant"],
		Verb:       event.Verb,
		ObjectType: event.ObjectType,
		ObjectID:   event.ObjectID,
		Channel:    channel,
		Data:       data,
		OccurredAt: occurredAt,
	}
}

func parseUUID(input string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(input))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
