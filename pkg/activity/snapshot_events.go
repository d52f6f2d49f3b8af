package activity

import (
	"strings"
	"time"
)

const (
	VerbSnapshotCreated      = "snapshot.created"
	VerbSnapshotUpdated      = "snapshot.updated"
	VerbSnapshotDeleted      = "snapshot.deleted"
	VerbSnapshotLayerApplied = "snapshot.layer.applied"

	ObjectTypeSnapshot      = "snapshot"
	ObjectTypeSnapshotLayer = "snapshot.layer"
)

// ScopeContext captures the scope a snapshot change happened in.
type ScopeContext struct {
	Name       string
	Label      string
	Priority   int
	Metadata   map[string]any
	SnapshotID string
}

// SnapshotEventInput describes one snapshot change. Path is the dotted path
// of the changed value and Schema the schema type identifier.
type SnapshotEventInput struct {
	ActorID        string
	UserID         string
	TenantID       string
	ObjectID       string
	Channel        string
	DefinitionCode string
	Recipients     []string
	Metadata       map[string]any
	Schema         string
	Path           string
	OldValue       any
	NewValue       any
	Scope          ScopeContext
	OccurredAt     time.Time
}

// BuildSnapshotCreatedEvent reports a value that was added.
func BuildSnapshotCreatedEvent(input SnapshotEventInput) Event {
	return buildSnapshotEvent(VerbSnapshotCreated, ObjectTypeSnapshot, input)
}

// BuildSnapshotUpdatedEvent reports a value that changed.
func BuildSnapshotUpdatedEvent(input SnapshotEventInput) Event {
	return buildSnapshotEvent(VerbSnapshotUpdated, ObjectTypeSnapshot, input)
}

// BuildSnapshotDeletedEvent reports a value that was removed.
func BuildSnapshotDeletedEvent(input SnapshotEventInput) Event {
	return buildSnapshotEvent(VerbSnapshotDeleted, ObjectTypeSnapshot, input)
}

// BuildSnapshotLayerAppliedEvent reports a scoped layer merged into a
// snapshot.
func BuildSnapshotLayerAppliedEvent(input SnapshotEventInput) Event {
	return buildSnapshotEvent(VerbSnapshotLayerApplied, ObjectTypeSnapshotLayer, input)
}

func buildSnapshotEvent(verb, objectType string, input SnapshotEventInput) Event {
	metadata := cloneMap(input.Metadata)
	set := func(key string, value any) {
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata[key] = value
	}
	if input.Schema != "" {
		set("schema", input.Schema)
	}
	if input.Path != "" {
		set("path", input.Path)
	}
	if input.Scope.Name != "" {
		set("scope_name", input.Scope.Name)
		set("scope_priority", input.Scope.Priority)
		if input.Scope.Label != "" {
			set("scope_label", input.Scope.Label)
		}
		if len(input.Scope.Metadata) > 0 {
			set("scope_metadata", cloneMap(input.Scope.Metadata))
		}
	}
	if input.Scope.SnapshotID != "" {
		set("snapshot_id", input.Scope.SnapshotID)
	}
	if input.OldValue != nil {
		set("old_value", input.OldValue)
	}
	if input.NewValue != nil {
		set("new_value", input.NewValue)
	}

	var recipients []string
	if len(input.Recipients) > 0 {
		recipients = append([]string{}, input.Recipients...)
	}

	return Event{
		Verb:           verb,
		ActorID:        strings.TrimSpace(input.ActorID),
		UserID:         strings.TrimSpace(input.UserID),
		TenantID:       strings.TrimSpace(input.TenantID),
		ObjectType:     objectType,
		ObjectID:       objectID(objectType, input),
		Channel:        strings.TrimSpace(input.Channel),
		DefinitionCode: strings.TrimSpace(input.DefinitionCode),
		Recipients:     recipients,
		Metadata:       metadata,
		OccurredAt:     input.OccurredAt,
	}
}

// objectID falls back from the explicit id to the path, then the snapshot
// id, then the object type.
func objectID(objectType string, input SnapshotEventInput) string {
	for _, candidate := range []string{input.ObjectID, input.Path, input.Scope.SnapshotID} {
		if id := strings.TrimSpace(candidate); id != "" {
			return id
		}
	}
	return objectType
}
