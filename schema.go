package immutable

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/goliatone/go-immutable/internal/hydrate"
	"github.com/goliatone/go-immutable/internal/structs"
	"github.com/goliatone/go-immutable/tree"
)

// FieldDescriptor describes one path of a snapshot. Type is the declared Go
// type when the schema declares the field, the stored value's type
// otherwise. Present is false for declared fields the snapshot does not hold.
type FieldDescriptor struct {
	Path    string `json:"path"`
	Type    string `json:"type"`
	Present bool   `json:"present"`
}

// DefaultSchemaGenerator returns the descriptor generator used when no
// generator is configured.
func DefaultSchemaGenerator() SchemaGenerator {
	return descriptorGenerator{}
}

type descriptorGenerator struct{}

func (descriptorGenerator) Generate(schema reflect.Type, node *tree.Node) (SchemaDocument, error) {
	descriptors := describeNode(structs.For(schema), node, nil)
	if descriptors == nil {
		descriptors = []FieldDescriptor{}
	}
	return SchemaDocument{
		Format:   SchemaFormatDescriptors,
		Document: descriptors,
		Fields:   descriptors,
	}, nil
}

// describeNode lists the leaves of node in key order. Declared fields absent
// from node are listed once, without descending into them.
func describeNode(table *structs.Table, node *tree.Node, prefix tree.Path) []FieldDescriptor {
	var out []FieldDescriptor
	seen := map[string]bool{}
	node.Range(func(key string, value any) bool {
		if tree.IsRemoved(value) {
			return true
		}
		seen[key] = true
		path := prefix.Append(key)
		field, declared := table.ByKey(key)
		if child, ok := value.(*tree.Node); ok {
			var childTable *structs.Table
			if declared && hydrate.IsRecord(field.Type) {
				childTable = structs.For(field.Type)
			}
			if child.IsEmpty() && childTable == nil {
				out = append(out, FieldDescriptor{Path: path.String(), Type: "object", Present: true})
				return true
			}
			out = append(out, describeNode(childTable, child, path)...)
			return true
		}
		typeName := valueTypeName(value)
		if declared {
			typeName = field.Type.String()
		}
		out = append(out, FieldDescriptor{Path: path.String(), Type: typeName, Present: true})
		return true
	})
	if table != nil {
		for _, field := range table.Fields {
			if seen[field.Key] {
				continue
			}
			out = append(out, FieldDescriptor{Path: prefix.Append(field.Key).String(), Type: field.Type.String()})
		}
	}
	slices.SortStableFunc(out, func(a, b FieldDescriptor) int {
		switch {
		case a.Path < b.Path:
			return -1
		case a.Path > b.Path:
			return 1
		}
		return 0
	})
	return out
}

func valueTypeName(value any) string {
	switch typed := value.(type) {
	case nil:
		return "nil"
	case []any:
		if len(typed) == 0 {
			return "[]any"
		}
		return "[]" + valueTypeName(typed[0])
	case *tree.Node:
		return "object"
	default:
		return fmt.Sprintf("%T", value)
	}
}

// Schema describes the snapshot with the configured generator. Scope entries
// are added when WithScopeSchema(true) is set: the configured scope and
// every layer of a merged stack.
func (im *Immutable[S]) Schema() (SchemaDocument, error) {
	cfg := im.config()
	doc, err := cfg.generator().Generate(im.SchemaType(), im.Node())
	if err != nil {
		return SchemaDocument{}, err
	}
	if cfg.scopeSchema {
		doc.Scopes = im.schemaScopes()
	}
	return doc, nil
}

func (im *Immutable[S]) schemaScopes() []SchemaScope {
	var scopes []SchemaScope
	seen := map[string]bool{}
	add := func(scope Scope, snapshotID string) {
		if scope.isZero() || seen[scope.Name] {
			return
		}
		seen[scope.Name] = true
		scopes = append(scopes, SchemaScope{
			Name:       scope.Name,
			Label:      scope.Label,
			Priority:   scope.Priority,
			Metadata:   copyMetadata(scope.Metadata),
			SnapshotID: snapshotID,
		})
	}
	for _, layer := range im.layerMeta() {
		add(layer.Scope, layer.SnapshotID)
	}
	add(im.config().scope, "")
	return scopes
}
