package openapi

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-immutable/internal/hydrate"
	"github.com/goliatone/go-immutable/internal/structs"
	"github.com/goliatone/go-immutable/tree"
)

type schemaNode struct {
	Ref        string
	Type       string
	Format     string
	Properties map[string]*schemaNode
	Required   []string
	Items      *schemaNode
	Additional *schemaNode
	Enum       []any
	Default    any
	Minimum    *float64
	Maximum    *float64
	MinLength  *int
	MaxLength  *int
	Pattern    string
}

func newObjectNode() *schemaNode {
	return &schemaNode{
		Type:       "object",
		Properties: map[string]*schemaNode{},
	}
}

func (n *schemaNode) openAPI() map[string]any {
	if n == nil {
		return map[string]any{}
	}
	if n.Ref != "" {
		return map[string]any{"$ref": n.Ref}
	}
	result := map[string]any{}
	if n.Type != "" {
		result["type"] = n.Type
	}
	if n.Format != "" {
		result["format"] = n.Format
	}
	if n.Default != nil {
		result["default"] = n.Default
	}
	if len(n.Enum) > 0 {
		result["enum"] = n.Enum
	}
	if n.Minimum != nil {
		result["minimum"] = *n.Minimum
	}
	if n.Maximum != nil {
		result["maximum"] = *n.Maximum
	}
	if n.MinLength != nil {
		result["minLength"] = *n.MinLength
	}
	if n.MaxLength != nil {
		result["maxLength"] = *n.MaxLength
	}
	if n.Pattern != "" {
		result["pattern"] = n.Pattern
	}
	if n.Type == "object" {
		props := make(map[string]any, len(n.Properties))
		for name, child := range n.Properties {
			props[name] = child.openAPI()
		}
		result["properties"] = props
	}
	if len(n.Required) > 0 {
		required := slices.Clone(n.Required)
		slices.Sort(required)
		result["required"] = required
	}
	if n.Items != nil {
		result["items"] = n.Items.openAPI()
	}
	if n.Additional != nil {
		result["additionalProperties"] = n.Additional.openAPI()
	}
	return result
}

// schemaBuilder describes a schema type. Where the type does not fix the
// shape, interfaces and maps, the stored snapshot content is used instead.
type schemaBuilder struct {
	components *componentRegistry
}

func (b *schemaBuilder) buildRoot(rt reflect.Type, node *tree.Node, rootComponent string) (*schemaNode, error) {
	for rt != nil && rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt != nil && hydrate.IsRecord(rt) {
		if rootComponent != "" {
			return b.component(rt, rootComponent)
		}
		return b.buildStruct(rt, node)
	}
	root, err := b.build(rt, node)
	if err != nil {
		return nil, err
	}
	if root.Type == "" {
		root.Type = "object"
		root.Properties = map[string]*schemaNode{}
	}
	return root, nil
}

func (b *schemaBuilder) build(rt reflect.Type, stored any) (*schemaNode, error) {
	for rt != nil && rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt == nil || rt.Kind() == reflect.Interface {
		return b.buildStored(stored)
	}
	if rt == reflect.TypeOf(time.Time{}) {
		return &schemaNode{Type: "string", Format: "date-time"}, nil
	}

	switch rt.Kind() {
	case reflect.Bool:
		return &schemaNode{Type: "boolean"}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return &schemaNode{Type: "integer"}, nil
	case reflect.Float32, reflect.Float64:
		return &schemaNode{Type: "number"}, nil
	case reflect.String:
		return &schemaNode{Type: "string"}, nil
	case reflect.Struct:
		if hydrate.IsRecord(rt) {
			return b.component(rt, rt.Name())
		}
	case reflect.Map:
		return b.buildMap(rt, stored)
	case reflect.Slice, reflect.Array:
		if rt.Kind() == reflect.Slice && rt.Elem().Kind() == reflect.Uint8 {
			return &schemaNode{Type: "string", Format: "byte"}, nil
		}
		var first any
		if list, ok := stored.([]any); ok && len(list) > 0 {
			first = list[0]
		}
		items, err := b.build(rt.Elem(), first)
		if err != nil {
			return nil, err
		}
		return &schemaNode{Type: "array", Items: items}, nil
	}
	return &schemaNode{Type: "string", Format: "go:" + rt.String()}, nil
}

// buildStored describes untyped content from the values a snapshot holds.
func (b *schemaBuilder) buildStored(stored any) (*schemaNode, error) {
	switch typed := stored.(type) {
	case nil, tree.Tombstone:
		return &schemaNode{}, nil
	case map[string]any:
		return b.buildStored(tree.FromMap(typed))
	case *tree.Node:
		node := newObjectNode()
		var err error
		typed.Range(func(key string, value any) bool {
			if tree.IsRemoved(value) {
				return true
			}
			var child *schemaNode
			child, err = b.buildStored(value)
			if err != nil {
				return false
			}
			node.Properties[key] = child
			return true
		})
		return node, err
	case []any:
		var first any
		if len(typed) > 0 {
			first = typed[0]
		}
		items, err := b.buildStored(first)
		if err != nil {
			return nil, err
		}
		return &schemaNode{Type: "array", Items: items}, nil
	default:
		return b.build(reflect.TypeOf(stored), nil)
	}
}

// component publishes a named record type under components and returns a
// reference to it. Anonymous records are described inline.
func (b *schemaBuilder) component(rt reflect.Type, name string) (*schemaNode, error) {
	if name == "" {
		return b.buildStruct(rt, nil)
	}
	ref, known := b.components.reserve(rt, name)
	if !known {
		node, err := b.buildStruct(rt, nil)
		if err != nil {
			return nil, err
		}
		b.components.define(rt, node)
	}
	return &schemaNode{Ref: ref}, nil
}

func (b *schemaBuilder) buildStruct(rt reflect.Type, stored *tree.Node) (*schemaNode, error) {
	node := newObjectNode()
	for _, field := range structs.For(rt).Fields {
		var value any
		if stored != nil {
			value, _ = stored.Lookup(field.Key)
		}
		child, err := b.build(field.Type, value)
		if err != nil {
			return nil, err
		}
		sf := rt.Field(field.Index)
		if child.Ref == "" {
			if err := applyFieldMetadata(child, sf); err != nil {
				return nil, err
			}
		}
		node.Properties[field.Key] = child
		if isFieldRequired(sf) {
			node.Required = append(node.Required, field.Key)
		}
	}
	return node, nil
}

func (b *schemaBuilder) buildMap(rt reflect.Type, stored any) (*schemaNode, error) {
	if rt.Key().Kind() != reflect.String {
		return nil, fmt.Errorf("openapi: map key type %s unsupported", rt.Key())
	}
	node := newObjectNode()
	if rt.Elem().Kind() != reflect.Interface {
		additional, err := b.build(rt.Elem(), nil)
		if err != nil {
			return nil, err
		}
		node.Additional = additional
	}
	if values, ok := stored.(map[string]any); ok {
		stored = tree.FromMap(values)
	}
	if content, ok := stored.(*tree.Node); ok {
		var err error
		content.Range(func(key string, value any) bool {
			if tree.IsRemoved(value) {
				return true
			}
			var child *schemaNode
			child, err = b.build(rt.Elem(), value)
			if err != nil {
				return false
			}
			node.Properties[key] = child
			return true
		})
		if err != nil {
			return nil, err
		}
	}
	return node, nil
}

func isFieldRequired(field reflect.StructField) bool {
	if field.Type.Kind() == reflect.Pointer {
		return false
	}
	for _, tag := range []string{structs.TagName, "json"} {
		if value, ok := field.Tag.Lookup(tag); ok {
			_, options, _ := strings.Cut(value, ",")
			if slices.Contains(strings.Split(options, ","), "omitempty") {
				return false
			}
		}
	}
	return true
}

func applyFieldMetadata(node *schemaNode, field reflect.StructField) error {
	baseType := field.Type
	for baseType.Kind() == reflect.Pointer {
		baseType = baseType.Elem()
	}

	if format := field.Tag.Get("format"); format != "" {
		node.Format = format
	}
	if def := field.Tag.Get("default"); def != "" {
		value, err := parseScalar(baseType, def)
		if err != nil {
			return fmt.Errorf("openapi: parse default for field %s: %w", field.Name, err)
		}
		node.Default = value
	}
	if enum := field.Tag.Get("enum"); enum != "" {
		values, err := parseEnum(baseType, enum)
		if err != nil {
			return fmt.Errorf("openapi: parse enum for field %s: %w", field.Name, err)
		}
		node.Enum = values
	}
	if isNumericKind(baseType.Kind()) {
		if err := parseFloatTag(&node.Minimum, field, "minimum"); err != nil {
			return err
		}
		if err := parseFloatTag(&node.Maximum, field, "maximum"); err != nil {
			return err
		}
	}
	if baseType.Kind() == reflect.String {
		if err := parseIntTag(&node.MinLength, field, "minLength"); err != nil {
			return err
		}
		if err := parseIntTag(&node.MaxLength, field, "maxLength"); err != nil {
			return err
		}
		node.Pattern = field.Tag.Get("pattern")
	}
	return nil
}

func parseFloatTag(target **float64, field reflect.StructField, tag string) error {
	raw := field.Tag.Get(tag)
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("openapi: parse %s for field %s: %w", tag, field.Name, err)
	}
	*target = &value
	return nil
}

func parseIntTag(target **int, field reflect.StructField, tag string) error {
	raw := field.Tag.Get(tag)
	if raw == "" {
		return nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("openapi: parse %s for field %s: %w", tag, field.Name, err)
	}
	*target = &value
	return nil
}

func parseScalar(t reflect.Type, raw string) (any, error) {
	switch t.Kind() {
	case reflect.Bool:
		return strconv.ParseBool(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.ParseInt(raw, 10, t.Bits())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.ParseUint(raw, 10, t.Bits())
	case reflect.Float32, reflect.Float64:
		return strconv.ParseFloat(raw, t.Bits())
	default:
		return raw, nil
	}
}

func parseEnum(t reflect.Type, raw string) ([]any, error) {
	parts := strings.Split(raw, ",")
	values := make([]any, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		value, err := parseScalar(t, part)
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, nil
}

func isNumericKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
