package hydrate

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"

	"github.com/goliatone/go-immutable/internal/structs"
	"github.com/goliatone/go-immutable/tree"
)

// RehydrateNode converts a decoded object into the node that Encode would
// have produced for a value of type t. Keys the type does not declare, and
// every key when t is not a record, are converted generically: objects
// become nodes and numbers become int64 or float64. A null entry becomes
// tree.Removed.
func RehydrateNode(t reflect.Type, data map[string]any) (*tree.Node, error) {
	if t != nil && IsRecord(t) {
		return rehydrateRecord(derefType(t), data, nil)
	}
	return genericNode(data), nil
}

// Rehydrate converts decoded data into the stored form of a value of type t.
func Rehydrate(t reflect.Type, data any) (any, error) {
	return rehydrate(t, data, nil)
}

func rehydrate(t reflect.Type, data any, path tree.Path) (any, error) {
	if data == nil {
		return tree.Removed, nil
	}
	if t == nil || t.Kind() == reflect.Interface {
		return generic(data), nil
	}

	if IsRecord(t) {
		object, ok := asObject(data)
		if !ok {
			return nil, fmt.Errorf("hydrate: %s: expected object for %s, got %T", describePath(path), t, data)
		}
		return rehydrateRecord(derefType(t), object, path)
	}

	if t.Kind() == reflect.Slice {
		elem := t.Elem()
		if IsRecord(elem) || elem.Kind() == reflect.Interface {
			items, ok := data.([]any)
			if !ok {
				return nil, fmt.Errorf("hydrate: %s: expected list for %s, got %T", describePath(path), t, data)
			}
			list := make([]any, len(items))
			for i, item := range items {
				if item == nil {
					continue
				}
				value, err := rehydrate(elem, item, path.Append(strconv.Itoa(i)))
				if err != nil {
					return nil, err
				}
				list[i] = value
			}
			return list, nil
		}
	}

	if object, ok := data.(map[any]any); ok {
		data = stringKeys(object)
	}
	out := reflect.New(t).Elem()
	var a assigner
	if err := a.assign(out, data, path); err != nil {
		return nil, fmt.Errorf("hydrate: %w", err)
	}
	return out.Interface(), nil
}

func rehydrateRecord(t reflect.Type, object map[string]any, path tree.Path) (*tree.Node, error) {
	table := structs.For(t)
	node := tree.Empty()
	for key, raw := range object {
		var (
			value any
			err   error
		)
		if field, ok := table.ByKey(key); ok {
			value, err = rehydrate(field.Type, raw, path.Append(key))
		} else {
			value, err = rehydrate(nil, raw, path.Append(key))
		}
		if err != nil {
			return nil, err
		}
		node = node.With(key, value)
	}
	return node, nil
}

func genericNode(object map[string]any) *tree.Node {
	node := tree.Empty()
	for key, raw := range object {
		if raw == nil {
			node = node.With(key, tree.Removed)
			continue
		}
		node = node.With(key, generic(raw))
	}
	return node
}

func generic(data any) any {
	switch typed := data.(type) {
	case map[string]any:
		return genericNode(typed)
	case map[any]any:
		return genericNode(stringKeys(typed))
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			if item != nil {
				out[i] = generic(item)
			}
		}
		return out
	case json.Number:
		if n, err := typed.Int64(); err == nil {
			return n
		}
		if f, err := typed.Float64(); err == nil {
			return f
		}
		return typed.String()
	default:
		return tree.Copy(data)
	}
}

func asObject(data any) (map[string]any, bool) {
	switch typed := data.(type) {
	case map[string]any:
		return typed, true
	case map[any]any:
		return stringKeys(typed), true
	case *tree.Node:
		return typed.ToMap(), true
	}
	return nil, false
}

func stringKeys(object map[any]any) map[string]any {
	out := make(map[string]any, len(object))
	for key, value := range object {
		if nested, ok := value.(map[any]any); ok {
			value = stringKeys(nested)
		}
		out[fmt.Sprint(key)] = value
	}
	return out
}

func derefType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
