// Package hydrate converts Go values to and from their stored tree form.
//
// Records (structs that do not marshal themselves) become nodes keyed by
// their field keys, slices of records become []any of nodes, and every other
// value is stored as a deep-copied leaf. Nil pointers, slices, maps
// and interfaces are not stored.
package hydrate

import (
	"encoding"
	"encoding/json"
	"reflect"

	"github.com/goliatone/go-immutable/internal/structs"
	"github.com/goliatone/go-immutable/tree"
)

var (
	nodeType            = reflect.TypeOf((*tree.Node)(nil))
	textMarshalerType   = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	jsonMarshalerType   = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// IsRecord reports whether values of t are stored as nodes.
func IsRecord(t reflect.Type) bool {
	for t != nil && t.Kind() == reflect.Pointer {
		if t == nodeType {
			return false
		}
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return false
	}
	ptr := reflect.PointerTo(t)
	for _, iface := range []reflect.Type{textMarshalerType, jsonMarshalerType} {
		if t.Implements(iface) || ptr.Implements(iface) {
			return false
		}
	}
	return true
}

// Encode returns the stored form of value. The second result is false when
// value has nothing to store.
func Encode(value any) (any, bool) {
	switch value.(type) {
	case nil:
		return nil, false
	case *tree.Node, tree.Tombstone:
		return value, true
	}
	return encodeValue(reflect.ValueOf(value))
}

// EncodeNode encodes a record, or a map keyed by strings, into a node. Nested
// map[string]any values of a map become nodes. Other values yield the empty
// node.
func EncodeNode(value any) *tree.Node {
	if node, ok := value.(*tree.Node); ok {
		if node == nil {
			return tree.Empty()
		}
		return node
	}
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return tree.Empty()
		}
		rv = rv.Elem()
	}
	switch {
	case rv.Kind() == reflect.Struct && IsRecord(rv.Type()):
		return encodeStruct(rv)
	case rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String:
		node := tree.Empty()
		iter := rv.MapRange()
		for iter.Next() {
			stored, ok := encodeValue(iter.Value())
			if !ok {
				continue
			}
			if object, isObject := stored.(map[string]any); isObject {
				stored = EncodeNode(object)
			}
			node = node.With(iter.Key().String(), stored)
		}
		return node
	}
	return tree.Empty()
}

func encodeValue(rv reflect.Value) (any, bool) {
	if !rv.IsValid() {
		return nil, false
	}
	if rv.Type() == nodeType {
		if rv.IsNil() {
			return nil, false
		}
		return rv.Interface(), true
	}

	switch rv.Kind() {
	case reflect.Interface:
		if rv.IsNil() {
			return nil, false
		}
		return encodeValue(rv.Elem())
	case reflect.Pointer:
		if rv.IsNil() {
			return nil, false
		}
		if IsRecord(rv.Type()) {
			return encodeValue(rv.Elem())
		}
	case reflect.Struct:
		if IsRecord(rv.Type()) {
			return encodeStruct(rv), true
		}
	case reflect.Map:
		if rv.IsNil() {
			return nil, false
		}
	case reflect.Slice:
		if rv.IsNil() {
			return nil, false
		}
		if elem := rv.Type().Elem(); IsRecord(elem) || elem.Kind() == reflect.Interface {
			return encodeList(rv), true
		}
	}

	if !rv.CanInterface() {
		return nil, false
	}
	return tree.Copy(rv.Interface()), true
}

func encodeList(rv reflect.Value) []any {
	list := make([]any, rv.Len())
	for i := range list {
		if value, ok := encodeValue(rv.Index(i)); ok {
			list[i] = value
		}
	}
	return list
}

func encodeStruct(rv reflect.Value) *tree.Node {
	node := tree.Empty()
	for _, field := range structs.For(rv.Type()).Fields {
		value, ok := encodeValue(rv.Field(field.Index))
		if !ok {
			continue
		}
		node = node.With(field.Key, value)
	}
	return node
}
