package hydrate

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/goliatone/go-immutable/internal/structs"
	"github.com/goliatone/go-immutable/tree"
)

type assigner struct {
	disallowUnknown bool
}

func (a assigner) assign(dst reflect.Value, value any, path tree.Path) error {
	if value == nil || tree.IsRemoved(value) {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	switch dst.Kind() {
	case reflect.Interface:
		plain := Plain(value)
		rv := reflect.ValueOf(plain)
		if !rv.Type().AssignableTo(dst.Type()) {
			return mismatch(value, dst.Type(), path)
		}
		dst.Set(rv)
		return nil
	case reflect.Pointer:
		if rv := reflect.ValueOf(value); rv.Type().AssignableTo(dst.Type()) {
			dst.Set(reflect.ValueOf(tree.Copy(value)))
			return nil
		}
		elem := reflect.New(dst.Type().Elem())
		if err := a.assign(elem.Elem(), value, path); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	}

	switch typed := value.(type) {
	case *tree.Node:
		return a.assignNode(dst, typed, path)
	case map[string]any:
		if dst.Kind() == reflect.Struct {
			return a.assignNode(dst, tree.FromMap(typed), path)
		}
	case json.Number:
		return assignNumber(dst, typed, path)
	case string:
		if isByteSlice(dst.Type()) && !reflect.PointerTo(dst.Type()).Implements(jsonUnmarshalerType) {
			// encoding/json writes []byte as standard base64
			raw, err := base64.StdEncoding.DecodeString(typed)
			if err != nil {
				return fmt.Errorf("%s: %w", describePath(path), err)
			}
			dst.SetBytes(raw)
			return nil
		}
		if dst.Kind() != reflect.String && reflect.PointerTo(dst.Type()).Implements(textUnmarshalerType) {
			if err := dst.Addr().Interface().(interface{ UnmarshalText([]byte) error }).UnmarshalText([]byte(typed)); err != nil {
				return fmt.Errorf("%s: %w", describePath(path), err)
			}
			return nil
		}
	}

	rv := reflect.ValueOf(value)
	if rv.Type().AssignableTo(dst.Type()) {
		dst.Set(reflect.ValueOf(tree.Copy(value)))
		return nil
	}

	switch {
	case dst.Kind() == reflect.Slice && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array):
		out := reflect.MakeSlice(dst.Type(), rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			if err := a.assign(out.Index(i), rv.Index(i).Interface(), path.Append(strconv.Itoa(i))); err != nil {
				return err
			}
		}
		dst.Set(out)
		return nil
	case dst.Kind() == reflect.Array && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array):
		if rv.Len() > dst.Len() {
			return fmt.Errorf("%s: %d elements do not fit %s", describePath(path), rv.Len(), dst.Type())
		}
		for i := 0; i < rv.Len(); i++ {
			if err := a.assign(dst.Index(i), rv.Index(i).Interface(), path.Append(strconv.Itoa(i))); err != nil {
				return err
			}
		}
		return nil
	case dst.Kind() == reflect.Map && rv.Kind() == reflect.Map:
		out := reflect.MakeMapWithSize(dst.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key, err := convertKey(iter.Key(), dst.Type().Key())
			if err != nil {
				return fmt.Errorf("%s: %w", describePath(path), err)
			}
			elem := reflect.New(dst.Type().Elem()).Elem()
			if err := a.assign(elem, iter.Value().Interface(), path.Append(fmt.Sprint(iter.Key().Interface()))); err != nil {
				return err
			}
			out.SetMapIndex(key, elem)
		}
		dst.Set(out)
		return nil
	case isNumeric(dst.Kind()) && isNumeric(rv.Kind()):
		return assignNumeric(dst, rv, path)
	case dst.Kind() == rv.Kind() && rv.Type().ConvertibleTo(dst.Type()):
		dst.Set(rv.Convert(dst.Type()))
		return nil
	}
	return mismatch(value, dst.Type(), path)
}

func (a assigner) assignNode(dst reflect.Value, node *tree.Node, path tree.Path) error {
	switch dst.Kind() {
	case reflect.Struct:
		table := structs.For(dst.Type())
		out := reflect.New(dst.Type()).Elem()
		var err error
		node.Range(func(key string, value any) bool {
			field, ok := table.ByKey(key)
			if !ok {
				if a.disallowUnknown {
					err = fmt.Errorf("%s: unknown key %q for %s", describePath(path), key, dst.Type())
					return false
				}
				return true
			}
			err = a.assign(out.Field(field.Index), value, path.Append(key))
			return err == nil
		})
		if err != nil {
			return err
		}
		dst.Set(out)
		return nil
	case reflect.Map:
		keyType := dst.Type().Key()
		out := reflect.MakeMapWithSize(dst.Type(), node.Len())
		var err error
		node.Range(func(key string, value any) bool {
			if tree.IsRemoved(value) {
				return true
			}
			var k reflect.Value
			k, err = convertKey(reflect.ValueOf(key), keyType)
			if err != nil {
				return false
			}
			elem := reflect.New(dst.Type().Elem()).Elem()
			err = a.assign(elem, value, path.Append(key))
			if err != nil {
				return false
			}
			out.SetMapIndex(k, elem)
			return true
		})
		if err != nil {
			return err
		}
		dst.Set(out)
		return nil
	}
	return mismatch(node, dst.Type(), path)
}

// Plain converts a stored value into plain Go data: nodes become
// map[string]any, lists are converted element-wise and leaves are copied.
func Plain(value any) any {
	switch typed := value.(type) {
	case *tree.Node:
		out := make(map[string]any, typed.Len())
		typed.Range(func(key string, v any) bool {
			if !tree.IsRemoved(v) {
				out[key] = Plain(v)
			}
			return true
		})
		return out
	case []any:
		out := make([]any, len(typed))
		for i := range typed {
			out[i] = Plain(typed[i])
		}
		return out
	case tree.Tombstone:
		return nil
	default:
		return tree.Copy(value)
	}
}

func assignNumber(dst reflect.Value, number json.Number, path tree.Path) error {
	switch dst.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := number.Int64()
		if err != nil {
			return fmt.Errorf("%s: %w", describePath(path), err)
		}
		return assignNumeric(dst, reflect.ValueOf(n), path)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, err := strconv.ParseUint(number.String(), 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", describePath(path), err)
		}
		return assignNumeric(dst, reflect.ValueOf(n), path)
	case reflect.Float32, reflect.Float64:
		n, err := number.Float64()
		if err != nil {
			return fmt.Errorf("%s: %w", describePath(path), err)
		}
		return assignNumeric(dst, reflect.ValueOf(n), path)
	case reflect.String:
		dst.SetString(number.String())
		return nil
	}
	return mismatch(number, dst.Type(), path)
}

func assignNumeric(dst, src reflect.Value, path tree.Path) error {
	switch dst.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		var n int64
		switch {
		case isInt(src.Kind()):
			n = src.Int()
		case isUint(src.Kind()):
			if src.Uint() > math.MaxInt64 {
				return overflow(src, dst.Type(), path)
			}
			n = int64(src.Uint())
		default:
			f := src.Float()
			if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
				return overflow(src, dst.Type(), path)
			}
			n = int64(f)
		}
		if dst.OverflowInt(n) {
			return overflow(src, dst.Type(), path)
		}
		dst.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		var n uint64
		switch {
		case isInt(src.Kind()):
			if src.Int() < 0 {
				return overflow(src, dst.Type(), path)
			}
			n = uint64(src.Int())
		case isUint(src.Kind()):
			n = src.Uint()
		default:
			f := src.Float()
			if f != math.Trunc(f) || f < 0 || f > math.MaxUint64 {
				return overflow(src, dst.Type(), path)
			}
			n = uint64(f)
		}
		if dst.OverflowUint(n) {
			return overflow(src, dst.Type(), path)
		}
		dst.SetUint(n)
	default:
		var f float64
		switch {
		case isInt(src.Kind()):
			f = float64(src.Int())
		case isUint(src.Kind()):
			f = float64(src.Uint())
		default:
			f = src.Float()
		}
		dst.SetFloat(f)
	}
	return nil
}

func convertKey(key reflect.Value, keyType reflect.Type) (reflect.Value, error) {
	if key.Kind() == reflect.Interface {
		key = key.Elem()
	}
	if key.Type().AssignableTo(keyType) {
		return key, nil
	}
	if key.Kind() == keyType.Kind() && key.Type().ConvertibleTo(keyType) {
		return key.Convert(keyType), nil
	}
	if key.Kind() == reflect.String && isNumeric(keyType.Kind()) {
		out := reflect.New(keyType).Elem()
		if err := assignNumber(out, json.Number(key.String()), nil); err != nil {
			return reflect.Value{}, err
		}
		return out, nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use key %v as %s", key.Interface(), keyType)
}

var jsonUnmarshalerType = reflect.TypeOf((*json.Unmarshaler)(nil)).Elem()

func isByteSlice(t reflect.Type) bool {
	return t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8
}

func isInt(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUint(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func isNumeric(k reflect.Kind) bool {
	return isInt(k) || isUint(k) || k == reflect.Float32 || k == reflect.Float64
}

func mismatch(value any, target reflect.Type, path tree.Path) error {
	return fmt.Errorf("%s: cannot assign %T to %s", describePath(path), value, target)
}

func overflow(src reflect.Value, target reflect.Type, path tree.Path) error {
	return fmt.Errorf("%s: %v does not fit %s", describePath(path), src.Interface(), target)
}

func describePath(path tree.Path) string {
	if len(path) == 0 {
		return "<root>"
	}
	return path.String()
}
