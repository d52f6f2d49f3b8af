package tree

import "reflect"

// Equal reports deep structural equality of two stored values. Nodes compare
// by entries wherever they appear, nil and empty slices or maps compare
// equal, and other leaves fall back to reflect.DeepEqual.
func Equal(a, b any) bool {
	an, aIsNode := a.(*Node)
	bn, bIsNode := b.(*Node)
	if aIsNode || bIsNode {
		return aIsNode && bIsNode && an.Equal(bn)
	}
	return deepEqual(reflect.ValueOf(a), reflect.ValueOf(b))
}

func deepEqual(a, b reflect.Value) bool {
	if !a.IsValid() || !b.IsValid() {
		return a.IsValid() == b.IsValid()
	}
	if a.Type() != b.Type() {
		return false
	}
	if a.Type() == nodeType {
		return a.Interface().(*Node).Equal(b.Interface().(*Node))
	}

	switch a.Kind() {
	case reflect.Interface:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() == b.IsNil()
		}
		return Equal(a.Elem().Interface(), b.Elem().Interface())
	case reflect.Pointer:
		if a.Pointer() == b.Pointer() {
			return true
		}
		if a.IsNil() || b.IsNil() {
			return false
		}
		return deepEqual(a.Elem(), b.Elem())
	case reflect.Slice, reflect.Array:
		if a.Len() != b.Len() {
			return false
		}
		for i := 0; i < a.Len(); i++ {
			if !deepEqual(a.Index(i), b.Index(i)) {
				return false
			}
		}
		return true
	case reflect.Map:
		if a.Len() != b.Len() {
			return false
		}
		iter := a.MapRange()
		for iter.Next() {
			other := b.MapIndex(iter.Key())
			if !other.IsValid() || !deepEqual(iter.Value(), other) {
				return false
			}
		}
		return true
	default:
		if !a.CanInterface() || !b.CanInterface() {
			return false
		}
		return reflect.DeepEqual(a.Interface(), b.Interface())
	}
}
