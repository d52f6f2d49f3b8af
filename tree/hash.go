package tree

import (
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
)

var locationType = reflect.TypeOf((*time.Location)(nil))

// Hash returns a 64-bit structural hash of n. Nodes that are Equal hash to
// the same value within and across processes.
func (n *Node) Hash() uint64 {
	h := hasher{digest: xxhash.New()}
	h.node(n)
	return h.digest.Sum64()
}

// hasher walks values the way deepEqual compares them: pointers are
// followed and struct fields are hashed one by one, exported or not.
type hasher struct {
	digest *xxhash.Digest
	// pointers on the current walk, to stop at cycles
	visiting map[uintptr]struct{}
}

func (h *hasher) node(n *Node) {
	h.digest.WriteString("{")
	n.Range(func(key string, value any) bool {
		h.digest.WriteString(key)
		h.digest.WriteString("=")
		h.value(reflect.ValueOf(value))
		h.digest.WriteString(";")
		return true
	})
	h.digest.WriteString("}")
}

func (h *hasher) value(v reflect.Value) {
	digest := h.digest
	if !v.IsValid() {
		digest.WriteString("<nil>")
		return
	}
	if v.Type() == nodeType && v.CanInterface() {
		h.node(v.Interface().(*Node))
		return
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			fmt.Fprintf(digest, "%s(nil)", v.Type())
			return
		}
		h.value(v.Elem())
	case reflect.Pointer:
		if v.IsNil() {
			fmt.Fprintf(digest, "%s(nil)", v.Type())
			return
		}
		if v.Type() == locationType {
			// locations initialize lazily, only the name is stable
			fmt.Fprintf(digest, "location:%s", v.Elem().FieldByName("name").String())
			return
		}
		addr := v.Pointer()
		if _, ok := h.visiting[addr]; ok {
			fmt.Fprintf(digest, "%s(cycle)", v.Type())
			return
		}
		if h.visiting == nil {
			h.visiting = map[uintptr]struct{}{}
		}
		h.visiting[addr] = struct{}{}
		h.value(v.Elem())
		delete(h.visiting, addr)
	case reflect.Slice, reflect.Array:
		fmt.Fprintf(digest, "%s[", v.Type())
		for i := 0; i < v.Len(); i++ {
			h.value(v.Index(i))
			digest.WriteString(",")
		}
		digest.WriteString("]")
	case reflect.Map:
		keys := v.MapKeys()
		labels := make([]string, len(keys))
		order := make([]int, len(keys))
		for i, key := range keys {
			labels[i] = fmt.Sprint(key)
			order[i] = i
		}
		sort.Slice(order, func(i, j int) bool { return labels[order[i]] < labels[order[j]] })
		fmt.Fprintf(digest, "%s{", v.Type())
		for _, i := range order {
			digest.WriteString(labels[i])
			digest.WriteString(":")
			h.value(v.MapIndex(keys[i]))
			digest.WriteString(",")
		}
		digest.WriteString("}")
	case reflect.Struct:
		fmt.Fprintf(digest, "%s{", v.Type())
		for i := 0; i < v.NumField(); i++ {
			h.value(v.Field(i))
			digest.WriteString(",")
		}
		digest.WriteString("}")
	case reflect.Bool:
		fmt.Fprintf(digest, "%s:%t", v.Type(), v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		fmt.Fprintf(digest, "%s:%d", v.Type(), v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		fmt.Fprintf(digest, "%s:%d", v.Type(), v.Uint())
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if f == 0 {
			f = 0 // -0 == +0
		}
		fmt.Fprintf(digest, "%s:%v", v.Type(), f)
	case reflect.Complex64, reflect.Complex128:
		fmt.Fprintf(digest, "%s:%v", v.Type(), v.Complex())
	case reflect.String:
		fmt.Fprintf(digest, "%s:%q", v.Type(), v.String())
	default:
		// funcs, channels and unsafe pointers only contribute their type
		fmt.Fprintf(digest, "%s", v.Type())
	}
}
