// Package structs caches the exported field layout of struct types and the
// tree keys they map to.
package structs

import (
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/puzpuzpuz/xsync/v3"
)

// TagName is the struct tag consulted before the json tag.
const TagName = "imm"

// Field describes one exported, keyed field of a struct type.
type Field struct {
	Name   string
	Key    string
	Index  int
	Offset uintptr
	Type   reflect.Type
}

// Table is the immutable field layout of one struct type.
type Table struct {
	Type   reflect.Type
	Fields []Field
	byKey  map[string]int
}

var tables = xsync.NewMapOf[reflect.Type, *Table]()

// For returns the cached table for t, dereferencing pointer types. It returns
// nil when t is not a struct.
func For(t reflect.Type) *Table {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	table, _ := tables.LoadOrCompute(t, func() *Table {
		return build(t)
	})
	return table
}

// ByKey returns the field stored under key.
func (t *Table) ByKey(key string) (Field, bool) {
	if t == nil {
		return Field{}, false
	}
	idx, ok := t.byKey[key]
	if !ok {
		return Field{}, false
	}
	return t.Fields[idx], true
}

// ByOffset returns the fields starting at offset, outermost first. A struct
// field and its own first field share an offset, so more than one can match.
func (t *Table) ByOffset(offset uintptr) []Field {
	if t == nil {
		return nil
	}
	var out []Field
	for _, field := range t.Fields {
		if field.Offset == offset {
			out = append(out, field)
		}
	}
	return out
}

// Enclosing returns the field whose memory covers offset. Zero-size fields
// cover nothing.
func (t *Table) Enclosing(offset uintptr) (Field, bool) {
	if t == nil {
		return Field{}, false
	}
	for _, field := range t.Fields {
		if offset >= field.Offset && offset < field.Offset+field.Type.Size() {
			return field, true
		}
	}
	return Field{}, false
}

func build(t reflect.Type) *Table {
	table := &Table{Type: t, byKey: map[string]int{}}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		key, ok := KeyName(sf)
		if !ok {
			continue
		}
		if _, dup := table.byKey[key]; dup {
			continue
		}
		table.byKey[key] = len(table.Fields)
		table.Fields = append(table.Fields, Field{
			Name:   sf.Name,
			Key:    key,
			Index:  i,
			Offset: sf.Offset,
			Type:   sf.Type,
		})
	}
	return table
}

// KeyName returns the tree key for sf: the imm tag, else the json tag name,
// else the field name with its first rune lower-cased. Unexported fields and
// fields tagged "-" report false.
func KeyName(sf reflect.StructField) (string, bool) {
	if !sf.IsExported() {
		return "", false
	}
	for _, tag := range []string{TagName, "json"} {
		value, ok := sf.Tag.Lookup(tag)
		if !ok {
			continue
		}
		name, _, _ := strings.Cut(value, ",")
		if name == "-" {
			return "", false
		}
		if name != "" {
			return name, true
		}
	}
	return lowerFirst(sf.Name), true
}

func lowerFirst(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToLower(r)) + name[size:]
}
