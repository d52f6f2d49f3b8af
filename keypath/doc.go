// Package keypath turns a typed field selection into the list of tree keys
// that addresses that field inside a snapshot.
//
// A selection is a function that receives a virtual root of the schema type
// and returns the address of one of its fields:
//
//	key, err := keypath.Resolve(ctx, func(p *Page) *bool { return &p.Pojo.WantToClose })
//	// key.Path() == tree.Path{"pojo", "wantToClose"}
//
// The virtual root is a zero-valued instance of the schema. Nested
// pointer-to-struct fields are pre-allocated up to the context's max depth, so
// selections can walk through them without nil checks. The returned address
// is mapped back to a field path from the struct layout: the root and every
// pre-allocated struct form an address region with a known key prefix, and
// the offset inside a region is matched against the field table of its type.
//
// Field keys come from the `imm` tag, then the `json` tag name, then the Go
// field name with its first rune lower-cased. Fields tagged "-" and
// unexported fields cannot be selected.
//
// A Context caches one layout per schema type: which structs a root
// pre-allocates and the key prefix of each. Every resolution allocates a
// root of its own from that layout, so a Context may be shared between
// goroutines and a selector that writes to its argument changes nothing
// outside its own call. RootOf publishes one more root per schema for
// selections that capture it; it is checked for writes whenever it is
// handed out and replaced when dirty.
//
// Keys can also be built without a selector through Field and Join when the
// path is known up front.
package keypath
