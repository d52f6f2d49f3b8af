package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch"

	immutable "github.com/goliatone/go-immutable"
	"github.com/goliatone/go-immutable/internal/hydrate"
)

// CreateMergePatch returns the RFC 7386 merge patch that turns from into to.
func CreateMergePatch(from, to immutable.Snapshot) ([]byte, error) {
	original, err := plainJSON(from)
	if err != nil {
		return nil, err
	}
	modified, err := plainJSON(to)
	if err != nil {
		return nil, err
	}
	patch, err := jsonpatch.CreateMergePatch(original, modified)
	if err != nil {
		return nil, fmt.Errorf("codec: create merge patch: %w", err)
	}
	return patch, nil
}

// ApplyMergePatch applies an RFC 7386 merge patch to s. Objects merge
// recursively and null deletes, the same as merging a snapshot holding
// removed entries. The result keeps the options of s.
func ApplyMergePatch[S any](s *immutable.Immutable[S], patch []byte) (*immutable.Immutable[S], error) {
	object, err := decodeObject(patch)
	if err != nil {
		return nil, err
	}
	node, err := hydrate.RehydrateNode(s.SchemaType(), object)
	if err != nil {
		return nil, fmt.Errorf("codec: merge patch: %w", err)
	}
	return s.Merge(immutable.FromNode[S](node)), nil
}

// ApplyJSONPatch applies RFC 6902 operations to the content of s. The
// result keeps the options of s.
func ApplyJSONPatch[S any](s *immutable.Immutable[S], patch []byte) (*immutable.Immutable[S], error) {
	operations, err := jsonpatch.DecodePatch(patch)
	if err != nil {
		return nil, fmt.Errorf("codec: decode json patch: %w", err)
	}
	document, err := plainJSON(s)
	if err != nil {
		return nil, err
	}
	patched, err := operations.Apply(document)
	if err != nil {
		return nil, fmt.Errorf("codec: apply json patch: %w", err)
	}
	object, err := decodeObject(patched)
	if err != nil {
		return nil, err
	}
	node, err := hydrate.RehydrateNode(s.SchemaType(), object)
	if err != nil {
		return nil, fmt.Errorf("codec: json patch: %w", err)
	}
	return s.Merge(s.Diff(immutable.FromNode[S](node))), nil
}

func plainJSON(s immutable.Snapshot) ([]byte, error) {
	if s == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(s.Node().ToMap())
	if err != nil {
		return nil, fmt.Errorf("codec: encode %s: %w", immutable.SchemaTypeID(s.SchemaType()), err)
	}
	return data, nil
}

func decodeObject(data []byte) (map[string]any, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, fmt.Errorf("codec: decode json: %w", err)
	}
	object, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrNotObject, value)
	}
	return object, nil
}
