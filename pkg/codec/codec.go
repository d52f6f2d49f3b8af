// Package codec serializes snapshots as {type, data} envelopes in JSON or
// YAML. The type is the schema type id of the snapshot and data its content
// as plain nested objects, with null for removed entries.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/goccy/go-yaml"

	immutable "github.com/goliatone/go-immutable"
	"github.com/goliatone/go-immutable/internal/hydrate"
)

// Format names an envelope encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Envelope is the serialized form of a snapshot.
type Envelope struct {
	Type string         `json:"type" yaml:"type"`
	Data map[string]any `json:"data" yaml:"data"`
}

// Option configures a Codec.
type Option func(*config)

type config struct {
	format      Format
	registry    *Registry
	diagnostics DiagnosticHandler
}

func applyOptions(opts []Option) config {
	cfg := config{format: FormatJSON}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.registry == nil {
		cfg.registry = NewRegistry()
	}
	if cfg.diagnostics == nil {
		cfg.diagnostics = noopDiagnostics{}
	}
	return cfg
}

// WithFormat selects the envelope encoding. JSON is the default.
func WithFormat(format Format) Option {
	return func(cfg *config) {
		cfg.format = format
	}
}

// WithRegistry sets the registry type ids are resolved against.
func WithRegistry(registry *Registry) Option {
	return func(cfg *config) {
		cfg.registry = registry
	}
}

// WithDiagnostics sets the handler told about payloads decoded as untyped
// snapshots.
func WithDiagnostics(handler DiagnosticHandler) Option {
	return func(cfg *config) {
		cfg.diagnostics = handler
	}
}

// Codec encodes and decodes snapshot envelopes. It is safe for concurrent
// use.
type Codec struct {
	cfg config
}

// New returns a codec configured by opts.
func New(opts ...Option) (*Codec, error) {
	cfg := applyOptions(opts)
	switch cfg.format {
	case FormatJSON, FormatYAML:
	default:
		return nil, fmt.Errorf("codec: unsupported format %q", cfg.format)
	}
	return &Codec{cfg: cfg}, nil
}

// Format returns the envelope encoding.
func (c *Codec) Format() Format {
	return c.cfg.format
}

// Registry returns the registry type ids are resolved against.
func (c *Codec) Registry() *Registry {
	return c.cfg.registry
}

// Marshal encodes s as an envelope.
func (c *Codec) Marshal(s immutable.Snapshot) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("codec: snapshot must not be nil")
	}
	envelope := Envelope{
		Type: immutable.SchemaTypeID(s.SchemaType()),
		Data: s.Node().ToMap(),
	}
	data, err := c.encode(envelope)
	if err != nil {
		return nil, fmt.Errorf("codec: encode %s: %w", envelope.Type, err)
	}
	return data, nil
}

// Unmarshal decodes an envelope into a snapshot of its registered schema.
// A type id the registry does not know yields an untyped
// *immutable.Immutable[map[string]any] and an UnresolvableSchemaError
// diagnostic.
func (c *Codec) Unmarshal(data []byte) (immutable.Snapshot, error) {
	envelope, err := c.decode(data)
	if err != nil {
		return nil, err
	}
	build, ok := c.cfg.registry.lookup(envelope.Type)
	if !ok {
		c.cfg.diagnostics.Report(Diagnostic{
			TypeID: envelope.Type,
			Format: c.cfg.format,
			Err:    &UnresolvableSchemaError{TypeID: envelope.Type},
		})
		node, err := hydrate.RehydrateNode(nil, envelope.Data)
		if err != nil {
			return nil, fmt.Errorf("codec: %w", err)
		}
		return immutable.FromNode[map[string]any](node), nil
	}
	snapshot, err := build(envelope.Data)
	if err != nil {
		return nil, fmt.Errorf("codec: decode %s: %w", envelope.Type, err)
	}
	return snapshot, nil
}

// UnmarshalAs decodes an envelope into a snapshot of schema S without
// consulting the registry. An envelope of another schema fails with
// ErrTypeMismatch; one without a type is accepted.
func UnmarshalAs[S any](c *Codec, data []byte, opts ...immutable.Option) (*immutable.Immutable[S], error) {
	envelope, err := c.decode(data)
	if err != nil {
		return nil, err
	}
	schema := reflect.TypeFor[S]()
	if want := immutable.SchemaTypeID(schema); envelope.Type != "" && envelope.Type != want {
		return nil, fmt.Errorf("%w: payload holds %q, want %q", ErrTypeMismatch, envelope.Type, want)
	}
	node, err := hydrate.RehydrateNode(schema, envelope.Data)
	if err != nil {
		return nil, fmt.Errorf("codec: decode %s: %w", envelope.Type, err)
	}
	return immutable.FromNode[S](node, opts...), nil
}

func (c *Codec) encode(envelope Envelope) ([]byte, error) {
	if c.cfg.format == FormatYAML {
		return yaml.Marshal(envelope)
	}
	return json.Marshal(envelope)
}

func (c *Codec) decode(data []byte) (Envelope, error) {
	var raw struct {
		Type string `json:"type" yaml:"type"`
		Data any    `json:"data" yaml:"data"`
	}
	if c.cfg.format == FormatYAML {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Envelope{}, fmt.Errorf("codec: decode yaml: %w", err)
		}
	} else {
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.UseNumber()
		if err := decoder.Decode(&raw); err != nil {
			return Envelope{}, fmt.Errorf("codec: decode json: %w", err)
		}
	}
	object, err := asObject(raw.Data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: raw.Type, Data: object}, nil
}

// asObject accepts a decoded mapping. YAML decoders may produce maps keyed
// by any; keys are formatted as strings.
func asObject(value any) (map[string]any, error) {
	switch typed := value.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return typed, nil
	case map[any]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[fmt.Sprint(key)] = item
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: got %T", ErrNotObject, value)
	}
}
