package hydrate

import (
	"fmt"
	"reflect"

	"github.com/goliatone/go-immutable/tree"
)

// Context carries identifiers tied to a decoded snapshot.
type Context struct {
	Schema string
	Scope  string
}

// PreHook lets callers rewrite the node before decoding.
type PreHook func(Context, *tree.Node) (*tree.Node, error)

// PostHook lets callers adjust or validate the decoded value.
type PostHook[T any] func(Context, *T) error

// DecoderOption configures a Decoder instance.
type DecoderOption[T any] func(*Decoder[T])

// Decoder converts nodes into values of type T.
type Decoder[T any] struct {
	preHooks        []PreHook
	postHooks       []PostHook[T]
	disallowUnknown bool
}

// WithPreHook applies hook prior to decoding.
func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.preHooks = append(d.preHooks, hook)
	}
}

// WithPostHook applies hook after decoding completes.
func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.postHooks = append(d.postHooks, hook)
	}
}

// WithDisallowUnknownKeys fails decoding when a node holds a key that no
// struct field maps to.
func WithDisallowUnknownKeys[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.disallowUnknown = true
	}
}

func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode converts node into T applying configured hooks. A nil node decodes
// to the zero value.
func (d *Decoder[T]) Decode(ctx Context, node *tree.Node) (T, error) {
	var zero T

	current := node
	if current == nil {
		current = tree.Empty()
	}
	for _, hook := range d.preHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: pre-hook for %s failed: %w", describe(ctx), err)
		}
		if next != nil {
			current = next
		}
	}

	var result T
	a := assigner{disallowUnknown: d.disallowUnknown}
	if err := a.assign(reflect.ValueOf(&result).Elem(), current, nil); err != nil {
		return zero, fmt.Errorf("hydrate: decode %s: %w", describe(ctx), err)
	}

	for _, hook := range d.postHooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, &result); err != nil {
			return zero, fmt.Errorf("hydrate: post-hook for %s failed: %w", describe(ctx), err)
		}
	}

	return result, nil
}

// Decode converts node into T with default settings.
func Decode[T any](node *tree.Node) (T, error) {
	return NewDecoder[T]().Decode(Context{}, node)
}

// DecodeValue converts a stored value, as returned by tree.Get, into T.
func DecodeValue[T any](value any) (T, error) {
	var out T
	var a assigner
	if err := a.assign(reflect.ValueOf(&out).Elem(), value, nil); err != nil {
		var zero T
		return zero, fmt.Errorf("hydrate: %w", err)
	}
	return out, nil
}

func describe(ctx Context) string {
	schema := ctx.Schema
	if schema == "" {
		schema = "<snapshot>"
	}
	if ctx.Scope == "" {
		return schema
	}
	return fmt.Sprintf("%s scope=%s", schema, ctx.Scope)
}
