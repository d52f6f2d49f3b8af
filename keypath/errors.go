package keypath

import (
	"fmt"
	"reflect"
)

// UnboundSelectionError reports a selection that could not be mapped to a
// field path of the schema.
type UnboundSelectionError struct {
	Schema reflect.Type
	Target reflect.Type
	Reason string
	Err    error
}

func (e *UnboundSelectionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("keypath: unbound selection of %s on %s: %s", typeName(e.Target), typeName(e.Schema), e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UnboundSelectionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func unbound(schema, target reflect.Type, reason string, err error) *UnboundSelectionError {
	return &UnboundSelectionError{Schema: schema, Target: target, Reason: reason, Err: err}
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

func panicError(recovered any) error {
	if err, ok := recovered.(error); ok {
		return err
	}
	return fmt.Errorf("%v", recovered)
}
