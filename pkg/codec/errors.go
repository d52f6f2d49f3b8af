package codec

import (
	"errors"
	"fmt"
)

var (
	// ErrTypeMismatch is returned by UnmarshalAs when the payload holds
	// another schema.
	ErrTypeMismatch = errors.New("codec: schema type mismatch")
	// ErrNotObject is returned when envelope data or a merge patch is not
	// an object.
	ErrNotObject = errors.New("codec: data must be an object")
)

// UnresolvableSchemaError reports a payload whose type id no registered
// schema matches. Unmarshal recovers from it by returning an untyped
// snapshot and reports it through the configured diagnostics.
type UnresolvableSchemaError struct {
	TypeID string
}

func (e *UnresolvableSchemaError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("codec: unresolvable schema type %q", e.TypeID)
}

// Diagnostic is a recovered decoding problem.
type Diagnostic struct {
	TypeID string
	Format Format
	Err    error
}

// DiagnosticHandler receives recovered decoding problems.
type DiagnosticHandler interface {
	Report(Diagnostic)
}

// DiagnosticFunc adapts a function to DiagnosticHandler.
type DiagnosticFunc func(Diagnostic)

// Report calls fn.
func (fn DiagnosticFunc) Report(d Diagnostic) {
	if fn != nil {
		fn(d)
	}
}

type noopDiagnostics struct{}

func (noopDiagnostics) Report(Diagnostic) {}
