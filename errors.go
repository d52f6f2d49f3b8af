package immutable

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-immutable/keypath"
)

// ErrEmptyPath is returned when an operation is given a path with no keys.
var ErrEmptyPath = errors.New("immutable: empty path")

// UnboundSelectionError reports a field selection that could not be mapped
// to a path of the snapshot's schema.
type UnboundSelectionError = keypath.UnboundSelectionError

// RuleViolationError reports a configured rule that did not evaluate to true.
type RuleViolationError struct {
	Rule   string
	Expr   string
	Result any
	Err    error
}

func (e *RuleViolationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("immutable: rule %q failed: %v", e.Rule, e.Err)
	}
	return fmt.Sprintf("immutable: rule %q violated: %s evaluated to %v", e.Rule, describeExpression(e.Expr), e.Result)
}

func (e *RuleViolationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
