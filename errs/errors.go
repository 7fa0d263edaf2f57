// Package errs defines the error taxonomy shared by the statement model, the
// dialects, the binder and the converters.
//
// Every error type matches one sentinel through errors.Is, so callers can
// classify failures without type assertions:
//
//	if errors.Is(err, errs.ErrValidation) {
//	    // reject the input, nothing was executed
//	}
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrStructural is matched by errors raised while constructing a malformed node.
	ErrStructural = errors.New("tabular: malformed statement")

	// ErrInternal is matched by ordering, arity and registration defects.
	ErrInternal = errors.New("tabular: internal error")

	// ErrValidation is matched when a value violates a column constraint on convert.
	ErrValidation = errors.New("tabular: validation failed")

	// ErrRecovery is matched when a result value cannot be turned back into a field.
	ErrRecovery = errors.New("tabular: recovery failed")
)

// StructuralError reports an invalid node shape detected at construction time.
type StructuralError struct {
	Node   string
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("tabular: malformed %s: %s", e.Node, e.Reason)
}

func (e *StructuralError) Is(err error) bool { return err == ErrStructural }

// Structural returns a new StructuralError for the given node kind.
func Structural(node, format string, args ...any) *StructuralError {
	return &StructuralError{Node: node, Reason: fmt.Sprintf(format, args...)}
}

// InternalError reports a programming defect: an unregistered node kind or a
// mismatch between rendered placeholders, bound values and schema columns.
type InternalError struct {
	Statement string
	Reason    string
}

func (e *InternalError) Error() string {
	if e.Statement == "" {
		return "tabular: internal error: " + e.Reason
	}
	return fmt.Sprintf("tabular: internal error in %s: %s", e.Statement, e.Reason)
}

func (e *InternalError) Is(err error) bool { return err == ErrInternal }

// Internal returns a new InternalError for the given statement kind.
func Internal(statement, format string, args ...any) *InternalError {
	return &InternalError{Statement: statement, Reason: fmt.Sprintf(format, args...)}
}

// ValidationError reports a value rejected while converting an object.
type ValidationError struct {
	Type   string
	Column string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	msg := "tabular: invalid value"
	if e.Type != "" {
		msg += " for " + e.Type
	}
	if e.Column != "" {
		msg += " column " + e.Column
	}
	if e.Value != "" {
		msg += " (" + e.Value + ")"
	}
	return msg + ": " + e.Reason
}

func (e *ValidationError) Is(err error) bool { return err == ErrValidation }

// RecoveryError reports a raw result value that could not be recovered.
type RecoveryError struct {
	Type  string
	Field string
	Raw   any
	Err   error
}

func (e *RecoveryError) Error() string {
	msg := "tabular: cannot recover"
	if e.Type != "" {
		msg += " " + e.Type
	}
	if e.Field != "" {
		msg += " field " + e.Field
	}
	if e.Raw != nil {
		msg += fmt.Sprintf(" from %T(%v)", e.Raw, e.Raw)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RecoveryError) Is(err error) bool { return err == ErrRecovery }

func (e *RecoveryError) Unwrap() error { return e.Err }

// IsStructural reports whether err is a StructuralError.
func IsStructural(err error) bool { return errors.Is(err, ErrStructural) }

// IsInternal reports whether err is an InternalError.
func IsInternal(err error) bool { return errors.Is(err, ErrInternal) }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsRecovery reports whether err is a RecoveryError.
func IsRecovery(err error) bool { return errors.Is(err, ErrRecovery) }
