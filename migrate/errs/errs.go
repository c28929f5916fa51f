// Package errs defines the error taxonomy shared by the migration engine.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrLookup matches any LookupError.
	ErrLookup = errors.New("lookup failed")
	// ErrUnsupportedChange matches any UnsupportedChangeError.
	ErrUnsupportedChange = errors.New("unsupported change")
	// ErrExecution matches any ExecutionError.
	ErrExecution = errors.New("migration step execution failed")
)

// LookupError reports a model, field, enum, table or column that was
// referenced but does not exist. Planning aborts on it.
type LookupError struct {
	Kind  string // "model", "field", "enum", "table", "column"
	Name  string
	Scope string // enclosing model or table, if any
}

// Lookup builds a LookupError.
func Lookup(kind, name, scope string) *LookupError {
	return &LookupError{Kind: kind, Name: name, Scope: scope}
}

func (e *LookupError) Error() string {
	if e.Scope != "" {
		return fmt.Sprintf("%s %q not found in %q", e.Kind, e.Name, e.Scope)
	}
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

func (e *LookupError) Is(target error) bool { return target == ErrLookup }

// UnsupportedChangeError reports a schema change that cannot be carried out
// safely without explicit consent or at all on the target dialect.
type UnsupportedChangeError struct {
	Table  string
	Column string
	Reason string
}

func (e *UnsupportedChangeError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("unsupported change on %s.%s: %s", e.Table, e.Column, e.Reason)
	}
	return fmt.Sprintf("unsupported change on %s: %s", e.Table, e.Reason)
}

func (e *UnsupportedChangeError) Is(target error) bool { return target == ErrUnsupportedChange }

// ExecutionError wraps a database failure while running the step at Index.
type ExecutionError struct {
	Index int
	Step  string
	SQL   string
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("step %d (%s) failed: %v", e.Index, e.Step, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

func (e *ExecutionError) Is(target error) bool { return target == ErrExecution }
