// Package diag defines the error taxonomy for the policy core. Every
// user-facing error carries a message, a source offset, and zero or more
// highlighted ranges so a host can render an in-editor pointer into the
// policy text. Operational errors mark host registration bugs, not policy
// authoring mistakes.
package diag

import (
	"fmt"

	"go.uber.org/multierr"
)

// Range highlights a half-open byte range of source text.
type Range struct {
	Start int
	End   int
}

// PolicyError is a semantic error in the declarative policy syntax: a
// malformed declaration, a duplicate, an undeclared reference, or a bad
// keyword. Always source-located.
type PolicyError struct {
	Msg    string
	SrcID  uint64
	Loc    int
	Ranges []Range
}

func (e *PolicyError) Error() string { return e.Msg }

// NewPolicyError builds a PolicyError at the given offset.
func NewPolicyError(srcID uint64, loc int, format string, args ...any) *PolicyError {
	return &PolicyError{Msg: fmt.Sprintf(format, args...), SrcID: srcID, Loc: loc}
}

// ValidationError reports a rule that failed to match any applicable
// prototype. Rule holds the rendered rule; Msg covers every prototype it
// failed against.
type ValidationError struct {
	Rule  string
	Msg   string
	SrcID uint64
	Loc   int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Invalid rule: %s %s", e.Rule, e.Msg)
}

// OperationalError is an internal invariant violation, e.g. a registered
// class used as a specializer without a registered MRO. It indicates a
// registration-order bug in the host, not a user-correctable mistake.
type OperationalError struct {
	Msg string
}

func (e *OperationalError) Error() string { return e.Msg }

// NewOperationalError builds an OperationalError.
func NewOperationalError(format string, args ...any) *OperationalError {
	return &OperationalError{Msg: fmt.Sprintf(format, args...)}
}

// FileLoadError reports conflicting filename/content pairs on load.
type FileLoadError struct {
	Msg string
}

func (e *FileLoadError) Error() string { return e.Msg }

// ParameterError reports an invalid argument to a host registration call.
type ParameterError struct {
	Msg string
}

func (e *ParameterError) Error() string { return e.Msg }

// TypeError reports internal misuse of a declaration variant, e.g. asking a
// role declaration for its relation type.
type TypeError struct {
	Msg string
}

func (e *TypeError) Error() string { return e.Msg }

// First unwraps a combined diagnostic to its first collected error. The
// rewrite and validation pipelines return every diagnostic they gather;
// hosts that want the historical single-error view use this.
func First(err error) error {
	if err == nil {
		return nil
	}
	if errs := multierr.Errors(err); len(errs) > 0 {
		return errs[0]
	}
	return err
}
