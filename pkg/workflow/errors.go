// Copyright © 2025 jackelyj <dreamerlyj@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
//

package workflow

import (
	"errors"
	"fmt"
	"time"
)

// Kind categorizes a WorkflowError. Callers outside this core map kinds to
// their own response codes (validation/not_found/state_conflict to a client
// error, system to a server error).
type Kind string

const (
	// KindValidation indicates input failed a precondition.
	KindValidation Kind = "validation"

	// KindNotFound indicates a referenced entity does not exist in its
	// owning domain.
	KindNotFound Kind = "not_found"

	// KindStateConflict indicates an operation is disallowed given the
	// current lifecycle state of an entity.
	KindStateConflict Kind = "state_conflict"

	// KindSystem indicates an unexpected failure inside a step's forward
	// action (I/O error, storage failure, programming error).
	KindSystem Kind = "system"

	// KindCompensation indicates a failure of an undo action.
	KindCompensation Kind = "compensation"
)

// predefined error codes
const (
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeEntityNotFound     = "ENTITY_NOT_FOUND"
	ErrCodeStateConflict      = "STATE_CONFLICT"
	ErrCodeStepFailed         = "STEP_EXECUTION_FAILED"
	ErrCodeTransformFailed    = "TRANSFORM_FAILED"
	ErrCodeCompensationFailed = "COMPENSATION_FAILED"
	ErrCodeDefinitionInvalid  = "DEFINITION_INVALID"
	ErrCodeDuplicateLink      = "LINK_ALREADY_EXISTS"
)

// WorkflowError is the typed error returned by the orchestration core.
// It carries a machine-readable code, a kind for caller-side mapping, the
// transaction id and other details, the underlying cause, and any secondary
// compensation failures collected during rollback.
type WorkflowError struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Kind      Kind                   `json:"kind"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	// Cause is the wrapped error, if any.
	Cause error `json:"-"`

	// CompensationFailures lists compensations that failed while rolling
	// back after this error. The primary error always wins; these are
	// diagnostics for manual reconciliation.
	CompensationFailures []*CompensationFailure `json:"compensation_failures,omitempty"`
}

// Error implements the error interface.
func (e *WorkflowError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause for errors.Is / errors.As chains.
func (e *WorkflowError) Unwrap() error {
	return e.Cause
}

// WithDetail attaches a key/value detail and returns the error for chaining.
func (e *WorkflowError) WithDetail(key string, value interface{}) *WorkflowError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithCompensationFailures attaches the rollback diagnostics collected after
// this error triggered compensation.
func (e *WorkflowError) WithCompensationFailures(failures []*CompensationFailure) *WorkflowError {
	if len(failures) > 0 {
		e.CompensationFailures = append(e.CompensationFailures, failures...)
	}
	return e
}

// NewError creates a WorkflowError with the given code, message, and kind.
func NewError(code, message string, kind Kind) *WorkflowError {
	return &WorkflowError{
		Code:      code,
		Message:   message,
		Kind:      kind,
		Timestamp: time.Now(),
	}
}

// WrapError wraps an existing error into a WorkflowError. If err is already
// a WorkflowError it is preserved as the cause so its kind remains visible
// through errors.As.
func WrapError(err error, code, message string, kind Kind) *WorkflowError {
	if err == nil {
		return nil
	}
	werr := NewError(code, message, kind)
	werr.Cause = err
	return werr
}

// NewValidationError creates an error for a failed input precondition.
func NewValidationError(message string) *WorkflowError {
	return NewError(ErrCodeValidationFailed, message, KindValidation)
}

// NewNotFoundError creates an error for a referenced entity that does not
// exist in its owning domain.
func NewNotFoundError(entity, id string) *WorkflowError {
	return NewError(ErrCodeEntityNotFound,
		fmt.Sprintf("%s %q not found", entity, id), KindNotFound).
		WithDetail("entity", entity).
		WithDetail("entity_id", id)
}

// NewStateConflictError creates an error for an operation disallowed by the
// current lifecycle state of an entity.
func NewStateConflictError(message string) *WorkflowError {
	return NewError(ErrCodeStateConflict, message, KindStateConflict)
}

// NewStepExecutionError wraps an unexpected failure from a step's forward
// action. If the step already returned a WorkflowError, use that directly
// instead: the composer preserves typed errors as the primary error.
func NewStepExecutionError(stepName string, err error) *WorkflowError {
	return WrapError(err, ErrCodeStepFailed,
		fmt.Sprintf("step %q failed", stepName), KindSystem).
		WithDetail("step", stepName)
}

// NewCompensationFailedError wraps a failed undo action.
func NewCompensationFailedError(stepName string, err error) *WorkflowError {
	return WrapError(err, ErrCodeCompensationFailed,
		fmt.Sprintf("compensation for step %q failed", stepName), KindCompensation).
		WithDetail("step", stepName)
}

// AsWorkflowError extracts a WorkflowError from an error chain.
func AsWorkflowError(err error) (*WorkflowError, bool) {
	var werr *WorkflowError
	if errors.As(err, &werr) {
		return werr, true
	}
	return nil, false
}

// IsKind reports whether err is a WorkflowError of the given kind.
func IsKind(err error, kind Kind) bool {
	if werr, ok := AsWorkflowError(err); ok {
		return werr.Kind == kind
	}
	return false
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return IsKind(err, KindValidation) }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return IsKind(err, KindNotFound) }

// IsStateConflict reports whether err is a state-conflict error.
func IsStateConflict(err error) bool { return IsKind(err, KindStateConflict) }

// HasCompensationFailures reports whether rollback after err left any step
// un-compensated, signalling the need for manual reconciliation by
// transaction id.
func HasCompensationFailures(err error) bool {
	if werr, ok := AsWorkflowError(err); ok {
		return len(werr.CompensationFailures) > 0
	}
	return false
}
