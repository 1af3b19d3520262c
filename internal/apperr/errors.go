package apperr

import (
	"errors"
	"fmt"
)

// Code classifies an application error.
type Code string

const (
	CodeMatchEvaluation Code = "MATCH_EVALUATION" // AI judgment failed; treated as no match
	CodeDataIntegrity   Code = "DATA_INTEGRITY"   // rule references missing data or is inconsistent
	CodeDraftGeneration Code = "DRAFT_GENERATION" // draft capability failed or returned invalid output
	CodeRepository      Code = "REPOSITORY"       // persistence collaborator failed
	CodeNotFound        Code = "NOT_FOUND"
	CodeInvalidRequest  Code = "INVALID_REQUEST"
	CodeConflict        Code = "CONFLICT"
)

// Error is a structured application error.
type Error struct {
	Code    Code
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewMatchEvaluation reports a failed AI judgment for ruleID.
func NewMatchEvaluation(ruleID string, err error) *Error {
	return &Error{
		Code:    CodeMatchEvaluation,
		Message: fmt.Sprintf("evaluating rule %s", ruleID),
		Details: map[string]any{"rule_id": ruleID},
		Err:     err,
	}
}

// NewDataIntegrity reports a rule that cannot be evaluated as stored.
func NewDataIntegrity(ruleID, msg string) *Error {
	return &Error{
		Code:    CodeDataIntegrity,
		Message: msg,
		Details: map[string]any{"rule_id": ruleID},
	}
}

// NewDraftGeneration reports a failed knowledge draft.
func NewDraftGeneration(err error) *Error {
	return &Error{
		Code:    CodeDraftGeneration,
		Message: "failed to draft email using knowledge base",
		Err:     err,
	}
}

// NewRepository wraps a persistence error for op. The original error stays
// reachable through errors.Is / errors.As.
func NewRepository(op string, err error) *Error {
	return &Error{
		Code:    CodeRepository,
		Message: op,
		Err:     err,
	}
}

// NewNotFound reports a missing entity.
func NewNotFound(kind, id string) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found: %s", kind, id),
		Details: map[string]any{"kind": kind, "id": id},
	}
}

// NewInvalidRequest reports bad caller input.
func NewInvalidRequest(msg string) *Error {
	return &Error{Code: CodeInvalidRequest, Message: msg}
}

// NewConflict reports a state conflict such as deciding an already decided approval.
func NewConflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

// Is reports whether err is, or wraps, an *Error with the given code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
