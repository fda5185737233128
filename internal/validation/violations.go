package validation

import (
	"fmt"
	"strings"
)

// Code identifies a class of validation failure.
type Code string

const (
	CodeInvalidRange         Code = "InvalidRange"
	CodeWeightMismatch       Code = "WeightMismatch"
	CodePastDueDate          Code = "PastDueDate"
	CodeScopeMismatch        Code = "ScopeMismatch"
	CodeDuplicateNumber      Code = "DuplicateNumber"
	CodeDeleteRestricted     Code = "DeleteRestricted"
	CodeTransitionNotAllowed Code = "TransitionNotAllowed"
	CodePermissionDenied     Code = "PermissionDenied"
	CodeDivisionUndefined    Code = "DivisionUndefined"
)

// Violation is a single validation failure, addressed to the field that
// caused it.
type Violation struct {
	Code    Code   `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	if v.Field == "" {
		return fmt.Sprintf("%s: %s", v.Code, v.Message)
	}
	return fmt.Sprintf("%s (%s): %s", v.Code, v.Field, v.Message)
}

// Violations aggregates every failure found by a validation pass so callers
// can surface them together. An empty list means valid.
type Violations []Violation

// Error implements the error interface; a non-empty Violations value is a
// non-fatal, typed failure.
func (vs Violations) Error() string {
	messages := make([]string, 0, len(vs))
	for _, v := range vs {
		messages = append(messages, v.String())
	}
	return strings.Join(messages, "; ")
}

// Has reports whether any violation carries the given code.
func (vs Violations) Has(code Code) bool {
	for _, v := range vs {
		if v.Code == code {
			return true
		}
	}
	return false
}

// OrNil returns the violations as an error, or nil when the list is empty.
func (vs Violations) OrNil() error {
	if len(vs) == 0 {
		return nil
	}
	return vs
}
