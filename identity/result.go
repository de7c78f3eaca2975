package identity

import (
	"strings"
)

const (
	CodeDuplicateUserID = "DuplicateUserID"
	CodeUserNotFound    = "UserNotFound"
	CodeDeleteFailed    = "DeleteFailed"
)

// ResultError describes one reason an operation failed.
type ResultError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Result is the outcome of a store write. A failed Result is a valid answer,
// not an error: errors are reserved for bad input and remote failures.
type Result struct {
	Succeeded bool          `json:"succeeded"`
	Errors    []ResultError `json:"errors,omitempty"`
	// Cause keeps the underlying error of a failed write, if any.
	Cause error `json:"-"`
}

// Success returns a succeeded Result.
func Success() Result {
	return Result{Succeeded: true}
}

// Failed returns a failed Result.
func Failed(cause error, errs ...ResultError) Result {
	return Result{Errors: errs, Cause: cause}
}

// HasCode reports whether the result carries an error with code.
func (r Result) HasCode(code string) bool {
	for _, e := range r.Errors {
		if e.Code == code {
			return true
		}
	}
	return false
}

func (r Result) String() string {
	if r.Succeeded {
		return "Succeeded"
	}
	codes := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		codes = append(codes, e.Code)
	}
	return "Failed : " + strings.Join(codes, ",")
}
