package entitystore

import (
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-portal-auth"
)

const (
	TextCodeEntityNotFound = "ENTITY_NOT_FOUND"
	TextCodeInvalidFetch   = "INVALID_FETCH"
	TextCodeClientClosed   = "CLIENT_CLOSED"
)

// ErrEntityNotFound is returned by Retrieve, Update and Delete for unknown ids.
var ErrEntityNotFound = errors.New("entity not found", errors.CategoryNotFound).
	WithTextCode(TextCodeEntityNotFound).
	WithCode(errors.CodeNotFound)

// ErrInvalidFetch is returned for fetch expressions the store cannot run.
var ErrInvalidFetch = errors.New("invalid fetch expression", errors.CategoryBadInput).
	WithTextCode(TextCodeInvalidFetch).
	WithCode(errors.CodeBadRequest)

// ErrClientClosed is returned by cloned sessions used after Close.
var ErrClientClosed = errors.New("entity store session is closed", errors.CategoryOperation).
	WithTextCode(TextCodeClientClosed).
	WithCode(errors.CodeInternal)

// NotFound returns ErrEntityNotFound annotated with the missing reference.
func NotFound(logicalName, id string) error {
	return auth.WithCause(ErrEntityNotFound, nil, map[string]any{
		"entity": logicalName,
		"id":     id,
	})
}

// IsNotFound reports whether err signals a missing entity.
func IsNotFound(err error) bool {
	return auth.HasTextCode(err, TextCodeEntityNotFound)
}

// IsInvalidFetch reports whether err signals an unsupported fetch expression.
func IsInvalidFetch(err error) bool {
	return auth.HasTextCode(err, TextCodeInvalidFetch)
}
