package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidArgument   = "INVALID_ARGUMENT"
	TextCodeIdentityNotFound  = "IDENTITY_NOT_FOUND"
	TextCodeMultipleMatch     = "MULTIPLE_MATCH"
	TextCodeUnsupported       = "UNSUPPORTED_OPERATION"
	TextCodeRemoteCall        = "REMOTE_CALL_FAILED"
	TextCodeKeyFetch          = "SIGNING_KEY_FETCH_FAILED"
	TextCodeKeyFormat         = "SIGNING_KEY_FORMAT_INVALID"
	TextCodeInvalidIdentifier = "INVALID_IDENTIFIER"
	TextCodeTokenExpired      = "TOKEN_EXPIRED"
	TextCodeTokenMalformed    = "TOKEN_MALFORMED"
)

// ErrInvalidArgument is returned when a required input is missing
var ErrInvalidArgument = errors.New("invalid argument", errors.CategoryBadInput).
	WithTextCode(TextCodeInvalidArgument).
	WithCode(errors.CodeBadRequest)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithTextCode(TextCodeIdentityNotFound).
	WithCode(errors.CodeNotFound)

// ErrMultipleMatch is returned when a lookup expected to yield one record yields more.
var ErrMultipleMatch = errors.New("lookup matched more than one record", errors.CategoryConflict).
	WithTextCode(TextCodeMultipleMatch).
	WithCode(errors.CodeConflict)

// ErrUnsupported is returned by operations that are intentionally not implemented.
var ErrUnsupported = errors.New("operation not supported", errors.CategoryOperation).
	WithTextCode(TextCodeUnsupported)

// ErrRemoteCall wraps failures of the remote entity store.
var ErrRemoteCall = errors.New("remote entity store call failed", errors.CategoryOperation).
	WithTextCode(TextCodeRemoteCall).
	WithCode(errors.CodeInternal)

// ErrKeyFetch is returned when the signing key endpoint cannot be read.
var ErrKeyFetch = errors.New("unable to fetch signing key", errors.CategoryOperation).
	WithTextCode(TextCodeKeyFetch).
	WithCode(errors.CodeInternal)

// ErrKeyFormat is returned when the signing key payload is not an RSA public key.
var ErrKeyFormat = errors.New("invalid signing key format", errors.CategoryBadInput).
	WithTextCode(TextCodeKeyFormat).
	WithCode(errors.CodeInternal)

// ErrInvalidIdentifier is returned when a claim value is not a valid store identifier.
var ErrInvalidIdentifier = errors.New("invalid identifier format", errors.CategoryBadInput).
	WithTextCode(TextCodeInvalidIdentifier).
	WithCode(errors.CodeBadRequest)

// ErrTokenExpired is returned for bearer tokens past their expiration (plus skew)
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned for tokens that fail parsing or validation
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// WithCause clones sentinel, attaching cause as its source and the given metadata.
func WithCause(sentinel *errors.Error, cause error, metadata map[string]any) *errors.Error {
	clone := sentinel.Clone()
	clone.Source = cause
	if cause != nil {
		if metadata == nil {
			metadata = map[string]any{}
		}
		if _, ok := metadata["cause"]; !ok {
			metadata["cause"] = cause.Error()
		}
	}
	if len(metadata) > 0 {
		clone = clone.WithMetadata(metadata)
	}
	return clone
}

// NormalizeValidationError maps a jwt parse failure to ErrTokenExpired or
// ErrTokenMalformed, tagged with the provider that rejected the token.
func NormalizeValidationError(provider string, err error) error {
	if err == nil {
		return nil
	}

	sentinel := ErrTokenMalformed
	if errors.Is(err, jwt.ErrTokenExpired) {
		sentinel = ErrTokenExpired
	}

	return WithCause(sentinel, err, map[string]any{"provider": provider})
}

// HasTextCode reports whether err is a rich error carrying code.
func HasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.TextCode == code
	}
	return false
}

// IsUnsupported reports whether err signals an unimplemented operation.
func IsUnsupported(err error) bool {
	return HasTextCode(err, TextCodeUnsupported)
}

// IsMultipleMatch reports whether err signals an ambiguous lookup.
func IsMultipleMatch(err error) bool {
	return HasTextCode(err, TextCodeMultipleMatch)
}

// IsInvalidArgument reports whether err signals a missing required input.
func IsInvalidArgument(err error) bool {
	return HasTextCode(err, TextCodeInvalidArgument)
}

// IsKeyFormatError reports whether err signals an unusable signing key payload.
func IsKeyFormatError(err error) bool {
	return HasTextCode(err, TextCodeKeyFormat)
}

// IsKeyFetchError reports whether err signals a failed signing key download.
func IsKeyFetchError(err error) bool {
	return HasTextCode(err, TextCodeKeyFetch)
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if HasTextCode(err, TextCodeTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if HasTextCode(err, TextCodeTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
