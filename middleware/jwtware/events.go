package jwtware

import (
	"github.com/goliatone/go-portal-auth"
	"github.com/goliatone/go-router"
)

// MessageReceivedFunc runs before the token is extracted. Returning a non
// empty token skips the configured extractors.
type MessageReceivedFunc func(ctx router.Context) (string, error)

// TokenValidatedFunc runs after the token validated. Returning an error
// fails the request.
type TokenValidatedFunc func(ctx router.Context, claims auth.AuthClaims) error

// AuthenticationFailedFunc observes a failed authentication. The returned
// error replaces the original one; returning nil keeps it.
type AuthenticationFailedFunc func(ctx router.Context, err error) error

// ChallengeFunc may write its own response for a failed request. When it
// reports handled, the ErrorHandler is not called.
type ChallengeFunc func(ctx router.Context, err error) (handled bool, result error)

// Events are the extension points of the bearer pipeline. Every hook is
// optional and the zero value keeps the default handling.
type Events struct {
	OnMessageReceived      MessageReceivedFunc
	OnTokenValidated       TokenValidatedFunc
	OnAuthenticationFailed AuthenticationFailedFunc
	OnChallenge            ChallengeFunc
}

func (e Events) messageReceived(ctx router.Context) (string, error) {
	if e.OnMessageReceived == nil {
		return "", nil
	}
	return e.OnMessageReceived(ctx)
}

func (e Events) tokenValidated(ctx router.Context, claims auth.AuthClaims) error {
	if e.OnTokenValidated == nil {
		return nil
	}
	return e.OnTokenValidated(ctx, claims)
}

func (e Events) authenticationFailed(ctx router.Context, err error) error {
	if e.OnAuthenticationFailed == nil {
		return err
	}
	if replaced := e.OnAuthenticationFailed(ctx, err); replaced != nil {
		return replaced
	}
	return err
}

func (e Events) challenge(ctx router.Context, err error) (bool, error) {
	if e.OnChallenge == nil {
		return false, nil
	}
	return e.OnChallenge(ctx, err)
}
