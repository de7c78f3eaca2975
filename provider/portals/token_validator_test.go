package portals

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-portal-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPortalValidator(t *testing.T, mutate ...func(*Config)) (*TokenValidator, *keyServer, string) {
	t.Helper()
	key := newRSAKey(t)
	server := newKeyServer(t, publicKeyPEM(t, key))

	cfg := DefaultConfig(server.domain(), "app-client-id")
	cfg.HTTPClient = server.Client()
	for _, fn := range mutate {
		fn(&cfg)
	}

	validator, err := NewTokenValidator(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(validator.Close)

	return validator, server, signToken(t, key, portalClaims(server.domain(), time.Hour))
}

func portalClaims(issuer string, ttl time.Duration) jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss":    issuer,
		"sub":    "0b6c3a3e-5d0a-4b1e-9c55-0e5d0b0f2a11",
		"aud":    "some-other-client",
		"iat":    now.Unix(),
		"nbf":    now.Unix(),
		"exp":    now.Add(ttl).Unix(),
		"email":  "alice@example.com",
		"nameid": "0b6c3a3e-5d0a-4b1e-9c55-0e5d0b0f2a11",
	}
}

func TestNewTokenValidator_Parameters(t *testing.T) {
	validator, server, _ := newPortalValidator(t)

	params := validator.Parameters()
	assert.True(t, params.RequireSignedTokens)
	assert.Equal(t, []string{"RS256"}, params.ValidAlgorithms)
	assert.True(t, params.RequireExpirationTime)
	assert.True(t, params.ValidateLifetime)
	assert.Equal(t, 5*time.Minute, params.ClockSkew)
	assert.True(t, params.ValidateIssuer)
	assert.Equal(t, server.domain(), params.ValidIssuer)
	assert.False(t, params.ValidateAudience)
	assert.Equal(t, "app-client-id", params.ValidAudience)
}

func TestNewTokenValidator_KeyFailuresAreFatal(t *testing.T) {
	server := newKeyServer(t, "<html>oops</html>")
	cfg := DefaultConfig(server.domain(), "app")
	cfg.HTTPClient = server.Client()

	_, err := NewTokenValidator(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, auth.IsKeyFormatError(err))

	server.status.Store(http.StatusInternalServerError)
	_, err = NewTokenValidator(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, auth.IsKeyFetchError(err))

	_, err = NewTokenValidator(context.Background(), Config{})
	require.Error(t, err)
	assert.True(t, auth.IsInvalidArgument(err))

	_, err = NewTokenValidatorWithKeys(Config{}, nil)
	var richErr *goerrors.Error
	require.ErrorAs(t, err, &richErr)
	assert.Equal(t, auth.TextCodeInvalidArgument, richErr.TextCode)
	assert.Equal(t, "domain", richErr.Metadata["field"])
}

func TestTokenValidator_ValidToken(t *testing.T) {
	validator, server, token := newPortalValidator(t)

	claims, err := validator.Validate(token)
	require.NoError(t, err)

	jwtClaims, ok := claims.(*auth.JWTClaims)
	require.True(t, ok)
	assert.Equal(t, server.domain(), jwtClaims.Issuer())
	assert.Equal(t, "0b6c3a3e-5d0a-4b1e-9c55-0e5d0b0f2a11", jwtClaims.Subject())

	email, ok := jwtClaims.Claim("email")
	assert.True(t, ok)
	assert.Equal(t, "alice@example.com", email)

	contactID, ok := jwtClaims.Claim(auth.ClaimNameIdentifier)
	assert.True(t, ok)
	assert.Equal(t, "0b6c3a3e-5d0a-4b1e-9c55-0e5d0b0f2a11", contactID)
}

func TestTokenValidator_AudienceNotEnforcedByDefault(t *testing.T) {
	validator, _, token := newPortalValidator(t)

	_, err := validator.Validate(token)
	assert.NoError(t, err)
}

func TestTokenValidator_AudienceEnforcedWhenEnabled(t *testing.T) {
	validator, _, token := newPortalValidator(t, func(c *Config) {
		c.ValidateAudience = true
	})

	_, err := validator.Validate(token)
	require.Error(t, err)
	assert.True(t, auth.IsMalformedError(err))
}

func TestTokenValidator_ExpiredToken(t *testing.T) {
	key := newRSAKey(t)
	server := newKeyServer(t, publicKeyPEM(t, key))
	cfg := DefaultConfig(server.domain(), "app")
	cfg.HTTPClient = server.Client()

	validator, err := NewTokenValidator(context.Background(), cfg)
	require.NoError(t, err)

	token := signToken(t, key, portalClaims(server.domain(), -10*time.Minute))
	_, err = validator.Validate(token)
	require.Error(t, err)
	assert.True(t, auth.IsTokenExpiredError(err))

	var richErr *goerrors.Error
	if assert.ErrorAs(t, err, &richErr) {
		assert.Equal(t, auth.TextCodeTokenExpired, richErr.TextCode)
		assert.Equal(t, "portals", richErr.Metadata["provider"])
	}
}

func TestTokenValidator_ClockSkewTolerance(t *testing.T) {
	key := newRSAKey(t)
	server := newKeyServer(t, publicKeyPEM(t, key))
	cfg := DefaultConfig(server.domain(), "app")
	cfg.HTTPClient = server.Client()

	validator, err := NewTokenValidator(context.Background(), cfg)
	require.NoError(t, err)

	token := signToken(t, key, portalClaims(server.domain(), -2*time.Minute))
	_, err = validator.Validate(token)
	assert.NoError(t, err)
}

func TestTokenValidator_RequiresExpiration(t *testing.T) {
	key := newRSAKey(t)
	server := newKeyServer(t, publicKeyPEM(t, key))
	cfg := DefaultConfig(server.domain(), "app")
	cfg.HTTPClient = server.Client()

	validator, err := NewTokenValidator(context.Background(), cfg)
	require.NoError(t, err)

	claims := portalClaims(server.domain(), time.Hour)
	delete(claims, "exp")

	_, err = validator.Validate(signToken(t, key, claims))
	require.Error(t, err)
	assert.True(t, auth.IsMalformedError(err))
}

func TestTokenValidator_WrongIssuer(t *testing.T) {
	key := newRSAKey(t)
	server := newKeyServer(t, publicKeyPEM(t, key))
	cfg := DefaultConfig(server.domain(), "app")
	cfg.HTTPClient = server.Client()

	validator, err := NewTokenValidator(context.Background(), cfg)
	require.NoError(t, err)

	token := signToken(t, key, portalClaims("evil.example.com", time.Hour))
	_, err = validator.Validate(token)
	require.Error(t, err)
	assert.True(t, auth.IsMalformedError(err))
}

func TestTokenValidator_WrongKeyAndAlgorithm(t *testing.T) {
	validator, server, _ := newPortalValidator(t)

	other := newRSAKey(t)
	_, err := validator.Validate(signToken(t, other, portalClaims(server.domain(), time.Hour)))
	require.Error(t, err)
	assert.True(t, auth.IsMalformedError(err))

	hs := jwt.NewWithClaims(jwt.SigningMethodHS256, portalClaims(server.domain(), time.Hour))
	signed, err := hs.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = validator.Validate(signed)
	require.Error(t, err)
	assert.True(t, auth.IsMalformedError(err))

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, portalClaims(server.domain(), time.Hour))
	none, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = validator.Validate(none)
	require.Error(t, err)
}

func TestTokenValidator_MalformedToken(t *testing.T) {
	validator, _, _ := newPortalValidator(t)

	_, err := validator.Validate("not.a.valid.token")
	require.Error(t, err)
	assert.True(t, auth.IsMalformedError(err))
}

func TestTokenValidator_CancelledContext(t *testing.T) {
	validator, _, token := newPortalValidator(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := validator.ValidateContext(ctx, token)
	assert.ErrorIs(t, err, context.Canceled)
}
