package jwks

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-portal-auth"
)

// TokenValidator validates JWTs signed by keys from a JWKS endpoint.
type TokenValidator struct {
	config Config
	keys   *keyfunc.JWKS
	parser *jwt.Parser
	logger auth.Logger
}

var (
	_ auth.TokenValidator        = (*TokenValidator)(nil)
	_ auth.ContextTokenValidator = (*TokenValidator)(nil)
)

// NewTokenValidator fetches the key set and returns a validator. The key set
// keeps refreshing until Close is called.
func NewTokenValidator(ctx context.Context, cfg Config) (*TokenValidator, error) {
	_, logger := auth.ResolveLogger("jwks", cfg.LoggerProvider, cfg.Logger)

	if strings.TrimSpace(cfg.MetadataURL) != "" {
		meta, err := Discover(ctx, cfg.HTTPClient, cfg.MetadataURL)
		if err != nil {
			return nil, err
		}
		if cfg.JWKSURL == "" {
			cfg.JWKSURL = meta.JWKSURI
		}
		if cfg.Issuer == "" {
			cfg.Issuer = meta.Issuer
		}
	}

	if strings.TrimSpace(cfg.JWKSURL) == "" {
		return nil, auth.WithCause(auth.ErrInvalidArgument, nil, map[string]any{
			"provider": "jwks",
			"field":    "jwks_url",
		})
	}
	if err := requireIssuer(cfg); err != nil {
		return nil, err
	}

	keys, err := keyfunc.Get(cfg.JWKSURL, keyfuncOptions(ctx, cfg, logger))
	if err != nil {
		return nil, auth.WithCause(auth.ErrKeyFetch, err, map[string]any{
			"url": cfg.JWKSURL,
		})
	}

	return newTokenValidator(cfg, keys, logger), nil
}

// NewTokenValidatorFromJSON builds a validator over a static key set.
func NewTokenValidatorFromJSON(cfg Config, raw json.RawMessage) (*TokenValidator, error) {
	keys, err := keyfunc.NewJSON(raw)
	if err != nil {
		return nil, auth.WithCause(auth.ErrKeyFormat, err, nil)
	}
	if err := requireIssuer(cfg); err != nil {
		return nil, err
	}
	_, logger := auth.ResolveLogger("jwks", cfg.LoggerProvider, cfg.Logger)
	return newTokenValidator(cfg, keys, logger), nil
}

func newTokenValidator(cfg Config, keys *keyfunc.JWKS, logger auth.Logger) *TokenValidator {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.clockSkew()),
		jwt.WithIssuer(cfg.Issuer),
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return &TokenValidator{
		config: cfg,
		keys:   keys,
		parser: jwt.NewParser(opts...),
		logger: logger,
	}
}

func keyfuncOptions(ctx context.Context, cfg Config, logger auth.Logger) keyfunc.Options {
	return keyfunc.Options{
		Ctx:    ctx,
		Client: cfg.HTTPClient,
		RefreshErrorHandler: func(err error) {
			logger.Error("failed to do a background refresh of JWT set", "url", cfg.JWKSURL, "error", err)
		},
		RefreshInterval:   cfg.refreshInterval(),
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	}
}

// Validate implements auth.TokenValidator.
func (v *TokenValidator) Validate(tokenString string) (auth.AuthClaims, error) {
	return v.ValidateContext(context.Background(), tokenString)
}

// ValidateContext implements auth.ContextTokenValidator.
func (v *TokenValidator) ValidateContext(ctx context.Context, tokenString string) (auth.AuthClaims, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	claims := &auth.JWTClaims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, v.keys.Keyfunc)
	if err != nil {
		return nil, auth.NormalizeValidationError("jwks", err)
	}
	if !token.Valid {
		return nil, auth.ErrTokenMalformed
	}

	if _, ok := claims.Claim(auth.ClaimOID); !ok {
		if _, ok := claims.Claim(auth.ClaimObjectIdentifier); !ok {
			v.logger.Debug("federated token has no object id claim", "sub", claims.Subject())
		}
	}

	return claims, nil
}

// Close stops the background refresh.
func (v *TokenValidator) Close() {
	v.keys.EndBackground()
}

// requireIssuer rejects configurations that would accept tokens of any
// tenant sharing the key set.
func requireIssuer(cfg Config) error {
	if strings.TrimSpace(cfg.Issuer) == "" {
		return auth.WithCause(auth.ErrInvalidArgument, nil, map[string]any{
			"provider": "jwks",
			"field":    "issuer",
		})
	}
	return nil
}
