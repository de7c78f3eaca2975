package portals

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-portal-auth"
)

// ValidationParameters describes the checks applied to every token.
type ValidationParameters struct {
	RequireSignedTokens   bool
	ValidAlgorithms       []string
	RequireExpirationTime bool
	ValidateLifetime      bool
	ClockSkew             time.Duration
	ValidateIssuer        bool
	ValidIssuer           string
	ValidateAudience      bool
	ValidAudience         string
}

// TokenValidator validates portal issued JWTs.
type TokenValidator struct {
	config Config
	params ValidationParameters
	keys   *KeySet
	parser *jwt.Parser
	logger auth.Logger
}

var (
	_ auth.TokenValidator        = (*TokenValidator)(nil)
	_ auth.ContextTokenValidator = (*TokenValidator)(nil)
)

// NewTokenValidator resolves the portal signing key and returns a validator.
// It fails when the key cannot be fetched or parsed.
func NewTokenValidator(ctx context.Context, cfg Config) (*TokenValidator, error) {
	if cfg.domain() == "" {
		return nil, auth.WithCause(auth.ErrInvalidArgument, nil, map[string]any{
			"provider": "portals",
			"field":    "domain",
		})
	}

	_, logger := auth.ResolveLogger("portals", cfg.LoggerProvider, cfg.Logger)
	resolver := NewKeyResolver(cfg.httpClient(), logger)

	keys, err := NewKeySet(ctx, cfg.domain(), resolver.ResolveKey, cfg.KeyRefreshInterval, logger)
	if err != nil {
		return nil, err
	}

	return newTokenValidator(cfg, keys, logger), nil
}

// NewTokenValidatorWithKeys returns a validator over an existing key set.
func NewTokenValidatorWithKeys(cfg Config, keys *KeySet) (*TokenValidator, error) {
	if cfg.domain() == "" {
		return nil, auth.WithCause(auth.ErrInvalidArgument, nil, map[string]any{
			"provider": "portals",
			"field":    "domain",
		})
	}
	if keys == nil || keys.Key() == nil {
		return nil, auth.ErrKeyFetch
	}
	_, logger := auth.ResolveLogger("portals", cfg.LoggerProvider, cfg.Logger)
	return newTokenValidator(cfg, keys, logger), nil
}

func newTokenValidator(cfg Config, keys *KeySet, logger auth.Logger) *TokenValidator {
	params := ValidationParameters{
		RequireSignedTokens:   true,
		ValidAlgorithms:       []string{SigningAlgorithm},
		RequireExpirationTime: true,
		ValidateLifetime:      true,
		ClockSkew:             cfg.clockSkew(),
		ValidateIssuer:        true,
		ValidIssuer:           cfg.domain(),
		ValidateAudience:      cfg.ValidateAudience,
		ValidAudience:         cfg.ApplicationID,
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods(params.ValidAlgorithms),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(params.ClockSkew),
		jwt.WithIssuer(params.ValidIssuer),
	}
	if params.ValidateAudience && params.ValidAudience != "" {
		opts = append(opts, jwt.WithAudience(params.ValidAudience))
	}

	if !params.ValidateAudience {
		logger.Warn("token audience is not enforced", "audience", params.ValidAudience)
	}

	return &TokenValidator{
		config: cfg,
		params: params,
		keys:   keys,
		parser: jwt.NewParser(opts...),
		logger: logger,
	}
}

// Parameters returns the validation parameters in effect.
func (v *TokenValidator) Parameters() ValidationParameters {
	return v.params
}

// Keys returns the key set backing the validator.
func (v *TokenValidator) Keys() *KeySet {
	return v.keys
}

// Start launches the background key refresh when configured.
func (v *TokenValidator) Start(ctx context.Context) {
	v.keys.Start(ctx)
}

// Close stops the background key refresh.
func (v *TokenValidator) Close() {
	v.keys.Close()
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
		return nil, auth.NormalizeValidationError("portals", err)
	}

	if !token.Valid {
		return nil, auth.ErrTokenMalformed
	}

	return claims, nil
}
