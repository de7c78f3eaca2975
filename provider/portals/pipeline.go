package portals

import (
	"context"

	"github.com/goliatone/go-portal-auth"
	"github.com/goliatone/go-portal-auth/middleware/jwtware"
	"github.com/goliatone/go-router"
)

// PipelineOptions tune the bearer pipeline built by NewPipeline.
type PipelineOptions struct {
	Events       jwtware.Events
	ErrorHandler router.ErrorHandler
	ContextKey   string

	// Validators are tried after the portal validator, e.g. a B2C validator.
	Validators []auth.TokenValidator

	// Listeners run after a token validates, in order.
	Listeners []jwtware.ValidationListener
}

// Pipeline is the bearer authentication pipeline for portal tokens.
type Pipeline struct {
	Validator *TokenValidator
	config    jwtware.Config
}

// NewPipeline resolves the signing key, builds the validator and returns the
// configured pipeline. Key errors are returned so startup can abort.
func NewPipeline(ctx context.Context, cfg Config, opts PipelineOptions) (*Pipeline, error) {
	validator, err := NewTokenValidator(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var tokenValidator auth.TokenValidator = validator
	if len(opts.Validators) > 0 {
		tokenValidator = auth.NewMultiTokenValidator(append([]auth.TokenValidator{validator}, opts.Validators...)...)
	}

	_, logger := auth.ResolveLogger("portals.pipeline", cfg.LoggerProvider, cfg.Logger)

	mwConfig := jwtware.Config{
		TokenValidator:    tokenValidator,
		UseRequestContext: true,
		Events:            opts.Events,
		ErrorHandler:      opts.ErrorHandler,
		ContextKey:        opts.ContextKey,
		ContextEnricher:   auth.WithClaimsContext,
		Logger:            logger,
	}
	jwtware.RegisterValidationListeners(&mwConfig, opts.Listeners...)

	return &Pipeline{
		Validator: validator,
		config:    mwConfig,
	}, nil
}

// Config returns the middleware configuration.
func (p *Pipeline) Config() jwtware.Config {
	return p.config
}

// Middleware returns the bearer middleware.
func (p *Pipeline) Middleware() router.MiddlewareFunc {
	return jwtware.New(p.config)
}

// Close releases the key refresh task.
func (p *Pipeline) Close() {
	p.Validator.Close()
}
