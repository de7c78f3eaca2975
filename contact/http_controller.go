package contact

import (
	"context"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-portal-auth"
	"github.com/goliatone/go-portal-auth/entitystore"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// HTTPConfig configures the contact controller.
type HTTPConfig struct {
	// ContextKey is the router local holding the bearer claims (default: "user")
	ContextKey string

	// CloneSession runs every request on a cloned entity store session
	CloneSession bool

	// ErrorHandler handles errors (optional)
	ErrorHandler func(ctx router.Context, err error) error

	Logger auth.Logger
}

// HTTPController serves the contact endpoints.
type HTTPController struct {
	client   entitystore.Client
	resolver *Resolver
	config   HTTPConfig
	logger   auth.Logger
}

// NewHTTPController returns a controller reading contacts through client.
func NewHTTPController(client entitystore.Client, cfg HTTPConfig) *HTTPController {
	if cfg.ContextKey == "" {
		cfg.ContextKey = auth.DefaultContextKey
	}
	_, logger := auth.ResolveLogger("portal.contact.http", nil, cfg.Logger)

	return &HTTPController{
		client:   client,
		resolver: NewResolver(client, WithSessionClone(cfg.CloneSession), WithLogger(logger)),
		config:   cfg,
		logger:   logger,
	}
}

// RegisterRoutes registers the contact routes, mw usually holds the bearer
// middleware.
func (c *HTTPController) RegisterRoutes(group RouteRegistrar, mw ...router.MiddlewareFunc) {
	group.Get("/me", c.Me, mw...)
	group.Get("/:id", c.FullName, mw...)
	group.Get("/", c.List, mw...)
}

// List returns every contact with all attributes.
func (c *HTTPController) List(ctx router.Context) error {
	reqCtx := requestContext(ctx)

	client, release, err := entitystore.Session(reqCtx, c.client, c.config.CloneSession)
	if err != nil {
		return c.handleError(ctx, err)
	}
	defer release()

	result, err := client.RetrieveMultiple(reqCtx, entitystore.AllAttributesOf(EntityContact))
	if err != nil {
		return c.handleError(ctx, err)
	}

	entities := result.Entities
	if entities == nil {
		entities = []*entitystore.Entity{}
	}
	return ctx.JSON(router.StatusOK, entities)
}

// FullName writes the full name of one contact as plain text.
func (c *HTTPController) FullName(ctx router.Context) error {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.handleError(ctx, auth.WithCause(auth.ErrInvalidIdentifier, err, map[string]any{
			"param": "id",
		}))
	}

	contact, err := c.resolver.ByID(requestContext(ctx), id)
	if err != nil {
		return c.handleError(ctx, err)
	}
	if contact == nil {
		return c.handleError(ctx, entitystore.NotFound(EntityContact, id.String()))
	}

	return ctx.SendString(contact.GetString(AttributeFullName))
}

// Me returns the contact of the bearer token principal.
func (c *HTTPController) Me(ctx router.Context) error {
	claims, ok := auth.GetRouterClaims(ctx, c.config.ContextKey)
	if !ok {
		return ctx.JSON(router.StatusUnauthorized, map[string]string{
			"error": "authentication required",
		})
	}

	contact, err := c.resolver.Resolve(requestContext(ctx), claims)
	if err != nil {
		return c.handleError(ctx, err)
	}
	if contact == nil {
		return ctx.JSON(http.StatusNotFound, map[string]string{
			"error": "no contact matches the authenticated principal",
		})
	}

	return ctx.JSON(router.StatusOK, contact)
}

func (c *HTTPController) handleError(ctx router.Context, err error) error {
	if c.config.ErrorHandler != nil {
		return c.config.ErrorHandler(ctx, err)
	}

	status := router.StatusInternalServerError
	body := map[string]any{"error": "internal server error"}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		if richErr.Code > 0 {
			status = richErr.Code
		}
		body["error"] = richErr.Message
		if richErr.TextCode != "" {
			body["code"] = richErr.TextCode
		}
	}

	if status >= router.StatusInternalServerError {
		c.logger.Error("contact request failed", "error", err)
	}

	return ctx.JSON(status, body)
}

func requestContext(ctx router.Context) context.Context {
	if reqCtx := ctx.Context(); reqCtx != nil {
		return reqCtx
	}
	return context.Background()
}
