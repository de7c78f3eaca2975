package identity

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-portal-auth"
	"github.com/goliatone/go-router"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// HTTPConfig configures the user controller.
type HTTPConfig struct {
	// ErrorHandler handles errors (optional)
	ErrorHandler func(ctx router.Context, err error) error

	Logger auth.Logger
}

// CreateUserRequest is the payload of POST /.
type CreateUserRequest struct {
	ID       string `json:"id" form:"id"`
	UserName string `json:"user_name" form:"user_name"`
}

// Validate checks the create payload.
func (r CreateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserName, validation.Required),
	)
}

// User returns the user described by the request, with a new id when none
// was sent.
func (r CreateUserRequest) User() *User {
	user := NewUser(strings.TrimSpace(r.UserName))
	if id := strings.TrimSpace(r.ID); id != "" {
		user.ID = id
	}
	user.NormalizedUserName = strings.ToUpper(user.UserName)
	return user
}

// HTTPController serves the user endpoints over a Store.
type HTTPController struct {
	users  UserStore
	config HTTPConfig
	logger auth.Logger
}

// NewHTTPController returns a controller over users.
func NewHTTPController(users UserStore, cfg HTTPConfig) *HTTPController {
	_, logger := auth.ResolveLogger("portal.identity.http", nil, cfg.Logger)
	return &HTTPController{
		users:  users,
		config: cfg,
		logger: logger,
	}
}

// RegisterRoutes registers the user routes, mw usually holds the bearer
// middleware.
func (c *HTTPController) RegisterRoutes(group RouteRegistrar, mw ...router.MiddlewareFunc) {
	group.Post("/", c.Create, mw...)
	group.Get("/:id", c.Get, mw...)
	group.Delete("/:id", c.Delete, mw...)
}

// Create stores a new user.
func (c *HTTPController) Create(ctx router.Context) error {
	payload := new(CreateUserRequest)
	if err := ctx.Bind(payload); err != nil {
		return c.handleError(ctx, auth.WithCause(auth.ErrInvalidArgument, err, map[string]any{
			"field": "body",
		}))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error":      "invalid user",
			"code":       auth.TextCodeInvalidArgument,
			"validation": err,
		})
	}

	user := payload.User()
	result, err := c.users.Create(requestContext(ctx), user)
	if err != nil {
		return c.handleError(ctx, err)
	}
	if !result.Succeeded {
		return c.failed(ctx, result)
	}

	return ctx.JSON(router.StatusCreated, user)
}

// Get returns one user.
func (c *HTTPController) Get(ctx router.Context) error {
	user, err := c.users.FindByID(requestContext(ctx), ctx.Param("id"))
	if err != nil {
		return c.handleError(ctx, err)
	}
	if user == nil {
		return ctx.JSON(router.StatusNotFound, map[string]any{
			"error": "user not found",
			"code":  CodeUserNotFound,
		})
	}

	return ctx.JSON(router.StatusOK, user)
}

// Delete removes one user.
func (c *HTTPController) Delete(ctx router.Context) error {
	result, err := c.users.Delete(requestContext(ctx), &User{ID: ctx.Param("id")})
	if err != nil {
		return c.handleError(ctx, err)
	}
	if !result.Succeeded {
		return c.failed(ctx, result)
	}

	return ctx.JSON(router.StatusOK, result)
}

func (c *HTTPController) failed(ctx router.Context, result Result) error {
	status := router.StatusInternalServerError
	switch {
	case result.HasCode(CodeDuplicateUserID):
		status = router.StatusConflict
	case result.HasCode(CodeUserNotFound):
		status = router.StatusNotFound
	default:
		c.logger.Error("user write failed", "result", result.String(), "error", result.Cause)
	}

	return ctx.JSON(status, result)
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
		c.logger.Error("user request failed", "error", err)
	}

	return ctx.JSON(status, body)
}

func requestContext(ctx router.Context) context.Context {
	if reqCtx := ctx.Context(); reqCtx != nil {
		return reqCtx
	}
	return context.Background()
}
