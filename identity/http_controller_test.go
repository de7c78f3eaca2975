package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-portal-auth"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type routeRecorder struct {
	routes []string
}

func (r *routeRecorder) add(method, path string) router.RouteInfo {
	r.routes = append(r.routes, method+" "+path)
	return nil
}

func (r *routeRecorder) Get(path string, _ router.HandlerFunc, _ ...router.MiddlewareFunc) router.RouteInfo {
	return r.add("GET", path)
}

func (r *routeRecorder) Post(path string, _ router.HandlerFunc, _ ...router.MiddlewareFunc) router.RouteInfo {
	return r.add("POST", path)
}

func (r *routeRecorder) Delete(path string, _ router.HandlerFunc, _ ...router.MiddlewareFunc) router.RouteInfo {
	return r.add("DELETE", path)
}

func newCreateContext(payload CreateUserRequest) *router.MockContext {
	ctx := router.NewMockContext()
	ctx.On("Context").Return(context.Background())
	ctx.On("Bind", mock.AnythingOfType("*identity.CreateUserRequest")).Run(func(args mock.Arguments) {
		*args.Get(0).(*CreateUserRequest) = payload
	}).Return(nil)
	return ctx
}

func TestHTTPController_RegisterRoutes(t *testing.T) {
	rec := &routeRecorder{}
	NewHTTPController(NewStore(setupBackend(t)), HTTPConfig{}).RegisterRoutes(rec)

	assert.Equal(t, []string{"POST /", "GET /:id", "DELETE /:id"}, rec.routes)
}

func TestHTTPController_CreateGetDelete(t *testing.T) {
	store := NewStore(setupBackend(t))
	ctrl := NewHTTPController(store, HTTPConfig{})

	ctx := newCreateContext(CreateUserRequest{ID: "user-1", UserName: "alice"})
	var created *User
	ctx.On("JSON", router.StatusCreated, mock.Anything).Run(func(args mock.Arguments) {
		created = args.Get(1).(*User)
	}).Return(nil)

	require.NoError(t, ctrl.Create(ctx))
	require.NotNil(t, created)
	assert.Equal(t, "user-1", created.ID)
	assert.Equal(t, "ALICE", created.NormalizedUserName)

	ctx = router.NewMockContext()
	ctx.ParamsM["id"] = "user-1"
	ctx.On("Context").Return(context.Background())
	var found *User
	ctx.On("JSON", router.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
		found = args.Get(1).(*User)
	}).Return(nil)

	require.NoError(t, ctrl.Get(ctx))
	require.NotNil(t, found)
	assert.Equal(t, "alice", found.UserName)

	ctx = router.NewMockContext()
	ctx.ParamsM["id"] = "user-1"
	ctx.On("Context").Return(context.Background())
	ctx.On("JSON", router.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
		assert.True(t, args.Get(1).(Result).Succeeded)
	}).Return(nil)

	require.NoError(t, ctrl.Delete(ctx))
	ctx.AssertExpectations(t)

	user, err := store.FindByID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestHTTPController_CreateGeneratesID(t *testing.T) {
	ctrl := NewHTTPController(NewStore(setupBackend(t)), HTTPConfig{})

	ctx := newCreateContext(CreateUserRequest{UserName: "bob"})
	var created *User
	ctx.On("JSON", router.StatusCreated, mock.Anything).Run(func(args mock.Arguments) {
		created = args.Get(1).(*User)
	}).Return(nil)

	require.NoError(t, ctrl.Create(ctx))
	require.NotNil(t, created)
	assert.NotEmpty(t, created.ID)
}

func TestHTTPController_CreateDuplicate(t *testing.T) {
	store := NewStore(setupBackend(t))
	_, err := store.Create(context.Background(), &User{ID: "user-1", UserName: "alice"})
	require.NoError(t, err)

	ctx := newCreateContext(CreateUserRequest{ID: "user-1", UserName: "alice"})
	var result Result
	ctx.On("JSON", router.StatusConflict, mock.Anything).Run(func(args mock.Arguments) {
		result = args.Get(1).(Result)
	}).Return(nil)

	require.NoError(t, NewHTTPController(store, HTTPConfig{}).Create(ctx))
	ctx.AssertExpectations(t)
	assert.True(t, result.HasCode(CodeDuplicateUserID))
}

func TestHTTPController_CreateRejectsBadPayload(t *testing.T) {
	ctrl := NewHTTPController(NewStore(setupBackend(t)), HTTPConfig{})

	t.Run("missing user name", func(t *testing.T) {
		ctx := newCreateContext(CreateUserRequest{ID: "user-1"})
		ctx.On("JSON", router.StatusBadRequest, mock.Anything).Return(nil)

		require.NoError(t, ctrl.Create(ctx))
		ctx.AssertExpectations(t)
	})

	t.Run("unreadable body", func(t *testing.T) {
		ctx := router.NewMockContext()
		ctx.On("Bind", mock.Anything).Return(errors.New("unexpected EOF"))

		var body map[string]any
		ctx.On("JSON", router.StatusBadRequest, mock.Anything).Run(func(args mock.Arguments) {
			body = args.Get(1).(map[string]any)
		}).Return(nil)

		require.NoError(t, ctrl.Create(ctx))
		assert.Equal(t, auth.TextCodeInvalidArgument, body["code"])
	})
}

func TestHTTPController_NotFound(t *testing.T) {
	ctrl := NewHTTPController(NewStore(setupBackend(t)), HTTPConfig{})

	ctx := router.NewMockContext()
	ctx.ParamsM["id"] = "missing"
	ctx.On("Context").Return(context.Background())
	ctx.On("JSON", router.StatusNotFound, mock.Anything).Return(nil)
	require.NoError(t, ctrl.Get(ctx))
	ctx.AssertExpectations(t)

	ctx = router.NewMockContext()
	ctx.ParamsM["id"] = "missing"
	ctx.On("Context").Return(context.Background())
	var result Result
	ctx.On("JSON", router.StatusNotFound, mock.Anything).Run(func(args mock.Arguments) {
		result = args.Get(1).(Result)
	}).Return(nil)
	require.NoError(t, ctrl.Delete(ctx))
	assert.True(t, result.HasCode(CodeUserNotFound))
}

func TestHTTPController_BlankIDIsBadRequest(t *testing.T) {
	ctrl := NewHTTPController(NewStore(setupBackend(t)), HTTPConfig{})

	ctx := router.NewMockContext()
	ctx.ParamsM["id"] = " "
	ctx.On("Context").Return(context.Background())
	ctx.On("JSON", router.StatusBadRequest, mock.Anything).Return(nil)

	require.NoError(t, ctrl.Delete(ctx))
	ctx.AssertExpectations(t)
}
