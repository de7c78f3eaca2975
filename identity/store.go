package identity

import (
	"context"
	"strings"

	"github.com/goliatone/go-portal-auth"
	"github.com/goliatone/go-portal-auth/entitystore"
	"github.com/puzpuzpuz/xsync/v3"
)

// UserStore is the user persistence contract.
type UserStore interface {
	Create(ctx context.Context, user *User) (Result, error)
	Delete(ctx context.Context, user *User) (Result, error)
	Update(ctx context.Context, user *User) (Result, error)
	FindByID(ctx context.Context, id string) (*User, error)
	FindByName(ctx context.Context, normalizedUserName string) (*User, error)
	GetUserID(ctx context.Context, user *User) (string, error)
	GetUserName(ctx context.Context, user *User) (string, error)
	SetUserName(ctx context.Context, user *User, userName string) error
	GetNormalizedUserName(ctx context.Context, user *User) (string, error)
	SetNormalizedUserName(ctx context.Context, user *User, normalizedName string) error
}

// UserLoginStore manages external logins of a user.
type UserLoginStore interface {
	AddLogin(ctx context.Context, user *User, login Login) error
	RemoveLogin(ctx context.Context, user *User, provider, providerKey string) error
	GetLogins(ctx context.Context, user *User) ([]Login, error)
	FindByLogin(ctx context.Context, provider, providerKey string) (*User, error)
}

// UserEmailStore manages the email of a user.
type UserEmailStore interface {
	SetEmail(ctx context.Context, user *User, email string) error
	GetEmail(ctx context.Context, user *User) (string, error)
	GetEmailConfirmed(ctx context.Context, user *User) (bool, error)
	SetEmailConfirmed(ctx context.Context, user *User, confirmed bool) error
	FindByEmail(ctx context.Context, normalizedEmail string) (*User, error)
	GetNormalizedEmail(ctx context.Context, user *User) (string, error)
	SetNormalizedEmail(ctx context.Context, user *User, normalizedEmail string) error
}

var (
	_ UserStore      = (*Store)(nil)
	_ UserLoginStore = (*Store)(nil)
	_ UserEmailStore = (*Store)(nil)
)

// Store keeps users as contact records of an entity store.
type Store struct {
	client   entitystore.Client
	mapping  Mapping
	clone    bool
	logger   auth.Logger
	inflight *xsync.MapOf[string, struct{}]
}

// Option configures a Store.
type Option func(*Store)

// WithMapping overrides the attribute mapping.
func WithMapping(m Mapping) Option {
	return func(s *Store) {
		s.mapping = m
	}
}

// WithSessionClone runs every call on a cloned client session.
func WithSessionClone(clone bool) Option {
	return func(s *Store) {
		s.clone = clone
	}
}

// WithLogger sets the store logger.
func WithLogger(logger auth.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLoggerProvider resolves the store logger from provider.
func WithLoggerProvider(provider auth.LoggerProvider) Option {
	return func(s *Store) {
		_, s.logger = auth.ResolveLogger("portal.identity", provider, s.logger)
	}
}

// NewStore returns a user store over client.
func NewStore(client entitystore.Client, opts ...Option) *Store {
	_, logger := auth.ResolveLogger("portal.identity", nil, nil)
	s := &Store{
		client:   client,
		mapping:  DefaultMapping(),
		logger:   logger,
		inflight: xsync.NewMapOf[string, struct{}](),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Create stores user as a new contact. A user whose id is already stored, or
// is being stored by a concurrent call, yields a failed Result.
func (s *Store) Create(ctx context.Context, user *User) (Result, error) {
	if err := validUser(user); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	if _, busy := s.inflight.LoadOrStore(user.ID, struct{}{}); busy {
		return duplicate(user.ID), nil
	}
	defer s.inflight.Delete(user.ID)

	client, release, err := entitystore.Session(ctx, s.client, s.clone)
	if err != nil {
		return Result{}, err
	}
	defer release()

	existing, err := s.lookup(ctx, client, user.ID)
	if err != nil {
		return Result{}, err
	}
	if existing != nil {
		return duplicate(user.ID), nil
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	id, err := client.Create(ctx, s.mapping.ToEntity(user))
	if err != nil {
		return Result{}, err
	}

	s.logger.Debug("user stored", "user_id", user.ID, "record_id", id.String())
	return Success(), nil
}

// Delete removes the contact holding user.
func (s *Store) Delete(ctx context.Context, user *User) (Result, error) {
	if err := validUser(user); err != nil {
		return Result{}, err
	}

	client, release, err := entitystore.Session(ctx, s.client, s.clone)
	if err != nil {
		return Result{}, err
	}
	defer release()

	record, err := s.lookup(ctx, client, user.ID)
	if err != nil {
		return Result{}, err
	}
	if record == nil {
		return Failed(nil, ResultError{
			Code:        CodeUserNotFound,
			Description: "no user with id " + user.ID,
		}), nil
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	if err := client.Delete(ctx, record.LogicalName, record.ID); err != nil {
		s.logger.Error("failed to delete user", "user_id", user.ID, "error", err)
		return Failed(err, ResultError{
			Code:        CodeDeleteFailed,
			Description: err.Error(),
		}), nil
	}

	return Success(), nil
}

// FindByID returns the user with id, nil when none is stored. A blank id
// never matches and is answered without a store call.
func (s *Store) FindByID(ctx context.Context, id string) (*User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, nil
	}

	client, release, err := entitystore.Session(ctx, s.client, s.clone)
	if err != nil {
		return nil, err
	}
	defer release()

	record, err := s.lookup(ctx, client, id)
	if err != nil {
		return nil, err
	}
	return s.mapping.FromEntity(record), nil
}

func (s *Store) lookup(ctx context.Context, client entitystore.Client, id string) (*entitystore.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := client.RetrieveMultiple(ctx, s.mapping.ByIDQuery(id))
	if err != nil {
		return nil, err
	}
	if result.Len() == 0 {
		return nil, nil
	}
	if result.Len() > 1 {
		s.logger.Warn("user id stored on more than one record", "user_id", id, "matches", result.Len())
	}
	return result.Entities[0], nil
}

func duplicate(id string) Result {
	return Failed(nil, ResultError{
		Code:        CodeDuplicateUserID,
		Description: "user id " + id + " is already taken",
	})
}

func validUser(user *User) error {
	if user == nil {
		return invalidArgument("user")
	}
	if strings.TrimSpace(user.ID) == "" {
		return invalidArgument("user.id")
	}
	return nil
}

func invalidArgument(field string) error {
	return auth.WithCause(auth.ErrInvalidArgument, nil, map[string]any{
		"field": field,
	})
}

func unsupported(op Operation) error {
	return auth.WithCause(auth.ErrUnsupported, nil, map[string]any{
		"operation": string(op),
	})
}
