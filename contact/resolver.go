package contact

import (
	"context"

	"github.com/goliatone/go-portal-auth"
	"github.com/goliatone/go-portal-auth/entitystore"
	"github.com/google/uuid"
)

const (
	EntityContact          = "contact"
	EntityExternalIdentity = "adx_externalidentity"

	AttributeContactID        = "contactid"
	AttributeFullName         = "fullname"
	AttributeExternalContact  = "adx_contactid"
	AttributeExternalUsername = "adx_username"

	externalIdentityAlias = "ab"
)

// Resolver maps claims to contact records.
type Resolver struct {
	client entitystore.Client
	clone  bool
	logger auth.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithSessionClone makes every lookup run on a cloned client session.
func WithSessionClone(clone bool) Option {
	return func(r *Resolver) {
		r.clone = clone
	}
}

// WithLogger sets the resolver logger.
func WithLogger(logger auth.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver returns a resolver over client.
func NewResolver(client entitystore.Client, opts ...Option) *Resolver {
	_, logger := auth.ResolveLogger("portal.contact", nil, nil)
	r := &Resolver{
		client: client,
		logger: logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// ExternalIdentityQuery returns the fetch for contacts linked to an external
// identity username.
func ExternalIdentityQuery(username string) *entitystore.Fetch {
	return entitystore.AllAttributesOf(EntityContact).
		WithDistinct().
		WithNoLock().
		Link(entitystore.InnerJoin(EntityExternalIdentity, AttributeExternalContact, AttributeContactID, externalIdentityAlias).
			WhereEqual(AttributeExternalUsername, username))
}

// Resolve returns the contact of the principal, or nil when none matches.
// A nameidentifier that is not a uuid yields auth.ErrInvalidIdentifier and
// more than one external identity match yields auth.ErrMultipleMatch.
func (r *Resolver) Resolve(ctx context.Context, claims auth.ClaimSource) (*entitystore.Entity, error) {
	if claims == nil {
		return nil, nil
	}

	if username, ok := claims.Claim(auth.ClaimOID); ok {
		return r.ByExternalIdentity(ctx, username)
	}
	if username, ok := claims.Claim(auth.ClaimObjectIdentifier); ok {
		return r.ByExternalIdentity(ctx, username)
	}

	if raw, ok := claims.Claim(auth.ClaimNameIdentifier); ok {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, auth.WithCause(auth.ErrInvalidIdentifier, err, map[string]any{
				"claim": auth.ClaimNameIdentifier,
			})
		}
		return r.ByID(ctx, id)
	}

	return nil, nil
}

// ByExternalIdentity returns the single contact linked to username.
func (r *Resolver) ByExternalIdentity(ctx context.Context, username string) (*entitystore.Entity, error) {
	client, release, err := entitystore.Session(ctx, r.client, r.clone)
	if err != nil {
		return nil, err
	}
	defer release()

	result, err := client.RetrieveMultiple(ctx, ExternalIdentityQuery(username))
	if err != nil {
		return nil, err
	}

	switch result.Len() {
	case 0:
		return nil, nil
	case 1:
		return result.Entities[0], nil
	default:
		r.logger.Warn("external identity matches more than one contact", "matches", result.Len())
		return nil, auth.WithCause(auth.ErrMultipleMatch, nil, map[string]any{
			"entity":  EntityContact,
			"matches": result.Len(),
		})
	}
}

// ByID retrieves a contact with all attributes, nil when it does not exist.
func (r *Resolver) ByID(ctx context.Context, id uuid.UUID) (*entitystore.Entity, error) {
	client, release, err := entitystore.Session(ctx, r.client, r.clone)
	if err != nil {
		return nil, err
	}
	defer release()

	contact, err := client.Retrieve(ctx, EntityContact, id, entitystore.AllColumns())
	if err != nil {
		if entitystore.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return contact, nil
}
