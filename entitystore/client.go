package entitystore

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// Client is the capability set of the remote entity store.
type Client interface {
	Create(ctx context.Context, entity *Entity) (uuid.UUID, error)
	Retrieve(ctx context.Context, logicalName string, id uuid.UUID, columns ColumnSet) (*Entity, error)
	RetrieveMultiple(ctx context.Context, query *Fetch) (*EntityCollection, error)
	Update(ctx context.Context, entity *Entity) error
	Delete(ctx context.Context, logicalName string, id uuid.UUID) error
	Associate(ctx context.Context, target EntityReference, relationship string, related ...EntityReference) error
	Disassociate(ctx context.Context, target EntityReference, relationship string, related ...EntityReference) error
	Execute(ctx context.Context, req *Request) (*Response, error)
}

// Cloner is implemented by clients that hand out per caller sessions.
type Cloner interface {
	Clone(ctx context.Context) (SessionClient, error)
}

// SessionClient is a cloned client that must be closed after use.
type SessionClient interface {
	Client
	io.Closer
}

// Request is a named message sent with Execute, e.g. WhoAmI.
type Request struct {
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// NewRequest returns a request without parameters.
func NewRequest(name string) *Request {
	return &Request{Name: name, Parameters: map[string]any{}}
}

// Response holds the values returned by Execute.
type Response struct {
	Name    string         `json:"name"`
	Results map[string]any `json:"results"`
}

// Session returns a client scoped to one logical caller and a release func
// that must run on every exit path. Clients that do not clone are shared and
// the release func is a no op.
func Session(ctx context.Context, client Client, clone bool) (Client, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	cloner, ok := client.(Cloner)
	if !clone || !ok {
		return client, func() {}, nil
	}

	session, err := cloner.Clone(ctx)
	if err != nil {
		return nil, nil, err
	}

	return session, func() { _ = session.Close() }, nil
}
