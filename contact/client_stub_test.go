package contact

import (
	"context"

	"github.com/goliatone/go-portal-auth"
	"github.com/goliatone/go-portal-auth/entitystore"
	"github.com/google/uuid"
)

// stubClient serves contacts from memory and records the calls it receives.
type stubClient struct {
	contacts   map[uuid.UUID]*entitystore.Entity
	identities map[string][]uuid.UUID
	err        error

	retrieveCalls int
	multipleCalls int
	lastQuery     *entitystore.Fetch
}

func newStubClient() *stubClient {
	return &stubClient{
		contacts:   map[uuid.UUID]*entitystore.Entity{},
		identities: map[string][]uuid.UUID{},
	}
}

func (s *stubClient) addContact(fullname string) *entitystore.Entity {
	e := entitystore.NewEntity(EntityContact).Set(AttributeFullName, fullname)
	e.ID = uuid.New()
	s.contacts[e.ID] = e
	return e
}

func (s *stubClient) link(username string, contact *entitystore.Entity) {
	s.identities[username] = append(s.identities[username], contact.ID)
}

func (s *stubClient) Create(context.Context, *entitystore.Entity) (uuid.UUID, error) {
	return uuid.Nil, auth.ErrUnsupported
}

func (s *stubClient) Retrieve(_ context.Context, logicalName string, id uuid.UUID, _ entitystore.ColumnSet) (*entitystore.Entity, error) {
	s.retrieveCalls++
	if s.err != nil {
		return nil, s.err
	}
	e, ok := s.contacts[id]
	if !ok {
		return nil, entitystore.NotFound(logicalName, id.String())
	}
	return e, nil
}

func (s *stubClient) RetrieveMultiple(_ context.Context, query *entitystore.Fetch) (*entitystore.EntityCollection, error) {
	s.multipleCalls++
	s.lastQuery = query
	if s.err != nil {
		return nil, s.err
	}

	out := &entitystore.EntityCollection{EntityName: query.Entity.Name}
	if len(query.Entity.Links) == 0 {
		for _, e := range s.contacts {
			out.Entities = append(out.Entities, e)
		}
		return out, nil
	}

	username := query.Entity.Links[0].Filters[0].Conditions[0].Value
	for _, id := range s.identities[username] {
		out.Entities = append(out.Entities, s.contacts[id])
	}
	return out, nil
}

func (s *stubClient) Update(context.Context, *entitystore.Entity) error {
	return auth.ErrUnsupported
}

func (s *stubClient) Delete(context.Context, string, uuid.UUID) error {
	return auth.ErrUnsupported
}

func (s *stubClient) Associate(context.Context, entitystore.EntityReference, string, ...entitystore.EntityReference) error {
	return auth.ErrUnsupported
}

func (s *stubClient) Disassociate(context.Context, entitystore.EntityReference, string, ...entitystore.EntityReference) error {
	return auth.ErrUnsupported
}

func (s *stubClient) Execute(context.Context, *entitystore.Request) (*entitystore.Response, error) {
	return nil, auth.ErrUnsupported
}
