package identity

import (
	"github.com/goliatone/go-portal-auth/entitystore"
	"github.com/google/uuid"
)

// User is the identity record kept on a contact.
type User struct {
	ID                 string `json:"id"`
	UserName           string `json:"user_name"`
	NormalizedUserName string `json:"normalized_user_name"`
}

// NewUser returns a user with a freshly generated id.
func NewUser(userName string) *User {
	return &User{
		ID:       uuid.NewString(),
		UserName: userName,
	}
}

// Login is an external login attached to a user.
type Login struct {
	Provider    string `json:"provider"`
	ProviderKey string `json:"provider_key"`
	DisplayName string `json:"display_name"`
}

// Mapping translates users to entity attributes.
type Mapping struct {
	Entity             string
	ID                 string
	UserName           string
	NormalizedUserName string
}

// DefaultMapping stores users on contact as firstname, lastname and
// middlename.
func DefaultMapping() Mapping {
	return Mapping{
		Entity:             "contact",
		ID:                 "firstname",
		UserName:           "lastname",
		NormalizedUserName: "middlename",
	}
}

// ToEntity returns a new entity carrying the user fields.
func (m Mapping) ToEntity(u *User) *entitystore.Entity {
	return entitystore.NewEntity(m.Entity).
		Set(m.ID, u.ID).
		Set(m.UserName, u.UserName).
		Set(m.NormalizedUserName, u.NormalizedUserName)
}

// FromEntity rebuilds a user from an entity.
func (m Mapping) FromEntity(e *entitystore.Entity) *User {
	if e == nil {
		return nil
	}
	return &User{
		ID:                 e.GetString(m.ID),
		UserName:           e.GetString(m.UserName),
		NormalizedUserName: e.GetString(m.NormalizedUserName),
	}
}

// ByIDQuery selects entities whose mapped id equals id. All attributes are
// fetched so the record id survives for Delete.
func (m Mapping) ByIDQuery(id string) *entitystore.Fetch {
	return entitystore.AllAttributesOf(m.Entity).
		WhereEqual(m.ID, id)
}
