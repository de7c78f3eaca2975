package bunstore

import (
	"fmt"
	"time"

	"github.com/goliatone/go-portal-auth/entitystore"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// EntityRecord is the bun model of an entity.
type EntityRecord struct {
	bun.BaseModel `bun:"table:portal_entities,alias:ent"`
	ID            uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	LogicalName   string         `bun:"logical_name,notnull" json:"logical_name"`
	Attributes    map[string]any `bun:"attributes,type:jsonb" json:"attributes,omitempty"`
	CreatedAt     *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// AssociationRecord links two entities through a named relationship.
type AssociationRecord struct {
	bun.BaseModel `bun:"table:portal_associations,alias:pas"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Relationship  string     `bun:"relationship,notnull" json:"relationship"`
	EntityName    string     `bun:"entity_name,notnull" json:"entity_name"`
	EntityID      uuid.UUID  `bun:"entity_id,notnull,type:uuid" json:"entity_id"`
	RelatedName   string     `bun:"related_name,notnull" json:"related_name"`
	RelatedID     uuid.UUID  `bun:"related_id,notnull,type:uuid" json:"related_id"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// AssociationID derives a stable id so linking the same pair twice is a no op.
func AssociationID(relationship string, target, related entitystore.EntityReference) (uuid.UUID, error) {
	return hashid.NewUUID(fmt.Sprintf("%s|%s|%s", relationship, target, related))
}

func newRecord(e *entitystore.Entity) *EntityRecord {
	attrs := make(map[string]any, len(e.Attributes))
	for k, v := range e.Attributes {
		if k == entitystore.PrimaryIDAttribute(e.LogicalName) {
			continue
		}
		attrs[k] = v
	}
	return &EntityRecord{
		ID:          e.ID,
		LogicalName: e.LogicalName,
		Attributes:  attrs,
	}
}

func (r *EntityRecord) toEntity() *entitystore.Entity {
	e := entitystore.NewEntity(r.LogicalName)
	e.ID = r.ID
	for k, v := range r.Attributes {
		e.Attributes[k] = v
	}
	return e
}
