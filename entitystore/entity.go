package entitystore

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Entity is a record of the remote store.
type Entity struct {
	LogicalName string         `json:"logical_name"`
	ID          uuid.UUID      `json:"id"`
	Attributes  map[string]any `json:"attributes"`
}

// NewEntity returns an empty entity of the given type.
func NewEntity(logicalName string) *Entity {
	return &Entity{
		LogicalName: logicalName,
		Attributes:  map[string]any{},
	}
}

// PrimaryIDAttribute returns the name of the id attribute of an entity type,
// e.g. contactid for contact.
func PrimaryIDAttribute(logicalName string) string {
	return logicalName + "id"
}

// Set assigns an attribute value.
func (e *Entity) Set(name string, value any) *Entity {
	if e.Attributes == nil {
		e.Attributes = map[string]any{}
	}
	e.Attributes[name] = value
	return e
}

// Get returns an attribute value. The primary id attribute resolves to ID
// when it is not stored explicitly.
func (e *Entity) Get(name string) (any, bool) {
	if e == nil {
		return nil, false
	}
	if v, ok := e.Attributes[name]; ok && v != nil {
		return v, true
	}
	if name == PrimaryIDAttribute(e.LogicalName) && e.ID != uuid.Nil {
		return e.ID.String(), true
	}
	return nil, false
}

// GetString returns an attribute as a string, empty when absent.
func (e *Entity) GetString(name string) string {
	v, ok := e.Get(name)
	if !ok {
		return ""
	}
	switch typed := v.(type) {
	case string:
		return typed
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprint(typed)
	}
}

// Reference returns a reference to the entity.
func (e *Entity) Reference() EntityReference {
	return EntityReference{LogicalName: e.LogicalName, ID: e.ID}
}

// Clone returns a shallow copy with its own attribute map.
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	out := &Entity{
		LogicalName: e.LogicalName,
		ID:          e.ID,
		Attributes:  make(map[string]any, len(e.Attributes)),
	}
	for k, v := range e.Attributes {
		out.Attributes[k] = v
	}
	return out
}

// EntityReference points at an entity by type and id.
type EntityReference struct {
	LogicalName string    `json:"logical_name"`
	ID          uuid.UUID `json:"id"`
}

func (r EntityReference) String() string {
	return fmt.Sprintf("%s(%s)", r.LogicalName, r.ID)
}

// EntityCollection is the result of a multiple retrieve.
type EntityCollection struct {
	EntityName string    `json:"entity_name"`
	Entities   []*Entity `json:"entities"`
}

// Len returns the number of entities.
func (c *EntityCollection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Entities)
}

// ColumnSet selects the attributes returned by Retrieve.
type ColumnSet struct {
	AllColumns bool
	Columns    []string
}

// AllColumns selects every attribute.
func AllColumns() ColumnSet {
	return ColumnSet{AllColumns: true}
}

// Columns selects the named attributes.
func Columns(names ...string) ColumnSet {
	return ColumnSet{Columns: names}
}

// Apply filters attrs down to the selected columns.
func (c ColumnSet) Apply(e *Entity) *Entity {
	if e == nil || c.AllColumns || len(c.Columns) == 0 {
		return e
	}
	out := NewEntity(e.LogicalName)
	out.ID = e.ID
	for _, name := range c.Columns {
		if v, ok := e.Get(name); ok {
			out.Attributes[name] = v
		}
	}
	return out
}

// String renders the column set the way the Web API $select expects it.
func (c ColumnSet) String() string {
	if c.AllColumns {
		return ""
	}
	return strings.Join(c.Columns, ",")
}
