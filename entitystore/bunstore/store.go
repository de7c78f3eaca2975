package bunstore

import (
	"context"
	"time"

	"github.com/goliatone/go-portal-auth"
	"github.com/goliatone/go-portal-auth/entitystore"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RequestWhoAmI is the only message Execute understands.
const RequestWhoAmI = "WhoAmI"

// Store is an entitystore.Client backed by bun.
type Store struct {
	db       *bun.DB
	entities repository.Repository[*EntityRecord]
	callerID uuid.UUID
	logger   auth.Logger
}

var _ entitystore.Client = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(logger auth.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCallerID sets the user id WhoAmI reports.
func WithCallerID(id uuid.UUID) Option {
	return func(s *Store) {
		s.callerID = id
	}
}

// New returns a store over db. Call Migrate before first use on a fresh
// database.
func New(db *bun.DB, opts ...Option) *Store {
	_, logger := auth.ResolveLogger("portal.bunstore", nil, nil)
	s := &Store{
		db: db,
		entities: repository.NewRepository[*EntityRecord](db, repository.ModelHandlers[*EntityRecord]{
			NewRecord: func() *EntityRecord { return &EntityRecord{} },
			GetID: func(r *EntityRecord) uuid.UUID {
				if r == nil {
					return uuid.Nil
				}
				return r.ID
			},
			SetID: func(r *EntityRecord, id uuid.UUID) {
				if r != nil {
					r.ID = id
				}
			},
		}),
		logger: logger,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	if s.callerID == uuid.Nil {
		if id, err := hashid.NewUUID("portal-auth:local-caller"); err == nil {
			s.callerID = id
		}
	}

	return s
}

// Migrate creates the tables used by the store.
func (s *Store) Migrate(ctx context.Context) error {
	models := []any{
		(*EntityRecord)(nil),
		(*AssociationRecord)(nil),
	}
	for _, model := range models {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}

	_, err := s.db.NewCreateIndex().
		Model((*EntityRecord)(nil)).
		Index("portal_entities_logical_name_idx").
		IfNotExists().
		Column("logical_name").
		Exec(ctx)
	return err
}

// Create implements entitystore.Client. A missing id is generated.
func (s *Store) Create(ctx context.Context, entity *entitystore.Entity) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}
	if entity == nil || entity.LogicalName == "" {
		return uuid.Nil, auth.WithCause(auth.ErrInvalidArgument, nil, map[string]any{"operation": "create"})
	}

	record := newRecord(entity)
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	now := time.Now().UTC()
	record.CreatedAt = &now
	record.UpdatedAt = &now

	created, err := s.entities.CreateTx(ctx, s.db, record)
	if err != nil {
		return uuid.Nil, auth.WithCause(auth.ErrRemoteCall, err, map[string]any{
			"operation": "create",
			"entity":    entity.LogicalName,
		})
	}

	s.logger.Debug("entity created", "entity", created.LogicalName, "id", created.ID)
	return created.ID, nil
}

// Retrieve implements entitystore.Client.
func (s *Store) Retrieve(ctx context.Context, logicalName string, id uuid.UUID, columns entitystore.ColumnSet) (*entitystore.Entity, error) {
	record, err := s.get(ctx, logicalName, id)
	if err != nil {
		return nil, err
	}
	return columns.Apply(record.toEntity()), nil
}

// RetrieveMultiple implements entitystore.Client.
func (s *Store) RetrieveMultiple(ctx context.Context, query *entitystore.Fetch) (*entitystore.EntityCollection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return entitystore.Evaluate(ctx, query, s.load)
}

// Update implements entitystore.Client. Attributes are merged into the
// stored ones.
func (s *Store) Update(ctx context.Context, entity *entitystore.Entity) error {
	if entity == nil || entity.ID == uuid.Nil {
		return auth.WithCause(auth.ErrInvalidArgument, nil, map[string]any{"operation": "update"})
	}

	record, err := s.get(ctx, entity.LogicalName, entity.ID)
	if err != nil {
		return err
	}

	if record.Attributes == nil {
		record.Attributes = map[string]any{}
	}
	for k, v := range newRecord(entity).Attributes {
		record.Attributes[k] = v
	}
	now := time.Now().UTC()
	record.UpdatedAt = &now

	if _, err := s.entities.UpdateTx(ctx, s.db, record, repository.UpdateByID(record.ID.String())); err != nil {
		return auth.WithCause(auth.ErrRemoteCall, err, map[string]any{
			"operation": "update",
			"entity":    entity.LogicalName,
		})
	}
	return nil
}

// Delete implements entitystore.Client. Associations of the entity are
// removed with it.
func (s *Store) Delete(ctx context.Context, logicalName string, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().
			Model((*EntityRecord)(nil)).
			Where("id = ?", id).
			Where("logical_name = ?", logicalName).
			Exec(ctx)
		if err != nil {
			return auth.WithCause(auth.ErrRemoteCall, err, map[string]any{"operation": "delete", "entity": logicalName})
		}

		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return entitystore.NotFound(logicalName, id.String())
		}

		_, err = tx.NewDelete().
			Model((*AssociationRecord)(nil)).
			WhereOr("entity_id = ?", id).
			WhereOr("related_id = ?", id).
			Exec(ctx)
		return err
	})
}

// Associate implements entitystore.Client.
func (s *Store) Associate(ctx context.Context, target entitystore.EntityReference, relationship string, related ...entitystore.EntityReference) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, rel := range related {
		id, err := AssociationID(relationship, target, rel)
		if err != nil {
			return auth.WithCause(auth.ErrInvalidArgument, err, map[string]any{"operation": "associate"})
		}

		now := time.Now().UTC()
		record := &AssociationRecord{
			ID:           id,
			Relationship: relationship,
			EntityName:   target.LogicalName,
			EntityID:     target.ID,
			RelatedName:  rel.LogicalName,
			RelatedID:    rel.ID,
			CreatedAt:    &now,
		}

		if _, err := s.db.NewInsert().Model(record).On("CONFLICT (id) DO NOTHING").Exec(ctx); err != nil {
			return auth.WithCause(auth.ErrRemoteCall, err, map[string]any{"operation": "associate"})
		}
	}
	return nil
}

// Disassociate implements entitystore.Client.
func (s *Store) Disassociate(ctx context.Context, target entitystore.EntityReference, relationship string, related ...entitystore.EntityReference) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, rel := range related {
		id, err := AssociationID(relationship, target, rel)
		if err != nil {
			return auth.WithCause(auth.ErrInvalidArgument, err, map[string]any{"operation": "disassociate"})
		}
		if _, err := s.db.NewDelete().Model((*AssociationRecord)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
			return auth.WithCause(auth.ErrRemoteCall, err, map[string]any{"operation": "disassociate"})
		}
	}
	return nil
}

// Related returns the references linked to target through relationship.
func (s *Store) Related(ctx context.Context, target entitystore.EntityReference, relationship string) ([]entitystore.EntityReference, error) {
	var records []AssociationRecord
	err := s.db.NewSelect().
		Model(&records).
		Where("relationship = ?", relationship).
		Where("entity_id = ?", target.ID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]entitystore.EntityReference, 0, len(records))
	for _, r := range records {
		out = append(out, entitystore.EntityReference{LogicalName: r.RelatedName, ID: r.RelatedID})
	}
	return out, nil
}

// Execute implements entitystore.Client for WhoAmI.
func (s *Store) Execute(ctx context.Context, req *entitystore.Request) (*entitystore.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req == nil || req.Name != RequestWhoAmI {
		name := ""
		if req != nil {
			name = req.Name
		}
		return nil, auth.WithCause(auth.ErrUnsupported, nil, map[string]any{
			"operation": "execute",
			"request":   name,
		})
	}

	return &entitystore.Response{
		Name: req.Name,
		Results: map[string]any{
			"UserId": s.callerID.String(),
		},
	}, nil
}

func (s *Store) get(ctx context.Context, logicalName string, id uuid.UUID) (*EntityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	record, err := s.entities.GetByID(ctx, id.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, entitystore.NotFound(logicalName, id.String())
		}
		return nil, auth.WithCause(auth.ErrRemoteCall, err, map[string]any{
			"operation": "retrieve",
			"entity":    logicalName,
		})
	}

	if record.LogicalName != logicalName {
		return nil, entitystore.NotFound(logicalName, id.String())
	}
	return record, nil
}

func (s *Store) load(ctx context.Context, logicalName string) ([]*entitystore.Entity, error) {
	var records []EntityRecord
	err := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.logical_name = ?", logicalName).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, auth.WithCause(auth.ErrRemoteCall, err, map[string]any{
			"operation": "retrieve_multiple",
			"entity":    logicalName,
		})
	}

	out := make([]*entitystore.Entity, 0, len(records))
	for i := range records {
		out = append(out, records[i].toEntity())
	}
	return out, nil
}
