package bunstore

import (
	"context"
	"database/sql"
	"testing"

	"github.com/goliatone/go-portal-auth"
	"github.com/goliatone/go-portal-auth/entitystore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupStore(t *testing.T) *Store {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		_ = db.Close()
	})

	store := New(db)
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func TestStore_CreateAndRetrieve(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	entity := entitystore.NewEntity("contact").
		Set("firstname", "u1").
		Set("lastname", "alice").
		Set("middlename", "ALICE")

	id, err := store.Create(ctx, entity)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)

	found, err := store.Retrieve(ctx, "contact", id, entitystore.AllColumns())
	require.NoError(t, err)
	assert.Equal(t, id, found.ID)
	assert.Equal(t, "u1", found.GetString("firstname"))
	assert.Equal(t, "alice", found.GetString("lastname"))
	assert.Equal(t, id.String(), found.GetString("contactid"))

	partial, err := store.Retrieve(ctx, "contact", id, entitystore.Columns("lastname"))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"lastname": "alice"}, partial.Attributes)
}

func TestStore_CreateKeepsGivenID(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	entity := entitystore.NewEntity("contact").Set("firstname", "u1")
	entity.ID = uuid.New()

	id, err := store.Create(ctx, entity)
	require.NoError(t, err)
	assert.Equal(t, entity.ID, id)
}

func TestStore_RetrieveNotFound(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	_, err := store.Retrieve(ctx, "contact", uuid.New(), entitystore.AllColumns())
	assert.True(t, entitystore.IsNotFound(err))

	id, err := store.Create(ctx, entitystore.NewEntity("account").Set("name", "acme"))
	require.NoError(t, err)

	_, err = store.Retrieve(ctx, "contact", id, entitystore.AllColumns())
	assert.True(t, entitystore.IsNotFound(err), "type mismatch is not found")
}

func TestStore_Update(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, entitystore.NewEntity("contact").Set("firstname", "u1").Set("lastname", "alice"))
	require.NoError(t, err)

	patch := entitystore.NewEntity("contact").Set("lastname", "bob")
	patch.ID = id
	require.NoError(t, store.Update(ctx, patch))

	found, err := store.Retrieve(ctx, "contact", id, entitystore.AllColumns())
	require.NoError(t, err)
	assert.Equal(t, "u1", found.GetString("firstname"))
	assert.Equal(t, "bob", found.GetString("lastname"))

	missing := entitystore.NewEntity("contact")
	missing.ID = uuid.New()
	assert.True(t, entitystore.IsNotFound(store.Update(ctx, missing)))
}

func TestStore_Delete(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, entitystore.NewEntity("contact").Set("firstname", "u1"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "contact", id))

	_, err = store.Retrieve(ctx, "contact", id, entitystore.AllColumns())
	assert.True(t, entitystore.IsNotFound(err))

	assert.True(t, entitystore.IsNotFound(store.Delete(ctx, "contact", id)))
}

func TestStore_RetrieveMultipleWithExternalIdentity(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	aliceID, err := store.Create(ctx, entitystore.NewEntity("contact").Set("firstname", "u1"))
	require.NoError(t, err)
	_, err = store.Create(ctx, entitystore.NewEntity("contact").Set("firstname", "u2"))
	require.NoError(t, err)

	_, err = store.Create(ctx, entitystore.NewEntity("adx_externalidentity").
		Set("adx_username", "oid-alice").
		Set("adx_contactid", aliceID.String()))
	require.NoError(t, err)

	query := entitystore.AllAttributesOf("contact").
		WithDistinct().
		WithNoLock().
		Link(entitystore.InnerJoin("adx_externalidentity", "adx_contactid", "contactid", "ab").
			WhereEqual("adx_username", "oid-alice"))

	out, err := store.RetrieveMultiple(ctx, query)
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, aliceID, out.Entities[0].ID)

	all, err := store.RetrieveMultiple(ctx, entitystore.AllAttributesOf("contact"))
	require.NoError(t, err)
	assert.Equal(t, 2, all.Len())

	byFirstName, err := store.RetrieveMultiple(ctx, entitystore.AllAttributesOf("contact").WhereEqual("firstname", "u2"))
	require.NoError(t, err)
	require.Equal(t, 1, byFirstName.Len())
	assert.NotEqual(t, aliceID, byFirstName.Entities[0].ID)
}

func TestStore_Associations(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	contactID, err := store.Create(ctx, entitystore.NewEntity("contact").Set("firstname", "u1"))
	require.NoError(t, err)
	roleID, err := store.Create(ctx, entitystore.NewEntity("adx_webrole").Set("adx_name", "Administrators"))
	require.NoError(t, err)

	contact := entitystore.EntityReference{LogicalName: "contact", ID: contactID}
	role := entitystore.EntityReference{LogicalName: "adx_webrole", ID: roleID}

	require.NoError(t, store.Associate(ctx, contact, "adx_webrole_contact", role))
	require.NoError(t, store.Associate(ctx, contact, "adx_webrole_contact", role))

	related, err := store.Related(ctx, contact, "adx_webrole_contact")
	require.NoError(t, err)
	assert.Equal(t, []entitystore.EntityReference{role}, related)

	require.NoError(t, store.Disassociate(ctx, contact, "adx_webrole_contact", role))

	related, err = store.Related(ctx, contact, "adx_webrole_contact")
	require.NoError(t, err)
	assert.Empty(t, related)
}

func TestStore_Execute(t *testing.T) {
	callerID := uuid.New()
	store := setupStore(t)
	WithCallerID(callerID)(store)
	ctx := context.Background()

	resp, err := store.Execute(ctx, entitystore.NewRequest(RequestWhoAmI))
	require.NoError(t, err)
	assert.Equal(t, callerID.String(), resp.Results["UserId"])

	_, err = store.Execute(ctx, entitystore.NewRequest("RetrieveVersion"))
	assert.True(t, auth.IsUnsupported(err))
}

func TestStore_CancelledContext(t *testing.T) {
	store := setupStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Create(ctx, entitystore.NewEntity("contact"))
	assert.ErrorIs(t, err, context.Canceled)

	_, err = store.RetrieveMultiple(ctx, entitystore.AllAttributesOf("contact"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAssociationID_Stable(t *testing.T) {
	target := entitystore.EntityReference{LogicalName: "contact", ID: uuid.MustParse("3f2504e0-4f89-11d3-9a0c-0305e82c3301")}
	related := entitystore.EntityReference{LogicalName: "adx_webrole", ID: uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")}

	a, err := AssociationID("rel", target, related)
	require.NoError(t, err)
	b, err := AssociationID("rel", target, related)
	require.NoError(t, err)
	c, err := AssociationID("other", target, related)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
