package contact

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-portal-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_OIDWinsOverNameIdentifier(t *testing.T) {
	client := newStubClient()
	federated := client.addContact("Federated User")
	portal := client.addContact("Portal User")
	client.link("oid-1", federated)

	claims := auth.MapClaims{
		auth.ClaimOID:            "oid-1",
		auth.ClaimNameIdentifier: portal.ID.String(),
	}

	got, err := NewResolver(client).Resolve(context.Background(), claims)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, federated.ID, got.ID)
	assert.Equal(t, 1, client.multipleCalls)
	assert.Equal(t, 0, client.retrieveCalls)
}

func TestResolver_OIDWithoutMatchDoesNotFallBack(t *testing.T) {
	client := newStubClient()
	portal := client.addContact("Portal User")

	claims := auth.MapClaims{
		auth.ClaimOID:            "unknown",
		auth.ClaimNameIdentifier: portal.ID.String(),
	}

	got, err := NewResolver(client).Resolve(context.Background(), claims)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 0, client.retrieveCalls)
}

func TestResolver_ObjectIdentifier(t *testing.T) {
	client := newStubClient()
	federated := client.addContact("Federated User")
	client.link("obj-1", federated)

	got, err := NewResolver(client).Resolve(context.Background(), auth.MapClaims{
		auth.ClaimObjectIdentifier: "obj-1",
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, federated.ID, got.ID)
}

func TestResolver_ExternalIdentityQuery(t *testing.T) {
	client := newStubClient()
	_, err := NewResolver(client).Resolve(context.Background(), auth.MapClaims{auth.ClaimOID: "o'brien"})
	require.NoError(t, err)

	q := client.lastQuery
	require.NotNil(t, q)
	assert.Equal(t, EntityContact, q.Entity.Name)
	assert.NotNil(t, q.Entity.AllAttributes)
	assert.True(t, q.Distinct)
	assert.True(t, q.NoLock)
	require.Len(t, q.Entity.Links, 1)

	link := q.Entity.Links[0]
	assert.Equal(t, EntityExternalIdentity, link.Name)
	assert.Equal(t, AttributeExternalContact, link.From)
	assert.Equal(t, AttributeContactID, link.To)
	assert.True(t, link.IsInner())
	assert.Equal(t, AttributeExternalUsername, link.Filters[0].Conditions[0].Attribute)
	assert.Equal(t, "o'brien", link.Filters[0].Conditions[0].Value)
	assert.NotContains(t, q.String(), "o'brien")
}

func TestResolver_MultipleMatch(t *testing.T) {
	client := newStubClient()
	client.link("oid-1", client.addContact("A"))
	client.link("oid-1", client.addContact("B"))

	got, err := NewResolver(client).Resolve(context.Background(), auth.MapClaims{auth.ClaimOID: "oid-1"})
	assert.Nil(t, got)
	assert.True(t, auth.IsMultipleMatch(err))
}

func TestResolver_NameIdentifier(t *testing.T) {
	client := newStubClient()
	portal := client.addContact("Portal User")

	got, err := NewResolver(client).Resolve(context.Background(), auth.MapClaims{
		auth.ClaimNameIdentifier: portal.ID.String(),
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Portal User", got.GetString(AttributeFullName))
	assert.Equal(t, 0, client.multipleCalls)
}

func TestResolver_SubjectAliasesNameIdentifier(t *testing.T) {
	client := newStubClient()
	portal := client.addContact("Portal User")

	got, err := NewResolver(client).Resolve(context.Background(), auth.MapClaims{
		"sub": portal.ID.String(),
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, portal.ID, got.ID)
}

func TestResolver_NameIdentifierNotFound(t *testing.T) {
	client := newStubClient()

	got, err := NewResolver(client).Resolve(context.Background(), auth.MapClaims{
		auth.ClaimNameIdentifier: "3f2504e0-4f89-11d3-9a0c-0305e82c3301",
	})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestResolver_NameIdentifierInvalid(t *testing.T) {
	client := newStubClient()

	got, err := NewResolver(client).Resolve(context.Background(), auth.MapClaims{
		auth.ClaimNameIdentifier: "not-a-guid",
	})
	assert.Nil(t, got)
	assert.True(t, auth.HasTextCode(err, auth.TextCodeInvalidIdentifier))
	assert.Equal(t, 0, client.retrieveCalls)
}

func TestResolver_NoClaims(t *testing.T) {
	client := newStubClient()

	got, err := NewResolver(client).Resolve(context.Background(), auth.MapClaims{"email": "a@b.c"})
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = NewResolver(client).Resolve(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.Equal(t, 0, client.retrieveCalls+client.multipleCalls)
}

func TestResolver_RemoteFailurePropagates(t *testing.T) {
	boom := errors.New("boom")
	client := newStubClient()
	client.err = boom

	_, err := NewResolver(client).Resolve(context.Background(), auth.MapClaims{auth.ClaimOID: "x"})
	assert.ErrorIs(t, err, boom)
}

func TestResolver_CancelledContext(t *testing.T) {
	client := newStubClient()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewResolver(client).Resolve(ctx, auth.MapClaims{auth.ClaimOID: "x"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, client.multipleCalls)
}
