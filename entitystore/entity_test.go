package entitystore

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntity_GetPrimaryID(t *testing.T) {
	e := NewEntity("contact")
	e.ID = uuid.New()

	assert.Equal(t, e.ID.String(), e.GetString("contactid"))
	assert.Equal(t, "", e.GetString("firstname"))

	e.Set("contactid", "explicit")
	assert.Equal(t, "explicit", e.GetString("contactid"))
}

func TestEntity_Clone(t *testing.T) {
	e := NewEntity("contact").Set("firstname", "u1")
	clone := e.Clone()
	clone.Set("firstname", "u2")

	assert.Equal(t, "u1", e.GetString("firstname"))
	assert.Equal(t, "u2", clone.GetString("firstname"))
}

func TestColumnSet(t *testing.T) {
	e := NewEntity("contact").Set("firstname", "u1").Set("lastname", "alice")

	assert.Same(t, e, AllColumns().Apply(e))
	assert.Equal(t, "", AllColumns().String())

	cols := Columns("lastname", "fullname")
	assert.Equal(t, "lastname,fullname", cols.String())
	assert.Equal(t, map[string]any{"lastname": "alice"}, cols.Apply(e).Attributes)
}

func TestEntityReference_String(t *testing.T) {
	id := uuid.MustParse("3f2504e0-4f89-11d3-9a0c-0305e82c3301")
	ref := NewEntity("contact")
	ref.ID = id

	assert.Equal(t, "contact(3f2504e0-4f89-11d3-9a0c-0305e82c3301)", ref.Reference().String())
}

type cloningClient struct {
	Client
	clones int
	closed int
}

func (c *cloningClient) Clone(context.Context) (SessionClient, error) {
	c.clones++
	return &sessionStub{parent: c}, nil
}

type sessionStub struct {
	Client
	parent *cloningClient
}

func (s *sessionStub) Close() error {
	s.parent.closed++
	return nil
}

func TestSession(t *testing.T) {
	ctx := context.Background()

	t.Run("shared when clone disabled", func(t *testing.T) {
		client := &cloningClient{}
		session, release, err := Session(ctx, client, false)
		require.NoError(t, err)
		release()

		assert.Same(t, client, session)
		assert.Equal(t, 0, client.clones)
	})

	t.Run("cloned and released", func(t *testing.T) {
		client := &cloningClient{}
		session, release, err := Session(ctx, client, true)
		require.NoError(t, err)
		assert.NotSame(t, client, session)

		release()
		assert.Equal(t, 1, client.clones)
		assert.Equal(t, 1, client.closed)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, _, err := Session(cctx, &cloningClient{}, true)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
