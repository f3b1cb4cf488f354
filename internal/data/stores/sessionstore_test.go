package stores

import (
	"context"
	"testing"

	"github.com/colonyops/foreman/internal/core/plan"
	"github.com/colonyops/foreman/internal/core/session"
	"github.com/colonyops/foreman/internal/data/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.Open(t.TempDir(), db.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func TestSessionStore(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(newTestDB(t))

	t.Run("load missing returns ErrNotFound", func(t *testing.T) {
		_, err := store.Load(ctx, "nope")
		assert.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("save and load round trip", func(t *testing.T) {
		sess := session.New("sess-1")
		sess.AppendMessage(session.RoleUser, "hello")
		sess.Plan = &plan.Plan{Tasks: []plan.Task{{ID: "t1", Tool: "search", Status: plan.StatusPending}}}
		require.NoError(t, store.Save(ctx, sess))
		assert.EqualValues(t, 1, sess.Version)

		loaded, err := store.Load(ctx, "sess-1")
		require.NoError(t, err)
		assert.EqualValues(t, 1, loaded.Version)
		require.Len(t, loaded.Messages, 1)
		assert.Equal(t, "hello", loaded.Messages[0].Content)
		require.NotNil(t, loaded.Plan)
		assert.Equal(t, "t1", loaded.Plan.Tasks[0].ID)
	})

	t.Run("save increments version", func(t *testing.T) {
		loaded, err := store.Load(ctx, "sess-1")
		require.NoError(t, err)
		loaded.AppendMessage(session.RoleAssistant, "hi")
		require.NoError(t, store.Save(ctx, loaded))
		assert.EqualValues(t, 2, loaded.Version)
	})

	t.Run("stale save returns version conflict", func(t *testing.T) {
		a, err := store.Load(ctx, "sess-1")
		require.NoError(t, err)
		b, err := store.Load(ctx, "sess-1")
		require.NoError(t, err)

		require.NoError(t, store.Save(ctx, a))

		err = store.Save(ctx, b)
		assert.ErrorIs(t, err, ErrVersionConflict)
		// failed save must not advance the in-memory version
		assert.Equal(t, a.Version-1, b.Version)
	})

	t.Run("list ids", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, session.New("sess-2")))
		ids, err := store.ListIDs(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, "sess-1")
		assert.Contains(t, ids, "sess-2")
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "sess-2"))
		assert.ErrorIs(t, store.Delete(ctx, "sess-2"), session.ErrNotFound)
	})
}
