package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aswinikumar555/ai-customer-support/internal/domain"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedConversation(t *testing.T, store ConversationStore, owner string, at time.Time) *domain.Conversation {
	t.Helper()
	c := domain.NewConversation(owner, at)
	c.Append(domain.SenderUser, "hello", at)
	c.Append(domain.SenderAssistant, "hi", at.Add(time.Second))
	if _, err := store.Create(context.Background(), c); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return c
}

func runStoreContract(t *testing.T, newStore func(t *testing.T) ConversationStore) {
	ctx := context.Background()
	base := time.Date(2026, 10, 15, 9, 30, 0, 123456789, time.UTC)

	t.Run("create and find round trip", func(t *testing.T) {
		store := newStore(t)
		c := seedConversation(t, store, "u1", base)
		require.NotEmpty(t, c.ID)
		assert.Equal(t, int64(1), c.Version)

		got, err := store.FindByIDAndOwner(ctx, c.ID, "u1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, c.Title, got.Title)
		assert.True(t, c.CreatedAt.Equal(got.CreatedAt))
		assert.True(t, c.UpdatedAt.Equal(got.UpdatedAt))
		require.Len(t, got.Messages, 2)
		assert.Equal(t, domain.SenderUser, got.Messages[0].Sender)
		assert.Equal(t, domain.SenderAssistant, got.Messages[1].Sender)
		assert.True(t, got.Messages[1].Timestamp.Equal(base.Add(time.Second)))
		assert.Equal(t, int64(1), got.Version)
	})

	t.Run("find is owner scoped", func(t *testing.T) {
		store := newStore(t)
		c := seedConversation(t, store, "u1", base)

		got, err := store.FindByIDAndOwner(ctx, c.ID, "u2")
		require.NoError(t, err)
		assert.Nil(t, got)

		got, err = store.FindByIDAndOwner(ctx, "missing", "u1")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("list orders by updated desc", func(t *testing.T) {
		store := newStore(t)
		older := seedConversation(t, store, "u1", base)
		newer := seedConversation(t, store, "u1", base.Add(time.Hour))
		seedConversation(t, store, "u2", base.Add(2*time.Hour))

		list, err := store.ListByOwner(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, newer.ID, list[0].ID)
		assert.Equal(t, older.ID, list[1].ID)
		assert.Equal(t, 2, list[0].MessageCount)

		// Appending to the older conversation moves it to the front.
		older.Append(domain.SenderUser, "again", base.Add(3*time.Hour))
		require.NoError(t, store.Save(ctx, older))

		list, err = store.ListByOwner(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, older.ID, list[0].ID)
		assert.Equal(t, 3, list[0].MessageCount)

		empty, err := store.ListByOwner(ctx, "nobody")
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)
	})

	t.Run("save bumps version and detects conflicts", func(t *testing.T) {
		store := newStore(t)
		c := seedConversation(t, store, "u1", base)

		first, err := store.FindByIDAndOwner(ctx, c.ID, "u1")
		require.NoError(t, err)
		second, err := store.FindByIDAndOwner(ctx, c.ID, "u1")
		require.NoError(t, err)

		first.Append(domain.SenderUser, "from first", base.Add(time.Minute))
		require.NoError(t, store.Save(ctx, first))
		assert.Equal(t, int64(2), first.Version)

		second.Append(domain.SenderUser, "from second", base.Add(time.Minute))
		err = store.Save(ctx, second)
		if !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected conflict, got %v", err)
		}

		got, err := store.FindByIDAndOwner(ctx, c.ID, "u1")
		require.NoError(t, err)
		require.Len(t, got.Messages, 3)
		assert.Equal(t, "from first", got.Messages[2].Content)
	})

	t.Run("save never upserts", func(t *testing.T) {
		store := newStore(t)
		ghost := domain.NewConversation("u1", base)
		ghost.ID = "ghost"
		ghost.Version = 1
		err := store.Save(ctx, ghost)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		got, err := store.FindByIDAndOwner(ctx, "ghost", "u1")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("save is owner scoped", func(t *testing.T) {
		store := newStore(t)
		c := seedConversation(t, store, "u1", base)
		stolen := c.Clone()
		stolen.OwnerID = "u2"
		stolen.Append(domain.SenderUser, "mine now", base.Add(time.Minute))
		assert.ErrorIs(t, store.Save(ctx, stolen), domain.ErrNotFound)
	})
}

func TestSQLiteStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) ConversationStore {
		return newTestStore(t)
	})
}

func TestSQLiteStoreMigrationsAreIdempotent(t *testing.T) {
	dsn := "file:" + t.TempDir() + "/chat.db?cache=shared&mode=rwc"
	first, err := Open(context.Background(), DriverSQLite, dsn)
	require.NoError(t, err)
	c := seedConversation(t, first, "u1", time.Now())
	require.NoError(t, first.Close())

	second, err := Open(context.Background(), DriverSQLite, dsn)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.FindByIDAndOwner(context.Background(), c.ID, "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "whatever")
	require.Error(t, err)
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{driver: DriverPostgres}
	assert.Equal(t, "a = $1 AND b = $2", pg.rebind("a = ? AND b = ?"))

	lite := &SQLStore{driver: DriverSQLite}
	assert.Equal(t, "a = ? AND b = ?", lite.rebind("a = ? AND b = ?"))
}
