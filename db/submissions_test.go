package db_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BlobEmoji/Artemis/db"
	"github.com/BlobEmoji/Artemis/model"
)

func openStore(t *testing.T) *db.Store {
	t.Helper()
	store, err := db.Open(context.Background(), model.Database{
		Driver: "sqlite3",
		DSN:    filepath.Join(t.TempDir(), "data", "artemis.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func insert(t *testing.T, store *db.Store, user, url string, prompt int) *model.Submission {
	t.Helper()
	sub, err := store.Insert(context.Background(), db.NewSubmission{
		UserID:         user,
		ImageURL:       url,
		PromptID:       prompt,
		MessageID:      "msg-" + url,
		QueueMessageID: "queue-" + url,
	})
	require.NoError(t, err)
	return sub
}

func TestInsertAssignsPendingRow(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	sub := insert(t, store, "u1", "https://img.example/a.png", 1)
	assert.NotZero(t, sub.ID)
	assert.Equal(t, model.StatusPending, sub.Status)
	assert.Equal(t, "queue-https://img.example/a.png", sub.QueueMessageID)
	assert.Empty(t, sub.GalleryMessageID)
	assert.False(t, sub.CreatedAt.IsZero())

	exists, err := store.ExistsByURL(ctx, "https://img.example/a.png")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.ExistsByURL(ctx, "https://img.example/b.png")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestInsertRejectsDuplicateURL(t *testing.T) {
	store := openStore(t)
	insert(t, store, "u1", "https://img.example/a.png", 0)

	_, err := store.Insert(context.Background(), db.NewSubmission{
		UserID:         "u2",
		ImageURL:       "https://img.example/a.png",
		MessageID:      "other",
		QueueMessageID: "other-queue",
	})
	require.ErrorIs(t, err, db.ErrDuplicateSubmission)
}

func TestConcurrentInsertsKeepOneRowPerURL(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		inserted   int
		duplicates int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Insert(ctx, db.NewSubmission{
				UserID:         fmt.Sprintf("u%d", i),
				ImageURL:       "https://img.example/same.png",
				MessageID:      fmt.Sprintf("m%d", i),
				QueueMessageID: fmt.Sprintf("q%d", i),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				inserted++
			case assert.ErrorIs(t, err, db.ErrDuplicateSubmission):
				duplicates++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, inserted)
	assert.Equal(t, 7, duplicates)
}

func TestSetStatusIsMonotonic(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	sub := insert(t, store, "u1", "https://img.example/a.png", 0)

	updated, err := store.SetStatus(ctx, sub.ID, model.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, updated.Status)

	for _, status := range []model.Status{model.StatusDenied, model.StatusDismissed, model.StatusApproved} {
		_, err := store.SetStatus(ctx, sub.ID, status)
		require.ErrorIs(t, err, db.ErrNotPending)
	}

	_, err = store.SetStatus(ctx, sub.ID, model.StatusPending)
	require.ErrorIs(t, err, db.ErrInvalidTransition)

	_, err = store.SetStatus(ctx, 9999, model.StatusDenied)
	require.ErrorIs(t, err, db.ErrNotFound)

	fetched, err := store.GetByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, fetched.Status)
}

func TestReassignPromptOnlyWhilePending(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	sub := insert(t, store, "u1", "https://img.example/a.png", 0)

	updated, err := store.ReassignPrompt(ctx, sub.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.PromptID)

	_, err = store.SetStatus(ctx, sub.ID, model.StatusDismissed)
	require.NoError(t, err)

	_, err = store.ReassignPrompt(ctx, sub.ID, 1)
	require.ErrorIs(t, err, db.ErrNotPending)

	fetched, err := store.GetByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, fetched.PromptID)
}

func TestLookups(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	first := insert(t, store, "u1", "https://img.example/1.png", 0)
	second := insert(t, store, "u1", "https://img.example/2.png", 1)
	insert(t, store, "u2", "https://img.example/3.png", 1)
	latest := insert(t, store, "u1", "https://img.example/4.png", 1)

	got, err := store.GetByQueueMessage(ctx, second.QueueMessageID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, second.ID, got.ID)

	missing, err := store.GetByQueueMessage(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	byPrompt, err := store.GetByUserAndPrompt(ctx, "u1", 1)
	require.NoError(t, err)
	require.NotNil(t, byPrompt)
	assert.Equal(t, latest.ID, byPrompt.ID)

	none, err := store.GetByUserAndPrompt(ctx, "u2", 0)
	require.NoError(t, err)
	assert.Nil(t, none)

	for _, id := range []int64{first.ID, latest.ID} {
		_, err := store.SetStatus(ctx, id, model.StatusApproved)
		require.NoError(t, err)
	}

	approved, err := store.ListByStatus(ctx, "u1", model.StatusApproved)
	require.NoError(t, err)
	require.Len(t, approved, 2)
	assert.Equal(t, first.ID, approved[0].ID)
	assert.Equal(t, latest.ID, approved[1].ID)

	count, err := store.CountByStatus(ctx, "u1", model.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	pending, err := store.ListAllByStatus(ctx, model.StatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestSetGalleryMessageRequiresApproval(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	sub := insert(t, store, "u1", "https://img.example/a.png", 0)

	require.ErrorIs(t, store.SetGalleryMessage(ctx, sub.ID, "gallery-1"), db.ErrNotFound)

	_, err := store.SetStatus(ctx, sub.ID, model.StatusApproved)
	require.NoError(t, err)
	require.NoError(t, store.SetGalleryMessage(ctx, sub.ID, "gallery-1"))

	fetched, err := store.GetByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "gallery-1", fetched.GalleryMessageID)
	assert.Equal(t, sub.QueueMessageID, fetched.QueueMessageID, "queue message id is kept for history")
}

func TestOpenIsIdempotent(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "artemis.db")
	ctx := context.Background()

	first, err := db.Open(ctx, model.Database{Driver: "sqlite3", DSN: dsn})
	require.NoError(t, err)
	_, err = first.Insert(ctx, db.NewSubmission{UserID: "u", ImageURL: "x", QueueMessageID: "q", MessageID: "m"})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := db.Open(ctx, model.Database{Driver: "sqlite3", DSN: dsn})
	require.NoError(t, err)
	defer second.Close()

	exists, err := second.ExistsByURL(ctx, "x")
	require.NoError(t, err)
	assert.True(t, exists)
}
