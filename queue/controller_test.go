package queue_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BlobEmoji/Artemis/model"
	"github.com/BlobEmoji/Artemis/queue"
)

func TestIngestQueuesEveryURL(t *testing.T) {
	h := newHarness(t, 0, 1)
	ctx := context.Background()

	err := h.ctrl.Ingest(ctx, queue.Message{
		ID:             "m1",
		AuthorID:       "u1",
		Content:        "my cat https://img.example/1.png",
		AttachmentURLs: []string{"https://cdn.discordapp.com/attachments/1/2/cat.png"},
	})
	require.NoError(t, err)

	pending, err := h.store.ListAllByStatus(ctx, model.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "https://img.example/1.png", pending[0].ImageURL)
	assert.Equal(t, "https://cdn.discordapp.com/attachments/1/2/cat.png", pending[1].ImageURL)
	for _, sub := range pending {
		assert.Equal(t, 0, sub.PromptID)
		assert.Equal(t, "m1", sub.MessageID)
		assert.Equal(t, queue.EntryText("Cats", 0, "u1", sub.ImageURL), h.messenger.entries[sub.QueueMessageID])
	}
	assert.Equal(t, "**Cats** (#1) submission by <@u1>\n\nhttps://img.example/1.png", h.messenger.entries[pending[0].QueueMessageID])
}

func TestIngestIgnoresBotsAndRepeats(t *testing.T) {
	h := newHarness(t, 0, 1)
	ctx := context.Background()
	url := "https://img.example/1.png"

	require.NoError(t, h.ctrl.Ingest(ctx, queue.Message{ID: "b", AuthorID: "bot", AuthorBot: true, Content: url}))
	assert.Zero(t, h.messenger.entryCount())

	require.NoError(t, h.ctrl.Ingest(ctx, queue.Message{ID: "m1", AuthorID: "u1", Content: url}))
	// edited message re-delivered, then the same asset from someone else
	require.NoError(t, h.ctrl.Ingest(ctx, queue.Message{ID: "m1", AuthorID: "u1", Content: url + " edited"}))
	require.NoError(t, h.ctrl.Ingest(ctx, queue.Message{ID: "m2", AuthorID: "u2", Content: url}))

	pending, err := h.store.ListAllByStatus(ctx, model.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "u1", pending[0].UserID)
	assert.Equal(t, 1, h.messenger.entryCount())
}

func TestIngestWithoutActivePromptIsSilent(t *testing.T) {
	for _, offset := range []int{-1, 6} {
		h := newHarness(t, offset, 1)
		ctx := context.Background()

		require.NoError(t, h.ctrl.Ingest(ctx, queue.Message{ID: "m1", AuthorID: "u1", Content: "https://img.example/1.png"}))

		pending, err := h.store.ListAllByStatus(ctx, model.StatusPending)
		require.NoError(t, err)
		assert.Empty(t, pending, "offset %d", offset)
		assert.Zero(t, h.messenger.entryCount(), "offset %d", offset)
	}
}

func TestConcurrentIngestOfSameURLPostsOnce(t *testing.T) {
	h := newHarness(t, 0, 1)
	ctx := context.Background()
	h.messenger.sendHook = func() { time.Sleep(5 * time.Millisecond) }

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, h.ctrl.Ingest(ctx, queue.Message{ID: "m", AuthorID: "u1", Content: "https://img.example/same.png"}))
		}()
	}
	wg.Wait()

	pending, err := h.store.ListAllByStatus(ctx, model.StatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
	assert.Equal(t, 1, h.messenger.entryCount())
	assert.Equal(t, 1, h.messenger.next)
}

func TestApprovePublishesSubmission(t *testing.T) {
	h := newHarness(t, 0, 1)
	ctx := context.Background()
	entry := h.submit(t, "https://img.example/1.png")

	require.NoError(t, h.ctrl.Approve(ctx, entry))

	sub := h.submission(t, entry)
	assert.Equal(t, model.StatusApproved, sub.Status)
	assert.Equal(t, "gallery-1", sub.GalleryMessageID)
	assert.Equal(t, []string{entry}, h.messenger.deleted)

	require.Len(t, h.messenger.gallery, 1)
	post := h.messenger.gallery[0]
	assert.Equal(t, "Cats (Prompt #1)", post.Title)
	assert.Equal(t, "blobartist", post.AuthorName)
	assert.Equal(t, "attachment://artwork.png", post.ImageURL)
	assert.Equal(t, "attachment://avatar.png", post.AuthorIconURL)
	assert.Equal(t, "attachment://plaque.png", post.PlaqueURL)
	assert.Len(t, post.Files, 3)
	assert.Equal(t, [][]string{{"@blobartist", `"Cats" (#1)`}}, h.plaques.lines)

	assert.True(t, h.messenger.roles["u1"])
	assert.Equal(t, []string{"u1"}, h.stats.synced)
}

func TestSecondApproveIsNoOp(t *testing.T) {
	h := newHarness(t, 0, 1)
	ctx := context.Background()
	entry := h.submit(t, "https://img.example/1.png")

	require.NoError(t, h.ctrl.Approve(ctx, entry))
	require.NoError(t, h.ctrl.Approve(ctx, entry))

	assert.Len(t, h.messenger.gallery, 1)
	assert.Len(t, h.messenger.deleted, 1)
	assert.Equal(t, 1, h.messenger.grants)
	assert.Equal(t, 1, h.logs.FilterMessage("queue entry already decided").Len())
}

func TestDecisionsAreFinal(t *testing.T) {
	h := newHarness(t, 0, 1)
	ctx := context.Background()
	entry := h.submit(t, "https://img.example/1.png")

	require.NoError(t, h.ctrl.Dismiss(ctx, entry))
	require.NoError(t, h.ctrl.Approve(ctx, entry))
	require.NoError(t, h.ctrl.Reject(ctx, entry))
	require.NoError(t, h.ctrl.ShiftPrompt(ctx, entry, 1))

	sub := h.submission(t, entry)
	assert.Equal(t, model.StatusDismissed, sub.Status)
	assert.Equal(t, 0, sub.PromptID)
	assert.Empty(t, h.messenger.gallery)
	assert.Empty(t, h.messenger.dms)
	assert.Equal(t, 3, h.logs.FilterMessage("queue entry already decided").Len())
}

func TestStaleQueueEntryIsLogged(t *testing.T) {
	h := newHarness(t, 0, 1)

	require.NoError(t, h.ctrl.Approve(context.Background(), "no-such-entry"))

	entries := h.logs.FilterMessage("stale queue entry").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "no-such-entry", entries[0].ContextMap()["queue_message_id"])
	assert.Equal(t, "approve", entries[0].ContextMap()["action"])
}

func TestRoleGrantedAtThresholdOnly(t *testing.T) {
	h := newHarness(t, 0, 2)
	ctx := context.Background()

	first := h.submit(t, "https://img.example/1.png")
	require.NoError(t, h.ctrl.Approve(ctx, first))
	assert.Zero(t, h.messenger.grants)

	second := h.submit(t, "https://img.example/2.png")
	require.NoError(t, h.ctrl.Approve(ctx, second))
	assert.Equal(t, 1, h.messenger.grants)

	third := h.submit(t, "https://img.example/3.png")
	require.NoError(t, h.ctrl.Approve(ctx, third))
	assert.Equal(t, 1, h.messenger.grants, "role already held")
	assert.Len(t, h.stats.synced, 3)
}

func TestApproveWithDepartedMember(t *testing.T) {
	h := newHarness(t, 0, 1)
	ctx := context.Background()
	delete(h.messenger.members, "u1")
	entry := h.submit(t, "https://img.example/1.png")

	require.NoError(t, h.ctrl.Approve(ctx, entry))

	assert.Equal(t, model.StatusApproved, h.submission(t, entry).Status)
	require.Len(t, h.messenger.gallery, 1)
	assert.Equal(t, "u1", h.messenger.gallery[0].AuthorName)
	assert.Empty(t, h.messenger.gallery[0].AuthorIconURL)
	assert.Zero(t, h.messenger.grants)
	assert.Empty(t, h.stats.synced)
}

func TestApproveFinishesAfterDecisionDeadline(t *testing.T) {
	h := newHarness(t, 0, 1)
	h.withReuploader(stallingReuploader{})
	entry := h.submit(t, "https://img.example/1.png")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, h.ctrl.Approve(ctx, entry))

	sub := h.submission(t, entry)
	assert.Equal(t, model.StatusApproved, sub.Status)
	assert.Equal(t, "gallery-1", sub.GalleryMessageID)
	require.Len(t, h.messenger.gallery, 1)
	assert.Equal(t, "https://img.example/1.png", h.messenger.gallery[0].ImageURL)
	assert.Zero(t, h.messenger.entryCount())
	assert.Equal(t, []string{entry}, h.messenger.deleted)
	assert.Equal(t, 1, h.messenger.grants)
	assert.Equal(t, []string{"u1"}, h.stats.synced)
}

func TestRejectNotifiesAuthor(t *testing.T) {
	h := newHarness(t, 0, 1)
	ctx := context.Background()
	entry := h.submit(t, "https://img.example/1.png")

	require.NoError(t, h.ctrl.Reject(ctx, entry))

	assert.Equal(t, model.StatusDenied, h.submission(t, entry).Status)
	assert.Equal(t, []string{queue.DenialNotice("Cats", "Drawfest")}, h.messenger.dms["u1"])
	assert.Contains(t, h.messenger.dms["u1"][0], "Your Cats Drawfest submission has been denied")
	assert.Equal(t, []string{entry}, h.messenger.deleted)
	assert.Empty(t, h.messenger.gallery)
}

func TestRejectWithClosedDMs(t *testing.T) {
	h := newHarness(t, 0, 1)
	ctx := context.Background()
	h.messenger.dmErr = errDMsClosed
	entry := h.submit(t, "https://img.example/1.png")

	require.NoError(t, h.ctrl.Reject(ctx, entry))

	assert.Equal(t, model.StatusDenied, h.submission(t, entry).Status)
	assert.Empty(t, h.messenger.gallery)
	assert.Equal(t, []string{entry}, h.messenger.deleted)
	assert.Equal(t, 1, h.logs.FilterMessage("denial notice not delivered").Len())
}

func TestDismissHasNoSideEffects(t *testing.T) {
	h := newHarness(t, 0, 1)
	ctx := context.Background()
	entry := h.submit(t, "https://img.example/1.png")

	require.NoError(t, h.ctrl.Dismiss(ctx, entry))

	assert.Equal(t, model.StatusDismissed, h.submission(t, entry).Status)
	assert.Equal(t, []string{entry}, h.messenger.deleted)
	assert.Empty(t, h.messenger.gallery)
	assert.Empty(t, h.messenger.dms)
	assert.Zero(t, h.messenger.grants)
}

func TestShiftPromptWrapsAround(t *testing.T) {
	// day 4 is the third (last) prompt
	h := newHarness(t, 4, 1)
	ctx := context.Background()
	url := "https://img.example/1.png"
	entry := h.submit(t, url)
	require.Equal(t, 2, h.submission(t, entry).PromptID)

	require.NoError(t, h.ctrl.ShiftPrompt(ctx, entry, 1))
	assert.Equal(t, 0, h.submission(t, entry).PromptID)
	assert.Equal(t, queue.EntryText("Cats", 0, "u1", url), h.messenger.entries[entry])

	require.NoError(t, h.ctrl.ShiftPrompt(ctx, entry, -1))
	assert.Equal(t, 2, h.submission(t, entry).PromptID)
	assert.Equal(t, "**Birds** (#3) submission by <@u1>\n\n"+url, h.messenger.entries[entry])

	require.NoError(t, h.ctrl.ShiftPrompt(ctx, entry, -1))
	require.NoError(t, h.ctrl.Approve(ctx, entry))
	assert.Equal(t, "Dogs (Prompt #2)", h.messenger.gallery[0].Title)
}
