package queue_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/BlobEmoji/Artemis/db"
	"github.com/BlobEmoji/Artemis/model"
	"github.com/BlobEmoji/Artemis/prompt"
	"github.com/BlobEmoji/Artemis/queue"
)

var errDMsClosed = errors.New("cannot send messages to this user")

type fakeMessenger struct {
	mu       sync.Mutex
	next     int
	entries  map[string]string
	deleted  []string
	gallery  []queue.GalleryPost
	dms      map[string][]string
	dmErr    error
	members  map[string]model.Member
	roles    map[string]bool
	grants   int
	sendHook func()
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{
		entries: make(map[string]string),
		dms:     make(map[string][]string),
		members: make(map[string]model.Member),
		roles:   make(map[string]bool),
	}
}

func (f *fakeMessenger) SendQueueEntry(_ context.Context, content string) (string, error) {
	if f.sendHook != nil {
		f.sendHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	id := fmt.Sprintf("entry-%d", f.next)
	f.entries[id] = content
	return id, nil
}

func (f *fakeMessenger) EditQueueEntry(_ context.Context, id, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.entries[id]; !ok {
		return errors.New("unknown message")
	}
	f.entries[id] = content
	return nil
}

func (f *fakeMessenger) DeleteQueueEntry(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.entries[id]; !ok {
		return errors.New("unknown message")
	}
	delete(f.entries, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeMessenger) PostGallery(ctx context.Context, post queue.GalleryPost) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gallery = append(f.gallery, post)
	return fmt.Sprintf("gallery-%d", len(f.gallery)), nil
}

func (f *fakeMessenger) SendDirectMessage(_ context.Context, userID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dmErr != nil {
		return f.dmErr
	}
	f.dms[userID] = append(f.dms[userID], content)
	return nil
}

func (f *fakeMessenger) GrantRole(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.grants++
	f.roles[userID] = true
	return nil
}

func (f *fakeMessenger) Member(_ context.Context, userID string) (model.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[userID]
	if !ok {
		return model.Member{}, errors.New("unknown member")
	}
	if f.roles[userID] {
		m.Roles = append(m.Roles, "role-1")
	}
	return m, nil
}

func (f *fakeMessenger) entryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

type fakeReuploader struct{}

func (fakeReuploader) Reupload(_ context.Context, name, sourceURL string) (string, *model.Attachment) {
	return sourceURL, &model.Attachment{Name: name + ".png", ContentType: "image/png", Data: []byte(sourceURL)}
}

// stallingReuploader holds every request until its context is done.
type stallingReuploader struct{}

func (stallingReuploader) Reupload(ctx context.Context, _ string, sourceURL string) (string, *model.Attachment) {
	<-ctx.Done()
	return sourceURL, nil
}

type fakePlaques struct {
	mu    sync.Mutex
	lines [][]string
}

func (f *fakePlaques) Attachment(name string, lines []string, _ ...int) (*model.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines = append(f.lines, lines)
	return &model.Attachment{Name: name + ".png", ContentType: "image/png"}, nil
}

type fakeStats struct {
	mu     sync.Mutex
	synced []string
}

func (f *fakeStats) SyncUser(_ context.Context, m model.Member) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synced = append(f.synced, m.ID)
}

type harness struct {
	ctrl      *queue.Controller
	deps      queue.Deps
	store     *db.Store
	messenger *fakeMessenger
	plaques   *fakePlaques
	stats     *fakeStats
	logs      *observer.ObservedLogs
}

var start = time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

// newHarness builds a controller on day offset of a two-day-per-prompt event.
func newHarness(t *testing.T, offset int, roleRequirement int) *harness {
	t.Helper()
	store, err := db.Open(context.Background(), model.Database{
		Driver: "sqlite3",
		DSN:    filepath.Join(t.TempDir(), "artemis.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ev := model.Event{
		Name:            "Drawfest",
		StartDay:        start,
		EndDay:          start.AddDate(0, 0, 5),
		Location:        time.UTC,
		DaysPerPrompt:   2,
		RoleRequirement: roleRequirement,
		Prompts:         []string{"Cats", "Dogs", "Birds"},
	}
	schedule := prompt.NewSchedule(ev, func() time.Time { return start.AddDate(0, 0, offset).Add(12 * time.Hour) })

	core, logs := observer.New(zap.DebugLevel)
	h := &harness{
		store:     store,
		messenger: newFakeMessenger(),
		plaques:   &fakePlaques{},
		stats:     &fakeStats{},
		logs:      logs,
	}
	h.messenger.members["u1"] = model.Member{ID: "u1", Username: "blobartist", Discriminator: "0", AvatarURL: "https://cdn.example/avatars/u1/a.png"}
	h.deps = queue.Deps{
		Store:      store,
		Schedule:   schedule,
		Messenger:  h.messenger,
		Reuploader: fakeReuploader{},
		Plaques:    h.plaques,
		Stats:      h.stats,
		Event:      ev,
		RoleID:     "role-1",
		Logger:     zap.New(core),
	}
	h.ctrl = queue.New(h.deps)
	return h
}

func (h *harness) withReuploader(r queue.Reuploader) {
	h.deps.Reuploader = r
	h.ctrl = queue.New(h.deps)
}

// submit ingests url from u1 and returns its queue entry id.
func (h *harness) submit(t *testing.T, url string) string {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.ctrl.Ingest(ctx, queue.Message{ID: "m-" + url, AuthorID: "u1", Content: url}))
	pending, err := h.store.ListAllByStatus(ctx, model.StatusPending)
	require.NoError(t, err)
	for _, sub := range pending {
		if sub.ImageURL == url {
			return sub.QueueMessageID
		}
	}
	t.Fatalf("no pending submission for %s", url)
	return ""
}

func (h *harness) submission(t *testing.T, queueMessageID string) *model.Submission {
	t.Helper()
	sub, err := h.store.GetByQueueMessage(context.Background(), queueMessageID)
	require.NoError(t, err)
	require.NotNil(t, sub)
	return sub
}
