package queue

import (
	"context"

	"github.com/BlobEmoji/Artemis/db"
	"github.com/BlobEmoji/Artemis/model"
	"github.com/BlobEmoji/Artemis/prompt"
)

// Store is the persistence the controller needs. *db.Store satisfies it.
type Store interface {
	ExistsByURL(ctx context.Context, imageURL string) (bool, error)
	Insert(ctx context.Context, n db.NewSubmission) (*model.Submission, error)
	GetByQueueMessage(ctx context.Context, queueMessageID string) (*model.Submission, error)
	SetStatus(ctx context.Context, id int64, status model.Status) (*model.Submission, error)
	ReassignPrompt(ctx context.Context, id int64, promptID int) (*model.Submission, error)
	SetGalleryMessage(ctx context.Context, id int64, galleryMessageID string) error
	CountByStatus(ctx context.Context, userID string, status model.Status) (int, error)
}

// Schedule resolves prompts. *prompt.Schedule satisfies it.
type Schedule interface {
	Current() (prompt.Prompt, bool)
	Name(id int) string
	Shift(id, delta int) int
}

// GalleryPost is an approved submission as shown in the gallery channel.
type GalleryPost struct {
	Title         string
	AuthorName    string
	AuthorIconURL string
	ImageURL      string
	PlaqueURL     string
	Files         []*model.Attachment
}

// Messenger is the chat platform as seen by the controller.
type Messenger interface {
	SendQueueEntry(ctx context.Context, content string) (string, error)
	EditQueueEntry(ctx context.Context, messageID, content string) error
	DeleteQueueEntry(ctx context.Context, messageID string) error
	PostGallery(ctx context.Context, post GalleryPost) (string, error)
	SendDirectMessage(ctx context.Context, userID, content string) error
	// GrantRole gives the event role to the user. Granting a role the user
	// already holds must succeed.
	GrantRole(ctx context.Context, userID string) error
	Member(ctx context.Context, userID string) (model.Member, error)
}

// Reuploader mirrors remote images. *reupload.Service satisfies it.
type Reuploader interface {
	Reupload(ctx context.Context, name, sourceURL string) (string, *model.Attachment)
}

// PlaqueRenderer draws gallery plaques. *plaque.Renderer satisfies it.
type PlaqueRenderer interface {
	Attachment(name string, lines []string, emphasized ...int) (*model.Attachment, error)
}

// StatsSyncer pushes participant statistics. *stats.Syncer satisfies it.
type StatsSyncer interface {
	SyncUser(ctx context.Context, member model.Member)
}
