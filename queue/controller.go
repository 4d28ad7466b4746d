// Package queue owns the submission state machine.
//
// Public posts are ingested into pending submissions with a moderator-facing
// queue entry. Moderator decisions move a submission to exactly one terminal
// status and then run their side effects (gallery post, role, statistics,
// direct message), none of which can undo the committed status.
package queue

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/BlobEmoji/Artemis/db"
	"github.com/BlobEmoji/Artemis/model"
	"github.com/BlobEmoji/Artemis/utils"
)

const (
	reuploadTimeout = 20 * time.Second
	statsTimeout    = 15 * time.Second
	settleTimeout   = 15 * time.Second
)

// settle detaches a post-commit step from the decision context and gives it
// its own deadline. Once the status is committed these steps must still run
// when the decision context is spent.
func settle(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
}

// Message is a public post in the submission channel.
type Message struct {
	ID             string
	AuthorID       string
	AuthorBot      bool
	Content        string
	AttachmentURLs []string
}

// Deps are the controller's collaborators.
type Deps struct {
	Store      Store
	Schedule   Schedule
	Messenger  Messenger
	Reuploader Reuploader
	Plaques    PlaqueRenderer
	Stats      StatsSyncer
	Event      model.Event
	RoleID     string
	Logger     *zap.Logger
}

// Controller handles ingestion and moderator decisions.
type Controller struct {
	store      Store
	schedule   Schedule
	messenger  Messenger
	reuploader Reuploader
	plaques    PlaqueRenderer
	stats      StatsSyncer
	event      model.Event
	roleID     string

	// ingest serializes steps exists → post → insert across all URLs.
	ingest *semaphore.Weighted
	logger *zap.Logger
}

func New(d Deps) *Controller {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		store:      d.Store,
		schedule:   d.Schedule,
		messenger:  d.Messenger,
		reuploader: d.Reuploader,
		plaques:    d.Plaques,
		stats:      d.Stats,
		event:      d.Event,
		roleID:     d.RoleID,
		ingest:     semaphore.NewWeighted(1),
		logger:     logger.Named("queue"),
	}
}

// Ingest queues every URL in msg that has not been seen before. Failures on
// one URL do not stop the others; they are returned joined.
func (c *Controller) Ingest(ctx context.Context, msg Message) error {
	if msg.AuthorBot {
		return nil
	}
	urls := append(utils.ExtractURLs(msg.Content), msg.AttachmentURLs...)

	var errs []error
	for _, url := range urls {
		if err := c.ingestURL(ctx, msg, url); err != nil {
			c.logger.Error("ingest failed",
				zap.String("message_id", msg.ID),
				zap.String("url", url),
				zap.Error(err),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Controller) ingestURL(ctx context.Context, msg Message, url string) error {
	if err := c.ingest.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.ingest.Release(1)

	exists, err := c.store.ExistsByURL(ctx, url)
	if err != nil {
		return err
	}
	if exists {
		c.logger.Debug("url already submitted", zap.String("url", url))
		return nil
	}

	p, ok := c.schedule.Current()
	if !ok {
		c.logger.Debug("no active prompt, ignoring submission", zap.String("url", url))
		return nil
	}

	entryID, err := c.messenger.SendQueueEntry(ctx, EntryText(p.Name, p.ID, msg.AuthorID, url))
	if err != nil {
		return fmt.Errorf("post queue entry: %w", err)
	}

	sub, err := c.store.Insert(ctx, db.NewSubmission{
		UserID:         msg.AuthorID,
		ImageURL:       url,
		PromptID:       p.ID,
		MessageID:      msg.ID,
		QueueMessageID: entryID,
	})
	if err != nil {
		// The entry has no row behind it; remove it so nobody decides on it.
		c.deleteEntry(ctx, entryID)
		if errors.Is(err, db.ErrDuplicateSubmission) {
			c.logger.Warn("duplicate url slipped past existence check", zap.String("url", url))
			return nil
		}
		return err
	}

	c.logger.Info("submission queued",
		zap.Int64("submission_id", sub.ID),
		zap.String("user_id", sub.UserID),
		zap.Int("prompt_id", sub.PromptID),
		zap.String("queue_message_id", entryID),
	)
	return nil
}

type decision func(ctx context.Context, sub *model.Submission) error

// resolveAndDispatch finds the pending submission behind a queue entry and
// runs fn on it. Stale or already decided entries are logged and ignored.
func (c *Controller) resolveAndDispatch(ctx context.Context, queueMessageID, action string, fn decision) error {
	sub, err := c.store.GetByQueueMessage(ctx, queueMessageID)
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	if sub == nil {
		c.logger.Warn("stale queue entry",
			zap.String("action", action),
			zap.String("queue_message_id", queueMessageID),
		)
		return nil
	}
	if sub.Status.Terminal() {
		c.logger.Warn("queue entry already decided",
			zap.String("action", action),
			zap.String("queue_message_id", queueMessageID),
			zap.Int64("submission_id", sub.ID),
			zap.String("status", string(sub.Status)),
		)
		return nil
	}
	if err := fn(ctx, sub); err != nil {
		return fmt.Errorf("%s submission %d: %w", action, sub.ID, err)
	}
	return nil
}

// transition commits status. ok is false when another decision won the race.
func (c *Controller) transition(ctx context.Context, sub *model.Submission, status model.Status) (*model.Submission, bool, error) {
	updated, err := c.store.SetStatus(ctx, sub.ID, status)
	if errors.Is(err, db.ErrNotPending) {
		c.logger.Warn("submission decided concurrently",
			zap.Int64("submission_id", sub.ID),
			zap.String("status", string(status)),
		)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	c.logger.Info("submission decided",
		zap.Int64("submission_id", updated.ID),
		zap.String("user_id", updated.UserID),
		zap.String("status", string(status)),
	)
	return updated, true, nil
}

// Approve accepts the submission behind a queue entry and publishes it.
func (c *Controller) Approve(ctx context.Context, queueMessageID string) error {
	return c.resolveAndDispatch(ctx, queueMessageID, "approve", c.approve)
}

// Reject denies the submission behind a queue entry and notifies the author.
func (c *Controller) Reject(ctx context.Context, queueMessageID string) error {
	return c.resolveAndDispatch(ctx, queueMessageID, "reject", c.reject)
}

// Dismiss closes the submission behind a queue entry without side effects.
func (c *Controller) Dismiss(ctx context.Context, queueMessageID string) error {
	return c.resolveAndDispatch(ctx, queueMessageID, "dismiss", c.dismiss)
}

// ShiftPrompt moves a pending submission to the previous (-1) or next (+1)
// prompt, wrapping around the prompt list.
func (c *Controller) ShiftPrompt(ctx context.Context, queueMessageID string, delta int) error {
	return c.resolveAndDispatch(ctx, queueMessageID, "shift prompt", func(ctx context.Context, sub *model.Submission) error {
		next := c.schedule.Shift(sub.PromptID, delta)
		updated, err := c.store.ReassignPrompt(ctx, sub.ID, next)
		if errors.Is(err, db.ErrNotPending) {
			c.logger.Warn("submission decided before prompt shift", zap.Int64("submission_id", sub.ID))
			return nil
		}
		if err != nil {
			return err
		}

		text := EntryText(c.schedule.Name(updated.PromptID), updated.PromptID, updated.UserID, updated.ImageURL)
		if err := c.messenger.EditQueueEntry(ctx, queueMessageID, text); err != nil {
			c.logger.Warn("edit queue entry", zap.String("queue_message_id", queueMessageID), zap.Error(err))
		}
		return nil
	})
}

func (c *Controller) approve(ctx context.Context, sub *model.Submission) error {
	sub, ok, err := c.transition(ctx, sub, model.StatusApproved)
	if err != nil || !ok {
		return err
	}
	log := c.logger.With(zap.Int64("submission_id", sub.ID), zap.String("user_id", sub.UserID))

	member, err := c.member(ctx, sub.UserID)
	known := err == nil
	if !known {
		log.Warn("member lookup failed, skipping role and statistics", zap.Error(err))
	}

	promptName := c.schedule.Name(sub.PromptID)
	post := GalleryPost{
		Title:      GalleryTitle(promptName, sub.PromptID),
		AuthorName: member.DisplayName(),
	}

	var file *model.Attachment
	post.ImageURL, file = c.reuploadRef(ctx, "artwork", sub.ImageURL)
	post.Files = appendFile(post.Files, file)

	if member.AvatarURL != "" {
		post.AuthorIconURL, file = c.reuploadRef(ctx, "avatar", member.AvatarURL)
		post.Files = appendFile(post.Files, file)
	}

	plaque, err := c.plaques.Attachment("plaque", PlaqueLines(member.Username, promptName, sub.PromptID), 0)
	if err != nil {
		log.Warn("render plaque", zap.Error(err))
	} else {
		post.PlaqueURL = plaque.Ref()
		post.Files = appendFile(post.Files, plaque)
	}

	c.publish(ctx, sub, post, log)

	if known {
		c.grantRoleIfEligible(ctx, member)
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statsTimeout)
		c.stats.SyncUser(sctx, member)
		cancel()
	}

	c.deleteEntry(ctx, sub.QueueMessageID)
	return nil
}

// member looks up the author, falling back to a placeholder named after the
// user id when they cannot be resolved.
func (c *Controller) member(ctx context.Context, userID string) (model.Member, error) {
	ctx, cancel := settle(ctx)
	defer cancel()
	member, err := c.messenger.Member(ctx, userID)
	if err != nil {
		return model.Member{ID: userID, Username: userID}, err
	}
	return member, nil
}

// publish posts to the gallery and records the gallery message on the row.
func (c *Controller) publish(ctx context.Context, sub *model.Submission, post GalleryPost, log *zap.Logger) {
	ctx, cancel := settle(ctx)
	defer cancel()
	galleryID, err := c.messenger.PostGallery(ctx, post)
	if err != nil {
		log.Error("post to gallery", zap.Error(err))
		return
	}
	if err := c.store.SetGalleryMessage(ctx, sub.ID, galleryID); err != nil {
		log.Error("record gallery message", zap.String("gallery_message_id", galleryID), zap.Error(err))
	}
}

// reuploadRef prefers a mirrored URL. When mirroring did not happen the
// attachment is referenced instead, since source URLs may expire.
func (c *Controller) reuploadRef(ctx context.Context, name, sourceURL string) (string, *model.Attachment) {
	ctx, cancel := context.WithTimeout(ctx, reuploadTimeout)
	defer cancel()
	url, file := c.reuploader.Reupload(ctx, name, sourceURL)
	if file == nil || url != sourceURL {
		return url, nil
	}
	return file.Ref(), file
}

func appendFile(files []*model.Attachment, f *model.Attachment) []*model.Attachment {
	if f == nil {
		return files
	}
	return append(files, f)
}

func (c *Controller) grantRoleIfEligible(ctx context.Context, member model.Member) {
	if c.roleID != "" && slices.Contains(member.Roles, c.roleID) {
		return
	}
	ctx, cancel := settle(ctx)
	defer cancel()
	approved, err := c.store.CountByStatus(ctx, member.ID, model.StatusApproved)
	if err != nil {
		c.logger.Error("count approved submissions", zap.String("user_id", member.ID), zap.Error(err))
		return
	}
	if approved < c.event.RoleRequirement {
		return
	}
	if err := c.messenger.GrantRole(ctx, member.ID); err != nil {
		c.logger.Error("grant event role", zap.String("user_id", member.ID), zap.Error(err))
		return
	}
	c.logger.Info("event role granted", zap.String("user_id", member.ID), zap.Int("approved", approved))
}

func (c *Controller) reject(ctx context.Context, sub *model.Submission) error {
	sub, ok, err := c.transition(ctx, sub, model.StatusDenied)
	if err != nil || !ok {
		return err
	}
	notice := DenialNotice(c.schedule.Name(sub.PromptID), c.event.Name)
	dctx, cancel := settle(ctx)
	defer cancel()
	if err := c.messenger.SendDirectMessage(dctx, sub.UserID, notice); err != nil {
		c.logger.Debug("denial notice not delivered", zap.String("user_id", sub.UserID), zap.Error(err))
	}
	c.deleteEntry(ctx, sub.QueueMessageID)
	return nil
}

func (c *Controller) dismiss(ctx context.Context, sub *model.Submission) error {
	sub, ok, err := c.transition(ctx, sub, model.StatusDismissed)
	if err != nil || !ok {
		return err
	}
	c.deleteEntry(ctx, sub.QueueMessageID)
	return nil
}

func (c *Controller) deleteEntry(ctx context.Context, queueMessageID string) {
	ctx, cancel := settle(ctx)
	defer cancel()
	if err := c.messenger.DeleteQueueEntry(ctx, queueMessageID); err != nil {
		c.logger.Warn("delete queue entry", zap.String("queue_message_id", queueMessageID), zap.Error(err))
	}
}
