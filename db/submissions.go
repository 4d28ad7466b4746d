package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/BlobEmoji/Artemis/model"
)

const submissionColumns = `id, user_id, image_url, prompt_id, status, message_id, queue_message_id,
	COALESCE(gallery_message_id, ''), created_at, updated_at`

// NewSubmission carries the fields recorded when a URL is first queued.
type NewSubmission struct {
	UserID         string
	ImageURL       string
	PromptID       int
	MessageID      string
	QueueMessageID string
}

// rowScanner is an interface that can be satisfied by *sql.Row or *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanSubmission scans a row into a Submission struct.
func scanSubmission(scanner rowScanner) (*model.Submission, error) {
	var (
		sub              model.Submission
		status           string
		created, updated string
	)
	err := scanner.Scan(
		&sub.ID, &sub.UserID, &sub.ImageURL, &sub.PromptID, &status, &sub.MessageID,
		&sub.QueueMessageID, &sub.GalleryMessageID, &created, &updated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Return nil, nil if no submission is found
		}
		return nil, err
	}
	sub.Status = model.Status(status)
	sub.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	sub.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return &sub, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func (s *Store) queryRow(ctx context.Context, q querier, query string, args ...any) *sql.Row {
	return q.QueryRowContext(ctx, s.dialect.rebind(query), args...)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// inTx runs fn inside a transaction and commits when it returns nil.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// ExistsByURL reports whether any submission uses imageURL.
func (s *Store) ExistsByURL(ctx context.Context, imageURL string) (bool, error) {
	var exists bool
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		exists, err = s.existsByURL(ctx, tx, imageURL)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("check submission url: %w", err)
	}
	return exists, nil
}

func (s *Store) existsByURL(ctx context.Context, q querier, imageURL string) (bool, error) {
	var exists bool
	err := s.queryRow(ctx, q, `SELECT EXISTS(SELECT 1 FROM submissions WHERE image_url = ?)`, imageURL).Scan(&exists)
	return exists, err
}

// Insert records a new pending submission. The URL is re-checked inside the
// transaction; ErrDuplicateSubmission is returned if it is already taken.
func (s *Store) Insert(ctx context.Context, n NewSubmission) (*model.Submission, error) {
	var sub *model.Submission
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		exists, err := s.existsByURL(ctx, tx, n.ImageURL)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateSubmission
		}

		ts := now()
		sub, err = scanSubmission(s.queryRow(ctx, tx, `INSERT INTO submissions (
			user_id, image_url, prompt_id, status, message_id, queue_message_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+submissionColumns,
			n.UserID, n.ImageURL, n.PromptID, string(model.StatusPending), n.MessageID, n.QueueMessageID, ts, ts,
		))
		if isUniqueViolation(err) {
			return ErrDuplicateSubmission
		}
		return err
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateSubmission) {
			return nil, err
		}
		return nil, fmt.Errorf("insert submission: %w", err)
	}
	return sub, nil
}

// GetByID retrieves a submission by id. Returns nil, nil when absent.
func (s *Store) GetByID(ctx context.Context, id int64) (*model.Submission, error) {
	sub, err := scanSubmission(s.queryRow(ctx, s.db,
		`SELECT `+submissionColumns+` FROM submissions WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("get submission %d: %w", id, err)
	}
	return sub, nil
}

// GetByQueueMessage retrieves the submission whose queue entry is
// queueMessageID. Returns nil, nil when absent.
func (s *Store) GetByQueueMessage(ctx context.Context, queueMessageID string) (*model.Submission, error) {
	sub, err := scanSubmission(s.queryRow(ctx, s.db,
		`SELECT `+submissionColumns+` FROM submissions WHERE queue_message_id = ?`, queueMessageID))
	if err != nil {
		return nil, fmt.Errorf("get submission by queue message: %w", err)
	}
	return sub, nil
}

// GetByUserAndPrompt retrieves the user's latest submission for a prompt.
// Returns nil, nil when absent.
func (s *Store) GetByUserAndPrompt(ctx context.Context, userID string, promptID int) (*model.Submission, error) {
	sub, err := scanSubmission(s.queryRow(ctx, s.db,
		`SELECT `+submissionColumns+` FROM submissions WHERE user_id = ? AND prompt_id = ? ORDER BY id DESC LIMIT 1`,
		userID, promptID))
	if err != nil {
		return nil, fmt.Errorf("get submission by user and prompt: %w", err)
	}
	return sub, nil
}

// ListByStatus returns a user's submissions with the given status, oldest first.
func (s *Store) ListByStatus(ctx context.Context, userID string, status model.Status) ([]*model.Submission, error) {
	return s.list(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE user_id = ? AND status = ? ORDER BY id`,
		userID, string(status))
}

// ListAllByStatus returns every submission with the given status, oldest first.
func (s *Store) ListAllByStatus(ctx context.Context, status model.Status) ([]*model.Submission, error) {
	return s.list(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE status = ? ORDER BY id`, string(status))
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]*model.Submission, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var submissions []*model.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		submissions = append(submissions, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return submissions, nil
}

// CountByStatus counts a user's submissions with the given status.
func (s *Store) CountByStatus(ctx context.Context, userID string, status model.Status) (int, error) {
	var count int
	err := s.queryRow(ctx, s.db, `SELECT COUNT(*) FROM submissions WHERE user_id = ? AND status = ?`,
		userID, string(status)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return count, nil
}

// SetStatus moves a pending submission to a terminal status and returns the
// updated row. It fails with ErrNotPending when the row is already terminal,
// so only one of two racing decisions can win.
func (s *Store) SetStatus(ctx context.Context, id int64, status model.Status) (*model.Submission, error) {
	if !status.Terminal() {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, model.StatusPending, status)
	}
	sub, err := s.updatePending(ctx, id,
		`UPDATE submissions SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?
		RETURNING `+submissionColumns,
		string(status), now(), id, string(model.StatusPending))
	if err != nil {
		return nil, fmt.Errorf("set submission %d status %s: %w", id, status, err)
	}
	return sub, nil
}

// ReassignPrompt changes the prompt of a pending submission.
func (s *Store) ReassignPrompt(ctx context.Context, id int64, promptID int) (*model.Submission, error) {
	sub, err := s.updatePending(ctx, id,
		`UPDATE submissions SET prompt_id = ?, updated_at = ?
		WHERE id = ? AND status = ?
		RETURNING `+submissionColumns,
		promptID, now(), id, string(model.StatusPending))
	if err != nil {
		return nil, fmt.Errorf("reassign submission %d prompt: %w", id, err)
	}
	return sub, nil
}

// updatePending runs a conditional update and explains a miss as either
// ErrNotFound or ErrNotPending.
func (s *Store) updatePending(ctx context.Context, id int64, query string, args ...any) (*model.Submission, error) {
	var sub *model.Submission
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		sub, err = scanSubmission(s.queryRow(ctx, tx, query, args...))
		if err != nil || sub != nil {
			return err
		}
		var exists bool
		if err := s.queryRow(ctx, tx, `SELECT EXISTS(SELECT 1 FROM submissions WHERE id = ?)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrNotPending
	})
	return sub, err
}

// SetGalleryMessage records the gallery repost of an approved submission.
func (s *Store) SetGalleryMessage(ctx context.Context, id int64, galleryMessageID string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, s.dialect.rebind(
			`UPDATE submissions SET gallery_message_id = ?, updated_at = ? WHERE id = ? AND status = ?`),
			galleryMessageID, now(), id, string(model.StatusApproved))
		if err != nil {
			return fmt.Errorf("set gallery message: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("set gallery message: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("set gallery message on submission %d: %w", id, ErrNotFound)
		}
		return nil
	})
}
