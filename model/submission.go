package model

import "time"

// Status is the moderation state of a submission.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusDenied    Status = "denied"
	StatusDismissed Status = "dismissed"
)

// Terminal reports whether no further transition is allowed out of s.
func (s Status) Terminal() bool {
	switch s {
	case StatusApproved, StatusDenied, StatusDismissed:
		return true
	}
	return false
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s == StatusPending || s.Terminal()
}

// Submission represents a row of the submissions table.
type Submission struct {
	ID               int64
	UserID           string
	ImageURL         string
	PromptID         int
	Status           Status
	MessageID        string
	QueueMessageID   string
	GalleryMessageID string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
