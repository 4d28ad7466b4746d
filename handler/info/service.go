// Package info answers participant-facing questions about the event.
package info

import (
	"context"
	"fmt"

	"github.com/BlobEmoji/Artemis/model"
	"github.com/BlobEmoji/Artemis/prompt"
)

// Store is the read side of the submission store.
type Store interface {
	CountByStatus(ctx context.Context, userID string, status model.Status) (int, error)
	GetByUserAndPrompt(ctx context.Context, userID string, promptID int) (*model.Submission, error)
}

// Schedule is the read side of the prompt schedule.
type Schedule interface {
	Current() (prompt.Prompt, bool)
	Len() int
	Snapshot() prompt.Snapshot
}

// Service builds participation cards and schedule snapshots.
type Service struct {
	store    Store
	schedule Schedule
}

func NewService(store Store, schedule Schedule) *Service {
	return &Service{store: store, schedule: schedule}
}

// Card returns the user's approved count and the status of their
// submission for the active prompt.
func (s *Service) Card(ctx context.Context, userID string) (model.Card, error) {
	approved, err := s.store.CountByStatus(ctx, userID, model.StatusApproved)
	if err != nil {
		return model.Card{}, fmt.Errorf("count approved: %w", err)
	}
	card := model.Card{UserID: userID, Approved: approved, Total: s.schedule.Len()}

	p, ok := s.schedule.Current()
	if !ok {
		return card, nil
	}
	sub, err := s.store.GetByUserAndPrompt(ctx, userID, p.ID)
	if err != nil {
		return model.Card{}, fmt.Errorf("current prompt submission: %w", err)
	}
	card.Progress = "unsubmitted"
	if sub != nil {
		card.Progress = string(sub.Status)
	}
	return card, nil
}

// Prompt returns the schedule as of now.
func (s *Service) Prompt() prompt.Snapshot {
	return s.schedule.Snapshot()
}
