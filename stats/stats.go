// Package stats pushes participant statistics to the external events API.
package stats

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BlobEmoji/Artemis/model"
)

// Submissions lists a user's approved submissions.
type Submissions interface {
	ListByStatus(ctx context.Context, userID string, status model.Status) ([]*model.Submission, error)
}

type userPayload struct {
	Username      string  `json:"username"`
	Discriminator string  `json:"discriminator"`
	Avatar        *string `json:"avatar"`
}

type submissionPayload struct {
	PromptID int    `json:"prompt_id"`
	ImageURL string `json:"image_url"`
}

// Syncer posts user and submission info. It is best effort: failures are
// logged and never returned.
type Syncer struct {
	endpoint      string
	authorization string
	slug          string
	year          int
	store         Submissions
	client        *http.Client
	logger        *zap.Logger
}

// NewSyncer builds a Syncer. With no endpoint or authorization configured
// every call is a no-op.
func NewSyncer(cfg model.Statistics, ev model.Event, store Submissions, logger *zap.Logger) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Syncer{
		endpoint:      strings.TrimRight(cfg.Endpoint, "/"),
		authorization: cfg.Authorization,
		slug:          ev.Slug,
		year:          ev.StartDay.Year(),
		store:         store,
		client:        &http.Client{Timeout: timeout},
		logger:        logger.Named("stats"),
	}
}

// Enabled reports whether statistics are configured.
func (s *Syncer) Enabled() bool {
	return s.endpoint != "" && s.authorization != ""
}

// SyncUser publishes the member's profile and approved submissions.
func (s *Syncer) SyncUser(ctx context.Context, member model.Member) {
	if !s.Enabled() {
		return
	}

	var avatar *string
	if member.AvatarKey != "" {
		avatar = &member.AvatarKey
	}
	s.post(ctx, fmt.Sprintf("%s/users/%s", s.endpoint, member.ID), userPayload{
		Username:      member.Username,
		Discriminator: member.Discriminator,
		Avatar:        avatar,
	})

	approved, err := s.store.ListByStatus(ctx, member.ID, model.StatusApproved)
	if err != nil {
		s.logger.Error("list approved submissions", zap.String("user_id", member.ID), zap.Error(err))
		return
	}
	data := make([]submissionPayload, 0, len(approved))
	for _, sub := range approved {
		data = append(data, submissionPayload{PromptID: sub.PromptID, ImageURL: sub.ImageURL})
	}
	s.post(ctx, fmt.Sprintf("%s/events/%s/%d/submissions/%s", s.endpoint, s.slug, s.year, member.ID), data)
}

func (s *Syncer) post(ctx context.Context, url string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("encode statistics", zap.String("url", url), zap.Error(err))
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		s.logger.Error("build statistics request", zap.String("url", url), zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", s.authorization)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("statistics request failed", zap.String("url", url), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	fields := []zap.Field{
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.String("body", strings.TrimSpace(string(text))),
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Warn("statistics request failed", fields...)
		return
	}
	s.logger.Info("updated statistics", fields...)
}
