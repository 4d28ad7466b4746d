// Package reupload copies externally hosted images somewhere durable.
//
// Discord attachment URLs expire, so approved artwork and avatars are
// mirrored before they are referenced from the gallery. Every failure
// degrades to the original URL; callers never see an error.
package reupload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/BlobEmoji/Artemis/model"
	"github.com/BlobEmoji/Artemis/utils"
)

// Mirror stores image bytes and returns their public URL.
type Mirror interface {
	Upload(ctx context.Context, name, ext string, data []byte) (string, error)
}

// NewMirror builds the mirror configured by cfg.Backend. An empty backend
// returns nil, which disables mirroring.
func NewMirror(cfg model.Mirror) (Mirror, error) {
	client := &http.Client{Timeout: timeout(cfg)}
	switch cfg.Backend {
	case "":
		return nil, nil
	case "cdn":
		return NewCDN(cfg.Endpoint, cfg.Authorization, client), nil
	case "supabase":
		return NewSupabase(cfg.SupabaseURL, cfg.SupabaseKey, cfg.Bucket), nil
	default:
		return nil, fmt.Errorf("unknown mirror backend %q", cfg.Backend)
	}
}

func timeout(cfg model.Mirror) time.Duration {
	if cfg.RequestTimeout <= 0 {
		return 30 * time.Second
	}
	return cfg.RequestTimeout
}

// errTooLarge rejects source assets above the fetch ceiling.
var errTooLarge = errors.New("source exceeds fetch limit")

const defaultFetchLimit = 64 << 20

// Service fetches images and hands them to the mirror.
type Service struct {
	client     *http.Client
	mirror     Mirror
	maxBytes   int64
	fetchLimit int64
	logger     *zap.Logger
}

// New creates a Service. mirror may be nil.
func New(cfg model.Mirror, mirror Mirror, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	fetchLimit := cfg.MaxFetchBytes
	if fetchLimit <= 0 {
		fetchLimit = defaultFetchLimit
	}
	return &Service{
		client:     &http.Client{Timeout: timeout(cfg)},
		mirror:     mirror,
		maxBytes:   cfg.MaxAttachmentBytes,
		fetchLimit: fetchLimit,
		logger:     logger.Named("reupload"),
	}
}

// Reupload returns the URL to reference for sourceURL and, when the bytes
// fit the attachment limit, a file named name.ext to send alongside.
// A URL without a file extension is returned untouched.
func (s *Service) Reupload(ctx context.Context, name, sourceURL string) (string, *model.Attachment) {
	ext, ok := utils.FileExtension(sourceURL)
	if !ok {
		s.logger.Debug("no file extension, keeping source url", zap.String("url", sourceURL))
		return sourceURL, nil
	}

	data, err := s.fetch(ctx, sourceURL)
	if err != nil {
		s.logger.Warn("fetch failed, keeping source url", zap.String("url", sourceURL), zap.Error(err))
		return sourceURL, nil
	}

	url := sourceURL
	if s.mirror != nil {
		mirrored, err := s.mirror.Upload(ctx, name, ext, data)
		if err != nil {
			s.logger.Warn("mirror upload failed, keeping source url", zap.String("url", sourceURL), zap.Error(err))
		} else {
			url = mirrored
		}
	}

	if int64(len(data)) > s.maxBytes {
		s.logger.Debug("too large to attach",
			zap.String("name", name),
			zap.Int("size", len(data)),
			zap.Int64("limit", s.maxBytes),
		)
		return url, nil
	}
	return url, &model.Attachment{
		Name:        name + "." + ext,
		ContentType: "image/" + ext,
		Data:        data,
	}
}

func (s *Service) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if resp.ContentLength > s.fetchLimit {
		return nil, fmt.Errorf("%w: %d bytes", errTooLarge, resp.ContentLength)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, s.fetchLimit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > s.fetchLimit {
		return nil, fmt.Errorf("%w: over %d bytes", errTooLarge, s.fetchLimit)
	}
	return data, nil
}
