package reupload

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	storage "github.com/supabase-community/storage-go"
)

// Supabase stores images in a public storage bucket.
type Supabase struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

func NewSupabase(supabaseURL, serviceRoleKey, bucket string) *Supabase {
	baseURL := strings.TrimRight(supabaseURL, "/")
	return &Supabase{
		client:  storage.NewClient(baseURL+"/storage/v1", serviceRoleKey, nil),
		bucket:  bucket,
		baseURL: baseURL,
	}
}

// Upload stores data under name/<uuid>.ext. The storage client has no
// context support; ctx is only checked before the call.
func (s *Supabase) Upload(ctx context.Context, name, ext string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := s.ObjectPath(name, ext)
	contentType := "image/" + ext
	upsert := false
	_, err := s.client.UploadFile(s.bucket, path, bytes.NewReader(data), storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("supabase upload: %w", err)
	}
	return s.PublicURL(path), nil
}

// ObjectPath returns a fresh object name for an upload.
func (s *Supabase) ObjectPath(name, ext string) string {
	return fmt.Sprintf("%s/%s.%s", name, uuid.NewString(), ext)
}

// PublicURL is the unauthenticated URL of an object in the bucket.
func (s *Supabase) PublicURL(path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, path)
}
