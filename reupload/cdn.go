package reupload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// CDN posts raw image bytes to an upload endpoint that answers with the
// stored file's URL.
type CDN struct {
	endpoint      string
	authorization string
	client        *http.Client
}

func NewCDN(endpoint, authorization string, client *http.Client) *CDN {
	if client == nil {
		client = http.DefaultClient
	}
	return &CDN{endpoint: endpoint, authorization: authorization, client: client}
}

type cdnResponse struct {
	URL string `json:"url"`
}

func (c *CDN) Upload(ctx context.Context, _ string, ext string, data []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build cdn request: %w", err)
	}
	req.Header.Set("Content-Type", "image/"+ext)
	if c.authorization != "" {
		req.Header.Set("Authorization", c.authorization)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("cdn upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("cdn upload: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out cdnResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode cdn response: %w", err)
	}
	if out.URL == "" {
		return "", errors.New("cdn response missing url")
	}
	return out.URL, nil
}
