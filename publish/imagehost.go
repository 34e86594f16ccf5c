package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// HTTPImageHost uploads image blobs to a hosting endpoint with a multipart
// POST and reads the public URL from the JSON response:
//
//	{"url": "https://host/i/abcdef.png"}
type HTTPImageHost struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewHTTPImageHost builds an image host client. The token is optional;
// when set it is sent as a bearer token.
func NewHTTPImageHost(endpoint, token string) *HTTPImageHost {
	return &HTTPImageHost{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Upload implements ImageHost.
func (h *HTTPImageHost) Upload(ctx context.Context, name string, blob []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", name)
	if err != nil {
		return "", fmt.Errorf("imagehost: building request for %q: %w", name, err)
	}
	if _, err := part.Write(blob); err != nil {
		return "", fmt.Errorf("imagehost: building request for %q: %w", name, err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("imagehost: building request for %q: %w", name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("imagehost: building request for %q: %w", name, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("imagehost: uploading %q: %w", name, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("imagehost: uploading %q: unexpected status %d", name, resp.StatusCode)
	}

	var parsed struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&parsed); err != nil {
		return "", fmt.Errorf("imagehost: decoding response for %q: %w", name, err)
	}
	if parsed.URL == "" {
		return "", fmt.Errorf("imagehost: no url in response for %q", name)
	}
	return parsed.URL, nil
}

// Compile-time interface check.
var _ ImageHost = (*HTTPImageHost)(nil)
