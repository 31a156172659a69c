package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

const maxPDFBytes = 25 << 20

// HTTPConfig points at an external HTML-to-PDF rendering service.
type HTTPConfig struct {
	URL          string
	ClientID     string
	ClientSecret string
	TokenURL     string
	Timeout      time.Duration
}

// HTTPRenderer posts the snapshot to the rendering service and returns the
// verified, optimized PDF.
type HTTPRenderer struct {
	url    string
	client *http.Client
}

var _ Renderer = (*HTTPRenderer)(nil)

// NewHTTPRenderer builds the renderer. When client credentials are set the
// requests carry an OAuth2 bearer token fetched from TokenURL.
func NewHTTPRenderer(ctx context.Context, cfg HTTPConfig) (*HTTPRenderer, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("renderer url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	if cfg.ClientID != "" && cfg.ClientSecret != "" && cfg.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		client = cc.Client(ctx)
		client.Timeout = timeout
	}
	return &HTTPRenderer{url: cfg.URL, client: client}, nil
}

func (r *HTTPRenderer) Render(ctx context.Context, in Input) ([]byte, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("%w: encode input: %v", ErrRenderFailure, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrRenderFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", mimePDF)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderFailure, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPDFBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrRenderFailure, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: renderer returned %d: %s", ErrRenderFailure, resp.StatusCode, snippet(data))
	}
	if len(data) > maxPDFBytes {
		return nil, fmt.Errorf("%w: pdf exceeds %d bytes", ErrRenderFailure, maxPDFBytes)
	}
	return Finalize(data)
}

func snippet(b []byte) string {
	const n = 200
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return s[:n]
	}
	return s
}
