// Package posts looks up platform posts. Notes on a post are appealable only
// by the author this package reports, never by a caller-supplied id.
package posts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Harshitk-cp/epistemic/internal/domain"
)

const (
	ProviderHTTP   = "http"
	ProviderStatic = "static"
)

// HTTPProvider reads post ownership from the platform at
// GET {baseURL}/posts/{id}, which answers {"author_id": "..."}.
type HTTPProvider struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPProvider(baseURL string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type postResponse struct {
	AuthorID string `json:"author_id"`
}

func (p *HTTPProvider) PostAuthor(ctx context.Context, postID string) (string, error) {
	endpoint := fmt.Sprintf("%s/posts/%s", p.baseURL, url.PathEscape(postID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("create post request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("post request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return "", domain.ErrPostNotFound
	default:
		return "", fmt.Errorf("post service returned status %d", resp.StatusCode)
	}

	var body postResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode post response: %w", err)
	}
	if body.AuthorID == "" {
		return "", domain.ErrPostNotFound
	}
	return body.AuthorID, nil
}

// StaticProvider answers from a fixed post to author map. Posts outside the
// map are unknown.
type StaticProvider struct {
	authors map[string]string
}

func NewStaticProvider(authors map[string]string) *StaticProvider {
	s := &StaticProvider{authors: make(map[string]string, len(authors))}
	for post, author := range authors {
		s.authors[post] = author
	}
	return s
}

func (s *StaticProvider) PostAuthor(_ context.Context, postID string) (string, error) {
	if author, ok := s.authors[postID]; ok && author != "" {
		return author, nil
	}
	return "", domain.ErrPostNotFound
}

// NewProvider creates a post author provider based on the provider name.
func NewProvider(provider, baseURL string) (domain.PostAuthorProvider, error) {
	switch provider {
	case ProviderHTTP:
		if baseURL == "" {
			return nil, fmt.Errorf("POSTS_URL is required for http post provider")
		}
		return NewHTTPProvider(baseURL, 0), nil
	case ProviderStatic:
		return NewStaticProvider(nil), nil
	default:
		return nil, fmt.Errorf("unknown post provider: %s (valid options: http, static)", provider)
	}
}
