package reputation

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

// HTTPProvider reads scores from an upstream reputation service at
// GET {baseURL}/users/{id}/reputation, which answers {"score": n}.
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

type scoreResponse struct {
	Score *float64 `json:"score"`
}

func (p *HTTPProvider) GetScore(ctx context.Context, userID string) (float64, error) {
	endpoint := fmt.Sprintf("%s/users/%s/reputation", p.baseURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("create reputation request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("reputation request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("reputation service returned status %d", resp.StatusCode)
	}

	var body scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode reputation response: %w", err)
	}
	if body.Score == nil {
		return 0, fmt.Errorf("reputation response missing score")
	}
	return Clamp(*body.Score), nil
}

// StaticProvider returns fixed per-user scores and a default for everyone else.
type StaticProvider struct {
	scores       map[string]float64
	defaultScore float64
}

func NewStaticProvider(defaultScore float64, scores map[string]float64) *StaticProvider {
	s := &StaticProvider{
		scores:       make(map[string]float64, len(scores)),
		defaultScore: Clamp(defaultScore),
	}
	for id, v := range scores {
		s.scores[id] = Clamp(v)
	}
	return s
}

func (s *StaticProvider) GetScore(_ context.Context, userID string) (float64, error) {
	if v, ok := s.scores[userID]; ok {
		return v, nil
	}
	return s.defaultScore, nil
}

// Clamp bounds a score to [MinReputation, MaxReputation].
func Clamp(v float64) float64 {
	if v != v || v < domain.MinReputation {
		return domain.MinReputation
	}
	if v > domain.MaxReputation {
		return domain.MaxReputation
	}
	return v
}

// NewProvider creates a reputation provider based on the provider name.
func NewProvider(provider, baseURL string, defaultScore float64) (domain.ReputationProvider, error) {
	switch provider {
	case ProviderHTTP:
		if baseURL == "" {
			return nil, fmt.Errorf("REPUTATION_URL is required for http reputation provider")
		}
		return NewHTTPProvider(baseURL, 0), nil
	case ProviderStatic:
		return NewStaticProvider(defaultScore, nil), nil
	default:
		return nil, fmt.Errorf("unknown reputation provider: %s (valid options: http, static)", provider)
	}
}
