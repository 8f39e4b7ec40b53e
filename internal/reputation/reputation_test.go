package reputation

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPProvider_GetScore(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    float64
		wantErr bool
	}{
		{"in range", http.StatusOK, `{"score": 72.5}`, 72.5, false},
		{"clamped high", http.StatusOK, `{"score": 250}`, 100, false},
		{"clamped low", http.StatusOK, `{"score": -4}`, 0, false},
		{"missing score", http.StatusOK, `{}`, 0, true},
		{"bad json", http.StatusOK, `not json`, 0, true},
		{"upstream error", http.StatusBadGateway, `{"score": 10}`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/users/user-42/reputation" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			p := NewHTTPProvider(server.URL+"/", 0)
			got, err := p.GetScore(context.Background(), "user-42")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStaticProvider(t *testing.T) {
	p := NewStaticProvider(50, map[string]float64{"alice": 90, "mallory": 400})
	ctx := context.Background()

	v, _ := p.GetScore(ctx, "alice")
	assert.Equal(t, 90.0, v)
	v, _ = p.GetScore(ctx, "mallory")
	assert.Equal(t, 100.0, v)
	v, _ = p.GetScore(ctx, "bob")
	assert.Equal(t, 50.0, v)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(math.NaN()))
	assert.Equal(t, 0.0, Clamp(-1))
	assert.Equal(t, 37.0, Clamp(37))
	assert.Equal(t, 100.0, Clamp(101))
}

func TestNewProvider(t *testing.T) {
	_, err := NewProvider(ProviderHTTP, "", 50)
	assert.Error(t, err)

	p, err := NewProvider(ProviderHTTP, "http://reputation.internal", 50)
	require.NoError(t, err)
	assert.IsType(t, &HTTPProvider{}, p)

	p, err = NewProvider(ProviderStatic, "", 30)
	require.NoError(t, err)
	v, _ := p.GetScore(context.Background(), "anyone")
	assert.Equal(t, 30.0, v)

	_, err = NewProvider("ldap", "", 0)
	assert.Error(t, err)
}
