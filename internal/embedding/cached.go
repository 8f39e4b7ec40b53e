package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/Harshitk-cp/epistemic/internal/domain"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// CachedClient memoizes embeddings by content hash and collapses concurrent
// requests for the same text into one upstream call.
type CachedClient struct {
	next  domain.EmbeddingClient
	cache *gocache.Cache
	group singleflight.Group
}

func NewCachedClient(next domain.EmbeddingClient, ttl time.Duration) *CachedClient {
	return &CachedClient{
		next:  next,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (c *CachedClient) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text)
	if v, ok := c.cache.Get(key); ok {
		return cloneVector(v.([]float32)), nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		vec, err := c.next.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		c.cache.SetDefault(key, vec)
		return vec, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneVector(v.([]float32)), nil
}

// Len reports the number of cached vectors.
func (c *CachedClient) Len() int {
	return c.cache.ItemCount()
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func cloneVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
