package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/Harshitk-cp/epistemic/internal/domain"
)

const MockDimensions = 64

// MockClient derives a unit vector from the tokens of the input, so texts
// sharing words land close together. Identical text always embeds identically.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) == 0 {
		return nil, domain.ErrEmptyText
	}

	vec := make([]float32, MockDimensions)
	for _, tok := range tokens {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()
		idx := int(sum % MockDimensions)
		if sum&(1<<63) != 0 {
			vec[idx] -= 1
		} else {
			vec[idx] += 1
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}
