package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Harshitk-cp/epistemic/internal/domain"
	"github.com/Harshitk-cp/epistemic/internal/embedding"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingEmbedder struct {
	err   error
	calls int
}

func (f *failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	return nil, f.err
}

type slowEmbedder struct{}

func (slowEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestLedger_CreateArgumentSeeding(t *testing.T) {
	tests := []struct {
		name string
		in   CreateArgumentInput
		want float64
	}{
		{"default", CreateArgumentInput{}, 0.5},
		{"explicit", CreateArgumentInput{InitialConfidence: ptr(0.9), LogicalValidity: ptr(0.1)}, 0.9},
		{"quality mean", CreateArgumentInput{LogicalValidity: ptr(0.9), EvidenceQuality: ptr(0.6), Coherence: ptr(0.6)}, 0.7},
		{"entropy ignored", CreateArgumentInput{EntropyScore: ptr(0.1)}, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			in := tt.in
			in.Content = "claim"
			in.Embedding = angle(0)
			a, err := f.ledger.CreateArgument(context.Background(), in)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, a.Confidence, 1e-9)
		})
	}
}

func TestLedger_CreateArgumentValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ledger.CreateArgument(ctx, CreateArgumentInput{Content: "  ", Embedding: angle(0)})
	assert.ErrorIs(t, err, ErrContentMissing)

	_, err = f.ledger.CreateArgument(ctx, CreateArgumentInput{Content: "c", Embedding: angle(0), InitialConfidence: ptr(1.1)})
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = f.ledger.CreateArgument(ctx, CreateArgumentInput{Content: "c", Embedding: angle(0), Coherence: ptr(-0.5)})
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = f.ledger.CreateArgument(ctx, CreateArgumentInput{Content: "no vector and no provider"})
	assert.ErrorIs(t, err, ErrEmbeddingMissing)

	assert.Empty(t, f.args.args)
}

func TestLedger_CreateEmbedsText(t *testing.T) {
	f := newFixture(t)
	f.ledger.embedder = embedding.NewMockClient()
	ctx := context.Background()

	a, err := f.ledger.CreateArgument(ctx, CreateArgumentInput{Content: "wind power is cheap", SourcePostID: "p1"})
	require.NoError(t, err)
	assert.Len(t, a.Embedding, embedding.MockDimensions)
	assert.Equal(t, 1, f.index.Len(domain.EntityArgument))

	fc, err := f.ledger.CreateFact(ctx, CreateFactInput{Claim: "wind power is cheap"})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultConfidence, fc.Confidence)
	assert.Equal(t, 1, f.index.Len(domain.EntityFactClaim))

	matches, err := f.ledger.FindSimilarFacts(ctx, "wind power is cheap", SimilarityOptions{MinSimilarity: 0.99})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, fc.ID, matches[0].ID)
}

func TestLedger_EmbeddingFailureWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.ledger.embedder = &failingEmbedder{err: domain.ErrEmbeddingUnavailable}
	_, err := f.ledger.CreateArgument(ctx, CreateArgumentInput{Content: "c"})
	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)

	f.ledger.embedder = &failingEmbedder{err: domain.ErrEmptyText}
	_, err = f.ledger.CreateFact(ctx, CreateFactInput{Claim: "c"})
	assert.ErrorIs(t, err, ErrContentMissing)

	f.ledger.embedder = slowEmbedder{}
	f.ledger.EmbeddingTimeout = 10 * time.Millisecond
	_, err = f.ledger.CreateFact(ctx, CreateFactInput{Claim: "c"})
	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)

	assert.Empty(t, f.args.args)
	assert.Empty(t, f.facts.facts)
	assert.Equal(t, 0, f.index.Len(domain.EntityArgument))
}

func TestLedger_SuppliedEmbeddingSkipsProvider(t *testing.T) {
	f := newFixture(t)
	emb := &failingEmbedder{err: errors.New("should not be called")}
	f.ledger.embedder = emb

	_, err := f.ledger.CreateFact(context.Background(), CreateFactInput{Claim: "c", Embedding: angle(0), InitialConfidence: ptr(0.2)})
	require.NoError(t, err)
	assert.Equal(t, 0, emb.calls)
}

func TestLedger_Reads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	low := f.addArgument(t, 0.1, angle(0))
	mid := f.addArgument(t, 0.5, angle(90))
	high := f.addArgument(t, 0.9, angle(180))

	got, err := f.ledger.GetArgument(ctx, mid.ID)
	require.NoError(t, err)
	assert.Equal(t, mid.ID, got.ID)

	_, err = f.ledger.GetArgument(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrEntityNotFound)
	_, err = f.ledger.GetFact(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrEntityNotFound)

	top, err := f.ledger.TopArguments(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, high.ID, top[0].ID)

	below, err := f.ledger.ArgumentsByConfidence(ctx, domain.ConfidenceFilter{Below: ptr(0.3)})
	require.NoError(t, err)
	require.Len(t, below, 1)
	assert.Equal(t, low.ID, below[0].ID)

	_, err = f.ledger.ArgumentsByConfidence(ctx, domain.ConfidenceFilter{Above: ptr(2.0)})
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestLedger_FindSimilarArguments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	older := f.addArgument(t, 0.5, angle(10))
	newer := f.addArgument(t, 0.5, angle(-10))
	far := f.addArgument(t, 0.5, angle(80))

	matches, err := f.ledger.FindSimilarArguments(ctx, angle(0), SimilarityOptions{Limit: 5, MinSimilarity: 0.5})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, newer.ID, matches[0].ID, "equal similarity prefers the most recent")
	assert.Equal(t, older.ID, matches[1].ID)

	neighbors, err := f.ledger.NeighborsOfArgument(ctx, far.ID, SimilarityOptions{})
	require.NoError(t, err)
	for _, m := range neighbors {
		assert.NotEqual(t, far.ID, m.ID)
	}

	_, err = f.ledger.FindSimilarArguments(ctx, nil, SimilarityOptions{})
	assert.ErrorIs(t, err, ErrEmbeddingMissing)
}

func TestAuditService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewAuditService(f.audit)
	a := f.addArgument(t, 0.5, angle(0))

	_, err := f.engine.Support(ctx, a.ID, "tap-7")
	require.NoError(t, err)

	_, err = svc.History(ctx, "post", a.ID, 10)
	assert.ErrorIs(t, err, ErrInvalidEntityType)

	history, err := svc.History(ctx, "argument", a.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "support", history[0].Reason)

	byInteraction, err := svc.ByInteraction(ctx, "tap-7")
	require.NoError(t, err)
	assert.Len(t, byInteraction, 1)

	_, err = svc.ByInteraction(ctx, "")
	assert.ErrorIs(t, err, ErrContentMissing)
}
