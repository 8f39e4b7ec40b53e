package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Harshitk-cp/epistemic/internal/domain"
	"github.com/Harshitk-cp/epistemic/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultEmbeddingTimeout = 10 * time.Second

type CreateArgumentInput struct {
	Content           string
	Summary           *string
	Embedding         []float32
	InitialConfidence *float64
	LogicalValidity   *float64
	EvidenceQuality   *float64
	Coherence         *float64
	EntropyScore      *float64
	SourcePostID      string
	SourceUserID      string
}

type CreateFactInput struct {
	Claim             string
	Embedding         []float32
	InitialConfidence *float64
	SourcePostID      *string
	SourceUserID      *string
}

// SimilarityOptions bounds a similarity search. Zero values fall back to
// the ledger defaults.
type SimilarityOptions struct {
	Limit         int
	MinSimilarity float64
	ExcludeID     *uuid.UUID
}

// LedgerService owns creation and reads of arguments and fact claims.
// Confidence mutations go through the PropagationEngine.
type LedgerService struct {
	arguments domain.ArgumentStore
	facts     domain.FactStore
	index     domain.SimilarityIndex
	embedder  domain.EmbeddingClient
	clusters  *ClusterManager
	logger    *zap.Logger

	EmbeddingTimeout time.Duration
}

func NewLedgerService(
	arguments domain.ArgumentStore,
	facts domain.FactStore,
	index domain.SimilarityIndex,
	embedder domain.EmbeddingClient,
	clusters *ClusterManager,
	logger *zap.Logger,
) *LedgerService {
	return &LedgerService{
		arguments:        arguments,
		facts:            facts,
		index:            index,
		embedder:         embedder,
		clusters:         clusters,
		logger:           logger,
		EmbeddingTimeout: DefaultEmbeddingTimeout,
	}
}

func (s *LedgerService) CreateArgument(ctx context.Context, in CreateArgumentInput) (*domain.Argument, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, ErrContentMissing
	}
	if err := checkUnitRange(in.InitialConfidence, in.LogicalValidity, in.EvidenceQuality, in.Coherence, in.EntropyScore); err != nil {
		return nil, err
	}

	vector, err := s.resolveEmbedding(ctx, in.Embedding, in.Content)
	if err != nil {
		return nil, err
	}

	a := &domain.Argument{
		Content:         in.Content,
		Summary:         in.Summary,
		Embedding:       vector,
		LogicalValidity: in.LogicalValidity,
		EvidenceQuality: in.EvidenceQuality,
		Coherence:       in.Coherence,
		EntropyScore:    in.EntropyScore,
		SourcePostID:    in.SourcePostID,
		SourceUserID:    in.SourceUserID,
	}
	if in.InitialConfidence != nil {
		a.Confidence = *in.InitialConfidence
	} else {
		a.Confidence = Clamp(a.SeedConfidence())
	}

	if err := s.arguments.Create(ctx, a); err != nil {
		if errors.Is(err, store.ErrEmbeddingMissing) {
			return nil, ErrEmbeddingMissing
		}
		return nil, err
	}
	s.addToIndex(domain.EntityArgument, a.ID, a.Embedding, a.CreatedAt)

	s.logger.Debug("argument created",
		zap.String("argument_id", a.ID.String()),
		zap.String("source_post_id", a.SourcePostID),
		zap.Float64("confidence", a.Confidence))

	if s.clusters != nil {
		if _, err := s.clusters.Assign(ctx, a); err != nil {
			s.logger.Warn("cluster assignment failed",
				zap.String("argument_id", a.ID.String()), zap.Error(err))
		}
	}
	return a, nil
}

func (s *LedgerService) CreateFact(ctx context.Context, in CreateFactInput) (*domain.FactClaim, error) {
	if strings.TrimSpace(in.Claim) == "" {
		return nil, ErrContentMissing
	}
	if err := checkUnitRange(in.InitialConfidence); err != nil {
		return nil, err
	}

	vector, err := s.resolveEmbedding(ctx, in.Embedding, in.Claim)
	if err != nil {
		return nil, err
	}

	f := &domain.FactClaim{
		Claim:        in.Claim,
		Embedding:    vector,
		Confidence:   domain.DefaultConfidence,
		SourcePostID: in.SourcePostID,
		SourceUserID: in.SourceUserID,
	}
	if in.InitialConfidence != nil {
		f.Confidence = *in.InitialConfidence
	}

	if err := s.facts.Create(ctx, f); err != nil {
		if errors.Is(err, store.ErrEmbeddingMissing) {
			return nil, ErrEmbeddingMissing
		}
		return nil, err
	}
	s.addToIndex(domain.EntityFactClaim, f.ID, f.Embedding, f.CreatedAt)

	s.logger.Debug("fact claim created",
		zap.String("fact_claim_id", f.ID.String()),
		zap.Float64("confidence", f.Confidence))

	return f, nil
}

func (s *LedgerService) GetArgument(ctx context.Context, id uuid.UUID) (*domain.Argument, error) {
	a, err := s.arguments.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

func (s *LedgerService) GetFact(ctx context.Context, id uuid.UUID) (*domain.FactClaim, error) {
	f, err := s.facts.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return f, nil
}

func (s *LedgerService) ArgumentsByCluster(ctx context.Context, clusterID uuid.UUID) ([]domain.Argument, error) {
	return s.arguments.GetByCluster(ctx, clusterID)
}

func (s *LedgerService) ArgumentsByPost(ctx context.Context, postID string) ([]domain.Argument, error) {
	return s.arguments.GetByPost(ctx, postID)
}

func (s *LedgerService) TopArguments(ctx context.Context, limit int) ([]domain.Argument, error) {
	return s.arguments.TopByConfidence(ctx, limit)
}

func (s *LedgerService) ArgumentsByConfidence(ctx context.Context, f domain.ConfidenceFilter) ([]domain.Argument, error) {
	if err := checkUnitRange(f.Below, f.Above); err != nil {
		return nil, err
	}
	return s.arguments.ListByConfidence(ctx, f)
}

func (s *LedgerService) FactsByPost(ctx context.Context, postID string) ([]domain.FactClaim, error) {
	return s.facts.GetByPost(ctx, postID)
}

func (s *LedgerService) TopFacts(ctx context.Context, limit int) ([]domain.FactClaim, error) {
	return s.facts.TopByConfidence(ctx, limit)
}

func (s *LedgerService) FactsByConfidence(ctx context.Context, f domain.ConfidenceFilter) ([]domain.FactClaim, error) {
	if err := checkUnitRange(f.Below, f.Above); err != nil {
		return nil, err
	}
	return s.facts.ListByConfidence(ctx, f)
}

// FindSimilarArguments searches arguments near a precomputed vector.
func (s *LedgerService) FindSimilarArguments(ctx context.Context, vector []float32, opts SimilarityOptions) ([]domain.SimilarityMatch, error) {
	if len(vector) == 0 {
		return nil, ErrEmbeddingMissing
	}
	return s.query(ctx, domain.EntityArgument, vector, opts)
}

// FindSimilarFacts embeds claim and searches facts near it.
func (s *LedgerService) FindSimilarFacts(ctx context.Context, claim string, opts SimilarityOptions) ([]domain.SimilarityMatch, error) {
	if strings.TrimSpace(claim) == "" {
		return nil, ErrContentMissing
	}
	vector, err := s.resolveEmbedding(ctx, nil, claim)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, domain.EntityFactClaim, vector, opts)
}

// NeighborsOfArgument lists arguments similar to an existing one, excluding it.
func (s *LedgerService) NeighborsOfArgument(ctx context.Context, id uuid.UUID, opts SimilarityOptions) ([]domain.SimilarityMatch, error) {
	a, err := s.GetArgument(ctx, id)
	if err != nil {
		return nil, err
	}
	opts.ExcludeID = &a.ID
	return s.query(ctx, domain.EntityArgument, a.Embedding, opts)
}

func (s *LedgerService) query(ctx context.Context, kind domain.EntityType, vector []float32, opts SimilarityOptions) ([]domain.SimilarityMatch, error) {
	if opts.Limit <= 0 {
		opts.Limit = 10
	}
	if math.IsNaN(opts.MinSimilarity) || opts.MinSimilarity < -1 || opts.MinSimilarity > 1 {
		return nil, ErrOutOfRange
	}
	return s.index.Query(ctx, domain.SimilarityQuery{
		Kind:          kind,
		Vector:        vector,
		Limit:         opts.Limit,
		ExcludeID:     opts.ExcludeID,
		MinSimilarity: opts.MinSimilarity,
	})
}

// resolveEmbedding returns the supplied vector, or embeds text under the
// configured timeout. Nothing is written when the provider fails.
func (s *LedgerService) resolveEmbedding(ctx context.Context, vector []float32, text string) ([]float32, error) {
	if len(vector) > 0 {
		return vector, nil
	}
	if s.embedder == nil {
		return nil, ErrEmbeddingMissing
	}

	if s.EmbeddingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.EmbeddingTimeout)
		defer cancel()
	}

	out, err := s.embedder.Embed(ctx, text)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyText) {
			return nil, ErrContentMissing
		}
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}
	if len(out) == 0 {
		return nil, ErrEmbeddingMissing
	}
	return out, nil
}

func (s *LedgerService) addToIndex(kind domain.EntityType, id uuid.UUID, vector []float32, createdAt time.Time) {
	if indexer, ok := s.index.(domain.SimilarityIndexer); ok {
		indexer.Add(kind, id, vector, createdAt)
	}
}
