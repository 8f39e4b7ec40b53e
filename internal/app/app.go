// Package app wires stores, providers and services from configuration. Both
// the HTTP server and ledgerctl build their ledger through it.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Harshitk-cp/epistemic/internal/config"
	"github.com/Harshitk-cp/epistemic/internal/domain"
	"github.com/Harshitk-cp/epistemic/internal/embedding"
	"github.com/Harshitk-cp/epistemic/internal/posts"
	"github.com/Harshitk-cp/epistemic/internal/reputation"
	"github.com/Harshitk-cp/epistemic/internal/service"
	"github.com/Harshitk-cp/epistemic/internal/similarity"
	"github.com/Harshitk-cp/epistemic/internal/store"
	"go.uber.org/zap"
)

const (
	BackendPgvector = "pgvector"
	BackendMemory   = "memory"
)

// Settings is everything Build reads from the environment.
type Settings struct {
	Embedding          embedding.Options
	ReputationProvider string
	ReputationURL      string
	ReputationDefault  float64
	PostAuthorProvider string
	PostsURL           string
	SimilarityBackend  string
	Propagation        service.PropagationConfig
	ClusterThreshold   float64
	Notes              service.NoteConfig
	EmbeddingTimeout   time.Duration
}

func SettingsFromConfig() Settings {
	return Settings{
		Embedding: embedding.Options{
			Provider: config.EmbeddingProvider(),
			APIKey:   config.EmbeddingAPIKey(),
			BaseURL:  config.OpenAIBaseURL(),
			Model:    config.EmbeddingModel(),
			Timeout:  config.EmbeddingTimeout(),
			CacheTTL: config.EmbeddingCacheTTL(),
		},
		ReputationProvider: config.ReputationProvider(),
		ReputationURL:      config.ReputationURL(),
		ReputationDefault:  config.ReputationDefault(),
		PostAuthorProvider: config.PostAuthorProvider(),
		PostsURL:           config.PostsURL(),
		SimilarityBackend:  config.SimilarityBackend(),
		Propagation: service.PropagationConfig{
			Threshold:         config.PropagationThreshold(),
			Limit:             config.PropagationLimit(),
			Dampening:         config.PropagationDampening(),
			SupportDelta:      config.SupportDelta(),
			RefuteDelta:       config.RefuteDelta(),
			CiteDelta:         config.CiteDelta(),
			ChallengeDelta:    config.ChallengeDelta(),
			SignificantChange: config.ClusterSignificantChange(),
		},
		ClusterThreshold: config.ClusterThreshold(),
		Notes: service.NoteConfig{
			DisplayThreshold: config.NoteDisplayThreshold(),
			MinVotes:         config.NoteMinVotes(),
		},
		EmbeddingTimeout: config.EmbeddingTimeout(),
	}
}

// Ledger is the wired service graph.
type Ledger struct {
	Ledger   *service.LedgerService
	Engine   *service.PropagationEngine
	Clusters *service.ClusterManager
	Notes    *service.NoteGovernor
	Audit    *service.AuditService
	Index    domain.SimilarityIndex
}

func Build(ctx context.Context, pool store.Pool, s Settings, logger *zap.Logger) (*Ledger, error) {
	tx := store.NewTxManager(pool)
	arguments := store.NewArgumentStore(pool)
	facts := store.NewFactStore(pool)
	deps := store.NewDependencyStore(pool)
	audit := store.NewAuditStore(pool)
	notes := store.NewNoteStore(pool)
	votes := store.NewVoteStore(pool)

	index, err := buildIndex(ctx, s.SimilarityBackend, pool, arguments, facts)
	if err != nil {
		return nil, err
	}
	logger.Info("similarity index ready", zap.String("backend", s.SimilarityBackend))

	// The ledger still serves creates that carry their own vector when the
	// provider is misconfigured.
	embedder, err := embedding.NewClient(s.Embedding)
	if err != nil {
		logger.Warn("embedding client initialization failed", zap.String("provider", s.Embedding.Provider), zap.Error(err))
	} else {
		logger.Info("embedding client initialized", zap.String("provider", s.Embedding.Provider))
	}

	rep, err := reputation.NewProvider(s.ReputationProvider, s.ReputationURL, s.ReputationDefault)
	if err != nil {
		return nil, err
	}
	authors, err := posts.NewProvider(s.PostAuthorProvider, s.PostsURL)
	if err != nil {
		return nil, err
	}

	clusters := service.NewClusterManager(tx, arguments, index, logger)
	if s.ClusterThreshold > 0 {
		clusters.Threshold = s.ClusterThreshold
	}
	engine := service.NewPropagationEngine(tx, arguments, facts, deps, audit, index, clusters, s.Propagation, logger)
	ledger := service.NewLedgerService(arguments, facts, index, embedder, clusters, logger)
	if s.EmbeddingTimeout > 0 {
		ledger.EmbeddingTimeout = s.EmbeddingTimeout
	}

	return &Ledger{
		Ledger:   ledger,
		Engine:   engine,
		Clusters: clusters,
		Notes:    service.NewNoteGovernor(tx, notes, votes, facts, rep, authors, engine, s.Notes, logger),
		Audit:    service.NewAuditService(audit),
		Index:    index,
	}, nil
}

func buildIndex(ctx context.Context, backend string, pool store.Pool, arguments *store.ArgumentStore, facts *store.FactStore) (domain.SimilarityIndex, error) {
	switch backend {
	case BackendPgvector:
		return store.NewSimilarityStore(pool), nil
	case BackendMemory:
		idx := similarity.NewMemoryIndex()
		argVectors, err := arguments.ListEmbeddings(ctx)
		if err != nil {
			return nil, err
		}
		factVectors, err := facts.ListEmbeddings(ctx)
		if err != nil {
			return nil, err
		}
		idx.Load(domain.EntityArgument, argVectors)
		idx.Load(domain.EntityFactClaim, factVectors)
		return idx, nil
	default:
		return nil, fmt.Errorf("unknown similarity backend: %s (valid options: pgvector, memory)", backend)
	}
}
