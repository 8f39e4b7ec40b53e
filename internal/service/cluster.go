package service

import (
	"context"
	"errors"

	"github.com/Harshitk-cp/epistemic/internal/domain"
	"github.com/Harshitk-cp/epistemic/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	ClusterJoined  = "joined"
	ClusterCreated = "created"
	ClusterNone    = "none"

	clusterCandidates = 10
)

// ClusterAssignment reports what Assign did with an argument.
type ClusterAssignment struct {
	Action    string      `json:"action"`
	ClusterID *uuid.UUID  `json:"cluster_id,omitempty"`
	HeadID    *uuid.UUID  `json:"head_id,omitempty"`
	Members   []uuid.UUID `json:"members,omitempty"`
}

// ClusterManager groups near-duplicate arguments under a cluster head.
// Existing clusters are never merged.
type ClusterManager struct {
	tx        domain.Transactor
	arguments domain.ArgumentStore
	index     domain.SimilarityIndex
	logger    *zap.Logger

	Threshold float64
}

func NewClusterManager(tx domain.Transactor, arguments domain.ArgumentStore, index domain.SimilarityIndex, logger *zap.Logger) *ClusterManager {
	return &ClusterManager{
		tx:        tx,
		arguments: arguments,
		index:     index,
		logger:    logger,
		Threshold: DefaultClusterThreshold,
	}
}

// Recluster loads the argument and assigns it if it is still unclustered.
func (m *ClusterManager) Recluster(ctx context.Context, argumentID uuid.UUID) (*ClusterAssignment, error) {
	arg, err := m.arguments.GetByID(ctx, argumentID)
	if err != nil {
		return nil, notFound(err)
	}
	return m.Assign(ctx, arg)
}

// Assign places an unclustered argument. It joins the cluster of the most
// similar clustered match; failing that, it founds a new cluster over all
// unclustered matches headed by the most confident of them.
func (m *ClusterManager) Assign(ctx context.Context, arg *domain.Argument) (*ClusterAssignment, error) {
	if arg.ClusterID != nil || len(arg.Embedding) == 0 {
		return &ClusterAssignment{Action: ClusterNone, ClusterID: arg.ClusterID}, nil
	}

	matches, err := m.index.Query(ctx, domain.SimilarityQuery{
		Kind:          domain.EntityArgument,
		Vector:        arg.Embedding,
		Limit:         clusterCandidates,
		ExcludeID:     &arg.ID,
		MinSimilarity: m.Threshold,
	})
	if err != nil {
		return nil, err
	}

	var candidates []*domain.Argument
	for _, match := range matches {
		c, err := m.arguments.GetByID(ctx, match.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, err
		}
		candidates = append(candidates, c)
	}
	if len(candidates) == 0 {
		return &ClusterAssignment{Action: ClusterNone}, nil
	}

	for _, c := range candidates {
		if c.ClusterID == nil {
			continue
		}
		clusterID := *c.ClusterID
		if err := m.arguments.SetCluster(ctx, arg.ID, clusterID, false); err != nil {
			return nil, err
		}
		arg.ClusterID = &clusterID
		arg.IsClusterHead = false
		clusterAssignments.WithLabelValues(ClusterJoined).Inc()

		m.logger.Debug("argument joined cluster",
			zap.String("argument_id", arg.ID.String()),
			zap.String("cluster_id", clusterID.String()),
			zap.Float64("similarity", matchSimilarity(matches, c.ID)))

		return &ClusterAssignment{Action: ClusterJoined, ClusterID: &clusterID}, nil
	}

	head := candidates[0]
	for _, c := range candidates[1:] {
		if c.Confidence > head.Confidence ||
			(c.Confidence == head.Confidence && c.CreatedAt.Before(head.CreatedAt)) {
			head = c
		}
	}

	clusterID := uuid.New()
	members := make([]uuid.UUID, 0, len(candidates)+1)
	err = m.tx.WithTx(ctx, func(ctx context.Context) error {
		for _, c := range candidates {
			if err := m.arguments.SetCluster(ctx, c.ID, clusterID, c.ID == head.ID); err != nil {
				return err
			}
			members = append(members, c.ID)
		}
		if err := m.arguments.SetCluster(ctx, arg.ID, clusterID, false); err != nil {
			return err
		}
		members = append(members, arg.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	arg.ClusterID = &clusterID
	arg.IsClusterHead = false
	clusterAssignments.WithLabelValues(ClusterCreated).Inc()

	m.logger.Debug("created cluster",
		zap.String("cluster_id", clusterID.String()),
		zap.String("head_id", head.ID.String()),
		zap.Int("members", len(members)))

	headID := head.ID
	return &ClusterAssignment{Action: ClusterCreated, ClusterID: &clusterID, HeadID: &headID, Members: members}, nil
}

func matchSimilarity(matches []domain.SimilarityMatch, id uuid.UUID) float64 {
	for _, m := range matches {
		if m.ID == id {
			return m.Similarity
		}
	}
	return 0
}
