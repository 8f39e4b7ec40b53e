package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/Harshitk-cp/epistemic/internal/domain"
	"github.com/Harshitk-cp/epistemic/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// errInteractionRecorded reports that the target already has a direct entry
// for the mutation's interaction id.
var errInteractionRecorded = errors.New("interaction already recorded")

// PropagationConfig holds the tunable deltas and thresholds of the engine.
type PropagationConfig struct {
	Threshold         float64
	Limit             int
	Dampening         float64
	SupportDelta      float64
	RefuteDelta       float64
	CiteDelta         float64
	ChallengeDelta    float64
	SignificantChange float64
}

func DefaultPropagationConfig() PropagationConfig {
	return PropagationConfig{
		Threshold:         DefaultPropagationThreshold,
		Limit:             DefaultPropagationLimit,
		Dampening:         DefaultDampening,
		SupportDelta:      DefaultSupportDelta,
		RefuteDelta:       DefaultRefuteDelta,
		CiteDelta:         DefaultCiteDelta,
		ChallengeDelta:    DefaultChallengeDelta,
		SignificantChange: DefaultSignificantChange,
	}
}

// MutationResult describes one confidence mutation and its fan-out.
type MutationResult struct {
	EntityType    domain.EntityType `json:"entity_type"`
	ID            uuid.UUID         `json:"id"`
	OldConfidence float64           `json:"old_confidence"`
	NewConfidence float64           `json:"new_confidence"`
	PropagatedTo  []uuid.UUID       `json:"propagated_to"`
	Recomputed    []uuid.UUID       `json:"recomputed"`
	Replayed      bool              `json:"replayed"`
}

type mutation struct {
	kind          domain.EntityType
	id            uuid.UUID
	reason        string
	interactionID string
	absolute      *float64
	delta         float64
	argCounter    domain.ArgumentCounter
	factCounter   domain.FactCounter
	propagate     bool
}

// PropagationEngine applies confidence mutations: the direct write, one hop
// of similarity propagation, and the dependency cascade, all audited inside
// a single transaction.
type PropagationEngine struct {
	tx        domain.Transactor
	arguments domain.ArgumentStore
	facts     domain.FactStore
	deps      domain.DependencyStore
	audit     domain.AuditStore
	index     domain.SimilarityIndex
	clusters  *ClusterManager
	cfg       PropagationConfig
	logger    *zap.Logger
}

func NewPropagationEngine(
	tx domain.Transactor,
	arguments domain.ArgumentStore,
	facts domain.FactStore,
	deps domain.DependencyStore,
	audit domain.AuditStore,
	index domain.SimilarityIndex,
	clusters *ClusterManager,
	cfg PropagationConfig,
	logger *zap.Logger,
) *PropagationEngine {
	return &PropagationEngine{
		tx:        tx,
		arguments: arguments,
		facts:     facts,
		deps:      deps,
		audit:     audit,
		index:     index,
		clusters:  clusters,
		cfg:       cfg,
		logger:    logger,
	}
}

// UpdateConfidence sets an entity's confidence directly. Caller input outside
// [0, 1] is rejected. Direct updates do not propagate to similar entities but
// still refresh dependent effective confidences.
func (e *PropagationEngine) UpdateConfidence(ctx context.Context, kind domain.EntityType, id uuid.UUID, value float64, reason, interactionID string) (*MutationResult, error) {
	if !domain.ValidEntityType(string(kind)) {
		return nil, ErrInvalidEntityType
	}
	if math.IsNaN(value) || !inUnitRange(value) {
		return nil, ErrOutOfRange
	}
	if reason == "" {
		reason = "direct_update"
	}
	return e.apply(ctx, mutation{kind: kind, id: id, reason: reason, interactionID: interactionID, absolute: &value})
}

func (e *PropagationEngine) Support(ctx context.Context, argumentID uuid.UUID, interactionID string) (*MutationResult, error) {
	return e.apply(ctx, mutation{
		kind: domain.EntityArgument, id: argumentID, reason: "support", interactionID: interactionID,
		delta: e.cfg.SupportDelta, argCounter: domain.CounterSupport, propagate: true,
	})
}

func (e *PropagationEngine) Refute(ctx context.Context, argumentID uuid.UUID, interactionID string) (*MutationResult, error) {
	return e.apply(ctx, mutation{
		kind: domain.EntityArgument, id: argumentID, reason: "refute", interactionID: interactionID,
		delta: -e.cfg.RefuteDelta, argCounter: domain.CounterRefute, propagate: true,
	})
}

func (e *PropagationEngine) Cite(ctx context.Context, factID uuid.UUID, interactionID string) (*MutationResult, error) {
	return e.apply(ctx, mutation{
		kind: domain.EntityFactClaim, id: factID, reason: "cite", interactionID: interactionID,
		delta: e.cfg.CiteDelta, factCounter: domain.FactCounterCitation, propagate: true,
	})
}

func (e *PropagationEngine) Challenge(ctx context.Context, factID uuid.UUID, interactionID string) (*MutationResult, error) {
	return e.apply(ctx, mutation{
		kind: domain.EntityFactClaim, id: factID, reason: "challenge", interactionID: interactionID,
		delta: -e.cfg.ChallengeDelta, factCounter: domain.FactCounterChallenge, propagate: true,
	})
}

// ApplyDelta moves an entity's confidence by delta through the propagating
// path without touching its counters.
func (e *PropagationEngine) ApplyDelta(ctx context.Context, kind domain.EntityType, id uuid.UUID, delta float64, reason, interactionID string) (*MutationResult, error) {
	if !domain.ValidEntityType(string(kind)) {
		return nil, ErrInvalidEntityType
	}
	if math.IsNaN(delta) || delta < -1 || delta > 1 {
		return nil, ErrOutOfRange
	}
	return e.apply(ctx, mutation{kind: kind, id: id, reason: reason, interactionID: interactionID, delta: delta, propagate: true})
}

// LinkToFact records that an argument depends on a fact and recomputes the
// argument's effective confidence.
func (e *PropagationEngine) LinkToFact(ctx context.Context, argumentID, factID uuid.UUID, strength float64) (*domain.ArgumentFactDependency, *domain.Argument, error) {
	if math.IsNaN(strength) || !inUnitRange(strength) {
		return nil, nil, ErrOutOfRange
	}

	dep := &domain.ArgumentFactDependency{
		ArgumentID:         argumentID,
		FactClaimID:        factID,
		DependencyStrength: strength,
	}
	var arg *domain.Argument
	err := e.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := e.arguments.GetByID(ctx, argumentID); err != nil {
			return notFound(err)
		}
		if _, err := e.facts.GetByID(ctx, factID); err != nil {
			return notFound(err)
		}
		if err := e.deps.Create(ctx, dep); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return ErrDependencyExists
			}
			return err
		}
		if _, err := e.recomputeArgument(ctx, argumentID, "link_to_fact", ""); err != nil {
			return err
		}
		var err error
		arg, err = e.arguments.GetByID(ctx, argumentID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	e.logger.Debug("linked argument to fact",
		zap.String("argument_id", argumentID.String()),
		zap.String("fact_claim_id", factID.String()),
		zap.Float64("dependency_strength", strength))

	return dep, arg, nil
}

// RecomputeForFact refreshes the effective confidence of every argument that
// depends on factID and returns the ids whose value was written.
func (e *PropagationEngine) RecomputeForFact(ctx context.Context, factID uuid.UUID) ([]uuid.UUID, error) {
	var recomputed []uuid.UUID
	err := e.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := e.facts.GetByID(ctx, factID); err != nil {
			return notFound(err)
		}
		ids, err := e.dependentsOf(ctx, []uuid.UUID{factID})
		if err != nil {
			return err
		}
		recomputed = e.cascade(ctx, ids, "recompute", "")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return recomputed, nil
}

func (e *PropagationEngine) apply(ctx context.Context, m mutation) (*MutationResult, error) {
	if m.interactionID != "" {
		prior, err := e.replay(ctx, m)
		if err != nil {
			return nil, err
		}
		if prior != nil {
			return prior, nil
		}
	}

	result := &MutationResult{EntityType: m.kind, ID: m.id}
	err := e.tx.WithTx(ctx, func(ctx context.Context) error {
		vector, err := e.applyDirect(ctx, m, result)
		if err != nil {
			return err
		}

		changedFacts := []uuid.UUID{}
		changedArgs := []uuid.UUID{}
		if m.kind == domain.EntityFactClaim {
			changedFacts = append(changedFacts, m.id)
		} else {
			changedArgs = append(changedArgs, m.id)
		}

		delta := result.NewConfidence - result.OldConfidence
		if m.propagate && delta != 0 {
			result.PropagatedTo = e.propagate(ctx, m, vector, delta)
			if m.kind == domain.EntityFactClaim {
				changedFacts = append(changedFacts, result.PropagatedTo...)
			} else {
				changedArgs = append(changedArgs, result.PropagatedTo...)
			}
		}

		targets := changedArgs
		if m.kind == domain.EntityFactClaim {
			targets, err = e.dependentsOf(ctx, changedFacts)
			if err != nil {
				return err
			}
		}
		result.Recomputed = e.cascade(ctx, targets, m.reason, m.interactionID)
		return nil
	})
	if errors.Is(err, errInteractionRecorded) {
		// A concurrent request with the same interaction id committed first.
		prior, rerr := e.replay(ctx, m)
		if rerr != nil {
			return nil, rerr
		}
		if prior == nil {
			return nil, err
		}
		return prior, nil
	}
	if err != nil {
		return nil, err
	}

	if m.kind == domain.EntityArgument && e.clusters != nil &&
		math.Abs(result.NewConfidence-result.OldConfidence) >= e.cfg.SignificantChange {
		if _, err := e.clusters.Recluster(ctx, m.id); err != nil {
			e.logger.Warn("cluster check after update failed",
				zap.String("argument_id", m.id.String()), zap.Error(err))
		}
	}

	return result, nil
}

// applyDirect appends the direct audit entry, then writes the target's new
// confidence and bumps its counter. It returns the target's embedding. The
// entry goes first so a duplicate interaction id fails before any write.
func (e *PropagationEngine) applyDirect(ctx context.Context, m mutation, result *MutationResult) ([]float32, error) {
	old, vector, err := e.load(ctx, m.kind, m.id)
	if err != nil {
		return nil, notFound(err)
	}

	next := Clamp(old + m.delta)
	if m.absolute != nil {
		next = Clamp(*m.absolute)
	}

	entry := &domain.ConfidenceAuditEntry{
		EntityType:    m.kind,
		EntityID:      m.id,
		Field:         domain.FieldConfidence,
		OldConfidence: old,
		NewConfidence: next,
		Reason:        m.reason,
		InteractionID: optionalString(m.interactionID),
	}
	if err := e.audit.Append(ctx, entry); err != nil {
		if m.interactionID != "" && errors.Is(err, store.ErrConflict) {
			return nil, errInteractionRecorded
		}
		return nil, err
	}

	if err := e.write(ctx, m.kind, m.id, old, next, m.reason); err != nil {
		return nil, notFound(err)
	}
	if m.argCounter != "" {
		if err := e.arguments.IncrementCounter(ctx, m.id, m.argCounter); err != nil {
			return nil, err
		}
	}
	if m.factCounter != "" {
		if err := e.facts.IncrementCounter(ctx, m.id, m.factCounter); err != nil {
			return nil, err
		}
	}
	confidenceMutations.WithLabelValues(string(m.kind), mutationDirect).Inc()

	e.logger.Debug("confidence updated",
		zap.String("entity_type", string(m.kind)),
		zap.String("entity_id", m.id.String()),
		zap.String("reason", m.reason),
		zap.Float64("old_confidence", old),
		zap.Float64("new_confidence", next))

	result.OldConfidence = old
	result.NewConfidence = next
	return vector, nil
}

// propagate spreads delta to same-type neighbors above the threshold. It is
// exactly one hop: neighbors are written but never propagate further. Each
// neighbor is written in its own savepoint and a failure skips only that
// neighbor.
func (e *PropagationEngine) propagate(ctx context.Context, m mutation, vector []float32, delta float64) []uuid.UUID {
	if e.index == nil || len(vector) == 0 || e.cfg.Limit <= 0 {
		return nil
	}

	var matches []domain.SimilarityMatch
	err := e.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		matches, err = e.index.Query(ctx, domain.SimilarityQuery{
			Kind:          m.kind,
			Vector:        vector,
			Limit:         e.cfg.Limit,
			ExcludeID:     &m.id,
			MinSimilarity: e.cfg.Threshold,
		})
		return err
	})
	if err != nil {
		e.logger.Warn("similarity query failed, skipping propagation",
			zap.String("entity_id", m.id.String()), zap.Error(err))
		propagationFailures.WithLabelValues(string(m.kind)).Inc()
		return nil
	}

	var propagated []uuid.UUID
	for _, match := range matches {
		if match.ID == m.id {
			continue
		}
		var changed bool
		err := e.tx.WithTx(ctx, func(ctx context.Context) error {
			old, _, err := e.load(ctx, m.kind, match.ID)
			if err != nil {
				return err
			}
			next := Clamp(old + delta*match.Similarity*e.cfg.Dampening)
			if next == old {
				return nil
			}
			reason := "propagated:" + m.reason
			if err := e.write(ctx, m.kind, match.ID, old, next, reason); err != nil {
				return err
			}
			from := m.id
			sim := match.Similarity
			changed = true
			return e.audit.Append(ctx, &domain.ConfidenceAuditEntry{
				EntityType:       m.kind,
				EntityID:         match.ID,
				Field:            domain.FieldConfidence,
				OldConfidence:    old,
				NewConfidence:    next,
				Reason:           reason,
				PropagatedFrom:   &from,
				CosineSimilarity: &sim,
				InteractionID:    optionalString(m.interactionID),
			})
		})
		if err != nil {
			e.logger.Warn("propagation target failed, skipping",
				zap.String("source_id", m.id.String()),
				zap.String("target_id", match.ID.String()),
				zap.Error(err))
			propagationFailures.WithLabelValues(string(m.kind)).Inc()
			continue
		}
		if changed {
			confidenceMutations.WithLabelValues(string(m.kind), mutationPropagated).Inc()
			propagated = append(propagated, match.ID)
		}
	}
	return propagated
}

// dependentsOf returns the distinct arguments depending on any of factIDs, in
// first-seen order.
func (e *PropagationEngine) dependentsOf(ctx context.Context, factIDs []uuid.UUID) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]bool)
	var out []uuid.UUID
	for _, fid := range factIDs {
		deps, err := e.deps.GetByFact(ctx, fid)
		if err != nil {
			return nil, err
		}
		for _, d := range deps {
			if !seen[d.ArgumentID] {
				seen[d.ArgumentID] = true
				out = append(out, d.ArgumentID)
			}
		}
	}
	return out, nil
}

// cascade recomputes effective confidence for each argument in its own
// savepoint. Failures are logged and skipped.
func (e *PropagationEngine) cascade(ctx context.Context, argumentIDs []uuid.UUID, reason, interactionID string) []uuid.UUID {
	var recomputed []uuid.UUID
	seen := make(map[uuid.UUID]bool)
	for _, id := range argumentIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		var written bool
		err := e.tx.WithTx(ctx, func(ctx context.Context) error {
			var err error
			written, err = e.recomputeArgument(ctx, id, reason, interactionID)
			return err
		})
		if err != nil {
			e.logger.Warn("effective confidence recompute failed, skipping",
				zap.String("argument_id", id.String()), zap.Error(err))
			propagationFailures.WithLabelValues(string(domain.EntityArgument)).Inc()
			continue
		}
		if written {
			recomputed = append(recomputed, id)
		}
	}
	return recomputed
}

// recomputeArgument writes the argument's effective confidence from its
// dependency set. Arguments without dependencies keep a null value.
func (e *PropagationEngine) recomputeArgument(ctx context.Context, id uuid.UUID, reason, interactionID string) (bool, error) {
	links, err := e.deps.GetByArgument(ctx, id)
	if err != nil {
		return false, err
	}
	if len(links) == 0 {
		return false, nil
	}
	arg, err := e.arguments.GetByID(ctx, id)
	if err != nil {
		return false, notFound(err)
	}

	next := EffectiveConfidence(arg.Confidence, links)
	old := arg.Confidence
	if arg.EffectiveConfidence != nil {
		old = *arg.EffectiveConfidence
		if old == next {
			return false, nil
		}
	}

	if err := e.arguments.SetEffectiveConfidence(ctx, id, next); err != nil {
		return false, err
	}
	if err := e.audit.Append(ctx, &domain.ConfidenceAuditEntry{
		EntityType:    domain.EntityArgument,
		EntityID:      id,
		Field:         domain.FieldEffectiveConfidence,
		OldConfidence: old,
		NewConfidence: next,
		Reason:        "dependency:" + reason,
		InteractionID: optionalString(interactionID),
	}); err != nil {
		return false, err
	}
	confidenceMutations.WithLabelValues(string(domain.EntityArgument), mutationCascade).Inc()

	e.logger.Debug("effective confidence recomputed",
		zap.String("argument_id", id.String()),
		zap.Int("dependencies", len(links)),
		zap.Float64("old_effective_confidence", old),
		zap.Float64("new_effective_confidence", next))

	return true, nil
}

// replay returns the recorded outcome of an earlier mutation on the same
// entity with the same interaction id, or nil if there was none.
func (e *PropagationEngine) replay(ctx context.Context, m mutation) (*MutationResult, error) {
	entries, err := e.audit.ListByInteraction(ctx, m.interactionID)
	if err != nil {
		return nil, err
	}

	var result *MutationResult
	for _, entry := range entries {
		if entry.IsDirect() && entry.EntityType == m.kind && entry.EntityID == m.id {
			result = &MutationResult{
				EntityType:    m.kind,
				ID:            m.id,
				OldConfidence: entry.OldConfidence,
				NewConfidence: entry.NewConfidence,
				Replayed:      true,
			}
			break
		}
	}
	if result == nil {
		return nil, nil
	}

	for _, entry := range entries {
		switch {
		case entry.PropagatedFrom != nil && *entry.PropagatedFrom == m.id:
			result.PropagatedTo = append(result.PropagatedTo, entry.EntityID)
		case entry.Field == domain.FieldEffectiveConfidence:
			result.Recomputed = append(result.Recomputed, entry.EntityID)
		}
	}

	e.logger.Debug("replaying recorded mutation",
		zap.String("entity_id", m.id.String()),
		zap.String("interaction_id", m.interactionID))

	return result, nil
}

func (e *PropagationEngine) load(ctx context.Context, kind domain.EntityType, id uuid.UUID) (float64, []float32, error) {
	switch kind {
	case domain.EntityArgument:
		a, err := e.arguments.GetByID(ctx, id)
		if err != nil {
			return 0, nil, err
		}
		return a.Confidence, a.Embedding, nil
	case domain.EntityFactClaim:
		f, err := e.facts.GetByID(ctx, id)
		if err != nil {
			return 0, nil, err
		}
		return f.Confidence, f.Embedding, nil
	default:
		return 0, nil, ErrInvalidEntityType
	}
}

func (e *PropagationEngine) write(ctx context.Context, kind domain.EntityType, id uuid.UUID, old, next float64, reason string) error {
	change := domain.ConfidenceChange{Old: old, New: next, Reason: reason, Timestamp: time.Now().UTC()}
	if kind == domain.EntityFactClaim {
		return e.facts.UpdateConfidence(ctx, id, change)
	}
	return e.arguments.UpdateConfidence(ctx, id, change)
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
