package service

import (
	"context"
	"math"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/Harshitk-cp/epistemic/internal/domain"
	"github.com/Harshitk-cp/epistemic/internal/posts"
	"github.com/Harshitk-cp/epistemic/internal/similarity"
	"github.com/Harshitk-cp/epistemic/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// mockTx runs fn inline; it has no rollback.
type mockTx struct {
	calls int
}

func (m *mockTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

// clock hands out strictly increasing creation times.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// mockArgumentStore implements domain.ArgumentStore for testing.
type mockArgumentStore struct {
	mu         sync.Mutex
	clock      *clock
	args       map[uuid.UUID]*domain.Argument
	failUpdate map[uuid.UUID]error
}

func newMockArgumentStore(c *clock) *mockArgumentStore {
	return &mockArgumentStore{
		clock:      c,
		args:       make(map[uuid.UUID]*domain.Argument),
		failUpdate: make(map[uuid.UUID]error),
	}
}

func (m *mockArgumentStore) Create(ctx context.Context, a *domain.Argument) error {
	if len(a.Embedding) == 0 {
		return store.ErrEmbeddingMissing
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = m.clock.next()
	}
	a.UpdatedAt = a.CreatedAt
	cp := *a
	m.args[a.ID] = &cp
	return nil
}

func (m *mockArgumentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Argument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.args[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockArgumentStore) filter(keep func(*domain.Argument) bool) []domain.Argument {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Argument
	for _, a := range m.args {
		if keep(a) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (m *mockArgumentStore) GetByCluster(ctx context.Context, clusterID uuid.UUID) ([]domain.Argument, error) {
	return m.filter(func(a *domain.Argument) bool { return a.ClusterID != nil && *a.ClusterID == clusterID }), nil
}

func (m *mockArgumentStore) GetByPost(ctx context.Context, postID string) ([]domain.Argument, error) {
	return m.filter(func(a *domain.Argument) bool { return a.SourcePostID == postID }), nil
}

func (m *mockArgumentStore) TopByConfidence(ctx context.Context, limit int) ([]domain.Argument, error) {
	out := m.filter(func(*domain.Argument) bool { return true })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockArgumentStore) ListByConfidence(ctx context.Context, f domain.ConfidenceFilter) ([]domain.Argument, error) {
	return m.filter(func(a *domain.Argument) bool {
		return (f.Below == nil || a.Confidence < *f.Below) && (f.Above == nil || a.Confidence > *f.Above)
	}), nil
}

func (m *mockArgumentStore) UpdateConfidence(ctx context.Context, id uuid.UUID, change domain.ConfidenceChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failUpdate[id]; err != nil {
		return err
	}
	a, ok := m.args[id]
	if !ok {
		return store.ErrNotFound
	}
	a.Confidence = change.New
	a.ConfidenceHistory = append(a.ConfidenceHistory, change)
	return nil
}

func (m *mockArgumentStore) IncrementCounter(ctx context.Context, id uuid.UUID, counter domain.ArgumentCounter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.args[id]
	if !ok {
		return store.ErrNotFound
	}
	switch counter {
	case domain.CounterSupport:
		a.SupportCount++
	case domain.CounterRefute:
		a.RefuteCount++
	case domain.CounterCitation:
		a.CitationCount++
	}
	return nil
}

func (m *mockArgumentStore) SetCluster(ctx context.Context, id uuid.UUID, clusterID uuid.UUID, isHead bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.args[id]
	if !ok {
		return store.ErrNotFound
	}
	cid := clusterID
	a.ClusterID = &cid
	a.IsClusterHead = isHead
	return nil
}

func (m *mockArgumentStore) SetEffectiveConfidence(ctx context.Context, id uuid.UUID, value float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.args[id]
	if !ok {
		return store.ErrNotFound
	}
	v := value
	a.EffectiveConfidence = &v
	return nil
}

func (m *mockArgumentStore) ListEmbeddings(ctx context.Context) ([]domain.IndexedVector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.IndexedVector
	for _, a := range m.args {
		out = append(out, domain.IndexedVector{ID: a.ID, Vector: a.Embedding, CreatedAt: a.CreatedAt})
	}
	return out, nil
}

// mockFactStore implements domain.FactStore for testing.
type mockFactStore struct {
	mu         sync.Mutex
	clock      *clock
	facts      map[uuid.UUID]*domain.FactClaim
	failUpdate map[uuid.UUID]error
}

func newMockFactStore(c *clock) *mockFactStore {
	return &mockFactStore{
		clock:      c,
		facts:      make(map[uuid.UUID]*domain.FactClaim),
		failUpdate: make(map[uuid.UUID]error),
	}
}

func (m *mockFactStore) Create(ctx context.Context, f *domain.FactClaim) error {
	if len(f.Embedding) == 0 {
		return store.ErrEmbeddingMissing
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = m.clock.next()
	}
	cp := *f
	m.facts[f.ID] = &cp
	return nil
}

func (m *mockFactStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.FactClaim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.facts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (m *mockFactStore) confidence(id uuid.UUID) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.facts[id].Confidence
}

func (m *mockFactStore) all() []domain.FactClaim {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.FactClaim
	for _, f := range m.facts {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out
}

func (m *mockFactStore) GetByPost(ctx context.Context, postID string) ([]domain.FactClaim, error) {
	var out []domain.FactClaim
	for _, f := range m.all() {
		if f.SourcePostID != nil && *f.SourcePostID == postID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *mockFactStore) TopByConfidence(ctx context.Context, limit int) ([]domain.FactClaim, error) {
	out := m.all()
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockFactStore) ListByConfidence(ctx context.Context, f domain.ConfidenceFilter) ([]domain.FactClaim, error) {
	var out []domain.FactClaim
	for _, fc := range m.all() {
		if (f.Below == nil || fc.Confidence < *f.Below) && (f.Above == nil || fc.Confidence > *f.Above) {
			out = append(out, fc)
		}
	}
	return out, nil
}

func (m *mockFactStore) UpdateConfidence(ctx context.Context, id uuid.UUID, change domain.ConfidenceChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failUpdate[id]; err != nil {
		return err
	}
	f, ok := m.facts[id]
	if !ok {
		return store.ErrNotFound
	}
	f.Confidence = change.New
	f.ConfidenceHistory = append(f.ConfidenceHistory, change)
	return nil
}

func (m *mockFactStore) IncrementCounter(ctx context.Context, id uuid.UUID, counter domain.FactCounter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.facts[id]
	if !ok {
		return store.ErrNotFound
	}
	switch counter {
	case domain.FactCounterCitation:
		f.CitationCount++
	case domain.FactCounterChallenge:
		f.ChallengeCount++
	}
	return nil
}

func (m *mockFactStore) ListEmbeddings(ctx context.Context) ([]domain.IndexedVector, error) {
	var out []domain.IndexedVector
	for _, f := range m.all() {
		out = append(out, domain.IndexedVector{ID: f.ID, Vector: f.Embedding, CreatedAt: f.CreatedAt})
	}
	return out, nil
}

// mockDependencyStore implements domain.DependencyStore for testing.
type mockDependencyStore struct {
	mu    sync.Mutex
	facts *mockFactStore
	deps  []domain.ArgumentFactDependency
}

func (m *mockDependencyStore) Create(ctx context.Context, d *domain.ArgumentFactDependency) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.deps {
		if existing.ArgumentID == d.ArgumentID && existing.FactClaimID == d.FactClaimID {
			return store.ErrConflict
		}
	}
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	m.deps = append(m.deps, *d)
	return nil
}

func (m *mockDependencyStore) GetByArgument(ctx context.Context, argumentID uuid.UUID) ([]domain.DependencyLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var links []domain.DependencyLink
	for _, d := range m.deps {
		if d.ArgumentID == argumentID {
			links = append(links, domain.DependencyLink{ArgumentFactDependency: d, FactConfidence: m.facts.confidence(d.FactClaimID)})
		}
	}
	return links, nil
}

func (m *mockDependencyStore) GetByFact(ctx context.Context, factID uuid.UUID) ([]domain.ArgumentFactDependency, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ArgumentFactDependency
	for _, d := range m.deps {
		if d.FactClaimID == factID {
			out = append(out, d)
		}
	}
	return out, nil
}

// mockAuditStore implements domain.AuditStore for testing. Like the partial
// unique index, it allows one direct entry per entity and interaction id.
type mockAuditStore struct {
	mu      sync.Mutex
	entries []domain.ConfidenceAuditEntry
	// staleLookups makes that many ListByInteraction calls see nothing, as a
	// request racing a not yet committed twin would.
	staleLookups int
}

func (m *mockAuditStore) Append(ctx context.Context, e *domain.ConfidenceAuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.Field == "" {
		e.Field = domain.FieldConfidence
	}
	if e.InteractionID != nil && e.IsDirect() {
		for i := range m.entries {
			prior := &m.entries[i]
			if prior.IsDirect() && prior.EntityType == e.EntityType && prior.EntityID == e.EntityID &&
				prior.InteractionID != nil && *prior.InteractionID == *e.InteractionID {
				return store.ErrConflict
			}
		}
	}
	e.ID = uuid.New()
	e.Timestamp = time.Now()
	m.entries = append(m.entries, *e)
	return nil
}

func (m *mockAuditStore) ListByEntity(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID, limit int) ([]domain.ConfidenceAuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ConfidenceAuditEntry
	for _, e := range m.entries {
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockAuditStore) ListByInteraction(ctx context.Context, interactionID string) ([]domain.ConfidenceAuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.staleLookups > 0 {
		m.staleLookups--
		return nil, nil
	}
	var out []domain.ConfidenceAuditEntry
	for _, e := range m.entries {
		if e.InteractionID != nil && *e.InteractionID == interactionID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockAuditStore) all() []domain.ConfidenceAuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ConfidenceAuditEntry(nil), m.entries...)
}

// mockNoteStore implements domain.NoteStore for testing.
type mockNoteStore struct {
	mu    sync.Mutex
	notes map[uuid.UUID]*domain.CommunityNote
}

func newMockNoteStore() *mockNoteStore {
	return &mockNoteStore{notes: make(map[uuid.UUID]*domain.CommunityNote)}
}

func (m *mockNoteStore) Create(ctx context.Context, n *domain.CommunityNote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = uuid.New()
	n.CreatedAt = time.Now()
	cp := *n
	m.notes[n.ID] = &cp
	return nil
}

func (m *mockNoteStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.CommunityNote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notes[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (m *mockNoteStore) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.CommunityNote, error) {
	return m.GetByID(ctx, id)
}

func (m *mockNoteStore) list(keep func(*domain.CommunityNote) bool) []domain.CommunityNote {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.CommunityNote
	for _, n := range m.notes {
		if keep(n) {
			out = append(out, *n)
		}
	}
	return out
}

func (m *mockNoteStore) GetByPost(ctx context.Context, postID string) ([]domain.CommunityNote, error) {
	return m.list(func(n *domain.CommunityNote) bool { return n.PostID != nil && *n.PostID == postID }), nil
}

func (m *mockNoteStore) GetByFact(ctx context.Context, factID uuid.UUID) ([]domain.CommunityNote, error) {
	return m.list(func(n *domain.CommunityNote) bool { return n.FactClaimID != nil && *n.FactClaimID == factID }), nil
}

func (m *mockNoteStore) ListPendingAppeals(ctx context.Context, limit int) ([]domain.CommunityNote, error) {
	return m.list(func(n *domain.CommunityNote) bool { return n.AppealPending() }), nil
}

func (m *mockNoteStore) UpdateScores(ctx context.Context, id uuid.UUID, s domain.NoteScores) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notes[id]
	if !ok {
		return store.ErrNotFound
	}
	applyScores(n, s)
	return nil
}

func (m *mockNoteStore) MarkAppealed(ctx context.Context, id uuid.UUID, reason *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notes[id]
	if !ok || !n.IsDisplayed || n.IsAppealed {
		return store.ErrConflict
	}
	n.IsAppealed = true
	n.AppealReason = reason
	n.Status = domain.NoteStatusAppealed
	return nil
}

func (m *mockNoteStore) ResolveAppeal(ctx context.Context, id uuid.UUID, outcome domain.AppealOutcome, isDisplayed bool, status domain.NoteStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notes[id]
	if !ok || !n.AppealPending() {
		return store.ErrConflict
	}
	o := outcome
	n.AppealResolved = true
	n.AppealOutcome = &o
	n.IsDisplayed = isDisplayed
	n.Status = status
	return nil
}

// mockVoteStore implements domain.VoteStore for testing. conflicts makes the
// next Replace calls fail as if another writer won the insert race.
type mockVoteStore struct {
	mu        sync.Mutex
	votes     map[uuid.UUID]map[string]domain.CommunityNoteVote
	conflicts int
}

func newMockVoteStore() *mockVoteStore {
	return &mockVoteStore{votes: make(map[uuid.UUID]map[string]domain.CommunityNoteVote)}
}

func (m *mockVoteStore) Replace(ctx context.Context, v *domain.CommunityNoteVote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflicts > 0 {
		m.conflicts--
		return store.ErrConflict
	}
	if m.votes[v.NoteID] == nil {
		m.votes[v.NoteID] = make(map[string]domain.CommunityNoteVote)
	}
	v.ID = uuid.New()
	v.CreatedAt = time.Now()
	m.votes[v.NoteID][v.VoterID] = *v
	return nil
}

func (m *mockVoteStore) ListByNote(ctx context.Context, noteID uuid.UUID) ([]domain.CommunityNoteVote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.CommunityNoteVote
	for _, v := range m.votes[noteID] {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VoterID < out[j].VoterID })
	return out, nil
}

type mockReputation struct {
	scores map[string]float64
	err    error
}

func (m *mockReputation) GetScore(ctx context.Context, userID string) (float64, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.scores[userID], nil
}

// fixture wires every service over the mocks and a real in-memory index.
type fixture struct {
	tx       *mockTx
	clock    *clock
	args     *mockArgumentStore
	facts    *mockFactStore
	deps     *mockDependencyStore
	audit    *mockAuditStore
	notes    *mockNoteStore
	votes    *mockVoteStore
	rep      *mockReputation
	index    *similarity.MemoryIndex
	clusters *ClusterManager
	engine   *PropagationEngine
	ledger   *LedgerService
	governor *NoteGovernor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()
	c := &clock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	f := &fixture{
		tx:    &mockTx{},
		clock: c,
		args:  newMockArgumentStore(c),
		facts: newMockFactStore(c),
		audit: &mockAuditStore{},
		notes: newMockNoteStore(),
		votes: newMockVoteStore(),
		rep:   &mockReputation{scores: map[string]float64{}},
		index: similarity.NewMemoryIndex(),
	}
	f.deps = &mockDependencyStore{facts: f.facts}
	f.clusters = NewClusterManager(f.tx, f.args, f.index, logger)
	f.engine = NewPropagationEngine(f.tx, f.args, f.facts, f.deps, f.audit, f.index, f.clusters, DefaultPropagationConfig(), logger)
	f.ledger = NewLedgerService(f.args, f.facts, f.index, nil, f.clusters, logger)
	authors := posts.NewStaticProvider(map[string]string{"post-1": "poster", "orphan": ""})
	f.governor = NewNoteGovernor(f.tx, f.notes, f.votes, f.facts, f.rep, authors, f.engine, DefaultNoteConfig(), logger)
	return f
}

// addArgument stores and indexes an argument without clustering it.
func (f *fixture) addArgument(t *testing.T, confidence float64, vector []float32) *domain.Argument {
	t.Helper()
	a := &domain.Argument{Content: "argument", Embedding: vector, Confidence: confidence}
	if err := f.args.Create(context.Background(), a); err != nil {
		t.Fatalf("create argument: %v", err)
	}
	f.index.Add(domain.EntityArgument, a.ID, a.Embedding, a.CreatedAt)
	return a
}

func (f *fixture) addFact(t *testing.T, confidence float64, vector []float32) *domain.FactClaim {
	t.Helper()
	fc := &domain.FactClaim{Claim: "fact", Embedding: vector, Confidence: confidence}
	if err := f.facts.Create(context.Background(), fc); err != nil {
		t.Fatalf("create fact: %v", err)
	}
	f.index.Add(domain.EntityFactClaim, fc.ID, fc.Embedding, fc.CreatedAt)
	return fc
}

func (f *fixture) argument(t *testing.T, id uuid.UUID) *domain.Argument {
	t.Helper()
	a, err := f.args.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get argument: %v", err)
	}
	return a
}

func (f *fixture) fact(t *testing.T, id uuid.UUID) *domain.FactClaim {
	t.Helper()
	fc, err := f.facts.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get fact: %v", err)
	}
	return fc
}

// angle returns the 2-D unit vector at deg degrees; the cosine between two
// such vectors is the cosine of the angle between them.
func angle(deg float64) []float32 {
	r := deg * math.Pi / 180
	return []float32{float32(math.Cos(r)), float32(math.Sin(r))}
}

func ptr[T any](v T) *T {
	return &v
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
