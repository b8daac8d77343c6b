package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/kitbuilder587/negotiation-bridge/internal/domain"
)

type MockSessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]domain.SessionRecord
	traces   map[string][]domain.TraceEntry
}

func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{
		sessions: make(map[string]domain.SessionRecord),
		traces:   make(map[string][]domain.TraceEntry),
	}
}

func (m *MockSessionRepository) Save(ctx context.Context, rec *domain.SessionRecord, trace []domain.TraceEntry) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[rec.ID]; exists {
		return domain.ErrDuplicateSession
	}
	m.sessions[rec.ID] = *rec
	m.traces[rec.ID] = append([]domain.TraceEntry(nil), trace...)
	return nil
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id string) (*domain.SessionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, exists := m.sessions[id]
	if !exists {
		return nil, domain.ErrSessionNotFound
	}
	return &rec, nil
}

func (m *MockSessionRepository) ListRecent(ctx context.Context, limit int) ([]domain.SessionRecord, error) {
	return m.list(limit, func(domain.SessionRecord) bool { return true }), nil
}

func (m *MockSessionRepository) ListByScenario(ctx context.Context, scenario string, limit int) ([]domain.SessionRecord, error) {
	return m.list(limit, func(r domain.SessionRecord) bool { return r.Scenario == scenario }), nil
}

func (m *MockSessionRepository) Trace(ctx context.Context, sessionID string) ([]domain.TraceEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, exists := m.sessions[sessionID]; !exists {
		return nil, domain.ErrSessionNotFound
	}
	return append([]domain.TraceEntry(nil), m.traces[sessionID]...), nil
}

func (m *MockSessionRepository) CountByStatus(ctx context.Context) (map[domain.SessionStatus]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[domain.SessionStatus]int)
	for _, rec := range m.sessions {
		counts[rec.Status]++
	}
	return counts, nil
}

// list - новые сначала, как ORDER BY created_at DESC
func (m *MockSessionRepository) list(limit int, keep func(domain.SessionRecord) bool) []domain.SessionRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.SessionRecord
	for _, rec := range m.sessions {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
