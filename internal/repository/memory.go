package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/GEJFY/keiba-data-analytics-sub000/internal/models"
)

// MemoryStore is an in-process Store. Used in tests and for dry runs that
// should not touch a database.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.SearchSession
	trials   map[string][]*models.TrialResult // session id -> append order
	trialIDs map[string]bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*models.SearchSession),
		trials:   make(map[string][]*models.TrialResult),
		trialIDs: make(map[string]bool),
	}
}

// CreateSession registers a new session. A duplicate session id is an error.
func (s *MemoryStore) CreateSession(_ context.Context, session *models.SearchSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; ok {
		return models.ErrSessionExists
	}
	copied := *session
	s.sessions[session.ID] = &copied
	return nil
}

// GetSession returns the session or ErrNotFound.
func (s *MemoryStore) GetSession(_ context.Context, sessionID string) (*models.SearchSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *session
	return &copied, nil
}

// UpdateSession overwrites an existing session's mutable fields.
func (s *MemoryStore) UpdateSession(_ context.Context, session *models.SearchSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; !ok {
		return models.ErrNotFound
	}
	copied := *session
	s.sessions[session.ID] = &copied
	return nil
}

// ListSessions returns all sessions, most recently started first.
func (s *MemoryStore) ListSessions(_ context.Context) ([]*models.SearchSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.SearchSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		copied := *session
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

// SaveTrial appends a trial result to its session.
func (s *MemoryStore) SaveTrial(_ context.Context, sessionID string, result *models.TrialResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.trialIDs[result.Config.TrialID] {
		return models.ErrDuplicateKey
	}
	copied := *result
	s.trials[sessionID] = append(s.trials[sessionID], &copied)
	s.trialIDs[result.Config.TrialID] = true
	return nil
}

// GetTrials returns a session's trials in append order.
func (s *MemoryStore) GetTrials(_ context.Context, sessionID string) ([]*models.TrialResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	trials := s.trials[sessionID]
	out := make([]*models.TrialResult, len(trials))
	for i, t := range trials {
		copied := *t
		out[i] = &copied
	}
	return out, nil
}

// CompletedCount returns the number of persisted trials for the session,
// failed trials included.
func (s *MemoryStore) CompletedCount(_ context.Context, sessionID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.trials[sessionID]), nil
}

// TopTrials returns the highest-scoring non-failed trials.
func (s *MemoryStore) TopTrials(_ context.Context, sessionID string, limit int) ([]*models.TrialResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ranked := make([]*models.TrialResult, 0, len(s.trials[sessionID]))
	for _, t := range s.trials[sessionID] {
		if t.Failed() {
			continue
		}
		copied := *t
		ranked = append(ranked, &copied)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].CompositeScore > ranked[j].CompositeScore
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// MedianScore returns the median composite score over non-failed trials,
// zero when there are none.
func (s *MemoryStore) MedianScore(_ context.Context, sessionID string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	scores := make([]float64, 0, len(s.trials[sessionID]))
	for _, t := range s.trials[sessionID] {
		if !t.Failed() {
			scores = append(scores, t.CompositeScore)
		}
	}
	if len(scores) == 0 {
		return 0, nil
	}
	sort.Float64s(scores)
	mid := len(scores) / 2
	if len(scores)%2 == 1 {
		return scores[mid], nil
	}
	return (scores[mid-1] + scores[mid]) / 2, nil
}
