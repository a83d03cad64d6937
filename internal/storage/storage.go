package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/styleshift/internal/metrics"
	"github.com/lehigh-university-libraries/styleshift/internal/session"
)

// Factory builds the machine for a new session id
type Factory func(id string) *session.Machine

type SessionStore struct {
	sessions map[string]*session.Machine
	mu       sync.RWMutex
	factory  Factory
}

func New(factory Factory) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*session.Machine),
		factory:  factory,
	}
}

// Create adds a new session keyed by a random uuid
func (s *SessionStore) Create() *session.Machine {
	m := s.factory(uuid.NewString())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[m.ID()] = m
	metrics.SessionsActive.Set(float64(len(s.sessions)))
	return m
}

func (s *SessionStore) Get(sessionID string) (*session.Machine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, exists := s.sessions[sessionID]
	return m, exists
}

// All returns the live sessions, oldest first
func (s *SessionStore) All() []*session.Machine {
	s.mu.RLock()
	result := make([]*session.Machine, 0, len(s.sessions))
	for _, m := range s.sessions {
		result = append(result, m)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt().Before(result[j].CreatedAt())
	})
	return result
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Delete removes the session and closes it, releasing its camera
func (s *SessionStore) Delete(sessionID string) bool {
	s.mu.Lock()
	m, exists := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	metrics.SessionsActive.Set(float64(len(s.sessions)))
	s.mu.Unlock()

	if exists {
		m.Close()
	}
	return exists
}

// Sweep closes sessions that have not changed for longer than ttl and
// returns how many were removed.
func (s *SessionStore) Sweep(now time.Time, ttl time.Duration) int {
	var expired []*session.Machine

	s.mu.Lock()
	for id, m := range s.sessions {
		if now.Sub(m.UpdatedAt()) > ttl {
			expired = append(expired, m)
			delete(s.sessions, id)
		}
	}
	metrics.SessionsActive.Set(float64(len(s.sessions)))
	s.mu.Unlock()

	for _, m := range expired {
		m.Close()
	}
	return len(expired)
}

// Close closes every session
func (s *SessionStore) Close() {
	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[string]*session.Machine)
	metrics.SessionsActive.Set(0)
	s.mu.Unlock()

	for _, m := range all {
		m.Close()
	}
}
