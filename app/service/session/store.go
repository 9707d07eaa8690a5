package session

import (
	"sync"
	"time"

	"runcoach/app/config"

	"github.com/google/uuid"
	"github.com/samber/do"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type sessionData struct {
	mu           sync.Mutex
	turns        []Turn
	lastActivity time.Time
}

// Store keeps per-session conversation history in process memory. Sessions
// idle past the TTL are evicted lazily whenever any session operation runs;
// there is no background sweep, so restart loses all history.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*sessionData
	ttl      time.Duration
	now      func() time.Time
}

func New(di *do.Injector) (*Store, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewStore(cfg.Session.TTL(), time.Now), nil
}

// NewStore builds a store with an injected clock, which tests use to step
// past the expiry window.
func NewStore(ttl time.Duration, now func() time.Time) *Store {
	return &Store{
		sessions: make(map[string]*sessionData),
		ttl:      ttl,
		now:      now,
	}
}

// GetOrCreate returns the session id and a copy of its history. An empty id
// allocates a fresh one; an unknown or expired id gets empty history. An
// expired client-supplied id is reused rather than reissued, so clients
// never see id churn.
func (s *Store) GetOrCreate(id string) (string, []Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()

	if id == "" {
		id = uuid.NewString()
	}

	data, ok := s.sessions[id]
	if !ok {
		data = &sessionData{lastActivity: s.now()}
		s.sessions[id] = data
	}

	data.mu.Lock()
	defer data.mu.Unlock()

	data.lastActivity = s.now()

	history := make([]Turn, len(data.turns))
	copy(history, data.turns)

	return id, history
}

// Append adds turns to the session's history. Appends for the same id are
// serialized by the per-session lock.
func (s *Store) Append(id string, turns ...Turn) {
	s.mu.Lock()
	s.sweepLocked()

	data, ok := s.sessions[id]
	if !ok {
		data = &sessionData{lastActivity: s.now()}
		s.sessions[id] = data
	}
	s.mu.Unlock()

	data.mu.Lock()
	defer data.mu.Unlock()

	data.turns = append(data.turns, turns...)
	data.lastActivity = s.now()
}

// Reset clears a session's history but keeps the id valid. Returns false
// for ids the store has never seen or has already evicted.
func (s *Store) Reset(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()

	data, ok := s.sessions[id]
	if !ok {
		return false
	}

	data.mu.Lock()
	defer data.mu.Unlock()

	data.turns = nil
	data.lastActivity = s.now()

	return true
}

func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()

	return len(s.sessions)
}

func (s *Store) sweepLocked() {
	cutoff := s.now().Add(-s.ttl)

	for id, data := range s.sessions {
		if data.lastActivity.Before(cutoff) {
			delete(s.sessions, id)
		}
	}
}
