package lobby

import (
	"sync"

	"github.com/JJ-Intelligence/slide-tac-toe/pkg/game"
	"github.com/JJ-Intelligence/slide-tac-toe/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionStore stores Session IDs mapped to Sessions
type SessionStore struct {
	log *zap.Logger

	// We're using a sync.Map which is optimised for few writes but lots of reads
	store sync.Map

	// newID generates session IDs, replaced in tests
	newID func() string
}

func NewSessionStore(log *zap.Logger) *SessionStore {
	return &SessionStore{log: log, newID: NewSessionID}
}

// NewSessionID returns the first 8 characters of a random UUID.
func NewSessionID() string {
	return uuid.NewString()[:8]
}

// Create makes a new session under a fresh ID.
func (s *SessionStore) Create() *game.Session {
	for {
		session := game.NewSession(s.newID(), s.log)
		if _, loaded := s.store.LoadOrStore(session.ID, session); !loaded {
			s.created(session)
			return session
		}
	}
}

// GetOrCreate returns the session stored under id, creating it if needed.
func (s *SessionStore) GetOrCreate(id string) (*game.Session, bool) {
	if session, ok := s.Get(id); ok {
		return session, false
	}
	value, loaded := s.store.LoadOrStore(id, game.NewSession(id, s.log))
	session := value.(*game.Session)
	if !loaded {
		s.created(session)
	}
	return session, !loaded
}

func (s *SessionStore) Get(id string) (*game.Session, bool) {
	if value, ok := s.store.Load(id); ok {
		return value.(*game.Session), true
	}
	return nil, false
}

// Delete discards a session. Finished sessions are kept until deleted.
func (s *SessionStore) Delete(id string) bool {
	value, ok := s.store.LoadAndDelete(id)
	if ok {
		s.log.Info("Session removed",
			zap.String("game_id", id),
			zap.Stringer("status", value.(*game.Session).Status()))
	}
	return ok
}

// SessionsWith returns every session playerID has joined.
func (s *SessionStore) SessionsWith(playerID string) []*game.Session {
	var sessions []*game.Session
	s.store.Range(func(_, value interface{}) bool {
		session := value.(*game.Session)
		if session.Has(playerID) {
			sessions = append(sessions, session)
		}
		return true
	})
	return sessions
}

func (s *SessionStore) Len() int {
	n := 0
	s.store.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

func (s *SessionStore) created(session *game.Session) {
	metrics.SessionsCreated.Inc()
	s.log.Info("Session created", zap.String("game_id", session.ID))
}
