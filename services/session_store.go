package services

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github/itish2003/notehub/querycache"
)

// Session is the state one browser keeps between requests: its query
// cache, its pending toasts and its create form.
type Session struct {
	ID      string
	Cache   *querycache.Client
	Toaster *Toaster
	Form    *NoteForm

	lastSeen time.Time
}

// SessionStore maps session ids to sessions. Sessions idle for longer than
// the TTL are dropped by Sweep.
type SessionStore struct {
	mu            sync.Mutex
	sessions      map[string]*Session
	api           NotesAPI
	ttl           time.Duration
	toastDuration time.Duration
	cacheOpts     []querycache.Option
	now           func() time.Time
	logger        *slog.Logger
}

// NewSessionStore creates an empty store whose sessions talk to api. Each
// session cache is built with cacheOpts.
func NewSessionStore(api NotesAPI, ttl, toastDuration time.Duration, logger *slog.Logger, cacheOpts ...querycache.Option) *SessionStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SessionStore{
		sessions:      make(map[string]*Session),
		api:           api,
		ttl:           ttl,
		toastDuration: toastDuration,
		cacheOpts:     cacheOpts,
		now:           time.Now,
		logger:        logger.With("component", "sessions"),
	}
}

// Get returns the session for id. An empty, unknown or expired id gets a
// new session with a fresh id; created reports that case.
func (s *SessionStore) Get(id string) (session *Session, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if id != "" {
		if sess, ok := s.sessions[id]; ok && !s.expired(sess, now) {
			sess.lastSeen = now
			return sess, false
		}
	}

	// If no session id was provided OR the session was not found (e.g.
	// server restarted or it expired), start a new one.
	sess := s.newSession(uuid.New().String())
	sess.lastSeen = now
	s.sessions[sess.ID] = sess
	s.logger.Debug("started session", "session", sess.ID)
	return sess, true
}

// Sweep drops expired sessions and returns how many were removed.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, id)
			n++
		}
	}
	if n > 0 {
		s.logger.Debug("swept sessions", "count", n)
	}
	return n
}

// Len returns the number of sessions held.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *SessionStore) expired(sess *Session, now time.Time) bool {
	return s.ttl > 0 && now.Sub(sess.lastSeen) > s.ttl
}

func (s *SessionStore) newSession(id string) *Session {
	logger := s.logger.With("session", id)
	opts := append([]querycache.Option{querycache.WithLogger(logger)}, s.cacheOpts...)
	cache := querycache.New(opts...)
	toaster := NewToaster(s.toastDuration)
	return &Session{
		ID:      id,
		Cache:   cache,
		Toaster: toaster,
		// The web modal closes by redirect, so the form has no close hook.
		Form: NewNoteForm(s.api, cache, toaster, nil, logger),
	}
}
