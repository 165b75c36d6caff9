package session

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const DefaultIdleTTL = 30 * time.Minute

// Languages the chat surface offers.
var Languages = []string{"en", "te", "hi"}

// ActiveRecorder observes the number of live sessions.
type ActiveRecorder interface {
	SetActiveSessions(n int)
}

type Option func(*Registry)

func WithIdleTTL(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.idleTTL = d
		}
	}
}

func WithHistoryWindow(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.window = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

func WithActiveRecorder(rec ActiveRecorder) Option {
	return func(r *Registry) {
		r.recorder = rec
	}
}

// Registry owns session creation, lookup, idle expiry and disposal.
// Expiry is lazy: idle sessions are swept when the registry is accessed.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	idleTTL  time.Duration
	window   int
	now      func() time.Time
	recorder ActiveRecorder
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		sessions: make(map[string]*Session),
		idleTTL:  DefaultIdleTTL,
		window:   DefaultHistoryWindow,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create opens a session in language; an empty language means "en".
func (r *Registry) Create(language string) (*Session, error) {
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		language = "en"
	}
	if !supported(language) {
		return nil, ErrUnknownLanguage
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	s := newSession(uuid.NewString(), language, r.window, r.now)
	r.sessions[s.id] = s
	r.reportLocked()
	return s, nil
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	s, ok := r.sessions[strings.TrimSpace(id)]
	if !ok {
		return nil, ErrNotFound
	}
	s.touch()
	return s, nil
}

// Dispose closes and forgets the session. Late results for it are dropped.
func (r *Registry) Dispose(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[strings.TrimSpace(id)]
	if !ok {
		return ErrNotFound
	}
	s.Close()
	delete(r.sessions, s.id)
	r.reportLocked()
	return nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) sweepLocked() {
	now := r.now()
	removed := false
	for id, s := range r.sessions {
		if s.expired(r.idleTTL, now) {
			s.Close()
			delete(r.sessions, id)
			removed = true
		}
	}
	if removed {
		r.reportLocked()
	}
}

func (r *Registry) reportLocked() {
	if r.recorder != nil {
		r.recorder.SetActiveSessions(len(r.sessions))
	}
}

func supported(language string) bool {
	return slices.Contains(Languages, language)
}
