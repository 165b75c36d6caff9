// Package session holds per-conversation state: the message list, the
// bounded history replayed into prompts, the turn state machine and the
// voice recording flag.
package session

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"scholarship-agent/internal/domain"
)

const DefaultHistoryWindow = 10

var (
	ErrBusy             = errors.New("session: a request is already in flight")
	ErrClosed           = errors.New("session: closed")
	ErrStale            = errors.New("session: result belongs to an earlier turn")
	ErrAlreadyRecording = errors.New("session: recording already active")
	ErrNotFound         = errors.New("session: not found")
	ErrUnknownLanguage  = errors.New("session: unsupported language")
)

// State is the turn state of a session.
type State int

const (
	Idle State = iota
	AwaitingResponse
)

func (s State) String() string {
	if s == AwaitingResponse {
		return "awaiting_response"
	}
	return "idle"
}

// Ticket identifies the turn a pending result belongs to.
type Ticket uint64

// Reply is the outcome of a turn, stamped into a ChatMessage by Resolve.
type Reply struct {
	Type         domain.MessageType
	Text         string
	Sources      []domain.GroundingSource
	FunctionCall *domain.SearchRequest
	// Remember adds the text to the prompt history as an assistant turn.
	Remember bool
}

type Session struct {
	mu sync.Mutex

	id         string
	language   string
	createdAt  time.Time
	lastActive time.Time
	now        func() time.Time

	messages []domain.ChatMessage
	history  []domain.ConversationTurn
	window   int

	state      State
	generation Ticket

	// pending is the user message of the open turn and priorHistory the
	// history before it, kept so Abort can withdraw the turn.
	pending      string
	priorHistory []domain.ConversationTurn
	closed       bool
	recording    bool
	banner       string
}

func newSession(id, language string, window int, now func() time.Time) *Session {
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	t := now()
	return &Session{
		id:         id,
		language:   language,
		createdAt:  t,
		lastActive: t,
		now:        now,
		window:     window,
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Language() string { return s.language }

func (s *Session) CreatedAt() time.Time { return s.createdAt }

func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Begin accepts a user utterance: it appends the user message and history
// turn and moves the session to AwaitingResponse. A session already awaiting
// a response, or closed, is left untouched.
func (s *Session) Begin(text string) (Ticket, domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, domain.ChatMessage{}, ErrClosed
	}
	if s.state == AwaitingResponse {
		return 0, domain.ChatMessage{}, ErrBusy
	}
	msg := s.stamp(domain.ChatMessage{Type: domain.MessageUser, Text: text})
	s.messages = append(s.messages, msg)
	s.priorHistory = slices.Clone(s.history)
	s.pending = msg.ID
	s.remember(domain.ConversationTurn{Role: domain.RoleUser, Content: text})
	s.generation++
	s.state = AwaitingResponse
	return s.generation, msg, nil
}

// Resolve completes the turn identified by t. Results for a closed session
// or an earlier turn are discarded.
func (s *Session) Resolve(t Ticket, r Reply) (domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ChatMessage{}, ErrClosed
	}
	if t != s.generation || s.state != AwaitingResponse {
		return domain.ChatMessage{}, ErrStale
	}
	msg := s.stamp(domain.ChatMessage{
		Type:         r.Type,
		Text:         r.Text,
		Sources:      slices.Clone(r.Sources),
		FunctionCall: r.FunctionCall,
	})
	s.messages = append(s.messages, msg)
	if r.Remember {
		s.remember(domain.ConversationTurn{Role: domain.RoleAssistant, Content: r.Text})
	}
	s.state = Idle
	s.pending, s.priorHistory = "", nil
	return msg, nil
}

// Abort withdraws the open turn t: the user message and history turn added
// by Begin are removed and the session returns to Idle. Other tickets are
// ignored.
func (s *Session) Abort(t Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t != s.generation || s.state != AwaitingResponse {
		return
	}
	if n := len(s.messages); n > 0 && s.messages[n-1].ID == s.pending {
		s.messages = s.messages[:n-1]
	}
	s.history = s.priorHistory
	s.pending, s.priorHistory = "", nil
	s.state = Idle
}

// Post appends a message outside of a turn, such as the welcome message.
func (s *Session) Post(typ domain.MessageType, text string) (domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ChatMessage{}, ErrClosed
	}
	msg := s.stamp(domain.ChatMessage{Type: typ, Text: text})
	s.messages = append(s.messages, msg)
	return msg, nil
}

// Close tears the session down. Any in-flight result becomes stale.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.generation++
	s.state = Idle
	s.recording = false
}

func (s *Session) Messages() []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages)
}

// History returns the prompt history window, oldest first.
func (s *Session) History() []domain.ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.history)
}

func (s *Session) StartRecording() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.recording {
		return ErrAlreadyRecording
	}
	s.recording = true
	s.lastActive = s.now()
	return nil
}

// StopRecording reports whether a recording was active.
func (s *Session) StopRecording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	was := s.recording
	s.recording = false
	return was
}

// ToggleRecording flips the recording flag and returns the new value.
func (s *Session) ToggleRecording() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}
	s.recording = !s.recording
	s.lastActive = s.now()
	return s.recording, nil
}

func (s *Session) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording
}

func (s *Session) Banner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.banner
}

func (s *Session) SetBanner(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.banner = text
}

func (s *Session) DismissBanner() {
	s.SetBanner("")
}

func (s *Session) touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = s.now()
}

// expired reports whether the session has been idle for longer than ttl.
// Sessions with a turn in flight never expire.
func (s *Session) expired(ttl time.Duration, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == Idle && now.Sub(s.lastActive) > ttl
}

// caller holds s.mu
func (s *Session) stamp(m domain.ChatMessage) domain.ChatMessage {
	t := s.now()
	s.lastActive = t
	m.ID = uuid.NewString()
	m.Timestamp = t.UTC().Format(time.RFC3339)
	return m
}

// caller holds s.mu
func (s *Session) remember(turn domain.ConversationTurn) {
	s.history = append(s.history, turn)
	if over := len(s.history) - s.window; over > 0 {
		s.history = slices.Delete(s.history, 0, over)
	}
}
