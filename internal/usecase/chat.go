package usecase

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"scholarship-agent/internal/domain"
	"scholarship-agent/internal/interpreter"
	"scholarship-agent/internal/logger"
	"scholarship-agent/internal/session"
)

const (
	defaultRemoteTimeout      = 15 * time.Second
	defaultFallbackLimit      = 5
	defaultMaxUtteranceLength = 1000
)

// Mode reports whether turns can reach the remote generator.
type Mode string

const (
	ModeRemote Mode = "remote"
	ModeLocal  Mode = "local"
)

// Answering strategies, used as log fields and metric labels.
const (
	strategyClarify  = "clarify"
	strategyRemote   = "remote"
	strategyTool     = "remote_tool"
	strategyLocal    = "local"
	strategyFallback = "fallback"
)

type GenerationRequest struct {
	SessionID string
	Prompt    string
	// Tools offers the search_scholarships tool to generators that support it.
	Tools bool
}

type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (domain.Generation, error)
}

type Catalog interface {
	Version() string
	ListAll() []domain.ScholarshipRecord
	SearchProfile(p domain.UserProfile) []domain.ScholarshipRecord
	SearchUtterance(utterance string) []domain.ScholarshipRecord
	Search(req domain.SearchRequest) []domain.ScholarshipRecord
}

type Recorder interface {
	ObserveTurn(strategy, outcome string)
	ObserveRemoteCall(result string, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveTurn(string, string)              {}
func (nopRecorder) ObserveRemoteCall(string, time.Duration) {}

type ChatOptions struct {
	RemoteTimeout      time.Duration
	FallbackLimit      int
	MaxUtteranceLength int
	// Warning is the configuration problem that disabled the remote path.
	// It becomes the banner of every new session.
	Warning string
	Logger  logger.Logger
	Metrics Recorder
}

// ChatService is the chat orchestrator. A nil Generator runs every session
// in local mode.
type ChatService struct {
	catalog  Catalog
	sessions *session.Registry
	gen      Generator
	log      logger.Logger
	metrics  Recorder

	remoteTimeout time.Duration
	fallbackLimit int
	maxUtterance  int
	warning       string
}

func NewChatService(c Catalog, sessions *session.Registry, gen Generator, opts ChatOptions) (*ChatService, error) {
	if c == nil {
		return nil, errors.New("usecase: catalog must not be nil")
	}
	if sessions == nil {
		return nil, errors.New("usecase: session registry must not be nil")
	}
	svc := &ChatService{
		catalog:       c,
		sessions:      sessions,
		gen:           gen,
		log:           opts.Logger,
		metrics:       opts.Metrics,
		remoteTimeout: opts.RemoteTimeout,
		fallbackLimit: opts.FallbackLimit,
		maxUtterance:  opts.MaxUtteranceLength,
		warning:       strings.TrimSpace(opts.Warning),
	}
	if svc.log == nil {
		svc.log = logger.NewNoOpLogger()
	}
	if svc.metrics == nil {
		svc.metrics = nopRecorder{}
	}
	if svc.remoteTimeout <= 0 {
		svc.remoteTimeout = defaultRemoteTimeout
	}
	if svc.fallbackLimit <= 0 {
		svc.fallbackLimit = defaultFallbackLimit
	}
	if svc.maxUtterance <= 0 {
		svc.maxUtterance = defaultMaxUtteranceLength
	}
	if svc.gen == nil && svc.warning != "" {
		svc.log.Warn("remote generation disabled, answering from the catalog only", map[string]interface{}{
			"warning":         svc.warning,
			"catalog_version": c.Version(),
		})
	}
	return svc, nil
}

func (c *ChatService) Mode() Mode {
	if c.gen == nil {
		return ModeLocal
	}
	return ModeRemote
}

// Warning returns the configuration warning shown to local-mode sessions.
func (c *ChatService) Warning() string {
	if c.gen != nil {
		return ""
	}
	return c.warning
}

func (c *ChatService) CatalogVersion() string {
	return c.catalog.Version()
}

// StartSession opens a session with its welcome message and, in local mode,
// the configuration warning as banner.
func (c *ChatService) StartSession(language string) (*session.Session, error) {
	s, err := c.sessions.Create(language)
	if err != nil {
		if errors.Is(err, session.ErrUnknownLanguage) {
			return nil, newError(ErrorInvalidInput, "unsupported_language", err)
		}
		return nil, newError(ErrorInternal, "session_create_error", err)
	}
	if _, err := s.Post(domain.MessageAI, textsFor(s.Language()).welcome); err != nil {
		return nil, newError(ErrorInternal, "welcome_error", err)
	}
	if w := c.Warning(); w != "" {
		s.SetBanner(w)
	}
	c.log.Info("session started", map[string]interface{}{
		"session_id": s.ID(),
		"language":   s.Language(),
		"mode":       string(c.Mode()),
	})
	return s, nil
}

func (c *ChatService) Session(id string) (*session.Session, error) {
	s, err := c.sessions.Get(id)
	if err != nil {
		return nil, newError(ErrorSessionNotFound, "unknown_session", err)
	}
	return s, nil
}

// EndSession tears the session down; a turn still in flight is discarded.
func (c *ChatService) EndSession(id string) error {
	if err := c.sessions.Dispose(id); err != nil {
		return newError(ErrorSessionNotFound, "unknown_session", err)
	}
	c.log.Info("session ended", map[string]interface{}{"session_id": id})
	return nil
}

// ToggleVoiceInput flips the recording flag and returns the new value.
func (c *ChatService) ToggleVoiceInput(s *session.Session) (bool, error) {
	on, err := s.ToggleRecording()
	if err != nil {
		return false, newError(ErrorSessionClosed, "session_closed", err)
	}
	return on, nil
}

// StartVoiceInput rejects a second recording while one is active.
func (c *ChatService) StartVoiceInput(s *session.Session) error {
	err := s.StartRecording()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, session.ErrAlreadyRecording):
		return newError(ErrorRecordingActive, "recording_active", err)
	default:
		return newError(ErrorSessionClosed, "session_closed", err)
	}
}

// StopVoiceInput reports whether a recording was active.
func (c *ChatService) StopVoiceInput(s *session.Session) bool {
	return s.StopRecording()
}

// SendText runs one chat turn. Rejected input (empty, too long, busy or
// closed session) returns an error and appends nothing. An accepted turn
// yields exactly one reply message; remote failures never surface as
// errors. If ctx is done before the reply is stored, the turn is withdrawn
// and TRANSPORT_ERROR is returned.
func (c *ChatService) SendText(ctx context.Context, s *session.Session, utterance string) (domain.ChatMessage, error) {
	text := strings.TrimSpace(utterance)
	if text == "" {
		return domain.ChatMessage{}, newError(ErrorInvalidInput, "empty_utterance", nil)
	}
	if utf8.RuneCountInString(text) > c.maxUtterance {
		return domain.ChatMessage{}, newError(ErrorInvalidInput, "utterance_too_long", nil)
	}

	ticket, _, err := s.Begin(text)
	if err != nil {
		if errors.Is(err, session.ErrBusy) {
			return domain.ChatMessage{}, newError(ErrorSessionBusy, "request_in_flight", err)
		}
		return domain.ChatMessage{}, newError(ErrorSessionClosed, "session_closed", err)
	}

	log := c.log.WithFields(map[string]interface{}{"session_id": s.ID()})
	t := c.answer(ctx, log, s, text)

	if ctx.Err() != nil {
		s.Abort(ticket)
		c.metrics.ObserveTurn(t.strategy, "abandoned")
		log.Info("caller gave up, turn withdrawn", map[string]interface{}{
			"strategy": t.strategy,
			"reason":   ctx.Err().Error(),
		})
		return domain.ChatMessage{}, newError(ErrorTransport, "caller_canceled", ctx.Err())
	}

	msg, err := s.Resolve(ticket, t.reply)
	if err != nil {
		log.Info("discarded result for closed session", map[string]interface{}{
			"strategy": t.strategy,
			"reason":   err.Error(),
		})
		return domain.ChatMessage{}, newError(ErrorSessionClosed, "session_closed_mid_turn", err)
	}
	c.metrics.ObserveTurn(t.strategy, t.outcome)
	log.Debug("turn complete", map[string]interface{}{
		"strategy": t.strategy,
		"outcome":  t.outcome,
	})
	return msg, nil
}

type turn struct {
	reply    session.Reply
	strategy string
	outcome  string
}

func (c *ChatService) answer(ctx context.Context, log logger.Logger, s *session.Session, text string) turn {
	tx := textsFor(s.Language())
	profile := interpreter.Interpret(text)

	if profile.Category != "" && profile.Course == "" {
		return turn{
			reply:    session.Reply{Type: domain.MessageAI, Text: tx.askCourse, Remember: true},
			strategy: strategyClarify,
			outcome:  "course_missing",
		}
	}

	var matches, grounding []domain.ScholarshipRecord
	if profile.IsEmpty() {
		grounding = c.catalog.ListAll()
	} else {
		matches = c.catalog.SearchProfile(profile)
		if len(matches) == 0 {
			return turn{
				reply:    session.Reply{Type: domain.MessageAI, Text: tx.askNeed, Remember: true},
				strategy: strategyClarify,
				outcome:  "no_match",
			}
		}
		grounding = matches
	}
	log.Debug("interpreted utterance", map[string]interface{}{
		"category":     profile.Category,
		"course":       profile.Course,
		"study_abroad": profile.StudyAbroad,
		"income":       profile.Income,
		"grounding":    len(grounding),
	})

	if c.gen == nil {
		return c.localAnswer(tx, text, matches)
	}
	return c.remoteAnswer(ctx, log, s, tx, text, matches, grounding)
}

func (c *ChatService) localAnswer(tx texts, text string, matches []domain.ScholarshipRecord) turn {
	if len(matches) == 0 {
		matches = c.catalog.SearchUtterance(text)
	}
	if len(matches) == 0 {
		return turn{
			reply:    session.Reply{Type: domain.MessageSystem, Text: tx.localNoMatch},
			strategy: strategyLocal,
			outcome:  "no_match",
		}
	}
	return turn{
		reply: session.Reply{
			Type:    domain.MessageAI,
			Text:    tx.localIntro + "\n" + listRecords(tx.listingHeader, matches, c.fallbackLimit),
			Sources: groundingSources(matches, c.fallbackLimit),
		},
		strategy: strategyLocal,
		outcome:  "ok",
	}
}

func (c *ChatService) remoteAnswer(ctx context.Context, log logger.Logger, s *session.Session, tx texts, text string, matches, grounding []domain.ScholarshipRecord) turn {
	history := s.History()
	prompt := BuildPrompt(PromptInput{Records: grounding, History: history, Language: s.Language()})

	gen, err := c.generate(ctx, log, s.ID(), prompt, true)
	if err != nil {
		return c.degraded(tx, text, matches)
	}
	if gen.Search == nil {
		var sources []domain.GroundingSource
		if len(matches) > 0 {
			sources = groundingSources(matches, 0)
		}
		return turn{
			reply:    session.Reply{Type: domain.MessageAI, Text: strings.TrimSpace(gen.Text), Sources: sources, Remember: true},
			strategy: strategyRemote,
			outcome:  "ok",
		}
	}

	req := *gen.Search
	results := c.catalog.Search(req)
	log.Info("model requested catalog search", map[string]interface{}{
		"query":    req.Keyword,
		"category": req.Category,
		"course":   req.Course,
		"results":  len(results),
	})
	prompt = BuildPrompt(PromptInput{Records: results, History: history, Language: s.Language(), Search: &req})
	final, err := c.generate(ctx, log, s.ID(), prompt, false)
	if err == nil && final.Search != nil {
		err = newError(ErrorUpstream, "repeated_tool_call", nil)
		log.Warn("remote generation failed", map[string]interface{}{"code": string(ErrorUpstream), "reason": "repeated_tool_call"})
	}
	if err != nil {
		if len(results) > 0 {
			matches = results
		}
		t := c.degraded(tx, text, matches)
		t.reply.FunctionCall = &req
		return t
	}
	return turn{
		reply: session.Reply{
			Type:         domain.MessageAI,
			Text:         strings.TrimSpace(final.Text),
			Sources:      groundingSources(results, 0),
			FunctionCall: &req,
			Remember:     true,
		},
		strategy: strategyTool,
		outcome:  "ok",
	}
}

// generate performs one bounded remote call. Empty text without a tool
// request counts as a malformed payload.
func (c *ChatService) generate(ctx context.Context, log logger.Logger, sessionID, prompt string, tools bool) (domain.Generation, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.remoteTimeout)
	defer cancel()

	start := time.Now()
	gen, err := c.gen.Generate(callCtx, GenerationRequest{SessionID: sessionID, Prompt: prompt, Tools: tools})
	if err == nil && gen.Search == nil && strings.TrimSpace(gen.Text) == "" {
		err = newError(ErrorUpstream, "malformed_response", errors.New("empty reply"))
	}
	elapsed := time.Since(start)
	if err != nil {
		ue := classifyRemote(err)
		c.metrics.ObserveRemoteCall(ue.Reason, elapsed)
		log.WithError(err).Warn("remote generation failed", map[string]interface{}{
			"code":        string(ue.Code),
			"reason":      ue.Reason,
			"duration_ms": elapsed.Milliseconds(),
		})
		return domain.Generation{}, ue
	}
	c.metrics.ObserveRemoteCall("ok", elapsed)
	return gen, nil
}

// degraded answers from the catalog after a remote failure: the structured
// matches when there are any, otherwise a keyword search over the utterance.
func (c *ChatService) degraded(tx texts, text string, matches []domain.ScholarshipRecord) turn {
	if len(matches) == 0 {
		matches = c.catalog.SearchUtterance(text)
	}
	if len(matches) == 0 {
		return turn{
			reply:    session.Reply{Type: domain.MessageSystem, Text: tx.apology},
			strategy: strategyFallback,
			outcome:  "apology",
		}
	}
	return turn{
		reply: session.Reply{
			Type:    domain.MessageAI,
			Text:    tx.unavailable + "\n" + listRecords(tx.listingHeader, matches, c.fallbackLimit),
			Sources: groundingSources(matches, c.fallbackLimit),
		},
		strategy: strategyFallback,
		outcome:  "degraded",
	}
}
