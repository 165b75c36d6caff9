// Package handler exposes the chat service as an API Gateway Lambda
// handler.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"scholarship-agent/internal/domain"
	"scholarship-agent/internal/logger"
	"scholarship-agent/internal/session"
	"scholarship-agent/internal/usecase"
)

// ChatAPI is the part of usecase.ChatService served over HTTP.
type ChatAPI interface {
	StartSession(language string) (*session.Session, error)
	Session(id string) (*session.Session, error)
	EndSession(id string) error
	SendText(ctx context.Context, s *session.Session, utterance string) (domain.ChatMessage, error)
	ToggleVoiceInput(s *session.Session) (bool, error)
	StartVoiceInput(s *session.Session) error
	StopVoiceInput(s *session.Session) bool
}

// ApplyVoice runs a voice action against s and returns the recording flag.
func ApplyVoice(api ChatAPI, s *session.Session, action string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case "", "toggle":
		return api.ToggleVoiceInput(s)
	case "start":
		if err := api.StartVoiceInput(s); err != nil {
			return false, err
		}
		return true, nil
	case "stop":
		api.StopVoiceInput(s)
		return false, nil
	default:
		return false, &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "unknown_voice_action"}
	}
}

type Handler struct {
	chat ChatAPI
	log  logger.Logger
}

func NewHandler(chat ChatAPI, log logger.Logger) (*Handler, error) {
	if chat == nil {
		return nil, errors.New("handler: chat service must not be nil")
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Handler{chat: chat, log: log}, nil
}

type request struct {
	corrID string
	event  events.APIGatewayProxyRequest
	log    logger.Logger
}

// Handle routes one API Gateway proxy event. Failures are reported in the
// response; the returned error is always nil so Lambda does not retry.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := correlationID(event.Headers)
	r := request{
		corrID: corrID,
		event:  event,
		log: h.log.WithFields(map[string]interface{}{
			"correlation_id": corrID,
			"method":         event.HTTPMethod,
			"path":           event.Path,
		}),
	}

	segs := splitPath(event.Path)
	if len(segs) == 0 || segs[0] != "sessions" {
		return r.fail(http.StatusNotFound, ErrorRouteNotFound), nil
	}
	method := strings.ToUpper(event.HTTPMethod)

	switch {
	case len(segs) == 1 && method == http.MethodPost:
		return h.startSession(r), nil
	case len(segs) == 2 && method == http.MethodGet:
		return h.getSession(r, segs[1]), nil
	case len(segs) == 2 && method == http.MethodDelete:
		return h.endSession(r, segs[1]), nil
	case len(segs) == 3 && segs[2] == "messages" && method == http.MethodPost:
		return h.sendMessage(ctx, r, segs[1]), nil
	case len(segs) == 3 && segs[2] == "voice" && method == http.MethodPost:
		return h.voice(r, segs[1]), nil
	case len(segs) == 4 && segs[2] == "banner" && segs[3] == "dismiss" && method == http.MethodPost:
		return h.dismissBanner(r, segs[1]), nil
	default:
		return r.fail(http.StatusNotFound, ErrorRouteNotFound), nil
	}
}

func (h *Handler) startSession(r request) events.APIGatewayProxyResponse {
	var in StartSessionRequest
	if !r.decode(&in) {
		return r.fail(http.StatusBadRequest, string(usecase.ErrorInvalidInput))
	}
	s, err := h.chat.StartSession(in.Language)
	if err != nil {
		return r.failWith(err)
	}
	return r.json(http.StatusCreated, NewSessionView(s))
}

func (h *Handler) getSession(r request, id string) events.APIGatewayProxyResponse {
	s, err := h.chat.Session(id)
	if err != nil {
		return r.failWith(err)
	}
	return r.json(http.StatusOK, NewSessionView(s))
}

func (h *Handler) endSession(r request, id string) events.APIGatewayProxyResponse {
	if err := h.chat.EndSession(id); err != nil {
		return r.failWith(err)
	}
	return r.empty(http.StatusNoContent)
}

func (h *Handler) sendMessage(ctx context.Context, r request, id string) events.APIGatewayProxyResponse {
	var in SendMessageRequest
	if !r.decode(&in) {
		return r.fail(http.StatusBadRequest, string(usecase.ErrorInvalidInput))
	}
	s, err := h.chat.Session(id)
	if err != nil {
		return r.failWith(err)
	}
	msg, err := h.chat.SendText(ctx, s, in.Text)
	if err != nil {
		return r.failWith(err)
	}
	return r.json(http.StatusOK, MessageResponse{Message: msg, Banner: s.Banner()})
}

func (h *Handler) voice(r request, id string) events.APIGatewayProxyResponse {
	var in VoiceRequest
	if !r.decode(&in) {
		return r.fail(http.StatusBadRequest, string(usecase.ErrorInvalidInput))
	}
	s, err := h.chat.Session(id)
	if err != nil {
		return r.failWith(err)
	}
	on, err := ApplyVoice(h.chat, s, in.Action)
	if err != nil {
		return r.failWith(err)
	}
	return r.json(http.StatusOK, VoiceResponse{Recording: on})
}

func (h *Handler) dismissBanner(r request, id string) events.APIGatewayProxyResponse {
	s, err := h.chat.Session(id)
	if err != nil {
		return r.failWith(err)
	}
	s.DismissBanner()
	return r.empty(http.StatusNoContent)
}

// decode accepts an empty body as the zero value.
func (r request) decode(v interface{}) bool {
	if strings.TrimSpace(r.event.Body) == "" {
		return true
	}
	if err := json.Unmarshal([]byte(r.event.Body), v); err != nil {
		r.log.Warn("invalid request body", map[string]interface{}{"error": err.Error()})
		return false
	}
	return true
}

func (r request) failWith(err error) events.APIGatewayProxyResponse {
	status, code := StatusFor(err)
	fields := map[string]interface{}{"status": status, "code": code}
	var ue *usecase.Error
	if errors.As(err, &ue) {
		fields["reason"] = ue.Reason
	}
	if status >= http.StatusInternalServerError {
		r.log.WithError(err).Error("request failed", fields)
	} else {
		r.log.Info("request rejected", fields)
	}
	return r.fail(status, code)
}

func (r request) fail(status int, code string) events.APIGatewayProxyResponse {
	return r.json(status, ErrorResponse{Error: code})
}

func (r request) json(status int, v interface{}) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		r.log.WithError(err).Error("marshal response", nil)
		status = http.StatusInternalServerError
		body = []byte(`{"error":"` + string(usecase.ErrorInternal) + `"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			CorrelationHeader: r.corrID,
		},
		Body: string(body),
	}
}

func (r request) empty(status int) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{CorrelationHeader: r.corrID},
	}
}

// correlationID returns the caller's X-Correlation-Id, matched without
// regard to case, or a new UUID.
func correlationID(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, CorrelationHeader) && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return uuid.NewString()
}

func splitPath(path string) []string {
	var segs []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			segs = append(segs, p)
		}
	}
	return segs
}
