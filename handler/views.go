package handler

import (
	"errors"
	"net/http"

	"scholarship-agent/internal/domain"
	"scholarship-agent/internal/session"
	"scholarship-agent/internal/usecase"
)

// CorrelationHeader carries the request correlation id in both directions.
const CorrelationHeader = "X-Correlation-Id"

// ErrorRouteNotFound is reported for paths or methods no route serves.
const ErrorRouteNotFound = "ROUTE_NOT_FOUND"

// SessionView is the JSON snapshot of a session returned by the API.
type SessionView struct {
	ID        string               `json:"id"`
	Language  string               `json:"language"`
	State     string               `json:"state"`
	Recording bool                 `json:"recording"`
	Banner    string               `json:"banner,omitempty"`
	Messages  []domain.ChatMessage `json:"messages"`
}

func NewSessionView(s *session.Session) SessionView {
	return SessionView{
		ID:        s.ID(),
		Language:  s.Language(),
		State:     s.State().String(),
		Recording: s.Recording(),
		Banner:    s.Banner(),
		Messages:  s.Messages(),
	}
}

type StartSessionRequest struct {
	Language string `json:"language"`
}

type SendMessageRequest struct {
	Text string `json:"text"`
}

type MessageResponse struct {
	Message domain.ChatMessage `json:"message"`
	Banner  string             `json:"banner,omitempty"`
}

// VoiceRequest selects start, stop or toggle. Empty means toggle.
type VoiceRequest struct {
	Action string `json:"action"`
}

type VoiceResponse struct {
	Recording bool `json:"recording"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusFor maps an error from the chat service to an HTTP status and the
// error code placed in the envelope.
func StatusFor(err error) (int, string) {
	var ue *usecase.Error
	if !errors.As(err, &ue) {
		return http.StatusInternalServerError, string(usecase.ErrorInternal)
	}
	switch ue.Code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest, string(ue.Code)
	case usecase.ErrorSessionNotFound:
		return http.StatusNotFound, string(ue.Code)
	case usecase.ErrorSessionBusy, usecase.ErrorRecordingActive:
		return http.StatusConflict, string(ue.Code)
	case usecase.ErrorSessionClosed:
		return http.StatusGone, string(ue.Code)
	case usecase.ErrorConfiguration:
		return http.StatusServiceUnavailable, string(ue.Code)
	case usecase.ErrorTransport:
		return http.StatusGatewayTimeout, string(ue.Code)
	case usecase.ErrorUpstream:
		return http.StatusBadGateway, string(ue.Code)
	default:
		return http.StatusInternalServerError, string(usecase.ErrorInternal)
	}
}
