package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"scholarship-agent/handler"
	"scholarship-agent/internal/catalog"
	"scholarship-agent/internal/domain"
	"scholarship-agent/internal/logger"
	"scholarship-agent/internal/metrics"
	"scholarship-agent/internal/session"
	"scholarship-agent/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubGenerator struct{ text string }

func (s stubGenerator) Generate(context.Context, usecase.GenerationRequest) (domain.Generation, error) {
	return domain.Generation{Text: s.text}, nil
}

func newRouter(t *testing.T, gen usecase.Generator, warning string) (*gin.Engine, *metrics.Metrics) {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	m := metrics.New()
	svc, err := usecase.NewChatService(cat, session.NewRegistry(session.WithActiveRecorder(m)), gen, usecase.ChatOptions{
		Warning: warning,
		Logger:  logger.NewTestLogger(t),
		Metrics: m,
	})
	require.NoError(t, err)
	r, err := NewRouter(RouterConfig{Chat: svc, Metrics: m.Handler(), Logger: logger.NewTestLogger(t)})
	require.NoError(t, err)
	return r, m
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestNewRouter_RequiresChat(t *testing.T) {
	_, err := NewRouter(RouterConfig{})
	require.Error(t, err)
}

func TestRouter_Health(t *testing.T) {
	r, _ := newRouter(t, nil, "no key")
	w := serve(r, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	out := decode[healthResponse](t, w)
	require.Equal(t, "ok", out.Status)
	require.Equal(t, string(usecase.ModeLocal), out.Mode)
	require.NotEmpty(t, out.CatalogVersion)
}

func TestRouter_ChatFlowAndMetrics(t *testing.T) {
	r, _ := newRouter(t, stubGenerator{text: "Apply on the ePASS portal."}, "")

	w := serve(r, http.MethodPost, "/sessions", `{"language":"hi"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotEmpty(t, w.Header().Get(handler.CorrelationHeader))
	view := decode[handler.SessionView](t, w)
	require.Equal(t, "hi", view.Language)

	w = serve(r, http.MethodPost, "/sessions/"+view.ID+"/messages", `{"text":"SC student in BTech"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Apply on the ePASS portal.", decode[handler.MessageResponse](t, w).Message.Text)

	w = serve(r, http.MethodPost, "/sessions/"+view.ID+"/voice", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, decode[handler.VoiceResponse](t, w).Recording)

	w = serve(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `chat_turns_total{outcome="ok",strategy="remote"} 1`)
	require.Contains(t, w.Body.String(), "chat_sessions_active 1")

	w = serve(r, http.MethodDelete, "/sessions/"+view.ID, "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = serve(r, http.MethodGet, "/sessions/"+view.ID, "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, string(usecase.ErrorSessionNotFound), decode[handler.ErrorResponse](t, w).Error)
}

func TestRouter_BannerDismiss(t *testing.T) {
	r, _ := newRouter(t, nil, "remote generation unavailable")
	view := decode[handler.SessionView](t, serve(r, http.MethodPost, "/sessions", ""))
	require.Equal(t, "remote generation unavailable", view.Banner)

	w := serve(r, http.MethodPost, "/sessions/"+view.ID+"/banner/dismiss", "")
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Empty(t, decode[handler.SessionView](t, serve(r, http.MethodGet, "/sessions/"+view.ID, "")).Banner)
}

func TestRouter_Errors(t *testing.T) {
	r, _ := newRouter(t, stubGenerator{text: "ok"}, "")
	id := decode[handler.SessionView](t, serve(r, http.MethodPost, "/sessions", "")).ID

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"bad json", http.MethodPost, "/sessions/" + id + "/messages", `{"text":`, http.StatusBadRequest, "INVALID_INPUT"},
		{"too long", http.MethodPost, "/sessions/" + id + "/messages", `{"text":"` + strings.Repeat("a", 1001) + `"}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"unknown language", http.MethodPost, "/sessions", `{"language":"xx"}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"unknown session", http.MethodPost, "/sessions/missing/voice", "", http.StatusNotFound, "SESSION_NOT_FOUND"},
		{"no route", http.MethodGet, "/ask", "", http.StatusNotFound, handler.ErrorRouteNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(r, tc.method, tc.path, tc.body)
			require.Equal(t, tc.status, w.Code)
			require.Equal(t, tc.code, decode[handler.ErrorResponse](t, w).Error)
		})
	}
}

func TestRouter_EchoesCorrelationID(t *testing.T) {
	r, _ := newRouter(t, stubGenerator{text: "ok"}, "")
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("x-correlation-id", "corr-9")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, "corr-9", w.Header().Get(handler.CorrelationHeader))
}

func TestRouter_DisconnectedClientKeepsReply(t *testing.T) {
	r, _ := newRouter(t, stubGenerator{text: "Apply before March."}, "")
	id := decode[handler.SessionView](t, serve(r, http.MethodPost, "/sessions", "")).ID

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/sessions/"+id+"/messages", strings.NewReader(`{"text":"SC student in BTech"}`)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(httptest.NewRecorder(), req)

	view := decode[handler.SessionView](t, serve(r, http.MethodGet, "/sessions/"+id, ""))
	require.Equal(t, "idle", view.State)
	require.Len(t, view.Messages, 3)
	require.Equal(t, "Apply before March.", view.Messages[2].Text)
}
