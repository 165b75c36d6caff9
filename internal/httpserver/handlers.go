package httpserver

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"scholarship-agent/handler"
	"scholarship-agent/internal/session"
	"scholarship-agent/internal/usecase"
)

type chatHandler struct {
	chat Chat
}

type healthResponse struct {
	Status         string `json:"status"`
	Mode           string `json:"mode"`
	CatalogVersion string `json:"catalogVersion"`
}

func (h *chatHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{
		Status:         "ok",
		Mode:           string(h.chat.Mode()),
		CatalogVersion: h.chat.CatalogVersion(),
	})
}

func (h *chatHandler) startSession(c *gin.Context) {
	var in handler.StartSessionRequest
	if !bind(c, &in) {
		return
	}
	s, err := h.chat.StartSession(in.Language)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSessionView(s))
}

func (h *chatHandler) getSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, handler.NewSessionView(s))
}

func (h *chatHandler) endSession(c *gin.Context) {
	if err := h.chat.EndSession(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *chatHandler) sendMessage(c *gin.Context) {
	var in handler.SendMessageRequest
	if !bind(c, &in) {
		return
	}
	s, ok := h.session(c)
	if !ok {
		return
	}
	// A client that disconnects mid-turn still gets the reply on its next
	// GET; the remote call stays bounded by the service timeout.
	msg, err := h.chat.SendText(context.WithoutCancel(c.Request.Context()), s, in.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.MessageResponse{Message: msg, Banner: s.Banner()})
}

func (h *chatHandler) voice(c *gin.Context) {
	var in handler.VoiceRequest
	if !bind(c, &in) {
		return
	}
	s, ok := h.session(c)
	if !ok {
		return
	}
	on, err := handler.ApplyVoice(h.chat, s, in.Action)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.VoiceResponse{Recording: on})
}

func (h *chatHandler) dismissBanner(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.DismissBanner()
	c.Status(http.StatusNoContent)
}

func (h *chatHandler) session(c *gin.Context) (*session.Session, bool) {
	s, err := h.chat.Session(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return s, true
}

// bind decodes an optional JSON body; an empty body leaves v untouched.
func bind(c *gin.Context, v interface{}) bool {
	err := c.ShouldBindJSON(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, handler.ErrorResponse{Error: string(usecase.ErrorInvalidInput)})
	return false
}

func respondError(c *gin.Context, err error) {
	status, code := handler.StatusFor(err)
	_ = c.Error(err)
	c.JSON(status, handler.ErrorResponse{Error: code})
}
