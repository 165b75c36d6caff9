// Package endpoint talks to the hosted generation endpoint that fronts the
// language model for the chat back-end.
package endpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"scholarship-agent/internal/domain"
	"scholarship-agent/internal/usecase"
)

type request struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

type response struct {
	Reply *string `json:"reply"`
	Error string  `json:"error"`
}

// HTTPStatusError captures non-2xx responses from the endpoint.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("endpoint: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// ReplyError is returned when a 2xx body carries an error field instead of a
// reply. It reports 502 so callers classify it as an upstream failure.
type ReplyError struct {
	Message string
}

func (e *ReplyError) Error() string {
	return "endpoint: upstream error: " + e.Message
}

func (e *ReplyError) HTTPStatusCode() int {
	return http.StatusBadGateway
}

type Client struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = strings.TrimSpace(key)
	}
}

func NewClient(url string, opts ...Option) (*Client, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("endpoint: url must not be empty")
	}
	c := &Client{
		url:        url,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return c, nil
}

// Generate posts the prompt and returns the reply text. The endpoint has no
// tool support, so Tools is ignored and Search is never set.
func (c *Client) Generate(ctx context.Context, in usecase.GenerationRequest) (domain.Generation, error) {
	body, err := json.Marshal(request{Message: in.Prompt, SessionID: in.SessionID})
	if err != nil {
		return domain.Generation{}, fmt.Errorf("endpoint: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return domain.Generation{}, fmt.Errorf("endpoint: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Generation{}, fmt.Errorf("endpoint: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return domain.Generation{}, &HTTPStatusError{StatusCode: res.StatusCode, URL: c.url, Body: string(buf)}
	}

	var out response
	if err := json.NewDecoder(io.LimitReader(res.Body, 1<<20)).Decode(&out); err != nil {
		return domain.Generation{}, fmt.Errorf("endpoint: decode response: %w", err)
	}
	if msg := strings.TrimSpace(out.Error); msg != "" {
		return domain.Generation{}, &ReplyError{Message: msg}
	}
	if out.Reply == nil {
		return domain.Generation{}, errors.New("endpoint: response has no reply")
	}
	text := strings.TrimSpace(*out.Reply)
	if text == "" {
		return domain.Generation{}, errors.New("endpoint: reply is empty")
	}
	return domain.Generation{Text: text}, nil
}
