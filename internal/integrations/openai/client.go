package openai

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

const (
	defaultBaseURL = "https://api.openai.com/v1"
	searchToolName = "search_scholarships"
)

type chatMessage struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []toolCall `json:"tool_calls,omitempty"`
}

type toolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type toolSpec struct {
	Type     string       `json:"type"`
	Function functionSpec `json:"function"`
}

type functionSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// chatRequest is the minimal request shape for the Chat Completions endpoint.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	Tools       []toolSpec    `json:"tools,omitempty"`
	ToolChoice  string        `json:"tool_choice,omitempty"`
	User        string        `json:"user,omitempty"`
}

// chatResponse is the minimal response shape returned by the Chat Completions endpoint.
type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("openai: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client generates chat replies through an OpenAI-compatible Chat
// Completions API and offers the catalog search as a function tool.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	apiKey      string
	model       string
	temperature *float64
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithTemperature(t float64) Option {
	return func(c *Client) {
		c.temperature = &t
	}
}

func NewClient(apiKey, model string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openai: api key must not be empty")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, errors.New("openai: model must not be empty")
	}
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiKey:     apiKey,
		model:      model,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// resolvedHTTPClient returns the configured HTTP client, or a default one if
// the field was cleared.
func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func chatURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	if strings.HasSuffix(base, "/v1") {
		return base + "/chat/completions"
	}
	return base + "/v1/chat/completions"
}

// Generate sends the grounded prompt as a single user message. A
// search_scholarships tool call is returned as Generation.Search.
func (c *Client) Generate(ctx context.Context, in usecase.GenerationRequest) (domain.Generation, error) {
	payload := chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: in.Prompt}},
		Temperature: c.temperature,
		User:        in.SessionID,
	}
	if in.Tools {
		payload.Tools = []toolSpec{searchTool()}
		payload.ToolChoice = "auto"
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.Generation{}, fmt.Errorf("openai: marshal request: %w", err)
	}

	url := chatURL(c.baseURL)
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if reqErr != nil {
		return domain.Generation{}, fmt.Errorf("openai: create request: %w", reqErr)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	raw, err := c.doJSONRequest(req, url)
	if err != nil {
		return domain.Generation{}, fmt.Errorf("openai: request failed: %w", err)
	}

	var out chatResponse
	if decErr := json.Unmarshal(raw, &out); decErr != nil {
		return domain.Generation{}, fmt.Errorf("openai: decode response: %w", decErr)
	}
	if len(out.Choices) == 0 {
		return domain.Generation{}, errors.New("openai: no choices in response")
	}
	msg := out.Choices[0].Message

	if len(msg.ToolCalls) > 0 {
		call := msg.ToolCalls[0]
		if call.Function.Name != searchToolName {
			return domain.Generation{}, fmt.Errorf("openai: unknown tool %q", call.Function.Name)
		}
		search, err := decodeSearchArguments(call.Function.Arguments)
		if err != nil {
			return domain.Generation{}, err
		}
		return domain.Generation{Text: strings.TrimSpace(msg.Content), Search: &search}, nil
	}

	text := strings.TrimSpace(msg.Content)
	if text == "" {
		return domain.Generation{}, errors.New("openai: empty message content")
	}
	return domain.Generation{Text: text}, nil
}

func decodeSearchArguments(args string) (domain.SearchRequest, error) {
	var req domain.SearchRequest
	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(args)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return domain.SearchRequest{}, fmt.Errorf("openai: decode %s arguments: %w", searchToolName, err)
	}
	if req.IncomeLimit < 0 {
		return domain.SearchRequest{}, fmt.Errorf("openai: %s arguments: negative incomeLimit", searchToolName)
	}
	return req, nil
}

func searchTool() toolSpec {
	return toolSpec{
		Type: "function",
		Function: functionSpec{
			Name:        searchToolName,
			Description: "Search the scholarship catalog. Use it when the data in the prompt does not cover what the student asked.",
			Parameters: json.RawMessage(`{
				"type":"object",
				"additionalProperties":false,
				"properties":{
					"query":{"type":"string","description":"free-text keyword such as laptop, hostel or merit"},
					"category":{"type":"string","enum":["SC","ST","BC","OC","Minority","Brahmin","Disabled"]},
					"course":{"type":"string"},
					"incomeLimit":{"type":"integer","minimum":0,"description":"annual family income in rupees"},
					"studyAbroad":{"type":"boolean"}
				}
			}`),
		},
	}
}

func (c *Client) doJSONRequest(req *http.Request, url string) ([]byte, error) {
	res, doErr := c.resolvedHTTPClient().Do(req)
	if doErr != nil {
		return nil, doErr
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}
