// Package paramstore reads credentials for the chat back-end from AWS SSM
// Parameter Store.
package paramstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// APIKeySuffix is appended to the configured parameter prefix to locate the
// generation service key.
const APIKeySuffix = "/api-key"

type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Getter returns the decrypted value of a single parameter.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// Client wraps an AWS SSM API and memoizes successful lookups for the life of
// the process. Failed lookups are not cached so a later cold start can retry.
type Client struct {
	api ssmAPI

	mu    sync.Mutex
	cache map[string]string
}

func New(api ssmAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("paramstore: api must not be nil")
	}
	return &Client{api: api, cache: make(map[string]string)}, nil
}

func (c *Client) GetParameter(ctx context.Context, name string) (string, error) {
	if c.api == nil {
		return "", errors.New("paramstore: client not initialized")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("paramstore: name is required")
	}

	c.mu.Lock()
	if v, ok := c.cache[name]; ok {
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	withDecryption := true
	out, err := c.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: &withDecryption,
	})
	if err != nil {
		return "", fmt.Errorf("paramstore: get parameter %q: %w", name, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("paramstore: parameter %q missing value", name)
	}

	v := *out.Parameter.Value
	c.mu.Lock()
	if c.cache == nil {
		c.cache = make(map[string]string)
	}
	c.cache[name] = v
	c.mu.Unlock()
	return v, nil
}

// TokenParameter returns the parameter name holding the API key under prefix.
func TokenParameter(prefix string) string {
	return strings.TrimRight(strings.TrimSpace(prefix), "/") + APIKeySuffix
}

type tokenPayload struct {
	Token string `json:"token"`
}

// ResolveToken reads name through getter. A JSON object value must carry a
// non-empty "token" field; any other value is used verbatim after trimming.
func ResolveToken(ctx context.Context, getter Getter, name string) (string, error) {
	if getter == nil {
		return "", errors.New("paramstore: getter is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("paramstore: token parameter name is empty")
	}

	raw, err := getter.GetParameter(ctx, name)
	if err != nil {
		return "", fmt.Errorf("paramstore: fetch token: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "{") {
		var tp tokenPayload
		if err := json.Unmarshal([]byte(raw), &tp); err != nil {
			return "", fmt.Errorf("paramstore: unmarshal token value as JSON: %w", err)
		}
		if strings.TrimSpace(tp.Token) == "" {
			return "", errors.New("paramstore: token field is empty")
		}
		return strings.TrimSpace(tp.Token), nil
	}
	if raw == "" {
		return "", errors.New("paramstore: token value is empty")
	}
	return raw, nil
}
