// Package menu persists raw menu documents and serves them back as retrieval
// context. The production store talks to Upstash Redis over its REST API.
// There is no chunking, embedding or similarity ranking here; a menu is
// stored and retrieved whole.
package menu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	contractx "github.com/saborai/saborai/agent/contract"
)

var (
	ErrMenuNotFound = errors.New("menu not found")
	ErrInvalidMenu  = errors.New("menu name is empty")
)

const (
	defaultKeyPrefix     = "saborai:menu:"
	maxResponseSizeBytes = 2 << 20
)

// Store is the persistence contract for menu documents.
type Store interface {
	Save(ctx context.Context, name string, text string) error
	Fetch(ctx context.Context, name string) (string, error)
	Delete(ctx context.Context, name string) error
}

type StoreOption func(*UpstashRedisStore)

func WithKeyPrefix(prefix string) StoreOption {
	return func(s *UpstashRedisStore) {
		if trimmed := strings.TrimSpace(prefix); trimmed != "" {
			s.keyPrefix = trimmed
		}
	}
}

func WithHTTPClient(client *http.Client) StoreOption {
	return func(s *UpstashRedisStore) {
		if client != nil {
			s.httpClient = client
		}
	}
}

type UpstashRedisConfig struct {
	URL     string        `envconfig:"URL" split_words:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

// UpstashRedisStore keeps menu text in Upstash Redis via REST commands.
type UpstashRedisStore struct {
	baseURL    string
	token      string
	httpClient *http.Client
	keyPrefix  string
}

var (
	_ Store               = (*UpstashRedisStore)(nil)
	_ contractx.Retriever = (*UpstashRedisStore)(nil)
)

type redisRESTResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

func NewUpstashRedisStore(cfg UpstashRedisConfig, opts ...StoreOption) (*UpstashRedisStore, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("upstash redis url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid redis rest url: %w", err)
	}
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("upstash redis token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	store := &UpstashRedisStore{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		keyPrefix:  defaultKeyPrefix,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

func (s *UpstashRedisStore) Save(ctx context.Context, name string, text string) error {
	key, err := s.redisKey(name)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("menu text is empty")
	}
	_, err = s.exec(ctx, []any{"SET", key, text})
	return err
}

func (s *UpstashRedisStore) Fetch(ctx context.Context, name string) (string, error) {
	key, err := s.redisKey(name)
	if err != nil {
		return "", err
	}

	resp, err := s.exec(ctx, []any{"GET", key})
	if err != nil {
		return "", err
	}

	result := bytes.TrimSpace(resp.Result)
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return "", ErrMenuNotFound
	}

	var text string
	if err := json.Unmarshal(result, &text); err != nil {
		return "", fmt.Errorf("decode menu payload: %w", err)
	}
	return text, nil
}

func (s *UpstashRedisStore) Delete(ctx context.Context, name string) error {
	key, err := s.redisKey(name)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, []any{"DEL", key})
	return err
}

// Retrieve implements contract.Retriever. With a menu name it returns that
// menu's text; without one it concatenates every stored menu, mirroring the
// original's unfiltered retrieval. An unknown menu yields empty context
// rather than an error so the request can degrade gracefully.
func (s *UpstashRedisStore) Retrieve(ctx context.Context, _ string, menuName string) (string, error) {
	if strings.TrimSpace(menuName) != "" {
		text, err := s.Fetch(ctx, menuName)
		if errors.Is(err, ErrMenuNotFound) {
			return "", nil
		}
		return text, err
	}

	keys, err := s.keys(ctx)
	if err != nil {
		return "", err
	}

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		text, err := s.Fetch(ctx, strings.TrimPrefix(key, s.keyPrefix))
		if err != nil {
			if errors.Is(err, ErrMenuNotFound) {
				continue
			}
			return "", err
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n\n"), nil
}

func (s *UpstashRedisStore) keys(ctx context.Context) ([]string, error) {
	resp, err := s.exec(ctx, []any{"KEYS", s.keyPrefix + "*"})
	if err != nil {
		return nil, err
	}
	var keys []string
	if err := json.Unmarshal(resp.Result, &keys); err != nil {
		return nil, fmt.Errorf("decode key listing: %w", err)
	}
	return keys, nil
}

func (s *UpstashRedisStore) redisKey(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", ErrInvalidMenu
	}
	return s.keyPrefix + strings.TrimSpace(name), nil
}

func (s *UpstashRedisStore) exec(ctx context.Context, command []any) (*redisRESTResponse, error) {
	body, err := json.Marshal(command)
	if err != nil {
		return nil, fmt.Errorf("marshal redis command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build redis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute redis request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read redis response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("redis rest status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var decoded redisRESTResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode redis response: %w", err)
	}
	if decoded.Error != "" {
		return nil, fmt.Errorf("redis rest error: %s", decoded.Error)
	}
	return &decoded, nil
}
