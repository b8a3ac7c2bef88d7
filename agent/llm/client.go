// Package llm implements the reasoning-service client on top of the OpenAI
// chat completions API. Any OpenAI-compatible endpoint works through BaseURL.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	contractx "github.com/saborai/saborai/agent/contract"
	retryx "github.com/saborai/saborai/agent/retry"
)

type Config struct {
	BaseURL             string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.openai.com/v1"`
	APIKey              string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model               string        `envconfig:"MODEL" split_words:"true" default:"gpt-4o-mini"`
	MaxCompletionTokens int64         `envconfig:"MAX_COMPLETION_TOKENS" split_words:"true" default:"2000"`
	Temperature         float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.2"`
	Timeout             time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: llm api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: llm model is required", contractx.ErrValidation)
	}
	return nil
}

// Client is the production contract.Reasoner.
type Client struct {
	api         openaisdk.Client
	model       string
	maxTokens   int64
	temperature float32
}

var _ contractx.Reasoner = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if trimmed := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed))
	}

	return &Client{
		api:         openaisdk.NewClient(opts...),
		model:       strings.TrimSpace(cfg.Model),
		maxTokens:   cfg.MaxCompletionTokens,
		temperature: cfg.Temperature,
	}, nil
}

// Complete issues one chat completion. Failures come back classified as
// transient or terminal so the retry layer can decide what to do.
func (c *Client) Complete(ctx context.Context, req contractx.CompletionRequest) (string, error) {
	temp := c.temperature
	if req.Temperature >= 0 {
		temp = req.Temperature
	}

	messages := make([]openaisdk.ChatCompletionMessageParamUnion, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, openaisdk.SystemMessage(req.System))
	}
	messages = append(messages, openaisdk.UserMessage(req.Prompt))

	resp, err := c.api.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model:       openaisdk.ChatModel(c.model),
		Messages:    messages,
		Temperature: openaisdk.Float(float64(temp)),
		MaxTokens:   openaisdk.Int(c.maxTokens),
	})
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", retryx.Transient(retryx.KindServer, fmt.Errorf("%w: completion returned no choices", contractx.ErrModelInvoke))
	}
	return resp.Choices[0].Message.Content, nil
}

// classify maps a raw SDK error onto the retry taxonomy. Rate limits,
// timeouts and transient 5xx responses are retryable; auth and malformed
// requests are not. Unrecognized failures default to terminal.
func classify(err error) error {
	var apierr *openaisdk.Error
	if errors.As(err, &apierr) {
		switch code := apierr.StatusCode; {
		case code == 429:
			return retryx.Transient(retryx.KindRateLimit, err)
		case code == 408:
			return retryx.Transient(retryx.KindTimeout, err)
		case code == 401 || code == 403:
			return retryx.Terminal(retryx.KindAuth, err)
		case code == 501:
			return retryx.Terminal(retryx.KindServer, err)
		case code >= 500:
			return retryx.Transient(retryx.KindServer, err)
		default:
			return retryx.Terminal(retryx.KindBadRequest, err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return retryx.Transient(retryx.KindTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return retryx.Transient(retryx.KindTimeout, err)
	}

	return retryx.Terminal(retryx.KindUnknown, err)
}
