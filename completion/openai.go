package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/deepnoodle-ai/hitl/retry"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const (
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 256
	DefaultMaxRetries  = 2
	DefaultTimeout     = 60 * time.Second

	// NoRetries disables retrying when used as OpenAIOptions.MaxRetries.
	NoRetries = -1
)

// OpenAIOptions configures an OpenAI client. Zero values take the defaults
// above. RequestsPerSecond of zero disables client-side rate limiting.
type OpenAIOptions struct {
	APIKey  string
	BaseURL string
	Model   string

	// Temperature defaults to DefaultTemperature when nil. An explicit zero
	// is honored.
	Temperature *float64

	MaxTokens int

	// MaxRetries defaults to DefaultMaxRetries; NoRetries disables retrying.
	MaxRetries int

	RequestsPerSecond float64
	Timeout           time.Duration
	HTTPClient        *http.Client
	Logger            *slog.Logger
}

// OpenAI is a Client backed by the OpenAI chat completions API. Each prompt
// is sent as a single user message.
type OpenAI struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	maxRetries  int
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// NewOpenAI returns an OpenAI client.
func NewOpenAI(opts OpenAIOptions) (*OpenAI, error) {
	if opts.APIKey == "" {
		return nil, errors.New("openai api key required")
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	temperature := float32(DefaultTemperature)
	if opts.Temperature != nil {
		temperature = float32(*opts.Temperature)
	}
	if temperature == 0 {
		// go-openai omits a zero temperature, which the API reads as 1
		temperature = math.SmallestNonzeroFloat32
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	switch {
	case opts.MaxRetries == 0:
		opts.MaxRetries = DefaultMaxRetries
	case opts.MaxRetries < 0:
		opts.MaxRetries = 0
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	cfg.HTTPClient = opts.HTTPClient

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &OpenAI{
		client:      openai.NewClientWithConfig(cfg),
		model:       opts.Model,
		temperature: temperature,
		maxTokens:   opts.MaxTokens,
		maxRetries:  opts.MaxRetries,
		limiter:     limiter,
		logger:      opts.Logger,
	}, nil
}

// Model returns the configured model name
func (c *OpenAI) Model() string {
	return c.model
}

// Complete sends prompt to the chat completions endpoint and returns the
// text of the first choice. Rate limited and transient server errors are
// retried; anything else is returned immediately.
func (c *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	request := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	var text string
	err := retry.Do(ctx, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return retry.NewNonRecoverableError(err)
		}
		response, err := c.client.CreateChatCompletion(ctx, request)
		if err != nil {
			return classifyOpenAIError(err)
		}
		if len(response.Choices) == 0 {
			return ErrEmptyCompletion
		}
		text = strings.TrimSpace(response.Choices[0].Message.Content)
		return nil
	},
		retry.WithMaxRetries(c.maxRetries),
		retry.WithOnRetry(func(attempt int, wait time.Duration, err error) {
			c.logger.Warn("retrying completion", "model", c.model, "attempt", attempt, "wait", wait, "error", err)
		}),
	)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

// classifyOpenAIError marks API and transport errors as recoverable by
// their HTTP status code.
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if retry.IsRecoverableStatus(apiErr.HTTPStatusCode) {
			return retry.NewRecoverableError(err)
		}
		return retry.NewNonRecoverableError(err)
	}
	var requestErr *openai.RequestError
	if errors.As(err, &requestErr) {
		if retry.IsRecoverableStatus(requestErr.HTTPStatusCode) {
			return retry.NewRecoverableError(err)
		}
		return retry.NewNonRecoverableError(err)
	}
	return err
}
