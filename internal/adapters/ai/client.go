package ai

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/time/rate"

	"marketintel/internal/adapters/config"
	"marketintel/internal/metrics"
	"marketintel/pkg/errors"
	"marketintel/pkg/logger"
)

// Client is the LLM collaborator contract the pipeline stages depend on.
// Complete returns the raw completion text; CompleteJSON requires the
// completion to parse into out and fails otherwise. Callers are expected to
// fall back locally on any error from either method.
type Client interface {
	Complete(ctx context.Context, systemPrompt string, userContent string) (string, error)
	CompleteJSON(ctx context.Context, systemPrompt string, userContent string, out any) error
}

// Compile-time check
var _ Client = (*OpenAIClient)(nil)

// OpenAIClient implements Client using the official OpenAI Go SDK
type OpenAIClient struct {
	client      openai.Client
	model       string
	timeout     time.Duration
	maxTokens   int
	temperature float64
	limiter     *rate.Limiter
	log         *logger.Logger
}

// NewOpenAIClient creates a new OpenAI-backed LLM client
func NewOpenAIClient(cfg config.AIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "openai API key not configured")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	ratePerMin := cfg.RatePerMin
	if ratePerMin <= 0 {
		ratePerMin = 60
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
	)

	return &OpenAIClient{
		client:      client,
		model:       cfg.Model,
		timeout:     timeout,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		limiter:     rate.NewLimiter(rate.Limit(ratePerMin/60.0), 5),
		log:         logger.Get().With("component", "llm", "model", cfg.Model),
	}, nil
}

// Complete sends a chat completion request and returns the raw response text
func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt string, userContent string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		metrics.LLMCalls.WithLabelValues(c.model, "rate_limited").Inc()
		return "", errors.Wrap(errors.ErrRateLimitExceeded, "llm rate limiter")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	started := time.Now()

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage(userContent),
	}
	if systemPrompt != "" {
		messages = append([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
		}, messages...)
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    messages,
		MaxTokens:   openai.Int(int64(c.maxTokens)),
		Temperature: openai.Float(c.temperature),
	})
	metrics.LLMLatency.WithLabelValues(c.model).Observe(time.Since(started).Seconds())

	if err != nil {
		metrics.LLMCalls.WithLabelValues(c.model, "error").Inc()
		return "", errors.Wrap(errors.ErrLLMUnavailable, err.Error())
	}

	if len(resp.Choices) == 0 {
		metrics.LLMCalls.WithLabelValues(c.model, "error").Inc()
		return "", errors.Wrap(errors.ErrLLMBadResponse, "empty choices")
	}

	metrics.LLMCalls.WithLabelValues(c.model, "success").Inc()
	return resp.Choices[0].Message.Content, nil
}

// CompleteJSON sends a completion request and unmarshals the response into out.
// A response that does not parse is a failure; callers substitute fallbacks.
func (c *OpenAIClient) CompleteJSON(ctx context.Context, systemPrompt string, userContent string, out any) error {
	text, err := c.Complete(ctx, systemPrompt, userContent)
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(ExtractJSON(text)), out); err != nil {
		c.log.Warnf("LLM response failed to parse as JSON: %v", err)
		return errors.Wrap(errors.ErrLLMBadResponse, err.Error())
	}

	return nil
}

// ExtractJSON strips markdown code fences and surrounding prose from a model
// response, returning the first JSON object or array found.
func ExtractJSON(text string) string {
	s := strings.TrimSpace(text)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	objStart := strings.IndexAny(s, "{[")
	if objStart < 0 {
		return s
	}

	var objEnd int
	if s[objStart] == '{' {
		objEnd = strings.LastIndex(s, "}")
	} else {
		objEnd = strings.LastIndex(s, "]")
	}
	if objEnd <= objStart {
		return s
	}

	return s[objStart : objEnd+1]
}
