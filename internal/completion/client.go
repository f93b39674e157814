// Package completion implements the chat-completion client used to answer
// relayed messages. Every call is one HTTP round-trip; failures come back as
// a Result carrying a user-visible error instead of being propagated.
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

	openai "github.com/sashabaranov/go-openai"

	"github.com/edgard/relaybot/internal/config"
	"github.com/edgard/relaybot/internal/usercontext"
)

// Client defines the completion operation used by the message handlers.
type Client interface {
	// Complete sends userMessage to the completion endpoint. uc is optional
	// sender metadata. It never panics and never returns a Go error: the
	// outcome is always a Result.
	Complete(ctx context.Context, userMessage string, uc *usercontext.UserContext) Result
}

// Result is the outcome of one completion call: Text on success, Err otherwise.
type Result struct {
	Text string
	Err  error
}

// OK wraps a successful completion text.
func OK(text string) Result { return Result{Text: text} }

// Failed wraps a completion error.
func Failed(err error) Result { return Result{Err: err} }

// Ok reports whether the call succeeded.
func (r Result) Ok() bool { return r.Err == nil }

// Message returns the text to deliver to the user: the completion on
// success, the error reason otherwise.
func (r Result) Message() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	return r.Text
}

type sdkClient struct {
	client *openai.Client
	cfg    config.CompletionConfig
	log    *slog.Logger
}

// NewClient creates a completion client for the configured endpoint.
// The API key and generation parameters are fixed at construction.
func NewClient(cfg config.CompletionConfig, log *slog.Logger) (Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("completion API key is required")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("completion base URL is required")
	}
	if log == nil {
		log = slog.Default()
	}

	oaiCfg := openai.DefaultConfig(cfg.APIKey)
	oaiCfg.BaseURL = cfg.BaseURL
	oaiCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	logger := log.With("component", "completion_client")
	logger.Info("Completion client initialized", "base_url", cfg.BaseURL, "model", cfg.Model)

	return &sdkClient{
		client: openai.NewClientWithConfig(oaiCfg),
		cfg:    cfg,
		log:    logger,
	}, nil
}

// BuildRequest assembles the chat-completion request for one message.
// System messages (configured prompt, sender metadata) come first; the
// verbatim user message is always last.
func BuildRequest(cfg config.CompletionConfig, userMessage string, uc *usercontext.UserContext) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, 3)
	if cfg.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: cfg.SystemPrompt,
		})
	}
	if cfg.IncludeUserInfo && uc != nil {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: fmt.Sprintf("User info - Username: %s, ID: %d", uc.DisplayName, uc.UserID),
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userMessage,
	})

	// Temperature is omitempty in the SDK; a zero would be dropped and the
	// provider default applied instead.
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	return openai.ChatCompletionRequest{
		Model:            cfg.Model,
		Messages:         messages,
		MaxTokens:        cfg.MaxTokens,
		Temperature:      temperature,
		TopP:             cfg.TopP,
		FrequencyPenalty: cfg.FrequencyPenalty,
		PresencePenalty:  cfg.PresencePenalty,
		N:                1,
		Stream:           false,
	}
}

func (c *sdkClient) Complete(ctx context.Context, userMessage string, uc *usercontext.UserContext) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			c.log.ErrorContext(ctx, "Completion call panicked", "panic", r)
			res = Failed(&Error{Kind: ErrUnexpected, Err: fmt.Errorf("%v", r)})
		}
	}()

	if uc != nil {
		c.log.InfoContext(ctx, "Completion request", "display_name", uc.DisplayName, "user_id", uc.UserID)
	}

	req := BuildRequest(c.cfg, userMessage, uc)

	startTime := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	duration := time.Since(startTime)
	if err != nil {
		cerr := classify(err)
		c.log.ErrorContext(ctx, "Completion request failed", "error", err, "kind", cerr.Kind, "duration", duration)
		return Failed(cerr)
	}

	if len(resp.Choices) == 0 {
		c.log.ErrorContext(ctx, "Completion response has no choices", "response_id", resp.ID, "duration", duration)
		return Failed(&Error{Kind: ErrMalformedResponse})
	}

	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		c.log.ErrorContext(ctx, "Completion response has no content", "response_id", resp.ID,
			"finish_reason", resp.Choices[0].FinishReason, "duration", duration)
		return Failed(&Error{Kind: ErrMalformedResponse})
	}

	c.log.DebugContext(ctx, "Completion received",
		"model", resp.Model,
		"finish_reason", resp.Choices[0].FinishReason,
		"total_tokens", resp.Usage.TotalTokens,
		"duration", duration)

	return OK(content)
}
