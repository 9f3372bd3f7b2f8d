package openaichat

import (
	"context"
	"strings"
	"time"

	"github.com/insightbase/insightbase/internal/core/domain"
	"github.com/insightbase/insightbase/internal/core/ports"
	"github.com/insightbase/insightbase/internal/infrastructure/resilience"
)

// Client talks to an OpenAI-compatible chat completions endpoint. Each call
// gets a hard per-request deadline independent of the caller's context so a
// hung backend surfaces as domain.ErrLLMTimeout instead of blocking the
// whole pipeline.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	callTimeout time.Duration
	httpClient  httpDoer
	executor    *resilience.Executor
}

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	CallTimeout time.Duration
}

func New(cfg Config, executor *resilience.Executor) *Client {
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		callTimeout: timeout,
		httpClient:  newHTTPClient(timeout),
		executor:    executor,
	}
}

func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error) {
	return c.complete(ctx, systemPrompt, userPrompt, temperature, false)
}

func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error) {
	return c.complete(ctx, systemPrompt, userPrompt, temperature, true)
}

func (c *Client) complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64, jsonMode bool) (string, error) {
	req := chatRequest{
		Model:       c.model,
		Temperature: temperature,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}
	if jsonMode {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	var answer string
	err := c.executor.Execute(ctx, "chat_completion", func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
		defer cancel()

		resp, err := c.postChat(callCtx, req)
		if err != nil {
			if callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
				return domain.WrapError(domain.ErrLLMTimeout, "chat_completion", err)
			}
			return err
		}
		answer = resp
		return nil
	}, classifyLLMError)
	if err != nil {
		return "", wrapTemporaryIfNeeded("chat_completion", err)
	}

	return strings.TrimSpace(answer), nil
}

var _ ports.ChatLLM = (*Client)(nil)
