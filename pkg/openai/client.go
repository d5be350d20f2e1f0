package openai

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"autoclipper/log"
	"autoclipper/pkg/errors"
)

// Client wraps the chat completion API used by the scoring, refinement and
// packaging stages.
type Client struct {
	client *openai.Client
	model  string
}

func NewClient(baseUrl, apiKey, model string, proxy *url.URL) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseUrl != "" {
		cfg.BaseURL = baseUrl
	}

	transport := &http.Transport{}
	if proxy != nil {
		transport.Proxy = http.ProxyURL(proxy)
	}
	cfg.HTTPClient = &http.Client{Transport: transport}

	return &Client{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// ChatCompletion sends one system+user exchange and returns the reply text.
// JSON object mode is requested since every caller expects a JSON reply.
func (c *Client) ChatCompletion(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.2,
	})
	if err != nil {
		log.GetLogger().Error("chat completion failed", zap.String("model", c.model), zap.Error(err))
		return "", classifyAPIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New(errors.CodeMalformedResponse, "chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func classifyAPIError(err error) error {
	if apiErr, ok := err.(*openai.APIError); ok {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return errors.Wrap(errors.CodeRateLimited, "model rate limited", err)
		case http.StatusPaymentRequired, http.StatusForbidden:
			return errors.Wrap(errors.CodeLLMQuotaExceeded, "model quota exceeded", err)
		}
	}
	return errors.Wrap(errors.CodeModelUnavailable, "model unavailable", err)
}
