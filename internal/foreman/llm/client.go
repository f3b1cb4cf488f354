// Package llm implements the planner and responder adapters on top of
// OpenAI-compatible chat completion endpoints.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/colonyops/foreman/internal/core/config"
	"github.com/colonyops/foreman/internal/core/session"
	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Client is a thin wrapper around one chat completion endpoint.
type Client struct {
	api         openai.Client
	model       string
	temperature float64
	timeout     time.Duration
}

// NewClient builds a client from adapter configuration. BaseURL is optional
// and defaults to the OpenAI API.
func NewClient(cfg config.LLMConfig) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("llm client requires an API key")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("llm client requires a model")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		api:         openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout.Std(),
	}, nil
}

// Complete sends one chat completion request. History is appended after the
// system prompt in conversation order.
func (c *Client) Complete(ctx context.Context, system string, history []session.Message) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	for _, msg := range history {
		switch msg.Role {
		case session.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: messages,
	}
	if c.temperature != 0 {
		params.Temperature = openai.Float(c.temperature)
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
