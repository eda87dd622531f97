// Package narrative drives the generative story loop: conversation history,
// the request/response/tool-call cycle against the storyteller service, and
// the bridge that resumes narration after combat resolves.
package narrative

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// ErrEmptyResponse indicates the storyteller returned no usable message.
var ErrEmptyResponse = errors.New("empty response from narrative service")

// Transport sends one completion request to the storyteller service. The
// transport owns timeouts; the orchestrator only sees a message or an error.
type Transport interface {
	Complete(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (openai.ChatCompletionMessage, error)
}

// ClientConfig configures the OpenAI-compatible transport.
type ClientConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// OpenAIClient is a Transport over any OpenAI-compatible chat completion
// endpoint.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a transport for the configured endpoint.
func NewOpenAIClient(cfg ClientConfig) *OpenAIClient {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(config),
		model:  cfg.Model,
	}
}

// Complete implements Transport.
func (c *OpenAIClient) Complete(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (openai.ChatCompletionMessage, error) {
	response, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
		Tools:    tools,
	})
	if err != nil {
		return openai.ChatCompletionMessage{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(response.Choices) == 0 {
		return openai.ChatCompletionMessage{}, ErrEmptyResponse
	}
	return response.Choices[0].Message, nil
}
