package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIChat implements port.LLM over any OpenAI-compatible chat API.
// A local Ollama endpoint works through BaseURL without an API key.
type OpenAIChat struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// Config holds chat client construction options.
type Config struct {
	APIKeyEnv string
	Model     string
	BaseURL   string
	Timeout   time.Duration
}

// NewOpenAIChat creates a chat client.
func NewOpenAIChat(cfg Config) (*OpenAIChat, error) {
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", cfg.APIKeyEnv)
	}
	if apiKey == "" {
		apiKey = "local"
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	return &OpenAIChat{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: timeout,
	}, nil
}

// Chat sends a single-turn completion request. The role is folded into
// the system prompt the same way for every caller.
func (c *OpenAIChat) Chat(ctx context.Context, role, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf("You are a helpful assistant specializing in %s.", role),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat response contained no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// ModelName returns the name of the model.
func (c *OpenAIChat) ModelName() string {
	return c.model
}
