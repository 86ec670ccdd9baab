package briefing

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type OpenAI struct {
	client *openai.Client
	model  openai.ChatModel
}

// NewOpenAI builds a chat-completions backend. SDK retries are disabled; a failed
// call fails the run.
func NewOpenAI(apiKey, model string, opts ...option.RequestOption) *OpenAI {
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	client := openai.NewClient(opts...)
	return &OpenAI{
		client: &client,
		model:  model,
	}
}

func (c *OpenAI) Name() string {
	return "openai"
}

func (c *OpenAI) Model() string {
	return c.model
}

func (c *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: %w", ErrEmptyResponse)
	}

	text, err := cleanText(resp.Choices[0].Message.Content)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	return text, nil
}
