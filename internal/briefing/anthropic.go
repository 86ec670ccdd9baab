package briefing

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicMaxTokens = 2048

type Anthropic struct {
	client *anthropic.Client
	model  anthropic.Model
}

// NewAnthropic builds a Messages API backend with SDK retries disabled.
func NewAnthropic(apiKey, model string, opts ...option.RequestOption) *Anthropic {
	m := anthropic.ModelClaudeHaiku4_5
	if model != "" {
		m = anthropic.Model(model)
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	client := anthropic.NewClient(opts...)
	return &Anthropic{
		client: &client,
		model:  m,
	}
}

func (c *Anthropic) Name() string {
	return "anthropic"
}

func (c *Anthropic) Model() string {
	return string(c.model)
}

func (c *Anthropic) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: anthropicMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	text, err := cleanText(sb.String())
	if err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}
	return text, nil
}
