package briefing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/LJTian/DailyBriefing/internal/config"
)

// ErrEmptyResponse is returned when the model answers with no usable text.
var ErrEmptyResponse = errors.New("model returned empty text")

// Provider is a generative-text backend. One Generate call per run.
type Provider interface {
	Name() string
	Model() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// NewProvider builds the backend selected by cfg.LLMProvider.
func NewProvider(cfg *config.Config) (Provider, error) {
	key := cfg.APIKey()
	if key == "" {
		return nil, fmt.Errorf("briefing: no API key for provider %q", cfg.LLMProvider)
	}
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		opts := []GeminiOption{WithGeminiTimeout(cfg.LLMTimeout)}
		if cfg.LLMModel != "" {
			opts = append(opts, WithGeminiModel(cfg.LLMModel))
		}
		return NewGemini(key, opts...), nil
	case config.ProviderOpenAI:
		return NewOpenAI(key, cfg.LLMModel), nil
	case config.ProviderAnthropic:
		return NewAnthropic(key, cfg.LLMModel), nil
	}
	return nil, fmt.Errorf("briefing: unknown provider %q", cfg.LLMProvider)
}

func cleanText(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyResponse
	}
	return s, nil
}
