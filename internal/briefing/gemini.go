package briefing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/LJTian/DailyBriefing/internal/logging"
)

const (
	defaultGeminiModel   = "gemini-1.5-flash"
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	geminiMaxErrorBytes  = 2048
	geminiMaxRespBytes   = 4 << 20
)

// Gemini calls the Generative Language REST API.
type Gemini struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

type GeminiOption func(*Gemini)

func WithGeminiModel(model string) GeminiOption {
	return func(g *Gemini) {
		g.model = model
	}
}

// WithGeminiBaseURL points the client at another host (used by tests).
func WithGeminiBaseURL(url string) GeminiOption {
	return func(g *Gemini) {
		g.baseURL = strings.TrimRight(url, "/")
	}
}

func WithGeminiTimeout(d time.Duration) GeminiOption {
	return func(g *Gemini) {
		if d > 0 {
			g.httpClient.Timeout = d
		}
	}
}

func NewGemini(apiKey string, opts ...GeminiOption) *Gemini {
	g := &Gemini{
		apiKey:     apiKey,
		model:      defaultGeminiModel,
		baseURL:    defaultGeminiBaseURL,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gemini) Name() string {
	return "gemini"
}

func (g *Gemini) Model() string {
	return g.model
}

func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("gemini: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("gemini: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	logging.Debug("gemini request", "model", g.model, "prompt_len", len(prompt))

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, geminiMaxErrorBytes))
		return "", fmt.Errorf("gemini: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out geminiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, geminiMaxRespBytes)).Decode(&out); err != nil {
		return "", fmt.Errorf("gemini: decode response: %w", err)
	}

	if len(out.Candidates) == 0 {
		if out.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("gemini: prompt blocked: %s", out.PromptFeedback.BlockReason)
		}
		return "", fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}

	cand := out.Candidates[0]
	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		sb.WriteString(p.Text)
	}
	if cand.FinishReason == "MAX_TOKENS" {
		logging.Warn("gemini response truncated", "model", g.model)
	}

	text, err := cleanText(sb.String())
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	return text, nil
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}
