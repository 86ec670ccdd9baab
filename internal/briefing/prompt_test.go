package briefing

import (
	"strings"
	"testing"
	"time"

	"github.com/LJTian/DailyBriefing/internal/collector"
	"github.com/LJTian/DailyBriefing/internal/config"
	"github.com/LJTian/DailyBriefing/internal/processor"
)

var testDate = time.Date(2026, 10, 19, 7, 30, 0, 0, time.UTC)

func sampleBuckets() processor.Buckets {
	return processor.Buckets{
		General: []collector.Entry{
			{Title: "Markets rally", URL: "https://news.example/1", Summary: "Stocks rose.", Label: config.LabelGeneral},
			{Title: "Storm hits coast", URL: "https://news.example/2", Label: config.LabelGeneral},
		},
		AI: []collector.Entry{
			{Title: "New open model", URL: "https://ai.example/1", Label: config.LabelAI},
		},
	}
}

func TestBuildPromptDeterministic(t *testing.T) {
	a := BuildPrompt(testDate, sampleBuckets())
	b := BuildPrompt(testDate, sampleBuckets())
	if a != b {
		t.Fatalf("prompt should be identical for identical input")
	}
}

func TestBuildPromptContainsBothSections(t *testing.T) {
	p := BuildPrompt(testDate, sampleBuckets())

	for _, want := range []string{
		"Monday, October 19, 2026",
		"Why it matters:",
		"General headlines:\n- Markets rally (https://news.example/1)\n  Stocks rose.\n- Storm hits coast (https://news.example/2)\n",
		"AI/tech headlines:\n- New open model (https://ai.example/1)\n",
	} {
		if !strings.Contains(p, want) {
			t.Fatalf("prompt missing %q:\n%s", want, p)
		}
	}

	gi := strings.Index(p, "General headlines:")
	ai := strings.Index(p, "AI/tech headlines:")
	if gi < 0 || ai < gi {
		t.Fatalf("general section should come before AI section")
	}
	if strings.Contains(p[gi:ai], "New open model") {
		t.Fatalf("AI entry leaked into the general section")
	}
}

func TestBuildPromptEmptyBuckets(t *testing.T) {
	p := BuildPrompt(testDate, processor.Buckets{})
	if strings.Count(p, "- (none)") != 2 {
		t.Fatalf("both empty sections should render as (none):\n%s", p)
	}
}

func TestGreeting(t *testing.T) {
	got := Greeting(testDate)
	want := "## Your Morning Briefing: Monday, October 19, 2026\n"
	if got != want {
		t.Fatalf("Greeting = %q, want %q", got, want)
	}
}

func TestNewProviderSelection(t *testing.T) {
	cases := []struct {
		cfg      config.Config
		wantName string
		wantErr  bool
	}{
		{config.Config{LLMProvider: config.ProviderGemini, GeminiAPIKey: "k"}, "gemini", false},
		{config.Config{LLMProvider: config.ProviderOpenAI, OpenAIAPIKey: "k"}, "openai", false},
		{config.Config{LLMProvider: config.ProviderAnthropic, AnthropicAPIKey: "k"}, "anthropic", false},
		{config.Config{LLMProvider: config.ProviderOpenAI, GeminiAPIKey: "k"}, "", true},
		{config.Config{LLMProvider: "mistral"}, "", true},
	}

	for _, c := range cases {
		cfg := c.cfg
		p, err := NewProvider(&cfg)
		if (err != nil) != c.wantErr {
			t.Fatalf("NewProvider(%s) err = %v, wantErr %v", c.cfg.LLMProvider, err, c.wantErr)
		}
		if err == nil && p.Name() != c.wantName {
			t.Fatalf("NewProvider(%s).Name() = %q", c.cfg.LLMProvider, p.Name())
		}
	}
}

func TestNewProviderModelOverride(t *testing.T) {
	cfg := config.Config{LLMProvider: config.ProviderGemini, GeminiAPIKey: "k", LLMModel: "gemini-2.0-flash"}
	p, err := NewProvider(&cfg)
	if err != nil {
		t.Fatalf("NewProvider error: %v", err)
	}
	if p.Model() != "gemini-2.0-flash" {
		t.Fatalf("Model = %q", p.Model())
	}
}
