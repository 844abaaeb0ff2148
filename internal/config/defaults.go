package config

import "time"

// DefaultModel is used for every stage unless overridden.
const DefaultModel = "google/gemini-3-pro-preview"

// Catalog lists the OpenRouter model identifiers offered for stage mapping.
var Catalog = []string{
	"openai/gpt-5.1",
	"openai/gpt-4.1-mini",
	"anthropic/claude-sonnet-4.5",
	"google/gemini-3-pro-preview",
	"google/gemini-2.5-flash-preview-09-2025",
	"x-ai/grok-4.1-fast",
	"qwen/qwen-turbo",
	"meta-llama/llama-4-maverick",
	"qwen/qwen3-vl-8b-thinking",
}

// DefaultThresholds is the base rule set every profile starts from.
func DefaultThresholds() Thresholds {
	return Thresholds{
		RequireH2Questions:      true,
		RequireAnswerFirstIntro: true,
		RequireFAQ:              true,
		EvidenceDensityCheck:    true,
		SVOPreference:           "high",

		IntroMinWords: 30,
		IntroMaxWords: 60,
		MinFAQEntries: 3,

		ChunkMinWords:   75,
		ChunkMaxWords:   250,
		MinAECSentences: 3,

		MaxSentenceWords: 30,
		MinCitationYear:  2022,

		TitleMaxChars: 60,
		MetaMinChars:  140,
		MetaMaxChars:  160,

		MaxRewritesPerStage: 5,
	}
}

// ThresholdsFor applies the profile overrides on top of DefaultThresholds.
func ThresholdsFor(p Profile) Thresholds {
	t := DefaultThresholds()
	switch p {
	case ProfileThoughtLeadership:
		t.RequireH2Questions = false
		t.ChunkMaxWords = 300
	case ProfileProductPage:
		t.RequireAnswerFirstIntro = false
		t.ChunkMinWords = 50
		t.RequireFAQ = true
	case ProfileKnowledgeBase:
		t.RequireH2Questions = false
		t.SVOPreference = "medium"
	}
	return t
}

func DefaultGeneration() GenerationParams {
	return GenerationParams{
		Temperature: 0.2,
		TopP:        0.95,
		MaxTokens:   2048,
		Timeout:     60 * time.Second,
	}
}

func DefaultRetry() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 2,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   8 * time.Second,
	}
}

// DefaultModels maps every stage to model.
func DefaultModels(model string) map[Stage]string {
	if model == "" {
		model = DefaultModel
	}
	m := make(map[Stage]string, len(Stages))
	for _, s := range Stages {
		m[s] = model
	}
	return m
}

// Default returns the blog profile in strict mode.
func Default() Config {
	return ForProfile(ProfileBlog, ModeStrict)
}

// ForProfile returns a complete configuration for profile and mode.
func ForProfile(p Profile, m Mode) Config {
	return Config{
		Profile:    p,
		Mode:       m,
		Models:     DefaultModels(""),
		Thresholds: ThresholdsFor(p),
		Generation: DefaultGeneration(),
		Retry:      DefaultRetry(),
	}
}
