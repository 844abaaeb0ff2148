// Package config holds the run configuration consumed by the pipeline:
// content profile, enforcement mode, per-stage model catalog, rule thresholds,
// generation parameters and retry policy. A Config is a plain value; callers
// build one per run and pass it down explicitly.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Stage names a gate in the pipeline.
type Stage string

const (
	StageStrategist        Stage = "strategist"
	StageChunkOptimizer    Stage = "chunk_optimizer"
	StageStylist           Stage = "stylist"
	StageAuthorityBuilder  Stage = "authority_builder"
	StageMetadataOptimizer Stage = "metadata_optimizer"
)

// Stages is the fixed execution order of the pipeline.
var Stages = []Stage{
	StageStrategist,
	StageChunkOptimizer,
	StageStylist,
	StageAuthorityBuilder,
	StageMetadataOptimizer,
}

// Title returns the human label of a stage.
func (s Stage) Title() string {
	switch s {
	case StageStrategist:
		return "Strategist"
	case StageChunkOptimizer:
		return "Chunk Optimizer"
	case StageStylist:
		return "Stylist"
	case StageAuthorityBuilder:
		return "Authority Builder"
	case StageMetadataOptimizer:
		return "Metadata Optimizer"
	}
	return string(s)
}

type Profile string

const (
	ProfileBlog              Profile = "blog"
	ProfileProductPage       Profile = "product_page"
	ProfileServicePage       Profile = "service_page"
	ProfileThoughtLeadership Profile = "thought_leadership"
	ProfileKnowledgeBase     Profile = "knowledge_base"
)

var Profiles = []Profile{
	ProfileBlog,
	ProfileProductPage,
	ProfileServicePage,
	ProfileThoughtLeadership,
	ProfileKnowledgeBase,
}

func (p Profile) Title() string {
	switch p {
	case ProfileBlog:
		return "Blog Post"
	case ProfileProductPage:
		return "Product Page"
	case ProfileServicePage:
		return "Service Page"
	case ProfileThoughtLeadership:
		return "Thought Leadership"
	case ProfileKnowledgeBase:
		return "Knowledge Base"
	}
	return string(p)
}

// ParseProfile accepts either the identifier ("product_page") or the label
// ("Product Page"), case-insensitively.
func ParseProfile(s string) (Profile, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	if key == "blog_post" {
		key = string(ProfileBlog)
	}
	for _, p := range Profiles {
		if string(p) == key {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: unknown profile %q", ErrInvalid, s)
}

// Mode is the enforcement mode applied by the orchestrator.
type Mode string

const (
	ModeStrict Mode = "strict"
	ModeLite   Mode = "lite"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeStrict:
		return ModeStrict, nil
	case ModeLite:
		return ModeLite, nil
	}
	return "", fmt.Errorf("%w: unknown mode %q", ErrInvalid, s)
}

// Thresholds are the rule values the gates check against.
type Thresholds struct {
	RequireH2Questions      bool   `mapstructure:"require_h2_questions" json:"require_h2_questions" yaml:"require_h2_questions"`
	RequireAnswerFirstIntro bool   `mapstructure:"require_answer_first_intro" json:"require_answer_first_intro" yaml:"require_answer_first_intro"`
	RequireFAQ              bool   `mapstructure:"require_faq" json:"require_faq" yaml:"require_faq"`
	EvidenceDensityCheck    bool   `mapstructure:"evidence_density_check" json:"evidence_density_check" yaml:"evidence_density_check"`
	SVOPreference           string `mapstructure:"svo_preference" json:"svo_preference" yaml:"svo_preference" validate:"oneof=high medium low"`

	IntroMinWords int `mapstructure:"intro_min_words" json:"intro_min_words" yaml:"intro_min_words" validate:"gte=1"`
	IntroMaxWords int `mapstructure:"intro_max_words" json:"intro_max_words" yaml:"intro_max_words" validate:"gtefield=IntroMinWords"`
	MinFAQEntries int `mapstructure:"min_faq_entries" json:"min_faq_entries" yaml:"min_faq_entries" validate:"gte=0"`

	ChunkMinWords   int `mapstructure:"chunk_min_words" json:"chunk_min_words" yaml:"chunk_min_words" validate:"gte=1"`
	ChunkMaxWords   int `mapstructure:"chunk_max_words" json:"chunk_max_words" yaml:"chunk_max_words" validate:"gtfield=ChunkMinWords"`
	MinAECSentences int `mapstructure:"min_aec_sentences" json:"min_aec_sentences" yaml:"min_aec_sentences" validate:"gte=1"`

	MaxSentenceWords int `mapstructure:"max_sentence_words" json:"max_sentence_words" yaml:"max_sentence_words" validate:"gte=5"`
	MinCitationYear  int `mapstructure:"min_citation_year" json:"min_citation_year" yaml:"min_citation_year" validate:"gte=1990,lte=2100"`

	TitleMaxChars int `mapstructure:"title_max_chars" json:"title_max_chars" yaml:"title_max_chars" validate:"gte=10"`
	MetaMinChars  int `mapstructure:"meta_min_chars" json:"meta_min_chars" yaml:"meta_min_chars" validate:"gte=1"`
	MetaMaxChars  int `mapstructure:"meta_max_chars" json:"meta_max_chars" yaml:"meta_max_chars" validate:"gtfield=MetaMinChars"`

	MaxRewritesPerStage int `mapstructure:"max_rewrites_per_stage" json:"max_rewrites_per_stage" yaml:"max_rewrites_per_stage" validate:"gte=1,lte=50"`
}

// GenerationParams are forwarded to every generation call.
type GenerationParams struct {
	Temperature float64       `mapstructure:"temperature" json:"temperature" yaml:"temperature" validate:"gte=0,lte=2"`
	TopP        float64       `mapstructure:"top_p" json:"top_p" yaml:"top_p" validate:"gte=0,lte=1"`
	MaxTokens   int           `mapstructure:"max_tokens" json:"max_tokens" yaml:"max_tokens" validate:"gte=16"`
	Timeout     time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout" validate:"gt=0"`
}

// RetryPolicy governs retries of transient generation failures inside a gate.
type RetryPolicy struct {
	MaxRetries int           `mapstructure:"max_retries" json:"max_retries" yaml:"max_retries" validate:"gte=0,lte=10"`
	BaseDelay  time.Duration `mapstructure:"base_delay" json:"base_delay" yaml:"base_delay" validate:"gt=0"`
	MaxDelay   time.Duration `mapstructure:"max_delay" json:"max_delay" yaml:"max_delay" validate:"gtefield=BaseDelay"`
}

// Config is the full input of one pipeline run.
type Config struct {
	Profile    Profile          `mapstructure:"profile" json:"profile" yaml:"profile" validate:"required,oneof=blog product_page service_page thought_leadership knowledge_base"`
	Mode       Mode             `mapstructure:"mode" json:"mode" yaml:"mode" validate:"required,oneof=strict lite"`
	Keyword    string           `mapstructure:"keyword" json:"keyword,omitempty" yaml:"keyword,omitempty" validate:"max=120"`
	Models     map[Stage]string `mapstructure:"models" json:"models" yaml:"models" validate:"required"`
	Thresholds Thresholds       `mapstructure:"thresholds" json:"thresholds" yaml:"thresholds"`
	Generation GenerationParams `mapstructure:"generation" json:"generation" yaml:"generation"`
	Retry      RetryPolicy      `mapstructure:"retry" json:"retry" yaml:"retry"`
}

// ModelFor returns the model mapped to stage.
func (c Config) ModelFor(stage Stage) string {
	return c.Models[stage]
}

// Clone returns a copy that shares no map with c.
func (c Config) Clone() Config {
	out := c
	out.Models = make(map[Stage]string, len(c.Models))
	for k, v := range c.Models {
		out.Models[k] = v
	}
	return out
}
