package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	for _, p := range Profiles {
		for _, m := range []Mode{ModeStrict, ModeLite} {
			cfg := ForProfile(p, m)
			assert.NoError(t, cfg.Validate(), "profile %s mode %s", p, m)
		}
	}
}

func TestThresholdsFor_ProfileOverrides(t *testing.T) {
	blog := ThresholdsFor(ProfileBlog)
	assert.Equal(t, 75, blog.ChunkMinWords)
	assert.Equal(t, 250, blog.ChunkMaxWords)
	assert.True(t, blog.RequireH2Questions)

	tl := ThresholdsFor(ProfileThoughtLeadership)
	assert.False(t, tl.RequireH2Questions)
	assert.Equal(t, 300, tl.ChunkMaxWords)

	product := ThresholdsFor(ProfileProductPage)
	assert.False(t, product.RequireAnswerFirstIntro)
	assert.Equal(t, 50, product.ChunkMinWords)

	kb := ThresholdsFor(ProfileKnowledgeBase)
	assert.Equal(t, "medium", kb.SVOPreference)
	assert.False(t, kb.RequireH2Questions)
}

func TestValidate_MissingStageModel(t *testing.T) {
	cfg := Default()
	delete(cfg.Models, StageStylist)

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))

	var cerr *Error
	require.True(t, errors.As(err, &cerr))
	assert.Contains(t, cerr.Error(), "models.stylist")
}

func TestValidate_ThresholdRanges(t *testing.T) {
	cfg := Default()
	cfg.Thresholds.ChunkMaxWords = 10
	cfg.Thresholds.MetaMaxChars = 100
	cfg.Retry.BaseDelay = 0

	err := cfg.Validate()
	require.Error(t, err)

	var cerr *Error
	require.True(t, errors.As(err, &cerr))
	assert.Len(t, cerr.Problems, 3)
	assert.Contains(t, err.Error(), "Thresholds.ChunkMaxWords")
	assert.Contains(t, err.Error(), "Thresholds.MetaMaxChars")
}

func TestValidate_UnknownModeAndProfile(t *testing.T) {
	cfg := Default()
	cfg.Mode = "relaxed"
	cfg.Profile = "newsletter"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Mode")
	assert.Contains(t, err.Error(), "Profile")
}

func TestParseProfile(t *testing.T) {
	tests := []struct {
		in   string
		want Profile
	}{
		{"blog", ProfileBlog},
		{"Blog Post", ProfileBlog},
		{"Product Page", ProfileProductPage},
		{"thought-leadership", ProfileThoughtLeadership},
		{"KNOWLEDGE_BASE", ProfileKnowledgeBase},
	}
	for _, tt := range tests {
		got, err := ParseProfile(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseProfile("landing")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("Lite")
	require.NoError(t, err)
	assert.Equal(t, ModeLite, m)

	_, err = ParseMode("loose")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestClone_DoesNotShareModels(t *testing.T) {
	cfg := Default()
	cp := cfg.Clone()
	cp.Models[StageStylist] = "openai/gpt-4.1-mini"

	assert.Equal(t, DefaultModel, cfg.ModelFor(StageStylist))
	assert.Equal(t, "openai/gpt-4.1-mini", cp.ModelFor(StageStylist))
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 2, cfg.Retry.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.BaseDelay)
	assert.InDelta(t, 0.2, cfg.Generation.Temperature, 1e-9)
	assert.Equal(t, 2048, cfg.Generation.MaxTokens)
	assert.Len(t, cfg.Models, len(Stages))
	assert.Equal(t, "Chunk Optimizer", StageChunkOptimizer.Title())
}

func TestUncatalogedModels(t *testing.T) {
	cfg := Default()
	assert.Empty(t, cfg.UncatalogedModels())

	cfg.Models[StageStylist] = "acme/unknown-model"
	assert.Equal(t, map[Stage]string{StageStylist: "acme/unknown-model"}, cfg.UncatalogedModels())
	assert.NoError(t, cfg.Validate(), "ids outside the catalog stay valid")
}
