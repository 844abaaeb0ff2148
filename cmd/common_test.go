package cmd

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/contentgate/internal/config"
	"github.com/valpere/contentgate/internal/generation"
	"github.com/valpere/contentgate/internal/render"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestBuildConfig_Defaults(t *testing.T) {
	resetViper(t)

	cfg, err := buildConfig(runFlags{})
	require.NoError(t, err)

	assert.Equal(t, config.ProfileBlog, cfg.Profile)
	assert.Equal(t, config.ModeStrict, cfg.Mode)
	assert.Equal(t, config.DefaultThresholds(), cfg.Thresholds)
	assert.Equal(t, config.DefaultModel, cfg.ModelFor(config.StageStylist))
}

func TestBuildConfig_FileOverlay(t *testing.T) {
	resetViper(t)
	viper.Set("profile", "knowledge_base")
	viper.Set("mode", "lite")
	viper.Set("thresholds", map[string]any{"chunk_max_words": 320, "min_citation_year": 2024})
	viper.Set("retry", map[string]any{"max_retries": 4, "base_delay": "250ms"})
	viper.Set("models", map[string]any{"stylist": "openai/gpt-4.1-mini"})

	cfg, err := buildConfig(runFlags{})
	require.NoError(t, err)

	assert.Equal(t, config.ProfileKnowledgeBase, cfg.Profile)
	assert.Equal(t, config.ModeLite, cfg.Mode)
	assert.Equal(t, 320, cfg.Thresholds.ChunkMaxWords)
	assert.Equal(t, 2024, cfg.Thresholds.MinCitationYear)
	assert.Equal(t, "medium", cfg.Thresholds.SVOPreference, "profile overrides survive a partial overlay")
	assert.Equal(t, 4, cfg.Retry.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.BaseDelay)
	assert.Equal(t, "openai/gpt-4.1-mini", cfg.ModelFor(config.StageStylist))
	assert.Equal(t, config.DefaultModel, cfg.ModelFor(config.StageStrategist))
}

func TestBuildConfig_FlagsWin(t *testing.T) {
	resetViper(t)
	viper.Set("profile", "knowledge_base")
	viper.Set("models", map[string]any{"stylist": "openai/gpt-4.1-mini"})

	cfg, err := buildConfig(runFlags{profile: "product_page", mode: "lite", keyword: "crm pricing", model: "qwen/qwen-turbo"})
	require.NoError(t, err)

	assert.Equal(t, config.ProfileProductPage, cfg.Profile)
	assert.Equal(t, "crm pricing", cfg.Keyword)
	for _, st := range config.Stages {
		assert.Equal(t, "qwen/qwen-turbo", cfg.ModelFor(st))
	}
}

func TestBuildConfig_Invalid(t *testing.T) {
	resetViper(t)

	_, err := buildConfig(runFlags{profile: "newsletter"})
	assert.ErrorIs(t, err, config.ErrInvalid)

	_, err = buildConfig(runFlags{mode: "loose"})
	assert.ErrorIs(t, err, config.ErrInvalid)

	viper.Set("models", map[string]any{"editor": "x"})
	_, err = buildConfig(runFlags{})
	assert.ErrorIs(t, err, config.ErrInvalid)

	viper.Reset()
	viper.Set("thresholds", map[string]any{"chunk_min_words": 500, "chunk_max_words": 100})
	_, err = buildConfig(runFlags{})
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestBuildGenerator(t *testing.T) {
	resetViper(t)
	cfg := config.Default()

	gen, err := buildGenerator(runFlags{provider: "echo"}, cfg)
	require.NoError(t, err)
	assert.Equal(t, "echo", gen.Name())

	gen, err = buildGenerator(runFlags{provider: "ollama"}, cfg)
	require.NoError(t, err)
	assert.IsType(t, &generation.Ollama{}, gen)

	t.Setenv("OPENROUTER_API_KEY", "")
	_, err = buildGenerator(runFlags{provider: "openrouter"}, cfg)
	assert.ErrorContains(t, err, "OPENROUTER_API_KEY")

	t.Setenv("OPENROUTER_API_KEY", "sk-test")
	gen, err = buildGenerator(runFlags{}, cfg)
	require.NoError(t, err)
	assert.Equal(t, "openrouter", gen.Name())

	_, err = buildGenerator(runFlags{provider: "bedrock"}, cfg)
	assert.Error(t, err)
}

func TestOutputFormat(t *testing.T) {
	tests := []struct {
		flag, output string
		want         render.Format
	}{
		{"", "", render.FormatMarkdown},
		{"", "report.html", render.FormatHTML},
		{"", "report.yml", render.FormatYAML},
		{"", "report.txt", render.FormatMarkdown},
		{"json", "report.html", render.FormatJSON},
	}
	for _, tt := range tests {
		got, err := outputFormat(tt.flag, tt.output)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "flag=%q output=%q", tt.flag, tt.output)
	}

	_, err := outputFormat("pdf", "")
	assert.Error(t, err)
}
