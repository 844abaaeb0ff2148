/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/valpere/contentgate/internal/config"
	"github.com/valpere/contentgate/internal/detector"
	"github.com/valpere/contentgate/internal/gate"
	"github.com/valpere/contentgate/internal/generation"
	"github.com/valpere/contentgate/internal/orchestrator"
	"github.com/valpere/contentgate/internal/store"
	"github.com/valpere/contentgate/internal/validator"
)

const defaultDBPath = "./data/contentgate.db"

// runFlags are shared by every command that runs the pipeline. Empty values
// fall back to the config file and environment.
type runFlags struct {
	profile  string
	mode     string
	keyword  string
	provider string
	model    string
	baseURL  string
	dbPath   string
	noSave   bool
}

func addRunFlags(cmd *cobra.Command, f *runFlags) {
	cmd.Flags().StringVarP(&f.profile, "profile", "p", "", "Content profile: blog, product_page, service_page, thought_leadership, knowledge_base (default blog)")
	cmd.Flags().StringVarP(&f.mode, "mode", "m", "", "Enforcement mode: strict or lite (default strict)")
	cmd.Flags().StringVarP(&f.keyword, "keyword", "k", "", "Primary keyword (default: front matter keyword)")
	cmd.Flags().StringVar(&f.provider, "provider", "", "Generation provider: openrouter, ollama or echo (default openrouter)")
	cmd.Flags().StringVar(&f.model, "model", "", "Model used for every stage (overrides the config file mapping)")
	cmd.Flags().StringVar(&f.baseURL, "base-url", "", "Provider base URL")
	cmd.Flags().StringVar(&f.dbPath, "db", "", "Database path for run history (default "+defaultDBPath+")")
	cmd.Flags().BoolVar(&f.noSave, "no-history", false, "Do not record the run in history")
}

// setting returns the flag value if set, else the viper key.
func setting(flag, key, def string) string {
	if flag != "" {
		return flag
	}
	if v := viper.GetString(key); v != "" {
		return v
	}
	return def
}

// buildConfig assembles the run configuration: profile defaults, then the
// config file and environment, then flags.
func buildConfig(f runFlags) (config.Config, error) {
	profile, err := config.ParseProfile(setting(f.profile, "profile", string(config.ProfileBlog)))
	if err != nil {
		return config.Config{}, err
	}
	mode, err := config.ParseMode(setting(f.mode, "mode", string(config.ModeStrict)))
	if err != nil {
		return config.Config{}, err
	}

	cfg := config.ForProfile(profile, mode)
	cfg.Keyword = setting(f.keyword, "keyword", "")

	for key, target := range map[string]any{
		"thresholds": &cfg.Thresholds,
		"generation": &cfg.Generation,
		"retry":      &cfg.Retry,
	} {
		if !viper.IsSet(key) {
			continue
		}
		if err := viper.UnmarshalKey(key, target); err != nil {
			return config.Config{}, fmt.Errorf("failed to read %s settings: %w", key, err)
		}
	}

	if model := setting("", "model", ""); model != "" {
		cfg.Models = config.DefaultModels(model)
	}
	for stage, model := range viper.GetStringMapString("models") {
		st := config.Stage(strings.ToLower(stage))
		if _, ok := cfg.Models[st]; !ok {
			return config.Config{}, fmt.Errorf("%w: unknown stage %q in models", config.ErrInvalid, stage)
		}
		cfg.Models[st] = model
	}
	if f.model != "" {
		cfg.Models = config.DefaultModels(f.model)
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// buildGenerator constructs the generation provider. The OpenRouter key is
// read from OPENROUTER_API_KEY and never printed.
func buildGenerator(f runFlags, cfg config.Config) (generation.Generator, error) {
	provider := setting(f.provider, "provider", "openrouter")
	baseURL := setting(f.baseURL, "base_url", "")

	opts := []generation.Option{generation.WithTimeout(cfg.Generation.Timeout)}
	if baseURL != "" {
		opts = append(opts, generation.WithBaseURL(baseURL))
	}

	switch provider {
	case "openrouter":
		key := os.Getenv("OPENROUTER_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("OPENROUTER_API_KEY is not set")
		}
		warnUncataloged(cfg)
		return generation.NewOpenRouter(key, opts...), nil
	case "ollama":
		return generation.NewOllama(opts...), nil
	case "echo":
		return generation.Echo{}, nil
	}
	return nil, fmt.Errorf("unknown provider %q (want openrouter, ollama or echo)", provider)
}

// warnUncataloged flags OpenRouter model ids outside the catalog. They are
// still used: OpenRouter adds models faster than the catalog is updated.
func warnUncataloged(cfg config.Config) {
	unknown := cfg.UncatalogedModels()
	for _, st := range config.Stages {
		if m, ok := unknown[st]; ok {
			fmt.Fprintf(os.Stderr, "Warning: model %q for %s is not in the catalog (see contentgate profiles --models)\n", m, st)
		}
	}
}

// buildOrchestrator wires the gates with language detection and rewrite
// validation.
func buildOrchestrator(gen generation.Generator) *orchestrator.Orchestrator {
	det := detector.New()
	return orchestrator.NewDefault(gate.Deps{
		Generator: gen,
		Validator: validator.New(det),
		Detector:  det,
	})
}

// openHistory opens the run history store, or returns nil when history is
// disabled.
func openHistory(f runFlags) (*store.Store, error) {
	if f.noSave {
		return nil, nil
	}
	path := setting(f.dbPath, "db", defaultDBPath)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	return store.New(path)
}
