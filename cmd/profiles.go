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
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/contentgate/internal/config"
)

var profilesModels bool

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List content profiles and their thresholds",
	Long: `List the content profiles with the rule thresholds each one applies.

Thresholds can be overridden in the config file under "thresholds", for
example:

  thresholds:
    chunk_max_words: 300
    min_citation_year: 2023`,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprint(w, "THRESHOLD")
		for _, p := range config.Profiles {
			fmt.Fprintf(w, "\t%s", p)
		}
		fmt.Fprintln(w)

		rows := []struct {
			name  string
			value func(config.Thresholds) any
		}{
			{"require_h2_questions", func(t config.Thresholds) any { return t.RequireH2Questions }},
			{"require_answer_first_intro", func(t config.Thresholds) any { return t.RequireAnswerFirstIntro }},
			{"require_faq", func(t config.Thresholds) any { return t.RequireFAQ }},
			{"evidence_density_check", func(t config.Thresholds) any { return t.EvidenceDensityCheck }},
			{"svo_preference", func(t config.Thresholds) any { return t.SVOPreference }},
			{"intro_min_words", func(t config.Thresholds) any { return t.IntroMinWords }},
			{"intro_max_words", func(t config.Thresholds) any { return t.IntroMaxWords }},
			{"min_faq_entries", func(t config.Thresholds) any { return t.MinFAQEntries }},
			{"chunk_min_words", func(t config.Thresholds) any { return t.ChunkMinWords }},
			{"chunk_max_words", func(t config.Thresholds) any { return t.ChunkMaxWords }},
			{"min_aec_sentences", func(t config.Thresholds) any { return t.MinAECSentences }},
			{"max_sentence_words", func(t config.Thresholds) any { return t.MaxSentenceWords }},
			{"min_citation_year", func(t config.Thresholds) any { return t.MinCitationYear }},
			{"title_max_chars", func(t config.Thresholds) any { return t.TitleMaxChars }},
			{"meta_min_chars", func(t config.Thresholds) any { return t.MetaMinChars }},
			{"meta_max_chars", func(t config.Thresholds) any { return t.MetaMaxChars }},
			{"max_rewrites_per_stage", func(t config.Thresholds) any { return t.MaxRewritesPerStage }},
		}
		for _, r := range rows {
			fmt.Fprint(w, r.name)
			for _, p := range config.Profiles {
				fmt.Fprintf(w, "\t%v", r.value(config.ThresholdsFor(p)))
			}
			fmt.Fprintln(w)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		if profilesModels {
			fmt.Printf("\nDefault model: %s\n\nAvailable models:\n", config.DefaultModel)
			for _, m := range config.Catalog {
				fmt.Printf("  %s\n", m)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profilesCmd)

	profilesCmd.Flags().BoolVar(&profilesModels, "models", false, "Also list the model catalog")
}
