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
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/contentgate/internal/config"
	"github.com/valpere/contentgate/internal/gate"
	"github.com/valpere/contentgate/internal/logger"
	"github.com/valpere/contentgate/internal/orchestrator"
	"github.com/valpere/contentgate/internal/render"
)

const (
	emitReport   = "report"
	emitDocument = "document"
)

var (
	optFlags      runFlags
	optInputFile  string
	optOutputFile string
	optFormat     string
	optEmit       string
	optReuse      bool
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Run a document through the content gates",
	Long: `Run a markdown document through the five content gates and write the report.

In strict mode the run halts at the first failing gate; the partial report is
still written and the command exits non-zero. In lite mode every gate runs and
failures are recorded as warnings.

Use --emit document to write only the optimized markdown. With --reuse, a
passed run of the same text, profile and mode found in history is returned
without calling the provider.

Examples:
  contentgate optimize -i draft.md -o report.html
  contentgate optimize -i draft.md --profile knowledge_base --mode lite --format yaml
  contentgate optimize -i draft.md --emit document -o optimized.md --reuse`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if optInputFile == optOutputFile && optOutputFile != "" {
			return fmt.Errorf("input file and output file cannot be the same")
		}
		if optEmit != emitReport && optEmit != emitDocument {
			return fmt.Errorf("unknown --emit %q (want report or document)", optEmit)
		}
		if optReuse && optEmit != emitDocument {
			return fmt.Errorf("--reuse requires --emit document")
		}

		ctx := cmd.Context()
		log := logger.FromContext(ctx)

		text, err := readInput(optInputFile)
		if err != nil {
			return err
		}

		cfg, err := buildConfig(optFlags)
		if err != nil {
			return err
		}

		format, err := outputFormat(optFormat, optOutputFile)
		if err != nil {
			return err
		}

		db, err := openHistory(optFlags)
		if err != nil {
			return err
		}
		if db != nil {
			defer db.Close()
		}

		if optReuse && db != nil {
			if rec, found, err := db.LatestPassed(ctx, text, string(cfg.Profile), string(cfg.Mode)); err == nil && found {
				fmt.Fprintf(os.Stderr, "Using optimized text from run %s\n", rec.ID)
				return writeOutput(optOutputFile, []byte(rec.Output))
			} else if err != nil {
				log.Warn("history lookup failed", "err", err)
			}
		}

		gen, err := buildGenerator(optFlags, cfg)
		if err != nil {
			return err
		}

		rep, runErr := buildOrchestrator(gen).Run(ctx, text, cfg)
		if rep == nil {
			return runErr
		}

		if db != nil && ctx.Err() == nil {
			if err := db.SaveRun(ctx, rep.Record()); err != nil {
				log.Warn("failed to record run", "run_id", rep.RunID, "err", err)
			}
		}

		var out []byte
		if optEmit == emitDocument {
			out = []byte(rep.Markdown)
		} else {
			s, err := render.String(rep, format)
			if err != nil {
				return fmt.Errorf("failed to render report: %w", err)
			}
			out = []byte(s)
		}
		if err := writeOutput(optOutputFile, out); err != nil {
			return err
		}

		printSummary(os.Stderr, rep)

		if runErr != nil {
			return runErr
		}
		if rep.Halted {
			return fmt.Errorf("run halted: %s", rep.Reason)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(optimizeCmd)

	optimizeCmd.Flags().StringVarP(&optInputFile, "input", "i", "", "Input markdown file, - for stdin (required)")
	optimizeCmd.Flags().StringVarP(&optOutputFile, "output", "o", "", "Output file (default stdout)")
	optimizeCmd.Flags().StringVarP(&optFormat, "format", "f", "", "Report format: json, yaml, markdown or html (default from output extension, else markdown)")
	optimizeCmd.Flags().StringVar(&optEmit, "emit", emitReport, "What to write: report or document")
	optimizeCmd.Flags().BoolVar(&optReuse, "reuse", false, "Reuse a passed run of the same text from history")
	addRunFlags(optimizeCmd, &optFlags)

	optimizeCmd.MarkFlagRequired("input")
}

func readInput(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read input file: %w", err)
	}
	return string(data), nil
}

// outputFormat resolves --format, falling back to the output file extension
// and then to markdown.
func outputFormat(flag, output string) (render.Format, error) {
	if flag != "" {
		return render.ParseFormat(flag)
	}
	if ext := filepath.Ext(output); ext != "" {
		if f, err := render.ParseFormat(ext); err == nil {
			return f, nil
		}
	}
	return render.FormatMarkdown, nil
}

func writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

func printSummary(w io.Writer, rep *orchestrator.Report) {
	fmt.Fprintf(w, "Run %s: %s (%d/%d stages, %s, %s %d/100)\n", rep.RunID, rep.Status(), len(rep.Results), len(config.Stages),
		rep.Duration.Round(time.Millisecond), gate.ScoreLabel, rep.Score())
	for _, res := range rep.Results {
		fmt.Fprintf(w, "  %-18s %-9s score=%d findings=%d rewrites=%d attempts=%d\n",
			res.Stage.Title(), res.Verdict, res.Score.Value, len(res.Findings), len(res.Rewrites), res.Attempts)
	}
	for _, msg := range rep.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", msg)
	}
	if rep.Halted {
		fmt.Fprintf(w, "Halted: %s\n", rep.Reason)
	}
}
