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
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/contentgate/internal/logger"
	"github.com/valpere/contentgate/internal/orchestrator"
	"github.com/valpere/contentgate/internal/render"
)

var (
	batchFlags       runFlags
	batchOutDir      string
	batchFormat      string
	batchConcurrency int
	batchDocuments   bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <file>...",
	Short: "Optimize several documents concurrently",
	Long: `Run each input document through the content gates, at most --concurrency
runs at a time, and write one report per document into --out-dir.

Report files are named after the input file with the format extension. With
--documents the optimized markdown is written next to each report as
<name>.optimized.md.

The command exits non-zero if any document halted or failed.

Example:
  contentgate batch docs/*.md --out-dir reports --format html --concurrency 4`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := logger.FromContext(ctx)

		cfg, err := buildConfig(batchFlags)
		if err != nil {
			return err
		}
		format, err := render.ParseFormat(batchFormat)
		if err != nil {
			return err
		}

		inputs := make([]orchestrator.Input, 0, len(args))
		seen := make(map[string]string, len(args))
		for _, path := range args {
			text, err := readInput(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			if prev, dup := seen[name]; dup {
				return fmt.Errorf("%s and %s would write the same report name %q", prev, path, name)
			}
			seen[name] = path
			inputs = append(inputs, orchestrator.Input{Name: name, Text: text})
		}

		db, err := openHistory(batchFlags)
		if err != nil {
			return err
		}
		if db != nil {
			defer db.Close()
		}

		gen, err := buildGenerator(batchFlags, cfg)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(batchOutDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		fmt.Fprintf(os.Stderr, "Optimizing %d documents (concurrency %d)\n", len(inputs), batchConcurrency)
		results := buildOrchestrator(gen).RunBatch(ctx, inputs, cfg, batchConcurrency)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DOCUMENT\tSTATUS\tSTAGES\tWARNINGS\tREPORT\tREASON")

		failed := 0
		for _, r := range results {
			if r.Report == nil || len(r.Report.Results) == 0 {
				failed++
				fmt.Fprintf(w, "%s\t%s\t0\t0\t-\t%v\n", r.Name, "error", r.Err)
				continue
			}
			rep := r.Report

			if db != nil && ctx.Err() == nil {
				if err := db.SaveRun(ctx, rep.Record()); err != nil {
					log.Warn("failed to record run", "document", r.Name, "err", err)
				}
			}

			out := filepath.Join(batchOutDir, r.Name+format.Ext())
			if err := writeReport(out, rep, format); err != nil {
				return err
			}
			if batchDocuments {
				doc := filepath.Join(batchOutDir, r.Name+".optimized.md")
				if err := writeOutput(doc, []byte(rep.Markdown)); err != nil {
					return err
				}
			}

			if rep.Halted || r.Err != nil {
				failed++
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
				r.Name, rep.Status(), len(rep.Results), len(rep.Warnings), out, rep.Reason)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d documents halted or failed", failed, len(results))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVar(&batchOutDir, "out-dir", "./reports", "Directory for the reports")
	batchCmd.Flags().StringVarP(&batchFormat, "format", "f", "json", "Report format: json, yaml, markdown or html")
	batchCmd.Flags().IntVarP(&batchConcurrency, "concurrency", "c", 4, "Maximum number of documents optimized at once")
	batchCmd.Flags().BoolVar(&batchDocuments, "documents", false, "Also write the optimized markdown of each document")
	addRunFlags(batchCmd, &batchFlags)
}

func writeReport(path string, rep *orchestrator.Report, f render.Format) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := render.Write(file, rep, f); err != nil {
		file.Close()
		return fmt.Errorf("failed to render %s: %w", path, err)
	}
	return file.Close()
}
