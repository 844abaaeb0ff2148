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
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/contentgate/internal/store"
)

var (
	historyDBPath string
	historyLimit  int
	historyOutput bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and manage the run history",
	Long:  `List, inspect, delete and clear runs recorded in the SQLite history database.`,
}

func openHistoryDB() (*store.Store, error) {
	return store.New(setting(historyDBPath, "db", defaultDBPath))
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openHistoryDB()
		if err != nil {
			return err
		}
		defer db.Close()

		runs, err := db.ListRuns(cmd.Context(), historyLimit)
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}

		if len(runs) == 0 {
			fmt.Println("No runs in history.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCREATED\tPROFILE\tMODE\tSTATUS\tHALTED AT\tTITLE")
		for _, r := range runs {
			title := r.Title
			if len(title) > 40 {
				title = title[:37] + "..."
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04"),
				r.Profile, r.Mode, r.Status, dash(r.HaltedAt), title)
		}
		return w.Flush()
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one run with its stage results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openHistoryDB()
		if err != nil {
			return err
		}
		defer db.Close()

		rec, err := db.GetRun(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to load run: %w", err)
		}

		if historyOutput {
			fmt.Print(rec.Output)
			return nil
		}

		fmt.Printf("Run:         %s\n", rec.ID)
		fmt.Printf("Created:     %s\n", rec.CreatedAt.Local().Format(time.RFC3339))
		fmt.Printf("Profile:     %s (%s)\n", rec.Profile, rec.Mode)
		if rec.Keyword != "" {
			fmt.Printf("Keyword:     %s\n", rec.Keyword)
		}
		fmt.Printf("Status:      %s\n", rec.Status)
		if rec.HaltedAt != "" {
			fmt.Printf("Halted at:   %s: %s\n", rec.HaltedAt, rec.Reason)
		}
		fmt.Printf("Duration:    %s\n", rec.Duration)
		fmt.Printf("Title:       %s\n", dash(rec.Title))
		fmt.Printf("Description: %s\n\n", dash(rec.Description))

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STAGE\tVERDICT\tSCORE\tMODEL\tATTEMPTS\tFINDINGS\tREWRITES\tDURATION\tREASON")
		for _, st := range rec.Stages {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%d\t%d\t%d\t%s\t%s\n",
				st.Stage, st.Verdict, st.Score, st.Model, st.Attempts, st.Findings, st.Rewrites, st.Duration, st.Reason)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		for _, msg := range rec.Warnings {
			fmt.Printf("warning: %s\n", msg)
		}
		return nil
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show run history statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openHistoryDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}

		fmt.Printf("Total runs: %d\n", stats.TotalRuns)
		fmt.Printf("Passed:     %d\n", stats.Passed)
		fmt.Printf("Warnings:   %d\n", stats.Warnings)
		fmt.Printf("Halted:     %d\n", stats.Halted)
		if len(stats.Stages) == 0 {
			return nil
		}

		fmt.Println()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STAGE\tRUNS\tPASS\tFAIL\tFAIL-SOFT\tAVG ATTEMPTS\tAVG SCORE")
		for _, st := range stats.Stages {
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%.2f\t%.0f\n",
				st.Stage, st.Runs, st.Passed, st.Failed, st.FailSoft, st.AvgAttempts, st.AvgScore)
		}
		return w.Flush()
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a run by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openHistoryDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.DeleteRun(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete run: %w", err)
		}
		fmt.Printf("Deleted run: %s\n", args[0])
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every run from history",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openHistoryDB()
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := db.ClearRuns(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
		fmt.Printf("Cleared %d runs from history.\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.PersistentFlags().StringVar(&historyDBPath, "db", "", "Database path (default "+defaultDBPath+")")
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of runs to list (0 for all)")
	historyShowCmd.Flags().BoolVar(&historyOutput, "output", false, "Print only the optimized markdown")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyStatsCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	historyCmd.AddCommand(historyClearCmd)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
