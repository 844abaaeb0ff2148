package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/valpere/contentgate/internal"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun(id, status string, created time.Time) *internal.RunRecord {
	return &internal.RunRecord{
		ID:          id,
		Source:      "# Title\n\nShort paragraph.",
		Profile:     "blog",
		Mode:        "lite",
		Keyword:     "answer engines",
		Status:      status,
		Output:      "# Title\n\nShort paragraph.\n",
		Title:       "Title",
		Description: "Short paragraph.",
		Warnings:    []string{"stylist: response rejected"},
		Stages: []internal.StageRecord{
			{Stage: "strategist", Verdict: "pass", Model: "m", Attempts: 1, Duration: 1500 * time.Millisecond},
			{
				Stage: "chunk_optimizer", Verdict: "fail", Model: "m", Attempts: 3, Findings: 2, Reason: "timeout",
				Score: 60, Summary: "Decision: fail. Issues -> Critical 0, High 2, Medium 0, Low 0.",
			},
		},
		CreatedAt: created,
		Duration:  2 * time.Second,
	}
}

func TestStore_New(t *testing.T) {
	s := newTestStore(t)
	if s == nil {
		t.Fatal("expected non-nil store")
	}
}

func TestStore_New_InvalidPath(t *testing.T) {
	_, err := New("/nonexistent/path/test.db")
	if err == nil {
		t.Error("expected error for invalid path")
	}
}

func TestStore_SaveAndGetRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := sampleRun("run-1", "warnings", time.Now())
	if err := s.SaveRun(ctx, rec); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	if rec.SourceHash == "" {
		t.Error("expected SaveRun to set the source hash")
	}

	got, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Source != rec.Source || got.Status != "warnings" || got.Keyword != "answer engines" {
		t.Errorf("unexpected run: %+v", got)
	}
	if got.Title != "Title" || got.Description != "Short paragraph." {
		t.Errorf("artifact not restored: title=%q description=%q", got.Title, got.Description)
	}
	if len(got.Warnings) != 1 || got.Warnings[0] != "stylist: response rejected" {
		t.Errorf("warnings = %v", got.Warnings)
	}
	if got.Duration != 2*time.Second {
		t.Errorf("duration = %v, want 2s", got.Duration)
	}
	if len(got.Stages) != 2 {
		t.Fatalf("expected 2 stages, got %d", len(got.Stages))
	}
	if got.Stages[0].Stage != "strategist" || got.Stages[1].Stage != "chunk_optimizer" {
		t.Errorf("stages out of order: %+v", got.Stages)
	}
	if got.Stages[0].Duration != 1500*time.Millisecond {
		t.Errorf("stage duration = %v", got.Stages[0].Duration)
	}
	if got.Stages[1].Attempts != 3 || got.Stages[1].Findings != 2 || got.Stages[1].Reason != "timeout" {
		t.Errorf("unexpected stage record: %+v", got.Stages[1])
	}
	if got.Stages[1].Score != 60 || got.Stages[1].Summary != "Decision: fail. Issues -> Critical 0, High 2, Medium 0, Low 0." {
		t.Errorf("score not stored: %+v", got.Stages[1])
	}
}

func TestStore_SaveRun_Duplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveRun(ctx, sampleRun("dup", "passed", time.Now())); err != nil {
		t.Fatalf("first SaveRun failed: %v", err)
	}
	if err := s.SaveRun(ctx, sampleRun("dup", "passed", time.Now())); err == nil {
		t.Error("expected error for duplicate run id")
	}

	got, err := s.GetRun(ctx, "dup")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if len(got.Stages) != 2 {
		t.Errorf("failed save must not leave extra stages, got %d", len(got.Stages))
	}
}

func TestStore_GetRun_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetRun(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ListRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		if err := s.SaveRun(ctx, sampleRun(fmt.Sprintf("run-%d", i), "passed", base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
	}

	runs, err := s.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if runs[0].ID != "run-2" || runs[2].ID != "run-0" {
		t.Errorf("expected newest first, got %s..%s", runs[0].ID, runs[2].ID)
	}
	if runs[0].Stages != nil {
		t.Error("ListRuns should not load stages")
	}

	limited, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 runs with limit, got %d", len(limited))
	}
}

func TestStore_LatestPassed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	older := sampleRun("old", "passed", time.Now().Add(-time.Hour))
	newer := sampleRun("new", "passed", time.Now())
	halted := sampleRun("halted", "halted", time.Now().Add(time.Minute))
	for _, r := range []*internal.RunRecord{older, newer, halted} {
		if err := s.SaveRun(ctx, r); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
	}

	got, ok, err := s.LatestPassed(ctx, "  # Title\r\n\r\nShort paragraph.\n", "blog", "lite")
	if err != nil {
		t.Fatalf("LatestPassed failed: %v", err)
	}
	if !ok {
		t.Fatal("expected a match for equivalent source text")
	}
	if got.ID != "new" {
		t.Errorf("expected newest passed run, got %s", got.ID)
	}

	_, ok, err = s.LatestPassed(ctx, "# Title\n\nShort paragraph.", "blog", "strict")
	if err != nil {
		t.Fatalf("LatestPassed failed: %v", err)
	}
	if ok {
		t.Error("expected no match for a different mode")
	}
}

func TestStore_DeleteRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveRun(ctx, sampleRun("gone", "passed", time.Now())); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	if err := s.DeleteRun(ctx, "gone"); err != nil {
		t.Fatalf("DeleteRun failed: %v", err)
	}
	if _, err := s.GetRun(ctx, "gone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.DeleteRun(ctx, "gone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if len(stats.Stages) != 0 {
		t.Errorf("expected stage rows to be deleted, got %+v", stats.Stages)
	}
}

func TestStore_ClearRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := s.SaveRun(ctx, sampleRun(fmt.Sprintf("r%d", i), "passed", time.Now())); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
	}
	n, err := s.ClearRuns(ctx)
	if err != nil {
		t.Fatalf("ClearRuns failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 deleted, got %d", n)
	}
	runs, _ := s.ListRuns(ctx, 0)
	if len(runs) != 0 {
		t.Errorf("expected empty history, got %d", len(runs))
	}
}

func TestStore_Stats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	runs := []*internal.RunRecord{
		sampleRun("a", "passed", time.Now()),
		sampleRun("b", "warnings", time.Now()),
		sampleRun("c", "halted", time.Now()),
	}
	for _, r := range runs {
		if err := s.SaveRun(ctx, r); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalRuns != 3 || stats.Passed != 1 || stats.Warnings != 1 || stats.Halted != 1 {
		t.Errorf("unexpected totals: %+v", stats)
	}
	if len(stats.Stages) != 2 {
		t.Fatalf("expected 2 stage rows, got %d", len(stats.Stages))
	}
	first, second := stats.Stages[0], stats.Stages[1]
	if first.Stage != "strategist" || first.Runs != 3 || first.Passed != 3 {
		t.Errorf("unexpected strategist stats: %+v", first)
	}
	if second.Stage != "chunk_optimizer" || second.Failed != 3 || second.AvgAttempts != 3 || second.AvgScore != 60 {
		t.Errorf("unexpected chunk optimizer stats: %+v", second)
	}
}

func TestSourceHash(t *testing.T) {
	// "é" precomposed vs. decomposed
	a := SourceHash("café\n")
	b := SourceHash("  cafe\u0301")
	if a != b {
		t.Error("expected equivalent texts to share a hash")
	}
	if SourceHash("one") == SourceHash("two") {
		t.Error("expected different texts to differ")
	}
}
