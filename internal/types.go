package internal

import "time"

// RunRecord is a stored pipeline run.
type RunRecord struct {
	ID          string        `json:"id"`
	SourceHash  string        `json:"source_hash"`
	Source      string        `json:"source,omitempty"`
	Profile     string        `json:"profile"`
	Mode        string        `json:"mode"`
	Keyword     string        `json:"keyword,omitempty"`
	Status      string        `json:"status"`
	HaltedAt    string        `json:"halted_at,omitempty"`
	Reason      string        `json:"reason,omitempty"`
	Output      string        `json:"output,omitempty"`
	Title       string        `json:"title,omitempty"`
	Description string        `json:"description,omitempty"`
	Schema      string        `json:"schema,omitempty"`
	Warnings    []string      `json:"warnings,omitempty"`
	Stages      []StageRecord `json:"stages"`
	CreatedAt   time.Time     `json:"created_at"`
	Duration    time.Duration `json:"duration"`
}

// StageRecord summarizes one gate result of a stored run.
type StageRecord struct {
	Stage    string        `json:"stage"`
	Verdict  string        `json:"verdict"`
	Model    string        `json:"model"`
	Attempts int           `json:"attempts"`
	Findings int           `json:"findings"`
	Rewrites int           `json:"rewrites"`
	Score    int           `json:"score"`
	Summary  string        `json:"summary,omitempty"`
	Reason   string        `json:"reason,omitempty"`
	Duration time.Duration `json:"duration"`
}
