package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock is a package-level time source so tests can freeze time via SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source for run manifests. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Manifest records what a pipeline run produced.
type Manifest struct {
	RunID       string         `json:"run_id"`
	GeneratedAt time.Time      `json:"generated_at"`
	Stages      []string       `json:"stages"`
	Tables      map[string]int `json:"tables"`
}

// NewManifest stamps a manifest with the current UTC time.
func NewManifest(runID string, stages []string, tables map[string]int) Manifest {
	return Manifest{
		RunID:       runID,
		GeneratedAt: clock.Now().UTC(),
		Stages:      stages,
		Tables:      tables,
	}
}

// RunStatus is a point-in-time view of a pipeline run.
type RunStatus struct {
	RunID        string   `json:"run_id,omitempty"`
	Running      bool     `json:"running"`
	CurrentStage string   `json:"current_stage,omitempty"`
	Completed    []string `json:"completed"`
	FailedStage  string   `json:"failed_stage,omitempty"`
	Error        string   `json:"error,omitempty"`
}
