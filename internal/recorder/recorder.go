// Package recorder keeps a history of screening runs.
package recorder

import (
	"errors"
	"time"

	"SkyrocketScreener/internal/model"
)

// ErrNoRuns is returned by LastRun when nothing has been recorded.
var ErrNoRuns = errors.New("no screening runs recorded")

// Run status values.
const (
	StatusOK        = "ok"
	StatusCancelled = "cancelled"
)

// Run is one completed (or cancelled) screen.
type Run struct {
	ID         string
	StartedAt  time.Time
	Duration   time.Duration
	Timeframe  model.Timeframe
	MinPrice   float64
	MaxPrice   float64
	Universe   int // number of symbols screened
	Artifact   string
	Status     string
	Candidates []model.Candidate // ranked
}

// Recorder persists screening runs.
type Recorder interface {
	RecordRun(run *Run) error
	// LastRun returns the most recent run with at most limit candidates.
	LastRun(limit int) (*Run, error)
	Close() error
}
