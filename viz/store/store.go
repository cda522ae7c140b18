// Package store archives finished algorithm runs so they can be listed and
// replayed later.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dshills/algostep-go/viz/step"
)

// ErrNotFound is returned when a requested run ID does not exist.
var ErrNotFound = errors.New("not found")

// ErrCorrupt is returned when an archived step no longer matches the
// fingerprint recorded when it was saved.
var ErrCorrupt = errors.New("archived step does not match its fingerprint")

// ErrClosed is returned by every operation on a closed store.
var ErrClosed = errors.New("store is closed")

// Run is an archived step sequence together with what produced it.
type Run struct {
	ID        string
	Algorithm string
	Origin    step.Snapshot
	Steps     []step.Step
	// Truncated is set when the run was canceled before its producer
	// finished.
	Truncated bool
	CreatedAt time.Time
}

// Summary describes an archived run without its steps.
type Summary struct {
	ID        string
	Algorithm string
	Steps     int
	Truncated bool
	CreatedAt time.Time
}

// Summary returns the run's summary.
func (r Run) Summary() Summary {
	return Summary{
		ID:        r.ID,
		Algorithm: r.Algorithm,
		Steps:     len(r.Steps),
		Truncated: r.Truncated,
		CreatedAt: r.CreatedAt,
	}
}

// Sequence rebuilds a materialized step sequence from the run.
func (r Run) Sequence() (*step.Sequence, error) {
	return step.FromSteps(r.Origin, r.Steps)
}

// FromSequence captures a fully produced sequence as a Run. It drains seq.
func FromSequence(id, algorithm string, seq *step.Sequence) Run {
	return Run{
		ID:        id,
		Algorithm: algorithm,
		Origin:    seq.Origin(),
		Steps:     seq.Steps(),
		Truncated: seq.Truncated(),
		CreatedAt: time.Now().UTC(),
	}
}

// Store persists archived runs.
//
// Implementations:
//   - MemStore: in-process map, for tests and short sessions
//   - SQLiteStore: database/sql over modernc.org/sqlite, file or ":memory:"
//
// Save replaces any run with the same ID. Load and Delete return ErrNotFound
// for unknown IDs. List orders runs oldest first.
type Store interface {
	Save(ctx context.Context, run Run) error
	Load(ctx context.Context, id string) (Run, error)
	List(ctx context.Context) ([]Summary, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

func validate(run Run) error {
	if run.ID == "" {
		return errors.New("run id is required")
	}
	for i, s := range run.Steps {
		if s.Index != i {
			return fmt.Errorf("%w: position %d has index %d", step.ErrNonContiguous, i, s.Index)
		}
	}
	return nil
}

func cloneRun(run Run) Run {
	out := run
	out.Origin = run.Origin.Clone()
	out.Steps = make([]step.Step, len(run.Steps))
	for i, s := range run.Steps {
		out.Steps[i] = s.Clone()
	}
	return out
}
