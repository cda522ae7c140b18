package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dshills/algostep-go/viz/sorting"
	"github.com/dshills/algostep-go/viz/step"
)

func sampleRun(id string, created time.Time) Run {
	seq := sorting.Run(sorting.Bubble, []float64{10, 30, 20, 5, 40}, step.NewToken())
	run := FromSequence(id, "bubble", seq)
	run.CreatedAt = created
	return run
}

// forEachStore runs fn against every Store implementation.
func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) {
		s := NewMemStore()
		defer s.Close()
		fn(t, s)
	})
	t.Run("sqlite", func(t *testing.T) {
		s, err := NewSQLiteStore(":memory:")
		if err != nil {
			t.Fatalf("NewSQLiteStore failed: %v", err)
		}
		defer s.Close()
		fn(t, s)
	})
}

func TestStore_SaveLoad(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		run := sampleRun("run-001", time.Unix(100, 0).UTC())

		if err := s.Save(ctx, run); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		got, err := s.Load(ctx, "run-001")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}

		if got.Algorithm != "bubble" {
			t.Errorf("algorithm = %q", got.Algorithm)
		}
		if !got.CreatedAt.Equal(run.CreatedAt) {
			t.Errorf("created = %v, want %v", got.CreatedAt, run.CreatedAt)
		}
		if got.Origin.Fingerprint() != run.Origin.Fingerprint() {
			t.Error("origin changed")
		}
		if len(got.Steps) != 4 {
			t.Fatalf("steps = %d, want 4", len(got.Steps))
		}
		for i := range got.Steps {
			if got.Steps[i].Fingerprint() != run.Steps[i].Fingerprint() {
				t.Errorf("step %d changed", i)
			}
		}

		seq, err := got.Sequence()
		if err != nil {
			t.Fatalf("Sequence failed: %v", err)
		}
		if want := []float64{5, 10, 20, 30, 40}; !equalValues(seq.Final().Values, want) {
			t.Errorf("final = %v, want %v", seq.Final().Values, want)
		}
	})
}

func TestStore_LoadReturnsCopy(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		run := sampleRun("r", time.Now())
		_ = s.Save(ctx, run)
		run.Steps[0].Snapshot.Values[0] = -1

		got, _ := s.Load(ctx, "r")
		got.Steps[1].Snapshot.Values[0] = -1
		again, _ := s.Load(ctx, "r")
		if again.Steps[0].Snapshot.Values[0] == -1 || again.Steps[1].Snapshot.Values[0] == -1 {
			t.Error("archived steps alias caller memory")
		}
	})
}

func TestStore_ReplaceListDelete(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_ = s.Save(ctx, sampleRun("b", time.Unix(2, 0)))
		_ = s.Save(ctx, sampleRun("a", time.Unix(1, 0)))

		short := sampleRun("b", time.Unix(3, 0))
		short.Steps = short.Steps[:1]
		short.Truncated = true
		if err := s.Save(ctx, short); err != nil {
			t.Fatalf("replace failed: %v", err)
		}

		list, err := s.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(list) != 2 || list[0].ID != "a" || list[1].ID != "b" {
			t.Fatalf("list = %+v", list)
		}
		if list[1].Steps != 1 || !list[1].Truncated || list[0].Steps != 4 {
			t.Errorf("summaries = %+v", list)
		}

		if err := s.Delete(ctx, "a"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if err := s.Delete(ctx, "a"); !errors.Is(err, ErrNotFound) {
			t.Errorf("second Delete = %v, want ErrNotFound", err)
		}
		if _, err := s.Load(ctx, "a"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Load deleted = %v, want ErrNotFound", err)
		}
	})
}

func TestStore_Validation(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		if err := s.Save(ctx, Run{}); err == nil {
			t.Error("expected error for missing id")
		}
		run := sampleRun("gap", time.Now())
		run.Steps[2].Index = 7
		if err := s.Save(ctx, run); !errors.Is(err, step.ErrNonContiguous) {
			t.Errorf("Save = %v, want ErrNonContiguous", err)
		}
	})
}

func TestStore_Closed(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		if err := s.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
		if err := s.Close(); err != nil {
			t.Errorf("second Close = %v", err)
		}
		if err := s.Save(ctx, sampleRun("x", time.Now())); !errors.Is(err, ErrClosed) {
			t.Errorf("Save after close = %v", err)
		}
		if _, err := s.List(ctx); !errors.Is(err, ErrClosed) {
			t.Errorf("List after close = %v", err)
		}
	})
}

func TestSQLiteStore_DetectsCorruption(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer s.Close()

	_ = s.Save(ctx, sampleRun("r", time.Now()))
	if _, err := s.db.ExecContext(ctx,
		`UPDATE run_steps SET step = replace(step, '"values":[10,20,30,5,40]', '"values":[1,2,3,4,5]') WHERE run_id = 'r' AND idx = 0`,
	); err != nil {
		t.Fatalf("tamper failed: %v", err)
	}
	if _, err := s.Load(ctx, "r"); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Load = %v, want ErrCorrupt", err)
	}
}

func TestSQLiteStore_FilePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")

	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	_ = s.Save(ctx, sampleRun("kept", time.Now()))
	if s.Path() != path {
		t.Errorf("path = %q", s.Path())
	}
	_ = s.Close()

	reopened, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.Load(ctx, "kept")
	if err != nil {
		t.Fatalf("Load after reopen failed: %v", err)
	}
	if len(got.Steps) != 4 {
		t.Errorf("steps = %d", len(got.Steps))
	}
}

func equalValues(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
