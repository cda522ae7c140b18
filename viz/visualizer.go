// Package viz runs classical algorithms as step-by-step animations.
//
// A Visualizer holds the working dataset and graph, turns an Algorithm into
// a step sequence, and plays it on a playback.Controller:
//
//	v, _ := viz.New(viz.WithArchive(store.NewMemStore()))
//	v.SubmitDataset([]float64{10, 30, 20, 5, 40})
//	unsubscribe := v.Subscribe(render)
//	defer unsubscribe()
//	runID, _ := v.Run(viz.Bubble, 200*time.Millisecond)
//
// Transport calls (Pause, Resume, Stop, StepForward, StepBackward,
// SetSpeed) are forwarded to the controller and are no-ops in states where
// they have no meaning.
package viz

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/dshills/algostep-go/viz/emit"
	"github.com/dshills/algostep-go/viz/playback"
	"github.com/dshills/algostep-go/viz/step"
	"github.com/dshills/algostep-go/viz/store"
	"github.com/dshills/algostep-go/viz/traversal"
)

// GraphInput is a graph as submitted by a caller.
type GraphInput struct {
	Nodes    []string         `json:"nodes" yaml:"nodes"`
	Edges    []traversal.Edge `json:"edges" yaml:"edges"`
	Directed bool             `json:"directed" yaml:"directed"`
	Start    string           `json:"start" yaml:"start"`
}

// Visualizer is the entry point for running algorithms under playback.
//
// Visualizer is safe for concurrent use. Only one run is live at a time;
// every Run supersedes the previous one.
type Visualizer struct {
	ctrl      *playback.Controller
	emitter   emit.Emitter
	archive   store.Store
	streaming bool

	mu     sync.Mutex
	values []float64
	graph  *GraphInput

	// streamed run awaiting archive on completion
	pendingID  string
	pendingAlg Algorithm
}

// New creates a Visualizer.
func New(opts ...Option) (*Visualizer, error) {
	var cfg config
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if cfg.emitter == nil {
		cfg.emitter = emit.NewNullEmitter()
	}
	if cfg.ctrl == nil {
		popts := []playback.Option{
			playback.WithEmitter(cfg.emitter),
			playback.WithMetrics(cfg.metrics),
		}
		if cfg.interval > 0 {
			popts = append(popts, playback.WithInterval(cfg.interval))
		}
		ctrl, err := playback.New(popts...)
		if err != nil {
			return nil, fmt.Errorf("viz: %w", err)
		}
		cfg.ctrl = ctrl
	} else if cfg.interval > 0 {
		cfg.ctrl.SetSpeed(cfg.interval)
	}

	v := &Visualizer{
		ctrl:      cfg.ctrl,
		emitter:   cfg.emitter,
		archive:   cfg.archive,
		streaming: cfg.streaming,
	}
	if v.archive != nil && v.streaming {
		v.ctrl.OnComplete(v.archiveCompleted)
	}
	return v, nil
}

// SubmitDataset replaces the working numbers. NaN and infinite values are
// dropped. It returns the number of values accepted.
func (v *Visualizer) SubmitDataset(values []float64) int {
	kept := make([]float64, 0, len(values))
	for _, x := range values {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			continue
		}
		kept = append(kept, x)
	}
	v.mu.Lock()
	v.values = kept
	v.mu.Unlock()
	return len(kept)
}

// Dataset returns a copy of the working numbers.
func (v *Visualizer) Dataset() []float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]float64(nil), v.values...)
}

// SubmitGraph replaces the working graph.
func (v *Visualizer) SubmitGraph(g GraphInput) {
	g.Nodes = append([]string(nil), g.Nodes...)
	g.Edges = append([]traversal.Edge(nil), g.Edges...)
	v.mu.Lock()
	v.graph = &g
	v.mu.Unlock()
}

// dataset assembles the input for alg from the submitted data.
func (v *Visualizer) dataset(alg Algorithm) (Dataset, error) {
	if !alg.Valid() {
		return Dataset{}, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, alg)
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	ds := Dataset{Values: append([]float64(nil), v.values...)}
	if alg.Family() != FamilyGraph {
		return ds, nil
	}
	if v.graph == nil {
		return Dataset{}, ErrNoGraph
	}
	ds.Graph = traversal.NewAdjacency(v.graph.Nodes, v.graph.Edges, v.graph.Directed)
	ds.Start = v.graph.Start
	if !ds.Graph.Has(ds.Start) {
		return Dataset{}, fmt.Errorf("%w: %q", ErrStartNotFound, ds.Start)
	}
	return ds, nil
}

func (v *Visualizer) sequence(alg Algorithm, ds Dataset, tok *step.Token) *step.Sequence {
	produce := alg.Producer()
	body := func(rec *step.Recorder) { produce(ds, rec) }
	if v.streaming {
		return step.Stream(tok, alg.Origin(ds), body)
	}
	return step.Collect(tok, alg.Origin(ds), body)
}

// Produce runs alg to completion over the submitted data without playback.
func (v *Visualizer) Produce(alg Algorithm) (*step.Sequence, error) {
	ds, err := v.dataset(alg)
	if err != nil {
		return nil, err
	}
	produce := alg.Producer()
	return step.Collect(step.NewToken(), alg.Origin(ds), func(rec *step.Recorder) {
		produce(ds, rec)
	}), nil
}

// Run starts a new run of alg, superseding any live run, and returns its
// id. A non-positive interval keeps the controller's current one. Errors
// are returned only for inputs the caller can fix.
func (v *Visualizer) Run(alg Algorithm, interval time.Duration) (string, error) {
	ds, err := v.dataset(alg)
	if err != nil {
		return "", err
	}

	tok := v.ctrl.Prepare()
	seq := v.sequence(alg, ds, tok)
	if v.streaming {
		v.mu.Lock()
		v.pendingID, v.pendingAlg = tok.ID(), alg
		v.mu.Unlock()
	}
	if !v.ctrl.Start(tok, seq, interval,
		playback.Label(alg.String()),
		playback.Meta("dataset_size", len(ds.Values)),
	) {
		// A concurrent Run superseded this one before it started.
		return tok.ID(), nil
	}
	if !v.streaming {
		v.save(tok.ID(), alg.String(), seq)
	}
	return tok.ID(), nil
}

// archiveCompleted saves a streamed run once it completes, at which point
// the sequence is fully produced.
func (v *Visualizer) archiveCompleted(runID string, seq *step.Sequence) {
	v.mu.Lock()
	if v.pendingID != runID {
		v.mu.Unlock()
		return
	}
	alg := v.pendingAlg
	v.pendingID = ""
	v.mu.Unlock()

	v.save(runID, alg.String(), seq)
}

func (v *Visualizer) save(id, algorithm string, seq *step.Sequence) {
	if v.archive == nil {
		return
	}
	run := store.FromSequence(id, algorithm, seq)
	if err := v.archive.Save(context.Background(), run); err != nil {
		v.emitter.Emit(emit.Event{
			RunID: id,
			Index: -1,
			Msg:   "archive_failed",
			Meta:  map[string]interface{}{"error": err.Error()},
		})
	}
}

// Replay plays an archived run again and returns the new run's id.
func (v *Visualizer) Replay(ctx context.Context, runID string, interval time.Duration) (string, error) {
	if v.archive == nil {
		return "", ErrNoArchive
	}
	run, err := v.archive.Load(ctx, runID)
	if err != nil {
		return "", fmt.Errorf("replay %s: %w", runID, err)
	}
	seq, err := run.Sequence()
	if err != nil {
		return "", fmt.Errorf("replay %s: %w", runID, err)
	}
	tok := v.ctrl.Play(seq, interval,
		playback.Label(run.Algorithm),
		playback.Meta("replay_of", runID),
	)
	return tok.ID(), nil
}

// Archive returns the configured archive, or nil.
func (v *Visualizer) Archive() store.Store { return v.archive }

// Subscribe registers fn for every delivered frame.
func (v *Visualizer) Subscribe(fn func(playback.Frame)) func() {
	return v.ctrl.Subscribe(fn)
}

func (v *Visualizer) Pause()                   { v.ctrl.Pause() }
func (v *Visualizer) Resume()                  { v.ctrl.Resume() }
func (v *Visualizer) Stop()                    { v.ctrl.Stop() }
func (v *Visualizer) StepForward()             { v.ctrl.StepForward() }
func (v *Visualizer) StepBackward()            { v.ctrl.StepBackward() }
func (v *Visualizer) SetSpeed(d time.Duration) { v.ctrl.SetSpeed(d) }

// State returns the playback state of the live run.
func (v *Visualizer) State() playback.State { return v.ctrl.State() }

// CurrentStep returns the last applied step of the live run.
func (v *Visualizer) CurrentStep() (step.Step, bool) { return v.ctrl.CurrentStep() }

// Position returns how many steps of the live run have been applied.
func (v *Visualizer) Position() int { return v.ctrl.Position() }

// Sequence returns the sequence of the live or last finished run, or nil
// before the first run.
func (v *Visualizer) Sequence() *step.Sequence { return v.ctrl.Sequence() }

// Wait blocks until the live run is neither running nor paused.
func (v *Visualizer) Wait(ctx context.Context) error {
	return v.ctrl.Wait(ctx)
}

// Close stops the live run. The archive is owned by the caller and stays
// open.
func (v *Visualizer) Close() {
	v.ctrl.Close()
}
