package playback

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/dshills/algostep-go/viz/emit"
	"github.com/dshills/algostep-go/viz/sorting"
	"github.com/dshills/algostep-go/viz/step"
)

const forever = time.Hour

type frameLog struct {
	mu     sync.Mutex
	frames []Frame
}

func (l *frameLog) observe(f Frame) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frames = append(l.frames, f)
}

func (l *frameLog) all() []Frame {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Frame(nil), l.frames...)
}

func (l *frameLog) last(t *testing.T) Frame {
	t.Helper()
	frames := l.all()
	if len(frames) == 0 {
		t.Fatal("no frame delivered")
	}
	return frames[len(frames)-1]
}

func newController(t *testing.T, opts ...Option) *Controller {
	t.Helper()
	c, err := New(opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func bubbleSeq() *step.Sequence {
	return sorting.Run(sorting.Bubble, []float64{10, 30, 20, 5, 40}, step.NewToken())
}

func waitDone(t *testing.T, c *Controller) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Wait(ctx); err != nil {
		t.Fatalf("Wait failed: %v (state %s)", err, c.State())
	}
}

func TestNew_RejectsInvalidInterval(t *testing.T) {
	if _, err := New(WithInterval(0)); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("New(WithInterval(0)) = %v, want ErrInvalidInterval", err)
	}
	c := newController(t, WithInterval(time.Second))
	if c.Interval() != time.Second {
		t.Errorf("interval = %v", c.Interval())
	}
	if c.State() != Idle {
		t.Errorf("state = %s, want idle", c.State())
	}
}

func TestController_PlaysToCompletion(t *testing.T) {
	c := newController(t)
	var log frameLog
	c.Subscribe(log.observe)

	seq := bubbleSeq()
	tok := c.Play(seq, time.Millisecond, Label("bubble"))
	waitDone(t, c)

	frames := log.all()
	if len(frames) != 4 {
		t.Fatalf("delivered %d frames, want 4", len(frames))
	}
	for i, f := range frames {
		if f.Position != i+1 || f.Step.Index != i {
			t.Errorf("frame %d: position %d index %d", i, f.Position, f.Step.Index)
		}
		if f.RunID != tok.ID() {
			t.Errorf("frame %d: run %q, want %q", i, f.RunID, tok.ID())
		}
		wantState := Running
		if i == 3 {
			wantState = Completed
		}
		if f.State != wantState {
			t.Errorf("frame %d: state %s, want %s", i, f.State, wantState)
		}
	}
	if c.State() != Completed || c.Position() != 4 {
		t.Errorf("final state %s position %d", c.State(), c.Position())
	}
	cur, ok := c.CurrentStep()
	if !ok || cur.Fingerprint() != seq.Final().Fingerprint() {
		t.Error("current step is not the last step")
	}
}

func TestController_EmptySequenceCompletesImmediately(t *testing.T) {
	events := emit.NewBufferedEmitter()
	c := newController(t, WithEmitter(events))
	var log frameLog
	c.Subscribe(log.observe)

	tok := c.Play(sorting.Run(sorting.Bubble, nil, step.NewToken()), time.Millisecond)

	if c.State() != Completed {
		t.Errorf("state = %s, want completed", c.State())
	}
	time.Sleep(10 * time.Millisecond)
	if n := len(log.all()); n != 0 {
		t.Errorf("delivered %d frames, want 0", n)
	}
	history := events.GetHistory(tok.ID())
	if len(history) != 2 || history[0].Msg != emit.MsgRunStarted || history[1].Msg != emit.MsgCompleted {
		t.Errorf("events = %+v", history)
	}
	if _, ok := c.CurrentStep(); ok {
		t.Error("empty run has a current step")
	}
}

func TestController_InvalidTransitionsAreNoOps(t *testing.T) {
	c := newController(t)

	c.Pause()
	c.Resume()
	c.Stop()
	c.StepForward()
	c.StepBackward()
	if c.State() != Idle {
		t.Fatalf("state = %s, want idle", c.State())
	}

	c.Play(bubbleSeq(), forever)
	steps := []struct {
		name string
		op   func()
		want State
	}{
		{"resume while running", c.Resume, Running},
		{"step while running", c.StepForward, Running},
		{"pause", c.Pause, Paused},
		{"pause twice", c.Pause, Paused},
		{"resume", c.Resume, Running},
		{"stop", c.Stop, Stopped},
		{"stop twice", c.Stop, Stopped},
		{"resume while stopped", c.Resume, Stopped},
		{"pause while stopped", c.Pause, Stopped},
	}
	for _, s := range steps {
		s.op()
		if got := c.State(); got != s.want {
			t.Errorf("%s: state = %s, want %s", s.name, got, s.want)
		}
	}
	if c.Position() != 0 {
		t.Errorf("position = %d, want 0", c.Position())
	}
}

func TestController_Stepping(t *testing.T) {
	c := newController(t)
	var log frameLog
	c.Subscribe(log.observe)

	seq := bubbleSeq()
	c.Play(seq, forever)
	c.Pause()

	c.StepForward()
	c.StepForward()
	if f := log.last(t); f.Position != 2 || f.Step.Index != 1 || f.State != Paused {
		t.Errorf("after two forward steps: %+v", f)
	}

	c.StepBackward()
	if f := log.last(t); f.Position != 1 || f.Step.Index != 0 {
		t.Errorf("after one back step: %+v", f)
	}

	c.StepBackward()
	f := log.last(t)
	if f.Position != 0 || f.Step.Index != -1 {
		t.Errorf("at start: %+v", f)
	}
	if f.Step.Snapshot.Fingerprint() != seq.Origin().Fingerprint() {
		t.Error("position 0 frame does not carry the origin")
	}

	delivered := len(log.all())
	c.StepBackward()
	if len(log.all()) != delivered {
		t.Error("stepping back at position 0 delivered a frame")
	}

	for i := 0; i < 10; i++ {
		c.StepForward()
	}
	if c.Position() != 4 {
		t.Errorf("position = %d, want clamp at 4", c.Position())
	}
	if c.State() != Paused {
		t.Errorf("stepping to the end changed state to %s", c.State())
	}
	if got := len(log.all()); got != delivered+4 {
		t.Errorf("delivered %d frames stepping forward, want 4", got-delivered)
	}
}

// TestController_StepReversibility checks that forward then back restores
// the identical state at every interior cursor position.
func TestController_StepReversibility(t *testing.T) {
	data := []float64{9, 3, 7, 1, 8, 2, 6, 4, 5}
	for _, k := range sorting.Kinds() {
		t.Run(k.String(), func(t *testing.T) {
			c := newController(t)
			var log frameLog
			c.Subscribe(log.observe)

			seq := sorting.Run(k, data, step.NewToken())
			n := seq.Len()
			c.Play(seq, forever)
			c.Stop()

			for p := 0; p < n; p++ {
				before := seq.Origin().Fingerprint()
				if cur, ok := c.CurrentStep(); ok {
					before = cur.Fingerprint()
				}
				c.StepForward()
				c.StepBackward()

				if f := log.last(t); f.Position != p || f.Step.Fingerprint() != before {
					t.Fatalf("position %d: frame %+v does not restore prior state", p, f)
				}
				c.StepForward()
			}
			if c.Position() != n {
				t.Errorf("position = %d, want %d", c.Position(), n)
			}
		})
	}
}

// TestController_SupersededRunIsSilent starts run A, optionally stops it,
// then starts run B, and checks that no frame of A arrives after B started.
func TestController_SupersededRunIsSilent(t *testing.T) {
	c := newController(t)
	rnd := rand.New(rand.NewSource(1))

	var (
		stale    sync.Map
		violated atomic.Int32
	)
	c.Subscribe(func(f Frame) {
		if _, ok := stale.Load(f.RunID); ok {
			violated.Add(1)
		}
	})

	data := make([]float64, 30)
	for i := range data {
		data[i] = float64(len(data) - i)
	}

	for i := 0; i < 40; i++ {
		a := c.Play(sorting.Stream(sorting.Bubble, data, step.NewToken()), 50*time.Microsecond)
		time.Sleep(time.Duration(rnd.Intn(500)) * time.Microsecond)
		if i%2 == 0 {
			c.Stop()
		}
		c.Play(sorting.Run(sorting.Insertion, data, step.NewToken()), 50*time.Microsecond)
		stale.Store(a.ID(), true)

		if !a.Canceled() {
			t.Fatal("superseded token was not canceled")
		}
		time.Sleep(time.Duration(rnd.Intn(300)) * time.Microsecond)
	}
	c.Stop()
	time.Sleep(5 * time.Millisecond)

	if n := violated.Load(); n > 0 {
		t.Errorf("%d frames of a superseded run were delivered", n)
	}
}

func TestController_SupersedeHaltsStreamingProducer(t *testing.T) {
	events := emit.NewBufferedEmitter()
	c := newController(t, WithEmitter(events))

	tok := c.Prepare()
	seq := sorting.Stream(sorting.Bubble, []float64{5, 4, 3, 2, 1}, tok)
	if !c.Start(tok, seq, forever) {
		t.Fatal("Start rejected a fresh token")
	}
	if seq.Available() != 1 {
		t.Errorf("producer ran ahead: %d steps available", seq.Available())
	}

	c.Prepare()
	if !seq.Materialized() {
		t.Error("superseded stream is still producing")
	}
	if seq.Available() != 1 {
		t.Errorf("superseded stream produced more steps: %d", seq.Available())
	}
	if c.State() != Stopped {
		t.Errorf("state = %s, want stopped", c.State())
	}
	history := events.GetHistoryWithFilter(tok.ID(), emit.HistoryFilter{Msg: emit.MsgSuperseded})
	if len(history) != 1 {
		t.Errorf("superseded events = %d, want 1", len(history))
	}
}

func TestController_StopHaltsStreamingProducer(t *testing.T) {
	c := newController(t)

	tok := c.Prepare()
	seq := sorting.Stream(sorting.Bubble, []float64{5, 4, 3, 2, 1}, tok)
	if !c.Start(tok, seq, forever) {
		t.Fatal("Start rejected a fresh token")
	}
	c.Stop()

	if !tok.Canceled() {
		t.Error("Stop did not cancel the run's token")
	}
	available := seq.Available()
	for i := 0; i < 5; i++ {
		c.StepForward()
	}
	if seq.Available() != available {
		t.Errorf("stopped stream produced more steps: %d, want %d", seq.Available(), available)
	}
	if c.Position() != available {
		t.Errorf("position = %d, want %d", c.Position(), available)
	}
	if !seq.Materialized() || c.State() != Stopped {
		t.Errorf("materialized=%v state=%s", seq.Materialized(), c.State())
	}
}

func TestController_OnComplete(t *testing.T) {
	c := newController(t)
	var log frameLog
	c.Subscribe(log.observe)

	var (
		mu   sync.Mutex
		done []string
	)
	unregister := c.OnComplete(func(runID string, seq *step.Sequence) {
		mu.Lock()
		defer mu.Unlock()
		if seq.Materialized() {
			done = append(done, runID)
		}
	})
	completions := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), done...)
	}

	// Stepped to the end while paused, then resumed: completion carries
	// no frame of its own.
	tok := c.Play(bubbleSeq(), forever)
	c.Pause()
	for i := 0; i < 4; i++ {
		c.StepForward()
	}
	if n := len(completions()); n != 0 {
		t.Fatalf("paused run reported completion %d times", n)
	}
	c.SetSpeed(time.Millisecond)
	c.Resume()
	waitDone(t, c)
	if c.State() != Completed || len(log.all()) != 4 {
		t.Fatalf("state %s, frames %d", c.State(), len(log.all()))
	}
	if got := completions(); len(got) != 1 || got[0] != tok.ID() {
		t.Errorf("completions = %v, want [%s]", got, tok.ID())
	}

	empty := c.Play(sorting.Run(sorting.Bubble, nil, step.NewToken()), forever)
	c.Play(bubbleSeq(), forever)
	c.Stop()
	if got := completions(); len(got) != 2 || got[1] != empty.ID() {
		t.Errorf("completions = %v, want the empty run last", got)
	}

	unregister()
	unregister()
	c.Play(sorting.Run(sorting.Bubble, nil, step.NewToken()), forever)
	if n := len(completions()); n != 2 {
		t.Errorf("unregistered hook still fired: %d completions", n)
	}
	c.OnComplete(nil)()
}

func TestController_StartRequiresCurrentToken(t *testing.T) {
	c := newController(t)

	old := c.Prepare()
	cur := c.Prepare()
	if c.Start(old, bubbleSeq(), forever) {
		t.Error("Start accepted a superseded token")
	}
	if !c.Start(cur, bubbleSeq(), forever) {
		t.Error("Start rejected the current token")
	}
	if c.Start(cur, bubbleSeq(), forever) {
		t.Error("Start accepted a token twice")
	}
}

func TestController_SetSpeedAppliesToNextTick(t *testing.T) {
	c := newController(t)
	c.Play(bubbleSeq(), forever)

	c.SetSpeed(time.Millisecond)
	c.SetSpeed(0)
	c.SetSpeed(-time.Second)
	if c.Interval() != time.Millisecond {
		t.Fatalf("interval = %v, want 1ms", c.Interval())
	}

	time.Sleep(30 * time.Millisecond)
	if c.Position() != 0 {
		t.Fatalf("in-flight tick was shortened: position %d", c.Position())
	}

	c.Pause()
	c.Resume()
	waitDone(t, c)
	if c.State() != Completed {
		t.Errorf("state = %s, want completed", c.State())
	}
}

func TestController_PauseFromObserverHoldsCursor(t *testing.T) {
	c := newController(t)
	var log frameLog
	c.Subscribe(func(f Frame) {
		log.observe(f)
		if f.Position == 1 {
			c.Pause()
		}
	})

	c.Play(bubbleSeq(), time.Millisecond)

	deadline := time.Now().Add(5 * time.Second)
	for c.State() != Paused && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(30 * time.Millisecond)
	if c.Position() != 1 || len(log.all()) != 1 {
		t.Fatalf("ticks fired while paused: position %d, frames %d", c.Position(), len(log.all()))
	}

	c.Resume()
	waitDone(t, c)
	if got := len(log.all()); got != 4 {
		t.Errorf("delivered %d frames, want 4", got)
	}
}

func TestController_Unsubscribe(t *testing.T) {
	c := newController(t)
	var a, b frameLog
	c.Subscribe(a.observe)
	unsubscribe := c.Subscribe(b.observe)
	c.Subscribe(nil)()

	c.Play(bubbleSeq(), forever)
	c.Pause()
	c.StepForward()
	unsubscribe()
	unsubscribe()
	c.StepForward()

	if len(a.all()) != 2 || len(b.all()) != 1 {
		t.Errorf("frames a=%d b=%d, want 2 and 1", len(a.all()), len(b.all()))
	}
}

func TestController_Events(t *testing.T) {
	events := emit.NewBufferedEmitter()
	c := newController(t, WithEmitter(events))

	tok := c.Play(bubbleSeq(), forever, Label("bubble"), Meta("size", 5))
	c.Pause()
	c.StepForward()
	c.SetSpeed(time.Second)
	c.Resume()
	c.Stop()

	var msgs []string
	for _, e := range events.GetHistory(tok.ID()) {
		msgs = append(msgs, e.Msg)
	}
	want := []string{
		emit.MsgRunStarted, emit.MsgPaused, emit.MsgStep,
		emit.MsgSpeedChanged, emit.MsgResumed, emit.MsgStopped,
	}
	if len(msgs) != len(want) {
		t.Fatalf("events = %v, want %v", msgs, want)
	}
	for i := range want {
		if msgs[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, msgs[i], want[i])
		}
	}

	started := events.GetHistoryWithFilter(tok.ID(), emit.HistoryFilter{Msg: emit.MsgRunStarted})[0]
	if started.Meta["algorithm"] != "bubble" || started.Meta["size"] != 5 {
		t.Errorf("run_started meta = %v", started.Meta)
	}
	stepEvent := events.GetHistoryWithFilter(tok.ID(), emit.HistoryFilter{Msg: emit.MsgStep})[0]
	if stepEvent.Index != 0 || stepEvent.Meta["source"] != "manual" || stepEvent.State != "paused" {
		t.Errorf("step event = %+v", stepEvent)
	}
}

func TestController_Metrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	c := newController(t, WithMetrics(m))

	c.Play(bubbleSeq(), time.Millisecond, Label("bubble"))
	waitDone(t, c)
	c.StepBackward()

	if got := testutil.ToFloat64(m.runs.WithLabelValues("bubble")); got != 1 {
		t.Errorf("runs_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.delivered.WithLabelValues("tick")); got != 4 {
		t.Errorf("tick deliveries = %v, want 4", got)
	}
	if got := testutil.ToFloat64(m.delivered.WithLabelValues("manual")); got != 1 {
		t.Errorf("manual deliveries = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.transitions.WithLabelValues("running", "completed")); got != 1 {
		t.Errorf("running->completed = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.seqSteps); got != 1 {
		t.Errorf("sequence_steps series = %d, want 1", got)
	}

	var nilMetrics *Metrics
	nilMetrics.staleTick()
	nilMetrics.runStarted("x")
}

func TestState_String(t *testing.T) {
	for s, want := range map[State]string{
		Idle: "idle", Running: "running", Paused: "paused",
		Stopped: "stopped", Completed: "completed", State(42): "playback.State(42)",
	} {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(s), got, want)
		}
	}
	if !Running.Live() || !Paused.Live() || Stopped.Live() {
		t.Error("Live misreports")
	}
}
