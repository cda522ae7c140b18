// Package playback drives a step sequence under user control.
//
// A Controller owns one live run at a time. While Running it waits one
// interval, checks that its run is still the current one, advances the
// cursor, and delivers a Frame to every observer. Pause, Resume, Stop,
// StepForward, StepBackward and SetSpeed are transport commands that are
// silently ignored in states where they have no meaning.
//
// Starting a run always supersedes the previous one. Its token is canceled
// and any timer tick already in flight is dropped, so once Prepare or Start
// has returned no frame of the old run reaches an observer.
package playback

import (
	"context"
	"sync"
	"time"

	"github.com/dshills/algostep-go/viz/emit"
	"github.com/dshills/algostep-go/viz/step"
)

// Controller is the playback state machine:
//
//	Idle --Start--> Running
//	Running --Pause--> Paused --Resume--> Running
//	Running|Paused --Stop--> Stopped
//	Running --end reached--> Completed
//	any --Start(new run)--> Running
//
// Controller is safe for concurrent use.
type Controller struct {
	emitter emit.Emitter
	metrics *Metrics
	tokens  step.TokenSource

	// deliverMu serializes deliveries and is always acquired before mu.
	deliverMu sync.Mutex

	mu        sync.Mutex
	state     State
	run       *run
	cursor    int
	interval  time.Duration
	observers []subscriber
	hooks     []completionHook
	nextSub   uint64
	changed   chan struct{} // closed and replaced on every state change
}

type run struct {
	tok       *step.Token
	seq       *step.Sequence
	kick      chan struct{}
	algorithm string
}

// wake nudges the run's goroutine to re-read the controller state.
func (r *run) wake() {
	select {
	case r.kick <- struct{}{}:
	default:
	}
}

type subscriber struct {
	id uint64
	fn Observer
}

type completionHook struct {
	id uint64
	fn CompletionFunc
}

// New creates an idle Controller.
func New(opts ...Option) (*Controller, error) {
	cfg := config{interval: DefaultInterval}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if cfg.emitter == nil {
		cfg.emitter = emit.NewNullEmitter()
	}
	return &Controller{
		emitter:  cfg.emitter,
		metrics:  cfg.metrics,
		interval: cfg.interval,
		changed:  make(chan struct{}),
	}, nil
}

// Prepare supersedes the live run, if any, and mints the token for the next
// one. Producers should run under the returned token so that a later
// Prepare also halts them.
//
// When Prepare returns, the previous run is Stopped, its token is canceled,
// and none of its frames will be delivered again.
func (c *Controller) Prepare() *step.Token {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()

	c.retireLocked(true)
	return c.tokens.Next()
}

// retireLocked detaches the current run. superseded marks a run that is
// being replaced rather than closed.
func (c *Controller) retireLocked(superseded bool) {
	r := c.run
	if r == nil {
		return
	}
	if c.state.Live() {
		c.setStateLocked(Stopped)
		if superseded {
			c.publish(r, emit.MsgSuperseded, c.cursor-1, Stopped, nil)
		} else {
			c.publish(r, emit.MsgStopped, c.cursor-1, Stopped, nil)
		}
	}
	r.tok.Cancel()
	r.seq.Close()
	c.run = nil
	c.cursor = 0
}

// Start plays seq under tok, which must be the token returned by the most
// recent Prepare. A positive interval replaces the controller's interval.
// Start reports false, and does nothing, if tok has been superseded or
// already started.
//
// An empty sequence moves straight to Completed without delivering a frame.
func (c *Controller) Start(tok *step.Token, seq *step.Sequence, interval time.Duration, opts ...RunOption) bool {
	var rc runConfig
	for _, opt := range opts {
		opt(&rc)
	}
	if rc.algorithm == "" {
		rc.algorithm = "unlabeled"
	}

	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()
	c.mu.Lock()

	if c.run != nil || !c.tokens.IsCurrent(tok) {
		c.mu.Unlock()
		return false
	}
	if interval > 0 {
		c.interval = interval
	}

	r := &run{
		tok:       tok,
		seq:       seq,
		kick:      make(chan struct{}, 1),
		algorithm: rc.algorithm,
	}
	c.run = r
	c.cursor = 0
	c.setStateLocked(Running)
	c.metrics.runStarted(r.algorithm)

	meta := map[string]interface{}{
		"algorithm":   r.algorithm,
		"interval_ms": c.interval.Milliseconds(),
	}
	for k, v := range rc.meta {
		meta[k] = v
	}
	c.publish(r, emit.MsgRunStarted, -1, Running, meta)

	if _, ok := seq.At(0); !ok {
		c.setStateLocked(Completed)
		hooks := c.hooks
		c.mu.Unlock()
		c.finish(r, 0, hooks)
		return true
	}
	go c.loop(r)
	c.mu.Unlock()
	return true
}

// Play is Prepare followed by Start. It returns the run's token.
func (c *Controller) Play(seq *step.Sequence, interval time.Duration, opts ...RunOption) *step.Token {
	tok := c.Prepare()
	c.Start(tok, seq, interval, opts...)
	return tok
}

// loop owns the timer of one run. It exits when the run is superseded,
// stopped, or completed.
func (c *Controller) loop(r *run) {
	for {
		c.mu.Lock()
		if c.run != r {
			c.mu.Unlock()
			return
		}
		state, d := c.state, c.interval
		c.mu.Unlock()

		switch state {
		case Running:
			timer := time.NewTimer(d)
			select {
			case <-r.tok.Done():
				timer.Stop()
				return
			case <-r.kick:
				timer.Stop()
			case <-timer.C:
				c.tick(r)
			}
		case Paused:
			select {
			case <-r.tok.Done():
				return
			case <-r.kick:
			}
		default:
			return
		}
	}
}

// tick advances r by one step if r is still the live, running run.
func (c *Controller) tick(r *run) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.mu.Lock()
	if c.run != r || c.state != Running || !c.tokens.IsCurrent(r.tok) {
		c.mu.Unlock()
		c.metrics.staleTick()
		return
	}
	st, ok := r.seq.At(c.cursor)
	if !ok {
		// The producer was cut short after the previous look-ahead.
		c.setStateLocked(Completed)
		pos, hooks := c.cursor, c.hooks
		c.mu.Unlock()
		c.finish(r, pos, hooks)
		return
	}
	c.cursor++
	_, more := r.seq.At(c.cursor)
	if !more {
		c.setStateLocked(Completed)
	}
	frame := Frame{RunID: r.tok.ID(), Position: c.cursor, Step: st, State: c.state}
	obs, hooks := c.observers, c.hooks
	c.mu.Unlock()

	c.deliver(r, obs, frame, "tick")
	if !more {
		c.finish(r, frame.Position, hooks)
	}
}

// deliver hands frame to observers. The caller holds deliverMu.
func (c *Controller) deliver(r *run, obs []subscriber, frame Frame, source string) {
	for _, s := range obs {
		s.fn(frame)
	}
	c.metrics.stepDelivered(source)
	c.publish(r, emit.MsgStep, frame.Step.Index, frame.State, map[string]interface{}{
		"source":   source,
		"position": frame.Position,
	})
}

// finish records a completed run and runs the completion hooks. The caller
// holds deliverMu but not mu.
func (c *Controller) finish(r *run, steps int, hooks []completionHook) {
	c.metrics.completed(r.algorithm, steps)
	c.publish(r, emit.MsgCompleted, steps-1, Completed, map[string]interface{}{
		"steps": steps,
	})
	for _, h := range hooks {
		h.fn(r.tok.ID(), r.seq)
	}
}

func (c *Controller) publish(r *run, msg string, index int, state State, meta map[string]interface{}) {
	c.emitter.Emit(emit.Event{
		RunID: r.tok.ID(),
		Index: index,
		State: state.String(),
		Msg:   msg,
		Meta:  meta,
	})
}

func (c *Controller) setStateLocked(to State) {
	from := c.state
	if from == to {
		return
	}
	c.state = to
	c.metrics.transition(from, to)
	close(c.changed)
	c.changed = make(chan struct{})
}

// Pause suspends a running run. No tick advances the cursor until Resume.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Running {
		return
	}
	c.setStateLocked(Paused)
	c.publish(c.run, emit.MsgPaused, c.cursor-1, Paused, nil)
	c.run.wake()
}

// Resume continues a paused run. The next tick fires one full interval
// after Resume.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Paused {
		return
	}
	c.setStateLocked(Running)
	c.publish(c.run, emit.MsgResumed, c.cursor-1, Running, nil)
	c.run.wake()
}

// Stop ends a running or paused run and cancels its token, which halts a
// streaming producer at its last committed step. The cursor stays where it
// is and can still be stepped over the steps already produced. Stop is
// idempotent.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.Live() {
		return
	}
	c.setStateLocked(Stopped)
	c.publish(c.run, emit.MsgStopped, c.cursor-1, Stopped, nil)
	c.run.tok.Cancel()
	c.run.seq.Close()
}

// SetSpeed changes the tick interval. A tick already scheduled keeps its
// delay; the new interval applies from the next one. Non-positive
// durations are ignored.
func (c *Controller) SetSpeed(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.interval == d {
		return
	}
	c.interval = d
	if c.run != nil {
		c.publish(c.run, emit.MsgSpeedChanged, c.cursor-1, c.state, map[string]interface{}{
			"interval_ms": d.Milliseconds(),
		})
	}
}

// StepForward applies the next step and delivers it synchronously. It is a
// no-op while Running, in Idle, or at the end of the sequence.
func (c *Controller) StepForward() {
	c.stepBy(1)
}

// StepBackward un-applies the current step and delivers the new current
// state synchronously. Stepping back to position 0 delivers the origin.
// It is a no-op while Running, in Idle, or at position 0.
func (c *Controller) StepBackward() {
	c.stepBy(-1)
}

func (c *Controller) stepBy(delta int) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.mu.Lock()
	r := c.run
	if r == nil || !(c.state == Paused || c.state == Stopped || c.state == Completed) {
		c.mu.Unlock()
		return
	}

	var st step.Step
	if delta > 0 {
		next, ok := r.seq.At(c.cursor)
		if !ok {
			c.mu.Unlock()
			return
		}
		c.cursor++
		st = next
	} else {
		if c.cursor == 0 {
			c.mu.Unlock()
			return
		}
		c.cursor--
		st = c.frameStepLocked()
	}
	frame := Frame{RunID: r.tok.ID(), Position: c.cursor, Step: st, State: c.state}
	obs := c.observers
	c.mu.Unlock()

	c.deliver(r, obs, frame, "manual")
}

// frameStepLocked returns the step at the cursor, or the origin at 0.
func (c *Controller) frameStepLocked() step.Step {
	if c.cursor == 0 {
		return step.Step{Index: -1, Snapshot: c.run.seq.Origin()}
	}
	st, _ := c.run.seq.At(c.cursor - 1)
	return st
}

// Subscribe registers o and returns a function that unregisters it.
// Subscribe never delivers a frame itself; o sees the next delivery.
func (c *Controller) Subscribe(o Observer) func() {
	if o == nil {
		return func() {}
	}
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.observers = append(c.observers, subscriber{id: id, fn: o})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			kept := make([]subscriber, 0, len(c.observers))
			for _, s := range c.observers {
				if s.id != id {
					kept = append(kept, s)
				}
			}
			c.observers = kept
		})
	}
}

// OnComplete registers fn to run once for every run that reaches
// Completed, after its last frame (if any) has been delivered. It fires
// even when no frame accompanies completion, as for an empty sequence or a
// run stepped to its end while paused and then resumed. It returns a
// function that unregisters fn.
func (c *Controller) OnComplete(fn CompletionFunc) func() {
	if fn == nil {
		return func() {}
	}
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.hooks = append(c.hooks, completionHook{id: id, fn: fn})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			kept := make([]completionHook, 0, len(c.hooks))
			for _, h := range c.hooks {
				if h.id != id {
					kept = append(kept, h)
				}
			}
			c.hooks = kept
		})
	}
}

// CurrentStep returns the last applied step. It reports false at position
// 0 and when no run is attached.
func (c *Controller) CurrentStep() (step.Step, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.run == nil || c.cursor == 0 {
		return step.Step{}, false
	}
	return c.run.seq.At(c.cursor - 1)
}

// State returns the current playback state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Position returns the number of applied steps.
func (c *Controller) Position() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

// Interval returns the current tick interval.
func (c *Controller) Interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval
}

// RunID returns the id of the attached run, or "" when none is attached.
func (c *Controller) RunID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.run == nil {
		return ""
	}
	return c.run.tok.ID()
}

// Sequence returns the attached run's sequence, or nil.
func (c *Controller) Sequence() *step.Sequence {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.run == nil {
		return nil
	}
	return c.run.seq
}

// Wait blocks until the controller is neither Running nor Paused and the
// last frame has been delivered, or until ctx is done. It must not be
// called from an Observer.
func (c *Controller) Wait(ctx context.Context) error {
	for {
		c.mu.Lock()
		if !c.state.Live() {
			c.mu.Unlock()
			break
		}
		ch := c.changed
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
	c.deliverMu.Lock()
	c.deliverMu.Unlock()
	return nil
}

// Close stops and detaches the live run and cancels its producer.
func (c *Controller) Close() {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()

	c.retireLocked(false)
	c.tokens.Cancel()
}
