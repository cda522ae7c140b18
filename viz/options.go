package viz

import (
	"errors"
	"time"

	"github.com/dshills/algostep-go/viz/emit"
	"github.com/dshills/algostep-go/viz/playback"
	"github.com/dshills/algostep-go/viz/store"
)

// Option configures a Visualizer.
type Option func(*config) error

type config struct {
	ctrl      *playback.Controller
	emitter   emit.Emitter
	metrics   *playback.Metrics
	archive   store.Store
	streaming bool
	interval  time.Duration
}

// WithController plays runs on ctrl instead of a controller built from the
// other options. WithEmitter and WithMetrics then only apply to events the
// Visualizer emits itself.
func WithController(ctrl *playback.Controller) Option {
	return func(cfg *config) error {
		if ctrl == nil {
			return errors.New("viz: nil controller")
		}
		cfg.ctrl = ctrl
		return nil
	}
}

// WithEmitter sends playback and archive events to e.
func WithEmitter(e emit.Emitter) Option {
	return func(cfg *config) error {
		cfg.emitter = e
		return nil
	}
}

// WithMetrics records playback metrics in m.
func WithMetrics(m *playback.Metrics) Option {
	return func(cfg *config) error {
		cfg.metrics = m
		return nil
	}
}

// WithArchive saves every completed run to s so it can be replayed.
func WithArchive(s store.Store) Option {
	return func(cfg *config) error {
		cfg.archive = s
		return nil
	}
}

// WithStreaming produces steps lazily, one tick ahead of playback, instead
// of running the algorithm to completion before the first frame.
func WithStreaming(enabled bool) Option {
	return func(cfg *config) error {
		cfg.streaming = enabled
		return nil
	}
}

// WithInterval sets the tick interval used when Run is given a
// non-positive one.
//
// Default: playback.DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(cfg *config) error {
		if d <= 0 {
			return playback.ErrInvalidInterval
		}
		cfg.interval = d
		return nil
	}
}
