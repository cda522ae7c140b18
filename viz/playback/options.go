package playback

import (
	"errors"
	"time"

	"github.com/dshills/algostep-go/viz/emit"
)

// DefaultInterval is the tick interval used when none is configured.
const DefaultInterval = 500 * time.Millisecond

// ErrInvalidInterval is returned by WithInterval for non-positive durations.
var ErrInvalidInterval = errors.New("playback: interval must be positive")

// Option configures a Controller.
type Option func(*config) error

type config struct {
	emitter  emit.Emitter
	metrics  *Metrics
	interval time.Duration
}

// WithEmitter sends controller events to e. The default discards them.
func WithEmitter(e emit.Emitter) Option {
	return func(cfg *config) error {
		cfg.emitter = e
		return nil
	}
}

// WithMetrics records playback metrics in m.
func WithMetrics(m *Metrics) Option {
	return func(cfg *config) error {
		cfg.metrics = m
		return nil
	}
}

// WithInterval sets the tick interval used by runs started without one.
//
// Default: DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(cfg *config) error {
		if d <= 0 {
			return ErrInvalidInterval
		}
		cfg.interval = d
		return nil
	}
}

// RunOption configures a single run.
type RunOption func(*runConfig)

type runConfig struct {
	algorithm string
	meta      map[string]interface{}
}

// Label names the algorithm a run plays, for events and metrics.
func Label(algorithm string) RunOption {
	return func(rc *runConfig) {
		rc.algorithm = algorithm
	}
}

// Meta attaches extra fields to the run_started event.
func Meta(key string, value interface{}) RunOption {
	return func(rc *runConfig) {
		if rc.meta == nil {
			rc.meta = make(map[string]interface{})
		}
		rc.meta[key] = value
	}
}
