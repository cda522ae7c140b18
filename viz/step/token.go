package step

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Token is a generation-stamped cancellation flag shared between a producer,
// the playback timer that drives its output, and anything else working on
// behalf of one run.
//
// A Token is minted by a TokenSource for every run. Work that captured a
// token must re-check it before acting and treat cancellation as a silent,
// graceful halt. A nil *Token is never canceled.
type Token struct {
	generation uint64
	id         string
	canceled   atomic.Bool
	once       sync.Once
	done       chan struct{}
}

// NewToken returns a standalone token with generation 0.
//
// Most callers obtain tokens from a TokenSource so that starting a new run
// invalidates the previous one; NewToken is useful for batch production
// outside of playback.
func NewToken() *Token {
	return newToken(0)
}

func newToken(gen uint64) *Token {
	return &Token{
		generation: gen,
		id:         uuid.NewString(),
		done:       make(chan struct{}),
	}
}

// Generation returns the generation the token was minted with.
func (t *Token) Generation() uint64 {
	if t == nil {
		return 0
	}
	return t.generation
}

// ID returns the run identifier carried by the token.
func (t *Token) ID() string {
	if t == nil {
		return ""
	}
	return t.id
}

// Canceled reports whether Cancel has been called.
func (t *Token) Canceled() bool {
	if t == nil {
		return false
	}
	return t.canceled.Load()
}

// Cancel marks the token canceled and wakes everything blocked on Done.
// Calling Cancel more than once is a no-op.
func (t *Token) Cancel() {
	if t == nil {
		return
	}
	t.once.Do(func() {
		t.canceled.Store(true)
		close(t.done)
	})
}

// Done returns a channel that is closed when the token is canceled.
// A nil token returns a nil channel, which blocks forever.
func (t *Token) Done() <-chan struct{} {
	if t == nil {
		return nil
	}
	return t.done
}

// TokenSource mints tokens with strictly increasing generations. Minting a
// new token cancels the previous one, so at most one token from a source is
// live at a time.
//
// TokenSource is safe for concurrent use.
type TokenSource struct {
	mu  sync.Mutex
	gen uint64
	cur *Token
}

// Next cancels the current token (if any) and returns a fresh one whose
// generation is one greater than the last.
func (s *TokenSource) Next() *Token {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cur.Cancel()
	s.gen++
	s.cur = newToken(s.gen)
	return s.cur
}

// Current returns the most recently minted token, or nil before the first
// call to Next.
func (s *TokenSource) Current() *Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// IsCurrent reports whether tok is the live token of this source and has
// not been canceled.
func (s *TokenSource) IsCurrent(tok *Token) bool {
	if tok == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur == tok && s.cur.generation == tok.generation && !tok.Canceled()
}

// Cancel cancels the current token without minting a new one.
func (s *TokenSource) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.Cancel()
}
