package limiter

import "time"

// Limiter is consulted once immediately before each outbound API call
// This allows us to swap between the per-run and the shared Redis implementation
type Limiter interface {
	// Admit blocks until the next call may proceed
	Admit()

	// Close cleans up any resources (Redis connections, etc.)
	Close() error
}

// PauseFunc is called every time a limiter suspends the caller
//   - calls: number of calls admitted so far
//   - wait: how long the caller is being suspended for
type PauseFunc func(calls int, wait time.Duration)

// WindowLimiter paces calls with a fixed quota per fixed batch boundary
//
// How it works:
//   - Every admitted call increments a monotonic counter
//   - Before call k (0-indexed), if k > 0 and k is a multiple of the
//     limit, the caller sleeps for one full window
//   - The time already spent in the window is not taken into account
//
// A batch of exactly limit (or fewer) calls never sleeps.
// Not safe for concurrent use: a run issues its calls sequentially.
type WindowLimiter struct {
	limit       int           // Calls allowed per window
	window      time.Duration // Window length
	calls       int           // Calls admitted so far in this run
	windowStart time.Time     // Start of the current window

	sleep   func(time.Duration)
	now     func() time.Time
	onPause PauseFunc
}

// WindowOption customizes a WindowLimiter
type WindowOption func(*WindowLimiter)

// WithSleep replaces time.Sleep (used by tests)
func WithSleep(sleep func(time.Duration)) WindowOption {
	return func(l *WindowLimiter) { l.sleep = sleep }
}

// WithClock replaces time.Now (used by tests)
func WithClock(now func() time.Time) WindowOption {
	return func(l *WindowLimiter) { l.now = now }
}

// WithPauseHook registers a callback invoked before every pause
func WithPauseHook(fn PauseFunc) WindowOption {
	return func(l *WindowLimiter) { l.onPause = fn }
}

// NewWindowLimiter creates a limiter allowing limit calls per window
//
// Parameters:
//   - limit: calls allowed per window (values below 1 are treated as 1)
//   - window: window length (e.g., 60 seconds)
func NewWindowLimiter(limit int, window time.Duration, opts ...WindowOption) *WindowLimiter {
	if limit < 1 {
		limit = 1
	}

	l := &WindowLimiter{
		limit:  limit,
		window: window,
		sleep:  time.Sleep,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.windowStart = l.now()

	return l
}

// Admit blocks for a full window once every limit calls
func (l *WindowLimiter) Admit() {
	if l.calls > 0 && l.calls%l.limit == 0 {
		if l.onPause != nil {
			l.onPause(l.calls, l.window)
		}
		l.sleep(l.window)
		l.windowStart = l.now()
	}
	l.calls++
}

// Calls returns the number of calls admitted so far
func (l *WindowLimiter) Calls() int {
	return l.calls
}

// WindowStart returns when the current window began
func (l *WindowLimiter) WindowStart() time.Time {
	return l.windowStart
}

// Close satisfies the Limiter interface; there is nothing to release
func (l *WindowLimiter) Close() error {
	return nil
}
