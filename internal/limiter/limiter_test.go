package limiter

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// fakeClock is a manual clock whose sleep advances time
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
}

// TestWindowLimiter_PausesEveryLimitCalls tests R=3 over 7 calls
func TestWindowLimiter_PausesEveryLimitCalls(t *testing.T) {
	clock := newFakeClock()
	limiter := NewWindowLimiter(3, time.Minute, WithSleep(clock.Sleep), WithClock(clock.Now))
	defer limiter.Close()

	// pausedBefore[i] is true if Admit for call i+1 slept
	var pausedBefore []bool
	for i := 0; i < 7; i++ {
		before := len(clock.sleeps)
		limiter.Admit()
		pausedBefore = append(pausedBefore, len(clock.sleeps) > before)
	}

	expected := []bool{false, false, false, true, false, false, true}
	for i := range expected {
		if pausedBefore[i] != expected[i] {
			t.Errorf("call %d: expected pause=%v, got %v", i+1, expected[i], pausedBefore[i])
		}
	}

	if len(clock.sleeps) != 2 {
		t.Fatalf("expected 2 pauses, got %d", len(clock.sleeps))
	}
	for _, d := range clock.sleeps {
		if d != time.Minute {
			t.Errorf("expected a full window pause, got %v", d)
		}
	}
	if limiter.Calls() != 7 {
		t.Errorf("expected 7 calls, got %d", limiter.Calls())
	}
}

// TestWindowLimiter_NoPauseWithinBudget tests batch sizes up to the limit
func TestWindowLimiter_NoPauseWithinBudget(t *testing.T) {
	tests := []struct {
		name  string
		calls int
	}{
		{"single call", 1},
		{"below limit", 59},
		{"exactly limit", 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			limiter := NewWindowLimiter(60, time.Minute, WithSleep(clock.Sleep), WithClock(clock.Now))

			for i := 0; i < tt.calls; i++ {
				limiter.Admit()
			}

			if len(clock.sleeps) != 0 {
				t.Errorf("expected no pause, got %d", len(clock.sleeps))
			}
		})
	}
}

// TestWindowLimiter_OnePauseAfterLimit tests R+1 calls
func TestWindowLimiter_OnePauseAfterLimit(t *testing.T) {
	clock := newFakeClock()
	var hookCalls []int
	limiter := NewWindowLimiter(60, time.Minute,
		WithSleep(clock.Sleep),
		WithClock(clock.Now),
		WithPauseHook(func(calls int, wait time.Duration) {
			hookCalls = append(hookCalls, calls)
		}))

	start := limiter.WindowStart()
	for i := 0; i < 61; i++ {
		limiter.Admit()
	}

	if len(clock.sleeps) != 1 {
		t.Fatalf("expected exactly 1 pause, got %d", len(clock.sleeps))
	}
	if len(hookCalls) != 1 || hookCalls[0] != 60 {
		t.Errorf("expected pause hook called once with 60 calls, got %v", hookCalls)
	}
	if !limiter.WindowStart().Equal(start.Add(time.Minute)) {
		t.Errorf("expected window to restart after pause, got %v", limiter.WindowStart())
	}
}

// TestWindowLimiter_InvalidLimit tests that a limit below 1 is clamped
func TestWindowLimiter_InvalidLimit(t *testing.T) {
	clock := newFakeClock()
	limiter := NewWindowLimiter(0, time.Second, WithSleep(clock.Sleep), WithClock(clock.Now))

	limiter.Admit()
	limiter.Admit()

	if len(clock.sleeps) != 1 {
		t.Errorf("expected 1 pause with limit clamped to 1, got %d", len(clock.sleeps))
	}
}

// TestRedisLimiter_SharedBudget tests that two limiters share one window
func TestRedisLimiter_SharedBudget(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	clock := newFakeClock()
	newLimiter := func() *RedisLimiter {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		return NewRedisLimiter(client, "test-quota", 3, time.Minute,
			WithSleep(clock.Sleep), WithClock(clock.Now))
	}

	a := newLimiter()
	defer a.Close()
	b := newLimiter()
	defer b.Close()

	a.Admit()
	b.Admit()
	a.Admit()

	if len(clock.sleeps) != 0 {
		t.Fatalf("expected no pause within budget, got %d", len(clock.sleeps))
	}

	// Fourth call in the same window must wait for the next boundary
	b.Admit()

	if len(clock.sleeps) != 1 {
		t.Fatalf("expected 1 pause, got %d", len(clock.sleeps))
	}
	// The clock starts exactly on a minute boundary
	if clock.sleeps[0] != time.Minute {
		t.Errorf("expected to wait until the next window, got %v", clock.sleeps[0])
	}
}

// TestRedisLimiter_InvalidWindow tests that a zero window is clamped
func TestRedisLimiter_InvalidWindow(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	clock := newFakeClock()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := NewRedisLimiter(client, "test-quota", 1, 0,
		WithSleep(clock.Sleep), WithClock(clock.Now))
	defer limiter.Close()

	limiter.Admit()
	limiter.Admit()

	if len(clock.sleeps) != 1 {
		t.Fatalf("expected 1 pause, got %d", len(clock.sleeps))
	}
	if clock.sleeps[0] <= 0 || clock.sleeps[0] > time.Second {
		t.Errorf("expected a wait of at most one second, got %v", clock.sleeps[0])
	}
}

// TestRedisLimiter_FailOpen tests that Redis errors do not block calls
func TestRedisLimiter_FailOpen(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	clock := newFakeClock()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := NewRedisLimiter(client, "test-quota", 1, time.Minute,
		WithSleep(clock.Sleep), WithClock(clock.Now))
	defer limiter.Close()

	mr.Close()

	for i := 0; i < 3; i++ {
		limiter.Admit()
	}

	if len(clock.sleeps) != 0 {
		t.Errorf("expected no pause when Redis is down, got %d", len(clock.sleeps))
	}
}

// TestLimiterInterface tests that all limiters implement Limiter
func TestLimiterInterface(t *testing.T) {
	var _ Limiter = (*WindowLimiter)(nil)
	var _ Limiter = (*RedisLimiter)(nil)
	var _ Limiter = (*MockLimiter)(nil)
}

// TestNewLimiter_Window tests factory function for the window limiter
func TestNewLimiter_Window(t *testing.T) {
	tests := []struct {
		name string
		cfg  LimiterConfig
	}{
		{
			name: "explicit window type",
			cfg:  LimiterConfig{Type: "window", Limit: 60, Window: time.Minute},
		},
		{
			name: "uppercase window type",
			cfg:  LimiterConfig{Type: "WINDOW", Limit: 60, Window: time.Minute},
		},
		{
			name: "empty type defaults to window",
			cfg:  LimiterConfig{Type: "", Limit: 60, Window: time.Minute},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter, err := NewLimiter(tt.cfg)
			if err != nil {
				t.Fatalf("NewLimiter() error = %v", err)
			}
			defer limiter.Close()

			if _, ok := limiter.(*WindowLimiter); !ok {
				t.Errorf("expected *WindowLimiter, got %T", limiter)
			}
		})
	}
}

// TestNewLimiter_Redis tests factory function for the Redis limiter
func TestNewLimiter_Redis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	limiter, err := NewLimiter(LimiterConfig{
		Type:      "redis",
		Limit:     60,
		Window:    time.Minute,
		RedisAddr: mr.Addr(),
	})
	if err != nil {
		t.Fatalf("NewLimiter() error = %v", err)
	}
	defer limiter.Close()

	if _, ok := limiter.(*RedisLimiter); !ok {
		t.Errorf("expected *RedisLimiter, got %T", limiter)
	}
}

// TestNewLimiter_RedisUnavailable tests connection errors
func TestNewLimiter_RedisUnavailable(t *testing.T) {
	_, err := NewLimiter(LimiterConfig{
		Type:      "redis",
		Limit:     60,
		Window:    time.Minute,
		RedisAddr: "invalid:9999",
	})
	if err == nil {
		t.Error("expected connection error, got nil")
	}
}

// TestNewLimiter_InvalidType tests factory function with invalid type
func TestNewLimiter_InvalidType(t *testing.T) {
	_, err := NewLimiter(LimiterConfig{Type: "invalid", Limit: 10, Window: time.Second})
	if err == nil {
		t.Error("Expected error for invalid limiter type")
	}
}

// TestNewFactory tests that each call yields a fresh limiter
func TestNewFactory(t *testing.T) {
	factory := NewFactory(LimiterConfig{Limit: 1, Window: time.Minute})

	first, err := factory()
	if err != nil {
		t.Fatalf("factory() error = %v", err)
	}
	first.Admit()

	second, err := factory()
	if err != nil {
		t.Fatalf("factory() error = %v", err)
	}

	if second.(*WindowLimiter).Calls() != 0 {
		t.Error("expected a fresh counter for a new run")
	}
}

// BenchmarkWindowLimiter_Admit benchmarks the Admit method
func BenchmarkWindowLimiter_Admit(b *testing.B) {
	limiter := NewWindowLimiter(b.N+1, time.Minute)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		limiter.Admit()
	}
}
