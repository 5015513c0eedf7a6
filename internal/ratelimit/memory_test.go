package ratelimit

import (
	"context"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)}
}

var (
	post = Event{Method: http.MethodPost, Path: "/api/v1/books"}
	list = Event{Method: http.MethodGet, Path: "/api/v1/books"}
)

func TestRuleScoped(t *testing.T) {
	r := DefaultRule()
	assert.True(t, r.Scoped("POST", "/api/v1/books"))
	assert.True(t, r.Scoped("POST", "/api/v1/books/"))
	assert.False(t, r.Scoped("GET", "/api/v1/books"))
	assert.False(t, r.Scoped("POST", "/api/v1/books/7"))
	assert.False(t, r.Scoped("POST", "/api/v1/booksx"))
}

func TestMemoryStore_ScopedLimit(t *testing.T) {
	clock := newClock()
	s := NewMemoryStore(DefaultRule(), WithClock(clock.Now))
	ctx := context.Background()

	for i := 0; i < DefaultScopedLimit; i++ {
		d, err := s.Allow(ctx, "1.2.3.4", post)
		require.NoError(t, err)
		require.True(t, d.Allowed, "request %d", i+1)
		assert.Equal(t, DefaultScopedLimit-i-1, d.Remaining)
		clock.Advance(time.Second)
	}

	d, err := s.Allow(ctx, "1.2.3.4", post)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, DefaultScopedLimit, d.Limit)
	// oldest event was 10s ago, so it ages out in 50s
	assert.Equal(t, 50*time.Second, d.RetryAfter)
	assert.Equal(t, int64(50), d.RetryAfterSeconds())

	// other routes and other clients are unaffected
	d, _ = s.Allow(ctx, "1.2.3.4", list)
	assert.True(t, d.Allowed)
	d, _ = s.Allow(ctx, "5.6.7.8", post)
	assert.True(t, d.Allowed)

	clock.Advance(DefaultWindow)
	d, _ = s.Allow(ctx, "1.2.3.4", post)
	assert.True(t, d.Allowed)
}

func TestMemoryStore_RejectedRequestsAreNotRecorded(t *testing.T) {
	clock := newClock()
	rule := DefaultRule()
	rule.ScopedLimit = 2
	s := NewMemoryStore(rule, WithClock(clock.Now))
	ctx := context.Background()

	s.Allow(ctx, "ip", post)
	s.Allow(ctx, "ip", post)
	for i := 0; i < 5; i++ {
		d, _ := s.Allow(ctx, "ip", post)
		require.False(t, d.Allowed)
	}
	// the two accepted events expire together; rejected ones left no trace
	clock.Advance(rule.Window + time.Millisecond)
	d, _ := s.Allow(ctx, "ip", post)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
}

func TestMemoryStore_GlobalLimit(t *testing.T) {
	clock := newClock()
	rule := DefaultRule()
	rule.GlobalLimit = 3
	s := NewMemoryStore(rule, WithClock(clock.Now))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, _ := s.Allow(ctx, "ip", list)
		require.True(t, d.Allowed)
	}
	d, _ := s.Allow(ctx, "ip", list)
	assert.False(t, d.Allowed)
	assert.Equal(t, 3, d.Limit)
	assert.Equal(t, rule.Window, d.RetryAfter)

	d, _ = s.Allow(ctx, "ip", post)
	assert.False(t, d.Allowed, "scoped requests count against the global limit too")
}

func TestMemoryStore_BoundaryIsExclusive(t *testing.T) {
	clock := newClock()
	rule := DefaultRule()
	rule.ScopedLimit = 1
	s := NewMemoryStore(rule, WithClock(clock.Now))
	ctx := context.Background()

	d, _ := s.Allow(ctx, "ip", post)
	require.True(t, d.Allowed)

	clock.Advance(rule.Window - time.Millisecond)
	d, _ = s.Allow(ctx, "ip", post)
	assert.False(t, d.Allowed)
	assert.Equal(t, int64(1), d.RetryAfterSeconds())

	// an event exactly one window old is pruned
	clock.Advance(time.Millisecond)
	d, _ = s.Allow(ctx, "ip", post)
	assert.True(t, d.Allowed)
}

func TestMemoryStore_Sweep(t *testing.T) {
	clock := newClock()
	s := NewMemoryStore(DefaultRule(), WithClock(clock.Now), WithIdleTTL(time.Hour))
	ctx := context.Background()

	s.Allow(ctx, "a", list)
	s.Allow(ctx, "b", list)
	require.Equal(t, 2, s.Len())
	assert.Equal(t, 0, s.Sweep())

	clock.Advance(DefaultWindow + time.Second)
	s.Allow(ctx, "b", list)
	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStore_Concurrent(t *testing.T) {
	rule := DefaultRule()
	rule.ScopedLimit = 50
	s := NewMemoryStore(rule)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, _ := s.Allow(ctx, "ip", post)
			if d.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, allowed)
}

func TestMemoryStore_JanitorStopsWithContext(t *testing.T) {
	s := NewMemoryStore(DefaultRule(), WithSweepEvery(time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	s.Allow(ctx, "ip", list)
	s.StartJanitor(ctx)
	cancel()
	// window is still live, nothing to drop
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 1, s.Len())
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { rdb.Close() })

	rule := DefaultRule()
	rule.ScopedLimit = 2
	s := NewRedisStore(rdb, rule)
	s.prefix = "rl-test-" + time.Now().Format("150405.000")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := s.Allow(ctx, "ip", post)
		require.NoError(t, err)
		require.True(t, d.Allowed)
	}
	d, err := s.Allow(ctx, "ip", post)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.LessOrEqual(t, d.RetryAfter, rule.Window)

	d, err = s.Allow(ctx, "ip", list)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRedisStore_FailsOpen(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 50 * time.Millisecond})
	t.Cleanup(func() { rdb.Close() })

	d, err := NewRedisStore(rdb, DefaultRule()).Allow(context.Background(), "ip", post)
	assert.Error(t, err)
	assert.True(t, d.Allowed)
}
