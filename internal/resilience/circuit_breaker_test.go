package resilience

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: time.Unix(0, 0)} }

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestManager_OpensAfterConsecutiveFailures(t *testing.T) {
	clock := newFakeClock()
	m := NewManager(CircuitBreakerConfig{FailureThreshold: 3, ResetWindow: 300 * time.Second, Clock: clock})

	assert.False(t, m.IsOpen("amazon_affiliate"))

	m.RecordFailure("amazon_affiliate")
	m.RecordFailure("amazon_affiliate")
	assert.False(t, m.IsOpen("amazon_affiliate"), "below threshold, still closed")

	m.RecordFailure("amazon_affiliate")
	assert.True(t, m.IsOpen("amazon_affiliate"), "at threshold, circuit opens")
}

func TestManager_ClosesAfterResetWindowElapses(t *testing.T) {
	clock := newFakeClock()
	m := NewManager(CircuitBreakerConfig{FailureThreshold: 1, ResetWindow: 10 * time.Second, Clock: clock})

	m.RecordFailure("serpapi")
	require.True(t, m.IsOpen("serpapi"))

	clock.Advance(9 * time.Second)
	assert.True(t, m.IsOpen("serpapi"), "reset window not yet elapsed")

	clock.Advance(2 * time.Second)
	assert.False(t, m.IsOpen("serpapi"), "reset window elapsed, circuit closes")

	failures, openUntil := m.Snapshot("serpapi")
	assert.Equal(t, 0, failures)
	assert.True(t, openUntil.IsZero())
}

func TestManager_SuccessResetsFailureCount(t *testing.T) {
	clock := newFakeClock()
	m := NewManager(CircuitBreakerConfig{FailureThreshold: 3, ResetWindow: 300 * time.Second, Clock: clock})

	m.RecordFailure("bing_search")
	m.RecordFailure("bing_search")
	m.RecordSuccess("bing_search")

	m.RecordFailure("bing_search")
	m.RecordFailure("bing_search")
	assert.False(t, m.IsOpen("bing_search"), "success should have reset the counter")
}

func TestManager_IsolatesAPIsFromEachOther(t *testing.T) {
	clock := newFakeClock()
	m := NewManager(CircuitBreakerConfig{FailureThreshold: 3, ResetWindow: 300 * time.Second, Clock: clock})

	for i := 0; i < 5; i++ {
		m.RecordFailure("reddit_api")
	}
	require.True(t, m.IsOpen("reddit_api"))

	assert.False(t, m.IsOpen("serpapi"), "failures on reddit_api must not affect serpapi")
	assert.False(t, m.IsOpen("youtube_transcripts"))
}

func TestManager_ConcurrentAccessIsSafe(t *testing.T) {
	clock := newFakeClock()
	m := NewManager(CircuitBreakerConfig{FailureThreshold: 3, ResetWindow: 300 * time.Second, Clock: clock})

	var wg sync.WaitGroup
	apis := []string{"amazon_affiliate", "walmart_affiliate", "bestbuy_affiliate"}
	for _, api := range apis {
		api := api
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				m.RecordFailure(api)
				m.RecordSuccess(api)
				m.IsOpen(api)
			}
		}()
	}
	wg.Wait()
}
