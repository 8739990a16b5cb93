package fetcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopaway/orchestrator/internal/registry"
)

type fakeDescriptors struct{ descs map[string]registry.APIDescriptor }

func (f fakeDescriptors) Lookup(name string) (registry.APIDescriptor, bool) {
	d, ok := f.descs[name]
	return d, ok
}

type fakeAdapter func(ctx context.Context, providerTag, query string) (Payload, error)

func (f fakeAdapter) Call(ctx context.Context, providerTag, query string) (Payload, error) {
	return f(ctx, providerTag, query)
}

type fakeAdapterRegistry struct{ adapters map[string]ProviderAdapter }

func (f fakeAdapterRegistry) Adapter(key string) (ProviderAdapter, bool) {
	a, ok := f.adapters[key]
	return a, ok
}

type fakeBreaker struct {
	mu       sync.Mutex
	open     map[string]bool
	failures map[string]int
	successes map[string]int
}

func newFakeBreaker(open map[string]bool) *fakeBreaker {
	return &fakeBreaker{open: open, failures: map[string]int{}, successes: map[string]int{}}
}
func (b *fakeBreaker) IsOpen(name string) bool { return b.open[name] }
func (b *fakeBreaker) RecordSuccess(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.successes[name]++
}
func (b *fakeBreaker) RecordFailure(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[name]++
}

type fakeUsage struct {
	mu      sync.Mutex
	records []UsageCallInfo
}

func (u *fakeUsage) RecordCall(rec UsageCallInfo) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.records = append(u.records, rec)
}

func TestFetchTier_GatherAllNoFailFast(t *testing.T) {
	descs := fakeDescriptors{descs: map[string]registry.APIDescriptor{
		"fast_ok":   {Name: "fast_ok", AdapterKey: "ok_adapter", Timeout: time.Second},
		"slow_fail": {Name: "slow_fail", AdapterKey: "fail_adapter", Timeout: time.Second},
	}}
	adapters := fakeAdapterRegistry{adapters: map[string]ProviderAdapter{
		"ok_adapter":   fakeAdapter(func(ctx context.Context, tag, q string) (Payload, error) { return Payload{Products: []Item{{Name: "widget"}}}, nil }),
		"fail_adapter": fakeAdapter(func(ctx context.Context, tag, q string) (Payload, error) { return Payload{}, errors.New("boom") }),
	}}
	breaker := newFakeBreaker(nil)
	usage := &fakeUsage{}

	f := New(descs, adapters, breaker, usage, nil, nil)
	out := f.FetchTier(context.Background(), []string{"fast_ok", "slow_fail"}, 1, "query", "user1", "sess1")

	require.Len(t, out, 2)
	assert.Equal(t, StatusSuccess, out["fast_ok"].Status)
	assert.Equal(t, StatusError, out["slow_fail"].Status)
	assert.Equal(t, 1, breaker.successes["fast_ok"])
	assert.Equal(t, 1, breaker.failures["slow_fail"])
	assert.Len(t, usage.records, 2)
}

func TestFetchTier_SkipsOpenCircuitWithoutCallingAdapter(t *testing.T) {
	descs := fakeDescriptors{descs: map[string]registry.APIDescriptor{
		"flaky": {Name: "flaky", AdapterKey: "never_called", Timeout: time.Second},
	}}
	called := false
	adapters := fakeAdapterRegistry{adapters: map[string]ProviderAdapter{
		"never_called": fakeAdapter(func(ctx context.Context, tag, q string) (Payload, error) {
			called = true
			return Payload{}, nil
		}),
	}}
	breaker := newFakeBreaker(map[string]bool{"flaky": true})

	f := New(descs, adapters, breaker, nil, nil, nil)
	out := f.FetchTier(context.Background(), []string{"flaky"}, 1, "q", "", "")

	assert.Equal(t, StatusCircuitOpen, out["flaky"].Status)
	assert.False(t, called, "circuit-open API must never reach the adapter")
}

func TestFetchTier_TimeoutProducesTimeoutStatus(t *testing.T) {
	descs := fakeDescriptors{descs: map[string]registry.APIDescriptor{
		"laggy": {Name: "laggy", AdapterKey: "slow", Timeout: 10 * time.Millisecond},
	}}
	adapters := fakeAdapterRegistry{adapters: map[string]ProviderAdapter{
		"slow": fakeAdapter(func(ctx context.Context, tag, q string) (Payload, error) {
			select {
			case <-time.After(200 * time.Millisecond):
				return Payload{}, nil
			case <-ctx.Done():
				return Payload{}, ctx.Err()
			}
		}),
	}}
	breaker := newFakeBreaker(nil)

	f := New(descs, adapters, breaker, nil, nil, nil)
	out := f.FetchTier(context.Background(), []string{"laggy"}, 1, "q", "", "")

	assert.Equal(t, StatusTimeout, out["laggy"].Status)
	assert.Equal(t, 1, breaker.failures["laggy"])
}

func TestFetchTier_OuterCancellationInterruptsAllInFlight(t *testing.T) {
	descs := fakeDescriptors{descs: map[string]registry.APIDescriptor{
		"a": {Name: "a", AdapterKey: "slow", Timeout: 5 * time.Second},
		"b": {Name: "b", AdapterKey: "slow", Timeout: 5 * time.Second},
	}}
	adapters := fakeAdapterRegistry{adapters: map[string]ProviderAdapter{
		"slow": fakeAdapter(func(ctx context.Context, tag, q string) (Payload, error) {
			<-ctx.Done()
			return Payload{}, ctx.Err()
		}),
	}}
	breaker := newFakeBreaker(nil)
	f := New(descs, adapters, breaker, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	out := f.FetchTier(ctx, []string{"a", "b"}, 1, "q", "", "")
	assert.Equal(t, StatusError, out["a"].Status)
	assert.Equal(t, StatusError, out["b"].Status)
}

func TestFetchTier_MissingDescriptorTreatedAsUnavailable(t *testing.T) {
	descs := fakeDescriptors{descs: map[string]registry.APIDescriptor{}}
	f := New(descs, fakeAdapterRegistry{adapters: map[string]ProviderAdapter{}}, newFakeBreaker(nil), nil, nil, nil)

	out := f.FetchTier(context.Background(), []string{"ghost"}, 1, "q", "", "")
	assert.Equal(t, StatusCircuitOpen, out["ghost"].Status)
}
