package poll

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conferencia/painel/internal/types"
)

type fakeSource struct {
	mu     sync.Mutex
	orders []types.Order
	err    error
	gate   chan struct{}
	calls  int
}

func (s *fakeSource) FetchPending(ctx context.Context) ([]types.Order, error) {
	s.mu.Lock()
	s.calls++
	gate := s.gate
	orders, err := s.orders, s.err
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return orders, err
}

func (s *fakeSource) set(orders []types.Order, err error) {
	s.mu.Lock()
	s.orders, s.err = orders, err
	s.mu.Unlock()
}

type fakeScanner struct {
	mu      sync.Mutex
	scans   int
	cleared int
}

func (f *fakeScanner) Scan([]types.Order) bool {
	f.mu.Lock()
	f.scans++
	f.mu.Unlock()
	return true
}

func (f *fakeScanner) ClearQueue() {
	f.mu.Lock()
	f.cleared++
	f.mu.Unlock()
}

func (f *fakeScanner) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scans, f.cleared
}

func TestPollScansAndStoresOrders(t *testing.T) {
	src := &fakeSource{orders: []types.Order{{OrderID: 1}, {OrderID: 2}}}
	sc := &fakeScanner{}
	p := New(src, sc, time.Second)

	require.NoError(t, p.Poll(context.Background()))
	assert.Len(t, p.Orders(), 2)
	scans, _ := sc.counts()
	assert.Equal(t, 1, scans)
	assert.Empty(t, p.LastError())
	assert.False(t, p.LastFetch().IsZero())
}

func TestPollErrorKeepsLastOrders(t *testing.T) {
	src := &fakeSource{orders: []types.Order{{OrderID: 1}}}
	p := New(src, &fakeScanner{}, time.Second)
	require.NoError(t, p.Poll(context.Background()))

	src.set(nil, errors.New("connection refused"))
	assert.Error(t, p.Poll(context.Background()))
	assert.Len(t, p.Orders(), 1)
	assert.Equal(t, "connection refused", p.LastError())
}

func TestPollEmptyListClearsOrdersWithoutScan(t *testing.T) {
	src := &fakeSource{orders: []types.Order{{OrderID: 1}}}
	sc := &fakeScanner{}
	p := New(src, sc, time.Second)
	require.NoError(t, p.Poll(context.Background()))

	src.set([]types.Order{}, nil)
	require.NoError(t, p.Poll(context.Background()))
	assert.Empty(t, p.Orders())
	scans, _ := sc.counts()
	assert.Equal(t, 1, scans)
}

func TestTickSkipsWhileFetchInFlight(t *testing.T) {
	src := &fakeSource{orders: []types.Order{{OrderID: 1}}, gate: make(chan struct{})}
	p := New(src, &fakeScanner{}, time.Second)

	require.True(t, p.Tick(context.Background()))
	assert.False(t, p.Tick(context.Background()))

	close(src.gate)
	p.wg.Wait()
	assert.Len(t, p.Orders(), 1)
	assert.True(t, p.Tick(context.Background()))
	p.wg.Wait()
}

func TestRunClearsQueueOnShutdown(t *testing.T) {
	src := &fakeSource{orders: []types.Order{{OrderID: 1}}}
	sc := &fakeScanner{}
	p := New(src, sc, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool {
		scans, _ := sc.counts()
		return scans >= 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	_, cleared := sc.counts()
	assert.Equal(t, 1, cleared)
}
