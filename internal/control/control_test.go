package control

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"conferencia/painel/internal/auth"
	"conferencia/painel/internal/types"
)

type fakeDispatcher struct {
	mu      sync.Mutex
	played  []int64
	queued  []int64
	clears  int
	resets  int
	scanned []int64
}

func (f *fakeDispatcher) Snapshot() types.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return types.Snapshot{
		InstanceID: "1a2b3c4d",
		Queued:     append([]int64{}, f.queued...),
		Played:     append([]int64{}, f.played...),
		Pending:    []int64{},
	}
}

func (f *fakeDispatcher) ClearQueue() {
	f.mu.Lock()
	f.clears++
	f.queued = nil
	f.mu.Unlock()
}

func (f *fakeDispatcher) ResetSession() {
	f.mu.Lock()
	f.resets++
	f.queued, f.played = nil, nil
	f.mu.Unlock()
}

func (f *fakeDispatcher) Scan(orders []types.Order) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range orders {
		f.scanned = append(f.scanned, o.OrderID)
	}
	if len(orders) == 0 {
		return false
	}
	f.queued = append(f.queued, orders[0].OrderID)
	return true
}

func (f *fakeDispatcher) calls() (clears, resets int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clears, f.resets
}

func startServer(t *testing.T, secret string) (string, *fakeDispatcher) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := grpc.NewServer(grpc.UnaryInterceptor(TokenInterceptor(secret, 60)))
	d := &fakeDispatcher{played: []int64{7}}
	Register(s, NewServer(d))
	go func() { _ = s.Serve(l) }()
	t.Cleanup(s.Stop)
	return l.Addr().String(), d
}

func dial(t *testing.T, addr, token string) *Client {
	t.Helper()
	c, err := Dial(addr, token)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSnapshotRoundTrip(t *testing.T) {
	addr, _ := startServer(t, "")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snap, err := dial(t, addr, "").Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1a2b3c4d", snap.InstanceID)
	assert.Equal(t, []int64{7}, snap.Played)
}

func TestScanAndClear(t *testing.T) {
	addr, d := startServer(t, "")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c := dial(t, addr, "")

	submitted, snap, err := c.Scan(ctx, []types.Order{{OrderID: 41}, {OrderID: 42}})
	require.NoError(t, err)
	assert.True(t, submitted)
	assert.Equal(t, []int64{41}, snap.Queued)
	d.mu.Lock()
	assert.Equal(t, []int64{41, 42}, d.scanned)
	d.mu.Unlock()

	snap, err = c.ClearQueue(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Queued)
	clears, _ := d.calls()
	assert.Equal(t, 1, clears)
}

func TestResetRequiresConfirm(t *testing.T) {
	addr, d := startServer(t, "")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c := dial(t, addr, "")

	_, err := c.ResetSession(ctx, false)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	_, resets := d.calls()
	assert.Equal(t, 0, resets)

	snap, err := c.ResetSession(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, snap.Played)
	_, resets = d.calls()
	assert.Equal(t, 1, resets)
}

func TestTokenInterceptor(t *testing.T) {
	addr, d := startServer(t, "s3cret")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := dial(t, addr, "").Snapshot(ctx)
	require.NoError(t, err, "snapshot is not guarded")

	_, err = dial(t, addr, "").ClearQueue(ctx)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	tok, err := auth.GenerateOperatorToken("s3cret", "ana", "clear", time.Now().Add(time.Minute).Unix())
	require.NoError(t, err)
	c := dial(t, addr, tok)
	_, err = c.ClearQueue(ctx)
	require.NoError(t, err)
	_, err = c.ResetSession(ctx, true)
	assert.Equal(t, codes.Unauthenticated, status.Code(err), "clear scope must not reset")
	clears, resets := d.calls()
	assert.Equal(t, 1, clears)
	assert.Equal(t, 0, resets)
}
