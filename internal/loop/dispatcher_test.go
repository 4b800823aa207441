package loop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conferencia/painel/internal/assets"
	"conferencia/painel/internal/playback"
	"conferencia/painel/internal/store"
	"conferencia/painel/internal/types"
)

type stubHandle struct{}

func (stubHandle) Stop() {}

type recordingPlayer struct {
	mu     sync.Mutex
	assets []string
	dones  []func(error)
}

func (p *recordingPlayer) Play(_ context.Context, ref string, onDone func(error)) (playback.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.assets = append(p.assets, ref)
	p.dones = append(p.dones, onDone)
	return stubHandle{}, nil
}

func (p *recordingPlayer) finish(i int) {
	p.mu.Lock()
	done := p.dones[i]
	p.mu.Unlock()
	done(nil)
}

func (p *recordingPlayer) played() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.assets...)
}

type manualTimer struct {
	f    func()
	dead bool
}

func (t *manualTimer) Stop() bool { was := !t.dead; t.dead = true; return was }

type manualScheduler struct{ timers []*manualTimer }

func (s *manualScheduler) AfterFunc(_ time.Duration, f func()) playback.Timer {
	t := &manualTimer{f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *manualScheduler) flush() {
	for _, t := range append([]*manualTimer(nil), s.timers...) {
		if !t.dead {
			t.dead = true
			t.f()
		}
	}
}

func qty(v float64) *float64 { return &v }

func name(s string) *string { return &s }

func cutOrder(id int64, vendor *string) types.Order {
	return types.Order{OrderID: id, VendorName: vendor, Status: "A", Items: []types.Item{
		{OriginalQty: qty(10), CurrentQty: qty(7)},
	}}
}

func fullOrder(id int64) types.Order {
	return types.Order{OrderID: id, Items: []types.Item{{OriginalQty: qty(3), CurrentQty: qty(3)}}}
}

func newTestDispatcher() (*Dispatcher, *recordingPlayer, *manualScheduler, *store.Store) {
	p := &recordingPlayer{}
	s := &manualScheduler{}
	st := store.New()
	d := New(p, assets.NewResolver(assets.DefaultCatalog()), st, Options{InstanceID: "test", Scheduler: s})
	return d, p, s, st
}

func TestHasCut(t *testing.T) {
	cases := []struct {
		name string
		item types.Item
		want bool
	}{
		{"current below original", types.Item{OriginalQty: qty(5), CurrentQty: qty(4)}, true},
		{"current equals original", types.Item{OriginalQty: qty(5), CurrentQty: qty(5)}, false},
		{"falls back to expected", types.Item{ExpectedQty: qty(5), CurrentQty: qty(2)}, true},
		{"missing current means delivered", types.Item{OriginalQty: qty(5)}, false},
		{"only current", types.Item{CurrentQty: qty(1)}, false},
		{"all missing", types.Item{}, false},
		{"current above original", types.Item{OriginalQty: qty(1), CurrentQty: qty(2)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := types.Order{OrderID: 1, Items: []types.Item{tc.item}}
			assert.Equal(t, tc.want, HasCut(o))
		})
	}
}

func TestScanSubmitsThenMarksPlayed(t *testing.T) {
	d, p, _, _ := newTestDispatcher()

	require.True(t, d.Scan([]types.Order{cutOrder(100, name("X"))}))
	snap := d.Snapshot()
	assert.Equal(t, []int64{100}, snap.Queued)
	assert.Empty(t, snap.Played)
	require.NotNil(t, snap.Playing)
	assert.Equal(t, int64(100), snap.Playing.OrderID)

	p.finish(0)
	snap = d.Snapshot()
	assert.Equal(t, []int64{100}, snap.Played)
	assert.Empty(t, snap.Queued)
	assert.False(t, snap.Locked)
}

func TestRepeatedScanDoesNotResubmit(t *testing.T) {
	d, p, s, _ := newTestDispatcher()
	orders := []types.Order{cutOrder(100, name("X"))}

	d.Scan(orders)
	assert.False(t, d.Scan(orders), "queued order must not be submitted again")
	p.finish(0)
	s.flush()
	for i := 0; i < 5; i++ {
		assert.False(t, d.Scan(orders))
	}
	assert.Len(t, p.played(), 1)
	assert.Empty(t, d.Snapshot().Pending)
}

func TestOneAlertPerScan(t *testing.T) {
	d, p, s, _ := newTestDispatcher()
	orders := []types.Order{cutOrder(1, nil), cutOrder(2, nil), cutOrder(3, nil)}

	require.True(t, d.Scan(orders))
	snap := d.Snapshot()
	assert.Equal(t, []int64{1}, snap.Queued)
	assert.Empty(t, snap.Pending)

	p.finish(0)
	s.flush()
	require.True(t, d.Scan(orders))
	assert.Equal(t, []int64{2}, d.Snapshot().Queued)
	assert.Equal(t, []int64{1}, d.Snapshot().Played)
}

func TestScanSkipsOrdersWithoutCut(t *testing.T) {
	d, p, _, _ := newTestDispatcher()
	assert.False(t, d.Scan([]types.Order{fullOrder(1), fullOrder(2)}))
	assert.Empty(t, p.played())
	assert.True(t, d.Scan([]types.Order{fullOrder(1), cutOrder(2, nil)}))
	assert.Equal(t, []int64{2}, d.Snapshot().Queued)
}

func TestQueuedOrdersPlayInSubmissionOrder(t *testing.T) {
	d, p, s, _ := newTestDispatcher()
	d.Scan([]types.Order{cutOrder(1, name("Luis Tizoni"))})
	d.Scan([]types.Order{cutOrder(1, nil), cutOrder(2, name("Beto Tartari"))})
	assert.Equal(t, []int64{2}, d.Snapshot().Pending)

	p.finish(0)
	s.flush()
	assert.Equal(t, []string{"/audio/luis.mp3", "/audio/beto.mp3"}, p.played())
}

func TestResetSessionRearmsPlayedOrders(t *testing.T) {
	d, p, s, _ := newTestDispatcher()
	orders := []types.Order{cutOrder(1, nil)}
	d.Scan(orders)
	p.finish(0)
	s.flush()
	require.False(t, d.Scan(orders))

	d.ResetSession()
	snap := d.Snapshot()
	assert.Empty(t, snap.Played)
	assert.Empty(t, snap.Queued)

	assert.True(t, d.Scan(orders))
	assert.Len(t, p.played(), 2)
}

func TestClearQueueKeepsPlayed(t *testing.T) {
	d, p, s, _ := newTestDispatcher()
	d.Scan([]types.Order{cutOrder(1, nil)})
	p.finish(0)
	s.flush()
	d.Scan([]types.Order{cutOrder(2, nil)})
	d.Scan([]types.Order{cutOrder(3, nil)})

	d.ClearQueue()
	snap := d.Snapshot()
	assert.Equal(t, []int64{1}, snap.Played)
	assert.Empty(t, snap.Queued)
	assert.Empty(t, snap.Pending)
	assert.False(t, snap.Locked)

	// The interrupted order was never played, so it alerts again.
	assert.True(t, d.Scan([]types.Order{cutOrder(1, nil), cutOrder(2, nil)}))
	assert.Equal(t, []int64{2}, d.Snapshot().Queued)
}

func TestUnknownVendorUsesDefaultAsset(t *testing.T) {
	d, p, _, _ := newTestDispatcher()
	d.Scan([]types.Order{cutOrder(5, name(""))})
	d.ClearQueue()
	d.Scan([]types.Order{cutOrder(6, nil)})
	assert.Equal(t, []string{assets.DefaultAsset, assets.DefaultAsset}, p.played())
}

func TestDiagnosticsEventsCarryInstanceID(t *testing.T) {
	d, _, _, st := newTestDispatcher()
	d.Scan([]types.Order{cutOrder(9, name("Gaspar Tártari"))})

	var trigger *types.Event
	for _, e := range st.ListEvents() {
		assert.Equal(t, "test", e.Payload["instance_id"])
		if e.Type == "ALERT_TRIGGER" {
			e := e
			trigger = &e
		}
	}
	require.NotNil(t, trigger)
	assert.Equal(t, "GASPAR TARTARI", trigger.Payload["normalized"])
	assert.Equal(t, "/audio/gaspar.mp3", trigger.Payload["asset"])
}

func TestInstanceIDGenerated(t *testing.T) {
	d := New(&recordingPlayer{}, assets.NewResolver(assets.DefaultCatalog()), store.New(), Options{})
	assert.Len(t, d.InstanceID(), 8)
	assert.NotEqual(t, d.InstanceID(), NewInstanceID())
}

func TestResetSessionIgnoresLateFinishOfActiveClip(t *testing.T) {
	d, p, _, st := newTestDispatcher()
	d.Scan([]types.Order{cutOrder(1, nil)})

	// The clip reports its end while the reset is clearing the engine.
	st.Subscribe(func(e types.Event) {
		if e.Type == "CLEAR" {
			p.finish(0)
		}
	})
	d.ResetSession()

	snap := d.Snapshot()
	assert.Empty(t, snap.Played, "order must stay eligible after reset")
	assert.Empty(t, snap.Queued)
	assert.False(t, snap.Locked)
	assert.True(t, d.Scan([]types.Order{cutOrder(1, nil)}))
}

func TestSnapshotSeesPlayingOrderAsQueuedOnly(t *testing.T) {
	d, p, s, _ := newTestDispatcher()
	d.Scan([]types.Order{cutOrder(1, nil)})
	d.Scan([]types.Order{cutOrder(1, nil), cutOrder(2, nil)})

	snap := d.Snapshot()
	require.NotNil(t, snap.Playing)
	assert.Equal(t, []int64{1, 2}, snap.Queued)
	assert.Equal(t, []int64{2}, snap.Pending)
	assert.Empty(t, snap.Played)

	p.finish(0)
	s.flush()
	snap = d.Snapshot()
	require.NotNil(t, snap.Playing)
	assert.Equal(t, int64(2), snap.Playing.OrderID)
	assert.Equal(t, []int64{1}, snap.Played)
	assert.Equal(t, []int64{2}, snap.Queued)
}
