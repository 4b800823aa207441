package loop

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"conferencia/painel/internal/assets"
	"conferencia/painel/internal/guard"
	"conferencia/painel/internal/playback"
	"conferencia/painel/internal/store"
	"conferencia/painel/internal/types"
)

// NewInstanceID returns a short random token that tells concurrent
// instances apart in logs.
func NewInstanceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

type Options struct {
	InstanceID  string
	Gap         time.Duration
	ClipTimeout time.Duration
	Scheduler   playback.Scheduler
	// Verbose also logs per-order scan decisions.
	Verbose bool
}

// Dispatcher is the alert session of one running instance: it scans order
// batches, feeds the playback engine and answers operator controls.
type Dispatcher struct {
	instanceID string
	resolver   *assets.Resolver
	guard      *guard.Guard
	engine     *playback.Engine
	store      *store.Store
	verbose    bool

	// serializes Scan against the operator controls
	mu sync.Mutex
}

func New(p playback.Player, r *assets.Resolver, st *store.Store, opts Options) *Dispatcher {
	d := &Dispatcher{
		instanceID: opts.InstanceID,
		resolver:   r,
		guard:      guard.New(),
		store:      st,
		verbose:    opts.Verbose,
	}
	if d.instanceID == "" {
		d.instanceID = NewInstanceID()
	}
	d.engine = playback.New(p, d.guard, playback.Config{
		Gap:         opts.Gap,
		ClipTimeout: opts.ClipTimeout,
		Scheduler:   opts.Scheduler,
		Observe:     func(n playback.Note) { d.record(n.Type, n.Message, n.Fields) },
	})
	d.record("INSTANCE_INIT", "alert dispatcher ready", map[string]any{"vendors": r.Len(), "default_asset": r.Default()})
	return d
}

func (d *Dispatcher) InstanceID() string { return d.instanceID }

// Scan looks at the full current order list and enqueues at most one new
// alert: the first cut order that is neither queued nor played. Reports
// whether an alert was enqueued.
func (d *Dispatcher) Scan(orders []types.Order) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	metricScans.Inc()
	d.debug("SCAN_START", fmt.Sprintf("scanning %d orders", len(orders)))

	for _, o := range orders {
		if !HasCut(o) {
			continue
		}
		if d.guard.IsPlayed(o.OrderID) {
			metricSkipped.WithLabelValues("played").Inc()
			d.debug("SKIP_PLAYED", fmt.Sprintf("order #%d already played this session", o.OrderID))
			continue
		}
		if d.guard.IsQueued(o.OrderID) {
			metricSkipped.WithLabelValues("queued").Inc()
			d.debug("SKIP_QUEUED", fmt.Sprintf("order #%d already queued", o.OrderID))
			continue
		}

		name := o.Vendor()
		req := types.AlertRequest{OrderID: o.OrderID, AssetRef: d.resolver.Resolve(name), DisplayName: name}
		if req.DisplayName == "" {
			req.DisplayName = "unknown"
		}
		d.record("ALERT_TRIGGER", "cut order enqueued", map[string]any{
			"order_id": o.OrderID, "status": o.Status, "vendor": name,
			"normalized": assets.Normalize(name), "asset": req.AssetRef,
		})
		metricSubmitted.Inc()
		d.engine.Submit(req)
		// one alert per scan; the rest wait for the next poll
		return true
	}
	d.debug("SCAN_NO_ALERT", "no new cut order to enqueue")
	return false
}

// ClearQueue stops the active clip and drops everything queued. Played
// orders stay played.
func (d *Dispatcher) ClearQueue() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clearLocked()
	metricResets.WithLabelValues("clear").Inc()
}

func (d *Dispatcher) clearLocked() {
	d.engine.Clear()
	d.guard.ResetQueued()
}

// ResetSession forgets every played order and clears the queue, so cut
// orders alert again on the next scan. Callers confirm with the operator
// first.
func (d *Dispatcher) ResetSession() {
	d.mu.Lock()
	defer d.mu.Unlock()
	// Clear first: once the generation moves on, a late terminal event for
	// the active clip cannot mark it played again.
	d.clearLocked()
	d.guard.ResetAll()
	metricResets.WithLabelValues("reset").Inc()
	d.record("RESET", "alert session reset", nil)
}

// Snapshot is consistent with Scan and the operator controls, but a clip
// finishing at the same moment may show up on either side of it.
func (d *Dispatcher) Snapshot() types.Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := d.engine.State()
	return types.Snapshot{
		InstanceID: d.instanceID,
		Queued:     d.guard.Queued(),
		Played:     d.guard.Played(),
		Pending:    st.Pending,
		Playing:    st.Playing,
		Locked:     st.Locked,
	}
}

func (d *Dispatcher) record(typ, msg string, fields map[string]any) {
	log.Printf("[audio] instance=%s [%s] %s %v", d.instanceID, typ, msg, fields)
	payload := map[string]any{"instance_id": d.instanceID, "message": msg}
	for k, v := range fields {
		payload[k] = v
	}
	d.store.AppendEvent(typ, payload)
}

// debug is log-only: scan chatter every poll would flood the event log.
func (d *Dispatcher) debug(typ, msg string) {
	if d.verbose {
		log.Printf("[audio] instance=%s [%s] %s", d.instanceID, typ, msg)
	}
}
