// Package poll keeps the pending-order list fresh and feeds it to the
// alert dispatcher.
package poll

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"conferencia/painel/internal/backend"
	"conferencia/painel/internal/types"
)

const DefaultInterval = 5 * time.Second

// Scanner is the part of the dispatcher the poller drives.
type Scanner interface {
	Scan(orders []types.Order) bool
	ClearQueue()
}

type Poller struct {
	src      backend.Client
	scanner  Scanner
	interval time.Duration

	inFlight atomic.Bool
	wg       sync.WaitGroup

	mu        sync.RWMutex
	orders    []types.Order
	lastErr   string
	lastFetch time.Time
}

func New(src backend.Client, scanner Scanner, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{src: src, scanner: scanner, interval: interval, orders: []types.Order{}}
}

// Run fetches once immediately and then on every tick until ctx is done.
// On return the dispatcher queue has been cleared.
func (p *Poller) Run(ctx context.Context) {
	log.Printf("[poll] polling every %s", p.interval)
	p.Tick(ctx)
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			p.wg.Wait()
			p.scanner.ClearQueue()
			log.Printf("[poll] stopped")
			return
		case <-t.C:
			p.Tick(ctx)
		}
	}
}

// Tick starts a fetch in the background unless one is still running.
// It reports whether a fetch was started.
func (p *Poller) Tick(ctx context.Context) bool {
	if !p.inFlight.CompareAndSwap(false, true) {
		metricFetch.WithLabelValues("skipped").Inc()
		log.Printf("[poll] POLL_SKIP previous fetch still in flight")
		return false
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.inFlight.Store(false)
		p.Poll(ctx)
	}()
	return true
}

// Poll performs one synchronous fetch and scan.
func (p *Poller) Poll(ctx context.Context) error {
	start := time.Now()
	orders, err := p.src.FetchPending(ctx)
	metricFetchMS.Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metricFetch.WithLabelValues("error").Inc()
		log.Printf("[poll] fetch failed, keeping %d orders: %v", len(p.Orders()), err)
		p.mu.Lock()
		p.lastErr = err.Error()
		p.mu.Unlock()
		return err
	}
	metricFetch.WithLabelValues("ok").Inc()
	if len(orders) > 0 {
		p.scanner.Scan(orders)
	}
	p.mu.Lock()
	p.orders = orders
	p.lastErr = ""
	p.lastFetch = time.Now()
	p.mu.Unlock()
	return nil
}

func (p *Poller) Orders() []types.Order {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]types.Order, len(p.orders))
	copy(out, p.orders)
	return out
}

// LastError is the text of the most recent failed fetch, or "" after a
// successful one.
func (p *Poller) LastError() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastErr
}

func (p *Poller) LastFetch() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastFetch
}
