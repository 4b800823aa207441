// Package playback serializes alert clips: one clip at a time, strict FIFO,
// and every terminal event leads back to Idle.
package playback

import (
	"context"
	"errors"
	"sync"
	"time"

	"conferencia/painel/internal/types"
)

// Reason names the terminal event that closed a clip.
type Reason string

const (
	ReasonEnded        Reason = "ended"
	ReasonError        Reason = "error"
	ReasonStartFailure Reason = "start_failure"
	ReasonTimeout      Reason = "timeout"
	ReasonSetupFailure Reason = "setup_failure"
)

// DefaultGap is the pause between consecutive clips.
const DefaultGap = 300 * time.Millisecond

// Ledger receives the session bookkeeping for each request.
type Ledger interface {
	MarkQueued(id int64)
	MarkPlayed(id int64)
	Release(id int64)
}

// Note is a diagnostics record produced by a transition.
type Note struct {
	Type    string
	Message string
	Fields  map[string]any
}

type Config struct {
	Gap         time.Duration // 0 means DefaultGap
	ClipTimeout time.Duration // 0 disables the watchdog
	Scheduler   Scheduler
	// Observe receives notes after the engine lock is released.
	Observe func(Note)
	// Context is handed to Player.Play.
	Context context.Context
}

// State is a point-in-time view of the engine.
type State struct {
	Locked  bool
	Playing *types.AlertRequest
	Pending []int64
}

type activePlay struct {
	req       types.AlertRequest
	gen       uint64
	handle    Handle
	startedAt time.Time
	watchdog  Timer
}

// Engine owns the now-playing slot and the pending FIFO. Locked is
// equivalent to active != nil.
type Engine struct {
	player Player
	ledger Ledger
	sched  Scheduler
	gap    time.Duration
	clip   time.Duration
	obs    func(Note)
	ctx    context.Context

	mu      sync.Mutex
	queue   []types.AlertRequest
	active  *activePlay
	gen     uint64
	next    Timer
	nextSeq uint64
}

func New(p Player, l Ledger, cfg Config) *Engine {
	e := &Engine{
		player: p,
		ledger: l,
		sched:  cfg.Scheduler,
		gap:    cfg.Gap,
		clip:   cfg.ClipTimeout,
		obs:    cfg.Observe,
		ctx:    cfg.Context,
	}
	if e.sched == nil {
		e.sched = SystemScheduler
	}
	if e.gap <= 0 {
		e.gap = DefaultGap
	}
	if e.ctx == nil {
		e.ctx = context.Background()
	}
	return e
}

// Submit queues req. The caller has already checked that the order is
// neither queued nor played.
func (e *Engine) Submit(req types.AlertRequest) {
	var notes []Note
	e.mu.Lock()
	e.ledger.MarkQueued(req.OrderID)
	e.queue = append(e.queue, req)
	gaugeQueueDepth.Set(float64(len(e.queue)))
	notes = append(notes, Note{Type: "QUEUE_ADD", Message: "alert queued", Fields: map[string]any{
		"order_id": req.OrderID, "asset": req.AssetRef, "vendor": req.DisplayName,
		"queue": e.pendingLocked(), "locked": e.active != nil,
	}})
	if e.active == nil {
		notes = e.advanceLocked(notes)
	} else {
		notes = append(notes, Note{Type: "QUEUE_WAIT", Message: "clip in flight, request waits"})
	}
	e.mu.Unlock()
	e.emit(notes)
}

// Clear stops the active clip, drops the queue and cancels any scheduled
// continuation. The interrupted order is not marked played.
func (e *Engine) Clear() {
	e.mu.Lock()
	fields := map[string]any{"queue_before": e.pendingLocked(), "playing": e.active != nil}
	if e.next != nil {
		e.next.Stop()
		e.next = nil
	}
	if a := e.active; a != nil {
		fields["stopped_order_id"] = a.req.OrderID
		if a.watchdog != nil {
			a.watchdog.Stop()
		}
		if a.handle != nil {
			a.handle.Stop()
		}
		e.active = nil
	}
	// Late callbacks from the stopped clip carry an old generation.
	e.gen++
	e.queue = nil
	gaugeQueueDepth.Set(0)
	gaugePlaying.Set(0)
	e.mu.Unlock()
	e.emit([]Note{{Type: "CLEAR", Message: "alert queue cleared", Fields: fields}})
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := State{Locked: e.active != nil, Pending: e.pendingLocked()}
	if e.active != nil {
		req := e.active.req
		s.Playing = &req
	}
	return s
}

// advanceLocked starts the head of the queue when idle.
func (e *Engine) advanceLocked(notes []Note) []Note {
	if e.active != nil {
		return append(notes, Note{Type: "QUEUE_LOCKED", Message: "clip in flight, waiting", Fields: map[string]any{"queue": e.pendingLocked()}})
	}
	if len(e.queue) == 0 {
		return append(notes, Note{Type: "QUEUE_EMPTY", Message: "nothing to play"})
	}
	req := e.queue[0]
	e.queue[0] = types.AlertRequest{}
	e.queue = e.queue[1:]
	if len(e.queue) == 0 {
		e.queue = nil
	}
	gaugeQueueDepth.Set(float64(len(e.queue)))

	e.gen++
	gen := e.gen
	e.active = &activePlay{req: req, gen: gen, startedAt: time.Now()}
	gaugePlaying.Set(1)
	notes = append(notes, Note{Type: "PLAY_START", Message: "starting alert clip", Fields: map[string]any{
		"order_id": req.OrderID, "vendor": req.DisplayName, "asset": req.AssetRef, "queue": e.pendingLocked(),
	}})

	h, err := e.player.Play(e.ctx, req.AssetRef, func(err error) { e.onDone(gen, err) })
	if err == nil && h == nil {
		err = errors.New("player returned no handle")
	}
	if err != nil {
		return e.onSetupFailure(req, err, notes)
	}
	e.active.handle = h
	if e.clip > 0 {
		e.active.watchdog = e.sched.AfterFunc(e.clip, func() { e.onTimeout(gen) })
	}
	return notes
}

// onSetupFailure unlocks without marking the order played and releases it
// from the queued set, so a later scan can try again.
func (e *Engine) onSetupFailure(req types.AlertRequest, err error, notes []Note) []Note {
	e.active = nil
	gaugePlaying.Set(0)
	e.ledger.Release(req.OrderID)
	metricFinished.WithLabelValues(string(ReasonSetupFailure)).Inc()
	notes = append(notes, Note{Type: "CRITICAL", Message: "could not create clip", Fields: map[string]any{
		"order_id": req.OrderID, "asset": req.AssetRef, "error": err.Error(),
	}})
	e.scheduleNextLocked()
	return notes
}

func (e *Engine) onDone(gen uint64, err error) {
	switch {
	case err == nil:
		e.onEnded(gen)
	case errors.Is(err, ErrStartFailed):
		e.onStartFailure(gen, err)
	default:
		e.onError(gen, err)
	}
}

func (e *Engine) onEnded(gen uint64) { e.terminal(gen, ReasonEnded, nil) }

func (e *Engine) onError(gen uint64, err error) { e.terminal(gen, ReasonError, err) }

func (e *Engine) onStartFailure(gen uint64, err error) { e.terminal(gen, ReasonStartFailure, err) }

func (e *Engine) onTimeout(gen uint64) { e.terminal(gen, ReasonTimeout, errClipTimeout) }

func (e *Engine) terminal(gen uint64, reason Reason, cause error) {
	e.mu.Lock()
	a := e.active
	if a == nil || a.gen != gen {
		e.mu.Unlock()
		metricStaleEvents.Inc()
		e.emit([]Note{{Type: "STALE_EVENT", Message: "terminal event for inactive clip ignored", Fields: map[string]any{"reason": string(reason)}}})
		return
	}
	if a.watchdog != nil && reason != ReasonTimeout {
		a.watchdog.Stop()
	}
	if reason == ReasonTimeout && a.handle != nil {
		a.handle.Stop()
	}
	notes := e.finishLocked(a, reason, cause)
	e.mu.Unlock()
	e.emit(notes)
}

// finishLocked marks the order played, frees the slot and schedules the
// continuation.
func (e *Engine) finishLocked(a *activePlay, reason Reason, cause error) []Note {
	e.ledger.MarkPlayed(a.req.OrderID)
	e.active = nil
	gaugePlaying.Set(0)
	metricFinished.WithLabelValues(string(reason)).Inc()
	metricDurationMS.Observe(float64(time.Since(a.startedAt).Milliseconds()))

	fields := map[string]any{"order_id": a.req.OrderID, "reason": string(reason)}
	if cause != nil {
		fields["error"] = cause.Error()
	}
	e.scheduleNextLocked()
	return []Note{{Type: "FINISH_ITEM", Message: "alert clip finished", Fields: fields}}
}

func (e *Engine) scheduleNextLocked() {
	if e.next != nil {
		e.next.Stop()
	}
	e.nextSeq++
	seq := e.nextSeq
	e.next = e.sched.AfterFunc(e.gap, func() { e.continueQueue(seq) })
}

func (e *Engine) continueQueue(seq uint64) {
	e.mu.Lock()
	if e.next == nil || seq != e.nextSeq {
		// cancelled or superseded
		e.mu.Unlock()
		return
	}
	e.next = nil
	notes := []Note{{Type: "QUEUE_NEXT", Message: "checking queue after clip", Fields: map[string]any{"queue": e.pendingLocked()}}}
	if len(e.queue) > 0 {
		notes = e.advanceLocked(notes)
	} else {
		notes = append(notes, Note{Type: "QUEUE_EMPTY_AFTER", Message: "queue empty after clip"})
	}
	e.mu.Unlock()
	e.emit(notes)
}

func (e *Engine) pendingLocked() []int64 {
	out := make([]int64, len(e.queue))
	for i, r := range e.queue {
		out[i] = r.OrderID
	}
	return out
}

func (e *Engine) emit(notes []Note) {
	if e.obs == nil {
		return
	}
	for _, n := range notes {
		e.obs(n)
	}
}
