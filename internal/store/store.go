package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"conferencia/painel/internal/types"
)

// DefaultCapacity bounds the in-memory diagnostics log.
const DefaultCapacity = 200

// Store is the diagnostics event log for one running instance. Subscribers
// are called after the event is stored, outside the lock.
type Store struct {
	mu       sync.RWMutex
	events   []types.Event
	capacity int
	subs     map[int]func(types.Event)
	nextSub  int

	// single truncation marker, listed after the retained events
	marker  *types.Event
	dropped int
}

func New() *Store { return NewWithCapacity(DefaultCapacity) }

func NewWithCapacity(capacity int) *Store {
	if capacity < 2 {
		capacity = 2
	}
	return &Store{capacity: capacity, subs: make(map[int]func(types.Event))}
}

func (s *Store) AppendEvent(typ string, payload map[string]any) types.Event {
	evt := types.Event{ID: uuid.NewString(), Type: typ, Ts: time.Now().UTC(), Payload: payload}
	s.mu.Lock()
	s.events = append(s.events, evt)
	s.trimLocked()
	subs := make([]func(types.Event), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(evt)
	}
	return evt
}

// trimLocked keeps the log at capacity entries in total: once anything has
// been dropped, capacity-1 events plus one events_truncated marker.
func (s *Store) trimLocked() {
	keep := s.capacity
	if s.marker != nil || len(s.events) > s.capacity {
		keep = s.capacity - 1
	}
	l := len(s.events)
	if l <= keep {
		return
	}
	s.dropped += l - keep
	s.events = append([]types.Event(nil), s.events[l-keep:]...)
	if s.marker == nil {
		s.marker = &types.Event{ID: uuid.NewString(), Type: "events_truncated"}
	}
	s.marker.Ts = time.Now().UTC()
	s.marker.Payload = map[string]any{"dropped": s.dropped, "kept": keep}
}

func (s *Store) ListEvents() []types.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Event, len(s.events), len(s.events)+1)
	copy(out, s.events)
	if s.marker != nil {
		out = append(out, *s.marker)
	}
	return out
}

// Subscribe registers fn for every new event and returns its cancel func.
func (s *Store) Subscribe(fn func(types.Event)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}
