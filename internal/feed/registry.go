package feed

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"

	"conferencia/painel/internal/types"
)

const sendBuffer = 64

// Message is one frame on the diagnostics feed.
type Message struct {
	Type  string      `json:"type"`
	TsMs  int64       `json:"ts_ms"`
	Seq   int64       `json:"seq"`
	Event types.Event `json:"event"`
}

type client struct {
	send    chan []byte
	dropped int
}

// Registry holds the connected dashboards. Broadcast never blocks: a
// client whose buffer is full loses the frame.
type Registry struct {
	mu    sync.Mutex
	conns map[string]*client
	seq   int64
}

func NewRegistry() *Registry { return &Registry{conns: make(map[string]*client)} }

// Add registers a connection and returns its id and outbound channel.
func (r *Registry) Add() (string, <-chan []byte) {
	id := uuid.NewString()
	c := &client{send: make(chan []byte, sendBuffer)}
	r.mu.Lock()
	r.conns[id] = c
	r.mu.Unlock()
	return id, c.send
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.conns[id]; ok {
		close(c.send)
		delete(r.conns, id)
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// Broadcast fans an event out to every connection.
func (r *Registry) Broadcast(ev types.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	b := mustJSON(Message{Type: "event", TsMs: ev.Ts.UnixMilli(), Seq: r.seq, Event: ev})
	for id, c := range r.conns {
		select {
		case c.send <- b:
		default:
			c.dropped++
			if c.dropped == 1 || c.dropped%100 == 0 {
				log.Printf("[feed] client %s is slow, dropped %d frames", id, c.dropped)
			}
		}
	}
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}
