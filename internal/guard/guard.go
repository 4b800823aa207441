// Package guard tracks which orders already had their alert queued or
// played during the lifetime of the running process.
package guard

import (
	"sort"
	"sync"
)

// Guard holds the queued and played id sets. An id is never in both.
type Guard struct {
	mu     sync.Mutex
	queued map[int64]struct{}
	played map[int64]struct{}
}

func New() *Guard {
	return &Guard{
		queued: make(map[int64]struct{}),
		played: make(map[int64]struct{}),
	}
}

func (g *Guard) IsPlayed(id int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.played[id]
	return ok
}

func (g *Guard) IsQueued(id int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.queued[id]
	return ok
}

func (g *Guard) MarkQueued(id int64) {
	g.mu.Lock()
	g.queued[id] = struct{}{}
	g.mu.Unlock()
}

// MarkPlayed moves id from queued to played in one step.
func (g *Guard) MarkPlayed(id int64) {
	g.mu.Lock()
	delete(g.queued, id)
	g.played[id] = struct{}{}
	g.mu.Unlock()
}

// Release drops id from queued without marking it played, so a later scan
// may submit it again.
func (g *Guard) Release(id int64) {
	g.mu.Lock()
	delete(g.queued, id)
	g.mu.Unlock()
}

// ResetAll clears both sets. It does not touch in-flight playback.
func (g *Guard) ResetAll() {
	g.mu.Lock()
	g.queued = make(map[int64]struct{})
	g.played = make(map[int64]struct{})
	g.mu.Unlock()
}

// ResetQueued clears queued and keeps played.
func (g *Guard) ResetQueued() {
	g.mu.Lock()
	g.queued = make(map[int64]struct{})
	g.mu.Unlock()
}

func (g *Guard) Queued() []int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return sortedIDs(g.queued)
}

func (g *Guard) Played() []int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return sortedIDs(g.played)
}

func sortedIDs(set map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
