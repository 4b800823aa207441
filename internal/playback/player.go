package playback

import (
	"context"
	"errors"
	"time"
)

// ErrStartFailed marks a clip the platform refused to start (device busy,
// decoder missing, process failed to launch). Players wrap it with %w.
var ErrStartFailed = errors.New("playback start failed")

var errClipTimeout = errors.New("clip produced no terminal event")

// Player starts one clip at a time on behalf of the Engine.
//
// Play returns an error only when no handle could be created at all.
// Otherwise onDone is called exactly once when the clip terminates: nil for
// a natural end, an error wrapping ErrStartFailed when playback never
// began, or any other error for a mid-playback failure. onDone must never
// be invoked synchronously from inside Play or Handle.Stop.
type Player interface {
	Play(ctx context.Context, assetRef string, onDone func(error)) (Handle, error)
}

// Handle controls a clip in flight. Stop must be safe to call after the
// clip has already ended.
type Handle interface {
	Stop()
}

// Timer is a cancellable deferred task.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// SystemScheduler is backed by time.AfterFunc.
var SystemScheduler Scheduler = realScheduler{}
