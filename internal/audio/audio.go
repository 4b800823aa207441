// Package audio holds the Player implementations used by the alert engine.
package audio

import (
	"context"
	"fmt"
	"log"
	"time"

	"conferencia/painel/internal/playback"
)

const (
	BackendExec    = "exec"
	BackendSpeaker = "speaker"
	BackendNone    = "none"
)

// New builds the player named by backend.
func New(backend, assetDir, command string) (playback.Player, error) {
	switch backend {
	case "", BackendExec:
		p, err := NewExecPlayer(assetDir, command)
		if err != nil {
			return nil, err
		}
		log.Printf("[audio] exec player using %q", p.Command())
		return p, nil
	case BackendSpeaker:
		return NewSpeakerPlayer(assetDir), nil
	case BackendNone:
		return SilentPlayer{}, nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q", backend)
	}
}

// SilentPlayer logs the clip and reports a natural end after Length.
// Used on hosts without an output device.
type SilentPlayer struct {
	Length time.Duration
}

func (p SilentPlayer) Play(ctx context.Context, ref string, onDone func(error)) (playback.Handle, error) {
	log.Printf("[audio] silent clip %s", ref)
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		t := time.NewTimer(p.Length)
		defer t.Stop()
		select {
		case <-t.C:
			onDone(nil)
		case <-ctx.Done():
			onDone(ctx.Err())
		}
	}()
	return silentHandle{cancel}, nil
}

type silentHandle struct{ cancel context.CancelFunc }

func (h silentHandle) Stop() { h.cancel() }
