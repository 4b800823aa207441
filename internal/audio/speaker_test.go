package audio

import (
	"context"
	"errors"
	"testing"
)

func TestSpeakerInitRunsOnceAndFailsSetup(t *testing.T) {
	calls := 0
	noDevice := errors.New("no output device")
	p := &SpeakerPlayer{assetDir: t.TempDir(), initDevice: func() error {
		calls++
		return noDevice
	}}

	for i := 0; i < 3; i++ {
		h, err := p.Play(context.Background(), "/audio/clip.mp3", func(error) {
			t.Error("onDone must not run when the device cannot open")
		})
		if !errors.Is(err, noDevice) {
			t.Fatalf("expected setup error wrapping the device error, got %v", err)
		}
		if h != nil {
			t.Fatalf("expected no handle on setup failure")
		}
	}
	if calls != 1 {
		t.Fatalf("device init must run once, ran %d times", calls)
	}
}
