package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"

	"conferencia/painel/internal/assets"
	"conferencia/painel/internal/playback"
)

const speakerRate = beep.SampleRate(44100)

var errStopped = errors.New("clip stopped")

// SpeakerPlayer decodes clips in-process and plays them on the default
// output device.
type SpeakerPlayer struct {
	assetDir string
	// initDevice opens the output device; called at most once.
	initDevice func() error

	once    sync.Once
	initErr error
}

func NewSpeakerPlayer(assetDir string) *SpeakerPlayer {
	return &SpeakerPlayer{assetDir: assetDir, initDevice: initSpeaker}
}

func initSpeaker() error {
	return speaker.Init(speakerRate, speakerRate.N(100*time.Millisecond))
}

func (p *SpeakerPlayer) init() error {
	p.once.Do(func() {
		if err := p.initDevice(); err != nil {
			p.initErr = fmt.Errorf("init audio device: %w", err)
		}
	})
	return p.initErr
}

func (p *SpeakerPlayer) Play(_ context.Context, ref string, onDone func(error)) (playback.Handle, error) {
	if err := p.init(); err != nil {
		return nil, err
	}
	h := &speakerHandle{onDone: onDone}

	path := assets.FilePath(p.assetDir, ref)
	streamer, format, err := decodeFile(path)
	if err != nil {
		go h.finish(fmt.Errorf("%w: %v", playback.ErrStartFailed, err))
		return h, nil
	}
	h.src = streamer

	var s beep.Streamer = streamer
	if format.SampleRate != speakerRate {
		s = beep.Resample(4, format.SampleRate, speakerRate, streamer)
	}
	h.ctrl = &beep.Ctrl{Streamer: s}
	// The callback runs with the speaker lock held, so report from a new
	// goroutine.
	speaker.Play(beep.Seq(h.ctrl, beep.Callback(func() {
		go h.finish(streamer.Err())
	})))
	return h, nil
}

func decodeFile(path string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, err
	}
	var (
		s      beep.StreamSeekCloser
		format beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		s, format, err = mp3.Decode(f)
	case ".wav":
		s, format, err = wav.Decode(f)
	default:
		err = fmt.Errorf("unsupported clip format %q", filepath.Ext(path))
	}
	if err != nil {
		f.Close()
		return nil, beep.Format{}, err
	}
	return s, format, nil
}

type speakerHandle struct {
	ctrl   *beep.Ctrl
	src    beep.StreamSeekCloser
	onDone func(error)
	once   sync.Once
}

func (h *speakerHandle) Stop() {
	if h.ctrl != nil {
		speaker.Lock()
		h.ctrl.Paused = true
		h.ctrl.Streamer = nil
		speaker.Unlock()
	}
	go h.finish(errStopped)
}

func (h *speakerHandle) finish(err error) {
	h.once.Do(func() {
		if h.src != nil {
			_ = h.src.Close()
		}
		h.onDone(err)
	})
}
