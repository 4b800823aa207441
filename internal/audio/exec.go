package audio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"conferencia/painel/internal/assets"
	"conferencia/painel/internal/playback"
)

// ErrNoPlayerCommand is returned when no command-line audio player exists.
var ErrNoPlayerCommand = errors.New("no audio player command available")

// candidates are tried in order when no command is configured. Clips are
// MP3, so decoders that always handle it come before paplay, which needs
// libsndfile 1.1 or later for MP3.
var candidates = [][]string{
	{"mpg123", "-q"},
	{"ffplay", "-nodisp", "-autoexit", "-loglevel", "error"},
	{"paplay"},
	{"afplay"},
}

// ExecPlayer plays each clip with an external player process. Exit status
// 0 is a natural end; a non-zero exit is a playback error.
type ExecPlayer struct {
	assetDir string
	argv     []string
	grace    time.Duration

	mu    sync.Mutex
	procs int
}

// NewExecPlayer resolves the player command now, so a missing binary shows
// up at startup rather than on the first alert.
func NewExecPlayer(assetDir, command string) (*ExecPlayer, error) {
	argv, err := resolveCommand(command)
	if err != nil {
		return nil, err
	}
	return &ExecPlayer{assetDir: assetDir, argv: argv, grace: 3 * time.Second}, nil
}

func resolveCommand(command string) ([]string, error) {
	if parts := strings.Fields(command); len(parts) > 0 {
		if _, err := exec.LookPath(parts[0]); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrNoPlayerCommand, parts[0])
		}
		return parts, nil
	}
	for _, c := range candidates {
		if _, err := exec.LookPath(c[0]); err == nil {
			return append([]string(nil), c...), nil
		}
	}
	return nil, ErrNoPlayerCommand
}

func (p *ExecPlayer) Command() string { return strings.Join(p.argv, " ") }

// Running reports how many player processes are alive.
func (p *ExecPlayer) Running() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.procs
}

func (p *ExecPlayer) Play(parent context.Context, ref string, onDone func(error)) (playback.Handle, error) {
	path := assets.FilePath(p.assetDir, ref)
	ctx, cancel := context.WithCancel(parent)
	h := &execHandle{cancel: cancel}

	if _, err := os.Stat(path); err != nil {
		// Same as a clip the platform could not load: the order counts as played.
		go onDone(fmt.Errorf("%w: %v", playback.ErrStartFailed, err))
		return h, nil
	}

	args := append(append([]string(nil), p.argv[1:]...), path)
	cmd := exec.CommandContext(ctx, p.argv[0], args...)
	cmd.Env = os.Environ()
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = p.grace

	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("player stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		go onDone(fmt.Errorf("%w: %v", playback.ErrStartFailed, err))
		return h, nil
	}

	p.mu.Lock()
	p.procs++
	p.mu.Unlock()

	go p.stream(cmd.Process.Pid, stderr)
	go func() {
		err := cmd.Wait()
		cancel()
		p.mu.Lock()
		p.procs--
		p.mu.Unlock()
		if err != nil {
			onDone(fmt.Errorf("player %s: %w", p.argv[0], err))
			return
		}
		onDone(nil)
	}()
	return h, nil
}

func (p *ExecPlayer) stream(pid int, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		log.Printf("[audio] player[%d] stderr: %s", pid, scanner.Text())
	}
}

type execHandle struct {
	cancel context.CancelFunc
}

// Stop interrupts the player; the process is killed if it outlives the
// grace period.
func (h *execHandle) Stop() { h.cancel() }
