package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
)

// ErrNoPreview is returned when a voice has no preview clip to play.
var ErrNoPreview = errors.New("voice has no preview audio")

// Player starts playback of an audio reference.
type Player interface {
	Play(ctx context.Context, ref string) (Playback, error)
}

// Playback is a running clip. Done is closed when the clip ends, whether
// naturally or through Stop.
type Playback interface {
	Stop() error
	Done() <-chan struct{}
}

type playing struct {
	voiceID string
	pb      Playback
	token   uint64
}

// PreviewGate allows at most one preview clip at a time. Starting a clip
// stops the previous one before the new one begins.
type PreviewGate struct {
	player Player
	log    *slog.Logger

	mu      sync.Mutex
	current *playing
	seq     uint64
}

func NewPreviewGate(player Player, logger *slog.Logger) *PreviewGate {
	if logger == nil {
		logger = slog.Default()
	}
	return &PreviewGate{player: player, log: logger}
}

// Current returns the id of the voice being previewed, or "".
func (g *PreviewGate) Current() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current == nil {
		return ""
	}
	return g.current.voiceID
}

// Play starts the preview clip of v, stopping whatever was playing.
// A voice without a preview is rejected with ErrNoPreview and nothing
// changes.
func (g *PreviewGate) Play(ctx context.Context, v Voice) error {
	if v.PreviewURL == "" {
		return fmt.Errorf("%s: %w", v.Name, ErrNoPreview)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.playLocked(ctx, v)
}

func (g *PreviewGate) playLocked(ctx context.Context, v Voice) error {
	g.stopLocked()

	pb, err := g.player.Play(ctx, v.PreviewURL)
	if err != nil {
		return fmt.Errorf("play preview %s: %w", v.ID, err)
	}
	g.seq++
	cur := &playing{voiceID: v.ID, pb: pb, token: g.seq}
	g.current = cur
	go g.watch(cur)
	return nil
}

// Toggle stops v if it is the clip playing, otherwise plays it.
func (g *PreviewGate) Toggle(ctx context.Context, v Voice) error {
	if v.PreviewURL == "" {
		return fmt.Errorf("%s: %w", v.Name, ErrNoPreview)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current != nil && g.current.voiceID == v.ID {
		g.stopLocked()
		return nil
	}
	return g.playLocked(ctx, v)
}

// Stop ends the current clip, if any.
func (g *PreviewGate) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopLocked()
}

func (g *PreviewGate) stopLocked() {
	if g.current == nil {
		return
	}
	if err := g.current.pb.Stop(); err != nil {
		g.log.Warn("Failed to stop voice preview", "voice_id", g.current.voiceID, "error", err)
	}
	g.current = nil
}

// watch clears the current identity when the clip finishes on its own.
// The token guards against clearing a newer clip.
func (g *PreviewGate) watch(p *playing) {
	<-p.pb.Done()
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current != nil && g.current.token == p.token {
		g.current = nil
	}
}

// FFplayPlayer plays clips with ffplay, without a window.
type FFplayPlayer struct {
	Binary string
}

func NewFFplayPlayer() *FFplayPlayer {
	return &FFplayPlayer{Binary: "ffplay"}
}

// CheckFFplay reports whether ffplay is on PATH.
func CheckFFplay() error {
	if _, err := exec.LookPath("ffplay"); err != nil {
		return fmt.Errorf("ffplay not found (install FFmpeg to preview voices)")
	}
	return nil
}

type processPlayback struct {
	cmd  *exec.Cmd
	done chan struct{}
	once sync.Once
}

func (p *FFplayPlayer) Play(_ context.Context, ref string) (Playback, error) {
	cmd := exec.Command(p.Binary,
		"-nodisp",
		"-autoexit",
		"-loglevel", "error",
		ref,
	)
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", p.Binary, err)
	}
	pb := &processPlayback{cmd: cmd, done: make(chan struct{})}
	go func() {
		_ = cmd.Wait()
		pb.once.Do(func() { close(pb.done) })
	}()
	return pb, nil
}

func (p *processPlayback) Stop() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill player: %w", err)
	}
	<-p.done
	return nil
}

func (p *processPlayback) Done() <-chan struct{} { return p.done }
