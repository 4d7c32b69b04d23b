package voice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakePlayback struct {
	ref     string
	stopped bool
	done    chan struct{}
	once    sync.Once
}

func (p *fakePlayback) Stop() error {
	p.stopped = true
	p.finish()
	return nil
}

func (p *fakePlayback) finish() { p.once.Do(func() { close(p.done) }) }

func (p *fakePlayback) Done() <-chan struct{} { return p.done }

type fakePlayer struct {
	mu    sync.Mutex
	clips []*fakePlayback
}

func (f *fakePlayer) Play(_ context.Context, ref string) (Playback, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	// the previous clip must already be stopped when a new one starts
	for _, c := range f.clips {
		select {
		case <-c.done:
		default:
			return nil, errors.New("overlapping playback of " + c.ref)
		}
	}
	pb := &fakePlayback{ref: ref, done: make(chan struct{})}
	f.clips = append(f.clips, pb)
	return pb, nil
}

var (
	voiceA = Voice{ID: "a", Name: "A", PreviewURL: "https://x/a.mp3"}
	voiceB = Voice{ID: "b", Name: "B", PreviewURL: "https://x/b.mp3"}
	voiceC = Voice{ID: "c", Name: "C"}
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPreviewExclusivity(t *testing.T) {
	player := &fakePlayer{}
	g := NewPreviewGate(player, nil)
	ctx := context.Background()

	if err := g.Play(ctx, voiceA); err != nil {
		t.Fatalf("play A: %v", err)
	}
	if err := g.Play(ctx, voiceB); err != nil {
		t.Fatalf("play B: %v", err)
	}
	if got := g.Current(); got != "b" {
		t.Fatalf("Current mismatch: got %q want b", got)
	}
	if !player.clips[0].stopped {
		t.Fatal("clip A was not stopped")
	}
	if player.clips[1].stopped {
		t.Fatal("clip B should still be playing")
	}
}

func TestPreviewNoReference(t *testing.T) {
	player := &fakePlayer{}
	g := NewPreviewGate(player, nil)
	_ = g.Play(context.Background(), voiceA)

	if err := g.Play(context.Background(), voiceC); !errors.Is(err, ErrNoPreview) {
		t.Fatalf("expected ErrNoPreview, got %v", err)
	}
	if g.Current() != "a" || player.clips[0].stopped {
		t.Fatal("rejected preview changed playback state")
	}
}

func TestPreviewNaturalCompletionClears(t *testing.T) {
	player := &fakePlayer{}
	g := NewPreviewGate(player, nil)
	_ = g.Play(context.Background(), voiceA)

	player.clips[0].finish()
	waitFor(t, func() bool { return g.Current() == "" })
}

func TestPreviewStaleCompletionKeepsNewClip(t *testing.T) {
	player := &fakePlayer{}
	g := NewPreviewGate(player, nil)
	_ = g.Play(context.Background(), voiceA)
	_ = g.Play(context.Background(), voiceB)

	// A's watcher fires after B started; B must stay current
	time.Sleep(20 * time.Millisecond)
	if g.Current() != "b" {
		t.Fatalf("Current mismatch: got %q want b", g.Current())
	}
}

func TestPreviewToggle(t *testing.T) {
	player := &fakePlayer{}
	g := NewPreviewGate(player, nil)
	ctx := context.Background()

	if err := g.Toggle(ctx, voiceA); err != nil {
		t.Fatalf("toggle on: %v", err)
	}
	if err := g.Toggle(ctx, voiceA); err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	if g.Current() != "" || !player.clips[0].stopped {
		t.Fatal("toggle did not stop the playing clip")
	}
}

func TestPreviewToggleOtherVoicePlays(t *testing.T) {
	player := &fakePlayer{}
	g := NewPreviewGate(player, nil)
	ctx := context.Background()

	_ = g.Play(ctx, voiceB)
	if err := g.Toggle(ctx, voiceA); err != nil {
		t.Fatalf("toggle A: %v", err)
	}
	if got := g.Current(); got != "a" {
		t.Fatalf("Current mismatch: got %q want a", got)
	}

	// after A ends on its own, toggling A starts it again
	player.clips[1].finish()
	waitFor(t, func() bool { return g.Current() == "" })
	if err := g.Toggle(ctx, voiceA); err != nil {
		t.Fatalf("toggle A again: %v", err)
	}
	if got := g.Current(); got != "a" || len(player.clips) != 3 {
		t.Fatalf("expected a fresh clip of A: current %q clips %d", got, len(player.clips))
	}
}

func TestPreviewToggleConcurrent(t *testing.T) {
	player := &fakePlayer{}
	g := NewPreviewGate(player, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 200)
	for i := 0; i < 100; i++ {
		v := voiceA
		if i%2 == 1 {
			v = voiceB
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := g.Toggle(ctx, v); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("toggle: %v", err)
	}

	cur := g.Current()
	player.mu.Lock()
	defer player.mu.Unlock()
	live := ""
	for _, c := range player.clips {
		select {
		case <-c.done:
		default:
			if live != "" {
				t.Fatalf("two clips live: %s and %s", live, c.ref)
			}
			live = c.ref
		}
	}
	switch {
	case live == "" && cur != "":
		t.Fatalf("Current is %q with nothing playing", cur)
	case live == voiceA.PreviewURL && cur != "a", live == voiceB.PreviewURL && cur != "b":
		t.Fatalf("Current %q does not match live clip %s", cur, live)
	}
}
