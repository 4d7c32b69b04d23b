package generation

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulofranca-ai/canaldarkgen/internal/notice"
	"github.com/paulofranca-ai/canaldarkgen/internal/project"
	"github.com/paulofranca-ai/canaldarkgen/internal/script"
)

type stubGenerator struct {
	idea      script.Idea
	drafts    []project.SceneDraft
	err       error
	release   chan struct{}
	started   chan struct{}
	scriptCnt atomic.Int32
	ideaCnt   atomic.Int32
}

func (s *stubGenerator) GenerateIdeas(ctx context.Context, _ project.VideoType) (script.Idea, error) {
	s.ideaCnt.Add(1)
	return s.idea, s.err
}

func (s *stubGenerator) GenerateScript(ctx context.Context, _ project.Config, _ string) ([]project.SceneDraft, error) {
	s.scriptCnt.Add(1)
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}
	return s.drafts, s.err
}

type countingRecovery struct{ calls atomic.Int32 }

func (c *countingRecovery) OpenCredentials(context.Context, error) { c.calls.Add(1) }

func readyConfig() project.Config {
	m := project.NewModel(project.DefaultConfig())
	m.SetIdea("A Verdade Oculta", "Você nunca mais vai...")
	return m.Config()
}

func TestGuardRejectsWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	g := NewGuard(func(ctx context.Context, n int) (int, error) {
		<-release
		return n * 2, nil
	})

	done := make(chan int)
	go func() {
		v, _ := g.Do(context.Background(), 21)
		done <- v
	}()
	for !g.InFlight() {
		time.Sleep(time.Millisecond)
	}

	if _, err := g.Do(context.Background(), 1); !errors.Is(err, ErrInFlight) {
		t.Fatalf("expected ErrInFlight, got %v", err)
	}
	close(release)
	if v := <-done; v != 42 {
		t.Fatalf("result mismatch: got %d want 42", v)
	}
	if g.InFlight() {
		t.Fatal("flag not cleared after completion")
	}
	if v, err := g.Do(context.Background(), 2); err != nil || v != 4 {
		t.Fatalf("call after completion: v=%d err=%v", v, err)
	}
}

func TestGuardClearsOnPanic(t *testing.T) {
	g := NewGuard(func(context.Context, struct{}) (struct{}, error) { panic("boom") })
	func() {
		defer func() { recover() }()
		g.Do(context.Background(), struct{}{})
	}()
	if g.InFlight() {
		t.Fatal("flag left set after panic")
	}
}

func TestGenerateScriptRequiresTopicAndHook(t *testing.T) {
	gen := &stubGenerator{}
	var rec notice.Recorder
	o := NewOrchestrator(gen, &rec, nil, nil)

	cfg := project.DefaultConfig()
	cfg.Topic = "só tópico"
	_, err := o.GenerateScript(context.Background(), ScriptRequest{Config: cfg})
	if !errors.Is(err, ErrTopicHookRequired) {
		t.Fatalf("expected ErrTopicHookRequired, got %v", err)
	}
	if gen.scriptCnt.Load() != 0 {
		t.Fatal("service called despite missing hook")
	}
	notices := rec.All()
	if len(notices) != 1 || notices[0].Message != "Defina o Tópico e o Hook!" {
		t.Fatalf("unexpected notices: %+v", notices)
	}
}

func TestGenerateScriptInFlightThenAccepted(t *testing.T) {
	gen := &stubGenerator{
		drafts:  []project.SceneDraft{{Narration: "n", VisualPrompt: "v"}},
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	var rec notice.Recorder
	o := NewOrchestrator(gen, &rec, nil, nil)
	req := ScriptRequest{Config: readyConfig()}

	errc := make(chan error, 1)
	go func() {
		_, err := o.GenerateScript(context.Background(), req)
		errc <- err
	}()
	<-gen.started

	if !o.ScriptInFlight() {
		t.Fatal("flag not set while request outstanding")
	}
	if _, err := o.GenerateScript(context.Background(), req); !errors.Is(err, ErrInFlight) {
		t.Fatalf("expected ErrInFlight, got %v", err)
	}
	close(gen.release)
	if err := <-errc; err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	if o.ScriptInFlight() {
		t.Fatal("flag not cleared")
	}
	if len(rec.All()) != 0 {
		t.Fatalf("duplicate rejection must be silent: %+v", rec.All())
	}

	gen.started = nil
	gen.release = nil
	if _, err := o.GenerateScript(context.Background(), req); err != nil {
		t.Fatalf("new invocation rejected: %v", err)
	}
	if got := gen.scriptCnt.Load(); got != 2 {
		t.Fatalf("service call count mismatch: got %d want 2", got)
	}
}

func TestCredentialFailureRoutesToRecoveryOnce(t *testing.T) {
	gen := &stubGenerator{err: errors.New("Invalid API Key")}
	var rec notice.Recorder
	recovery := &countingRecovery{}
	o := NewOrchestrator(gen, &rec, recovery, nil)

	_, err := o.GenerateScript(context.Background(), ScriptRequest{Config: readyConfig()})
	if err == nil {
		t.Fatal("expected failure")
	}
	if recovery.calls.Load() != 1 {
		t.Fatalf("recovery calls mismatch: got %d want 1", recovery.calls.Load())
	}
	if o.ScriptInFlight() {
		t.Fatal("flag not cleared after failure")
	}
	notices := rec.All()
	if len(notices) != 1 || notices[0].Message != "Erro no Motor de IA: Invalid API Key" {
		t.Fatalf("notice mismatch: %+v", notices)
	}
}

func TestGenericFailureNoticeOnly(t *testing.T) {
	gen := &stubGenerator{err: &script.ServiceError{Kind: script.KindTransient, Message: "quota exceeded"}}
	var rec notice.Recorder
	recovery := &countingRecovery{}
	o := NewOrchestrator(gen, &rec, recovery, nil)

	if _, err := o.GenerateIdeas(context.Background(), project.VideoShort); err == nil {
		t.Fatal("expected failure")
	}
	if recovery.calls.Load() != 0 {
		t.Fatal("recovery invoked for a non-credential failure")
	}
	if n := rec.All(); len(n) != 1 || !strings.HasPrefix(n[0].Message, "Erro ao gerar ideias: ") {
		t.Fatalf("notice mismatch: %+v", n)
	}
	if o.IdeasInFlight() {
		t.Fatal("flag not cleared")
	}
}

func TestNoGeneratorIsCredentialFailure(t *testing.T) {
	recovery := &countingRecovery{}
	o := NewOrchestrator(nil, nil, recovery, nil)
	if _, err := o.GenerateIdeas(context.Background(), project.VideoLong); script.KindOf(err) != script.KindCredentialMissing {
		t.Fatalf("expected credential failure, got %v", err)
	}
	if recovery.calls.Load() != 1 {
		t.Fatal("recovery not invoked")
	}

	o.SetGenerator(&stubGenerator{idea: script.Idea{Topic: "t", Hook: "h"}})
	idea, err := o.GenerateIdeas(context.Background(), project.VideoLong)
	if err != nil || idea.Topic != "t" {
		t.Fatalf("after SetGenerator: idea=%+v err=%v", idea, err)
	}
}
