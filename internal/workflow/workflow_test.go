package workflow

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulofranca-ai/canaldarkgen/internal/generation"
	"github.com/paulofranca-ai/canaldarkgen/internal/kvstore"
	"github.com/paulofranca-ai/canaldarkgen/internal/notice"
	"github.com/paulofranca-ai/canaldarkgen/internal/project"
	"github.com/paulofranca-ai/canaldarkgen/internal/script"
	"github.com/paulofranca-ai/canaldarkgen/internal/vault"
	"github.com/paulofranca-ai/canaldarkgen/internal/voice"
)

type fakeGenerator struct {
	mu      sync.Mutex
	idea    script.Idea
	drafts  []project.SceneDraft
	err     error
	gate    chan struct{}
	calls   int
	lastCfg project.Config
}

func (f *fakeGenerator) GenerateIdeas(ctx context.Context, _ project.VideoType) (script.Idea, error) {
	if f.gate != nil {
		<-f.gate
	}
	return f.idea, f.err
}

func (f *fakeGenerator) GenerateScript(ctx context.Context, cfg project.Config, _ string) ([]project.SceneDraft, error) {
	f.mu.Lock()
	f.calls++
	f.lastCfg = cfg
	f.mu.Unlock()
	if f.gate != nil {
		<-f.gate
	}
	return f.drafts, f.err
}

type fakeVault struct {
	providers vault.Providers
	locked    bool
}

func (v *fakeVault) PreferredProviders() (vault.Providers, error) {
	if v.locked {
		return vault.Providers{}, vault.ErrLocked
	}
	return v.providers, nil
}

func (v *fakeVault) Lock() { v.locked = true }

type nopPlayback struct{ done chan struct{} }

func (p *nopPlayback) Stop() error {
	select {
	case <-p.done:
	default:
		close(p.done)
	}
	return nil
}

func (p *nopPlayback) Done() <-chan struct{} { return p.done }

type nopPlayer struct{}

func (nopPlayer) Play(context.Context, string) (voice.Playback, error) {
	return &nopPlayback{done: make(chan struct{})}, nil
}

type harness struct {
	ctrl     *Controller
	gen      *fakeGenerator
	notices  *notice.Recorder
	recovery *atomic.Int32
	vault    *fakeVault
}

func newHarness(t *testing.T, gen *fakeGenerator) *harness {
	t.Helper()
	notices := &notice.Recorder{}
	recovery := &atomic.Int32{}
	orch := generation.NewOrchestrator(gen, notices, generation.RecoveryFunc(func(context.Context, error) {
		recovery.Add(1)
	}), nil)
	fv := &fakeVault{providers: vault.Providers{Text: "claude", Audio: voice.AudioOpenAIHD}}
	ctrl := New(Deps{
		Directory: voice.StaticDirectory{
			{ID: "onyx", Name: "Onyx", PreviewURL: "https://x/onyx.mp3", Nationality: project.NationalityBR, Base: voice.BaseOpenAI},
			{ID: "fable", Name: "Fable", Nationality: project.NationalityUS, Base: voice.BaseOpenAI},
			{ID: "adam", Name: "Adam", PreviewURL: "https://x/adam.mp3", Nationality: project.NationalityBR, Base: voice.BaseElevenLabs},
		},
		Presets:      voice.NewPresetBook(kvstore.NewMemory(), nil),
		Preview:      voice.NewPreviewGate(nopPlayer{}, nil),
		Vault:        fv,
		Orchestrator: orch,
		Notifier:     notices,
	}, project.DefaultConfig())
	if err := ctrl.LoadSession(context.Background()); err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	return &harness{ctrl: ctrl, gen: gen, notices: notices, recovery: recovery, vault: fv}
}

func threeDrafts() []project.SceneDraft {
	return []project.SceneDraft{
		{Narration: "um", VisualPrompt: "a"},
		{Narration: "dois", VisualPrompt: "b"},
		{Narration: "três", VisualPrompt: "c"},
	}
}

func TestTransitionTable(t *testing.T) {
	valid := []struct {
		from Stage
		ev   Event
		to   Stage
	}{
		{StageInput, EventScriptGenerated, StageScripting},
		{StageScripting, EventNext, StageMedia},
		{StageMedia, EventComplete, StagePreview},
		{StageScripting, EventBack, StageInput},
		{StageMedia, EventBack, StageScripting},
		{StagePreview, EventBack, StageMedia},
	}
	for _, tc := range valid {
		got, err := transition(tc.from, tc.ev)
		if err != nil || got != tc.to {
			t.Fatalf("%s --%s-->: got %s err=%v want %s", tc.from, tc.ev, got, err, tc.to)
		}
	}

	invalid := []struct {
		from Stage
		ev   Event
	}{
		{StageInput, EventBack},
		{StageInput, EventNext},
		{StageInput, EventComplete},
		{StageScripting, EventComplete},
		{StageScripting, EventScriptGenerated},
		{StageMedia, EventNext},
		{StagePreview, EventNext},
		{StagePreview, EventComplete},
	}
	for _, tc := range invalid {
		got, err := transition(tc.from, tc.ev)
		var te *TransitionError
		if !errors.As(err, &te) || got != tc.from {
			t.Fatalf("%s --%s-->: expected TransitionError and unchanged stage, got %s err=%v", tc.from, tc.ev, got, err)
		}
		if !errors.Is(err, ErrInvalidTransition) {
			t.Fatal("TransitionError must match ErrInvalidTransition")
		}
	}
}

func TestHappyPath(t *testing.T) {
	h := newHarness(t, &fakeGenerator{drafts: threeDrafts()})
	ctx := context.Background()
	c := h.ctrl

	if err := c.SetField(project.FieldTopic, "A Verdade Oculta"); err != nil {
		t.Fatal(err)
	}
	if err := c.SetField(project.FieldHook, "Você nunca mais vai..."); err != nil {
		t.Fatal(err)
	}
	if err := c.GenerateScript(ctx, ""); err != nil {
		t.Fatalf("GenerateScript: %v", err)
	}

	if h.gen.calls != 1 {
		t.Fatalf("service calls mismatch: got %d want 1", h.gen.calls)
	}
	if h.gen.lastCfg != c.Config() {
		t.Fatalf("service did not receive the current config")
	}
	if c.Stage() != StageScripting {
		t.Fatalf("stage mismatch: got %s want scripting", c.Stage())
	}
	scenes := c.Scenes()
	if len(scenes) != 3 {
		t.Fatalf("scene count mismatch: got %d want 3", len(scenes))
	}
	seen := map[string]bool{}
	for _, s := range scenes {
		if s.ImageState != project.AssetIdle || s.AudioState != project.AssetIdle {
			t.Fatalf("scene %s not idle: %+v", s.ID, s)
		}
		if s.ID == "" || seen[s.ID] {
			t.Fatalf("scene id missing or duplicated: %q", s.ID)
		}
		seen[s.ID] = true
	}
	if c.ScriptInFlight() {
		t.Fatal("flag not cleared")
	}
}

func TestCredentialFailure(t *testing.T) {
	h := newHarness(t, &fakeGenerator{err: errors.New("Invalid API Key")})
	c := h.ctrl
	c.SetField(project.FieldTopic, "A Verdade Oculta")
	c.SetField(project.FieldHook, "Você nunca mais vai...")

	if err := c.GenerateScript(context.Background(), ""); err == nil {
		t.Fatal("expected failure")
	}
	if c.Stage() != StageInput {
		t.Fatalf("stage mismatch: got %s want input", c.Stage())
	}
	if got := h.recovery.Load(); got != 1 {
		t.Fatalf("recovery calls mismatch: got %d want 1", got)
	}
	if c.ScriptInFlight() {
		t.Fatal("flag not cleared")
	}
	if c.Storyboard() != nil {
		t.Fatal("failed generation must not create a storyboard")
	}
}

func TestGenerateScriptValidation(t *testing.T) {
	h := newHarness(t, &fakeGenerator{drafts: threeDrafts()})
	if err := h.ctrl.GenerateScript(context.Background(), ""); !errors.Is(err, generation.ErrTopicHookRequired) {
		t.Fatalf("expected ErrTopicHookRequired, got %v", err)
	}
	if h.gen.calls != 0 || h.ctrl.Stage() != StageInput {
		t.Fatal("validation failure changed state or called the service")
	}
}

func TestBackPreservesStoryboard(t *testing.T) {
	h := newHarness(t, &fakeGenerator{drafts: threeDrafts()})
	c := h.ctrl
	c.SetField(project.FieldTopic, "t")
	c.SetField(project.FieldHook, "h")
	if err := c.GenerateScript(context.Background(), ""); err != nil {
		t.Fatal(err)
	}
	board := c.Storyboard()
	cfg := c.Config()

	if err := c.Next(); err != nil {
		t.Fatal(err)
	}
	if err := c.Complete(); err != nil {
		t.Fatal(err)
	}
	if err := c.Next(); err == nil {
		t.Fatal("preview has no forward transition")
	}
	for i := 0; i < 3; i++ {
		if err := c.Back(); err != nil {
			t.Fatalf("back %d: %v", i, err)
		}
	}
	if c.Stage() != StageInput {
		t.Fatalf("stage mismatch: got %s", c.Stage())
	}
	if err := c.Back(); err == nil {
		t.Fatal("back from input must fail")
	}
	if c.Storyboard() != board || board.Len() != 3 {
		t.Fatal("back discarded the storyboard")
	}
	if c.Config() != cfg {
		t.Fatal("back changed the config")
	}

	// a new script replaces the storyboard wholesale
	h.gen.drafts = threeDrafts()[:2]
	if err := c.GenerateScript(context.Background(), ""); err != nil {
		t.Fatal(err)
	}
	if c.Storyboard() == board || c.Storyboard().Len() != 2 {
		t.Fatal("storyboard not replaced by new generation")
	}
}

func TestGenerateScriptOnlyFromInput(t *testing.T) {
	h := newHarness(t, &fakeGenerator{drafts: threeDrafts()})
	c := h.ctrl
	c.SetField(project.FieldTopic, "t")
	c.SetField(project.FieldHook, "h")
	c.GenerateScript(context.Background(), "")

	err := c.GenerateScript(context.Background(), "")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected transition error, got %v", err)
	}
	if h.gen.calls != 1 {
		t.Fatal("service called from the wrong stage")
	}
}

func TestMediaStageMutatesInPlace(t *testing.T) {
	h := newHarness(t, &fakeGenerator{drafts: threeDrafts()})
	c := h.ctrl
	c.SetField(project.FieldTopic, "t")
	c.SetField(project.FieldHook, "h")
	c.GenerateScript(context.Background(), "")
	c.Next()

	board := c.Storyboard()
	id := board.Scenes[0].ID
	err := c.UpdateScene(id, func(s *project.Scene) error {
		if err := s.Start(project.AssetImage); err != nil {
			return err
		}
		return s.Finish(project.AssetImage, "file:///tmp/1.png")
	})
	if err != nil {
		t.Fatalf("UpdateScene: %v", err)
	}
	if board.Scenes[0].ImageRef != "file:///tmp/1.png" || board.Scenes[0].ImageState != project.AssetDone {
		t.Fatalf("scene not updated in place: %+v", board.Scenes[0])
	}
	if err := c.UpdateScene("nope", func(*project.Scene) error { return nil }); !errors.Is(err, ErrUnknownScene) {
		t.Fatalf("expected ErrUnknownScene, got %v", err)
	}
}

func TestGenerateIdeasSingleWrite(t *testing.T) {
	h := newHarness(t, &fakeGenerator{idea: script.Idea{Topic: "O Farol", Hook: "Ninguém voltou."}})
	c := h.ctrl
	before := c.Revision()
	if err := c.GenerateIdeas(context.Background()); err != nil {
		t.Fatalf("GenerateIdeas: %v", err)
	}
	cfg := c.Config()
	if cfg.Topic != "O Farol" || cfg.Hook != "Ninguém voltou." {
		t.Fatalf("idea not applied: %+v", cfg)
	}
	if c.Revision() != before+1 {
		t.Fatalf("idea applied in %d writes, want 1", c.Revision()-before)
	}
}

func TestCloseDropsLateResult(t *testing.T) {
	gen := &fakeGenerator{drafts: threeDrafts(), gate: make(chan struct{})}
	h := newHarness(t, gen)
	c := h.ctrl
	c.SetField(project.FieldTopic, "t")
	c.SetField(project.FieldHook, "h")

	errc := make(chan error, 1)
	go func() { errc <- c.GenerateScript(context.Background(), "") }()
	for !c.ScriptInFlight() {
		time.Sleep(time.Millisecond)
	}
	c.Close()
	close(gen.gate)

	if err := <-errc; !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if c.Stage() != StageInput || c.Storyboard() != nil {
		t.Fatal("late result was applied after Close")
	}
}

func TestLoadSessionSelectsFirstVoice(t *testing.T) {
	h := newHarness(t, &fakeGenerator{})
	if got := h.ctrl.Config().VoiceID; got != "onyx" {
		t.Fatalf("voice mismatch: got %q want onyx", got)
	}
	if h.ctrl.AudioProvider() != voice.AudioOpenAIHD {
		t.Fatalf("audio provider mismatch: %s", h.ctrl.AudioProvider())
	}

	h.vault.locked = true
	if err := h.ctrl.LoadSession(context.Background()); !errors.Is(err, vault.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestFilteredVoicesFollowProviderAndNationality(t *testing.T) {
	h := newHarness(t, &fakeGenerator{})
	c := h.ctrl

	got := c.FilteredVoices()
	if len(got) != 1 || got[0].ID != "onyx" {
		t.Fatalf("filter mismatch: %+v", got)
	}
	c.SetAudioProvider(voice.AudioElevenLabsQuality)
	if got := c.FilteredVoices(); len(got) != 1 || got[0].ID != "adam" {
		t.Fatalf("filter mismatch after provider change: %+v", got)
	}
	c.SetField(project.FieldNationality, project.NationalityUS)
	if got := c.FilteredVoices(); len(got) != 0 {
		t.Fatalf("expected no US elevenlabs voices, got %+v", got)
	}
	if len(c.Voices()) != 3 {
		t.Fatal("filtering shrank the catalog")
	}
}

func TestPreviewVoice(t *testing.T) {
	h := newHarness(t, &fakeGenerator{})
	c := h.ctrl
	ctx := context.Background()

	if err := c.PreviewVoice(ctx, "onyx"); err != nil {
		t.Fatal(err)
	}
	if err := c.PreviewVoice(ctx, "adam"); err != nil {
		t.Fatal(err)
	}
	if c.PlayingVoice() != "adam" {
		t.Fatalf("playing mismatch: got %q want adam", c.PlayingVoice())
	}

	if err := c.PreviewVoice(ctx, "fable"); !errors.Is(err, voice.ErrNoPreview) {
		t.Fatalf("expected ErrNoPreview, got %v", err)
	}
	if c.PlayingVoice() != "adam" {
		t.Fatal("rejected preview changed playback")
	}
	n := h.notices.All()
	if len(n) != 1 || n[0].Message != NoPreviewMessage {
		t.Fatalf("notice mismatch: %+v", n)
	}

	c.Lock()
	if c.PlayingVoice() != "" || !h.vault.locked {
		t.Fatal("Lock must stop preview and lock the vault")
	}
}

func TestSaveAndApplyPreset(t *testing.T) {
	h := newHarness(t, &fakeGenerator{})
	c := h.ctrl
	ctx := context.Background()

	if _, saved, err := c.SavePreset(ctx, ""); saved || err != nil {
		t.Fatalf("blank save: saved=%v err=%v", saved, err)
	}
	c.SetEmotionPreset("terror")
	p, saved, err := c.SavePreset(ctx, "Narrador Noturno")
	if err != nil || !saved {
		t.Fatalf("SavePreset: saved=%v err=%v", saved, err)
	}
	if len(c.Presets()) != 1 {
		t.Fatalf("preset count mismatch: %d", len(c.Presets()))
	}

	c.SetEmotionPreset("suspense")
	c.SelectVoice("adam")
	if err := c.ApplyPreset(p.ID); err != nil {
		t.Fatalf("ApplyPreset: %v", err)
	}
	cfg := c.Config()
	if cfg.VoiceID != "onyx" || cfg.EmotionPreset != "terror" || cfg.VoiceSettings != p.Settings {
		t.Fatalf("preset not applied: %+v", cfg)
	}
	if err := c.ApplyPreset("missing"); !errors.Is(err, ErrUnknownPreset) {
		t.Fatalf("expected ErrUnknownPreset, got %v", err)
	}
	if err := c.SelectVoice("ghost"); !errors.Is(err, ErrUnknownVoice) {
		t.Fatalf("expected ErrUnknownVoice, got %v", err)
	}
}

func TestTimeline(t *testing.T) {
	cfg := project.DefaultConfig()
	cfg.TotalDuration = 10
	cfg.ImageDuration = 4
	scenes := []project.Scene{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	cues := Timeline(cfg, scenes)
	if len(cues) != 3 {
		t.Fatalf("cue count mismatch: %d", len(cues))
	}
	if cues[1].Start != 4 || cues[1].End != 8 || cues[2].End != 10 {
		t.Fatalf("cue bounds mismatch: %+v", cues)
	}
	if FormatTime(125) != "2:05" || FormatTime(7) != "0:07" {
		t.Fatalf("FormatTime mismatch: %s %s", FormatTime(125), FormatTime(7))
	}
}
