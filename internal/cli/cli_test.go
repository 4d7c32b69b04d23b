package cli

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/paulofranca-ai/canaldarkgen/internal/generation"
	"github.com/paulofranca-ai/canaldarkgen/internal/kvstore"
	"github.com/paulofranca-ai/canaldarkgen/internal/media"
	"github.com/paulofranca-ai/canaldarkgen/internal/notice"
	"github.com/paulofranca-ai/canaldarkgen/internal/project"
	"github.com/paulofranca-ai/canaldarkgen/internal/script"
	"github.com/paulofranca-ai/canaldarkgen/internal/settings"
	"github.com/paulofranca-ai/canaldarkgen/internal/tts"
	"github.com/paulofranca-ai/canaldarkgen/internal/vault"
	"github.com/paulofranca-ai/canaldarkgen/internal/voice"
	"github.com/paulofranca-ai/canaldarkgen/internal/workflow"
)

func TestKeyNames(t *testing.T) {
	text := map[string]string{
		"":                   vault.AnthropicKey,
		script.ProviderClaude: vault.AnthropicKey,
		script.ProviderGemini: vault.GeminiKey,
		script.ProviderNova:   "",
	}
	for provider, want := range text {
		if got := textKeyName(provider); got != want {
			t.Fatalf("textKeyName(%q) mismatch: got %q want %q", provider, got, want)
		}
	}
	audio := map[voice.AudioProvider]string{
		voice.AudioOpenAIHD:          vault.OpenAIKey,
		voice.AudioElevenLabsTurbo:   vault.ElevenLabsKey,
		voice.AudioElevenLabsQuality: vault.ElevenLabsKey,
		voice.AudioBrowserFree:       "",
	}
	for provider, want := range audio {
		if got := audioKeyName(provider); got != want {
			t.Fatalf("audioKeyName(%q) mismatch: got %q want %q", provider, got, want)
		}
	}
}

func TestFilterVoices(t *testing.T) {
	list := []voice.Voice{
		{ID: "onyx", Nationality: project.NationalityBR, Base: voice.BaseOpenAI},
		{ID: "fable", Nationality: project.NationalityUS, Base: voice.BaseOpenAI},
		{ID: "adam", Nationality: project.NationalityBR, Base: voice.BaseElevenLabs},
	}
	if got := filterVoices(list, "", ""); len(got) != 3 {
		t.Fatalf("unfiltered count mismatch: got %d want 3", len(got))
	}
	got := filterVoices(list, project.NationalityBR, string(voice.AudioElevenLabsTurbo))
	if len(got) != 1 || got[0].ID != "adam" {
		t.Fatalf("filtered mismatch: got %+v", got)
	}
}

func memorySettings(t *testing.T) settings.Settings {
	t.Helper()
	s := settings.Defaults()
	s.Storage = settings.StorageMemory
	s.AWSRegion = ""
	s.SecretPrefix = ""
	s.AssetDir = t.TempDir()
	return s
}

func newTestApp(t *testing.T, notify notice.Notifier) *App {
	t.Helper()
	for _, k := range vault.KnownKeys() {
		t.Setenv(k, "")
	}
	a, err := NewApp(context.Background(), memorySettings(t), nil, notify, filepath.Join(t.TempDir(), ".env"))
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestAppUnlockWithoutVault(t *testing.T) {
	a := newTestApp(t, nil)
	_, err := a.Unlock(context.Background())
	if !errors.Is(err, vault.ErrNoVault) {
		t.Fatalf("expected ErrNoVault, got %v", err)
	}
	if !strings.Contains(err.Error(), "vault init") {
		t.Fatalf("error %q does not name the init command", err)
	}
}

func TestAppSession(t *testing.T) {
	rec := &notice.Recorder{}
	a := newTestApp(t, rec)
	ctx := context.Background()
	if err := a.Vault.Init(ctx, vault.Providers{Text: script.ProviderClaude, Audio: voice.AudioElevenLabsTurbo}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	c, err := a.Session(ctx, nil)
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	defer c.Close()

	if c.Stage() != workflow.StageInput {
		t.Fatalf("stage mismatch: got %v want input", c.Stage())
	}
	if c.AudioProvider() != voice.AudioElevenLabsTurbo {
		t.Fatalf("audio provider mismatch: got %q", c.AudioProvider())
	}
	if len(c.Voices()) == 0 {
		t.Fatal("expected the built-in voices")
	}
	if c.SessionID() == "" {
		t.Fatal("expected a session id")
	}
}

func TestAppCredentialHint(t *testing.T) {
	rec := &notice.Recorder{}
	a := newTestApp(t, rec)
	a.credentialHint(context.Background(), errors.New("no key"))
	all := rec.All()
	if len(all) != 1 || all[0].Level != notice.Warn {
		t.Fatalf("notices mismatch: got %+v", all)
	}
	if !strings.Contains(all[0].Message, vault.AnthropicKey) {
		t.Fatalf("hint %q does not list key names", all[0].Message)
	}
}

func TestAppAssetsPerSession(t *testing.T) {
	a := newTestApp(t, nil)
	store, err := a.Assets(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Assets: %v", err)
	}
	dir, ok := store.(media.DirAssets)
	if !ok {
		t.Fatalf("asset store type mismatch: got %T", store)
	}
	if want := filepath.Join(a.Settings.AssetDir, "abc"); dir.Dir != want {
		t.Fatalf("asset dir mismatch: got %q want %q", dir.Dir, want)
	}
}

type fakeGenerator struct {
	idea   script.Idea
	drafts []project.SceneDraft
}

func (f *fakeGenerator) GenerateIdeas(context.Context, project.VideoType) (script.Idea, error) {
	return f.idea, nil
}

func (f *fakeGenerator) GenerateScript(context.Context, project.Config, string) ([]project.SceneDraft, error) {
	return f.drafts, nil
}

type fakeVault struct{}

func (fakeVault) PreferredProviders() (vault.Providers, error) {
	return vault.Providers{Text: script.ProviderClaude, Audio: voice.AudioOpenAIHD}, nil
}

func (fakeVault) Lock() {}

type fakeImager struct{}

func (fakeImager) Generate(context.Context, media.ImageRequest) ([]byte, error) {
	return []byte("jpg"), nil
}

type fakeSpeech struct{}

func (fakeSpeech) Name() string { return "fake" }

func (fakeSpeech) Synthesize(context.Context, tts.Request) (tts.AudioResult, error) {
	return tts.AudioResult{Data: []byte("mp3"), Format: tts.FormatMP3}, nil
}

func (fakeSpeech) Close() error { return nil }

type memAssets struct {
	mu   sync.Mutex
	keys []string
}

func (m *memAssets) Put(_ context.Context, key string, _ []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, key)
	return "mem://" + key, nil
}

func newConsole(t *testing.T) (consoleModel, *workflow.Controller, *notice.Recorder) {
	t.Helper()
	rec := &notice.Recorder{}
	gen := &fakeGenerator{
		idea: script.Idea{Topic: "O farol", Hook: "Ninguém voltou"},
		drafts: []project.SceneDraft{
			{Narration: "um", VisualPrompt: "a"},
			{Narration: "dois", VisualPrompt: "b"},
		},
	}
	c := workflow.New(workflow.Deps{
		Directory: voice.StaticDirectory{
			{ID: "onyx", Name: "Onyx", Nationality: project.NationalityBR, Base: voice.BaseOpenAI},
		},
		Presets:      voice.NewPresetBook(kvstore.NewMemory(), nil),
		Preview:      voice.NewPreviewGate(voice.NewFFplayPlayer(), nil),
		Vault:        fakeVault{},
		Orchestrator: generation.NewOrchestrator(gen, rec, nil, nil),
		Notifier:     rec,
	}, project.DefaultConfig())
	if err := c.LoadSession(context.Background()); err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	t.Cleanup(c.Close)

	factory := func(ctx context.Context, p media.ProgressReporter) (*media.Runner, func() error, error) {
		return &media.Runner{
			Scenes:   c,
			Images:   fakeImager{},
			Speech:   fakeSpeech{},
			Assets:   &memAssets{},
			Notifier: rec,
			Progress: p,
		}, func() error { return nil }, nil
	}
	return newConsoleModel(context.Background(), c, rec, factory), c, rec
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var enter = tea.KeyMsg{Type: tea.KeyEnter}

// send feeds msg to the model and runs the resulting commands inline.
// Ticks are dropped so the loop terminates.
func send(t *testing.T, m consoleModel, msg tea.Msg) consoleModel {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(consoleModel)
	return drain(t, m, cmd)
}

func drain(t *testing.T, m consoleModel, cmd tea.Cmd) consoleModel {
	t.Helper()
	if cmd == nil {
		return m
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			m = drain(t, m, c)
		}
	case tickMsg, tea.QuitMsg, nil:
	default:
		m = send(t, m, msg)
	}
	return m
}

func itemIndex(t *testing.T, m consoleModel, label string) int {
	t.Helper()
	for i, it := range m.items {
		if it.label == label {
			return i
		}
	}
	t.Fatalf("menu item %q not found", label)
	return -1
}

func typeText(t *testing.T, m consoleModel, s string) consoleModel {
	t.Helper()
	m = send(t, m, enter)
	m = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlU})
	m = send(t, m, runes(s))
	return send(t, m, enter)
}

func TestConsoleScriptRequiresTopic(t *testing.T) {
	m, c, _ := newConsole(t)
	m.cursor = itemIndex(t, m, "Gerar roteiro")
	m = send(t, m, enter)

	if c.Stage() != workflow.StageInput {
		t.Fatalf("stage mismatch: got %v want input", c.Stage())
	}
	if len(m.recent) == 0 || m.recent[len(m.recent)-1].Message != generation.ErrTopicHookRequired.Error() {
		t.Fatalf("recent notices mismatch: got %+v", m.recent)
	}
	if !strings.Contains(m.View(), generation.ErrTopicHookRequired.Error()) {
		t.Fatal("view does not show the warning")
	}
}

func TestConsoleEditsConfig(t *testing.T) {
	m, c, _ := newConsole(t)

	m.cursor = itemIndex(t, m, "Tópico")
	m = typeText(t, m, "A casa")
	if got := c.Config().Topic; got != "A casa" {
		t.Fatalf("topic mismatch: got %q want %q", got, "A casa")
	}

	m.cursor = itemIndex(t, m, "Tipo de vídeo")
	m = send(t, m, enter)
	m = send(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = send(t, m, enter)
	if got := c.Config().VideoType; got != project.VideoLong {
		t.Fatalf("video type mismatch: got %q want %q", got, project.VideoLong)
	}
	if got := m.items[itemIndex(t, m, "Cenas")].value; got != c.Config().Value(project.FieldSceneCount) {
		t.Fatalf("scene count row mismatch: got %q", got)
	}

	m.cursor = itemIndex(t, m, "Efeito especial")
	m = send(t, m, enter)
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.state != stateMenu {
		t.Fatal("esc should leave editing")
	}
}

func TestConsoleSavesPreset(t *testing.T) {
	m, c, _ := newConsole(t)
	m.cursor = itemIndex(t, m, "Salvar preset")
	m = typeText(t, m, "Noturno")
	if m.err != nil {
		t.Fatalf("save preset: %v", m.err)
	}
	presets := c.Presets()
	if len(presets) != 1 || presets[0].Name != "Noturno" {
		t.Fatalf("presets mismatch: got %+v", presets)
	}
	if opts := m.items[itemIndex(t, m, "Aplicar preset")].options; len(opts) != 1 {
		t.Fatalf("apply preset options mismatch: got %d want 1", len(opts))
	}
}

func TestConsoleWalksStages(t *testing.T) {
	m, c, _ := newConsole(t)

	m.cursor = itemIndex(t, m, "Gerar ideias")
	m = send(t, m, enter)
	if got := c.Config().Topic; got != "O farol" {
		t.Fatalf("topic mismatch: got %q want %q", got, "O farol")
	}

	m.cursor = itemIndex(t, m, "Gerar roteiro")
	m = send(t, m, enter)
	if c.Stage() != workflow.StageScripting {
		t.Fatalf("stage mismatch: got %v want scripting", c.Stage())
	}
	if m.cursor != 0 {
		t.Fatalf("cursor mismatch: got %d want 0", m.cursor)
	}

	m = typeText(t, m, "nova narração")
	if got := c.Scenes()[0].Narration; got != "nova narração" {
		t.Fatalf("narration mismatch: got %q", got)
	}

	m = send(t, m, runes("n"))
	if c.Stage() != workflow.StageMedia {
		t.Fatalf("stage mismatch: got %v want media", c.Stage())
	}

	m = send(t, m, runes("g"))
	if m.busy != "" {
		t.Fatalf("busy not cleared: %q", m.busy)
	}
	for _, s := range c.Scenes() {
		if s.ImageState != project.AssetDone || s.AudioState != project.AssetDone {
			t.Fatalf("scene %s not done: image=%s audio=%s", s.ID, s.ImageState, s.AudioState)
		}
	}

	m = send(t, m, runes("c"))
	if c.Stage() != workflow.StagePreview {
		t.Fatalf("stage mismatch: got %v want preview", c.Stage())
	}
	if !strings.Contains(m.View(), "0:00-") {
		t.Fatalf("preview view missing timeline:\n%s", m.View())
	}

	m = send(t, m, runes("b"))
	if c.Stage() != workflow.StageMedia {
		t.Fatalf("stage mismatch after back: got %v want media", c.Stage())
	}
	if len(c.Scenes()) != 2 {
		t.Fatalf("storyboard lost on back: got %d scenes", len(c.Scenes()))
	}
}

func TestConsoleQuit(t *testing.T) {
	m, _, _ := newConsole(t)
	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("q did not quit")
	}
}
