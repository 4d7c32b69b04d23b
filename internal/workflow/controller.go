package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/paulofranca-ai/canaldarkgen/internal/generation"
	"github.com/paulofranca-ai/canaldarkgen/internal/notice"
	"github.com/paulofranca-ai/canaldarkgen/internal/project"
	"github.com/paulofranca-ai/canaldarkgen/internal/vault"
	"github.com/paulofranca-ai/canaldarkgen/internal/voice"
)

// NoPreviewMessage is shown when a voice has no preview clip.
const NoPreviewMessage = "Preview de áudio não configurado para esta voz nesta demo."

var (
	ErrClosed        = errors.New("session closed")
	ErrUnknownVoice  = errors.New("unknown voice")
	ErrUnknownPreset = errors.New("unknown preset")
	ErrUnknownScene  = errors.New("unknown scene")
)

// Vault is the part of the credential gate the session needs.
type Vault interface {
	PreferredProviders() (vault.Providers, error)
	Lock()
}

// Deps are the collaborators of a session. Directory, Vault and Notifier
// may be nil.
type Deps struct {
	Directory    voice.Directory
	Presets      *voice.PresetBook
	Preview      *voice.PreviewGate
	Vault        Vault
	Orchestrator *generation.Orchestrator
	Notifier     notice.Notifier
	Logger       *slog.Logger
}

// Controller owns the project config and the storyboard for one session.
// Every mutation goes through it. External calls run without holding the
// lock, so the config stays editable while a request is outstanding.
type Controller struct {
	id      string
	dir     voice.Directory
	presets *voice.PresetBook
	preview *voice.PreviewGate
	vault   Vault
	orch    *generation.Orchestrator
	notify  notice.Notifier
	log     *slog.Logger

	mu      sync.Mutex
	stage   Stage
	model   *project.Model
	board   *project.Storyboard
	catalog *voice.Catalog
	audio   voice.AudioProvider
	closed  bool
}

func New(deps Deps, cfg project.Config) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notify := deps.Notifier
	if notify == nil {
		notify = notice.Nop
	}
	id := uuid.NewString()
	return &Controller{
		id:      id,
		dir:     deps.Directory,
		presets: deps.Presets,
		preview: deps.Preview,
		vault:   deps.Vault,
		orch:    deps.Orchestrator,
		notify:  notify,
		log:     logger.With("session_id", id),
		stage:   StageInput,
		model:   project.NewModel(cfg),
		catalog: voice.NewCatalog(nil),
		audio:   voice.DefaultAudioProvider,
	}
}

func (c *Controller) SessionID() string { return c.id }

// LoadSession runs once the vault is open: it reads the preferred audio
// provider, fetches the voice list, loads saved presets and selects the
// first voice when none is chosen yet.
func (c *Controller) LoadSession(ctx context.Context) error {
	if c.vault != nil {
		p, err := c.vault.PreferredProviders()
		if err != nil {
			return fmt.Errorf("read preferred providers: %w", err)
		}
		if p.Audio != "" {
			c.mu.Lock()
			c.audio = p.Audio
			c.mu.Unlock()
		}
	}

	var voices []voice.Voice
	if c.dir != nil {
		v, err := c.dir.ListVoices(ctx)
		if err != nil {
			c.log.WarnContext(ctx, "Failed to load voices", "error", err)
			c.notify.Notify(notice.New(notice.Warn, "Não foi possível carregar as vozes: "+err.Error()))
		}
		voices = v
	}

	if c.presets != nil {
		if err := c.presets.Load(ctx); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.catalog = voice.NewCatalog(voices)
	if c.model.Config().VoiceID == "" && c.catalog.Len() > 0 {
		first := c.catalog.All()[0]
		if err := c.model.SetField(project.FieldVoiceID, first.ID); err != nil {
			return err
		}
	}
	c.log.InfoContext(ctx, "Session loaded", "voices", c.catalog.Len(), "audio_provider", c.audio)
	return nil
}

func (c *Controller) Stage() Stage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stage
}

func (c *Controller) Config() project.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model.Config()
}

// Revision counts accepted config writes.
func (c *Controller) Revision() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model.Revision()
}

func (c *Controller) SetField(f project.Field, v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model.SetField(f, v)
}

func (c *Controller) SetVideoType(t project.VideoType) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model.SetVideoType(t)
}

// SetEmotionPreset reports whether the preset exists and was applied.
func (c *Controller) SetEmotionPreset(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model.SetEmotionPreset(id)
}

func (c *Controller) AudioProvider() voice.AudioProvider {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.audio
}

// SetAudioProvider changes the provider for this session only.
func (c *Controller) SetAudioProvider(p voice.AudioProvider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.audio = p
}

// Voices returns the whole catalog.
func (c *Controller) Voices() []voice.Voice {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.catalog.All()
}

// FilteredVoices returns the voices matching the configured nationality and
// the base of the current audio provider.
func (c *Controller) FilteredVoices() []voice.Voice {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.catalog.Filtered(c.model.Config().Nationality, voice.ClassifyProvider(c.audio))
}

// SelectVoice sets the narrator voice to a catalog entry.
func (c *Controller) SelectVoice(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.catalog.Lookup(id); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownVoice, id)
	}
	return c.model.SetField(project.FieldVoiceID, id)
}

func (c *Controller) Presets() []voice.Preset {
	if c.presets == nil {
		return nil
	}
	return c.presets.Presets()
}

// SavePreset stores the current voice selection under name. A blank name
// does nothing and reports false.
func (c *Controller) SavePreset(ctx context.Context, name string) (voice.Preset, bool, error) {
	if c.presets == nil {
		return voice.Preset{}, false, errors.New("no preset storage configured")
	}
	cfg := c.Config()
	p, saved, err := c.presets.Save(ctx, name, cfg)
	if err != nil {
		c.notify.Notify(notice.New(notice.Error, "Falha ao salvar preset: "+err.Error()))
		return p, false, err
	}
	if saved {
		c.log.InfoContext(ctx, "Preset saved", "preset_id", p.ID, "name", p.Name)
	}
	return p, saved, nil
}

// ApplyPreset copies a saved preset into the config.
func (c *Controller) ApplyPreset(id string) error {
	if c.presets == nil {
		return fmt.Errorf("%w: %s", ErrUnknownPreset, id)
	}
	p, ok := c.presets.Lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPreset, id)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model.ApplyVoice(p.VoiceID, p.Settings, p.EmotionPreset, p.Nationality)
}

// PreviewVoice toggles the preview clip of a catalog voice.
func (c *Controller) PreviewVoice(ctx context.Context, id string) error {
	if c.preview == nil {
		return errors.New("no preview player configured")
	}
	c.mu.Lock()
	v, ok := c.catalog.Lookup(id)
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownVoice, id)
	}
	err := c.preview.Toggle(ctx, v)
	switch {
	case errors.Is(err, voice.ErrNoPreview):
		c.notify.Notify(notice.New(notice.Warn, NoPreviewMessage))
	case err != nil:
		c.notify.Notify(notice.New(notice.Error, err.Error()))
	}
	return err
}

// PlayingVoice is the id of the voice being previewed, or "".
func (c *Controller) PlayingVoice() string {
	if c.preview == nil {
		return ""
	}
	return c.preview.Current()
}

func (c *Controller) IdeasInFlight() bool  { return c.orch.IdeasInFlight() }
func (c *Controller) ScriptInFlight() bool { return c.orch.ScriptInFlight() }

// GenerateIdeas fills topic and hook in one write. Failures have already
// been shown to the user when this returns.
func (c *Controller) GenerateIdeas(ctx context.Context) error {
	t := c.Config().VideoType
	idea, err := c.orch.GenerateIdeas(ctx, t)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		c.log.DebugContext(ctx, "Dropping idea for closed session")
		return ErrClosed
	}
	c.model.SetIdea(idea.Topic, idea.Hook)
	return nil
}

// GenerateScript asks for a script for the current config. On success the
// storyboard is replaced by a fresh batch and the stage moves to Scripting.
func (c *Controller) GenerateScript(ctx context.Context, research string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if _, err := transition(c.stage, EventScriptGenerated); err != nil {
		c.mu.Unlock()
		return err
	}
	cfg := c.model.Config()
	c.mu.Unlock()

	drafts, err := c.orch.GenerateScript(ctx, generation.ScriptRequest{Config: cfg, Research: research})
	if err != nil {
		return err
	}
	board, err := project.NewStoryboard(drafts)
	if err != nil {
		return fmt.Errorf("mint scene ids: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		c.log.DebugContext(ctx, "Dropping script for closed session")
		return ErrClosed
	}
	next, err := transition(c.stage, EventScriptGenerated)
	if err != nil {
		return err
	}
	c.board = board
	c.stage = next
	c.log.InfoContext(ctx, "Storyboard ready", "scenes", board.Len(), "stage", next.String())
	return nil
}

func (c *Controller) Next() error     { return c.fire(EventNext) }
func (c *Controller) Complete() error { return c.fire(EventComplete) }

// Back moves to the previous stage. The storyboard and config are kept.
func (c *Controller) Back() error { return c.fire(EventBack) }

func (c *Controller) fire(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	next, err := transition(c.stage, ev)
	if err != nil {
		return err
	}
	c.log.Debug("Stage changed", "from", c.stage.String(), "to", next.String(), "event", string(ev))
	c.stage = next
	return nil
}

// Storyboard returns the live storyboard shared with downstream stages,
// or nil before the first script.
func (c *Controller) Storyboard() *project.Storyboard {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.board
}

// Scenes returns copies of the current scenes.
func (c *Controller) Scenes() []project.Scene {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.board.Snapshot()
}

// UpdateScene runs fn on one scene in place, under the session lock.
func (c *Controller) UpdateScene(id string, fn func(*project.Scene) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.board.Scene(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownScene, id)
	}
	return fn(s)
}

// Timeline returns the preview cues of the current storyboard.
func (c *Controller) Timeline() []Cue {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Timeline(c.model.Config(), c.board.Snapshot())
}

// Lock closes the vault and silences any preview.
func (c *Controller) Lock() {
	if c.preview != nil {
		c.preview.Stop()
	}
	if c.vault != nil {
		c.vault.Lock()
	}
}

// Close ends the session. Results of requests still in flight are dropped
// when they arrive.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	if c.preview != nil {
		c.preview.Stop()
	}
}
