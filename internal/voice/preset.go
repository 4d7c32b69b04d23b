package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/paulofranca-ai/canaldarkgen/internal/kvstore"
	"github.com/paulofranca-ai/canaldarkgen/internal/project"
)

// PresetKey is the storage key holding the serialized preset list.
const PresetKey = "darkstream_voice_presets_v2"

// Preset is a user-named snapshot of the narrator voice selection.
type Preset struct {
	ID            string                `json:"id"`
	Name          string                `json:"name"`
	VoiceID       string                `json:"voiceId"`
	Settings      project.VoiceSettings `json:"settings"`
	EmotionPreset string                `json:"emotionPreset"`
	Nationality   project.Nationality   `json:"nationality"`
}

// PresetBook is the ordered, append-only list of saved presets.
type PresetBook struct {
	store kvstore.Store
	log   *slog.Logger

	mu      sync.Mutex
	presets []Preset
}

func NewPresetBook(store kvstore.Store, logger *slog.Logger) *PresetBook {
	if logger == nil {
		logger = slog.Default()
	}
	return &PresetBook{store: store, log: logger}
}

// Load replaces the in-memory list with the stored one. A missing key means
// no presets. A value that does not parse is kept aside under
// PresetKey+".corrupt" and also treated as no presets.
func (b *PresetBook) Load(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	raw, ok, err := b.store.Get(ctx, PresetKey)
	if err != nil {
		return fmt.Errorf("load presets: %w", err)
	}
	b.presets = nil
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}

	var presets []Preset
	if err := json.Unmarshal([]byte(raw), &presets); err != nil {
		b.log.WarnContext(ctx, "Stored voice presets are unreadable, starting empty",
			"key", PresetKey, "error", err)
		if err := b.store.Set(ctx, PresetKey+".corrupt", raw); err != nil {
			b.log.WarnContext(ctx, "Failed to back up unreadable presets", "error", err)
		}
		return nil
	}
	b.presets = presets
	return nil
}

// Presets returns a copy of the list in save order.
func (b *PresetBook) Presets() []Preset {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Preset, len(b.presets))
	copy(out, b.presets)
	return out
}

func (b *PresetBook) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.presets)
}

// Lookup finds a preset by id.
func (b *PresetBook) Lookup(id string) (Preset, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.presets {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}

// Save appends a preset built from cfg and writes the whole list. A blank
// name is a no-op and reports saved=false. The in-memory list only grows
// once the store write succeeds.
func (b *PresetBook) Save(ctx context.Context, name string, cfg project.Config) (p Preset, saved bool, err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Preset{}, false, nil
	}
	id, err := project.NewID()
	if err != nil {
		return Preset{}, false, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	p = Preset{
		ID:            id,
		Name:          name,
		VoiceID:       cfg.VoiceID,
		Settings:      cfg.VoiceSettings,
		EmotionPreset: cfg.EmotionPreset,
		Nationality:   cfg.Nationality,
	}

	updated := make([]Preset, len(b.presets), len(b.presets)+1)
	copy(updated, b.presets)
	updated = append(updated, p)

	data, err := json.Marshal(updated)
	if err != nil {
		return Preset{}, false, fmt.Errorf("marshal presets: %w", err)
	}
	if err := b.store.Set(ctx, PresetKey, string(data)); err != nil {
		return Preset{}, false, fmt.Errorf("save presets: %w", err)
	}
	b.presets = updated
	return p, true, nil
}
