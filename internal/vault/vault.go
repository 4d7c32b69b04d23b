// Package vault is the credential gate in front of the generation services.
// The vault record only stores the preferred providers; API keys are
// resolved on demand from the configured sources.
package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/paulofranca-ai/canaldarkgen/internal/kvstore"
	"github.com/paulofranca-ai/canaldarkgen/internal/voice"
)

// Key is the storage key of the vault record.
const Key = "canaldarkgen_vault_v1"

// Credential names looked up in the sources.
const (
	AnthropicKey  = "ANTHROPIC_API_KEY"
	GeminiKey     = "GEMINI_API_KEY"
	ElevenLabsKey = "ELEVENLABS_API_KEY"
	OpenAIKey     = "OPENAI_API_KEY"
)

// KnownKeys lists every credential name the console may ask for.
func KnownKeys() []string {
	return []string{AnthropicKey, GeminiKey, ElevenLabsKey, OpenAIKey}
}

var (
	ErrNoVault = errors.New("no vault configured")
	ErrLocked  = errors.New("vault is locked")
	// ErrKeyMissing reads "API Key not configured" so message-based
	// classification still routes it to credential recovery.
	ErrKeyMissing = errors.New("API Key not configured")
)

// Providers are the user's preferred services.
type Providers struct {
	Text  string              `json:"text"`
	Audio voice.AudioProvider `json:"audio"`
}

type record struct {
	Providers Providers `json:"providers"`
	CreatedAt time.Time `json:"created_at"`
}

// Source resolves a credential by name.
type Source interface {
	Lookup(ctx context.Context, name string) (string, bool, error)
}

type Vault struct {
	store   kvstore.Store
	sources []Source
	log     *slog.Logger

	mu        sync.Mutex
	unlocked  bool
	providers Providers
	keys      map[string]string
}

func New(store kvstore.Store, logger *slog.Logger, sources ...Source) *Vault {
	if logger == nil {
		logger = slog.Default()
	}
	return &Vault{store: store, sources: sources, log: logger}
}

// HasVault reports whether a vault record exists.
func (v *Vault) HasVault(ctx context.Context) (bool, error) {
	_, ok, err := v.store.Get(ctx, Key)
	if err != nil {
		return false, fmt.Errorf("read vault: %w", err)
	}
	return ok, nil
}

// Init writes a new vault record and leaves the vault unlocked.
func (v *Vault) Init(ctx context.Context, p Providers) error {
	if p.Audio == "" {
		p.Audio = voice.DefaultAudioProvider
	}
	data, err := json.Marshal(record{Providers: p, CreatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal vault: %w", err)
	}
	if err := v.store.Set(ctx, Key, string(data)); err != nil {
		return fmt.Errorf("write vault: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.unlocked = true
	v.providers = p
	v.keys = make(map[string]string)
	v.log.InfoContext(ctx, "Vault initialized", "text_provider", p.Text, "audio_provider", p.Audio)
	return nil
}

// Unlock reads the vault record and opens the gate.
func (v *Vault) Unlock(ctx context.Context) (Providers, error) {
	raw, ok, err := v.store.Get(ctx, Key)
	if err != nil {
		return Providers{}, fmt.Errorf("read vault: %w", err)
	}
	if !ok {
		return Providers{}, ErrNoVault
	}
	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return Providers{}, fmt.Errorf("parse vault: %w", err)
	}
	if rec.Providers.Audio == "" {
		rec.Providers.Audio = voice.DefaultAudioProvider
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.unlocked = true
	v.providers = rec.Providers
	v.keys = make(map[string]string)
	return rec.Providers, nil
}

// Lock closes the gate and forgets every resolved key.
func (v *Vault) Lock() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.unlocked = false
	v.providers = Providers{}
	v.keys = nil
}

func (v *Vault) Unlocked() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.unlocked
}

// PreferredProviders returns the providers read at unlock time.
func (v *Vault) PreferredProviders() (Providers, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.unlocked {
		return Providers{}, ErrLocked
	}
	return v.providers, nil
}

// APIKey resolves a credential from the first source that has it.
// Resolved keys are cached until Lock.
func (v *Vault) APIKey(ctx context.Context, name string) (string, error) {
	v.mu.Lock()
	if !v.unlocked {
		v.mu.Unlock()
		return "", ErrLocked
	}
	if k, ok := v.keys[name]; ok {
		v.mu.Unlock()
		return k, nil
	}
	v.mu.Unlock()

	for _, src := range v.sources {
		val, ok, err := src.Lookup(ctx, name)
		if err != nil {
			v.log.WarnContext(ctx, "Credential source failed", "name", name, "error", err)
			continue
		}
		if !ok || val == "" {
			continue
		}
		v.mu.Lock()
		if v.unlocked {
			v.keys[name] = val
		}
		v.mu.Unlock()
		return val, nil
	}
	return "", fmt.Errorf("%s: %w", name, ErrKeyMissing)
}

// Status reports, per known credential, whether any source can supply it.
func (v *Vault) Status(ctx context.Context) map[string]bool {
	out := make(map[string]bool, len(KnownKeys()))
	for _, name := range KnownKeys() {
		_, err := v.APIKey(ctx, name)
		out[name] = err == nil
	}
	return out
}
