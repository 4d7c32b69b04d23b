// Package voice holds the narrator voice catalog, saved voice presets and
// the single-clip preview gate.
package voice

import (
	"strings"

	"github.com/paulofranca-ai/canaldarkgen/internal/project"
)

// ProviderBase is the coarse category an audio provider belongs to.
type ProviderBase string

const (
	BaseOpenAI     ProviderBase = "openai"
	BaseElevenLabs ProviderBase = "elevenlabs"
	BaseFree       ProviderBase = "browser_free"
)

// AudioProvider identifies the configured speech synthesis tier.
type AudioProvider string

const (
	AudioOpenAIHD          AudioProvider = "openai_hd"
	AudioElevenLabsTurbo   AudioProvider = "elevenlabs_turbo"
	AudioElevenLabsQuality AudioProvider = "elevenlabs_quality"
	AudioBrowserFree       AudioProvider = "browser_free"

	DefaultAudioProvider = AudioOpenAIHD
)

// AudioProviders lists the known providers in display order.
func AudioProviders() []AudioProvider {
	return []AudioProvider{AudioOpenAIHD, AudioElevenLabsTurbo, AudioElevenLabsQuality, AudioBrowserFree}
}

// ClassifyProvider maps a provider identifier to its base by substring.
// Anything unrecognised is the free tier.
func ClassifyProvider(p AudioProvider) ProviderBase {
	s := string(p)
	switch {
	case strings.Contains(s, "elevenlabs"):
		return BaseElevenLabs
	case strings.Contains(s, "openai"):
		return BaseOpenAI
	default:
		return BaseFree
	}
}

// Voice is a narrator voice offered by a directory. Immutable once listed.
type Voice struct {
	ID          string              `json:"voice_id"`
	Name        string              `json:"name"`
	PreviewURL  string              `json:"preview_url,omitempty"`
	Nationality project.Nationality `json:"nationality,omitempty"`
	Base        ProviderBase        `json:"providerBase"`
}

// Catalog is the full list of voices loaded for a session.
type Catalog struct {
	voices []Voice
}

func NewCatalog(voices []Voice) *Catalog {
	c := &Catalog{voices: make([]Voice, len(voices))}
	copy(c.voices, voices)
	return c
}

func (c *Catalog) Len() int { return len(c.voices) }

// All returns a copy of every voice.
func (c *Catalog) All() []Voice {
	out := make([]Voice, len(c.voices))
	copy(out, c.voices)
	return out
}

// Lookup finds a voice by id.
func (c *Catalog) Lookup(id string) (Voice, bool) {
	for _, v := range c.voices {
		if v.ID == id {
			return v, true
		}
	}
	return Voice{}, false
}

// Filtered returns the voices matching both nationality and provider base.
// The catalog itself is never modified.
func (c *Catalog) Filtered(nat project.Nationality, base ProviderBase) []Voice {
	var out []Voice
	for _, v := range c.voices {
		if v.Nationality == nat && v.Base == base {
			out = append(out, v)
		}
	}
	return out
}
