package project

// DefaultEmotion is the emotion preset a new project starts with.
const DefaultEmotion = "suspense"

// EmotionPreset is a named, fixed set of voice settings.
type EmotionPreset struct {
	ID       string
	Label    string
	Settings VoiceSettings
}

var emotionPresets = []EmotionPreset{
	{ID: "suspense", Label: "Suspense", Settings: VoiceSettings{Stability: 0.8, SimilarityBoost: 0.8, Style: 0.4, UseSpeakerBoost: true}},
	{ID: "terror", Label: "Terror Puro", Settings: VoiceSettings{Stability: 0.4, SimilarityBoost: 0.9, Style: 0.7, UseSpeakerBoost: true}},
	{ID: "narrative", Label: "Conto Cadenciado", Settings: VoiceSettings{Stability: 0.6, SimilarityBoost: 0.75, Style: 0.0, UseSpeakerBoost: true}},
	{ID: "aggressive", Label: "Agressivo/Ação", Settings: VoiceSettings{Stability: 0.3, SimilarityBoost: 0.95, Style: 0.2, UseSpeakerBoost: true}},
	{ID: "shaky", Label: "Instável/Insano", Settings: VoiceSettings{Stability: 0.1, SimilarityBoost: 1.0, Style: 1.0, UseSpeakerBoost: true}},
}

// EmotionPresets returns a copy of the emotion catalog in display order.
func EmotionPresets() []EmotionPreset {
	out := make([]EmotionPreset, len(emotionPresets))
	copy(out, emotionPresets)
	return out
}

// LookupEmotion finds an emotion preset by id.
func LookupEmotion(id string) (EmotionPreset, bool) {
	for _, p := range emotionPresets {
		if p.ID == id {
			return p, true
		}
	}
	return EmotionPreset{}, false
}

// MusicTrack is a background music option. An empty Ref means no music.
type MusicTrack struct {
	Name string
	Ref  string
}

// MusicTracks returns the preset background tracks.
func MusicTracks() []MusicTrack {
	return []MusicTrack{
		{Name: "Nenhum", Ref: ""},
		{Name: "Abismo Sombrio", Ref: "https://cdn.pixabay.com/audio/2022/03/10/audio_c8c8a7315b.mp3"},
		{Name: "Mistério Etéreo", Ref: "https://cdn.pixabay.com/audio/2022/10/24/audio_3136209880.mp3"},
	}
}

// FXOption is a visual effect overlay understood by the compositor.
type FXOption struct {
	ID    string
	Label string
}

var fxOptions = []FXOption{
	{ID: "none", Label: "Limpo"},
	{ID: "film_grain", Label: "Poeira de Filme"},
	{ID: "vhs_glitch", Label: "VHS Retro"},
	{ID: "cinematic_dust", Label: "Partículas"},
}

// FXOptions returns the available special effects.
func FXOptions() []FXOption {
	out := make([]FXOption, len(fxOptions))
	copy(out, fxOptions)
	return out
}

func validFX(id string) bool {
	for _, fx := range fxOptions {
		if fx.ID == id {
			return true
		}
	}
	return false
}
