package project

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// VideoType selects a profile of default parameters.
type VideoType string

const (
	VideoShort VideoType = "short"
	VideoLong  VideoType = "long"
)

type AspectRatio string

const (
	Aspect16x9 AspectRatio = "16:9"
	Aspect9x16 AspectRatio = "9:16"
	Aspect1x1  AspectRatio = "1:1"
)

type Nationality string

const (
	NationalityBR Nationality = "PT-BR"
	NationalityUS Nationality = "US"
)

// VoiceSettings are the four narrator tuning values sent to the voice service.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// Config is the single mutable project record for a session.
// SceneCount is derived from TotalDuration and ImageDuration and is only
// ever written by the model itself.
type Config struct {
	Topic              string        `json:"topic" yaml:"topic"`
	Hook               string        `json:"hook" yaml:"hook"`
	VideoType          VideoType     `json:"videoType" yaml:"video_type"`
	AspectRatio        AspectRatio   `json:"aspectRatio" yaml:"aspect_ratio"`
	TotalDuration      int           `json:"totalDuration" yaml:"total_duration"`
	ImageDuration      int           `json:"imageDuration" yaml:"image_duration"`
	SceneCount         int           `json:"sceneCount" yaml:"-"`
	IntroRef           string        `json:"introRef,omitempty" yaml:"intro_ref"`
	SpecialFX          string        `json:"specialFX" yaml:"special_fx"`
	NarratorTone       string        `json:"narratorTone" yaml:"narrator_tone"`
	ImageStyle         string        `json:"imageStyle" yaml:"image_style"`
	BackgroundMusicRef string        `json:"backgroundMusicRef,omitempty" yaml:"background_music_ref"`
	MusicVolume        float64       `json:"musicVolume" yaml:"music_volume"`
	VoiceID            string        `json:"voiceId" yaml:"voice_id"`
	EmotionPreset      string        `json:"emotionPreset" yaml:"emotion_preset"`
	VoiceSettings      VoiceSettings `json:"voiceSettings" yaml:"-"`
	Nationality        Nationality   `json:"nationality" yaml:"nationality"`
}

// Profile is the set of values applied atomically when the video type changes.
type Profile struct {
	AspectRatio   AspectRatio
	TotalDuration int
	ImageDuration int
}

var profiles = map[VideoType]Profile{
	VideoShort: {AspectRatio: Aspect9x16, TotalDuration: 45, ImageDuration: 3},
	VideoLong:  {AspectRatio: Aspect16x9, TotalDuration: 120, ImageDuration: 5},
}

// ProfileFor returns the default profile for a video type.
func ProfileFor(t VideoType) (Profile, bool) {
	p, ok := profiles[t]
	return p, ok
}

// DefaultConfig returns the configuration a new session starts with.
func DefaultConfig() Config {
	suspense, _ := LookupEmotion(DefaultEmotion)
	short := profiles[VideoShort]
	cfg := Config{
		VideoType:          VideoShort,
		AspectRatio:        short.AspectRatio,
		TotalDuration:      short.TotalDuration,
		ImageDuration:      short.ImageDuration,
		SpecialFX:          "film_grain",
		NarratorTone:       "Misterioso e Profundo",
		ImageStyle:         "Cinematic Dark Realism, 8k, Detailed Texture",
		BackgroundMusicRef: MusicTracks()[1].Ref,
		MusicVolume:        0.2,
		EmotionPreset:      suspense.ID,
		VoiceSettings:      suspense.Settings,
		Nationality:        NationalityBR,
	}
	cfg.SceneCount = sceneCount(cfg.TotalDuration, cfg.ImageDuration)
	return cfg
}

// DurationRange returns the slider bounds for the total duration of a video type.
func DurationRange(t VideoType) (min, max, step int) {
	if t == VideoLong {
		return 15, 600, 15
	}
	return 15, 60, 15
}

// IntervalOptions are the per-image durations offered to the user, in seconds.
func IntervalOptions() []int {
	return []int{2, 3, 4, 5, 6, 8, 10}
}

func sceneCount(total, interval int) int {
	if interval <= 0 {
		return 0
	}
	n := total / interval
	if total%interval != 0 {
		n++
	}
	return n
}

// checkTotalDuration rejects totals outside the range of the video type.
func checkTotalDuration(t VideoType, total int) error {
	lo, hi, _ := DurationRange(t)
	if total < lo || total > hi {
		return fmt.Errorf("totalDuration must be between %d and %d for %s videos (got %d)", lo, hi, t, total)
	}
	return nil
}

func validVideoType(t VideoType) bool {
	_, ok := profiles[t]
	return ok
}

func validAspect(a AspectRatio) bool {
	return a == Aspect16x9 || a == Aspect9x16 || a == Aspect1x1
}

func validNationality(n Nationality) bool {
	return n == NationalityBR || n == NationalityUS
}

// ParseVideoType accepts "short" or "long".
func ParseVideoType(s string) (VideoType, error) {
	t := VideoType(strings.ToLower(strings.TrimSpace(s)))
	if !validVideoType(t) {
		return "", fmt.Errorf("invalid video type %q: must be short or long", s)
	}
	return t, nil
}

// ParseNationality accepts "PT-BR" or "US" (case-insensitive).
func ParseNationality(s string) (Nationality, error) {
	n := Nationality(strings.ToUpper(strings.TrimSpace(s)))
	if !validNationality(n) {
		return "", fmt.Errorf("invalid nationality %q: must be PT-BR or US", s)
	}
	return n, nil
}

// Validate checks every field against its type range.
func (c Config) Validate() error {
	var errs []error
	if !validVideoType(c.VideoType) {
		errs = append(errs, fmt.Errorf("videoType %q is not short or long", c.VideoType))
	}
	if !validAspect(c.AspectRatio) {
		errs = append(errs, fmt.Errorf("aspectRatio %q is not 16:9, 9:16 or 1:1", c.AspectRatio))
	}
	if err := checkTotalDuration(c.VideoType, c.TotalDuration); err != nil {
		errs = append(errs, err)
	}
	if c.ImageDuration <= 0 {
		errs = append(errs, fmt.Errorf("imageDuration must be positive (got %d)", c.ImageDuration))
	}
	if c.MusicVolume < 0 || c.MusicVolume > 1 {
		errs = append(errs, fmt.Errorf("musicVolume must be between 0 and 1 (got %.2f)", c.MusicVolume))
	}
	if !validFX(c.SpecialFX) {
		errs = append(errs, fmt.Errorf("specialFX %q is unknown", c.SpecialFX))
	}
	if !validNationality(c.Nationality) {
		errs = append(errs, fmt.Errorf("nationality %q is not PT-BR or US", c.Nationality))
	}
	if err := c.VoiceSettings.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Validate checks that every ratio lies in [0, 1].
func (s VoiceSettings) Validate() error {
	check := func(name string, v float64) error {
		if v < 0 || v > 1 {
			return fmt.Errorf("voiceSettings.%s must be between 0 and 1 (got %.2f)", name, v)
		}
		return nil
	}
	return errors.Join(
		check("stability", s.Stability),
		check("similarity_boost", s.SimilarityBoost),
		check("style", s.Style),
	)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
