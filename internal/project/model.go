package project

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Field names a settable Config field.
type Field string

const (
	FieldTopic              Field = "topic"
	FieldHook               Field = "hook"
	FieldVideoType          Field = "videoType"
	FieldAspectRatio        Field = "aspectRatio"
	FieldTotalDuration      Field = "totalDuration"
	FieldImageDuration      Field = "imageDuration"
	FieldSceneCount         Field = "sceneCount"
	FieldIntroRef           Field = "introRef"
	FieldSpecialFX          Field = "specialFX"
	FieldNarratorTone       Field = "narratorTone"
	FieldImageStyle         Field = "imageStyle"
	FieldBackgroundMusicRef Field = "backgroundMusicRef"
	FieldMusicVolume        Field = "musicVolume"
	FieldVoiceID            Field = "voiceId"
	FieldEmotionPreset      Field = "emotionPreset"
	FieldVoiceSettings      Field = "voiceSettings"
	FieldNationality        Field = "nationality"
)

var (
	ErrDerivedField = errors.New("field is derived and cannot be set")
	ErrUnknownField = errors.New("unknown config field")
	ErrInvalidValue = errors.New("invalid config value")
)

// Model owns a Config and enforces its derived-field invariants.
// Every accepted write increments Revision. Model is not safe for
// concurrent use; callers serialize access.
type Model struct {
	cfg Config
	rev uint64
}

// NewModel wraps cfg, reconciling SceneCount on the way in.
func NewModel(cfg Config) *Model {
	m := &Model{cfg: cfg}
	m.cfg.SceneCount = sceneCount(m.cfg.TotalDuration, m.cfg.ImageDuration)
	return m
}

// Config returns a copy of the current configuration.
func (m *Model) Config() Config { return m.cfg }

// Revision counts accepted mutations since construction.
func (m *Model) Revision() uint64 { return m.rev }

// SetField is a point update of one field. Duration writes recompute
// SceneCount before returning. VideoType and EmotionPreset delegate to
// SetVideoType and SetEmotionPreset.
func (m *Model) SetField(f Field, v any) error {
	switch f {
	case FieldSceneCount:
		return fmt.Errorf("%s: %w", f, ErrDerivedField)
	case FieldVideoType:
		t, err := asVideoType(v)
		if err != nil {
			return err
		}
		return m.SetVideoType(t)
	case FieldEmotionPreset:
		s, err := asString(f, v)
		if err != nil {
			return err
		}
		m.SetEmotionPreset(s)
		return nil
	}

	next := m.cfg
	switch f {
	case FieldTopic, FieldHook, FieldIntroRef, FieldNarratorTone, FieldImageStyle,
		FieldBackgroundMusicRef, FieldVoiceID, FieldSpecialFX:
		s, err := asString(f, v)
		if err != nil {
			return err
		}
		switch f {
		case FieldTopic:
			next.Topic = s
		case FieldHook:
			next.Hook = s
		case FieldIntroRef:
			next.IntroRef = s
		case FieldNarratorTone:
			next.NarratorTone = s
		case FieldImageStyle:
			next.ImageStyle = s
		case FieldBackgroundMusicRef:
			next.BackgroundMusicRef = s
		case FieldVoiceID:
			next.VoiceID = s
		case FieldSpecialFX:
			if !validFX(s) {
				return fmt.Errorf("%s %q: %w", f, s, ErrInvalidValue)
			}
			next.SpecialFX = s
		}
	case FieldAspectRatio:
		s, err := asString(f, v)
		if err != nil {
			return err
		}
		if !validAspect(AspectRatio(s)) {
			return fmt.Errorf("%s %q: %w", f, s, ErrInvalidValue)
		}
		next.AspectRatio = AspectRatio(s)
	case FieldNationality:
		s, err := asString(f, v)
		if err != nil {
			return err
		}
		n, err := ParseNationality(s)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		next.Nationality = n
	case FieldTotalDuration, FieldImageDuration:
		n, err := asInt(f, v)
		if err != nil {
			return err
		}
		if n <= 0 {
			return fmt.Errorf("%s must be positive (got %d): %w", f, n, ErrInvalidValue)
		}
		if f == FieldTotalDuration {
			if err := checkTotalDuration(next.VideoType, n); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidValue, err)
			}
			next.TotalDuration = n
		} else {
			next.ImageDuration = n
		}
		next.SceneCount = sceneCount(next.TotalDuration, next.ImageDuration)
	case FieldMusicVolume:
		vol, err := asFloat(f, v)
		if err != nil {
			return err
		}
		if vol < 0 || vol > 1 {
			return fmt.Errorf("%s must be between 0 and 1 (got %.2f): %w", f, vol, ErrInvalidValue)
		}
		next.MusicVolume = vol
	case FieldVoiceSettings:
		s, ok := v.(VoiceSettings)
		if !ok {
			return fmt.Errorf("%s expects VoiceSettings, got %T: %w", f, v, ErrInvalidValue)
		}
		if err := s.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		next.VoiceSettings = s
	default:
		return fmt.Errorf("%q: %w", f, ErrUnknownField)
	}

	m.commit(next)
	return nil
}

// SetVideoType applies the profile for t as one update and recomputes
// SceneCount.
func (m *Model) SetVideoType(t VideoType) error {
	p, ok := profiles[t]
	if !ok {
		return fmt.Errorf("videoType %q: %w", t, ErrInvalidValue)
	}
	next := m.cfg
	next.VideoType = t
	next.AspectRatio = p.AspectRatio
	next.TotalDuration = p.TotalDuration
	next.ImageDuration = p.ImageDuration
	next.SceneCount = sceneCount(next.TotalDuration, next.ImageDuration)
	m.commit(next)
	return nil
}

// RecomputeSceneCount reconciles SceneCount with the durations. It reports
// whether the stored value changed; an already correct value is left alone.
func (m *Model) RecomputeSceneCount() bool {
	n := sceneCount(m.cfg.TotalDuration, m.cfg.ImageDuration)
	if n == m.cfg.SceneCount {
		return false
	}
	next := m.cfg
	next.SceneCount = n
	m.commit(next)
	return true
}

// SetEmotionPreset selects a catalog preset and replaces VoiceSettings with
// its values. Unknown ids are ignored and reported as false.
func (m *Model) SetEmotionPreset(id string) bool {
	p, ok := LookupEmotion(id)
	if !ok {
		return false
	}
	next := m.cfg
	next.EmotionPreset = p.ID
	next.VoiceSettings = p.Settings
	m.commit(next)
	return true
}

// SetIdea writes topic and hook as a single update.
func (m *Model) SetIdea(topic, hook string) {
	next := m.cfg
	next.Topic = topic
	next.Hook = hook
	m.commit(next)
}

// ApplyVoice copies a saved voice selection into the config as a single update.
// An unknown emotion keeps the current one while settings are still applied.
func (m *Model) ApplyVoice(voiceID string, settings VoiceSettings, emotion string, nat Nationality) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	next := m.cfg
	next.VoiceID = voiceID
	next.VoiceSettings = settings
	if _, ok := LookupEmotion(emotion); ok {
		next.EmotionPreset = emotion
	}
	if validNationality(nat) {
		next.Nationality = nat
	}
	m.commit(next)
	return nil
}

func (m *Model) commit(next Config) {
	m.cfg = next
	m.rev++
}

// Value renders a field of c as text for display.
func (c Config) Value(f Field) string {
	switch f {
	case FieldTopic:
		return c.Topic
	case FieldHook:
		return c.Hook
	case FieldVideoType:
		return string(c.VideoType)
	case FieldAspectRatio:
		return string(c.AspectRatio)
	case FieldTotalDuration:
		return strconv.Itoa(c.TotalDuration)
	case FieldImageDuration:
		return strconv.Itoa(c.ImageDuration)
	case FieldSceneCount:
		return strconv.Itoa(c.SceneCount)
	case FieldIntroRef:
		return c.IntroRef
	case FieldSpecialFX:
		return c.SpecialFX
	case FieldNarratorTone:
		return c.NarratorTone
	case FieldImageStyle:
		return c.ImageStyle
	case FieldBackgroundMusicRef:
		return c.BackgroundMusicRef
	case FieldMusicVolume:
		return formatFloat(c.MusicVolume)
	case FieldVoiceID:
		return c.VoiceID
	case FieldEmotionPreset:
		return c.EmotionPreset
	case FieldNationality:
		return string(c.Nationality)
	}
	return ""
}

// ParseValue converts text input into the typed value SetField expects for f.
func ParseValue(f Field, s string) (any, error) {
	switch f {
	case FieldTotalDuration, FieldImageDuration:
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not a whole number: %w", f, s, ErrInvalidValue)
		}
		return n, nil
	case FieldMusicVolume:
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not a number: %w", f, s, ErrInvalidValue)
		}
		return v, nil
	case FieldSceneCount:
		return nil, fmt.Errorf("%s: %w", f, ErrDerivedField)
	case FieldVoiceSettings:
		return nil, fmt.Errorf("%s cannot be parsed from text: %w", f, ErrInvalidValue)
	}
	return s, nil
}

func asString(f Field, v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case fmt.Stringer:
		return s.String(), nil
	case VideoType:
		return string(s), nil
	case AspectRatio:
		return string(s), nil
	case Nationality:
		return string(s), nil
	}
	return "", fmt.Errorf("%s expects a string, got %T: %w", f, v, ErrInvalidValue)
}

func asVideoType(v any) (VideoType, error) {
	s, err := asString(FieldVideoType, v)
	if err != nil {
		return "", err
	}
	return VideoType(s), nil
}

func asInt(f Field, v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case int32:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("%s expects whole seconds, got %v: %w", f, n, ErrInvalidValue)
		}
		return int(n), nil
	}
	return 0, fmt.Errorf("%s expects an integer, got %T: %w", f, v, ErrInvalidValue)
}

func asFloat(f Field, v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	}
	return 0, fmt.Errorf("%s expects a number, got %T: %w", f, v, ErrInvalidValue)
}
