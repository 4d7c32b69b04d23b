package project

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// AssetState tracks generation of one scene asset.
// Transitions: idle -> pending -> {done, failed}; done and failed may be
// restarted.
type AssetState string

const (
	AssetIdle    AssetState = "idle"
	AssetPending AssetState = "pending"
	AssetDone    AssetState = "done"
	AssetFailed  AssetState = "failed"
)

// Asset selects which per-scene asset a transition applies to.
type Asset int

const (
	AssetImage Asset = iota
	AssetAudio
)

func (a Asset) String() string {
	if a == AssetAudio {
		return "audio"
	}
	return "image"
}

var ErrAssetTransition = errors.New("invalid asset state transition")

// SceneDraft is one scene as returned by the script service, before it has
// an identity.
type SceneDraft struct {
	Narration            string `json:"narration"`
	NarrationTranslation string `json:"narration_translation,omitempty"`
	VisualPrompt         string `json:"visual_prompt"`
}

// Scene is one narrated unit of the output video.
type Scene struct {
	ID                   string     `json:"id"`
	Narration            string     `json:"narration"`
	NarrationTranslation string     `json:"narrationTranslation,omitempty"`
	VisualPrompt         string     `json:"visualPrompt"`
	ImageRef             string     `json:"imageRef,omitempty"`
	AudioRef             string     `json:"audioRef,omitempty"`
	ImageState           AssetState `json:"imageState"`
	AudioState           AssetState `json:"audioState"`
	ImageError           string     `json:"imageError,omitempty"`
	AudioError           string     `json:"audioError,omitempty"`
}

func (s *Scene) slots(a Asset) (state *AssetState, ref, msg *string) {
	if a == AssetAudio {
		return &s.AudioState, &s.AudioRef, &s.AudioError
	}
	return &s.ImageState, &s.ImageRef, &s.ImageError
}

// State returns the generation state of asset a.
func (s *Scene) State(a Asset) AssetState {
	st, _, _ := s.slots(a)
	return *st
}

// Start marks asset a as pending and clears any previous error.
func (s *Scene) Start(a Asset) error {
	st, _, msg := s.slots(a)
	if *st == AssetPending {
		return fmt.Errorf("scene %s %s already pending: %w", s.ID, a, ErrAssetTransition)
	}
	*st = AssetPending
	*msg = ""
	return nil
}

// Finish records a generated asset reference.
func (s *Scene) Finish(a Asset, assetRef string) error {
	st, ref, msg := s.slots(a)
	if *st != AssetPending {
		return fmt.Errorf("scene %s %s is %s, not pending: %w", s.ID, a, *st, ErrAssetTransition)
	}
	*st = AssetDone
	*ref = assetRef
	*msg = ""
	return nil
}

// Fail records a generation error for asset a.
func (s *Scene) Fail(a Asset, reason string) error {
	st, _, msg := s.slots(a)
	if *st != AssetPending {
		return fmt.Errorf("scene %s %s is %s, not pending: %w", s.ID, a, *st, ErrAssetTransition)
	}
	*st = AssetFailed
	*msg = reason
	return nil
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewID returns a new ULID. IDs are strictly increasing within the process.
func NewID() (string, error) {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", fmt.Errorf("generate ulid: %w", err)
	}
	return id.String(), nil
}

// Storyboard is the ordered scene sequence of a project. Downstream stages
// share it by pointer and mutate scenes in place.
type Storyboard struct {
	Scenes []*Scene `json:"scenes"`
}

// NewStoryboard mints a fresh identity for every draft. All scenes start
// with idle image and audio states.
func NewStoryboard(drafts []SceneDraft) (*Storyboard, error) {
	b := &Storyboard{Scenes: make([]*Scene, 0, len(drafts))}
	for _, d := range drafts {
		id, err := NewID()
		if err != nil {
			return nil, err
		}
		b.Scenes = append(b.Scenes, &Scene{
			ID:                   id,
			Narration:            d.Narration,
			NarrationTranslation: d.NarrationTranslation,
			VisualPrompt:         d.VisualPrompt,
			ImageState:           AssetIdle,
			AudioState:           AssetIdle,
		})
	}
	return b, nil
}

// Len returns the number of scenes.
func (b *Storyboard) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Scenes)
}

// Scene looks up a scene by id.
func (b *Storyboard) Scene(id string) (*Scene, bool) {
	if b == nil {
		return nil, false
	}
	for _, s := range b.Scenes {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// Snapshot returns deep copies of the scenes for read-only consumers.
func (b *Storyboard) Snapshot() []Scene {
	if b == nil {
		return nil
	}
	out := make([]Scene, len(b.Scenes))
	for i, s := range b.Scenes {
		out[i] = *s
	}
	return out
}

func SaveStoryboard(b *Storyboard, path string) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal storyboard: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write storyboard to %s: %w", path, err)
	}
	return nil
}

func LoadStoryboard(path string) (*Storyboard, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read storyboard from %s: %w", path, err)
	}
	var b Storyboard
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse storyboard from %s: %w", path, err)
	}
	if len(b.Scenes) == 0 {
		return nil, fmt.Errorf("storyboard %s has no scenes", path)
	}
	for i, s := range b.Scenes {
		if s == nil || s.ID == "" {
			return nil, fmt.Errorf("storyboard %s: scene %d has no id", path, i)
		}
		if s.ImageState == "" {
			s.ImageState = AssetIdle
		}
		if s.AudioState == "" {
			s.AudioState = AssetIdle
		}
	}
	return &b, nil
}
