package workflow

import (
	"fmt"

	"github.com/paulofranca-ai/canaldarkgen/internal/project"
)

// Cue places one scene on the preview timeline, in seconds.
type Cue struct {
	Index   int
	SceneID string
	Start   int
	End     int
}

// Timeline lays scenes end to end, one image interval each. The last cue is
// clipped to the total duration when the interval overshoots it.
func Timeline(cfg project.Config, scenes []project.Scene) []Cue {
	if cfg.ImageDuration <= 0 {
		return nil
	}
	cues := make([]Cue, len(scenes))
	for i, s := range scenes {
		start := i * cfg.ImageDuration
		end := start + cfg.ImageDuration
		if end > cfg.TotalDuration && cfg.TotalDuration > start {
			end = cfg.TotalDuration
		}
		cues[i] = Cue{Index: i, SceneID: s.ID, Start: start, End: end}
	}
	return cues
}

// FormatTime renders seconds as m:ss.
func FormatTime(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
