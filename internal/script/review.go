package script

import (
	"fmt"
	"math"
	"strings"

	"github.com/paulofranca-ai/canaldarkgen/internal/project"
)

// ReviewIssue describes a quality problem found in a generated script.
type ReviewIssue struct {
	Category string // "scene_count", "empty", "pacing", "filler"
	Message  string
	Severity string // "error" or "warning"
}

// Narration pace the voice services read at, in words per second.
const wordsPerSecond = 2.6

// Review runs fast heuristic checks over a script. It never rejects the
// script; callers decide what to do with the issues.
func Review(cfg project.Config, drafts []project.SceneDraft) []ReviewIssue {
	var issues []ReviewIssue
	issues = append(issues, checkSceneCount(cfg.SceneCount, len(drafts))...)
	issues = append(issues, checkEmpty(drafts)...)
	issues = append(issues, checkPacing(cfg.ImageDuration, drafts)...)
	issues = append(issues, checkFillerPhrases(drafts)...)
	return issues
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []ReviewIssue) bool {
	for _, issue := range issues {
		if issue.Severity == "error" {
			return true
		}
	}
	return false
}

func checkSceneCount(target, actual int) []ReviewIssue {
	if target <= 0 {
		return nil
	}
	tolerance := float64(target) * 0.15

	if math.Abs(float64(actual-target)) > tolerance {
		severity := "warning"
		if actual == 0 {
			severity = "error"
		}
		return []ReviewIssue{{
			Category: "scene_count",
			Message:  fmt.Sprintf("Roteiro tem %d cenas, o planejado era %d", actual, target),
			Severity: severity,
		}}
	}
	return nil
}

func checkEmpty(drafts []project.SceneDraft) []ReviewIssue {
	var scenes []string
	for i, d := range drafts {
		if strings.TrimSpace(d.Narration) == "" || strings.TrimSpace(d.VisualPrompt) == "" {
			scenes = append(scenes, fmt.Sprint(i+1))
		}
	}
	if len(scenes) == 0 {
		return nil
	}
	return []ReviewIssue{{
		Category: "empty",
		Message:  "Cenas sem narração ou prompt visual: " + strings.Join(scenes, ", "),
		Severity: "error",
	}}
}

// checkPacing flags narrations that cannot be read within one image
// interval.
func checkPacing(interval int, drafts []project.SceneDraft) []ReviewIssue {
	if interval <= 0 {
		return nil
	}
	limit := int(math.Ceil(float64(interval) * wordsPerSecond * 1.5))
	long := 0
	for _, d := range drafts {
		if len(strings.Fields(d.Narration)) > limit {
			long++
		}
	}
	if long == 0 {
		return nil
	}
	return []ReviewIssue{{
		Category: "pacing",
		Message:  fmt.Sprintf("%d cenas com narração longa demais para %ds (máx. ~%d palavras)", long, interval, limit),
		Severity: "warning",
	}}
}

// bannedPhrases are stock openers that flatten the suspense.
var bannedPhrases = []string{
	"neste vídeo",
	"não se esqueça de se inscrever",
	"deixe seu like",
	"olá pessoal",
	"fala galera",
	"in this video",
	"don't forget to subscribe",
	"smash that like",
	"hey guys",
}

func checkFillerPhrases(drafts []project.SceneDraft) []ReviewIssue {
	fillerCount := 0
	for _, d := range drafts {
		lower := strings.ToLower(d.Narration)
		for _, phrase := range bannedPhrases {
			if strings.Contains(lower, phrase) {
				fillerCount++
				break // count once per scene at most
			}
		}
	}
	if fillerCount == 0 {
		return nil
	}
	return []ReviewIssue{{
		Category: "filler",
		Message:  fmt.Sprintf("%d cenas com frases de preenchimento", fillerCount),
		Severity: "warning",
	}}
}
