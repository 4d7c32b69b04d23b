package script

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/paulofranca-ai/canaldarkgen/internal/project"
)

type scriptPayload struct {
	Scenes []project.SceneDraft `json:"scenes"`
}

// parseScenes extracts the scene list from a model reply. The planned scene
// count is only guidance for the model, so any non-empty list is accepted.
func parseScenes(text string) ([]project.SceneDraft, error) {
	text = cleanReply(text)
	if text == "" {
		return nil, fmt.Errorf("no JSON content found in response")
	}

	var p scriptPayload
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w\nRaw text (first 500 chars): %s", err, truncate(text, 500))
	}
	if len(p.Scenes) == 0 {
		return nil, fmt.Errorf("script has no scenes")
	}
	for i, s := range p.Scenes {
		if strings.TrimSpace(s.Narration) == "" {
			return nil, fmt.Errorf("scene %d has empty narration", i)
		}
		if strings.TrimSpace(s.VisualPrompt) == "" {
			return nil, fmt.Errorf("scene %d has empty visual prompt", i)
		}
	}
	return p.Scenes, nil
}

func parseIdea(text string) (Idea, error) {
	text = cleanReply(text)
	var idea Idea
	if err := json.Unmarshal([]byte(text), &idea); err != nil {
		return Idea{}, fmt.Errorf("invalid JSON: %w\nRaw text (first 500 chars): %s", err, truncate(text, 500))
	}
	idea.Topic = strings.TrimSpace(idea.Topic)
	idea.Hook = strings.TrimSpace(idea.Hook)
	if idea.Topic == "" || idea.Hook == "" {
		return Idea{}, fmt.Errorf("idea is missing topic or hook")
	}
	return idea, nil
}

// invalidReply tags a reply that could not be parsed. Retrying the same
// prompt usually fixes it, so it counts as transient.
func invalidReply(service string, err error) error {
	return &ServiceError{Kind: KindTransient, Service: service, Message: service + ": unusable reply: " + err.Error(), Err: err}
}

func cleanReply(text string) string {
	text = stripScratchpad(text)
	text = stripMarkdownFences(text)
	text = extractJSON(text)
	return strings.TrimSpace(text)
}

var (
	scratchpadRe = regexp.MustCompile(`(?s)<scratchpad>.*?</scratchpad>`)
	fenceRe      = regexp.MustCompile("(?s)```(?:json)?\\s*\n?(.*?)\n?```")
)

func stripScratchpad(text string) string {
	return scratchpadRe.ReplaceAllString(text, "")
}

func stripMarkdownFences(text string) string {
	if matches := fenceRe.FindStringSubmatch(text); len(matches) > 1 {
		return matches[1]
	}
	return text
}

func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}

// truncate keeps the first maxLen runes of s.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) > maxLen {
		return string(r[:maxLen]) + "..."
	}
	return s
}
