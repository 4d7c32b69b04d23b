package script

import (
	"fmt"
	"strings"

	"github.com/paulofranca-ai/canaldarkgen/internal/project"
)

const scriptSystemPrompt = `You are the head writer of a "dark" faceless video channel. You write narrated scripts about mysteries, unsolved cases, forgotten history and unsettling science.

RULES:
1. The first scene must deliver the hook almost word for word. It has to stop the scroll.
2. Every scene is one narrated beat that fits on screen while a single image is shown.
3. Narration is spoken text only. No stage directions, no emojis, no hashtags.
4. Build tension scene by scene and close with a line that invites the viewer to keep watching the channel.
5. visual_prompt describes one still image in English for an image model: subject, setting, lighting, camera. Always apply the requested image style.
6. Do not invent sources or quote real people.

OUTPUT FORMAT:
Return ONLY valid JSON matching this exact structure:
{
  "scenes": [
    {"narration": "...", "narration_translation": "...", "visual_prompt": "..."}
  ]
}

IMPORTANT: Output raw JSON only. No markdown code fences. No text before or after the JSON.`

const ideaSystemPrompt = `You find viral ideas for a "dark" faceless video channel: mysteries, unsolved cases, forgotten history, unsettling science.

Return ONLY valid JSON: {"topic": "...", "hook": "..."}
The topic is a short title. The hook is the first sentence the narrator says and must create immediate curiosity.
Write both in Brazilian Portuguese.`

func languageFor(n project.Nationality) string {
	if n == project.NationalityUS {
		return "American English"
	}
	return "Brazilian Portuguese"
}

func buildScriptPrompt(cfg project.Config, research string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<scratchpad>
Plan the arc before writing: hook, escalation, reveal, closing line.
You must produce exactly %d scenes.
</scratchpad>

`, cfg.SceneCount)

	fmt.Fprintf(&b, "TOPIC: %s\n", cfg.Topic)
	fmt.Fprintf(&b, "HOOK: %s\n", cfg.Hook)
	fmt.Fprintf(&b, "FORMAT: %s video, %s, %d seconds total, one scene every %d seconds\n",
		cfg.VideoType, cfg.AspectRatio, cfg.TotalDuration, cfg.ImageDuration)
	fmt.Fprintf(&b, "SCENES: exactly %d\n", cfg.SceneCount)
	fmt.Fprintf(&b, "NARRATOR TONE: %s\n", cfg.NarratorTone)
	fmt.Fprintf(&b, "IMAGE STYLE: %s\n", cfg.ImageStyle)
	fmt.Fprintf(&b, "NARRATION LANGUAGE: %s\n", languageFor(cfg.Nationality))
	if cfg.Nationality == project.NationalityUS {
		b.WriteString("Fill narration_translation with a Brazilian Portuguese translation of each narration.\n")
	} else {
		b.WriteString("Leave narration_translation empty.\n")
	}
	if research != "" {
		fmt.Fprintf(&b, "\nRESEARCH MATERIAL (use only facts found here):\n%s\n", research)
	}
	return b.String()
}

func buildIdeaPrompt(t project.VideoType) string {
	switch t {
	case project.VideoLong:
		return "Suggest one idea for a long video (around two minutes or more) with enough depth for several acts."
	default:
		return "Suggest one idea for a vertical short (under a minute) that pays off fast."
	}
}
