package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/paulofranca-ai/canaldarkgen/internal/generation"
	"github.com/paulofranca-ai/canaldarkgen/internal/notice"
	"github.com/paulofranca-ai/canaldarkgen/internal/project"
	"github.com/paulofranca-ai/canaldarkgen/internal/script"
	"github.com/paulofranca-ai/canaldarkgen/internal/voice"
	"github.com/paulofranca-ai/canaldarkgen/internal/workflow"
)

var tracer = otel.Tracer("canaldarkgen-mcp")

// GeneratorFunc returns the text service for one call. apiKey is the
// caller-supplied key and may be empty.
type GeneratorFunc func(ctx context.Context, apiKey string) (script.Generator, error)

// ToolDefs returns the MCP tool definitions.
func ToolDefs() []mcp.Tool {
	apiKey := map[string]any{
		"type":        "string",
		"description": "Your key for the configured text service (used when the server has no default key)",
	}
	videoType := map[string]any{
		"type":        "string",
		"description": "Video type: short (9:16, 45s) or long (16:9, 2min)",
		"default":     "short",
	}
	return []mcp.Tool{
		{
			Name:        "generate_ideas",
			Description: "Propose a dark-narration topic and an opening hook for a video.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"video_type": videoType,
					"api_key":    apiKey,
				},
			},
		},
		{
			Name:        "generate_script",
			Description: "Write the scene-by-scene script for a topic and hook. Returns one narration and visual prompt per scene with its timeline slot.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"topic": map[string]any{
						"type":        "string",
						"description": "What the video is about",
					},
					"hook": map[string]any{
						"type":        "string",
						"description": "Opening line that grabs attention",
					},
					"video_type": videoType,
					"total_duration": map[string]any{
						"type":        "integer",
						"description": "Total length in seconds (multiple of 15)",
					},
					"image_duration": map[string]any{
						"type":        "integer",
						"description": "Seconds each image stays on screen",
					},
					"nationality": map[string]any{
						"type":        "string",
						"description": "Narration language: PT-BR or US",
						"default":     "PT-BR",
					},
					"narrator_tone": map[string]any{
						"type":        "string",
						"description": "How the narrator sounds",
					},
					"image_style": map[string]any{
						"type":        "string",
						"description": "Visual style appended to every image prompt",
					},
					"research": map[string]any{
						"type":        "string",
						"description": "Optional source material to ground the script",
					},
					"api_key": apiKey,
				},
				Required: []string{"topic", "hook"},
			},
		},
		{
			Name:        "list_voices",
			Description: "List narrator voices, optionally filtered by nationality and audio provider.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"nationality": map[string]any{
						"type":        "string",
						"description": "PT-BR or US",
					},
					"audio_provider": map[string]any{
						"type":        "string",
						"description": "openai_hd, elevenlabs_turbo, elevenlabs_quality or browser_free",
					},
				},
			},
		},
	}
}

// Handlers contains tool handler implementations.
type Handlers struct {
	generators GeneratorFunc
	voices     voice.Directory
	log        *slog.Logger
}

// NewHandlers creates tool handlers.
func NewHandlers(generators GeneratorFunc, voices voice.Directory, logger *slog.Logger) *Handlers {
	if voices == nil {
		voices = voice.PredefinedVoices()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{generators: generators, voices: voices, log: logger}
}

// orchestrator builds a one-call orchestrator. Notices are dropped; the
// error goes back in the tool result.
func (h *Handlers) orchestrator(ctx context.Context, req mcp.CallToolRequest) (*generation.Orchestrator, error) {
	gen, err := h.generators(ctx, mcp.ParseString(req, "api_key", ""))
	if err != nil {
		return nil, err
	}
	return generation.NewOrchestrator(gen, notice.Nop, nil, h.log), nil
}

// HandleGenerateIdeas proposes a topic and hook.
func (h *Handlers) HandleGenerateIdeas(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.generate_ideas")
	defer span.End()

	t, err := project.ParseVideoType(mcp.ParseString(req, "video_type", string(project.VideoShort)))
	if err != nil {
		span.SetStatus(codes.Error, "invalid video_type")
		return mcp.NewToolResultError(err.Error()), nil
	}
	span.SetAttributes(attribute.String("video_type", string(t)))

	orch, err := h.orchestrator(ctx, req)
	if err != nil {
		span.RecordError(err)
		return mcp.NewToolResultError(fmt.Sprintf("text service unavailable: %v", err)), nil
	}
	idea, err := orch.GenerateIdeas(ctx, t)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate ideas failed")
		return mcp.NewToolResultError(fmt.Sprintf("failed to generate ideas: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"topic": idea.Topic,
		"hook":  idea.Hook,
	})
}

// scriptConfig applies the tool arguments over the defaults of the video
// type, through the same model the console edits.
func scriptConfig(req mcp.CallToolRequest) (project.Config, error) {
	t, err := project.ParseVideoType(mcp.ParseString(req, "video_type", string(project.VideoShort)))
	if err != nil {
		return project.Config{}, err
	}
	m := project.NewModel(project.DefaultConfig())
	if err := m.SetVideoType(t); err != nil {
		return project.Config{}, err
	}
	m.SetIdea(mcp.ParseString(req, "topic", ""), mcp.ParseString(req, "hook", ""))

	sets := []struct {
		field project.Field
		value any
		set   bool
	}{
		{project.FieldTotalDuration, parseIntParam(req, "total_duration", 0), parseIntParam(req, "total_duration", 0) != 0},
		{project.FieldImageDuration, parseIntParam(req, "image_duration", 0), parseIntParam(req, "image_duration", 0) != 0},
		{project.FieldNationality, mcp.ParseString(req, "nationality", ""), mcp.ParseString(req, "nationality", "") != ""},
		{project.FieldNarratorTone, mcp.ParseString(req, "narrator_tone", ""), mcp.ParseString(req, "narrator_tone", "") != ""},
		{project.FieldImageStyle, mcp.ParseString(req, "image_style", ""), mcp.ParseString(req, "image_style", "") != ""},
	}
	for _, s := range sets {
		if !s.set {
			continue
		}
		if err := m.SetField(s.field, s.value); err != nil {
			return project.Config{}, err
		}
	}
	return m.Config(), nil
}

type sceneResult struct {
	ID                   string `json:"id"`
	Narration            string `json:"narration"`
	NarrationTranslation string `json:"narration_translation,omitempty"`
	VisualPrompt         string `json:"visual_prompt"`
	Start                string `json:"start"`
	End                  string `json:"end"`
}

// HandleGenerateScript writes the storyboard for a topic and hook.
func (h *Handlers) HandleGenerateScript(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.generate_script")
	defer span.End()

	cfg, err := scriptConfig(req)
	if err != nil {
		span.SetStatus(codes.Error, "invalid arguments")
		return mcp.NewToolResultError(err.Error()), nil
	}
	span.SetAttributes(
		attribute.String("video_type", string(cfg.VideoType)),
		attribute.Int("scene_count", cfg.SceneCount),
	)

	orch, err := h.orchestrator(ctx, req)
	if err != nil {
		span.RecordError(err)
		return mcp.NewToolResultError(fmt.Sprintf("text service unavailable: %v", err)), nil
	}
	drafts, err := orch.GenerateScript(ctx, generation.ScriptRequest{
		Config:   cfg,
		Research: mcp.ParseString(req, "research", ""),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate script failed")
		return mcp.NewToolResultError(err.Error()), nil
	}

	board, err := project.NewStoryboard(drafts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("build storyboard: %v", err)), nil
	}
	scenes := board.Snapshot()
	cues := workflow.Timeline(cfg, scenes)
	out := make([]sceneResult, len(scenes))
	for i, s := range scenes {
		out[i] = sceneResult{
			ID:                   s.ID,
			Narration:            s.Narration,
			NarrationTranslation: s.NarrationTranslation,
			VisualPrompt:         s.VisualPrompt,
			Start:                workflow.FormatTime(cues[i].Start),
			End:                  workflow.FormatTime(cues[i].End),
		}
	}
	h.log.InfoContext(ctx, "Script generated over MCP", "scenes", len(out), "planned", cfg.SceneCount)

	warnings := []string{}
	for _, issue := range script.Review(cfg, drafts) {
		warnings = append(warnings, issue.Message)
	}

	return jsonResult(map[string]any{
		"warnings":       warnings,
		"topic":          cfg.Topic,
		"hook":           cfg.Hook,
		"video_type":     cfg.VideoType,
		"aspect_ratio":   cfg.AspectRatio,
		"total_duration": cfg.TotalDuration,
		"scene_count":    len(out),
		"scenes":         out,
	})
}

// HandleListVoices returns the voice catalog.
func (h *Handlers) HandleListVoices(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.list_voices")
	defer span.End()

	nat := project.Nationality(mcp.ParseString(req, "nationality", ""))
	audio := voice.AudioProvider(mcp.ParseString(req, "audio_provider", ""))

	list, err := h.voices.ListVoices(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list voices failed")
		return mcp.NewToolResultError(fmt.Sprintf("failed to list voices: %v", err)), nil
	}
	catalog := voice.NewCatalog(list)
	if nat != "" || audio != "" {
		var filtered []voice.Voice
		for _, v := range catalog.All() {
			if nat != "" && v.Nationality != nat {
				continue
			}
			if audio != "" && v.Base != voice.ClassifyProvider(audio) {
				continue
			}
			filtered = append(filtered, v)
		}
		list = filtered
	} else {
		list = catalog.All()
	}
	span.SetAttributes(attribute.Int("result_count", len(list)))

	voices := make([]map[string]any, 0, len(list))
	for _, v := range list {
		item := map[string]any{
			"voice_id":    v.ID,
			"name":        v.Name,
			"nationality": v.Nationality,
			"provider":    v.Base,
		}
		if v.PreviewURL != "" {
			item["preview_url"] = v.PreviewURL
		}
		voices = append(voices, item)
	}
	return jsonResult(map[string]any{
		"voices": voices,
		"count":  len(voices),
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func parseIntParam(req mcp.CallToolRequest, key string, defaultVal int) int {
	args := req.GetArguments()
	if args == nil {
		return defaultVal
	}
	raw, ok := args[key]
	if !ok {
		return defaultVal
	}
	switch v := raw.(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return defaultVal
	}
}
