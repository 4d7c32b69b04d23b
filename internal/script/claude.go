package script

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/paulofranca-ai/canaldarkgen/internal/project"
)

var claudeModels = map[string]string{
	"haiku":  "claude-haiku-4-5-20251001",
	"sonnet": "claude-sonnet-4-5-20250929",
}

type messagesAPI interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type ClaudeGenerator struct {
	model    string
	messages messagesAPI
}

// NewClaudeGenerator builds a generator for the given model alias
// ("haiku" or "sonnet"). An empty key yields a generator that fails every
// call with a credential error.
func NewClaudeGenerator(model, apiKey string) *ClaudeGenerator {
	g := &ClaudeGenerator{model: model}
	if apiKey != "" {
		client := anthropic.NewClient(option.WithAPIKey(apiKey))
		g.messages = &client.Messages
	}
	return g
}

func (g *ClaudeGenerator) modelID() string {
	if id := claudeModels[g.model]; id != "" {
		return id
	}
	return claudeModels["haiku"]
}

func (g *ClaudeGenerator) GenerateIdeas(ctx context.Context, t project.VideoType) (Idea, error) {
	return retry(ctx, "Claude", func() (Idea, error) {
		text, err := g.complete(ctx, ideaSystemPrompt, buildIdeaPrompt(t), 1024)
		if err != nil {
			return Idea{}, err
		}
		idea, err := parseIdea(text)
		if err != nil {
			return Idea{}, invalidReply("Claude", err)
		}
		return idea, nil
	})
}

func (g *ClaudeGenerator) GenerateScript(ctx context.Context, cfg project.Config, research string) ([]project.SceneDraft, error) {
	return retry(ctx, "Claude", func() ([]project.SceneDraft, error) {
		text, err := g.complete(ctx, scriptSystemPrompt, buildScriptPrompt(cfg, research), maxTokensForScenes(cfg.SceneCount))
		if err != nil {
			return nil, err
		}
		scenes, err := parseScenes(text)
		if err != nil {
			return nil, invalidReply("Claude", err)
		}
		return scenes, nil
	})
}

func (g *ClaudeGenerator) complete(ctx context.Context, system, user string, maxTokens int64) (string, error) {
	if g.messages == nil {
		return "", missingKey("Claude", "ANTHROPIC_API_KEY")
	}
	message, err := g.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(g.modelID()),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(temperature),
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", classifyClaudeError(err)
	}
	text := extractText(message)
	if text == "" {
		return "", &ServiceError{Kind: KindTransient, Service: "Claude", Message: "empty response from Claude"}
	}
	return text, nil
}

func classifyClaudeError(err error) error {
	kind := KindUnknown
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		kind = kindForStatus(apiErr.StatusCode)
	}
	msg := fmt.Sprintf("Claude API error: %v", err)
	if kind == KindCredentialMissing {
		msg = "Claude API error: Invalid API Key"
	}
	return &ServiceError{Kind: kind, Service: "Claude", Message: msg, Err: err}
}

func extractText(msg *anthropic.Message) string {
	var parts []string
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			parts = append(parts, tb.Text)
		}
	}
	return strings.Join(parts, "")
}
