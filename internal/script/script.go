// Package script talks to the text-generation services that propose video
// ideas and write the narrated scene script.
package script

import (
	"context"
	"fmt"
	"time"

	"github.com/paulofranca-ai/canaldarkgen/internal/project"
)

// Idea is a proposed topic and opening hook.
type Idea struct {
	Topic string `json:"topic"`
	Hook  string `json:"hook"`
}

type IdeaGenerator interface {
	GenerateIdeas(ctx context.Context, t project.VideoType) (Idea, error)
}

// ScriptGenerator writes one scene draft per planned scene. research is
// optional source material and may be empty.
type ScriptGenerator interface {
	GenerateScript(ctx context.Context, cfg project.Config, research string) ([]project.SceneDraft, error)
}

// Generator is a text service that can do both.
type Generator interface {
	IdeaGenerator
	ScriptGenerator
}

const (
	temperature    = 0.8
	maxRetries     = 3
	initialBackoff = 1 * time.Second
	backoffMult    = 2
)

// Provider names accepted by New.
const (
	ProviderClaude = "claude"
	ProviderGemini = "gemini"
	ProviderNova   = "nova"
)

func Providers() []string {
	return []string{ProviderClaude, ProviderGemini, ProviderNova}
}

func maxTokensForScenes(n int) int64 {
	switch {
	case n > 40:
		return 16384
	case n > 15:
		return 8192
	default:
		return 4096
	}
}

// retry runs fn up to maxRetries times with exponential backoff. Only
// transient failures are retried; credential and unknown failures return
// at once.
func retry[T any](ctx context.Context, service string, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	backoff := initialBackoff

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		out, err := fn()
		if err == nil {
			return out, nil
		}
		lastErr = err
		if KindOf(err) != KindTransient {
			return zero, err
		}
		if attempt < maxRetries {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= time.Duration(backoffMult)
		}
	}
	return zero, fmt.Errorf("%s failed after %d attempts: %w", service, maxRetries, lastErr)
}
