package generation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/paulofranca-ai/canaldarkgen/internal/notice"
	"github.com/paulofranca-ai/canaldarkgen/internal/project"
	"github.com/paulofranca-ai/canaldarkgen/internal/script"
)

// ErrTopicHookRequired rejects a script request before any call is made.
var ErrTopicHookRequired = errors.New("Defina o Tópico e o Hook!")

// ErrNoGenerator means no text service has been configured yet.
var ErrNoGenerator = &script.ServiceError{
	Kind:    script.KindCredentialMissing,
	Message: "no text service configured (API Key missing)",
}

const (
	ideasFailurePrefix  = "Erro ao gerar ideias: "
	scriptFailurePrefix = "Erro no Motor de IA: "
)

// Recovery is the surface that lets the user fix credentials.
type Recovery interface {
	OpenCredentials(ctx context.Context, cause error)
}

// RecoveryFunc adapts a function to Recovery.
type RecoveryFunc func(ctx context.Context, cause error)

func (f RecoveryFunc) OpenCredentials(ctx context.Context, cause error) { f(ctx, cause) }

// ScriptRequest is the input of a script generation.
type ScriptRequest struct {
	Config   project.Config
	Research string
}

// Orchestrator issues the idea and script requests, each behind its own
// guard, and routes failures to the user and the recovery surface.
type Orchestrator struct {
	ideas   *Guard[project.VideoType, script.Idea]
	scripts *Guard[ScriptRequest, []project.SceneDraft]

	notify   notice.Notifier
	recovery Recovery
	log      *slog.Logger
	tracer   trace.Tracer

	mu  sync.RWMutex
	gen script.Generator
}

func NewOrchestrator(gen script.Generator, notify notice.Notifier, recovery Recovery, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if notify == nil {
		notify = notice.Nop
	}
	o := &Orchestrator{
		notify:   notify,
		recovery: recovery,
		log:      logger,
		tracer:   otel.Tracer("canaldarkgen/generation"),
		gen:      gen,
	}
	o.ideas = NewGuard(o.callIdeas)
	o.scripts = NewGuard(o.callScript)
	return o
}

// SetGenerator swaps the text service, e.g. after the vault is unlocked.
func (o *Orchestrator) SetGenerator(gen script.Generator) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.gen = gen
}

func (o *Orchestrator) generator() script.Generator {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.gen
}

func (o *Orchestrator) IdeasInFlight() bool  { return o.ideas.InFlight() }
func (o *Orchestrator) ScriptInFlight() bool { return o.scripts.InFlight() }

// GenerateIdeas asks for a topic and hook for videos of type t.
func (o *Orchestrator) GenerateIdeas(ctx context.Context, t project.VideoType) (script.Idea, error) {
	ctx, span := o.tracer.Start(ctx, "generation.ideas")
	defer span.End()
	span.SetAttributes(attribute.String("video.type", string(t)))

	idea, err := o.ideas.Do(ctx, t)
	if err != nil {
		o.fail(ctx, span, ideasFailurePrefix, err)
		return script.Idea{}, err
	}
	o.log.InfoContext(ctx, "Idea generated", "topic", idea.Topic)
	return idea, nil
}

// GenerateScript validates the topic and hook, then asks for the scenes.
// An invalid request never reaches the text service.
func (o *Orchestrator) GenerateScript(ctx context.Context, req ScriptRequest) ([]project.SceneDraft, error) {
	if strings.TrimSpace(req.Config.Topic) == "" || strings.TrimSpace(req.Config.Hook) == "" {
		o.notify.Notify(notice.New(notice.Warn, ErrTopicHookRequired.Error()))
		return nil, ErrTopicHookRequired
	}

	ctx, span := o.tracer.Start(ctx, "generation.script")
	defer span.End()
	span.SetAttributes(
		attribute.String("video.type", string(req.Config.VideoType)),
		attribute.Int("scene.count", req.Config.SceneCount),
		attribute.Bool("research", req.Research != ""),
	)

	drafts, err := o.scripts.Do(ctx, req)
	if err != nil {
		o.fail(ctx, span, scriptFailurePrefix, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("scene.returned", len(drafts)))
	o.log.InfoContext(ctx, "Script generated", "scenes", len(drafts), "planned", req.Config.SceneCount)
	return drafts, nil
}

func (o *Orchestrator) callIdeas(ctx context.Context, t project.VideoType) (script.Idea, error) {
	gen := o.generator()
	if gen == nil {
		return script.Idea{}, ErrNoGenerator
	}
	return gen.GenerateIdeas(ctx, t)
}

func (o *Orchestrator) callScript(ctx context.Context, req ScriptRequest) ([]project.SceneDraft, error) {
	gen := o.generator()
	if gen == nil {
		return nil, ErrNoGenerator
	}
	return gen.GenerateScript(ctx, req.Config, req.Research)
}

// fail surfaces err verbatim and, for credential failures, opens the
// recovery surface once. A rejected duplicate call is silent.
func (o *Orchestrator) fail(ctx context.Context, span trace.Span, prefix string, err error) {
	if errors.Is(err, ErrInFlight) {
		span.SetAttributes(attribute.Bool("rejected.in_flight", true))
		return
	}
	kind := script.KindOf(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String("error.kind", kind.String()))

	o.log.WarnContext(ctx, "Generation failed", "kind", kind.String(), "error", err)
	o.notify.Notify(notice.New(notice.Error, prefix+err.Error()))

	if kind == script.KindCredentialMissing && o.recovery != nil {
		o.recovery.OpenCredentials(ctx, err)
	}
}
