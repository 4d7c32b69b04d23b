// Package media generates the per-scene images and narration audio of the
// media stage.
package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/paulofranca-ai/canaldarkgen/internal/notice"
	"github.com/paulofranca-ai/canaldarkgen/internal/project"
	"github.com/paulofranca-ai/canaldarkgen/internal/tts"
)

const defaultConcurrency = 2

var tracer = otel.Tracer("canaldarkgen/media")

// SceneUpdater mutates one storyboard scene in place.
type SceneUpdater interface {
	UpdateScene(id string, fn func(*project.Scene) error) error
}

// ProgressReporter receives a running count of finished assets.
type ProgressReporter interface {
	Progress(msg string, done, total int)
}

// Options selects what a run generates.
type Options struct {
	Images bool
	Audio  bool
	// Retry regenerates assets already done; failed assets always rerun.
	Retry bool
}

// Summary counts the outcome of one run.
type Summary struct {
	Done    int
	Failed  int
	Skipped int
}

// Runner drives each scene's image and audio state machines. Errors from
// the services are recorded on the scene, not returned.
type Runner struct {
	Scenes      SceneUpdater
	Images      Imager
	Speech      tts.Provider
	Assets      AssetStore
	Notifier    notice.Notifier
	Progress    ProgressReporter
	Logger      *slog.Logger
	Concurrency int
}

type job struct {
	index int
	scene project.Scene
	asset project.Asset
}

// Run generates assets for scenes, which are snapshots of the storyboard.
func (r *Runner) Run(ctx context.Context, cfg project.Config, scenes []project.Scene, opts Options) (Summary, error) {
	if opts.Images && r.Images == nil {
		return Summary{}, errors.New("media: no image generator configured")
	}
	if opts.Audio && r.Speech == nil {
		return Summary{}, errors.New("media: no speech provider configured")
	}
	if r.Assets == nil {
		return Summary{}, errors.New("media: no asset store configured")
	}
	if r.Scenes == nil {
		return Summary{}, errors.New("media: no scene updater configured")
	}
	log := r.Logger
	if log == nil {
		log = slog.Default()
	}
	notify := r.Notifier
	if notify == nil {
		notify = notice.Nop
	}

	var jobs []job
	var sum Summary
	for i, s := range scenes {
		for _, a := range requested(opts) {
			if skip(s.State(a), opts.Retry) {
				sum.Skipped++
				continue
			}
			jobs = append(jobs, job{index: i, scene: s, asset: a})
		}
	}
	if len(jobs) == 0 {
		return sum, nil
	}

	limit := r.Concurrency
	if limit <= 0 {
		limit = defaultConcurrency
	}
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	var done, ok, failed atomic.Int32

	for _, j := range jobs {
		wg.Add(1)
		go func(j job) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			switch err := r.runJob(ctx, cfg, j); {
			case errors.Is(err, project.ErrAssetTransition):
				log.DebugContext(ctx, "Asset already pending", "scene", j.scene.ID, "asset", j.asset.String())
			case err != nil:
				failed.Add(1)
				log.WarnContext(ctx, "Asset generation failed", "scene", j.scene.ID, "asset", j.asset.String(), "error", err)
				notify.Notify(notice.New(notice.Warn, fmt.Sprintf("Cena %d (%s): %v", j.index+1, j.asset, err)))
			default:
				ok.Add(1)
			}
			n := int(done.Add(1))
			if r.Progress != nil {
				r.Progress.Progress("Gerando mídia", n, len(jobs))
			}
		}(j)
	}
	wg.Wait()

	sum.Done = int(ok.Load())
	sum.Failed = int(failed.Load())
	if err := ctx.Err(); err != nil {
		return sum, err
	}
	return sum, nil
}

func requested(opts Options) []project.Asset {
	var out []project.Asset
	if opts.Images {
		out = append(out, project.AssetImage)
	}
	if opts.Audio {
		out = append(out, project.AssetAudio)
	}
	return out
}

func skip(st project.AssetState, retry bool) bool {
	switch st {
	case project.AssetPending:
		return true
	case project.AssetDone:
		return !retry
	}
	return false
}

// runJob moves one asset through pending to done or failed. A non-nil
// return after Start means the asset was marked failed.
func (r *Runner) runJob(ctx context.Context, cfg project.Config, j job) error {
	id := j.scene.ID
	if err := r.Scenes.UpdateScene(id, func(s *project.Scene) error { return s.Start(j.asset) }); err != nil {
		return err
	}

	ctx, span := tracer.Start(ctx, "media."+j.asset.String(),
		trace.WithAttributes(attribute.String("scene.id", id), attribute.Int("scene.index", j.index)))
	defer span.End()

	ref, err := r.generate(ctx, cfg, j)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if uerr := r.Scenes.UpdateScene(id, func(s *project.Scene) error { return s.Fail(j.asset, err.Error()) }); uerr != nil {
			return errors.Join(err, uerr)
		}
		return err
	}
	return r.Scenes.UpdateScene(id, func(s *project.Scene) error { return s.Finish(j.asset, ref) })
}

func (r *Runner) generate(ctx context.Context, cfg project.Config, j job) (string, error) {
	if j.asset == project.AssetImage {
		data, err := r.Images.Generate(ctx, ImageRequest{
			Prompt: j.scene.VisualPrompt,
			Style:  cfg.ImageStyle,
			Aspect: cfg.AspectRatio,
			Seed:   j.index*42 + 7,
		})
		if err != nil {
			return "", err
		}
		return r.Assets.Put(ctx, "images/"+j.scene.ID+".jpg", data, "image/jpeg")
	}

	res, err := r.Speech.Synthesize(ctx, tts.RequestFor(cfg, j.scene))
	if err != nil {
		return "", err
	}
	contentType := "audio/mpeg"
	if res.Format == tts.FormatWAV {
		contentType = "audio/wav"
	}
	return r.Assets.Put(ctx, "audio/"+j.scene.ID+res.Format.Ext(), res.Data, contentType)
}
