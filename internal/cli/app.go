package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/paulofranca-ai/canaldarkgen/internal/generation"
	"github.com/paulofranca-ai/canaldarkgen/internal/kvstore"
	"github.com/paulofranca-ai/canaldarkgen/internal/media"
	"github.com/paulofranca-ai/canaldarkgen/internal/notice"
	"github.com/paulofranca-ai/canaldarkgen/internal/observability"
	"github.com/paulofranca-ai/canaldarkgen/internal/project"
	"github.com/paulofranca-ai/canaldarkgen/internal/script"
	"github.com/paulofranca-ai/canaldarkgen/internal/settings"
	"github.com/paulofranca-ai/canaldarkgen/internal/tts"
	"github.com/paulofranca-ai/canaldarkgen/internal/vault"
	"github.com/paulofranca-ai/canaldarkgen/internal/voice"
	"github.com/paulofranca-ai/canaldarkgen/internal/workflow"
)

// App holds the process-wide collaborators built from settings.
type App struct {
	Settings settings.Settings
	Log      *slog.Logger
	Notify   notice.Notifier
	Store    kvstore.Store
	Vault    *vault.Vault

	awsCfg  *aws.Config
	closers []func() error
}

// NewApp builds storage, credential sources and the vault from s.
func NewApp(ctx context.Context, s settings.Settings, logger *slog.Logger, notify notice.Notifier, envFiles ...string) (*App, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	if notify == nil {
		notify = notice.Nop
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Settings: s, Log: logger, Notify: notify}

	store, err := a.buildStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = store

	env, err := vault.NewEnvSource(envFiles...)
	if err != nil {
		a.Close()
		return nil, err
	}
	sources := []vault.Source{env}
	if s.AWSRegion != "" && s.SecretPrefix != "" {
		cfg, err := a.AWSConfig(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
		sources = append(sources, vault.NewSecretsManagerSource(secretsmanager.NewFromConfig(cfg), s.SecretPrefix, logger))
	}
	a.Vault = vault.New(store, logger, sources...)
	return a, nil
}

func (a *App) buildStore(ctx context.Context) (kvstore.Store, error) {
	switch a.Settings.Storage {
	case settings.StorageMemory:
		return kvstore.NewMemory(), nil
	case settings.StorageDynamo:
		cfg, err := a.AWSConfig(ctx)
		if err != nil {
			return nil, err
		}
		return kvstore.NewDynamo(dynamodb.NewFromConfig(cfg), a.Settings.DynamoTable), nil
	case settings.StorageRedis:
		rdb, err := kvstore.ConnectRedis(ctx, kvstore.RedisOptions{
			Addr:     a.Settings.RedisAddr,
			Password: a.Settings.RedisPassword,
			DB:       a.Settings.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rdb.Close)
		return kvstore.NewRedis(rdb, a.Settings.RedisPrefix), nil
	default:
		return kvstore.NewFile(a.Settings.StorePath), nil
	}
}

// AWSConfig loads the shared AWS config once, with otel middlewares.
func (a *App) AWSConfig(ctx context.Context) (aws.Config, error) {
	if a.awsCfg != nil {
		return *a.awsCfg, nil
	}
	var opts []func(*awsconfig.LoadOptions) error
	if a.Settings.AWSRegion != "" {
		opts = append(opts, awsconfig.WithRegion(a.Settings.AWSRegion))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load AWS config: %w", err)
	}
	observability.InstrumentAWS(&cfg)
	a.awsCfg = &cfg
	return cfg, nil
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Unlock opens the vault. A missing vault is reported with the command
// that creates one.
func (a *App) Unlock(ctx context.Context) (vault.Providers, error) {
	p, err := a.Vault.Unlock(ctx)
	if errors.Is(err, vault.ErrNoVault) {
		return p, fmt.Errorf("%w: run 'canaldarkgen vault init' first", err)
	}
	return p, err
}

func textKeyName(provider string) string {
	switch provider {
	case script.ProviderClaude, "":
		return vault.AnthropicKey
	case script.ProviderGemini:
		return vault.GeminiKey
	}
	return ""
}

func audioKeyName(p voice.AudioProvider) string {
	switch voice.ClassifyProvider(p) {
	case voice.BaseElevenLabs:
		return vault.ElevenLabsKey
	case voice.BaseOpenAI:
		return vault.OpenAIKey
	}
	return ""
}

// optionalKey returns "" for a missing key so the service call itself
// reports the credential failure.
func (a *App) optionalKey(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", nil
	}
	key, err := a.Vault.APIKey(ctx, name)
	if errors.Is(err, vault.ErrKeyMissing) {
		return "", nil
	}
	return key, err
}

// Generator builds the text service for provider with the vault's key.
func (a *App) Generator(ctx context.Context, provider string) (script.Generator, error) {
	if provider == "" {
		provider = a.Settings.TextProvider
	}
	opts := script.Options{Provider: provider, Model: a.Settings.TextModel}
	key, err := a.optionalKey(ctx, textKeyName(provider))
	if err != nil {
		return nil, err
	}
	opts.APIKey = key
	if provider == script.ProviderNova {
		cfg, err := a.AWSConfig(ctx)
		if err != nil {
			return nil, err
		}
		opts.AWS = cfg
	}
	return script.New(opts)
}

// Directory merges the built-in catalog with the ElevenLabs account voices
// when a key is available.
func (a *App) Directory(ctx context.Context) (voice.Directory, error) {
	dirs := []voice.Directory{voice.PredefinedVoices()}
	key, err := a.optionalKey(ctx, vault.ElevenLabsKey)
	if err != nil {
		return nil, err
	}
	if key != "" {
		dirs = append(dirs, voice.NewElevenLabsDirectory(key))
	}
	return voice.NewMergedDirectory(a.Log, dirs...), nil
}

// Session unlocks the vault and returns a loaded controller. recovery is
// invoked when a generation call fails for lack of credentials.
func (a *App) Session(ctx context.Context, recovery generation.Recovery) (*workflow.Controller, error) {
	providers, err := a.Unlock(ctx)
	if err != nil {
		return nil, err
	}
	gen, err := a.Generator(ctx, providers.Text)
	if err != nil {
		return nil, err
	}
	dir, err := a.Directory(ctx)
	if err != nil {
		return nil, err
	}
	if recovery == nil {
		recovery = generation.RecoveryFunc(a.credentialHint)
	}

	c := workflow.New(workflow.Deps{
		Directory:    dir,
		Presets:      voice.NewPresetBook(a.Store, a.Log),
		Preview:      voice.NewPreviewGate(voice.NewFFplayPlayer(), a.Log),
		Vault:        a.Vault,
		Orchestrator: generation.NewOrchestrator(gen, a.Notify, recovery, a.Log),
		Notifier:     a.Notify,
		Logger:       a.Log,
	}, project.DefaultConfig())
	if err := c.LoadSession(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (a *App) credentialHint(_ context.Context, cause error) {
	a.Log.Debug("Credential recovery", "cause", cause)
	a.Notify.Notify(notice.New(notice.Warn,
		"Configure as chaves de API ("+strings.Join(vault.KnownKeys(), ", ")+") no ambiente ou no .env e confira com 'canaldarkgen vault status'."))
}

// Assets returns the asset store for a session.
func (a *App) Assets(ctx context.Context, sessionID string) (media.AssetStore, error) {
	if a.Settings.AssetBackend != settings.AssetsS3 {
		return media.DirAssets{Dir: filepath.Join(a.Settings.AssetDir, sessionID)}, nil
	}
	cfg, err := a.AWSConfig(ctx)
	if err != nil {
		return nil, err
	}
	return media.NewS3Assets(s3.NewFromConfig(cfg), a.Settings.S3Bucket, "sessions/"+sessionID, a.Settings.AssetBaseURL), nil
}

// MediaRunner builds the media-stage runner for scenes owned by updater.
// The returned func releases the speech provider.
func (a *App) MediaRunner(ctx context.Context, updater media.SceneUpdater, audio voice.AudioProvider, sessionID string, progress media.ProgressReporter) (*media.Runner, func() error, error) {
	key, err := a.optionalKey(ctx, audioKeyName(audio))
	if err != nil {
		return nil, nil, err
	}
	speech, err := tts.New(ctx, audio, key)
	if err != nil {
		return nil, nil, err
	}
	assets, err := a.Assets(ctx, sessionID)
	if err != nil {
		speech.Close()
		return nil, nil, err
	}
	return &media.Runner{
		Scenes:   updater,
		Images:   media.NewPollinationsImager(a.Log),
		Speech:   speech,
		Assets:   assets,
		Notifier: a.Notify,
		Progress: progress,
		Logger:   a.Log,
	}, speech.Close, nil
}
