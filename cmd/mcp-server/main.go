package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paulofranca-ai/canaldarkgen/internal/cli"
	"github.com/paulofranca-ai/canaldarkgen/internal/mcpserver"
	"github.com/paulofranca-ai/canaldarkgen/internal/notice"
	"github.com/paulofranca-ai/canaldarkgen/internal/observability"
	"github.com/paulofranca-ai/canaldarkgen/internal/script"
	"github.com/paulofranca-ai/canaldarkgen/internal/settings"
	"github.com/paulofranca-ai/canaldarkgen/internal/vault"
	"github.com/paulofranca-ai/canaldarkgen/internal/voice"
)

func main() {
	configPath := flag.String("config", "", "Settings file")
	envFile := flag.String("env-file", ".env", "Dotenv file with API keys")
	flag.Parse()

	s, err := settings.Load(*configPath, *envFile)
	if err != nil {
		slog.Error("Failed to load settings", "error", err)
		os.Exit(1)
	}
	logger, err := observability.InitLogger(observability.LogOptions{Level: s.LogLevel, Format: s.LogFormat})
	if err != nil {
		slog.Error("Failed to init logger", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	logger.Info("CanalDarkGen MCP Server starting...")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracer, err := observability.InitTracer(ctx, observability.TraceOptions{
		ServiceName: "canaldarkgen-mcp",
		Version:     cli.Version,
		Endpoint:    s.OTLPEndpoint,
	})
	if err != nil {
		logger.Warn("Failed to init tracer, continuing without tracing", "error", err)
	} else {
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				logger.Error("Tracer shutdown error", "error", err)
			}
		}()
	}

	app, err := cli.NewApp(ctx, s, logger, notice.Nop, *envFile)
	if err != nil {
		logger.Error("Failed to build app", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	providers, err := app.Unlock(ctx)
	if errors.Is(err, vault.ErrNoVault) {
		providers = vault.Providers{Text: s.TextProvider, Audio: voice.DefaultAudioProvider}
		err = app.Vault.Init(ctx, providers)
	}
	if err != nil {
		logger.Error("Failed to open vault", "error", err)
		os.Exit(1)
	}

	dir, err := app.Directory(ctx)
	if err != nil {
		logger.Error("Failed to load voices", "error", err)
		os.Exit(1)
	}

	generators := func(ctx context.Context, apiKey string) (script.Generator, error) {
		if apiKey == "" || providers.Text == script.ProviderNova {
			return app.Generator(ctx, providers.Text)
		}
		return script.New(script.Options{Provider: providers.Text, Model: s.TextModel, APIKey: apiKey})
	}

	srv, err := mcpserver.New(mcpserver.Config{Port: s.MCPPort, Version: cli.Version}, generators, dir, logger)
	if err != nil {
		logger.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received")
		sctx, scancel := context.WithTimeout(context.Background(), 8*time.Second)
		defer scancel()
		if err := srv.Shutdown(sctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	}()

	if err := srv.Start(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}
