package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/paulofranca-ai/canaldarkgen/internal/notice"
	"github.com/paulofranca-ai/canaldarkgen/internal/observability"
	"github.com/paulofranca-ai/canaldarkgen/internal/settings"
)

var Version = "dev"

var rootCmd = &cobra.Command{
	Use:           "canaldarkgen",
	Short:         "Author dark-narration short videos: idea, script, media and preview",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runConsole,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if shutdownTracer != nil {
			return shutdownTracer(context.Background())
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "canaldarkgen %s\n", Version)
	},
}

var (
	flagConfig       string
	flagEnvFiles     []string
	flagStorage      string
	flagTextProvider string
	flagTextModel    string
	flagLogLevel     string
	flagLogFormat    string
	flagVerbose      bool
)

var (
	loaded         settings.Settings
	logger         *slog.Logger
	shutdownTracer func(context.Context) error
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagConfig, "config", "c", "", "Settings file (default "+settings.DefaultPath()+")")
	pf.StringSliceVar(&flagEnvFiles, "env-file", []string{".env"}, "Dotenv files with API keys, first wins")
	pf.StringVar(&flagStorage, "storage", "", "Preset and vault storage: file, memory, dynamodb, redis")
	pf.StringVarP(&flagTextProvider, "text-provider", "m", "", "Script service: claude, gemini, nova")
	pf.StringVar(&flagTextModel, "text-model", "", "Model ID for the script service")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&flagLogFormat, "log-format", "", "Log format: text, json")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(consoleCmd)
	rootCmd.AddCommand(ideasCmd)
	rootCmd.AddCommand(scriptCmd)
	rootCmd.AddCommand(mediaCmd)
	rootCmd.AddCommand(voicesCmd)
	rootCmd.AddCommand(presetsCmd)
	rootCmd.AddCommand(vaultCmd)
}

func Execute() error {
	return rootCmd.Execute()
}

// setup resolves settings and installs the logger and tracer. Flags win
// over every other layer.
func setup(cmd *cobra.Command) error {
	s, err := settings.Load(flagConfig, flagEnvFiles...)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	override := func(name string, dst *string, val string) {
		if flags.Changed(name) {
			*dst = val
		}
	}
	override("storage", &s.Storage, flagStorage)
	override("text-provider", &s.TextProvider, flagTextProvider)
	override("text-model", &s.TextModel, flagTextModel)
	override("log-level", &s.LogLevel, flagLogLevel)
	override("log-format", &s.LogFormat, flagLogFormat)
	if flagVerbose {
		s.LogLevel = "debug"
	}
	if err := s.Validate(); err != nil {
		return err
	}

	l, err := observability.InitLogger(observability.LogOptions{Level: s.LogLevel, Format: s.LogFormat})
	if err != nil {
		return err
	}
	slog.SetDefault(l)

	shutdown, err := observability.InitTracer(cmd.Context(), observability.TraceOptions{
		ServiceName: "canaldarkgen",
		Version:     Version,
		Endpoint:    s.OTLPEndpoint,
	})
	if err != nil {
		return err
	}

	loaded, logger, shutdownTracer = s, l, shutdown
	return nil
}

// withApp builds the App for one command and closes it afterwards.
func withApp(cmd *cobra.Command, notify notice.Notifier, fn func(ctx context.Context, a *App) error) error {
	ctx := cmd.Context()
	if notify == nil {
		notify = notice.NewRenderer(os.Stderr)
	}
	a, err := NewApp(ctx, loaded, logger, notify, flagEnvFiles...)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}
