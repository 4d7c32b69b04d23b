package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/paulofranca-ai/canaldarkgen/internal/media"
	"github.com/paulofranca-ai/canaldarkgen/internal/notice"
	"github.com/paulofranca-ai/canaldarkgen/internal/project"
	"github.com/paulofranca-ai/canaldarkgen/internal/research"
	"github.com/paulofranca-ai/canaldarkgen/internal/script"
	"github.com/paulofranca-ai/canaldarkgen/internal/vault"
	"github.com/paulofranca-ai/canaldarkgen/internal/voice"
	"github.com/paulofranca-ai/canaldarkgen/internal/workflow"
)

var ideasCmd = &cobra.Command{
	Use:   "ideas",
	Short: "Suggest a topic and hook for a new video",
	RunE:  runIdeas,
}

var scriptCmd = &cobra.Command{
	Use:   "script",
	Short: "Generate a narrated storyboard for a topic and hook",
	RunE:  runScript,
}

var mediaCmd = &cobra.Command{
	Use:   "media <storyboard.json>",
	Short: "Generate scene images and narration audio for a saved storyboard",
	Args:  cobra.ExactArgs(1),
	RunE:  runMedia,
}

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List narrator voices for a nationality and audio provider",
	RunE:  runVoices,
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "Manage saved voice presets",
}

var presetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved voice presets",
	RunE:  runPresetsList,
}

var presetsSaveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Save the voice, emotion and nationality as a named preset",
	Args:  cobra.ExactArgs(1),
	RunE:  runPresetsSave,
}

var vaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Inspect or create the credential vault",
}

var vaultStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the preferred providers and which API keys resolve",
	RunE:  runVaultStatus,
}

var vaultInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the vault record with preferred providers",
	RunE:  runVaultInit,
}

var (
	flagType        string
	flagTopic       string
	flagHook        string
	flagDuration    int
	flagInterval    int
	flagAspect      string
	flagTone        string
	flagImageStyle  string
	flagFX          string
	flagNationality string
	flagVoice       string
	flagEmotion     string
	flagAudio       string
	flagResearch    string
	flagOut         string
	flagImagesOnly  bool
	flagAudioOnly   bool
	flagRetry       bool
	flagInitText    string
	flagInitAudio   string

	flagListNationality string
	flagListAudio       string
	flagPresetVoice     string
	flagPresetEmotion   string
	flagPresetNat       string
)

func init() {
	ideasCmd.Flags().StringVarP(&flagType, "type", "t", "short", "Video type: short or long")

	sf := scriptCmd.Flags()
	addProjectFlags(sf.StringVarP, sf.IntVar)
	sf.StringVarP(&flagTopic, "topic", "p", "", "Video topic (required)")
	sf.StringVar(&flagHook, "hook", "", "Opening hook (required)")
	sf.StringVarP(&flagResearch, "research", "r", "", "Research material: URL, PDF or text file")
	sf.StringVarP(&flagOut, "out", "o", "", "Write the storyboard JSON to this file")

	mf := mediaCmd.Flags()
	addProjectFlags(mf.StringVarP, mf.IntVar)
	mf.StringVar(&flagAudio, "audio", "", "Audio provider: "+joinProviders())
	mf.BoolVar(&flagImagesOnly, "images-only", false, "Only generate images")
	mf.BoolVar(&flagAudioOnly, "audio-only", false, "Only generate narration audio")
	mf.BoolVar(&flagRetry, "retry", false, "Regenerate assets that are already done")

	voicesCmd.Flags().StringVar(&flagListNationality, "nationality", "", "PT-BR or US (default: all)")
	voicesCmd.Flags().StringVar(&flagListAudio, "audio", "", "Audio provider filter: "+joinProviders())

	presetsSaveCmd.Flags().StringVar(&flagPresetVoice, "voice", "", "Voice ID (default: first voice)")
	presetsSaveCmd.Flags().StringVarP(&flagPresetEmotion, "emotion", "e", project.DefaultEmotion, "Emotion preset")
	presetsSaveCmd.Flags().StringVar(&flagPresetNat, "nationality", "PT-BR", "PT-BR or US")
	presetsCmd.AddCommand(presetsListCmd, presetsSaveCmd)

	vaultInitCmd.Flags().StringVar(&flagInitText, "text", "", "Preferred script service (default from settings)")
	vaultInitCmd.Flags().StringVar(&flagInitAudio, "audio", string(voice.DefaultAudioProvider), "Preferred audio provider: "+joinProviders())
	vaultCmd.AddCommand(vaultStatusCmd, vaultInitCmd)
}

type stringFlagFn func(p *string, name, shorthand, value, usage string)
type intFlagFn func(p *int, name string, value int, usage string)

func addProjectFlags(str stringFlagFn, num intFlagFn) {
	str(&flagType, "type", "t", "short", "Video type: short or long")
	num(&flagDuration, "duration", 0, "Total duration in seconds (default from video type)")
	num(&flagInterval, "interval", 0, "Seconds per image (default from video type)")
	str(&flagAspect, "aspect", "", "", "Aspect ratio: 16:9, 9:16, 1:1")
	str(&flagTone, "tone", "", "", "Narrator tone")
	str(&flagImageStyle, "image-style", "", "", "Visual style appended to image prompts")
	str(&flagFX, "fx", "", "", "Special effect: none, film_grain, vhs_glitch, cinematic_dust")
	str(&flagNationality, "nationality", "n", "PT-BR", "Narration language: PT-BR or US")
	str(&flagVoice, "voice", "", "", "Narrator voice ID")
	str(&flagEmotion, "emotion", "e", project.DefaultEmotion, "Emotion preset: suspense, terror, narrative, aggressive, shaky")
}

func joinProviders() string {
	var names []string
	for _, p := range voice.AudioProviders() {
		names = append(names, string(p))
	}
	return strings.Join(names, ", ")
}

// applyProjectFlags writes the project flags into the session config.
// Zero values keep the defaults of the video type.
func applyProjectFlags(c *workflow.Controller) error {
	t, err := project.ParseVideoType(flagType)
	if err != nil {
		return err
	}
	if err := c.SetVideoType(t); err != nil {
		return err
	}
	sets := []struct {
		field project.Field
		value any
		set   bool
	}{
		{project.FieldNationality, flagNationality, flagNationality != ""},
		{project.FieldTotalDuration, flagDuration, flagDuration != 0},
		{project.FieldImageDuration, flagInterval, flagInterval != 0},
		{project.FieldAspectRatio, flagAspect, flagAspect != ""},
		{project.FieldNarratorTone, flagTone, flagTone != ""},
		{project.FieldImageStyle, flagImageStyle, flagImageStyle != ""},
		{project.FieldSpecialFX, flagFX, flagFX != ""},
	}
	for _, s := range sets {
		if !s.set {
			continue
		}
		if err := c.SetField(s.field, s.value); err != nil {
			return fmt.Errorf("--%s: %w", s.field, err)
		}
	}
	if flagEmotion != "" && !c.SetEmotionPreset(flagEmotion) {
		return fmt.Errorf("unknown emotion preset %q", flagEmotion)
	}
	if flagVoice != "" {
		if err := c.SelectVoice(flagVoice); err != nil {
			return err
		}
	}
	return nil
}

func runIdeas(cmd *cobra.Command, args []string) error {
	return withApp(cmd, nil, func(ctx context.Context, a *App) error {
		c, err := a.Session(ctx, nil)
		if err != nil {
			return err
		}
		defer c.Close()

		t, err := project.ParseVideoType(flagType)
		if err != nil {
			return err
		}
		if err := c.SetVideoType(t); err != nil {
			return err
		}
		if err := c.GenerateIdeas(ctx); err != nil {
			return err
		}
		cfg := c.Config()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "\n  Tópico: %s\n  Hook:   %s\n\n", cfg.Topic, cfg.Hook)
		return nil
	})
}

func runScript(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	cmd.SetContext(ctx)

	return withApp(cmd, nil, func(ctx context.Context, a *App) error {
		c, err := a.Session(ctx, nil)
		if err != nil {
			return err
		}
		defer c.Close()

		if err := applyProjectFlags(c); err != nil {
			return err
		}
		if err := c.SetField(project.FieldTopic, flagTopic); err != nil {
			return err
		}
		if err := c.SetField(project.FieldHook, flagHook); err != nil {
			return err
		}

		var material string
		if flagResearch != "" {
			m, err := research.Load(ctx, flagResearch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "  Research: %s (%d words from %s)\n", m.Title, m.WordCount, m.Kind)
			material = m.Excerpt(research.DefaultMaxWords)
		}

		if err := c.GenerateScript(ctx, material); err != nil {
			return err
		}
		printScenes(cmd.OutOrStdout(), c.Config(), c.Scenes())
		for _, issue := range script.Review(c.Config(), sceneDrafts(c.Scenes())) {
			fmt.Fprintf(cmd.ErrOrStderr(), "  ! %s\n", issue.Message)
		}

		if flagOut != "" {
			if err := project.SaveStoryboard(c.Storyboard(), flagOut); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "  Storyboard written to %s\n", flagOut)
		}
		return nil
	})
}

func printScenes(w io.Writer, cfg project.Config, scenes []project.Scene) {
	fmt.Fprintf(w, "\n  %s\n", cfg.Topic)
	fmt.Fprintf(w, "  %s\n", strings.Repeat("─", 50))
	for i, cue := range workflow.Timeline(cfg, scenes) {
		s := scenes[i]
		fmt.Fprintf(w, "  %2d  %s-%s  %s\n", i+1, workflow.FormatTime(cue.Start), workflow.FormatTime(cue.End), s.Narration)
		if s.NarrationTranslation != "" {
			fmt.Fprintf(w, "      %s\n", s.NarrationTranslation)
		}
		fmt.Fprintf(w, "      [%s]\n", s.VisualPrompt)
	}
	fmt.Fprintln(w)
}

func sceneDrafts(scenes []project.Scene) []project.SceneDraft {
	out := make([]project.SceneDraft, len(scenes))
	for i, s := range scenes {
		out[i] = project.SceneDraft{Narration: s.Narration, NarrationTranslation: s.NarrationTranslation, VisualPrompt: s.VisualPrompt}
	}
	return out
}

// boardScenes serializes in-place edits of a storyboard loaded from disk.
type boardScenes struct {
	mu    sync.Mutex
	board *project.Storyboard
}

func (b *boardScenes) UpdateScene(id string, fn func(*project.Scene) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.board.Scene(id)
	if !ok {
		return fmt.Errorf("%w: %s", workflow.ErrUnknownScene, id)
	}
	return fn(s)
}

func runMedia(cmd *cobra.Command, args []string) error {
	if flagImagesOnly && flagAudioOnly {
		return fmt.Errorf("--images-only and --audio-only are mutually exclusive")
	}
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	cmd.SetContext(ctx)

	path := args[0]
	board, err := project.LoadStoryboard(path)
	if err != nil {
		return err
	}

	renderer := notice.NewRenderer(os.Stderr)
	return withApp(cmd, renderer, func(ctx context.Context, a *App) error {
		c, err := a.Session(ctx, nil)
		if err != nil {
			return err
		}
		defer c.Close()
		if err := applyProjectFlags(c); err != nil {
			return err
		}
		audio := c.AudioProvider()
		if flagAudio != "" {
			audio = voice.AudioProvider(flagAudio)
		}

		scenes := &boardScenes{board: board}
		runner, release, err := a.MediaRunner(ctx, scenes, audio, c.SessionID(), renderer)
		if err != nil {
			return err
		}
		defer release()

		opts := media.Options{Images: !flagAudioOnly, Audio: !flagImagesOnly, Retry: flagRetry}
		sum, runErr := runner.Run(ctx, c.Config(), board.Snapshot(), opts)

		scenes.mu.Lock()
		saveErr := project.SaveStoryboard(board, path)
		scenes.mu.Unlock()
		if runErr != nil {
			return errors.Join(runErr, saveErr)
		}
		if saveErr != nil {
			return saveErr
		}
		renderer.Finish(fmt.Sprintf("%d gerados, %d falharam, %d já prontos: %s", sum.Done, sum.Failed, sum.Skipped, path))
		return nil
	})
}

func runVoices(cmd *cobra.Command, args []string) error {
	return withApp(cmd, nil, func(ctx context.Context, a *App) error {
		if _, err := a.Unlock(ctx); err != nil {
			return err
		}
		dir, err := a.Directory(ctx)
		if err != nil {
			return err
		}
		voices, err := dir.ListVoices(ctx)
		if err != nil {
			return err
		}
		cat := voice.NewCatalog(voices)

		list := cat.All()
		if flagListNationality != "" || flagListAudio != "" {
			nat := project.Nationality("")
			if flagListNationality != "" {
				if nat, err = project.ParseNationality(flagListNationality); err != nil {
					return err
				}
			}
			list = filterVoices(list, nat, flagListAudio)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "\n  %-24s %-22s %-7s %s\n", "ID", "NAME", "LANG", "PROVIDER")
		fmt.Fprintf(w, "  %s\n", strings.Repeat("─", 64))
		for _, v := range list {
			preview := ""
			if v.PreviewURL != "" {
				preview = " (preview)"
			}
			fmt.Fprintf(w, "  %-24s %-22s %-7s %s%s\n", v.ID, v.Name, v.Nationality, v.Base, preview)
		}
		fmt.Fprintln(w)
		return nil
	})
}

// filterVoices narrows by nationality and provider base; an empty filter
// matches everything.
func filterVoices(list []voice.Voice, nat project.Nationality, audio string) []voice.Voice {
	var out []voice.Voice
	for _, v := range list {
		if nat != "" && v.Nationality != nat {
			continue
		}
		if audio != "" && v.Base != voice.ClassifyProvider(voice.AudioProvider(audio)) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func runPresetsList(cmd *cobra.Command, args []string) error {
	return withApp(cmd, nil, func(ctx context.Context, a *App) error {
		book := voice.NewPresetBook(a.Store, a.Log)
		if err := book.Load(ctx); err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if book.Len() == 0 {
			fmt.Fprintln(w, "  No presets saved.")
			return nil
		}
		for _, p := range book.Presets() {
			fmt.Fprintf(w, "  %-26s %-20s voice=%s emotion=%s %s\n", p.ID, p.Name, p.VoiceID, p.EmotionPreset, p.Nationality)
		}
		return nil
	})
}

func runPresetsSave(cmd *cobra.Command, args []string) error {
	return withApp(cmd, nil, func(ctx context.Context, a *App) error {
		c, err := a.Session(ctx, nil)
		if err != nil {
			return err
		}
		defer c.Close()
		if err := c.SetField(project.FieldNationality, flagPresetNat); err != nil {
			return err
		}
		if !c.SetEmotionPreset(flagPresetEmotion) {
			return fmt.Errorf("unknown emotion preset %q", flagPresetEmotion)
		}
		if flagPresetVoice != "" {
			if err := c.SelectVoice(flagPresetVoice); err != nil {
				return err
			}
		}
		p, saved, err := c.SavePreset(ctx, args[0])
		if err != nil {
			return err
		}
		if !saved {
			return fmt.Errorf("preset name is blank")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  Saved preset %q (%s)\n", p.Name, p.ID)
		return nil
	})
}

func runVaultStatus(cmd *cobra.Command, args []string) error {
	return withApp(cmd, nil, func(ctx context.Context, a *App) error {
		p, err := a.Unlock(ctx)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "\n  Text provider:  %s\n  Audio provider: %s\n\n", orDefault(p.Text, a.Settings.TextProvider), p.Audio)

		status := a.Vault.Status(ctx)
		names := make([]string, 0, len(status))
		for n := range status {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			mark := "missing"
			if status[n] {
				mark = "ok"
			}
			fmt.Fprintf(w, "  %-20s %s\n", n, mark)
		}
		fmt.Fprintln(w)
		return nil
	})
}

func runVaultInit(cmd *cobra.Command, args []string) error {
	audio := voice.AudioProvider(flagInitAudio)
	known := false
	for _, p := range voice.AudioProviders() {
		if p == audio {
			known = true
		}
	}
	if !known {
		return fmt.Errorf("invalid audio provider %q: must be one of %s", flagInitAudio, joinProviders())
	}
	return withApp(cmd, nil, func(ctx context.Context, a *App) error {
		text := orDefault(flagInitText, a.Settings.TextProvider)
		if err := a.Vault.Init(ctx, vault.Providers{Text: text, Audio: audio}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  Vault created (text=%s, audio=%s)\n", text, audio)
		return nil
	})
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
