package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/paulofranca-ai/canaldarkgen/internal/media"
	"github.com/paulofranca-ai/canaldarkgen/internal/notice"
	"github.com/paulofranca-ai/canaldarkgen/internal/project"
	"github.com/paulofranca-ai/canaldarkgen/internal/script"
	"github.com/paulofranca-ai/canaldarkgen/internal/voice"
	"github.com/paulofranca-ai/canaldarkgen/internal/workflow"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive authoring console (default)",
	RunE:  runConsole,
}

type itemKind int

const (
	itemText itemKind = iota
	itemOptions
	itemInfo
	itemButton
)

// Actions that are not plain config fields.
const (
	keyAudio       = "audio"
	keyVoice       = "voice"
	keyApplyPreset = "applyPreset"
	keySavePreset  = "savePreset"
	keyIdeas       = "ideas"
	keyScript      = "script"
)

// menuItem represents a single configurable option in the TUI.
type menuItem struct {
	label   string
	value   string
	kind    itemKind
	field   project.Field
	key     string
	options []menuOption
	editing bool
	cursor  int // cursor within options when editing
}

type menuOption struct {
	label string
	value string
}

// menuState tracks which phase the TUI is in.
type menuState int

const (
	stateMenu menuState = iota
	stateEditing
)

type mediaFactory func(ctx context.Context, progress media.ProgressReporter) (*media.Runner, func() error, error)

type ideasDoneMsg struct{ err error }
type scriptDoneMsg struct{ err error }
type mediaDoneMsg struct {
	sum media.Summary
	err error
}
type tickMsg struct{}

// mediaProgress keeps the latest count reported by the runner.
type mediaProgress struct {
	mu          sync.Mutex
	done, total int
}

func (p *mediaProgress) Progress(_ string, done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done, p.total = done, total
}

func (p *mediaProgress) get() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done, p.total
}

// consoleModel is the Bubble Tea model driving one workflow session.
type consoleModel struct {
	ctx      context.Context
	c        *workflow.Controller
	notices  *notice.Recorder
	newMedia mediaFactory

	items    []menuItem
	cursor   int
	state    menuState
	width    int
	editBuf  string
	recent   []notice.Notice
	err      error
	busy     string
	progress *mediaProgress
	locked   bool
}

// style constants
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#B22222")).
			MarginBottom(1)

	stageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#555555"))

	activeStageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FAFAFA")).
				Background(lipgloss.Color("#B22222")).
				Padding(0, 1)

	menuLabelStyle = lipgloss.NewStyle().
			Width(22).
			Align(lipgloss.Right).
			MarginRight(2)

	menuValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	menuValueDimStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#555555")).
				Italic(true)

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#B22222")).
			Bold(true)

	optionStyle = lipgloss.NewStyle().
			PaddingLeft(4)

	selectedOptionStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#04B575")).
				Bold(true).
				PaddingLeft(2)

	buttonStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#B22222")).
			Padding(0, 3)

	buttonDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#555555")).
			Padding(0, 3)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			MarginTop(1)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E5C07B"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555")).
			Bold(true)

	headerBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("#B22222")).
			MarginBottom(1).
			PaddingBottom(0)
)

func runConsole(cmd *cobra.Command, args []string) error {
	rec := &notice.Recorder{}
	return withApp(cmd, rec, func(ctx context.Context, a *App) error {
		c, err := a.Session(ctx, nil)
		if err != nil {
			return err
		}
		defer c.Close()

		factory := func(ctx context.Context, p media.ProgressReporter) (*media.Runner, func() error, error) {
			return a.MediaRunner(ctx, c, c.AudioProvider(), c.SessionID(), p)
		}
		p := tea.NewProgram(newConsoleModel(ctx, c, rec, factory), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("TUI error: %w", err)
		}
		return nil
	})
}

func newConsoleModel(ctx context.Context, c *workflow.Controller, rec *notice.Recorder, factory mediaFactory) consoleModel {
	m := consoleModel{ctx: ctx, c: c, notices: rec, newMedia: factory, progress: &mediaProgress{}}
	m.rebuild()
	return m
}

// buildInputItems renders the current config as the input-stage menu.
func buildInputItems(c *workflow.Controller) []menuItem {
	cfg := c.Config()

	min, max, step := project.DurationRange(cfg.VideoType)
	var durations []menuOption
	for d := min; d <= max; d += step {
		durations = append(durations, menuOption{label: workflow.FormatTime(d), value: strconv.Itoa(d)})
	}
	var intervals []menuOption
	for _, n := range project.IntervalOptions() {
		intervals = append(intervals, menuOption{label: fmt.Sprintf("%ds", n), value: strconv.Itoa(n)})
	}
	var fx []menuOption
	for _, o := range project.FXOptions() {
		fx = append(fx, menuOption{label: o.Label, value: o.ID})
	}
	var music []menuOption
	for _, t := range project.MusicTracks() {
		music = append(music, menuOption{label: t.Name, value: t.Ref})
	}
	var volumes []menuOption
	for i := 0; i <= 10; i++ {
		v := float64(i) / 10
		volumes = append(volumes, menuOption{label: fmt.Sprintf("%d%%", i*10), value: strconv.FormatFloat(v, 'f', -1, 64)})
	}
	var audio []menuOption
	for _, p := range voice.AudioProviders() {
		audio = append(audio, menuOption{label: string(p), value: string(p)})
	}
	var voices []menuOption
	for _, v := range c.FilteredVoices() {
		voices = append(voices, menuOption{label: v.Name, value: v.ID})
	}
	var emotions []menuOption
	for _, e := range project.EmotionPresets() {
		emotions = append(emotions, menuOption{label: e.Label, value: e.ID})
	}
	var presets []menuOption
	for _, p := range c.Presets() {
		presets = append(presets, menuOption{label: p.Name, value: p.ID})
	}

	field := func(label string, f project.Field, kind itemKind, opts []menuOption) menuItem {
		return menuItem{label: label, value: cfg.Value(f), kind: kind, field: f, options: opts}
	}
	items := []menuItem{
		field("Tópico", project.FieldTopic, itemText, nil),
		field("Hook", project.FieldHook, itemText, nil),
		field("Tipo de vídeo", project.FieldVideoType, itemOptions, []menuOption{
			{label: "Short (9:16, 45s)", value: string(project.VideoShort)},
			{label: "Longo (16:9, 2min)", value: string(project.VideoLong)},
		}),
		field("Duração total", project.FieldTotalDuration, itemOptions, durations),
		field("Intervalo por imagem", project.FieldImageDuration, itemOptions, intervals),
		field("Cenas", project.FieldSceneCount, itemInfo, nil),
		field("Formato", project.FieldAspectRatio, itemOptions, []menuOption{
			{label: "16:9", value: string(project.Aspect16x9)},
			{label: "9:16", value: string(project.Aspect9x16)},
			{label: "1:1", value: string(project.Aspect1x1)},
		}),
		field("Tom do narrador", project.FieldNarratorTone, itemText, nil),
		field("Estilo visual", project.FieldImageStyle, itemText, nil),
		field("Efeito especial", project.FieldSpecialFX, itemOptions, fx),
		field("Trilha sonora", project.FieldBackgroundMusicRef, itemOptions, music),
		field("Volume da música", project.FieldMusicVolume, itemOptions, volumes),
		field("Nacionalidade", project.FieldNationality, itemOptions, []menuOption{
			{label: "Português (PT-BR)", value: string(project.NationalityBR)},
			{label: "Inglês (US)", value: string(project.NationalityUS)},
		}),
		{label: "Provedor de áudio", value: string(c.AudioProvider()), kind: itemOptions, key: keyAudio, options: audio},
		{label: "Voz", value: cfg.VoiceID, kind: itemOptions, key: keyVoice, options: voices},
		field("Emoção", project.FieldEmotionPreset, itemOptions, emotions),
		{label: "Aplicar preset", kind: itemOptions, key: keyApplyPreset, options: presets},
		{label: "Salvar preset", kind: itemText, key: keySavePreset},
		{label: "Gerar ideias", kind: itemButton, key: keyIdeas},
		{label: "Gerar roteiro", kind: itemButton, key: keyScript},
	}

	for i := range items {
		for j, opt := range items[i].options {
			if opt.value == items[i].value {
				items[i].cursor = j
				break
			}
		}
	}
	return items
}

// rebuild refreshes the menu from the controller, keeping the cursor.
func (m *consoleModel) rebuild() {
	if m.c.Stage() == workflow.StageInput {
		m.items = buildInputItems(m.c)
	} else {
		m.items = nil
	}
	if n := m.rowCount(); m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m consoleModel) rowCount() int {
	if m.c.Stage() == workflow.StageInput {
		return len(m.items)
	}
	return len(m.c.Scenes())
}

func (m consoleModel) Init() tea.Cmd {
	return nil
}

func (m consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.update(msg)
	nm := next.(consoleModel)
	nm.collectNotices()
	return nm, cmd
}

func (m *consoleModel) collectNotices() {
	if m.notices == nil {
		return
	}
	m.recent = append(m.recent, m.notices.Drain()...)
	if len(m.recent) > 4 {
		m.recent = m.recent[len(m.recent)-4:]
	}
}

func (m consoleModel) update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case ideasDoneMsg:
		m.busy = ""
		m.showErr(msg.err)
		m.rebuild()
		return m, nil

	case scriptDoneMsg:
		m.busy = ""
		m.showErr(msg.err)
		if msg.err == nil {
			for _, issue := range script.Review(m.c.Config(), sceneDrafts(m.c.Scenes())) {
				m.recent = append(m.recent, notice.New(notice.Warn, issue.Message))
			}
		}
		m.cursor = 0
		m.rebuild()
		return m, nil

	case mediaDoneMsg:
		m.busy = ""
		m.showErr(msg.err)
		if msg.err == nil {
			m.recent = append(m.recent, notice.New(notice.Info,
				fmt.Sprintf("Mídia: %d gerados, %d falharam, %d já prontos", msg.sum.Done, msg.sum.Failed, msg.sum.Skipped)))
		}
		return m, nil

	case tickMsg:
		if m.busy == "" {
			return m, nil
		}
		return m, tick()

	case tea.KeyMsg:
		if m.state == stateEditing {
			return m.updateEditing(msg)
		}
		return m.updateMenu(msg)
	}
	return m, nil
}

// showErr surfaces errors that did not already produce a notice.
func (m *consoleModel) showErr(err error) {
	switch {
	case err == nil:
		m.err = nil
	case errors.Is(err, workflow.ErrInvalidTransition), errors.Is(err, workflow.ErrClosed):
		m.err = err
	}
}

func tick() tea.Cmd {
	return tea.Tick(300*time.Millisecond, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m consoleModel) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	stage := m.c.Stage()
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "L":
		m.c.Lock()
		m.locked = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "down", "j":
		if m.cursor < m.rowCount()-1 {
			m.cursor++
		}
		return m, nil

	case "b":
		if stage != workflow.StageInput {
			m.showErr(m.c.Back())
			m.cursor = 0
			m.rebuild()
		}
		return m, nil
	}

	switch stage {
	case workflow.StageInput:
		return m.updateInput(msg)
	case workflow.StageScripting:
		return m.updateScripting(msg)
	case workflow.StageMedia:
		return m.updateMedia(msg)
	}
	return m, nil
}

func (m consoleModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "p":
		cfg := m.c.Config()
		if cfg.VoiceID != "" {
			// Failures are reported as notices.
			_ = m.c.PreviewVoice(m.ctx, cfg.VoiceID)
		}
		return m, nil

	case "enter", " ":
		if m.cursor >= len(m.items) {
			return m, nil
		}
		item := &m.items[m.cursor]
		m.err = nil
		switch item.kind {
		case itemButton:
			return m.press(item.key)
		case itemText:
			m.state = stateEditing
			item.editing = true
			m.editBuf = item.value
			if item.key == keySavePreset {
				m.editBuf = ""
			}
		case itemOptions:
			if len(item.options) > 0 {
				m.state = stateEditing
				item.editing = true
			}
		}
	}
	return m, nil
}

func (m consoleModel) press(key string) (tea.Model, tea.Cmd) {
	if m.busy != "" {
		return m, nil
	}
	ctx, c := m.ctx, m.c
	switch key {
	case keyIdeas:
		m.busy = "Gerando ideias..."
		return m, tea.Batch(tick(), func() tea.Msg {
			return ideasDoneMsg{err: c.GenerateIdeas(ctx)}
		})
	case keyScript:
		m.busy = "Escrevendo roteiro..."
		return m, tea.Batch(tick(), func() tea.Msg {
			return scriptDoneMsg{err: c.GenerateScript(ctx, "")}
		})
	}
	return m, nil
}

func (m consoleModel) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.c.Stage() == workflow.StageScripting {
		return m.updateSceneEdit(msg)
	}
	item := &m.items[m.cursor]

	if item.kind == itemText {
		switch msg.String() {
		case "enter":
			m.state = stateMenu
			item.editing = false
			m.apply(*item, m.editBuf)
			m.rebuild()
			return m, nil
		case "esc":
			m.state = stateMenu
			item.editing = false
			return m, nil
		case "backspace":
			if r := []rune(m.editBuf); len(r) > 0 {
				m.editBuf = string(r[:len(r)-1])
			}
			return m, nil
		case "ctrl+u":
			m.editBuf = ""
			return m, nil
		default:
			if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
				m.editBuf += string(msg.Runes)
			}
			return m, nil
		}
	}

	switch msg.String() {
	case "enter", " ":
		m.state = stateMenu
		item.editing = false
		if item.cursor >= 0 && item.cursor < len(item.options) {
			m.apply(*item, item.options[item.cursor].value)
		}
		m.rebuild()
	case "esc":
		m.state = stateMenu
		item.editing = false
	case "up", "k":
		if item.cursor > 0 {
			item.cursor--
		}
	case "down", "j":
		if item.cursor < len(item.options)-1 {
			item.cursor++
		}
	}
	return m, nil
}

// apply writes one edited value through the controller.
func (m *consoleModel) apply(item menuItem, value string) {
	var err error
	switch item.key {
	case keyAudio:
		m.c.SetAudioProvider(voice.AudioProvider(value))
	case keyVoice:
		err = m.c.SelectVoice(value)
	case keyApplyPreset:
		err = m.c.ApplyPreset(value)
	case keySavePreset:
		var saved bool
		var p voice.Preset
		p, saved, err = m.c.SavePreset(m.ctx, value)
		if saved {
			m.recent = append(m.recent, notice.New(notice.Info, "Preset salvo: "+p.Name))
		}
	default:
		var v any
		if v, err = project.ParseValue(item.field, value); err == nil {
			err = m.c.SetField(item.field, v)
		}
	}
	m.err = err
}

func (m consoleModel) updateScripting(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "n":
		m.showErr(m.c.Next())
		m.cursor = 0
	case "enter":
		scenes := m.c.Scenes()
		if m.cursor < len(scenes) {
			m.state = stateEditing
			m.editBuf = scenes[m.cursor].Narration
		}
	}
	return m, nil
}

func (m consoleModel) updateSceneEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.state = stateMenu
		scenes := m.c.Scenes()
		if m.cursor < len(scenes) {
			text := strings.TrimSpace(m.editBuf)
			m.err = m.c.UpdateScene(scenes[m.cursor].ID, func(s *project.Scene) error {
				if text == "" {
					return errors.New("narração vazia")
				}
				s.Narration = text
				return nil
			})
		}
	case "esc":
		m.state = stateMenu
	case "backspace":
		if r := []rune(m.editBuf); len(r) > 0 {
			m.editBuf = string(r[:len(r)-1])
		}
	case "ctrl+u":
		m.editBuf = ""
	default:
		if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
			m.editBuf += string(msg.Runes)
		}
	}
	return m, nil
}

func (m consoleModel) updateMedia(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "c":
		m.showErr(m.c.Complete())
		m.cursor = 0
		return m, nil
	case "g", "r":
		if m.busy != "" || m.newMedia == nil {
			return m, nil
		}
		opts := media.Options{Images: true, Audio: true, Retry: msg.String() == "r"}
		ctx, c, progress, factory := m.ctx, m.c, m.progress, m.newMedia
		progress.Progress("", 0, 0)
		m.busy = "Gerando mídia..."
		return m, tea.Batch(tick(), func() tea.Msg {
			runner, release, err := factory(ctx, progress)
			if err != nil {
				return mediaDoneMsg{err: err}
			}
			defer release()
			sum, err := runner.Run(ctx, c.Config(), c.Scenes(), opts)
			return mediaDoneMsg{sum: sum, err: err}
		})
	}
	return m, nil
}

func (m consoleModel) View() string {
	var b strings.Builder

	b.WriteString(headerBorder.Render(titleStyle.Render("CanalDarkGen") + "  " + m.renderStages()))
	b.WriteString("\n")

	switch m.c.Stage() {
	case workflow.StageInput:
		m.viewInput(&b)
	case workflow.StageScripting:
		m.viewScripting(&b)
	case workflow.StageMedia:
		m.viewMedia(&b)
	case workflow.StagePreview:
		m.viewPreview(&b)
	}

	if m.busy != "" {
		b.WriteString("\n  " + warnStyle.Render(m.busy))
		if done, total := m.progress.get(); total > 0 {
			b.WriteString(fmt.Sprintf(" %d/%d", done, total))
		}
		b.WriteString("\n")
	}
	for _, n := range m.recent {
		line := "  " + n.Message
		switch n.Level {
		case notice.Error:
			line = errorStyle.Render(line)
		case notice.Warn:
			line = warnStyle.Render(line)
		}
		b.WriteString("\n" + line)
	}
	if m.err != nil {
		b.WriteString("\n" + errorStyle.Render("  Erro: "+m.err.Error()))
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help()))
	b.WriteString("\n")
	return b.String()
}

func (m consoleModel) renderStages() string {
	names := []string{"Entrada", "Roteiro", "Mídia", "Prévia"}
	current := int(m.c.Stage())
	parts := make([]string, len(names))
	for i, n := range names {
		if i == current {
			parts[i] = activeStageStyle.Render(n)
		} else {
			parts[i] = stageStyle.Render(n)
		}
	}
	return strings.Join(parts, stageStyle.Render(" › "))
}

func (m consoleModel) viewInput(b *strings.Builder) {
	for i, item := range m.items {
		isActive := m.cursor == i
		cursor := "  "
		if isActive {
			cursor = cursorStyle.Render("> ")
		}

		if item.kind == itemButton {
			if isActive {
				b.WriteString("\n  " + buttonStyle.Render(" "+item.label+" ") + "\n")
			} else {
				b.WriteString("\n  " + buttonDimStyle.Render(" "+item.label+" ") + "\n")
			}
			continue
		}

		var renderedValue string
		switch {
		case item.editing && item.kind == itemText:
			renderedValue = menuValueStyle.Render(m.editBuf + "_")
		case item.value == "":
			renderedValue = menuValueDimStyle.Render("(vazio)")
		default:
			display := item.value
			for _, opt := range item.options {
				if opt.value == item.value {
					display = opt.label
					break
				}
			}
			renderedValue = menuValueStyle.Render(display)
		}
		if item.key == keyVoice && m.c.PlayingVoice() == item.value && item.value != "" {
			renderedValue += warnStyle.Render(" ♪")
		}
		b.WriteString(cursor + menuLabelStyle.Render(item.label) + " " + renderedValue + "\n")

		if item.editing && item.kind == itemOptions {
			for j, opt := range item.options {
				if j == item.cursor {
					b.WriteString(selectedOptionStyle.Render("> "+opt.label) + "\n")
				} else {
					b.WriteString(optionStyle.Render("  "+opt.label) + "\n")
				}
			}
		}
	}
}

func (m consoleModel) viewScripting(b *strings.Builder) {
	cfg := m.c.Config()
	b.WriteString("  " + menuValueStyle.Render(cfg.Topic) + "\n\n")
	for i, s := range m.c.Scenes() {
		cursor := "  "
		if m.cursor == i {
			cursor = cursorStyle.Render("> ")
		}
		text := s.Narration
		if m.state == stateEditing && m.cursor == i {
			text = menuValueStyle.Render(m.editBuf + "_")
		}
		b.WriteString(fmt.Sprintf("%s%2d  %s\n", cursor, i+1, text))
		b.WriteString(menuValueDimStyle.Render("      "+s.VisualPrompt) + "\n")
	}
}

func (m consoleModel) viewMedia(b *strings.Builder) {
	for i, s := range m.c.Scenes() {
		cursor := "  "
		if m.cursor == i {
			cursor = cursorStyle.Render("> ")
		}
		b.WriteString(fmt.Sprintf("%s%2d  imagem: %-8s áudio: %-8s %s\n", cursor, i+1, s.ImageState, s.AudioState, truncate(s.Narration, 40)))
		for _, e := range []string{s.ImageError, s.AudioError} {
			if e != "" {
				b.WriteString(errorStyle.Render("      "+truncate(e, 70)) + "\n")
			}
		}
	}
}

func (m consoleModel) viewPreview(b *strings.Builder) {
	cfg := m.c.Config()
	scenes := m.c.Scenes()
	for _, cue := range m.c.Timeline() {
		s := scenes[cue.Index]
		b.WriteString(fmt.Sprintf("  %s-%s  %s\n", workflow.FormatTime(cue.Start), workflow.FormatTime(cue.End), s.Narration))
		if s.ImageRef != "" || s.AudioRef != "" {
			b.WriteString(menuValueDimStyle.Render("      "+s.ImageRef+"  "+s.AudioRef) + "\n")
		}
	}
	b.WriteString(fmt.Sprintf("\n  %s · %s · efeito %s · música %.0f%%\n",
		cfg.AspectRatio, workflow.FormatTime(cfg.TotalDuration), cfg.SpecialFX, cfg.MusicVolume*100))
}

func (m consoleModel) help() string {
	if m.state == stateEditing {
		return "  digite ou escolha | enter confirma | esc cancela"
	}
	switch m.c.Stage() {
	case workflow.StageInput:
		return "  j/k navegar | enter editar | p ouvir voz | L trancar cofre | q sair"
	case workflow.StageScripting:
		return "  j/k navegar | enter editar narração | n mídia | b voltar | q sair"
	case workflow.StageMedia:
		return "  g gerar | r regenerar tudo | c concluir | b voltar | q sair"
	default:
		return "  b voltar | q sair"
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
