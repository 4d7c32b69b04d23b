package notice

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/mattn/go-isatty"
)

// Renderer prints notices and a progress bar to a terminal. On a TTY the
// bar is redrawn in place; otherwise every update is a timestamped line.
type Renderer struct {
	mu    sync.Mutex
	out   io.Writer
	start time.Time
	isTTY bool
	width int
	lines int // progress lines currently on screen
}

// NewRenderer auto-detects TTY mode and terminal width of out.
func NewRenderer(out *os.File) *Renderer {
	tty := isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd())

	width := 80
	if tty {
		if w, _, err := term.GetSize(out.Fd()); err == nil && w > 0 {
			width = w
		}
	}
	return &Renderer{out: out, start: time.Now(), isTTY: tty, width: width}
}

// NewPlainRenderer writes to any writer without terminal control codes.
func NewPlainRenderer(out io.Writer) *Renderer {
	return &Renderer{out: out, start: time.Now(), width: 80}
}

func (r *Renderer) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.isTTY && r.lines > 0 {
		r.clearLines()
	}
	prefix := ""
	switch n.Level {
	case Warn:
		prefix = "Warning: "
	case Error:
		prefix = "Error: "
	}
	if r.isTTY {
		fmt.Fprintf(r.out, "  %s%s\n", prefix, n.Message)
		return
	}
	fmt.Fprintf(r.out, "[%s] %s%s\n", formatElapsed(time.Since(r.start)), prefix, n.Message)
}

// Progress shows msg with a bar for done out of total.
func (r *Renderer) Progress(msg string, done, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pct := 1.0
	if total > 0 {
		pct = float64(done) / float64(total)
	}
	elapsed := formatElapsed(time.Since(r.start))

	if !r.isTTY {
		fmt.Fprintf(r.out, "[%s] %s (%d/%d)\n", elapsed, msg, done, total)
		return
	}
	if r.lines > 0 {
		r.clearLines()
	}
	bar := renderBar(pct, r.barWidth())
	fmt.Fprintf(r.out, "  %s\n  %s %3d%%  %s", msg, bar, int(pct*100), elapsed)
	r.lines = 2
}

// Finish clears the progress display and prints a closing line.
func (r *Renderer) Finish(summary string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.isTTY && r.lines > 0 {
		r.clearLines()
	}
	fmt.Fprintf(r.out, "\n  %s (%s)\n", summary, formatElapsed(time.Since(r.start)))
}

func (r *Renderer) clearLines() {
	for i := 0; i < r.lines; i++ {
		if i == 0 {
			fmt.Fprint(r.out, "\r\033[2K")
		} else {
			fmt.Fprint(r.out, "\033[A\033[2K")
		}
	}
	fmt.Fprint(r.out, "\r")
	r.lines = 0
}

func (r *Renderer) barWidth() int {
	w := r.width - 16
	if w < 20 {
		w = 20
	}
	if w > 60 {
		w = 60
	}
	return w
}

func renderBar(pct float64, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 1 {
		pct = 1
	}
	filled := int(pct * float64(width))
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

// formatElapsed formats a duration as M:SS.
func formatElapsed(d time.Duration) string {
	total := int(d.Seconds())
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
