// Package research loads optional source material (a web article, a PDF
// or a text file) that grounds a generated script in real facts.
package research

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode"
)

type Kind string

const (
	KindURL  Kind = "url"
	KindPDF  Kind = "pdf"
	KindText Kind = "text"

	// maxInputSize caps what is read from any source (25 MB).
	maxInputSize = 25 * 1024 * 1024

	// DefaultMaxWords bounds the excerpt sent to the text service.
	DefaultMaxWords = 3000
)

// Material is extracted plain text plus where it came from.
type Material struct {
	Text      string
	Title     string
	Source    string
	Kind      Kind
	WordCount int
}

type Loader interface {
	Load(ctx context.Context, source string) (*Material, error)
}

// Detect guesses the kind of source from its shape.
func Detect(input string) Kind {
	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		return KindURL
	}
	if strings.HasSuffix(strings.ToLower(input), ".pdf") {
		return KindPDF
	}
	return KindText
}

// Load reads source with the loader matching its kind.
func Load(ctx context.Context, source string) (*Material, error) {
	var l Loader
	switch Detect(source) {
	case KindURL:
		l = NewURLLoader()
	case KindPDF:
		l = PDFLoader{}
	default:
		l = TextLoader{}
	}
	return l.Load(ctx, source)
}

// Excerpt returns at most maxWords words of the material, keeping the
// original spacing of the words it keeps.
func (m *Material) Excerpt(maxWords int) string {
	if m == nil {
		return ""
	}
	if maxWords <= 0 || m.WordCount <= maxWords {
		return m.Text
	}
	count := 0
	inWord := false
	for i, r := range m.Text {
		if unicode.IsSpace(r) {
			inWord = false
			continue
		}
		if !inWord {
			inWord = true
			count++
			if count > maxWords {
				return strings.TrimSpace(m.Text[:i]) + " [...]"
			}
		}
	}
	return m.Text
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}

func titleFromText(text string, maxLen int) string {
	line := text
	if idx := strings.IndexByte(text, '\n'); idx > 0 {
		line = text[:idx]
	}
	line = strings.TrimSpace(line)
	if len(line) > maxLen {
		line = line[:maxLen] + "..."
	}
	if line == "" {
		return "Untitled"
	}
	return line
}

func validateFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}
	if info.Size() > maxInputSize {
		return fmt.Errorf("%s is too large (%d MB, max %d MB)", path, info.Size()/(1024*1024), maxInputSize/(1024*1024))
	}
	return nil
}
