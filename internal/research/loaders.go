package research

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/ledongthuc/pdf"
)

// TextLoader reads a plain text or markdown file.
type TextLoader struct{}

func (TextLoader) Load(_ context.Context, source string) (*Material, error) {
	if err := validateFile(source); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("could not read file %s: %w", source, err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, fmt.Errorf("file %s is empty", source)
	}
	return &Material{
		Text:      text,
		Title:     titleFromText(text, 80),
		Source:    filepath.Base(source),
		Kind:      KindText,
		WordCount: wordCount(text),
	}, nil
}

// PDFLoader extracts the text layer of a PDF. Scanned documents have none.
type PDFLoader struct{}

func (PDFLoader) Load(ctx context.Context, source string) (*Material, error) {
	if err := validateFile(source); err != nil {
		return nil, err
	}
	f, r, err := pdf.Open(source)
	if err != nil {
		return nil, fmt.Errorf("could not read PDF %s: %w", source, err)
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return nil, fmt.Errorf("could not extract text from PDF %s (it may be scanned or image-based)", source)
	}
	return &Material{
		Text:      text,
		Title:     titleFromText(text, 80),
		Source:    filepath.Base(source),
		Kind:      KindPDF,
		WordCount: wordCount(text),
	}, nil
}

// URLLoader fetches a page and keeps only its readable article body.
type URLLoader struct {
	client *http.Client
}

func NewURLLoader() *URLLoader {
	return &URLLoader{client: &http.Client{Timeout: 30 * time.Second}}
}

func (u *URLLoader) Load(ctx context.Context, source string) (*Material, error) {
	parsed, err := url.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %s: %w", source, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "canaldarkgen/1.0")

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not fetch URL %s: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("could not fetch URL %s: HTTP %d", source, resp.StatusCode)
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, maxInputSize), parsed)
	if err != nil {
		return nil, fmt.Errorf("could not extract article from %s: %w", source, err)
	}
	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return nil, fmt.Errorf("no readable content extracted from %s", source)
	}
	title := article.Title
	if title == "" {
		title = titleFromText(text, 80)
	}
	return &Material{
		Text:      text,
		Title:     title,
		Source:    source,
		Kind:      KindURL,
		WordCount: wordCount(text),
	}, nil
}
