package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/paulofranca-ai/canaldarkgen/internal/project"
)

const (
	pollinationsBaseURL = "https://image.pollinations.ai/prompt"
	imageAttempts       = 3
	minImageBytes       = 100
)

// ImageRequest describes one scene image.
type ImageRequest struct {
	Prompt string
	Style  string
	Aspect project.AspectRatio
	Seed   int
}

// Imager turns a visual prompt into encoded image bytes.
type Imager interface {
	Generate(ctx context.Context, req ImageRequest) ([]byte, error)
}

// PollinationsImager generates images with Pollinations.ai, which needs no
// key.
type PollinationsImager struct {
	baseURL    string
	backoff    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

func NewPollinationsImager(logger *slog.Logger) *PollinationsImager {
	if logger == nil {
		logger = slog.Default()
	}
	return &PollinationsImager{
		baseURL:    pollinationsBaseURL,
		backoff:    3 * time.Second,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
	}
}

// Dimensions returns the pixel size rendered for an aspect ratio.
func Dimensions(a project.AspectRatio) (width, height int) {
	switch a {
	case project.Aspect9x16:
		return 1080, 1920
	case project.Aspect1x1:
		return 1080, 1080
	default:
		return 1920, 1080
	}
}

func stylePrompt(prompt, style string) string {
	prompt = strings.TrimSpace(prompt)
	if style = strings.TrimSpace(style); style != "" {
		prompt += ", " + style
	}
	return prompt + ", no text, no watermark"
}

func (p *PollinationsImager) Generate(ctx context.Context, req ImageRequest) ([]byte, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("empty visual prompt")
	}
	w, h := Dimensions(req.Aspect)
	imageURL := fmt.Sprintf("%s/%s?width=%d&height=%d&nologo=true&model=flux&seed=%d",
		p.baseURL, url.PathEscape(stylePrompt(req.Prompt, req.Style)), w, h, req.Seed)

	var err error
	for attempt := 1; attempt <= imageAttempts; attempt++ {
		var data []byte
		data, err = p.download(ctx, imageURL)
		if err == nil {
			return data, nil
		}
		p.logger.Warn("image attempt failed", "attempt", attempt, "error", err)
		if attempt == imageAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * p.backoff):
		}
	}
	return nil, fmt.Errorf("pollinations failed after %d attempts: %w", imageAttempts, err)
}

func (p *PollinationsImager) download(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; CanalDarkGen/1.0)")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from Pollinations", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	// Error pages come back as tiny bodies with a 200.
	if len(data) < minImageBytes {
		return nil, fmt.Errorf("response too small (%d bytes)", len(data))
	}
	return data, nil
}
