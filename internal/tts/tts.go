// Package tts synthesizes scene narration with the configured speech
// provider.
package tts

import (
	"context"
	"fmt"
	"time"

	"github.com/paulofranca-ai/canaldarkgen/internal/project"
	"github.com/paulofranca-ai/canaldarkgen/internal/voice"
)

// AudioFormat is the encoding returned by a provider.
type AudioFormat string

const (
	FormatMP3 AudioFormat = "mp3"
	FormatWAV AudioFormat = "wav"
)

// Ext returns the file extension for the format, with the dot.
func (f AudioFormat) Ext() string { return "." + string(f) }

// Request is one narration to speak.
type Request struct {
	Text        string
	VoiceID     string
	Settings    project.VoiceSettings
	Nationality project.Nationality
}

// RequestFor builds the synthesis request of a scene under cfg.
func RequestFor(cfg project.Config, s project.Scene) Request {
	return Request{
		Text:        s.Narration,
		VoiceID:     cfg.VoiceID,
		Settings:    cfg.VoiceSettings,
		Nationality: cfg.Nationality,
	}
}

type AudioResult struct {
	Data   []byte
	Format AudioFormat
}

// Provider synthesizes speech for one narration at a time.
type Provider interface {
	Name() string
	Synthesize(ctx context.Context, req Request) (AudioResult, error)
	Close() error
}

// New returns the provider behind an audio provider setting. apiKey is the
// ElevenLabs or OpenAI key; the free tier uses Google credentials from the
// environment.
func New(ctx context.Context, p voice.AudioProvider, apiKey string) (Provider, error) {
	switch p {
	case voice.AudioOpenAIHD:
		return NewOpenAIProvider(apiKey, openAIModelHD), nil
	case voice.AudioElevenLabsTurbo:
		return NewElevenLabsProvider(apiKey, elevenLabsTurboModel), nil
	case voice.AudioElevenLabsQuality:
		return NewElevenLabsProvider(apiKey, elevenLabsQualityModel), nil
	case voice.AudioBrowserFree:
		return NewGoogleProvider(ctx)
	default:
		return nil, fmt.Errorf("unknown audio provider %q", p)
	}
}

const (
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 1 * time.Second
	defaultBackoffMulti   = 2
	defaultMaxBackoff     = 10 * time.Second
)

// RetryableError signals that the operation can be retried.
type RetryableError struct {
	StatusCode int
	Body       string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}

// WithRetry executes fn with exponential backoff on RetryableError.
func WithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	backoff := defaultInitialBackoff

	for attempt := 1; attempt <= defaultMaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if _, ok := err.(*RetryableError); !ok {
			return err
		}
		lastErr = err

		if attempt < defaultMaxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= time.Duration(defaultBackoffMulti)
			if backoff > defaultMaxBackoff {
				backoff = defaultMaxBackoff
			}
		}
	}
	return lastErr
}
