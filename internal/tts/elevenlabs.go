package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	elevenLabsBaseURL      = "https://api.elevenlabs.io/v1/text-to-speech"
	elevenLabsTurboModel   = "eleven_turbo_v2_5"
	elevenLabsQualityModel = "eleven_multilingual_v2"
	elevenLabsOutputFormat = "mp3_44100_128"
)

type elevenLabsRequest struct {
	Text          string                 `json:"text"`
	ModelID       string                 `json:"model_id"`
	VoiceSettings *elevenLabsVoiceParams `json:"voice_settings,omitempty"`
}

type elevenLabsVoiceParams struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// ElevenLabsProvider sends the emotion-tuned voice settings with every
// request, which is what the emotion presets exist for.
type ElevenLabsProvider struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

func NewElevenLabsProvider(apiKey, model string) *ElevenLabsProvider {
	return &ElevenLabsProvider{
		apiKey:     apiKey,
		model:      model,
		baseURL:    elevenLabsBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *ElevenLabsProvider) Name() string { return "elevenlabs" }

func (p *ElevenLabsProvider) Synthesize(ctx context.Context, r Request) (AudioResult, error) {
	if p.apiKey == "" {
		return AudioResult{}, fmt.Errorf("ElevenLabs: ELEVENLABS_API_KEY is not set (API Key missing)")
	}
	if r.VoiceID == "" {
		return AudioResult{}, fmt.Errorf("ElevenLabs: no voice selected")
	}

	bodyBytes, err := json.Marshal(elevenLabsRequest{
		Text:    r.Text,
		ModelID: p.model,
		VoiceSettings: &elevenLabsVoiceParams{
			Stability:       r.Settings.Stability,
			SimilarityBoost: r.Settings.SimilarityBoost,
			Style:           r.Settings.Style,
			UseSpeakerBoost: r.Settings.UseSpeakerBoost,
		},
	})
	if err != nil {
		return AudioResult{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s?output_format=%s", p.baseURL, r.VoiceID, elevenLabsOutputFormat)

	var out AudioResult
	err = WithRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("xi-api-key", p.apiKey)
		req.Header.Set("Content-Type", "application/json")

		res, err := p.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("send request: %w", err)
		}
		defer res.Body.Close()

		if res.StatusCode == http.StatusTooManyRequests ||
			res.StatusCode >= http.StatusInternalServerError {
			errBody, _ := io.ReadAll(res.Body)
			return &RetryableError{StatusCode: res.StatusCode, Body: string(errBody)}
		}
		if res.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("ElevenLabs API error: Invalid API Key")
		}
		if res.StatusCode != http.StatusOK {
			errBody, _ := io.ReadAll(res.Body)
			return fmt.Errorf("ElevenLabs API error (status %d): %s", res.StatusCode, string(errBody))
		}

		data, err := io.ReadAll(res.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		out = AudioResult{Data: data, Format: FormatMP3}
		return nil
	})
	return out, err
}

func (p *ElevenLabsProvider) Close() error { return nil }
