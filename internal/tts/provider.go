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
	openAISpeechURL = "https://api.openai.com/v1/audio/speech"
	openAIModelHD   = "tts-1-hd"
)

type openAIRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format"`
	Speed          float64 `json:"speed,omitempty"`
}

// OpenAIProvider uses the OpenAI speech endpoint. Its voices take no
// tuning, so emotion settings are ignored.
type OpenAIProvider struct {
	apiKey     string
	model      string
	url        string
	httpClient *http.Client
}

func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	return &OpenAIProvider{
		apiKey:     apiKey,
		model:      model,
		url:        openAISpeechURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Synthesize(ctx context.Context, r Request) (AudioResult, error) {
	if p.apiKey == "" {
		return AudioResult{}, fmt.Errorf("OpenAI: OPENAI_API_KEY is not set (API Key missing)")
	}
	voiceID := r.VoiceID
	if voiceID == "" {
		voiceID = "onyx"
	}
	bodyBytes, err := json.Marshal(openAIRequest{
		Model:          p.model,
		Input:          r.Text,
		Voice:          voiceID,
		ResponseFormat: "mp3",
	})
	if err != nil {
		return AudioResult{}, fmt.Errorf("marshal request: %w", err)
	}

	var out AudioResult
	err = WithRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(bodyBytes))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
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
			return fmt.Errorf("OpenAI API error: Invalid API Key")
		}
		if res.StatusCode != http.StatusOK {
			errBody, _ := io.ReadAll(res.Body)
			return fmt.Errorf("OpenAI API error (status %d): %s", res.StatusCode, string(errBody))
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

func (p *OpenAIProvider) Close() error { return nil }
