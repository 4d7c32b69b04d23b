package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/paulofranca-ai/canaldarkgen/internal/project"
)

// Directory lists the voices available to the session.
type Directory interface {
	ListVoices(ctx context.Context) ([]Voice, error)
}

// StaticDirectory serves a fixed voice list.
type StaticDirectory []Voice

func (d StaticDirectory) ListVoices(context.Context) ([]Voice, error) {
	out := make([]Voice, len(d))
	copy(out, d)
	return out, nil
}

// PredefinedVoices is the built-in catalog used when no directory service
// answers.
func PredefinedVoices() StaticDirectory {
	return StaticDirectory{
		{ID: "onyx", Name: "Onyx", Nationality: project.NationalityBR, Base: BaseOpenAI},
		{ID: "echo", Name: "Echo", Nationality: project.NationalityBR, Base: BaseOpenAI},
		{ID: "shimmer", Name: "Shimmer", Nationality: project.NationalityBR, Base: BaseOpenAI},
		{ID: "fable", Name: "Fable", Nationality: project.NationalityUS, Base: BaseOpenAI},
		{ID: "nova", Name: "Nova", Nationality: project.NationalityUS, Base: BaseOpenAI},
		{ID: "alloy", Name: "Alloy", Nationality: project.NationalityUS, Base: BaseOpenAI},

		{ID: "pNInz6obpgDQGcFmaJgB", Name: "Adam", Nationality: project.NationalityBR, Base: BaseElevenLabs},
		{ID: "VR6AewLTigWG4xSOukaG", Name: "Arnold", Nationality: project.NationalityBR, Base: BaseElevenLabs},
		{ID: "pFZP5JQG7iQjIQuC4Bku", Name: "Lily", Nationality: project.NationalityBR, Base: BaseElevenLabs},
		{ID: "JBFqnCBsd6RMkjVDRZzb", Name: "George", Nationality: project.NationalityUS, Base: BaseElevenLabs},
		{ID: "TxGEqnHWrfWFTfGW9XjX", Name: "Josh", Nationality: project.NationalityUS, Base: BaseElevenLabs},
		{ID: "EXAVITQu4vr4xnSDxMaL", Name: "Sarah", Nationality: project.NationalityUS, Base: BaseElevenLabs},

		{ID: "pt-BR-Wavenet-B", Name: "Wavenet B", Nationality: project.NationalityBR, Base: BaseFree},
		{ID: "pt-BR-Standard-A", Name: "Standard A", Nationality: project.NationalityBR, Base: BaseFree},
		{ID: "en-US-Chirp3-HD-Charon", Name: "Charon", Nationality: project.NationalityUS, Base: BaseFree},
		{ID: "en-US-Chirp3-HD-Leda", Name: "Leda", Nationality: project.NationalityUS, Base: BaseFree},
	}
}

const elevenLabsVoicesURL = "https://api.elevenlabs.io/v1/voices"

// ElevenLabsDirectory lists the voices of an ElevenLabs account.
type ElevenLabsDirectory struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewElevenLabsDirectory(apiKey string) *ElevenLabsDirectory {
	return &ElevenLabsDirectory{
		apiKey:     apiKey,
		baseURL:    elevenLabsVoicesURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type elevenLabsVoicesResponse struct {
	Voices []struct {
		VoiceID    string            `json:"voice_id"`
		Name       string            `json:"name"`
		PreviewURL string            `json:"preview_url"`
		Labels     map[string]string `json:"labels"`
	} `json:"voices"`
}

func (d *ElevenLabsDirectory) ListVoices(ctx context.Context) ([]Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("xi-api-key", d.apiKey)

	res, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("ElevenLabs voices error (status %d): %s", res.StatusCode, string(errBody))
	}

	var resp elevenLabsVoicesResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("parse voices: %w", err)
	}

	voices := make([]Voice, 0, len(resp.Voices))
	for _, v := range resp.Voices {
		voices = append(voices, Voice{
			ID:          v.VoiceID,
			Name:        v.Name,
			PreviewURL:  v.PreviewURL,
			Nationality: nationalityFromLabels(v.Labels),
			Base:        BaseElevenLabs,
		})
	}
	return voices, nil
}

// nationalityFromLabels reads the language/accent labels ElevenLabs attaches
// to a voice. Portuguese or Brazilian voices are PT-BR, everything else US.
func nationalityFromLabels(labels map[string]string) project.Nationality {
	lang := strings.ToLower(labels["language"])
	accent := strings.ToLower(labels["accent"])
	if strings.HasPrefix(lang, "pt") || strings.Contains(accent, "brazil") || strings.Contains(accent, "portug") {
		return project.NationalityBR
	}
	return project.NationalityUS
}

// MergedDirectory concatenates several directories, dropping duplicate ids.
// A failing source is logged and skipped; the call only fails when every
// source fails.
type MergedDirectory struct {
	sources []Directory
	log     *slog.Logger
}

func NewMergedDirectory(logger *slog.Logger, sources ...Directory) *MergedDirectory {
	if logger == nil {
		logger = slog.Default()
	}
	return &MergedDirectory{sources: sources, log: logger}
}

func (d *MergedDirectory) ListVoices(ctx context.Context) ([]Voice, error) {
	var (
		out     []Voice
		seen    = map[string]bool{}
		lastErr error
		okCount int
	)
	for _, src := range d.sources {
		voices, err := src.ListVoices(ctx)
		if err != nil {
			d.log.WarnContext(ctx, "Voice directory unavailable", "error", err)
			lastErr = err
			continue
		}
		okCount++
		for _, v := range voices {
			if seen[v.ID] {
				continue
			}
			seen[v.ID] = true
			out = append(out, v)
		}
	}
	if okCount == 0 && lastErr != nil {
		return nil, fmt.Errorf("list voices: %w", lastErr)
	}
	return out, nil
}
