package script

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/paulofranca-ai/canaldarkgen/internal/project"
)

var geminiModels = map[string]string{
	"gemini-flash": "gemini-2.5-flash",
	"gemini-pro":   "gemini-2.5-pro",
}

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

type GeminiGenerator struct {
	model      string
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewGeminiGenerator(model, apiKey string) *GeminiGenerator {
	return &GeminiGenerator{
		model:      model,
		apiKey:     apiKey,
		baseURL:    geminiBaseURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

type geminiTextRequest struct {
	SystemInstruction *geminiTextContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiTextContent `json:"contents"`
	GenerationConfig  *geminiTextGenCfg   `json:"generationConfig,omitempty"`
}

type geminiTextContent struct {
	Parts []geminiTextPart `json:"parts"`
}

type geminiTextPart struct {
	Text string `json:"text"`
}

type geminiTextGenCfg struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int64   `json:"maxOutputTokens"`
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
}

type geminiTextResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiTextPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (g *GeminiGenerator) modelID() string {
	if id := geminiModels[g.model]; id != "" {
		return id
	}
	return geminiModels["gemini-flash"]
}

func (g *GeminiGenerator) GenerateIdeas(ctx context.Context, t project.VideoType) (Idea, error) {
	return retry(ctx, "Gemini", func() (Idea, error) {
		text, err := g.complete(ctx, ideaSystemPrompt, buildIdeaPrompt(t), 1024)
		if err != nil {
			return Idea{}, err
		}
		idea, err := parseIdea(text)
		if err != nil {
			return Idea{}, invalidReply("Gemini", err)
		}
		return idea, nil
	})
}

func (g *GeminiGenerator) GenerateScript(ctx context.Context, cfg project.Config, research string) ([]project.SceneDraft, error) {
	return retry(ctx, "Gemini", func() ([]project.SceneDraft, error) {
		text, err := g.complete(ctx, scriptSystemPrompt, buildScriptPrompt(cfg, research), maxTokensForScenes(cfg.SceneCount))
		if err != nil {
			return nil, err
		}
		scenes, err := parseScenes(text)
		if err != nil {
			return nil, invalidReply("Gemini", err)
		}
		return scenes, nil
	})
}

func (g *GeminiGenerator) complete(ctx context.Context, system, user string, maxTokens int64) (string, error) {
	if g.apiKey == "" {
		return "", missingKey("Gemini", "GEMINI_API_KEY")
	}

	reqBody := geminiTextRequest{
		SystemInstruction: &geminiTextContent{
			Parts: []geminiTextPart{{Text: system}},
		},
		Contents: []geminiTextContent{
			{Parts: []geminiTextPart{{Text: user}}},
		},
		GenerationConfig: &geminiTextGenCfg{
			Temperature:      temperature,
			MaxOutputTokens:  maxTokens,
			ResponseMIMEType: "application/json",
		},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", g.baseURL, g.modelID(), g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := g.httpClient.Do(req)
	if err != nil {
		return "", &ServiceError{Kind: KindTransient, Service: "Gemini", Message: "Gemini request failed: " + redact(err.Error(), g.apiKey), Err: err}
	}
	defer res.Body.Close()

	respBody, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return "", geminiStatusError(res.StatusCode, respBody)
	}

	var resp geminiTextResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", &ServiceError{Kind: KindTransient, Service: "Gemini", Message: "empty response from Gemini"}
	}
	var parts []string
	for _, p := range resp.Candidates[0].Content.Parts {
		parts = append(parts, p.Text)
	}
	return strings.Join(parts, ""), nil
}

func geminiStatusError(status int, body []byte) error {
	var er geminiErrorResponse
	detail := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &er) == nil && er.Error.Message != "" {
		detail = er.Error.Message
	}
	kind := kindForStatus(status)
	// Gemini answers 400 with "API key not valid" for a bad key.
	if status == http.StatusBadRequest && strings.Contains(strings.ToLower(detail), "api key") {
		kind = KindCredentialMissing
	}
	msg := fmt.Sprintf("Gemini API error (status %d): %s", status, truncate(detail, 300))
	if kind == KindCredentialMissing {
		msg = "Gemini API error: Invalid API Key"
	}
	return &ServiceError{Kind: kind, Service: "Gemini", Message: msg}
}

// redact removes the key from transport errors, which embed the URL.
func redact(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, "***")
}
