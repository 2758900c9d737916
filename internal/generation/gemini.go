package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/skillroad/skillroad/internal/config"

	log "github.com/sirupsen/logrus"
)

const maxErrorBodyBytes = 512

// Generator turns a prompt into free-form model output.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// GeminiClient calls the Gemini generateContent endpoint.
type GeminiClient struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
}

// NewGeminiClient constructs a client from the generation config.
func NewGeminiClient(cfg config.GenerationConfig) *GeminiClient {
	return &GeminiClient{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		model:   strings.TrimSpace(cfg.Model),
		apiKey:  strings.TrimSpace(cfg.APIKey),
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Generate sends prompt as the only content part and returns the first candidate's text.
func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	if g == nil {
		return "", fmt.Errorf("%w: nil client", ErrService)
	}
	if g.apiKey == "" {
		return "", fmt.Errorf("%w: missing api key", ErrService)
	}
	if g.baseURL == "" || g.model == "" {
		return "", fmt.Errorf("%w: endpoint not configured", ErrService)
	}
	client := g.client
	if client == nil {
		client = http.DefaultClient
	}

	payload, errMarshal := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if errMarshal != nil {
		return "", fmt.Errorf("%w: encode request: %v", ErrService, errMarshal)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, url.PathEscape(g.model))
	req, errReq := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if errReq != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrService, errReq)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, errDo := client.Do(req)
	if errDo != nil {
		return "", fmt.Errorf("%w: request failed: %v", ErrService, errDo)
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.WithError(errClose).Warn("gemini: close response body failed")
		}
	}()

	body, errRead := io.ReadAll(resp.Body)
	if errRead != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrService, errRead)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("%w: unexpected status %d: %s", ErrService, resp.StatusCode, truncate(body, maxErrorBodyBytes))
	}

	var decoded geminiResponse
	if errDecode := json.Unmarshal(body, &decoded); errDecode != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrService, errDecode)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: response has no candidates", ErrService)
	}
	return decoded.Candidates[0].Content.Parts[0].Text, nil
}

func truncate(body []byte, limit int) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) <= limit {
		return string(trimmed)
	}
	return string(trimmed[:limit]) + "..."
}
