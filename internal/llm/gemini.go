package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Gemini calls the Gemini generateContent REST endpoint directly.
// No SDK: the core only needs text-in/text-out.
type Gemini struct {
	APIKey  string
	Model   string
	BaseURL string // override for tests; defaults to the public endpoint
	Client  *http.Client
}

// NewGemini creates a Gemini generator for the given model.
func NewGemini(apiKey, model string) *Gemini {
	return &Gemini{
		APIKey: apiKey,
		Model:  model,
		Client: &http.Client{},
	}
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate implements Generator.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	base := g.BaseURL
	if base == "" {
		base = defaultGeminiBaseURL
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(base, "/"), url.PathEscape(g.Model), url.QueryEscape(g.APIKey))

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: prompt}},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}
	res, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		var eresp map[string]any
		_ = json.NewDecoder(res.Body).Decode(&eresp)
		return "", fmt.Errorf("gemini status %d: %v", res.StatusCode, eresp)
	}

	var out geminiResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini returned no candidates")
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}
