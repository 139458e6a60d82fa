// Package gemini is a thin adapter around the Gemini generateContent REST
// endpoint. Every call is single-attempt: retries are the caller's decision,
// and the dispatch step deliberately never retries.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// ErrMalformedResponse is returned when the upstream answers 200 but the
// payload carries no candidate text.
var ErrMalformedResponse = errors.New("gemini: malformed response")

// UpstreamError is a non-success status from the generation endpoint.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("gemini: upstream status %d", e.Status)
}

// Client calls the Gemini generateContent endpoint. The API key is supplied
// per call so the dispatcher can rotate keys; the client itself holds none.
type Client struct {
	apiBase string
	model   string
	client  *http.Client
}

// New creates a Client for the given endpoint root and model.
// The caller bounds each request with a context; the embedded http.Client
// carries no timeout of its own.
func New(apiBase, model string) *Client {
	return &Client{
		apiBase: strings.TrimRight(apiBase, "/"),
		model:   model,
		client:  &http.Client{},
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Generation parameters matching the original deployment.
type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate sends prompt to the generateContent endpoint using the given API
// key and returns the first candidate's text. Failures are classified:
// *UpstreamError for non-200 statuses, ErrMalformedResponse for unusable
// payloads, and wrapped transport errors (including context timeouts)
// otherwise.
func (c *Client) Generate(ctx context.Context, prompt, apiKey string) (string, error) {
	body := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     0.7,
			TopK:            40,
			TopP:            0.95,
			MaxOutputTokens: 1024,
		},
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("gemini: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		c.apiBase, c.model, url.QueryEscape(apiKey))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("gemini: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gemini: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &UpstreamError{Status: resp.StatusCode, Body: string(respBody)}
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", ErrMalformedResponse
	}

	text := out.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return "", ErrMalformedResponse
	}
	return text, nil
}
