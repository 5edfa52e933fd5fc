package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/assignhub/assignment-ai/internal/observability"
)

const (
	DefaultAPIBase = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.5-flash"

	// Generation parameters are fixed; the assistant needs consistent,
	// bounded answers rather than tunable sampling.
	Temperature     = 0.7
	TopP            = 0.95
	MaxOutputTokens = 1024

	requestTimeout = 30 * time.Second
)

// GeminiClient issues generation requests against a Gemini-style
// :generateContent endpoint.
type GeminiClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// Gemini API request structures
type GenerateRequest struct {
	Contents         []Content         `json:"contents"`
	GenerationConfig *GenerationConfig `json:"generationConfig,omitempty"`
}

type Content struct {
	Parts []Part `json:"parts"`
}

type Part struct {
	Text string `json:"text"`
}

type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// GenerateResponse covers the response shapes the API is known to produce.
// Candidate content has shipped both as an object and as an array of entries,
// so it is kept raw and probed by the extraction strategies.
type GenerateResponse struct {
	Candidates []Candidate `json:"candidates"`
	Output     string      `json:"output"`
	Text       string      `json:"text"`
}

type Candidate struct {
	Content json.RawMessage `json:"content"`
	Output  string          `json:"output"`
	Message string          `json:"message"`
}

// NewGeminiClient creates a new Gemini client. An empty API key is allowed;
// Generate will fail with ErrMissingCredential, letting the caller run in
// fallback-only mode.
func NewGeminiClient(apiKey, baseURL string) *GeminiClient {
	if baseURL == "" {
		baseURL = DefaultAPIBase
	}

	return &GeminiClient{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// Configured reports whether an API credential is present
func (c *GeminiClient) Configured() bool {
	return c.apiKey != ""
}

// Generate sends a single-turn generation request for the given model.
// When keyViaQuery is set the credential is passed as a query parameter
// instead of the x-goog-api-key header; some deployments only accept one of
// the two.
func (c *GeminiClient) Generate(ctx context.Context, prompt, model string, keyViaQuery bool) (*GenerateResponse, error) {
	if c.apiKey == "" {
		return nil, ErrMissingCredential
	}

	modelPath := model
	if !strings.HasPrefix(modelPath, "models/") {
		modelPath = "models/" + modelPath
	}
	endpoint := fmt.Sprintf("%s/%s:generateContent", c.baseURL, modelPath)
	if keyViaQuery {
		endpoint += "?key=" + url.QueryEscape(c.apiKey)
	}

	request := GenerateRequest{
		Contents: []Content{
			{Parts: []Part{{Text: prompt}}},
		},
		GenerationConfig: &GenerationConfig{
			Temperature:     Temperature,
			TopP:            TopP,
			MaxOutputTokens: MaxOutputTokens,
		},
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if !keyViaQuery {
		req.Header.Set("x-goog-api-key", c.apiKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		// No status code was received; classified as transient.
		apiErr := &APIError{Err: err}
		observability.RecordUpstreamMetrics(model, time.Since(start), apiErr)
		return nil, apiErr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		apiErr := &APIError{Err: fmt.Errorf("failed to read response body: %w", err)}
		observability.RecordUpstreamMetrics(model, time.Since(start), apiErr)
		return nil, apiErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Body:       truncateBody(body),
		}
		observability.RecordUpstreamMetrics(model, time.Since(start), apiErr)
		return nil, apiErr
	}
	observability.RecordUpstreamMetrics(model, time.Since(start), nil)

	var generateResponse GenerateResponse
	if err := json.Unmarshal(body, &generateResponse); err != nil {
		// A 2xx with an unparseable body still reached the API; surface it
		// as a response with no usable text rather than a transport error.
		return &GenerateResponse{}, nil
	}

	return &generateResponse, nil
}

// truncateBody keeps error bodies small enough to log and embed in responses
func truncateBody(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
