package llmservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"document-chat/internal/config"
)

// ServiceError marks a failed round trip to the completion service: either a
// transport failure (StatusCode 0) or a non-success HTTP status.
type ServiceError struct {
	StatusCode int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("completion service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("completion service unreachable: %v", e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Client talks to Ollama's generate endpoint. One blocking request per
// completion, non-streaming, no retries; a failed attempt surfaces
// immediately.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewClient(llmConfig *config.LLMConfig) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(llmConfig.BaseURL, "/"),
		model:   llmConfig.Model,
		httpClient: &http.Client{
			Timeout: time.Duration(llmConfig.TimeoutSeconds) * time.Second,
		},
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Complete sends the prompt and returns the generated text, trimmed.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("error encoding completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewBuffer(payload))
	if err != nil {
		return "", fmt.Errorf("error building completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &ServiceError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &ServiceError{StatusCode: resp.StatusCode}
	}

	var body generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", &ServiceError{Err: fmt.Errorf("error decoding completion response: %w", err)}
	}
	return strings.TrimSpace(body.Response), nil
}

// Model reports the configured completion model name.
func (c *Client) Model() string {
	return c.model
}
