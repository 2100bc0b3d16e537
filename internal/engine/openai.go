package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dom/puckquery/internal/ingest"
)

const systemPrompt = `You are PuckQuery, an analyst for ice hockey play-by-play data.
Answer the user's question using only the CSV table below. It holds every
recorded event of a single game, one row per event. If the table cannot
answer the question, say so plainly.

`

// OpenAI talks to an OpenAI-compatible chat completions API.
type OpenAI struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
}

// NewOpenAI creates an adapter with a default HTTP client.
func NewOpenAI(baseURL, apiKey, model string) *OpenAI {
	return &OpenAI{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Model:   model,
		HTTPClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

// Prepare renders the table once and returns a session bound to it. No
// request is sent until the first question.
func (o *OpenAI) Prepare(ctx context.Context, table *ingest.Table) (Session, error) {
	if o.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := ingest.WriteCSV(&buf, table); err != nil {
		return nil, fmt.Errorf("render table: %w", err)
	}

	return &openAISession{client: o, prompt: systemPrompt + buf.String()}, nil
}

type openAISession struct {
	client *OpenAI
	prompt string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (s *openAISession) Ask(ctx context.Context, question string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: s.client.Model,
		Messages: []chatMessage{
			{Role: "system", Content: s.prompt},
			{Role: "user", Content: question},
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.client.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.client.APIKey)
	req.Header.Set("Content-Type", "application/json")

	httpClient := s.client.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("chat completion failed (status %d): %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode chat completion: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", nil
	}
	return result.Choices[0].Message.Content, nil
}
