// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pdiddy/research-assistant/internal/httputil"
)

// openRouterAPIURL is the OpenRouter chat completions endpoint. Package-level
// var for test substitution.
var openRouterAPIURL = "https://openrouter.ai/api/v1/chat/completions"

// OpenRouter calls an OpenAI-compatible chat completions API.
type OpenRouter struct {
	APIKey  string
	Model   string
	BaseURL string
	HTTP    *httputil.Client
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *jsonSchema `json:"json_schema,omitempty"`
}

type jsonSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends a system and user message. A JSON schema is forwarded as a
// strict response_format.
func (o *OpenRouter) Complete(ctx context.Context, r Request) (string, error) {
	cr := chatRequest{
		Model:       o.Model,
		Temperature: r.Temperature,
		MaxTokens:   maxTokens(r.MaxTokens),
	}
	if r.System != "" {
		cr.Messages = append(cr.Messages, chatMessage{Role: "system", Content: r.System})
	}
	cr.Messages = append(cr.Messages, chatMessage{Role: "user", Content: r.Prompt})
	if r.JSONSchema != nil {
		name := r.SchemaName
		if name == "" {
			name = "response"
		}
		cr.ResponseFormat = &responseFormat{
			Type:       "json_schema",
			JSONSchema: &jsonSchema{Name: name, Strict: true, Schema: r.JSONSchema},
		}
	}

	body, err := json.Marshal(cr)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := openRouterAPIURL
	if o.BaseURL != "" {
		url = strings.TrimSuffix(o.BaseURL, "/") + "/chat/completions"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.APIKey)

	resp, err := o.HTTP.Do(ctx, req)
	if err != nil {
		return "", fmt.Errorf("calling OpenRouter API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OpenRouter API: %w", httputil.ReadError(resp))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding OpenRouter response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("OpenRouter API: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}
	return out.Choices[0].Message.Content, nil
}
