// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm is a small completion client over the Anthropic Messages API
// and the OpenRouter chat completions API. The evaluator, the synthesizer,
// and the per-source drafter all talk to the model through Client.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/research-assistant/internal/httputil"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// ErrEmptyResponse is returned when the model answers with no text.
var ErrEmptyResponse = errors.New("model returned no text")

// Request is one completion call.
type Request struct {
	System string
	Prompt string

	Temperature float64
	MaxTokens   int

	// SchemaName and JSONSchema ask for a structured JSON answer. Providers
	// that support schema enforcement pass it through; the others get the
	// schema in the system prompt.
	SchemaName string
	JSONSchema map[string]any
}

// Client completes a prompt and returns the model text.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// NewClient returns the client for cfg.Provider.
func NewClient(cfg types.LLMConfig, hc *httputil.Client) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no API key configured for %s", cfg.Provider)
	}
	var client httputil.Client
	if hc != nil {
		client = *hc
	}
	client.MaxRetries = cfg.MaxRetries
	switch cfg.Provider {
	case types.ProviderAnthropic, "":
		return &Claude{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL, HTTP: &client}, nil
	case types.ProviderOpenRouter:
		return &OpenRouter{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL, HTTP: &client}, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}

// ExtractJSON returns the first balanced JSON object in s. Models often
// wrap JSON in code fences or prose; everything outside the object is
// dropped. Strings are scanned so braces inside them do not count.
func ExtractJSON(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", fmt.Errorf("no JSON object in model output")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unterminated JSON object in model output")
}

func schemaInstruction(req Request) string {
	if req.JSONSchema == nil {
		return req.System
	}
	var b strings.Builder
	b.WriteString(req.System)
	if req.System != "" {
		b.WriteString("\n\n")
	}
	b.WriteString("Respond with a single JSON object that matches this JSON schema exactly. Do not include any text outside the JSON object.\n")
	b.WriteString(mustJSON(req.JSONSchema))
	return b.String()
}
