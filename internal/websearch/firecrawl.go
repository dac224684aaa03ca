// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package websearch queries the Firecrawl search API for current web content.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/pdiddy/research-assistant/internal/httputil"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// firecrawlAPIURL is the Firecrawl search endpoint. Package-level var for
// test substitution.
var firecrawlAPIURL = "https://api.firecrawl.dev/v1/search"

// ErrMalformed is returned when Firecrawl answers with a body that does not
// follow its documented shape or reports success=false.
var ErrMalformed = errors.New("malformed web search response")

// maxContent bounds the page text kept per result.
const maxContent = 4000

// Firecrawl searches the web through Firecrawl.
type Firecrawl struct {
	APIKey     string
	MaxResults int
	HTTP       *httputil.Client
}

// New returns a Firecrawl client from the web settings.
func New(cfg types.WebConfig, hc *httputil.Client) *Firecrawl {
	return &Firecrawl{APIKey: cfg.APIKey, MaxResults: cfg.MaxResults, HTTP: hc}
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type searchResponse struct {
	Success *bool `json:"success"`
	Data    []struct {
		Title       string `json:"title"`
		URL         string `json:"url"`
		Description string `json:"description"`
		Markdown    string `json:"markdown"`
	} `json:"data"`
	Error string `json:"error"`
}

// Search returns up to MaxResults pages for query. Results without a URL
// are dropped. A page's markdown is preferred over its description.
func (f *Firecrawl) Search(ctx context.Context, query string) ([]types.WebResult, error) {
	if f.APIKey == "" {
		return nil, errors.New("firecrawl API key not configured")
	}
	limit := f.MaxResults
	if limit <= 0 {
		limit = 5
	}

	body, err := json.Marshal(searchRequest{Query: query, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, firecrawlAPIURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.APIKey)

	resp, err := f.HTTP.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("calling Firecrawl: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Firecrawl: %w", httputil.ReadError(resp))
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if sr.Success == nil {
		return nil, fmt.Errorf("%w: missing success flag", ErrMalformed)
	}
	if !*sr.Success {
		return nil, fmt.Errorf("%w: %s", ErrMalformed, sr.Error)
	}

	results := make([]types.WebResult, 0, len(sr.Data))
	for _, d := range sr.Data {
		if d.URL == "" {
			continue
		}
		content := strings.TrimSpace(d.Markdown)
		if content == "" {
			content = strings.TrimSpace(d.Description)
		}
		if len(content) > maxContent {
			content = content[:maxContent]
		}
		title := strings.TrimSpace(d.Title)
		if title == "" {
			title = d.URL
		}
		results = append(results, types.WebResult{Title: title, URL: d.URL, Content: content})
		if len(results) == limit {
			break
		}
	}
	return results, nil
}
