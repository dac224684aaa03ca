// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package academic

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pdiddy/research-assistant/internal/httputil"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// ArxivBackend queries the arXiv API.
type ArxivBackend struct {
	HTTP *httputil.Client
}

func (b *ArxivBackend) Name() string { return "arxiv" }

func (b *ArxivBackend) Search(ctx context.Context, query string, limit int) ([]types.Paper, error) {
	q := buildArxivQuery(query)
	if q == "" {
		return nil, fmt.Errorf("empty arXiv query")
	}

	reqURL := fmt.Sprintf("%s?search_query=%s&start=0&max_results=%d&sortBy=relevance&sortOrder=descending",
		arxivAPIBase, q, limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := httpClient(b.HTTP).Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	total := len(feed.Entries)
	var papers []types.Paper
	for i, entry := range feed.Entries {
		arxivID := extractArxivID(entry.ID)
		if arxivID == "" {
			continue
		}

		p := types.Paper{
			Identifier:     arxivID,
			Title:          collapseSpace(entry.Title),
			Abstract:       collapseSpace(entry.Summary),
			URL:            "https://arxiv.org/abs/" + arxivID,
			Source:         "arxiv",
			RelevanceScore: positionScore(i, total),
		}
		for _, a := range entry.Authors {
			p.Authors = append(p.Authors, strings.TrimSpace(a.Name))
		}
		if t, err := time.Parse(time.RFC3339, entry.Published); err == nil {
			p.Date = t
		}
		papers = append(papers, p)
	}
	return papers, nil
}

// buildArxivQuery turns a natural-language question into an all: query
// over its significant words.
func buildArxivQuery(q string) string {
	var terms []string
	for _, w := range strings.FieldsFunc(strings.ToLower(q), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	}) {
		if len(w) < 3 || questionWords[w] {
			continue
		}
		terms = append(terms, url.QueryEscape(w))
	}
	if len(terms) == 0 {
		return ""
	}
	return "all:" + strings.Join(terms, "+AND+all:")
}

var questionWords = map[string]bool{
	"what": true, "which": true, "how": true, "why": true, "when": true, "who": true,
	"the": true, "does": true, "are": true, "and": true, "for": true, "with": true,
	"about": true, "tell": true, "explain": true, "from": true, "into": true, "that": true,
	"this": true, "there": true, "their": true, "between": true,
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string        `xml:"id"`
	Title     string        `xml:"title"`
	Summary   string        `xml:"summary"`
	Published string        `xml:"published"`
	Authors   []arxivAuthor `xml:"author"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" is "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}
