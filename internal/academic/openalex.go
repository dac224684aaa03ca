// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package academic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/research-assistant/internal/httputil"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// openAlexAPIBase is the OpenAlex works endpoint. Declared as a var so tests
// can substitute an httptest server.
var openAlexAPIBase = "https://api.openalex.org/works"

// OpenAlexBackend searches OpenAlex works. Mailto puts requests in the
// polite pool.
type OpenAlexBackend struct {
	HTTP   *httputil.Client
	Mailto string
}

func (b *OpenAlexBackend) Name() string { return "openalex" }

func (b *OpenAlexBackend) Search(ctx context.Context, query string, limit int) ([]types.Paper, error) {
	params := url.Values{
		"search":   {query},
		"per-page": {strconv.Itoa(limit)},
	}
	if b.Mailto != "" {
		params.Set("mailto", b.Mailto)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, openAlexAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := httpClient(b.HTTP).Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAlex API returned HTTP %d", resp.StatusCode)
	}

	var oa openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&oa); err != nil {
		return nil, fmt.Errorf("parsing OpenAlex response: %w", err)
	}

	total := len(oa.Results)
	papers := make([]types.Paper, 0, total)
	for i, w := range oa.Results {
		p := types.Paper{
			Identifier:     strings.TrimPrefix(w.DOI, "https://doi.org/"),
			Title:          w.DisplayName,
			Abstract:       invertAbstract(w.AbstractInvertedIndex),
			Source:         "openalex",
			RelevanceScore: positionScore(i, total),
		}
		if p.Identifier == "" {
			p.Identifier = w.ID
		}
		for _, a := range w.Authorships {
			p.Authors = append(p.Authors, a.Author.DisplayName)
		}
		if t, err := time.Parse("2006-01-02", w.PublicationDate); err == nil {
			p.Date = t
		} else if w.PublicationYear > 0 {
			p.Date = time.Date(w.PublicationYear, 1, 1, 0, 0, 0, 0, time.UTC)
		}
		switch {
		case w.BestOALocation != nil && w.BestOALocation.LandingURL != "":
			p.URL = w.BestOALocation.LandingURL
		case w.DOI != "":
			p.URL = w.DOI
		default:
			p.URL = w.ID
		}
		papers = append(papers, p)
	}
	return papers, nil
}

// invertAbstract rebuilds the plain abstract from OpenAlex's word-to-positions
// index.
func invertAbstract(index map[string][]int) string {
	if len(index) == 0 {
		return ""
	}
	type word struct {
		pos  int
		text string
	}
	var words []word
	for w, positions := range index {
		for _, p := range positions {
			words = append(words, word{pos: p, text: w})
		}
	}
	sort.Slice(words, func(i, j int) bool { return words[i].pos < words[j].pos })
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = w.text
	}
	return strings.Join(out, " ")
}

type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID                    string               `json:"id"`
	DOI                   string               `json:"doi"`
	DisplayName           string               `json:"display_name"`
	PublicationYear       int                  `json:"publication_year"`
	PublicationDate       string               `json:"publication_date"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	AbstractInvertedIndex map[string][]int     `json:"abstract_inverted_index"`
	BestOALocation        *openAlexLocation    `json:"best_oa_location"`
}

type openAlexAuthorship struct {
	Author struct {
		DisplayName string `json:"display_name"`
	} `json:"author"`
}

type openAlexLocation struct {
	PDFURL     string `json:"pdf_url"`
	LandingURL string `json:"landing_page_url"`
}
