// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package academic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pdiddy/research-assistant/internal/httputil"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// semanticAPIBase is the Semantic Scholar paper search endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

const semanticFields = "title,abstract,authors,externalIds,year,publicationDate,url"

// SemanticScholarBackend queries the Semantic Scholar API.
type SemanticScholarBackend struct {
	HTTP   *httputil.Client
	APIKey string
}

func (b *SemanticScholarBackend) Name() string { return "semantic_scholar" }

func (b *SemanticScholarBackend) Search(ctx context.Context, query string, limit int) ([]types.Paper, error) {
	params := url.Values{
		"query":  {query},
		"limit":  {strconv.Itoa(limit)},
		"fields": {semanticFields},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, semanticAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if b.APIKey != "" {
		req.Header.Set("x-api-key", b.APIKey)
	}

	resp, err := httpClient(b.HTTP).Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Semantic Scholar API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Semantic Scholar API returned HTTP %d", resp.StatusCode)
	}

	var sr semanticResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing Semantic Scholar response: %w", err)
	}

	total := len(sr.Data)
	papers := make([]types.Paper, 0, total)
	for i, sp := range sr.Data {
		p := types.Paper{
			Title:          sp.Title,
			Abstract:       sp.Abstract,
			URL:            sp.URL,
			Source:         "semantic_scholar",
			RelevanceScore: positionScore(i, total),
		}
		for _, a := range sp.Authors {
			p.Authors = append(p.Authors, a.Name)
		}
		if sp.PublicationDate != "" {
			if t, err := time.Parse("2006-01-02", sp.PublicationDate); err == nil {
				p.Date = t
			}
		} else if sp.Year > 0 {
			p.Date = time.Date(sp.Year, 1, 1, 0, 0, 0, 0, time.UTC)
		}

		// Prefer the arXiv ID so results merge with the arXiv backend.
		switch {
		case sp.ExternalIDs.ArXiv != "":
			p.Identifier = sp.ExternalIDs.ArXiv
		case sp.ExternalIDs.DOI != "":
			p.Identifier = sp.ExternalIDs.DOI
		default:
			p.Identifier = sp.PaperID
		}
		if p.URL == "" && sp.PaperID != "" {
			p.URL = "https://www.semanticscholar.org/paper/" + sp.PaperID
		}
		papers = append(papers, p)
	}
	return papers, nil
}

type semanticResponse struct {
	Total int             `json:"total"`
	Data  []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID         string              `json:"paperId"`
	Title           string              `json:"title"`
	Abstract        string              `json:"abstract"`
	URL             string              `json:"url"`
	Year            int                 `json:"year"`
	PublicationDate string              `json:"publicationDate"`
	Authors         []semanticAuthor    `json:"authors"`
	ExternalIDs     semanticExternalIDs `json:"externalIds"`
}

type semanticAuthor struct {
	Name string `json:"name"`
}

type semanticExternalIDs struct {
	DOI   string `json:"DOI"`
	ArXiv string `json:"ArXiv"`
}
