// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package academic queries scholarly search APIs (arXiv, Semantic Scholar,
// OpenAlex) and returns unified, deduplicated paper lists.
package academic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"unicode"

	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/internal/httputil"
	"github.com/pdiddy/research-assistant/internal/sanitize"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// Backend searches a single academic API.
type Backend interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]types.Paper, error)
}

// Searcher fans a query out to every backend concurrently, merges
// duplicates, and keeps the best MaxResults papers.
type Searcher struct {
	Backends   []Backend
	MaxResults int
	Logger     *zap.Logger
}

// New builds a Searcher with the backends enabled in cfg.
func New(cfg types.AcademicConfig, hc *httputil.Client, logger *zap.Logger) *Searcher {
	s := &Searcher{MaxResults: cfg.MaxResults, Logger: logger}
	if cfg.EnableArxiv {
		s.Backends = append(s.Backends, &ArxivBackend{HTTP: hc})
	}
	if cfg.EnableSemanticScholar {
		s.Backends = append(s.Backends, &SemanticScholarBackend{HTTP: hc, APIKey: cfg.SemanticScholarAPIKey})
	}
	if cfg.EnableOpenAlex {
		s.Backends = append(s.Backends, &OpenAlexBackend{HTTP: hc, Mailto: cfg.OpenAlexMailto})
	}
	return s
}

// Search returns the merged papers. Failures of individual backends are
// logged and tolerated; an error is returned only when every backend failed.
func (s *Searcher) Search(ctx context.Context, query string) ([]types.Paper, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query is empty")
	}
	if len(s.Backends) == 0 {
		return nil, errors.New("no academic backends configured")
	}
	limit := s.MaxResults
	if limit <= 0 {
		limit = 5
	}
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// Each backend writes only its own slot, so merging in slot order keeps
	// the result independent of which backend answered first.
	type backendResult struct {
		papers []types.Paper
		err    error
	}
	slots := make([]backendResult, len(s.Backends))
	var wg sync.WaitGroup
	for i, b := range s.Backends {
		wg.Add(1)
		go func(i int, b Backend) {
			defer wg.Done()
			papers, err := b.Search(ctx, query, limit)
			slots[i] = backendResult{papers: papers, err: err}
		}(i, b)
	}
	wg.Wait()

	var (
		all  []types.Paper
		errs []error
	)
	for i, br := range slots {
		name := s.Backends[i].Name()
		if br.err != nil {
			logger.Warn("academic backend failed",
				zap.String("backend", name),
				zap.String("error", sanitize.Error(br.err)))
			errs = append(errs, fmt.Errorf("%s: %w", name, br.err))
			continue
		}
		all = append(all, br.papers...)
	}
	if len(errs) == len(s.Backends) {
		return nil, errors.Join(errs...)
	}

	deduped := deduplicate(all)
	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].RelevanceScore > deduped[j].RelevanceScore
	})
	if len(deduped) > limit {
		deduped = deduped[:limit]
	}
	return deduped, nil
}

// deduplicate merges papers that share an identifier or normalized title.
func deduplicate(papers []types.Paper) []types.Paper {
	seen := make(map[string]int)
	var out []types.Paper

	for _, p := range papers {
		var keys []string
		if p.Identifier != "" {
			keys = append(keys, "id:"+strings.ToLower(p.Identifier))
		}
		if t := normalizeTitle(p.Title); t != "" {
			keys = append(keys, "title:"+t)
		}

		merged := false
		for _, k := range keys {
			if idx, ok := seen[k]; ok {
				mergeInto(&out[idx], p)
				merged = true
				break
			}
		}
		if merged {
			continue
		}

		idx := len(out)
		out = append(out, p)
		for _, k := range keys {
			seen[k] = idx
		}
	}
	return out
}

// mergeInto fills empty fields of dst from src and keeps the higher score.
func mergeInto(dst *types.Paper, src types.Paper) {
	if dst.Title == "" {
		dst.Title = src.Title
	}
	if len(dst.Authors) == 0 {
		dst.Authors = src.Authors
	}
	if dst.Abstract == "" {
		dst.Abstract = src.Abstract
	}
	if dst.URL == "" {
		dst.URL = src.URL
	}
	if dst.Date.IsZero() {
		dst.Date = src.Date
	}
	if src.RelevanceScore > dst.RelevanceScore {
		dst.RelevanceScore = src.RelevanceScore
	}
	if src.Source != "" && !strings.Contains(dst.Source, src.Source) {
		dst.Source = dst.Source + "," + src.Source
	}
}

// normalizeTitle returns a lowercased, punctuation-stripped version of the title.
func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// positionScore gives the first of total results 1.0 and the last 0.1.
func positionScore(i, total int) float64 {
	if total <= 1 {
		return 1.0
	}
	return 1.0 - float64(i)/float64(total-1)*0.9
}

func httpClient(hc *httputil.Client) *httputil.Client {
	if hc == nil {
		return &httputil.Client{HTTP: http.DefaultClient}
	}
	return hc
}
