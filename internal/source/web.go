// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// Web adapts the web search collaborator.
type Web struct {
	Search     WebSearcher
	Confidence types.ConfidenceTable
	Drafter    *Drafter
	Logger     *zap.Logger
}

func (w *Web) ID() types.SourceID { return types.SourceWeb }

func (w *Web) Fetch(ctx context.Context, query string, _ Session) types.SourceResult {
	if w.Search == nil {
		return fail(ctx, w.Logger, types.SourceWeb, ErrUnavailable)
	}

	results, err := w.Search.Search(ctx, query)
	if err != nil {
		return fail(ctx, w.Logger, types.SourceWeb, err)
	}
	if len(results) == 0 {
		return Empty(types.SourceWeb, results)
	}

	var (
		citations []types.Citation
		evidence  []string
	)
	for _, r := range results {
		if r.URL == "" {
			continue
		}
		label := r.Title
		if label == "" {
			label = r.URL
		}
		citations = append(citations, types.Citation{
			Label:   label,
			Locator: r.URL,
			Content: snippet(r.Content),
		})
		evidence = append(evidence, fmt.Sprintf("[%s] %s", label, collapse(r.Content)))
	}
	if len(citations) == 0 {
		return fail(ctx, w.Logger, types.SourceWeb, fmt.Errorf("%w: no result carried a URL", ErrMalformed))
	}

	return types.SourceResult{
		SourceID:   types.SourceWeb,
		Status:     types.StatusOK,
		Answer:     w.Drafter.Draft(ctx, types.SourceWeb, query, strings.Join(evidence, "\n\n")),
		Citations:  citations,
		Confidence: w.Confidence.For(types.SourceWeb),
		RawPayload: results,
	}
}
