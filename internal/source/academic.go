// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// Academic adapts the scholarly paper search.
type Academic struct {
	Search     PaperSearcher
	Confidence types.ConfidenceTable
	Drafter    *Drafter
	Logger     *zap.Logger
}

func (a *Academic) ID() types.SourceID { return types.SourceAcademic }

func (a *Academic) Fetch(ctx context.Context, query string, _ Session) types.SourceResult {
	if a.Search == nil {
		return fail(ctx, a.Logger, types.SourceAcademic, ErrUnavailable)
	}

	papers, err := a.Search.Search(ctx, query)
	if err != nil {
		return fail(ctx, a.Logger, types.SourceAcademic, err)
	}
	if len(papers) == 0 {
		return Empty(types.SourceAcademic, papers)
	}

	var (
		citations []types.Citation
		evidence  []string
	)
	for _, p := range papers {
		locator := p.URL
		if locator == "" {
			locator = p.Identifier
		}
		if p.Title == "" || locator == "" {
			continue
		}
		citations = append(citations, types.Citation{
			Label:   p.Title,
			Locator: locator,
			Content: snippet(p.Abstract),
		})
		evidence = append(evidence, fmt.Sprintf("[%s] %s: %s", p.Title, byline(p), collapse(p.Abstract)))
	}
	if len(citations) == 0 {
		return fail(ctx, a.Logger, types.SourceAcademic, fmt.Errorf("%w: papers without title or locator", ErrMalformed))
	}

	return types.SourceResult{
		SourceID:   types.SourceAcademic,
		Status:     types.StatusOK,
		Answer:     a.Drafter.Draft(ctx, types.SourceAcademic, query, strings.Join(evidence, "\n\n")),
		Citations:  citations,
		Confidence: a.Confidence.For(types.SourceAcademic),
		RawPayload: papers,
	}
}

// byline renders "First Author et al. (2017)".
func byline(p types.Paper) string {
	var b strings.Builder
	switch len(p.Authors) {
	case 0:
		b.WriteString("Unknown authors")
	case 1:
		b.WriteString(p.Authors[0])
	default:
		b.WriteString(p.Authors[0] + " et al.")
	}
	if !p.Date.IsZero() {
		fmt.Fprintf(&b, " (%d)", p.Date.Year())
	}
	return b.String()
}
