// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// Document adapts the document index. Its confidence is the best chunk
// score, so it reflects how well the query matched.
type Document struct {
	Index     DocumentSearcher
	MaxChunks int
	Drafter   *Drafter
	Logger    *zap.Logger
}

func (d *Document) ID() types.SourceID { return types.SourceDocument }

func (d *Document) Fetch(ctx context.Context, query string, _ Session) types.SourceResult {
	if d.Index == nil {
		return fail(ctx, d.Logger, types.SourceDocument, ErrUnavailable)
	}
	limit := d.MaxChunks
	if limit <= 0 {
		limit = 5
	}

	chunks, err := d.Index.Search(ctx, query, limit)
	if err != nil {
		return fail(ctx, d.Logger, types.SourceDocument, err)
	}

	var (
		citations []types.Citation
		evidence  []string
		best      float64
	)
	for _, c := range chunks {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		if c.Label == "" {
			return fail(ctx, d.Logger, types.SourceDocument, fmt.Errorf("%w: chunk without document label", ErrMalformed))
		}
		score := types.ClampUnit(c.Score)
		if score > best {
			best = score
		}
		citations = append(citations, chunkCitation(c, score))
		evidence = append(evidence, fmt.Sprintf("[%s %s] %s", c.Label, chunkLocator(c), collapse(c.Text)))
	}
	if len(citations) == 0 {
		return Empty(types.SourceDocument, chunks)
	}

	return types.SourceResult{
		SourceID:   types.SourceDocument,
		Status:     types.StatusOK,
		Answer:     d.Drafter.Draft(ctx, types.SourceDocument, query, strings.Join(evidence, "\n\n")),
		Citations:  citations,
		Confidence: best,
		RawPayload: chunks,
	}
}

// chunkLocator is "p<page>" when the page is known and "chunk-<n>" otherwise.
func chunkLocator(c types.Chunk) string {
	if c.Page > 0 {
		return fmt.Sprintf("p%d", c.Page)
	}
	return fmt.Sprintf("chunk-%d", c.ChunkIndex)
}

func chunkCitation(c types.Chunk, score float64) types.Citation {
	idx := c.ChunkIndex
	cit := types.Citation{
		Label:      c.Label,
		Locator:    chunkLocator(c),
		ChunkIndex: &idx,
		Score:      &score,
		Content:    snippet(c.Text),
	}
	if c.Page > 0 {
		page := c.Page
		cit.PageNumber = &page
	}
	return cit
}
