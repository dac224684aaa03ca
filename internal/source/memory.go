// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// memoryLabel is the citation label of recalled conversation turns.
const memoryLabel = "conversation"

// Memory adapts the conversation memory for the query's session.
type Memory struct {
	Store      MemoryRecaller
	Confidence types.ConfidenceTable
	Drafter    *Drafter
	Logger     *zap.Logger
}

func (m *Memory) ID() types.SourceID { return types.SourceMemory }

func (m *Memory) Fetch(ctx context.Context, query string, session Session) types.SourceResult {
	if m.Store == nil {
		return fail(ctx, m.Logger, types.SourceMemory, ErrUnavailable)
	}

	rec, err := m.Store.Recall(ctx, session.ID())
	if err != nil {
		return fail(ctx, m.Logger, types.SourceMemory, err)
	}

	var (
		citations []types.Citation
		turns     []string
	)
	for i, turn := range rec.Context {
		if blankTurn(turn) {
			continue
		}
		citations = append(citations, types.Citation{
			Label:   memoryLabel,
			Locator: fmt.Sprintf("turn-%d", i+1),
			Content: snippet(turn),
		})
		turns = append(turns, turn)
	}
	if !rec.Found || len(turns) == 0 {
		return Empty(types.SourceMemory, rec)
	}

	return types.SourceResult{
		SourceID:   types.SourceMemory,
		Status:     types.StatusOK,
		Answer:     m.Drafter.Draft(ctx, types.SourceMemory, query, strings.Join(turns, "\n")),
		Citations:  citations,
		Confidence: m.Confidence.For(types.SourceMemory),
		RawPayload: rec,
	}
}

// blankTurn reports whether a "role: content" line carries no content.
func blankTurn(turn string) bool {
	for _, role := range []string{types.RoleUser, types.RoleAssistant} {
		if rest, ok := strings.CutPrefix(strings.TrimSpace(turn), role+":"); ok {
			return strings.TrimSpace(rest) == ""
		}
	}
	return strings.TrimSpace(turn) == ""
}
