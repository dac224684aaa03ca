// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/research-assistant/pkg/types"
)

func TestPrintResponseOK(t *testing.T) {
	resp := types.QueryResponse{
		FinalResponse: types.FinalResponse{
			Status:     types.FinalOK,
			SourceUsed: types.SourceDocument,
			Answer:     "Revenue grew 12%.",
			Citations:  []types.Citation{{Label: "report.pdf", Locator: "p4"}},
			Confidence: 0.8,
			Missing:    []string{},
		},
		ContextSources: map[types.SourceID]types.SourceResult{
			types.SourceDocument: {SourceID: types.SourceDocument, Status: types.StatusOK, Confidence: 0.7},
			types.SourceMemory:   {SourceID: types.SourceMemory, Status: types.StatusInsufficient},
			types.SourceWeb:      {SourceID: types.SourceWeb, Status: types.StatusError},
			types.SourceAcademic: {SourceID: types.SourceAcademic, Status: types.StatusInsufficient},
		},
		EvaluationResult: types.EvaluationResult{
			RelevantSourceIDs: []types.SourceID{types.SourceDocument},
			RelevanceScores:   map[types.SourceID]float64{types.SourceDocument: 0.9},
		},
	}

	var b strings.Builder
	printResponse(&b, resp)
	out := b.String()

	assert.True(t, strings.HasPrefix(out, "Revenue grew 12%.\n"))
	assert.Contains(t, out, "[1] report.pdf (p4)")
	assert.Contains(t, out, "Source used: DOCUMENT")
	assert.NotContains(t, out, "Missing:")
	assert.Regexp(t, `DOCUMENT\s+OK\s+0\.70\s+0\.90\s+yes`, out)
	assert.Regexp(t, `WEB\s+ERROR\s+0\.00\s+0\.00`, out)
}

func TestPrintResponseInsufficient(t *testing.T) {
	resp := types.QueryResponse{
		FinalResponse: types.Insufficient("no source had information relevant to \"x\""),
		EvaluationResult: types.EvaluationResult{
			RelevantSourceIDs: []types.SourceID{},
			RelevanceScores:   map[types.SourceID]float64{},
			Fallback:          true,
		},
	}

	var b strings.Builder
	printResponse(&b, resp)
	out := b.String()

	assert.Contains(t, out, "Not enough context to answer.")
	assert.Contains(t, out, "- no source had information relevant to \"x\"")
	assert.Contains(t, out, "Source used: NONE")
	assert.Contains(t, out, "adapter confidences were used")
}

func TestClip(t *testing.T) {
	assert.Equal(t, "short", clip("short", 10))
	assert.Equal(t, "abcd...", clip("abcdefghij", 7))
	assert.Equal(t, "日本...", clip("日本語のテキスト", 5))
}

func TestCheckQuery(t *testing.T) {
	req := types.QueryRequest{Query: " \n\t  "}.Trimmed()
	assert.EqualError(t, checkQuery(req.Query), "query is empty")
	assert.EqualError(t, checkQuery(strings.Repeat("a", 4001)), "query is longer than 4000 characters")
	assert.NoError(t, checkQuery(strings.Repeat("日", 4000)))
}
