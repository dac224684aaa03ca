// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evaluate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/internal/llm"
	"github.com/pdiddy/research-assistant/pkg/types"
)

type mockJudge struct {
	verdict    Verdict
	err        error
	called     bool
	candidates []types.SourceResult
}

func (m *mockJudge) Judge(_ context.Context, _ string, candidates []types.SourceResult) (Verdict, error) {
	m.called = true
	m.candidates = candidates
	return m.verdict, m.err
}

type mockLLM struct {
	text string
	err  error
	req  llm.Request
}

func (m *mockLLM) Complete(_ context.Context, r llm.Request) (string, error) {
	m.req = r
	return m.text, m.err
}

func boolPtr(b bool) *bool { return &b }
func floatPtr(f float64) *float64 { return &f }

func results() map[types.SourceID]types.SourceResult {
	return map[types.SourceID]types.SourceResult{
		types.SourceDocument: {SourceID: types.SourceDocument, Status: types.StatusOK, Answer: "doc evidence", Confidence: 0.62},
		types.SourceMemory:   {SourceID: types.SourceMemory, Status: types.StatusInsufficient, Answer: "no relevant information found"},
		types.SourceWeb:      {SourceID: types.SourceWeb, Status: types.StatusOK, Answer: "web evidence", Confidence: 0.97},
		types.SourceAcademic: {SourceID: types.SourceAcademic, Status: types.StatusError, Answer: "academic search failed"},
	}
}

func TestEvaluateOnlySendsOKSources(t *testing.T) {
	j := &mockJudge{verdict: Verdict{
		Sources: []SourceVerdict{
			{SourceID: "WEB", Include: boolPtr(true), Relevance: floatPtr(0.8)},
			{SourceID: "document", Include: boolPtr(false), Relevance: floatPtr(0.1)},
		},
		Reasoning: "web answers it",
	}}
	e := &Evaluator{Judge: j, Logger: zap.NewNop()}

	eval := e.Evaluate(context.Background(), "q", results())
	require.Len(t, j.candidates, 2)
	assert.Equal(t, types.SourceDocument, j.candidates[0].SourceID)
	assert.Equal(t, types.SourceWeb, j.candidates[1].SourceID)

	assert.False(t, eval.Fallback)
	assert.Equal(t, []types.SourceID{types.SourceWeb}, eval.RelevantSourceIDs)
	assert.Equal(t, 0.8, eval.RelevanceScores[types.SourceWeb])
	assert.Equal(t, 0.1, eval.RelevanceScores[types.SourceDocument])
	assert.Equal(t, 0.0, eval.RelevanceScores[types.SourceMemory])
	assert.Equal(t, 0.0, eval.RelevanceScores[types.SourceAcademic])
	assert.Len(t, eval.RelevanceScores, 4)
	assert.Equal(t, "web answers it", eval.Reasoning)
}

func TestEvaluateFallback(t *testing.T) {
	tests := []struct {
		name  string
		judge Judge
	}{
		{"judge error", &mockJudge{err: errors.New("HTTP 500")}},
		{"missing candidate", &mockJudge{verdict: Verdict{Sources: []SourceVerdict{
			{SourceID: "WEB", Include: boolPtr(true), Relevance: floatPtr(0.8)},
		}}}},
		{"non-candidate source", &mockJudge{verdict: Verdict{Sources: []SourceVerdict{
			{SourceID: "WEB", Include: boolPtr(true), Relevance: floatPtr(0.8)},
			{SourceID: "DOCUMENT", Include: boolPtr(true), Relevance: floatPtr(0.8)},
			{SourceID: "MEMORY", Include: boolPtr(true), Relevance: floatPtr(0.8)},
		}}}},
		{"unknown source", &mockJudge{verdict: Verdict{Sources: []SourceVerdict{
			{SourceID: "WEB", Include: boolPtr(true), Relevance: floatPtr(0.8)},
			{SourceID: "DOCUMENT", Include: boolPtr(true), Relevance: floatPtr(0.8)},
			{SourceID: "ORACLE", Include: boolPtr(true), Relevance: floatPtr(0.8)},
		}}}},
		{"relevance out of range", &mockJudge{verdict: Verdict{Sources: []SourceVerdict{
			{SourceID: "WEB", Include: boolPtr(true), Relevance: floatPtr(1.3)},
			{SourceID: "DOCUMENT", Include: boolPtr(true), Relevance: floatPtr(0.2)},
		}}}},
		{"missing include", &mockJudge{verdict: Verdict{Sources: []SourceVerdict{
			{SourceID: "WEB", Relevance: floatPtr(0.5)},
			{SourceID: "DOCUMENT", Include: boolPtr(true), Relevance: floatPtr(0.2)},
		}}}},
		{"no judge", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Evaluator{Judge: tt.judge}
			eval := e.Evaluate(context.Background(), "q", results())
			assert.True(t, eval.Fallback)
			assert.Equal(t, []types.SourceID{types.SourceDocument, types.SourceWeb}, eval.RelevantSourceIDs)
			assert.Equal(t, 0.62, eval.RelevanceScores[types.SourceDocument])
			assert.Equal(t, 0.97, eval.RelevanceScores[types.SourceWeb])
			assert.Equal(t, 0.0, eval.RelevanceScores[types.SourceAcademic])
			assert.Equal(t, fallbackReasoning, eval.Reasoning)
		})
	}
}

func TestEvaluateNoCandidatesSkipsJudge(t *testing.T) {
	j := &mockJudge{}
	in := map[types.SourceID]types.SourceResult{
		types.SourceWeb: {SourceID: types.SourceWeb, Status: types.StatusError},
	}
	eval := (&Evaluator{Judge: j}).Evaluate(context.Background(), "q", in)
	assert.False(t, j.called)
	assert.Empty(t, eval.RelevantSourceIDs)
	assert.NotNil(t, eval.RelevantSourceIDs)
	assert.False(t, eval.Fallback)
	assert.Len(t, eval.RelevanceScores, 4)
}

func TestLLMJudge(t *testing.T) {
	m := &mockLLM{text: "```json\n" + `{"sources":[{"source_id":"DOCUMENT","include":true,"relevance":0.9,"reason":"on topic"},{"source_id":"WEB","include":false,"relevance":0.2,"reason":"off topic"}],"reasoning":"docs cover it"}` + "\n```"}
	j := &LLMJudge{LLM: m, MaxTokens: 512}
	e := &Evaluator{Judge: j}

	eval := e.Evaluate(context.Background(), "what is FTS5?", results())
	assert.False(t, eval.Fallback)
	assert.Equal(t, []types.SourceID{types.SourceDocument}, eval.RelevantSourceIDs)
	assert.Equal(t, 0.9, eval.RelevanceScores[types.SourceDocument])

	assert.Equal(t, "relevance_verdict", m.req.SchemaName)
	assert.NotNil(t, m.req.JSONSchema)
	assert.Contains(t, m.req.Prompt, "what is FTS5?")
	assert.Contains(t, m.req.Prompt, "### DOCUMENT (adapter confidence 0.62)")
	assert.Contains(t, m.req.Prompt, "web evidence")
	assert.NotContains(t, m.req.Prompt, "academic search failed")
}

func TestRenderPromptListsCitations(t *testing.T) {
	cites := []types.Citation{{Label: "report.pdf", Locator: "p4", Content: "Revenue\n  grew 12%"}}
	for i := 0; i < 15; i++ {
		cites = append(cites, types.Citation{Label: "extra", Locator: fmt.Sprintf("chunk-%d", i)})
	}
	prompt, err := renderPrompt("how did revenue change?", []types.SourceResult{
		{SourceID: types.SourceDocument, Status: types.StatusOK, Answer: "Drafted summary without labels.", Confidence: 0.7, Citations: cites},
		{SourceID: types.SourceWeb, Status: types.StatusOK, Answer: "web evidence", Confidence: 0.97},
	})
	require.NoError(t, err)

	assert.Contains(t, prompt, "Drafted summary without labels.")
	assert.Contains(t, prompt, `- label: "report.pdf" locator: "p4"`)
	assert.Contains(t, prompt, "  Revenue grew 12%")
	assert.Contains(t, prompt, `locator: "chunk-8"`)
	assert.NotContains(t, prompt, `locator: "chunk-9"`)
	assert.Equal(t, 1, strings.Count(prompt, "Citations:"))
}

func TestParseVerdict(t *testing.T) {
	_, err := ParseVerdict(`{"sources":[],"reasoning":"x","extra":1}`)
	assert.ErrorIs(t, err, ErrMalformedVerdict)

	_, err = ParseVerdict("I cannot decide.")
	assert.ErrorIs(t, err, ErrMalformedVerdict)

	v, err := ParseVerdict(`Here you go: {"sources":[{"source_id":"WEB","include":true,"relevance":1,"reason":"r"}],"reasoning":"ok"}`)
	require.NoError(t, err)
	require.Len(t, v.Sources, 1)
	assert.Equal(t, 1.0, *v.Sources[0].Relevance)
}

func TestValidateDuplicate(t *testing.T) {
	cands := []types.SourceResult{{SourceID: types.SourceWeb, Status: types.StatusOK}}
	err := Validate(Verdict{Sources: []SourceVerdict{
		{SourceID: "WEB", Include: boolPtr(true), Relevance: floatPtr(0.5)},
		{SourceID: "WEB", Include: boolPtr(true), Relevance: floatPtr(0.5)},
	}}, cands)
	assert.ErrorIs(t, err, ErrMalformedVerdict)
}
