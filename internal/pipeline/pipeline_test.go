// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/internal/evaluate"
	"github.com/pdiddy/research-assistant/internal/fanout"
	"github.com/pdiddy/research-assistant/internal/memory"
	"github.com/pdiddy/research-assistant/internal/source"
	"github.com/pdiddy/research-assistant/internal/synthesize"
	"github.com/pdiddy/research-assistant/pkg/types"
)

type stubAdapter struct {
	id     types.SourceID
	result types.SourceResult
	panics bool
}

func (s *stubAdapter) ID() types.SourceID { return s.id }

func (s *stubAdapter) Fetch(context.Context, string, source.Session) types.SourceResult {
	if s.panics {
		panic("document index exploded")
	}
	return s.result
}

type includeAllJudge struct {
	relevance float64
	called    bool
}

func (j *includeAllJudge) Judge(_ context.Context, _ string, cands []types.SourceResult) (evaluate.Verdict, error) {
	j.called = true
	var v evaluate.Verdict
	for _, c := range cands {
		inc, rel := true, j.relevance
		v.Sources = append(v.Sources, evaluate.SourceVerdict{SourceID: string(c.SourceID), Include: &inc, Relevance: &rel})
	}
	v.Reasoning = "all relevant"
	return v, nil
}

// citeAllGenerator cites every evidence citation.
type citeAllGenerator struct {
	called bool
	block  bool
}

func (g *citeAllGenerator) Generate(ctx context.Context, p synthesize.Prompt) (string, error) {
	g.called = true
	if g.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	var cites []string
	for _, r := range p.Evidence {
		for _, c := range r.Citations {
			cites = append(cites, `{"label":"`+c.Label+`","locator":"`+c.Locator+`"}`)
		}
	}
	return `{"status":"OK","answer":"Combined answer.","citations":[` + strings.Join(cites, ",") + `],"confidence":0.88,"missing":[]}`, nil
}

func okResult(id types.SourceID, conf float64, label, locator string) types.SourceResult {
	return types.SourceResult{
		SourceID: id, Status: types.StatusOK, Answer: string(id) + " evidence", Confidence: conf,
		Citations: []types.Citation{{Label: label, Locator: locator}},
	}
}

func insufficient(id types.SourceID) types.SourceResult {
	return types.SourceResult{SourceID: id, Status: types.StatusInsufficient, Answer: source.NoMatchAnswer}
}

type testRig struct {
	pipeline *Pipeline
	judge    *includeAllJudge
	gen      *citeAllGenerator
	mem      *memory.CacheStore
}

func newRig(adapters ...source.Adapter) *testRig {
	d := 200 * time.Millisecond
	judge := &includeAllJudge{relevance: 0.9}
	gen := &citeAllGenerator{}
	mem := memory.NewCacheStore(types.MemoryConfig{MaxMessages: 10, TTL: time.Hour})
	return &testRig{
		judge: judge,
		gen:   gen,
		mem:   mem,
		pipeline: &Pipeline{
			Dispatcher:       fanout.New(types.SourceTimeouts{Document: d, Memory: d, Web: d, Academic: d}, zap.NewNop(), adapters...),
			Evaluator:        &evaluate.Evaluator{Judge: judge},
			Synthesizer:      &synthesize.Synthesizer{Generator: gen, MaxAttempts: 2},
			Memory:           mem,
			QueryTimeout:     2 * time.Second,
			MaxMessageLength: 500,
			Logger:           zap.NewNop(),
		},
	}
}

func TestScenarioAllSourcesAnswer(t *testing.T) {
	rig := newRig(
		&stubAdapter{id: types.SourceMemory, result: okResult(types.SourceMemory, 0.98, "conversation", "turn-1")},
		&stubAdapter{id: types.SourceDocument, result: okResult(types.SourceDocument, 0.81, "notes.md", "p2")},
		&stubAdapter{id: types.SourceWeb, result: okResult(types.SourceWeb, 0.97, "Site", "https://example.com")},
		&stubAdapter{id: types.SourceAcademic, result: okResult(types.SourceAcademic, 0.92, "Paper", "https://arxiv.org/abs/1")},
	)

	resp := rig.pipeline.Run(context.Background(), types.QueryRequest{Query: "what do we know?"})

	assert.Equal(t, types.FinalOK, resp.Status)
	assert.NotEmpty(t, resp.Answer)
	assert.Equal(t, types.SourceMemory, resp.SourceUsed)
	assert.Len(t, resp.Citations, 4)
	assert.Equal(t, 0.88, resp.Confidence)
	assert.Equal(t, types.AllSources, resp.EvaluationResult.RelevantSourceIDs)
	require.Len(t, resp.ContextSources, 4)
	assert.Equal(t, 0.81, resp.ContextSources[types.SourceDocument].Confidence)
	assert.Equal(t, 0.9, resp.EvaluationResult.RelevanceScores[types.SourceDocument])
}

func TestScenarioAllSourcesInsufficient(t *testing.T) {
	var adapters []source.Adapter
	for _, id := range types.AllSources {
		adapters = append(adapters, &stubAdapter{id: id, result: insufficient(id)})
	}
	rig := newRig(adapters...)

	resp := rig.pipeline.Run(context.Background(), types.QueryRequest{Query: "unknown topic"})

	assert.Equal(t, types.FinalInsufficientContext, resp.Status)
	assert.Equal(t, types.SourceNone, resp.SourceUsed)
	assert.Equal(t, 0.0, resp.Confidence)
	assert.NotEmpty(t, resp.Missing)
	assert.False(t, rig.judge.called)
	assert.False(t, rig.gen.called)
	assert.Len(t, resp.ContextSources, 4)
}

func TestScenarioDocumentPanics(t *testing.T) {
	rig := newRig(
		&stubAdapter{id: types.SourceDocument, panics: true},
		&stubAdapter{id: types.SourceMemory, result: okResult(types.SourceMemory, 0.98, "conversation", "turn-1")},
		&stubAdapter{id: types.SourceWeb, result: okResult(types.SourceWeb, 0.97, "Site", "https://example.com")},
		&stubAdapter{id: types.SourceAcademic, result: okResult(types.SourceAcademic, 0.92, "Paper", "https://arxiv.org/abs/1")},
	)

	resp := rig.pipeline.Run(context.Background(), types.QueryRequest{Query: "q"})

	require.Len(t, resp.ContextSources, 4)
	doc := resp.ContextSources[types.SourceDocument]
	assert.Equal(t, types.StatusError, doc.Status)
	assert.Equal(t, 0.0, doc.Confidence)
	assert.NotContains(t, doc.Answer, "exploded")

	assert.Equal(t, types.FinalOK, resp.Status)
	assert.Len(t, resp.Citations, 3)
	assert.False(t, resp.EvaluationResult.Includes(types.SourceDocument))
}

func TestTotalFailure(t *testing.T) {
	rig := newRig()
	resp := rig.pipeline.Run(context.Background(), types.QueryRequest{Query: "q"})
	assert.Equal(t, types.FinalInsufficientContext, resp.Status)
	for _, id := range types.AllSources {
		assert.Equal(t, types.StatusError, resp.ContextSources[id].Status)
	}
}

func TestDeadlineDuringSynthesis(t *testing.T) {
	rig := newRig(&stubAdapter{id: types.SourceWeb, result: okResult(types.SourceWeb, 0.97, "Site", "https://example.com")})
	rig.gen.block = true
	rig.pipeline.QueryTimeout = 50 * time.Millisecond

	resp := rig.pipeline.Run(context.Background(), types.QueryRequest{Query: "q"})
	assert.Equal(t, types.FinalInsufficientContext, resp.Status)
	assert.Equal(t, []string{synthesize.MissingDeadline}, resp.Missing)
}

type slowEvaluator struct{}

func (slowEvaluator) Evaluate(ctx context.Context, _ string, _ map[types.SourceID]types.SourceResult) types.EvaluationResult {
	<-ctx.Done()
	return types.EvaluationResult{RelevanceScores: map[types.SourceID]float64{}}
}

func TestDeadlineDuringEvaluation(t *testing.T) {
	rig := newRig(&stubAdapter{id: types.SourceWeb, result: okResult(types.SourceWeb, 0.97, "Site", "https://example.com")})
	rig.pipeline.Evaluator = slowEvaluator{}
	rig.pipeline.QueryTimeout = 30 * time.Millisecond

	resp := rig.pipeline.Run(context.Background(), types.QueryRequest{Query: "q"})
	assert.Equal(t, []string{synthesize.MissingDeadline}, resp.Missing)
	assert.False(t, rig.gen.called)
}

func TestMemoryWriteBack(t *testing.T) {
	rig := newRig(&stubAdapter{id: types.SourceWeb, result: okResult(types.SourceWeb, 0.97, "Site", "https://example.com")})
	rig.pipeline.MaxMessageLength = 60
	longQuery := strings.Repeat("tell me about sqlite full text search ", 5)

	rig.pipeline.Run(context.Background(), types.QueryRequest{Query: longQuery, UserID: "alice", ThreadID: "t9"})

	msgs, err := rig.mem.History(context.Background(), "alice:t9")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, types.RoleUser, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, memory.TruncationMarker)
	assert.Equal(t, types.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "Combined answer.", msgs[1].Content)
}

func TestMemoryWriteBackSkipsAnswerWhenInsufficient(t *testing.T) {
	rig := newRig()
	rig.pipeline.Run(context.Background(), types.QueryRequest{Query: "q"})

	msgs, err := rig.mem.History(context.Background(), "default_user:default_thread")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, types.RoleUser, msgs[0].Role)
}

type failingMemory struct {
	mu    sync.Mutex
	calls int
}

func (f *failingMemory) Append(context.Context, string, ...types.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return errors.New("database is locked")
}

func TestMemoryWriteFailureIsNotSurfaced(t *testing.T) {
	rig := newRig(&stubAdapter{id: types.SourceWeb, result: okResult(types.SourceWeb, 0.97, "Site", "https://example.com")})
	fm := &failingMemory{}
	rig.pipeline.Memory = fm

	resp := rig.pipeline.Run(context.Background(), types.QueryRequest{Query: "q"})
	assert.Equal(t, types.FinalOK, resp.Status)
	assert.Equal(t, 1, fm.calls)
}

type panickingSynth struct{}

func (panickingSynth) Synthesize(context.Context, string, []types.SourceResult, types.EvaluationResult) types.FinalResponse {
	panic("unexpected")
}

func TestRunRecoversPanic(t *testing.T) {
	rig := newRig(&stubAdapter{id: types.SourceWeb, result: okResult(types.SourceWeb, 0.97, "Site", "https://example.com")})
	rig.pipeline.Synthesizer = panickingSynth{}

	resp := rig.pipeline.Run(context.Background(), types.QueryRequest{Query: "q"})
	assert.Equal(t, types.FinalInsufficientContext, resp.Status)
	assert.Equal(t, []string{missingInternal}, resp.Missing)

	require.Len(t, resp.ContextSources, 4)
	assert.Equal(t, types.StatusOK, resp.ContextSources[types.SourceWeb].Status)
	assert.Equal(t, types.StatusError, resp.ContextSources[types.SourceDocument].Status)
	assert.Equal(t, []types.SourceID{types.SourceWeb}, resp.EvaluationResult.RelevantSourceIDs)
	assert.Len(t, resp.EvaluationResult.RelevanceScores, 4)

	turns, err := rig.mem.History(context.Background(), types.QueryRequest{}.SessionID())
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, types.RoleUser, turns[0].Role)
}

type panickingDispatcher struct{}

func (panickingDispatcher) Dispatch(context.Context, string, source.Session) map[types.SourceID]types.SourceResult {
	panic("dispatch failed")
}

func TestRunRecoversPanicBeforeDispatchCompletes(t *testing.T) {
	rig := newRig()
	rig.pipeline.Dispatcher = panickingDispatcher{}

	resp := rig.pipeline.Run(context.Background(), types.QueryRequest{Query: "q"})
	assert.Equal(t, types.FinalInsufficientContext, resp.Status)
	require.Len(t, resp.ContextSources, 4)
	for _, id := range types.AllSources {
		r := resp.ContextSources[id]
		assert.Equal(t, types.StatusError, r.Status, id)
		assert.Equal(t, 0.0, r.Confidence, id)
		assert.Equal(t, 0.0, resp.EvaluationResult.RelevanceScores[id], id)
	}
	assert.NotNil(t, resp.EvaluationResult.RelevantSourceIDs)
	assert.Empty(t, resp.EvaluationResult.RelevantSourceIDs)
	assert.False(t, rig.judge.called)
}

func TestRunDoesNotStoreBlankTurns(t *testing.T) {
	rig := newRig(&stubAdapter{id: types.SourceWeb, result: okResult(types.SourceWeb, 0.97, "Site", "https://example.com")})

	rig.pipeline.Run(context.Background(), types.QueryRequest{Query: "   \n\t "})

	turns, err := rig.mem.History(context.Background(), types.QueryRequest{}.SessionID())
	require.NoError(t, err)
	for _, m := range turns {
		assert.NotEmpty(t, strings.TrimSpace(m.Content))
		assert.NotEqual(t, types.RoleUser, m.Role)
	}
}

func TestFilter(t *testing.T) {
	results := map[types.SourceID]types.SourceResult{
		types.SourceAcademic: okResult(types.SourceAcademic, 0.92, "P", "u"),
		types.SourceDocument: okResult(types.SourceDocument, 0.5, "d", "p1"),
		types.SourceWeb:      {SourceID: types.SourceWeb, Status: types.StatusError},
		types.SourceMemory:   okResult(types.SourceMemory, 0.98, "conversation", "turn-1"),
	}
	eval := types.EvaluationResult{RelevantSourceIDs: []types.SourceID{types.SourceDocument, types.SourceWeb, types.SourceAcademic}}

	got := Filter(results, eval)
	require.Len(t, got, 2)
	assert.Equal(t, types.SourceDocument, got[0].SourceID)
	assert.Equal(t, types.SourceAcademic, got[1].SourceID)
}

func TestSaveAndLoad(t *testing.T) {
	rig := newRig(&stubAdapter{id: types.SourceWeb, result: okResult(types.SourceWeb, 0.97, "Site", "https://example.com")})
	req := types.QueryRequest{Query: "what is go"}
	resp := rig.pipeline.Run(context.Background(), req)

	for _, name := range []string{"answer.yaml", "nested/answer.json"} {
		path := filepath.Join(t.TempDir(), name)
		require.NoError(t, Save(path, req, resp))

		sq, err := Load(path)
		require.NoError(t, err, name)
		assert.Equal(t, "what is go", sq.Request.Query)
		assert.Equal(t, types.DefaultUserID, sq.Request.UserID)
		assert.Equal(t, types.FinalOK, sq.Response.Status)
		assert.Equal(t, types.SourceWeb, sq.Response.SourceUsed)
		assert.Len(t, sq.Response.ContextSources, 4)
		assert.False(t, sq.SavedAt.IsZero())
	}
}
