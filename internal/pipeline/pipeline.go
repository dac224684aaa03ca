// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs one query end to end: fan out to every source,
// judge relevance, synthesize a cited answer, and record the turn in
// conversation memory. Run always returns a well-formed response.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/internal/memory"
	"github.com/pdiddy/research-assistant/internal/sanitize"
	"github.com/pdiddy/research-assistant/internal/source"
	"github.com/pdiddy/research-assistant/internal/synthesize"
	"github.com/pdiddy/research-assistant/pkg/types"
)

const (
	defaultQueryTimeout = 90 * time.Second

	// memoryWriteTimeout bounds the write-back, which outlives the query
	// deadline.
	memoryWriteTimeout = 5 * time.Second

	missingInternal = "internal error"
)

// Dispatcher fetches from every source.
type Dispatcher interface {
	Dispatch(ctx context.Context, query string, session source.Session) map[types.SourceID]types.SourceResult
}

// Evaluator judges source relevance.
type Evaluator interface {
	Evaluate(ctx context.Context, query string, results map[types.SourceID]types.SourceResult) types.EvaluationResult
}

// Synthesizer produces the final answer.
type Synthesizer interface {
	Synthesize(ctx context.Context, query string, filtered []types.SourceResult, eval types.EvaluationResult) types.FinalResponse
}

// MemoryWriter records conversation turns.
type MemoryWriter interface {
	Append(ctx context.Context, sessionID string, msgs ...types.Message) error
}

// Pipeline wires the stages together. Memory may be nil.
type Pipeline struct {
	Dispatcher  Dispatcher
	Evaluator   Evaluator
	Synthesizer Synthesizer
	Memory      MemoryWriter

	QueryTimeout     time.Duration
	MaxMessageLength int
	Logger           *zap.Logger
}

// Run answers req. Failures anywhere are reported as INSUFFICIENT_CONTEXT,
// and every response carries one result per source.
func (p *Pipeline) Run(ctx context.Context, req types.QueryRequest) (resp types.QueryResponse) {
	logger := p.logger()
	req = req.WithDefaults()
	session := source.SessionFor(req)
	start := time.Now()

	var (
		results   map[types.SourceID]types.SourceResult
		eval      types.EvaluationResult
		evaluated bool
	)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("pipeline panicked", zap.String("panic", sanitize.Redact(fmt.Sprint(r))))
			if !evaluated {
				eval = emptyEvaluation(missingInternal)
			}
			resp = p.finish(ctx, session, req.Query, complete(results), eval, types.Insufficient(missingInternal), start)
		}
	}()

	timeout := p.QueryTimeout
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	qctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results = p.Dispatcher.Dispatch(qctx, req.Query, session)
	eval = p.Evaluator.Evaluate(qctx, req.Query, results)
	evaluated = true

	var final types.FinalResponse
	if errors.Is(qctx.Err(), context.DeadlineExceeded) {
		logger.Warn("query deadline expired before synthesis")
		final = types.Insufficient(synthesize.MissingDeadline)
	} else {
		final = p.Synthesizer.Synthesize(qctx, req.Query, Filter(results, eval), eval)
	}

	return p.finish(ctx, session, req.Query, results, eval, final, start)
}

// finish records the turn, logs the outcome, and assembles the response.
func (p *Pipeline) finish(ctx context.Context, session source.Session, query string,
	results map[types.SourceID]types.SourceResult, eval types.EvaluationResult,
	final types.FinalResponse, start time.Time) types.QueryResponse {
	p.remember(ctx, session, query, final)

	p.logger().Info("query answered",
		zap.String("status", string(final.Status)),
		zap.String("source_used", string(final.SourceUsed)),
		zap.Float64("confidence", final.Confidence),
		zap.Int("citations", len(final.Citations)),
		zap.Bool("fallback", eval.Fallback),
		zap.Duration("elapsed", time.Since(start)))

	return types.QueryResponse{
		FinalResponse:    final,
		ContextSources:   results,
		EvaluationResult: eval,
	}
}

// errInterrupted marks sources whose result was lost to a panic.
var errInterrupted = errors.New("query interrupted")

// complete fills every source missing from results with a failure.
func complete(results map[types.SourceID]types.SourceResult) map[types.SourceID]types.SourceResult {
	out := make(map[types.SourceID]types.SourceResult, len(types.AllSources))
	for _, id := range types.AllSources {
		if r, ok := results[id]; ok {
			out[id] = r
			continue
		}
		out[id] = source.Failed(id, errInterrupted)
	}
	return out
}

// emptyEvaluation keeps no source and scores every source 0.
func emptyEvaluation(reasoning string) types.EvaluationResult {
	scores := make(map[types.SourceID]float64, len(types.AllSources))
	for _, id := range types.AllSources {
		scores[id] = 0
	}
	return types.EvaluationResult{
		RelevantSourceIDs: []types.SourceID{},
		RelevanceScores:   scores,
		Reasoning:         reasoning,
	}
}

// Filter returns the usable results the evaluator kept, in canonical order.
func Filter(results map[types.SourceID]types.SourceResult, eval types.EvaluationResult) []types.SourceResult {
	var out []types.SourceResult
	for _, id := range types.AllSources {
		r, ok := results[id]
		if ok && r.Usable() && eval.Includes(id) {
			out = append(out, r)
		}
	}
	return out
}

// remember stores the query and answer after the sources were read, so a
// query never recalls itself. It survives cancellation of ctx; errors are
// only logged.
func (p *Pipeline) remember(ctx context.Context, session source.Session, query string, final types.FinalResponse) {
	if p.Memory == nil {
		return
	}
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), memoryWriteTimeout)
	defer cancel()

	now := time.Now().UTC()
	var msgs []types.Message
	if q := strings.TrimSpace(query); q != "" {
		msgs = append(msgs, types.Message{Role: types.RoleUser, Content: memory.Summarize(q, p.MaxMessageLength), CreatedAt: now})
	}
	if a := strings.TrimSpace(final.Answer); final.Status == types.FinalOK && a != "" {
		msgs = append(msgs, types.Message{
			Role:      types.RoleAssistant,
			Content:   memory.Summarize(a, p.MaxMessageLength),
			CreatedAt: now,
		})
	}
	if len(msgs) == 0 {
		return
	}
	if err := p.Memory.Append(wctx, session.ID(), msgs...); err != nil {
		p.logger().Warn("memory write failed",
			zap.String("session", session.ID()),
			zap.String("error", sanitize.Error(err)))
	}
}

func (p *Pipeline) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}
