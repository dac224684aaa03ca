// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package evaluate judges which source results are relevant to a query.
// Only usable (OK) results are judged; when the judgment fails, every usable
// result is kept and scored by its adapter confidence.
package evaluate

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/internal/sanitize"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// ErrMalformedVerdict is returned when a verdict does not cover exactly
// the candidate sources with valid scores.
var ErrMalformedVerdict = errors.New("malformed verdict")

const (
	noCandidatesReasoning = "no source returned usable evidence"
	fallbackReasoning     = "relevance judgment unavailable; all usable sources kept with their adapter confidence"
)

// SourceVerdict is the judgment of one candidate source. Include and
// Relevance are pointers so a missing field can be told from a zero value.
type SourceVerdict struct {
	SourceID  string   `json:"source_id"`
	Include   *bool    `json:"include"`
	Relevance *float64 `json:"relevance"`
	Reason    string   `json:"reason"`
}

// Verdict is the judge's answer for a whole query.
type Verdict struct {
	Sources   []SourceVerdict `json:"sources"`
	Reasoning string          `json:"reasoning"`
}

// Judge decides the relevance of each candidate to the query.
type Judge interface {
	Judge(ctx context.Context, query string, candidates []types.SourceResult) (Verdict, error)
}

// Evaluator turns a Judge verdict into an EvaluationResult.
type Evaluator struct {
	Judge  Judge
	Logger *zap.Logger
}

// Evaluate never fails: a judge error or malformed verdict falls back to
// adapter confidences.
func (e *Evaluator) Evaluate(ctx context.Context, query string, results map[types.SourceID]types.SourceResult) types.EvaluationResult {
	logger := e.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	eval := types.EvaluationResult{
		RelevantSourceIDs: []types.SourceID{},
		RelevanceScores:   make(map[types.SourceID]float64, len(types.AllSources)),
	}
	var candidates []types.SourceResult
	for _, id := range types.AllSources {
		eval.RelevanceScores[id] = 0
		if r, ok := results[id]; ok && r.Usable() {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		eval.Reasoning = noCandidatesReasoning
		return eval
	}

	if e.Judge == nil {
		logger.Warn("no relevance judge configured, using fallback")
		return fallback(eval, candidates)
	}

	verdict, err := e.Judge.Judge(ctx, query, candidates)
	if err == nil {
		err = Validate(verdict, candidates)
	}
	if err != nil {
		logger.Warn("relevance judgment failed, using fallback",
			zap.String("error", sanitize.Error(err)))
		return fallback(eval, candidates)
	}

	byID := make(map[types.SourceID]SourceVerdict, len(verdict.Sources))
	for _, sv := range verdict.Sources {
		id, _ := types.ParseSourceID(sv.SourceID)
		byID[id] = sv
	}
	for _, c := range candidates {
		sv := byID[c.SourceID]
		eval.RelevanceScores[c.SourceID] = *sv.Relevance
		if *sv.Include {
			eval.RelevantSourceIDs = append(eval.RelevantSourceIDs, c.SourceID)
		}
	}
	eval.Reasoning = verdict.Reasoning
	logger.Debug("relevance judged",
		zap.Any("relevant", eval.RelevantSourceIDs),
		zap.Any("scores", eval.RelevanceScores))
	return eval
}

// fallback keeps every candidate, scored by its adapter confidence.
func fallback(eval types.EvaluationResult, candidates []types.SourceResult) types.EvaluationResult {
	for _, c := range candidates {
		eval.RelevantSourceIDs = append(eval.RelevantSourceIDs, c.SourceID)
		eval.RelevanceScores[c.SourceID] = types.ClampUnit(c.Confidence)
	}
	eval.Reasoning = fallbackReasoning
	eval.Fallback = true
	return eval
}

// Validate checks that v judges every candidate exactly once, names no
// other source, and scores each in [0,1].
func Validate(v Verdict, candidates []types.SourceResult) error {
	want := make(map[types.SourceID]bool, len(candidates))
	for _, c := range candidates {
		want[c.SourceID] = true
	}

	seen := make(map[types.SourceID]bool, len(v.Sources))
	for _, sv := range v.Sources {
		id, err := types.ParseSourceID(sv.SourceID)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedVerdict, err)
		}
		if !want[id] {
			return fmt.Errorf("%w: %s was not a candidate", ErrMalformedVerdict, id)
		}
		if seen[id] {
			return fmt.Errorf("%w: %s judged twice", ErrMalformedVerdict, id)
		}
		seen[id] = true
		if sv.Include == nil {
			return fmt.Errorf("%w: %s has no include flag", ErrMalformedVerdict, id)
		}
		if sv.Relevance == nil {
			return fmt.Errorf("%w: %s has no relevance", ErrMalformedVerdict, id)
		}
		if r := *sv.Relevance; math.IsNaN(r) || r < 0 || r > 1 {
			return fmt.Errorf("%w: %s relevance %v outside [0,1]", ErrMalformedVerdict, id, r)
		}
	}
	for _, c := range candidates {
		if !seen[c.SourceID] {
			return fmt.Errorf("%w: %s was not judged", ErrMalformedVerdict, c.SourceID)
		}
	}
	return nil
}
