// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package synthesize produces the final cited answer from the evidence the
// evaluator kept. Model output must match a fixed schema; citations the
// evidence does not contain are dropped.
package synthesize

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/internal/sanitize"
	"github.com/pdiddy/research-assistant/pkg/types"
)

const (
	// MissingSynthesis is reported when no valid answer could be generated.
	MissingSynthesis = "synthesis unavailable"

	// MissingDeadline is reported when the query deadline expired.
	MissingDeadline = "query deadline exceeded"

	defaultMaxAttempts = 3
)

// backoffBase is the delay before the second attempt; it doubles after each
// further attempt.
var backoffBase = 500 * time.Millisecond

// Synthesizer turns filtered evidence into a FinalResponse.
type Synthesizer struct {
	Generator   Generator
	MaxAttempts int
	Logger      *zap.Logger
}

// Synthesize never fails: every failure is reported as an
// INSUFFICIENT_CONTEXT response.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, filtered []types.SourceResult, eval types.EvaluationResult) types.FinalResponse {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(filtered) == 0 {
		return types.Insufficient(fmt.Sprintf("no source had information relevant to %q", sanitize.Truncate(query, 120)))
	}
	if s.Generator == nil {
		logger.Warn("no generator configured")
		return types.Insufficient(MissingSynthesis)
	}

	ans, err := s.generate(ctx, logger, Prompt{Query: query, Evidence: filtered, Scores: eval.RelevanceScores})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("synthesis hit the query deadline")
			return types.Insufficient(MissingDeadline)
		}
		logger.Warn("synthesis failed", zap.String("error", sanitize.Error(err)))
		return types.Insufficient(MissingSynthesis)
	}

	if ans.Status == types.FinalInsufficientContext {
		return types.Insufficient(ans.Missing...)
	}

	citations, contributors := filterCitations(ans.Citations, filtered)
	if dropped := len(ans.Citations) - len(citations); dropped > 0 {
		logger.Info("dropped citations not found in evidence", zap.Int("dropped", dropped))
	}
	if len(contributors) == 0 {
		for _, r := range filtered {
			contributors = append(contributors, r.SourceID)
		}
	}

	missing := ans.Missing
	if missing == nil {
		missing = []string{}
	}
	return types.FinalResponse{
		Status:     types.FinalOK,
		SourceUsed: bestSource(contributors, eval.RelevanceScores),
		Answer:     ans.Answer,
		Citations:  citations,
		Confidence: types.ClampUnit(ans.Confidence),
		Missing:    missing,
	}
}

// generate retries schema violations with exponential backoff. Generator
// errors end the loop at once.
func (s *Synthesizer) generate(ctx context.Context, logger *zap.Logger, p Prompt) (Answer, error) {
	attempts := s.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			delay := backoffBase * time.Duration(1<<(attempt-2))
			select {
			case <-ctx.Done():
				return Answer{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		text, err := s.Generator.Generate(ctx, p)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Answer{}, ctxErr
			}
			return Answer{}, fmt.Errorf("generating answer: %w", err)
		}
		ans, err := ParseAnswer(text)
		if err == nil {
			return ans, nil
		}
		logger.Info("answer rejected",
			zap.Int("attempt", attempt),
			zap.String("violation", sanitize.Truncate(sanitize.Error(err), 200)))
		lastErr = err
		p.Violation = err.Error()
	}
	return Answer{}, fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}

// filterCitations keeps the model citations that match an evidence citation
// by (label, locator), in model order without duplicates. Each kept citation
// carries the optional fields of the first matching evidence citation. The
// second result lists every source holding a kept citation.
func filterCitations(refs []CitationRef, evidence []types.SourceResult) ([]types.Citation, []types.SourceID) {
	first := make(map[string]types.Citation)
	holders := make(map[string][]types.SourceID)
	for _, r := range evidence {
		for _, c := range r.Citations {
			k := c.Key()
			if _, ok := first[k]; !ok {
				first[k] = c
			}
			holders[k] = appendUnique(holders[k], r.SourceID)
		}
	}

	kept := []types.Citation{}
	seen := make(map[string]bool)
	var contributors []types.SourceID
	for _, ref := range refs {
		k := ref.key()
		c, ok := first[k]
		if !ok || seen[k] {
			continue
		}
		seen[k] = true
		kept = append(kept, c)
		for _, id := range holders[k] {
			contributors = appendUnique(contributors, id)
		}
	}
	return kept, contributors
}

// bestSource picks the highest relevance, breaking ties by source priority.
func bestSource(ids []types.SourceID, scores map[types.SourceID]float64) types.SourceID {
	best := types.SourceNone
	for _, id := range ids {
		if best == types.SourceNone {
			best = id
			continue
		}
		s, bs := scores[id], scores[best]
		if s > bs || (s == bs && types.Priority(id) < types.Priority(best)) {
			best = id
		}
	}
	return best
}

func appendUnique(ids []types.SourceID, id types.SourceID) []types.SourceID {
	for _, x := range ids {
		if x == id {
			return ids
		}
	}
	return append(ids, id)
}
