// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source wraps each knowledge collaborator in an adapter that turns
// its output into a types.SourceResult. Adapters never return errors: a
// failing collaborator becomes an ERROR result with a generic answer, and the
// raw error is logged after redaction.
package source

import (
	"context"
	"errors"
	"net"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/internal/sanitize"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// NoMatchAnswer is reported by an adapter whose collaborator succeeded but
// found nothing.
const NoMatchAnswer = "no relevant information found"

// snippetLength bounds citation content.
const snippetLength = 300

var (
	// ErrTimeout marks a collaborator call cut off by its deadline.
	ErrTimeout = errors.New("source timed out")

	// ErrUnavailable marks a source with no collaborator configured.
	ErrUnavailable = errors.New("source unavailable")

	// ErrMalformed marks collaborator output the adapter could not use.
	ErrMalformed = errors.New("malformed source response")
)

// Session identifies the conversation a query belongs to.
type Session struct {
	UserID   string
	ThreadID string
}

// SessionFor returns the session of req with default ids filled in.
func SessionFor(req types.QueryRequest) Session {
	req = req.WithDefaults()
	return Session{UserID: req.UserID, ThreadID: req.ThreadID}
}

// ID is the key the memory collaborator stores the session under.
func (s Session) ID() string {
	return types.QueryRequest{UserID: s.UserID, ThreadID: s.ThreadID}.SessionID()
}

// Adapter fetches evidence from one source. Implementations are stateless
// and safe for concurrent use.
type Adapter interface {
	ID() types.SourceID
	Fetch(ctx context.Context, query string, session Session) types.SourceResult
}

// DocumentSearcher is the document knowledge collaborator.
type DocumentSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]types.Chunk, error)
}

// MemoryRecaller is the conversation memory collaborator.
type MemoryRecaller interface {
	Recall(ctx context.Context, sessionID string) (types.Recollection, error)
}

// WebSearcher is the web search collaborator.
type WebSearcher interface {
	Search(ctx context.Context, query string) ([]types.WebResult, error)
}

// PaperSearcher is the academic search collaborator.
type PaperSearcher interface {
	Search(ctx context.Context, query string) ([]types.Paper, error)
}

// Failed builds the ERROR result for id. The answer names only the kind of
// failure; err itself never reaches the result.
func Failed(id types.SourceID, err error) types.SourceResult {
	answer := id.Label() + " search failed"
	switch {
	case errors.Is(err, ErrTimeout):
		answer = id.Label() + " search timed out"
	case errors.Is(err, ErrUnavailable):
		answer = id.Label() + " source unavailable"
	}
	return types.SourceResult{
		SourceID:   id,
		Status:     types.StatusError,
		Answer:     answer,
		Citations:  []types.Citation{},
		Confidence: 0,
	}
}

// Empty builds the INSUFFICIENT result for id.
func Empty(id types.SourceID, payload any) types.SourceResult {
	return types.SourceResult{
		SourceID:   id,
		Status:     types.StatusInsufficient,
		Answer:     NoMatchAnswer,
		Citations:  []types.Citation{},
		Confidence: 0,
		RawPayload: payload,
	}
}

// classify maps a collaborator error onto one of the package errors.
func classify(ctx context.Context, err error) error {
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrUnavailable) || errors.Is(err, ErrMalformed) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.Join(ErrTimeout, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return errors.Join(ErrTimeout, err)
	}
	return err
}

// fail classifies and logs err, then returns the ERROR result.
func fail(ctx context.Context, logger *zap.Logger, id types.SourceID, err error) types.SourceResult {
	err = classify(ctx, err)
	kind := "error"
	switch {
	case errors.Is(err, ErrTimeout):
		kind = "timeout"
	case errors.Is(err, ErrUnavailable):
		kind = "unavailable"
	case errors.Is(err, ErrMalformed):
		kind = "malformed"
	}
	nopIfNil(logger).Warn("source failed",
		zap.String("source", string(id)),
		zap.String("kind", kind),
		zap.String("error", sanitize.Error(err)))
	return Failed(id, err)
}

func nopIfNil(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

func snippet(s string) string {
	return sanitize.Truncate(collapse(s), snippetLength)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
