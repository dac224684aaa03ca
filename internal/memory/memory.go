// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package memory stores conversation turns per session and recalls recent
// turns as context for new queries.
package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// Store persists conversation turns keyed by session id.
type Store interface {
	// Recall returns the most recent turns of the session, oldest first.
	Recall(ctx context.Context, sessionID string) (types.Recollection, error)

	// Append stores turns at the end of the session.
	Append(ctx context.Context, sessionID string, msgs ...types.Message) error

	// History returns every stored turn of the session, oldest first.
	History(ctx context.Context, sessionID string) ([]types.Message, error)

	// Clear removes all turns of the session.
	Clear(ctx context.Context, sessionID string) error

	Close() error
}

// Open returns the store selected by cfg.Backend.
func Open(cfg types.MemoryConfig) (Store, error) {
	switch cfg.Backend {
	case types.MemorySQLite, "":
		return OpenSQLite(cfg)
	case types.MemoryCache:
		return NewCacheStore(cfg), nil
	default:
		return nil, fmt.Errorf("unknown memory backend %q", cfg.Backend)
	}
}

func recollection(msgs []types.Message) types.Recollection {
	ctx := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		ctx = append(ctx, m.Role+": "+m.Content)
	}
	return types.Recollection{Context: ctx, Found: len(ctx) > 0}
}

func tail(msgs []types.Message, n int) []types.Message {
	if n > 0 && len(msgs) > n {
		return msgs[len(msgs)-n:]
	}
	return msgs
}
