// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fanout dispatches a query to every source adapter at once and
// joins the results. Dispatch always returns one result per source, whatever
// the adapters do: time out, panic, or never get configured.
package fanout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/research-assistant/internal/sanitize"
	"github.com/pdiddy/research-assistant/internal/source"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// defaultTimeout applies to a source with no configured timeout.
const defaultTimeout = 30 * time.Second

var errPanic = errors.New("adapter panicked")

// Coordinator runs the registered adapters concurrently.
type Coordinator struct {
	adapters map[types.SourceID]source.Adapter
	timeouts types.SourceTimeouts
	logger   *zap.Logger
}

// New registers adapters by their ID. A later adapter with the same ID
// replaces an earlier one.
func New(timeouts types.SourceTimeouts, logger *zap.Logger, adapters ...source.Adapter) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Coordinator{
		adapters: make(map[types.SourceID]source.Adapter, len(adapters)),
		timeouts: timeouts,
		logger:   logger,
	}
	for _, a := range adapters {
		if a != nil {
			c.adapters[a.ID()] = a
		}
	}
	return c
}

// Configured lists the sources that have an adapter, in canonical order.
func (c *Coordinator) Configured() []types.SourceID {
	var ids []types.SourceID
	for _, id := range types.AllSources {
		if _, ok := c.adapters[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Dispatch fetches from every source and waits for all of them. The result
// has exactly one normalized entry per source in types.AllSources.
func (c *Coordinator) Dispatch(ctx context.Context, query string, session source.Session) map[types.SourceID]types.SourceResult {
	start := time.Now()
	slots := make([]types.SourceResult, len(types.AllSources))

	var g errgroup.Group
	for i, id := range types.AllSources {
		a, ok := c.adapters[id]
		if !ok {
			slots[i] = source.Failed(id, source.ErrUnavailable)
			continue
		}
		g.Go(func() error {
			slots[i] = c.run(ctx, a, id, query, session)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[types.SourceID]types.SourceResult, len(slots))
	for i, id := range types.AllSources {
		r := slots[i]
		r.SourceID = id
		out[id] = r.Normalize()
	}

	fields := []zap.Field{zap.Duration("elapsed", time.Since(start))}
	for _, id := range types.AllSources {
		fields = append(fields, zap.String(id.Label(), string(out[id].Status)))
	}
	c.logger.Debug("fan-out complete", fields...)
	return out
}

// run calls one adapter under its own deadline. The adapter runs in its own
// goroutine so a deadline is honoured even by an adapter that ignores ctx.
func (c *Coordinator) run(ctx context.Context, a source.Adapter, id types.SourceID, query string, session source.Session) types.SourceResult {
	timeout := c.timeouts.For(id)
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan types.SourceResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				c.logger.Error("source adapter panicked",
					zap.String("source", string(id)),
					zap.String("panic", sanitize.Redact(fmt.Sprint(p))))
				done <- source.Failed(id, errPanic)
			}
		}()
		done <- a.Fetch(actx, query, session)
	}()

	select {
	case r := <-done:
		return r
	case <-actx.Done():
		if errors.Is(actx.Err(), context.DeadlineExceeded) {
			c.logger.Warn("source timed out",
				zap.String("source", string(id)),
				zap.Duration("timeout", timeout))
			return source.Failed(id, source.ErrTimeout)
		}
		c.logger.Warn("source cancelled", zap.String("source", string(id)))
		return source.Failed(id, actx.Err())
	}
}
