// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/internal/academic"
	"github.com/pdiddy/research-assistant/internal/container"
	"github.com/pdiddy/research-assistant/internal/document"
	"github.com/pdiddy/research-assistant/internal/evaluate"
	"github.com/pdiddy/research-assistant/internal/fanout"
	"github.com/pdiddy/research-assistant/internal/httputil"
	"github.com/pdiddy/research-assistant/internal/llm"
	"github.com/pdiddy/research-assistant/internal/memory"
	"github.com/pdiddy/research-assistant/internal/pipeline"
	"github.com/pdiddy/research-assistant/internal/sanitize"
	"github.com/pdiddy/research-assistant/internal/server"
	"github.com/pdiddy/research-assistant/internal/source"
	"github.com/pdiddy/research-assistant/internal/synthesize"
	"github.com/pdiddy/research-assistant/internal/websearch"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// app holds the collaborators built from the configuration. Collaborators
// that cannot be built are left nil and their source reports unavailable.
type app struct {
	cfg      types.Config
	docs     *document.Store
	memory   memory.Store
	llm      llm.Client
	coord    *fanout.Coordinator
	pipeline *pipeline.Pipeline
}

func newApp(ctx context.Context, cfg types.Config, logger *zap.Logger) *app {
	a := &app{cfg: cfg}
	hc := httputil.NewClient(cfg.HTTP, 0)
	priors := cfg.Sources.Confidence.Table()

	if c, err := llm.NewClient(cfg.LLM, hc); err != nil {
		logger.Warn("LLM unavailable; relevance falls back to adapter confidence and synthesis is disabled",
			zap.String("error", sanitize.Error(err)))
	} else {
		a.llm = c
	}

	var drafter *source.Drafter
	if cfg.Sources.DraftAnswers && a.llm != nil {
		drafter = &source.Drafter{LLM: a.llm, MaxTokens: 512, Logger: logger}
	}

	var adapters []source.Adapter

	if docs, err := document.Open(cfg.Document, converterOption(ctx, logger)...); err != nil {
		logger.Warn("document index unavailable", zap.String("error", sanitize.Error(err)))
	} else {
		a.docs = docs
		adapters = append(adapters, &source.Document{Index: docs, MaxChunks: cfg.Document.MaxChunks, Drafter: drafter, Logger: logger})
	}

	if mem, err := memory.Open(cfg.Memory); err != nil {
		logger.Warn("conversation memory unavailable", zap.String("error", sanitize.Error(err)))
	} else {
		a.memory = mem
		adapters = append(adapters, &source.Memory{Store: mem, Confidence: priors, Drafter: drafter, Logger: logger})
	}

	if cfg.Web.APIKey != "" {
		web := websearch.New(cfg.Web, httputil.NewClient(cfg.HTTP, cfg.Web.RequestsPerSecond))
		adapters = append(adapters, &source.Web{Search: web, Confidence: priors, Drafter: drafter, Logger: logger})
	} else {
		logger.Info("web search disabled: no Firecrawl API key")
	}

	papers := academic.New(cfg.Academic, hc, logger)
	if len(papers.Backends) > 0 {
		adapters = append(adapters, &source.Academic{Search: papers, Confidence: priors, Drafter: drafter, Logger: logger})
	}

	a.coord = fanout.New(cfg.Sources.Timeout, logger, adapters...)

	var (
		judge evaluate.Judge
		gen   synthesize.Generator
	)
	if a.llm != nil {
		judge = &evaluate.LLMJudge{LLM: a.llm, Temperature: cfg.LLM.Temperature, MaxTokens: cfg.LLM.MaxTokens}
		gen = &synthesize.LLMGenerator{LLM: a.llm, Temperature: cfg.LLM.Temperature, MaxTokens: cfg.LLM.MaxTokens}
	}

	a.pipeline = &pipeline.Pipeline{
		Dispatcher:       a.coord,
		Evaluator:        &evaluate.Evaluator{Judge: judge, Logger: logger},
		Synthesizer:      &synthesize.Synthesizer{Generator: gen, MaxAttempts: cfg.Synthesis.MaxAttempts, Logger: logger},
		QueryTimeout:     cfg.QueryTimeout,
		MaxMessageLength: cfg.Memory.MaxMessageLength,
		Logger:           logger,
	}
	if a.memory != nil {
		a.pipeline.Memory = a.memory
	}
	return a
}

// converterOption enables binary document conversion when a container
// runtime with the markitdown image is present.
func converterOption(ctx context.Context, logger *zap.Logger) []document.Option {
	rt, err := container.DetectRuntime(ctx)
	if err != nil {
		logger.Debug("no container runtime; only text documents can be ingested")
		return nil
	}
	conv, err := document.NewMarkitdownConverter(ctx, rt)
	if err != nil {
		logger.Debug("markitdown unavailable", zap.String("error", sanitize.Error(err)))
		return nil
	}
	return []document.Option{document.WithConverter(conv)}
}

// statusInfo reports which sources have a collaborator.
func (a *app) statusInfo() server.StatusInfo {
	info := server.StatusInfo{
		Version:  version,
		Provider: a.cfg.LLM.Provider,
		Model:    a.cfg.LLM.Model,
		Sources:  make(map[types.SourceID]string, len(types.AllSources)),
	}
	for _, id := range types.AllSources {
		info.Sources[id] = "unavailable"
	}
	for _, id := range a.coord.Configured() {
		info.Sources[id] = "configured"
	}
	if a.llm == nil {
		info.Model = ""
	}
	return info
}

func (a *app) Close() error {
	var errs []error
	if a.docs != nil {
		errs = append(errs, a.docs.Close())
	}
	if a.memory != nil {
		errs = append(errs, a.memory.Close())
	}
	return errors.Join(errs...)
}
