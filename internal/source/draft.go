// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"bytes"
	"context"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/internal/llm"
	"github.com/pdiddy/research-assistant/internal/sanitize"
	"github.com/pdiddy/research-assistant/pkg/types"
)

var draftPromptTmpl = template.Must(template.New("draft").Parse(`Answer the question below using only the {{.Source}} evidence that follows. Write at most five sentences. If the evidence does not answer the question, say what it does cover instead. Do not add facts that are not in the evidence.

Question:
{{.Query}}

Evidence:
{{.Evidence}}
`))

// Drafter turns raw evidence into a short per-source answer with the LLM.
// A nil Drafter leaves evidence untouched.
type Drafter struct {
	LLM       llm.Client
	MaxTokens int
	Logger    *zap.Logger
}

// Draft returns the model's answer, or evidence when drafting fails.
func (d *Drafter) Draft(ctx context.Context, id types.SourceID, query, evidence string) string {
	if d == nil || d.LLM == nil || strings.TrimSpace(evidence) == "" {
		return evidence
	}

	var buf bytes.Buffer
	if err := draftPromptTmpl.Execute(&buf, struct {
		Source, Query, Evidence string
	}{id.Label(), query, evidence}); err != nil {
		return evidence
	}

	maxTokens := d.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 512
	}
	text, err := d.LLM.Complete(ctx, llm.Request{
		System:    "You summarize evidence for a research assistant.",
		Prompt:    buf.String(),
		MaxTokens: maxTokens,
	})
	if err != nil || strings.TrimSpace(text) == "" {
		nopIfNil(d.Logger).Debug("draft failed, keeping evidence",
			zap.String("source", string(id)),
			zap.String("error", sanitize.Error(err)))
		return evidence
	}
	return strings.TrimSpace(text)
}
