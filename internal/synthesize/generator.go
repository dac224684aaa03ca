// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synthesize

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/pdiddy/research-assistant/internal/llm"
	"github.com/pdiddy/research-assistant/internal/sanitize"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// maxEvidenceRunes bounds each source's answer in the prompt.
const maxEvidenceRunes = 6000

// Prompt is everything the generator needs for one attempt.
type Prompt struct {
	Query    string
	Evidence []types.SourceResult
	Scores   map[types.SourceID]float64

	// Violation describes why the previous attempt was rejected. Empty on
	// the first attempt.
	Violation string
}

// Generator produces raw model output for a Prompt.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

var synthesisPromptTmpl = template.Must(template.New("synthesis").Parse(`Answer the question using only the evidence below.

Rules:
- Every statement in the answer must be supported by the evidence.
- Cite evidence only with the exact label and locator pairs listed under "Citable". Never invent a citation.
- confidence is a number between 0.0 and 1.0 for how well the evidence answers the question.
- missing lists short descriptions of information the question needs that the evidence lacks. Use an empty list if nothing is missing.
- If the evidence cannot answer the question, set status to "INSUFFICIENT_CONTEXT", answer to "", citations to [], confidence to 0, and explain the gaps in missing.

Question:
{{.Query}}
{{range .Sources}}
## {{.ID}} (relevance {{printf "%.2f" .Relevance}})
{{.Evidence}}
{{if .Citations}}Citable:
{{range .Citations}}- label: {{printf "%q" .Label}} locator: {{printf "%q" .Locator}}
{{end}}{{end}}{{end}}
{{- if .Violation}}
Your previous response was rejected: {{.Violation}}
Return a single JSON object that follows the schema exactly.
{{end}}`))

type promptSource struct {
	ID        types.SourceID
	Relevance float64
	Evidence  string
	Citations []types.Citation
}

// RenderPrompt renders p as the user prompt.
func RenderPrompt(p Prompt) (string, error) {
	data := struct {
		Query     string
		Sources   []promptSource
		Violation string
	}{Query: p.Query, Violation: p.Violation}
	for _, r := range p.Evidence {
		data.Sources = append(data.Sources, promptSource{
			ID:        r.SourceID,
			Relevance: p.Scores[r.SourceID],
			Evidence:  sanitize.Truncate(r.Answer, maxEvidenceRunes),
			Citations: r.Citations,
		})
	}
	var buf bytes.Buffer
	if err := synthesisPromptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// LLMGenerator asks the model for a schema-shaped answer.
type LLMGenerator struct {
	LLM         llm.Client
	Temperature float64
	MaxTokens   int
}

func (g *LLMGenerator) Generate(ctx context.Context, p Prompt) (string, error) {
	prompt, err := RenderPrompt(p)
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return g.LLM.Complete(ctx, llm.Request{
		System:      "You are a research assistant that answers strictly from supplied evidence and cites it.",
		Prompt:      prompt,
		Temperature: g.Temperature,
		MaxTokens:   g.MaxTokens,
		SchemaName:  "final_answer",
		JSONSchema:  answerSchema,
	})
}
