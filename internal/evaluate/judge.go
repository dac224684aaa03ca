// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evaluate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/research-assistant/internal/llm"
	"github.com/pdiddy/research-assistant/internal/sanitize"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// maxEvidenceRunes bounds each candidate's answer in the prompt.
const maxEvidenceRunes = 4000

var judgePromptTmpl = template.Must(template.New("judge").Parse(`Decide which of the sources below contain information that helps answer the question. Each source gives its answer and the citations behind it.

For every source listed, return:
- source_id: the source name exactly as given
- include: true if the source's evidence is relevant to the question
- relevance: a number between 0.0 and 1.0 rating how useful the evidence is for this question
- reason: one short sentence

Also return "reasoning": one or two sentences summarizing the decision. Judge every listed source exactly once and no others.

Question:
{{.Query}}
{{range .Candidates}}
### {{.ID}} (adapter confidence {{printf "%.2f" .Confidence}})
{{.Evidence}}
{{if .Citations}}Citations:
{{range .Citations}}- label: {{printf "%q" .Label}} locator: {{printf "%q" .Locator}}{{if .Content}}
  {{.Content}}{{end}}
{{end}}{{end}}{{end}}`))

var verdictSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"sources": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"source_id": map[string]any{"type": "string", "enum": []string{"DOCUMENT", "MEMORY", "WEB", "ACADEMIC"}},
					"include":   map[string]any{"type": "boolean"},
					"relevance": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
					"reason":    map[string]any{"type": "string"},
				},
				"required":             []string{"source_id", "include", "relevance", "reason"},
				"additionalProperties": false,
			},
		},
		"reasoning": map[string]any{"type": "string"},
	},
	"required":             []string{"sources", "reasoning"},
	"additionalProperties": false,
}

// LLMJudge asks the model for a relevance verdict.
type LLMJudge struct {
	LLM         llm.Client
	Temperature float64
	MaxTokens   int
}

type promptCandidate struct {
	ID         types.SourceID
	Confidence float64
	Evidence   string
	Citations  []types.Citation
}

const (
	maxPromptCitations = 10
	maxCitationRunes   = 200
)

// promptCitations bounds the citations shown to the judge and shortens
// their snippets.
func promptCitations(cites []types.Citation) []types.Citation {
	if len(cites) > maxPromptCitations {
		cites = cites[:maxPromptCitations]
	}
	out := make([]types.Citation, len(cites))
	for i, c := range cites {
		out[i] = types.Citation{
			Label:   c.Label,
			Locator: c.Locator,
			Content: sanitize.Truncate(strings.Join(strings.Fields(c.Content), " "), maxCitationRunes),
		}
	}
	return out
}

func (j *LLMJudge) Judge(ctx context.Context, query string, candidates []types.SourceResult) (Verdict, error) {
	prompt, err := renderPrompt(query, candidates)
	if err != nil {
		return Verdict{}, fmt.Errorf("rendering prompt: %w", err)
	}

	text, err := j.LLM.Complete(ctx, llm.Request{
		System:      "You are the relevance judge of a research assistant. You only judge; you never answer the question.",
		Prompt:      prompt,
		Temperature: j.Temperature,
		MaxTokens:   j.MaxTokens,
		SchemaName:  "relevance_verdict",
		JSONSchema:  verdictSchema,
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("calling judge: %w", err)
	}
	return ParseVerdict(text)
}

// ParseVerdict decodes model output into a Verdict, rejecting unknown fields.
func ParseVerdict(text string) (Verdict, error) {
	raw, err := llm.ExtractJSON(text)
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrMalformedVerdict, err)
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()
	var v Verdict
	if err := dec.Decode(&v); err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrMalformedVerdict, err)
	}
	return v, nil
}

func renderPrompt(query string, candidates []types.SourceResult) (string, error) {
	data := struct {
		Query      string
		Candidates []promptCandidate
	}{Query: query}
	for _, c := range candidates {
		data.Candidates = append(data.Candidates, promptCandidate{
			ID:         c.SourceID,
			Confidence: c.Confidence,
			Evidence:   sanitize.Truncate(c.Answer, maxEvidenceRunes),
			Citations:  promptCitations(c.Citations),
		})
	}
	var buf bytes.Buffer
	if err := judgePromptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
