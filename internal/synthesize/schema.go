// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synthesize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/pdiddy/research-assistant/internal/llm"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// ErrSchemaViolation is returned when model output does not match the
// answer schema.
var ErrSchemaViolation = errors.New("schema violation")

// answerSchema is the JSON schema the model must follow.
var answerSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"status": map[string]any{"type": "string", "enum": []string{"OK", "INSUFFICIENT_CONTEXT"}},
		"answer": map[string]any{"type": "string"},
		"citations": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"label":   map[string]any{"type": "string"},
					"locator": map[string]any{"type": "string"},
				},
				"required":             []string{"label", "locator"},
				"additionalProperties": false,
			},
		},
		"confidence": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
		"missing":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
	},
	"required":             []string{"status", "answer", "citations", "confidence", "missing"},
	"additionalProperties": false,
}

// Answer is a validated model answer.
type Answer struct {
	Status     types.FinalStatus
	Answer     string
	Citations  []CitationRef
	Confidence float64
	Missing    []string
}

// CitationRef is a citation as the model names it.
type CitationRef struct {
	Label   string
	Locator string
}

func (c CitationRef) key() string {
	return types.Citation{Label: c.Label, Locator: c.Locator}.Key()
}

// wireAnswer uses pointers so absent fields can be told from zero values.
type wireAnswer struct {
	Status     *string         `json:"status"`
	Answer     *string         `json:"answer"`
	Citations  *[]wireCitation `json:"citations"`
	Confidence *float64        `json:"confidence"`
	Missing    *[]string       `json:"missing"`
}

type wireCitation struct {
	Label   *string `json:"label"`
	Locator *string `json:"locator"`
}

// ParseAnswer decodes and validates model output. Every violation wraps
// ErrSchemaViolation and says what was wrong, so it can be sent back to the
// model.
func ParseAnswer(text string) (Answer, error) {
	raw, err := llm.ExtractJSON(text)
	if err != nil {
		return Answer{}, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()
	var w wireAnswer
	if err := dec.Decode(&w); err != nil {
		return Answer{}, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}

	switch {
	case w.Status == nil:
		return Answer{}, violation("missing field \"status\"")
	case w.Answer == nil:
		return Answer{}, violation("missing field \"answer\"")
	case w.Citations == nil:
		return Answer{}, violation("missing field \"citations\"")
	case w.Confidence == nil:
		return Answer{}, violation("missing field \"confidence\"")
	case w.Missing == nil:
		return Answer{}, violation("missing field \"missing\"")
	}

	a := Answer{
		Status:     types.FinalStatus(*w.Status),
		Answer:     strings.TrimSpace(*w.Answer),
		Confidence: *w.Confidence,
		Missing:    *w.Missing,
	}
	if a.Status != types.FinalOK && a.Status != types.FinalInsufficientContext {
		return Answer{}, violation(fmt.Sprintf("status %q is not OK or INSUFFICIENT_CONTEXT", *w.Status))
	}
	if math.IsNaN(a.Confidence) || a.Confidence < 0 || a.Confidence > 1 {
		return Answer{}, violation(fmt.Sprintf("confidence %v is outside [0,1]", a.Confidence))
	}
	if a.Status == types.FinalOK && a.Answer == "" {
		return Answer{}, violation("answer is empty but status is OK")
	}
	for i, c := range *w.Citations {
		if c.Label == nil || c.Locator == nil || strings.TrimSpace(*c.Label) == "" || strings.TrimSpace(*c.Locator) == "" {
			return Answer{}, violation(fmt.Sprintf("citation %d needs a non-empty label and locator", i))
		}
		a.Citations = append(a.Citations, CitationRef{Label: *c.Label, Locator: *c.Locator})
	}
	return a, nil
}

func violation(msg string) error {
	return fmt.Errorf("%w: %s", ErrSchemaViolation, msg)
}
