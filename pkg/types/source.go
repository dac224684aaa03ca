// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the shared data structures for the research-assistant
// pipeline: per-source results, citations, the evaluation verdict, and the
// final response returned to callers. Every value here lives for a single
// query/response cycle.
package types

import (
	"fmt"
	"math"
	"strings"
)

// SourceID names one of the four independent knowledge channels.
type SourceID string

const (
	SourceDocument SourceID = "DOCUMENT"
	SourceMemory   SourceID = "MEMORY"
	SourceWeb      SourceID = "WEB"
	SourceAcademic SourceID = "ACADEMIC"

	// SourceNone is reported as FinalResponse.SourceUsed when no source
	// contributed to the answer.
	SourceNone SourceID = "NONE"
)

// AllSources lists every source in canonical order. Anything that iterates
// over sources (citation merging, prompt rendering, tables) uses this order
// so output does not depend on which adapter returned first.
var AllSources = []SourceID{SourceDocument, SourceMemory, SourceWeb, SourceAcademic}

// sourcePriority is the static trust ranking used to break ties:
// MEMORY > DOCUMENT > WEB > ACADEMIC. Lower is stronger.
var sourcePriority = map[SourceID]int{
	SourceMemory:   0,
	SourceDocument: 1,
	SourceWeb:      2,
	SourceAcademic: 3,
}

// Priority returns the tie-break rank of id. Unknown ids rank last.
func Priority(id SourceID) int {
	if p, ok := sourcePriority[id]; ok {
		return p
	}
	return len(sourcePriority)
}

// Valid reports whether id is one of the four knowledge sources.
func (id SourceID) Valid() bool {
	_, ok := sourcePriority[id]
	return ok
}

// Label returns the lowercase human name used in messages ("document", "web").
func (id SourceID) Label() string {
	return strings.ToLower(string(id))
}

// ParseSourceID accepts a source id in any letter case.
func ParseSourceID(s string) (SourceID, error) {
	id := SourceID(strings.ToUpper(strings.TrimSpace(s)))
	if !id.Valid() {
		return "", fmt.Errorf("unknown source %q", s)
	}
	return id, nil
}

// SourceStatus is the outcome of one adapter call.
type SourceStatus string

const (
	StatusOK           SourceStatus = "OK"
	StatusInsufficient SourceStatus = "INSUFFICIENT"
	StatusError        SourceStatus = "ERROR"
)

// Citation points at the evidence behind a statement. Uniqueness is not
// enforced here; the synthesizer merges by (Label, Locator).
type Citation struct {
	// Label is the human-readable source name (file name, page title, paper title).
	Label string `json:"label" yaml:"label"`

	// Locator pins the evidence inside the source: a page, URL, or chunk id.
	Locator string `json:"locator" yaml:"locator"`

	PageNumber *int     `json:"page_number,omitempty" yaml:"page_number,omitempty"`
	ChunkIndex *int     `json:"chunk_index,omitempty" yaml:"chunk_index,omitempty"`
	Score      *float64 `json:"score,omitempty" yaml:"score,omitempty"`

	// Content is a snippet of the cited text.
	Content string `json:"content,omitempty" yaml:"content,omitempty"`
}

// Key returns the (label, locator) identity used for deduplication.
func (c Citation) Key() string {
	return c.Label + "\x00" + c.Locator
}

// SourceResult is one adapter's contribution to a query.
type SourceResult struct {
	SourceID  SourceID     `json:"source_id" yaml:"source_id"`
	Status    SourceStatus `json:"status" yaml:"status"`
	Answer    string       `json:"answer" yaml:"answer"`
	Citations []Citation   `json:"citations" yaml:"citations"`

	// Confidence is the adapter confidence in [0,1]. It is 0 whenever
	// Status is not OK.
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// RawPayload keeps the collaborator output for UI and debugging. It is
	// never consumed by the evaluator or synthesizer.
	RawPayload any `json:"raw_payload,omitempty" yaml:"raw_payload,omitempty"`
}

// Usable reports whether the result may be treated as evidence.
func (r SourceResult) Usable() bool {
	return r.Status == StatusOK
}

// Normalize enforces the SourceResult invariants: a known status, a
// confidence clamped to [0,1] with NaN mapped to 0, zero confidence for any
// non-OK status, and a non-nil citation slice.
func (r SourceResult) Normalize() SourceResult {
	switch r.Status {
	case StatusOK, StatusInsufficient, StatusError:
	default:
		r.Status = StatusError
	}
	r.Confidence = ClampUnit(r.Confidence)
	if r.Status != StatusOK {
		r.Confidence = 0
	}
	if r.Citations == nil {
		r.Citations = []Citation{}
	}
	return r
}

// ClampUnit maps v into [0,1]. NaN becomes 0.
func ClampUnit(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// ConfidenceTable maps a source type to the fixed confidence reported when
// that source answers. It encodes a static trust ranking between source
// types; it says nothing about how well a given query matched.
type ConfidenceTable map[SourceID]float64

// DefaultConfidenceTable returns the stock trust priors.
func DefaultConfidenceTable() ConfidenceTable {
	return ConfidenceTable{
		SourceMemory:   0.98,
		SourceWeb:      0.97,
		SourceAcademic: 0.92,
	}
}

// For returns the configured confidence for id, clamped to [0,1]. A
// missing entry yields 0.
func (t ConfidenceTable) For(id SourceID) float64 {
	return ClampUnit(t[id])
}
