// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// FinalStatus is the terminal state of a query.
type FinalStatus string

const (
	FinalOK                  FinalStatus = "OK"
	FinalInsufficientContext FinalStatus = "INSUFFICIENT_CONTEXT"
)

// EvaluationResult records which sources the evaluator kept and why.
type EvaluationResult struct {
	// RelevantSourceIDs is the set of kept sources in canonical order.
	RelevantSourceIDs []SourceID `json:"relevant_source_ids" yaml:"relevant_source_ids"`

	// RelevanceScores is the evaluator's re-judged usefulness per source,
	// distinct from the adapter confidence.
	RelevanceScores map[SourceID]float64 `json:"relevance_scores" yaml:"relevance_scores"`

	Reasoning string `json:"reasoning" yaml:"reasoning"`

	// Fallback is set when the judgment step failed and adapter
	// confidences were used instead.
	Fallback bool `json:"fallback,omitempty" yaml:"fallback,omitempty"`
}

// Includes reports whether id was kept.
func (e EvaluationResult) Includes(id SourceID) bool {
	for _, s := range e.RelevantSourceIDs {
		if s == id {
			return true
		}
	}
	return false
}

// FinalResponse is the synthesized answer.
type FinalResponse struct {
	Status FinalStatus `json:"status" yaml:"status"`

	// SourceUsed is the single best-attributed source, or SourceNone.
	SourceUsed SourceID `json:"source_used" yaml:"source_used"`

	Answer    string     `json:"answer" yaml:"answer"`
	Citations []Citation `json:"citations" yaml:"citations"`

	// Confidence is the end-to-end answer quality in [0,1], produced from
	// the filtered evidence only.
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// Missing lists short descriptions of information gaps.
	Missing []string `json:"missing" yaml:"missing"`
}

// Insufficient builds an INSUFFICIENT_CONTEXT response with the given gaps.
func Insufficient(missing ...string) FinalResponse {
	if len(missing) == 0 {
		missing = []string{"no source could answer the query"}
	}
	return FinalResponse{
		Status:     FinalInsufficientContext,
		SourceUsed: SourceNone,
		Answer:     "",
		Citations:  []Citation{},
		Confidence: 0,
		Missing:    missing,
	}
}

// QueryRequest is what a caller sends to the pipeline.
type QueryRequest struct {
	Query    string `json:"query" yaml:"query" validate:"required,max=4000"`
	UserID   string `json:"user_id" yaml:"user_id" validate:"omitempty,max=128"`
	ThreadID string `json:"thread_id" yaml:"thread_id" validate:"omitempty,max=128"`
}

const (
	DefaultUserID   = "default_user"
	DefaultThreadID = "default_thread"
)

// WithDefaults fills empty user and thread ids.
func (r QueryRequest) WithDefaults() QueryRequest {
	if r.UserID == "" {
		r.UserID = DefaultUserID
	}
	if r.ThreadID == "" {
		r.ThreadID = DefaultThreadID
	}
	return r
}

// Trimmed strips surrounding whitespace from every field, so a blank query
// fails the required check.
func (r QueryRequest) Trimmed() QueryRequest {
	r.Query = strings.TrimSpace(r.Query)
	r.UserID = strings.TrimSpace(r.UserID)
	r.ThreadID = strings.TrimSpace(r.ThreadID)
	return r
}

// SessionID identifies the conversation in the memory collaborator.
func (r QueryRequest) SessionID() string {
	r = r.WithDefaults()
	return r.UserID + ":" + r.ThreadID
}

// QueryResponse is the pipeline-to-caller contract: the final response plus
// the per-source results and the evaluation that led to it.
type QueryResponse struct {
	FinalResponse `yaml:",inline"`

	ContextSources   map[SourceID]SourceResult `json:"context_sources" yaml:"context_sources"`
	EvaluationResult EvaluationResult          `json:"evaluation_result" yaml:"evaluation_result"`
}
