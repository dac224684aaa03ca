// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Chunk is one passage returned by the document knowledge collaborator.
type Chunk struct {
	// Label names the document the chunk came from (usually the file name).
	Label string `json:"label" yaml:"label"`

	Text string `json:"text" yaml:"text"`

	// Score is the similarity in [0,1] reported by the index.
	Score float64 `json:"score" yaml:"score"`

	// Page is the 1-based page number, or 0 when unknown.
	Page int `json:"page,omitempty" yaml:"page,omitempty"`

	ChunkIndex int `json:"chunk_index" yaml:"chunk_index"`
}

// DocumentInfo describes one indexed document.
type DocumentInfo struct {
	ID      int64     `json:"id" yaml:"id"`
	Path    string    `json:"path" yaml:"path"`
	Title   string    `json:"title" yaml:"title"`
	Chunks  int       `json:"chunks" yaml:"chunks"`
	ModTime time.Time `json:"mod_time" yaml:"mod_time"`
}

// Message is one conversation turn held by the memory collaborator.
type Message struct {
	Role      string    `json:"role" yaml:"role"`
	Content   string    `json:"content" yaml:"content"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Recollection is what the memory collaborator knows about a session.
type Recollection struct {
	// Context holds prior turns rendered as "role: content", oldest first.
	Context []string `json:"context" yaml:"context"`
	Found   bool     `json:"found" yaml:"found"`
}

// WebResult is one hit from the web search collaborator.
type WebResult struct {
	Title   string `json:"title" yaml:"title"`
	URL     string `json:"url" yaml:"url"`
	Content string `json:"content" yaml:"content"`
}
