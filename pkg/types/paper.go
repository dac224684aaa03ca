// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Paper represents a candidate paper returned by an academic API query.
type Paper struct {
	// Identifier is the canonical ID from the source (arXiv ID, DOI, or URL).
	Identifier string `json:"identifier" yaml:"identifier"`

	Title   string    `json:"title" yaml:"title"`
	Authors []string  `json:"authors" yaml:"authors"`
	Date    time.Time `json:"date" yaml:"date"`

	// Abstract is the paper abstract or summary.
	Abstract string `json:"abstract" yaml:"abstract"`

	// URL links to the paper landing page.
	URL string `json:"url" yaml:"url"`

	// Source identifies which backend found this paper (e.g. "arxiv", "semantic_scholar").
	Source string `json:"source" yaml:"source"`

	// RelevanceScore is a value between 0.0 and 1.0 indicating relevance to the query.
	RelevanceScore float64 `json:"relevance_score" yaml:"relevance_score"`
}
