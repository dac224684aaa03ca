// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package document

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// Search returns up to limit chunks matching query, best first. A limit of
// 0 uses the configured max_chunks. Queries with no searchable terms return
// no chunks.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]types.Chunk, error) {
	if limit <= 0 {
		limit = s.maxChunks
	}
	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT d.path, c.chunk_index, c.page, c.content, bm25(chunks_fts)
		FROM chunks_fts
		JOIN chunks c ON c.rowid = chunks_fts.rowid
		JOIN documents d ON d.id = c.document_id
		WHERE chunks_fts MATCH ?
		ORDER BY bm25(chunks_fts)
		LIMIT ?`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}
	defer rows.Close()

	var chunks []types.Chunk
	for rows.Next() {
		var (
			c    types.Chunk
			path string
			rank float64
		)
		if err := rows.Scan(&path, &c.ChunkIndex, &c.Page, &c.Text, &rank); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		c.Label = filepath.Base(path)
		c.Score = rankScore(rank)
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// rankScore maps an FTS5 bm25 rank (negative, lower is better) into [0,1).
func rankScore(bm25 float64) float64 {
	r := -bm25
	if r <= 0 {
		return 0
	}
	return r / (1 + r)
}

// ftsQuery turns free text into an FTS5 expression: each word becomes a
// quoted term and terms are OR-joined. Words shorter than two characters
// and a few stop words are dropped.
func ftsQuery(q string) string {
	words := strings.FieldsFunc(strings.ToLower(q), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool, len(words))
	terms := make([]string, 0, len(words))
	for _, w := range words {
		if len([]rune(w)) < 2 || stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, `"`+w+`"`)
	}
	return strings.Join(terms, " OR ")
}

var stopWords = map[string]bool{
	"the": true, "and": true, "or": true, "of": true, "to": true, "in": true,
	"is": true, "are": true, "was": true, "what": true, "how": true, "does": true,
	"do": true, "a": true, "an": true, "for": true, "on": true, "with": true,
	"about": true, "me": true, "tell": true, "it": true, "this": true, "that": true,
	"not": true, "near": true,
}
