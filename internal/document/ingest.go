// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package document

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// IngestSummary holds counts from an indexing run.
type IngestSummary struct {
	Indexed int
	Updated int
	Skipped int
	Failed  int
}

// Total returns the number of files processed.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

var textExtensions = map[string]bool{".md": true, ".markdown": true, ".txt": true}
var convertExtensions = map[string]bool{".pdf": true, ".docx": true, ".pptx": true, ".html": true}

// Supported reports whether Ingest knows how to read path.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return textExtensions[ext] || convertExtensions[ext]
}

// Ingest indexes every supported file named in paths. Directories are
// walked recursively. Files whose modification time matches the indexed
// copy are skipped; changed files are re-chunked. Progress lines go to w.
func (s *Store) Ingest(ctx context.Context, paths []string, w io.Writer) (IngestSummary, error) {
	files, err := collectFiles(paths)
	if err != nil {
		return IngestSummary{}, err
	}

	var summary IngestSummary
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		name := filepath.Base(path)
		info, err := os.Stat(path)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			summary.Failed++
			continue
		}
		modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

		var storedModTime string
		err = s.db.QueryRowContext(ctx,
			`SELECT mod_time FROM documents WHERE path = ?`, path,
		).Scan(&storedModTime)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return summary, fmt.Errorf("checking %s: %w", name, err)
		}
		if err == nil && storedModTime == modTime {
			fmt.Fprintf(w, "skipped %s\n", name)
			summary.Skipped++
			continue
		}
		isUpdate := err == nil

		content, err := s.readContent(ctx, path)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			summary.Failed++
			continue
		}

		chunks := chunkMarkdown(content, s.chunkSize)
		if len(chunks) == 0 {
			fmt.Fprintf(w, "failed  %s: no text content\n", name)
			summary.Failed++
			continue
		}

		title := documentTitle(content, name)
		if err := s.ingestDocument(ctx, path, title, modTime, chunks); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			summary.Failed++
			continue
		}

		if isUpdate {
			fmt.Fprintf(w, "updated %s (%d chunks)\n", name, len(chunks))
			summary.Updated++
		} else {
			fmt.Fprintf(w, "indexed %s (%d chunks)\n", name, len(chunks))
			summary.Indexed++
		}
	}

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, failed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Failed)
	return summary, nil
}

func (s *Store) readContent(ctx context.Context, path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if textExtensions[ext] {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	if s.converter == nil {
		return "", fmt.Errorf("no converter configured for %s files", ext)
	}
	return s.converter.Convert(ctx, path)
}

func (s *Store) ingestDocument(ctx context.Context, path, title, modTime string, chunks []chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var docID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO documents (path, title, mod_time) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET title=excluded.title, mod_time=excluded.mod_time
		 RETURNING id`,
		path, title, modTime,
	).Scan(&docID)
	if err != nil {
		return fmt.Errorf("upserting document: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, docID); err != nil {
		return fmt.Errorf("deleting old chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (document_id, chunk_index, page, heading, content) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range chunks {
		if _, err := stmt.ExecContext(ctx, docID, i, c.page, c.heading, c.text); err != nil {
			return fmt.Errorf("inserting chunk %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// collectFiles expands directories and returns absolute paths of supported
// files in walk order. Explicitly named files must be supported.
func collectFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		if !info.IsDir() {
			if !Supported(abs) {
				return nil, fmt.Errorf("unsupported file type: %s", p)
			}
			files = append(files, abs)
			continue
		}
		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() && strings.HasPrefix(d.Name(), ".") && path != abs {
				return filepath.SkipDir
			}
			if !d.IsDir() && Supported(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", p, err)
		}
	}
	return files, nil
}
