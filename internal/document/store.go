// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package document indexes local documents into a SQLite FTS5 database and
// answers passage searches over them. It is the document knowledge
// collaborator of the query pipeline.
package document

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/research-assistant/pkg/types"
)

const dbFile = "documents.db"

// Store manages the document index database.
type Store struct {
	db        *sql.DB
	maxChunks int
	chunkSize int
	converter Converter
}

// Option customizes a Store.
type Option func(*Store)

// WithConverter sets the converter used for PDF files during ingestion.
// Without one, PDFs are reported as failed.
func WithConverter(c Converter) Option {
	return func(s *Store) { s.converter = c }
}

// Open opens or creates the index at cfg.IndexDir/documents.db and creates
// the schema if it does not exist.
func Open(cfg types.DocumentConfig, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(cfg.IndexDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(cfg.IndexDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:        db,
		maxChunks: cfg.MaxChunks,
		chunkSize: cfg.ChunkSize,
	}
	if s.maxChunks <= 0 {
		s.maxChunks = 5
	}
	if s.chunkSize <= 0 {
		s.chunkSize = 1500
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			path TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			mod_time TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			chunk_index INTEGER NOT NULL,
			page INTEGER NOT NULL DEFAULT 0,
			heading TEXT,
			content TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='chunks_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists > 0 {
		return nil
	}

	ftsStatements := []string{
		`CREATE VIRTUAL TABLE chunks_fts USING fts5(heading, content, content=chunks, content_rowid=rowid)`,
		`CREATE TRIGGER chunks_ai AFTER INSERT ON chunks BEGIN
			INSERT INTO chunks_fts(rowid, heading, content) VALUES (new.rowid, new.heading, new.content);
		END`,
		`CREATE TRIGGER chunks_ad AFTER DELETE ON chunks BEGIN
			INSERT INTO chunks_fts(chunks_fts, rowid, heading, content) VALUES('delete', old.rowid, old.heading, old.content);
		END`,
	}
	for _, stmt := range ftsStatements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating FTS infrastructure: %w", err)
		}
	}
	return nil
}

// Documents lists every indexed document with its chunk count.
func (s *Store) Documents(ctx context.Context) ([]types.DocumentInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.id, d.path, d.title, d.mod_time, count(c.rowid)
		FROM documents d LEFT JOIN chunks c ON c.document_id = d.id
		GROUP BY d.id ORDER BY d.path`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []types.DocumentInfo
	for rows.Next() {
		var (
			d       types.DocumentInfo
			modTime string
		)
		if err := rows.Scan(&d.ID, &d.Path, &d.Title, &modTime, &d.Chunks); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		d.ModTime, _ = time.Parse(time.RFC3339Nano, modTime)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Remove deletes a document and its chunks by path. It reports whether a
// document was removed.
func (s *Store) Remove(ctx context.Context, path string) (bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM chunks WHERE document_id IN (SELECT id FROM documents WHERE path = ?)`, abs); err != nil {
		return false, fmt.Errorf("deleting chunks: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE path = ?`, abs)
	if err != nil {
		return false, fmt.Errorf("deleting document: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, tx.Commit()
}
