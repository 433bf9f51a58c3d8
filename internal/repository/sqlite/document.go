package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/sakif/agentforge/internal/apperror"
	"github.com/sakif/agentforge/internal/model"
	"github.com/sakif/agentforge/internal/repository"
)

// DocumentDB is the document repository over the shared connection pool. It
// is a separate receiver because its method set overlaps the app repository's.
type DocumentDB struct {
	conn *sql.DB
}

// Documents returns the document repository view of the database.
func (db *DB) Documents() *DocumentDB {
	return &DocumentDB{conn: db.conn}
}

var _ repository.DocumentRepository = (*DocumentDB)(nil)

// Upsert stores a knowledge document. The documents_fts index is kept in sync
// in the same transaction; the old index row is dropped first so a refresh
// never double-indexes.
func (db *DocumentDB) Upsert(ctx context.Context, doc *model.Document) error {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (id, kind, content, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET kind = excluded.kind`,
		doc.ID, doc.Kind, doc.Content, doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting document: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents_fts WHERE id = ?`, doc.ID); err != nil {
		return fmt.Errorf("sqlite: clearing document index: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents_fts (id, content) VALUES (?, ?)`,
		doc.ID, doc.Content,
	); err != nil {
		return fmt.Errorf("sqlite: indexing document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing document: %w", err)
	}
	return nil
}

// List returns documents newest first.
func (db *DocumentDB) List(ctx context.Context, opts repository.ListOptions) ([]model.Document, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, kind, content, created_at
		 FROM documents
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?`,
		opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing documents: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// Search ranks documents against the query with the FTS index. Queries are
// reduced to bare word tokens before matching, so arbitrary user text never
// reaches the FTS query parser.
func (db *DocumentDB) Search(ctx context.Context, query string, limit int) ([]model.Document, error) {
	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT d.id, d.kind, d.content, d.created_at
		 FROM documents_fts f
		 JOIN documents d ON d.id = f.id
		 WHERE documents_fts MATCH ?
		 ORDER BY rank
		 LIMIT ?`,
		match, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: searching documents: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// Delete removes a document and its index row.
func (db *DocumentDB) Delete(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("document", id)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents_fts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: clearing document index: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing document delete: %w", err)
	}
	return nil
}

func scanDocuments(rows *sql.Rows) ([]model.Document, error) {
	var docs []model.Document
	for rows.Next() {
		var d model.Document
		if err := rows.Scan(&d.ID, &d.Kind, &d.Content, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating documents: %w", err)
	}
	return docs, nil
}

// ftsQuery lowercases the text and keeps only word tokens, OR-joined.
func ftsQuery(query string) string {
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(words, " OR ")
}
