package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/sandevgo/quill/internal/core"
)

type DocumentsRepo struct {
	db *sql.DB
}

func NewDocumentsRepo(db *sql.DB) *DocumentsRepo {
	return &DocumentsRepo{db: db}
}

// UpsertDocument replaces the document row and all of its chunks.
func (r *DocumentsRepo) UpsertDocument(ctx context.Context, doc core.Document) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO documents (path, title, tags, mod_time) VALUES (?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET title = excluded.title, tags = excluded.tags,
		     mod_time = excluded.mod_time, indexed_at = CURRENT_TIMESTAMP
		 RETURNING id`,
		doc.Path, doc.Title, strings.Join(doc.Tags, ","), doc.ModTime.UnixNano(),
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to upsert document %s: %w", doc.Path, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks (document_id, idx, content) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, chunk := range doc.Chunks {
		if _, err := stmt.ExecContext(ctx, id, i, chunk); err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", i, err)
		}
	}

	return tx.Commit()
}

func (r *DocumentsRepo) DocumentModTimes(ctx context.Context) (map[string]time.Time, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT path, mod_time FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	out := make(map[string]time.Time)
	for rows.Next() {
		var path string
		var mod int64
		if err := rows.Scan(&path, &mod); err != nil {
			return nil, err
		}
		out[path] = time.Unix(0, mod)
	}
	return out, rows.Err()
}

func (r *DocumentsRepo) DeleteDocuments(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, p := range paths {
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE path = ?`, p); err != nil {
			return fmt.Errorf("failed to delete document %s: %w", p, err)
		}
	}
	return tx.Commit()
}

// SearchChunks ranks chunks by how many terms they contain, counting title
// hits twice, and returns the best chunk of each document.
func (r *DocumentsRepo) SearchChunks(ctx context.Context, terms []string, limit int) ([]core.DocSlice, error) {
	if len(terms) == 0 || limit <= 0 {
		return nil, nil
	}

	var score []string
	var args []any
	for _, term := range terms {
		score = append(score, "(instr(lower(c.content), ?) > 0) + 2 * (instr(lower(d.title), ?) > 0)")
		t := strings.ToLower(term)
		args = append(args, t, t)
	}
	expr := strings.Join(score, " + ")

	query := fmt.Sprintf(`
		SELECT path, title, content, score FROM (
			SELECT d.path AS path, d.title AS title, c.content AS content, c.idx AS idx,
			       %s AS score,
			       ROW_NUMBER() OVER (PARTITION BY d.id ORDER BY %s DESC, c.idx ASC) AS rn
			FROM chunks c JOIN documents d ON d.id = c.document_id
		)
		WHERE score > 0 AND rn = 1
		ORDER BY score DESC, path ASC
		LIMIT ?`, expr, expr)

	// The score expression appears twice, so its arguments do too.
	fullArgs := append(append(slices.Clone(args), args...), limit)

	rows, err := r.db.QueryContext(ctx, query, fullArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer rows.Close()

	var out []core.DocSlice
	for rows.Next() {
		var s core.DocSlice
		if err := rows.Scan(&s.Path, &s.Title, &s.Snippet, &s.Score); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
