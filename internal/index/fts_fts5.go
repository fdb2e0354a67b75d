//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"

	"github.com/quillhq/vellum/internal/models"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS entities_fts USING fts5(
			kind UNINDEXED,
			id UNINDEXED,
			title,
			body,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, kind, id, title, body string) error {
	_, _ = tx.Exec(`DELETE FROM entities_fts WHERE kind = ? AND id = ?`, kind, id)
	_, err := tx.Exec(`INSERT INTO entities_fts (kind, id, title, body) VALUES (?, ?, ?, ?)`,
		kind, id, title, body)
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, kind, id string) {
	_, _ = tx.Exec(`DELETE FROM entities_fts WHERE kind = ? AND id = ?`, kind, id)
}

// Search performs an FTS5 full-text search, optionally restricted to one
// entity kind, and returns matching results with snippets.
func (db *DB) Search(query string, kind models.Kind, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}

	q := `
		SELECT kind,
		       id,
		       title,
		       snippet(entities_fts, 3, '<b>', '</b>', '...', 64)
		FROM entities_fts
		WHERE entities_fts MATCH ?`
	args := []any{query}
	if kind != "" {
		q += ` AND kind = ?`
		args = append(args, string(kind))
	}
	q += ` ORDER BY rank LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var k string
		if err := rows.Scan(&k, &r.ID, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		r.Kind = models.Kind(k)
		out = append(out, r)
	}
	return out, rows.Err()
}
