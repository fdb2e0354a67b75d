//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"

	"github.com/quillhq/vellum/internal/models"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses a LIKE fallback on entities.body.
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _, _, _ string) error {
	// Body is already stored in the entities table; nothing extra to do.
	return nil
}

func ftsDelete(_ *sql.Tx, _, _ string) {}

// Search performs a LIKE-based search (fallback when FTS5 is not compiled
// in), optionally restricted to one entity kind.
func (db *DB) Search(query string, kind models.Kind, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"

	q := `
		SELECT kind, id, title, substr(body, 1, 200)
		FROM entities
		WHERE (title LIKE ? OR body LIKE ?)`
	args := []any{like, like}
	if kind != "" {
		q += ` AND kind = ?`
		args = append(args, string(kind))
	}
	q += ` LIMIT ?`
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
