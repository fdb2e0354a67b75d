package index

import (
	"fmt"
	"time"

	"github.com/quillhq/vellum/internal/models"
)

// EntityRow represents a row in the entities table.
type EntityRow struct {
	Kind      models.Kind
	ID        string
	Title     string
	Checksum  string
	UpdatedAt time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Kind    models.Kind `json:"kind"`
	ID      string      `json:"id"`
	Title   string      `json:"title"`
	Snippet string      `json:"snippet"`
}

// Upsert inserts or replaces an entity row and its FTS entry.
func (db *DB) Upsert(row EntityRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO entities (kind, id, title, checksum, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(kind, id) DO UPDATE SET
			title      = excluded.title,
			checksum   = excluded.checksum,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, string(row.Kind), row.ID, row.Title, row.Checksum, body, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert entity: %w", err)
	}

	// FTS upsert (no-op when the FTS5 tag is absent).
	if err := ftsUpsert(tx, string(row.Kind), row.ID, row.Title, body); err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes an entity row and its FTS entry.
func (db *DB) Delete(kind models.Kind, id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, string(kind), id)
	_, _ = tx.Exec(`DELETE FROM entities WHERE kind = ? AND id = ?`, string(kind), id)

	return tx.Commit()
}

// Get returns the indexed row for an entity, or nil when absent.
func (db *DB) Get(kind models.Kind, id string) (*EntityRow, error) {
	row := EntityRow{Kind: kind, ID: id}
	err := db.conn.QueryRow(`
		SELECT title, checksum, updated_at FROM entities WHERE kind = ? AND id = ?
	`, string(kind), id).Scan(&row.Title, &row.Checksum, &row.UpdatedAt)
	if err != nil {
		return nil, nil //nolint:nilerr // absent rows are not an error
	}
	return &row, nil
}

// List returns paginated entity rows of one kind, newest first, along with
// the total count for that kind.
func (db *DB) List(kind models.Kind, limit, offset int) ([]EntityRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM entities WHERE kind = ?`, string(kind)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT id, title, checksum, updated_at
		FROM entities
		WHERE kind = ?
		ORDER BY updated_at DESC
		LIMIT ? OFFSET ?
	`, string(kind), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list: %w", err)
	}
	defer rows.Close()

	var out []EntityRow
	for rows.Next() {
		r := EntityRow{Kind: kind}
		if err := rows.Scan(&r.ID, &r.Title, &r.Checksum, &r.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// AllChecksums returns the checksum of every indexed entity, keyed by
// "<kind>/<id>". Used by startup reconciliation.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT kind, id, checksum FROM entities`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var kind, id, cs string
		if err := rows.Scan(&kind, &id, &cs); err != nil {
			return nil, err
		}
		out[kind+"/"+id] = cs
	}
	return out, rows.Err()
}
