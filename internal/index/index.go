package index

import "github.com/quillhq/vellum/internal/models"

// EntityIndex defines the interface for index operations. Consumers should
// depend on this interface rather than the concrete *DB type to facilitate
// testing with mocks.
type EntityIndex interface {
	Upsert(row EntityRow, body string) error
	Delete(kind models.Kind, id string) error
	Get(kind models.Kind, id string) (*EntityRow, error)
	List(kind models.Kind, limit, offset int) ([]EntityRow, int, error)
	Search(query string, kind models.Kind, limit int) ([]SearchResult, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies EntityIndex at compile time.
var _ EntityIndex = (*DB)(nil)
