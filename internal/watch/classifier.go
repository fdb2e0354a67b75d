package watch

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/quillhq/vellum/internal/models"
	"github.com/quillhq/vellum/internal/paths"
)

// Transition is the semantic lifecycle change of an entity.
type Transition string

const (
	Added    Transition = "added"
	Removed  Transition = "removed"
	Modified Transition = "modified"
)

// Event is a classified, non-suppressed entity change.
type Event struct {
	Kind       models.Kind
	ID         string
	Transition Transition
}

// Normalizer resolves a raw watch operation into a definite transition,
// probing the filesystem where the operation alone is ambiguous. It exists
// so platform quirks stay out of the classification rules and synthetic
// event streams can drive tests.
type Normalizer interface {
	Resolve(op fsnotify.Op, absPath string) (Transition, bool)
}

// OSNormalizer resolves operations against the real filesystem.
type OSNormalizer struct{}

// Resolve maps create→Added, remove→Removed, write→Modified. A rename
// operation is ambiguous: some platforms surface deletion as a rename, and
// editors replace files by renaming temp copies over them. The path is
// probed for continued existence to decide; skipping the probe makes
// deleted entities appear to linger.
func (OSNormalizer) Resolve(op fsnotify.Op, absPath string) (Transition, bool) {
	switch {
	case op&fsnotify.Create != 0:
		return Added, true
	case op&fsnotify.Remove != 0:
		return Removed, true
	case op&fsnotify.Rename != 0:
		if _, err := os.Stat(absPath); err == nil {
			return Modified, true
		}
		return Removed, true
	case op&fsnotify.Write != 0:
		return Modified, true
	}
	// Chmod and friends carry no entity-level meaning.
	return "", false
}

// Classifier turns debounced raw event batches into semantic entity events.
type Classifier struct {
	root   string
	filter *SelfWriteFilter
	norm   Normalizer
	logger *slog.Logger
}

// NewClassifier creates a classifier for the vault rooted at root.
func NewClassifier(root string, filter *SelfWriteFilter, norm Normalizer, logger *slog.Logger) *Classifier {
	if norm == nil {
		norm = OSNormalizer{}
	}
	return &Classifier{root: root, filter: filter, norm: norm, logger: logger}
}

// ClassifyBatch processes the raw operations collected for one path during
// a debounce window and returns the semantic events to deliver, in order.
//
// Rules:
//   - only recognized entity paths classify; previews and strays are ignored
//   - a batch on a self-written path is dropped whole (echo absorption)
//   - consecutive equal transitions collapse, as does Added followed by
//     Modified (one logical save), so an editor's write-then-rename dance
//     yields a single event. Removed followed by Added is preserved,
//     never collapsed into silence or a single Modified
func (c *Classifier) ClassifyBatch(absPath string, ops []fsnotify.Op) []Event {
	rel, err := filepath.Rel(c.root, absPath)
	if err != nil {
		return nil
	}
	rel = filepath.ToSlash(rel)

	kind, id, ok := paths.Parse(rel)
	if !ok {
		return nil
	}

	if c.filter.IsSelfWrite(rel) {
		c.logger.Debug("watch: suppressed self-write", slog.String("path", rel))
		return nil
	}

	var out []Event
	for _, op := range ops {
		tr, ok := c.norm.Resolve(op, absPath)
		if !ok {
			continue
		}
		if n := len(out); n > 0 {
			last := out[n-1].Transition
			if last == tr || (last == Added && tr == Modified) {
				continue
			}
		}
		out = append(out, Event{Kind: kind, ID: id, Transition: tr})
	}
	return out
}
