package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quillhq/vellum/internal/apperr"
	"github.com/quillhq/vellum/internal/frontmatter"
	"github.com/quillhq/vellum/internal/models"
	"github.com/quillhq/vellum/internal/paths"
	"github.com/quillhq/vellum/internal/storage"
	"github.com/quillhq/vellum/internal/watch"
)

// RiffStore persists riffs: AI-assisted drafts stored as frontmatter
// documents, eventually integrated into permanent notes.
type RiffStore struct {
	fs     storage.Provider
	filter *watch.SelfWriteFilter
	locks  *keyedMutex
	logger *slog.Logger
}

// NewRiff returns an empty riff with a fresh id.
func (s *RiffStore) NewRiff(artifactType string) *models.Riff {
	now := time.Now()
	return &models.Riff{
		Meta: models.RiffMeta{
			ID:           paths.NewID(now),
			Created:      now,
			Updated:      now,
			ArtifactType: artifactType,
		},
	}
}

// Load reads and parses the riff with the given id. Absent and malformed
// files both yield ErrNotFound.
func (s *RiffStore) Load(id string) (*models.Riff, error) {
	data, err := s.fs.Read(paths.RiffData(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	var meta models.RiffMeta
	body, err := frontmatter.Parse(data, &meta)
	if err != nil {
		s.logger.Warn("store: malformed riff",
			slog.String("id", id), slog.String("error", err.Error()))
		return nil, apperr.ErrNotFound
	}
	if meta.ID == "" {
		meta.ID = id
	}
	return &models.Riff{Meta: meta, Body: body}, nil
}

// Save writes the riff document, marking the self-write filter before the
// write.
func (s *RiffStore) Save(r *models.Riff) error {
	now := time.Now()
	if r.Meta.Created.IsZero() {
		r.Meta.Created = now
	}
	r.Meta.Updated = now

	data, err := frontmatter.Render(r.Meta, r.Body)
	if err != nil {
		return fmt.Errorf("store: render riff %s: %w", r.Meta.ID, err)
	}

	path := paths.RiffData(r.Meta.ID)
	s.filter.Mark(path)
	return s.fs.Write(path, data)
}

// Delete removes the riff and reports whether it existed.
func (s *RiffStore) Delete(id string) (bool, error) {
	path := paths.RiffData(id)
	existed := s.fs.Exists(path)
	s.filter.Mark(path)
	if !existed {
		return false, nil
	}
	return true, s.fs.Delete(path)
}

// Rename re-derives the riff's id from the new title; see
// ConversationStore.Rename for the watcher-atomicity contract. The title
// only feeds the id slug: a riff's display title lives in its body
// heading, not its frontmatter.
func (s *RiffStore) Rename(id, title string) (string, error) {
	unlock := s.locks.lock("riff/" + id)
	defer unlock()

	r, err := s.Load(id)
	if err != nil {
		return "", err
	}

	newID := paths.RenamedID(id, title)
	if newID == id {
		return id, nil
	}
	if s.fs.Exists(paths.RiffData(newID)) {
		return "", apperr.ErrAlreadyExists
	}

	oldPath := paths.RiffData(id)
	s.filter.Mark(oldPath)

	r.Meta.ID = newID
	if err := s.Save(r); err != nil {
		return "", err
	}
	return newID, s.fs.Delete(oldPath)
}

// AtomicUpdate re-reads the riff from disk, applies mutate, writes the
// result back, and returns the merged entity.
func (s *RiffStore) AtomicUpdate(id string, mutate func(*models.Riff) error) (*models.Riff, error) {
	unlock := s.locks.lock("riff/" + id)
	defer unlock()

	r, err := s.Load(id)
	if err != nil {
		return nil, err
	}
	if err := mutate(r); err != nil {
		return nil, err
	}
	if err := s.Save(r); err != nil {
		return nil, err
	}
	return r, nil
}

// UpdateBody replaces the riff body with content computed from an earlier
// snapshot, typically the result of a multi-second generation round trip.
// The frontmatter is re-read immediately before the write, so metadata
// mutated in the meantime (a comment appended by a concurrent call, say)
// is preserved even though the body predates it. Comments are re-anchored
// against the new body, and change is appended to the edit history.
func (s *RiffStore) UpdateBody(id, body, change string) (*models.Riff, error) {
	unlock := s.locks.lock("riff/" + id)
	defer unlock()

	r, err := s.Load(id)
	if err != nil {
		return nil, err
	}

	r.Body = body
	if change != "" {
		r.Meta.History = append(r.Meta.History, models.RiffChange{
			Timestamp: time.Now(),
			Change:    change,
		})
	}
	reanchorComments(r.Meta.Comments, body)

	if err := s.Save(r); err != nil {
		return nil, err
	}
	return r, nil
}

// AddComment attaches a comment to the paragraph at paragraphIndex,
// capturing a snippet of that paragraph as the re-anchoring fallback.
func (s *RiffStore) AddComment(id string, paragraphIndex int, content string) (*models.Comment, error) {
	var added models.Comment
	_, err := s.AtomicUpdate(id, func(r *models.Riff) error {
		paras := splitParagraphs(r.Body)
		if paragraphIndex < 0 || paragraphIndex >= len(paras) {
			return fmt.Errorf("store: paragraph %d out of range (%d paragraphs): %w",
				paragraphIndex, len(paras), apperr.ErrConflict)
		}
		added = models.Comment{
			ID:        uuid.NewString()[:8],
			Timestamp: time.Now(),
			Anchor: models.CommentAnchor{
				ParagraphIndex: paragraphIndex,
				Snippet:        snippetOf(paras[paragraphIndex]),
			},
			Content: content,
		}
		r.Meta.Comments = append(r.Meta.Comments, added)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &added, nil
}

// Integrate copies the riff body into a permanent note carrying a
// provenance marker back to the riff, then flags the riff integrated.
// It returns the note name the body landed under.
func (s *RiffStore) Integrate(id, noteName string) (string, error) {
	unlock := s.locks.lock("riff/" + id)
	defer unlock()

	r, err := s.Load(id)
	if err != nil {
		return "", err
	}
	if noteName == "" {
		noteName = paths.Slugify(frontmatter.Title(r.Body))
	}
	if noteName == "" {
		noteName = r.Meta.ID
	}

	notePath := paths.NoteData(noteName)
	if s.fs.Exists(notePath) {
		return "", apperr.ErrAlreadyExists
	}

	note := fmt.Sprintf("<!-- integrated from %s -->\n\n%s", paths.RiffData(id), r.Body)
	s.filter.Mark(notePath)
	if err := s.fs.Write(notePath, []byte(note)); err != nil {
		return "", err
	}

	r.Meta.Integrated = true
	return noteName, s.Save(r)
}

// reanchorComments re-points comments whose paragraph no longer contains
// their snippet. A comment whose snippet appears nowhere keeps its index;
// re-anchoring is best effort.
func reanchorComments(comments []models.Comment, body string) {
	paras := splitParagraphs(body)
	for i := range comments {
		c := &comments[i]
		if c.Anchor.Snippet == "" {
			continue
		}
		idx := c.Anchor.ParagraphIndex
		if idx >= 0 && idx < len(paras) && strings.Contains(paras[idx], c.Anchor.Snippet) {
			continue
		}
		for j, p := range paras {
			if strings.Contains(p, c.Anchor.Snippet) {
				c.Anchor.ParagraphIndex = j
				break
			}
		}
	}
}

// splitParagraphs splits body on blank lines, dropping empty segments.
func splitParagraphs(body string) []string {
	var out []string
	for _, p := range strings.Split(body, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// snippetOf returns the anchoring snippet for a paragraph: its first line,
// capped at 80 bytes.
func snippetOf(para string) string {
	line := para
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if len(line) > 80 {
		line = line[:80]
	}
	return strings.TrimSpace(line)
}
