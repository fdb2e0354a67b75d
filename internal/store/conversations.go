package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quillhq/vellum/internal/apperr"
	"github.com/quillhq/vellum/internal/models"
	"github.com/quillhq/vellum/internal/paths"
	"github.com/quillhq/vellum/internal/storage"
	"github.com/quillhq/vellum/internal/watch"
)

// ConversationStore persists conversations and their generated Markdown
// previews.
type ConversationStore struct {
	fs     storage.Provider
	filter *watch.SelfWriteFilter
	locks  *keyedMutex
	logger *slog.Logger
}

// NewConversation returns an empty conversation with a fresh id.
func (s *ConversationStore) NewConversation(model string) *models.Conversation {
	now := time.Now()
	return &models.Conversation{
		ID:      paths.NewID(now),
		Created: now,
		Updated: now,
		Model:   model,
	}
}

// Load reads and parses the conversation with the given id. Absent and
// malformed files both yield ErrNotFound; malformed content is logged,
// never fatal.
func (s *ConversationStore) Load(id string) (*models.Conversation, error) {
	data, err := s.fs.Read(paths.ConversationData(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	var c models.Conversation
	if err := yaml.Unmarshal(data, &c); err != nil {
		s.logger.Warn("store: malformed conversation",
			slog.String("id", id), slog.String("error", err.Error()))
		return nil, apperr.ErrNotFound
	}
	if c.ID == "" {
		c.ID = id
	}
	return &c, nil
}

// Save writes the conversation's data file and regenerates its preview.
// Both paths are marked in the self-write filter before any bytes hit
// disk; marking after the write would race the watcher and reintroduce
// the feedback loop.
func (s *ConversationStore) Save(c *models.Conversation) error {
	now := time.Now()
	if c.Created.IsZero() {
		c.Created = now
	}
	c.Updated = now
	c.Messages = filterEmptyMessages(c.Messages)
	if c.Title == "" {
		c.Title = deriveTitle(c.Messages)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("store: marshal conversation %s: %w", c.ID, err)
	}
	preview, err := renderPreview(c)
	if err != nil {
		return err
	}

	dataPath := paths.ConversationData(c.ID)
	previewPath := paths.ConversationPreview(c.ID)
	s.filter.Mark(dataPath)
	s.filter.Mark(previewPath)

	if err := s.fs.Write(dataPath, data); err != nil {
		return err
	}
	return s.fs.Write(previewPath, preview)
}

// Delete removes the conversation's data file and preview. It reports
// whether the conversation existed.
func (s *ConversationStore) Delete(id string) (bool, error) {
	dataPath := paths.ConversationData(id)
	previewPath := paths.ConversationPreview(id)

	existed := s.fs.Exists(dataPath)
	s.filter.Mark(dataPath)
	s.filter.Mark(previewPath)

	if existed {
		if err := s.fs.Delete(dataPath); err != nil {
			return true, err
		}
	}
	if s.fs.Exists(previewPath) {
		if err := s.fs.Delete(previewPath); err != nil {
			return existed, err
		}
	}
	return existed, nil
}

// Rename re-derives the conversation's id from the new title and moves it
// to the new canonical paths. The write-then-delete pair is not atomic at
// the OS level, but both halves are pre-marked so the watcher sees neither
// a Removed(old) nor an Added(new).
func (s *ConversationStore) Rename(id, title string) (string, error) {
	unlock := s.locks.lock("conversation/" + id)
	defer unlock()

	c, err := s.Load(id)
	if err != nil {
		return "", err
	}

	newID := paths.RenamedID(id, title)
	if newID == id {
		c.Title = title
		return id, s.Save(c)
	}
	if s.fs.Exists(paths.ConversationData(newID)) {
		return "", apperr.ErrAlreadyExists
	}

	oldData := paths.ConversationData(id)
	oldPreview := paths.ConversationPreview(id)
	s.filter.Mark(oldData)
	s.filter.Mark(oldPreview)

	c.ID = newID
	c.Title = title
	if err := s.Save(c); err != nil {
		return "", err
	}

	if err := s.fs.Delete(oldData); err != nil {
		return newID, err
	}
	if s.fs.Exists(oldPreview) {
		if err := s.fs.Delete(oldPreview); err != nil {
			return newID, err
		}
	}
	return newID, nil
}

// AtomicUpdate re-reads the conversation from disk, applies mutate to the
// fresh copy, writes it back, and returns the merged entity. The re-read
// is what keeps a concurrent writer's already-landed update from being
// silently discarded; a caller-held in-memory copy is never trusted.
// Same-id calls within this process are serialized.
func (s *ConversationStore) AtomicUpdate(id string, mutate func(*models.Conversation) error) (*models.Conversation, error) {
	unlock := s.locks.lock("conversation/" + id)
	defer unlock()

	c, err := s.Load(id)
	if err != nil {
		return nil, err
	}
	if err := mutate(c); err != nil {
		return nil, err
	}
	if err := s.Save(c); err != nil {
		return nil, err
	}
	return c, nil
}

// filterEmptyMessages drops messages that carry no content, attachments,
// or tool use. The result is a fresh slice; the input, which may still be
// owned by an API caller, is left untouched.
func filterEmptyMessages(msgs []models.Message) []models.Message {
	out := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		if strings.TrimSpace(m.Content) == "" && len(m.Attachments) == 0 && len(m.ToolUse) == 0 {
			continue
		}
		out = append(out, m)
	}
	return out
}

// deriveTitle builds a title from the first user message.
func deriveTitle(msgs []models.Message) string {
	for _, m := range msgs {
		if m.Role != "user" {
			continue
		}
		line := m.Content
		if i := strings.IndexByte(line, '\n'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if len(line) > 60 {
			line = strings.TrimSpace(line[:60])
		}
		return line
	}
	return ""
}
