package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quillhq/vellum/internal/apperr"
	"github.com/quillhq/vellum/internal/models"
	"github.com/quillhq/vellum/internal/paths"
	"github.com/quillhq/vellum/internal/storage"
	"github.com/quillhq/vellum/internal/watch"
)

// TriggerStore persists scheduled triggers.
type TriggerStore struct {
	fs     storage.Provider
	filter *watch.SelfWriteFilter
	locks  *keyedMutex
	logger *slog.Logger
}

// NewTrigger returns a disabled trigger with a fresh id.
func (s *TriggerStore) NewTrigger(title, model, prompt string, intervalMinutes int) *models.Trigger {
	now := time.Now()
	return &models.Trigger{
		ID:              paths.NewID(now),
		Created:         now,
		Updated:         now,
		Title:           title,
		Model:           model,
		TriggerPrompt:   prompt,
		IntervalMinutes: intervalMinutes,
	}
}

// Load reads and parses the trigger with the given id. Absent and
// malformed files both yield ErrNotFound.
func (s *TriggerStore) Load(id string) (*models.Trigger, error) {
	data, err := s.fs.Read(paths.TriggerData(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	var tr models.Trigger
	if err := yaml.Unmarshal(data, &tr); err != nil {
		s.logger.Warn("store: malformed trigger",
			slog.String("id", id), slog.String("error", err.Error()))
		return nil, apperr.ErrNotFound
	}
	if tr.ID == "" {
		tr.ID = id
	}
	return &tr, nil
}

// List returns every trigger in the vault. Malformed files are skipped.
func (s *TriggerStore) List() ([]*models.Trigger, error) {
	metas, err := s.fs.List(paths.TriggersDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []*models.Trigger
	for _, m := range metas {
		_, id, ok := paths.Parse(m.Path)
		if !ok {
			continue
		}
		tr, err := s.Load(id)
		if err != nil {
			continue
		}
		out = append(out, tr)
	}
	return out, nil
}

// Save writes the trigger's data file, marking the self-write filter
// before the write.
func (s *TriggerStore) Save(tr *models.Trigger) error {
	now := time.Now()
	if tr.Created.IsZero() {
		tr.Created = now
	}
	tr.Updated = now

	data, err := yaml.Marshal(tr)
	if err != nil {
		return fmt.Errorf("store: marshal trigger %s: %w", tr.ID, err)
	}

	path := paths.TriggerData(tr.ID)
	s.filter.Mark(path)
	return s.fs.Write(path, data)
}

// Delete removes the trigger's data file and reports whether it existed.
func (s *TriggerStore) Delete(id string) (bool, error) {
	path := paths.TriggerData(id)
	existed := s.fs.Exists(path)
	s.filter.Mark(path)
	if !existed {
		return false, nil
	}
	return true, s.fs.Delete(path)
}

// Rename re-derives the trigger's id from the new title; see
// ConversationStore.Rename for the watcher-atomicity contract.
func (s *TriggerStore) Rename(id, title string) (string, error) {
	unlock := s.locks.lock("trigger/" + id)
	defer unlock()

	tr, err := s.Load(id)
	if err != nil {
		return "", err
	}

	newID := paths.RenamedID(id, title)
	if newID == id {
		tr.Title = title
		return id, s.Save(tr)
	}
	if s.fs.Exists(paths.TriggerData(newID)) {
		return "", apperr.ErrAlreadyExists
	}

	oldPath := paths.TriggerData(id)
	s.filter.Mark(oldPath)

	tr.ID = newID
	tr.Title = title
	if err := s.Save(tr); err != nil {
		return "", err
	}
	return newID, s.fs.Delete(oldPath)
}

// AtomicUpdate re-reads the trigger from disk, applies mutate, writes the
// result back, and returns the merged entity. This is the write path for
// the scheduler, which runs concurrently with UI edits.
func (s *TriggerStore) AtomicUpdate(id string, mutate func(*models.Trigger) error) (*models.Trigger, error) {
	unlock := s.locks.lock("trigger/" + id)
	defer unlock()

	tr, err := s.Load(id)
	if err != nil {
		return nil, err
	}
	if err := mutate(tr); err != nil {
		return nil, err
	}
	if err := s.Save(tr); err != nil {
		return nil, err
	}
	return tr, nil
}
