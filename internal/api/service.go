package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/quillhq/vellum/internal/apperr"
	"github.com/quillhq/vellum/internal/index"
	"github.com/quillhq/vellum/internal/models"
	"github.com/quillhq/vellum/internal/paths"
	"github.com/quillhq/vellum/internal/storage"
	"github.com/quillhq/vellum/internal/store"
)

// Service coordinates entity stores and the search index for the API layer.
// Every write path re-indexes the affected entity directly: store writes
// are suppressed by the self-write filter, so the index never hears about
// them through change events.
type Service struct {
	stores *store.Stores
	fs     storage.Provider
	db     *index.DB
	logger *slog.Logger
}

// NewService creates a new API service.
func NewService(stores *store.Stores, fs storage.Provider, db *index.DB, logger *slog.Logger) *Service {
	return &Service{stores: stores, fs: fs, db: db, logger: logger}
}

// reindex reads an entity's file and upserts it into the search index.
// Index failures are logged, never surfaced: the vault file is the source
// of truth and the next reconciliation pass repairs the index.
func (s *Service) reindex(kind models.Kind, id string) {
	data, err := s.fs.Read(paths.Data(kind, id))
	if err != nil {
		s.logger.Warn("api: reindex read failed",
			slog.String("kind", string(kind)), slog.String("id", id), slog.String("error", err.Error()))
		return
	}
	if err := index.IndexEntity(s.db, kind, id, data); err != nil {
		s.logger.Warn("api: reindex failed",
			slog.String("kind", string(kind)), slog.String("id", id), slog.String("error", err.Error()))
	}
}

func (s *Service) unindex(kind models.Kind, id string) {
	if err := s.db.Delete(kind, id); err != nil {
		s.logger.Warn("api: unindex failed",
			slog.String("kind", string(kind)), slog.String("id", id), slog.String("error", err.Error()))
	}
}

// ListConversations returns paginated conversation rows, newest first.
func (s *Service) ListConversations(_ context.Context, limit, offset int) ([]index.EntityRow, int, error) {
	return s.db.List(models.KindConversation, limit, offset)
}

// GetConversation loads one conversation by id.
func (s *Service) GetConversation(_ context.Context, id string) (*models.Conversation, error) {
	return s.stores.Conversations.Load(id)
}

// CreateConversation persists a new conversation with a fresh id.
func (s *Service) CreateConversation(_ context.Context, model, title string, messages []models.Message) (*models.Conversation, error) {
	c := s.stores.Conversations.NewConversation(model)
	c.Title = title
	c.Messages = messages
	if err := s.stores.Conversations.Save(c); err != nil {
		return nil, err
	}
	s.reindex(models.KindConversation, c.ID)
	return c, nil
}

// AppendMessage appends one message to a conversation through the atomic
// read-merge-write path.
func (s *Service) AppendMessage(_ context.Context, id string, msg models.Message) (*models.Conversation, error) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	c, err := s.stores.Conversations.AtomicUpdate(id, func(c *models.Conversation) error {
		c.Messages = append(c.Messages, msg)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.reindex(models.KindConversation, id)
	return c, nil
}

// RenameConversation retitles a conversation, moving it to a new id derived
// from the title.
func (s *Service) RenameConversation(_ context.Context, id, title string) (*models.Conversation, error) {
	newID, err := s.stores.Conversations.Rename(id, title)
	if err != nil {
		return nil, err
	}
	if newID != id {
		s.unindex(models.KindConversation, id)
	}
	s.reindex(models.KindConversation, newID)
	return s.stores.Conversations.Load(newID)
}

// DeleteConversation removes a conversation and its preview.
func (s *Service) DeleteConversation(_ context.Context, id string) error {
	existed, err := s.stores.Conversations.Delete(id)
	if err != nil {
		return err
	}
	if !existed {
		return apperr.ErrNotFound
	}
	s.unindex(models.KindConversation, id)
	return nil
}

// ListTriggers returns every trigger, read fresh from the vault so the
// scheduler's bookkeeping fields are current.
func (s *Service) ListTriggers(_ context.Context) ([]*models.Trigger, error) {
	return s.stores.Triggers.List()
}

// GetTrigger loads one trigger by id.
func (s *Service) GetTrigger(_ context.Context, id string) (*models.Trigger, error) {
	return s.stores.Triggers.Load(id)
}

// CreateTrigger persists a new trigger.
func (s *Service) CreateTrigger(_ context.Context, title, model, prompt string, intervalMinutes int, enabled bool) (*models.Trigger, error) {
	tr := s.stores.Triggers.NewTrigger(title, model, prompt, intervalMinutes)
	tr.Enabled = enabled
	if err := s.stores.Triggers.Save(tr); err != nil {
		return nil, err
	}
	s.reindex(models.KindTrigger, tr.ID)
	return tr, nil
}

// SetTriggerEnabled flips a trigger's enabled flag.
func (s *Service) SetTriggerEnabled(_ context.Context, id string, enabled bool) (*models.Trigger, error) {
	tr, err := s.stores.Triggers.AtomicUpdate(id, func(tr *models.Trigger) error {
		tr.Enabled = enabled
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.reindex(models.KindTrigger, id)
	return tr, nil
}

// RenameTrigger retitles a trigger, moving it to a new id derived from the
// title.
func (s *Service) RenameTrigger(_ context.Context, id, title string) (*models.Trigger, error) {
	newID, err := s.stores.Triggers.Rename(id, title)
	if err != nil {
		return nil, err
	}
	if newID != id {
		s.unindex(models.KindTrigger, id)
	}
	s.reindex(models.KindTrigger, newID)
	return s.stores.Triggers.Load(newID)
}

// DeleteTrigger removes a trigger.
func (s *Service) DeleteTrigger(_ context.Context, id string) error {
	existed, err := s.stores.Triggers.Delete(id)
	if err != nil {
		return err
	}
	if !existed {
		return apperr.ErrNotFound
	}
	s.unindex(models.KindTrigger, id)
	return nil
}

// ListRiffs returns paginated riff rows, newest first.
func (s *Service) ListRiffs(_ context.Context, limit, offset int) ([]index.EntityRow, int, error) {
	return s.db.List(models.KindRiff, limit, offset)
}

// GetRiff loads one riff by id.
func (s *Service) GetRiff(_ context.Context, id string) (*models.Riff, error) {
	return s.stores.Riffs.Load(id)
}

// CreateRiff persists a new riff draft.
func (s *Service) CreateRiff(_ context.Context, artifactType, body string) (*models.Riff, error) {
	r := s.stores.Riffs.NewRiff(artifactType)
	r.Body = body
	if err := s.stores.Riffs.Save(r); err != nil {
		return nil, err
	}
	s.reindex(models.KindRiff, r.Meta.ID)
	return r, nil
}

// UpdateRiffBody replaces a riff's body, preserving metadata written since
// the body was generated.
func (s *Service) UpdateRiffBody(_ context.Context, id, body, change string) (*models.Riff, error) {
	r, err := s.stores.Riffs.UpdateBody(id, body, change)
	if err != nil {
		return nil, err
	}
	s.reindex(models.KindRiff, id)
	return r, nil
}

// RenameRiff moves a riff to a new id derived from the title.
func (s *Service) RenameRiff(_ context.Context, id, title string) (*models.Riff, error) {
	newID, err := s.stores.Riffs.Rename(id, title)
	if err != nil {
		return nil, err
	}
	if newID != id {
		s.unindex(models.KindRiff, id)
	}
	s.reindex(models.KindRiff, newID)
	return s.stores.Riffs.Load(newID)
}

// AddRiffComment attaches a comment to a riff paragraph.
func (s *Service) AddRiffComment(_ context.Context, id string, paragraphIndex int, content string) (*models.Comment, error) {
	c, err := s.stores.Riffs.AddComment(id, paragraphIndex, content)
	if err != nil {
		return nil, err
	}
	s.reindex(models.KindRiff, id)
	return c, nil
}

// IntegrateRiff promotes a riff body into a permanent note and returns the
// note name it landed under.
func (s *Service) IntegrateRiff(_ context.Context, id, noteName string) (string, error) {
	name, err := s.stores.Riffs.Integrate(id, noteName)
	if err != nil {
		return "", err
	}
	s.reindex(models.KindRiff, id)
	s.reindex(models.KindNote, name)
	return name, nil
}

// DeleteRiff removes a riff.
func (s *Service) DeleteRiff(_ context.Context, id string) error {
	existed, err := s.stores.Riffs.Delete(id)
	if err != nil {
		return err
	}
	if !existed {
		return apperr.ErrNotFound
	}
	s.unindex(models.KindRiff, id)
	return nil
}

// Search delegates full-text search to the index. kind narrows the search
// to one entity family when non-empty.
func (s *Service) Search(_ context.Context, query string, kind models.Kind, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, kind, limit)
}
