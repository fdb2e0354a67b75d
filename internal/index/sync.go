package index

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quillhq/vellum/internal/frontmatter"
	"github.com/quillhq/vellum/internal/models"
	"github.com/quillhq/vellum/internal/paths"
	"github.com/quillhq/vellum/internal/storage"
)

// Sync walks the vault and brings the index up to date:
//   - new/changed entity files are parsed and upserted
//   - entities removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		kind, id, ok := paths.Parse(m.Path)
		if !ok {
			continue
		}
		key := string(kind) + "/" + id
		disk[key] = struct{}{}

		if checksums[key] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IndexEntity(db, kind, id, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for key := range checksums {
		if _, ok := disk[key]; ok {
			continue
		}
		kindStr, id, found := strings.Cut(key, "/")
		if !found {
			continue
		}
		if err := db.Delete(models.Kind(kindStr), id); err != nil {
			logger.Warn("sync: delete failed", slog.String("key", key), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: removed stale", slog.String("key", key))
		}
	}

	return nil
}

// IndexEntity extracts the searchable title and body from raw entity
// content and upserts the row.
func IndexEntity(db *DB, kind models.Kind, id string, data []byte) error {
	title, body, err := extract(kind, data)
	if err != nil {
		return err
	}
	return db.Upsert(EntityRow{
		Kind:      kind,
		ID:        id,
		Title:     title,
		Checksum:  storage.Checksum(data),
		UpdatedAt: time.Now(),
	}, body)
}

// extract pulls the display title and searchable text out of an entity
// file. Malformed content is an error; the caller logs and skips.
func extract(kind models.Kind, data []byte) (title, body string, err error) {
	switch kind {
	case models.KindConversation:
		var c models.Conversation
		if err := yaml.Unmarshal(data, &c); err != nil {
			return "", "", fmt.Errorf("index: parse conversation: %w", err)
		}
		return c.Title, joinMessages(c.Messages), nil

	case models.KindTrigger:
		var tr models.Trigger
		if err := yaml.Unmarshal(data, &tr); err != nil {
			return "", "", fmt.Errorf("index: parse trigger: %w", err)
		}
		return tr.Title, tr.TriggerPrompt + "\n" + joinMessages(tr.Messages), nil

	case models.KindRiff:
		var meta models.RiffMeta
		text, err := frontmatter.Parse(data, &meta)
		if err != nil {
			return "", "", fmt.Errorf("index: parse riff: %w", err)
		}
		title := frontmatter.Title(text)
		if title == "" {
			title = meta.ArtifactType
		}
		return title, text, nil

	case models.KindNote:
		text := string(data)
		return frontmatter.Title(text), text, nil
	}
	return "", "", fmt.Errorf("index: unknown kind %q", kind)
}

func joinMessages(msgs []models.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		b.WriteString(m.Content)
		b.WriteByte('\n')
	}
	return b.String()
}
