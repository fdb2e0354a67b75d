package index

import (
	"context"
	"log/slog"

	"github.com/quillhq/vellum/internal/paths"
	"github.com/quillhq/vellum/internal/storage"
	"github.com/quillhq/vellum/internal/watch"
)

// Follow consumes classified change events and mirrors them into the
// index until ctx is cancelled or the channel closes. A failure on one
// entity is logged and never aborts the loop.
func Follow(ctx context.Context, db *DB, store storage.Provider, events <-chan watch.Event, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Transition {
			case watch.Removed:
				if err := db.Delete(ev.Kind, ev.ID); err != nil {
					logger.Warn("index: delete failed",
						slog.String("kind", string(ev.Kind)),
						slog.String("id", ev.ID),
						slog.String("error", err.Error()))
				}
			default: // Added, Modified
				data, err := store.Read(paths.Data(ev.Kind, ev.ID))
				if err != nil {
					logger.Warn("index: read failed",
						slog.String("kind", string(ev.Kind)),
						slog.String("id", ev.ID),
						slog.String("error", err.Error()))
					continue
				}
				if err := IndexEntity(db, ev.Kind, ev.ID, data); err != nil {
					logger.Warn("index: upsert failed",
						slog.String("kind", string(ev.Kind)),
						slog.String("id", ev.ID),
						slog.String("error", err.Error()))
				}
			}
		}
	}
}
