// Package store implements per-kind entity persistence over the vault:
// load, save, delete, rename, and the atomic read-modify-write protocol.
// Every write path marks the self-write filter before bytes hit disk so
// the watcher never reports the application's own writes as external.
package store

import (
	"log/slog"
	"sync"

	"github.com/quillhq/vellum/internal/storage"
	"github.com/quillhq/vellum/internal/watch"
)

// Stores bundles the per-kind entity stores sharing one vault, one
// self-write filter, and one id-lock table.
type Stores struct {
	Conversations *ConversationStore
	Triggers      *TriggerStore
	Riffs         *RiffStore
}

// New creates the entity stores over the given vault provider.
func New(fs storage.Provider, filter *watch.SelfWriteFilter, logger *slog.Logger) *Stores {
	locks := &keyedMutex{m: make(map[string]*sync.Mutex)}
	return &Stores{
		Conversations: &ConversationStore{fs: fs, filter: filter, locks: locks, logger: logger},
		Triggers:      &TriggerStore{fs: fs, filter: filter, locks: locks, logger: logger},
		Riffs:         &RiffStore{fs: fs, filter: filter, locks: locks, logger: logger},
	}
}

// keyedMutex serializes same-id read-modify-write spans within this
// process. It does not lock across processes; external writers are handled
// by the load-fresh discipline, last write winning at the file level.
// Entries are never removed; the id space of a vault is small.
type keyedMutex struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

// lock acquires the mutex for key and returns its release func.
func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.m[key]
	if !ok {
		l = &sync.Mutex{}
		k.m[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
