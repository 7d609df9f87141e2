package preferences

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/partyevents/partyevents/internal/querystore"
)

const saveTimeout = 5 * time.Second

// Load installs the stored query into store via Replace. It reports whether a
// query was installed. Missing, unreadable or malformed values are logged and
// leave the store untouched.
func Load(ctx context.Context, kv KeyValueStore, store *querystore.Store, logger *slog.Logger) bool {
	data, err := kv.Get(ctx, FiltersKey)
	if errors.Is(err, ErrNotFound) {
		logger.Debug("no stored filters", "key", FiltersKey)
		return false
	}
	if err != nil {
		logger.Warn("failed to read stored filters", "key", FiltersKey, "error", err)
		return false
	}

	q, err := Decode(data)
	if err != nil {
		logger.Warn("discarding malformed stored filters", "key", FiltersKey, "error", err)
		return false
	}

	store.Replace(q)
	logger.Info("restored stored filters", "key", FiltersKey)
	return true
}

// AutoSave writes every new query installed in store to kv under FiltersKey.
// Writes happen on a background goroutine; when changes arrive faster than
// they can be written only the latest is kept. The returned stop function
// unsubscribes, flushes the pending write and waits for the writer to exit.
func AutoSave(ctx context.Context, kv KeyValueStore, store *querystore.Store, logger *slog.Logger) (stop func()) {
	pending := make(chan querystore.Snapshot, 1)
	quit := make(chan struct{})

	replayed := false
	unsubscribe := store.Subscribe(func(snap querystore.Snapshot) {
		if !replayed {
			replayed = true
			return
		}
		select {
		case pending <- snap:
		default:
			// Drop the stale pending write in favour of snap.
			select {
			case <-pending:
			default:
			}
			pending <- snap
		}
	})

	save := func(snap querystore.Snapshot) {
		data, err := Encode(snap.Query)
		if err != nil {
			logger.Error("failed to encode filters", "revision", snap.Revision, "error", err)
			return
		}
		saveCtx, cancel := context.WithTimeout(ctx, saveTimeout)
		defer cancel()
		if err := kv.Put(saveCtx, FiltersKey, data); err != nil {
			logger.Error("failed to save filters", "revision", snap.Revision, "error", err)
			return
		}
		logger.Debug("saved filters", "revision", snap.Revision)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case snap := <-pending:
				save(snap)
			case <-quit:
				select {
				case snap := <-pending:
					save(snap)
				default:
				}
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			unsubscribe()
			close(quit)
			wg.Wait()
		})
	}
}
