package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/testdesk/internal/store"
)

// ChangeSource is satisfied by *store.Registry.
type ChangeSource interface {
	Track() (*store.Changes, func())
}

// SnapshotWorker persists every admin's latest test list after store changes.
// Changes to one chat between two flushes collapse into a single write, and a
// slow write never causes a change to be missed.
type SnapshotWorker struct {
	changes  *store.Changes
	stop     func()
	snap     store.Snapshotter
	interval time.Duration
	log      zerolog.Logger
	done     chan struct{}
}

// NewSnapshotWorker creates a new SnapshotWorker. Changes are collected from
// this point on, even before Start runs.
func NewSnapshotWorker(source ChangeSource, snap store.Snapshotter, interval time.Duration, log zerolog.Logger) *SnapshotWorker {
	if interval <= 0 {
		interval = time.Second
	}
	changes, stop := source.Track()
	return &SnapshotWorker{
		changes:  changes,
		stop:     stop,
		snap:     snap,
		interval: interval,
		log:      log.With().Str("component", "snapshot_worker").Logger(),
		done:     make(chan struct{}),
	}
}

// Done is closed once Start has returned.
func (w *SnapshotWorker) Done() <-chan struct{} { return w.done }

// Start begins the worker loop. Call in a goroutine.
func (w *SnapshotWorker) Start(ctx context.Context) {
	defer close(w.done)
	defer w.stop()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			// Drain remaining items before exit.
			w.flush(context.Background(), w.changes)
			w.log.Info().Int("unsaved", w.changes.Len()).Msg("Worker stopped")
			return
		case <-ticker.C:
			w.flush(ctx, w.changes)
		}
	}
}

func (w *SnapshotWorker) flush(ctx context.Context, changes *store.Changes) {
	for chatID, tests := range changes.Take() {
		if err := w.snap.Save(ctx, chatID, tests); err != nil {
			// Put it back; the next tick retries with whatever is newest.
			w.log.Error().Err(err).Str("chat_id", chatID.String()).Msg("Snapshot save failed")
			changes.Retry(chatID, tests)
			continue
		}
		w.log.Debug().Str("chat_id", chatID.String()).Int("count", len(tests)).Msg("Snapshot saved")
	}
}
