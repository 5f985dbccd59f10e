package worker

import (
	"context"
	"log/slog"
	"time"

	audit "provenant/pkg/platform/audit"
)

// Source yields buffered events and takes back the ones that failed to persist.
type Source interface {
	DequeueBatch(n int) []audit.Event
	Requeue(events []audit.Event)
}

// Worker drains a buffered publisher into the audit store on a fixed interval.
type Worker struct {
	store     audit.Store
	source    Source
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewWorker(store audit.Store, source Source, interval time.Duration, batchSize int, logger *slog.Logger) *Worker {
	if interval <= 0 {
		interval = time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Worker{store: store, source: source, interval: interval, batchSize: batchSize, logger: logger}
}

// Run drains until ctx is cancelled, then makes one final flush attempt.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.Flush(context.WithoutCancel(ctx))
			return nil
		case <-ticker.C:
			w.Flush(ctx)
		}
	}
}

// Flush persists buffered events until the source is empty or a write fails.
func (w *Worker) Flush(ctx context.Context) int {
	written := 0
	for {
		batch := w.source.DequeueBatch(w.batchSize)
		if len(batch) == 0 {
			return written
		}
		for i, event := range batch {
			if err := w.store.Append(ctx, event); err != nil {
				w.source.Requeue(batch[i:])
				w.logger.WarnContext(ctx, "audit drain failed, requeued",
					"pending", len(batch)-i,
					"error", err,
				)
				return written
			}
			written++
		}
	}
}
