// Package outbox relays committed audit events from Postgres to Kafka.
package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"provenant/pkg/platform/audit/store/postgres"
	txcontext "provenant/pkg/platform/tx"
)

// Publisher sends one message to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Relay polls unpublished audit events and publishes them keyed by subject, so
// events for one certificate or principal stay ordered within a partition.
type Relay struct {
	db        *sql.DB
	store     *postgres.Store
	publisher Publisher
	topicFor  func(category string) string
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewRelay(db *sql.DB, store *postgres.Store, publisher Publisher, topicFor func(string) string, interval time.Duration, batchSize int, logger *slog.Logger) *Relay {
	return &Relay{
		db:        db,
		store:     store,
		publisher: publisher,
		topicFor:  topicFor,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Run relays until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := r.RelayOnce(ctx)
			if err != nil {
				r.logger.WarnContext(ctx, "audit outbox relay failed", "error", err)
				continue
			}
			if n > 0 {
				r.logger.DebugContext(ctx, "audit outbox relayed", "count", n)
			}
		}
	}
}

// RelayOnce publishes one batch. Rows are only marked published when every
// publish in the batch succeeded; otherwise the whole batch is retried.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin relay tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	txCtx := txcontext.WithTx(ctx, tx)

	pending, err := r.store.ClaimPending(txCtx, r.batchSize)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	ids := make([]uuid.UUID, 0, len(pending))
	for _, e := range pending {
		if err := r.publisher.Publish(ctx, r.topicFor(e.Category), []byte(e.Subject), e.Payload); err != nil {
			return 0, err
		}
		ids = append(ids, e.ID)
	}

	if err := r.store.MarkPublished(txCtx, ids, time.Now()); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit relay tx: %w", err)
	}
	return len(ids), nil
}
