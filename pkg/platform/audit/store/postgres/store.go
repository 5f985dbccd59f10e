package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	audit "provenant/pkg/platform/audit"
	txcontext "provenant/pkg/platform/tx"
)

// Store implements audit.Store using the transactional outbox pattern.
// Events are written to audit_events with published_at unset; the outbox
// relay publishes them to Kafka and stamps published_at.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Payload is the JSON body published to Kafka for each event.
type Payload struct {
	ID        string `json:"id"`
	Category  string `json:"category"`
	Timestamp string `json:"timestamp"`
	Subject   string `json:"subject"`
	Action    string `json:"action"`
	Decision  string `json:"decision,omitempty"`
	Reason    string `json:"reason,omitempty"`
	ActorID   string `json:"actor_id,omitempty"`
	IP        string `json:"ip,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Severity  string `json:"severity,omitempty"`
}

// Append writes an audit event to the outbox. Inside a transaction the event
// commits with the surrounding business change.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()
	category := audit.AuditEvent(event.Action).Category()
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	payload, err := json.Marshal(Payload{
		ID:        eventID.String(),
		Category:  string(category),
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
		Subject:   event.Subject,
		Action:    event.Action,
		Decision:  event.Decision,
		Reason:    event.Reason,
		ActorID:   event.ActorID,
		IP:        event.IP,
		RequestID: event.RequestID,
		Severity:  string(event.Severity),
	})
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	query := `
		INSERT INTO audit_events (id, category, subject, action, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		eventID,
		string(category),
		event.Subject,
		event.Action,
		payload,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// PendingEvent is an unpublished outbox row.
type PendingEvent struct {
	ID       uuid.UUID
	Category string
	Subject  string
	Payload  []byte
}

// ClaimPending locks up to limit unpublished events. Must run inside a
// transaction carried on ctx so concurrent relays skip each other's rows.
func (s *Store) ClaimPending(ctx context.Context, limit int) ([]PendingEvent, error) {
	query := `
		SELECT id, category, subject, payload
		FROM audit_events
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("claim audit events: %w", err)
	}
	defer rows.Close()

	var out []PendingEvent
	for rows.Next() {
		var e PendingEvent
		if err := rows.Scan(&e.ID, &e.Category, &e.Subject, &e.Payload); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return out, nil
}

// MarkPublished stamps events as relayed.
func (s *Store) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE audit_events SET published_at = $1 WHERE id = ANY($2)`,
		at, uuidArray(ids),
	)
	if err != nil {
		return fmt.Errorf("mark audit events published: %w", err)
	}
	return nil
}

// ListBySubject returns events for a subject, oldest first.
func (s *Store) ListBySubject(ctx context.Context, subject string) ([]audit.Event, error) {
	rows, err := s.execer(ctx).QueryContext(ctx,
		`SELECT payload FROM audit_events WHERE subject = $1 ORDER BY created_at`, subject)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []audit.Event
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		var p Payload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode audit payload: %w", err)
		}
		ts, _ := time.Parse(time.RFC3339Nano, p.Timestamp)
		out = append(out, audit.Event{
			Category:  audit.EventCategory(p.Category),
			Timestamp: ts,
			Subject:   p.Subject,
			Action:    p.Action,
			Decision:  p.Decision,
			Reason:    p.Reason,
			ActorID:   p.ActorID,
			IP:        p.IP,
			RequestID: p.RequestID,
			Severity:  audit.Severity(p.Severity),
		})
	}
	return out, rows.Err()
}
