package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"provenant/internal/platform/postgres"
	"provenant/internal/scanlog/models"
	id "provenant/pkg/domain"
	"provenant/pkg/platform/sentinel"
	dedupe "provenant/pkg/platform/strings"
)

// PostgresStore persists scans in PostgreSQL. Rows are never updated.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const scanColumns = `id, certificate_id, product_id, owner_customer_id, identifier, outcome, is_valid,
	scanned_at, ip_address, user_agent, browser, os, is_mobile, location`

func (s *PostgresStore) Append(ctx context.Context, scan *models.ScanLog) error {
	var certificateID sql.NullString
	if scan.CertificateID != nil {
		certificateID = sql.NullString{String: scan.CertificateID.String(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scan_logs (`+scanColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		uuid.UUID(scan.ID), certificateID, nullProductID(scan.ProductID), nullPrincipalID(scan.OwnerID),
		scan.Identifier, string(scan.Outcome), scan.IsValid, scan.ScannedAt,
		scan.IPAddress, scan.UserAgent, scan.Device.Browser, scan.Device.OS, scan.Device.Mobile, scan.Location,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err, "scan_logs_pkey") {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert scan log: %w", err)
	}
	return nil
}

// Query returns the owner's scans matching the filter, newest first.
func (s *PostgresStore) Query(ctx context.Context, ownerID id.PrincipalID, filter models.Filter) ([]*models.ScanLog, error) {
	where := []string{"owner_customer_id = $1"}
	args := []any{uuid.UUID(ownerID)}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.CertificateID != nil {
		where = append(where, "certificate_id = "+arg(filter.CertificateID.String()))
	}
	if outcomes := outcomeStrings(filter.Outcomes); len(outcomes) > 0 {
		where = append(where, "outcome = ANY("+arg(pq.Array(outcomes))+")")
	}
	switch filter.Validity {
	case models.ValidityValid:
		where = append(where, "is_valid")
	case models.ValidityInvalid:
		where = append(where, "NOT is_valid")
	}
	if filter.Since != nil {
		where = append(where, "scanned_at >= "+arg(*filter.Since))
	}
	if filter.Until != nil {
		where = append(where, "scanned_at < "+arg(*filter.Until))
	}

	query := `SELECT ` + scanColumns + ` FROM scan_logs WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY scanned_at DESC, id DESC LIMIT ` + arg(filter.Limit) + ` OFFSET ` + arg(filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query scan logs: %w", err)
	}
	defer rows.Close()

	out := make([]*models.ScanLog, 0)
	for rows.Next() {
		scan, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scan log: %w", err)
		}
		out = append(out, scan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scan logs: %w", err)
	}
	return out, nil
}

// Summary counts the owner's scans per outcome since the given instant.
func (s *PostgresStore) Summary(ctx context.Context, ownerID id.PrincipalID, since *time.Time) (*models.Summary, error) {
	query := `SELECT outcome, COUNT(*) FROM scan_logs WHERE owner_customer_id = $1`
	args := []any{uuid.UUID(ownerID)}
	if since != nil {
		query += ` AND scanned_at >= $2`
		args = append(args, *since)
	}
	query += ` GROUP BY outcome`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("summarize scan logs: %w", err)
	}
	defer rows.Close()

	summary := models.NewSummary()
	for rows.Next() {
		var outcome string
		var count int64
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		summary.Add(models.Outcome(outcome), count)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summary rows: %w", err)
	}
	return summary, nil
}

func outcomeStrings(outcomes []models.Outcome) []string {
	raw := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		raw = append(raw, string(o))
	}
	return dedupe.DedupeAndTrim(raw)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(row rowScanner) (*models.ScanLog, error) {
	var (
		scan          models.ScanLog
		rawID         uuid.UUID
		certificateID sql.NullString
		productID     uuid.NullUUID
		ownerID       uuid.NullUUID
		outcome       string
	)
	if err := row.Scan(&rawID, &certificateID, &productID, &ownerID, &scan.Identifier, &outcome, &scan.IsValid,
		&scan.ScannedAt, &scan.IPAddress, &scan.UserAgent, &scan.Device.Browser, &scan.Device.OS, &scan.Device.Mobile, &scan.Location); err != nil {
		return nil, err
	}
	scan.ID = id.ScanID(rawID)
	scan.Outcome = models.Outcome(outcome)
	scan.ScannedAt = scan.ScannedAt.UTC()
	if certificateID.Valid {
		cid := id.CertificateID(certificateID.String)
		scan.CertificateID = &cid
	}
	if productID.Valid {
		pid := id.ProductID(productID.UUID)
		scan.ProductID = &pid
	}
	if ownerID.Valid {
		oid := id.PrincipalID(ownerID.UUID)
		scan.OwnerID = &oid
	}
	return &scan, nil
}

func nullProductID(pid *id.ProductID) uuid.NullUUID {
	if pid == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*pid), Valid: true}
}

func nullPrincipalID(pid *id.PrincipalID) uuid.NullUUID {
	if pid == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*pid), Valid: true}
}
