package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"provenant/internal/certificate/models"
	"provenant/internal/platform/postgres"
	id "provenant/pkg/domain"
	"provenant/pkg/platform/sentinel"
	txcontext "provenant/pkg/platform/tx"
)

// PostgresStore persists certificates. The partial unique index
// certificates_one_active_per_product serializes concurrent issuance.
type PostgresStore struct {
	db *sql.DB
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const certificateColumns = `id, certificate_id, product_id, issue_date, expiry_date, status, signature,
	verification_count, last_verified_at, issued_by, revoked_at, revoked_by, revocation_reason`

func (s *PostgresStore) Insert(ctx context.Context, c *models.Certificate) error {
	var revokedBy *uuid.UUID
	if c.RevokedBy != nil {
		u := uuid.UUID(*c.RevokedBy)
		revokedBy = &u
	}
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO certificates (`+certificateColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, c.ID, c.CertificateID.String(), uuid.UUID(c.ProductID), c.IssueDate, c.ExpiryDate, c.Status.String(), c.Signature,
		c.VerificationCount, c.LastVerifiedAt, uuid.UUID(c.IssuedBy), c.RevokedAt, revokedBy, c.RevocationReason)
	if err != nil {
		switch {
		case postgres.IsUniqueViolation(err, "certificates_one_active_per_product"):
			return sentinel.ErrConflict
		case postgres.IsUniqueViolation(err, "certificates_certificate_id_key"):
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert certificate: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByCertificateID(ctx context.Context, certificateID id.CertificateID) (*models.Certificate, error) {
	c, err := scanCertificate(s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+certificateColumns+` FROM certificates WHERE certificate_id = $1`, certificateID.String()))
	if err != nil {
		return nil, fmt.Errorf("find certificate: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) FindActiveForProduct(ctx context.Context, productID id.ProductID) (*models.Certificate, error) {
	c, err := scanCertificate(s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+certificateColumns+` FROM certificates WHERE product_id = $1 AND status = 'active'`, uuid.UUID(productID)))
	if err != nil {
		return nil, fmt.Errorf("find active certificate: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) FindLatestForProduct(ctx context.Context, productID id.ProductID) (*models.Certificate, error) {
	c, err := scanCertificate(s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+certificateColumns+` FROM certificates WHERE product_id = $1 ORDER BY issue_date DESC LIMIT 1`, uuid.UUID(productID)))
	if err != nil {
		return nil, fmt.Errorf("find latest certificate: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) ListForProduct(ctx context.Context, productID id.ProductID) ([]*models.Certificate, error) {
	rows, err := s.execer(ctx).QueryContext(ctx,
		`SELECT `+certificateColumns+` FROM certificates WHERE product_id = $1 ORDER BY issue_date DESC`, uuid.UUID(productID))
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Certificate, 0)
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan certificate: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate certificates: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CountForProduct(ctx context.Context, productID id.ProductID) (int, error) {
	var n int
	if err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM certificates WHERE product_id = $1`, uuid.UUID(productID)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count certificates: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) MarkExpired(ctx context.Context, certificateID id.CertificateID) (bool, error) {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE certificates SET status = 'expired' WHERE certificate_id = $1 AND status = 'active'`, certificateID.String())
	if err != nil {
		return false, fmt.Errorf("mark certificate expired: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark certificate expired: %w", err)
	}
	return n == 1, nil
}

// Execute locks the certificate row, validates, mutates and writes back the
// revocation fields.
func (s *PostgresStore) Execute(ctx context.Context, certificateID id.CertificateID, validate func(*models.Certificate) error, mutate func(*models.Certificate)) (*models.Certificate, error) {
	run := func(tx *sql.Tx) (*models.Certificate, error) {
		c, err := scanCertificate(tx.QueryRowContext(ctx,
			`SELECT `+certificateColumns+` FROM certificates WHERE certificate_id = $1 FOR UPDATE`, certificateID.String()))
		if err != nil {
			return nil, fmt.Errorf("lock certificate: %w", err)
		}
		if err := validate(c); err != nil {
			return nil, err
		}
		mutate(c)
		var revokedBy *uuid.UUID
		if c.RevokedBy != nil {
			u := uuid.UUID(*c.RevokedBy)
			revokedBy = &u
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE certificates SET status = $2, revoked_at = $3, revoked_by = $4, revocation_reason = $5
			WHERE certificate_id = $1
		`, c.CertificateID.String(), c.Status.String(), c.RevokedAt, revokedBy, c.RevocationReason); err != nil {
			return nil, fmt.Errorf("update certificate: %w", err)
		}
		return c, nil
	}

	if tx, ok := txcontext.From(ctx); ok {
		return run(tx)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin certificate tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	c, err := run(tx)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit certificate tx: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) IncrementVerification(ctx context.Context, certificateID id.CertificateID, at time.Time) (int64, error) {
	var count int64
	err := s.execer(ctx).QueryRowContext(ctx, `
		UPDATE certificates SET verification_count = verification_count + 1, last_verified_at = $2
		WHERE certificate_id = $1
		RETURNING verification_count
	`, certificateID.String(), at).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, sentinel.ErrNotFound
		}
		return 0, fmt.Errorf("increment verification count: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCertificate(row rowScanner) (*models.Certificate, error) {
	var (
		c              models.Certificate
		certificateID  string
		productID      uuid.UUID
		status         string
		expiryDate     sql.NullTime
		lastVerifiedAt sql.NullTime
		issuedBy       uuid.UUID
		revokedAt      sql.NullTime
		revokedBy      uuid.NullUUID
	)
	err := row.Scan(&c.ID, &certificateID, &productID, &c.IssueDate, &expiryDate, &status, &c.Signature,
		&c.VerificationCount, &lastVerifiedAt, &issuedBy, &revokedAt, &revokedBy, &c.RevocationReason)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	c.CertificateID = id.CertificateID(certificateID)
	c.ProductID = id.ProductID(productID)
	c.Status = models.Status(status)
	c.IssuedBy = id.PrincipalID(issuedBy)
	c.IssueDate = c.IssueDate.UTC()
	if expiryDate.Valid {
		t := expiryDate.Time.UTC()
		c.ExpiryDate = &t
	}
	if lastVerifiedAt.Valid {
		t := lastVerifiedAt.Time
		c.LastVerifiedAt = &t
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		c.RevokedAt = &t
	}
	if revokedBy.Valid {
		pid := id.PrincipalID(revokedBy.UUID)
		c.RevokedBy = &pid
	}
	return &c, nil
}
