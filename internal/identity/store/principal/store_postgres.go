package principal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"provenant/internal/identity/models"
	"provenant/internal/platform/postgres"
	id "provenant/pkg/domain"
	"provenant/pkg/platform/sentinel"
	txcontext "provenant/pkg/platform/tx"
)

// PostgresStore persists principals in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
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

const principalColumns = `id, role, username, display_name, password_hash, is_active, last_login, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, p *models.Principal) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO principals (`+principalColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, uuid.UUID(p.ID), p.Role.String(), p.Username, p.DisplayName, p.PasswordHash,
		p.IsActive, p.LastLogin, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err, "principals_role_username_key") || postgres.IsUniqueViolation(err, "principals_pkey") {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert principal: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, principalID id.PrincipalID) (*models.Principal, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `SELECT `+principalColumns+` FROM principals WHERE id = $1`, uuid.UUID(principalID))
	p, err := scanPrincipal(row)
	if err != nil {
		return nil, fmt.Errorf("find principal by id: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) FindByUsername(ctx context.Context, role id.Role, username string) (*models.Principal, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `SELECT `+principalColumns+` FROM principals WHERE role = $1 AND username = $2`, role.String(), username)
	p, err := scanPrincipal(row)
	if err != nil {
		return nil, fmt.Errorf("find principal by username: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) CountByRole(ctx context.Context, role id.Role) (int, error) {
	var n int
	if err := s.execer(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM principals WHERE role = $1`, role.String()).Scan(&n); err != nil {
		return 0, fmt.Errorf("count principals: %w", err)
	}
	return n, nil
}

// Execute locks the row with SELECT ... FOR UPDATE, validates, mutates and writes back.
func (s *PostgresStore) Execute(ctx context.Context, principalID id.PrincipalID, validate func(*models.Principal) error, mutate func(*models.Principal)) (*models.Principal, error) {
	run := func(tx *sql.Tx) (*models.Principal, error) {
		row := tx.QueryRowContext(ctx, `SELECT `+principalColumns+` FROM principals WHERE id = $1 FOR UPDATE`, uuid.UUID(principalID))
		p, err := scanPrincipal(row)
		if err != nil {
			return nil, fmt.Errorf("lock principal: %w", err)
		}
		if err := validate(p); err != nil {
			return nil, err
		}
		mutate(p)
		if _, err := tx.ExecContext(ctx, `
			UPDATE principals SET display_name = $2, is_active = $3, last_login = $4, updated_at = $5
			WHERE id = $1
		`, uuid.UUID(p.ID), p.DisplayName, p.IsActive, p.LastLogin, p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("update principal: %w", err)
		}
		return p, nil
	}

	if tx, ok := txcontext.From(ctx); ok {
		return run(tx)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin principal tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	p, err := run(tx)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit principal tx: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) UpdateLastLogin(ctx context.Context, principalID id.PrincipalID, at time.Time) error {
	res, err := s.execer(ctx).ExecContext(ctx, `UPDATE principals SET last_login = $2 WHERE id = $1`, uuid.UUID(principalID), at)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrincipal(row rowScanner) (*models.Principal, error) {
	var (
		p         models.Principal
		rawID     uuid.UUID
		role      string
		lastLogin sql.NullTime
	)
	err := row.Scan(&rawID, &role, &p.Username, &p.DisplayName, &p.PasswordHash, &p.IsActive, &lastLogin, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	p.ID = id.PrincipalID(rawID)
	p.Role = id.Role(role)
	if lastLogin.Valid {
		t := lastLogin.Time
		p.LastLogin = &t
	}
	return &p, nil
}
