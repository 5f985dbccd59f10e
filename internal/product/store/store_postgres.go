package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"provenant/internal/platform/postgres"
	"provenant/internal/product/models"
	id "provenant/pkg/domain"
	"provenant/pkg/platform/sentinel"
	txcontext "provenant/pkg/platform/tx"
)

// PostgresStore persists products in PostgreSQL.
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

const productColumns = `id, serial_number, name, description, owner_customer_id, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, p *models.Product) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.UUID(p.ID), p.SerialNumber, p.Name, p.Description, uuid.UUID(p.OwnerID), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err, "products_serial_number_key") {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, productID id.ProductID) (*models.Product, error) {
	p, err := scanProduct(s.execer(ctx).QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, uuid.UUID(productID)))
	if err != nil {
		return nil, fmt.Errorf("find product by id: %w", err)
	}
	return p, nil
}

// FindByIDForShare takes a share lock on the product row when called inside a
// transaction, blocking concurrent ownership transfers until commit.
func (s *PostgresStore) FindByIDForShare(ctx context.Context, productID id.ProductID) (*models.Product, error) {
	if !txcontext.Active(ctx) {
		return s.FindByID(ctx, productID)
	}
	p, err := scanProduct(s.execer(ctx).QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR SHARE`, uuid.UUID(productID)))
	if err != nil {
		return nil, fmt.Errorf("lock product: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) FindBySerial(ctx context.Context, serial string) (*models.Product, error) {
	p, err := scanProduct(s.execer(ctx).QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE serial_number = $1`, serial))
	if err != nil {
		return nil, fmt.Errorf("find product by serial: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID id.PrincipalID) ([]*models.Product, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE owner_customer_id = $1
		ORDER BY created_at, serial_number
	`, uuid.UUID(ownerID))
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListIDsByOwner(ctx context.Context, ownerID id.PrincipalID) ([]id.ProductID, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `SELECT id FROM products WHERE owner_customer_id = $1`, uuid.UUID(ownerID))
	if err != nil {
		return nil, fmt.Errorf("list product ids: %w", err)
	}
	defer rows.Close()

	var ids []id.ProductID
	for rows.Next() {
		var raw uuid.UUID
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan product id: %w", err)
		}
		ids = append(ids, id.ProductID(raw))
	}
	return ids, rows.Err()
}

// Execute locks the product row, validates, mutates and writes back the owner.
// It joins the transaction on ctx when present.
func (s *PostgresStore) Execute(ctx context.Context, productID id.ProductID, validate func(*models.Product) error, mutate func(*models.Product)) (*models.Product, error) {
	run := func(tx *sql.Tx) (*models.Product, error) {
		p, err := scanProduct(tx.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, uuid.UUID(productID)))
		if err != nil {
			return nil, fmt.Errorf("lock product: %w", err)
		}
		if err := validate(p); err != nil {
			return nil, err
		}
		mutate(p)
		if _, err := tx.ExecContext(ctx, `
			UPDATE products SET owner_customer_id = $2, name = $3, description = $4, updated_at = $5
			WHERE id = $1
		`, uuid.UUID(p.ID), uuid.UUID(p.OwnerID), p.Name, p.Description, p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("update product: %w", err)
		}
		return p, nil
	}

	if tx, ok := txcontext.From(ctx); ok {
		return run(tx)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin product tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	p, err := run(tx)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit product tx: %w", err)
	}
	return p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var (
		p       models.Product
		rawID   uuid.UUID
		ownerID uuid.UUID
	)
	if err := row.Scan(&rawID, &p.SerialNumber, &p.Name, &p.Description, &ownerID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	p.ID = id.ProductID(rawID)
	p.OwnerID = id.PrincipalID(ownerID)
	return &p, nil
}
