//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"provenant/internal/product/models"
	"provenant/internal/product/store"
	id "provenant/pkg/domain"
	"provenant/pkg/platform/sentinel"
	"provenant/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	ownerA   id.PrincipalID
	ownerB   id.PrincipalID
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "scan_logs", "certificates", "products", "principals"))
	s.ownerA = s.insertCustomer(ctx, "owner-a")
	s.ownerB = s.insertCustomer(ctx, "owner-b")
}

func (s *PostgresStoreSuite) insertCustomer(ctx context.Context, username string) id.PrincipalID {
	pid := uuid.New()
	_, err := s.postgres.Exec(ctx, `
		INSERT INTO principals (id, role, username, password_hash, created_at, updated_at)
		VALUES ($1, 'customer', $2, 'hash', now(), now())
	`, pid, username)
	s.Require().NoError(err)
	return id.PrincipalID(pid)
}

func (s *PostgresStoreSuite) newProduct(owner id.PrincipalID, serial string) *models.Product {
	p, err := models.NewProduct(id.ProductID(uuid.New()), owner, serial, "Watch", "", time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(err)
	return p
}

func (s *PostgresStoreSuite) TestSerialUniqueness() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.newProduct(s.ownerA, "SN-001")))
	err := s.store.Create(ctx, s.newProduct(s.ownerB, "SN-001"))
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestFindAndList() {
	ctx := context.Background()
	p := s.newProduct(s.ownerA, "SN-001")
	s.Require().NoError(s.store.Create(ctx, p))
	s.Require().NoError(s.store.Create(ctx, s.newProduct(s.ownerB, "SN-002")))

	found, err := s.store.FindBySerial(ctx, "SN-001")
	s.Require().NoError(err)
	s.Equal(p.ID, found.ID)

	_, err = s.store.FindByID(ctx, id.ProductID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)

	list, err := s.store.ListByOwner(ctx, s.ownerA)
	s.Require().NoError(err)
	s.Len(list, 1)

	ids, err := s.store.ListIDsByOwner(ctx, s.ownerB)
	s.Require().NoError(err)
	s.Len(ids, 1)
}

func (s *PostgresStoreSuite) TestExecuteTransfer() {
	ctx := context.Background()
	p := s.newProduct(s.ownerA, "SN-001")
	s.Require().NoError(s.store.Create(ctx, p))

	updated, err := s.store.Execute(ctx, p.ID,
		func(p *models.Product) error { return p.CanTransfer(s.ownerB, false) },
		func(p *models.Product) { p.ApplyTransfer(s.ownerB, time.Now()) },
	)
	s.Require().NoError(err)
	s.Equal(s.ownerB, updated.OwnerID)

	found, err := s.store.FindByID(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(s.ownerB, found.OwnerID)
}
