package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"provenant/internal/certificate/models"
	id "provenant/pkg/domain"
	"provenant/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store   *InMemory
	ctx     context.Context
	product id.ProductID
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.product = id.ProductID(uuid.New())
}

func (s *InMemoryStoreSuite) newCert(certificateID id.CertificateID, issued time.Time) *models.Certificate {
	c, err := models.NewCertificate(certificateID, s.product, id.PrincipalID(uuid.New()), issued, nil)
	s.Require().NoError(err)
	c.Signature = "00"
	return c
}

func (s *InMemoryStoreSuite) TestOneActivePerProduct() {
	now := time.Now()
	first := s.newCert("GEZDGNBVGY3TQOJQGEZDGNBVGY", now)
	s.Require().NoError(s.store.Insert(s.ctx, first))

	s.ErrorIs(s.store.Insert(s.ctx, s.newCert("MFRGGZDFMZTWQ2LKNNWG23TPOA", now)), sentinel.ErrConflict)
	s.ErrorIs(s.store.Insert(s.ctx, s.newCert("GEZDGNBVGY3TQOJQGEZDGNBVGY", now)), sentinel.ErrAlreadyUsed)

	changed, err := s.store.MarkExpired(s.ctx, first.CertificateID)
	s.Require().NoError(err)
	s.True(changed)
	changed, err = s.store.MarkExpired(s.ctx, first.CertificateID)
	s.Require().NoError(err)
	s.False(changed, "already expired")

	second := s.newCert("MFRGGZDFMZTWQ2LKNNWG23TPOA", now.Add(time.Second))
	s.Require().NoError(s.store.Insert(s.ctx, second))

	active, err := s.store.FindActiveForProduct(s.ctx, s.product)
	s.Require().NoError(err)
	s.Equal(second.CertificateID, active.CertificateID)

	latest, err := s.store.FindLatestForProduct(s.ctx, s.product)
	s.Require().NoError(err)
	s.Equal(second.CertificateID, latest.CertificateID)

	count, err := s.store.CountForProduct(s.ctx, s.product)
	s.Require().NoError(err)
	s.Equal(2, count)
}

func (s *InMemoryStoreSuite) TestIncrementVerification() {
	c := s.newCert("GEZDGNBVGY3TQOJQGEZDGNBVGY", time.Now())
	s.Require().NoError(s.store.Insert(s.ctx, c))

	at := time.Now()
	n, err := s.store.IncrementVerification(s.ctx, c.CertificateID, at)
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	found, err := s.store.FindByCertificateID(s.ctx, c.CertificateID)
	s.Require().NoError(err)
	s.Require().NotNil(found.LastVerifiedAt)
	s.True(at.Equal(*found.LastVerifiedAt))

	_, err = s.store.IncrementVerification(s.ctx, "MFRGGZDFMZTWQ2LKNNWG23TPOA", at)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
