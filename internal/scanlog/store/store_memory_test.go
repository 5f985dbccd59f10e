package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"provenant/internal/scanlog/models"
	id "provenant/pkg/domain"
	"provenant/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store  *InMemory
	ctx    context.Context
	ownerA id.PrincipalID
	ownerB id.PrincipalID
	certA  id.CertificateID
	base   time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.ownerA = id.PrincipalID(uuid.New())
	s.ownerB = id.PrincipalID(uuid.New())
	s.certA = id.CertificateID("GEZDGNBVGY3TQOJQGEZDGNBVGY")
	s.base = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) appendScan(owner *id.PrincipalID, cid *id.CertificateID, outcome models.Outcome, at time.Time) *models.ScanLog {
	entry := models.Entry{CertificateID: cid, OwnerID: owner, Outcome: outcome, ScannedAt: at, Identifier: "x"}
	if cid != nil {
		pid := id.ProductID(uuid.New())
		entry.ProductID = &pid
	}
	scan, err := models.NewScanLog(id.ScanID(uuid.New()), entry, models.Device{})
	s.Require().NoError(err)
	s.Require().NoError(s.store.Append(s.ctx, scan))
	return scan
}

func (s *InMemoryStoreSuite) TestAppendRejectsDuplicateID() {
	scan := s.appendScan(nil, nil, models.OutcomeNotFound, s.base)
	s.ErrorIs(s.store.Append(s.ctx, scan), sentinel.ErrConflict)
	s.Equal(1, s.store.Len())
}

func (s *InMemoryStoreSuite) TestQueryIsOwnerScoped() {
	s.appendScan(&s.ownerA, &s.certA, models.OutcomeValid, s.base)
	s.appendScan(&s.ownerA, &s.certA, models.OutcomeRevoked, s.base.Add(time.Minute))
	s.appendScan(nil, nil, models.OutcomeNotFound, s.base)

	scansA, err := s.store.Query(s.ctx, s.ownerA, models.Filter{Limit: 50})
	s.Require().NoError(err)
	s.Require().Len(scansA, 2)
	s.Equal(models.OutcomeRevoked, scansA[0].Outcome)

	scansB, err := s.store.Query(s.ctx, s.ownerB, models.Filter{Limit: 50, CertificateID: &s.certA})
	s.Require().NoError(err)
	s.Empty(scansB)
}

func (s *InMemoryStoreSuite) TestQueryPaging() {
	for i := range 5 {
		s.appendScan(&s.ownerA, &s.certA, models.OutcomeValid, s.base.Add(time.Duration(i)*time.Minute))
	}

	page, err := s.store.Query(s.ctx, s.ownerA, models.Filter{Limit: 2, Offset: 1})
	s.Require().NoError(err)
	s.Require().Len(page, 2)
	s.Equal(s.base.Add(3*time.Minute), page[0].ScannedAt)

	empty, err := s.store.Query(s.ctx, s.ownerA, models.Filter{Limit: 2, Offset: 10})
	s.Require().NoError(err)
	s.Empty(empty)
}

func (s *InMemoryStoreSuite) TestSummary() {
	s.appendScan(&s.ownerA, &s.certA, models.OutcomeValid, s.base)
	s.appendScan(&s.ownerA, &s.certA, models.OutcomeValid, s.base.Add(time.Hour))
	s.appendScan(&s.ownerA, &s.certA, models.OutcomeTampered, s.base.Add(2*time.Hour))
	s.appendScan(&s.ownerB, &s.certA, models.OutcomeValid, s.base)

	summary, err := s.store.Summary(s.ctx, s.ownerA, nil)
	s.Require().NoError(err)
	s.Equal(int64(3), summary.Total)
	s.Equal(int64(2), summary.Valid)
	s.Equal(int64(1), summary.ByOutcome[models.OutcomeTampered])

	since := s.base.Add(30 * time.Minute)
	summary, err = s.store.Summary(s.ctx, s.ownerA, &since)
	s.Require().NoError(err)
	s.Equal(int64(2), summary.Total)
}
