package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	certmodels "provenant/internal/certificate/models"
	certservice "provenant/internal/certificate/service"
	"provenant/internal/certificate/signing"
	certstore "provenant/internal/certificate/store"
	identitymodels "provenant/internal/identity/models"
	productmodels "provenant/internal/product/models"
	productservice "provenant/internal/product/service"
	productstore "provenant/internal/product/store"
	scanmodels "provenant/internal/scanlog/models"
	scanservice "provenant/internal/scanlog/service"
	scanstore "provenant/internal/scanlog/store"
	"provenant/internal/verification/models"
	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
	audit "provenant/pkg/platform/audit"
	"provenant/pkg/requestcontext"
)

type customers map[id.PrincipalID]bool

func (c customers) ActiveCustomer(_ context.Context, customerID id.PrincipalID) (*identitymodels.Principal, error) {
	if !c[customerID] {
		return nil, dErrors.New(dErrors.CodeNotFound, "customer not found")
	}
	return &identitymodels.Principal{ID: customerID, Role: id.RoleCustomer, IsActive: true}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []audit.Event
}

func (p *recordingPublisher) Emit(_ context.Context, event audit.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) count(action audit.AuditEvent) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Action == string(action) {
			n++
		}
	}
	return n
}

// failingCounter delegates to the engine but never records a verification.
type failingCounter struct {
	CertificateEngine
}

func (failingCounter) RecordVerification(context.Context, id.CertificateID, time.Time) (int64, error) {
	return 0, dErrors.New(dErrors.CodeInternal, "failed to record verification")
}

// brokenProducts fails every lookup with an infrastructure error.
type brokenProducts struct{}

func (brokenProducts) Lookup(context.Context, string) (*productmodels.Product, error) {
	return nil, dErrors.Wrap(errors.New("connection reset"), dErrors.CodeInternal, "failed to load product")
}

func (brokenProducts) Get(context.Context, id.ProductID) (*productmodels.Product, error) {
	return nil, dErrors.Wrap(errors.New("connection reset"), dErrors.CodeInternal, "failed to load product")
}

type ServiceSuite struct {
	suite.Suite
	now       time.Time
	admin     id.Actor
	c1        id.PrincipalID
	c2        id.PrincipalID
	certs     *certstore.InMemory
	scans     *scanstore.InMemory
	publisher *recordingPublisher
	certSvc   *certservice.Service
	products  *productservice.Service
	recorder  *scanservice.Recorder
	service   *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	s.admin = id.Actor{ID: id.PrincipalID(uuid.New()), Role: id.RoleAdmin}
	s.c1 = id.PrincipalID(uuid.New())
	s.c2 = id.PrincipalID(uuid.New())
	s.certs = certstore.NewInMemory()
	s.scans = scanstore.NewInMemory()
	s.publisher = &recordingPublisher{}

	signer, err := signing.NewSigner("verification-test-secret-0123456789abcdef")
	s.Require().NoError(err)
	pstore := productstore.NewInMemory()
	s.certSvc = certservice.New(s.certs, pstore, signer, "https://verify.example.com")
	s.products = productservice.New(pstore, customers{s.c1: true, s.c2: true}, s.certs)
	s.recorder = scanservice.NewRecorder(s.scans)
	s.service = New(s.certSvc, s.products, s.recorder, WithAuditPublisher(s.publisher))
}

func (s *ServiceSuite) ctxAt(t time.Time) context.Context {
	ctx := requestcontext.WithTime(context.Background(), t)
	return requestcontext.WithClientMetadata(ctx, "203.0.113.7",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1")
}

func (s *ServiceSuite) registerProduct(serial string) *productmodels.Product {
	p, err := s.products.RegisterProduct(s.ctxAt(s.now), s.admin, productmodels.RegisterRequest{
		OwnerID: s.c1, SerialNumber: serial, Name: "Chronograph",
	})
	s.Require().NoError(err)
	return p
}

func (s *ServiceSuite) issue(productID id.ProductID, at time.Time, expiry *time.Time) *certmodels.Certificate {
	c, err := s.certSvc.Issue(s.ctxAt(at), s.admin, certmodels.IssueRequest{ProductID: productID, ExpiryDate: expiry})
	s.Require().NoError(err)
	return c
}

func (s *ServiceSuite) verify(at time.Time, identifier string) *models.Result {
	result, err := s.service.Verify(s.ctxAt(at), models.Request{Identifier: identifier})
	s.Require().NoError(err)
	return result
}

func (s *ServiceSuite) TestRevocationScenario() {
	product := s.registerProduct("SN-001")
	certA := s.issue(product.ID, s.now, nil)

	result := s.verify(s.now.Add(time.Minute), certA.CertificateID.String())
	s.Equal(models.StatusValid, result.Status)
	s.Equal("Chronograph", result.ProductName)
	s.Equal("SN-001", result.SerialNumber)
	s.Require().NotNil(result.VerificationCount)
	s.Equal(int64(1), *result.VerificationCount)

	_, err := s.certSvc.Revoke(s.ctxAt(s.now.Add(2*time.Minute)), s.admin, certA.CertificateID, "stolen")
	s.Require().NoError(err)
	s.Equal(models.StatusRevoked, s.verify(s.now.Add(3*time.Minute), certA.CertificateID.String()).Status)

	certB := s.issue(product.ID, s.now.Add(4*time.Minute), nil)
	s.Equal(models.StatusValid, s.verify(s.now.Add(5*time.Minute), certB.CertificateID.String()).Status)
	s.Equal(models.StatusRevoked, s.verify(s.now.Add(6*time.Minute), certA.CertificateID.String()).Status)

	s.Len(s.scans.All(), 4)
}

func (s *ServiceSuite) TestExpiredWithoutAdminAction() {
	product := s.registerProduct("SN-EXP")
	yesterday := s.now.Add(-24 * time.Hour)
	cert := s.issue(product.ID, s.now, &yesterday)

	result := s.verify(s.now, cert.CertificateID.String())
	s.Equal(models.StatusExpired, result.Status)
	s.Nil(result.VerificationCount)

	stored, err := s.certSvc.Get(context.Background(), cert.CertificateID)
	s.Require().NoError(err)
	s.Equal(certmodels.StatusActive, stored.Status, "expiry is derived, not persisted")
	s.Zero(stored.VerificationCount)
}

func (s *ServiceSuite) TestLookupBySerialAndURL() {
	product := s.registerProduct("SN-002")
	cert := s.issue(product.ID, s.now, nil)

	s.Run("serial resolves the current certificate", func() {
		result := s.verify(s.now, "  sn-002 ")
		s.Equal(models.StatusValid, result.Status)
		s.Require().NotNil(result.CertificateID)
		s.Equal(cert.CertificateID, *result.CertificateID)
	})

	s.Run("qr payload url", func() {
		result := s.verify(s.now, s.certSvc.QRPayload(cert))
		s.Equal(models.StatusValid, result.Status)
	})

	s.Run("lower-case certificate id", func() {
		result := s.verify(s.now, strings.ToLower(cert.CertificateID.String()))
		s.Equal(models.StatusValid, result.Status)
	})

	s.Run("product without certificate is not found", func() {
		s.registerProduct("SN-BARE")
		s.Equal(models.StatusNotFound, s.verify(s.now, "SN-BARE").Status)
	})
}

func (s *ServiceSuite) TestNotFoundIsLogged() {
	result := s.verify(s.now, "no-such-thing")
	s.Equal(models.StatusNotFound, result.Status)
	s.Nil(result.CertificateID)
	s.Empty(result.ProductName)

	scans := s.scans.All()
	s.Require().Len(scans, 1)
	s.Nil(scans[0].CertificateID)
	s.Equal(scanmodels.OutcomeNotFound, scans[0].Outcome)
	s.False(scans[0].IsValid)
	s.Equal("no-such-thing", scans[0].Identifier)
	s.Equal("203.0.113.7", scans[0].IPAddress)
	s.True(scans[0].Device.Mobile)
	s.Equal(result.ScanID, scans[0].ID)
}

func (s *ServiceSuite) TestTamperedCertificate() {
	product := s.registerProduct("SN-003")
	cert := s.issue(product.ID, s.now, nil)

	s.certs.Tamper(cert.CertificateID, func(c *certmodels.Certificate) {
		c.IssueDate = c.IssueDate.Add(-365 * 24 * time.Hour)
	})

	result := s.verify(s.now, cert.CertificateID.String())
	s.Equal(models.StatusTampered, result.Status)
	s.Empty(result.ProductName)
	s.Nil(result.VerificationCount)
	s.Equal(1, s.publisher.count(audit.EventCertificateTampered))
	s.Equal(1, s.publisher.count(audit.EventVerificationPerformed))

	stored, err := s.certSvc.Get(context.Background(), cert.CertificateID)
	s.Require().NoError(err)
	s.Zero(stored.VerificationCount)

	scans := s.scans.All()
	s.Require().Len(scans, 1)
	s.Equal(scanmodels.OutcomeTampered, scans[0].Outcome)
	s.Require().NotNil(scans[0].CertificateID)
	s.Nil(scans[0].OwnerID, "product_id of a tampered certificate is not trusted")

	s.Run("by serial the scan belongs to the submitted product", func() {
		result := s.verify(s.now, "SN-003")
		s.Equal(models.StatusTampered, result.Status)

		scans := s.scans.All()
		s.Require().Len(scans, 2)
		last := scans[1]
		s.Require().NotNil(last.OwnerID)
		s.Equal(s.c1, *last.OwnerID)
		s.Equal(product.ID, *last.ProductID)
	})
}

func (s *ServiceSuite) TestTamperedProductReference() {
	mine := s.registerProduct("SN-010")
	theirs, err := s.products.RegisterProduct(s.ctxAt(s.now), s.admin, productmodels.RegisterRequest{
		OwnerID: s.c2, SerialNumber: "SN-011", Name: "Diver",
	})
	s.Require().NoError(err)

	s.Run("pointed at a product that does not exist", func() {
		cert := s.issue(mine.ID, s.now, nil)
		s.certs.Tamper(cert.CertificateID, func(c *certmodels.Certificate) {
			c.ProductID = id.ProductID(uuid.New())
		})

		result := s.verify(s.now, cert.CertificateID.String())
		s.Equal(models.StatusTampered, result.Status)
		s.Empty(result.SerialNumber)
	})

	s.Run("pointed at another customer's product", func() {
		cert := s.issue(theirs.ID, s.now, nil)
		s.certs.Tamper(cert.CertificateID, func(c *certmodels.Certificate) {
			c.ProductID = mine.ID
		})

		result := s.verify(s.now, cert.CertificateID.String())
		s.Equal(models.StatusTampered, result.Status)
		s.Empty(result.ProductName)
	})

	scans := s.scans.All()
	s.Require().Len(scans, 2)
	for _, scan := range scans {
		s.Equal(scanmodels.OutcomeTampered, scan.Outcome)
		s.Nil(scan.OwnerID)
		s.Nil(scan.ProductID)
	}
}

func (s *ServiceSuite) TestCounterFailureDoesNotChangeOutcome() {
	product := s.registerProduct("SN-004")
	cert := s.issue(product.ID, s.now, nil)

	svc := New(failingCounter{s.certSvc}, s.products, s.recorder)
	result, err := svc.Verify(s.ctxAt(s.now), models.Request{Identifier: cert.CertificateID.String()})
	s.Require().NoError(err)
	s.Equal(models.StatusValid, result.Status)
	s.Require().NotNil(result.VerificationCount)
	s.Zero(*result.VerificationCount)
}

func (s *ServiceSuite) TestInfrastructureFailurePropagates() {
	svc := New(s.certSvc, brokenProducts{}, s.recorder)
	_, err := svc.Verify(s.ctxAt(s.now), models.Request{Identifier: "SN-001"})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	s.Empty(s.scans.All())
}

func (s *ServiceSuite) TestConcurrentVerificationsCount() {
	product := s.registerProduct("SN-005")
	cert := s.issue(product.ID, s.now, nil)

	var wg sync.WaitGroup
	for range 25 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := s.service.Verify(s.ctxAt(s.now), models.Request{Identifier: cert.CertificateID.String()})
			s.NoError(err)
			s.Equal(models.StatusValid, result.Status)
		}()
	}
	wg.Wait()

	stored, err := s.certSvc.Get(context.Background(), cert.CertificateID)
	s.Require().NoError(err)
	s.Equal(int64(25), stored.VerificationCount)
	s.Len(s.scans.All(), 25)
}
