package service

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"provenant/internal/certificate/metrics"
	"provenant/internal/certificate/models"
	productmodels "provenant/internal/product/models"
	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
	audit "provenant/pkg/platform/audit"
	"provenant/pkg/platform/sentinel"
	txcontext "provenant/pkg/platform/tx"
	"provenant/pkg/requestcontext"
)

type CertificateStore interface {
	Insert(ctx context.Context, c *models.Certificate) error
	FindByCertificateID(ctx context.Context, certificateID id.CertificateID) (*models.Certificate, error)
	FindActiveForProduct(ctx context.Context, productID id.ProductID) (*models.Certificate, error)
	FindLatestForProduct(ctx context.Context, productID id.ProductID) (*models.Certificate, error)
	ListForProduct(ctx context.Context, productID id.ProductID) ([]*models.Certificate, error)
	MarkExpired(ctx context.Context, certificateID id.CertificateID) (bool, error)
	Execute(ctx context.Context, certificateID id.CertificateID, validate func(*models.Certificate) error, mutate func(*models.Certificate)) (*models.Certificate, error)
	IncrementVerification(ctx context.Context, certificateID id.CertificateID, at time.Time) (int64, error)
}

// ProductReader loads the product a certificate is issued against.
// FindByIDForShare holds the product row until the transaction ends.
type ProductReader interface {
	FindByIDForShare(ctx context.Context, productID id.ProductID) (*productmodels.Product, error)
}

type Signer interface {
	Sign(certificateID id.CertificateID, productID id.ProductID, issueDate time.Time) string
	Verify(c *models.Certificate) bool
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service issues, revokes and checks certificates.
type Service struct {
	certificates   CertificateStore
	products       ProductReader
	signer         Signer
	publicBaseURL  string
	tx             txcontext.Runner
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
	newID          func() (id.CertificateID, error)
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTxRunner(runner txcontext.Runner) Option {
	return func(s *Service) {
		s.tx = runner
	}
}

// WithIDGenerator replaces the random certificate id source.
func WithIDGenerator(fn func() (id.CertificateID, error)) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

func New(certificates CertificateStore, products ProductReader, signer Signer, publicBaseURL string, opts ...Option) *Service {
	s := &Service{
		certificates:  certificates,
		products:      products,
		signer:        signer,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		tx:            txcontext.Inline(),
		tracer:        otel.Tracer("provenant/certificate"),
		newID:         RandomCertificateID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RandomCertificateID draws 128 random bits.
func RandomCertificateID() (id.CertificateID, error) {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return id.EncodeCertificateID(raw), nil
}

// Issue creates and signs a certificate for a product. A stored-active
// certificate that has passed its expiry is persisted as expired first; one
// that is still effectively active blocks issuance.
func (s *Service) Issue(ctx context.Context, actor id.Actor, req models.IssueRequest) (*models.Certificate, error) {
	ctx, span := s.tracer.Start(ctx, "certificate.Issue",
		trace.WithAttributes(attribute.String("product_id", req.ProductID.String())))
	defer span.End()
	start := time.Now()
	defer func() { s.metrics.ObserveIssueLatency(time.Since(start)) }()

	if !actor.IsAdmin() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only admins can issue certificates")
	}
	now := requestcontext.Now(ctx)

	var issued *models.Certificate
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.products.FindByIDForShare(ctx, req.ProductID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "product not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load product")
		}

		if err := s.retireExpired(ctx, req.ProductID, now); err != nil {
			return err
		}

		cert, err := s.insertSigned(ctx, actor, req, now)
		if err != nil {
			return err
		}
		issued = cert
		return s.emitCompliance(ctx, audit.EventCertificateIssued, cert.CertificateID.String(), actor.ID.String(), "")
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.metrics.IncrementIssued()
	span.SetAttributes(attribute.String("certificate_id", issued.CertificateID.String()))
	s.logAudit(ctx, string(audit.EventCertificateIssued),
		"certificate_id", issued.CertificateID.String(),
		"product_id", issued.ProductID.String(),
		"actor_id", actor.ID.String(),
	)
	return issued, nil
}

func (s *Service) retireExpired(ctx context.Context, productID id.ProductID, now time.Time) error {
	active, err := s.certificates.FindActiveForProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load active certificate")
	}
	if !active.CanMarkExpired(now) {
		s.metrics.IncrementIssueConflict()
		return dErrors.New(dErrors.CodeConflict, "product already has an active certificate")
	}
	changed, err := s.certificates.MarkExpired(ctx, active.CertificateID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to expire certificate")
	}
	if !changed {
		return nil
	}
	s.metrics.IncrementLazilyExpired()
	return s.emitCompliance(ctx, audit.EventCertificateExpired, active.CertificateID.String(), "", "superseded after expiry")
}

func (s *Service) insertSigned(ctx context.Context, actor id.Actor, req models.IssueRequest, now time.Time) (*models.Certificate, error) {
	certificateID, err := s.newID()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate certificate id")
	}
	cert, err := models.NewCertificate(certificateID, req.ProductID, actor.ID, now, req.ExpiryDate)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}
	cert.Signature = s.signer.Sign(cert.CertificateID, cert.ProductID, cert.IssueDate)

	if err := s.certificates.Insert(ctx, cert); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrConflict):
			s.metrics.IncrementIssueConflict()
			return nil, dErrors.New(dErrors.CodeConflict, "product already has an active certificate")
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			return nil, dErrors.New(dErrors.CodeInternal, "certificate id collision")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store certificate")
	}
	return cert, nil
}

// Revoke permanently invalidates a certificate.
func (s *Service) Revoke(ctx context.Context, actor id.Actor, certificateID id.CertificateID, reason string) (*models.Certificate, error) {
	ctx, span := s.tracer.Start(ctx, "certificate.Revoke",
		trace.WithAttributes(attribute.String("certificate_id", certificateID.String())))
	defer span.End()

	if !actor.IsAdmin() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only admins can revoke certificates")
	}
	now := requestcontext.Now(ctx)

	var revoked *models.Certificate
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		c, err := s.certificates.Execute(ctx, certificateID,
			func(c *models.Certificate) error { return c.CanRevoke() },
			func(c *models.Certificate) { c.ApplyRevocation(actor.ID, reason, now) },
		)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "certificate not found")
			}
			if _, ok := dErrors.As(err); ok {
				return err
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke certificate")
		}
		revoked = c
		return s.emitCompliance(ctx, audit.EventCertificateRevoked, c.CertificateID.String(), actor.ID.String(), c.RevocationReason)
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.metrics.IncrementRevoked()
	s.logAudit(ctx, string(audit.EventCertificateRevoked),
		"certificate_id", revoked.CertificateID.String(),
		"product_id", revoked.ProductID.String(),
		"actor_id", actor.ID.String(),
		"reason", revoked.RevocationReason,
	)
	return revoked, nil
}

// ResolveEffectiveStatus derives the status at now.
func (s *Service) ResolveEffectiveStatus(c *models.Certificate, now time.Time) models.Status {
	return c.EffectiveStatus(now)
}

// VerifySignature checks the stored signature against the signed fields.
func (s *Service) VerifySignature(c *models.Certificate) bool {
	return s.signer.Verify(c)
}

func (s *Service) Get(ctx context.Context, certificateID id.CertificateID) (*models.Certificate, error) {
	c, err := s.certificates.FindByCertificateID(ctx, certificateID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "certificate not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load certificate")
	}
	return c, nil
}

// ListForProduct returns the product's certificates, newest first.
func (s *Service) ListForProduct(ctx context.Context, productID id.ProductID) ([]*models.Certificate, error) {
	list, err := s.certificates.ListForProduct(ctx, productID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list certificates")
	}
	return list, nil
}

// CurrentForProduct returns the stored-active certificate, else the most recently issued.
func (s *Service) CurrentForProduct(ctx context.Context, productID id.ProductID) (*models.Certificate, error) {
	c, err := s.certificates.FindActiveForProduct(ctx, productID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load certificate")
	}
	c, err = s.certificates.FindLatestForProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no certificate for product")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load certificate")
	}
	return c, nil
}

// QRPayload is the verification URL encoded in the product's QR code.
func (s *Service) QRPayload(c *models.Certificate) string {
	return s.publicBaseURL + "/verify?cert=" + url.QueryEscape(c.CertificateID.String())
}

// RecordVerification increments the verification counter.
func (s *Service) RecordVerification(ctx context.Context, certificateID id.CertificateID, at time.Time) (int64, error) {
	count, err := s.certificates.IncrementVerification(ctx, certificateID, at)
	if err != nil {
		s.metrics.IncrementCounterFailure()
		if errors.Is(err, sentinel.ErrNotFound) {
			return 0, dErrors.New(dErrors.CodeNotFound, "certificate not found")
		}
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record verification")
	}
	return count, nil
}

func (s *Service) emitCompliance(ctx context.Context, event audit.AuditEvent, subject, actorID, reason string) error {
	if s.auditPublisher == nil {
		return nil
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		Subject:   subject,
		Action:    string(event),
		Reason:    reason,
		ActorID:   actorID,
		IP:        requestcontext.ClientIP(ctx),
		RequestID: requestcontext.RequestID(ctx),
		Timestamp: requestcontext.Now(ctx),
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
	}
	return nil
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if s.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}
