package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	certmodels "provenant/internal/certificate/models"
	productmodels "provenant/internal/product/models"
	scanmodels "provenant/internal/scanlog/models"
	"provenant/internal/verification/metrics"
	"provenant/internal/verification/models"
	"provenant/pkg/attrs"
	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
	audit "provenant/pkg/platform/audit"
	"provenant/pkg/requestcontext"
)

// CertificateEngine is the slice of the certificate service verification reads.
type CertificateEngine interface {
	Get(ctx context.Context, certificateID id.CertificateID) (*certmodels.Certificate, error)
	CurrentForProduct(ctx context.Context, productID id.ProductID) (*certmodels.Certificate, error)
	VerifySignature(c *certmodels.Certificate) bool
	ResolveEffectiveStatus(c *certmodels.Certificate, now time.Time) certmodels.Status
	RecordVerification(ctx context.Context, certificateID id.CertificateID, at time.Time) (int64, error)
}

type ProductDirectory interface {
	Lookup(ctx context.Context, serial string) (*productmodels.Product, error)
	Get(ctx context.Context, productID id.ProductID) (*productmodels.Product, error)
}

// ScanRecorder appends a scan log entry. It never fails the caller.
type ScanRecorder interface {
	Record(ctx context.Context, entry scanmodels.Entry) id.ScanID
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service evaluates verification submissions.
type Service struct {
	certificates   CertificateEngine
	products       ProductDirectory
	scans          ScanRecorder
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
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

func New(certificates CertificateEngine, products ProductDirectory, scans ScanRecorder, opts ...Option) *Service {
	s := &Service{
		certificates: certificates,
		products:     products,
		scans:        scans,
		tracer:       otel.Tracer("provenant/verification"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// resolved is what a lookup found; cert is nil for not_found. A tampered
// certificate's product_id is not trusted, so product is only set when it
// came from the submitted serial.
type resolved struct {
	cert     *certmodels.Certificate
	product  *productmodels.Product
	tampered bool
}

// Verify evaluates one submission and records it. Business outcomes are
// returned in the result; only infrastructure failures during lookup are errors.
func (s *Service) Verify(ctx context.Context, req models.Request) (*models.Result, error) {
	ctx, span := s.tracer.Start(ctx, "verification.Verify")
	defer span.End()
	start := time.Now()
	defer func() { s.metrics.ObserveLatency(time.Since(start)) }()

	now := requestcontext.Now(ctx)
	identifier := models.NormalizeIdentifier(req.Identifier)

	found, err := s.resolve(ctx, identifier)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "verification lookup failed",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
		return nil, err
	}

	result := &models.Result{VerifiedAt: now}
	switch {
	case found.cert == nil:
		result.Status = models.StatusNotFound
	case found.tampered:
		result.Status = models.StatusTampered
		result.CertificateID = &found.cert.CertificateID
		s.reportTampered(ctx, found.cert)
	default:
		s.evaluateStatus(ctx, found, result, now)
	}
	result.Reason = models.Reason(result.Status)

	result.ScanID = s.scans.Record(ctx, s.scanEntry(ctx, req, found, result))

	s.metrics.IncrementOutcome(string(result.Status))
	span.SetAttributes(attribute.String("outcome", string(result.Status)))
	auditAttrs := []any{"outcome", string(result.Status), "scan_id", result.ScanID.String()}
	if result.CertificateID != nil {
		auditAttrs = append(auditAttrs, "certificate_id", result.CertificateID.String())
	}
	s.logAudit(ctx, string(audit.EventVerificationPerformed), auditAttrs...)
	return result, nil
}

// resolve looks the identifier up as a certificate id first, then as a serial.
func (s *Service) resolve(ctx context.Context, identifier string) (resolved, error) {
	if identifier == "" {
		return resolved{}, nil
	}

	if certificateID, err := id.ParseCertificateID(identifier); err == nil {
		cert, err := s.certificates.Get(ctx, certificateID)
		switch {
		case err == nil:
			if !s.certificates.VerifySignature(cert) {
				return resolved{cert: cert, tampered: true}, nil
			}
			return s.withProduct(ctx, cert)
		case !dErrors.HasCode(err, dErrors.CodeNotFound):
			return resolved{}, err
		}
	}

	product, err := s.products.Lookup(ctx, productmodels.NormalizeSerial(identifier))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return resolved{}, nil
		}
		return resolved{}, err
	}
	cert, err := s.certificates.CurrentForProduct(ctx, product.ID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return resolved{}, nil
		}
		return resolved{}, err
	}
	return resolved{cert: cert, product: product, tampered: !s.certificates.VerifySignature(cert)}, nil
}

func (s *Service) withProduct(ctx context.Context, cert *certmodels.Certificate) (resolved, error) {
	product, err := s.products.Get(ctx, cert.ProductID)
	if err != nil {
		// A certificate always references an existing product.
		return resolved{}, dErrors.Wrap(err, dErrors.CodeInternal, "certificate references missing product")
	}
	return resolved{cert: cert, product: product}, nil
}

func (s *Service) evaluateStatus(ctx context.Context, found resolved, result *models.Result, now time.Time) {
	cert := found.cert
	result.CertificateID = &cert.CertificateID
	result.ProductName = found.product.Name
	result.SerialNumber = found.product.SerialNumber

	switch s.certificates.ResolveEffectiveStatus(cert, now) {
	case certmodels.StatusRevoked:
		result.Status = models.StatusRevoked
		return
	case certmodels.StatusExpired:
		result.Status = models.StatusExpired
		return
	}

	result.Status = models.StatusValid
	count, err := s.certificates.RecordVerification(ctx, cert.CertificateID, now)
	if err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "verification counter update failed",
				"certificate_id", cert.CertificateID.String(),
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
		count = cert.VerificationCount
	}
	result.VerificationCount = &count
}

func (s *Service) scanEntry(ctx context.Context, req models.Request, found resolved, result *models.Result) scanmodels.Entry {
	entry := scanmodels.Entry{
		Identifier: req.Identifier,
		Outcome:    result.Status,
		ScannedAt:  result.VerifiedAt,
		IPAddress:  requestcontext.ClientIP(ctx),
		UserAgent:  requestcontext.UserAgent(ctx),
		Location:   req.Location,
	}
	if found.cert != nil {
		entry.CertificateID = &found.cert.CertificateID
	}
	if found.product != nil {
		entry.ProductID = &found.product.ID
		entry.OwnerID = &found.product.OwnerID
	}
	return entry
}

func (s *Service) reportTampered(ctx context.Context, cert *certmodels.Certificate) {
	s.metrics.IncrementTampered()
	if s.logger != nil {
		s.logger.ErrorContext(ctx, "certificate signature mismatch",
			"certificate_id", cert.CertificateID.String(),
			"product_id", cert.ProductID.String(),
			"request_id", requestcontext.RequestID(ctx),
			"client_ip", requestcontext.ClientIP(ctx),
			"event", string(audit.EventCertificateTampered),
			"log_type", "security",
		)
	}
	if s.auditPublisher == nil {
		return
	}
	// Security events are buffered; a full buffer is reported by the publisher.
	_ = s.auditPublisher.Emit(ctx, audit.Event{
		Subject:   cert.CertificateID.String(),
		Action:    string(audit.EventCertificateTampered),
		Decision:  string(models.StatusTampered),
		IP:        requestcontext.ClientIP(ctx),
		RequestID: requestcontext.RequestID(ctx),
		Timestamp: requestcontext.Now(ctx),
		Severity:  audit.SeverityCritical,
	})
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	if s.logger != nil {
		args := append(attributes, "event", event, "log_type", "audit")
		s.logger.InfoContext(ctx, event, args...)
	}
	if s.auditPublisher == nil {
		return
	}
	_ = s.auditPublisher.Emit(ctx, audit.Event{
		Subject:   attrs.FirstOf(attributes, "certificate_id", "scan_id"),
		Action:    event,
		Decision:  attrs.ExtractString(attributes, "outcome"),
		IP:        requestcontext.ClientIP(ctx),
		RequestID: requestcontext.RequestID(ctx),
		Timestamp: requestcontext.Now(ctx),
	})
}
