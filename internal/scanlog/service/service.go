package service

import (
	"context"
	"log/slog"
	"time"

	certmodels "provenant/internal/certificate/models"
	identitymodels "provenant/internal/identity/models"
	productmodels "provenant/internal/product/models"
	"provenant/internal/scanlog/models"
	"provenant/pkg/attrs"
	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
	audit "provenant/pkg/platform/audit"
	"provenant/pkg/requestcontext"
)

// ScanStore is the read side of the scan log store. Every read is keyed by
// the owning customer.
type ScanStore interface {
	Query(ctx context.Context, ownerID id.PrincipalID, filter models.Filter) ([]*models.ScanLog, error)
	Summary(ctx context.Context, ownerID id.PrincipalID, since *time.Time) (*models.Summary, error)
}

type CertificateReader interface {
	Get(ctx context.Context, certificateID id.CertificateID) (*certmodels.Certificate, error)
}

type ProductReader interface {
	Get(ctx context.Context, productID id.ProductID) (*productmodels.Product, error)
}

type PrincipalReader interface {
	Get(ctx context.Context, principalID id.PrincipalID) (*identitymodels.Principal, error)
}

// Service answers tenant-scoped scan history queries.
type Service struct {
	scans          ScanStore
	certificates   CertificateReader
	products       ProductReader
	principals     PrincipalReader
	logger         *slog.Logger
	auditPublisher AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithAuditPublisher routes scan_log_queried to the ops audit lane.
func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func New(scans ScanStore, certificates CertificateReader, products ProductReader, principals PrincipalReader, opts ...Option) *Service {
	s := &Service{
		scans:        scans,
		certificates: certificates,
		products:     products,
		principals:   principals,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QueryForCustomer returns scans of certificates on the customer's products.
// A certificate filter naming another tenant's certificate is NotFound.
func (s *Service) QueryForCustomer(ctx context.Context, actor id.Actor, customerID id.PrincipalID, filter models.Filter) ([]*models.ScanLog, error) {
	if err := s.authorize(ctx, actor, customerID); err != nil {
		return nil, err
	}
	if err := filter.Normalize(); err != nil {
		return nil, err
	}
	if filter.CertificateID != nil {
		if err := s.requireOwnedCertificate(ctx, customerID, *filter.CertificateID); err != nil {
			return nil, err
		}
	}

	scans, err := s.scans.Query(ctx, customerID, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to query scan logs")
	}
	s.logAudit(ctx, string(audit.EventScanLogQueried),
		"customer_id", customerID.String(),
		"actor_id", actor.ID.String(),
		"results", len(scans),
	)
	return scans, nil
}

// SummaryForCustomer counts the customer's scans by outcome since the given instant.
func (s *Service) SummaryForCustomer(ctx context.Context, actor id.Actor, customerID id.PrincipalID, since *time.Time) (*models.Summary, error) {
	if err := s.authorize(ctx, actor, customerID); err != nil {
		return nil, err
	}
	summary, err := s.scans.Summary(ctx, customerID, since)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to summarize scan logs")
	}
	return summary, nil
}

// authorize lets customers read only their own history and admins read any
// existing customer's history.
func (s *Service) authorize(ctx context.Context, actor id.Actor, customerID id.PrincipalID) error {
	switch {
	case actor.IsCustomer():
		if actor.ID != customerID {
			return dErrors.New(dErrors.CodeForbidden, "customers can only read their own scans")
		}
		return nil
	case actor.IsAdmin():
		p, err := s.principals.Get(ctx, customerID)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "customer not found")
			}
			return err
		}
		if !p.IsCustomer() {
			return dErrors.New(dErrors.CodeNotFound, "customer not found")
		}
		return nil
	default:
		return dErrors.New(dErrors.CodeForbidden, "scan history requires an admin or customer")
	}
}

func (s *Service) requireOwnedCertificate(ctx context.Context, customerID id.PrincipalID, certificateID id.CertificateID) error {
	notFound := dErrors.New(dErrors.CodeNotFound, "certificate not found")

	cert, err := s.certificates.Get(ctx, certificateID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return notFound
		}
		return err
	}
	product, err := s.products.Get(ctx, cert.ProductID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return notFound
		}
		return err
	}
	if !product.IsOwnedBy(customerID) {
		return notFound
	}
	return nil
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
		Subject:   attrs.ExtractString(attributes, "customer_id"),
		Action:    event,
		ActorID:   attrs.ExtractString(attributes, "actor_id"),
		IP:        requestcontext.ClientIP(ctx),
		RequestID: requestcontext.RequestID(ctx),
		Timestamp: requestcontext.Now(ctx),
	})
}
