package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	identitymodels "provenant/internal/identity/models"
	"provenant/internal/product/metrics"
	"provenant/internal/product/models"
	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
	audit "provenant/pkg/platform/audit"
	"provenant/pkg/platform/sentinel"
	txcontext "provenant/pkg/platform/tx"
	"provenant/pkg/requestcontext"
)

type ProductStore interface {
	Create(ctx context.Context, p *models.Product) error
	FindByID(ctx context.Context, productID id.ProductID) (*models.Product, error)
	FindBySerial(ctx context.Context, serial string) (*models.Product, error)
	ListByOwner(ctx context.Context, ownerID id.PrincipalID) ([]*models.Product, error)
	Execute(ctx context.Context, productID id.ProductID, validate func(*models.Product) error, mutate func(*models.Product)) (*models.Product, error)
}

// CustomerDirectory resolves active customers.
type CustomerDirectory interface {
	ActiveCustomer(ctx context.Context, customerID id.PrincipalID) (*identitymodels.Principal, error)
}

// CertificateCounter reports how many certificates were ever issued for a product.
type CertificateCounter interface {
	CountForProduct(ctx context.Context, productID id.ProductID) (int, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service maintains the product registry.
type Service struct {
	products       ProductStore
	customers      CustomerDirectory
	certificates   CertificateCounter
	tx             txcontext.Runner
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
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

func New(products ProductStore, customers CustomerDirectory, certificates CertificateCounter, opts ...Option) *Service {
	s := &Service{
		products:     products,
		customers:    customers,
		certificates: certificates,
		tx:           txcontext.Inline(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterProduct adds a product owned by an active customer. Admin only.
func (s *Service) RegisterProduct(ctx context.Context, actor id.Actor, req models.RegisterRequest) (*models.Product, error) {
	if !actor.IsAdmin() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only admins can register products")
	}
	if _, err := s.customers.ActiveCustomer(ctx, req.OwnerID); err != nil {
		return nil, err
	}

	product, err := models.NewProduct(id.ProductID(uuid.New()), req.OwnerID, req.SerialNumber, req.Name, req.Description, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.products.Create(ctx, product); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				s.metrics.IncrementDuplicateSerial()
				return dErrors.New(dErrors.CodeConflict, "serial number already registered")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to register product")
		}
		return s.emitCompliance(ctx, audit.EventProductRegistered, product.ID.String(), actor.ID.String(), "")
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementRegistered()
	s.logAudit(ctx, string(audit.EventProductRegistered),
		"product_id", product.ID.String(),
		"serial_number", product.SerialNumber,
		"owner_id", product.OwnerID.String(),
		"actor_id", actor.ID.String(),
	)
	return product, nil
}

// Lookup finds a product by serial number. The serial is normalized first.
func (s *Service) Lookup(ctx context.Context, serial string) (*models.Product, error) {
	serial = models.NormalizeSerial(serial)
	if serial == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "serial number is required")
	}
	p, err := s.products.FindBySerial(ctx, serial)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, productID id.ProductID) (*models.Product, error) {
	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return p, nil
}

func (s *Service) ListForCustomer(ctx context.Context, customerID id.PrincipalID) ([]*models.Product, error) {
	products, err := s.products.ListByOwner(ctx, customerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list products")
	}
	return products, nil
}

// TransferOwnership moves a product to another active customer. It is refused
// once any certificate has been issued against the product.
func (s *Service) TransferOwnership(ctx context.Context, actor id.Actor, productID id.ProductID, newOwnerID id.PrincipalID) (*models.Product, error) {
	if !actor.IsAdmin() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only admins can transfer products")
	}
	if _, err := s.customers.ActiveCustomer(ctx, newOwnerID); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	var previousOwner id.PrincipalID
	var updated *models.Product
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.products.Execute(ctx, productID,
			func(p *models.Product) error {
				count, err := s.certificates.CountForProduct(ctx, p.ID)
				if err != nil {
					return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count certificates")
				}
				previousOwner = p.OwnerID
				return p.CanTransfer(newOwnerID, count > 0)
			},
			func(p *models.Product) { p.ApplyTransfer(newOwnerID, now) },
		)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "product not found")
			}
			if _, ok := dErrors.As(err); ok {
				return err
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to transfer product")
		}
		updated = p
		return s.emitCompliance(ctx, audit.EventProductTransferred, p.ID.String(), actor.ID.String(), "from "+previousOwner.String()+" to "+newOwnerID.String())
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementTransfer()
	s.logAudit(ctx, string(audit.EventProductTransferred),
		"product_id", updated.ID.String(),
		"previous_owner_id", previousOwner.String(),
		"owner_id", newOwnerID.String(),
		"actor_id", actor.ID.String(),
	)
	return updated, nil
}

func translateNotFound(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "product not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load product")
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

// logAudit writes the structured audit line. Product events are compliance
// events and reach the audit store through emitCompliance.
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
