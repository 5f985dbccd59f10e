package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"provenant/internal/identity/lockout"
	"provenant/internal/identity/metrics"
	"provenant/internal/identity/models"
	"provenant/pkg/attrs"
	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
	audit "provenant/pkg/platform/audit"
	"provenant/pkg/platform/sentinel"
	txcontext "provenant/pkg/platform/tx"
	"provenant/pkg/requestcontext"
)

type PrincipalStore interface {
	Create(ctx context.Context, p *models.Principal) error
	FindByID(ctx context.Context, principalID id.PrincipalID) (*models.Principal, error)
	FindByUsername(ctx context.Context, role id.Role, username string) (*models.Principal, error)
	CountByRole(ctx context.Context, role id.Role) (int, error)
	Execute(ctx context.Context, principalID id.PrincipalID, validate func(*models.Principal) error, mutate func(*models.Principal)) (*models.Principal, error)
	UpdateLastLogin(ctx context.Context, principalID id.PrincipalID, at time.Time) error
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

type TokenIssuer interface {
	Issue(principalID id.PrincipalID, role id.Role) (string, time.Time, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service manages principals and their sessions.
type Service struct {
	principals       PrincipalStore
	hasher           PasswordHasher
	tokens           TokenIssuer
	lockouts         lockout.Store
	tx               txcontext.Runner
	logger           *slog.Logger
	auditPublisher   AuditPublisher
	metrics          *metrics.Metrics
	lockoutThreshold int
	lockoutWindow    time.Duration
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

// WithLockout enables failed-login lockout. A threshold of zero disables it.
func WithLockout(store lockout.Store, threshold int, window time.Duration) Option {
	return func(s *Service) {
		s.lockouts = store
		s.lockoutThreshold = threshold
		s.lockoutWindow = window
	}
}

// WithTxRunner makes principal writes commit together with their compliance audit event.
func WithTxRunner(runner txcontext.Runner) Option {
	return func(s *Service) {
		s.tx = runner
	}
}

func New(principals PrincipalStore, hasher PasswordHasher, tokens TokenIssuer, opts ...Option) *Service {
	s := &Service{
		principals: principals,
		hasher:     hasher,
		tokens:     tokens,
		tx:         txcontext.Inline(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a principal. Only admins may register principals of either role.
func (s *Service) Register(ctx context.Context, actor id.Actor, req models.RegisterRequest) (*models.Principal, error) {
	if !actor.IsAdmin() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only admins can register principals")
	}
	req.ActorID = actor.ID.String()
	principal, err := s.create(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, string(audit.EventPrincipalCreated),
		"principal_id", principal.ID.String(),
		"actor_id", actor.ID.String(),
		"role", principal.Role.String(),
	)
	return principal, nil
}

// EnsureAdmin creates the bootstrap admin unless one with that username exists.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) (*models.Principal, error) {
	existing, err := s.principals.FindByUsername(ctx, id.RoleAdmin, models.NormalizeUsername(username))
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up bootstrap admin")
	}
	principal, err := s.create(ctx, models.RegisterRequest{
		Role:        id.RoleAdmin,
		Username:    username,
		Password:    password,
		DisplayName: "Bootstrap Admin",
	})
	if err != nil {
		// Another instance won the race.
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			return s.principals.FindByUsername(ctx, id.RoleAdmin, models.NormalizeUsername(username))
		}
		return nil, err
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "bootstrap admin created", "principal_id", principal.ID, "username", principal.Username)
	}
	return principal, nil
}

func (s *Service) create(ctx context.Context, req models.RegisterRequest) (*models.Principal, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeValidation) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	principal, err := models.NewPrincipal(id.PrincipalID(uuid.New()), req.Role, req.Username, req.DisplayName, hash, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.principals.Create(ctx, principal); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "username already exists")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create principal")
		}
		return s.emitCompliance(ctx, audit.EventPrincipalCreated, principal.ID.String(), req.ActorID)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementPrincipalCreated(principal.Role.String())
	return principal, nil
}

// Authenticate checks credentials and issues a session token. Unknown users,
// wrong passwords and inactive principals are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, role id.Role, username, password string) (*models.Session, error) {
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid role")
	}
	username = models.NormalizeUsername(username)
	key := lockout.Key(role, username)

	if s.isLocked(ctx, key) {
		s.metrics.IncrementLogin(role.String(), "locked")
		s.logAudit(ctx, string(audit.EventAuthFailed),
			"username", username,
			"role", role.String(),
			"reason", "locked",
		)
		return nil, dErrors.New(dErrors.CodeTooManyRequests, "too many failed login attempts, try again later")
	}

	principal, err := s.principals.FindByUsername(ctx, role, username)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load principal")
	}

	hash := ""
	if principal != nil {
		hash = principal.PasswordHash
	}
	matched := s.hasher.Verify(password, hash)
	if principal == nil || !matched || !principal.IsActive {
		s.recordFailure(ctx, role, username, key)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	now := requestcontext.Now(ctx)
	if s.lockouts != nil {
		if err := s.lockouts.Clear(ctx, key); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "failed to clear login failures", "error", err)
		}
	}
	if err := s.principals.UpdateLastLogin(ctx, principal.ID, now); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to record last login", "principal_id", principal.ID, "error", err)
	}
	principal.RecordLogin(now)

	token, expiresAt, err := s.tokens.Issue(principal.ID, principal.Role)
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementLogin(role.String(), "success")
	s.logAudit(ctx, string(audit.EventLoginSucceeded),
		"principal_id", principal.ID.String(),
		"role", role.String(),
	)
	return &models.Session{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(expiresAt.Sub(now).Seconds()),
		Principal:   principal,
	}, nil
}

// isLocked fails open when the lockout store is unreachable.
func (s *Service) isLocked(ctx context.Context, key string) bool {
	if s.lockouts == nil || s.lockoutThreshold <= 0 {
		return false
	}
	failures, err := s.lockouts.Failures(ctx, key)
	if err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "lockout store unavailable", "error", err)
		}
		return false
	}
	return failures >= s.lockoutThreshold
}

func (s *Service) recordFailure(ctx context.Context, role id.Role, username, key string) {
	s.metrics.IncrementLogin(role.String(), "invalid_credentials")
	s.logAudit(ctx, string(audit.EventAuthFailed),
		"username", username,
		"role", role.String(),
		"reason", "invalid_credentials",
	)
	if s.lockouts == nil || s.lockoutThreshold <= 0 {
		return
	}
	failures, err := s.lockouts.RecordFailure(ctx, key, s.lockoutWindow)
	if err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to record login failure", "error", err)
		}
		return
	}
	if failures == s.lockoutThreshold {
		s.metrics.IncrementLockout()
		s.logAudit(ctx, string(audit.EventAuthLockoutTriggered),
			"username", username,
			"role", role.String(),
		)
	}
}

// Deactivate soft-deletes a principal. Tokens already issued stay valid until expiry.
func (s *Service) Deactivate(ctx context.Context, actor id.Actor, principalID id.PrincipalID) (*models.Principal, error) {
	if !actor.IsAdmin() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only admins can deactivate principals")
	}
	now := requestcontext.Now(ctx)

	var updated *models.Principal
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.principals.Execute(ctx, principalID,
			(*models.Principal).CanDeactivate,
			func(p *models.Principal) { p.ApplyDeactivation(now) },
		)
		if err != nil {
			switch {
			case errors.Is(err, sentinel.ErrNotFound):
				return dErrors.New(dErrors.CodeNotFound, "principal not found")
			case dErrors.HasCode(err, dErrors.CodeInvalidState):
				return err
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate principal")
		}
		updated = p
		return s.emitCompliance(ctx, audit.EventPrincipalDeactivated, p.ID.String(), actor.ID.String())
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, string(audit.EventPrincipalDeactivated),
		"principal_id", updated.ID.String(),
		"actor_id", actor.ID.String(),
	)
	return updated, nil
}

// Get returns a principal by id.
func (s *Service) Get(ctx context.Context, principalID id.PrincipalID) (*models.Principal, error) {
	p, err := s.principals.FindByID(ctx, principalID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "principal not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load principal")
	}
	return p, nil
}

// ActiveCustomer returns the principal if it is an active customer.
func (s *Service) ActiveCustomer(ctx context.Context, principalID id.PrincipalID) (*models.Principal, error) {
	p, err := s.Get(ctx, principalID)
	if err != nil {
		return nil, err
	}
	if !p.IsCustomer() || !p.IsActive {
		return nil, dErrors.New(dErrors.CodeNotFound, "customer not found")
	}
	return p, nil
}

// emitCompliance writes the compliance record inside the caller's transaction.
// Failure aborts the operation.
func (s *Service) emitCompliance(ctx context.Context, event audit.AuditEvent, subject, actorID string) error {
	if s.auditPublisher == nil {
		return nil
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		Subject:   subject,
		Action:    string(event),
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

// logAudit writes the structured audit line and, for non-compliance events,
// forwards the event to the audit publisher.
func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, event, args...)
	}
	if s.auditPublisher == nil || audit.AuditEvent(event).Category() == audit.CategoryCompliance {
		return
	}
	_ = s.auditPublisher.Emit(ctx, audit.Event{
		Subject:   attrs.FirstOf(attributes, "principal_id", "username"),
		Action:    event,
		Reason:    attrs.ExtractString(attributes, "reason"),
		IP:        requestcontext.ClientIP(ctx),
		RequestID: requestcontext.RequestID(ctx),
		Timestamp: requestcontext.Now(ctx),
	})
}
