package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"provenant/internal/identity/lockout"
	"provenant/internal/identity/models"
	"provenant/internal/identity/secrets"
	"provenant/internal/identity/store/principal"
	"provenant/internal/identity/token"
	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
	audit "provenant/pkg/platform/audit"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []audit.Event
	err    error
}

func (p *recordingPublisher) Emit(_ context.Context, event audit.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Action)
	}
	return out
}

type ServiceSuite struct {
	suite.Suite
	ctx       context.Context
	store     *principal.InMemory
	lockouts  *lockout.InMemory
	tokens    *token.Service
	publisher *recordingPublisher
	service   *Service
	admin     id.Actor
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = principal.NewInMemory()
	s.lockouts = lockout.NewInMemory()
	s.tokens = token.New("service-test-signing-key-0123456789", "provenant", "provenant-api", 15*time.Minute)
	s.publisher = &recordingPublisher{}
	hasher, err := secrets.NewHasher(bcrypt.MinCost)
	s.Require().NoError(err)
	s.service = New(s.store, hasher, s.tokens,
		WithAuditPublisher(s.publisher),
		WithLockout(s.lockouts, 3, 15*time.Minute),
	)

	root, err := s.service.EnsureAdmin(s.ctx, "root", "bootstrap-password")
	s.Require().NoError(err)
	s.admin = id.Actor{ID: root.ID, Role: id.RoleAdmin}
}

func (s *ServiceSuite) register(role id.Role, username string) *models.Principal {
	p, err := s.service.Register(s.ctx, s.admin, models.RegisterRequest{
		Role:     role,
		Username: username,
		Password: "customer-password",
	})
	s.Require().NoError(err)
	return p
}

func (s *ServiceSuite) TestEnsureAdminIsIdempotent() {
	again, err := s.service.EnsureAdmin(s.ctx, "ROOT", "different-password")
	s.Require().NoError(err)
	s.Equal(s.admin.ID, again.ID)

	count, err := s.store.CountByRole(s.ctx, id.RoleAdmin)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *ServiceSuite) TestRegister() {
	s.Run("admin registers customer", func() {
		p := s.register(id.RoleCustomer, "Acme")
		s.Equal("acme", p.Username)
		s.Contains(s.publisher.actions(), string(audit.EventPrincipalCreated))
	})

	s.Run("duplicate username in role conflicts", func() {
		_, err := s.service.Register(s.ctx, s.admin, models.RegisterRequest{
			Role: id.RoleCustomer, Username: "acme", Password: "customer-password",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("same username as admin is allowed", func() {
		s.register(id.RoleAdmin, "acme")
	})

	s.Run("customer cannot register", func() {
		_, err := s.service.Register(s.ctx, id.Actor{ID: id.PrincipalID(uuid.New()), Role: id.RoleCustomer}, models.RegisterRequest{
			Role: id.RoleCustomer, Username: "other", Password: "customer-password",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("short password rejected", func() {
		_, err := s.service.Register(s.ctx, s.admin, models.RegisterRequest{
			Role: id.RoleCustomer, Username: "shorty", Password: "short",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("bad username rejected as validation", func() {
		_, err := s.service.Register(s.ctx, s.admin, models.RegisterRequest{
			Role: id.RoleCustomer, Username: "has space", Password: "customer-password",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestRegister_ComplianceFailureFailsOperation() {
	s.publisher.err = errors.New("audit store down")
	_, err := s.service.Register(s.ctx, s.admin, models.RegisterRequest{
		Role: id.RoleCustomer, Username: "acme", Password: "customer-password",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *ServiceSuite) TestAuthenticate() {
	customer := s.register(id.RoleCustomer, "acme")

	s.Run("valid credentials issue a customer token", func() {
		session, err := s.service.Authenticate(s.ctx, id.RoleCustomer, "ACME", "customer-password")
		s.Require().NoError(err)
		s.Equal("Bearer", session.TokenType)
		s.InDelta(900, session.ExpiresIn, 5)

		claims, err := s.tokens.Authorize(session.AccessToken, id.RoleCustomer)
		s.Require().NoError(err)
		s.Equal(customer.ID, claims.ID)

		stored, err := s.store.FindByID(s.ctx, customer.ID)
		s.Require().NoError(err)
		s.NotNil(stored.LastLogin)
	})

	s.Run("wrong role namespace fails", func() {
		_, err := s.service.Authenticate(s.ctx, id.RoleAdmin, "acme", "customer-password")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unknown user fails like wrong password", func() {
		_, errUnknown := s.service.Authenticate(s.ctx, id.RoleCustomer, "ghost", "customer-password")
		_, errWrong := s.service.Authenticate(s.ctx, id.RoleCustomer, "acme", "wrong-password")
		s.Equal(errUnknown.Error(), errWrong.Error())
	})
}

func (s *ServiceSuite) TestAuthenticate_InactivePrincipal() {
	customer := s.register(id.RoleCustomer, "acme")
	_, err := s.service.Deactivate(s.ctx, s.admin, customer.ID)
	s.Require().NoError(err)

	_, err = s.service.Authenticate(s.ctx, id.RoleCustomer, "acme", "customer-password")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestAuthenticate_Lockout() {
	s.register(id.RoleCustomer, "acme")

	for range 3 {
		_, err := s.service.Authenticate(s.ctx, id.RoleCustomer, "acme", "wrong-password")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	}
	s.Contains(s.publisher.actions(), string(audit.EventAuthLockoutTriggered))

	_, err := s.service.Authenticate(s.ctx, id.RoleCustomer, "acme", "customer-password")
	s.True(dErrors.HasCode(err, dErrors.CodeTooManyRequests), "locked even with correct password")

	s.Require().NoError(s.lockouts.Clear(s.ctx, lockout.Key(id.RoleCustomer, "acme")))
	_, err = s.service.Authenticate(s.ctx, id.RoleCustomer, "acme", "customer-password")
	s.NoError(err)
}

func (s *ServiceSuite) TestDeactivate() {
	customer := s.register(id.RoleCustomer, "acme")

	updated, err := s.service.Deactivate(s.ctx, s.admin, customer.ID)
	s.Require().NoError(err)
	s.False(updated.IsActive)
	s.Contains(s.publisher.actions(), string(audit.EventPrincipalDeactivated))

	_, err = s.service.Deactivate(s.ctx, s.admin, customer.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

	_, err = s.service.Deactivate(s.ctx, s.admin, id.PrincipalID(uuid.New()))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.service.ActiveCustomer(s.ctx, customer.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
