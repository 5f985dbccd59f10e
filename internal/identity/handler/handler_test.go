package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"provenant/internal/identity/handler/mocks"
	"provenant/internal/identity/models"
	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
	"provenant/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service
type HandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
	admin   id.Actor
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	h := New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.admin = id.Actor{ID: id.PrincipalID(uuid.New()), Role: id.RoleAdmin}

	s.router = chi.NewRouter()
	h.RegisterPublic(s.router)
	s.router.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctx := requestcontext.WithPrincipal(r.Context(), s.admin.ID, s.admin.Role)
				next.ServeHTTP(w, r.WithContext(ctx))
			})
		})
		h.RegisterAdmin(r)
	})
}

func (s *HandlerSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) TestLogin() {
	s.Run("returns bearer token", func() {
		s.service.EXPECT().Authenticate(gomock.Any(), id.RoleCustomer, "acme", "customer-password").
			Return(&models.Session{
				AccessToken: "signed.jwt.token",
				TokenType:   "Bearer",
				ExpiresIn:   900,
				Principal:   &models.Principal{ID: id.PrincipalID(uuid.New()), Role: id.RoleCustomer},
			}, nil)

		rec := s.do(http.MethodPost, "/auth/customer/login", LoginRequest{Username: " acme ", Password: "customer-password"})
		s.Equal(http.StatusOK, rec.Code)

		var resp LoginResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		s.Equal("signed.jwt.token", resp.AccessToken)
		s.Equal(900, resp.ExpiresIn)
	})

	s.Run("invalid credentials map to 401", func() {
		s.service.EXPECT().Authenticate(gomock.Any(), id.RoleAdmin, "root", "nope").
			Return(nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials"))

		rec := s.do(http.MethodPost, "/auth/admin/login", LoginRequest{Username: "root", Password: "nope"})
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("missing fields never reach the service", func() {
		rec := s.do(http.MethodPost, "/auth/admin/login", LoginRequest{Username: "root"})
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestRegisterCustomer() {
	created := &models.Principal{
		ID:        id.PrincipalID(uuid.New()),
		Role:      id.RoleCustomer,
		Username:  "acme",
		IsActive:  true,
		CreatedAt: time.Now(),
	}
	s.service.EXPECT().Register(gomock.Any(), s.admin, models.RegisterRequest{
		Role:     id.RoleCustomer,
		Username: "acme",
		Password: "customer-password",
	}).Return(created, nil)

	rec := s.do(http.MethodPost, "/admin/customers", RegisterPrincipalRequest{Username: "acme", Password: "customer-password"})
	s.Equal(http.StatusCreated, rec.Code)

	var resp PrincipalResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(created.ID.String(), resp.ID)
	s.Equal("customer", resp.Role)
	s.NotContains(rec.Body.String(), "password")
}

func (s *HandlerSuite) TestDeactivate() {
	s.Run("invalid id", func() {
		rec := s.do(http.MethodPost, "/admin/principals/not-a-uuid/deactivate", nil)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("already inactive", func() {
		pid := id.PrincipalID(uuid.New())
		s.service.EXPECT().Deactivate(gomock.Any(), s.admin, pid).
			Return(nil, dErrors.New(dErrors.CodeInvalidState, "principal is already inactive"))

		rec := s.do(http.MethodPost, "/admin/principals/"+pid.String()+"/deactivate", nil)
		s.Equal(http.StatusConflict, rec.Code)
	})
}

