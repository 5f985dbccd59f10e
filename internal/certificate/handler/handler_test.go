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

	"provenant/internal/certificate/handler/mocks"
	"provenant/internal/certificate/models"
	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
	"provenant/pkg/requestcontext"
)

const certID = "GEZDGNBVGY3TQOJQGEZDGNBVGY"

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service
type HandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
	actor   id.Actor
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.actor = id.Actor{ID: id.PrincipalID(uuid.New()), Role: id.RoleAdmin}
	h := New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil)))

	s.router = chi.NewRouter()
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(requestcontext.WithPrincipal(r.Context(), s.actor.ID, s.actor.Role)))
		})
	})
	h.RegisterAdmin(s.router)
}

func (s *HandlerSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		var buf bytes.Buffer
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
		req = httptest.NewRequest(method, path, &buf)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) expectRender(c *models.Certificate, status models.Status) {
	s.service.EXPECT().ResolveEffectiveStatus(c, gomock.Any()).Return(status)
	s.service.EXPECT().QRPayload(c).Return("https://verify.example.com/verify?cert=" + c.CertificateID.String())
}

func (s *HandlerSuite) TestIssue() {
	productID := id.ProductID(uuid.New())
	expiry := "2027-01-01"

	cert := &models.Certificate{CertificateID: certID, ProductID: productID, Status: models.StatusActive, IssueDate: time.Now()}
	s.service.EXPECT().Issue(gomock.Any(), s.actor, gomock.Any()).
		DoAndReturn(func(_ any, _ id.Actor, req models.IssueRequest) (*models.Certificate, error) {
			s.Equal(productID, req.ProductID)
			s.Require().NotNil(req.ExpiryDate)
			s.Equal(2027, req.ExpiryDate.Year())
			return cert, nil
		})
	s.expectRender(cert, models.StatusActive)

	rec := s.do(http.MethodPost, "/admin/certificates", IssueRequest{ProductID: productID.String(), ExpiryDate: &expiry})
	s.Equal(http.StatusCreated, rec.Code)

	var resp CertificateResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(certID, resp.CertificateID)
	s.Contains(resp.QRPayload, "cert="+certID)
	s.NotContains(rec.Body.String(), "signature")
}

func (s *HandlerSuite) TestIssue_Conflict() {
	s.service.EXPECT().Issue(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeConflict, "product already has an active certificate"))

	rec := s.do(http.MethodPost, "/admin/certificates", IssueRequest{ProductID: uuid.NewString()})
	s.Equal(http.StatusConflict, rec.Code)
}

func (s *HandlerSuite) TestIssue_BadExpiry() {
	bad := "next tuesday"
	rec := s.do(http.MethodPost, "/admin/certificates", IssueRequest{ProductID: uuid.NewString(), ExpiryDate: &bad})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestRevoke() {
	s.Run("without body", func() {
		cert := &models.Certificate{CertificateID: certID, Status: models.StatusRevoked}
		s.service.EXPECT().Revoke(gomock.Any(), s.actor, id.CertificateID(certID), "").Return(cert, nil)
		s.expectRender(cert, models.StatusRevoked)

		rec := s.do(http.MethodPost, "/admin/certificates/"+certID+"/revoke", nil)
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("lower-case id with reason", func() {
		s.service.EXPECT().Revoke(gomock.Any(), s.actor, id.CertificateID(certID), "stolen").
			Return(nil, dErrors.New(dErrors.CodeInvalidState, "certificate is already revoked"))

		rec := s.do(http.MethodPost, "/admin/certificates/gezdgnbvgy3tqojqgezdgnbvgy/revoke", RevokeRequest{Reason: "stolen"})
		s.Equal(http.StatusConflict, rec.Code)
	})

	s.Run("malformed id", func() {
		rec := s.do(http.MethodPost, "/admin/certificates/short/revoke", nil)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestGetNotFound() {
	s.service.EXPECT().Get(gomock.Any(), id.CertificateID(certID)).
		Return(nil, dErrors.New(dErrors.CodeNotFound, "certificate not found"))
	rec := s.do(http.MethodGet, "/admin/certificates/"+certID, nil)
	s.Equal(http.StatusNotFound, rec.Code)
}
