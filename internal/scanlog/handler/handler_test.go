package handler

import (
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

	"provenant/internal/scanlog/handler/mocks"
	"provenant/internal/scanlog/models"
	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
	"provenant/pkg/requestcontext"
)

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
	s.actor = id.Actor{ID: id.PrincipalID(uuid.New()), Role: id.RoleCustomer}
	h := New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil)))

	s.router = chi.NewRouter()
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(requestcontext.WithPrincipal(r.Context(), s.actor.ID, s.actor.Role)))
		})
	})
	h.RegisterCustomer(s.router)
	h.RegisterAdmin(s.router)
}

func (s *HandlerSuite) get(path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func (s *HandlerSuite) TestListMine() {
	cid := id.CertificateID("GEZDGNBVGY3TQOJQGEZDGNBVGY")
	scan := &models.ScanLog{
		ID:            id.ScanID(uuid.New()),
		CertificateID: &cid,
		Identifier:    cid.String(),
		Outcome:       models.OutcomeValid,
		IsValid:       true,
		ScannedAt:     time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
		Device:        models.Device{Browser: "Firefox", OS: "Linux x86_64"},
	}

	s.service.EXPECT().QueryForCustomer(gomock.Any(), s.actor, s.actor.ID, gomock.Any()).
		DoAndReturn(func(_ any, _ id.Actor, _ id.PrincipalID, f models.Filter) ([]*models.ScanLog, error) {
			s.Equal(models.DefaultLimit, f.Limit)
			s.ElementsMatch([]models.Outcome{models.OutcomeValid, models.OutcomeExpired}, f.Outcomes)
			s.Equal(models.ValidityValid, f.Validity)
			s.Require().NotNil(f.Since)
			return []*models.ScanLog{scan}, nil
		})

	rec := s.get("/me/scans?outcome=valid,EXPIRED&outcome=valid&valid=true&since=2026-01-01T00:00:00Z")
	s.Equal(http.StatusOK, rec.Code)

	var resp ScanListResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Require().Len(resp.Scans, 1)
	s.Equal("Firefox on Linux x86_64", resp.Scans[0].Device)
	s.Require().NotNil(resp.Scans[0].CertificateID)
	s.Equal(cid.String(), *resp.Scans[0].CertificateID)
}

func (s *HandlerSuite) TestListMine_BadParams() {
	for _, path := range []string{
		"/me/scans?outcome=maybe",
		"/me/scans?valid=sometimes",
		"/me/scans?since=yesterday",
		"/me/scans?limit=-3",
		"/me/scans?certificate_id=short",
	} {
		rec := s.get(path)
		s.Equal(http.StatusBadRequest, rec.Code, path)
	}
}

func (s *HandlerSuite) TestListMine_ForeignCertificate() {
	s.service.EXPECT().QueryForCustomer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeNotFound, "certificate not found"))

	rec := s.get("/me/scans?certificate_id=GEZDGNBVGY3TQOJQGEZDGNBVGY")
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerSuite) TestSummaryMine() {
	summary := models.NewSummary()
	summary.Add(models.OutcomeValid, 4)
	summary.Add(models.OutcomeTampered, 1)
	s.service.EXPECT().SummaryForCustomer(gomock.Any(), s.actor, s.actor.ID, (*time.Time)(nil)).Return(summary, nil)

	rec := s.get("/me/scans/summary")
	s.Equal(http.StatusOK, rec.Code)

	var resp SummaryResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(int64(5), resp.Total)
	s.Equal(int64(1), resp.ByOutcome["tampered"])
	s.Equal(int64(0), resp.ByOutcome["revoked"])
}

func (s *HandlerSuite) TestAdminListForCustomer() {
	customerID := id.PrincipalID(uuid.New())
	s.service.EXPECT().QueryForCustomer(gomock.Any(), gomock.Any(), customerID, gomock.Any()).
		Return([]*models.ScanLog{}, nil)

	rec := s.get("/admin/customers/" + customerID.String() + "/scans?limit=900")
	s.Equal(http.StatusOK, rec.Code)

	var resp ScanListResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(models.MaxLimit, resp.Limit)
	s.Empty(resp.Scans)

	rec = s.get("/admin/customers/not-a-uuid/scans")
	s.Equal(http.StatusBadRequest, rec.Code)
}
