package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"kiosk-gateway/internal/dispense/handler/mocks"
	"kiosk-gateway/internal/dispense/models"
	"kiosk-gateway/pkg/domain"
	dErrors "kiosk-gateway/pkg/domain-errors"
	"kiosk-gateway/pkg/requestcontext"
)

type HandlerSuite struct {
	suite.Suite
	router      http.Handler
	ctrl        *gomock.Controller
	mockService *mocks.MockService
	kioskID     string
	respondedAt time.Time
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockService = mocks.NewMockService(s.ctrl)
	s.kioskID = ""
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	h := New(s.mockService, logger)
	s.respondedAt = time.Date(2026, 3, 1, 9, 30, 25, 0, time.UTC)
	h.now = func() time.Time { return s.respondedAt }

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithRequestID(r.Context(), "req-1")
			if s.kioskID != "" {
				ctx = requestcontext.WithKioskID(ctx, s.kioskID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	h.Register(r)
	s.router = r
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) post(body string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(http.MethodPost, "/dispense-verification", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)

	var out map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &out))
	return rec, out
}

const validBody = `{"kiosk_id":"K1","user_id":"+254712345678","pin":"4455","volume_ml":500}`

func (s *HandlerSuite) TestApprovedDecision() {
	decidedAt := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	s.mockService.EXPECT().
		Verify(gomock.Any(), models.DispenseRequest{
			KioskID:  domain.KioskID("K1"),
			Phone:    domain.PhoneNumber("+254712345678"),
			PIN:      domain.PIN("4455"),
			VolumeML: 500.0,
		}).
		Return(&models.Decision{
			Approved:  true,
			Reason:    models.ReasonVerified,
			DecidedAt: decidedAt,
			Customer: &models.CustomerView{
				PhoneNumber: "+254712345678",
				AccountID:   "ACC-1",
				FullName:    "Wanjiru Kamau",
				Active:      true,
				Credits:     0,
			},
		}, nil)

	rec, out := s.post(validBody)

	s.Equal(http.StatusOK, rec.Code)
	s.Equal("dispense_response", out["type"])
	s.Equal("K1", out["kiosk_id"])
	s.Equal("+254712345678", out["user_id"])
	s.Equal("4455", out["pin"])
	s.Equal(500.0, out["volume_ml"])
	s.Equal(true, out["approved"])
	s.Equal(models.ReasonVerified, out["reason"])
	s.Equal("2026-03-01T09:30:25Z", out["timestamp"], "timestamp is the response time, not the decision time")

	userData, ok := out["user_data"].(map[string]any)
	s.Require().True(ok)
	s.Equal("ACC-1", userData["account_id"])
	s.NotContains(userData, "pin")
}

func (s *HandlerSuite) TestDeniedDecisionOmitsUserData() {
	s.mockService.EXPECT().
		Verify(gomock.Any(), gomock.Any()).
		Return(&models.Decision{Reason: models.ReasonInvalidPIN, DecidedAt: time.Now()}, nil)

	rec, out := s.post(validBody)

	s.Equal(http.StatusOK, rec.Code)
	s.Equal(false, out["approved"])
	s.Equal(models.ReasonInvalidPIN, out["reason"])
	s.NotContains(out, "user_data")
}

func (s *HandlerSuite) TestInvalidRequests() {
	cases := []struct {
		name    string
		body    string
		message string
	}{
		{"missing pin", `{"kiosk_id":"K1","user_id":"+254712345678","volume_ml":500}`, msgMissingFields},
		{"missing kiosk id", `{"user_id":"+254712345678","pin":"4455"}`, msgMissingFields},
		{"empty phone", `{"kiosk_id":"K1","user_id":"","pin":"4455"}`, msgMissingFields},
		{"not json", `not json`, msgNoJSON},
		{"empty body", ``, msgNoJSON},
		{"numeric pin", `{"kiosk_id":"K1","user_id":"+254712345678","pin":4455}`, "Invalid type for pin: expected string"},
		{"numeric phone", `{"kiosk_id":"K1","user_id":254712345678,"pin":"4455"}`, "Invalid type for user_id: expected string"},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			rec, out := s.post(tc.body)

			s.Equal(http.StatusBadRequest, rec.Code)
			s.Equal(false, out["approved"])
			s.Equal(models.ReasonInvalidRequest, out["reason"])
			s.Equal(tc.message, out["error"])
		})
	}
}

func (s *HandlerSuite) TestServiceErrorIsServerError() {
	s.mockService.EXPECT().
		Verify(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("unexpected"))

	rec, out := s.post(validBody)

	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Equal("server_error", out["type"])
	s.Equal(false, out["approved"])
	s.Equal(models.ReasonServerError, out["reason"])
	s.Equal("unexpected", out["error"])
	s.NotEmpty(out["timestamp"])
}

func (s *HandlerSuite) TestPanicIsServerError() {
	s.mockService.EXPECT().
		Verify(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, models.DispenseRequest) (*models.Decision, error) {
			panic("nil record")
		})

	rec, out := s.post(validBody)

	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Equal("server_error", out["type"])
	s.Equal(models.ReasonServerError, out["reason"])
}

func (s *HandlerSuite) TestInvalidInputFromService() {
	s.mockService.EXPECT().
		Verify(gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeInvalidInput, "pin required"))

	rec, out := s.post(validBody)

	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal(models.ReasonInvalidRequest, out["reason"])
}

func (s *HandlerSuite) TestAuthenticatedKiosk() {
	s.Run("matching kiosk id is accepted", func() {
		s.kioskID = "K1"
		s.mockService.EXPECT().
			Verify(gomock.Any(), gomock.Any()).
			Return(&models.Decision{Reason: models.ReasonNotFound}, nil)

		rec, _ := s.post(validBody)
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("mismatched kiosk id is rejected without lookup", func() {
		s.kioskID = "K2"

		rec, out := s.post(validBody)
		s.Equal(http.StatusForbidden, rec.Code)
		s.Equal(msgKioskMismatch, out["error"])
		s.Equal(false, out["approved"])
	})
}
