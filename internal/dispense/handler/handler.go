package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"kiosk-gateway/internal/dispense/models"
	"kiosk-gateway/pkg/domain"
	dErrors "kiosk-gateway/pkg/domain-errors"
	"kiosk-gateway/pkg/platform/httputil"
	"kiosk-gateway/pkg/platform/privacy"
	"kiosk-gateway/pkg/requestcontext"
)

const (
	responseType    = "dispense_response"
	serverErrorType = "server_error"

	msgNoJSON        = "No JSON data provided"
	msgMissingFields = "Missing required fields: kiosk_id, user_id (phone_number), pin"
	msgKioskMismatch = "kiosk_id does not match kiosk credentials"
	msgFieldType     = "Invalid type for %s: expected %s"
)

// Service defines the verification operation used by the handler.
type Service interface {
	Verify(ctx context.Context, req models.DispenseRequest) (*models.Decision, error)
}

// Handler serves kiosk dispense verification.
type Handler struct {
	service Service
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a new dispense handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
		now:     time.Now,
	}
}

// Register mounts the handler routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/dispense-verification", h.HandleDispenseVerification)
}

// DispenseRequest is the kiosk request body. user_id carries the claimed
// phone number.
type DispenseRequest struct {
	KioskID   string `json:"kiosk_id"`
	UserID    string `json:"user_id"`
	PIN       string `json:"pin"`
	VolumeML  any    `json:"volume_ml"`
	Timestamp any    `json:"timestamp,omitempty"`
}

// Validate requires kiosk id, phone and PIN.
func (r *DispenseRequest) Validate() error {
	if r.KioskID == "" || r.UserID == "" || r.PIN == "" {
		return dErrors.New(dErrors.CodeValidation, msgMissingFields)
	}
	return nil
}

// DispenseResponse is returned for every decided request, approved or not.
type DispenseResponse struct {
	Type      string               `json:"type"`
	UserID    string               `json:"user_id"`
	PIN       string               `json:"pin"`
	VolumeML  any                  `json:"volume_ml"`
	Approved  bool                 `json:"approved"`
	Reason    string               `json:"reason"`
	Timestamp string               `json:"timestamp"`
	KioskID   string               `json:"kiosk_id"`
	UserData  *models.CustomerView `json:"user_data,omitempty"`
}

// ErrorResponse is returned when no decision could be made.
type ErrorResponse struct {
	Type      string `json:"type,omitempty"`
	Error     string `json:"error"`
	Approved  bool   `json:"approved"`
	Reason    string `json:"reason"`
	Timestamp string `json:"timestamp,omitempty"`
}

// HandleDispenseVerification handles POST /dispense-verification requests.
func (h *Handler) HandleDispenseVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, err := httputil.Decode[DispenseRequest](r)
	if err != nil {
		message := msgMissingFields
		if req == nil {
			message = decodeMessage(err)
		}
		h.logger.WarnContext(ctx, "invalid dispense request",
			"request_id", requestID,
			"error", err,
		)
		h.writeInvalid(w, http.StatusBadRequest, message)
		return
	}

	if authKiosk := requestcontext.KioskID(ctx); authKiosk != "" && authKiosk != req.KioskID {
		h.logger.WarnContext(ctx, "kiosk id does not match credentials",
			"request_id", requestID,
			"kiosk_id", req.KioskID,
			"authenticated_kiosk_id", authKiosk,
		)
		h.writeInvalid(w, http.StatusForbidden, msgKioskMismatch)
		return
	}

	// Validate already rejected empty fields, so parsing cannot fail here.
	kioskID, _ := domain.ParseKioskID(req.KioskID)
	phone, _ := domain.ParsePhoneNumber(req.UserID)
	pin, _ := domain.ParsePIN(req.PIN)

	decision, err := h.verify(ctx, models.DispenseRequest{
		KioskID:  kioskID,
		Phone:    phone,
		PIN:      pin,
		VolumeML: req.VolumeML,
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvalidInput) {
			h.writeInvalid(w, http.StatusBadRequest, msgMissingFields)
			return
		}
		h.logger.ErrorContext(ctx, "dispense verification failed",
			"request_id", requestID,
			"kiosk_id", req.KioskID,
			"phone", privacy.MaskPhone(req.UserID),
			"error", err,
		)
		httputil.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
			Type:      serverErrorType,
			Error:     err.Error(),
			Approved:  false,
			Reason:    models.ReasonServerError,
			Timestamp: h.timestamp(),
		})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, DispenseResponse{
		Type:      responseType,
		UserID:    req.UserID,
		PIN:       req.PIN,
		VolumeML:  req.VolumeML,
		Approved:  decision.Approved,
		Reason:    decision.Reason,
		Timestamp: h.timestamp(),
		KioskID:   req.KioskID,
		UserData:  decision.Customer,
	})
}

// verify turns a panic inside the decision into an error so the kiosk still
// receives a server_error envelope.
func (h *Handler) verify(ctx context.Context, req models.DispenseRequest) (decision *models.Decision, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic during verification: %v", rec)
		}
	}()
	decision, err = h.service.Verify(ctx, req)
	if err == nil && decision == nil {
		err = fmt.Errorf("verification returned no decision")
	}
	return decision, err
}

func (h *Handler) writeInvalid(w http.ResponseWriter, status int, message string) {
	httputil.WriteJSON(w, status, ErrorResponse{
		Error:    message,
		Approved: false,
		Reason:   models.ReasonInvalidRequest,
	})
}

// timestamp is the response time, taken when the envelope is written.
func (h *Handler) timestamp() string {
	return h.now().UTC().Format(time.RFC3339)
}

// decodeMessage names the offending field when the body is JSON of the
// wrong shape, e.g. a numeric pin.
func decodeMessage(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return fmt.Sprintf(msgFieldType, typeErr.Field, typeErr.Type.String())
	}
	return msgNoJSON
}
