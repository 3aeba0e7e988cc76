// Package status serves the gateway status page and the database
// connectivity check used by field technicians.
package status

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"kiosk-gateway/internal/documentstore"
	"kiosk-gateway/pkg/platform/httputil"
	"kiosk-gateway/pkg/requestcontext"
)

const (
	StatusActive    = "Water Kiosk Hardware Server Active"
	StatusDBSuccess = "DATABASE_SUCCESS"
	StatusDBError   = "DATABASE_ERROR"
)

// CollectionLister lists the collections of the configured database.
type CollectionLister interface {
	ListCollections(ctx context.Context) (*documentstore.CollectionList, error)
}

// Handler serves GET / and POST /test-database.
type Handler struct {
	lister CollectionLister
	logger *slog.Logger
}

func New(lister CollectionLister, logger *slog.Logger) *Handler {
	return &Handler{lister: lister, logger: logger}
}

// Register mounts the handler routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.HandleStatus)
	r.Post("/test-database", h.HandleTestDatabase)
}

// PageResponse describes the running gateway.
type PageResponse struct {
	Status    string            `json:"status"`
	Message   string            `json:"message"`
	Timestamp string            `json:"timestamp"`
	Features  []string          `json:"features"`
	Endpoints map[string]string `json:"endpoints"`
}

// DatabaseTestResponse is a successful connectivity check.
type DatabaseTestResponse struct {
	Status           string   `json:"status"`
	Message          string   `json:"message"`
	CollectionsFound int      `json:"collections_found"`
	CollectionNames  []string `json:"collection_names"`
	Timestamp        string   `json:"timestamp"`
}

// DatabaseErrorResponse is a failed connectivity check.
type DatabaseErrorResponse struct {
	Status    string `json:"status"`
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

// HandleStatus handles GET / requests.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, PageResponse{
		Status:    StatusActive,
		Message:   "Kiosk gateway for hardware verification and database access",
		Timestamp: timestamp(r.Context()),
		Features:  []string{"dispense_verification", "database_query", "database_create", "database_update"},
		Endpoints: map[string]string{
			"status":                "GET / - This status page",
			"dispense_verification": "POST /dispense-verification - Verify user for water dispensing",
			"database_query":        "POST /database/query - Query database documents",
			"database_create":       "POST /database/create - Create database documents",
			"database_update":       "POST /database/update - Update database documents",
			"test_database":         "POST /test-database - Test database connection",
		},
	})
}

// HandleTestDatabase handles POST /test-database requests.
func (h *Handler) HandleTestDatabase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	list, err := h.lister.ListCollections(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "database test failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteJSON(w, http.StatusInternalServerError, DatabaseErrorResponse{
			Status:    StatusDBError,
			Error:     err.Error(),
			Timestamp: timestamp(ctx),
		})
		return
	}

	h.logger.InfoContext(ctx, "database connected",
		"request_id", requestcontext.RequestID(ctx),
		"collections", list.Total,
	)
	httputil.WriteJSON(w, http.StatusOK, DatabaseTestResponse{
		Status:           StatusDBSuccess,
		Message:          "Database connection working via HTTP!",
		CollectionsFound: list.Total,
		CollectionNames:  list.Names,
		Timestamp:        timestamp(ctx),
	})
}

func timestamp(ctx context.Context) string {
	return requestcontext.Now(ctx).UTC().Format(time.RFC3339)
}
