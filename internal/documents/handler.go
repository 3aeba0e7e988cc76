package documents

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"kiosk-gateway/internal/documentstore"
	dErrors "kiosk-gateway/pkg/domain-errors"
	"kiosk-gateway/pkg/platform/httputil"
	"kiosk-gateway/pkg/requestcontext"
)

// Envelope types.
const (
	TypeQueryResponse  = "query_response"
	TypeCreateResponse = "create_response"
	TypeUpdateResponse = "update_response"
)

const (
	msgQueryRequired  = "Collection ID is required"
	msgCreateRequired = "Collection ID and document_data are required"
	msgUpdateRequired = "Collection ID, document_id, and document_data are required"
)

// Service defines the proxy operations used by the handler.
type Service interface {
	Query(ctx context.Context, ref documentstore.CollectionRef, queries []string) (*documentstore.DocumentList, error)
	Create(ctx context.Context, ref documentstore.CollectionRef, documentID string, data map[string]any) (documentstore.Document, error)
	Update(ctx context.Context, ref documentstore.CollectionRef, documentID string, data map[string]any) (documentstore.Document, error)
}

// Handler serves the /database/* proxy routes.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// NewHandler creates a new proxy handler.
func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the handler routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/database/query", h.HandleQuery)
	r.Post("/database/create", h.HandleCreate)
	r.Post("/database/update", h.HandleUpdate)
}

// QueryRequest lists documents in a collection.
type QueryRequest struct {
	Database   string   `json:"database"`
	Collection string   `json:"collection"`
	Queries    []string `json:"queries"`
	RequestID  any      `json:"request_id"`
}

func (r *QueryRequest) Validate() error {
	if r.Collection == "" {
		return dErrors.New(dErrors.CodeValidation, msgQueryRequired)
	}
	return nil
}

// CreateRequest inserts a document. document_id defaults to a generated id.
type CreateRequest struct {
	Database     string         `json:"database"`
	Collection   string         `json:"collection"`
	DocumentID   string         `json:"document_id"`
	DocumentData map[string]any `json:"document_data"`
	RequestID    any            `json:"request_id"`
}

func (r *CreateRequest) Normalize() {
	if r.DocumentID == "" {
		r.DocumentID = documentstore.UniqueID
	}
}

func (r *CreateRequest) Validate() error {
	if r.Collection == "" || len(r.DocumentData) == 0 {
		return dErrors.New(dErrors.CodeValidation, msgCreateRequired)
	}
	return nil
}

// UpdateRequest patches an existing document.
type UpdateRequest struct {
	Database     string         `json:"database"`
	Collection   string         `json:"collection"`
	DocumentID   string         `json:"document_id"`
	DocumentData map[string]any `json:"document_data"`
	RequestID    any            `json:"request_id"`
}

func (r *UpdateRequest) Validate() error {
	if r.Collection == "" || r.DocumentID == "" || len(r.DocumentData) == 0 {
		return dErrors.New(dErrors.CodeValidation, msgUpdateRequired)
	}
	return nil
}

// Envelope is the uniform proxy response. request_id is echoed as sent.
type Envelope struct {
	Type      string `json:"type"`
	RequestID any    `json:"request_id"`
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Total     *int   `json:"total,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

// HandleQuery handles POST /database/query requests.
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, err := httputil.Decode[QueryRequest](r)
	if err != nil {
		var requestID any
		if req != nil {
			requestID = req.RequestID
		}
		h.writeInvalid(ctx, w, TypeQueryResponse, requestID, err)
		return
	}

	list, err := h.service.Query(ctx, ref(req.Database, req.Collection), req.Queries)
	if err != nil {
		h.writeFailure(ctx, w, TypeQueryResponse, req.RequestID, err)
		return
	}

	total := list.Total
	httputil.WriteJSON(w, http.StatusOK, Envelope{
		Type:      TypeQueryResponse,
		RequestID: req.RequestID,
		Success:   true,
		Data:      list,
		Total:     &total,
		Timestamp: timestamp(ctx),
	})
}

// HandleCreate handles POST /database/create requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, err := httputil.Decode[CreateRequest](r)
	if err != nil {
		var requestID any
		if req != nil {
			requestID = req.RequestID
		}
		h.writeInvalid(ctx, w, TypeCreateResponse, requestID, err)
		return
	}

	doc, err := h.service.Create(ctx, ref(req.Database, req.Collection), req.DocumentID, req.DocumentData)
	if err != nil {
		h.writeFailure(ctx, w, TypeCreateResponse, req.RequestID, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, Envelope{
		Type:      TypeCreateResponse,
		RequestID: req.RequestID,
		Success:   true,
		Data:      doc,
		Timestamp: timestamp(ctx),
	})
}

// HandleUpdate handles POST /database/update requests.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, err := httputil.Decode[UpdateRequest](r)
	if err != nil {
		var requestID any
		if req != nil {
			requestID = req.RequestID
		}
		h.writeInvalid(ctx, w, TypeUpdateResponse, requestID, err)
		return
	}

	doc, err := h.service.Update(ctx, ref(req.Database, req.Collection), req.DocumentID, req.DocumentData)
	if err != nil {
		h.writeFailure(ctx, w, TypeUpdateResponse, req.RequestID, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, Envelope{
		Type:      TypeUpdateResponse,
		RequestID: req.RequestID,
		Success:   true,
		Data:      doc,
		Timestamp: timestamp(ctx),
	})
}

func (h *Handler) writeInvalid(ctx context.Context, w http.ResponseWriter, typ string, requestID any, err error) {
	h.logger.WarnContext(ctx, "invalid proxy request",
		"request_id", requestcontext.RequestID(ctx),
		"type", typ,
		"error", err,
	)
	httputil.WriteJSON(w, http.StatusBadRequest, Envelope{
		Type:      typ,
		RequestID: requestID,
		Success:   false,
		Error:     err.Error(),
		Timestamp: timestamp(ctx),
	})
}

// writeFailure reports backend and unexpected errors as 500 with the error
// text, which for backend errors carries the backend's message.
func (h *Handler) writeFailure(ctx context.Context, w http.ResponseWriter, typ string, requestID any, err error) {
	httputil.WriteJSON(w, http.StatusInternalServerError, Envelope{
		Type:      typ,
		RequestID: requestID,
		Success:   false,
		Error:     err.Error(),
		Timestamp: timestamp(ctx),
	})
}

func ref(database, collection string) documentstore.CollectionRef {
	return documentstore.CollectionRef{Database: database, Collection: collection}
}

func timestamp(ctx context.Context) string {
	return requestcontext.Now(ctx).UTC().Format(time.RFC3339)
}
