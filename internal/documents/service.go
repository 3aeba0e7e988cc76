// Package documents is the generic pass-through to the document store used by
// kiosk firmware for queries and writes outside the dispense flow.
package documents

import (
	"context"
	"log/slog"

	"kiosk-gateway/internal/documentstore"
	"kiosk-gateway/internal/platform/metrics"
	"kiosk-gateway/pkg/requestcontext"
)

// Store is the subset of the document store client the proxy forwards to.
type Store interface {
	Query(ctx context.Context, ref documentstore.CollectionRef, filters ...documentstore.Filter) (*documentstore.DocumentList, error)
	Create(ctx context.Context, ref documentstore.CollectionRef, documentID string, data map[string]any) (documentstore.Document, error)
	Update(ctx context.Context, ref documentstore.CollectionRef, documentID string, data map[string]any) (documentstore.Document, error)
}

// ProxyService forwards requests unchanged. It applies no business rules.
type ProxyService struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*ProxyService)

func WithLogger(logger *slog.Logger) Option {
	return func(s *ProxyService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *ProxyService) {
		s.metrics = m
	}
}

func NewService(store Store, opts ...Option) *ProxyService {
	s := &ProxyService{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Query lists documents, passing each caller query through as a filter.
func (s *ProxyService) Query(ctx context.Context, ref documentstore.CollectionRef, queries []string) (*documentstore.DocumentList, error) {
	filters := make([]documentstore.Filter, 0, len(queries))
	for _, q := range queries {
		filters = append(filters, documentstore.Raw(q))
	}
	list, err := s.store.Query(ctx, ref, filters...)
	s.observe(ctx, documentstore.OpQuery, ref, err)
	if err == nil {
		s.logger.InfoContext(ctx, "document query succeeded",
			"request_id", requestcontext.RequestID(ctx),
			"collection", ref.Collection,
			"total", list.Total,
		)
	}
	return list, err
}

// Create inserts a document. An empty documentID requests a generated id.
func (s *ProxyService) Create(ctx context.Context, ref documentstore.CollectionRef, documentID string, data map[string]any) (documentstore.Document, error) {
	if documentID == "" {
		documentID = documentstore.UniqueID
	}
	doc, err := s.store.Create(ctx, ref, documentID, data)
	s.observe(ctx, documentstore.OpCreate, ref, err)
	if err == nil {
		s.logger.InfoContext(ctx, "document created",
			"request_id", requestcontext.RequestID(ctx),
			"collection", ref.Collection,
			"document_id", doc["$id"],
		)
	}
	return doc, err
}

// Update patches an existing document.
func (s *ProxyService) Update(ctx context.Context, ref documentstore.CollectionRef, documentID string, data map[string]any) (documentstore.Document, error) {
	doc, err := s.store.Update(ctx, ref, documentID, data)
	s.observe(ctx, documentstore.OpUpdate, ref, err)
	if err == nil {
		s.logger.InfoContext(ctx, "document updated",
			"request_id", requestcontext.RequestID(ctx),
			"collection", ref.Collection,
			"document_id", documentID,
		)
	}
	return doc, err
}

func (s *ProxyService) observe(ctx context.Context, op string, ref documentstore.CollectionRef, err error) {
	s.metrics.RecordProxy(op, err == nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "document proxy request failed",
			"request_id", requestcontext.RequestID(ctx),
			"op", op,
			"collection", ref.Collection,
			"error", err,
		)
	}
}
