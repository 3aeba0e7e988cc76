package documents

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiosk-gateway/internal/documentstore"
	"kiosk-gateway/internal/platform/metrics"
)

type stubStore struct {
	filters   []documentstore.Filter
	createdID string
	err       error
}

func (s *stubStore) Query(_ context.Context, _ documentstore.CollectionRef, filters ...documentstore.Filter) (*documentstore.DocumentList, error) {
	s.filters = filters
	if s.err != nil {
		return nil, s.err
	}
	return &documentstore.DocumentList{Total: 0, Documents: []documentstore.Document{}}, nil
}

func (s *stubStore) Create(_ context.Context, _ documentstore.CollectionRef, documentID string, _ map[string]any) (documentstore.Document, error) {
	s.createdID = documentID
	if s.err != nil {
		return nil, s.err
	}
	return documentstore.Document{"$id": documentID}, nil
}

func (s *stubStore) Update(_ context.Context, _ documentstore.CollectionRef, documentID string, _ map[string]any) (documentstore.Document, error) {
	if s.err != nil {
		return nil, s.err
	}
	return documentstore.Document{"$id": documentID}, nil
}

func TestProxyService(t *testing.T) {
	t.Run("queries pass through as raw filters in order", func(t *testing.T) {
		store := &stubStore{}
		svc := NewService(store)

		_, err := svc.Query(context.Background(), documentstore.Collection("c"), []string{`equal("a","1")`, `limit(5)`})
		require.NoError(t, err)
		assert.Equal(t, []documentstore.Filter{`equal("a","1")`, `limit(5)`}, store.filters)
	})

	t.Run("empty document id becomes unique()", func(t *testing.T) {
		store := &stubStore{}
		_, err := NewService(store).Create(context.Background(), documentstore.Collection("c"), "", map[string]any{"a": 1})
		require.NoError(t, err)
		assert.Equal(t, documentstore.UniqueID, store.createdID)
	})

	t.Run("errors are returned unchanged and counted", func(t *testing.T) {
		m := metrics.New(prometheus.NewRegistry())
		backendErr := &documentstore.Error{Op: documentstore.OpUpdate, Status: 500, Message: "boom"}
		svc := NewService(&stubStore{err: backendErr}, WithMetrics(m))

		_, err := svc.Update(context.Background(), documentstore.Collection("c"), "d", map[string]any{"a": 1})
		require.Error(t, err)
		assert.True(t, errors.Is(err, backendErr))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.ProxyRequests.WithLabelValues(documentstore.OpUpdate, metrics.OutcomeFailure)))
	})
}
