package documents

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"kiosk-gateway/internal/documents/mocks"
	"kiosk-gateway/internal/documentstore"
)

type HandlerSuite struct {
	suite.Suite
	router      http.Handler
	ctrl        *gomock.Controller
	mockService *mocks.MockService
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockService = mocks.NewMockService(s.ctrl)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	h := NewHandler(s.mockService, logger)

	r := chi.NewRouter()
	h.Register(r)
	s.router = r
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) post(path, body string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)

	var out map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &out))
	return rec, out
}

var backendMissing = &documentstore.Error{
	Op:      documentstore.OpQuery,
	Kind:    documentstore.KindStatus,
	Status:  http.StatusNotFound,
	Message: "Collection with the requested ID could not be found.",
}

func (s *HandlerSuite) TestQuery() {
	s.Run("forwards queries and wraps the listing", func() {
		s.mockService.EXPECT().
			Query(gomock.Any(), documentstore.CollectionRef{Collection: "transactions"}, []string{`equal("kiosk_id","K1")`}).
			Return(&documentstore.DocumentList{Total: 1, Documents: []documentstore.Document{{"$id": "t1"}}}, nil)

		rec, out := s.post("/database/query", `{"collection":"transactions","queries":["equal(\"kiosk_id\",\"K1\")"],"request_id":"r-1"}`)

		s.Equal(http.StatusOK, rec.Code)
		s.Equal(TypeQueryResponse, out["type"])
		s.Equal("r-1", out["request_id"])
		s.Equal(true, out["success"])
		s.Equal(1.0, out["total"])
		data, ok := out["data"].(map[string]any)
		s.Require().True(ok)
		s.Len(data["documents"], 1)
		s.NotEmpty(out["timestamp"])
	})

	s.Run("explicit database is forwarded", func() {
		s.mockService.EXPECT().
			Query(gomock.Any(), documentstore.CollectionRef{Database: "db-2", Collection: "c"}, gomock.Nil()).
			Return(&documentstore.DocumentList{Documents: []documentstore.Document{}}, nil)

		rec, out := s.post("/database/query", `{"database":"db-2","collection":"c","request_id":7}`)
		s.Equal(http.StatusOK, rec.Code)
		s.Equal(7.0, out["request_id"])
		s.Equal(0.0, out["total"])
	})

	s.Run("missing collection is rejected", func() {
		rec, out := s.post("/database/query", `{"request_id":"r-2"}`)

		s.Equal(http.StatusBadRequest, rec.Code)
		s.Equal(false, out["success"])
		s.Equal("r-2", out["request_id"])
		s.Equal(msgQueryRequired, out["error"])
	})

	s.Run("backend error is a 500 with its message", func() {
		s.mockService.EXPECT().
			Query(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, backendMissing)

		rec, out := s.post("/database/query", `{"collection":"missing","request_id":"r-3"}`)

		s.Equal(http.StatusInternalServerError, rec.Code)
		s.Equal(false, out["success"])
		s.Equal("r-3", out["request_id"])
		s.Equal("HTTP 404: Collection with the requested ID could not be found.", out["error"])
	})

	s.Run("undecodable body is rejected", func() {
		rec, out := s.post("/database/query", `{`)
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Nil(out["request_id"])
		s.Equal(false, out["success"])
	})
}

func (s *HandlerSuite) TestCreate() {
	s.Run("document id defaults to a generated id", func() {
		s.mockService.EXPECT().
			Create(gomock.Any(), documentstore.CollectionRef{Collection: "transactions"}, documentstore.UniqueID, map[string]any{"volume_ml": 500.0}).
			Return(documentstore.Document{"$id": "gen-1", "volume_ml": 500.0}, nil)

		rec, out := s.post("/database/create", `{"collection":"transactions","document_data":{"volume_ml":500},"request_id":"c-1"}`)

		s.Equal(http.StatusOK, rec.Code)
		s.Equal(TypeCreateResponse, out["type"])
		s.Equal(true, out["success"])
		s.NotContains(out, "total")
		data, ok := out["data"].(map[string]any)
		s.Require().True(ok)
		s.Equal("gen-1", data["$id"])
	})

	s.Run("explicit document id is forwarded", func() {
		s.mockService.EXPECT().
			Create(gomock.Any(), gomock.Any(), "tx-9", gomock.Any()).
			Return(documentstore.Document{"$id": "tx-9"}, nil)

		rec, _ := s.post("/database/create", `{"collection":"transactions","document_id":"tx-9","document_data":{"a":1}}`)
		s.Equal(http.StatusOK, rec.Code)
	})

	for name, body := range map[string]string{
		"missing document_data": `{"collection":"transactions","request_id":"c-2"}`,
		"empty document_data":   `{"collection":"transactions","document_data":{},"request_id":"c-2"}`,
		"missing collection":    `{"document_data":{"a":1},"request_id":"c-2"}`,
	} {
		s.Run(name, func() {
			rec, out := s.post("/database/create", body)

			s.Equal(http.StatusBadRequest, rec.Code)
			s.Equal(TypeCreateResponse, out["type"])
			s.Equal(false, out["success"])
			s.Equal("c-2", out["request_id"])
			s.Equal(msgCreateRequired, out["error"])
		})
	}
}

func (s *HandlerSuite) TestUpdate() {
	s.Run("patches the named document", func() {
		s.mockService.EXPECT().
			Update(gomock.Any(), documentstore.CollectionRef{Collection: "customers"}, "cust-1", map[string]any{"credits": 40.0}).
			Return(documentstore.Document{"$id": "cust-1", "credits": 40.0}, nil)

		rec, out := s.post("/database/update", `{"collection":"customers","document_id":"cust-1","document_data":{"credits":40},"request_id":"u-1"}`)

		s.Equal(http.StatusOK, rec.Code)
		s.Equal(TypeUpdateResponse, out["type"])
		s.Equal("u-1", out["request_id"])
		s.Equal(true, out["success"])
	})

	s.Run("document id is required", func() {
		rec, out := s.post("/database/update", `{"collection":"customers","document_data":{"credits":40},"request_id":"u-2"}`)

		s.Equal(http.StatusBadRequest, rec.Code)
		s.Equal(msgUpdateRequired, out["error"])
		s.Equal("u-2", out["request_id"])
	})

	s.Run("backend error is a 500", func() {
		s.mockService.EXPECT().
			Update(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, &documentstore.Error{Op: documentstore.OpUpdate, Kind: documentstore.KindTimeout, Message: "request timeout"})

		rec, out := s.post("/database/update", `{"collection":"customers","document_id":"x","document_data":{"a":1}}`)
		s.Equal(http.StatusInternalServerError, rec.Code)
		s.Equal(false, out["success"])
		s.Contains(out["error"], "request timeout")
	})
}
