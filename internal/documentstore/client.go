// Package documentstore executes authenticated requests against the remote
// document database (Appwrite REST contract).
package documentstore

//go:generate mockgen -source=client.go -destination=mocks/mocks.go -package=mocks HTTPDoer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"kiosk-gateway/internal/platform/metrics"
	"kiosk-gateway/internal/platform/tracer"
	"kiosk-gateway/pkg/requestcontext"
)

// Operation names used in errors, spans and metrics.
const (
	OpQuery           = "query"
	OpCreate          = "create"
	OpUpdate          = "update"
	OpListCollections = "list_collections"
)

const defaultTimeout = 10 * time.Second

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config identifies the backend project and database.
type Config struct {
	Endpoint   string
	ProjectID  string
	DatabaseID string
	APIKey     string
}

// Client issues one HTTP request per call. No retries.
type Client struct {
	endpoint   string
	projectID  string
	databaseID string
	apiKey     string
	timeout    time.Duration

	http    HTTPDoer
	logger  *slog.Logger
	tracer  tracer.Tracer
	metrics *metrics.Metrics
}

type Option func(*Client)

// WithTimeout bounds every call made through the client. Defaults to 10s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		projectID:  cfg.ProjectID,
		databaseID: cfg.DatabaseID,
		apiKey:     cfg.APIKey,
		timeout:    defaultTimeout,
		logger:     slog.Default(),
		tracer:     tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	return c
}

// DatabaseID returns the database used when a ref names none.
func (c *Client) DatabaseID() string {
	return c.databaseID
}

// Query lists documents in ref matching every filter. No filters returns the
// unfiltered listing.
func (c *Client) Query(ctx context.Context, ref CollectionRef, filters ...Filter) (*DocumentList, error) {
	ctx, span := c.tracer.Start(ctx, tracer.SpanBackendQuery,
		tracer.String(tracer.AttrDatabase, c.database(ref)),
		tracer.String(tracer.AttrCollection, ref.Collection),
		tracer.Int(tracer.AttrFilterCount, len(filters)),
	)

	path := c.documentsPath(ref)
	if len(filters) > 0 {
		params := make([]string, 0, len(filters))
		for _, f := range filters {
			params = append(params, "queries[]="+url.QueryEscape(string(f)))
		}
		path += "?" + strings.Join(params, "&")
	}

	var list DocumentList
	err := c.do(ctx, span, OpQuery, http.MethodGet, path, nil, &list)
	span.End(err)
	if err != nil {
		return nil, err
	}
	if list.Documents == nil {
		list.Documents = []Document{}
	}
	return &list, nil
}

// Create stores data as a new document. An empty documentID or UniqueID lets
// the backend assign the id.
func (c *Client) Create(ctx context.Context, ref CollectionRef, documentID string, data map[string]any) (Document, error) {
	if documentID == "" {
		documentID = UniqueID
	}
	ctx, span := c.tracer.Start(ctx, tracer.SpanBackendCreate,
		tracer.String(tracer.AttrDatabase, c.database(ref)),
		tracer.String(tracer.AttrCollection, ref.Collection),
	)

	body := map[string]any{
		"documentId": documentID,
		"data":       data,
	}
	var doc Document
	err := c.do(ctx, span, OpCreate, http.MethodPost, c.documentsPath(ref), body, &doc)
	span.End(err)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Update patches the named document with data.
func (c *Client) Update(ctx context.Context, ref CollectionRef, documentID string, data map[string]any) (Document, error) {
	ctx, span := c.tracer.Start(ctx, tracer.SpanBackendUpdate,
		tracer.String(tracer.AttrDatabase, c.database(ref)),
		tracer.String(tracer.AttrCollection, ref.Collection),
	)

	path := c.documentsPath(ref) + "/" + url.PathEscape(documentID)
	body := map[string]any{"data": data}
	var doc Document
	err := c.do(ctx, span, OpUpdate, http.MethodPatch, path, body, &doc)
	span.End(err)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ListCollections lists the collections of the configured database.
func (c *Client) ListCollections(ctx context.Context) (*CollectionList, error) {
	ctx, span := c.tracer.Start(ctx, tracer.SpanBackendListColls,
		tracer.String(tracer.AttrDatabase, c.databaseID),
	)

	var resp collectionsResponse
	err := c.do(ctx, span, OpListCollections, http.MethodGet, "/databases/"+url.PathEscape(c.databaseID)+"/collections", nil, &resp)
	span.End(err)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(resp.Collections))
	for _, col := range resp.Collections {
		names = append(names, col.Name)
	}
	return &CollectionList{Total: resp.Total, Names: names}, nil
}

func (c *Client) database(ref CollectionRef) string {
	if ref.Database != "" {
		return ref.Database
	}
	return c.databaseID
}

func (c *Client) documentsPath(ref CollectionRef) string {
	return fmt.Sprintf("/databases/%s/collections/%s/documents",
		url.PathEscape(c.database(ref)), url.PathEscape(ref.Collection))
}

// do is the shared execution path. The outbound call is detached from the
// caller's cancellation and bounded only by the client timeout.
func (c *Client) do(ctx context.Context, span tracer.Span, op, method, path string, body, out any) (err error) {
	start := time.Now()
	defer func() {
		c.metrics.ObserveBackend(op, err, time.Since(start))
		if err != nil {
			c.logger.ErrorContext(ctx, "document store request failed",
				"op", op,
				"method", method,
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
	}()

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, mErr := json.Marshal(body)
		if mErr != nil {
			return newError(op, KindInternal, 0, "failed to marshal request", mErr)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(callCtx, method, c.endpoint+path, reader)
	if err != nil {
		return newError(op, KindInternal, 0, "failed to create request", err)
	}
	req.Header.Set("X-Appwrite-Project", c.projectID)
	req.Header.Set("X-Appwrite-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return newError(op, KindTimeout, 0, "request timeout", err)
		}
		return newError(op, KindTransport, 0, "failed to execute request", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(tracer.Int(tracer.AttrStatusCode, resp.StatusCode))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return newError(op, KindTimeout, 0, "request timeout", err)
		}
		return newError(op, KindTransport, 0, "failed to read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newError(op, KindStatus, resp.StatusCode, statusMessage(resp.StatusCode, respBody), nil)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return newError(op, KindDecode, 0, "failed to parse response", err)
	}
	return nil
}

// statusMessage prefers the backend's own message field.
func statusMessage(status int, body []byte) string {
	var e errorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
		return e.Message
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return "Unknown error"
}
