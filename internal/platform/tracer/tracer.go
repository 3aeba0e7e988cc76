// Package tracer is the gateway's tracing seam. Services depend on the small
// Tracer interface; production wires the OpenTelemetry adapter and tests use
// the no-op implementation.
package tracer

import (
	"context"
	"time"
)

// Span is an in-flight operation. End must be called exactly once.
type Span interface {
	// End completes the span and marks it failed when err is non-nil.
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer starts spans. Implementations must be safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute is a key/value attached to a span or event.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute { return Attribute{Key: key, Value: value} }

func Bool(key string, value bool) Attribute { return Attribute{Key: key, Value: value} }

func Int(key string, value int) Attribute { return Attribute{Key: key, Value: value} }

func Int64(key string, value int64) Attribute { return Attribute{Key: key, Value: value} }

func Float64(key string, value float64) Attribute { return Attribute{Key: key, Value: value} }

// Duration records value in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names.
const (
	SpanDispenseVerify   = "dispense.verify"
	SpanCustomerLookup   = "dispense.customer_lookup"
	SpanBackendQuery     = "documentstore.query"
	SpanBackendCreate    = "documentstore.create"
	SpanBackendUpdate    = "documentstore.update"
	SpanBackendListColls = "documentstore.list_collections"
)

// Attribute keys.
const (
	AttrKioskID       = "kiosk.id"
	AttrPhoneHash     = "customer.phone_hash"
	AttrVariantIndex  = "lookup.variant_index"
	AttrVariantsTried = "lookup.variants_tried"
	AttrApproved      = "decision.approved"
	AttrReason        = "decision.reason"
	AttrFallback      = "decision.fallback"
	AttrDatabase      = "documentstore.database"
	AttrCollection    = "documentstore.collection"
	AttrStatusCode    = "http.status_code"
	AttrFilterCount   = "documentstore.filter_count"
)

// Event names.
const (
	EventFallbackApplied = "fallback.applied"
	EventCustomerMatched = "customer.matched"
)
