package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"math/rand/v2"

	"kiosk-gateway/internal/dispense/models"
	"kiosk-gateway/internal/documentstore"
	"kiosk-gateway/internal/platform/metrics"
	"kiosk-gateway/internal/platform/tracer"
	"kiosk-gateway/pkg/domain"
	dErrors "kiosk-gateway/pkg/domain-errors"
	"kiosk-gateway/pkg/platform/circuit"
	"kiosk-gateway/pkg/platform/privacy"
	"kiosk-gateway/pkg/requestcontext"
)

// DefaultApprovalRate is the share of requests approved while the customer
// database is unreachable.
const DefaultApprovalRate = 0.9

// ErrBackendDegraded is reported by Ready while the breaker is open.
var ErrBackendDegraded = errors.New("document store failing consecutively")

// CustomerStore is the read side of the document store used for lookups.
type CustomerStore interface {
	Query(ctx context.Context, ref documentstore.CollectionRef, filters ...documentstore.Filter) (*documentstore.DocumentList, error)
}

// Service decides whether a kiosk may dispense water to a customer.
type Service struct {
	store        CustomerStore
	collection   documentstore.CollectionRef
	countryCode  string
	approvalRate float64
	random       func() float64

	breaker *circuit.Breaker
	logger  *slog.Logger
	tracer  tracer.Tracer
	metrics *metrics.Metrics
}

// Option configures the Service.
type Option func(*Service)

// WithCountryCode sets the dialing code used to build phone variants.
func WithCountryCode(cc string) Option {
	return func(s *Service) {
		if cc != "" {
			s.countryCode = cc
		}
	}
}

// WithApprovalRate sets the probability of approving while the backend is
// down. Values outside [0,1] are ignored.
func WithApprovalRate(rate float64) Option {
	return func(s *Service) {
		if rate >= 0 && rate <= 1 {
			s.approvalRate = rate
		}
	}
}

// WithRandom replaces the uniform [0,1) source used by the fallback.
func WithRandom(fn func() float64) Option {
	return func(s *Service) {
		if fn != nil {
			s.random = fn
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(s *Service) {
		s.breaker = b
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New creates a verification service reading customers from collection.
func New(store CustomerStore, collection documentstore.CollectionRef, opts ...Option) *Service {
	s := &Service{
		store:        store,
		collection:   collection,
		countryCode:  domain.DefaultCountryCode,
		approvalRate: DefaultApprovalRate,
		random:       rand.Float64,
		breaker:      circuit.New("documentstore"),
		logger:       slog.Default(),
		tracer:       tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Verify runs the eligibility checks for req. Backend failures never surface
// as errors; they produce a fallback decision. The only error is invalid input.
func (s *Service) Verify(ctx context.Context, req models.DispenseRequest) (*models.Decision, error) {
	if req.KioskID.IsNil() || req.Phone.IsNil() || req.PIN.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "kiosk_id, user_id and pin are required")
	}

	ctx, span := s.tracer.Start(ctx, tracer.SpanDispenseVerify,
		tracer.String(tracer.AttrKioskID, req.KioskID.String()),
		tracer.String(tracer.AttrPhoneHash, privacy.HashPhone(req.Phone.String())),
	)

	decision := s.decide(ctx, span, req)
	decision.DecidedAt = requestcontext.Now(ctx)

	span.SetAttributes(
		tracer.Bool(tracer.AttrApproved, decision.Approved),
		tracer.String(tracer.AttrReason, decision.Reason),
		tracer.Bool(tracer.AttrFallback, decision.Fallback),
	)
	span.End(nil)

	outcome := metrics.OutcomeDenied
	if decision.Approved {
		outcome = metrics.OutcomeApproved
	}
	s.metrics.RecordDecision(outcome, decision.Reason)
	s.logger.InfoContext(ctx, "dispense decision",
		"request_id", requestcontext.RequestID(ctx),
		"kiosk_id", req.KioskID.String(),
		"phone", privacy.MaskPhone(req.Phone.String()),
		"approved", decision.Approved,
		"reason", decision.Reason,
		"fallback", decision.Fallback,
	)
	return decision, nil
}

func (s *Service) decide(ctx context.Context, span tracer.Span, req models.DispenseRequest) *models.Decision {
	lookup, err := s.LookupCustomer(ctx, req.Phone)
	if err != nil {
		s.logger.WarnContext(ctx, "customer lookup failed, applying fallback",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return s.fallback(span)
	}

	if !lookup.Found {
		return &models.Decision{Reason: models.ReasonNotFound}
	}

	customer := lookup.Customer
	switch {
	case !customer.Registered:
		return &models.Decision{Reason: models.ReasonNotRegistered}
	case !customer.Active:
		return &models.Decision{Reason: models.ReasonInactive}
	case !pinMatches(customer.PIN, req.PIN):
		return &models.Decision{Reason: models.ReasonInvalidPIN}
	}

	view := customer.View
	return &models.Decision{
		Approved: true,
		Reason:   models.ReasonVerified,
		Customer: &view,
	}
}

func (s *Service) fallback(span tracer.Span) *models.Decision {
	approved := s.random() < s.approvalRate
	s.metrics.RecordFallback(approved)
	span.AddEvent(tracer.EventFallbackApplied, tracer.Bool(tracer.AttrApproved, approved))

	reason := models.ReasonFallbackDenied
	if approved {
		reason = models.ReasonFallbackApproved
	}
	return &models.Decision{
		Approved: approved,
		Reason:   reason,
		Fallback: true,
	}
}

// LookupCustomer queries each phone variant in order and stops at the first
// one that returns a document. A backend failure on any variant aborts the
// lookup with that error.
func (s *Service) LookupCustomer(ctx context.Context, phone domain.PhoneNumber) (lookup *models.Lookup, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanCustomerLookup,
		tracer.String(tracer.AttrPhoneHash, privacy.HashPhone(phone.String())),
	)
	lookup = &models.Lookup{}
	defer func() {
		span.SetAttributes(tracer.Int(tracer.AttrVariantsTried, lookup.VariantsTried))
		span.End(err)
		s.metrics.ObserveLookupVariants(lookup.VariantsTried)
		s.observeBackend(ctx, err)
	}()

	for i, variant := range phone.Variants(s.countryCode) {
		lookup.VariantsTried++
		s.logger.DebugContext(ctx, "querying customer variant",
			"request_id", requestcontext.RequestID(ctx),
			"variant_index", i,
			"phone", privacy.MaskPhone(variant.String()),
		)

		list, qErr := s.store.Query(ctx, s.collection, documentstore.Equal(models.FieldPhoneNumber, variant.String()))
		if qErr != nil {
			return lookup, qErr
		}
		if len(list.Documents) == 0 {
			continue
		}

		lookup.Found = true
		lookup.Variant = variant
		lookup.VariantIndex = i
		lookup.Customer = models.CustomerFromDocument(list.Documents[0])
		span.AddEvent(tracer.EventCustomerMatched, tracer.Int(tracer.AttrVariantIndex, i))
		return lookup, nil
	}
	return lookup, nil
}

// observeBackend feeds the breaker. It never alters the decision.
func (s *Service) observeBackend(ctx context.Context, err error) {
	if s.breaker == nil {
		return
	}
	var change circuit.StateChange
	if err != nil {
		change = s.breaker.RecordFailure()
	} else {
		change = s.breaker.RecordSuccess()
	}

	switch {
	case change.Opened:
		s.logger.WarnContext(ctx, "document store circuit opened", "breaker", s.breaker.Name())
	case change.Closed:
		s.logger.InfoContext(ctx, "document store circuit closed", "breaker", s.breaker.Name())
	}
	s.metrics.SetBreakerOpen(s.breaker.Name(), s.breaker.IsOpen())
}

// Ready reports whether recent lookups have been reaching the backend.
func (s *Service) Ready(_ context.Context) error {
	if s.breaker != nil && s.breaker.IsOpen() {
		return ErrBackendDegraded
	}
	return nil
}

func pinMatches(stored string, claimed domain.PIN) bool {
	if stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(claimed.Value())) == 1
}
