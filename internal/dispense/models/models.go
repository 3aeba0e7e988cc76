package models

import (
	"time"

	"kiosk-gateway/internal/documentstore"
	"kiosk-gateway/pkg/domain"
)

// Reasons returned to kiosks. Firmware matches on these strings.
const (
	ReasonNotFound         = "Customer not found in database"
	ReasonNotRegistered    = "Customer not fully registered"
	ReasonInactive         = "Subscription inactive"
	ReasonInvalidPIN       = "Invalid PIN"
	ReasonVerified         = "Customer verified in database"
	ReasonFallbackApproved = "Database unavailable - approved by fallback (90% chance)"
	ReasonFallbackDenied   = "Database unavailable - denied by fallback (10% chance)"
	ReasonInvalidRequest   = "Invalid request format"
	ReasonServerError      = "Server error occurred"
)

// Stored customer field names.
const (
	FieldPhoneNumber  = "phone_number"
	FieldPIN          = "pin"
	FieldIsRegistered = "is_registered"
	FieldActive       = "active"
	FieldAccountID    = "account_id"
	FieldFullName     = "full_name"
	FieldCredits      = "credits"
)

// DispenseRequest is a parsed kiosk request.
type DispenseRequest struct {
	KioskID  domain.KioskID
	Phone    domain.PhoneNumber
	PIN      domain.PIN
	VolumeML any
}

// Customer is the eligibility-relevant part of a stored record.
type Customer struct {
	Registered bool
	Active     bool
	PIN        string
	View       CustomerView
}

// CustomerView is the redacted record returned to kiosks. It never carries
// the PIN. Values pass through as stored.
type CustomerView struct {
	PhoneNumber any `json:"phone_number"`
	AccountID   any `json:"account_id"`
	FullName    any `json:"full_name"`
	Active      any `json:"active"`
	Credits     any `json:"credits"`
}

// CustomerFromDocument reads a stored record. Flags count as set only when
// stored as JSON true; missing credits read as 0.
func CustomerFromDocument(doc documentstore.Document) Customer {
	credits, ok := doc[FieldCredits]
	if !ok {
		credits = 0
	}
	pin, _ := doc[FieldPIN].(string)
	return Customer{
		Registered: isTrue(doc[FieldIsRegistered]),
		Active:     isTrue(doc[FieldActive]),
		PIN:        pin,
		View: CustomerView{
			PhoneNumber: doc[FieldPhoneNumber],
			AccountID:   doc[FieldAccountID],
			FullName:    doc[FieldFullName],
			Active:      doc[FieldActive],
			Credits:     credits,
		},
	}
}

func isTrue(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

// Lookup is the outcome of resolving a phone number. Found is false when no
// variant matched; backend failures are reported as errors instead.
type Lookup struct {
	Found         bool
	Customer      Customer
	Variant       domain.PhoneNumber
	VariantIndex  int
	VariantsTried int
}

// Decision is the verdict for one dispense request.
type Decision struct {
	Approved  bool
	Reason    string
	Fallback  bool
	Customer  *CustomerView
	DecidedAt time.Time
}
