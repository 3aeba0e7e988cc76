// Package domain provides typed identifiers so kiosk ids, phone numbers and
// PINs cannot be mixed up at compile time.
package domain

import (
	"strings"

	dErrors "kiosk-gateway/pkg/domain-errors"
)

// Distinct string types - compiler prevents passing a PIN where a phone is expected.
type (
	KioskID     string
	PhoneNumber string
	PIN         string
)

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseKioskID(s string) (KioskID, error) {
	if strings.TrimSpace(s) == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "kiosk ID cannot be empty")
	}
	return KioskID(s), nil
}

// ParsePhoneNumber keeps the claimed number exactly as sent. The encoding is
// resolved later by Variants, so nothing is normalized here.
func ParsePhoneNumber(s string) (PhoneNumber, error) {
	if strings.TrimSpace(s) == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "phone number cannot be empty")
	}
	return PhoneNumber(s), nil
}

func ParsePIN(s string) (PIN, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "PIN cannot be empty")
	}
	return PIN(s), nil
}

// String methods - for logging and debugging.

func (id KioskID) String() string    { return string(id) }
func (p PhoneNumber) String() string { return string(p) }

// String never reveals the PIN.
func (p PIN) String() string { return "****" }

// Value returns the raw PIN for comparison against stored records.
func (p PIN) Value() string { return string(p) }

// IsNil checks - used for service-layer validation.

func (id KioskID) IsNil() bool    { return id == "" }
func (p PhoneNumber) IsNil() bool { return p == "" }
func (p PIN) IsNil() bool         { return p == "" }
