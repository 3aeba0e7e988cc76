package domain

import "strings"

// DefaultCountryCode is the dialing code kiosks are deployed under.
const DefaultCountryCode = "254"

// Variants returns the candidate encodings a customer record may be stored
// under, in lookup order. The literal input is always first. Duplicates are
// kept: callers query each entry, so the order and count are stable for a
// given input.
func (p PhoneNumber) Variants(countryCode string) []PhoneNumber {
	cc := strings.TrimPrefix(countryCode, "+")
	if cc == "" {
		cc = DefaultCountryCode
	}
	s := string(p)
	intl := "+" + cc

	last := s
	if !strings.HasPrefix(s, "+") {
		last = intl + strings.TrimLeft(s, "0")
	}

	return []PhoneNumber{
		p,
		PhoneNumber(strings.ReplaceAll(s, intl, "0")),
		PhoneNumber(strings.ReplaceAll(s, intl, cc)),
		PhoneNumber(strings.ReplaceAll(s, intl, "")),
		PhoneNumber(last),
	}
}
