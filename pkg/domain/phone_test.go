package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	dErrors "kiosk-gateway/pkg/domain-errors"
)

// PhoneSuite covers the lookup encodings tried for a claimed phone number.
type PhoneSuite struct {
	suite.Suite
}

func TestPhoneSuite(t *testing.T) {
	suite.Run(t, new(PhoneSuite))
}

func (s *PhoneSuite) TestVariants_InternationalInput() {
	got := PhoneNumber("+254712345678").Variants("254")
	s.Equal([]PhoneNumber{
		"+254712345678",
		"0712345678",
		"254712345678",
		"712345678",
		"+254712345678",
	}, got)
}

func (s *PhoneSuite) TestVariants_LocalInput() {
	got := PhoneNumber("0712345678").Variants("254")
	s.Equal([]PhoneNumber{
		"0712345678",
		"0712345678",
		"0712345678",
		"0712345678",
		"+254712345678",
	}, got)
}

func (s *PhoneSuite) TestVariants_BareInput() {
	got := PhoneNumber("712345678").Variants("254")
	s.Len(got, 5)
	s.Equal(PhoneNumber("+254712345678"), got[4])
}

func (s *PhoneSuite) TestVariants_LiteralAlwaysFirst() {
	for _, in := range []string{"+254700000001", "0700000001", "254700000001", "abc", "+1555"} {
		s.Run(in, func() {
			got := PhoneNumber(in).Variants("254")
			s.Require().Len(got, 5)
			s.Equal(PhoneNumber(in), got[0])
		})
	}
}

func (s *PhoneSuite) TestVariants_ForeignPlusPrefixKeptLiteral() {
	got := PhoneNumber("+15551234").Variants("254")
	s.Equal(PhoneNumber("+15551234"), got[4])
	s.Equal(PhoneNumber("+15551234"), got[1])
}

func (s *PhoneSuite) TestVariants_ReplacesEveryOccurrence() {
	got := PhoneNumber("+254+254").Variants("254")
	s.Equal(PhoneNumber("00"), got[1])
	s.Equal(PhoneNumber(""), got[3])
}

func (s *PhoneSuite) TestVariants_CountryCode() {
	s.Run("plus prefix on the code is tolerated", func() {
		got := PhoneNumber("+256772000111").Variants("+256")
		s.Equal(PhoneNumber("0772000111"), got[1])
	})

	s.Run("empty code falls back to default", func() {
		got := PhoneNumber("0712345678").Variants("")
		s.Equal(PhoneNumber("+254712345678"), got[4])
	})
}

func TestParse(t *testing.T) {
	t.Run("rejects empty kiosk id", func(t *testing.T) {
		_, err := ParseKioskID("  ")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("keeps phone literal", func(t *testing.T) {
		p, err := ParsePhoneNumber(" +254712345678")
		require.NoError(t, err)
		assert.Equal(t, PhoneNumber(" +254712345678"), p)
	})

	t.Run("rejects empty pin", func(t *testing.T) {
		_, err := ParsePIN("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("pin string is redacted", func(t *testing.T) {
		p, err := ParsePIN("4455")
		require.NoError(t, err)
		assert.Equal(t, "****", p.String())
		assert.Equal(t, "4455", p.Value())
	})
}
