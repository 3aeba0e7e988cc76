package jwttoken

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"kiosk-gateway/pkg/domain"
	dErrors "kiosk-gateway/pkg/domain-errors"
	"kiosk-gateway/pkg/requestcontext"

	"github.com/golang-jwt/jwt/v5"
)

// Defaults shared by the server and cmd/tokengen.
const (
	DefaultIssuer   = "kiosk-gateway"
	DefaultAudience = "kiosk"
)

// KioskTokenClaims are the claims carried by a provisioned kiosk credential.
type KioskTokenClaims struct {
	KioskID string `json:"kiosk_id"`
	jwt.RegisteredClaims
}

// JWTService issues and validates HS256 kiosk tokens.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
	tokenTTL   time.Duration
}

func NewJWTService(signingKey, issuer, audience string, tokenTTL time.Duration) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		tokenTTL:   tokenTTL,
	}
}

// GenerateKioskToken signs a token for kioskID and returns it with its JTI.
func (s *JWTService) GenerateKioskToken(ctx context.Context, kioskID domain.KioskID) (string, string, error) {
	if kioskID.IsNil() {
		return "", "", dErrors.New(dErrors.CodeInvalidInput, "kiosk ID cannot be empty")
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	jti := hex.EncodeToString(b)
	now := requestcontext.Now(ctx)

	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, KioskTokenClaims{
		KioskID: kioskID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   kioskID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        jti,
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", "", err
	}
	return signedToken, jti, nil
}

// ValidateToken checks signature, algorithm, expiry, issuer and audience.
func (s *JWTService) ValidateToken(tokenString string) (*KioskTokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &KioskTokenClaims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*KioskTokenClaims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	if claims.KioskID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token has no kiosk_id")
	}
	return claims, nil
}
