package jwttoken

import (
	auth "kiosk-gateway/pkg/platform/middleware/auth"
)

func ToMiddlewareClaims(claims *KioskTokenClaims) *auth.KioskClaims {
	return &auth.KioskClaims{
		KioskID: claims.KioskID,
		JTI:     claims.ID,
	}
}

// JWTServiceAdapter exposes JWTService as the middleware's validator.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*auth.KioskClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims), nil
}
