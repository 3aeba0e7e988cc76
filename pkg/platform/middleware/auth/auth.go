package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"kiosk-gateway/pkg/domain"
	"kiosk-gateway/pkg/requestcontext"
)

// JWTValidator defines the interface for validating kiosk tokens
type JWTValidator interface {
	ValidateToken(tokenString string) (*KioskClaims, error)
}

// KioskClaims represents the claims we expect from the JWT validator
type KioskClaims struct {
	KioskID string
	JTI     string
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireKiosk returns middleware that validates kiosk bearer tokens and
// stores the authenticated kiosk id in the request context.
func RequireKiosk(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")

			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			kioskID, err := domain.ParseKioskID(claims.KioskID)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - malformed token claims",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			ctx = requestcontext.WithKioskID(ctx, kioskID.String())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
