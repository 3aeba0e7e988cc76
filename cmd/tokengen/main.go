// Package main provides a CLI tool for provisioning kiosk bearer tokens for
// the kiosk gateway. Tokens are signed with KIOSK_JWT_SECRET (or -secret) and
// are only accepted by a gateway configured with the same secret.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	jwttoken "kiosk-gateway/internal/jwt_token"
	"kiosk-gateway/pkg/domain"

	"github.com/google/uuid"
)

const (
	// Dev secret for local gateways started with KIOSK_JWT_SECRET unset in .env
	devSigningKey = "dev-kiosk-secret-change-in-production"

	// Kiosks are provisioned once and rarely re-flashed.
	defaultTokenTTL = 365 * 24 * time.Hour
)

type tokenOutput struct {
	Token     string            `json:"token"`
	Type      string            `json:"type"`
	ExpiresIn string            `json:"expires_in"`
	Claims    map[string]any    `json:"claims,omitempty"`
	Usage     map[string]string `json:"usage"`
}

func main() {
	// Subcommands
	kioskCmd := flag.NewFlagSet("kiosk", flag.ExitOnError)
	batchCmd := flag.NewFlagSet("batch", flag.ExitOnError)

	// Single kiosk flags
	kioskID := kioskCmd.String("kiosk-id", "", "Kiosk ID. Generated if empty.")
	kioskSecret := kioskCmd.String("secret", "", "Signing secret. Defaults to $KIOSK_JWT_SECRET, then the dev secret.")
	kioskTTL := kioskCmd.Duration("ttl", defaultTokenTTL, "Token time-to-live")
	kioskJSON := kioskCmd.Bool("json", false, "Output as JSON")

	// Batch flags
	batchIDs := batchCmd.String("kiosk-ids", "", "Comma-separated kiosk IDs")
	batchSecret := batchCmd.String("secret", "", "Signing secret. Defaults to $KIOSK_JWT_SECRET, then the dev secret.")
	batchTTL := batchCmd.Duration("ttl", defaultTokenTTL, "Token time-to-live")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "kiosk":
		kioskCmd.Parse(os.Args[2:])
		generateKioskToken(*kioskID, *kioskSecret, *kioskTTL, *kioskJSON)
	case "batch":
		batchCmd.Parse(os.Args[2:])
		generateBatch(*batchIDs, *batchSecret, *batchTTL)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tokengen - Provision kiosk tokens for the kiosk gateway

Usage:
  tokengen <command> [flags]

Commands:
  kiosk     Generate a token for one kiosk
  batch     Generate tokens for many kiosks (JSON lines)

Examples:
  # Token for a named kiosk using $KIOSK_JWT_SECRET
  tokengen kiosk -kiosk-id KIOSK-042

  # Short-lived token for testing
  tokengen kiosk -kiosk-id KIOSK-042 -ttl 1h -json

  # Provision a rollout
  tokengen batch -kiosk-ids KIOSK-001,KIOSK-002,KIOSK-003 > tokens.jsonl

Use "tokengen <command> -h" for more information about a command.`)
}

func resolveSecret(flagValue string) (string, string) {
	if flagValue != "" {
		return flagValue, "flag"
	}
	if env := os.Getenv("KIOSK_JWT_SECRET"); env != "" {
		return env, "env"
	}
	return devSigningKey, "dev"
}

func newService(secret string, ttl time.Duration) *jwttoken.JWTService {
	return jwttoken.NewJWTService(secret, jwttoken.DefaultIssuer, jwttoken.DefaultAudience, ttl)
}

func generateKioskToken(rawID, secretFlag string, ttl time.Duration, jsonOutput bool) {
	secret, keyType := resolveSecret(secretFlag)
	kid := parseOrGenerateKioskID(rawID)

	token, jti, err := newService(secret, ttl).GenerateKioskToken(context.Background(), kid)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(tokenOutput{
			Token:     token,
			Type:      "kiosk_token",
			ExpiresIn: ttl.String(),
			Claims: map[string]any{
				"kiosk_id": kid.String(),
				"jti":      jti,
			},
			Usage: map[string]string{
				"header":      "Authorization: Bearer <token>",
				"signing_key": keyType,
			},
		})
		return
	}

	fmt.Println("Kiosk Token (JWT)")
	fmt.Println("=================")
	fmt.Printf("Signing Key: %s\n", keyType)
	fmt.Printf("Expires In:  %s\n", ttl)
	fmt.Printf("Kiosk ID:    %s\n", kid)
	fmt.Printf("JTI:         %s\n", jti)
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(token)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  curl -H \"Authorization: Bearer <token>\" -d '{...}' http://localhost:8080/dispense-verification")
}

func generateBatch(rawIDs, secretFlag string, ttl time.Duration) {
	secret, keyType := resolveSecret(secretFlag)
	ids := parseKioskIDs(rawIDs)
	if len(ids) == 0 {
		fmt.Fprintln(os.Stderr, "-kiosk-ids is required")
		os.Exit(1)
	}

	svc := newService(secret, ttl)
	enc := json.NewEncoder(os.Stdout)
	for _, kid := range ids {
		token, jti, err := svc.GenerateKioskToken(context.Background(), kid)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error generating token for %s: %v\n", kid, err)
			os.Exit(1)
		}
		if err := enc.Encode(tokenOutput{
			Token:     token,
			Type:      "kiosk_token",
			ExpiresIn: ttl.String(),
			Claims:    map[string]any{"kiosk_id": kid.String(), "jti": jti},
			Usage:     map[string]string{"signing_key": keyType},
		}); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
			os.Exit(1)
		}
	}
}

func parseOrGenerateKioskID(input string) domain.KioskID {
	if input == "" {
		return domain.KioskID("kiosk-" + uuid.NewString()[:8])
	}
	kid, err := domain.ParseKioskID(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid kiosk-id: %q\n", input)
		os.Exit(1)
	}
	return kid
}

func parseKioskIDs(raw string) []domain.KioskID {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	result := make([]domain.KioskID, 0, len(parts))
	for _, p := range parts {
		if kid, err := domain.ParseKioskID(strings.TrimSpace(p)); err == nil {
			result = append(result, kid)
		}
	}
	return result
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}
