package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is read once at startup and passed by value afterwards.
type Config struct {
	Server   Server
	Backend  Backend
	Dispense Dispense
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	Environment    string
	KioskJWTSecret string
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

// Backend points at the remote document database.
type Backend struct {
	Endpoint              string
	ProjectID             string
	DatabaseID            string
	APIKey                string
	CustomersCollectionID string
	LookupTimeout         time.Duration
	ProxyTimeout          time.Duration
}

// Dispense tunes the verification decision.
type Dispense struct {
	CountryCode          string
	FallbackApprovalRate float64
	BreakerThreshold     int
}

// Defaults match the kiosk LAN deployment the firmware ships with.
const (
	DefaultAddr                 = ":8080"
	DefaultEndpoint             = "http://192.168.1.126/v1"
	DefaultProjectID            = "689107c288885e90c039"
	DefaultDatabaseID           = "6864aed388d20c69a461"
	DefaultCustomersCollection  = "customers"
	DefaultCountryCode          = "254"
	DefaultFallbackApprovalRate = 0.9
	DefaultLookupTimeout        = 5 * time.Second
	DefaultProxyTimeout         = 10 * time.Second
)

// LookupVariants is the number of phone forms a dispense lookup may query.
const LookupVariants = 5

// RequestTimeoutSlack is headroom for decoding and writing the response on
// top of the backend calls.
const RequestTimeoutSlack = time.Second

// FromEnv builds a Config from environment variables, applying defaults for
// anything unset.
func FromEnv() (Config, error) {
	v := viper.New()
	v.SetDefault("KIOSK_GATEWAY_ADDR", DefaultAddr)
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("REQUEST_TIMEOUT", 30*time.Second)
	v.SetDefault("MAX_BODY_BYTES", int64(1<<20))
	v.SetDefault("APPWRITE_ENDPOINT", DefaultEndpoint)
	v.SetDefault("APPWRITE_PROJECT_ID", DefaultProjectID)
	v.SetDefault("APPWRITE_DATABASE_ID", DefaultDatabaseID)
	v.SetDefault("APPWRITE_API_KEY", "")
	v.SetDefault("CUSTOMERS_COLLECTION_ID", DefaultCustomersCollection)
	v.SetDefault("LOOKUP_TIMEOUT", DefaultLookupTimeout)
	v.SetDefault("PROXY_TIMEOUT", DefaultProxyTimeout)
	v.SetDefault("DEFAULT_COUNTRY_CODE", DefaultCountryCode)
	v.SetDefault("FALLBACK_APPROVAL_RATE", DefaultFallbackApprovalRate)
	v.SetDefault("BREAKER_FAILURE_THRESHOLD", 5)
	v.SetDefault("KIOSK_JWT_SECRET", "")
	v.AutomaticEnv()

	cfg := Config{
		Server: Server{
			Addr:           v.GetString("KIOSK_GATEWAY_ADDR"),
			Environment:    v.GetString("ENVIRONMENT"),
			KioskJWTSecret: v.GetString("KIOSK_JWT_SECRET"),
			RequestTimeout: v.GetDuration("REQUEST_TIMEOUT"),
			MaxBodyBytes:   v.GetInt64("MAX_BODY_BYTES"),
		},
		Backend: Backend{
			Endpoint:              strings.TrimRight(v.GetString("APPWRITE_ENDPOINT"), "/"),
			ProjectID:             v.GetString("APPWRITE_PROJECT_ID"),
			DatabaseID:            v.GetString("APPWRITE_DATABASE_ID"),
			APIKey:                v.GetString("APPWRITE_API_KEY"),
			CustomersCollectionID: v.GetString("CUSTOMERS_COLLECTION_ID"),
			LookupTimeout:         v.GetDuration("LOOKUP_TIMEOUT"),
			ProxyTimeout:          v.GetDuration("PROXY_TIMEOUT"),
		},
		Dispense: Dispense{
			CountryCode:          strings.TrimPrefix(v.GetString("DEFAULT_COUNTRY_CODE"), "+"),
			FallbackApprovalRate: v.GetFloat64("FALLBACK_APPROVAL_RATE"),
			BreakerThreshold:     v.GetInt("BREAKER_FAILURE_THRESHOLD"),
		},
	}

	// Hosting platforms inject PORT; it wins over the gateway address.
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Addr = ":" + port
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the gateway cannot run with.
func (c Config) Validate() error {
	u, err := url.Parse(c.Backend.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("APPWRITE_ENDPOINT must be an absolute URL, got %q", c.Backend.Endpoint)
	}
	if c.Backend.ProjectID == "" || c.Backend.DatabaseID == "" || c.Backend.CustomersCollectionID == "" {
		return fmt.Errorf("APPWRITE_PROJECT_ID, APPWRITE_DATABASE_ID and CUSTOMERS_COLLECTION_ID must not be empty")
	}
	if c.Backend.LookupTimeout <= 0 || c.Backend.ProxyTimeout <= 0 {
		return fmt.Errorf("LOOKUP_TIMEOUT and PROXY_TIMEOUT must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	// A dispense request may query every phone variant before deciding; the
	// whole sequence has to finish inside the request timeout.
	if worst := LookupVariants*c.Backend.LookupTimeout + RequestTimeoutSlack; worst > c.Server.RequestTimeout {
		return fmt.Errorf("REQUEST_TIMEOUT (%s) must be at least %d*LOOKUP_TIMEOUT+%s (%s)",
			c.Server.RequestTimeout, LookupVariants, RequestTimeoutSlack, worst)
	}
	if c.Backend.ProxyTimeout+RequestTimeoutSlack > c.Server.RequestTimeout {
		return fmt.Errorf("REQUEST_TIMEOUT (%s) must exceed PROXY_TIMEOUT+%s", c.Server.RequestTimeout, RequestTimeoutSlack)
	}
	if c.Dispense.FallbackApprovalRate < 0 || c.Dispense.FallbackApprovalRate > 1 {
		return fmt.Errorf("FALLBACK_APPROVAL_RATE must be within [0,1], got %v", c.Dispense.FallbackApprovalRate)
	}
	if c.Dispense.CountryCode == "" {
		return fmt.Errorf("DEFAULT_COUNTRY_CODE must not be empty")
	}
	return nil
}

// KioskAuthEnabled reports whether kiosk bearer tokens are required.
func (s Server) KioskAuthEnabled() bool {
	return s.KioskJWTSecret != ""
}
