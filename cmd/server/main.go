package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	dispensehandler "kiosk-gateway/internal/dispense/handler"
	dispenseservice "kiosk-gateway/internal/dispense/service"
	"kiosk-gateway/internal/documents"
	"kiosk-gateway/internal/documentstore"
	jwttoken "kiosk-gateway/internal/jwt_token"
	"kiosk-gateway/internal/platform/config"
	"kiosk-gateway/internal/platform/health"
	"kiosk-gateway/internal/platform/logger"
	"kiosk-gateway/internal/platform/metrics"
	"kiosk-gateway/internal/platform/tracer"
	"kiosk-gateway/internal/status"
	httptransport "kiosk-gateway/internal/transport/http"
	"kiosk-gateway/pkg/platform/circuit"
	"kiosk-gateway/pkg/platform/middleware/auth"
	"kiosk-gateway/pkg/platform/middleware/request"
)

const shutdownTimeout = 10 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using process environment")
	}

	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Server.Environment)

	log.Info("initializing kiosk-gateway",
		"addr", cfg.Server.Addr,
		"environment", cfg.Server.Environment,
		"backend_endpoint", cfg.Backend.Endpoint,
		"database_id", cfg.Backend.DatabaseID,
		"kiosk_auth", cfg.Server.KioskAuthEnabled(),
	)
	if cfg.Backend.APIKey == "" {
		log.Warn("APPWRITE_API_KEY is empty; backend calls will be unauthenticated")
	}

	router := buildRouter(cfg, log)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.RequestTimeout,
		WriteTimeout:      cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

func buildRouter(cfg config.Config, log *slog.Logger) http.Handler {
	reg := prometheus.DefaultRegisterer
	m := metrics.New(reg)
	t := tracer.NewOTel()

	backend := documentstore.Config{
		Endpoint:   cfg.Backend.Endpoint,
		ProjectID:  cfg.Backend.ProjectID,
		DatabaseID: cfg.Backend.DatabaseID,
		APIKey:     cfg.Backend.APIKey,
	}
	httpClient := &http.Client{}
	clientOpts := []documentstore.Option{
		documentstore.WithHTTPClient(httpClient),
		documentstore.WithLogger(log),
		documentstore.WithTracer(t),
		documentstore.WithMetrics(m),
	}
	lookupClient := documentstore.New(backend, append(clientOpts, documentstore.WithTimeout(cfg.Backend.LookupTimeout))...)
	proxyClient := documentstore.New(backend, append(clientOpts, documentstore.WithTimeout(cfg.Backend.ProxyTimeout))...)

	breaker := circuit.New("documentstore", circuit.WithFailureThreshold(cfg.Dispense.BreakerThreshold))
	dispenseSvc := dispenseservice.New(lookupClient,
		documentstore.Collection(cfg.Backend.CustomersCollectionID),
		dispenseservice.WithCountryCode(cfg.Dispense.CountryCode),
		dispenseservice.WithApprovalRate(cfg.Dispense.FallbackApprovalRate),
		dispenseservice.WithBreaker(breaker),
		dispenseservice.WithLogger(log),
		dispenseservice.WithTracer(t),
		dispenseservice.WithMetrics(m),
	)
	proxySvc := documents.NewService(proxyClient,
		documents.WithLogger(log),
		documents.WithMetrics(m),
	)

	healthHandler := health.New(cfg.Server.Environment)
	healthHandler.RegisterCheck("document_store", dispenseSvc.Ready)

	var kioskAuth auth.JWTValidator
	if cfg.Server.KioskAuthEnabled() {
		jwtService := jwttoken.NewJWTService(cfg.Server.KioskJWTSecret, jwttoken.DefaultIssuer, jwttoken.DefaultAudience, 0)
		kioskAuth = jwttoken.NewJWTServiceAdapter(jwtService)
	}

	return httptransport.NewRouter(cfg.Server, httptransport.Routes{
		Public: []httptransport.RouteRegistrar{
			status.New(proxyClient, log),
			healthHandler,
		},
		Kiosk: []httptransport.RouteRegistrar{
			dispensehandler.New(dispenseSvc, log),
			documents.NewHandler(proxySvc, log),
		},
		KioskAuth: kioskAuth,
		Gatherer:  prometheus.DefaultGatherer,
		Latency:   request.NewMetrics(reg),
	}, log)
}
