package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"riskproxy/internal/platform/config"
	"riskproxy/internal/platform/httpserver"
	"riskproxy/internal/platform/logger"
	"riskproxy/internal/platform/metrics"
	"riskproxy/internal/platform/redis"
	"riskproxy/internal/platform/telemetry"
	"riskproxy/internal/proxy"
	"riskproxy/internal/riskevents"
	"riskproxy/internal/statecache"
	"riskproxy/internal/tokenexchange"
	httptransport "riskproxy/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

// main wires process-wide collaborators once, serves the proxy and ops
// listeners, and tears everything down on SIGINT/SIGTERM.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	if err := run(cfg, log); err != nil {
		log.Error("riskproxy stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.New(ctx, cfg.Telemetry, log)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			log.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	m := metrics.New(prometheus.DefaultRegisterer)

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect state cache: %w", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Warn("redis close failed", "error", err)
		}
	}()

	var store proxy.StateStore = statecache.Discard{}
	if redisClient != nil {
		store = statecache.NewRedisStore(redisClient, cfg.Proxy.StateCacheTTL)
		log.Info("state cache enabled", "ttl", cfg.Proxy.StateCacheTTL)
	} else {
		log.Warn("REDIS_URL not set; state cache disabled")
	}

	reporter, err := newReporter(cfg, log, tel, m)
	if err != nil {
		return err
	}

	pipeline, err := proxy.New(proxy.Config{
		IDPOrigin:         cfg.Proxy.IDPOrigin,
		DefaultOrigin:     cfg.Proxy.DefaultOrigin,
		DefaultRiskHeader: cfg.Proxy.DefaultRiskHeader,
		UpstreamTimeout:   cfg.Proxy.UpstreamTimeout,
	}, store, reporter,
		proxy.WithTelemetry(tel),
		proxy.WithLogger(log),
		proxy.WithMetrics(m),
	)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	proxySrv := httpserver.New(cfg.Server.Addr, httptransport.NewProxyRouter(pipeline))
	opsSrv := httpserver.New(cfg.Server.OpsAddr, httptransport.NewOpsRouter(redisClient, prometheus.DefaultGatherer))

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range []*http.Server{proxySrv, opsSrv} {
		g.Go(func() error {
			log.Info("listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(proxySrv.Shutdown(shutdownCtx), opsSrv.Shutdown(shutdownCtx))
	})
	return g.Wait()
}

// newReporter returns the risk-event reporter, or a no-op one when no machine
// credentials were provisioned. The key material is decoded here so a bad
// key fails start-up instead of the first token request.
func newReporter(cfg config.Config, log *slog.Logger, tel *telemetry.Telemetry, m *metrics.Metrics) (proxy.RiskReporter, error) {
	if !cfg.Reporting.Enabled() {
		log.Warn("OAUTH_CLIENT_ID/OAUTH_SIGNING_KEY not set; risk reporting disabled")
		return riskevents.Nop{}, nil
	}

	tokenURL := tokenexchange.TokenURL(cfg.Proxy.IDPOrigin)
	signer := tokenexchange.NewSigner(cfg.Reporting.ClientID, tokenURL, cfg.Reporting.SigningKey)
	keys, err := signer.KeyPair()
	if err != nil {
		return nil, fmt.Errorf("load signing key: %w", err)
	}
	log.Info("risk reporting enabled", "client_id", cfg.Reporting.ClientID, "kid", keys.KeyID, "alg", keys.Method.Alg())

	tokens := tokenexchange.NewClient(cfg.Reporting.ClientID, tokenURL, cfg.Reporting.Scope, signer,
		tokenexchange.WithLogger(log),
		tokenexchange.WithMetrics(m),
	)
	return riskevents.NewReporter(cfg.Proxy.IDPOrigin, tokens,
		riskevents.WithTelemetry(tel),
		riskevents.WithLogger(log),
		riskevents.WithMetrics(m),
	), nil
}
