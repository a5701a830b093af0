package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DefaultRiskHeader is attached when the edge risk engine supplied no descriptor.
const DefaultRiskHeader = "uuid=964d54b7-0821-413a-a4d6-8131770ec8d5;requestid=135a5cdc;status=0;score=50;" +
	"risk=unp:432/H|ugp:ie/M;trust=utp:weekday_1|udfp:be44fff67b66ec7b;general=aci:T;allow=0;action=none"

// Defaults applied when the matching variable is unset.
const (
	DefaultAddr            = ":8080"
	DefaultOpsAddr         = ":9090"
	DefaultStateCacheTTL   = 5 * time.Minute
	DefaultRiskEventsScope = "okta.riskEvents.manage"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultServiceVersion  = "dev"
)

// Server captures listener level configuration.
type Server struct {
	Addr    string
	OpsAddr string
}

// Proxy configures the request/response augmentation pipeline.
type Proxy struct {
	// IDPOrigin is the identity provider every request is forwarded to.
	IDPOrigin string
	// DefaultOrigin answers CORS for requests without an Origin header and is
	// the fallback cookie domain.
	DefaultOrigin     string
	DefaultRiskHeader string
	StateCacheTTL     time.Duration
	// UpstreamTimeout bounds the forward call. Zero means no timeout.
	UpstreamTimeout time.Duration
}

// Reporting configures the client-credentials exchange used for risk events.
type Reporting struct {
	ClientID   string
	SigningKey string
	Scope      string
}

// Enabled reports whether machine credentials were provisioned.
func (r Reporting) Enabled() bool {
	return r.ClientID != "" && r.SigningKey != ""
}

// RedisConfig configures the state cache connection. An empty URL disables caching.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Logging selects the slog handler.
type Logging struct {
	Level  string
	Format string
}

// Telemetry configures exception capture and tracing. Spans are exported only
// when an OTLP endpoint is set; captured exceptions are always logged.
type Telemetry struct {
	OTLPEndpoint   string
	ServiceVersion string
}

// Config is the full process configuration.
type Config struct {
	Server    Server
	Proxy     Proxy
	Reporting Reporting
	Redis     RedisConfig
	Logging   Logging
	Telemetry Telemetry
}

// FromEnv builds a Config from environment variables so main stays lean.
// A .env file in the working directory is loaded first when present.
func FromEnv() (Config, error) {
	_ = godotenv.Load()

	idpOrigin := os.Getenv("IDP_ORIGIN")
	cfg := Config{
		Server: Server{
			Addr:    getEnv("RISKPROXY_ADDR", DefaultAddr),
			OpsAddr: getEnv("RISKPROXY_OPS_ADDR", DefaultOpsAddr),
		},
		Proxy: Proxy{
			IDPOrigin:         idpOrigin,
			DefaultOrigin:     getEnv("DEFAULT_ORIGIN", idpOrigin),
			DefaultRiskHeader: getEnv("DEFAULT_RISK_HEADER", DefaultRiskHeader),
			StateCacheTTL:     getEnvDuration("STATE_CACHE_TTL", DefaultStateCacheTTL),
			UpstreamTimeout:   getEnvDuration("UPSTREAM_TIMEOUT", 0),
		},
		Reporting: Reporting{
			ClientID:   os.Getenv("OAUTH_CLIENT_ID"),
			SigningKey: os.Getenv("OAUTH_SIGNING_KEY"),
			Scope:      getEnv("RISK_EVENTS_SCOPE", DefaultRiskEventsScope),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Logging: Logging{
			Level:  getEnv("LOG_LEVEL", DefaultLogLevel),
			Format: getEnv("LOG_FORMAT", DefaultLogFormat),
		},
		Telemetry: Telemetry{
			OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			ServiceVersion: getEnv("SERVICE_VERSION", DefaultServiceVersion),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present and consistent.
func (c Config) Validate() error {
	if c.Proxy.IDPOrigin == "" {
		return errors.New("IDP_ORIGIN is required")
	}
	if err := validateOrigin("IDP_ORIGIN", c.Proxy.IDPOrigin); err != nil {
		return err
	}
	if c.Proxy.DefaultOrigin != "" {
		if err := validateOrigin("DEFAULT_ORIGIN", c.Proxy.DefaultOrigin); err != nil {
			return err
		}
	}
	if c.Proxy.StateCacheTTL <= 0 {
		return errors.New("STATE_CACHE_TTL must be positive")
	}
	if (c.Reporting.ClientID == "") != (c.Reporting.SigningKey == "") {
		return errors.New("OAUTH_CLIENT_ID and OAUTH_SIGNING_KEY must be set together")
	}
	return nil
}

func validateOrigin(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute origin, got %q", name, raw)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
