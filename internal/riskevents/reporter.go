// Package riskevents classifies risk descriptors and submits them to the
// identity provider's risk-events API.
package riskevents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"riskproxy/internal/platform/metrics"
	"riskproxy/internal/platform/telemetry"
	"riskproxy/internal/riskheader"
	"riskproxy/internal/tokenexchange"
	"riskproxy/pkg/requestcontext"
)

// EventsPath is the risk-events ingestion path on the identity provider.
const EventsPath = "/api/v1/risk/events/ip"

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Subject is one IP address and its classified level.
type Subject struct {
	IP        string `json:"ip"`
	RiskLevel Level  `json:"riskLevel"`
}

// Event is one element of the submitted array.
type Event struct {
	Timestamp string    `json:"timestamp"`
	Subjects  []Subject `json:"subjects"`
}

// TokenSource obtains an access token for a single submission.
type TokenSource interface {
	Token(ctx context.Context) (*tokenexchange.AccessToken, error)
}

// ExceptionCapturer receives failures that must not reach the caller.
type ExceptionCapturer interface {
	CaptureException(ctx context.Context, err error)
}

// Reporter submits risk events. Report never returns an error and never
// panics into the caller; failures go to the exception capturer.
type Reporter struct {
	endpoint   string
	tokens     TokenSource
	httpClient *http.Client
	capturer   ExceptionCapturer
	tracer     trace.Tracer
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithHTTPClient sets the HTTP client used for submissions.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Reporter) {
		r.httpClient = c
	}
}

// WithTelemetry routes failures to tel and traces submissions with its tracer.
func WithTelemetry(tel *telemetry.Telemetry) Option {
	return func(r *Reporter) {
		r.capturer = tel
		r.tracer = tel.Tracer("riskevents")
	}
}

// WithCapturer routes failures to c.
func WithCapturer(c ExceptionCapturer) Option {
	return func(r *Reporter) {
		r.capturer = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reporter) {
		r.logger = l
	}
}

// WithMetrics records submission outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reporter) {
		r.metrics = m
	}
}

// NewReporter constructs a Reporter posting to idpOrigin's risk-events API.
func NewReporter(idpOrigin string, tokens TokenSource, opts ...Option) *Reporter {
	r := &Reporter{
		endpoint:   strings.TrimRight(idpOrigin, "/") + EventsPath,
		tokens:     tokens,
		httpClient: http.DefaultClient,
		capturer:   telemetry.Nop(),
		tracer:     tracenoop.NewTracerProvider().Tracer(""),
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Report submits the risk level derived from rawDescriptor for ipAddress.
// It is a no-op when ipAddress is empty.
func (r *Reporter) Report(ctx context.Context, ipAddress, rawDescriptor string) {
	if ipAddress == "" {
		r.metrics.IncrementRiskEvent(string(LevelLow), metrics.ResultSkipped)
		r.logger.DebugContext(ctx, "risk event skipped: no client ip",
			"request_id", requestcontext.RequestID(ctx),
		)
		return
	}

	ctx, span := r.tracer.Start(ctx, "riskevents.report")
	defer span.End()

	level := Classify(riskheader.Parse(rawDescriptor))
	span.SetAttributes(attribute.String(telemetry.AttrRiskLevel, string(level)))

	defer func() {
		if rec := recover(); rec != nil {
			r.metrics.IncrementRiskEvent(string(level), metrics.ResultFailed)
			r.capturer.CaptureException(ctx, fmt.Errorf("risk event panic: %v", rec))
		}
	}()

	if err := r.submit(ctx, ipAddress, level); err != nil {
		r.metrics.IncrementRiskEvent(string(level), metrics.ResultFailed)
		r.capturer.CaptureException(ctx, err)
		return
	}

	r.metrics.IncrementRiskEvent(string(level), metrics.ResultSuccess)
	r.logger.InfoContext(ctx, "risk event reported",
		"risk_level", level,
		"request_id", requestcontext.RequestID(ctx),
	)
}

// Submit obtains a token, classifies the descriptor and posts one event.
// Only 202 Accepted counts as success. The classified level is returned even
// when submission fails.
func (r *Reporter) Submit(ctx context.Context, ipAddress, rawDescriptor string) (Level, error) {
	level := Classify(riskheader.Parse(rawDescriptor))
	return level, r.submit(ctx, ipAddress, level)
}

func (r *Reporter) submit(ctx context.Context, ipAddress string, level Level) error {
	token, err := r.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("obtain risk events token: %w", err)
	}
	if token == nil || token.Value == "" {
		return fmt.Errorf("obtain risk events token: %w", errEmptyToken)
	}

	body, err := json.Marshal([]Event{{
		Timestamp: requestcontext.Now(ctx).UTC().Format(timestampLayout),
		Subjects:  []Subject{{IP: ipAddress, RiskLevel: level}},
	}})
	if err != nil {
		return fmt.Errorf("marshal risk event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build risk event request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token.Value)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return &ReportingError{Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusAccepted {
		return &ReportingError{Status: resp.StatusCode}
	}
	return nil
}

// Nop is the reporter used when no machine credentials are provisioned.
type Nop struct{}

// Report implements the pipeline's reporter contract without side effects.
func (Nop) Report(context.Context, string, string) {}
