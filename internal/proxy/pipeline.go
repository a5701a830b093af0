// Package proxy is the request/response augmentation pipeline in front of the
// identity provider.
//
// Every request gets a risk descriptor attached (relayed or default), token
// requests trigger a risk event, the descriptor is cached under the OAuth
// state parameter, and the upstream response comes back with the descriptor
// as a header and cookie plus the CORS contract.
package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"riskproxy/internal/platform/metrics"
	"riskproxy/internal/platform/telemetry"
	"riskproxy/internal/riskheader"
	"riskproxy/pkg/platform/middleware/metadata"
	"riskproxy/pkg/requestcontext"
)

// Request outcome label values.
const (
	outcomeOK            = "ok"
	outcomeUpstreamError = "upstream_error"
	outcomeInternalError = "internal_error"
)

// StateStore persists the descriptor under the OAuth state parameter.
type StateStore interface {
	Store(ctx context.Context, state, descriptor string) error
}

// RiskReporter submits a risk event. It absorbs its own failures.
type RiskReporter interface {
	Report(ctx context.Context, ipAddress, rawDescriptor string)
}

// ExceptionCapturer receives every failure before it is answered or absorbed.
type ExceptionCapturer interface {
	CaptureException(ctx context.Context, err error)
}

// Config holds the pipeline's static settings.
type Config struct {
	// IDPOrigin is the absolute origin requests are forwarded to.
	IDPOrigin         string
	DefaultOrigin     string
	DefaultRiskHeader string
	// UpstreamTimeout bounds forwarding including body buffering. Zero
	// disables the bound.
	UpstreamTimeout time.Duration
}

// Pipeline handles every proxied request.
type Pipeline struct {
	upstream          *url.URL
	defaultOrigin     string
	defaultRiskHeader string
	upstreamTimeout   time.Duration

	store    StateStore
	reporter RiskReporter
	capturer ExceptionCapturer
	client   *http.Client
	tracer   trace.Tracer
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithHTTPClient sets the client used to reach the identity provider. Its
// redirect policy is replaced so redirects reach the browser untouched.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Pipeline) {
		p.client = c
	}
}

// WithTelemetry routes captured failures to tel and traces with its tracer.
func WithTelemetry(tel *telemetry.Telemetry) Option {
	return func(p *Pipeline) {
		p.capturer = tel
		p.tracer = tel.Tracer("proxy")
	}
}

// WithCapturer routes captured failures to c.
func WithCapturer(c ExceptionCapturer) Option {
	return func(p *Pipeline) {
		p.capturer = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// WithMetrics records request, cache and latency metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// New builds a Pipeline. store and reporter are required; pass
// statecache.Discard and riskevents.Nop to disable them.
func New(cfg Config, store StateStore, reporter RiskReporter, opts ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}
	if reporter == nil {
		return nil, errors.New("risk reporter is required")
	}
	upstream, err := url.Parse(cfg.IDPOrigin)
	if err != nil || upstream.Scheme == "" || upstream.Host == "" {
		return nil, fmt.Errorf("identity provider origin must be absolute: %q", cfg.IDPOrigin)
	}

	p := &Pipeline{
		upstream:          upstream,
		defaultOrigin:     cfg.DefaultOrigin,
		defaultRiskHeader: cfg.DefaultRiskHeader,
		upstreamTimeout:   cfg.UpstreamTimeout,
		store:             store,
		reporter:          reporter,
		capturer:          telemetry.Nop(),
		client:            &http.Client{},
		tracer:            tracenoop.NewTracerProvider().Tracer(""),
		logger:            slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	client := *p.client
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	p.client = &client
	return p, nil
}

// response is an upstream answer with its body fully buffered.
type response struct {
	status int
	header http.Header
	body   []byte
}

// tracker remembers the stage in progress so a panic can be attributed.
type tracker struct {
	stage Stage
}

func (t *tracker) advance(ctx context.Context, s Stage) {
	t.stage = s
	telemetry.SetAttributes(ctx, attribute.String(telemetry.AttrStage, s.String()))
}

// ServeHTTP runs the pipeline. It always answers: failures and panics become
// a plain-text 5xx that still carries the CORS headers.
func (p *Pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, span := p.tracer.Start(r.Context(), "proxy.request", trace.WithAttributes(
		attribute.String(telemetry.AttrMethod, r.Method),
		attribute.String(telemetry.AttrPath, r.URL.Path),
		attribute.Bool(telemetry.AttrTokenPath, isTokenRequest(r.URL.Path)),
	))
	defer span.End()
	r = r.WithContext(ctx)

	origin := r.Header.Get("Origin")
	risk := r.Header.Get(riskheader.HeaderName)
	if risk == "" {
		risk = p.defaultRiskHeader
	}
	tr := &tracker{stage: StageReceived}

	defer func() {
		if rec := recover(); rec != nil {
			p.fail(ctx, w, r.Method, origin, risk, &Error{Stage: tr.stage, Err: fmt.Errorf("panic: %v", rec)})
		}
	}()

	resp, err := p.handle(r, origin, risk, tr)
	if err != nil {
		p.fail(ctx, w, r.Method, origin, risk, &Error{Stage: tr.stage, Err: err})
		return
	}

	for k, vv := range resp.header {
		w.Header()[k] = vv
	}
	if r.Method != http.MethodHead {
		w.Header().Set("Content-Length", strconv.Itoa(len(resp.body)))
	}
	w.WriteHeader(resp.status)
	_, _ = w.Write(resp.body)

	tr.advance(ctx, StageDone)
	span.SetAttributes(attribute.Int(telemetry.AttrStatusCode, resp.status))
	p.metrics.IncrementRequest(r.Method, outcomeOK)
}

func (p *Pipeline) handle(r *http.Request, origin, risk string, tr *tracker) (*response, error) {
	ctx := r.Context()

	tr.advance(ctx, StageRiskAttached)
	p.logger.DebugContext(ctx, "risk descriptor attached",
		"descriptor", risk,
		"request_id", requestcontext.RequestID(ctx),
	)

	if isTokenRequest(r.URL.Path) {
		p.report(ctx, clientIP(r), risk)
		tr.advance(ctx, StageReported)
	}

	domain := CookieDomain(origin, r.Host, p.defaultOrigin)
	state := r.URL.Query().Get("state")

	outReq, cancel := p.outboundRequest(r, risk)
	defer cancel()

	var (
		g    errgroup.Group
		resp *response
	)
	g.Go(func() error {
		p.storeState(ctx, state, risk)
		return nil
	})
	g.Go(func() (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("panic: %v", rec)
			}
		}()
		resp, err = p.forward(outReq)
		return err
	})
	if err := g.Wait(); err != nil {
		tr.advance(ctx, StageForwarded)
		return nil, err
	}
	tr.advance(ctx, StageCached)
	tr.advance(ctx, StageForwarded)

	if r.Method != http.MethodOptions {
		resp.header.Add("Set-Cookie", RiskCookie(risk, domain).String())
	}
	resp.header.Set(riskheader.HeaderName, risk)
	tr.advance(ctx, StageResponseAugmented)

	ApplyCORS(resp.header, origin, p.defaultOrigin)
	tr.advance(ctx, StageCORSApplied)
	return resp, nil
}

// outboundRequest copies r for the identity provider: same method, path,
// query and body, hop-by-hop headers removed, risk header replaced.
func (p *Pipeline) outboundRequest(r *http.Request, risk string) (*http.Request, context.CancelFunc) {
	ctx, cancel := r.Context(), context.CancelFunc(func() {})
	if p.upstreamTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, p.upstreamTimeout)
	}

	target := *p.upstream
	target.Path = r.URL.Path
	target.RawPath = r.URL.RawPath
	target.RawQuery = r.URL.RawQuery

	out := r.Clone(ctx)
	out.URL = &target
	out.Host = p.upstream.Host
	out.RequestURI = ""
	out.Header = cloneHeader(r.Header)
	removeHopHeaders(out.Header)
	out.Header.Set(riskheader.HeaderName, risk)
	if r.ContentLength == 0 {
		out.Body = http.NoBody
	}
	return out, cancel
}

func (p *Pipeline) forward(out *http.Request) (*response, error) {
	start := time.Now()
	defer func() { p.metrics.ObserveUpstreamLatency(time.Since(start)) }()

	resp, err := p.client.Do(out)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	var body bytes.Buffer
	if _, err := io.Copy(&body, resp.Body); err != nil {
		return nil, &UpstreamError{Err: fmt.Errorf("read upstream body: %w", err)}
	}

	header := cloneHeader(resp.Header)
	removeHopHeaders(header)
	header.Del("Content-Length")
	return &response{status: resp.StatusCode, header: header, body: body.Bytes()}, nil
}

// storeState is best-effort: failures are captured and never reach the
// response.
func (p *Pipeline) storeState(ctx context.Context, state, risk string) {
	defer func() {
		if rec := recover(); rec != nil {
			p.metrics.IncrementStateCacheWrite(metrics.ResultFailed)
			p.capturer.CaptureException(ctx, fmt.Errorf("state cache panic: %v", rec))
		}
	}()
	if state == "" {
		p.metrics.IncrementStateCacheWrite(metrics.ResultSkipped)
		return
	}
	if err := p.store.Store(ctx, state, risk); err != nil {
		p.metrics.IncrementStateCacheWrite(metrics.ResultFailed)
		p.capturer.CaptureException(ctx, err)
		return
	}
	p.metrics.IncrementStateCacheWrite(metrics.ResultStored)
}

// report waits for the reporter. Its faults are captured and never reach the
// response.
func (p *Pipeline) report(ctx context.Context, ip, risk string) {
	defer func() {
		if rec := recover(); rec != nil {
			p.capturer.CaptureException(ctx, fmt.Errorf("risk reporter panic: %v", rec))
		}
	}()
	p.reporter.Report(ctx, ip, risk)
}

func (p *Pipeline) fail(ctx context.Context, w http.ResponseWriter, method, origin, risk string, err *Error) {
	telemetry.SetAttributes(ctx, attribute.String(telemetry.AttrStage, StageErrored.String()))
	p.capturer.CaptureException(ctx, err)

	status := StatusFor(err)
	outcome := outcomeInternalError
	if status == http.StatusBadGateway {
		outcome = outcomeUpstreamError
	}
	p.metrics.IncrementRequest(method, outcome)

	h := w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set(riskheader.HeaderName, risk)
	ApplyCORS(h, origin, p.defaultOrigin)
	w.WriteHeader(status)
	_, _ = io.WriteString(w, err.Error()+"\n")
}

// clientIP prefers the value resolved by the metadata middleware.
func clientIP(r *http.Request) string {
	if requestcontext.HasClientMetadata(r.Context()) {
		return requestcontext.ClientIP(r.Context())
	}
	return metadata.ClientIPFromRequest(r)
}
