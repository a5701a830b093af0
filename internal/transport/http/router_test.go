package httptransport_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riskproxy/internal/platform/metrics"
	"riskproxy/internal/proxy"
	"riskproxy/internal/riskevents"
	"riskproxy/internal/riskheader"
	"riskproxy/internal/tokenexchange"
	httptransport "riskproxy/internal/transport/http"
	"riskproxy/pkg/testutil"
)

const (
	defaultRisk   = "uuid=d-1;requestid=r-1;score=50"
	defaultOrigin = "https://login.example.com"
)

type fixedAssertion string

func (a fixedAssertion) IssueAssertion() (string, error) {
	return string(a), nil
}

type recordingStore struct {
	mu      sync.Mutex
	entries map[string]string
}

func (s *recordingStore) Store(_ context.Context, state, descriptor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries == nil {
		s.entries = map[string]string{}
	}
	s.entries[state] = descriptor
	return nil
}

// fakeIdP stands in for the identity provider: it issues machine tokens,
// accepts risk events and answers every other proxied request.
type fakeIdP struct {
	mu       sync.Mutex
	events   []riskevents.Event
	proxied  []*http.Request
	machines int
}

func (f *fakeIdP) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(tokenexchange.TokenPath, func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("grant_type") == "client_credentials" {
			f.mu.Lock()
			f.machines++
			f.mu.Unlock()
			_, _ = io.WriteString(w, `{"access_token":"machine-token","token_type":"Bearer","expires_in":3600}`)
			return
		}
		f.record(r)
		_, _ = io.WriteString(w, `{"access_token":"user-token","token_type":"Bearer"}`)
	})
	mux.HandleFunc(riskevents.EventsPath, func(w http.ResponseWriter, r *http.Request) {
		var events []riskevents.Event
		_ = json.NewDecoder(r.Body).Decode(&events)
		f.mu.Lock()
		f.events = append(f.events, events...)
		f.mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, "<html>sign in</html>")
	})
	return mux
}

func (f *fakeIdP) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.proxied = append(f.proxied, r.Clone(context.Background()))
}

func newProxyRouter(t *testing.T) (http.Handler, *fakeIdP, *recordingStore) {
	t.Helper()
	idp := &fakeIdP{}
	srv := httptest.NewServer(idp.handler())
	t.Cleanup(srv.Close)

	tokens := tokenexchange.NewClient("0oa-proxy", tokenexchange.TokenURL(srv.URL), "okta.riskEvents.manage",
		fixedAssertion("signed.assertion"), tokenexchange.WithHTTPClient(srv.Client()))
	reporter := riskevents.NewReporter(srv.URL, tokens, riskevents.WithHTTPClient(srv.Client()))
	store := &recordingStore{}

	pipeline, err := proxy.New(proxy.Config{
		IDPOrigin:         srv.URL,
		DefaultOrigin:     defaultOrigin,
		DefaultRiskHeader: defaultRisk,
	}, store, reporter, proxy.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	return httptransport.NewProxyRouter(pipeline), idp, store
}

func TestProxyRouter(t *testing.T) {
	testutil.Given(t, "the proxy router in front of an identity provider", func(t *testing.T) {
		testutil.When(t, "an authorize request arrives without a risk header", func(t *testing.T) {
			router, idp, store := newProxyRouter(t)
			req := testutil.NewRequest(t, http.MethodGet, "https://login.example.com/oauth2/v1/authorize?state=abc123")

			rr := testutil.DoRequest(router, req)

			testutil.Then(t, "upstream, cache and response all carry the default descriptor", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusOK)
				require.Len(t, idp.proxied, 1)
				assert.Equal(t, defaultRisk, idp.proxied[0].Header.Get(riskheader.HeaderName))
				assert.Equal(t, map[string]string{"abc123": defaultRisk}, store.entries)
				assert.Equal(t, []string{defaultRisk}, rr.Header().Values(riskheader.HeaderName))
				testutil.AssertCORS(t, rr, defaultOrigin)

				cookie, ok := testutil.CookieValue(t, rr, proxy.RiskCookieName)
				require.True(t, ok)
				assert.Equal(t, defaultRisk, cookie)
				assert.Zero(t, idp.machines)
			})
		})

		testutil.When(t, "a token request arrives from a high-risk client", func(t *testing.T) {
			router, idp, _ := newProxyRouter(t)
			req := testutil.NewFormRequest(t, http.MethodPost, "https://login.example.com/oauth2/v1/token",
				"grant_type=authorization_code&code=c-1")
			req.Header.Set("cf-connecting-ip", "203.0.113.7")
			req.Header.Set("Origin", "https://app.example.com")
			req.Header.Set(riskheader.HeaderName, "uuid=u-9;score=85")

			rr := testutil.DoRequest(router, req)

			testutil.Then(t, "a HIGH event is reported and the token response is relayed", func(t *testing.T) {
				assert.Equal(t, 1, idp.machines)
				require.Len(t, idp.events, 1)
				assert.Equal(t, []riskevents.Subject{{IP: "203.0.113.7", RiskLevel: riskevents.LevelHigh}}, idp.events[0].Subjects)

				testutil.AssertStatus(t, rr, http.StatusOK)
				assert.JSONEq(t, `{"access_token":"user-token","token_type":"Bearer"}`, testutil.ReadBody(t, rr))
				require.Len(t, idp.proxied, 1)
				assert.Equal(t, "uuid=u-9;score=85", idp.proxied[0].Header.Get(riskheader.HeaderName))
				testutil.AssertCORS(t, rr, "https://app.example.com")
			})
		})

		testutil.When(t, "a preflight request arrives", func(t *testing.T) {
			router, _, _ := newProxyRouter(t)
			req := testutil.NewRequest(t, http.MethodOptions, "https://login.example.com/api/v1/authn")
			req.Header.Set("Origin", "https://app.example.com")

			rr := testutil.DoRequest(router, req)

			testutil.Then(t, "no cookie is set but CORS and the risk header are", func(t *testing.T) {
				_, ok := testutil.CookieValue(t, rr, proxy.RiskCookieName)
				assert.False(t, ok)
				assert.Equal(t, defaultRisk, rr.Header().Get(riskheader.HeaderName))
				testutil.AssertCORS(t, rr, "https://app.example.com")
			})
		})
	})
}

type failingHealth struct{}

func (failingHealth) Health(context.Context) error { return errors.New("connection refused") }

func TestOpsRouter(t *testing.T) {
	testutil.Given(t, "the ops router", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		m := metrics.New(reg)
		m.IncrementRequest(http.MethodGet, "ok")

		testutil.When(t, "no cache is configured", func(t *testing.T) {
			rr := testutil.DoRequest(httptransport.NewOpsRouter(nil, reg), testutil.NewRequest(t, http.MethodGet, "/healthz"))

			testutil.Then(t, "it reports healthy", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusOK)
				assert.Equal(t, "ok\n", testutil.ReadBody(t, rr))
			})
		})

		testutil.When(t, "the cache is unreachable", func(t *testing.T) {
			rr := testutil.DoRequest(httptransport.NewOpsRouter(failingHealth{}, reg), testutil.NewRequest(t, http.MethodGet, "/healthz"))

			testutil.Then(t, "it reports unavailable", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
				assert.Contains(t, testutil.ReadBody(t, rr), "connection refused")
			})
		})

		testutil.When(t, "metrics are scraped", func(t *testing.T) {
			rr := testutil.DoRequest(httptransport.NewOpsRouter(nil, reg), testutil.NewRequest(t, http.MethodGet, "/metrics"))

			testutil.Then(t, "proxy metrics are exposed", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusOK)
				assert.Contains(t, testutil.ReadBody(t, rr), `riskproxy_requests_total{method="GET",outcome="ok"} 1`)
			})
		})
	})
}
