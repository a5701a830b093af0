package tokenexchange

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"riskproxy/internal/platform/metrics"
	"riskproxy/pkg/requestcontext"
)

const (
	// ClientAssertionType identifies a JWT bearer client assertion (RFC 7523).
	ClientAssertionType = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"

	// TokenPath is the identity provider's token endpoint path.
	TokenPath = "/oauth2/v1/token"
)

// TokenURL returns the token endpoint for an identity-provider origin.
func TokenURL(idpOrigin string) string {
	return strings.TrimRight(idpOrigin, "/") + TokenPath
}

// AccessToken is a bearer token obtained for a single risk-event submission.
type AccessToken struct {
	Value  string
	Type   string
	Expiry time.Time
}

// AssertionIssuer issues signed client assertions.
type AssertionIssuer interface {
	IssueAssertion() (string, error)
}

// Client performs client-credentials grants authenticated with a client
// assertion. It holds no token state: every call issues a new assertion and
// exchanges it.
type Client struct {
	clientID   string
	tokenURL   string
	scope      string
	issuer     AssertionIssuer
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for the token endpoint.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithMetrics records exchange outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(cl *Client) {
		cl.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = l
	}
}

// NewClient constructs a Client requesting scope for clientID at tokenURL.
func NewClient(clientID, tokenURL, scope string, issuer AssertionIssuer, opts ...Option) *Client {
	c := &Client{
		clientID:   clientID,
		tokenURL:   tokenURL,
		scope:      scope,
		issuer:     issuer,
		httpClient: http.DefaultClient,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Token issues a fresh assertion and exchanges it for an access token.
func (c *Client) Token(ctx context.Context) (*AccessToken, error) {
	assertion, err := c.issuer.IssueAssertion()
	if err != nil {
		c.metrics.IncrementTokenExchange(metrics.ResultFailed)
		return nil, err
	}
	return c.Exchange(ctx, assertion)
}

// Exchange posts a client_credentials grant carrying assertion to the token
// endpoint. Any non-2xx answer is returned as a *TokenError.
func (c *Client) Exchange(ctx context.Context, assertion string) (*AccessToken, error) {
	cfg := clientcredentials.Config{
		ClientID: c.clientID,
		TokenURL: c.tokenURL,
		Scopes:   []string{c.scope},
		EndpointParams: url.Values{
			"client_assertion_type": {ClientAssertionType},
			"client_assertion":      {assertion},
		},
		AuthStyle: oauth2.AuthStyleInParams,
	}

	tok, err := cfg.Token(context.WithValue(ctx, oauth2.HTTPClient, c.httpClient))
	if err != nil {
		tokenErr := toTokenError(err)
		c.metrics.IncrementTokenExchange(metrics.ResultFailed)
		c.logger.WarnContext(ctx, "token exchange failed",
			"status", tokenErr.Status,
			"error_code", tokenErr.Code,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, tokenErr
	}

	c.metrics.IncrementTokenExchange(metrics.ResultSuccess)
	return &AccessToken{
		Value:  tok.AccessToken,
		Type:   tok.Type(),
		Expiry: tok.Expiry,
	}, nil
}

func toTokenError(err error) *TokenError {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		return &TokenError{
			Status: retrieveErr.Response.StatusCode,
			Code:   retrieveErr.ErrorCode,
			Err:    err,
		}
	}
	return &TokenError{Err: err}
}
