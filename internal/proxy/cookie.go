package proxy

import (
	"encoding/base64"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// RiskCookieName carries the base64 descriptor back to the browser.
const RiskCookieName = "aur"

// CookieDomain returns the domain the risk cookie is scoped to: the parent
// domain of the request origin, else of the Host header, else of
// defaultOrigin. IP literals are skipped. A single-label parent (".com") is
// never used; the host itself is returned instead.
func CookieDomain(origin, host, defaultOrigin string) string {
	candidates := []string{
		hostnameOf(origin),
		(&url.URL{Host: host}).Hostname(),
		hostnameOf(defaultOrigin),
	}
	for _, candidate := range candidates {
		if candidate == "" || net.ParseIP(candidate) != nil {
			continue
		}
		return parentDomain(candidate)
	}
	return ""
}

func hostnameOf(origin string) string {
	if origin == "" {
		return ""
	}
	u, err := url.Parse(origin)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func parentDomain(host string) string {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	i := strings.IndexByte(host, '.')
	if i < 0 {
		return host
	}
	suffix := host[i:]
	if !strings.Contains(suffix[1:], ".") {
		return host
	}
	return suffix
}

// RiskCookie builds the cookie carrying descriptor.
func RiskCookie(descriptor, domain string) *http.Cookie {
	return &http.Cookie{
		Name:     RiskCookieName,
		Value:    base64.StdEncoding.EncodeToString([]byte(descriptor)),
		Path:     "/",
		Domain:   domain,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	}
}
