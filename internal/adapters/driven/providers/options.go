package providers

import (
	"net/http"
	"time"
)

// DefaultUserAgent identifies this service to provider APIs. Reddit rejects
// requests without a descriptive User-Agent.
const DefaultUserAgent = "NeuraSenseAI/1.0"

// Option configures a provider.
type Option func(*options)

type options struct {
	httpClient *http.Client
	userAgent  string
}

func defaultOptions() *options {
	return &options{userAgent: DefaultUserAgent}
}

// WithHTTPClient sets the HTTP client for token and profile requests.
// Useful for pointing providers at httptest servers.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		if ua != "" {
			o.userAgent = ua
		}
	}
}

// userAgentTransport sets User-Agent on every outgoing request.
type userAgentTransport struct {
	base http.RoundTripper
	ua   string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.ua)
	return t.base.RoundTrip(r)
}

// client returns the configured client wrapped so every request carries the
// user agent.
func (o *options) client() *http.Client {
	base := o.httpClient
	if base == nil {
		base = &http.Client{Timeout: 30 * time.Second}
	}
	rt := base.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	c := *base
	c.Transport = &userAgentTransport{base: rt, ua: o.userAgent}
	return &c
}
