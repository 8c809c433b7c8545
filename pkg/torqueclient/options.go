package torqueclient

import (
	"net/http"
	"time"
)

// Option configures a Client.
type Option func(*options)

type options struct {
	bearerToken string
	httpClient  *http.Client
	headers     map[string]string
}

func defaultOptions() *options {
	return &options{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		headers: make(map[string]string),
	}
}

// WithBearerToken attaches the shared deployment credential to every request.
func WithBearerToken(token string) Option {
	return func(o *options) {
		o.bearerToken = token
	}
}

// WithHTTPClient swaps in a custom *http.Client, e.g. for custom transports
// or TLS configuration.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithTimeout sets the client's per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.httpClient.Timeout = d
	}
}

// WithHeader adds a header sent on every request.
func WithHeader(key, value string) Option {
	return func(o *options) {
		o.headers[key] = value
	}
}

func (o *options) applyHeaders(req *http.Request) {
	if o.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+o.bearerToken)
	}
	for k, v := range o.headers {
		req.Header.Set(k, v)
	}
}
