// Package webhook performs the single outbound HTTP call a Worker makes
// for each claimed task, and classifies the result into a task.Outcome.
package webhook

import (
	"bytes"
	"context"
	"net/http"

	"github.com/torquehq/torque/internal/task"
)

// MaxRedirects bounds the number of redirects a delivery will follow
// before the attempt is classified as a transient failure.
const MaxRedirects = 5

// Result is the outcome of one delivery attempt.
type Result struct {
	Outcome    task.Outcome
	StatusCode *int
	Err        string
}

// Client delivers task payloads over HTTP.
type Client struct {
	http *http.Client
}

// New builds a Client whose underlying transport verifies TLS certificates
// (the zero-value TLSClientConfig never sets InsecureSkipVerify) and
// follows up to MaxRedirects redirects before giving up.
func New() *Client {
	return &Client{
		http: &http.Client{
			Transport: http.DefaultTransport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) > MaxRedirects {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// Deliver POSTs t.Body to t.URL, bounding the whole attempt (connect,
// redirects, response) to t.Timeout, and classifies the result.
func (c *Client) Deliver(ctx context.Context, t *task.Task) Result {
	ctx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.URL, bytes.NewReader(t.Body))
	if err != nil {
		return Result{Outcome: task.OutcomeFailed, Err: err.Error()}
	}

	for k, v := range t.Headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Task-Id", t.ID)

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{Outcome: task.ClassifyTransportError(err), Err: err.Error()}
	}
	defer resp.Body.Close()

	code := resp.StatusCode
	result := Result{StatusCode: &code}

	if redirectExhausted(resp) {
		// CheckRedirect declined to follow past MaxRedirects and handed
		// back the redirect response itself; the target never gave a
		// definitive answer, so this is transient, not a permanent 3xx
		// failure.
		result.Outcome = task.OutcomeRetry
		result.Err = "redirect limit exceeded"
		return result
	}

	result.Outcome = task.ClassifyStatusCode(code)
	if result.Outcome != task.OutcomeCompleted {
		result.Err = http.StatusText(code)
	}
	return result
}

// redirectExhausted reports whether resp represents a redirect response
// CheckRedirect declined to follow because MaxRedirects was hit.
func redirectExhausted(resp *http.Response) bool {
	if resp == nil {
		return false
	}
	switch resp.StatusCode {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	default:
		return false
	}
}
