// Package integration holds the HTTP clients for the external document
// Q&A, report upload and medication summary services.
package integration

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/echocare/caregiver-api/pkg/metrics"
)

// ErrNotConfigured is returned when the service URL is empty.
var ErrNotConfigured = errors.New("service url is not configured")

// StatusError is a non-2xx reply from an external service.
type StatusError struct {
	Service string
	Code    int
	Status  string
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s request failed: %s", e.Service, e.Status)
}

type Option func(*base)

func WithHTTPClient(c *http.Client) Option {
	return func(b *base) { b.client = c }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *base) { b.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(b *base) { b.now = now }
}

type base struct {
	service string
	url     string
	client  *http.Client
	metrics *metrics.Metrics
	now     func() time.Time
}

func newBase(service, url string, opts []Option) base {
	b := base{
		service: service,
		url:     url,
		client:  &http.Client{Timeout: 15 * time.Second},
		now:     time.Now,
	}
	for _, o := range opts {
		o(&b)
	}
	return b
}

func (b *base) Configured() bool {
	return b.url != ""
}

// do sends req and returns the body of a 2xx reply along with whether it
// was declared as JSON.
func (b *base) do(req *http.Request) ([]byte, bool, error) {
	resp, err := b.client.Do(req)
	if err != nil {
		b.metrics.ExternalCall(b.service, "error")
		return nil, false, fmt.Errorf("failed to call %s: %w", b.service, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		b.metrics.ExternalCall(b.service, "error")
		return nil, false, fmt.Errorf("failed to read %s response: %w", b.service, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b.metrics.ExternalCall(b.service, "failed")
		return nil, false, &StatusError{
			Service: b.service,
			Code:    resp.StatusCode,
			Status:  resp.Status,
			Body:    truncate(string(body), 100),
		}
	}

	b.metrics.ExternalCall(b.service, "ok")
	return body, isJSON(resp.Header.Get("Content-Type")), nil
}

func (b *base) timestamp() string {
	return b.now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(contentType, "application/json")
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// stringField returns the first non-empty string value among keys.
func stringField(obj map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		raw, ok := obj[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
	}
	return ""
}
