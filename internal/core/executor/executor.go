// Package executor sends WCS requests upstream and hands back the raw response.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/informaticslab/bds-wcs/internal/core/observability"
	"github.com/informaticslab/bds-wcs/internal/core/ogc"
)

// Doer is satisfied by *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Response is an upstream reply whose body has not been read. The caller
// must close Body.
type Response struct {
	StatusCode  int
	ContentType string
	// URL is the effective request URL with the API key redacted.
	URL  string
	Body io.ReadCloser
}

type Executor struct {
	logger    *slog.Logger
	client    Doer
	endpoint  *url.URL
	userAgent string
	startNow  func() time.Time // for tests
}

func New(logger *slog.Logger, client Doer, endpoint, userAgent string) (*Executor, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("endpoint url %q must be absolute", endpoint)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Executor{
		logger:    logger,
		client:    client,
		endpoint:  u,
		userAgent: userAgent,
		startNow:  time.Now,
	}, nil
}

// Endpoint returns the service URL requests are sent to.
func (e *Executor) Endpoint() string { return e.endpoint.String() }

// RequestURL is the URL Fetch would send for params, key redacted.
func (e *Executor) RequestURL(params url.Values) string {
	return ogc.RedactURL(e.requestURL(params))
}

func (e *Executor) requestURL(params url.Values) *url.URL {
	u := *e.endpoint
	q := u.Query()
	for k, vs := range params {
		q[k] = vs
	}
	u.RawQuery = q.Encode()
	return &u
}

// Fetch sends a GET for the given WCS operation. Any status is returned as a
// Response; only failures to complete the exchange are errors.
func (e *Executor) Fetch(ctx context.Context, request string, params url.Values) (*Response, error) {
	u := e.requestURL(params)
	redactedURL := ogc.RedactURL(u)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}

	e.logger.DebugContext(ctx, "wcs request", "request", request, "url", redactedURL)

	start := e.startNow()
	resp, err := e.client.Do(req)
	if err != nil {
		// *url.Error repeats the full URL, key included.
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return nil, fmt.Errorf("do request: %w", err)
	}

	dur := time.Since(start)
	observability.ObserveUpstreamLatency(request, dur.Seconds())
	e.logger.DebugContext(ctx, "wcs response",
		"request", request,
		"status", resp.StatusCode,
		"content_type", resp.Header.Get("Content-Type"),
		"duration", dur.String())

	effective := redactedURL
	if resp.Request != nil && resp.Request.URL != nil {
		effective = ogc.RedactURL(resp.Request.URL)
	}
	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		URL:         effective,
		Body:        resp.Body,
	}, nil
}
