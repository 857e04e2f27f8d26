// Package wcs is a client for the Met Office beta data services, which
// publish model output over OGC Web Coverage Service 1.0.
//
// Basic usage:
//
//	client, err := wcs.NewClient(apiKey, wcs.WithModelFeed("UKPPBEST"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	covs, err := client.GetCapabilities(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cov, err := client.DescribeCoverage(ctx, covs.Names()[0])
//	...
//	q, err := wcs.BuildQuery(wcs.Params{Format: "NetCDF3", BBox: []any{-5, 50, 2, 56}})
//	resp, err := client.GetCoverage(ctx, cov.Name, q)
package wcs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/informaticslab/bds-wcs/internal/core/config"
	"github.com/informaticslab/bds-wcs/internal/core/executor"
	"github.com/informaticslab/bds-wcs/internal/core/httpclient"
	"github.com/informaticslab/bds-wcs/internal/core/middleware"
	"github.com/informaticslab/bds-wcs/internal/core/observability"
	"github.com/informaticslab/bds-wcs/internal/core/ogc"
	"github.com/informaticslab/bds-wcs/internal/logger"
)

const defaultTimeout = 60 * time.Second

// errorBodyLimit bounds how much of an XML error payload is read.
const errorBodyLimit = 1 << 20

// ModelFeeds lists the model feeds the service publishes.
func ModelFeeds() []string { return slices.Clone(config.ModelFeeds) }

// Client issues WCS requests against one model feed. It holds no mutable
// state and may be shared.
type Client struct {
	feed    string
	svc     ogc.Service
	exec    *executor.Executor
	logger  *slog.Logger
	fs      afero.Fs
	decoder *Decoder
}

// NewClient validates the feed and protocol and returns a ready client.
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	cfg := &clientConfig{
		modelFeed: config.DefaultModelFeed,
		service:   config.DefaultService,
		version:   config.DefaultVersion,
		baseURL:   config.DefaultBaseURL,
		timeout:   defaultTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if strings.TrimSpace(apiKey) == "" {
		return nil, configErr("an API key is required")
	}
	if !slices.Contains(config.ModelFeeds, cfg.modelFeed) {
		return nil, configErr("%q is not a valid model feed; valid feeds are %s",
			cfg.modelFeed, strings.Join(config.ModelFeeds, ", "))
	}
	if cfg.service != config.DefaultService {
		return nil, configErr("%q is not a valid service; only %s is supported", cfg.service, config.DefaultService)
	}
	if cfg.version != config.DefaultVersion {
		return nil, configErr("%q is not a valid version; only %s is supported", cfg.version, config.DefaultVersion)
	}

	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.fs == nil {
		cfg.fs = afero.NewOsFs()
	}
	if cfg.httpClient == nil {
		cfg.httpClient = httpclient.NewOutbound(cfg.timeout,
			middleware.RequestID(),
			middleware.Logging(cfg.logger))
	}

	endpoint := ogc.ServiceEndpoint(cfg.baseURL, cfg.modelFeed)
	exec, err := executor.New(cfg.logger, cfg.httpClient, endpoint, cfg.userAgent)
	if err != nil {
		return nil, &Error{Kind: KindConfiguration, Msg: "invalid base URL", Err: err}
	}

	return &Client{
		feed:    cfg.modelFeed,
		svc:     ogc.Service{APIKey: apiKey, Name: cfg.service, Version: cfg.version},
		exec:    exec,
		logger:  cfg.logger,
		fs:      cfg.fs,
		decoder: &Decoder{Logger: cfg.logger},
	}, nil
}

func (c *Client) ModelFeed() string { return c.feed }

// Endpoint returns the feed URL requests are sent to.
func (c *Client) Endpoint() string { return c.exec.Endpoint() }

// ValidateAPIKey sends the base parameters alone and reports whether the
// key was accepted. Only the status is checked; the body is not read.
func (c *Client) ValidateAPIKey(ctx context.Context) error {
	const op = "ValidateAPIKey"
	ctx = c.ctx(ctx, op, "", nil)
	resp, err := c.fetch(ctx, op, ogc.BaseParams(c.svc))
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	c.observe(op, nil)
	return nil
}

// GetCapabilities lists every coverage of the model feed. The coverages
// carry only name, label and bbox.
func (c *Client) GetCapabilities(ctx context.Context, opts ...RequestOption) (*CoverageList, error) {
	rc := newRequestConfig(opts...)
	ctx = c.ctx(ctx, ogc.RequestGetCapabilities, "", rc)
	body, u, err := c.fetchXML(ctx, ogc.RequestGetCapabilities, "")
	if err != nil {
		return nil, err
	}
	covs, err := c.decoder.DecodeCapabilities(body)
	c.observe(ogc.RequestGetCapabilities, err)
	if err != nil {
		return nil, withURL(err, ogc.RequestGetCapabilities, u)
	}
	if err := c.save(ctx, ogc.RequestGetCapabilities, rc, body); err != nil {
		return nil, err
	}
	c.logger.DebugContext(ctx, "capabilities decoded", "coverages", covs.Len())
	return covs, nil
}

// DescribeCoverage returns the full description of one coverage.
func (c *Client) DescribeCoverage(ctx context.Context, name string, opts ...RequestOption) (*Coverage, error) {
	if strings.TrimSpace(name) == "" {
		return nil, validationErr(ogc.RequestDescribeCoverage, "coverage name must not be empty")
	}
	rc := newRequestConfig(opts...)
	ctx = c.ctx(ctx, ogc.RequestDescribeCoverage, name, rc)
	body, u, err := c.fetchXML(ctx, ogc.RequestDescribeCoverage, name)
	if err != nil {
		return nil, err
	}
	cov, err := c.decoder.DecodeDescribeCoverage(body)
	c.observe(ogc.RequestDescribeCoverage, err)
	if err != nil {
		return nil, withURL(err, ogc.RequestDescribeCoverage, u)
	}
	if err := c.save(ctx, ogc.RequestDescribeCoverage, rc, body); err != nil {
		return nil, err
	}
	return cov, nil
}

// CoverageResponse is a successful GetCoverage reply. Body must be closed.
type CoverageResponse struct {
	StatusCode  int
	ContentType string
	URL         string
	Body        io.ReadCloser
}

func (r *CoverageResponse) Close() error {
	if r == nil || r.Body == nil {
		return nil
	}
	return r.Body.Close()
}

// GetCoverage requests coverage data. q is normally built with BuildQuery.
// The service signals failures as XML even with status 200, so an XML reply
// is always returned as an error.
func (c *Client) GetCoverage(ctx context.Context, name string, q Query, opts ...RequestOption) (*CoverageResponse, error) {
	const op = ogc.RequestGetCoverage
	if strings.TrimSpace(name) == "" {
		return nil, validationErr(op, "coverage name must not be empty")
	}
	if err := q.validate(); err != nil {
		return nil, err
	}
	rc := newRequestConfig(opts...)
	ctx = c.ctx(ctx, op, name, rc)

	resp, err := c.fetch(ctx, op, c.params(op, name, q.Values()))
	if err != nil {
		return nil, err
	}

	if isXML(resp.ContentType) {
		defer func() { _ = resp.Body.Close() }()
		body, rerr := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		if rerr != nil {
			c.observe(op, &Error{Kind: KindTransport})
			return nil, &Error{Kind: KindTransport, Op: op, Msg: "read response body", URL: resp.URL, Err: rerr}
		}
		err := c.decoder.CheckException(body)
		if err == nil {
			err = &Error{Kind: KindMalformedResponse, Msg: "returned an XML file but format not recognised", Payload: body}
		}
		c.observe(op, err)
		return nil, withURL(err, op, resp.URL)
	}

	out := &CoverageResponse{
		StatusCode:  resp.StatusCode,
		ContentType: resp.ContentType,
		URL:         resp.URL,
		Body:        resp.Body,
	}
	if !rc.stream {
		defer func() { _ = resp.Body.Close() }()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			c.observe(op, &Error{Kind: KindTransport})
			return nil, &Error{Kind: KindTransport, Op: op, Msg: "read response body", URL: resp.URL, Err: err}
		}
		out.Body = io.NopCloser(bytes.NewReader(data))
	}
	c.observe(op, nil)
	c.logger.DebugContext(ctx, "coverage response", "content_type", resp.ContentType, "stream", rc.stream)
	return out, nil
}

func (c *Client) params(request, coverage string, extra url.Values) url.Values {
	return ogc.BuildParams(c.svc, request, coverage, extra)
}

func (c *Client) ctx(ctx context.Context, request, coverage string, rc *requestConfig) context.Context {
	ctx = logger.WithRequest(ctx, request)
	ctx = logger.WithCoverage(ctx, coverage)
	if rc != nil && rc.requestID != "" {
		ctx = logger.WithRequestID(ctx, rc.requestID)
	}
	return ctx
}

// fetch sends the request and turns any status other than 200 into a
// transport error.
func (c *Client) fetch(ctx context.Context, request string, params url.Values) (*executor.Response, error) {
	resp, err := c.exec.Fetch(ctx, request, params)
	if err != nil {
		observability.ObserveRequest(request, observability.OutcomeTransport)
		return nil, &Error{Kind: KindTransport, Op: request, Msg: "request failed", URL: c.exec.RequestURL(params), Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		observability.ObserveRequest(request, observability.OutcomeTransport)
		c.logger.WarnContext(ctx, "unexpected status", "status", resp.StatusCode)
		return nil, &Error{Kind: KindTransport, Op: request, Msg: statusMessage(resp.StatusCode), StatusCode: resp.StatusCode, URL: resp.URL}
	}
	return resp, nil
}

// fetchXML returns the whole body of a capabilities or describe request.
func (c *Client) fetchXML(ctx context.Context, request, coverage string) ([]byte, string, error) {
	resp, err := c.fetch(ctx, request, c.params(request, coverage, nil))
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		observability.ObserveRequest(request, observability.OutcomeTransport)
		return nil, "", &Error{Kind: KindTransport, Op: request, Msg: "read response body", URL: resp.URL, Err: err}
	}
	return body, resp.URL, nil
}

// save writes a decoded response verbatim when WithSavePath was given.
func (c *Client) save(ctx context.Context, request string, rc *requestConfig, body []byte) error {
	if rc.savePath == "" {
		return nil
	}
	if err := afero.WriteFile(c.fs, rc.savePath, body, 0o644); err != nil {
		return fmt.Errorf("wcs: save %s response to %s: %w", request, rc.savePath, err)
	}
	observability.AddPayloadBytes(request, "file", int64(len(body)))
	c.logger.InfoContext(ctx, "saved raw response", "path", rc.savePath, "bytes", len(body))
	return nil
}

func (c *Client) observe(request string, err error) {
	outcome := observability.OutcomeTransport
	switch {
	case err == nil:
		outcome = observability.OutcomeOK
	case KindOf(err) == KindProtocol:
		outcome = observability.OutcomeProtocol
	case KindOf(err) == KindMalformedResponse:
		outcome = observability.OutcomeMalformed
	}
	observability.ObserveRequest(request, outcome)
}

func statusMessage(code int) string {
	switch code {
	case http.StatusForbidden:
		return "request forbidden; this is likely due to an incorrect API key, but sometimes the server is temporarily unavailable"
	case http.StatusNotFound:
		return "server not found"
	default:
		return fmt.Sprintf("%d Error", code)
	}
}

// isXML reports whether a Content-Type names an XML document.
func isXML(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "text/xml" || mt == "application/xml" || strings.HasSuffix(mt, "+xml")
}

// withURL stamps the operation and request URL on a decoder error.
func withURL(err error, op, u string) error {
	e, ok := err.(*Error)
	if !ok {
		return err
	}
	if e.Op == "" {
		e.Op = op
	}
	if e.URL == "" {
		e.URL = u
	}
	return e
}
