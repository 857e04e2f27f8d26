package wcs

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/afero"

	"github.com/informaticslab/bds-wcs/internal/core/executor"
)

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	modelFeed  string
	service    string
	version    string
	baseURL    string
	httpClient executor.Doer
	timeout    time.Duration
	userAgent  string
	logger     *slog.Logger
	fs         afero.Fs
}

// WithModelFeed selects the model feed, e.g. "UKPPBEST" or "EURO4".
func WithModelFeed(feed string) ClientOption {
	return func(c *clientConfig) {
		c.modelFeed = feed
	}
}

// WithService sets the service name and protocol version. Only WCS 1.0 is
// supported; anything else fails construction.
func WithService(service, version string) ClientOption {
	return func(c *clientConfig) {
		c.service = service
		c.version = version
	}
}

// WithBaseURL sets the service root the model feed is appended to.
func WithBaseURL(url string) ClientOption {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *clientConfig) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithDoer sets anything that can execute an *http.Request.
func WithDoer(d executor.Doer) ClientOption {
	return func(c *clientConfig) {
		c.httpClient = d
	}
}

// WithTimeout sets the default request timeout.
// Note: This option is ignored when WithHTTPClient or WithDoer is used.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.timeout = d
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *clientConfig) {
		c.userAgent = ua
	}
}

func WithLogger(l *slog.Logger) ClientOption {
	return func(c *clientConfig) {
		c.logger = l
	}
}

// WithFS sets the filesystem raw responses and coverage files are written
// to. Defaults to the OS filesystem.
func WithFS(fs afero.Fs) ClientOption {
	return func(c *clientConfig) {
		c.fs = fs
	}
}

// RequestOption configures individual requests.
type RequestOption func(*requestConfig)

type requestConfig struct {
	savePath  string
	stream    bool
	requestID string
}

func newRequestConfig(opts ...RequestOption) *requestConfig {
	r := &requestConfig{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithSavePath writes the raw XML response verbatim to path once it has
// decoded. Exception reports and malformed replies are not saved.
func WithSavePath(path string) RequestOption {
	return func(r *requestConfig) {
		r.savePath = path
	}
}

// WithStream leaves a GetCoverage body unread so it can be copied
// elsewhere without buffering it in memory.
func WithStream() RequestOption {
	return func(r *requestConfig) {
		r.stream = true
	}
}

// WithRequestID tags log lines of this request.
func WithRequestID(id string) RequestOption {
	return func(r *requestConfig) {
		r.requestID = id
	}
}
