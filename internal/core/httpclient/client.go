// Package httpclient configures the HTTP client used to call the coverage service.
package httpclient

import (
	"net"
	"net/http"
	"time"

	"github.com/informaticslab/bds-wcs/internal/core/middleware"
)

// NewOutbound creates the outbound client with mws wrapped around its
// transport. timeout bounds the whole exchange including reading the body;
// zero means no limit.
func NewOutbound(timeout time.Duration, mws ...middleware.Func) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          16,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: timeout,
	}
	return &http.Client{
		Transport: middleware.Chain(transport, mws...),
		Timeout:   timeout,
	}
}
