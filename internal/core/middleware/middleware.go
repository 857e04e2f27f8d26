// Package middleware defines RoundTripper middlewares for outbound WCS calls.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	mylog "github.com/informaticslab/bds-wcs/internal/logger"
)

const HeaderRequestID = "X-Request-ID"

// Func wraps a RoundTripper.
type Func func(http.RoundTripper) http.RoundTripper

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Chain applies mws so that the first one sees the request first.
func Chain(rt http.RoundTripper, mws ...Func) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	for i := len(mws) - 1; i >= 0; i-- {
		rt = mws[i](rt)
	}
	return rt
}

// RequestID forwards the context request id, minting one when absent.
func RequestID() Func {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if r.Header.Get(HeaderRequestID) != "" {
				return next.RoundTrip(r)
			}
			id := mylog.RequestIDFrom(r.Context())
			if id == "" {
				id = mylog.NewID()
			}
			r = r.Clone(mylog.WithRequestID(r.Context(), id))
			r.Header.Set(HeaderRequestID, id)
			return next.RoundTrip(r)
		})
	}
}

// Logging logs every exchange at debug level. The query string is left out
// since it carries the API key.
func Logging(l *slog.Logger) Func {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
			ctx := mylog.WithComponent(r.Context(), "http")
			start := time.Now()
			resp, err := next.RoundTrip(r)
			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("host", r.URL.Host),
				slog.String("path", r.URL.Path),
				slog.Duration("duration", time.Since(start)),
			}
			if err != nil {
				attrs = append(attrs, slog.String("err", err.Error()))
			} else {
				attrs = append(attrs, slog.Int("status", resp.StatusCode))
			}
			l.LogAttrs(ctx, slog.LevelDebug, "http round trip", attrs...)
			return resp, err
		})
	}
}
