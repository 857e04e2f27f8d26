package wcs

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"

	"github.com/informaticslab/bds-wcs/internal/core/observability"
	"github.com/informaticslab/bds-wcs/internal/core/ogc"
)

// FormatNetCDF3 is the format LoadCoverage always requests.
const FormatNetCDF3 = "NetCDF3"

// Uploader writes one object to blob storage.
type Uploader interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) error
}

// Loader turns a coverage file into an in-memory dataset.
type Loader[T any] interface {
	Load(fs afero.Fs, path string) (T, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc[T any] func(fs afero.Fs, path string) (T, error)

func (f LoaderFunc[T]) Load(fs afero.Fs, path string) (T, error) { return f(fs, path) }

// WriteCoverage streams coverage data to path on the client's filesystem
// and returns the number of bytes written. A partial file is removed.
func (c *Client) WriteCoverage(ctx context.Context, name string, q Query, path string, opts ...RequestOption) (int64, error) {
	resp, err := c.GetCoverage(ctx, name, q, append(opts, WithStream())...)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Close() }()

	if dir := filepath.Dir(path); dir != "." {
		if err := c.fs.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("wcs: create %s: %w", dir, err)
		}
	}
	f, err := c.fs.Create(path)
	if err != nil {
		return 0, fmt.Errorf("wcs: create %s: %w", path, err)
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = c.fs.Remove(path)
		return n, &Error{Kind: KindTransport, Op: ogc.RequestGetCoverage, Msg: "write coverage to " + path, URL: resp.URL, Err: err}
	}
	observability.AddPayloadBytes(ogc.RequestGetCoverage, "file", n)
	c.logger.InfoContext(c.ctx(ctx, ogc.RequestGetCoverage, name, nil), "coverage written", "path", path, "bytes", n)
	return n, nil
}

// StreamCoverageToBucket streams coverage data straight into object key
// through up, without touching local disk.
func (c *Client) StreamCoverageToBucket(ctx context.Context, name string, q Query, up Uploader, key string, opts ...RequestOption) (int64, error) {
	if up == nil {
		return 0, validationErr("upload", "an uploader is required")
	}
	if strings.TrimSpace(key) == "" {
		return 0, validationErr("upload", "object key must not be empty")
	}
	resp, err := c.GetCoverage(ctx, name, q, append(opts, WithStream())...)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Close() }()

	cr := &countingReader{r: resp.Body}
	if err := up.Upload(ctx, key, cr, resp.ContentType); err != nil {
		return cr.n, &Error{Kind: KindTransport, Op: ogc.RequestGetCoverage, Msg: "upload coverage to " + key, URL: resp.URL, Err: err}
	}
	observability.AddPayloadBytes(ogc.RequestGetCoverage, "bucket", cr.n)
	c.logger.InfoContext(c.ctx(ctx, ogc.RequestGetCoverage, name, nil), "coverage uploaded", "key", key, "bytes", cr.n)
	return cr.n, nil
}

// LoadCoverage fetches coverage data as NetCDF3 into a temporary file, hands
// it to loader and removes the file afterwards. Any FORMAT in q is
// overridden.
func LoadCoverage[T any](ctx context.Context, c *Client, name string, q Query, loader Loader[T], opts ...RequestOption) (T, error) {
	var zero T
	if loader == nil {
		return zero, validationErr("load", "a loader is required")
	}
	q = q.Clone()
	q[KeyFormat] = FormatNetCDF3

	path, err := tempCoverageFile(c.fs, name, q)
	if err != nil {
		return zero, fmt.Errorf("wcs: create temp file: %w", err)
	}
	defer func() { _ = c.fs.Remove(path) }()
	if _, err := c.WriteCoverage(ctx, name, q, path, opts...); err != nil {
		return zero, err
	}

	v, err := loader.Load(c.fs, path)
	if err != nil {
		return zero, fmt.Errorf("wcs: load %s: %w", path, err)
	}
	return v, nil
}

// tempCoverageFile creates an empty file named after the coverage and a hash
// of the query, with a random suffix so every call gets its own file.
func tempCoverageFile(fs afero.Fs, name string, q Query) (string, error) {
	h := xxhash.New()
	_, _ = h.WriteString(name)
	for _, k := range q.Keys() {
		_, _ = h.WriteString("&" + k + "=" + q[k])
	}
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, name)
	f, err := afero.TempFile(fs, afero.GetTempDir(fs, "bds-wcs"), fmt.Sprintf("%s-%016x-*.nc", safe, h.Sum64()))
	if err != nil {
		return "", err
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		_ = fs.Remove(path)
		return "", err
	}
	return path, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
