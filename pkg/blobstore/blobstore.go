// Package blobstore uploads coverage data to object storage. Buckets are
// addressed by URL: s3://bucket/prefix?region=eu-west-1, file:///dir or
// mem://.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/memblob"
	"gocloud.dev/blob/s3blob"
)

// DefaultRegion is used when neither the URL nor the caller names one.
const DefaultRegion = "eu-west-1"

var ErrUnsupportedScheme = errors.New("blobstore: unsupported bucket scheme")

// Store is an open bucket. It implements wcs.Uploader.
type Store struct {
	bucket *blob.Bucket
	name   string
	region string
	sess   *session.Session
}

// Open opens the bucket named by rawURL. defaultRegion applies to s3 URLs
// without a region query parameter.
func Open(ctx context.Context, rawURL, defaultRegion string) (*Store, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("blobstore: parse %q: %w", rawURL, err)
	}

	switch u.Scheme {
	case "s3":
		return openS3(ctx, u, defaultRegion)

	case "file":
		b, err := fileblob.OpenBucket(u.Path, &fileblob.Options{CreateDir: true})
		if err != nil {
			return nil, fmt.Errorf("blobstore: open %s: %w", u.Path, err)
		}
		return &Store{bucket: b, name: u.Path}, nil

	case "mem":
		return &Store{bucket: memblob.OpenBucket(nil), name: u.Host}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
}

func openS3(ctx context.Context, u *url.URL, defaultRegion string) (*Store, error) {
	if u.Host == "" {
		return nil, fmt.Errorf("blobstore: s3 url %q has no bucket name", u.String())
	}
	region := u.Query().Get("region")
	if region == "" {
		region = defaultRegion
	}
	if region == "" {
		region = DefaultRegion
	}

	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, fmt.Errorf("blobstore: aws session: %w", err)
	}
	b, err := s3blob.OpenBucket(ctx, sess, u.Host, nil)
	if err != nil {
		return nil, fmt.Errorf("blobstore: open s3 bucket %s: %w", u.Host, err)
	}
	if p := strings.Trim(u.Path, "/"); p != "" {
		b = blob.PrefixedBucket(b, p+"/")
	}
	return &Store{bucket: b, name: u.Host, region: region, sess: sess}, nil
}

// NewStore wraps an already open bucket.
func NewStore(b *blob.Bucket) *Store {
	return &Store{bucket: b}
}

// Upload streams r into key. If r fails part way the write is aborted and
// no object is left behind.
func (s *Store) Upload(ctx context.Context, key string, r io.Reader, contentType string) error {
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w, err := s.bucket.NewWriter(wctx, key, &blob.WriterOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("blobstore: open writer for %s: %w", key, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		cancel()
		_ = w.Close()
		return fmt.Errorf("blobstore: write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("blobstore: commit %s: %w", key, err)
	}
	return nil
}

// ReadAll returns the contents of key.
func (s *Store) ReadAll(ctx context.Context, key string) ([]byte, error) {
	return s.bucket.ReadAll(ctx, key)
}

// Exists reports whether key is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	return s.bucket.Exists(ctx, key)
}

// S3 returns an S3 API client for the bucket's session, or nil for
// non-s3 stores.
func (s *Store) S3() s3iface.S3API {
	if s.sess == nil {
		return nil
	}
	return s3.New(s.sess)
}

func (s *Store) Name() string { return s.name }

// Region is the AWS region of an s3 store, empty otherwise.
func (s *Store) Region() string { return s.region }

func (s *Store) Close() error { return s.bucket.Close() }

// CreateBucket creates name in region. A bucket the caller already owns is
// not an error.
func CreateBucket(ctx context.Context, api s3iface.S3API, name, region string) error {
	if region == "" {
		region = DefaultRegion
	}
	in := &s3.CreateBucketInput{Bucket: aws.String(name)}
	// us-east-1 is the implicit location and must not be sent.
	if region != "us-east-1" {
		in.CreateBucketConfiguration = &s3.CreateBucketConfiguration{
			LocationConstraint: aws.String(region),
		}
	}
	if _, err := api.CreateBucketWithContext(ctx, in); err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeBucketAlreadyOwnedByYou {
			return nil
		}
		return fmt.Errorf("blobstore: create bucket %s in %s: %w", name, region, err)
	}
	return nil
}
