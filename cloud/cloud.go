// Package cloud describes remote object-store access for scans.
//
// Options are opaque to the scan core: they are forwarded untouched to the
// path resolver (for listings) and to the schema probe (for object reads).
package cloud

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

var (
	// ErrInvalidURL indicates a remote path could not be split into bucket and key.
	ErrInvalidURL = errors.New("invalid object store url")

	// ErrUnsupportedScheme indicates a recognised remote scheme without a backend.
	ErrUnsupportedScheme = errors.New("unsupported object store scheme")
)

// remoteSchemes lists the URL schemes treated as remote object storage.
var remoteSchemes = []string{
	"s3", "s3a", "gs", "gcs", "az", "azure", "abfs", "abfss", "adl", "http", "https",
}

// Options carries credentials and client settings for remote object storage.
// The zero value means "use the ambient credential chain".
type Options struct {
	// Region is the bucket region (e.g., "eu-central-1").
	// OPTIONAL: falls back to the AWS default chain.
	Region string

	// Endpoint overrides the service endpoint (MinIO, LocalStack, R2...).
	// OPTIONAL.
	Endpoint string

	// AccessKeyID, SecretAccessKey and SessionToken are static credentials.
	// OPTIONAL: when AccessKeyID is empty the default chain is used.
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// ForcePathStyle requests path-style addressing (bucket in the path).
	ForcePathStyle bool

	// MaxRetries caps retry attempts of the SDK retryer. 0 keeps the SDK default.
	MaxRetries int
}

// LogValue implements slog.LogValuer so secrets never reach log output.
func (o *Options) LogValue() slog.Value {
	if o == nil {
		return slog.StringValue("<none>")
	}
	return slog.GroupValue(
		slog.String("region", o.Region),
		slog.String("endpoint", o.Endpoint),
		slog.Bool("static_credentials", o.AccessKeyID != ""),
		slog.Bool("path_style", o.ForcePathStyle),
	)
}

// URL is a parsed remote object location.
type URL struct {
	Scheme string
	Bucket string
	Key    string
}

// String renders the URL back as scheme://bucket/key.
func (u URL) String() string {
	if u.Key == "" {
		return u.Scheme + "://" + u.Bucket
	}
	return u.Scheme + "://" + u.Bucket + "/" + u.Key
}

// IsS3 reports whether the URL is served by the S3 backend.
func (u URL) IsS3() bool {
	return u.Scheme == "s3" || u.Scheme == "s3a"
}

// IsURL reports whether p refers to remote object storage.
// Only the string form is inspected; no network access happens.
func IsURL(p string) bool {
	scheme, _, ok := strings.Cut(p, "://")
	if !ok {
		return false
	}
	scheme = strings.ToLower(scheme)
	for _, s := range remoteSchemes {
		if scheme == s {
			return true
		}
	}
	return false
}

// Parse splits a remote path into scheme, bucket and key.
// The key keeps a trailing slash when one was given.
func Parse(p string) (URL, error) {
	if !IsURL(p) {
		return URL{}, fmt.Errorf("%w: %q", ErrInvalidURL, p)
	}
	scheme, rest, _ := strings.Cut(p, "://")
	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return URL{}, fmt.Errorf("%w: %q has no bucket", ErrInvalidURL, p)
	}
	return URL{Scheme: strings.ToLower(scheme), Bucket: bucket, Key: key}, nil
}
