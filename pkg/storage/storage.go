package storage

import (
	"context"
	"io"
)

// Storage defines the object storage operations used by the upload pipeline.
type Storage interface {
	// Put uploads data from a reader to storage.
	// The size parameter is used for the content-length header.
	// Options can customize key, prefix, ACL, content type and object metadata.
	Put(ctx context.Context, r io.Reader, size int64, opts ...Option) (*FileInfo, error)

	// URL returns the public location of an object.
	URL(key string) string
}

// Config holds S3-compatible storage configuration.
type Config struct {
	// Bucket is the S3 bucket name.
	Bucket string `env:"S3_BUCKET" envDefault:"storefront"`

	// AccessKey is the AWS access key ID (required).
	AccessKey string `env:"AWS_ACCESS_KEY_ID"`

	// SecretKey is the AWS secret access key (required).
	SecretKey string `env:"AWS_SECRET_ACCESS_KEY"`

	// Endpoint is the custom S3 endpoint URL (optional, for MinIO or other S3-compatible services).
	Endpoint string `env:"S3_ENDPOINT"`

	// Region is the AWS region.
	Region string `env:"S3_REGION" envDefault:"us-west-2"`

	// PublicURL is the CDN or public URL prefix for public files (optional).
	// If set, public URLs will use this prefix instead of the S3 URL.
	PublicURL string `env:"S3_PUBLIC_URL"`

	// DefaultACL is the default ACL for uploaded files.
	DefaultACL ACL `env:"S3_DEFAULT_ACL" envDefault:"public-read"`

	// PathStyle enables path-style URLs (required for MinIO).
	PathStyle bool `env:"S3_PATH_STYLE" envDefault:"false"`
}

// FileInfo describes a stored object.
type FileInfo struct {
	Metadata map[string]string

	// Key is the storage key (path) for the file.
	Key string

	// Location is the public URL of the object.
	Location string

	// ContentType is the declared or detected MIME type.
	ContentType string

	// ACL is the access control setting.
	ACL ACL

	// Size is the file size in bytes.
	Size int64
}

// ACL represents access control levels for stored files.
type ACL string

const (
	// ACLPrivate makes the file accessible only to the bucket owner.
	ACLPrivate ACL = "private"

	// ACLPublicRead makes the file publicly readable.
	ACLPublicRead ACL = "public-read"
)

// Default configuration values.
const (
	DefaultRegion = "us-west-2"
	DefaultBucket = "storefront"
)

// applyDefaults fills in default values for empty config fields.
func (c *Config) applyDefaults() {
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	if c.Bucket == "" {
		c.Bucket = DefaultBucket
	}
	if c.DefaultACL == "" {
		c.DefaultACL = ACLPublicRead
	}
}

// validate checks that required configuration fields are set.
func (c *Config) validate() error {
	if c.AccessKey == "" || c.SecretKey == "" {
		return ErrInvalidConfig
	}
	switch c.DefaultACL {
	case ACLPrivate, ACLPublicRead:
	default:
		return ErrInvalidConfig
	}
	return nil
}
