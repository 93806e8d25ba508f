package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Storage implements Storage using S3-compatible object storage.
type S3Storage struct {
	client *s3.Client
	cfg    Config
}

// New creates a new S3Storage with the given configuration.
func New(cfg Config) (*S3Storage, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	opts := []func(*s3.Options){
		func(o *s3.Options) {
			o.Region = cfg.Region
			o.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		},
	}
	if cfg.Endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.PathStyle
		})
	}

	return &S3Storage{
		client: s3.New(s3.Options{}, opts...),
		cfg:    cfg,
	}, nil
}

// Put uploads data from a reader to S3.
// The object is readable through the returned Location only after PutObject succeeded.
func (s *S3Storage) Put(ctx context.Context, r io.Reader, size int64, opts ...Option) (*FileInfo, error) {
	if size <= 0 {
		return nil, ErrEmptyFile
	}
	o := applyOptions(s.cfg.DefaultACL, opts)

	var (
		contentType = NormalizeMIME(o.contentType)
		body        io.ReadSeeker
	)
	if contentType != "" {
		rs, err := seekable(r)
		if err != nil {
			return nil, fmt.Errorf("storage: read input: %w", err)
		}
		body = rs
	} else {
		contentType, body = detectMIMEWithReader(r)
	}

	key := o.key
	if key == "" {
		key = NewKey(o.prefix, contentType)
	}

	acl := types.ObjectCannedACLPrivate
	if o.acl == ACLPublicRead {
		acl = types.ObjectCannedACLPublicRead
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		ACL:           acl,
		Metadata:      o.metadata,
	})
	if err != nil {
		return nil, wrapS3Error(err, ErrUploadFailed)
	}

	return &FileInfo{
		Key:         key,
		Location:    s.URL(key),
		Size:        size,
		ContentType: contentType,
		ACL:         o.acl,
		Metadata:    o.metadata,
	}, nil
}

// URL returns the public URL of the object.
func (s *S3Storage) URL(key string) string {
	if s.cfg.PublicURL != "" {
		return strings.TrimSuffix(s.cfg.PublicURL, "/") + "/" + key
	}

	if s.cfg.Endpoint != "" {
		endpoint := strings.TrimSuffix(s.cfg.Endpoint, "/")
		if s.cfg.PathStyle {
			return fmt.Sprintf("%s/%s/%s", endpoint, s.cfg.Bucket, key)
		}
		return fmt.Sprintf("%s/%s", endpoint, key)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, key)
}

// Ping checks that the bucket is reachable with the configured credentials.
func (s *S3Storage) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.cfg.Bucket)})
	if err != nil {
		return wrapS3Error(err, ErrUnreachable)
	}
	return nil
}

// Healthcheck returns a readiness probe for the bucket.
func Healthcheck(s *S3Storage) func(context.Context) error {
	return s.Ping
}

var _ Storage = (*S3Storage)(nil)
