package storage

import "maps"

// Option configures Put operations.
type Option func(*putOptions)

type putOptions struct {
	metadata    map[string]string
	key         string // explicit key, replaces the generated one
	prefix      string // e.g. "products"
	contentType string // overrides detection
	acl         ACL
}

// WithKey sets an explicit storage key, replacing the generated uuid-based key.
func WithKey(key string) Option {
	return func(o *putOptions) {
		o.key = key
	}
}

// WithPrefix sets a path prefix for generated keys.
// Example: WithPrefix("products") results in "products/{uuid}.{ext}".
func WithPrefix(prefix string) Option {
	return func(o *putOptions) {
		o.prefix = prefix
	}
}

// WithContentType sets the content type instead of sniffing the payload.
func WithContentType(ct string) Option {
	return func(o *putOptions) {
		o.contentType = ct
	}
}

// WithACL overrides the default ACL for this upload.
func WithACL(acl ACL) Option {
	return func(o *putOptions) {
		o.acl = acl
	}
}

// WithMetadata attaches user metadata to the stored object.
// Repeated calls merge, later keys win.
func WithMetadata(md map[string]string) Option {
	return func(o *putOptions) {
		if o.metadata == nil {
			o.metadata = make(map[string]string, len(md))
		}
		maps.Copy(o.metadata, md)
	}
}

func applyOptions(defaultACL ACL, opts []Option) *putOptions {
	o := &putOptions{acl: defaultACL}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
