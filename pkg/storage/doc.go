// Package storage provides S3-compatible object storage for uploaded files.
//
// Keys are generated from a random UUID and the declared content type, never from
// client-supplied filenames:
//
//	store, err := storage.New(storage.Config{
//		Bucket:    "storefront",
//		Region:    "us-west-2",
//		AccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
//		SecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
//	})
//
//	info, err := store.Put(ctx, file, fh.Size,
//		storage.WithContentType("image/png"),
//		storage.WithACL(storage.ACLPublicRead),
//		storage.WithMetadata(map[string]string{"fieldName": "image"}),
//	)
//	// info.Key      = "3f0c...-....png"
//	// info.Location = "https://storefront.s3.us-west-2.amazonaws.com/3f0c...png"
//
// # Configuration
//
// Config carries env tags for caarlos0/env:
//
//	S3_BUCKET              bucket name (default: storefront)
//	S3_REGION              region (default: us-west-2)
//	AWS_ACCESS_KEY_ID      access key
//	AWS_SECRET_ACCESS_KEY  secret key
//	S3_ENDPOINT            custom endpoint for MinIO and friends
//	S3_PUBLIC_URL          CDN prefix for public URLs
//	S3_DEFAULT_ACL         private or public-read (default: public-read)
//	S3_PATH_STYLE          path-style addressing
//
// [MemoryStorage] implements the same interface for development and tests.
package storage
