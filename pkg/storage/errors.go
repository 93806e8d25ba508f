package storage

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// Sentinel errors for storage operations.
var (
	ErrInvalidConfig = errors.New("storage: invalid configuration")
	ErrEmptyFile     = errors.New("storage: file is empty")
	ErrAccessDenied  = errors.New("storage: access denied")
	ErrUploadFailed  = errors.New("storage: upload failed")
	ErrUnreachable   = errors.New("storage: bucket unreachable")
)

// wrapS3Error normalizes S3 errors to sentinel errors.
// The original error is formatted with %v so callers match on sentinels only.
func wrapS3Error(err error, fallback error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "Forbidden":
			return fmt.Errorf("%w: %v", ErrAccessDenied, err)
		}
	}
	return fmt.Errorf("%w: %v", fallback, err)
}
