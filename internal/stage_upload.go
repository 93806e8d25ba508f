package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrymomot/storefront/pkg/storage"
)

// UploadField is the only multipart field that may carry a file.
const UploadField = "image"

const defaultUploadTimeout = 30 * time.Second

// AllowImageType reports whether a declared content type may be stored.
func AllowImageType(declared string) bool {
	switch storage.NormalizeMIME(declared) {
	case "image/png", "image/jpeg", "image/jpg":
		return true
	default:
		return false
	}
}

// UploadGate filters the multipart files of a request down to at most one accepted image.
// It performs no I/O; the accepted file is stored later by UploadStore.
func UploadGate() Stage {
	return StageFunc("upload_gate", func(c Context) Outcome {
		mf := c.Request().MultipartForm
		if mf == nil || len(mf.File) == 0 {
			return Continue()
		}

		for field := range mf.File {
			if field != UploadField {
				delete(mf.File, field)
			}
		}

		files := mf.File[UploadField]
		switch {
		case len(files) == 0:
			return Continue()
		case len(files) > 1:
			delete(mf.File, UploadField)
			return Fail(ErrBadRequest("Only one image may be uploaded"))
		}

		fh := files[0]
		if fh.Size == 0 {
			delete(mf.File, UploadField)
			return ContinueWith(ClassValidation, "empty upload dropped")
		}

		declared := fh.Header.Get("Content-Type")
		if !AllowImageType(declared) {
			delete(mf.File, UploadField)
			return ContinueWith(ClassValidation, fmt.Sprintf("upload type %q dropped", declared))
		}

		if st := stateFrom(c.Context()); st != nil {
			st.pending = fh
		}
		return Continue()
	})
}

// UploadStoreConfig configures the upload_store stage.
type UploadStoreConfig struct {
	Storage storage.Storage
	Prefix  string
	Timeout time.Duration
}

// UploadStore writes the pending upload to object storage and exposes its descriptor.
// A failed write fails the request so no handler sees a partial upload.
func UploadStore(cfg UploadStoreConfig) Stage {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultUploadTimeout
	}

	return StageFunc("upload_store", func(c Context) Outcome {
		st := stateFrom(c.Context())
		if st == nil || st.pending == nil {
			return Continue()
		}
		fh := st.pending
		st.pending = nil

		f, err := fh.Open()
		if err != nil {
			return Fail(ErrInternal("Upload failed", WithError(err)))
		}
		defer f.Close()

		ctx, cancel := context.WithTimeout(c.Context(), cfg.Timeout)
		defer cancel()

		contentType := storage.NormalizeMIME(fh.Header.Get("Content-Type"))
		info, err := cfg.Storage.Put(ctx, f, fh.Size,
			storage.WithPrefix(cfg.Prefix),
			storage.WithContentType(contentType),
			storage.WithACL(storage.ACLPublicRead),
			storage.WithMetadata(map[string]string{"fieldName": UploadField}),
		)
		if err != nil {
			return Fail(ErrInternal("Upload failed", WithError(err)))
		}

		st.upload = &Upload{
			FieldName:   UploadField,
			Filename:    fh.Filename,
			ContentType: contentType,
			Size:        fh.Size,
			Key:         info.Key,
			Location:    info.Location,
		}
		return Continue()
	})
}
