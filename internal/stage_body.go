package internal

import (
	"errors"
	"maps"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/dmitrymomot/storefront/pkg/csrf"
)

// Body decoding limits.
const (
	DefaultMaxBodySize     int64 = 10 << 20
	DefaultMultipartMemory int64 = 8 << 20
)

// DecodeBodyConfig configures the decode_body stage.
type DecodeBodyConfig struct {
	MaxBodySize     int64
	MultipartMemory int64
}

// DecodeBody parses urlencoded and multipart bodies of unsafe requests.
// Multipart temp files are removed when the request finishes.
func DecodeBody(cfg DecodeBodyConfig) Stage {
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultMaxBodySize
	}
	if cfg.MultipartMemory <= 0 {
		cfg.MultipartMemory = DefaultMultipartMemory
	}

	return StageFunc("decode_body", func(c Context) Outcome {
		r := c.Request()
		if csrf.IsSafeMethod(r.Method) || r.Body == nil || r.Body == http.NoBody {
			return Continue()
		}

		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil {
			return Continue()
		}

		r.Body = http.MaxBytesReader(c.Response(), r.Body, cfg.MaxBodySize)

		switch mediaType {
		case "multipart/form-data":
			err = r.ParseMultipartForm(cfg.MultipartMemory)
			if mf := r.MultipartForm; mf != nil {
				if st := stateFrom(c.Context()); st != nil {
					// Later stages drop entries from mf.File; keep every part for removal.
					files := &multipart.Form{File: maps.Clone(mf.File)}
					st.onCleanup(func() { _ = files.RemoveAll() })
				}
			}
		case "application/x-www-form-urlencoded":
			err = r.ParseForm()
		default:
			return Continue()
		}

		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return Fail(ErrRequestTooLarge("Request body too large", WithError(err)))
			}
			return Fail(ErrBadRequest("Malformed request body", WithError(err)))
		}
		return Continue()
	})
}
