package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("valid config", func(t *testing.T) {
		t.Parallel()
		store, err := New(Config{
			AccessKey: "test-access-key",
			SecretKey: "test-secret-key",
		})
		require.NoError(t, err)
		require.NotNil(t, store.client)
		require.Equal(t, DefaultRegion, store.cfg.Region)
		require.Equal(t, DefaultBucket, store.cfg.Bucket)
		require.Equal(t, ACLPublicRead, store.cfg.DefaultACL)
	})

	t.Run("missing credentials", func(t *testing.T) {
		t.Parallel()
		store, err := New(Config{Bucket: "b"})
		require.ErrorIs(t, err, ErrInvalidConfig)
		require.Nil(t, store)
	})

	t.Run("unknown acl", func(t *testing.T) {
		t.Parallel()
		_, err := New(Config{AccessKey: "a", SecretKey: "s", DefaultACL: "world-writable"})
		require.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestS3Storage_URL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "default S3 URL",
			cfg:  Config{Bucket: "storefront", Region: "us-west-2"},
			want: "https://storefront.s3.us-west-2.amazonaws.com/a/b.jpg",
		},
		{
			name: "custom public URL with trailing slash",
			cfg:  Config{Bucket: "b", PublicURL: "https://cdn.example.com/"},
			want: "https://cdn.example.com/a/b.jpg",
		},
		{
			name: "custom endpoint path style",
			cfg:  Config{Bucket: "b", Endpoint: "http://localhost:9000", PathStyle: true},
			want: "http://localhost:9000/b/a/b.jpg",
		},
		{
			name: "custom endpoint virtual host style",
			cfg:  Config{Bucket: "b", Endpoint: "http://localhost:9000"},
			want: "http://localhost:9000/a/b.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := &S3Storage{cfg: tt.cfg}
			require.Equal(t, tt.want, store.URL("a/b.jpg"))
		})
	}
}

type capturedPut struct {
	header http.Header
	path   string
	body   []byte
}

func newFakeS3(t *testing.T, status int, respBody string) (*httptest.Server, *[]capturedPut) {
	t.Helper()

	var (
		mu   sync.Mutex
		puts []capturedPut
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		puts = append(puts, capturedPut{header: r.Header.Clone(), path: r.URL.Path, body: body})
		mu.Unlock()

		if respBody != "" {
			w.Header().Set("Content-Type", "application/xml")
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, respBody)
	}))
	t.Cleanup(srv.Close)
	return srv, &puts
}

func newTestS3(t *testing.T, endpoint string) *S3Storage {
	t.Helper()
	store, err := New(Config{
		Bucket:    "storefront",
		AccessKey: "key",
		SecretKey: "secret",
		Endpoint:  endpoint,
		PathStyle: true,
	})
	require.NoError(t, err)
	return store
}

func TestS3Storage_Put(t *testing.T) {
	t.Parallel()

	srv, puts := newFakeS3(t, http.StatusOK, "")
	store := newTestS3(t, srv.URL)

	payload := []byte("\x89PNG\r\n\x1a\nrest-of-image")
	info, err := store.Put(context.Background(), bytes.NewReader(payload), int64(len(payload)),
		WithPrefix("products"),
		WithContentType("image/png"),
		WithMetadata(map[string]string{"fieldName": "image"}),
	)
	require.NoError(t, err)
	require.Regexp(t, `^products/[0-9a-f-]{36}\.png$`, info.Key)
	require.Equal(t, srv.URL+"/storefront/"+info.Key, info.Location)
	require.Equal(t, ACLPublicRead, info.ACL)

	require.Len(t, *puts, 1)
	got := (*puts)[0]
	require.Equal(t, "/storefront/"+info.Key, got.path)
	require.Equal(t, "public-read", got.header.Get("X-Amz-Acl"))
	require.Equal(t, "image", got.header.Get("X-Amz-Meta-Fieldname"))
	require.Equal(t, "image/png", got.header.Get("Content-Type"))
}

func TestS3Storage_PutAccessDenied(t *testing.T) {
	t.Parallel()

	srv, _ := newFakeS3(t, http.StatusForbidden,
		`<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>denied</Message></Error>`)
	store := newTestS3(t, srv.URL)

	info, err := store.Put(context.Background(), strings.NewReader("data"), 4, WithContentType("image/png"))
	require.ErrorIs(t, err, ErrAccessDenied)
	require.Nil(t, info)
}

func TestS3Storage_PutEmpty(t *testing.T) {
	t.Parallel()

	store := newTestS3(t, "http://127.0.0.1:1")
	_, err := store.Put(context.Background(), strings.NewReader(""), 0)
	require.ErrorIs(t, err, ErrEmptyFile)
}

func TestMemoryStorage(t *testing.T) {
	t.Parallel()

	m := NewMemoryStorage("http://files.local/")
	info, err := m.Put(context.Background(), strings.NewReader("hello"), 5,
		WithContentType("text/plain; charset=utf-8"),
		WithMetadata(map[string]string{"fieldName": "image"}),
	)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(info.Key, ".txt"))
	require.Equal(t, "http://files.local/"+info.Key, info.Location)

	obj, ok := m.Object(info.Key)
	require.True(t, ok)
	require.Equal(t, "hello", string(obj.Data))
	require.Equal(t, "image", obj.Info.Metadata["fieldName"])
	require.Equal(t, 1, m.Len())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Put(ctx, strings.NewReader("x"), 1)
	require.ErrorIs(t, err, ErrUploadFailed)
	require.Equal(t, 1, m.Len())
}

func TestMemoryStorage_ServeHTTP(t *testing.T) {
	t.Parallel()

	m := NewMemoryStorage("http://localhost:3000/uploads")
	public, err := m.Put(context.Background(), strings.NewReader("png-bytes"), 9, WithContentType("image/png"))
	require.NoError(t, err)
	private, err := m.Put(context.Background(), strings.NewReader("secret"), 6, WithACL(ACLPrivate))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/"+public.Key, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	require.Equal(t, "png-bytes", rec.Body.String())

	rec = httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/"+private.Key, nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
