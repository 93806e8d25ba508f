package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"maps"
	"net/http"
	"strconv"
	"strings"
	"sync"
)

// Object is a stored object held by MemoryStorage.
type Object struct {
	Info FileInfo
	Data []byte
}

// MemoryStorage keeps objects in process memory. It is meant for local development and tests.
type MemoryStorage struct {
	objects map[string]Object
	baseURL string
	mu      sync.RWMutex
}

// NewMemoryStorage creates an empty store serving locations under baseURL.
func NewMemoryStorage(baseURL string) *MemoryStorage {
	return &MemoryStorage{
		objects: make(map[string]Object),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// Put implements Storage.
func (m *MemoryStorage) Put(ctx context.Context, r io.Reader, size int64, opts ...Option) (*FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if size <= 0 {
		return nil, ErrEmptyFile
	}
	o := applyOptions(ACLPublicRead, opts)

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	contentType := NormalizeMIME(o.contentType)
	if contentType == "" {
		contentType, _ = detectMIMEWithReader(bytes.NewReader(data))
	}

	key := o.key
	if key == "" {
		key = NewKey(o.prefix, contentType)
	}

	info := FileInfo{
		Key:         key,
		Location:    m.URL(key),
		ContentType: contentType,
		ACL:         o.acl,
		Size:        int64(len(data)),
		Metadata:    maps.Clone(o.metadata),
	}

	m.mu.Lock()
	m.objects[key] = Object{Info: info, Data: data}
	m.mu.Unlock()

	return &info, nil
}

// URL implements Storage.
func (m *MemoryStorage) URL(key string) string {
	return m.baseURL + "/" + key
}

// Object returns a stored object by key.
func (m *MemoryStorage) Object(key string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj, ok
}

// Len returns the number of stored objects.
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

// ServeHTTP serves public objects by key, the path being relative to the mount point.
func (m *MemoryStorage) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	obj, ok := m.Object(strings.TrimPrefix(r.URL.Path, "/"))
	if !ok || obj.Info.ACL != ACLPublicRead {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", obj.Info.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(obj.Data)))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	_, _ = w.Write(obj.Data)
}

var _ Storage = (*MemoryStorage)(nil)
