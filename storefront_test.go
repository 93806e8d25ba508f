package storefront_test

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront"
	"github.com/dmitrymomot/storefront/internal/catalog"
	"github.com/dmitrymomot/storefront/internal/config"
	"github.com/dmitrymomot/storefront/internal/tasks"
	"github.com/dmitrymomot/storefront/pkg/identity"
	"github.com/dmitrymomot/storefront/pkg/job"
	"github.com/dmitrymomot/storefront/pkg/password"
	"github.com/dmitrymomot/storefront/pkg/session"
	"github.com/dmitrymomot/storefront/pkg/storage"
)

type enqueued struct {
	payload any
	name    string
}

type recordingJobs struct {
	jobs []enqueued
	mu   sync.Mutex
}

func (r *recordingJobs) Enqueue(_ context.Context, name string, payload any, _ ...job.EnqueueOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, enqueued{name: name, payload: payload})
	return nil
}

type env struct {
	app      *storefront.App
	accounts *identity.MemoryStore
	products *catalog.MemoryRepository
	files    *storage.MemoryStorage
	jobs     *recordingJobs
	hasher   *password.Hasher
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.LoadFrom(map[string]string{
		"SESSION_SECRET":  "0123456789abcdef0123456789abcdef",
		"STORE_BACKEND":   config.BackendMemory,
		"SESSION_BACKEND": config.BackendRedis,
		"STORAGE_BACKEND": config.BackendMemory,
	})
	require.NoError(t, err)
	return cfg
}

func newEnv(t *testing.T) *env {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hasher, err := password.New(password.Params{
		Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16, MinLength: 8,
	})
	require.NoError(t, err)

	e := &env{
		accounts: identity.NewMemoryStore(),
		products: catalog.NewMemoryRepository(),
		files:    storage.NewMemoryStorage("http://localhost:3000/uploads"),
		jobs:     &recordingJobs{},
		hasher:   hasher,
	}
	e.app, err = storefront.New(testConfig(t), storefront.Deps{
		Accounts: e.accounts,
		Products: e.products,
		Sessions: session.NewRedisStore(client),
		Files:    e.files,
		Redis:    client,
		Jobs:     e.jobs,
		Hasher:   hasher,
		Uploads:  e.files,
	})
	require.NoError(t, err)
	return e
}

type browser struct {
	t       *testing.T
	app     http.Handler
	cookies map[string]*http.Cookie
	token   string
}

func newBrowser(t *testing.T, app http.Handler) *browser {
	return &browser{t: t, app: app, cookies: make(map[string]*http.Cookie)}
}

var csrfInput = regexp.MustCompile(`name="_csrf" value="([^"]+)"`)

func (b *browser) do(r *http.Request) *httptest.ResponseRecorder {
	b.t.Helper()
	for _, c := range b.cookies {
		r.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	rec := httptest.NewRecorder()
	b.app.ServeHTTP(rec, r)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	if m := csrfInput.FindStringSubmatch(rec.Body.String()); m != nil {
		b.token = m[1]
	}
	return rec
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	if form == nil {
		form = url.Values{}
	}
	if form.Get("_csrf") == "" && b.token != "" {
		form.Set("_csrf", b.token)
	}
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(r)
}

func (b *browser) postProduct(fields map[string]string, contentType string, image []byte) *httptest.ResponseRecorder {
	b.t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(b.t, mw.WriteField(k, v))
	}
	if image != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="photo"`)
		h.Set("Content-Type", contentType)
		pw, err := mw.CreatePart(h)
		require.NoError(b.t, err)
		_, err = pw.Write(image)
		require.NoError(b.t, err)
	}
	require.NoError(b.t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/admin/add-product", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return b.do(r)
}

func (b *browser) session() string {
	if c, ok := b.cookies["storefront.sid"]; ok {
		return c.Value
	}
	return ""
}

func (e *env) signupAndLogin(t *testing.T, b *browser, email string) {
	t.Helper()

	b.get("/signup")
	rec := b.post("/signup", url.Values{
		"name": {"Ada"}, "email": {email}, "password": {"correct horse"}, "confirmPassword": {"correct horse"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	require.Equal(t, "/login", rec.Header().Get("Location"))

	b.get("/login")
	rec = b.post("/login", url.Values{"email": {email}, "password": {"correct horse"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/", rec.Header().Get("Location"))

	// Login rotated the CSRF secret; pick up the new token.
	b.get("/")
}

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestNew_MissingDependencies(t *testing.T) {
	t.Parallel()

	_, err := storefront.New(testConfig(t), storefront.Deps{})
	require.ErrorIs(t, err, storefront.ErrMissingDependency)
}

func TestStorefront_BrowseAnonymously(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	b := newBrowser(t, e.app)

	rec := b.get("/")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "No Products Found!")
	require.Contains(t, rec.Body.String(), `href="/login"`)
	require.NotEmpty(t, b.session())
	require.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))
	require.Contains(t, rec.Header().Get("Content-Security-Policy"), "http://localhost:3000/uploads/")
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = b.get("/static/main.css")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/css")

	rec = b.get("/admin/add-product")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/login", rec.Header().Get("Location"))
	require.Contains(t, b.get("/login").Body.String(), "Please log in to continue.")
}

func TestStorefront_ErrorPages(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	b := newBrowser(t, e.app)

	rec := b.get("/nope")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "Page Not Found")

	rec = b.get("/products/does-not-exist")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "Product Not Found")

	rec = b.get("/500")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "Internal Server Error")

	b.get("/")
	rec = b.post("/logout", url.Values{"_csrf": {"forged"}})
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "Invalid CSRF token")
}

func TestStorefront_SignupAndLogin(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	b := newBrowser(t, e.app)

	b.get("/login")
	anonymous := b.session()
	e.signupAndLogin(t, b, "Ada@Example.com")

	require.NotEqual(t, anonymous, b.session(), "login rotates the session token")

	user, err := e.accounts.FindByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	require.NoError(t, e.hasher.Verify("correct horse", user.PasswordHash))

	require.Len(t, e.jobs.jobs, 1)
	require.Equal(t, tasks.SendWelcomeEmailName, e.jobs.jobs[0].name)
	require.Equal(t, tasks.WelcomePayload{Email: "ada@example.com", Name: "Ada"}, e.jobs.jobs[0].payload)

	rec := b.get("/")
	require.Contains(t, rec.Body.String(), `action="/logout"`)
	require.Contains(t, rec.Body.String(), "Ada")

	rec = b.post("/logout", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.NotContains(t, b.get("/").Body.String(), `action="/logout"`)
}

func TestStorefront_SignupRejections(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	b := newBrowser(t, e.app)
	e.signupAndLogin(t, b, "taken@example.com")
	b.post("/logout", nil)

	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{"mismatch", url.Values{"email": {"a@b.c"}, "password": {"longenough"}, "confirmPassword": {"different"}}, "Passwords have to match."},
		{"short", url.Values{"email": {"a@b.c"}, "password": {"short"}, "confirmPassword": {"short"}}, "at least 8 characters"},
		{"taken", url.Values{"email": {"taken@example.com"}, "password": {"longenough"}, "confirmPassword": {"longenough"}}, "E-Mail exists already"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b.get("/signup")
			rec := b.post("/signup", tt.form)
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			require.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestStorefront_LoginFailure(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	b := newBrowser(t, e.app)
	e.signupAndLogin(t, b, "ada@example.com")
	b.post("/logout", nil)

	for _, creds := range []url.Values{
		{"email": {"ada@example.com"}, "password": {"wrong password"}},
		{"email": {"nobody@example.com"}, "password": {"whatever1"}},
	} {
		b.get("/login")
		rec := b.post("/login", creds)
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/login", rec.Header().Get("Location"))
		require.Contains(t, b.get("/login").Body.String(), "Invalid email or password.")
	}
}

func TestStorefront_AddProduct(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	b := newBrowser(t, e.app)
	e.signupAndLogin(t, b, "seller@example.com")

	// Warm the listing cache so the new product has to invalidate it.
	require.Contains(t, b.get("/").Body.String(), "No Products Found!")

	b.get("/admin/add-product")
	rec := b.postProduct(map[string]string{
		"_csrf": b.token, "title": "Desk <b>Lamp</b>", "price": "19.99", "description": "A **bright** lamp",
	}, "image/png", pngBytes)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	require.Equal(t, "/admin/products", rec.Header().Get("Location"))
	require.Equal(t, 1, e.files.Len())

	rec = b.get("/admin/products")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Desk Lamp")
	require.Contains(t, rec.Body.String(), "$19.99")

	page, err := e.products.List(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	product := page.Products[0]
	require.Regexp(t, `^products/[0-9a-f-]{36}\.png$`, product.ImageKey)
	require.Equal(t, "http://localhost:3000/uploads/"+product.ImageKey, product.ImageURL)

	require.Contains(t, b.get("/").Body.String(), "Desk Lamp")

	rec = b.get("/products/" + product.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "<strong>bright</strong>")

	rec = b.get("/uploads/" + product.ImageKey)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, pngBytes, rec.Body.Bytes())
}

func TestStorefront_AddProductRejections(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	b := newBrowser(t, e.app)
	e.signupAndLogin(t, b, "seller@example.com")
	b.get("/admin/add-product")

	t.Run("missing csrf token stores nothing", func(t *testing.T) {
		rec := b.postProduct(map[string]string{"title": "Lamp", "price": "5"}, "image/png", pngBytes)
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Zero(t, e.files.Len())
	})

	t.Run("non-image is dropped", func(t *testing.T) {
		b.get("/admin/add-product")
		rec := b.postProduct(map[string]string{"_csrf": b.token, "title": "Doc", "price": "5"}, "application/pdf", []byte("%PDF-1.4"))
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Zero(t, e.files.Len())

		mine, err := e.products.ListByOwner(context.Background(), mustUserID(t, e, "seller@example.com"))
		require.NoError(t, err)
		require.Len(t, mine, 1)
		require.Empty(t, mine[0].ImageKey)
	})

	t.Run("bad price re-renders the form", func(t *testing.T) {
		b.get("/admin/add-product")
		rec := b.postProduct(map[string]string{"_csrf": b.token, "title": "Lamp", "price": "cheap"}, "", nil)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		require.Contains(t, rec.Body.String(), "Please enter a valid price.")
		require.Contains(t, rec.Body.String(), `value="Lamp"`)
	})
}

func mustUserID(t *testing.T, e *env, email string) string {
	t.Helper()
	u, err := e.accounts.FindByEmail(context.Background(), email)
	require.NoError(t, err)
	return u.ID
}

func TestStorefront_Metrics(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	b := newBrowser(t, e.app)
	b.get("/")
	b.post("/logout", url.Values{"_csrf": {"forged"}})

	body := b.get("/metrics").Body.String()
	require.Contains(t, body, `storefront_pipeline_outcomes_total{class="validation",outcome="fail",stage="csrf"}`)
	require.Contains(t, body, fmt.Sprintf(`storefront_pipeline_stage_duration_seconds_count{stage=%q}`, "session"))
}
