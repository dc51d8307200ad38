package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuptia/admin/internal/backend"
	"github.com/nuptia/admin/internal/config"
	"github.com/nuptia/admin/internal/couple"
	"github.com/nuptia/admin/internal/importer"
)

// fakeBackend implements CoupleBackend in memory.
type fakeBackend struct {
	mu          sync.Mutex
	created     []couple.CreateRequest
	createErr   error
	denyToken   bool
	authFailure error
}

func (f *fakeBackend) CreateCouple(_ context.Context, req couple.CreateRequest) error {
	f.mu.Lock()
	f.created = append(f.created, req)
	f.mu.Unlock()
	return f.createErr
}

func (f *fakeBackend) AuthorizeOperator(_ context.Context, token string) error {
	if f.authFailure != nil {
		return f.authFailure
	}
	if f.denyToken || token == "vendor-token" {
		return backend.ErrNotOperator
	}
	return nil
}

func (f *fakeBackend) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Host: "127.0.0.1", Port: 0},
		Backend: config.BackendConfig{URL: "https://backend.example.com", ServiceKey: "k"},
		Import:  config.ImportConfig{MaxFileSize: 1 << 20, MaxConcurrent: 2},
		Rate:    config.RateLimitConfig{Enabled: false},
		Logging: config.LoggingConfig{Level: "error", Format: "text"},
	}
}

func newTestServer(t *testing.T, fb *fakeBackend) *Server {
	t.Helper()
	svc := importer.NewService(fb, importer.Options{MaxConcurrent: 2})
	return NewServer(svc, fb, testConfig())
}

func doJSON(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func uploadCSV(t *testing.T, srv *Server, token, fileName, content string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import/couples", &buf)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestOperatorAuth(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		srv := newTestServer(t, &fakeBackend{})
		rec := doJSON(t, srv, http.MethodGet, "/api/template/couples", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("non-operator denied with notification", func(t *testing.T) {
		srv := newTestServer(t, &fakeBackend{})
		rec := doJSON(t, srv, http.MethodGet, "/api/template/couples", "vendor-token", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "admin operators only")
	})

	t.Run("authorization backend failure", func(t *testing.T) {
		srv := newTestServer(t, &fakeBackend{authFailure: errors.New("connection refused")})
		rec := doJSON(t, srv, http.MethodGet, "/api/template/couples", "admin-token", nil)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("health needs no auth", func(t *testing.T) {
		srv := newTestServer(t, &fakeBackend{})
		rec := doJSON(t, srv, http.MethodGet, "/healthz", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestDownloadTemplate(t *testing.T) {
	srv := newTestServer(t, &fakeBackend{})

	rec := doJSON(t, srv, http.MethodGet, "/api/template/couples", "admin-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "couples_template.csv")
	assert.Equal(t, couple.TemplateCSV(), rec.Body.String())
}

func TestImportCouples_EndToEnd(t *testing.T) {
	fb := &fakeBackend{}
	srv := newTestServer(t, fb)

	csv := "name,email,phone,partner1_name,partner2_name,wedding_date,budget,vibe_tags,venue_name,guest_count,venue_city,venue_state\n" +
		"A,a@example.com\n" +
		"B,b@example.com\n"

	rec := uploadCSV(t, srv, "admin-token", "couples.csv", csv)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var started map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	runID := started["run_id"]
	require.NotEmpty(t, runID)

	// Result blocks until the run finishes.
	rec = doJSON(t, srv, http.MethodGet, "/api/import/"+runID+"/result", "admin-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result importer.RunResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Len(t, result.Outcomes, 2)
	assert.Equal(t, 2, result.Succeeded)
	assert.NotEmpty(t, result.Notification)
	assert.Equal(t, 2, fb.createdCount())

	// Status snapshot after completion.
	rec = doJSON(t, srv, http.MethodGet, "/api/import/"+runID+"/status", "admin-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var progress importer.RunProgress
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &progress))
	assert.Equal(t, importer.StateCompleted, progress.State)
	assert.Equal(t, 100, progress.Percent)
}

func TestImportCouples_NoFile(t *testing.T) {
	srv := newTestServer(t, &fakeBackend{})

	req := httptest.NewRequest(http.MethodPost, "/api/import/couples", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportCouples_EmptyFile(t *testing.T) {
	srv := newTestServer(t, &fakeBackend{})

	rec := uploadCSV(t, srv, "admin-token", "empty.csv", "name,email\n\n")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportResult_UnknownRun(t *testing.T) {
	srv := newTestServer(t, &fakeBackend{})

	rec := doJSON(t, srv, http.MethodGet, "/api/import/nope/result", "admin-token", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateCouple_ValidationGate(t *testing.T) {
	t.Run("invalid email issues no request", func(t *testing.T) {
		fb := &fakeBackend{}
		srv := newTestServer(t, fb)

		rec := doJSON(t, srv, http.MethodPost, "/api/couples", "admin-token", map[string]string{
			"name":  "Smith & Johnson",
			"email": "not-an-email",
		})

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, 0, fb.createdCount())
	})

	t.Run("missing name issues no request", func(t *testing.T) {
		fb := &fakeBackend{}
		srv := newTestServer(t, fb)

		rec := doJSON(t, srv, http.MethodPost, "/api/couples", "admin-token", map[string]string{
			"email": "a@b.co",
		})

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, 0, fb.createdCount())
	})

	t.Run("valid input issues exactly one request", func(t *testing.T) {
		fb := &fakeBackend{}
		srv := newTestServer(t, fb)

		rec := doJSON(t, srv, http.MethodPost, "/api/couples", "admin-token", map[string]string{
			"name":  "Smith & Johnson",
			"email": "a@b.co",
			"phone": "  (555) 123-4567  ",
		})

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		require.Equal(t, 1, fb.createdCount())
		assert.Equal(t, "(555) 123-4567", fb.created[0].Phone, "optional fields are trimmed")
	})
}

func TestCreateCouple_BackendErrorSurfaced(t *testing.T) {
	fb := &fakeBackend{createErr: errors.New("email already registered")}
	srv := newTestServer(t, fb)

	rec := doJSON(t, srv, http.MethodPost, "/api/couples", "admin-token", map[string]string{
		"name":  "Smith & Johnson",
		"email": "a@b.co",
	})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "email already registered")
}
