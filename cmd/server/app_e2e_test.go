package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/diewo77/go-proposals/internal/config"
	"github.com/diewo77/go-proposals/internal/db"
	"github.com/diewo77/go-proposals/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestApp(t *testing.T, driver string) *App {
	t.Helper()
	t.Setenv("STORAGE_DRIVER", driver)
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "proposals.db"))
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "")
	t.Setenv("EXPORT_DIR", "")
	cfg := config.Load()
	log := zap.NewNop()

	conn, err := db.Open(cfg.Storage, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, db.Migrate(conn, false, log))

	ctx := context.Background()
	repo := repository.New(conn.Store, log)
	ctl := newController(ctx, cfg, repo, log)
	return NewApp(cfg, ctl, conn, log)
}

func TestAppHealthz(t *testing.T) {
	for _, driver := range []string{config.DriverMemory, config.DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			app := newTestApp(t, driver)
			rec := httptest.NewRecorder()
			app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), `"ok"`)
		})
	}
}

func TestAppMetrics(t *testing.T) {
	app := newTestApp(t, config.DriverMemory)

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestAppProposalFlow(t *testing.T) {
	app := newTestApp(t, config.DriverSQLite)

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/proposals", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/proposals/new", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/form", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/form", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "RMX-00001")

	form := url.Values{"client": {"Padaria Central"}}
	req := httptest.NewRequest(http.MethodPost, "/form/save", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/proposals", nil)
	req.Header.Set("Accept", "application/json")
	rec = httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var list struct {
		Items []map[string]any `json:"items"`
		Total int              `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "Padaria Central", list.Items[0]["client"])
}

func TestAppUnknownRoute(t *testing.T) {
	app := newTestApp(t, config.DriverMemory)
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/does-not-exist", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
