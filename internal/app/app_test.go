package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/diplomado/internal/app"
	"github.com/p-n-ai/diplomado/internal/auth"
	"github.com/p-n-ai/diplomado/internal/platform/config"
)

func contentRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "modulos", "0")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "contenido.html"), []byte("<h1>Hola</h1>"), 0o644))
	return root
}

func testConfig(t *testing.T, driver string) *config.Config {
	t.Helper()
	t.Setenv("LEARN_STORAGE_DRIVER", driver)
	t.Setenv("LEARN_STORAGE_SQLITE_PATH", filepath.Join(t.TempDir(), "diplomado.db"))
	t.Setenv("LEARN_AUTH_LOGIN_DELAY", "0s")
	t.Setenv("LEARN_CONTENT_ROOT", contentRoot(t))
	cfg, err := config.Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	return cfg
}

func newApp(t *testing.T, driver string) *app.App {
	t.Helper()
	a, err := app.New(context.Background(), testConfig(t, driver))
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestNew_SeedsDefaultAdmin(t *testing.T) {
	for _, driver := range []string{"memory", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			a := newApp(t, driver)
			sess, err := a.Auth.Login(context.Background(), "admin", "adminpassword")
			require.NoError(t, err)
			assert.Equal(t, auth.RoleAdministrator, sess.Principal.Role)
		})
	}
}

func TestNew_SQLitePersistsAcrossRestarts(t *testing.T) {
	cfg := testConfig(t, "sqlite")
	ctx := context.Background()

	a, err := app.New(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, a.Portal.CompleteItem(ctx, app.SystemPrincipal, "0", "contenido-0"))
	a.Close()

	b, err := app.New(ctx, cfg)
	require.NoError(t, err)
	defer b.Close()
	done, err := b.Progress.IsCompleted(ctx, app.SystemPrincipal.ID, "0", "contenido-0")
	require.NoError(t, err)
	assert.True(t, done)

	users, err := b.Auth.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1, "default admin must be seeded only once")
}

func TestNew_UnknownDriver(t *testing.T) {
	cfg := testConfig(t, "memory")
	cfg.Storage.Driver = "mongo"
	_, err := app.New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestHandler_ServesAPI(t *testing.T) {
	a := newApp(t, "sqlite")
	h, err := a.Handler()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"username":"admin","password":"adminpassword"}`))
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := app.NewLogger(&buf, config.LogConfig{Level: "warn", Format: "json"})
	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])

	buf.Reset()
	app.NewLogger(&buf, config.LogConfig{Level: "bogus", Format: "text"}).Info("plain")
	assert.Contains(t, buf.String(), "msg=plain")
}
