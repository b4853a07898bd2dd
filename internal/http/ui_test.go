package http

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUIServer(t *testing.T) *testServer {
	t.Helper()

	root := t.TempDir()
	for _, page := range []string{"index.html", "login.html", "dashboard.html"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, page), []byte("<h1>"+page+"</h1>"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "app.css"), []byte("body{}"), 0o644))

	return newTestServer(t, func(cfg *RouterConfig) { cfg.StaticPath = root })
}

func TestUI_Pages(t *testing.T) {
	s := newUIServer(t)

	rr := s.do(http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "index.html")

	rr = s.do(http.MethodGet, "/static/app.css", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(http.MethodGet, "/register", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUI_DashboardRequiresSession(t *testing.T) {
	s := newUIServer(t)

	rr := s.do(http.MethodGet, "/dashboard", "")
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))

	s.login(t)

	rr = s.do(http.MethodGet, "/dashboard", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(http.MethodGet, "/login", "")
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/dashboard", rr.Header().Get("Location"))
}

func TestUI_DisabledWithoutStaticPath(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(http.MethodGet, "/dashboard", "")

	assert.Equal(t, http.StatusNotFound, rr.Code)
}
