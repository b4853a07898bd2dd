package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2/memstore"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/database"
	"github.com/mrlokans/librarian/internal/database/books"
	"github.com/mrlokans/librarian/internal/database/users"
	"github.com/mrlokans/librarian/internal/library"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testNow = time.Date(2025, time.June, 10, 9, 30, 0, 0, time.UTC)

type testServer struct {
	router  *Router
	db      *database.Database
	books   *library.BookService
	cookies map[string]*http.Cookie
}

func testAuthConfig() config.Auth {
	return config.Auth{
		SessionLifetime:   24 * time.Hour,
		BcryptCost:        4,
		MaxLoginAttempts:  5,
		RateLimitWindow:   15 * time.Minute,
		LockoutDuration:   30 * time.Minute,
		AllowRegistration: true,
	}
}

func newTestServer(t *testing.T, configure ...func(*RouterConfig)) *testServer {
	t.Helper()

	db, err := database.Open(config.Database{
		Driver: config.DatabaseDriverSQLite,
		Path:   filepath.Join(t.TempDir(), "librarian.db"),
	}, database.Options{LogLevel: logger.Silent})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	authCfg := testAuthConfig()
	bookService := library.NewBookService(books.NewRepository(db.DB), nil)
	bookService.SetClock(func() time.Time { return testNow })
	dashboard := library.NewDashboard(books.NewRepository(db.DB), time.UTC)
	dashboard.SetClock(func() time.Time { return testNow })

	cfg := RouterConfig{
		Books:          bookService,
		Dashboard:      dashboard,
		AuthService:    auth.NewService(users.NewRepository(db.DB), authCfg),
		SessionManager: auth.NewSessionManager(memstore.New(), authCfg),
		AuthConfig:     authCfg,
		Database:       db,
		Version:        "test",
	}
	for _, fn := range configure {
		fn(&cfg)
	}

	router := NewRouter(cfg)
	t.Cleanup(router.Close)

	return &testServer{router: router, db: db, books: bookService, cookies: map[string]*http.Cookie{}}
}

// do sends a request with the cookies collected so far, like a browser.
func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range s.cookies {
		req.AddCookie(c)
	}

	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	for _, c := range rr.Result().Cookies() {
		if c.MaxAge < 0 || c.Value == "" {
			delete(s.cookies, c.Name)
			continue
		}
		s.cookies[c.Name] = c
	}
	return rr
}

// login registers the default admin and signs in.
func (s *testServer) login(t *testing.T) {
	t.Helper()

	rr := s.do(http.MethodPost, "/api/auth/register", `{"email":"admin@example.com","password":"secret123","name":"Admin"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = s.do(http.MethodPost, "/api/auth/login", `{"email":"admin@example.com","password":"secret123"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}
