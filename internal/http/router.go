// Package http exposes the library over a JSON API built on gin.
package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/auth"
)

// DefaultMaxBodyBytes caps request bodies when RouterConfig leaves it unset.
const DefaultMaxBodyBytes = 10 << 20

// Router is the configured gin engine plus the background helpers it owns.
type Router struct {
	Engine *gin.Engine

	authController *auth.AuthController
	apiLimiter     *IPRateLimiter
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.Engine.ServeHTTP(w, req)
}

// Close stops the rate limiter cleanup goroutines.
func (r *Router) Close() {
	r.authController.Stop()
	if r.apiLimiter != nil {
		r.apiLimiter.Stop()
	}
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *Router {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.AuthConfig.SecureCookies {
		router.Use(auth.StrictTransportSecurityMiddleware(auth.DefaultHSTSMaxAge))
	}

	if len(cfg.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Content-Type", auth.CSRFTokenHeader, RequestIDHeader},
			ExposeHeaders:    []string{RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	router.Use(BodyLimitMiddleware(maxBody))

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.AuthConfig.SecureCookies))
	}
	router.Use(cfg.SessionManager.LoadSession())

	r := &Router{Engine: router}

	health := NewHealthController(cfg.Database, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", health.Ping)

	api := router.Group("/api")
	if cfg.RateLimit.RequestsPerSecond > 0 {
		r.apiLimiter = NewIPRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		api.Use(r.apiLimiter.Middleware())
	}
	api.GET("/test", health.APITest)

	r.authController = auth.NewAuthController(cfg.AuthService, cfg.SessionManager, cfg.AuthConfig, cfg.AuthAuditor)
	r.authController.RegisterRoutes(api.Group("/auth"))

	guard := auth.NewMiddleware(cfg.AuthService, cfg.SessionManager)
	NewBooksController(cfg.Books).RegisterRoutes(api.Group("/books", guard.RequireAuth()))
	NewDashboardController(cfg.Dashboard).RegisterRoutes(api.Group("/dashboard", guard.RequireAuth()))
	if cfg.Audit != nil {
		NewAuditController(cfg.Audit).RegisterRoutes(api.Group("/audit", guard.RequireAuth()))
	}

	if cfg.StaticPath != "" {
		NewUIController(cfg.StaticPath).RegisterRoutes(router, guard)
	}

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Route not found"})
			return
		}
		c.String(http.StatusNotFound, "Page not found")
	})

	return r
}
