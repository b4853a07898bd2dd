package auth

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/library"
)

// ContextKeyPrincipal holds the library.Principal of an authenticated request.
const ContextKeyPrincipal = "auth_principal"

// Middleware guards routes using the session established at login.
type Middleware struct {
	service        *Service
	sessionManager *SessionManager
}

// NewMiddleware creates a new authentication middleware.
func NewMiddleware(service *Service, sessionManager *SessionManager) *Middleware {
	return &Middleware{
		service:        service,
		sessionManager: sessionManager,
	}
}

// RequireAuth rejects requests without a live session whose user still exists.
// A storage failure while resolving the user is a 500, not a 401.
// On success the request's Principal is available through PrincipalFrom.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		userID := m.sessionManager.GetUserID(ctx)
		if userID == 0 {
			abortUnauthorized(c)
			return
		}

		user, err := m.service.GetUser(ctx, userID)
		if err != nil {
			if errors.Is(err, library.ErrNotFound) {
				abortUnauthorized(c)
				return
			}
			log.Printf("Failed to resolve session user %d: %v", userID, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to authenticate"})
			return
		}

		c.Set(ContextKeyPrincipal, Principal(user))
		c.Next()
	}
}

// RequirePage is RequireAuth for HTML pages: anonymous visitors are redirected to loginPath.
func (m *Middleware) RequirePage(loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := m.sessionManager.SessionPrincipal(c.Request.Context())
		if !principal.Authenticated() {
			c.Redirect(http.StatusFound, loginPath)
			c.Abort()
			return
		}
		c.Set(ContextKeyPrincipal, principal)
		c.Next()
	}
}

// GuestOnly redirects already authenticated visitors, e.g. away from the login page.
func (m *Middleware) GuestOnly(redirect string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.sessionManager.IsAuthenticated(c.Request.Context()) {
			c.Redirect(http.StatusFound, redirect)
			c.Abort()
			return
		}
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": "Authentication required",
	})
}

// PrincipalFrom returns the Principal set by RequireAuth, or the anonymous zero value.
func PrincipalFrom(c *gin.Context) library.Principal {
	if v, exists := c.Get(ContextKeyPrincipal); exists {
		if p, ok := v.(library.Principal); ok {
			return p
		}
	}
	return library.Principal{}
}
