package auth

import (
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/library"
)

// Audit actions recorded by the auth endpoints.
const (
	ActionRegister    = "register"
	ActionLogin       = "login"
	ActionLoginFailed = "login_failed"
	ActionLogout      = "logout"
)

// Auditor records authentication events. Implementations must not block.
type Auditor interface {
	LogAuth(userID uint, action, ipAddr, userAgent string, success bool)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type passwordCheck struct {
	Password string `json:"password"`
}

// userResponse is the public view of an AdminUser.
type userResponse struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func newUserResponse(user *entities.AdminUser) userResponse {
	return userResponse{ID: user.ID, Email: user.Email, Name: user.Name}
}

// AuthController handles the /api/auth endpoints.
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
	rateLimiter    *RateLimiter
	auditor        Auditor
	config         config.Auth

	// registerMu serializes the "is this the first account" check with the insert.
	registerMu sync.Mutex
}

// NewAuthController creates a new authentication controller.
// auditor may be nil.
func NewAuthController(service *Service, sessionManager *SessionManager, cfg config.Auth, auditor Auditor) *AuthController {
	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
		rateLimiter: NewRateLimiter(RateLimitConfig{
			MaxAttempts:     cfg.MaxLoginAttempts,
			WindowDuration:  cfg.RateLimitWindow,
			LockoutDuration: cfg.LockoutDuration,
		}),
		auditor: auditor,
		config:  cfg,
	}
}

// RegisterRoutes registers authentication routes on the group.
func (ac *AuthController) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/register", ac.Register)
	group.POST("/login", ac.Login)
	group.POST("/logout", ac.Logout)
	group.GET("/status", ac.Status)
	group.POST("/check-password", ac.CheckPassword)
}

// Stop cleans up resources (rate limiter background goroutine).
func (ac *AuthController) Stop() {
	ac.rateLimiter.Stop()
}

// Register creates an admin account. The first account can always be created;
// later ones only while registration is open.
func (ac *AuthController) Register(c *gin.Context) {
	var in RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx := c.Request.Context()

	ac.registerMu.Lock()
	defer ac.registerMu.Unlock()

	if !ac.config.AllowRegistration {
		hasUsers, err := ac.service.HasUsers(ctx)
		if err != nil {
			log.Printf("Failed to count admin users: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register admin"})
			return
		}
		if hasUsers {
			c.JSON(http.StatusForbidden, gin.H{"error": "Registration is disabled"})
			return
		}
	}

	user, err := ac.service.Register(ctx, in)
	if err != nil {
		ac.respondError(c, "register admin", err)
		return
	}

	ac.audit(c, user.ID, ActionRegister, true)
	c.JSON(http.StatusCreated, gin.H{
		"message": "Admin user created successfully",
		"user":    newUserResponse(user),
	})
}

// Login checks credentials and starts a session.
func (ac *AuthController) Login(c *gin.Context) {
	var in credentials
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if in.Email == "" || in.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	clientIP := c.ClientIP()
	email := NormalizeEmail(in.Email)

	if allowed, retryAfter := ac.rateLimiter.Allow(clientIP, email); !allowed {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error": "Too many login attempts. Please try again later.",
		})
		return
	}

	ctx := c.Request.Context()
	user, err := ac.service.Authenticate(ctx, email, in.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			ac.rateLimiter.RecordFailure(clientIP, email)
			ac.audit(c, 0, ActionLoginFailed, false)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		ac.respondError(c, "log in", err)
		return
	}

	ac.rateLimiter.RecordSuccess(clientIP, email)

	if err := ac.sessionManager.CreateSession(ctx, user); err != nil {
		log.Printf("Failed to create session for user %d: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	ac.audit(c, user.ID, ActionLogin, true)
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    newUserResponse(user),
	})
}

// Logout destroys the session. Logging out without a session still succeeds.
func (ac *AuthController) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	userID := ac.sessionManager.GetUserID(ctx)

	if err := ac.sessionManager.DestroySession(ctx); err != nil {
		log.Printf("Failed to destroy session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Logout failed"})
		return
	}

	if userID != 0 {
		ac.audit(c, userID, ActionLogout, true)
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}

// Status reports whether the caller is logged in.
func (ac *AuthController) Status(c *gin.Context) {
	ctx := c.Request.Context()
	resp := gin.H{"authenticated": false}

	if token := GetCSRFToken(c); token != "" {
		resp["csrfToken"] = token
	}

	if hasUsers, err := ac.service.HasUsers(ctx); err == nil {
		resp["setupRequired"] = !hasUsers
	}

	principal := ac.sessionManager.SessionPrincipal(ctx)
	if principal.Authenticated() {
		resp["authenticated"] = true
		resp["user"] = userResponse{ID: principal.UserID, Email: principal.Email, Name: principal.Name}
		if loginAt := ac.sessionManager.LoginAt(ctx); !loginAt.IsZero() {
			resp["loginAt"] = loginAt.UTC()
		}
	}

	c.JSON(http.StatusOK, resp)
}

// CheckPassword reports the strength rules a candidate password violates.
func (ac *AuthController) CheckPassword(c *gin.Context) {
	var in passwordCheck
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	strength := ValidatePasswordStrength(in.Password)
	errs := strength.Errors
	if errs == nil {
		errs = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"isValid": strength.IsValid, "errors": errs})
}

func (ac *AuthController) respondError(c *gin.Context, op string, err error) {
	var ve *library.ValidationError
	var se *library.ServiceError

	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error(), "details": ve.Messages})
	case errors.Is(err, library.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &se):
		log.Printf("Auth operation %q failed: %v", op, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": se.Message()})
	default:
		log.Printf("Auth operation %q failed: %v", op, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + op})
	}
}

func (ac *AuthController) audit(c *gin.Context, userID uint, action string, success bool) {
	if ac.auditor == nil {
		return
	}
	ac.auditor.LogAuth(userID, action, c.ClientIP(), c.Request.UserAgent(), success)
}
