package http

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/auth"
)

// staticPages maps page routes to files under the static directory.
var staticPages = map[string]string{
	"/":          "index.html",
	"/login":     "login.html",
	"/register":  "register.html",
	"/dashboard": "dashboard.html",
}

// UIController serves the operator-supplied HTML pages.
type UIController struct {
	root string
}

func NewUIController(root string) *UIController {
	return &UIController{root: root}
}

// RegisterRoutes mounts /static and the page routes. Login and register pages
// bounce signed-in admins to the dashboard; the dashboard requires a session.
func (u *UIController) RegisterRoutes(router *gin.Engine, guard *auth.Middleware) {
	router.Static("/static", u.root)

	router.GET("/", u.page("/"))
	router.GET("/login", guard.GuestOnly("/dashboard"), u.page("/login"))
	router.GET("/register", guard.GuestOnly("/dashboard"), u.page("/register"))
	router.GET("/dashboard", guard.RequirePage("/login"), u.page("/dashboard"))
}

func (u *UIController) page(route string) gin.HandlerFunc {
	path := filepath.Join(u.root, staticPages[route])
	return func(c *gin.Context) {
		if _, err := os.Stat(path); err != nil {
			c.String(http.StatusNotFound, "Page not found")
			return
		}
		c.File(path)
	}
}
