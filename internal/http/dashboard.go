package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/library"
)

// DashboardController serves /api/dashboard aggregates.
type DashboardController struct {
	dashboard *library.Dashboard
}

func NewDashboardController(dashboard *library.Dashboard) *DashboardController {
	return &DashboardController{dashboard: dashboard}
}

func (dc *DashboardController) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/stats", dc.Stats)
	group.GET("/recent", dc.Recent)
	group.GET("/borrowed", dc.Borrowed)
	group.GET("/status-chart", dc.StatusChart)
	group.GET("/monthly-activity", dc.MonthlyActivity)
}

func (dc *DashboardController) Stats(c *gin.Context) {
	stats, err := dc.dashboard.Stats(c.Request.Context(), auth.PrincipalFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Recent accepts an optional ?limit=, defaulting to library.DefaultRecentBooks.
func (dc *DashboardController) Recent(c *gin.Context) {
	n, _ := strconv.Atoi(c.Query("limit"))
	if n > library.MaxLimit {
		n = library.MaxLimit
	}

	books, err := dc.dashboard.RecentBooks(c.Request.Context(), auth.PrincipalFrom(c), n)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

func (dc *DashboardController) Borrowed(c *gin.Context) {
	books, err := dc.dashboard.BorrowedBooks(c.Request.Context(), auth.PrincipalFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

func (dc *DashboardController) StatusChart(c *gin.Context) {
	chart, err := dc.dashboard.StatusChart(c.Request.Context(), auth.PrincipalFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, chart)
}

// MonthlyActivity accepts ?year=, defaulting to the current year.
func (dc *DashboardController) MonthlyActivity(c *gin.Context) {
	var year int
	if raw := c.Query("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil || y < 1 || y > 9999 {
			respondBadRequest(c, "Invalid year")
			return
		}
		year = y
	}

	months, err := dc.dashboard.MonthlyActivity(c.Request.Context(), auth.PrincipalFrom(c), year)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, months)
}
