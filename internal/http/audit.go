package http

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/library"
)

const defaultAuditLimit = 25

// AuditLog is the read side of the audit trail.
type AuditLog interface {
	Events(ctx context.Context, eventType entities.AuditEventType, limit, offset int) ([]entities.AuditEvent, int64, error)
}

type AuditEventsResponse struct {
	Events     []entities.AuditEvent `json:"events"`
	Pagination library.PageInfo      `json:"pagination"`
}

type AuditController struct {
	auditLog AuditLog
}

func NewAuditController(auditLog AuditLog) *AuditController {
	return &AuditController{auditLog: auditLog}
}

func (ac *AuditController) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("", ac.Events)
}

// Events returns paginated audit events as JSON, newest first.
// GET /api/audit?type=&page=&limit=
func (ac *AuditController) Events(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultAuditLimit)))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > library.MaxLimit {
		limit = defaultAuditLimit
	}

	eventType := entities.AuditEventType(c.Query("type"))
	switch eventType {
	case "", entities.AuditEventAuth, entities.AuditEventBook, entities.AuditEventMaintenance:
	default:
		respondBadRequest(c, "Unknown audit event type")
		return
	}

	events, total, err := ac.auditLog.Events(c.Request.Context(), eventType, limit, (page-1)*limit)
	if err != nil {
		log.Printf("Failed to load audit events: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to load audit events"})
		return
	}
	if events == nil {
		events = []entities.AuditEvent{}
	}

	c.JSON(http.StatusOK, AuditEventsResponse{
		Events:     events,
		Pagination: library.NewPageInfo(page, limit, total),
	})
}
