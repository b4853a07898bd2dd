package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/library"
)

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// MessageResponse is a confirmation with an optional payload.
type MessageResponse struct {
	Message string `json:"message"`
	Book    any    `json:"book,omitempty"`
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// respondServiceError maps domain errors onto status codes. Unexpected causes
// are logged with the request ID and never sent to the client.
func respondServiceError(c *gin.Context, err error) {
	var ve *library.ValidationError
	var se *library.ServiceError

	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: ve.Error(), Details: ve.Messages})
	case errors.Is(err, library.ErrAuthRequired), errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication required"})
	case errors.Is(err, library.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Book not found"})
	case errors.Is(err, library.ErrConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrTooManyAttempts):
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "Too many requests"})
	case errors.As(err, &se):
		log.Printf("Internal error [%s] (%s): %v", requestID(c), se.Op, se.Err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: se.Message()})
	default:
		log.Printf("Internal error [%s]: %v", requestID(c), err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
	}
}

// parseBookID reads the :id path parameter.
func parseBookID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		respondBadRequest(c, "Invalid book ID")
		return 0, false
	}
	return uint(id), true
}

// bindJSON decodes the request body, answering 400 (or 413 for oversized bodies) on failure.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "Request body too large"})
			return false
		}
		respondBadRequest(c, "Invalid request body")
		return false
	}
	return true
}
