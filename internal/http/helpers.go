package http

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"` // machine-readable error code
}

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// respondNotFound sends a 404 Not Found response.
func respondNotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: message})
}

// respondConflict sends a 409 Conflict response.
func respondConflict(c *gin.Context, message, code string) {
	c.JSON(http.StatusConflict, ErrorResponse{Error: message, Code: code})
}

// respondInternalError sends a 500 response and logs the underlying error.
func respondInternalError(c *gin.Context, err error, operation string) {
	log.Printf("[HTTP] Failed to %s: %v", operation, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}
