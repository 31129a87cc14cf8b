package respond

import (
	"github.com/gin-gonic/gin"

	"verisight-backend/internal/shared/telemetry"
)

// ErrorBody is the error object returned by every endpoint.
type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
}

// Error sends a standardized error response and aborts the chain.
func Error(c *gin.Context, status int, code, message string) {
	write(c, status, ErrorBody{Code: code, Message: message})
}

// FieldError sends a validation error naming the offending request field.
func FieldError(c *gin.Context, status int, field, message string) {
	write(c, status, ErrorBody{Code: "validation_failed", Message: message, Field: field})
}

func write(c *gin.Context, status int, body ErrorBody) {
	fields := map[string]any{
		"status":     status,
		"code":       body.Code,
		"message":    body.Message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if body.Field != "" {
		fields["field"] = body.Field
	}
	if userID := c.GetString("userId"); userID != "" {
		fields["user_id"] = userID
	}
	telemetry.Error("http.error", fields)

	c.AbortWithStatusJSON(status, body)
}
