package httpserver

import "github.com/gin-gonic/gin"

type errorResponse struct {
	Success bool     `json:"success"`
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

func writeError(c *gin.Context, status int, code, message string, fields []string) {
	c.AbortWithStatusJSON(status, errorResponse{
		Success: false,
		Error:   code,
		Message: message,
		Fields:  fields,
	})
}
