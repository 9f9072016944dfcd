package utils

import "github.com/gin-gonic/gin"

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// Respond writes data as JSON with the given status code.
func Respond(ctx *gin.Context, status int, data interface{}) {
	ctx.JSON(status, data)
}

// Success returns a 200 response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, 200, data)
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, ErrorResponse{Code: code, Message: message})
}

// ServerError returns a 500 response carrying the underlying error text.
func ServerError(ctx *gin.Context, code int, message string, err error) {
	body := ErrorResponse{Code: code, Message: message}
	if err != nil {
		body.Error = err.Error()
		_ = ctx.Error(err)
	}
	Respond(ctx, 500, body)
}
