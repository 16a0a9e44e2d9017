package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Machine-readable failure codes surfaced in the response envelope.
const (
	CodeMissingFields      = "MISSING_FIELDS"
	CodeValidationError    = "VALIDATION_ERROR"
	CodeEmailExists        = "EMAIL_EXISTS"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeNoToken            = "NO_TOKEN"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeInternal           = "INTERNAL_ERROR"
)

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get("request_id")

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

// RespondSuccess writes the uniform success envelope.
func RespondSuccess(ctx *gin.Context, status int, message string, data any) {
	ctx.JSON(status, gin.H{
		"success": true,
		"message": message,
		"data":    data,
	})
}

// RespondError writes the uniform failure envelope.
func RespondError(ctx *gin.Context, status int, code, message string) {
	ctx.JSON(status, gin.H{
		"success": false,
		"message": message,
		"code":    code,
	})
}

func RespondMissingFields(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusBadRequest, CodeMissingFields, message)
}

func RespondValidationError(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusBadRequest, CodeValidationError, message)
}

func RespondEmailExists(ctx *gin.Context) {
	RespondError(ctx, http.StatusConflict, CodeEmailExists, "Email already exists")
}

func RespondInvalidCredentials(ctx *gin.Context) {
	// identical for unknown email and wrong password so callers cannot
	// enumerate accounts
	RespondError(ctx, http.StatusUnauthorized, CodeInvalidCredentials, "Invalid credentials")
}

func RespondUserNotFound(ctx *gin.Context) {
	RespondError(ctx, http.StatusNotFound, CodeUserNotFound, "User not found")
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, CodeInternal, message)
}
