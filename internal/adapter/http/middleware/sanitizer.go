package middleware

import (
	"errors"
	"mime"
	"net/http"

	"custodial-ledger/pkg/apperror"
	"custodial-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// MaxBodySize rejects a declared oversized body up front and caps the reader
// for chunked ones; handlers turn the resulting *http.MaxBytesError into
// VAL_002 via BodyError.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Error(c, apperror.ErrPayloadTooLarge(maxBytes))
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// BodyError maps a body read or bind failure to the client-facing error.
func BodyError(err error) *apperror.AppError {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperror.ErrPayloadTooLarge(tooLarge.Limit)
	}
	return apperror.Validation(err.Error())
}

// RequireJSON rejects requests with a body whose Content-Type is not JSON.
func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength == 0 {
			c.Next()
			return
		}
		mediaType, _, err := mime.ParseMediaType(c.GetHeader("Content-Type"))
		if err != nil || mediaType != "application/json" {
			response.Error(c, apperror.Validation("Content-Type must be application/json"))
			c.Abort()
			return
		}
		c.Next()
	}
}
