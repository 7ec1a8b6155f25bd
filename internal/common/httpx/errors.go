package httpx

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"restaurant-orders/internal/domain"
)

// Error codes in the JSON error body.
const (
	CodeValidation  = "validation_error"
	CodeNotFound    = "not_found"
	CodeUnavailable = "store_unavailable"
	CodeInternal    = "internal_error"
	CodeBadRequest  = "bad_request"
)

// Status maps a domain error to its HTTP status and error code.
func Status(err error) (int, string) {
	switch {
	case domain.IsValidation(err):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case domain.IsPersistence(err):
		return http.StatusServiceUnavailable, CodeUnavailable
	}
	return http.StatusInternalServerError, CodeInternal
}

// Fail aborts the request with the error body for err.
func Fail(c *gin.Context, err error) {
	code, kind := Status(err)
	c.AbortWithStatusJSON(code, gin.H{"error": err.Error(), "code": kind})
}

// BadRequest is for malformed bodies and path parameters.
func BadRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg, "code": CodeBadRequest})
}
