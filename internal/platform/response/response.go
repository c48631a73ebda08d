package response

import (
	"errors"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/venuedesk/service-billing/internal/platform/domain"
)

// Response is the JSON envelope returned by every endpoint.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorData  `json:"error,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

// ErrorData describes a failed request.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PageMeta accompanies paginated lists.
type PageMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

func Paginated(c *gin.Context, data interface{}, total int64, page, limit int) {
	pages := 0
	if limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(limit)))
	}
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
		Meta:    PageMeta{Page: page, Limit: limit, Total: total, TotalPages: pages},
	})
}

func Fail(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, Response{
		Success: false,
		Error:   &ErrorData{Code: code, Message: message},
	})
}

func BadRequest(c *gin.Context, message string) {
	Fail(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

func Unauthorized(c *gin.Context, message string) {
	Fail(c, http.StatusUnauthorized, "UNAUTHORIZED", message)
}

func Forbidden(c *gin.Context, message string) {
	Fail(c, http.StatusForbidden, "FORBIDDEN", message)
}

func TooManyRequests(c *gin.Context) {
	Fail(c, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
}

// Error maps a domain error onto an HTTP status. Unclassified errors are 500s
// and their message is not leaked.
func Error(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		Fail(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, domain.ErrConflict):
		Fail(c, http.StatusConflict, "CONFLICT", err.Error())
	case errors.Is(err, domain.ErrInvalidState):
		Fail(c, http.StatusUnprocessableEntity, "INVALID_STATE", err.Error())
	case errors.Is(err, domain.ErrValidation):
		Fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	default:
		Fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
