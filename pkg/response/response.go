package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope every API endpoint answers with. Code is 0 on
// success and the HTTP status otherwise; Reason carries the engagement
// error code (stale_state, invalid_transition, ...) when there is one.
type Response struct {
	Code    int         `json:"code"`
	Reason  string      `json:"reason,omitempty"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// AppError is an error raised outside the engagement engine, mostly by the
// auth layer, that still needs a specific status on the wire.
type AppError struct {
	HTTPStatus int
	Message    string
}

func (e *AppError) Error() string { return e.Message }

// Detailed is implemented by domain errors that carry their own status,
// a machine-readable reason and a context payload.
type Detailed interface {
	error
	StatusCode() int
	ReasonCode() string
}

func newAppError(status int, msg string) *AppError {
	return &AppError{HTTPStatus: status, Message: msg}
}

func NewUnauthorized(msg string) *AppError { return newAppError(http.StatusUnauthorized, msg) }
func NewForbidden(msg string) *AppError    { return newAppError(http.StatusForbidden, msg) }
func NewConflict(msg string) *AppError     { return newAppError(http.StatusConflict, msg) }

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Message: "ok", Data: data})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Message: "created", Data: data})
}

// Fail writes an error envelope without detail.
func Fail(c *gin.Context, status int, msg string) {
	c.JSON(status, Response{Code: status, Message: msg})
}

// Error picks the response from the error chain. Anything that is neither
// Detailed nor *AppError is reported as a bare 500 and the cause is attached
// to the gin context for the request logger.
func Error(c *gin.Context, err error) {
	var detailed Detailed
	if errors.As(err, &detailed) {
		status := detailed.StatusCode()
		c.JSON(status, Response{
			Code:    status,
			Reason:  detailed.ReasonCode(),
			Message: detailed.Error(),
			Details: detailed,
		})
		return
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		Fail(c, appErr.HTTPStatus, appErr.Message)
		return
	}

	_ = c.Error(err)
	Fail(c, http.StatusInternalServerError, "internal server error")
}

func BadRequest(c *gin.Context, msg string)   { Fail(c, http.StatusBadRequest, msg) }
func Unauthorized(c *gin.Context, msg string) { Fail(c, http.StatusUnauthorized, msg) }
func Forbidden(c *gin.Context, msg string)    { Fail(c, http.StatusForbidden, msg) }

// TooManyRequests aborts the chain; callers set Retry-After first.
func TooManyRequests(c *gin.Context, msg string) {
	Fail(c, http.StatusTooManyRequests, msg)
	c.Abort()
}
