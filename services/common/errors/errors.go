package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error is an application error carrying the HTTP status it maps to.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(code int, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func BadRequest(message string, err error) *Error {
	return New(http.StatusBadRequest, message, err)
}

func Forbidden(message string) *Error {
	return New(http.StatusForbidden, message, nil)
}

func NotFound(message string) *Error {
	return New(http.StatusNotFound, message, nil)
}

func Conflict(message string) *Error {
	return New(http.StatusConflict, message, nil)
}

func Internal(message string, err error) *Error {
	return New(http.StatusInternalServerError, message, err)
}

func BadGateway(message string, err error) *Error {
	return New(http.StatusBadGateway, message, err)
}

// StatusOf returns the status carried by err, or 500 for anything that is not
// an *Error.
func StatusOf(err error) int {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return http.StatusInternalServerError
}

// Respond writes err as {"error": message}. Internal details of wrapped
// errors are never echoed to the client.
func Respond(c *gin.Context, err error) {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		c.JSON(appErr.Code, gin.H{"error": appErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
