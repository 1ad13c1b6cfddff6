package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fitlane/trainer-api/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents API error
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithError maps the error taxonomy onto HTTP statuses. Transition
// violations and lost races are caller-resolvable, so they are 4xx; only
// genuine downstream/internal failures are 5xx. The error is also attached
// to the gin context so the error middleware logs it with the request id.
func RespondWithError(c *gin.Context, err error) {
	_ = c.Error(err)

	status := http.StatusInternalServerError
	message := "internal server error"

	if appErr, ok := err.(*errors.AppError); ok {
		message = appErr.Message
		switch appErr.Code {
		case errors.ErrNotFound:
			status = http.StatusNotFound
		case errors.ErrBadRequest:
			status = http.StatusBadRequest
		case errors.ErrUnauthorized:
			status = http.StatusUnauthorized
		case errors.ErrTerminalState, errors.ErrInvalidTransition:
			status = http.StatusUnprocessableEntity
		case errors.ErrStaleState:
			status = http.StatusConflict
		case errors.ErrDownstream:
			status = http.StatusBadGateway
		}
	}

	c.JSON(status, Response{
		Success: false,
		Error: &Error{
			Code:    status,
			Message: message,
		},
	})
}
