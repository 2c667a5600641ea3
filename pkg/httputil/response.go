package httputil

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/encounter-api/pkg/errors"
	"github.com/jwalitptl/encounter-api/pkg/validator"
)

// Response wraps all API responses
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents API error. Code is the taxonomy name, e.g. "InvalidTransition".
type Error struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Fields  []validator.FieldError `json:"fields,omitempty"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

func RespondWithCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithError maps err to its status code. Errors outside the taxonomy
// are reported as internal without their message.
func RespondWithError(c *gin.Context, err error) {
	if err != nil {
		_ = c.Error(err)
	}
	status, body := ErrorBody(err)
	c.JSON(status, Response{Success: false, Error: body})
}

// AbortWithError is RespondWithError for middleware.
func AbortWithError(c *gin.Context, err error) {
	if err != nil {
		_ = c.Error(err)
	}
	status, body := ErrorBody(err)
	c.AbortWithStatusJSON(status, Response{Success: false, Error: body})
}

func ErrorBody(err error) (int, *Error) {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		return http.StatusInternalServerError, &Error{
			Code:    errors.ErrInternal.String(),
			Message: "internal server error",
		}
	}
	if appErr.Code == errors.ErrInternal {
		return appErr.StatusCode(), &Error{Code: appErr.Code.String(), Message: "internal server error"}
	}
	return appErr.StatusCode(), &Error{
		Code:    appErr.Code.String(),
		Message: appErr.Message,
		Fields:  validator.Fields(err),
	}
}
