package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/mindease/booking-api/pkg/errors"
)

// Response is the envelope for every API payload.
type Response struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
}

func NewSuccessResponse(data interface{}) Response {
	return Response{Status: "success", Data: data}
}

func NewErrorResponse(message string) Response {
	return Response{Status: "error", Error: message}
}

// Error writes err as a JSON response with the status code implied by its
// kind. Unknown errors map to 500 with a generic message.
func Error(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	message := "internal server error"

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
		switch appErr.Kind {
		case apperrors.KindValidation, apperrors.KindInvalidTime:
			code = http.StatusBadRequest
		case apperrors.KindPaymentVerification:
			code = http.StatusPaymentRequired
		case apperrors.KindForbidden:
			code = http.StatusForbidden
		case apperrors.KindNotFound:
			code = http.StatusNotFound
		case apperrors.KindSlotUnavailable:
			code = http.StatusConflict
		case apperrors.KindRetryable:
			code = http.StatusServiceUnavailable
		default:
			message = "internal server error"
		}
	}

	c.JSON(code, NewErrorResponse(message))
}
