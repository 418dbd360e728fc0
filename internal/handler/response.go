package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"medidown/internal/model"
)

type errorResponse struct {
	Message string `json:"message"`
}

func newErrorResponse(c *gin.Context, statusCode int, message string) {
	logrus.Error(message)
	c.AbortWithStatusJSON(statusCode, errorResponse{message})
}

// mapError translates the error taxonomy into HTTP status codes. Internal
// detail stays in the logs; clients only see the normalized message.
func mapError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrTaskNotFound):
		newErrorResponse(c, http.StatusNotFound, "task not found")
	case errors.Is(err, model.ErrAlreadyTerminal):
		newErrorResponse(c, http.StatusConflict, "task already in terminal state")
	default:
		switch model.KindOf(err) {
		case model.KindInvalidRequest:
			newErrorResponse(c, http.StatusBadRequest, err.Error())
		case model.KindCapacity:
			newErrorResponse(c, http.StatusServiceUnavailable, err.Error())
		default:
			newErrorResponse(c, http.StatusInternalServerError, "internal error")
		}
	}
}
