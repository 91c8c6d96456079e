package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/studybuddy/internal/api/middleware"
	"github.com/yoockh/studybuddy/internal/models"
	"github.com/yoockh/studybuddy/internal/utils"
)

type APIError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

func writeError(c *gin.Context, err error) {
	status := utils.HTTPStatus(err)

	var ae *utils.AppError
	if errors.As(err, &ae) {
		c.JSON(status, APIError{
			Code:    ae.Code,
			Message: ae.Message,
		})
		return
	}

	c.JSON(status, APIError{
		Code:    utils.CodeOf(err),
		Message: http.StatusText(status),
	})
}

// turnError hides everything but the notice for failures the student cannot fix.
func turnError(err error) APIError {
	code := utils.CodeOf(err)
	if code == utils.CodeInvalidArgument {
		var ae *utils.AppError
		if errors.As(err, &ae) {
			return APIError{Code: code, Message: ae.Message}
		}
	}
	return APIError{Code: code, Message: models.FailureNotice}
}

func requireSession(c *gin.Context) (*models.Session, bool) {
	if s, ok := middleware.SessionFrom(c); ok {
		return s, true
	}

	writeError(c, utils.E(utils.CodeNotFound, "Session", "session not loaded", nil))
	return nil, false
}
