package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/studybuddy/internal/models"
	"github.com/yoockh/studybuddy/internal/services"
	"github.com/yoockh/studybuddy/internal/utils"
)

// SessionKey is the gin context key holding the *models.Session.
const SessionKey = "session"

type apiError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

// LoadSession resolves :session_id and exposes the session and its user_id to
// the handlers. There is no authentication; the session id is the capability.
func LoadSession(sessions services.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := sessions.Get(c.Request.Context(), c.Param("session_id"))
		if err != nil {
			status := utils.HTTPStatus(err)
			msg := http.StatusText(status)
			var ae *utils.AppError
			if errors.As(err, &ae) {
				msg = ae.Message
			}
			c.AbortWithStatusJSON(status, apiError{Code: utils.CodeOf(err), Message: msg})
			return
		}

		c.Set(SessionKey, sess)
		c.Set("user_id", sess.UserID)
		c.Next()
	}
}

func SessionFrom(c *gin.Context) (*models.Session, bool) {
	v, ok := c.Get(SessionKey)
	if !ok {
		return nil, false
	}
	s, ok := v.(*models.Session)
	return s, ok && s != nil
}
