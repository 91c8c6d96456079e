package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/studybuddy/internal/api/handlers"
	"github.com/yoockh/studybuddy/internal/api/middleware"
	"github.com/yoockh/studybuddy/internal/services"
)

type Deps struct {
	Sessions services.SessionService

	Session *handlers.SessionHandler
	Chat    *handlers.ChatHandler
	WS      *handlers.WSHandler
	Metrics http.Handler // optional
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}

	r.POST("/sessions", d.Session.Start)

	s := r.Group("/sessions/:session_id")
	s.Use(middleware.LoadSession(d.Sessions))

	s.GET("", d.Session.Get)
	s.PUT("/memory", d.Session.UpdateMemory)

	s.POST("/ask", d.Chat.Ask)
	s.GET("/history", d.Chat.History)
	s.DELETE("/history", d.Chat.Clear)
	s.POST("/export", d.Chat.Export)

	s.GET("/ws", d.WS.SessionWS)
}
