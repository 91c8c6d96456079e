package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/studybuddy/internal/models"
	"github.com/yoockh/studybuddy/internal/services"
	"github.com/yoockh/studybuddy/internal/utils"
)

type SessionHandler struct {
	svc services.SessionService
}

func NewSessionHandler(svc services.SessionService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

type SessionResponse struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	MemoryK   int    `json:"memory_k"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func sessionResponse(s *models.Session) SessionResponse {
	return SessionResponse{
		SessionID: s.SessionID,
		UserID:    s.UserID,
		MemoryK:   s.MemoryK,
		CreatedAt: s.CreatedAt.Format(time.RFC3339),
		UpdatedAt: s.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *SessionHandler) Start(c *gin.Context) {
	sess, err := h.svc.Start(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sessionResponse(sess))
}

func (h *SessionHandler) Get(c *gin.Context) {
	sess, ok := requireSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sessionResponse(sess))
}

type UpdateMemoryRequest struct {
	MemoryK *int `json:"memory_k" binding:"required"`
}

func (h *SessionHandler) UpdateMemory(c *gin.Context) {
	sess, ok := requireSession(c)
	if !ok {
		return
	}

	var req UpdateMemoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "SessionHandler.UpdateMemory", "invalid request body", err))
		return
	}

	updated, err := h.svc.SetMemoryK(c.Request.Context(), sess.SessionID, *req.MemoryK)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse(updated))
}
