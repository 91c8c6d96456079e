package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/studybuddy/internal/models"
	"github.com/yoockh/studybuddy/internal/services"
	"github.com/yoockh/studybuddy/internal/utils"
)

const maxHistoryLimit = 200

type ChatHandler struct {
	chat  services.ChatService
	store services.MessageStore
}

func NewChatHandler(chat services.ChatService, store services.MessageStore) *ChatHandler {
	return &ChatHandler{chat: chat, store: store}
}

type AskRequest struct {
	Question string `json:"question" binding:"required"`
}

func (h *ChatHandler) Ask(c *gin.Context) {
	sess, ok := requireSession(c)
	if !ok {
		return
	}

	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ChatHandler.Ask", "question is required", err))
		return
	}

	answer, err := h.chat.ProcessTurn(c.Request.Context(), sess.UserID, &sess.SessionID, req.Question, sess.MemoryK)
	if err != nil {
		_ = c.Error(err)
		c.JSON(utils.HTTPStatus(err), turnError(err))
		return
	}
	c.JSON(http.StatusOK, answer)
}

type HistoryResponse struct {
	UserID string        `json:"user_id"`
	Turns  []models.Turn `json:"turns"`
}

// History returns the trailing memory_k turns, or ?limit= turns (max 200).
func (h *ChatHandler) History(c *gin.Context) {
	sess, ok := requireSession(c)
	if !ok {
		return
	}

	limit := sess.MemoryK
	if s := c.Query("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= maxHistoryLimit {
			limit = n
		}
	}

	turns, err := h.chat.History(c.Request.Context(), sess.UserID, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, HistoryResponse{UserID: sess.UserID, Turns: turns})
}

func (h *ChatHandler) Export(c *gin.Context) {
	sess, ok := requireSession(c)
	if !ok {
		return
	}

	res, err := h.store.Export(c.Request.Context(), sess.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ChatHandler) Clear(c *gin.Context) {
	sess, ok := requireSession(c)
	if !ok {
		return
	}

	if err := h.store.Clear(c.Request.Context(), sess.UserID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
