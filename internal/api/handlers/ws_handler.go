package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/studybuddy/internal/models"
	"github.com/yoockh/studybuddy/internal/services"
	"github.com/yoockh/studybuddy/internal/utils"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

type WSHandler struct {
	sessions    services.SessionService
	chat        services.ChatService
	store       services.MessageStore
	log         logrus.FieldLogger
	upgrader    websocket.Upgrader
	readTimeout time.Duration
}

func NewWSHandler(sessions services.SessionService, chat services.ChatService, store services.MessageStore, log logrus.FieldLogger) *WSHandler {
	return &WSHandler{
		sessions: sessions,
		chat:     chat,
		store:    store,
		log:      log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		readTimeout: wsReadTimeout,
	}
}

// WithReadTimeout sets how long the socket may stay silent between client
// messages. Time spent answering does not count.
func (h *WSHandler) WithReadTimeout(d time.Duration) *WSHandler {
	if d > 0 {
		h.readTimeout = d
	}
	return h
}

type wsClientMsg struct {
	Type     string `json:"type"` // ask|history|export|clear
	Question string `json:"question"`
	Limit    int    `json:"limit"`
}

type wsServerMsg struct {
	Type    string               `json:"type"`
	Status  string               `json:"status,omitempty"`
	Answer  *models.StudyAnswer  `json:"answer,omitempty"`
	Turns   []models.Turn        `json:"turns,omitempty"`
	Export  *models.ExportResult `json:"export,omitempty"`
	Code    utils.Code           `json:"code,omitempty"`
	Message string               `json:"message,omitempty"`
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (w *wsConn) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.c.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
}

func (w *wsConn) writeError(code utils.Code, msg string) {
	_ = w.writeJSON(wsServerMsg{Type: "error", Code: code, Message: msg})
}

func (h *WSHandler) SessionWS(c *gin.Context) {
	sess, ok := requireSession(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	log := h.log.WithFields(logrus.Fields{"session_id": sess.SessionID, "user_id": sess.UserID})

	go func() {
		t := time.NewTicker(wsPingInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := wc.ping(); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	})

	for {
		_, data, rerr := conn.ReadMessage()
		if rerr != nil {
			return
		}

		var msg wsClientMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			wc.writeError(utils.CodeInvalidArgument, "invalid json")
			_ = conn.SetReadDeadline(time.Now().Add(h.readTimeout))
			continue
		}

		if err := h.dispatch(ctx, wc, sess.SessionID, msg); err != nil {
			log.WithError(err).Debug("websocket write failed")
			return
		}
		// a model call may outlast the deadline; pongs are not read meanwhile
		_ = conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	}
}

// dispatch handles one client message; a returned error means the
// connection is gone.
func (h *WSHandler) dispatch(ctx context.Context, wc *wsConn, sessionID string, msg wsClientMsg) error {
	// memory_k may have changed since the socket opened
	sess, err := h.sessions.Get(ctx, sessionID)
	if err != nil {
		wc.writeError(utils.CodeOf(err), "session not found")
		return nil
	}

	switch msg.Type {
	case "ask":
		if err := wc.writeJSON(wsServerMsg{Type: "status", Status: "thinking"}); err != nil {
			return err
		}
		answer, err := h.chat.ProcessTurn(ctx, sess.UserID, &sess.SessionID, msg.Question, sess.MemoryK)
		if err != nil {
			e := turnError(err)
			wc.writeError(e.Code, e.Message)
			return nil
		}
		return wc.writeJSON(wsServerMsg{Type: "answer", Answer: &answer})

	case "history":
		limit := sess.MemoryK
		if msg.Limit > 0 && msg.Limit <= maxHistoryLimit {
			limit = msg.Limit
		}
		turns, err := h.chat.History(ctx, sess.UserID, limit)
		if err != nil {
			wc.writeError(utils.CodeOf(err), "failed to load history")
			return nil
		}
		return wc.writeJSON(wsServerMsg{Type: "history", Turns: turns})

	case "export":
		res, err := h.store.Export(ctx, sess.UserID)
		if err != nil {
			wc.writeError(utils.CodeOf(err), "export failed")
			return nil
		}
		return wc.writeJSON(wsServerMsg{Type: "export", Export: &res})

	case "clear":
		if err := h.store.Clear(ctx, sess.UserID); err != nil {
			wc.writeError(utils.CodeOf(err), "clear failed")
			return nil
		}
		return wc.writeJSON(wsServerMsg{Type: "cleared"})

	default:
		wc.writeError(utils.CodeInvalidArgument, "unknown message type")
		return nil
	}
}
