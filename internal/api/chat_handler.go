package api

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"storefront-service/internal/chat"
	"storefront-service/internal/entity"
	"storefront-service/internal/service"
)

type ChatHandler struct {
	chatService *service.ChatService
	hub         *chat.Hub
	upgrader    websocket.Upgrader
}

func NewChatHandler(chatService *service.ChatService, hub *chat.Hub, allowedOrigins []string) *ChatHandler {
	allowed := map[string]bool{}
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &ChatHandler{
		chatService: chatService,
		hub:         hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed[origin]
			},
		},
	}
}

// Send --> POST /api/chat
func (h *ChatHandler) Send(c echo.Context) error {
	req := struct {
		Message   string `json:"message"`
		SessionID string `json:"session_id"`
	}{}
	if err := c.Bind(&req); err != nil {
		return invalidPayload(c)
	}

	reply, err := h.chatService.Send(c.Request().Context(), currentUser(c).ID, req.SessionID, req.Message)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, reply)
}

// History --> GET /api/chat/history/:session_id
func (h *ChatHandler) History(c echo.Context) error {
	skip, limit, err := paging(c)
	if err != nil {
		return respondError(c, err)
	}
	messages, err := h.chatService.History(c.Request().Context(), currentUser(c).ID, c.Param("session_id"), skip, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, messages)
}

// Sessions --> GET /api/chat/sessions
func (h *ChatHandler) Sessions(c echo.Context) error {
	sessions, err := h.chatService.Sessions(c.Request().Context(), currentUser(c).ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, sessions)
}

// DeleteSession --> DELETE /api/chat/session/:session_id
func (h *ChatHandler) DeleteSession(c echo.Context) error {
	if err := h.chatService.DeleteSession(c.Request().Context(), currentUser(c).ID, c.Param("session_id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Chat session deleted"})
}

// WebSocket --> GET /api/chat/ws/:user_id?token=
// Every text frame is answered with "Echo: <payload>" until the client leaves.
func (h *ChatHandler) WebSocket(c echo.Context) error {
	userID := c.Param("user_id")
	if user := currentUser(c); user == nil || user.ID != userID {
		return respondError(c, entity.ErrForbidden)
	}
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Warn().Err(err).Msgf("WebSocket upgrade failed for user %s", userID)
		return nil
	}
	h.hub.Add(userID, conn)
	defer func() {
		h.hub.Remove(userID, conn)
		_ = conn.Close()
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn().Err(err).Msgf("WebSocket of user %s closed", userID)
			}
			return nil
		}
		if err := h.hub.Send(userID, []byte("Echo: "+string(payload))); err != nil {
			return nil
		}
	}
}
