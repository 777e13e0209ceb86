package websocket

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/HSouheill/gym_backend/middleware"
	"github.com/HSouheill/gym_backend/models"
	"github.com/HSouheill/gym_backend/services"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 8
)

// Client is one websocket connection of an authenticated user
type Client struct {
	hub    *Hub
	userID string
	conn   *websocket.Conn
	send   chan Event
}

// originChecker accepts requests without an Origin header (non-browser
// clients) and browser requests from the allowed origins
func originChecker(allowed []string) func(r *http.Request) bool {
	match := middleware.OriginMatcher(allowed)
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || match(origin)
	}
}

// Handler upgrades GET /auth/events. The access token comes from the "token"
// query parameter, since browsers cannot set headers on a websocket
// handshake, or from the Authorization header or session cookie.
func Handler(hub *Hub, auth middleware.Authenticator, allowedOrigins []string, logger *logrus.Logger) echo.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}

	return func(c echo.Context) error {
		raw := c.QueryParam("token")
		if raw == "" {
			raw = middleware.TokenFromRequest(c)
		}
		if raw == "" {
			return c.JSON(http.StatusUnauthorized, models.Response{Status: http.StatusUnauthorized, Message: "Unauthorized"})
		}

		claims, err := auth.Authenticate(c.Request().Context(), raw)
		if err != nil {
			if errors.Is(err, services.ErrUnauthorized) {
				return c.JSON(http.StatusUnauthorized, models.Response{Status: http.StatusUnauthorized, Message: "Unauthorized"})
			}
			logger.WithError(err).Error("Websocket token verification failed")
			return c.JSON(http.StatusInternalServerError, models.Response{Status: http.StatusInternalServerError, Message: "Internal server error"})
		}
		middleware.SetClaims(c, claims)

		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			// the upgrader already wrote the error response
			logger.WithError(err).Debug("Websocket upgrade failed")
			return nil
		}

		client := &Client{
			hub:    hub,
			userID: claims.UserID,
			conn:   conn,
			send:   make(chan Event, sendBuffer),
		}
		client.send <- Event{
			Type:    EventConnected,
			Message: "WebSocket connection established",
			UserID:  claims.UserID,
		}
		if !hub.add(client) {
			conn.Close()
			return nil
		}

		go client.writePump()
		go client.readPump()
		return nil
	}
}

// readPump only watches for the connection closing; clients send nothing
func (c *Client) readPump() {
	defer c.hub.drop(c)

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
