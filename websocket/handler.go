package websocket

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Authenticator resolves a JWT to a user id
type Authenticator func(token string) (primitive.ObjectID, error)

// NewUpgrader accepts connections from the allowed origins; an empty list
// or "*" accepts any origin
func NewUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(allowedOrigins) == 0 {
				return true
			}
			for _, allowed := range allowedOrigins {
				if allowed == "*" || strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// Handler returns the echo handler for /ws. The token may be passed as the
// "token" query parameter or later as an "AUTH:<token>" text message.
func Handler(hub *Hub, upgrader websocket.Upgrader, authenticate Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID := primitive.NilObjectID
		if token := c.QueryParam("token"); token != "" {
			id, err := authenticate(token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
			}
			userID = id
		}

		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			return err
		}

		client := &Client{
			UserID:        userID,
			Conn:          conn,
			Authenticated: userID != primitive.NilObjectID,
		}
		hub.register <- client

		if client.Authenticated {
			client.WriteJSON(Notification{
				Type:    MessageTypeConnected,
				Message: "WebSocket connection established",
				UserID:  userID.Hex(),
			})
		} else {
			client.WriteJSON(Notification{
				Type:         MessageTypeConnected,
				Message:      "WebSocket connection established. Please authenticate to receive notifications.",
				RequiresAuth: true,
			})
		}

		go readLoop(hub, client, authenticate)
		return nil
	}
}

// readLoop handles AUTH messages until the connection drops
func readLoop(hub *Hub, client *Client, authenticate Authenticator) {
	defer func() {
		hub.unregister <- client
	}()

	for {
		messageType, message, err := client.Conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		text := string(message)
		if !strings.HasPrefix(text, "AUTH:") {
			continue
		}

		id, err := authenticate(strings.TrimPrefix(text, "AUTH:"))
		if err != nil {
			client.WriteJSON(Notification{
				Type:         MessageTypeAuthResponse,
				Message:      "Authentication failed",
				RequiresAuth: true,
			})
			continue
		}
		hub.AuthenticateClient(client, id)
		client.WriteJSON(Notification{
			Type:    MessageTypeAuthResponse,
			Message: "Authenticated",
			UserID:  id.Hex(),
		})
	}
}
