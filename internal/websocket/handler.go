package websocket

import (
	"encoding/json"
	"log"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// clientMessage is what connected clients send: subscribe to or leave
// a deployment's event room
type clientMessage struct {
	Action       string `json:"action"`
	DeploymentID string `json:"deploymentId"`
}

// UpgradeMiddleware rejects plain HTTP requests on the websocket route
func UpgradeMiddleware(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handler serves one websocket connection for the lifetime of the
// socket. The user ID is set by the auth middleware before upgrade.
func Handler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("userId").(string)

		client := &Client{
			Conn:   conn,
			UserID: userID,
			Rooms:  make(map[string]bool),
		}
		h := GetHub()
		h.Register(client)
		defer h.Unregister(client)

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}

			var msg clientMessage
			if err := json.Unmarshal(raw, &msg); err != nil {
				log.Printf("[WebSocket] Ignoring malformed client message: %v", err)
				continue
			}

			switch msg.Action {
			case "subscribe":
				if msg.DeploymentID != "" {
					h.JoinRoom(client, msg.DeploymentID)
				}
			case "unsubscribe":
				if msg.DeploymentID != "" {
					h.LeaveRoom(client, msg.DeploymentID)
				}
			default:
				log.Printf("[WebSocket] Unknown action %q from %s", msg.Action, client.UserID)
			}
		}
	})
}
