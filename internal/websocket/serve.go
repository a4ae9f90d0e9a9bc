package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs runs one upgraded connection to completion. The bearer credential
// has already been verified by the HTTP handler; all that is left is capacity
// admission and the pumps.
func ServeWs(hub *Hub, c *websocket.Conn, assessorID string) {
	session := newSession(hub, c, assessorID)

	if err := hub.Register(session); err != nil {
		// Shed, don't queue. The distinct close code lets the client tell
		// "try later" from an auth failure.
		hub.logger.Warn("ServeWs", "Connection shed at capacity", map[string]interface{}{"assessor_id": assessorID})
		c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(CloseCapacity, "capacity"))
		c.Close()
		return
	}

	go session.writePump()
	session.readPump() // Run readPump in current goroutine (handler)
}
