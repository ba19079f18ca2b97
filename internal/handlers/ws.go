package handlers

import (
	"github.com/gofiber/websocket/v2"

	"sdcp-backend/internal/services"
)

// AdminEvents streams ingest completion events to a connected admin client
// so the dashboard updates without polling.
func AdminEvents(hub *services.EventHub) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		defer conn.Close()
		events, cancel := hub.Subscribe()
		defer cancel()

		for ev := range events {
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}
