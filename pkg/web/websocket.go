package web

import (
	"encoding/json"

	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-focus/pkg/hub"
	"github.com/teslashibe/go-focus/pkg/tracking/detection"
)

// handleStatusWS streams updates and alerts. ?session=<id> narrows the
// stream to one session; without it every session is streamed.
func (s *Server) handleStatusWS(c *websocket.Conn) {
	client := hub.NewClient(s.hub, c, c.Query("session"))
	client.Run()
}

// handleObservationWS takes landmark frames from a browser and streams
// the session's updates back on the same connection.
func (s *Server) handleObservationWS(c *websocket.Conn) {
	id := c.Params("id")
	cam, err := s.cameraTracker(id)
	if err != nil {
		c.WriteJSON(hub.Envelope{Type: "error", Data: err.Error()})
		c.Close()
		return
	}

	client := hub.NewClient(s.hub, c, id)
	client.OnMessage(func(b []byte) {
		var f detection.Frame
		if err := json.Unmarshal(b, &f); err != nil {
			s.log.Debug("bad observation frame", "session", id, "error", err)
			return
		}
		obs, err := s.observation(f)
		if err != nil {
			s.log.Debug("bad observation frame", "session", id, "error", err)
			return
		}
		// The tracker observer broadcasts the update to this client
		cam.ProcessObservation(obs)
	})
	client.Run()
}
