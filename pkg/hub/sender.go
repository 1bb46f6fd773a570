package hub

import (
	"context"

	"github.com/teslashibe/go-focus/pkg/notify"
)

// AlertSender pushes alerts to websocket clients watching the alert's
// session. It satisfies notify.Sender.
type AlertSender struct {
	Hub *Hub
}

// Send broadcasts a as an "alert" envelope.
func (s AlertSender) Send(_ context.Context, a notify.Alert) error {
	return s.Hub.BroadcastJSON(a.SessionID, "alert", a)
}
