package i2c

import (
	"time"

	"sepal-go/bus"
	"sepal-go/types"
)

// TopicEvents is the prefix for per-channel event topics:
// pal/i2c/<channel>/event.
var TopicEvents = bus.T("pal", "i2c")

// BusNotifier is an EventHandler that publishes each event on the bus.
// Publishing never blocks, so it is safe on the transfer path.
type BusNotifier struct {
	Conn    *bus.Connection
	Channel string
	Now     func() time.Time // nil => time.Now
}

func (n *BusNotifier) HandleEvent(_ any, ev Event) {
	if n == nil || n.Conn == nil {
		return
	}
	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	n.Conn.Publish(n.Conn.NewMessage(
		TopicEvents.Append(n.Channel, "event"),
		types.I2CEvent{Channel: n.Channel, Event: ev.String(), TS: now().UnixMilli()},
		false,
	))
}
