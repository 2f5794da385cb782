package i2c

// Event is the outcome reported to the upper layer.
type Event uint8

const (
	EventSuccess Event = iota
	EventError
	EventBusy
)

func (e Event) String() string {
	switch e {
	case EventSuccess:
		return "success"
	case EventError:
		return "error"
	case EventBusy:
		return "busy"
	default:
		return "unknown"
	}
}

// EventHandler receives one event per completed Read or Write.
// upperCtx is the Channel's UpperCtx, passed through untouched.
type EventHandler interface {
	HandleEvent(upperCtx any, ev Event)
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc func(upperCtx any, ev Event)

func (f EventHandlerFunc) HandleEvent(upperCtx any, ev Event) { f(upperCtx, ev) }

// Handlers fans one event out to several handlers in order.
type Handlers []EventHandler

func (hs Handlers) HandleEvent(upperCtx any, ev Event) {
	for _, h := range hs {
		if h != nil {
			h.HandleEvent(upperCtx, ev)
		}
	}
}
