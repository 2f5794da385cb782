package main

import (
	"context"
	"os"
	"time"

	"sepal-go/bus"
	"sepal-go/pal/i2c"
	"sepal-go/pal/platform"
	"sepal-go/services/config"
	"sepal-go/services/pal"
	"sepal-go/types"
	"sepal-go/x/logx"
)

func main() {
	logx.SetOutput(os.Stderr, logx.FormatText)
	logx.SetLevel(logx.ParseLevel(os.Getenv("PAL_LOG")))

	device := os.Getenv("PAL_DEVICE")
	if device == "" {
		device = "rpi"
	}
	ctx := context.WithValue(context.Background(), config.CtxDeviceKey, device)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	println("[main] bootstrapping bus …")
	b := bus.NewBus(8)
	ui := b.NewConnection("ui")

	mon := ui.Subscribe(i2c.TopicEvents.Append("+", "event"))
	go func() {
		for m := range mon.Channel() {
			if ev, ok := m.Payload.(types.I2CEvent); ok {
				println("[monitor]", ev.Channel, ev.Event)
			}
		}
	}()

	// Host backend: the element is simulated.
	f := platform.NewHostFactory()
	go pal.Run(ctx, b.NewConnection("pal"), f, platform.Options{TxTimeout: time.Second})
	config.NewConfigService().Start(ctx, b.NewConnection("config"))

	if !waitReady(ctx, ui) {
		println("[main] pal did not become ready")
		return
	}

	f.Bus("i2c0").Responder = func(_ uint16, _ []byte, r []byte) {
		for i := range r {
			r[i] = byte(i)
		}
	}
	req := types.I2CRequest{Data: []byte{0x80, 0x00}, N: 4}
	reply, err := ui.RequestWait(ctx, ui.NewMessage(pal.ControlTopic("optiga0", "xfer"), req, false))
	if err != nil {
		println("[main] xfer:", err.Error())
		return
	}
	r := reply.Payload.(types.I2CReply)
	println("[main] xfer", r.Status, "bytes", len(r.Data))

	time.Sleep(50 * time.Millisecond)
	ui.Disconnect()
}

func waitReady(ctx context.Context, ui *bus.Connection) bool {
	sub := ui.Subscribe(pal.TopicState)
	defer ui.Unsubscribe(sub)
	for {
		select {
		case m := <-sub.Channel():
			st := m.Payload.(types.PALState)
			println("[main] pal state", st.Level, st.Status)
			if st.Level == "ready" {
				return true
			}
			if st.Level == "error" {
				return false
			}
		case <-ctx.Done():
			return false
		}
	}
}
