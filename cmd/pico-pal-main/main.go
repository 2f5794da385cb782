//go:build rp2040 || rp2350

package main

import (
	"context"
	"machine"
	"time"

	"github.com/jangala-dev/tinygo-uartx/uartx"

	"sepal-go/pal/console"
	"sepal-go/pal/i2c"
	"sepal-go/pal/oslock"
	"sepal-go/pal/platform"
	"sepal-go/services/config"
)

const (
	consoleBaud = 115200
	consoleTX   = machine.Pin(0)
	consoleRX   = machine.Pin(1)
)

// uartReader adapts the UART's context receive to io.Reader.
type uartReader struct{ u *uartx.UART }

func (r uartReader) Read(p []byte) (int, error) {
	return r.u.RecvSomeContext(context.Background(), p)
}

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("[pal] boot")

	u := uartx.UART0
	if err := u.Configure(uartx.UARTConfig{BaudRate: consoleBaud, TX: consoleTX, RX: consoleRX}); err != nil {
		println("[pal] uart0 configure failed:", err.Error())
		return
	}

	cfg, err := config.Load("pico")
	if err != nil {
		println("[pal] config:", err.Error())
		return
	}
	set, err := platform.Build(cfg, platform.DefaultFactory(), platform.Options{TxTimeout: 200 * time.Millisecond})
	if err != nil {
		println("[pal] platform:", err.Error())
		return
	}
	for _, name := range set.ChannelNames() {
		ch := set.Channel(name)
		ch.Handler = i2c.EventHandlerFunc(func(_ any, ev i2c.Event) {
			println("[pal]", name, "event", ev.String())
		})
		if err := ch.Init(); err != nil {
			println("[pal]", name, "init:", err.Error())
		}
	}

	// Bring the element out of reset before handing over to the console.
	rst := set.Line("reset")
	rst.SetLow()
	time.Sleep(10 * time.Millisecond)
	rst.SetHigh()
	println("[pal] ready on uart0")

	c := console.New(set, oslock.Default(), u)
	for {
		if err := c.Run(context.Background(), uartReader{u}, "pal> "); err != nil {
			println("[pal] console:", err.Error())
		}
		time.Sleep(100 * time.Millisecond)
	}
}
