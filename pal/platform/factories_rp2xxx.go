//go:build rp2040 || rp2350

package platform

import (
	"machine"

	"tinygo.org/x/drivers"

	"sepal-go/errcode"
	"sepal-go/pal/gpio"
	"sepal-go/types"
)

// rp2Factory configures machine.I2C0/1 from the bus table and maps pin
// numbers straight to machine.Pin (Pico GP numbering).
type rp2Factory struct{}

// DefaultFactory returns the RP2 factory.
func DefaultFactory() Factory { return rp2Factory{} }

func (rp2Factory) I2C(b types.I2CBus) (drivers.I2C, error) {
	var hw *machine.I2C
	switch b.ID {
	case "i2c0":
		hw = machine.I2C0
	case "i2c1":
		hw = machine.I2C1
	default:
		return nil, errcode.UnknownBus
	}
	if err := hw.Configure(machine.I2CConfig{
		Frequency: b.Hz,
		SDA:       machine.Pin(b.SDA),
		SCL:       machine.Pin(b.SCL),
	}); err != nil {
		return nil, err
	}
	return hw, nil
}

func (rp2Factory) Pin(n int) (gpio.Pin, bool) {
	if n < 0 || n > 29 {
		return nil, false
	}
	return &rp2Pin{p: machine.Pin(n), n: n}, true
}

type rp2Pin struct {
	p machine.Pin
	n int
}

func (r *rp2Pin) ConfigureOutput(initial bool) error {
	r.p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	r.p.Set(initial)
	return nil
}

func (r *rp2Pin) Set(b bool)  { r.p.Set(b) }
func (r *rp2Pin) Get() bool   { return r.p.Get() }
func (r *rp2Pin) Number() int { return r.n }
