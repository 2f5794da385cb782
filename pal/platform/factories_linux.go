//go:build linux && !baremetal

package platform

import (
	"strconv"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
	"tinygo.org/x/drivers"

	"sepal-go/errcode"
	palgpio "sepal-go/pal/gpio"
	"sepal-go/types"
	"sepal-go/x/logx"
)

// PeriphFactory opens /dev/i2c-* buses and sysfs/gpiochip pins through
// periph.io. A periph i2c.Bus already has the drivers.I2C Tx shape.
type PeriphFactory struct {
	once    sync.Once
	initErr error

	mu    sync.Mutex
	buses []i2c.BusCloser
}

var _ Factory = (*PeriphFactory)(nil)

func NewPeriphFactory() *PeriphFactory { return &PeriphFactory{} }

func (f *PeriphFactory) init() error {
	f.once.Do(func() {
		_, f.initErr = host.Init()
	})
	return f.initErr
}

func (f *PeriphFactory) I2C(b types.I2CBus) (drivers.I2C, error) {
	if err := f.init(); err != nil {
		return nil, err
	}
	// Device names are whatever i2creg knows: "1", "I2C1", "/dev/i2c-1".
	bus, err := i2creg.Open(b.Device)
	if err != nil {
		return nil, &errcode.E{C: errcode.UnknownBus, Op: "periph_open", Msg: b.Device, Err: err}
	}
	if b.Hz > 0 {
		if err := bus.SetSpeed(physic.Frequency(b.Hz) * physic.Hertz); err != nil {
			// Most kernels fix the speed in the device tree.
			logx.Warn(logx.ComponentPlatform, "bus speed not applied", "bus", bus.String(), "err", err)
		}
	}
	f.mu.Lock()
	f.buses = append(f.buses, bus)
	f.mu.Unlock()
	return bus, nil
}

func (f *PeriphFactory) Pin(n int) (palgpio.Pin, bool) {
	if err := f.init(); err != nil {
		return nil, false
	}
	p := gpioreg.ByName(strconv.Itoa(n))
	if p == nil {
		return nil, false
	}
	return &periphPin{p: p}, true
}

// Close releases every bus opened through f.
func (f *PeriphFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var first error
	for _, b := range f.buses {
		if err := b.Close(); err != nil && first == nil {
			first = err
		}
	}
	f.buses = nil
	return first
}

type periphPin struct {
	p     gpio.PinIO
	level bool
}

func (p *periphPin) ConfigureOutput(initial bool) error {
	p.level = initial
	return p.p.Out(gpio.Level(initial))
}

func (p *periphPin) Set(level bool) {
	p.level = level
	if err := p.p.Out(gpio.Level(level)); err != nil {
		logx.Warn(logx.ComponentPlatform, "gpio write failed", "pin", p.p.Name(), "err", err)
	}
}

func (p *periphPin) Get() bool   { return bool(p.p.Read()) }
func (p *periphPin) Number() int { return p.p.Number() }
