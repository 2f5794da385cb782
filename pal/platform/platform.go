// Package platform turns a PAL configuration into live hardware contexts,
// channels and control pins, using a Factory for the target it runs on.
package platform

import (
	"sort"
	"time"

	"tinygo.org/x/drivers"

	"sepal-go/bus"
	"sepal-go/errcode"
	"sepal-go/pal/gpio"
	"sepal-go/pal/i2c"
	"sepal-go/types"
	"sepal-go/x/logx"
	"sepal-go/x/mathx"
)

// Bus speed bounds accepted from configuration.
const (
	DefaultHz uint32 = 100_000
	MinHz     uint32 = 10_000
	MaxHz     uint32 = 1_000_000
)

// Factory opens the raw peripherals for one target.
type Factory interface {
	// I2C returns a configured bus. The speed in b.Hz is applied here,
	// once; the engine never changes it afterwards.
	I2C(b types.I2CBus) (drivers.I2C, error)
	// Pin returns a GPIO by number.
	Pin(n int) (gpio.Pin, bool)
}

// Options tune Build.
type Options struct {
	// TxTimeout bounds one peripheral transaction. 0 waits for completion.
	TxTimeout time.Duration
}

// Set is everything built from one configuration.
type Set struct {
	Hardware map[string]*i2c.Hardware
	Channels map[string]*i2c.Channel
	Lines    map[string]*gpio.Line

	workers []*busWorker
}

// Build wires cfg against f. On error nothing is left running.
func Build(cfg types.PALConfig, f Factory, opts Options) (*Set, error) {
	s := &Set{
		Hardware: map[string]*i2c.Hardware{},
		Channels: map[string]*i2c.Channel{},
		Lines:    map[string]*gpio.Line{},
	}
	if f == nil {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "platform_build", Msg: "no factory"}
	}

	for _, b := range cfg.Buses {
		if b.ID == "" || s.Hardware[b.ID] != nil {
			s.Close()
			return nil, &errcode.E{C: errcode.InvalidParams, Op: "platform_build", Msg: "bad or duplicate bus id " + b.ID}
		}
		hz := b.Hz
		if hz == 0 {
			hz = DefaultHz
		}
		b.Hz = mathx.Clamp(hz, MinHz, MaxHz)
		raw, err := f.I2C(b)
		if err != nil {
			s.Close()
			return nil, &errcode.E{C: errcode.UnknownBus, Op: "platform_build", Msg: b.ID, Err: err}
		}
		w := newBusWorker(b.ID, raw, opts.TxTimeout)
		s.workers = append(s.workers, w)
		s.Hardware[b.ID] = i2c.NewHardware(i2c.DriversTransfer{Bus: w}, b.Hz)
		logx.Info(logx.ComponentPlatform, "i2c bus ready", "bus", b.ID, "hz", b.Hz)
	}

	for _, c := range cfg.Channels {
		hw := s.Hardware[c.Bus]
		switch {
		case hw == nil:
			s.Close()
			return nil, &errcode.E{C: errcode.UnknownBus, Op: "platform_build", Msg: c.Name + " -> " + c.Bus}
		case c.Name == "" || s.Channels[c.Name] != nil || c.Address > 0x7F:
			s.Close()
			return nil, &errcode.E{C: errcode.InvalidParams, Op: "platform_build", Msg: "bad channel " + c.Name}
		}
		s.Channels[c.Name] = &i2c.Channel{Name: c.Name, HW: hw, SlaveAddress: c.Address}
	}

	for _, p := range cfg.Pins {
		l := &gpio.Line{Name: p.Name}
		if p.Pin >= 0 {
			pin, ok := f.Pin(p.Pin)
			if !ok {
				s.Close()
				return nil, &errcode.E{C: errcode.UnknownPin, Op: "platform_build", Msg: p.Name}
			}
			l.Pin = pin
		}
		if err := l.Init(); err != nil {
			s.Close()
			return nil, err
		}
		s.Lines[p.Name] = l
	}
	return s, nil
}

// Channel returns a channel by name, or nil.
func (s *Set) Channel(name string) *i2c.Channel { return s.Channels[name] }

// Line returns a control line by name. Unknown names give an unwired line.
func (s *Set) Line(name string) *gpio.Line {
	if l := s.Lines[name]; l != nil {
		return l
	}
	return &gpio.Line{Name: name}
}

// ChannelNames lists channels in stable order.
func (s *Set) ChannelNames() []string {
	out := make([]string, 0, len(s.Channels))
	for n := range s.Channels {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Notify publishes every channel's events on conn, keeping any handler
// already installed.
func (s *Set) Notify(conn *bus.Connection) {
	for name, ch := range s.Channels {
		n := &i2c.BusNotifier{Conn: conn, Channel: name}
		if ch.Handler == nil {
			ch.Handler = n
			continue
		}
		ch.Handler = i2c.Handlers{ch.Handler, n}
	}
}

// Close releases the control lines and stops the bus workers. Channels
// fail with a transfer error after.
func (s *Set) Close() {
	for name, l := range s.Lines {
		if err := l.Deinit(); err != nil {
			logx.Warn(logx.ComponentPlatform, "line deinit failed", "line", name, "err", err)
		}
	}
	for _, w := range s.workers {
		w.close()
	}
}
