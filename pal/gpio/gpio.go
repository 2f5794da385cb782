// Package gpio drives the secure element's reset and power pins.
package gpio

import "sepal-go/errcode"

// Pin is the subset of a platform GPIO the PAL needs.
type Pin interface {
	ConfigureOutput(initial bool) error
	Set(level bool)
	Get() bool
	Number() int
}

// Line is a named control pin. A Line without a Pin is "not wired": every
// operation on it is a silent no-op, so boards without a power switch can
// share code with boards that have one.
type Line struct {
	Name string
	Pin  Pin
	// ActiveLow inverts SetHigh/SetLow at the wire.
	ActiveLow bool
}

// Init configures the pin as an output driven to its inactive (high) level.
func (l *Line) Init() error {
	if l == nil {
		return &errcode.E{C: errcode.InvalidParams, Op: "gpio_init"}
	}
	if l.Pin == nil {
		return nil
	}
	return l.Pin.ConfigureOutput(l.wire(true))
}

// Deinit drives the line back to its inactive level so the element is not
// left in reset or unpowered.
func (l *Line) Deinit() error {
	if l == nil {
		return &errcode.E{C: errcode.InvalidParams, Op: "gpio_deinit"}
	}
	l.set(true)
	return nil
}

func (l *Line) SetHigh() { l.set(true) }
func (l *Line) SetLow()  { l.set(false) }

// Wired reports whether the line drives a real pin.
func (l *Line) Wired() bool { return l != nil && l.Pin != nil }

func (l *Line) set(level bool) {
	if !l.Wired() {
		return
	}
	l.Pin.Set(l.wire(level))
}

func (l *Line) wire(level bool) bool { return level != l.ActiveLow }
