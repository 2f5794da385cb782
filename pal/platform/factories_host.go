package platform

import (
	"errors"
	"sync"
	"time"

	"tinygo.org/x/drivers"

	"sepal-go/pal/gpio"
	"sepal-go/types"
)

// ----------------------------- I²C (host) ------------------------------------

// ErrNack is what HostI2C returns for scripted failures.
var ErrNack = errors.New("host i2c: nack")

// Tx is one recorded HostI2C transaction.
type Tx struct {
	Addr uint16
	W    []byte
	Rn   int
}

// HostI2C implements drivers.I2C for host-side runs and tests. It records
// every transaction and answers reads through Responder.
type HostI2C struct {
	mu        sync.Mutex
	log       []Tx
	failNext  int
	Delay     time.Duration
	Responder func(addr uint16, w []byte, r []byte) // nil => reads return zeros
}

var _ drivers.I2C = (*HostI2C)(nil)

func (h *HostI2C) Tx(addr uint16, w, r []byte) error {
	h.mu.Lock()
	h.log = append(h.log, Tx{Addr: addr, W: append([]byte(nil), w...), Rn: len(r)})
	fail := h.failNext > 0
	if fail {
		h.failNext--
	}
	respond, delay := h.Responder, h.Delay
	h.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if fail {
		return ErrNack
	}
	if len(r) > 0 {
		clear(r)
		if respond != nil {
			respond(addr, w, r)
		}
	}
	return nil
}

// FailNext makes the next n transactions fail with ErrNack.
func (h *HostI2C) FailNext(n int) {
	h.mu.Lock()
	h.failNext = n
	h.mu.Unlock()
}

// Log returns a copy of the recorded transactions.
func (h *HostI2C) Log() []Tx {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Tx(nil), h.log...)
}

// ----------------------------- GPIO (host) -----------------------------------

// FakePin implements gpio.Pin in memory.
type FakePin struct {
	mu      sync.RWMutex
	number  int
	level   bool
	modeOut bool
	history []bool
}

func (p *FakePin) ConfigureOutput(initial bool) error {
	p.mu.Lock()
	p.modeOut = true
	p.level = initial
	p.mu.Unlock()
	return nil
}

func (p *FakePin) Set(level bool) {
	p.mu.Lock()
	p.level = level
	p.history = append(p.history, level)
	p.mu.Unlock()
}

func (p *FakePin) Get() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.level
}

func (p *FakePin) Number() int { return p.number }

// History returns every level written with Set.
func (p *FakePin) History() []bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]bool(nil), p.history...)
}

// ----------------------------- Factory (host) --------------------------------

// HostFactory hands out HostI2C buses by id and FakePins by number. Buses
// and pins are created on first use and stable afterwards.
type HostFactory struct {
	mu    sync.Mutex
	buses map[string]*HostI2C
	pins  map[int]*FakePin
}

var _ Factory = (*HostFactory)(nil)

func NewHostFactory() *HostFactory {
	return &HostFactory{buses: map[string]*HostI2C{}, pins: map[int]*FakePin{}}
}

func (f *HostFactory) I2C(b types.I2CBus) (drivers.I2C, error) {
	return f.Bus(b.ID), nil
}

func (f *HostFactory) Pin(n int) (gpio.Pin, bool) {
	return f.FakePin(n), true
}

// Bus returns the HostI2C for id, creating it if needed.
func (f *HostFactory) Bus(id string) *HostI2C {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.buses == nil {
		f.buses = map[string]*HostI2C{}
	}
	b, ok := f.buses[id]
	if !ok {
		b = &HostI2C{}
		f.buses[id] = b
	}
	return b
}

// FakePin returns the FakePin for n, creating it if needed.
func (f *HostFactory) FakePin(n int) *FakePin {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pins == nil {
		f.pins = map[int]*FakePin{}
	}
	p, ok := f.pins[n]
	if !ok {
		p = &FakePin{number: n}
		f.pins[n] = p
	}
	return p
}
