package i2c

import (
	"sepal-go/errcode"
	"sepal-go/x/logx"
)

// Hardware is the platform-supplied context for one physical bus. Channels
// on the same bus share one Hardware and therefore one Arbiter.
// The engine reads Periph and BitrateHz but never changes them.
type Hardware struct {
	Periph    Transferer
	BitrateHz uint32

	arb Arbiter
}

// NewHardware returns a Hardware context over p.
func NewHardware(p Transferer, bitrateHz uint32) *Hardware {
	return &Hardware{Periph: p, BitrateHz: bitrateHz}
}

// Arbiter exposes the bus arbiter, e.g. for upper layers that need to hold
// the bus out of band.
func (h *Hardware) Arbiter() *Arbiter { return &h.arb }

// Channel is one logical I²C device. It is typically declared once in a
// static configuration table and used for the lifetime of the program.
type Channel struct {
	Name         string
	HW           *Hardware
	SlaveAddress uint8 // 7-bit
	UpperCtx     any
	Handler      EventHandler // may be nil
}

// Init checks that the channel is wired to a peripheral. The peripheral
// itself is brought up by the platform layer, so Init touches no hardware.
func (c *Channel) Init() error {
	if c == nil || c.HW == nil || c.HW.Periph == nil {
		return &errcode.E{C: errcode.InvalidParams, Op: "i2c_init", Msg: "no hardware context"}
	}
	return nil
}

// Deinit mirrors Init; there is no teardown.
func (c *Channel) Deinit() error {
	if c == nil {
		return &errcode.E{C: errcode.InvalidParams, Op: "i2c_deinit"}
	}
	return nil
}

// Write sends data to the slave in a single transaction.
func (c *Channel) Write(data []byte) error {
	return c.do("i2c_write", FlagWrite, data)
}

// Read fills buf from the slave in a single transaction.
func (c *Channel) Read(buf []byte) error {
	return c.do("i2c_read", FlagRead, buf)
}

// SetBitrate accepts any rate and always succeeds: the bus speed is fixed
// when the platform configures the peripheral.
func (c *Channel) SetBitrate(hz uint16) error {
	logx.Debug(logx.ComponentI2C, "set bitrate ignored", "channel", c.name(), "hz", hz)
	return nil
}

func (c *Channel) do(op string, f Flag, p []byte) error {
	if c == nil {
		return &errcode.E{C: errcode.InvalidParams, Op: op, Msg: "nil channel"}
	}
	if len(p) > MaxTransferLen || c.SlaveAddress > 0x7F {
		c.notify(EventError)
		return &errcode.E{C: errcode.InvalidParams, Op: op, Msg: "length or address out of range"}
	}

	if err := c.acquire(); err != nil {
		logx.Debug(logx.ComponentI2C, "bus busy", "op", op, "channel", c.name())
		c.notify(EventBusy)
		return &errcode.E{C: errcode.Busy, Op: op}
	}
	defer c.release()

	d := newDescriptor(c.SlaveAddress, f, p)
	if err := c.transfer(&d); err != nil {
		logx.Debug(logx.ComponentI2C, "transfer failed", "op", op, "channel", c.name(), "addr", c.SlaveAddress, "err", err)
		c.notify(EventError)
		return errcode.Wrap(errcode.TransferError, op, err)
	}
	c.notify(EventSuccess)
	return nil
}

func (c *Channel) transfer(d *Descriptor) error {
	if c.HW.Periph == nil {
		return errcode.InvalidParams
	}
	return c.HW.Periph.Transfer(d)
}

func (c *Channel) notify(ev Event) {
	if c.Handler != nil {
		c.Handler.HandleEvent(c.UpperCtx, ev)
	}
}

func (c *Channel) name() string {
	if c == nil {
		return ""
	}
	return c.Name
}
