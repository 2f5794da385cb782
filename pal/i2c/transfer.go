package i2c

import (
	"tinygo.org/x/drivers"

	"sepal-go/errcode"
)

// Transferer is the peripheral transfer service. A nil error means the
// peripheral completed the whole descriptor.
type Transferer interface {
	Transfer(d *Descriptor) error
}

// DriversTransfer runs descriptors on any tinygo drivers.I2C. The periph.io
// i2c.Bus has the same Tx shape and plugs in unchanged.
type DriversTransfer struct {
	Bus drivers.I2C
}

var _ Transferer = DriversTransfer{}

func (t DriversTransfer) Transfer(d *Descriptor) error {
	if t.Bus == nil || d == nil {
		return errcode.InvalidParams
	}
	addr := uint16(d.Addr7())
	c0, c1 := d.Chunks[0].Data, d.Chunks[1].Data
	switch d.Flags {
	case FlagWrite:
		return t.Bus.Tx(addr, c0, nil)
	case FlagRead:
		return t.Bus.Tx(addr, nil, c0)
	case FlagWriteRead:
		return t.Bus.Tx(addr, c0, c1)
	case FlagWriteWrite:
		w := make([]byte, 0, len(c0)+len(c1))
		w = append(append(w, c0...), c1...)
		return t.Bus.Tx(addr, w, nil)
	default:
		return errcode.Unsupported
	}
}
