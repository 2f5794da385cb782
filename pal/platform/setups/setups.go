// Package setups holds the static board tables: which bus the secure
// element sits on, at what speed and address, and which pins drive its
// reset and power lines.
package setups

import "sepal-go/types"

// OPTIGA Trust default slave address.
const OptigaAddress = 0x30

// OptigaDefault mirrors the reference board: one element on i2c0 at
// 100 kHz, reset on pin 9, no switched supply.
var OptigaDefault = types.PALConfig{
	Buses: []types.I2CBus{
		{ID: "i2c0", Device: "1", SDA: 4, SCL: 5, Hz: 100_000},
	},
	Channels: []types.I2CChannel{
		{Name: "optiga0", Bus: "i2c0", Address: OptigaAddress},
	},
	Pins: []types.GPIOPin{
		{Name: "reset", Pin: 9},
		{Name: "vdd", Pin: -1},
	},
}

// PicoDual has two elements on separate buses.
var PicoDual = types.PALConfig{
	Buses: []types.I2CBus{
		{ID: "i2c0", SDA: 12, SCL: 13, Hz: 400_000},
		{ID: "i2c1", SDA: 18, SCL: 19, Hz: 400_000},
	},
	Channels: []types.I2CChannel{
		{Name: "optiga0", Bus: "i2c0", Address: OptigaAddress},
		{Name: "optiga1", Bus: "i2c1", Address: OptigaAddress},
	},
	Pins: []types.GPIOPin{
		{Name: "reset", Pin: 9},
		{Name: "vdd", Pin: -1},
	},
}

var byName = map[string]types.PALConfig{
	"optiga":    OptigaDefault,
	"pico_dual": PicoDual,
}

// Lookup returns a named table.
func Lookup(name string) (types.PALConfig, bool) {
	c, ok := byName[name]
	return c, ok
}
