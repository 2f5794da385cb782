package types

// PAL configuration supplied on topic "config/pal".

type PALConfig struct {
	Buses    []I2CBus     `json:"buses"`
	Channels []I2CChannel `json:"channels"`
	Pins     []GPIOPin    `json:"pins,omitempty"`
}

// I2CBus describes one physical I²C peripheral (the hardware context).
type I2CBus struct {
	ID     string `json:"id"`               // "i2c0"
	Device string `json:"device,omitempty"` // linux bus name, e.g. "/dev/i2c-1" or "1"
	SDA    int    `json:"sda,omitempty"`    // MCU pin numbers
	SCL    int    `json:"scl,omitempty"`
	Hz     uint32 `json:"hz"` // fixed at configuration time
}

// I2CChannel is one logical device on a bus.
type I2CChannel struct {
	Name    string `json:"name"`    // "optiga0"
	Bus     string `json:"bus"`     // I2CBus.ID
	Address uint8  `json:"address"` // 7-bit
}

// GPIOPin names a reset or power pin. Pin < 0 means not wired.
type GPIOPin struct {
	Name string `json:"name"` // "reset", "vdd"
	Pin  int    `json:"pin"`
}
