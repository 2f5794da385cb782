package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: device ID (same value placed in ctx under CtxDeviceKey)
// Val: raw JSON bytes for that device
// -----------------------------------------------------------------------------

const cfgRPi = `{
  "pal": {
    "buses": [
      {"id": "i2c0", "device": "1", "hz": 400000}
    ],
    "channels": [
      {"name": "optiga0", "bus": "i2c0", "address": 48}
    ],
    "pins": [
      {"name": "reset", "pin": 17},
      {"name": "vdd", "pin": -1}
    ]
  }
}`

const cfgPico = `{
  "pal": {
    "buses": [
      {"id": "i2c0", "sda": 4, "scl": 5, "hz": 100000}
    ],
    "channels": [
      {"name": "optiga0", "bus": "i2c0", "address": 48}
    ],
    "pins": [
      {"name": "reset", "pin": 9},
      {"name": "vdd", "pin": -1}
    ]
  }
}`

var embeddedConfigs = map[string][]byte{
	"rpi":  []byte(cfgRPi),
	"pico": []byte(cfgPico),
}
