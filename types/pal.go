package types

// I2CEvent is the payload published for each completed I²C operation on
// "pal/i2c/<channel>/event".
type I2CEvent struct {
	Channel string `json:"channel"`
	Event   string `json:"event"` // "success", "error", "busy"
	TS      int64  `json:"ts_ms"`
}

// I2CRequest is the payload of "pal/i2c/<channel>/control/<method>".
// Methods: init, deinit, write (Data), read (N), xfer (Data then N,
// under the OS lock), set_bitrate (Hz).
type I2CRequest struct {
	Data []byte `json:"data,omitempty"`
	N    int    `json:"n,omitempty"`
	Hz   uint16 `json:"hz,omitempty"`
}

// I2CReply answers an I2CRequest.
type I2CReply struct {
	OK     bool   `json:"ok"`
	Status string `json:"status"` // "success", "failure", "busy"
	Code   string `json:"code,omitempty"`
	Error  string `json:"error,omitempty"`
	Data   []byte `json:"data,omitempty"`
}

// PALState is retained on "pal/state".
type PALState struct {
	Level    string   `json:"level"` // "idle", "ready", "error", "stopped"
	Status   string   `json:"status"`
	Error    string   `json:"error,omitempty"`
	Channels []string `json:"channels,omitempty"`
	TS       int64    `json:"ts_ms"`
}
