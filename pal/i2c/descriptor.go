package i2c

// Flag selects the direction of a Descriptor.
type Flag uint8

const (
	FlagWrite      Flag = iota // chunk 0 written
	FlagRead                   // chunk 0 read
	FlagWriteRead              // chunk 0 written, repeated start, chunk 1 read
	FlagWriteWrite             // chunk 0 then chunk 1 written in one transaction
)

func (f Flag) String() string {
	switch f {
	case FlagWrite:
		return "write"
	case FlagRead:
		return "read"
	case FlagWriteRead:
		return "write_read"
	case FlagWriteWrite:
		return "write_write"
	default:
		return "unknown"
	}
}

// MaxTransferLen is the largest single chunk a Read or Write accepts.
const MaxTransferLen = 0xFFFF

// Chunk is one buffer of a transfer; its length is len(Data).
type Chunk struct {
	Data []byte
}

func (c Chunk) Len() int { return len(c.Data) }

// Descriptor is what the engine hands to the peripheral for one transfer.
// Addr is in 8-bit wire form: the 7-bit slave address shifted left by one.
type Descriptor struct {
	Addr   uint8
	Flags  Flag
	Chunks [2]Chunk
}

// Addr7 returns the 7-bit slave address.
func (d *Descriptor) Addr7() uint8 { return d.Addr >> 1 }

// newDescriptor builds the single-chunk form used by Read and Write.
// The second chunk is always empty.
func newDescriptor(addr7 uint8, f Flag, p []byte) Descriptor {
	return Descriptor{
		Addr:   addr7 << 1,
		Flags:  f,
		Chunks: [2]Chunk{{Data: p}},
	}
}
