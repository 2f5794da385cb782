//go:build !(linux && !baremetal) && !rp2040 && !rp2350

package platform

// DefaultFactory returns the in-memory host factory where no real I²C
// driver is available.
func DefaultFactory() Factory { return NewHostFactory() }
