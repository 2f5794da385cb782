//go:build linux && !baremetal

package platform

// DefaultFactory returns the periph.io factory on Linux hosts.
func DefaultFactory() Factory { return NewPeriphFactory() }
