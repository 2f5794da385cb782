package i2c

import (
	"sync/atomic"

	"sepal-go/errcode"
)

// Arbiter guards one physical bus. It is a coarse held/free flag, not an
// owner-tracked mutex: Acquire never blocks and never nests, and Release
// frees the bus whoever calls it.
type Arbiter struct {
	held atomic.Int32 // 0 free, 1 held
}

// Acquire moves the bus from free to held, or reports Busy.
func (a *Arbiter) Acquire() error {
	if !a.held.CompareAndSwap(0, 1) {
		return errcode.Busy
	}
	return nil
}

// Release marks the bus free. Releasing a free bus is a no-op.
func (a *Arbiter) Release() { a.held.Store(0) }

// Held reports whether the bus is currently held.
func (a *Arbiter) Held() bool { return a.held.Load() == 1 }

// acquire applies the arbiter to a channel. An absent channel or hardware
// context cannot be arbitrated and reads as Busy.
func (c *Channel) acquire() error {
	if c == nil || c.HW == nil {
		return errcode.Busy
	}
	return c.HW.arb.Acquire()
}

func (c *Channel) release() {
	if c == nil || c.HW == nil {
		return
	}
	c.HW.arb.Release()
}
