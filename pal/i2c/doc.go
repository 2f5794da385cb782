// Package i2c is the PAL's I²C transfer engine.
//
// A Channel is one logical device (a secure element at a 7-bit address) on a
// physical bus described by a Hardware context. Every Write or Read:
//
//   - acquires the bus through the bus Arbiter, failing fast with Busy
//     instead of waiting;
//   - hands a single-chunk Descriptor to the peripheral Transferer;
//   - reports the outcome to the channel's EventHandler exactly once;
//   - releases the bus on every path that acquired it.
//
// The calls are synchronous. The event handler is invoked on the caller's
// goroutine before the call returns, so upper layers written against an
// asynchronous event interface work unchanged.
package i2c
