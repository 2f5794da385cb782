// Package sched provides the scheduler primitives the PAL lock is built on:
// a binary semaphore with an unbounded (or context-bounded) take and a
// critical section guarding one-time initialisation.
//
// On an RTOS these map onto the kernel's semaphore and enter/exit critical
// calls. The Go implementation below backs them with a channel and a mutex.
package sched

import (
	"context"
	"sync"
	"sync/atomic"

	"sepal-go/errcode"
)

// Semaphore is a binary semaphore.
type Semaphore interface {
	// Take waits until the semaphore is available and takes it.
	// It returns an error only when ctx ends first.
	Take(ctx context.Context) error
	// TryTake takes the semaphore if it is available, without waiting.
	TryTake() bool
	// Give makes the semaphore available. It never blocks; giving an
	// already available semaphore is a no-op.
	Give()
}

// Scheduler supplies semaphores and the critical section.
type Scheduler interface {
	NewBinarySemaphore() (Semaphore, error)
	EnterCritical()
	ExitCritical()
}

// Go is the goroutine-backed Scheduler. The zero value is ready to use.
type Go struct {
	crit    sync.Mutex
	created atomic.Int32
}

var _ Scheduler = (*Go)(nil)

// NewBinarySemaphore returns a semaphore in the taken state, like a freshly
// created RTOS binary semaphore.
func (g *Go) NewBinarySemaphore() (Semaphore, error) {
	g.created.Add(1)
	return &binSem{ch: make(chan struct{}, 1)}, nil
}

func (g *Go) EnterCritical() { g.crit.Lock() }
func (g *Go) ExitCritical()  { g.crit.Unlock() }

// Created reports how many semaphores this scheduler has handed out.
func (g *Go) Created() int { return int(g.created.Load()) }

// binSem holds a token in a one-slot channel: full means available.
type binSem struct {
	ch chan struct{}
}

func (s *binSem) Take(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-s.ch:
		return nil
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return errcode.Wrap(errcode.Timeout, "sem_take", ctx.Err())
		}
		return errcode.Wrap(errcode.Error, "sem_take", ctx.Err())
	}
}

func (s *binSem) TryTake() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}

func (s *binSem) Give() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}
