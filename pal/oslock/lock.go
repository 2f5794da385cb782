// Package oslock is the PAL's generic binary lock. Upper layers use it to
// serialise work that spans several I2C operations, such as a whole
// command/response exchange with the secure element.
//
// The semaphore behind the lock is created lazily on first use. Creation is
// guarded by the scheduler's critical section so that concurrent first
// callers initialise it exactly once.
package oslock

import (
	"context"

	"sepal-go/errcode"
	"sepal-go/pal/sched"
	"sepal-go/x/logx"
)

// Lock is a binary lock backed by a scheduler semaphore.
// States: uninitialised, free, held.
type Lock struct {
	s      sched.Scheduler
	inited bool // guarded by s's critical section
	sem    sched.Semaphore
	err    error // creation failure, sticky
}

// New returns an uninitialised lock using s. A nil s selects a private
// goroutine scheduler.
func New(s sched.Scheduler) *Lock {
	if s == nil {
		s = &sched.Go{}
	}
	return &Lock{s: s}
}

// lazyInit creates the semaphore once and gives it so it starts free.
func (l *Lock) lazyInit() (sched.Semaphore, error) {
	l.s.EnterCritical()
	defer l.s.ExitCritical()
	if !l.inited {
		l.inited = true
		sem, err := l.s.NewBinarySemaphore()
		if err != nil {
			l.err = errcode.Wrap(errcode.Error, "lock_init", err)
			logx.Error(logx.ComponentLock, "semaphore create failed", "err", err)
		} else {
			sem.Give()
			l.sem = sem
		}
	}
	return l.sem, l.err
}

// Acquire blocks until the lock is held by the caller.
func (l *Lock) Acquire() error {
	return l.AcquireContext(context.Background())
}

// AcquireContext is Acquire with a wait bounded by ctx.
func (l *Lock) AcquireContext(ctx context.Context) error {
	sem, err := l.lazyInit()
	if err != nil {
		return err
	}
	if err := sem.Take(ctx); err != nil {
		logx.Debug(logx.ComponentLock, "take failed", "err", err)
		return err
	}
	return nil
}

// TryAcquire takes the lock if it is free and reports busy otherwise.
func (l *Lock) TryAcquire() error {
	sem, err := l.lazyInit()
	if err != nil {
		return err
	}
	if !sem.TryTake() {
		return errcode.Busy
	}
	return nil
}

// Release frees the lock. It never blocks. Releasing a free lock leaves it
// free.
func (l *Lock) Release() {
	sem, err := l.lazyInit()
	if err != nil {
		return
	}
	sem.Give()
}

var std = New(nil)

// Default returns the process-wide lock used by the package functions.
func Default() *Lock { return std }

// Acquire blocks on the process-wide lock.
func Acquire() error { return std.Acquire() }

// Release frees the process-wide lock.
func Release() { std.Release() }
