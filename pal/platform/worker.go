package platform

import (
	"sync"
	"sync/atomic"
	"time"

	"tinygo.org/x/drivers"

	"sepal-go/errcode"
)

type txReq struct {
	addr uint16
	w, r []byte
	done chan error // buffered(1); worker replies best-effort
	// gone is set when the caller stopped waiting. The worker skips such
	// requests so a late Tx never writes into a buffer the caller reused.
	gone *atomic.Bool
}

// busWorker owns one raw peripheral and runs every Tx on a single
// goroutine. MCU peripheral drivers are not goroutine-safe; routing all
// access through one worker keeps them that way regardless of caller.
type busWorker struct {
	id      string
	hw      drivers.I2C
	reqs    chan txReq
	quit    chan struct{}
	stop    sync.Once
	timeout time.Duration // 0 => wait for completion
}

var _ drivers.I2C = (*busWorker)(nil)

func newBusWorker(id string, hw drivers.I2C, timeout time.Duration) *busWorker {
	w := &busWorker{
		id:      id,
		hw:      hw,
		reqs:    make(chan txReq, 4),
		quit:    make(chan struct{}),
		timeout: timeout,
	}
	go w.loop()
	return w
}

func (w *busWorker) loop() {
	for {
		select {
		case req := <-w.reqs:
			select {
			case <-w.quit:
				req.done <- errcode.UnknownBus
				return
			default:
			}
			if req.gone.Load() {
				continue
			}
			err := w.hw.Tx(req.addr, req.w, req.r)
			select {
			case req.done <- err:
			default:
			}
		case <-w.quit:
			return
		}
	}
}

func (w *busWorker) close() { w.stop.Do(func() { close(w.quit) }) }

// Tx posts a transaction and waits for it. With a timeout set, a hung
// peripheral yields Timeout rather than blocking the caller forever.
func (w *busWorker) Tx(addr uint16, wr, rd []byte) error {
	select {
	case <-w.quit:
		return errcode.UnknownBus
	default:
	}
	req := txReq{addr: addr, w: wr, r: rd, done: make(chan error, 1), gone: new(atomic.Bool)}

	var deadline <-chan time.Time
	if w.timeout > 0 {
		t := time.NewTimer(w.timeout)
		defer t.Stop()
		deadline = t.C
	}

	select {
	case w.reqs <- req:
	case <-w.quit:
		return errcode.UnknownBus
	case <-deadline:
		return errcode.Timeout
	}

	select {
	case err := <-req.done:
		return err
	case <-w.quit:
		req.gone.Store(true)
		return errcode.UnknownBus
	case <-deadline:
		req.gone.Store(true)
		return errcode.Timeout
	}
}
