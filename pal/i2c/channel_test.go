package i2c

import (
	"bytes"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"sepal-go/errcode"
)

// fakePeriph records descriptors and returns a scripted result.
type fakePeriph struct {
	mu     sync.Mutex
	hw     *Hardware
	result error
	delay  time.Duration
	fill   []byte // copied into read buffers
	got    []Descriptor
	heldIn []bool // arbiter state observed during each transfer

	inFlight atomic.Int32
	maxIn    atomic.Int32
}

func (f *fakePeriph) Transfer(d *Descriptor) error {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxIn.Load()
		if n <= m || f.maxIn.CompareAndSwap(m, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, *d)
	if f.hw != nil {
		f.heldIn = append(f.heldIn, f.hw.Arbiter().Held())
	}
	if d.Flags == FlagRead {
		copy(d.Chunks[0].Data, f.fill)
	}
	return f.result
}

// eventLog counts handler calls per event and checks the upper context.
type eventLog struct {
	mu     sync.Mutex
	events []Event
	ctxs   []any
}

func (l *eventLog) HandleEvent(upperCtx any, ev Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.ctxs = append(l.ctxs, upperCtx)
	l.mu.Unlock()
}

func (l *eventLog) snapshot() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}

func newTestChannel(p *fakePeriph) (*Channel, *eventLog) {
	hw := NewHardware(p, 100_000)
	p.hw = hw
	log := &eventLog{}
	return &Channel{Name: "optiga0", HW: hw, SlaveAddress: 0x30, UpperCtx: "upper", Handler: log}, log
}

func expectEvents(t *testing.T, l *eventLog, want ...Event) {
	t.Helper()
	got := l.snapshot()
	if len(got) != len(want) {
		t.Fatalf("events=%v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events=%v want %v", got, want)
		}
	}
}

func TestWriteSuccess(t *testing.T) {
	p := &fakePeriph{}
	ch, log := newTestChannel(p)

	err := ch.Write([]byte{0x01, 0x02})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if errcode.StatusOf(err) != errcode.Success {
		t.Fatal("status should be success")
	}
	expectEvents(t, log, EventSuccess)
	if log.ctxs[0] != "upper" {
		t.Fatalf("upper context not passed through: %v", log.ctxs[0])
	}
	if ch.HW.Arbiter().Held() {
		t.Fatal("bus left held after write")
	}

	if len(p.got) != 1 {
		t.Fatalf("transfers=%d want 1", len(p.got))
	}
	d := p.got[0]
	if d.Addr != 0x60 || d.Addr7() != 0x30 {
		t.Fatalf("wire address=%#x want 0x60", d.Addr)
	}
	if d.Flags != FlagWrite {
		t.Fatalf("flags=%v want write", d.Flags)
	}
	if !bytes.Equal(d.Chunks[0].Data, []byte{0x01, 0x02}) || d.Chunks[1].Len() != 0 {
		t.Fatalf("unexpected chunks: %+v", d.Chunks)
	}
	if !p.heldIn[0] {
		t.Fatal("bus was not held during the transfer")
	}
}

func TestWriteWhileBusHeldIsBusy(t *testing.T) {
	p := &fakePeriph{}
	ch, log := newTestChannel(p)
	if err := ch.HW.Arbiter().Acquire(); err != nil {
		t.Fatal(err)
	}

	err := ch.Write([]byte{0xAA})
	if !errors.Is(err, errcode.Busy) || errcode.StatusOf(err) != errcode.StatusBusy {
		t.Fatalf("want busy, got %v", err)
	}
	expectEvents(t, log, EventBusy)
	if !ch.HW.Arbiter().Held() {
		t.Fatal("busy path must not release a bus it never acquired")
	}
	if len(p.got) != 0 {
		t.Fatal("peripheral touched on busy path")
	}
}

func TestReadTransferError(t *testing.T) {
	p := &fakePeriph{result: errors.New("nack")}
	ch, log := newTestChannel(p)

	buf := make([]byte, 4)
	err := ch.Read(buf)
	if errcode.StatusOf(err) != errcode.Failure || !errors.Is(err, errcode.TransferError) {
		t.Fatalf("want transfer failure, got %v", err)
	}
	expectEvents(t, log, EventError)
	if ch.HW.Arbiter().Held() {
		t.Fatal("bus left held after failed read")
	}
	if p.got[0].Flags != FlagRead || p.got[0].Chunks[0].Len() != 4 {
		t.Fatalf("unexpected descriptor: %+v", p.got[0])
	}
}

func TestReadFillsBuffer(t *testing.T) {
	p := &fakePeriph{fill: []byte{0xDE, 0xAD, 0xBE, 0xEF}}
	ch, log := newTestChannel(p)

	buf := make([]byte, 4)
	if err := ch.Read(buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(buf, p.fill) {
		t.Fatalf("buf=%x want %x", buf, p.fill)
	}
	expectEvents(t, log, EventSuccess)
}

func TestBusFreedBetweenCalls(t *testing.T) {
	p := &fakePeriph{}
	ch, log := newTestChannel(p)
	for i := 0; i < 3; i++ {
		if err := ch.Write([]byte{byte(i)}); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	expectEvents(t, log, EventSuccess, EventSuccess, EventSuccess)
}

func TestChannelsShareArbiter(t *testing.T) {
	p := &fakePeriph{}
	a, _ := newTestChannel(p)
	bLog := &eventLog{}
	b := &Channel{Name: "other", HW: a.HW, SlaveAddress: 0x31, Handler: bLog}

	// a's handler tries to use b while a still holds the bus.
	a.Handler = EventHandlerFunc(func(_ any, ev Event) {
		if ev == EventSuccess {
			if err := b.Write([]byte{1}); !errors.Is(err, errcode.Busy) {
				t.Errorf("nested write on shared bus: want busy, got %v", err)
			}
		}
	})
	if err := a.Write([]byte{1}); err != nil {
		t.Fatal(err)
	}
	expectEvents(t, bLog, EventBusy)
	if a.HW.Arbiter().Held() {
		t.Fatal("bus left held")
	}
}

func TestNilChannel(t *testing.T) {
	var ch *Channel
	for name, err := range map[string]error{
		"init":   ch.Init(),
		"deinit": ch.Deinit(),
		"write":  ch.Write([]byte{1}),
		"read":   ch.Read(make([]byte, 1)),
	} {
		if !errors.Is(err, errcode.InvalidParams) {
			t.Fatalf("%s on nil channel: want invalid_params, got %v", name, err)
		}
	}
	if err := ch.SetBitrate(400); err != nil {
		t.Fatalf("SetBitrate on nil channel: %v", err)
	}
}

func TestInitValidatesHardware(t *testing.T) {
	if err := (&Channel{}).Init(); errcode.StatusOf(err) != errcode.Failure {
		t.Fatalf("missing hardware: want failure, got %v", err)
	}
	if err := (&Channel{HW: NewHardware(nil, 0)}).Init(); errcode.StatusOf(err) != errcode.Failure {
		t.Fatalf("missing peripheral handle: want failure, got %v", err)
	}
	ch, _ := newTestChannel(&fakePeriph{})
	if err := ch.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := ch.Deinit(); err != nil {
		t.Fatalf("Deinit: %v", err)
	}
	if len(ch.HW.Periph.(*fakePeriph).got) != 0 {
		t.Fatal("Init/Deinit must not touch hardware")
	}
}

func TestMissingHardwareReportsBusy(t *testing.T) {
	log := &eventLog{}
	ch := &Channel{SlaveAddress: 0x30, Handler: log}
	if err := ch.Write([]byte{1}); !errors.Is(err, errcode.Busy) {
		t.Fatalf("want busy, got %v", err)
	}
	expectEvents(t, log, EventBusy)
}

func TestMissingPeripheralIsTransferError(t *testing.T) {
	log := &eventLog{}
	ch := &Channel{HW: NewHardware(nil, 0), SlaveAddress: 0x30, Handler: log}
	if err := ch.Read(make([]byte, 2)); !errors.Is(err, errcode.TransferError) {
		t.Fatalf("want transfer_error, got %v", err)
	}
	expectEvents(t, log, EventError)
	if ch.HW.Arbiter().Held() {
		t.Fatal("bus left held")
	}
}

func TestOutOfRangeArguments(t *testing.T) {
	p := &fakePeriph{}
	ch, log := newTestChannel(p)
	if err := ch.Write(make([]byte, MaxTransferLen+1)); !errors.Is(err, errcode.InvalidParams) {
		t.Fatalf("oversize write: got %v", err)
	}
	ch.SlaveAddress = 0x80
	if err := ch.Read(make([]byte, 1)); !errors.Is(err, errcode.InvalidParams) {
		t.Fatalf("8-bit address: got %v", err)
	}
	expectEvents(t, log, EventError, EventError)
	if len(p.got) != 0 || ch.HW.Arbiter().Held() {
		t.Fatal("validation failures must not touch the bus")
	}
}

func TestNilHandlerIsAllowed(t *testing.T) {
	ch, _ := newTestChannel(&fakePeriph{})
	ch.Handler = nil
	if err := ch.Write([]byte{1}); err != nil {
		t.Fatal(err)
	}
}

func TestSetBitrateAlwaysSucceeds(t *testing.T) {
	ch, _ := newTestChannel(&fakePeriph{})
	for _, hz := range []uint16{0, 1, 100, 400, 0xFFFF, 400} {
		if err := ch.SetBitrate(hz); err != nil {
			t.Fatalf("SetBitrate(%d): %v", hz, err)
		}
	}
	if ch.HW.BitrateHz != 100_000 {
		t.Fatal("SetBitrate must not change the configured rate")
	}
}

func TestConcurrentCallersOneEventEach(t *testing.T) {
	p := &fakePeriph{delay: 200 * time.Microsecond}
	ch, log := newTestChannel(p)

	const callers, perCaller = 8, 25
	var (
		wg            sync.WaitGroup
		ok, busy, bad atomic.Int32
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perCaller; j++ {
				switch errcode.StatusOf(ch.Write([]byte{byte(j)})) {
				case errcode.Success:
					ok.Add(1)
				case errcode.StatusBusy:
					busy.Add(1)
				default:
					bad.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	total := callers * perCaller
	if bad.Load() != 0 {
		t.Fatalf("%d unexpected failures", bad.Load())
	}
	if int(ok.Load()+busy.Load()) != total {
		t.Fatalf("ok+busy=%d want %d", ok.Load()+busy.Load(), total)
	}
	if got := len(log.snapshot()); got != total {
		t.Fatalf("handler calls=%d want %d", got, total)
	}
	if p.maxIn.Load() != 1 {
		t.Fatalf("max concurrent transfers=%d want 1", p.maxIn.Load())
	}
	if int(ok.Load()) != len(p.got) {
		t.Fatalf("successes=%d transfers=%d", ok.Load(), len(p.got))
	}
	if ch.HW.Arbiter().Held() {
		t.Fatal("bus left held")
	}
}

func TestArbiterStates(t *testing.T) {
	var a Arbiter
	if a.Held() {
		t.Fatal("zero arbiter must be free")
	}
	if err := a.Acquire(); err != nil {
		t.Fatal(err)
	}
	if err := a.Acquire(); !errors.Is(err, errcode.Busy) {
		t.Fatal("arbiter must not nest")
	}
	a.Release()
	a.Release() // idempotent
	if a.Held() {
		t.Fatal("release did not free the bus")
	}
	if err := a.Acquire(); err != nil {
		t.Fatal("reacquire after release failed")
	}
}
