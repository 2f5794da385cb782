package gpio

import (
	"errors"
	"testing"

	"sepal-go/errcode"
)

type fakePin struct {
	n      int
	out    bool
	level  bool
	writes []bool
}

func (p *fakePin) ConfigureOutput(initial bool) error {
	p.out, p.level = true, initial
	return nil
}
func (p *fakePin) Set(level bool) { p.level = level; p.writes = append(p.writes, level) }
func (p *fakePin) Get() bool      { return p.level }
func (p *fakePin) Number() int    { return p.n }

func TestLineDrivesPin(t *testing.T) {
	p := &fakePin{n: 9}
	l := &Line{Name: "reset", Pin: p}
	if err := l.Init(); err != nil {
		t.Fatal(err)
	}
	if !p.out || !p.level {
		t.Fatal("Init should configure an output driven high")
	}
	l.SetLow()
	l.SetHigh()
	if len(p.writes) != 2 || p.writes[0] || !p.writes[1] {
		t.Fatalf("writes=%v want [false true]", p.writes)
	}
}

func TestActiveLowInverts(t *testing.T) {
	p := &fakePin{}
	l := &Line{Pin: p, ActiveLow: true}
	_ = l.Init()
	if p.level {
		t.Fatal("active-low line should idle low at the wire")
	}
	l.SetLow()
	if !p.level {
		t.Fatal("SetLow on active-low line should drive the wire high")
	}
}

func TestUnwiredLineIsNoop(t *testing.T) {
	l := &Line{Name: "vdd"}
	if err := l.Init(); err != nil {
		t.Fatal(err)
	}
	l.SetHigh()
	l.SetLow()
	if l.Wired() {
		t.Fatal("line without pin reported wired")
	}
	var nilLine *Line
	nilLine.SetHigh() // must not panic
	if err := nilLine.Init(); !errors.Is(err, errcode.InvalidParams) {
		t.Fatalf("nil line Init: %v", err)
	}
	if err := nilLine.Deinit(); !errors.Is(err, errcode.InvalidParams) {
		t.Fatalf("nil line Deinit: %v", err)
	}
}
