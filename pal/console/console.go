// Package console is a small line-oriented command interpreter over a
// platform.Set. It drives the same Channel and Lock calls an upper-layer
// secure-element driver would make, which makes it handy for bring-up.
package console

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"

	"sepal-go/errcode"
	"sepal-go/pal/i2c"
	"sepal-go/pal/oslock"
	"sepal-go/pal/platform"
	"sepal-go/x/logx"
)

// ErrQuit is returned by Exec for the quit command.
var ErrQuit = errors.New("quit")

// LockWait bounds the lock command so a second "lock" cannot hang the shell.
var LockWait = 2 * time.Second

const help = `commands:
  use <channel>        select channel
  channels             list channels
  init | deinit        channel init/deinit
  write <hex..>        write bytes
  read <n>             read n bytes
  xfer <n> <hex..>     lock, write, read n, unlock
  bitrate <hz>         request bus speed (not enforced)
  lock | trylock | unlock
  scan                 probe 7-bit addresses on the selected bus
  reset [ms]           pulse the reset line
  quit`

// Console holds the selected channel and the lock shared by commands.
type Console struct {
	Set  *platform.Set
	Lock *oslock.Lock
	Out  io.Writer

	ch *i2c.Channel
	in *lineFeed
}

// New selects the first channel of set, in name order.
func New(set *platform.Set, lock *oslock.Lock, out io.Writer) *Console {
	if lock == nil {
		lock = oslock.Default()
	}
	c := &Console{Set: set, Lock: lock, Out: out}
	if names := set.ChannelNames(); len(names) > 0 {
		c.ch = set.Channel(names[0])
	}
	return c
}

// Channel is the currently selected channel, or nil.
func (c *Console) Channel() *i2c.Channel { return c.ch }

// Exec runs one command line. Blank lines and comments are ignored.
func (c *Console) Exec(ctx context.Context, line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}
	logx.Debug(logx.ComponentCLI, "exec", "cmd", args[0], "argc", len(args)-1)

	switch cmd, rest := args[0], args[1:]; cmd {
	case "help", "?":
		fmt.Fprintln(c.Out, help)
	case "quit", "exit":
		return ErrQuit
	case "channels":
		for _, n := range c.Set.ChannelNames() {
			mark := " "
			if c.ch != nil && c.ch.Name == n {
				mark = "*"
			}
			fmt.Fprintf(c.Out, "%s %s\n", mark, n)
		}
	case "use":
		if len(rest) != 1 {
			return usage("use <channel>")
		}
		ch := c.Set.Channel(rest[0])
		if ch == nil {
			return &errcode.E{C: errcode.InvalidParams, Op: "use", Msg: "unknown channel " + rest[0]}
		}
		c.ch = ch
	case "init":
		return c.report("init", c.ch.Init())
	case "deinit":
		return c.report("deinit", c.ch.Deinit())
	case "write":
		p, err := parseHex(rest)
		if err != nil {
			return err
		}
		return c.report("write", c.ch.Write(p))
	case "read":
		n, err := parseLen(rest)
		if err != nil {
			return err
		}
		buf := make([]byte, n)
		if err := c.ch.Read(buf); err != nil {
			return c.report("read", err)
		}
		fmt.Fprintln(c.Out, hex.EncodeToString(buf))
	case "xfer":
		if len(rest) < 2 {
			return usage("xfer <n> <hex..>")
		}
		return c.xfer(ctx, rest[0], rest[1:])
	case "bitrate":
		if len(rest) != 1 {
			return usage("bitrate <hz>")
		}
		hz, err := strconv.ParseUint(rest[0], 0, 16)
		if err != nil {
			return &errcode.E{C: errcode.InvalidParams, Op: "bitrate", Err: err}
		}
		return c.report("bitrate", c.ch.SetBitrate(uint16(hz)))
	case "lock":
		wctx, cancel := context.WithTimeout(ctx, LockWait)
		defer cancel()
		return c.report("lock", c.Lock.AcquireContext(wctx))
	case "trylock":
		return c.report("trylock", c.Lock.TryAcquire())
	case "unlock":
		c.Lock.Release()
		return c.report("unlock", nil)
	case "reset":
		return c.reset(ctx, rest)
	case "scan":
		return c.scan()
	default:
		return &errcode.E{C: errcode.Unsupported, Op: cmd, Msg: "unknown command (try help)"}
	}
	return nil
}

// Run reads commands from r until EOF, quit or ctx end. Calling Run again
// with the same reader resumes where the previous run stopped.
func (c *Console) Run(ctx context.Context, r io.Reader, prompt string) error {
	in := c.feed(r)
	for {
		fmt.Fprint(c.Out, prompt)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-in.errc:
			c.in = nil
			if !ok {
				return io.EOF
			}
			return err
		case line := <-in.lines:
			err := c.Exec(ctx, line)
			if errors.Is(err, ErrQuit) {
				return nil
			}
			if err != nil {
				fmt.Fprintf(c.Out, "error: %v\n", err)
			}
		}
	}
}

func (c *Console) xfer(ctx context.Context, n string, hexArgs []string) error {
	size, err := parseLen([]string{n})
	if err != nil {
		return err
	}
	p, err := parseHex(hexArgs)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, LockWait)
	defer cancel()
	if err := c.Lock.AcquireContext(wctx); err != nil {
		return c.report("xfer", err)
	}
	defer c.Lock.Release()

	if err := c.ch.Write(p); err != nil {
		return c.report("xfer", err)
	}
	buf := make([]byte, size)
	if err := c.ch.Read(buf); err != nil {
		return c.report("xfer", err)
	}
	fmt.Fprintln(c.Out, hex.EncodeToString(buf))
	return nil
}

// Probe range excludes the reserved addresses at both ends.
const (
	scanFirst = 0x08
	scanLast  = 0x77
)

// scan reads one byte from every address through a throwaway channel on
// the selected bus, so probes go through the same arbiter.
func (c *Console) scan() error {
	if c.ch == nil || c.ch.HW == nil {
		return &errcode.E{C: errcode.InvalidParams, Op: "scan", Msg: "no channel"}
	}
	var found []string
	buf := make([]byte, 1)
	for a := scanFirst; a <= scanLast; a++ {
		probe := &i2c.Channel{Name: "scan", HW: c.ch.HW, SlaveAddress: uint8(a)}
		if err := probe.Read(buf); err == nil {
			found = append(found, fmt.Sprintf("0x%02x", a))
		}
	}
	fmt.Fprintf(c.Out, "found %d: %s\n", len(found), strings.Join(found, " "))
	return nil
}

func (c *Console) reset(ctx context.Context, rest []string) error {
	hold := 10 * time.Millisecond
	if len(rest) == 1 {
		ms, err := strconv.Atoi(rest[0])
		if err != nil || ms < 0 {
			return usage("reset [ms]")
		}
		hold = time.Duration(ms) * time.Millisecond
	}
	l := c.Set.Line("reset")
	if !l.Wired() {
		fmt.Fprintln(c.Out, "reset: not wired")
		return nil
	}
	l.SetLow()
	select {
	case <-time.After(hold):
	case <-ctx.Done():
	}
	l.SetHigh()
	return c.report("reset", nil)
}

func (c *Console) report(op string, err error) error {
	if err != nil {
		return err
	}
	fmt.Fprintf(c.Out, "%s: %s\n", op, errcode.Success)
	return nil
}

func usage(s string) error {
	return &errcode.E{C: errcode.InvalidParams, Msg: "usage: " + s}
}

// parseHex accepts tokens like "0a", "0x0a" or "deadbeef".
func parseHex(args []string) ([]byte, error) {
	var out []byte
	for _, a := range args {
		a = strings.TrimPrefix(strings.ToLower(a), "0x")
		if len(a)%2 == 1 {
			a = "0" + a
		}
		b, err := hex.DecodeString(a)
		if err != nil {
			return nil, &errcode.E{C: errcode.InvalidParams, Op: "hex", Err: err}
		}
		out = append(out, b...)
	}
	return out, nil
}

func parseLen(args []string) (int, error) {
	if len(args) != 1 {
		return 0, usage("<n>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 || n > i2c.MaxTransferLen {
		return 0, &errcode.E{C: errcode.InvalidParams, Op: "len", Msg: args[0]}
	}
	return n, nil
}
