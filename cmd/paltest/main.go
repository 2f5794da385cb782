// paltest is an interactive shell for bringing up a secure element over
// the PAL. With -backend=host it runs against the in-memory bus.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"sepal-go/bus"
	"sepal-go/pal/console"
	"sepal-go/pal/i2c"
	"sepal-go/pal/oslock"
	"sepal-go/pal/platform"
	"sepal-go/services/config"
	"sepal-go/x/logx"
)

func main() { os.Exit(run()) }

func run() int {
	device := flag.String("device", "rpi", "device id for the embedded config")
	backend := flag.String("backend", "hw", "hw or host")
	level := flag.String("log", "warn", "log level")
	jsonLog := flag.Bool("json", false, "JSON logs")
	timeout := flag.Duration("tx-timeout", 500*time.Millisecond, "per transaction bound, 0 waits")
	watch := flag.Bool("events", false, "print PAL events")
	flag.Parse()

	format := logx.FormatText
	if *jsonLog {
		format = logx.FormatJSON
	}
	logx.SetOutput(os.Stderr, format)
	logx.SetLevel(logx.ParseLevel(*level))

	cfg, err := config.Load(*device)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 2
	}

	var f platform.Factory
	switch *backend {
	case "host":
		f = platform.NewHostFactory()
	case "hw":
		f = platform.DefaultFactory()
	default:
		fmt.Fprintln(os.Stderr, "unknown backend", *backend)
		return 2
	}

	set, err := platform.Build(cfg, f, platform.Options{TxTimeout: *timeout})
	if err != nil {
		fmt.Fprintln(os.Stderr, "platform:", err)
		return 1
	}
	defer set.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *watch {
		b := bus.NewBus(16)
		set.Notify(b.NewConnection("pal"))
		sub := b.NewConnection("cli").Subscribe(i2c.TopicEvents.Append("#"))
		go func() {
			for m := range sub.Channel() {
				fmt.Fprintf(os.Stderr, "event %v %v\n", m.Topic, m.Payload)
			}
		}()
	}

	c := console.New(set, oslock.Default(), os.Stdout)
	fmt.Printf("paltest: device=%s backend=%s channels=%v (help for commands)\n", *device, *backend, set.ChannelNames())
	if err := c.Run(ctx, os.Stdin, "pal> "); err != nil && err != context.Canceled {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
