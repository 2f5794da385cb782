// services/pal/pal.go
package pal

import (
	"context"
	"encoding/json"
	"time"

	"sepal-go/bus"
	"sepal-go/errcode"
	"sepal-go/pal/i2c"
	"sepal-go/pal/oslock"
	"sepal-go/pal/platform"
	"sepal-go/services/config"
	"sepal-go/types"
	"sepal-go/x/logx"
)

// Topics served by the PAL service.
var (
	TopicState   = bus.T("pal", "state")
	TopicControl = i2c.TopicEvents.Append("+", "control", "+")
)

// LockWait bounds how long an xfer waits for the OS lock before it
// replies with a timeout.
var LockWait = 5 * time.Second

// ControlTopic addresses method on channel.
func ControlTopic(channel, method string) bus.Topic {
	return i2c.TopicEvents.Append(channel, "control", method)
}

// -----------------------------------------------------------------------------
// Entry point
// -----------------------------------------------------------------------------

// Run serves the PAL on conn until ctx ends. Each retained config/pal
// message rebuilds the platform from scratch.
func Run(ctx context.Context, conn *bus.Connection, f platform.Factory, opts platform.Options) {
	s := &service{conn: conn, factory: f, opts: opts, lock: oslock.Default()}
	s.loop(ctx)
}

type service struct {
	conn    *bus.Connection
	factory platform.Factory
	opts    platform.Options
	lock    *oslock.Lock

	set *platform.Set
}

// -----------------------------------------------------------------------------
// Main loop
// -----------------------------------------------------------------------------

func (s *service) loop(ctx context.Context) {
	cfgSub := s.conn.Subscribe(config.TopicPAL)
	ctrlSub := s.conn.Subscribe(TopicControl)
	defer s.conn.Unsubscribe(cfgSub)
	defer s.conn.Unsubscribe(ctrlSub)
	defer s.teardown()

	s.publishState("idle", "awaiting_config", nil)

	for {
		select {
		case <-ctx.Done():
			s.publishState("stopped", "context_cancelled", nil)
			return

		case msg := <-cfgSub.Channel():
			var cfg types.PALConfig
			if err := decodePayload(msg.Payload, &cfg); err != nil {
				s.publishState("error", "config_decode_failed", err)
				continue
			}
			if err := s.applyConfig(cfg); err != nil {
				s.publishState("error", "apply_config_failed", err)
				continue
			}
			s.publishState("ready", "configured", nil)

		case msg := <-ctrlSub.Channel():
			// pal/i2c/<channel>/control/<method>
			if len(msg.Topic) != 5 {
				continue
			}
			name, _ := msg.Topic[2].(string)
			method, _ := msg.Topic[4].(string)
			s.handleControl(ctx, msg, name, method)
		}
	}
}

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

func (s *service) applyConfig(cfg types.PALConfig) error {
	set, err := platform.Build(cfg, s.factory, s.opts)
	if err != nil {
		return err
	}
	s.teardown()
	set.Notify(s.conn)
	for _, name := range set.ChannelNames() {
		if err := set.Channel(name).Init(); err != nil {
			logx.Warn(logx.ComponentPlatform, "channel init failed", "channel", name, "err", err)
		}
	}
	s.set = set
	logx.Info(logx.ComponentPlatform, "pal configured", "channels", set.ChannelNames())
	return nil
}

func (s *service) teardown() {
	if s.set != nil {
		s.set.Close()
		s.set = nil
	}
}

// -----------------------------------------------------------------------------
// Control
// -----------------------------------------------------------------------------

func (s *service) handleControl(ctx context.Context, msg *bus.Message, name, method string) {
	if s.set == nil {
		s.reply(msg, nil, &errcode.E{C: errcode.Busy, Op: method, Msg: "not configured"})
		return
	}
	ch := s.set.Channel(name)
	if ch == nil {
		s.reply(msg, nil, &errcode.E{C: errcode.InvalidParams, Op: method, Msg: "unknown channel " + name})
		return
	}
	var req types.I2CRequest
	if msg.Payload != nil {
		if err := decodePayload(msg.Payload, &req); err != nil {
			s.reply(msg, nil, &errcode.E{C: errcode.InvalidParams, Op: method, Err: err})
			return
		}
	}

	switch method {
	case "init":
		s.reply(msg, nil, ch.Init())
	case "deinit":
		s.reply(msg, nil, ch.Deinit())
	case "write":
		s.reply(msg, nil, ch.Write(req.Data))
	case "read":
		buf, err := readBuf(req.N)
		if err == nil {
			err = ch.Read(buf)
		}
		s.reply(msg, buf, err)
	case "xfer":
		// The lock may be held elsewhere; wait off the loop.
		go func() {
			buf, err := s.xfer(ctx, ch, req)
			s.reply(msg, buf, err)
		}()
	case "set_bitrate":
		s.reply(msg, nil, ch.SetBitrate(req.Hz))
	default:
		s.reply(msg, nil, &errcode.E{C: errcode.Unsupported, Op: method})
	}
}

// xfer runs a write then a read while holding the OS lock, the way an
// upper-layer driver frames one command/response exchange.
func (s *service) xfer(ctx context.Context, ch *i2c.Channel, req types.I2CRequest) ([]byte, error) {
	buf, err := readBuf(req.N)
	if err != nil {
		return nil, err
	}
	wctx, cancel := context.WithTimeout(ctx, LockWait)
	defer cancel()
	if err := s.lock.AcquireContext(wctx); err != nil {
		return nil, err
	}
	defer s.lock.Release()
	if err := ch.Write(req.Data); err != nil {
		return nil, err
	}
	if err := ch.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func readBuf(n int) ([]byte, error) {
	if n <= 0 || n > i2c.MaxTransferLen {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "read", Msg: "bad length"}
	}
	return make([]byte, n), nil
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func (s *service) reply(req *bus.Message, data []byte, err error) {
	if len(req.ReplyTo) == 0 {
		return
	}
	r := types.I2CReply{OK: err == nil, Status: errcode.StatusOf(err).String()}
	if err != nil {
		r.Code = string(errcode.Of(err))
		r.Error = err.Error()
	} else {
		r.Data = data
	}
	s.conn.Reply(req, r, false)
}

func (s *service) publishState(level, status string, err error) {
	st := types.PALState{Level: level, Status: status, TS: time.Now().UnixMilli()}
	if err != nil {
		st.Error = err.Error()
	}
	if s.set != nil {
		st.Channels = s.set.ChannelNames()
	}
	s.conn.Publish(s.conn.NewMessage(TopicState, st, true))
}

// decodePayload accepts the typed value directly and falls back to JSON
// for maps, strings and raw bytes.
func decodePayload[T any](p any, dst *T) error {
	switch v := p.(type) {
	case T:
		*dst = v
		return nil
	case *T:
		if v == nil {
			return &errcode.E{C: errcode.InvalidParams, Msg: "nil payload"}
		}
		*dst = *v
		return nil
	case json.RawMessage:
		return json.Unmarshal(v, dst)
	}
	return config.DecodeJSON(p, dst)
}
