package config

import (
	"context"
	"testing"
	"time"

	"sepal-go/bus"
	"sepal-go/types"
)

func TestLoadEmbedded(t *testing.T) {
	cfg, err := Load("pico")
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Buses) != 1 || cfg.Buses[0].Hz != 100_000 || cfg.Buses[0].SDA != 4 {
		t.Fatalf("unexpected buses: %+v", cfg.Buses)
	}
	if len(cfg.Channels) != 1 || cfg.Channels[0].Address != 0x30 {
		t.Fatalf("unexpected channels: %+v", cfg.Channels)
	}
	if len(cfg.Pins) != 2 || cfg.Pins[1].Pin != -1 {
		t.Fatalf("unexpected pins: %+v", cfg.Pins)
	}
}

func TestLoadFallsBackToSetupTable(t *testing.T) {
	cfg, err := Load("pico_dual")
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Channels) != 2 {
		t.Fatalf("unexpected channels: %+v", cfg.Channels)
	}
	if _, err := Load("nope"); err == nil {
		t.Fatal("unknown device should fail")
	}
	if _, err := Load(""); err == nil {
		t.Fatal("empty device should fail")
	}
}

func TestLoadRejectsBadDocuments(t *testing.T) {
	old := EmbeddedConfigLookup
	t.Cleanup(func() { EmbeddedConfigLookup = old })

	docs := map[string]string{
		"broken": `{"pal": [`,
		"nopal":  `{"heartbeat": {"interval": 2}}`,
	}
	EmbeddedConfigLookup = func(d string) ([]byte, bool) {
		s, ok := docs[d]
		return []byte(s), ok
	}
	for d := range docs {
		if _, err := Load(d); err == nil {
			t.Fatalf("%s: expected error", d)
		}
	}
}

func TestConfig_PublishRetained(t *testing.T) {
	b := bus.NewBus(4)
	conn := b.NewConnection("test-config")

	ctx := context.WithValue(context.Background(), CtxDeviceKey, "rpi")
	NewConfigService().Start(ctx, conn)

	// Wait for the retained publication, then subscribe late and still get it.
	deadline := time.Now().Add(500 * time.Millisecond)
	for {
		sub := conn.Subscribe(TopicPAL)
		select {
		case m := <-sub.Channel():
			cfg, ok := m.Payload.(types.PALConfig)
			if !ok {
				t.Fatalf("payload %T", m.Payload)
			}
			if !m.Retained || cfg.Buses[0].Device != "1" || cfg.Pins[0].Pin != 17 {
				t.Fatalf("unexpected config message: %+v", m)
			}
			conn.Unsubscribe(sub)
			return
		case <-time.After(20 * time.Millisecond):
		}
		conn.Unsubscribe(sub)
		if time.Now().After(deadline) {
			t.Fatal("no retained config published")
		}
	}
}

func TestDecodeJSONFromParsedValue(t *testing.T) {
	var ch types.I2CChannel
	if err := DecodeJSON(map[string]any{"name": "x", "bus": "i2c0", "address": 48}, &ch); err != nil {
		t.Fatal(err)
	}
	if ch.Address != 0x30 || ch.Bus != "i2c0" {
		t.Fatalf("decoded %+v", ch)
	}
}
