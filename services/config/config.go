package config

import (
	"context"
	"encoding/json"
	"errors"

	"sepal-go/bus"
	"sepal-go/pal/platform/setups"
	"sepal-go/types"
	"sepal-go/x/logx"
)

const (
	serviceName  = "config"
	configPrefix = "config"
	CtxDeviceKey = "device" // context key used for device ID
)

// TopicPAL carries the retained types.PALConfig.
var TopicPAL = bus.T(configPrefix, "pal")

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

// DecodeJSON decodes src (bytes, string, or an already-parsed value) into dst.
func DecodeJSON[T any](src any, dst *T) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, dst)
	}
}

// Load resolves the PAL configuration for device. Devices without an
// embedded document fall back to the static setup table of the same name.
func Load(device string) (types.PALConfig, error) {
	if device == "" {
		return types.PALConfig{}, errors.New("missing device ID")
	}
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		if c, ok := setups.Lookup(device); ok {
			return c, nil
		}
		return types.PALConfig{}, errors.New("no config for device: " + device)
	}
	var doc struct {
		PAL *types.PALConfig `json:"pal"`
	}
	if err := DecodeJSON(raw, &doc); err != nil {
		return types.PALConfig{}, err
	}
	if doc.PAL == nil {
		return types.PALConfig{}, errors.New("config has no pal section: " + device)
	}
	return *doc.PAL, nil
}

// -----------------------------------------------------------------------------
// Config Service
// -----------------------------------------------------------------------------

type ConfigService struct {
	Name string
}

func NewConfigService() *ConfigService {
	return &ConfigService{Name: serviceName}
}

// publishConfig resolves the device config and publishes it retained.
func (s *ConfigService) publishConfig(ctx context.Context, conn *bus.Connection) error {
	device, _ := ctx.Value(CtxDeviceKey).(string)
	cfg, err := Load(device)
	if err != nil {
		return err
	}
	conn.Publish(conn.NewMessage(TopicPAL, cfg, true))
	return nil
}

// Start launches the config publisher in a goroutine.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if err := s.publishConfig(ctx, conn); err != nil {
			logx.Error(logx.ComponentConfig, "publish failed", "err", err)
		}
	}()
}
