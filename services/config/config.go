package config

import (
	"context"
	"errors"

	"dcload-go/bus"

	"github.com/andreyvit/tinyjson"
)

const (
	serviceName  = "config"
	configPrefix = "config"
)

// EmbeddedConfigLookup allows overriding how configs are resolved, mainly so
// tests can inject their own JSON.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

// Service publishes the device's embedded configuration onto the bus. Every
// top-level JSON section becomes one retained message under config/<section>,
// so consumers pick up their tuning whenever they subscribe.
//
// The load section carries the calibration table; if this service fails to
// publish, the load stage keeps its zero (invalid) table and refuses to
// start, which is the safe outcome for an uncalibrated instrument.
type Service struct {
	Name   string
	Device string
}

func NewService(device string) *Service {
	return &Service{Name: serviceName, Device: device}
}

// publishConfig resolves the device's embedded JSON and publishes each
// top-level section retained under config/<section>.
func (s *Service) publishConfig(conn *bus.Connection) error {
	if s.Device == "" {
		return errors.New("no device ID configured")
	}

	raw, ok := EmbeddedConfigLookup(s.Device)
	if !ok || len(raw) == 0 {
		return errors.New("no embedded config for device: " + s.Device)
	}

	r := tinyjson.Raw(raw)
	val := r.Value() // should be a map[string]any
	r.EnsureEOF()

	m, ok := val.(map[string]any)
	if !ok {
		return errors.New("embedded config is not a JSON object")
	}

	for k, v := range m {
		conn.Publish(&bus.Message{
			Topic:    bus.T(configPrefix, k),
			Payload:  v,
			Retained: true,
		})
	}

	return nil
}

// Start launches the config publisher in a goroutine. A failure is loud but
// not fatal: services run on defaults, and the load stage stays locked out
// until it sees a calibration table.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if err := s.publishConfig(conn); err != nil {
			println("config: publish failed:", err.Error())
		}
	}()
}
