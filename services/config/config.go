package config

import (
	"context"
	"encoding/json"
	"errors"

	"irricode-go/bus"
	"irricode-go/x/mathx"

	"github.com/andreyvit/tinyjson"
)

// -----------------------------------------------------------------------------
// String constants (live in flash, not RAM)
// -----------------------------------------------------------------------------

const (
	serviceName  = "config"
	configPrefix = "config"
	CtxDeviceKey = "device" // context key used for device ID
)

// EmbeddedConfigLookup allows overriding how default configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

// -----------------------------------------------------------------------------
// Settings service
//
// Boot: embedded defaults for the device, overlaid with the persisted
// blob, published retained per top-level section on config/<key>.
// Runtime: merge requests on config/update are validated, persisted and
// republished — the broker-side "hunter/config" path lands here.
// -----------------------------------------------------------------------------

type Service struct {
	Name  string
	store Store

	settings map[string]any
}

func NewService(store Store) *Service {
	return &Service{Name: serviceName, store: store}
}

func (s *Service) load(ctx context.Context) error {
	device, _ := ctx.Value(CtxDeviceKey).(string)
	if device == "" {
		return errors.New("missing device ID in context")
	}

	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return errors.New("no embedded config for device: " + device)
	}

	r := tinyjson.Raw(raw)
	val := r.Value() // should be a map[string]any
	r.EnsureEOF()

	m, ok := val.(map[string]any)
	if !ok {
		return errors.New("embedded config is not a JSON object")
	}
	s.settings = m

	// Persisted overrides win over embedded defaults.
	if blob, ok := s.store.Load(); ok && len(blob) > 0 {
		pr := tinyjson.Raw(blob)
		if pm, ok := pr.Value().(map[string]any); ok {
			for k, v := range pm {
				s.settings[k] = v
			}
		}
	}
	return nil
}

func (s *Service) publishAll(conn *bus.Connection) {
	for k, v := range s.settings {
		conn.Publish(&bus.Message{
			Topic:    bus.T(configPrefix, k),
			Payload:  v,
			Retained: true,
		})
	}
}

// merge applies one update map: sections merge key-by-key, scalars replace.
func (s *Service) merge(update map[string]any) []string {
	var touched []string
	for k, v := range update {
		if sect, ok := v.(map[string]any); ok {
			cur, ok := s.settings[k].(map[string]any)
			if !ok {
				cur = map[string]any{}
			}
			for sk, sv := range sect {
				cur[sk] = sv
			}
			s.settings[k] = cur
		} else {
			s.settings[k] = v
		}
		touched = append(touched, k)
	}
	s.validate()
	return touched
}

// validate clamps sensor tuning to the ranges the node accepts.
func (s *Service) validate() {
	dht, ok := s.settings["dht"].(map[string]any)
	if !ok {
		return
	}
	if v, ok := asFloat(dht["t_offset"]); ok {
		dht["t_offset"] = mathx.Clamp(v, -3, 3)
	}
	if v, ok := asFloat(dht["t_hold"]); ok {
		dht["t_hold"] = mathx.Clamp(v, 0, 3)
	}
	if v, ok := asFloat(dht["h_hold"]); ok {
		dht["h_hold"] = mathx.Clamp(v, 0, 10)
	}
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}

func (s *Service) persist() {
	blob, err := json.Marshal(s.settings)
	if err != nil {
		println("Warn: config marshal failed:", err.Error())
		return
	}
	if err := s.store.Save(blob); err != nil {
		println("Warn: config persist failed:", err.Error())
	}
}

// Run blocks until ctx is cancelled, serving merge requests.
func (s *Service) Run(ctx context.Context, conn *bus.Connection) error {
	if err := s.load(ctx); err != nil {
		return err
	}
	s.publishAll(conn)

	updSub := conn.Subscribe(bus.T(configPrefix, "update"))
	defer conn.Unsubscribe(updSub)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-updSub.Channel():
			update, ok := msg.Payload.(map[string]any)
			if !ok {
				println("Warn: config update with non-object payload")
				continue
			}
			touched := s.merge(update)
			s.persist()
			for _, k := range touched {
				conn.Publish(&bus.Message{
					Topic:    bus.T(configPrefix, k),
					Payload:  s.settings[k],
					Retained: true,
				})
			}
		}
	}
}

// Start launches the service in a goroutine.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if err := s.Run(ctx, conn); err != nil {
			println("Error: config service:", err.Error())
		}
	}()
}
