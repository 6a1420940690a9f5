// services/env/service.go
package env

import (
	"context"
	"time"

	"irricode-go/bus"
	"irricode-go/types"
	"irricode-go/x/mathx"
	"irricode-go/x/timex"
)

// Sensor reads the humidity/temperature device once. Implementations:
// the DHT driver on MCU builds, a fake on host builds and in tests.
type Sensor interface {
	Read() (deciC int16, deciRH uint16, err error)
}

// minInterval is the shortest poll the sensor tolerates between reads.
const minInterval = 2 * time.Second

const defaultInterval = 10 * time.Second

var (
	topicValue  = bus.T("env", "value")
	topicCfgDHT = bus.T("config", "dht")
)

// Service polls the sensor and publishes retained env/value readings when
// they moved by more than the configured thresholds. Tuning (offset and
// thresholds) follows retained config/dht at runtime.
type Service struct {
	sensor Sensor

	interval    time.Duration
	deciOffset  int16  // added to the temperature reading
	deciTHold   int16  // publish when |Δtemp| reaches this
	deciRHHold  uint16 // publish when |Δhumidity| reaches this
	havePrev    bool
	prevDeciC   int16
	prevDeciRH  uint16
}

func New(sensor Sensor) *Service {
	return &Service{
		sensor:     sensor,
		interval:   defaultInterval,
		deciTHold:  1,
		deciRHHold: 10,
	}
}

func (s *Service) applyConfig(m map[string]any) {
	if v, ok := asFloat(m["t_offset"]); ok {
		s.deciOffset = int16(mathx.Clamp(v, -3, 3) * 10)
	}
	if v, ok := asFloat(m["t_hold"]); ok {
		s.deciTHold = int16(mathx.Clamp(v, 0, 3) * 10)
	}
	if v, ok := asFloat(m["h_hold"]); ok {
		s.deciRHHold = uint16(mathx.Clamp(v, 0, 10) * 10)
	}
	if v, ok := asFloat(m["interval_s"]); ok {
		iv := time.Duration(v) * time.Second
		if iv < minInterval {
			iv = minInterval
		}
		s.interval = iv
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

// poll reads once and reports whether the value is worth publishing.
func (s *Service) poll() (types.EnvValue, bool) {
	deciC, deciRH, err := s.sensor.Read()
	if err != nil {
		println("Warn: env sensor read failed:", err.Error())
		return types.EnvValue{}, false
	}
	deciC += s.deciOffset

	if s.havePrev {
		dT := mathx.Abs(int(deciC) - int(s.prevDeciC))
		dH := mathx.Abs(int(deciRH) - int(s.prevDeciRH))
		if dT < int(s.deciTHold) && dH < int(s.deciRHHold) {
			return types.EnvValue{}, false
		}
	}
	s.havePrev = true
	s.prevDeciC = deciC
	s.prevDeciRH = deciRH
	return types.EnvValue{DeciC: deciC, DeciRH: deciRH, TS: timex.NowMs()}, true
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicCfgDHT)
	defer conn.Unsubscribe(cfgSub)

	tick := time.NewTicker(s.interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			println("Info: env service stopping")
			return
		case msg := <-cfgSub.Channel():
			if m, ok := msg.Payload.(map[string]any); ok {
				old := s.interval
				s.applyConfig(m)
				if s.interval != old {
					tick.Reset(s.interval)
				}
			}
		case <-tick.C:
			if v, ok := s.poll(); ok {
				conn.Publish(&bus.Message{Topic: topicValue, Payload: v, Retained: true})
			}
		}
	}
}

// Start launches the poll loop.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) {
	go s.serviceLoop(ctx, conn)
}
