// services/bridge/bridge.go
package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"irricode-go/bus"
	"irricode-go/errcode"
	"irricode-go/types"
	"irricode-go/x/timex"
)

// Remote topic names, fixed on the broker side.
const (
	remoteValueTopic  = "hunter/value"
	remoteConfigTopic = "hunter/config"
)

var (
	topicCfgMQTT   = bus.T("config", "mqtt")
	topicCfgDHT    = bus.T("config", "dht")
	topicCfgUpdate = bus.T("config", "update")
	topicState     = bus.T("bridge", "state")
	topicWaterSt   = bus.T("water", "state")
	topicEnvValue  = bus.T("env", "value")
	topicNetWifi   = bus.T("net", "wifi")
	topicCmdZone   = bus.T("water", "cmd", "zone")
	topicCmdProg   = bus.T("water", "cmd", "program")
)

// Config is the broker endpoint, taken from retained config/mqtt.
type Config struct {
	IP       string
	Port     int
	User     string
	Pass     string
	ClientID string
}

func decodeConfig(p any) (Config, error) {
	m, ok := p.(map[string]any)
	if !ok {
		return Config{}, &errcode.E{C: errcode.InvalidPayload, Op: "bridge.config", Msg: "not an object"}
	}
	cfg := Config{Port: 1883, ClientID: "hunter-node"}
	if v, ok := m["ip"].(string); ok {
		cfg.IP = v
	}
	if v, ok := num(m["port"]); ok && v > 0 {
		cfg.Port = int(v)
	}
	if v, ok := m["user"].(string); ok {
		cfg.User = v
	}
	if v, ok := m["pass"].(string); ok {
		cfg.Pass = v
	}
	if v, ok := m["client_id"].(string); ok && v != "" {
		cfg.ClientID = v
	}
	return cfg, nil
}

func num(v any) (float64, bool) {
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

// Client is one live broker session. Dial owns the connect; a session that
// drops reports through Done.
type Client interface {
	Publish(topic string, payload []byte) error
	Subscribe(topic string, handler func(payload []byte)) error
	Done() <-chan error
	Close()
}

// Dialer opens a broker session for the given endpoint.
type Dialer func(ctx context.Context, cfg Config) (Client, error)

// Service mirrors node state up to the broker and broker config/commands
// back down. It supervises one link at a time: new config cancels the
// previous link, dial failures retry with capped backoff.
type Service struct {
	conn *bus.Connection
	dial Dialer

	mu     sync.Mutex
	curRun context.CancelFunc
}

func New(dial Dialer) *Service {
	return &Service{dial: dial}
}

// Start launches the supervision loop.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) {
	s.conn = conn
	go s.run(ctx)
}

func (s *Service) run(ctx context.Context) {
	cfgSub := s.conn.Subscribe(topicCfgMQTT)
	defer s.conn.Unsubscribe(cfgSub)

	s.publishState("idle", "awaiting_config")

	for {
		select {
		case <-ctx.Done():
			s.stopCurrent()
			return
		case msg, ok := <-cfgSub.Channel():
			if !ok {
				return
			}
			cfg, err := decodeConfig(msg.Payload)
			if err != nil {
				s.publishState("error", "config_invalid: "+err.Error())
				continue
			}
			if cfg.IP == "" {
				// Factory state: the broker address arrives later.
				s.stopCurrent()
				s.publishState("idle", "awaiting_broker_address")
				continue
			}
			s.reconfigure(ctx, cfg)
		}
	}
}

func (s *Service) stopCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.curRun != nil {
		s.curRun()
		s.curRun = nil
	}
}

func (s *Service) reconfigure(parent context.Context, cfg Config) {
	s.mu.Lock()
	if s.curRun != nil {
		s.curRun()
	}
	ctx, cancel := context.WithCancel(parent)
	s.curRun = cancel
	s.mu.Unlock()

	go s.runLink(ctx, cfg)
}

func (s *Service) runLink(ctx context.Context, cfg Config) {
	backoff := backoffSeq(250*time.Millisecond, 5*time.Second)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		cl, err := s.dial(ctx, cfg)
		if err != nil {
			delay := backoff()
			s.publishState("degraded", "dial_failed_retrying: "+err.Error())
			if !sleep(ctx, delay) {
				return
			}
			continue
		}

		s.publishState("up", "broker_connected")
		if err := s.handleLink(ctx, cl, cfg); err != nil {
			delay := backoff()
			s.publishState("degraded", "link_lost_retrying: "+err.Error())
			if !sleep(ctx, delay) {
				return
			}
			continue
		}
		// Clean close: restart only on new config.
		return
	}
}

// handleLink owns one live session: remote config down, node state up.
func (s *Service) handleLink(ctx context.Context, cl Client, cfg Config) error {
	defer cl.Close()

	if err := cl.Subscribe(remoteConfigTopic, s.downlink); err != nil {
		return err
	}

	subs := []*bus.Subscription{
		s.conn.Subscribe(topicWaterSt),
		s.conn.Subscribe(topicEnvValue),
		s.conn.Subscribe(topicNetWifi),
		s.conn.Subscribe(topicCfgDHT),
	}
	defer func() {
		for _, sub := range subs {
			s.conn.Unsubscribe(sub)
		}
	}()

	if err := cl.Publish(remoteValueTopic, uplinkBroker(cfg)); err != nil {
		return err
	}

	for {
		var out []byte
		select {
		case <-ctx.Done():
			return nil
		case err := <-cl.Done():
			return err
		case msg := <-subs[0].Channel():
			if r, ok := msg.Payload.(types.RunState); ok {
				out = uplinkWater(r)
			}
		case msg := <-subs[1].Channel():
			if v, ok := msg.Payload.(types.EnvValue); ok {
				out = uplinkEnv(v)
			}
		case msg := <-subs[2].Channel():
			if w, ok := msg.Payload.(types.WifiInfo); ok {
				out = uplinkWifi(w)
			}
		case msg := <-subs[3].Channel():
			if m, ok := msg.Payload.(map[string]any); ok {
				out = uplinkDHTConfig(m)
			}
		}
		if out == nil {
			continue
		}
		if err := cl.Publish(remoteValueTopic, out); err != nil {
			return err
		}
	}
}

// -----------------------------------------------------------------------------
// Uplink payloads (shapes fixed by the broker-side consumers)
// -----------------------------------------------------------------------------

func deci(v int) float64 { return float64(v) / 10 }

func uplinkEnv(v types.EnvValue) []byte {
	b, _ := json.Marshal(map[string]any{
		"dht": map[string]any{"temp": deci(int(v.DeciC)), "humidity": deci(int(v.DeciRH))},
	})
	return b
}

func uplinkWifi(w types.WifiInfo) []byte {
	b, _ := json.Marshal(map[string]any{
		"wifi": map[string]any{"ssid": w.SSID, "ip": w.IP},
	})
	return b
}

func uplinkBroker(cfg Config) []byte {
	b, _ := json.Marshal(map[string]any{
		"broker": map[string]any{"ip": cfg.IP, "port": cfg.Port},
	})
	return b
}

func uplinkDHTConfig(m map[string]any) []byte {
	out := map[string]any{}
	if v, ok := num(m["t_offset"]); ok {
		out["temp_offset"] = v
	}
	if v, ok := num(m["t_hold"]); ok {
		out["temp_level"] = v
	}
	if v, ok := num(m["h_hold"]); ok {
		out["hum_level"] = v
	}
	b, _ := json.Marshal(map[string]any{"dht": out})
	return b
}

func uplinkWater(r types.RunState) []byte {
	b, _ := json.Marshal(map[string]any{
		"water": map[string]any{"zone": r.Zone, "time": r.Minutes, "program": r.Program},
	})
	return b
}

// -----------------------------------------------------------------------------
// Downlink
// -----------------------------------------------------------------------------

// downlink handles one hunter/config payload from the broker. Settings
// sections go to the config service, a water section becomes a command.
func (s *Service) downlink(payload []byte) {
	var m map[string]any
	if err := json.Unmarshal(payload, &m); err != nil {
		println("Warn: bridge: bad remote config payload:", err.Error())
		return
	}

	update := map[string]any{}
	for _, key := range []string{"wifi", "mqtt", "dht"} {
		if sec, ok := m[key]; ok {
			update[key] = sec
		}
	}
	if len(update) > 0 {
		s.conn.Publish(&bus.Message{Topic: topicCfgUpdate, Payload: update})
	}

	w, ok := m["water"].(map[string]any)
	if !ok {
		return
	}
	if p, ok := num(w["program"]); ok && p > 0 {
		s.conn.Publish(&bus.Message{Topic: topicCmdProg, Payload: types.ProgramCommand{Program: int(p)}})
		return
	}
	if z, ok := num(w["zone"]); ok {
		mins, _ := num(w["time"])
		s.conn.Publish(&bus.Message{Topic: topicCmdZone, Payload: types.ZoneCommand{Zone: int(z), Minutes: int(mins)}})
	}
}

func (s *Service) publishState(level, status string) {
	s.conn.Publish(&bus.Message{
		Topic:    topicState,
		Payload:  types.BridgeState{Level: level, Status: status, TS: timex.NowMs()},
		Retained: true,
	})
}

func backoffSeq(min, max time.Duration) func() time.Duration {
	cur := min
	return func() time.Duration {
		d := cur
		cur *= 2
		if cur > max {
			cur = max
		}
		return d
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
