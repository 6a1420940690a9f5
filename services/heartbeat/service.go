package heartbeat

import (
	"context"
	"time"

	"irricode-go/bus"
)

var (
	topicHeartbeat       = bus.T("system", "heartbeat")
	topicConfigHeartbeat = bus.T("config", "heartbeat")
)

// Service publishes uptime seconds on system/heartbeat so a watcher can
// tell a live node from a wedged one.
type Service struct {
	started time.Time
}

func (s *Service) uptimeSeconds() int64 {
	return int64(time.Since(s.started) / time.Second)
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)

	tick := time.NewTicker(2 * time.Second)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			println("Info: heartbeat service stopping")
			return
		case <-tick.C:
			conn.Publish(&bus.Message{Topic: topicHeartbeat, Payload: s.uptimeSeconds()})
		case msg := <-cfgSub.Channel():
			if m, ok := msg.Payload.(map[string]any); ok {
				if iv, ok := m["interval"]; ok {
					if interval, ok := iv.(float64); ok && interval > 0 {
						tick.Reset(time.Duration(interval) * time.Second)
						println("Info: heartbeat interval set to", interval, "seconds")
					}
				}
			}
		}
	}
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) {
	s.started = time.Now()
	go s.serviceLoop(ctx, conn)
}
