package heartbeat

import (
	"context"
	"testing"
	"time"

	"irricode-go/bus"
)

func TestHeartbeatPublishesUptime(t *testing.T) {
	b := bus.NewBus(4)
	conn := b.NewConnection("test")
	sub := conn.Subscribe(bus.T("system", "heartbeat"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	(&Service{}).Start(ctx, b.NewConnection("heartbeat"))

	select {
	case msg := <-sub.Channel():
		up, ok := msg.Payload.(int64)
		if !ok {
			t.Fatalf("payload = %T", msg.Payload)
		}
		if up < 0 || up > 10 {
			t.Errorf("uptime = %d s", up)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no heartbeat")
	}
}

func TestUptimeCounts(t *testing.T) {
	s := &Service{started: time.Now().Add(-42 * time.Second)}
	if up := s.uptimeSeconds(); up != 42 {
		t.Errorf("uptime = %d, want 42", up)
	}
}
