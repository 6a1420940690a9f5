// bus/bus_test.go
package bus

import (
	"context"
	"testing"
	"time"
)

func expectPayload(t *testing.T, sub *Subscription, want any) {
	t.Helper()
	select {
	case got := <-sub.Channel():
		if got.Payload != want {
			t.Errorf("expected payload %v, got %v", want, got.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("timeout waiting for %v on %s", want, sub.Pattern().String())
	}
}

func expectNoMessage(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case got := <-sub.Channel():
		t.Errorf("unexpected message %v on %s", got.Payload, sub.Pattern().String())
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBasicPubSub(t *testing.T) {
	b := NewBus(4)
	conn := b.NewConnection("test")

	sub := conn.Subscribe(T("config", "dht"))
	conn.Publish(conn.NewMessage(T("config", "dht"), "hello", false))

	expectPayload(t, sub, "hello")
}

func TestRetainedMessage(t *testing.T) {
	b := NewBus(2)
	conn := b.NewConnection("test")

	conn.Publish(conn.NewMessage(T("water", "state"), "persist", true))
	sub := conn.Subscribe(T("water", "state"))

	expectPayload(t, sub, "persist")
}

func TestRetainedClear(t *testing.T) {
	b := NewBus(2)
	conn := b.NewConnection("test")

	conn.Publish(conn.NewMessage(T("water", "state"), "persist", true))
	conn.Publish(&Message{Topic: T("water", "state"), Payload: nil, Retained: true})

	sub := conn.Subscribe(T("water", "state"))
	expectNoMessage(t, sub)
}

func TestWildcardSingleLevel(t *testing.T) {
	b := NewBus(16)
	c := b.NewConnection("test")

	s1 := c.Subscribe(T("a", "+", "c"))
	s2 := c.Subscribe(T("a", "+", "+"))
	s3 := c.Subscribe(T("a", "b", "+"))
	sNo := c.Subscribe(T("a", "+", "d"))

	c.Publish(c.NewMessage(T("a", "b", "c"), "m1", false))

	expectPayload(t, s1, "m1")
	expectPayload(t, s2, "m1")
	expectPayload(t, s3, "m1")
	expectNoMessage(t, sNo)

	// "+" must not match across levels.
	c.Publish(c.NewMessage(T("a", "c"), "m2", false))
	expectNoMessage(t, s1)
	expectNoMessage(t, s2)
	expectNoMessage(t, s3)
}

func TestWildcardMultiLevel(t *testing.T) {
	b := NewBus(16)
	c := b.NewConnection("test")

	sAHash := c.Subscribe(T("a", "#"))
	sHash := c.Subscribe(T("#"))
	sExact := c.Subscribe(T("a"))

	c.Publish(c.NewMessage(T("a"), "p1", false))
	expectPayload(t, sAHash, "p1")
	expectPayload(t, sHash, "p1")
	expectPayload(t, sExact, "p1")

	c.Publish(c.NewMessage(T("a", "b", "c"), "p2", false))
	expectPayload(t, sAHash, "p2")
	expectPayload(t, sHash, "p2")
	expectNoMessage(t, sExact)
}

func TestWildcardRetainedReplay(t *testing.T) {
	b := NewBus(16)
	c := b.NewConnection("test")

	c.Publish(c.NewMessage(T("env", "value"), "r1", true))
	c.Publish(c.NewMessage(T("water", "state"), "r2", true))

	sub := c.Subscribe(T("+", "+"))
	got := map[any]bool{}
	for i := 0; i < 2; i++ {
		select {
		case m := <-sub.Channel():
			got[m.Payload] = true
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for retained replay")
		}
	}
	if !got["r1"] || !got["r2"] {
		t.Errorf("retained replay incomplete: %v", got)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("test")

	sub := c.Subscribe(T("a"))
	sub.Unsubscribe()

	// Channel is closed after unsubscribe.
	if _, ok := <-sub.Channel(); ok {
		t.Error("expected closed channel after unsubscribe")
	}
}

func TestRequestReply(t *testing.T) {
	b := NewBus(4)
	srv := b.NewConnection("srv")
	cli := b.NewConnection("cli")

	cmdSub := srv.Subscribe(T("water", "cmd", "zone"))
	go func() {
		req := <-cmdSub.Channel()
		if !req.Topic.equal(T("water", "cmd", "zone")) {
			t.Errorf("unexpected request topic %s", req.Topic.String())
		}
		srv.Reply(req, "ok")
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	reply, err := cli.RequestWait(ctx, cli.NewMessage(T("water", "cmd", "zone"), 7, false))
	if err != nil {
		t.Fatalf("RequestWait: %v", err)
	}
	if reply.Payload != "ok" {
		t.Errorf("expected reply ok, got %v", reply.Payload)
	}
}

func TestRequestTimeout(t *testing.T) {
	b := NewBus(4)
	cli := b.NewConnection("cli")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := cli.RequestWait(ctx, cli.NewMessage(T("nobody", "home"), nil, false))
	if err == nil {
		t.Fatal("expected context error for unanswered request")
	}
}

func TestSlowConsumerDropsOldest(t *testing.T) {
	b := NewBus(2)
	c := b.NewConnection("test")

	sub := c.Subscribe(T("a"))
	for i := 0; i < 5; i++ {
		c.Publish(c.NewMessage(T("a"), i, false))
	}

	// Oldest messages were dropped; the newest survives.
	var last any
	for {
		select {
		case m := <-sub.Channel():
			last = m.Payload
			continue
		case <-time.After(20 * time.Millisecond):
		}
		break
	}
	if last != 4 {
		t.Errorf("expected newest payload 4, got %v", last)
	}
}
