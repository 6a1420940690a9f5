// services/display/display.go
package display

import (
	"context"
	"strconv"
	"time"

	"irricode-go/bus"
	"irricode-go/types"
)

// Renderer puts five rows of text on whatever screen the build has.
type Renderer interface {
	Render(rows [5]string) error
}

// Screen rows (matches the 128x64 layout of the original unit):
// 0 last watering command, 1 wifi, 2 broker, 3 environment, 4 action.
const (
	rowWater = iota
	rowWifi
	rowBroker
	rowEnv
	rowAction
)

// pageDuration is how long each page of a two-page row is shown.
const pageDuration = 2 * time.Second

// Service collects retained node state into a small page-flipping text
// screen. Rows with a second page alternate every pageDuration.
type Service struct {
	renderer Renderer

	rows    [5][2]string // [row][page]; empty page 1 means single-page row
	page    int
	changed bool
}

func New(renderer Renderer) *Service {
	return &Service{renderer: renderer}
}

func (s *Service) set(row int, page0, page1 string) {
	if s.rows[row][0] == page0 && s.rows[row][1] == page1 {
		return
	}
	s.rows[row][0] = page0
	s.rows[row][1] = page1
	s.changed = true
}

func (s *Service) hasSecondPage() bool {
	for _, r := range s.rows {
		if r[1] != "" {
			return true
		}
	}
	return false
}

func (s *Service) render() {
	rows := [5]string{}
	for i, r := range s.rows {
		rows[i] = r[s.page]
		if rows[i] == "" {
			rows[i] = r[0]
		}
	}
	if err := s.renderer.Render(rows); err != nil {
		println("Warn: display render failed:", err.Error())
	}
	s.changed = false
}

// fmtDeci renders tenths as a decimal, e.g. 231 -> "23.1".
func fmtDeci(v int) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return sign + strconv.Itoa(v/10) + "." + strconv.Itoa(v%10)
}

func (s *Service) handle(msg *bus.Message) {
	switch p := msg.Payload.(type) {
	case types.RunState:
		if p.Program > 0 {
			s.set(rowWater, "water prog "+strconv.Itoa(p.Program), "")
		} else {
			s.set(rowWater, "water zone "+strconv.Itoa(p.Zone)+" for "+strconv.Itoa(p.Minutes)+" min", "")
		}
	case types.WifiInfo:
		s.set(rowWifi, "SSID: "+p.SSID, "IP: "+p.IP)
	case types.BridgeState:
		s.set(rowBroker, "MQTT: "+p.Level, p.Status)
	case types.EnvValue:
		s.set(rowEnv, fmtDeci(int(p.DeciC))+"C  "+fmtDeci(int(p.DeciRH))+"%", "")
	case string:
		// water/action status line
		s.set(rowAction, p, "")
	}
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	subs := []*bus.Subscription{
		conn.Subscribe(bus.T("water", "state")),
		conn.Subscribe(bus.T("water", "action")),
		conn.Subscribe(bus.T("env", "value")),
		conn.Subscribe(bus.T("net", "wifi")),
		conn.Subscribe(bus.T("bridge", "state")),
	}
	defer func() {
		for _, sub := range subs {
			conn.Unsubscribe(sub)
		}
	}()

	tick := time.NewTicker(pageDuration)
	defer tick.Stop()

	s.render()
	for {
		select {
		case <-ctx.Done():
			println("Info: display service stopping")
			return
		case <-tick.C:
			if s.hasSecondPage() {
				s.page = 1 - s.page
				s.render()
			} else if s.changed {
				s.render()
			}
		case msg := <-subs[0].Channel():
			s.handle(msg)
		case msg := <-subs[1].Channel():
			s.handle(msg)
		case msg := <-subs[2].Channel():
			s.handle(msg)
		case msg := <-subs[3].Channel():
			s.handle(msg)
		case msg := <-subs[4].Channel():
			s.handle(msg)
		}
		if s.changed {
			s.render()
		}
	}
}

// Start launches the display loop.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) {
	go s.serviceLoop(ctx, conn)
}
