//go:build !tinygo

package main

import (
	"context"

	"irricode-go/bus"
	"irricode-go/hunter"
	"irricode-go/services/config"
	"irricode-go/services/display"
	"irricode-go/services/env"
	"irricode-go/types"
)

type platform struct {
	busLine   hunter.Line
	hunterCfg hunter.Config
	sensor    env.Sensor
	renderer  display.Renderer
	store     config.Store
}

// quietLine absorbs protocol edges. At 208 µs per pulse, printing each
// one would drown the console, so only the edge count is kept.
type quietLine struct{ edges int }

func (l *quietLine) Set(high bool) { l.edges++ }

// loudPin logs its slow transitions, e.g. the pump relay.
type loudPin struct{ name string }

func (p loudPin) Set(high bool) {
	state := "off"
	if high {
		state = "on"
	}
	println("pin:", p.name, state)
}

func newPlatform() *platform {
	return &platform{
		busLine:   &quietLine{},
		hunterCfg: hunter.Config{Pump: loudPin{name: "pump"}},
		sensor:    &env.SimSensor{},
		renderer:  display.ConsoleRenderer{},
		store:     &config.FileStore{Path: "hunter-node.json"},
	}
}

// runNet publishes a static wifi record; the host build has no radio.
func (p *platform) runNet(ctx context.Context, conn *bus.Connection) {
	conn.Publish(&bus.Message{
		Topic:    bus.T("net", "wifi"),
		Payload:  types.WifiInfo{SSID: "sim", IP: "127.0.0.1", Up: true},
		Retained: true,
	})
	<-ctx.Done()
}
