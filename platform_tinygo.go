//go:build tinygo

package main

import (
	"context"
	"machine"

	"tinygo.org/x/drivers/netlink"
	"tinygo.org/x/drivers/netlink/probe"

	"irricode-go/bus"
	"irricode-go/hunter"
	"irricode-go/services/config"
	"irricode-go/services/display"
	"irricode-go/services/env"
	"irricode-go/types"
)

// Board wiring, matching the original unit.
const (
	pinBusLine = machine.GPIO16 // REM terminal level shifter
	pinPump    = machine.GPIO5  // pump / master valve relay
	pinDHT     = machine.GPIO4
)

type platform struct {
	busLine   hunter.Line
	hunterCfg hunter.Config
	sensor    env.Sensor
	renderer  display.Renderer
	store     config.Store
}

type outPin struct{ pin machine.Pin }

func (p outPin) Set(high bool) { p.pin.Set(high) }

func output(pin machine.Pin) outPin {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	pin.Low()
	return outPin{pin: pin}
}

func newPlatform() *platform {
	machine.I2C0.Configure(machine.I2CConfig{})
	return &platform{
		busLine:   output(pinBusLine),
		hunterCfg: hunter.Config{Pump: output(pinPump)},
		sensor:    env.NewDHTSensor(pinDHT),
		renderer:  display.NewOLED(machine.I2C0),
		store:     &config.MemStore{},
	}
}

// runNet joins the access point named in retained config/wifi and
// publishes the resulting link state.
func (p *platform) runNet(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(bus.T("config", "wifi"))
	defer conn.Unsubscribe(cfgSub)

	link, dev := probe.Probe()

	for {
		select {
		case <-ctx.Done():
			link.NetDisconnect()
			return
		case msg := <-cfgSub.Channel():
			m, ok := msg.Payload.(map[string]any)
			if !ok {
				continue
			}
			ssid, _ := m["ssid"].(string)
			pass, _ := m["pw"].(string)
			if ssid == "" {
				continue
			}

			link.NetDisconnect()
			err := link.NetConnect(&netlink.ConnectParams{Ssid: ssid, Passphrase: pass})
			if err != nil {
				println("Warn: wifi connect failed:", err.Error())
				conn.Publish(&bus.Message{
					Topic:    bus.T("net", "wifi"),
					Payload:  types.WifiInfo{SSID: ssid, Up: false},
					Retained: true,
				})
				continue
			}

			ip := ""
			if addr, err := dev.Addr(); err == nil {
				ip = addr.String()
			}
			println("Info: wifi up, ip:", ip)
			conn.Publish(&bus.Message{
				Topic:    bus.T("net", "wifi"),
				Payload:  types.WifiInfo{SSID: ssid, IP: ip, Up: true},
				Retained: true,
			})
		}
	}
}
