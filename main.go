package main

import (
	"context"
	"time"

	"irricode-go/bus"
	"irricode-go/services/bridge"
	"irricode-go/services/config"
	"irricode-go/services/display"
	"irricode-go/services/env"
	"irricode-go/services/heartbeat"
	"irricode-go/services/irrigation"
)

const deviceID = "hunter-node"

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("boot:", deviceID)

	ctx := context.WithValue(context.Background(), config.CtxDeviceKey, deviceID)
	b := bus.NewBus(8)

	plat := newPlatform()

	// Config first so its retained sections greet the other services.
	config.NewService(plat.store).Start(ctx, b.NewConnection("config"))

	irrigation.New(plat.busLine, plat.hunterCfg).Start(ctx, b.NewConnection("irrigation"))
	env.New(plat.sensor).Start(ctx, b.NewConnection("env"))
	display.New(plat.renderer).Start(ctx, b.NewConnection("display"))
	bridge.New(bridge.DialMQTT).Start(ctx, b.NewConnection("bridge"))
	(&heartbeat.Service{}).Start(ctx, b.NewConnection("heartbeat"))

	go plat.runNet(ctx, b.NewConnection("net"))

	select {}
}
