// cmd/framedump/main.go
//
// Host tool: encode one command and dump the frame bytes plus the pulse
// schedule that would go out on the wire. Handy when scoping the bus.
//
//	framedump -zone 13 -min 30
//	framedump -zone 5 -stop
//	framedump -program 2
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"irricode-go/hunter"
)

type event struct {
	at   time.Duration
	high bool
}

// recorder is a virtual wire: Set logs edges against a clock that only
// advances through the injected sleep.
type recorder struct {
	now    time.Duration
	events []event
}

func (r *recorder) Set(high bool) {
	r.events = append(r.events, event{at: r.now, high: high})
}

func (r *recorder) sleep(d time.Duration) {
	r.now += d
}

func main() {
	zone := flag.Int("zone", 0, "zone number (1..48)")
	minutes := flag.Int("min", 0, "run time in minutes (0..240)")
	stop := flag.Bool("stop", false, "stop the given zone")
	program := flag.Int("program", 0, "program number (1..4)")
	flag.Parse()

	var frame hunter.Frame
	var err error
	switch {
	case *program > 0:
		frame, err = hunter.ProgramFrame(*program)
	case *zone > 0:
		if *stop {
			*minutes = 0
		}
		frame, err = hunter.ZoneFrame(*zone, *minutes)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	fmt.Printf("frame (%d bytes):", len(frame))
	for _, b := range frame {
		fmt.Printf(" %02x", b)
	}
	fmt.Println()

	rec := &recorder{}
	ctrl := hunter.NewController(rec, hunter.Config{Sleep: rec.sleep})
	if *program > 0 {
		err = ctrl.StartProgram(*program)
	} else {
		err = ctrl.StartZone(*zone, *minutes)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	fmt.Printf("schedule: %d edges, %s total\n", len(rec.events), rec.now)
	for i, ev := range rec.events {
		level := "LOW "
		if ev.high {
			level = "HIGH"
		}
		hold := rec.now - ev.at
		if i+1 < len(rec.events) {
			hold = rec.events[i+1].at - ev.at
		}
		fmt.Printf("%4d  %12s  %s for %s\n", i, ev.at, level, hold)
	}
}
