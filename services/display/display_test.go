// services/display/display_test.go
package display

import (
	"testing"

	"irricode-go/bus"
	"irricode-go/types"
)

type recRenderer struct {
	frames [][5]string
}

func (r *recRenderer) Render(rows [5]string) error {
	r.frames = append(r.frames, rows)
	return nil
}

func (r *recRenderer) last() [5]string {
	return r.frames[len(r.frames)-1]
}

func msg(topic bus.Topic, payload any) *bus.Message {
	return &bus.Message{Topic: topic, Payload: payload}
}

func TestRowsFollowState(t *testing.T) {
	rec := &recRenderer{}
	s := New(rec)

	s.handle(msg(bus.T("water", "state"), types.RunState{Zone: 7, Minutes: 45}))
	s.handle(msg(bus.T("env", "value"), types.EnvValue{DeciC: 231, DeciRH: 505}))
	s.handle(msg(bus.T("water", "action"), "Watering zone 7 -> 45 min"))
	s.render()

	got := rec.last()
	if got[rowWater] != "water zone 7 for 45 min" {
		t.Errorf("water row = %q", got[rowWater])
	}
	if got[rowEnv] != "23.1C  50.5%" {
		t.Errorf("env row = %q", got[rowEnv])
	}
	if got[rowAction] != "Watering zone 7 -> 45 min" {
		t.Errorf("action row = %q", got[rowAction])
	}
}

func TestProgramRow(t *testing.T) {
	rec := &recRenderer{}
	s := New(rec)
	s.handle(msg(bus.T("water", "state"), types.RunState{Program: 3}))
	s.render()
	if got := rec.last()[rowWater]; got != "water prog 3" {
		t.Errorf("water row = %q", got)
	}
}

func TestPageFlip(t *testing.T) {
	rec := &recRenderer{}
	s := New(rec)

	s.handle(msg(bus.T("net", "wifi"), types.WifiInfo{SSID: "garden", IP: "10.0.0.9"}))
	if !s.hasSecondPage() {
		t.Fatal("wifi row should have a second page")
	}

	s.render()
	if got := rec.last()[rowWifi]; got != "SSID: garden" {
		t.Errorf("page 0 wifi row = %q", got)
	}

	s.page = 1
	s.render()
	if got := rec.last()[rowWifi]; got != "IP: 10.0.0.9" {
		t.Errorf("page 1 wifi row = %q", got)
	}
	// Single-page rows keep their text on page 1.
	s.handle(msg(bus.T("water", "action"), "done"))
	s.render()
	if got := rec.last()[rowAction]; got != "done" {
		t.Errorf("page 1 action row = %q", got)
	}
}

func TestNoRenderWithoutChange(t *testing.T) {
	rec := &recRenderer{}
	s := New(rec)
	s.handle(msg(bus.T("env", "value"), types.EnvValue{DeciC: 200, DeciRH: 500}))
	if !s.changed {
		t.Fatal("first value did not mark the screen dirty")
	}
	s.render()
	s.handle(msg(bus.T("env", "value"), types.EnvValue{DeciC: 200, DeciRH: 500}))
	if s.changed {
		t.Error("identical value marked the screen dirty")
	}
}

func TestFmtDeci(t *testing.T) {
	cases := []struct {
		in   int
		want string
	}{
		{231, "23.1"}, {0, "0.0"}, {-15, "-1.5"}, {505, "50.5"}, {9, "0.9"},
	}
	for _, c := range cases {
		if got := fmtDeci(c.in); got != c.want {
			t.Errorf("fmtDeci(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}
