package hunter

import (
	"strconv"
	"time"
)

// StatusSink receives human-readable progress from the controller.
// Implementations typically feed a display; a nil sink is allowed.
type StatusSink interface {
	Action(msg string)
	RunInfo(zone, minutes, program int)
}

// Config carries the controller's collaborators.
type Config struct {
	Pump        Line // pump relay output; may be nil
	PumpEnabled bool // interlock flag from external configuration
	Sink        StatusSink

	// Sleep replaces time.Sleep inside the transmitter. Only fakes use
	// this; on hardware the default is the protocol.
	Sleep func(time.Duration)
}

// Controller is the only entry point the rest of the node uses. One
// command is validated, encoded and transmitted per call; callers must
// not overlap calls (see Transmitter).
type Controller struct {
	tx      *Transmitter
	pump    Line
	usePump bool
	sink    StatusSink
}

func NewController(line Line, cfg Config) *Controller {
	c := &Controller{
		tx:      NewTransmitter(line),
		pump:    cfg.Pump,
		usePump: cfg.PumpEnabled && cfg.Pump != nil,
		sink:    cfg.Sink,
	}
	if cfg.Sleep != nil {
		c.tx.sleep = cfg.Sleep
	}
	return c
}

// SetPumpEnabled updates the interlock flag at runtime.
func (c *Controller) SetPumpEnabled(on bool) {
	c.usePump = on && c.pump != nil
}

// StartZone runs a zone for the given minutes. Minutes==0 stops it.
func (c *Controller) StartZone(zone, minutes int) error {
	f, err := ZoneFrame(zone, minutes)
	if err != nil {
		return err
	}

	if c.usePump {
		// Pump engages with the water, drops on a stop command.
		c.pump.Set(minutes > 0)
	}

	c.tx.Send(f, true)

	if c.sink != nil {
		c.sink.Action("Watering zone " + strconv.Itoa(zone) + " -> " + strconv.Itoa(minutes) + " min")
		c.sink.RunInfo(zone, minutes, 0)
	}
	return nil
}

// StopZone stops a zone. On the wire this is StartZone with zero minutes.
func (c *Controller) StopZone(zone int) error {
	return c.StartZone(zone, 0)
}

// StartProgram runs a stored program.
func (c *Controller) StartProgram(program int) error {
	f, err := ProgramFrame(program)
	if err != nil {
		return err
	}

	c.tx.Send(f, false)

	if c.sink != nil {
		c.sink.Action("Watering prog " + strconv.Itoa(program) + " ...")
		c.sink.RunInfo(0, 0, program)
	}
	return nil
}
