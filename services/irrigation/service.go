// services/irrigation/service.go
package irrigation

import (
	"context"

	"irricode-go/bus"
	"irricode-go/errcode"
	"irricode-go/hunter"
	"irricode-go/types"
	"irricode-go/x/timex"
)

var (
	topicCmd     = bus.T("water", "cmd", "+")
	topicState   = bus.T("water", "state")
	topicAction  = bus.T("water", "action")
	topicCfgPump = bus.T("config", "pump")
)

// Service owns the hunter controller. All commands funnel through its
// single loop goroutine: a transmission blocks the loop, so two commands
// can never overlap on the wire (the controller requires exactly that).
type Service struct {
	ctrl *hunter.Controller
	conn *bus.Connection
}

// New wires the controller to the bus line. cfg.Sink is overwritten: the
// service itself feeds status to the message bus. Pump interlock starts
// per cfg and then tracks retained config/pump.
func New(line hunter.Line, cfg hunter.Config) *Service {
	s := &Service{}
	cfg.Sink = s
	s.ctrl = hunter.NewController(line, cfg)
	return s
}

// Action implements hunter.StatusSink: status lines go to the display.
func (s *Service) Action(msg string) {
	if s.conn == nil {
		return
	}
	s.conn.Publish(&bus.Message{Topic: topicAction, Payload: msg})
}

// RunInfo implements hunter.StatusSink: the last run triple is retained.
func (s *Service) RunInfo(zone, minutes, program int) {
	if s.conn == nil {
		return
	}
	s.conn.Publish(&bus.Message{
		Topic:    topicState,
		Payload:  types.RunState{Zone: zone, Minutes: minutes, Program: program, TS: timex.NowMs()},
		Retained: true,
	})
}

func (s *Service) dispatch(verb string, payload any) error {
	switch verb {
	case "zone":
		cmd, ok := payload.(types.ZoneCommand)
		if !ok {
			return errcode.InvalidPayload
		}
		return s.ctrl.StartZone(cmd.Zone, cmd.Minutes)
	case "stop":
		cmd, ok := payload.(types.ZoneCommand)
		if !ok {
			return errcode.InvalidPayload
		}
		return s.ctrl.StopZone(cmd.Zone)
	case "program":
		cmd, ok := payload.(types.ProgramCommand)
		if !ok {
			return errcode.InvalidPayload
		}
		return s.ctrl.StartProgram(cmd.Program)
	default:
		return errcode.Unsupported
	}
}

func (s *Service) serviceLoop(ctx context.Context) {
	cmdSub := s.conn.Subscribe(topicCmd)
	pumpSub := s.conn.Subscribe(topicCfgPump)
	defer s.conn.Unsubscribe(cmdSub)
	defer s.conn.Unsubscribe(pumpSub)

	for {
		select {
		case <-ctx.Done():
			println("Info: irrigation service stopping")
			return
		case msg := <-pumpSub.Channel():
			if m, ok := msg.Payload.(map[string]any); ok {
				on, _ := m["enabled"].(bool)
				s.ctrl.SetPumpEnabled(on)
				println("Info: pump interlock enabled:", on)
			}
		case msg := <-cmdSub.Channel():
			verb := msg.Topic[len(msg.Topic)-1]
			err := s.dispatch(verb, msg.Payload)
			if err != nil {
				println("Warn: water command rejected:", string(errcode.Of(err)))
				s.conn.Reply(msg, types.ErrorReply{OK: false, Error: string(errcode.Of(err))})
				continue
			}
			s.conn.Reply(msg, types.OKReply{OK: true})
		}
	}
}

// Start launches the service loop.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) {
	s.conn = conn
	go s.serviceLoop(ctx)
}
