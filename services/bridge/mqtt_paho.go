// services/bridge/mqtt_paho.go
package bridge

import (
	"context"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"irricode-go/errcode"
)

const connectTimeout = 10 * time.Second

type pahoClient struct {
	cl   mqtt.Client
	done chan error
}

// DialMQTT opens a broker session with the paho client. Reconnects are
// left to the supervisor, so auto-reconnect stays off and a lost
// connection surfaces on Done.
func DialMQTT(ctx context.Context, cfg Config) (Client, error) {
	p := &pahoClient{done: make(chan error, 1)}

	opts := mqtt.NewClientOptions().
		AddBroker("tcp://" + cfg.IP + ":" + strconv.Itoa(cfg.Port)).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(connectTimeout).
		SetAutoReconnect(false).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			select {
			case p.done <- err:
			default:
			}
		})
	if cfg.User != "" {
		opts.SetUsername(cfg.User)
		opts.SetPassword(cfg.Pass)
	}

	p.cl = mqtt.NewClient(opts)
	tok := p.cl.Connect()
	if !tok.WaitTimeout(connectTimeout) {
		return nil, &errcode.E{C: errcode.NotConnected, Op: "bridge.dial", Msg: "connect timeout"}
	}
	if err := tok.Error(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *pahoClient) Publish(topic string, payload []byte) error {
	tok := p.cl.Publish(topic, 0, false, payload)
	tok.Wait()
	return tok.Error()
}

func (p *pahoClient) Subscribe(topic string, handler func(payload []byte)) error {
	tok := p.cl.Subscribe(topic, 0, func(_ mqtt.Client, m mqtt.Message) {
		handler(m.Payload())
	})
	tok.Wait()
	return tok.Error()
}

func (p *pahoClient) Done() <-chan error { return p.done }

func (p *pahoClient) Close() { p.cl.Disconnect(250) }
