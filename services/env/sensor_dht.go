//go:build tinygo

package env

import (
	"machine"

	"tinygo.org/x/drivers/dht"
)

type dhtSensor struct {
	dev dht.DummyDevice
}

// NewDHTSensor reads a DHT21/DHT22 on the given pin. The DHT21 speaks the
// DHT22 wire protocol, so one device type covers both.
func NewDHTSensor(pin machine.Pin) Sensor {
	return &dhtSensor{dev: dht.New(pin, dht.DHT22)}
}

func (s *dhtSensor) Read() (int16, uint16, error) {
	if err := s.dev.ReadMeasurements(); err != nil {
		return 0, 0, err
	}
	t, err := s.dev.Temperature() // tenths of °C
	if err != nil {
		return 0, 0, err
	}
	h, err := s.dev.Humidity() // tenths of %RH
	if err != nil {
		return 0, 0, err
	}
	return t, h, nil
}
