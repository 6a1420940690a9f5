//go:build !tinygo

package env

// SimSensor is the host stand-in for the DHT: a slow sawtooth around
// room conditions so the display and uplink have something to show.
type SimSensor struct {
	step int
}

func (s *SimSensor) Read() (int16, uint16, error) {
	s.step++
	deciC := int16(215 + s.step%20)   // 21.5..23.4 °C
	deciRH := uint16(480 + s.step%40) // 48.0..51.9 %RH
	return deciC, deciRH, nil
}
