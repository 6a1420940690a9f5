// Package hunter drives a Hunter X-Core irrigation unit over its
// single-wire control bus. The bus is write-only: the unit never
// acknowledges a frame, so delivery cannot be confirmed from this side.
package hunter

import (
	"irricode-go/errcode"
	"irricode-go/x/mathx"
)

// Frame is one encoded bus command, built fresh per command and
// consumed once by the transmitter.
type Frame []byte

// Command parameter ranges accepted by the X-Core.
const (
	MinZone    = 1
	MaxZone    = 48
	MinMinutes = 0
	MaxMinutes = 240
	MinProgram = 1
	MaxProgram = 4
)

// Fixed frame templates. Every field write below starts from one of
// these; bytes not covered by a field keep their template value.
var (
	zoneTemplate = [15]byte{
		0xff, 0x00, 0x00, 0x00, 0x10, 0x00, 0x00, 0x04,
		0x00, 0x00, 0x01, 0x00, 0x01, 0xb8, 0x3f,
	}
	programTemplate = [7]byte{0xff, 0x40, 0x03, 0x96, 0x09, 0xbd, 0x7f}
)

// writeField stamps the low width bits of val into f starting at bit
// offset pos. Value bits go in LSB first at increasing offsets; within a
// byte, offset 0 addresses the most significant bit. Caller contract:
// pos+width never exceeds len(f)*8 — offsets are fixed by the protocol
// layout, not runtime data.
func writeField(f Frame, pos, val, width uint) {
	for width > 0 {
		if val&0x1 != 0 {
			f[pos/8] |= 0x80 >> (pos % 8)
		} else {
			f[pos/8] &^= 0x80 >> (pos % 8)
		}
		width--
		val >>= 1
		pos++
	}
}

// ZoneFrame encodes a run-zone command. Minutes==0 encodes a stop; the
// protocol has no separate stop frame shape.
func ZoneFrame(zone, minutes int) (Frame, error) {
	if !mathx.Between(zone, MinZone, MaxZone) {
		return nil, &errcode.E{C: errcode.InvalidParameter, Op: "zone_frame", Msg: "zone out of range"}
	}
	if !mathx.Between(minutes, MinMinutes, MaxMinutes) {
		return nil, &errcode.E{C: errcode.InvalidParameter, Op: "zone_frame", Msg: "minutes out of range"}
	}

	f := make(Frame, len(zoneTemplate))
	copy(f, zoneTemplate[:])

	z := uint(zone)
	m := uint(minutes)

	// Zone group selector.
	if zone > 12 {
		writeField(f, 9, 0x1, 2)
	} else {
		writeField(f, 9, 0x2, 2)
	}

	// The unit expects the zone cooked three ways, each written twice.
	// No documented reason; presumably redundancy, since the bus carries
	// no error-detection field. Every offset must be preserved exactly.
	writeField(f, 23, z+0x17, 7)
	writeField(f, 36, z+0x17, 7)
	writeField(f, 49, z+0x23, 7)
	writeField(f, 62, z+0x23, 7)
	writeField(f, 75, z+0x2f, 7)
	writeField(f, 88, z+0x2f, 7)

	// Run time, split by nibble and written three times each.
	writeField(f, 31, m, 4)
	writeField(f, 44, m>>4, 4)
	writeField(f, 57, m, 4)
	writeField(f, 70, m>>4, 4)
	writeField(f, 83, m, 4)
	writeField(f, 96, m>>4, 4)

	writeField(f, 109, z-1, 4)

	return f, nil
}

// ProgramFrame encodes a run-program command.
func ProgramFrame(program int) (Frame, error) {
	if !mathx.Between(program, MinProgram, MaxProgram) {
		return nil, &errcode.E{C: errcode.InvalidParameter, Op: "program_frame", Msg: "program out of range"}
	}

	f := make(Frame, len(programTemplate))
	copy(f, programTemplate[:])
	writeField(f, 31, uint(program)-1, 2)
	return f, nil
}
