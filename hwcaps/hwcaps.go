// Package hwcaps supplies concrete caps.SPI/caps.GPIO implementations
// wired to tinygo.org/x/drivers for hosts that want to run the driver on
// real silicon, per spec.md §6's capability set. Test code uses
// hand-rolled fakes instead (see every other package's own _test.go);
// this adapter is the only place real hardware is reached.
//
// Grounded on services/hal/internal/platform/factories_rp2xxx.go's
// "wrap a third-party/machine primitive behind the driver's own
// capability interface" shape.
package hwcaps

import (
	"encoding/binary"

	"github.com/jangala-dev/sja1105-go/caps"
	"github.com/jangala-dev/sja1105-go/errcode"
	"tinygo.org/x/drivers"
)

// SPI adapts a tinygo.org/x/drivers.SPI bus, already configured by the
// caller for CPOL=low/CPHA=2nd-edge at the switch's supported clock rate
// (spec.md §6), to caps.SPI's 32-bit-word, MSB-first transfer contract.
type SPI struct {
	Bus drivers.SPI
}

// marshalWords packs words into big-endian (MSB-first) bytes.
func marshalWords(words []uint32) []byte {
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		binary.BigEndian.PutUint32(buf[4*i:], w)
	}
	return buf
}

// unmarshalWords unpacks big-endian bytes into words.
func unmarshalWords(words []uint32, buf []byte) {
	for i := range words {
		words[i] = binary.BigEndian.Uint32(buf[4*i:])
	}
}

// Transmit marshals out to big-endian bytes and clocks it out, discarding
// whatever comes back on MISO.
func (s *SPI) Transmit(out []uint32) error {
	if err := s.Bus.Tx(marshalWords(out), nil); err != nil {
		return &errcode.E{C: errcode.Spi, Op: "hwcaps.SPI.Transmit", Err: err}
	}
	return nil
}

// Receive clocks len(in) dummy words out while capturing MISO into in.
func (s *SPI) Receive(in []uint32) error {
	rbuf := make([]byte, 4*len(in))
	if err := s.Bus.Tx(make([]byte, len(rbuf)), rbuf); err != nil {
		return &errcode.E{C: errcode.Spi, Op: "hwcaps.SPI.Receive", Err: err}
	}
	unmarshalWords(in, rbuf)
	return nil
}

// TransmitReceive clocks out and in simultaneously; len(in) must equal
// len(out).
func (s *SPI) TransmitReceive(out []uint32, in []uint32) error {
	if len(in) != len(out) {
		return &errcode.E{C: errcode.ParameterError, Op: "hwcaps.SPI.TransmitReceive", Msg: "in/out length mismatch"}
	}
	rbuf := make([]byte, 4*len(out))
	if err := s.Bus.Tx(marshalWords(out), rbuf); err != nil {
		return &errcode.E{C: errcode.Spi, Op: "hwcaps.SPI.TransmitReceive", Err: err}
	}
	unmarshalWords(in, rbuf)
	return nil
}

// GPIO adapts a pair of host-supplied level accessors to caps.GPIO.
// tinygo.org/x/drivers does not itself define a GPIO pin type (pins are
// platform-specific, e.g. machine.Pin on TinyGo targets), so the host
// glue wires the real pin's Set method directly here rather than this
// package importing a specific board's machine package.
type GPIO struct {
	SetFunc func(level bool)
}

// Set drives the pin to level.
func (g *GPIO) Set(level bool) { g.SetFunc(level) }

var _ caps.SPI = (*SPI)(nil)
var _ caps.GPIO = (*GPIO)(nil)
