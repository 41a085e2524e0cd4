package hwcaps

import (
	"bytes"
	"testing"
)

// fakeBus is a minimal tinygo.org/x/drivers.SPI implementation: it
// records the outbound frame and echoes back a fixed reply, enough to
// exercise SPI's Transmit/Receive/TransmitReceive word/byte marshalling
// without real hardware.
type fakeBus struct {
	lastW []byte
	reply []byte
	err   error
}

func (f *fakeBus) Tx(w, r []byte) error {
	f.lastW = append([]byte(nil), w...)
	if f.err != nil {
		return f.err
	}
	copy(r, f.reply)
	return nil
}

func (f *fakeBus) Transfer(b byte) (byte, error) { return 0, f.err }

func TestSPITransmit_MarshalsWordsMSBFirst(t *testing.T) {
	bus := &fakeBus{}
	s := &SPI{Bus: bus}

	if err := s.Transmit([]uint32{0x01020304, 0x0a0b0c0d}); err != nil {
		t.Fatalf("Transmit: %v", err)
	}
	want := []byte{0x01, 0x02, 0x03, 0x04, 0x0a, 0x0b, 0x0c, 0x0d}
	if !bytes.Equal(bus.lastW, want) {
		t.Fatalf("expected MSB-first bytes %x, got %x", want, bus.lastW)
	}
}

func TestSPIReceive_UnmarshalsReplyWords(t *testing.T) {
	bus := &fakeBus{reply: []byte{0xde, 0xad, 0xbe, 0xef}}
	s := &SPI{Bus: bus}

	in := make([]uint32, 1)
	if err := s.Receive(in); err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if in[0] != 0xdeadbeef {
		t.Fatalf("expected 0xdeadbeef, got %#x", in[0])
	}
}

func TestSPITransmitReceive_MarshalsAndUnmarshals(t *testing.T) {
	bus := &fakeBus{reply: []byte{0xde, 0xad, 0xbe, 0xef}}
	s := &SPI{Bus: bus}

	in := make([]uint32, 1)
	if err := s.TransmitReceive([]uint32{0xa5a5a5a5}, in); err != nil {
		t.Fatalf("TransmitReceive: %v", err)
	}
	want := []byte{0xa5, 0xa5, 0xa5, 0xa5}
	if !bytes.Equal(bus.lastW, want) {
		t.Fatalf("expected outbound bytes %x, got %x", want, bus.lastW)
	}
	if in[0] != 0xdeadbeef {
		t.Fatalf("expected 0xdeadbeef, got %#x", in[0])
	}
}

func TestSPITransmitReceive_RejectsLengthMismatch(t *testing.T) {
	bus := &fakeBus{}
	s := &SPI{Bus: bus}
	if err := s.TransmitReceive([]uint32{0x1}, make([]uint32, 2)); err == nil {
		t.Fatal("expected in/out length mismatch error")
	}
}

func TestSPITransmit_PropagatesBusError(t *testing.T) {
	bus := &fakeBus{err: errSimulated}
	s := &SPI{Bus: bus}
	if err := s.Transmit([]uint32{0x1}); err == nil {
		t.Fatal("expected the bus error to propagate")
	}
}

func TestGPIO_SetCallsTheHostFunction(t *testing.T) {
	var got bool
	g := &GPIO{SetFunc: func(level bool) { got = level }}
	g.Set(true)
	if !got {
		t.Fatal("expected SetFunc to be called with true")
	}
}

type simpleErr string

func (e simpleErr) Error() string { return string(e) }

var errSimulated = simpleErr("simulated bus fault")
