package dynreconfig

import (
	"testing"

	"github.com/jangala-dev/sja1105-go/regmap"
	"github.com/jangala-dev/sja1105-go/stats"
	"github.com/jangala-dev/sja1105-go/transport"
)

type fakeGPIO struct{ level bool }

func (g *fakeGPIO) Set(level bool) { g.level = level }

type fakeClock struct{}

func (fakeClock) NowMs() uint32     { return 0 }
func (fakeClock) SleepMs(ms uint32) {}
func (fakeClock) DelayNs(ns uint32) {}

// fakeSPI is a tiny word-addressable register model. onCtrlWrite, if set,
// is called with the decoded control register's address and value
// whenever the dynamic-reconfiguration control register itself is
// written, letting tests simulate the chip clearing VALID/ERRORS after a
// handshake step. The SPI framing control word arrives as its own
// Transmit call and is held in pendingAddr until the data-phase call that
// follows it.
type fakeSPI struct {
	mem         map[uint32]uint32
	ctrlAddr    uint32
	onCtrlWrite func(addr, value uint32)

	pendingAddr uint32
	havePending bool
}

func newFakeSPI(ctrlAddr uint32) *fakeSPI {
	return &fakeSPI{mem: make(map[uint32]uint32), ctrlAddr: ctrlAddr}
}

const (
	ctrlRWShift   = 31
	ctrlSizeShift = 25
	ctrlAddrShift = 4
	ctrlAddrMask  = 0x1fffff
)

func (s *fakeSPI) Transmit(out []uint32) error {
	if !s.havePending {
		if len(out) == 0 {
			return nil
		}
		s.pendingAddr = (out[0] >> ctrlAddrShift) & ctrlAddrMask
		s.havePending = true
		return nil
	}
	for i, w := range out {
		a := s.pendingAddr + uint32(i)
		s.mem[a] = w
		if a == s.ctrlAddr && s.onCtrlWrite != nil {
			s.onCtrlWrite(a, w)
		}
	}
	s.havePending = false
	return nil
}

func (s *fakeSPI) Receive(in []uint32) error {
	for i := range in {
		in[i] = s.mem[s.pendingAddr+uint32(i)]
	}
	s.havePending = false
	return nil
}

func (s *fakeSPI) TransmitReceive(out []uint32, in []uint32) error {
	for i := range in {
		in[i] = s.mem[s.pendingAddr+uint32(i)]
	}
	s.havePending = false
	return nil
}

func newTestTransport(ctrlAddr uint32) (*transport.Transport, *fakeSPI) {
	spi := newFakeSPI(ctrlAddr)
	tr := transport.New(spi, &fakeGPIO{level: true}, &fakeGPIO{level: true}, fakeClock{}, &stats.Counters{})
	return tr, spi
}

func TestWrite_SucceedsWhenChipClearsValidWithoutErrors(t *testing.T) {
	w := MACConfigWindow()
	tr, spi := newTestTransport(w.CtrlAddr)

	// Chip behavior: as soon as VALID is written, "complete" the
	// operation immediately by clearing VALID (ERRORS stays 0).
	spi.onCtrlWrite = func(addr, value uint32) {
		if value&0x80000000 != 0 { // VALID bit
			spi.mem[addr] = 0
		}
	}

	if err := Write(tr, w, 2, []uint32{1, 2, 3, 4, 5, 6, 7}); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

func TestWrite_SurfacesDynReconfigOnErrors(t *testing.T) {
	w := MACConfigWindow()
	tr, spi := newTestTransport(w.CtrlAddr)

	spi.onCtrlWrite = func(addr, value uint32) {
		if value&0x80000000 != 0 {
			// Clear VALID but leave ERRORS set (bit 29).
			spi.mem[addr] = 1 << 29
		}
	}

	err := Write(tr, w, 1, []uint32{1, 2, 3, 4, 5, 6, 7})
	if err == nil {
		t.Fatal("expected DynReconfig error")
	}
}

func TestWrite_TimesOutIfWindowNeverIdle(t *testing.T) {
	w := MACConfigWindow()
	tr, spi := newTestTransport(w.CtrlAddr)
	spi.mem[w.CtrlAddr] = 1 << 31 // VALID permanently set

	if err := Write(tr, w, 0, []uint32{1, 2, 3, 4, 5, 6, 7}); err == nil {
		t.Fatal("expected timeout polling for window idle")
	}
}

func TestRead_ReturnsDataAfterHandshake(t *testing.T) {
	w := L2LookupWindow()
	tr, spi := newTestTransport(w.CtrlAddr)
	spi.mem[w.DataAddr] = 0xCAFE

	spi.onCtrlWrite = func(addr, value uint32) {
		if value&0x80000000 != 0 {
			spi.mem[addr] = 0
		}
	}

	out := make([]uint32, 1)
	if err := Read(tr, w, 5, out); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if out[0] != 0xCAFE {
		t.Fatalf("got %#x", out[0])
	}
}

func TestInvalidateL2Range_IssuesOneCommandPerIndex(t *testing.T) {
	w := L2LookupWindow()
	tr, spi := newTestTransport(w.CtrlAddr)

	var ctrlWrites int
	spi.onCtrlWrite = func(addr, value uint32) {
		ctrlWrites++
		if value&0x80000000 != 0 {
			spi.mem[addr] = 0
		}
	}

	if err := InvalidateL2Range(tr, 0, 4); err != nil {
		t.Fatalf("InvalidateL2Range: %v", err)
	}
	if ctrlWrites != 4 {
		t.Fatalf("expected 4 control-register writes, got %d", ctrlWrites)
	}
}

// TestInvalidateL2Range_HostCommandSurvivesOnTheWire guards against the
// host-command field colliding with (and being truncated by) the
// single-bit RDWRSET position: INVALIDATE_ENTRY (0x4) must still be
// present, unshifted away, in the control word actually written.
func TestInvalidateL2Range_HostCommandSurvivesOnTheWire(t *testing.T) {
	w := L2LookupWindow()
	tr, spi := newTestTransport(w.CtrlAddr)

	var sawCommand uint32
	spi.onCtrlWrite = func(addr, value uint32) {
		if value&0x80000000 != 0 {
			sawCommand = (value & regmap.DynL2HostCmdMask) >> regmap.DynL2HostCmdShift
			spi.mem[addr] = 0
		}
	}

	if err := InvalidateL2Range(tr, 0, 1); err != nil {
		t.Fatalf("InvalidateL2Range: %v", err)
	}
	if sawCommand != regmap.DynL2HostCmdInvalidateEntry {
		t.Fatalf("expected host command %#x on the wire, got %#x", regmap.DynL2HostCmdInvalidateEntry, sawCommand)
	}
}
