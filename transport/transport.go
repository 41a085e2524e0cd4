// Package transport implements the SJA1105's framed SPI protocol: control
// frame construction, chunked reads, single-burst writes, the mandated
// inter-transaction delays, flag-polling primitives and the two reset
// sequences (spec.md §4.1). It is grounded on
// original_source/Src/sja1105_spi.c's control-frame layout, chunk loop
// and CS/delay sequencing.
package transport

import (
	"github.com/jangala-dev/sja1105-go/caps"
	"github.com/jangala-dev/sja1105-go/errcode"
	"github.com/jangala-dev/sja1105-go/stats"
	"github.com/jangala-dev/sja1105-go/x/conv"
	"github.com/jangala-dev/sja1105-go/x/mathx"
)

// Timing constants named directly in spec.md §4.1.
const (
	delayPostEdgeNs    = 130
	delayCSToClockNs   = 40
	delayControlToDataNs = 64
	delayLastEdgeToCSNs = 40

	resetLowUs        = 5
	resetStartupUs    = 329
	cfgResetDelayUs   = 2
)

// maxReadWords is the largest single-burst read payload the silicon
// accepts; larger reads are chunked (spec.md §4.1).
const maxReadWords = 64

// addrBits is the width of the word-address field in the control frame.
const addrBits = 21

const maxAddr = 1<<addrBits - 1

// Control-frame field layout (spec.md §4.1 "Framing").
const (
	ctrlRWShift   = 31
	ctrlSizeShift = 25
	ctrlSizeMask  = 0x3f
	ctrlAddrShift = 4
	ctrlAddrMask  = 0x1fffff
)

// Transport owns the capability handles needed to talk to one SJA1105
// over SPI, plus the shared event counters every successful transfer
// updates.
type Transport struct {
	spi caps.SPI
	cs  caps.GPIO
	rst caps.GPIO
	clk caps.Clock

	counters *stats.Counters
}

// New builds a Transport over the given capabilities.
func New(spi caps.SPI, cs, rst caps.GPIO, clk caps.Clock, counters *stats.Counters) *Transport {
	return &Transport{spi: spi, cs: cs, rst: rst, clk: clk, counters: counters}
}

// hexWord formats a control word for a fault message without pulling in
// fmt on the hot SPI-failure path.
func hexWord(w uint32) string {
	var buf [8]byte
	return string(conv.U32Hex(buf[:], w))
}

func controlWord(write bool, sizeWords int, addr uint32) uint32 {
	var w uint32
	if write {
		w |= 1 << ctrlRWShift
	}
	// "writes ignore the size field" (spec.md §4.1); only reads encode it.
	if !write {
		sz := sizeWords & ctrlSizeMask // 64 words encodes as 0
		w |= uint32(sz) << ctrlSizeShift
	}
	w |= (addr & ctrlAddrMask) << ctrlAddrShift
	return w
}

func checkAddr(addr uint32, count int) error {
	if addr > maxAddr {
		return &errcode.E{C: errcode.ParameterError, Op: "transport", Msg: "address exceeds 21-bit space"}
	}
	end := addr + uint32(count)
	if end > maxAddr+1 || end < addr {
		return &errcode.E{C: errcode.ParameterError, Op: "transport", Msg: "address range exceeds 21-bit space"}
	}
	return nil
}

// assert begins the mandated CS/timing sequence shared by every
// transaction variant below: a post-edge delay, CS low, then the
// CS-to-clock setup delay.
func (tr *Transport) assert() {
	tr.clk.DelayNs(delayPostEdgeNs)
	tr.cs.Set(false) // assert (active-low)
	tr.clk.DelayNs(delayCSToClockNs)
}

// deassert ends a transaction: the last-edge-to-CS delay, then CS high.
func (tr *Transport) deassert() {
	tr.clk.DelayNs(delayLastEdgeToCSNs)
	tr.cs.Set(true) // de-assert
}

// writeTxn sends ctrl, then data, as two separate bus transmits within
// one CS assertion — matching SJA1105_WriteRegister's back-to-back
// HAL_SPI_Transmit calls for the command frame and the payload.
func (tr *Transport) writeTxn(ctrl uint32, data []uint32) error {
	tr.assert()
	if err := tr.spi.Transmit([]uint32{ctrl}); err != nil {
		tr.cs.Set(true)
		return &errcode.E{C: errcode.Spi, Op: "transport.writeTxn", Msg: "control word " + hexWord(ctrl), Err: err}
	}
	if err := tr.spi.Transmit(data); err != nil {
		tr.cs.Set(true)
		return &errcode.E{C: errcode.Spi, Op: "transport.writeTxn", Msg: "control word " + hexWord(ctrl), Err: err}
	}
	tr.deassert()
	return nil
}

// readTxn transmits ctrl, waits the mandated control-to-data gap, then
// receives len(data) words — matching SJA1105_ReadRegister's
// HAL_SPI_Transmit, callback_delay_ns, HAL_SPI_Receive sequence. The
// delay sits between the two bus transactions, not inside either one.
func (tr *Transport) readTxn(ctrl uint32, data []uint32) error {
	tr.assert()
	if err := tr.spi.Transmit([]uint32{ctrl}); err != nil {
		tr.cs.Set(true)
		return &errcode.E{C: errcode.Spi, Op: "transport.readTxn", Msg: "control word " + hexWord(ctrl), Err: err}
	}
	tr.clk.DelayNs(delayControlToDataNs)
	if err := tr.spi.Receive(data); err != nil {
		tr.cs.Set(true)
		return &errcode.E{C: errcode.Spi, Op: "transport.readTxn", Msg: "control word " + hexWord(ctrl), Err: err}
	}
	tr.deassert()
	return nil
}

// readCheckedTxn is readTxn's full-duplex variant: the data phase also
// clocks out a non-trivial pattern (out), letting the caller detect a
// MISO fault that echoes the transmitted bytes straight back.
func (tr *Transport) readCheckedTxn(ctrl uint32, out []uint32, in []uint32) error {
	tr.assert()
	if err := tr.spi.Transmit([]uint32{ctrl}); err != nil {
		tr.cs.Set(true)
		return &errcode.E{C: errcode.Spi, Op: "transport.readCheckedTxn", Msg: "control word " + hexWord(ctrl), Err: err}
	}
	tr.clk.DelayNs(delayControlToDataNs)
	if err := tr.spi.TransmitReceive(out, in); err != nil {
		tr.cs.Set(true)
		return &errcode.E{C: errcode.Spi, Op: "transport.readCheckedTxn", Msg: "control word " + hexWord(ctrl), Err: err}
	}
	tr.deassert()
	return nil
}

// Read fetches count words starting at addr, chunking into ≤64-word
// bursts.
func (tr *Transport) Read(addr uint32, count int) ([]uint32, error) {
	if count <= 0 {
		return nil, nil
	}
	if err := checkAddr(addr, count); err != nil {
		return nil, err
	}
	out := make([]uint32, count)
	done := 0
	for done < count {
		chunk := mathx.Clamp(count-done, 1, maxReadWords)
		ctrl := controlWord(false, chunk, addr+uint32(done))
		rx := make([]uint32, chunk)
		if err := tr.readTxn(ctrl, rx); err != nil {
			return nil, err
		}
		copy(out[done:done+chunk], rx)
		done += chunk
	}
	tr.counters.AddWordsRead(uint32(count))
	return out, nil
}

// ReadOne reads a single word at addr.
func (tr *Transport) ReadOne(addr uint32) (uint32, error) {
	words, err := tr.Read(addr, 1)
	if err != nil {
		return 0, err
	}
	return words[0], nil
}

// checkSentinel is the non-trivial payload the "check" read variant
// sends during the data phase; a SPI loopback fault (missing MISO)
// returns this exact pattern back instead of the switch's real data.
const checkSentinel = 0xa5a5a5a5

// ReadChecked performs a single-word read, additionally verifying the
// chip did not echo back the sentinel it was sent during the data phase
// (a symptom of a disconnected MISO line).
func (tr *Transport) ReadChecked(addr uint32) (uint32, error) {
	ctrl := controlWord(false, 1, addr)
	out := []uint32{checkSentinel}
	in := make([]uint32, 1)
	if err := tr.readCheckedTxn(ctrl, out, in); err != nil {
		return 0, err
	}
	if in[0] == checkSentinel {
		return 0, &errcode.E{C: errcode.Spi, Op: "transport.ReadChecked", Msg: "chip echoed check sentinel, MISO likely disconnected"}
	}
	tr.counters.AddWordsRead(1)
	return in[0], nil
}

// Write sends words to addr in a single SPI burst.
func (tr *Transport) Write(addr uint32, words []uint32) error {
	if len(words) == 0 {
		return nil
	}
	if err := checkAddr(addr, len(words)); err != nil {
		return err
	}
	ctrl := controlWord(true, len(words), addr)
	if err := tr.writeTxn(ctrl, words); err != nil {
		return err
	}
	tr.counters.AddWordsWritten(uint32(len(words)))
	return nil
}

// PollFlag polls addr up to 10 times, spaced timeoutMs/10 apart,
// returning nil as soon as (value&mask != 0) == polarity, else
// errcode.Timeout.
func (tr *Transport) PollFlag(addr, mask uint32, polarity bool, timeoutMs uint32) error {
	interval := timeoutMs / 10
	for i := 0; i < 10; i++ {
		v, err := tr.ReadOne(addr)
		if err != nil {
			return err
		}
		if (v&mask != 0) == polarity {
			return nil
		}
		if i < 9 {
			tr.clk.SleepMs(interval)
		}
	}
	return &errcode.E{C: errcode.Timeout, Op: "transport.PollFlag"}
}

// ReadFlag reads addr once and reports whether any bit in mask is set.
func (tr *Transport) ReadFlag(addr, mask uint32) (bool, error) {
	v, err := tr.ReadOne(addr)
	if err != nil {
		return false, err
	}
	return v&mask != 0, nil
}

// FullReset pulses RST_N low for 5µs, releases it, then cooperatively
// sleeps 1ms (T_RST_STARTUP_HW, spec.md §4.1). Note the 329µs startup
// figure is sub-millisecond; SleepMs(1) is the coarsest granularity the
// Clock capability promises and always exceeds the datasheet minimum.
func (tr *Transport) FullReset() {
	tr.rst.Set(false)
	tr.clk.DelayNs(resetLowUs * 1000)
	tr.rst.Set(true)
	tr.clk.SleepMs(1)
	tr.counters.IncResets()
}

// CfgReset writes the RGU configuration-reset bit and waits 2µs.
func (tr *Transport) CfgReset(rguResetCtrlAddr, cfgResetBitMask uint32) error {
	if err := tr.Write(rguResetCtrlAddr, []uint32{cfgResetBitMask}); err != nil {
		return err
	}
	tr.clk.DelayNs(cfgResetDelayUs * 1000)
	tr.counters.IncResets()
	return nil
}
