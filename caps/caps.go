// Package caps defines the small set of host capabilities the SJA1105
// driver consumes: timing, mutual exclusion, a 32-bit-word allocator, a
// CRC-32 engine matching the switch's own polynomial, and SPI/GPIO
// primitives. The driver never talks to hardware directly; it always goes
// through these interfaces, so it can be exercised against fakes in tests
// and against real hardware via package hwcaps.
package caps

import "github.com/jangala-dev/sja1105-go/errcode"

// Clock supplies the two delay primitives the driver needs. They are kept
// distinct on purpose: DelayNs must busy-wait (no yielding) for the
// nanosecond-scale SPI timings, while SleepMs is a cooperative sleep used
// only while CS is de-asserted.
type Clock interface {
	// NowMs returns monotonic milliseconds. Subtraction must be
	// wraparound-safe; callers compute elapsed time as NowMs()-then
	// using unsigned arithmetic semantics.
	NowMs() uint32
	// SleepMs cooperatively yields for at least ms milliseconds.
	SleepMs(ms uint32)
	// DelayNs busy-waits for at least ns nanoseconds. Must never yield;
	// callers use it while CS is asserted.
	DelayNs(ns uint32)
}

// Mutex serializes every SPI touch and every table-store mutation for a
// given handle.
type Mutex interface {
	// Take acquires the mutex within timeoutMs, returning errcode.Busy on
	// timeout and errcode.MutexError on structural failure.
	Take(timeoutMs uint32) error
	// Give releases the mutex, returning errcode.MutexError if the caller
	// does not hold it.
	Give() error
}

// Allocator is the 32-bit-word allocator backing variable-length tables.
type Allocator interface {
	// Alloc returns a handle to sizeWords words of zeroed storage.
	Alloc(sizeWords uint32) (Block, error)
	// Free releases a single block. Double-free is a structural error
	// (errcode.DynMemory).
	Free(b Block) error
	// FreeAll resets the allocator, invalidating every outstanding block.
	FreeAll()
}

// Block is an opaque word-addressable allocation. Word returns a
// reference to word i (0-indexed); callers treat it as a *uint32.
type Block interface {
	Len() uint32
	Word(i uint32) *uint32
}

// CRC32 mirrors the switch's own CRC-32 engine (polynomial and
// byte/endianness must match the image format, see transport/regmap).
type CRC32 interface {
	// Reset starts a new running computation.
	Reset()
	// Accumulate folds buf (native-endian 32-bit words serialized as
	// bytes) into the running computation and returns the crc so far.
	Accumulate(buf []byte) uint32
}

// SPI is the word-granular SPI bus primitive, split into the three bus
// operations the switch's framing protocol actually issues as separate
// transactions on the wire: a control-word (or write-payload) transmit, a
// plain receive, and a full-duplex transmit-receive used only where the
// data phase itself carries outbound bytes worth checking (the MISO
// loopback probe in transport.ReadChecked). Implementations operate at
// 32-bit-word granularity, MSB-first, CPOL=low/CPHA=2nd-edge, software
// NSS. Keeping these as distinct calls (rather than one combined
// Transfer) lets the caller place a delay between the control phase and
// the data phase instead of baking it into a single bus transaction.
type SPI interface {
	// Transmit sends out and discards whatever comes back on MISO.
	Transmit(out []uint32) error
	// Receive clocks len(in) words in, ignoring what goes out on MOSI.
	Receive(in []uint32) error
	// TransmitReceive clocks out and in simultaneously; len(in) must
	// equal len(out).
	TransmitReceive(out []uint32, in []uint32) error
}

// GPIO sets CS or RST to a level. true = high.
type GPIO interface {
	Set(level bool)
}

// Set is the full capability set injected at Init time.
type Set struct {
	Clock     Clock
	Mutex     Mutex
	Allocator Allocator
	CRC       CRC32
	SPI       SPI
	CS        GPIO
	RST       GPIO
}

// Validate checks every capability is present.
func (s Set) Validate() error {
	if s.Clock == nil || s.Mutex == nil || s.Allocator == nil || s.CRC == nil ||
		s.SPI == nil || s.CS == nil || s.RST == nil {
		return &errcode.E{C: errcode.ParameterError, Op: "caps.Validate", Msg: "incomplete capability set"}
	}
	return nil
}
