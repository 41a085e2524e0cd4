// Command sja1105-demo wires the driver to a real SPI bus and brings up
// one switch from an on-disk static-configuration image. It is a thin
// host-glue example, not a board-support package: Clock/Mutex/Allocator/
// CRC32 are stdlib-backed stand-ins a real deployment would replace with
// board-specific primitives (a hardware timer, an RTOS mutex, a static
// arena).
package main

import (
	"fmt"
	"hash/crc32"
	"os"
	"sync"
	"time"

	"github.com/jangala-dev/sja1105-go/caps"
	"github.com/jangala-dev/sja1105-go/errcode"
	"github.com/jangala-dev/sja1105-go/hwcaps"
	"github.com/jangala-dev/sja1105-go/portdesc"
	"github.com/jangala-dev/sja1105-go/regmap"
	"github.com/jangala-dev/sja1105-go/sja1105"
	"tinygo.org/x/drivers"
)

// wallClock adapts the host's monotonic clock to caps.Clock.
type wallClock struct{ start time.Time }

func (w wallClock) NowMs() uint32     { return uint32(time.Since(w.start).Milliseconds()) }
func (w wallClock) SleepMs(ms uint32) { time.Sleep(time.Duration(ms) * time.Millisecond) }
func (w wallClock) DelayNs(ns uint32) {
	deadline := time.Now().Add(time.Duration(ns))
	for time.Now().Before(deadline) {
	}
}

// timedMutex adapts sync.Mutex to caps.Mutex's timeout contract via
// TryLock plus a short poll loop, since sync.Mutex has no native timeout.
type timedMutex struct{ mu sync.Mutex }

func (m *timedMutex) Take(timeoutMs uint32) error {
	deadline := time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
	for {
		if m.mu.TryLock() {
			return nil
		}
		if time.Now().After(deadline) {
			return &errcode.E{C: errcode.Busy, Op: "timedMutex.Take"}
		}
		time.Sleep(time.Millisecond)
	}
}

func (m *timedMutex) Give() error {
	m.mu.Unlock()
	return nil
}

// bumpBlock is one allocation out of bumpAllocator's backing arena.
type bumpBlock struct{ words []uint32 }

func (b *bumpBlock) Len() uint32           { return uint32(len(b.words)) }
func (b *bumpBlock) Word(i uint32) *uint32 { return &b.words[i] }

// bumpAllocator is a fixed-arena bump allocator: fine for a one-shot
// bring-up program that never frees individual tables mid-run.
type bumpAllocator struct {
	arena []uint32
	used  int
}

func newBumpAllocator(words int) *bumpAllocator {
	return &bumpAllocator{arena: make([]uint32, words)}
}

func (a *bumpAllocator) Alloc(sizeWords uint32) (caps.Block, error) {
	if a.used+int(sizeWords) > len(a.arena) {
		return nil, fmt.Errorf("bump allocator exhausted")
	}
	b := &bumpBlock{words: a.arena[a.used : a.used+int(sizeWords)]}
	a.used += int(sizeWords)
	return b, nil
}
func (a *bumpAllocator) Free(caps.Block) error { return nil }
func (a *bumpAllocator) FreeAll()              { a.used = 0 }

// ieeeCRC32 adapts hash/crc32's IEEE table to caps.CRC32. The SJA1105's
// own static-configuration CRC polynomial is not named anywhere in this
// module's reference corpus (see DESIGN.md); a production host must
// supply whatever engine actually matches the silicon's documented
// polynomial, this is an illustrative default only.
type ieeeCRC32 struct{ acc uint32 }

func (c *ieeeCRC32) Reset() { c.acc = 0 }
func (c *ieeeCRC32) Accumulate(buf []byte) uint32 {
	c.acc = crc32.Update(c.acc, crc32.IEEETable, buf)
	return c.acc
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: sja1105-demo <static-config-image-path>")
		os.Exit(2)
	}
	image, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, "read image:", err)
		os.Exit(1)
	}

	spiBus := mustOpenSPI()

	// CS/RST here are no-ops; a real board wires these closures to its own
	// machine.Pin.Set, same as mustOpenSPI below.
	cs := caps.Set{
		Clock:     wallClock{start: time.Now()},
		Mutex:     &timedMutex{},
		Allocator: newBumpAllocator(2048),
		CRC:       &ieeeCRC32{},
		SPI:       &hwcaps.SPI{Bus: spiBus},
		CS:        &hwcaps.GPIO{SetFunc: func(level bool) {}},
		RST:       &hwcaps.GPIO{SetFunc: func(level bool) {}},
	}

	cfg := sja1105.Config{
		Variant:           regmap.VariantT,
		HostPort:          4,
		MutexTimeoutMs:    200,
		MgmtTimeoutMs:     2000,
		PortsStartEnabled: true,
	}
	if err := cfg.PortConfigure(4, portdesc.InterfaceRGMII, portdesc.RolePHY, false, portdesc.Speed1G, portdesc.Voltage2V5); err != nil {
		fmt.Fprintln(os.Stderr, "configure host port:", err)
		os.Exit(1)
	}

	handle, err := sja1105.New(cfg, cs, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "new handle:", err)
		os.Exit(1)
	}

	if err := handle.Init(image); err != nil {
		fmt.Fprintln(os.Stderr, "init:", err)
		os.Exit(1)
	}
	fmt.Println("sja1105: static configuration uploaded, handle initialised")

	if err := handle.CheckPartID(); err != nil {
		fmt.Println("sja1105: part-id check failed:", err)
	}

	tempX10, err := handle.ReadTemperatureX10()
	if err != nil {
		fmt.Println("sja1105: temperature read failed:", err)
	} else {
		fmt.Printf("sja1105: die temperature %.1f C\n", float64(tempX10)/10)
	}
}

// mustOpenSPI returns the board's configured SPI bus. Left as a stub: the
// concrete bus type is board-specific (machine.SPI0 on TinyGo targets, a
// Linux spidev wrapper elsewhere) and is not named anywhere in this
// module's reference corpus.
func mustOpenSPI() drivers.SPI {
	panic("mustOpenSPI: wire the board's configured tinygo.org/x/drivers.SPI bus here")
}
