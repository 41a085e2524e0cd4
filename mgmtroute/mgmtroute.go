// Package mgmtroute implements the 4-slot management-route cache: a
// one-shot TCAM entry that steers a single outbound management frame to a
// chosen port bitmap (spec.md §4.6), sharing the l2_address_lookup
// dynamic-reconfiguration window. Grounded on bus/bus.go's
// bounded-queue-with-eviction shape, adapted from a channel buffer that
// overwrites its oldest entry to a timestamped-slot cache that forces a
// free on its oldest entry.
package mgmtroute

import (
	"github.com/jangala-dev/sja1105-go/caps"
	"github.com/jangala-dev/sja1105-go/dynreconfig"
	"github.com/jangala-dev/sja1105-go/errcode"
	"github.com/jangala-dev/sja1105-go/regmap"
	"github.com/jangala-dev/sja1105-go/stats"
	"github.com/jangala-dev/sja1105-go/transport"
)

const numSlots = 4

// slot is one driver-side record of an in-silicon management-route entry.
type slot struct {
	taken     bool
	timestamp uint32
	ctx       interface{}
}

// Cache is the 4-slot management-route cache described in spec.md §3
// "Management-route slot". The zero value is not ready to use; call New.
type Cache struct {
	slots       [numSlots]slot
	clock       caps.Clock
	timeoutMs   uint32
	counters    *stats.Counters
}

// New returns an empty cache. timeoutMs is config.mgmt_timeout, the age
// past which an unconsumed slot becomes force-evictable.
func New(clock caps.Clock, timeoutMs uint32, counters *stats.Counters) *Cache {
	return &Cache{clock: clock, timeoutMs: timeoutMs, counters: counters}
}

// Entry is a fully-formed 5-word L2-lookup management-route payload.
type Entry struct {
	DstMAC     uint64 // 48-bit, upper 16 bits ignored
	PortBitmap uint8  // 5-bit
	TakeTS     bool
	TSReg      uint8 // 2-bit
}

// words builds the 5-word dynamic-reconfiguration payload for slot index
// with the MGMTROUTE bit set (spec.md §4.6 step 4: MGMTVALID=1, INDEX
// implicit in the selector, DESTPORTS=bitmap, optional TAKETS/TSREG, and
// the 48-bit MAC packed LSB-aligned starting at bit 22, straddling all
// three of words 0-2).
func (e Entry) words() [5]uint32 {
	var w [5]uint32
	w[0] = regmap.MgmtRouteBitMask | regmap.MgmtValidMask
	w[0] |= (uint32(e.PortBitmap) << regmap.MgmtDestPortsShift) & regmap.MgmtDestPortsMask
	if e.TakeTS {
		w[0] |= regmap.MgmtTakeTSMask
	}
	w[0] |= (uint32(e.TSReg) << regmap.MgmtTSRegShift) & regmap.MgmtTSRegMask

	// mac bits [0:9] land in word 0's bits [22:31]; mac bits [10:41] fill
	// word 1 exactly; mac bits [42:47] land in word 2's bits [0:5].
	mac := e.DstMAC & 0xffffffffffff
	w[0] |= uint32((mac & 0x3ff) << regmap.MgmtMACBitOffset)
	w[1] = uint32((mac >> 10) & 0xffffffff)
	w[2] = uint32((mac >> 42) & 0x3f)
	return w
}

// scan marks driver slots free whose in-silicon MGMTVALID bit has
// cleared, meaning the chip already consumed the one-shot frame
// (spec.md §4.6 step 1). Each newly-freed slot increments
// mgmt_frames_sent.
func (c *Cache) scan(tr *transport.Transport) error {
	w := dynreconfig.L2LookupWindow()
	for i := range c.slots {
		if !c.slots[i].taken {
			continue
		}
		out := make([]uint32, 3)
		if err := dynreconfig.Read(tr, w, uint32(i), out); err != nil {
			return err
		}
		if out[0]&regmap.MgmtValidMask == 0 {
			c.slots[i] = slot{}
			c.counters.IncMgmtFramesSent()
		}
	}
	return nil
}

// findFree returns the index of a free slot after scanning consumed
// entries, or -1 if none. force controls whether an aged-out slot (older
// than timeoutMs and not yet consumed) may be evicted to make room
// (spec.md §4.6 step 2).
func (c *Cache) findFree(tr *transport.Transport, force bool) (int, error) {
	if err := c.scan(tr); err != nil {
		return -1, err
	}
	for i := range c.slots {
		if !c.slots[i].taken {
			return i, nil
		}
	}
	if !force {
		return -1, nil
	}

	oldest := -1
	var oldestAge uint32
	now := c.clock.NowMs()
	for i := range c.slots {
		age := now - c.slots[i].timestamp
		if oldest == -1 || age > oldestAge {
			oldest, oldestAge = i, age
		}
	}
	if oldest == -1 || oldestAge <= c.timeoutMs {
		return -1, nil
	}
	c.slots[oldest] = slot{}
	c.counters.IncMgmtEntriesDropped()
	return oldest, nil
}

// Create allocates a free slot, or evicts the oldest timed-out slot, and
// writes the route into the chip. ctx is an opaque caller token returned
// later on eviction detection. Returns NoFreeMgmtRoutes if no slot can be
// freed (spec.md §4.6 steps 1-3).
func (c *Cache) Create(tr *transport.Transport, e Entry, ctx interface{}) (int, error) {
	idx, err := c.findFree(tr, false)
	if err != nil {
		return -1, err
	}
	if idx == -1 {
		idx, err = c.findFree(tr, true)
		if err != nil {
			return -1, err
		}
	}
	if idx == -1 {
		return -1, &errcode.E{C: errcode.NoFreeMgmtRoutes, Op: "mgmtroute.Create", Msg: "no management-route slot available"}
	}

	w := dynreconfig.L2LookupWindow()
	payload := e.words()
	if err := dynreconfig.HostCommand(tr, w, uint32(idx), regmap.DynL2HostCmdWrite, payload[:]); err != nil {
		return -1, err
	}

	c.slots[idx] = slot{taken: true, timestamp: c.clock.NowMs(), ctx: ctx}
	return idx, nil
}

// Free releases every slot whose entry the chip has consumed, or (if
// force is true) every taken slot regardless of consumption state
// (spec.md §4.6 "free(force)").
func (c *Cache) Free(tr *transport.Transport, force bool) error {
	if !force {
		return c.scan(tr)
	}
	if err := c.scan(tr); err != nil {
		return err
	}
	w := dynreconfig.L2LookupWindow()
	for i := range c.slots {
		if !c.slots[i].taken {
			continue
		}
		if err := dynreconfig.HostCommand(tr, w, uint32(i), regmap.DynL2HostCmdInvalidateEntry, nil); err != nil {
			return err
		}
		c.slots[i] = slot{}
	}
	return nil
}

// TakenCount reports how many slots currently hold a live entry.
func (c *Cache) TakenCount() int {
	n := 0
	for _, s := range c.slots {
		if s.taken {
			n++
		}
	}
	return n
}
