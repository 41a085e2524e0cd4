package sja1105

import (
	"github.com/jangala-dev/sja1105-go/dynreconfig"
	"github.com/jangala-dev/sja1105-go/errcode"
	"github.com/jangala-dev/sja1105-go/eventbus"
	"github.com/jangala-dev/sja1105-go/mgmtroute"
	"github.com/jangala-dev/sja1105-go/staticconf"
)

const maxPortBitmap = 1 << 5

// ManagementRouteCreate allocates a management-route slot and steers one
// outbound frame to portBitmap (spec.md §4.6 "create"). Rejects a
// port_bitmap ≥ 2^5.
func (h *Handle) ManagementRouteCreate(dstMAC uint64, portBitmap uint8, takeTS bool, tsReg uint8, ctx interface{}) (int, error) {
	if err := h.requireInitialised("sja1105.ManagementRouteCreate"); err != nil {
		return -1, err
	}
	if portBitmap >= maxPortBitmap {
		return -1, &errcode.E{C: errcode.ParameterError, Op: "sja1105.ManagementRouteCreate", Msg: "port_bitmap out of range"}
	}
	var slot int
	err := h.withMutex(func() error {
		var e error
		slot, e = h.mgmt.Create(h.tr, mgmtroute.Entry{
			DstMAC:     dstMAC,
			PortBitmap: portBitmap,
			TakeTS:     takeTS,
			TSReg:      tsReg,
		}, ctx)
		if e != nil && errcode.Of(e) == errcode.NoFreeMgmtRoutes {
			h.publish(eventbus.Event{Kind: eventbus.KindMgmtRouteEvicted, Port: -1, Slot: -1, Message: e.Error()})
		}
		return e
	})
	if err != nil {
		return -1, err
	}
	return slot, nil
}

// ManagementRouteFree frees every management-route slot the chip has
// already consumed, or (force) every slot regardless of consumption state
// (spec.md §4.6 "free(force)").
func (h *Handle) ManagementRouteFree(force bool) error {
	if err := h.requireInitialised("sja1105.ManagementRouteFree"); err != nil {
		return err
	}
	return h.withMutex(func() error {
		return h.mgmt.Free(h.tr, force)
	})
}

// FlushTCAM resets and re-uploads the table store to the chip, rebuilding
// the L2 address-lookup TCAM from the in-driver mirror (spec.md §6
// "flush_tcam() — any of sync's").
func (h *Handle) FlushTCAM() error {
	if err := h.requireInitialised("sja1105.FlushTCAM"); err != nil {
		return err
	}
	return h.withMutex(func() error {
		h.initialised.Store(false)
		if err := staticconf.Sync(h.tr, h.store, h.stats); err != nil {
			return err
		}
		h.initialised.Store(true)
		return nil
	})
}

// L2EntryReadByIndex reads the 5-word payload stored at index in the
// shared l2_address_lookup / management-route dynamic-reconfiguration
// window. mgmt selects whether index is interpreted within the
// management-route range (spec.md §6
// "l2_entry_read_by_index(index, mgmt, &entry[5])"); both ranges share
// one register window, so the read path itself does not differ.
func (h *Handle) L2EntryReadByIndex(index int, mgmt bool) ([5]uint32, error) {
	var out [5]uint32
	if err := h.requireInitialised("sja1105.L2EntryReadByIndex"); err != nil {
		return out, err
	}
	if index < 0 {
		return out, &errcode.E{C: errcode.ParameterError, Op: "sja1105.L2EntryReadByIndex", Msg: "negative index"}
	}
	err := h.withMutex(func() error {
		buf := make([]uint32, 5)
		if err := dynreconfig.Read(h.tr, dynreconfig.L2LookupWindow(), uint32(index), buf); err != nil {
			return err
		}
		copy(out[:], buf)
		return nil
	})
	return out, err
}
