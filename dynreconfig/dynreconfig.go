// Package dynreconfig implements the generic VALID/ERRORS handshake that
// every SJA1105 dynamic-reconfiguration register window shares (spec.md
// §4.4): poll until the window is idle, push the entry payload, trigger
// the operation, poll for completion, then check for a rejection.
package dynreconfig

import (
	"github.com/jangala-dev/sja1105-go/errcode"
	"github.com/jangala-dev/sja1105-go/regmap"
	"github.com/jangala-dev/sja1105-go/transport"
)

// defaultTimeoutMs bounds each VALID-bit poll; spec.md doesn't fix an
// exact figure for this handshake so the transport's own poll_flag
// budget (10 reads) is reused at a timeout generous enough for the SPI
// round-trips involved.
const defaultTimeoutMs = 100

// Window describes one dynamic-reconfiguration register window: its
// control-register address and the control-word bit position carrying
// the caller's selector (entry index, port id, or host command).
type Window struct {
	CtrlAddr     uint32
	DataAddr     uint32 // first data register; data words follow contiguously
	SelectorShift uint
	SelectorMask  uint32
}

// Write pushes data into the window addressed by selector and triggers a
// write (RDWRSET=1). Returns errcode.DynReconfig if the chip rejects the
// entry (ERRORS bit set on completion); the caller is responsible for any
// mirror rollback.
func Write(tr *transport.Transport, w Window, selector uint32, data []uint32) error {
	return do(tr, w, selector, data, true, nil)
}

// Read pulls the current entry at selector out of the window (RDWRSET=0)
// into out, which must be sized to the number of data words the window
// exposes.
func Read(tr *transport.Transport, w Window, selector uint32, out []uint32) error {
	return do(tr, w, selector, nil, false, out)
}

// HostCommand issues a handshake with an explicit host-command value in
// place of the ordinary write/read selector bit, as the L2-address-lookup
// window's INVALIDATE_ENTRY command does (spec.md §4.4).
func HostCommand(tr *transport.Transport, w Window, selector uint32, command uint32, data []uint32) error {
	return doCommand(tr, w, selector, command, data)
}

func do(tr *transport.Transport, w Window, selector uint32, data []uint32, write bool, out []uint32) error {
	if err := tr.PollFlag(w.CtrlAddr, regmap.DynValidMask, false, defaultTimeoutMs); err != nil {
		return err
	}

	if write {
		if err := tr.Write(w.DataAddr, data); err != nil {
			return err
		}
	}

	ctrl := uint32(regmap.DynValidMask)
	if write {
		ctrl |= regmap.DynRdWrSetMask
	}
	ctrl |= (selector << w.SelectorShift) & (w.SelectorMask << w.SelectorShift)
	if err := tr.Write(w.CtrlAddr, []uint32{ctrl}); err != nil {
		return err
	}

	if err := tr.PollFlag(w.CtrlAddr, regmap.DynValidMask, false, defaultTimeoutMs); err != nil {
		return err
	}

	final, err := tr.ReadOne(w.CtrlAddr)
	if err != nil {
		return err
	}
	if final&regmap.DynErrorsMask != 0 {
		return &errcode.E{C: errcode.DynReconfig, Op: "dynreconfig.do", Msg: "chip rejected dynamic-reconfiguration entry"}
	}

	if !write && out != nil {
		got, err := tr.Read(w.DataAddr, len(out))
		if err != nil {
			return err
		}
		copy(out, got)
	}
	return nil
}

func doCommand(tr *transport.Transport, w Window, selector, command uint32, data []uint32) error {
	if err := tr.PollFlag(w.CtrlAddr, regmap.DynValidMask, false, defaultTimeoutMs); err != nil {
		return err
	}
	if len(data) > 0 {
		if err := tr.Write(w.DataAddr, data); err != nil {
			return err
		}
	}
	ctrl := uint32(regmap.DynValidMask) | (command<<regmap.DynL2HostCmdShift)&regmap.DynL2HostCmdMask
	ctrl |= (selector << w.SelectorShift) & (w.SelectorMask << w.SelectorShift)
	if err := tr.Write(w.CtrlAddr, []uint32{ctrl}); err != nil {
		return err
	}
	if err := tr.PollFlag(w.CtrlAddr, regmap.DynValidMask, false, defaultTimeoutMs); err != nil {
		return err
	}
	final, err := tr.ReadOne(w.CtrlAddr)
	if err != nil {
		return err
	}
	if final&regmap.DynErrorsMask != 0 {
		return &errcode.E{C: errcode.DynReconfig, Op: "dynreconfig.doCommand", Msg: "chip rejected host command"}
	}
	return nil
}

// MACConfigWindow is the dynamic-reconfiguration window for
// mac_configuration port entries.
func MACConfigWindow() Window {
	return Window{
		CtrlAddr:      regmap.DynMACConfCtrl,
		DataAddr:      regmap.DynMACConfData0,
		SelectorShift: regmap.DynMACConfPortIDShift,
		SelectorMask:  regmap.DynMACConfPortIDMask >> regmap.DynMACConfPortIDShift,
	}
}

// L2LookupWindow is the dynamic-reconfiguration window shared by
// l2_address_lookup edits and the management-route protocol.
func L2LookupWindow() Window {
	return Window{
		CtrlAddr:      regmap.DynL2LookupCtrl,
		DataAddr:      regmap.DynL2LookupData0,
		SelectorShift: regmap.DynL2LookupIndexShift,
		SelectorMask:  regmap.DynL2LookupIndexMask >> regmap.DynL2LookupIndexShift,
	}
}

// InvalidateL2Range iterates the l2_address_lookup dynamic-reconfiguration
// window across [first,last), issuing an INVALIDATE_ENTRY host command
// for each index (spec.md §4.4 "L2-address-lookup invalidate range").
func InvalidateL2Range(tr *transport.Transport, first, last int) error {
	w := L2LookupWindow()
	for i := first; i < last; i++ {
		if err := HostCommand(tr, w, uint32(i), regmap.DynL2HostCmdInvalidateEntry, nil); err != nil {
			return err
		}
	}
	return nil
}
