package sja1105

import (
	"github.com/jangala-dev/sja1105-go/errcode"
	"github.com/jangala-dev/sja1105-go/eventbus"
	"github.com/jangala-dev/sja1105-go/portctrl"
	"github.com/jangala-dev/sja1105-go/portdesc"
	"github.com/jangala-dev/sja1105-go/tables"
	"github.com/jangala-dev/sja1105-go/tablestore"
)

func (h *Handle) macTable() (*tablestore.Table, error) {
	t, ok := h.store.Table(tablestore.BlockMACConfiguration)
	if !ok || !t.InUse {
		return nil, &errcode.E{C: errcode.NotConfigured, Op: "sja1105", Msg: "mac_configuration table not loaded"}
	}
	return t, nil
}

// PortGetSpeed reports port's currently mirrored speed.
func (h *Handle) PortGetSpeed(port int) (portdesc.Speed, error) {
	if err := h.requireInitialised("sja1105.PortGetSpeed"); err != nil {
		return portdesc.SpeedDynamic, err
	}
	var speed portdesc.Speed
	err := h.withMutex(func() error {
		t, err := h.macTable()
		if err != nil {
			return err
		}
		speed = macSpeedToPortdesc(tables.GetSpeed(t, port))
		return nil
	})
	return speed, err
}

func macSpeedToPortdesc(s tables.MACSpeed) portdesc.Speed {
	switch s {
	case tables.MACSpeed1G:
		return portdesc.Speed1G
	case tables.MACSpeed100M:
		return portdesc.Speed100M
	case tables.MACSpeed10M:
		return portdesc.Speed10M
	default:
		return portdesc.SpeedDynamic
	}
}

// PortSetSpeed mutates port's link speed through the mirror, dynamic
// reconfiguration, ACU and CGU, reverting the whole sequence on any
// downstream failure (spec.md §4.5 "PortSetSpeed"). Rejects a port that
// is not configured, not declared dynamic, already at newSpeed, a
// request for dynamic itself, or SGMII (not implemented).
func (h *Handle) PortSetSpeed(port int, newSpeed portdesc.Speed) error {
	if err := h.requireInitialised("sja1105.PortSetSpeed"); err != nil {
		return err
	}
	if port < 0 || port > 4 {
		return &errcode.E{C: errcode.ParameterError, Op: "sja1105.PortSetSpeed", Msg: "port out of range"}
	}
	desc := h.cfg.Ports[port]
	if !desc.Configured {
		return &errcode.E{C: errcode.NotConfigured, Op: "sja1105.PortSetSpeed", Msg: "port not configured"}
	}
	if desc.Speed != portdesc.SpeedDynamic {
		return &errcode.E{C: errcode.ParameterError, Op: "sja1105.PortSetSpeed", Msg: "port speed is not dynamic"}
	}
	if newSpeed == portdesc.SpeedDynamic {
		return &errcode.E{C: errcode.ParameterError, Op: "sja1105.PortSetSpeed", Msg: "cannot set speed to dynamic"}
	}
	if desc.Interface == portdesc.InterfaceSGMII {
		return &errcode.E{C: errcode.NotImplemented, Op: "sja1105.PortSetSpeed", Msg: "SGMII speed control not implemented"}
	}

	return h.withMutex(func() error {
		macTable, err := h.macTable()
		if err != nil {
			return err
		}
		if macSpeedToPortdesc(tables.GetSpeed(macTable, port)) == newSpeed {
			return nil
		}
		acuTable, ok := h.store.Table(tablestore.BlockACU)
		if !ok || !acuTable.InUse {
			return &errcode.E{C: errcode.NotConfigured, Op: "sja1105.PortSetSpeed", Msg: "acu table not loaded"}
		}
		cguTable, ok := h.store.Table(tablestore.BlockCGU)
		if !ok || !cguTable.InUse {
			return &errcode.E{C: errcode.NotConfigured, Op: "sja1105.PortSetSpeed", Msg: "cgu table not loaded"}
		}

		err = portctrl.SetSpeed(h.tr, macTable, acuTable, cguTable, desc, h.cfg.Ports,
			h.cfg.Variant.HasPort4(), h.cfg.SkewClocks, newSpeed)
		// portctrl's mutators edit table data through the typed
		// tables.Set*/SetWord helpers directly, bypassing
		// Store.SetWord's global-CRC invalidation side effect; the
		// caller that orchestrates them is responsible for it.
		h.store.InvalidateGlobalCRC()
		if err != nil {
			if errcode.Of(err) == errcode.Crc {
				h.stats.IncCRCErrors()
				h.publish(eventbus.Event{Kind: eventbus.KindCRCError, Port: port, Slot: -1, Message: err.Error()})
			}
			return err
		}
		h.publish(eventbus.Event{Kind: eventbus.KindSpeedChanged, Port: port, Slot: -1})
		return nil
	})
}

// PortGetForwarding reports whether port currently forwards (ingress AND
// egress both enabled in the mirror, spec.md §4.5).
func (h *Handle) PortGetForwarding(port int) (bool, error) {
	if err := h.requireInitialised("sja1105.PortGetForwarding"); err != nil {
		return false, err
	}
	var enabled bool
	err := h.withMutex(func() error {
		t, err := h.macTable()
		if err != nil {
			return err
		}
		enabled = tables.GetIngress(t, port) && tables.GetEgress(t, port)
		return nil
	})
	return enabled, err
}

// PortSetForwarding enables or disables both ingress and egress for port,
// a no-op if the mirror already matches (spec.md §4.5
// "PortSetForwarding").
func (h *Handle) PortSetForwarding(port int, enabled bool) error {
	if err := h.requireInitialised("sja1105.PortSetForwarding"); err != nil {
		return err
	}
	return h.withMutex(func() error {
		t, err := h.macTable()
		if err != nil {
			return err
		}
		if tables.GetIngress(t, port) == enabled && tables.GetEgress(t, port) == enabled {
			return nil
		}
		err = portctrl.SetForwarding(h.tr, t, port, enabled)
		h.store.InvalidateGlobalCRC()
		return err
	})
}

// PortSetLearning enables or disables dynamic MAC learning for port
// (spec.md §4.5 "PortSetLearning").
func (h *Handle) PortSetLearning(port int, enabled bool) error {
	if err := h.requireInitialised("sja1105.PortSetLearning"); err != nil {
		return err
	}
	return h.withMutex(func() error {
		t, err := h.macTable()
		if err != nil {
			return err
		}
		err = portctrl.SetLearning(h.tr, t, port, enabled)
		h.store.InvalidateGlobalCRC()
		return err
	})
}

// PortGetState reports port's current forwarding state, speed and
// learning-enable bit in one read (spec.md §6 "port_get_state(port,
// &state)").
type PortState struct {
	Forwarding bool
	Speed      portdesc.Speed
	Learning   bool
}

// PortGetState reads port's forwarding, speed and learning mirror fields.
func (h *Handle) PortGetState(port int) (PortState, error) {
	if err := h.requireInitialised("sja1105.PortGetState"); err != nil {
		return PortState{}, err
	}
	var st PortState
	err := h.withMutex(func() error {
		t, err := h.macTable()
		if err != nil {
			return err
		}
		st = PortState{
			Forwarding: tables.GetIngress(t, port) && tables.GetEgress(t, port),
			Speed:      macSpeedToPortdesc(tables.GetSpeed(t, port)),
			Learning:   tables.GetDynLearn(t, port),
		}
		return nil
	})
	return st, err
}
