package portctrl

import (
	"github.com/jangala-dev/sja1105-go/dynreconfig"
	"github.com/jangala-dev/sja1105-go/errcode"
	"github.com/jangala-dev/sja1105-go/portdesc"
	"github.com/jangala-dev/sja1105-go/tables"
	"github.com/jangala-dev/sja1105-go/tablestore"
	"github.com/jangala-dev/sja1105-go/transport"
)

// pushMACPort streams port's 7-word entry into the MAC-configuration
// dynamic-reconfiguration window.
func pushMACPort(tr *transport.Transport, t *tablestore.Table, port int) error {
	entry := tables.WritePortEntry(t, port)
	return dynreconfig.Write(tr, dynreconfig.MACConfigWindow(), uint32(port), entry[:])
}

// SetSpeed edits the mirrored speed for port, pushes it through dynamic
// reconfiguration and reprograms the port's CGU clock sources. On any
// failure after the mirror edit, the previous speed is written back
// through the same path — an explicit one-shot revert, not a recursive
// retry (spec.md §9's redesign note).
func SetSpeed(tr *transport.Transport, macTable, acuTable, cguTable *tablestore.Table, desc portdesc.Descriptor, ports [5]portdesc.Descriptor, hasPort4, skewClocks bool, newSpeed portdesc.Speed) error {
	if !desc.ReadyForSpeedMutation() {
		return &errcode.E{C: errcode.ParameterError, Op: "portctrl.SetSpeed", Msg: "port not fully described for dynamic speed mutation"}
	}
	if !desc.SupportsSpeed(newSpeed) {
		return &errcode.E{C: errcode.ParameterError, Op: "portctrl.SetSpeed", Msg: "speed not supported by port interface"}
	}

	prevSpeed := tables.GetSpeed(macTable, desc.Port)
	tables.SetSpeed(macTable, desc.Port, macSpeedOf(newSpeed))

	if err := pushMACPort(tr, macTable, desc.Port); err != nil {
		// Nothing reached the chip yet, so undoing the mirror is enough;
		// the caller's error is the real cause (spec.md's "revert
		// completeness" property: a clean revert propagates the
		// original cause, not errcode.Revert).
		tables.SetSpeed(macTable, desc.Port, prevSpeed)
		return err
	}

	newDesc := desc
	newDesc.Speed = newSpeed
	portsWithNew := ports
	portsWithNew[desc.Port] = newDesc

	revert := func(cause error) error {
		tables.SetSpeed(macTable, desc.Port, prevSpeed)
		if pushErr := pushMACPort(tr, macTable, desc.Port); pushErr != nil {
			return &errcode.E{C: errcode.Revert, Op: "portctrl.SetSpeed", Msg: "speed change failed and revert also failed", Err: pushErr}
		}
		if word, ok := BuildACUWord(desc.Interface, desc.Voltage, true); ok {
			acuTable.SetWord(uint32(desc.Port), word)
			if pushErr := PushACUToSilicon(tr, acuTable, desc.Port); pushErr != nil {
				return &errcode.E{C: errcode.Revert, Op: "portctrl.SetSpeed", Msg: "speed change failed and revert also failed", Err: pushErr}
			}
		}
		prevDesc := desc
		switch prevSpeed {
		case tables.MACSpeed1G:
			prevDesc.Speed = portdesc.Speed1G
		case tables.MACSpeed100M:
			prevDesc.Speed = portdesc.Speed100M
		case tables.MACSpeed10M:
			prevDesc.Speed = portdesc.Speed10M
		}
		ProgramPort(cguTable, prevDesc, skewClocks)
		if pushErr := PushToSilicon(tr, cguTable, ports, hasPort4); pushErr != nil {
			return &errcode.E{C: errcode.Revert, Op: "portctrl.SetSpeed", Msg: "speed change failed and revert also failed", Err: pushErr}
		}
		// Revert itself succeeded: propagate cause, not errcode.Revert
		// (spec.md's scenario: SPI failure on the CGU write reverts the
		// mirror and returns Spi, not Revert).
		return cause
	}

	if word, ok := BuildACUWord(newDesc.Interface, newDesc.Voltage, true); ok {
		acuTable.SetWord(uint32(desc.Port), word)
		if err := PushACUToSilicon(tr, acuTable, desc.Port); err != nil {
			return revert(err)
		}
	}

	ProgramPort(cguTable, newDesc, skewClocks)
	if err := PushToSilicon(tr, cguTable, portsWithNew, hasPort4); err != nil {
		return revert(err)
	}
	return nil
}

func macSpeedOf(s portdesc.Speed) tables.MACSpeed {
	switch s {
	case portdesc.Speed1G:
		return tables.MACSpeed1G
	case portdesc.Speed100M:
		return tables.MACSpeed100M
	case portdesc.Speed10M:
		return tables.MACSpeed10M
	default:
		return tables.MACSpeedDynamic
	}
}

// SetForwarding edits the mirrored ingress/egress-enable bits for port
// and pushes the change through dynamic reconfiguration, reverting on
// rejection.
func SetForwarding(tr *transport.Transport, macTable *tablestore.Table, port int, enabled bool) error {
	prevIn, prevOut := tables.GetIngress(macTable, port), tables.GetEgress(macTable, port)
	tables.SetIngress(macTable, port, enabled)
	tables.SetEgress(macTable, port, enabled)

	if err := pushMACPort(tr, macTable, port); err != nil {
		tables.SetIngress(macTable, port, prevIn)
		tables.SetEgress(macTable, port, prevOut)
		return err
	}
	return nil
}

// SetLearning edits the mirrored dynamic-learning-enable bit for port and
// pushes the change through dynamic reconfiguration, reverting on
// rejection.
func SetLearning(tr *transport.Transport, macTable *tablestore.Table, port int, enabled bool) error {
	prev := tables.GetDynLearn(macTable, port)
	tables.SetDynLearn(macTable, port, enabled)

	if err := pushMACPort(tr, macTable, port); err != nil {
		tables.SetDynLearn(macTable, port, prev)
		return err
	}
	return nil
}
