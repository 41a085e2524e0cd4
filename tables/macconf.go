// Package tables provides typed, bit-packed accessors over the three
// static-configuration tables the static-config engine and port-control
// layer touch directly: mac_configuration, general_parameters and
// xmii_mode_parameters. Callers never see raw word arrays (spec.md §9,
// "Bitfield layouts" — always typed accessors keyed by port/index, never
// raw arrays).
package tables

import (
	"github.com/jangala-dev/sja1105-go/errcode"
	"github.com/jangala-dev/sja1105-go/portdesc"
	"github.com/jangala-dev/sja1105-go/tablestore"
)

// macEntryWords is the per-port word count within mac_configuration; the
// table holds 5 such entries (spec.md §4.3).
const macEntryWords = 8

// Bit positions within word 3 of a MAC-configuration port entry.
const (
	macIngressShift  = 3
	macEgressShift   = 4
	macDynLearnShift = 5
	macSpeedShift    = 1
	macSpeedMask     = 0x3
)

func macWord(t *tablestore.Table, port int, wordIdx int) uint32 {
	return t.Word(uint32(port*macEntryWords + wordIdx))
}

func macSetWord(t *tablestore.Table, port int, wordIdx int, v uint32) {
	t.SetWord(uint32(port*macEntryWords+wordIdx), v)
}

// MACSpeed is the 2-bit speed field packed into a MAC-configuration entry.
type MACSpeed uint32

const (
	MACSpeedDynamic MACSpeed = 0
	MACSpeed1G      MACSpeed = 1
	MACSpeed100M    MACSpeed = 2
	MACSpeed10M     MACSpeed = 3
)

// GetIngress reports the ingress-enable bit for port.
func GetIngress(t *tablestore.Table, port int) bool {
	return macWord(t, port, 3)&(1<<macIngressShift) != 0
}

// SetIngress edits the mirror's ingress-enable bit for port.
func SetIngress(t *tablestore.Table, port int, v bool) {
	setBit(t, port, macIngressShift, v)
}

// GetEgress reports the egress-enable bit for port.
func GetEgress(t *tablestore.Table, port int) bool {
	return macWord(t, port, 3)&(1<<macEgressShift) != 0
}

// SetEgress edits the mirror's egress-enable bit for port.
func SetEgress(t *tablestore.Table, port int, v bool) {
	setBit(t, port, macEgressShift, v)
}

// GetDynLearn reports the dynamic-learning-enable bit for port.
func GetDynLearn(t *tablestore.Table, port int) bool {
	return macWord(t, port, 3)&(1<<macDynLearnShift) != 0
}

// SetDynLearn edits the mirror's dynamic-learning-enable bit for port.
func SetDynLearn(t *tablestore.Table, port int, v bool) {
	setBit(t, port, macDynLearnShift, v)
}

func setBit(t *tablestore.Table, port int, shift uint, v bool) {
	w := macWord(t, port, 3)
	if v {
		w |= 1 << shift
	} else {
		w &^= 1 << shift
	}
	macSetWord(t, port, 3, w)
}

// GetSpeed reads the 2-bit speed field (word 3, bits 2:1).
func GetSpeed(t *tablestore.Table, port int) MACSpeed {
	return MACSpeed((macWord(t, port, 3) >> macSpeedShift) & macSpeedMask)
}

// SetSpeed writes the 2-bit speed field, preserving every other bit of
// word 3.
func SetSpeed(t *tablestore.Table, port int, s MACSpeed) {
	w := macWord(t, port, 3)
	w &^= macSpeedMask << macSpeedShift
	w |= (uint32(s) & macSpeedMask) << macSpeedShift
	macSetWord(t, port, 3, w)
}

// ResetPort sets ingress/egress/dyn-learn to a uniform on/off state, the
// "safe default" or "ports_start_enabled" reset spec.md §4.3 describes.
func ResetPort(t *tablestore.Table, port int, enabled bool) {
	SetIngress(t, port, enabled)
	SetEgress(t, port, enabled)
	SetDynLearn(t, port, enabled)
}

// ValidateMACConfiguration cross-checks every port's mirrored speed word
// against the configured port descriptor's speed, when that descriptor
// names a fixed (non-dynamic) speed.
func ValidateMACConfiguration(t *tablestore.Table, ports [5]portdesc.Descriptor) error {
	for port := 0; port < 5; port++ {
		if ports[port].Speed == portdesc.SpeedDynamic {
			continue
		}
		want := speedToMAC(ports[port].Speed)
		if got := GetSpeed(t, port); got != want {
			return &errcode.E{C: errcode.StaticConf, Op: "tables.ValidateMACConfiguration",
				Msg: "port speed mismatch against mac_configuration mirror"}
		}
	}
	return nil
}

func speedToMAC(s portdesc.Speed) MACSpeed {
	switch s {
	case portdesc.Speed1G:
		return MACSpeed1G
	case portdesc.Speed100M:
		return MACSpeed100M
	case portdesc.Speed10M:
		return MACSpeed10M
	default:
		return MACSpeedDynamic
	}
}

// WritePortEntry returns the 7 data words (word 0 excluded: word 0 is the
// VLANPMAP / unused-in-this-spec leading word, the dynamic-reconfiguration
// window always takes the trailing 7 words per spec.md §4.3's
// "write_port pushes the 7-word entry") of port's mirrored entry, for
// package dynreconfig to stream into the MAC-configuration
// dynamic-reconfiguration window.
func WritePortEntry(t *tablestore.Table, port int) [7]uint32 {
	var out [7]uint32
	for i := 0; i < 7; i++ {
		out[i] = macWord(t, port, i+1)
	}
	return out
}
