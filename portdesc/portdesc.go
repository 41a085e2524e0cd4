// Package portdesc describes the static, board-level properties of one
// SJA1105 port: its xMII interface kind, MAC/PHY role, electrical voltage,
// and dynamic-speed eligibility (spec.md §3 "Port descriptor").
package portdesc

import "github.com/jangala-dev/sja1105-go/errcode"

// Interface is the xMII flavor wired to a port.
type Interface uint8

const (
	InterfaceMII Interface = iota
	InterfaceRMII
	InterfaceRGMII
	InterfaceSGMII
)

// Role is which side of the MAC/PHY boundary the switch port plays.
type Role uint8

const (
	RoleMAC Role = iota
	RolePHY
)

// Speed is a port's link speed, or Dynamic if it is runtime-mutable.
type Speed uint8

const (
	SpeedDynamic Speed = iota
	Speed1G
	Speed100M
	Speed10M
)

// Voltage is a port's I/O rail.
type Voltage uint8

const (
	VoltageUnspecified Voltage = iota
	Voltage1V8
	Voltage2V5
	Voltage3V3
)

// Descriptor is one port's static configuration.
type Descriptor struct {
	Port            int
	Interface       Interface
	Role            Role
	Speed           Speed
	Voltage         Voltage
	OutputRMIIRefclk bool
	Configured      bool
}

// Validate enforces the invariants named in spec.md §3:
//   - RMII does not support 1G.
//   - 1V8 + RMII is rejected.
//   - MII does not support 1G.
//   - SGMII always implies MAC role on the switch side.
//
// Whether a dynamic-speed port may accept a speed change is checked by
// ReadyForSpeedMutation, not here.
func (d Descriptor) Validate() error {
	if d.Interface == InterfaceRMII && d.Speed == Speed1G {
		return &errcode.E{C: errcode.ParameterError, Op: "portdesc.Validate", Msg: "RMII does not support 1G"}
	}
	if d.Interface == InterfaceRMII && d.Voltage == Voltage1V8 {
		return &errcode.E{C: errcode.ParameterError, Op: "portdesc.Validate", Msg: "RMII does not support 1V8"}
	}
	if d.Interface == InterfaceMII && d.Speed == Speed1G {
		return &errcode.E{C: errcode.ParameterError, Op: "portdesc.Validate", Msg: "MII does not support 1G"}
	}
	if d.Interface == InterfaceSGMII && d.Role != RoleMAC {
		return &errcode.E{C: errcode.ParameterError, Op: "portdesc.Validate", Msg: "SGMII always implies MAC role"}
	}
	return nil
}

// ReadyForSpeedMutation reports whether a port is eligible to accept a
// runtime speed change: a dynamic-speed port qualifies once its voltage
// is set (the interface is not checked); a fixed-speed port always
// reports true.
func (d Descriptor) ReadyForSpeedMutation() bool {
	if d.Speed != SpeedDynamic {
		return true
	}
	return d.Voltage != VoltageUnspecified
}

// SupportsSpeed reports whether s is an electrically valid speed for this
// port's interface, independent of whether the port is currently dynamic.
func (d Descriptor) SupportsSpeed(s Speed) bool {
	switch d.Interface {
	case InterfaceRMII, InterfaceMII:
		return s != Speed1G
	case InterfaceSGMII:
		return false // not implemented, see spec.md Non-goals
	default:
		return true
	}
}
