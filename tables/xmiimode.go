package tables

import (
	"github.com/jangala-dev/sja1105-go/errcode"
	"github.com/jangala-dev/sja1105-go/portdesc"
	"github.com/jangala-dev/sja1105-go/tablestore"
)

// xmiiBaseBit / xmiiStride place each port's 3-bit field (2-bit interface,
// 1-bit role) within xmii_mode_parameters' single word (spec.md §4.3:
// "packed at bit 17+3·port and 19+3·port").
const (
	xmiiBaseBit = 17
	xmiiStride  = 3
	xmiiIfMask  = 0x3
)

// xmiiIfaceCode is the silicon's 2-bit xMII interface encoding.
type xmiiIfaceCode uint32

const (
	xmiiMII   xmiiIfaceCode = 0
	xmiiRMII  xmiiIfaceCode = 1
	xmiiRGMII xmiiIfaceCode = 2
	xmiiSGMII xmiiIfaceCode = 3
)

func ifaceToCode(i portdesc.Interface) xmiiIfaceCode {
	switch i {
	case portdesc.InterfaceMII:
		return xmiiMII
	case portdesc.InterfaceRMII:
		return xmiiRMII
	case portdesc.InterfaceRGMII:
		return xmiiRGMII
	default:
		return xmiiSGMII
	}
}

func codeToIface(c xmiiIfaceCode) portdesc.Interface {
	switch c {
	case xmiiMII:
		return portdesc.InterfaceMII
	case xmiiRMII:
		return portdesc.InterfaceRMII
	case xmiiRGMII:
		return portdesc.InterfaceRGMII
	default:
		return portdesc.InterfaceSGMII
	}
}

// GetXMIIInterface reads port's 2-bit interface code.
func GetXMIIInterface(t *tablestore.Table, port int) portdesc.Interface {
	shift := xmiiBaseBit + xmiiStride*port
	return codeToIface(xmiiIfaceCode((t.Word(0) >> shift) & xmiiIfMask))
}

// GetXMIIRole reads port's 1-bit role flag: set means PHY.
func GetXMIIRole(t *tablestore.Table, port int) portdesc.Role {
	shift := xmiiBaseBit + 2 + xmiiStride*port
	if (t.Word(0)>>shift)&0x1 != 0 {
		return portdesc.RolePHY
	}
	return portdesc.RoleMAC
}

// SetXMIIPort writes both the interface and role fields for port.
func SetXMIIPort(t *tablestore.Table, port int, iface portdesc.Interface, role portdesc.Role) {
	w := t.Word(0)
	ifShift := uint(xmiiBaseBit + xmiiStride*port)
	roleShift := ifShift + 2
	w &^= uint32(xmiiIfMask) << ifShift
	w |= uint32(ifaceToCode(iface)) << ifShift
	w &^= 1 << roleShift
	if role == portdesc.RolePHY {
		w |= 1 << roleShift
	}
	t.SetWord(0, w)
}

// ValidateXMIIModeParameters enforces spec.md §4.3's role/interface
// cross-check: role matches the port descriptor, except the RMII
// PHY-that-outputs-refclk special case (silicon says MAC while the port
// descriptor says PHY), and SGMII always carries role=MAC in silicon.
func ValidateXMIIModeParameters(t *tablestore.Table, desc portdesc.Descriptor) error {
	if !desc.Configured {
		return nil
	}
	gotIface := GetXMIIInterface(t, desc.Port)
	if gotIface != desc.Interface {
		return &errcode.E{C: errcode.StaticConf, Op: "tables.ValidateXMIIModeParameters",
			Msg: "xmii interface mismatch against port descriptor"}
	}
	gotRole := GetXMIIRole(t, desc.Port)
	if desc.Interface == portdesc.InterfaceSGMII {
		if gotRole != portdesc.RoleMAC {
			return &errcode.E{C: errcode.StaticConf, Op: "tables.ValidateXMIIModeParameters",
				Msg: "SGMII must carry role=MAC in silicon"}
		}
		return nil
	}
	if desc.Interface == portdesc.InterfaceRMII && desc.Role == portdesc.RolePHY && desc.OutputRMIIRefclk {
		// RMII PHY that outputs the reference clock: silicon role reads
		// MAC even though the board-level role is PHY.
		if gotRole != portdesc.RoleMAC {
			return &errcode.E{C: errcode.StaticConf, Op: "tables.ValidateXMIIModeParameters",
				Msg: "RMII refclk-output PHY must carry silicon role=MAC"}
		}
		return nil
	}
	if gotRole != desc.Role {
		return &errcode.E{C: errcode.StaticConf, Op: "tables.ValidateXMIIModeParameters",
			Msg: "xmii role mismatch against port descriptor"}
	}
	return nil
}
