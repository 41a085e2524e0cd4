// Package portctrl builds the ACU (I/O pad electrical properties) and CGU
// (clock generation) port programming spec.md §4.5 describes, and
// implements the revertible speed/forwarding/learning mutators spec.md
// §4.6 builds on top of them. Grounded on
// drivers/ltc4015/device.go's modifyBitmaskRegister + configure/revert
// shape, adapted to an explicit one-shot revert (spec.md §9: "no visible
// recursion").
package portctrl

import (
	"github.com/jangala-dev/sja1105-go/portdesc"
	"github.com/jangala-dev/sja1105-go/regmap"
	"github.com/jangala-dev/sja1105-go/tablestore"
	"github.com/jangala-dev/sja1105-go/transport"
)

// BuildACUWord returns the pad-config word for one port's interface and
// voltage, per the slew/pull-down/hysteresis table in spec.md §4.5. ok is
// false for SGMII ports (not configured via ACU) and for ports the
// variant omits (port 4 on R/S).
func BuildACUWord(iface portdesc.Interface, voltage portdesc.Voltage, hasPort bool) (word uint32, ok bool) {
	if !hasPort || iface == portdesc.InterfaceSGMII {
		return 0, false
	}

	var slew uint32
	switch iface {
	case portdesc.InterfaceMII:
		slew = regmap.OSLow
	case portdesc.InterfaceRMII:
		slew = regmap.OSLow // reject 1V8 is enforced by portdesc.Validate
	case portdesc.InterfaceRGMII:
		if voltage == portdesc.Voltage2V5 || voltage == portdesc.Voltage3V3 {
			slew = regmap.OSMedium
		} else {
			slew = regmap.OSHigh // 1V8 or default
		}
	}
	return slew | regmap.IPUDDisable | regmap.IHNonSchmitt, true
}

// PushACUToSilicon writes port's pad-config word from the acu mirror to
// the chip (spec.md §4.5's write=true variant, used by the port-control
// speed mutator's revert path after editing the mirror).
func PushACUToSilicon(tr *transport.Transport, t *tablestore.Table, port int) error {
	return tr.Write(regmap.ACUPadID(port), []uint32{t.Word(uint32(port))})
}

// ProgramACU fills the acu table mirror for every configured port,
// skipping SGMII and non-configured ports, and skipping port 4 on
// variants without it (spec.md §4.5 "ACU").
func ProgramACU(t *tablestore.Table, ports [5]portdesc.Descriptor, hasPort4 bool) {
	for p := 0; p < 5; p++ {
		if p == 4 && !hasPort4 {
			continue
		}
		d := ports[p]
		if !d.Configured {
			continue
		}
		if word, ok := BuildACUWord(d.Interface, d.Voltage, true); ok {
			t.SetWord(uint32(p), word)
		}
	}
}
