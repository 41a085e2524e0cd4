package portctrl

import (
	"github.com/jangala-dev/sja1105-go/portdesc"
	"github.com/jangala-dev/sja1105-go/regmap"
	"github.com/jangala-dev/sja1105-go/tablestore"
	"github.com/jangala-dev/sja1105-go/transport"
)

// cgu table mirror layout: the chip's CGU registers are sparsely
// addressed (PLL control at 0x100009, clock-source registers starting
// at 0x100013), so the in-driver mirror uses its own dense, compact
// slotting rather than mirroring register addresses word-for-word —
// word 0: PLL0 (read-only passthrough), word 1: PLL1, words 2..6: IDIV
// per port, words 7..36: six clock-source words per port in
// {MII_TX,MII_RX,RMII_REF,RGMII_TX,EXT_TX,EXT_RX} order, words 37..39
// reserved.
const (
	cguIDivBase     = 2
	cguClkSrcBase   = 7
	cguClkSrcStride = 6
)

const (
	csMIITX = iota
	csMIIRX
	csRMIIRef
	csRGMIITX
	csEXTTX
	csEXTRX
)

func cguClkSrcWord(port, which int) uint32 {
	return uint32(cguClkSrcBase + port*cguClkSrcStride + which)
}

func clkSrcField(src uint32, phase uint32, pd bool) uint32 {
	w := (src << regmap.CSClkSrcShift) & regmap.CSClkSrcMask
	w |= (phase << regmap.CSPhaseShift) & regmap.CSPhaseMask
	w |= 1 << regmap.CSAutoblockShift
	if pd {
		w |= 1 << regmap.CSPDShift
	}
	return w
}

const clkSrcOffField = uint32(regmap.ClkSrcOff<<regmap.CSClkSrcShift) | 1<<regmap.CSAutoblockShift

// ProgramPLLs fills PLL0 (feedback+autoblock bits only; no phase-output
// enable bits are set, and PushToSilicon never writes PLL0, so the chip
// keeps its power-on 125MHz setting) and PLL1 (50MHz integer mode:
// PSEL=1, MSEL=1, NSEL=0, feedback+autoblock enabled) into the mirror.
func ProgramPLLs(t *tablestore.Table) {
	pll0 := uint32(1<<regmap.PLLFBSelShift) | 1<<regmap.PLLAutoblockShift
	t.SetWord(0, pll0)

	pll1 := uint32(1<<regmap.PLLPSelShift) |
		(1 << regmap.PLLMSelShift) |
		(0 << regmap.PLLNSelShift) |
		1<<regmap.PLLFBSelShift |
		1<<regmap.PLLAutoblockShift
	t.SetWord(1, pll1)
}

// ProgramPort fills port's six clock-source words and its IDIV register
// according to {interface, role, speed, output_rmii_refclk, skew_clocks}
// (spec.md §4.5 "CGU").
func ProgramPort(t *tablestore.Table, d portdesc.Descriptor, skewClocks bool) {
	p := d.Port
	off := func(which int) { t.SetWord(cguClkSrcWord(p, which), clkSrcOffField) }
	idivOff := func() { t.SetWord(uint32(cguIDivBase+p), 1<<regmap.IDivPDShift) }

	for which := 0; which < 6; which++ {
		off(which)
	}
	idivOff()

	phase := uint32(0)
	if skewClocks {
		phase = uint32(p)
	}

	switch {
	case d.Interface == portdesc.InterfaceMII && d.Role == portdesc.RoleMAC:
		t.SetWord(cguClkSrcWord(p, csMIITX), clkSrcField(regmap.ClkSrcTXCLK, 0, false))
		t.SetWord(cguClkSrcWord(p, csMIIRX), clkSrcField(regmap.ClkSrcRXCLK, 0, false))

	case d.Interface == portdesc.InterfaceMII && d.Role == portdesc.RolePHY && d.Speed == portdesc.Speed10M:
		t.SetWord(uint32(cguIDivBase+p), (10<<regmap.IDivIdivShift)|1<<regmap.IDivAutoblockShift)
		t.SetWord(cguClkSrcWord(p, csMIITX), clkSrcField(regmap.ClkSrcIDiv(p), 0, false))
		t.SetWord(cguClkSrcWord(p, csEXTTX), clkSrcField(regmap.ClkSrcIDiv(p), 0, false))
		t.SetWord(cguClkSrcWord(p, csEXTRX), clkSrcField(regmap.ClkSrcIDiv(p), 0, false))
		t.SetWord(cguClkSrcWord(p, csMIIRX), clkSrcField(regmap.ClkSrcRXCLK, 0, false))

	case d.Interface == portdesc.InterfaceRMII && d.Role == portdesc.RoleMAC:
		t.SetWord(cguClkSrcWord(p, csRMIIRef), clkSrcField(regmap.ClkSrcTXCLK, 0, false))
		t.SetWord(cguClkSrcWord(p, csEXTTX), clkSrcField(regmap.ClkSrcPLL1, phase, false))

	case d.Interface == portdesc.InterfaceRMII && d.Role == portdesc.RolePHY:
		t.SetWord(cguClkSrcWord(p, csRMIIRef), clkSrcField(regmap.ClkSrcTXCLK, 0, false))
		if d.OutputRMIIRefclk {
			t.SetWord(cguClkSrcWord(p, csEXTTX), clkSrcField(regmap.ClkSrcPLL1, phase, false))
		}

	case d.Interface == portdesc.InterfaceRGMII && d.Speed == portdesc.Speed10M:
		t.SetWord(uint32(cguIDivBase+p), (10<<regmap.IDivIdivShift)|1<<regmap.IDivAutoblockShift)
		t.SetWord(cguClkSrcWord(p, csRGMIITX), clkSrcField(regmap.ClkSrcIDiv(p), 0, false))

	case d.Interface == portdesc.InterfaceRGMII && d.Speed == portdesc.Speed100M:
		t.SetWord(uint32(cguIDivBase+p), (1<<regmap.IDivIdivShift)|1<<regmap.IDivAutoblockShift)
		t.SetWord(cguClkSrcWord(p, csRGMIITX), clkSrcField(regmap.ClkSrcIDiv(p), 0, false))

	case d.Interface == portdesc.InterfaceRGMII && d.Speed == portdesc.Speed1G:
		t.SetWord(cguClkSrcWord(p, csRGMIITX), clkSrcField(regmap.ClkSrcPLL0, phase, false))
	}
}

// ProgramMirror fills the cgu table mirror for every configured,
// non-SGMII port with write=false semantics (spec.md §4.2 step 5): it
// only edits the in-driver table, never touches the chip.
func ProgramMirror(t *tablestore.Table, ports [5]portdesc.Descriptor, hasPort4 bool, skewClocks bool) {
	ProgramPLLs(t)
	for p := 0; p < 5; p++ {
		if p == 4 && !hasPort4 {
			continue
		}
		d := ports[p]
		if !d.Configured || d.Interface == portdesc.InterfaceSGMII {
			continue
		}
		ProgramPort(t, d, skewClocks)
	}
}

// PushToSilicon writes the cgu mirror's PLL and per-port registers to the
// chip over tr (spec.md §4.2 step 5's write=true variant, used by the
// port-control speed mutator after editing the mirror).
func PushToSilicon(tr *transport.Transport, t *tablestore.Table, ports [5]portdesc.Descriptor, hasPort4 bool) error {
	if err := tr.Write(regmap.CGURegPLL1Ctrl, []uint32{t.Word(1)}); err != nil {
		return err
	}
	for p := 0; p < 5; p++ {
		if p == 4 && !hasPort4 {
			continue
		}
		if !ports[p].Configured || ports[p].Interface == portdesc.InterfaceSGMII {
			continue
		}
		if err := tr.Write(regmap.CGUIDiv(p), []uint32{t.Word(uint32(cguIDivBase + p))}); err != nil {
			return err
		}
		regs := []uint32{
			regmap.CGUMIITXClk(p), regmap.CGUMIIRXClk(p), regmap.CGURMIIRefClk(p),
			regmap.CGURGMIITXClk(p), regmap.CGUEXTTXClk(p), regmap.CGUEXTRXClk(p),
		}
		for which, reg := range regs {
			if err := tr.Write(reg, []uint32{t.Word(cguClkSrcWord(p, which))}); err != nil {
				return err
			}
		}
	}
	return nil
}
