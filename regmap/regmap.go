// Package regmap collects symbolic SJA1105 register addresses, masks,
// shifts, per-variant switch-core IDs and the temperature lookup table.
// It is pure constants: no behavior, no state.
//
// Addresses are 21-bit word addresses as they appear in the SPI control
// frame (bits[24:4] of the first word of a transaction), grounded on
// original_source/Inc/sja1105_regs.h.
package regmap

// Variant identifies one member of the E/T/P/Q/R/S family.
type Variant uint8

const (
	VariantE Variant = iota
	VariantT
	VariantP
	VariantQ
	VariantR
	VariantS
)

// HasPort4 reports whether the variant wires up port 4 (R/S are SGMII-only
// and omit it).
func (v Variant) HasPort4() bool {
	return v != VariantR && v != VariantS
}

// Switch-core device-id words, matched against word 0 of a static-config
// image (spec.md §4.2 step 1).
const (
	DeviceIDET uint32 = 0x9f00030e
	DeviceIDPR uint32 = 0xaf00030e
	DeviceIDQS uint32 = 0xae00030e
)

// DeviceIDFor returns the expected device-id word for a variant.
func DeviceIDFor(v Variant) uint32 {
	switch v {
	case VariantE, VariantT:
		return DeviceIDET
	case VariantP, VariantR:
		return DeviceIDPR
	case VariantQ, VariantS:
		return DeviceIDQS
	default:
		return 0
	}
}

// ---------------------------------------------------------------------------
// General status
// ---------------------------------------------------------------------------

const (
	RegGeneralStatus1 = 0x00000003
	// General status registers 1..11 are contiguous; CheckStatus reads
	// them as one burst.
	GeneralStatusCount = 11

	L2BusysShift = 0
	L2BusysMask  = 0x1 << L2BusysShift
)

// General-status register indices (1-based per spec.md §4.8, 0-based into
// a GeneralStatusCount-length read buffer here).
const (
	GeneralStatusRAMParity1Index = 9  // general-status register 10
	GeneralStatusRAMParity2Index = 10 // general-status register 11
)

// Static-configuration flags register, read after a write (spec.md §4.2
// step 6, §4.1 write_table "safe" mode).
const (
	RegStaticConfFlags = 0x00000004

	ConfigsBitShift = 0
	ConfigsBitMask  = 0x1 << ConfigsBitShift // 1 = accepted

	CrcChkGBitShift = 1
	CrcChkGBitMask  = 0x1 << CrcChkGBitShift // 1 = global CRC error

	CrcChkLBitShift = 2
	CrcChkLBitMask  = 0x1 << CrcChkLBitShift // 1 = local CRC error (per-table stream)

	IDSBitShift = 3
	IDSBitMask  = 0x1 << IDSBitShift // 1 = device-id mismatch
)

// L2 address-lookup hash-table busy flag, polled before streaming
// l2_address_lookup (spec.md §4.2 "Ordering").
const (
	RegL2LookupStatus = 0x00000005
	L2BusySShift      = 0
	L2BusySMask       = 0x1 << L2BusySShift
)

// ---------------------------------------------------------------------------
// Reset Generation Unit (RGU)
// ---------------------------------------------------------------------------

const (
	RegRGUResetCtrl  = 0x00100440
	CfgResetBitShift = 2
	CfgResetBitMask  = 0x1 << CfgResetBitShift
)

// ---------------------------------------------------------------------------
// Auxiliary Configuration Unit (ACU)
// ---------------------------------------------------------------------------

const (
	ACURegCfgPadMIIxBase = 0x100800
	ACURegCfgPadMisc     = 0x100840
	ACURegCfgPadSPI      = 0x100880
	ACURegCfgPadJTAG     = 0x100881

	ACURegPortStatusMIIxBase = 0x100900

	ACURegTSConfig = 0x100a00
	ACURegTSStatus = 0x100a01
	ACURegProdCfg  = 0x100bc0
	ACURegProdID   = 0x100bc3
	ACURegAccessDisable = 0x100bfd
)

// ACUPadTX returns the TX pad-config register for a port.
func ACUPadTX(port int) uint32 { return ACURegCfgPadMIIxBase + 2*uint32(port) }

// ACUPadRX returns the RX pad-config register for a port.
func ACUPadRX(port int) uint32 { return ACURegCfgPadMIIxBase + 2*uint32(port) + 1 }

// ACUPadID returns the per-port pad-ID register.
func ACUPadID(port int) uint32 { return ACURegCfgPadMIIxBase + 16 + uint32(port) }

// ACUPortStatus returns the per-port status register.
func ACUPortStatus(port int) uint32 { return ACURegPortStatusMIIxBase + uint32(port) }

// Pad slew-rate / pull-down / hysteresis field encodings, replicated
// across the clock/control/data-low/data-high pad groups within one
// 32-bit pad-config word.
const (
	ClkOSShift, ClkOSLow, ClkOSMedium, ClkOSFast, ClkOSHigh   = 3, 0 << 3, 1 << 3, 2 << 3, 3 << 3
	CtrlOSShift, CtrlOSLow, CtrlOSMedium, CtrlOSFast, CtrlOSHigh = 11, 0 << 11, 1 << 11, 2 << 11, 3 << 11
	D10OSShift, D10OSLow, D10OSMedium, D10OSFast, D10OSHigh   = 19, 0 << 19, 1 << 19, 2 << 19, 3 << 19
	D32OSShift, D32OSLow, D32OSMedium, D32OSFast, D32OSHigh   = 27, 0 << 27, 1 << 27, 2 << 27, 3 << 27
)

const (
	OSLow    = ClkOSLow | CtrlOSLow | D10OSLow | D32OSLow
	OSMedium = ClkOSMedium | CtrlOSMedium | D10OSMedium | D32OSMedium
	OSFast   = ClkOSFast | CtrlOSFast | D10OSFast | D32OSFast
	OSHigh   = ClkOSHigh | CtrlOSHigh | D10OSHigh | D32OSHigh
)

const (
	ClkIPUDPullDown  = 3 << 0
	CtrlIPUDPullDown = 3 << 8
	D10IPUDPullDown  = 3 << 16
	D32IPUDPullDown  = 3 << 24

	IPUDDisable = ClkIPUDPullDown | CtrlIPUDPullDown | D10IPUDPullDown | D32IPUDPullDown
)

const (
	ClkIHNonSchmitt  = 1 << 2
	CtrlIHNonSchmitt = 1 << 10
	D10IHNonSchmitt  = 1 << 18
	D32IHNonSchmitt  = 1 << 26

	IHNonSchmitt = ClkIHNonSchmitt | CtrlIHNonSchmitt | D10IHNonSchmitt | D32IHNonSchmitt
)

// TSConfig/TSStatus bitfields (temperature sensor, spec.md §4.7).
const (
	TSPowerDownShift = 0
	TSPowerDownMask  = 0x1 << TSPowerDownShift // 1 = powered down

	TSThreshShift = 1
	TSThreshMask  = 0x7f << TSThreshShift // 7-bit threshold index [0,40]

	TSExceededShift = 0
	TSExceededMask  = 0x1 << TSExceededShift
)

// Part-number / product-config cross-check (supplemental, SPEC_FULL §11).
const (
	PartNrOffset = 4
	PartNrMask   = 0xffff << PartNrOffset

	PartNrT = 0x9a82
	PartNrP = 0x9a84
	PartNrQ = 0x9a85
	PartNrR = 0x9a86
	PartNrS = 0x9a87
)

// ---------------------------------------------------------------------------
// Clock Generation Unit (CGU)
// ---------------------------------------------------------------------------

const (
	CGURegPLL0Ctrl = 0x100009
	CGURegPLL1Ctrl = 0x10000a

	CGURegIDivBase = 0x10000b // + port_num

	// Clock-source selector registers, base + port_num (one base per
	// selector kind, the bases 5 registers apart).
	CGURegMIITXClkBase   = 0x100013
	CGURegMIIRXClkBase   = 0x100018
	CGURegRMIIRefClkBase = 0x10001d
	CGURegRGMIITXClkBase = 0x100022
	CGURegEXTTXClkBase   = 0x100027
	CGURegEXTRXClkBase   = 0x10002c
)

func cguPerPort(base uint32, port int) uint32 { return base + uint32(port) }

// CGUMIITXClk, CGUMIIRXClk, CGURMIIRefClk, CGURGMIITXClk, CGUEXTTXClk,
// CGUEXTRXClk and CGUIDiv return the per-port clock-source / divider
// registers the port-control CGU builder programs (spec.md §4.5).
func CGUMIITXClk(port int) uint32   { return cguPerPort(CGURegMIITXClkBase, port) }
func CGUMIIRXClk(port int) uint32   { return cguPerPort(CGURegMIIRXClkBase, port) }
func CGURMIIRefClk(port int) uint32 { return cguPerPort(CGURegRMIIRefClkBase, port) }
func CGURGMIITXClk(port int) uint32 { return cguPerPort(CGURegRGMIITXClkBase, port) }
func CGUEXTTXClk(port int) uint32   { return cguPerPort(CGURegEXTTXClkBase, port) }
func CGUEXTRXClk(port int) uint32   { return cguPerPort(CGURegEXTRXClkBase, port) }
func CGUIDiv(port int) uint32       { return cguPerPort(CGURegIDivBase, port) }

// Clock-source-register field layout: CLKSRC[3:0] at bits[3:0],
// AUTOBLOCK at bit 11, PD at bit 10.
const (
	CSClkSrcShift = 0
	CSClkSrcMask  = 0xf << CSClkSrcShift
	CSPDShift     = 10
	CSPDMask      = 0x1 << CSPDShift
	CSAutoblockShift = 11
	CSAutoblockMask  = 0x1 << CSAutoblockShift
	CSPhaseShift  = 12
	CSPhaseMask   = 0x7 << CSPhaseShift
)

// Clock source selector values (which upstream clock a CLKSRC field
// picks).
const (
	ClkSrcTXCLK  = 0x0 // external TX_CLK(n) pin
	ClkSrcRXCLK  = 0x1 // external RX_CLK(n) pin
	ClkSrcPLL0   = 0x9
	ClkSrcPLL1   = 0xa
	ClkSrcIDiv0  = 0xb // IDIV(n), base for the per-port divider
	ClkSrcOff    = 0xf
)

// ClkSrcIDiv returns the IDIV selector for port n (base + n, matching the
// original firmware's per-port IDIV clock-source indices).
func ClkSrcIDiv(port int) uint32 { return ClkSrcIDiv0 + uint32(port) }

// Integer divider control register field layout.
const (
	IDivIdivShift  = 0
	IDivIdivMask   = 0x3ff << IDivIdivShift
	IDivPDShift    = 10
	IDivPDMask     = 0x1 << IDivPDShift
	IDivAutoblockShift = 11
	IDivAutoblockMask  = 0x1 << IDivAutoblockShift
)

// PLL control register field layout (PLL1 integer mode; PLL0 stays at its
// power-on 125 MHz default and is only read, never rewritten).
const (
	PLLPSelShift = 3
	PLLPSelMask  = 0x1 << PLLPSelShift
	PLLMSelShift = 4
	PLLMSelMask  = 0x3f << PLLMSelShift
	PLLNSelShift = 10
	PLLNSelMask  = 0x3 << PLLNSelShift
	PLLFBSelShift = 12
	PLLFBSelMask  = 0x1 << PLLFBSelShift
	PLLPDShift    = 13
	PLLPDMask     = 0x1 << PLLPDShift
	PLLBypassShift = 14
	PLLBypassMask  = 0x1 << PLLBypassShift
	PLLAutoblockShift = 11
	PLLAutoblockMask  = 0x1 << PLLAutoblockShift
)

// ---------------------------------------------------------------------------
// Static configuration
// ---------------------------------------------------------------------------

const (
	StaticConfBaseAddr = 0x20000

	StaticConfBlockIDL2AddrLU = 0x05
	StaticConfBlockIDCGU      = 0x80
	StaticConfBlockIDACU      = 0x82

	StaticConfBlockFirstOffset = 1
	StaticConfBlockLastSize    = 3 // two zero words + global CRC

	StaticConfBlockIDShift = 24
	StaticConfBlockIDMask  = 0xff << StaticConfBlockIDShift
	StaticConfBlockSizeMask = 0xffffff
)

// ---------------------------------------------------------------------------
// Dynamic reconfiguration
// ---------------------------------------------------------------------------

// Generic VALID/ERRORS handshake bit positions; every dynamic-reconfig
// window places them at the same offsets within its control word.
const (
	DynValidShift   = 31
	DynValidMask    = 0x1 << DynValidShift
	DynRdWrSetShift = 30
	DynRdWrSetMask  = 0x1 << DynRdWrSetShift // 1 = write
	DynErrorsShift  = 29
	DynErrorsMask   = 0x1 << DynErrorsShift
)

// MAC-configuration-table dynamic-reconfiguration window.
const (
	DynMACConfCtrl = 0x100000
	DynMACConfData0 = 0x100001
	// 7 data words follow (words 1..7).
	DynMACConfPortIDShift = 24
	DynMACConfPortIDMask  = 0x7 << DynMACConfPortIDShift
)

// L2-address-lookup dynamic-reconfiguration window (also used by the
// management-route create/free/invalidate protocol, spec.md §4.4/§4.6).
const (
	DynL2LookupCtrl  = 0x100020
	DynL2LookupData0 = 0x100021

	DynL2LookupIndexShift = 0
	DynL2LookupIndexMask  = 0x3ff << DynL2LookupIndexShift

	// DynL2HostCmdShift/Mask give the host-command field its own 3-bit
	// position in the control word, clear of VALID/RDWRSET/ERRORS (bits
	// 31-29) and the 10-bit entry index (bits 9-0). A command shifted
	// into DynRdWrSetShift's single bit position would overflow a
	// uint32 for any value above 1 and silently truncate to 0.
	DynL2HostCmdShift = 20
	DynL2HostCmdMask  = 0x7 << DynL2HostCmdShift

	// Host commands written into the DynL2HostCmd field.
	DynL2HostCmdWrite           = 0x1
	DynL2HostCmdInvalidateEntry = 0x4
)

// Management-route (MGMTROUTE) entry field layout within the 5-word L2
// lookup dynamic-reconfiguration payload (spec.md §4.6 step 4).
const (
	MgmtRouteBitShift = 26
	MgmtRouteBitMask  = 0x1 << MgmtRouteBitShift

	MgmtValidShift = 0
	MgmtValidMask  = 0x1 << MgmtValidShift

	MgmtTakeTSShift = 1
	MgmtTakeTSMask  = 0x1 << MgmtTakeTSShift

	MgmtTSRegShift = 2
	MgmtTSRegMask  = 0x3 << MgmtTSRegShift

	MgmtDestPortsShift = 4
	MgmtDestPortsMask  = 0x1f << MgmtDestPortsShift

	MgmtMACBitOffset = 22 // 48-bit MAC packed starting at bit 22, LSB-aligned
)

// ---------------------------------------------------------------------------
// Temperature sensor lookup table (spec.md §4.7)
// ---------------------------------------------------------------------------

// TempLUT maps a 0..40 threshold index to tenths of a degree Celsius. The
// true temperature lies in [TempLUT[i], TempLUT[i+1]) for the converged
// guess i. Values are representative of the SJA1105 datasheet's
// monotonically increasing threshold table; exact datasheet constants are
// supplied by the caller's board-bring-up if they differ per die rev, but
// this table is what ships by default.
var TempLUT = [41]int16{
	-5000, -4625, -4250, -3875, -3500, -3125, -2750, -2375,
	-2000, -1625, -1250, -875, -500, -125, 250, 625,
	1000, 1375, 1750, 2125, 2500, 2875, 3250, 3625,
	4000, 4375, 4750, 5125, 5500, 5875, 6250, 6625,
	7000, 7375, 7750, 8125, 8500, 8875, 9250, 9625,
	10000,
}
