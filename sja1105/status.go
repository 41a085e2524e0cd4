package sja1105

import (
	"github.com/jangala-dev/sja1105-go/errcode"
	"github.com/jangala-dev/sja1105-go/eventbus"
	"github.com/jangala-dev/sja1105-go/regmap"
	"github.com/jangala-dev/sja1105-go/tables"
	"github.com/jangala-dev/sja1105-go/tablestore"
	"github.com/jangala-dev/sja1105-go/tempsensor"
)

// ReadTemperatureX10 runs the on-die temperature sensor's binary search
// and returns the result in tenths of a degree Celsius (spec.md §4.7,
// §6 "read_temperature_x10(&t)").
func (h *Handle) ReadTemperatureX10() (int16, error) {
	if err := h.requireInitialised("sja1105.ReadTemperatureX10"); err != nil {
		return 0, err
	}
	var t int16
	err := h.withMutex(func() error {
		var e error
		t, e = tempsensor.ReadX10(h.tr, h.caps.Clock)
		return e
	})
	return t, err
}

// CheckStatus reads general-status registers 1..11 in one burst and
// reports RamParity if either RAM-parity latch is set (spec.md §4.8).
// A RamParity trap is fatal: the caller must deinit(hard) and reinit
// with a known-good image.
func (h *Handle) CheckStatus() error {
	if err := h.requireInitialised("sja1105.CheckStatus"); err != nil {
		return err
	}
	return h.withMutex(func() error {
		words, err := h.tr.Read(regmap.RegGeneralStatus1, regmap.GeneralStatusCount)
		if err != nil {
			return err
		}
		if words[regmap.GeneralStatusRAMParity1Index] != 0 || words[regmap.GeneralStatusRAMParity2Index] != 0 {
			h.publish(eventbus.Event{Kind: eventbus.KindRAMParityTrap, Port: -1, Slot: -1})
			return &errcode.E{C: errcode.RamParity, Op: "sja1105.CheckStatus", Msg: "RAM-parity latch set"}
		}
		return nil
	})
}

// CheckPartID cross-checks the chip's reported part number (ACU_REG_PROD_ID)
// against the configured variant (SPEC_FULL supplemented feature, not
// fatal to init: variant E carries no PROD_ID register and is always
// accepted without comparison).
func (h *Handle) CheckPartID() error {
	if err := h.requireInitialised("sja1105.CheckPartID"); err != nil {
		return err
	}
	wantPartNr, ok := partNrFor(h.cfg.Variant)
	if !ok {
		return nil
	}
	return h.withMutex(func() error {
		prodID, err := h.tr.ReadOne(regmap.ACURegProdID)
		if err != nil {
			return err
		}
		got := (prodID & regmap.PartNrMask) >> regmap.PartNrOffset
		if got != wantPartNr {
			return &errcode.E{C: errcode.Id, Op: "sja1105.CheckPartID", Msg: "part number mismatch for configured variant"}
		}
		return nil
	})
}

func partNrFor(v regmap.Variant) (uint32, bool) {
	switch v {
	case regmap.VariantT:
		return regmap.PartNrT, true
	case regmap.VariantP:
		return regmap.PartNrP, true
	case regmap.VariantQ:
		return regmap.PartNrQ, true
	case regmap.VariantR:
		return regmap.PartNrR, true
	case regmap.VariantS:
		return regmap.PartNrS, true
	default:
		return 0, false
	}
}

// MacAddrTrapTest reports whether addr matches one of general_parameters'
// two MAC-filter/mask pairs (MAC_FLT0/MAC_FLTRES0, MAC_FLT1/MAC_FLTRES1),
// and if so, the matching filter's send-meta and include-source-port
// flags (spec.md §6 "mac_addr_trap_test(addr, &trapped, &send_meta,
// &incl_srcpt)"). Returns NotConfigured if general_parameters is not
// loaded.
func (h *Handle) MacAddrTrapTest(addr [6]byte) (trapped bool, sendMeta bool, inclSrcpt bool, err error) {
	if err = h.requireInitialised("sja1105.MacAddrTrapTest"); err != nil {
		return
	}
	err = h.withMutex(func() error {
		t, ok := h.store.Table(tablestore.BlockGeneralParameters)
		if !ok || !t.InUse {
			return &errcode.E{C: errcode.NotConfigured, Op: "sja1105.MacAddrTrapTest", Msg: "general_parameters not loaded"}
		}
		filters := tables.GetMACFilters(t)
		flt0, flt1, res0, res1 := filters[0], filters[1], filters[2], filters[3]
		if macMatches(addr, flt0, res0) || macMatches(addr, flt1, res1) {
			trapped = true
			sendMeta = tables.GetSendMeta(t)
			inclSrcpt = tables.GetInclSrcpt(t)
		}
		return nil
	})
	return
}

func macMatches(addr [6]byte, filter, mask tables.MACFilter) bool {
	for i := range addr {
		if addr[i]&mask[i] != filter[i]&mask[i] {
			return false
		}
	}
	return true
}
