// Package staticconf implements the SJA1105 static-configuration engine:
// parsing and validating an in-memory image into the table store,
// streaming it to the chip, and the configuration-reset/retry dance that
// brings it into effect (spec.md §4.2). Grounded on
// original_source/Src/sja1105_static_conf.c and Src/sja1105_conf.c's
// load/write/sync three-phase shape.
package staticconf

import (
	"encoding/binary"

	"github.com/jangala-dev/sja1105-go/errcode"
	"github.com/jangala-dev/sja1105-go/portctrl"
	"github.com/jangala-dev/sja1105-go/portdesc"
	"github.com/jangala-dev/sja1105-go/regmap"
	"github.com/jangala-dev/sja1105-go/stats"
	"github.com/jangala-dev/sja1105-go/tables"
	"github.com/jangala-dev/sja1105-go/tablestore"
	"github.com/jangala-dev/sja1105-go/transport"
)

// Config carries the board-level facts Load needs to validate an image
// and back-fill the CGU/ACU mirrors: the silicon variant, the configured
// host port and per-port descriptors, and the ports_start_enabled
// compile-time flag (spec.md §6 "Handle configuration fields").
type Config struct {
	Variant           regmap.Variant
	HostPort          int
	Ports             [5]portdesc.Descriptor
	PortsStartEnabled bool
	SkewClocks        bool
}

// minImageWords is a 1-word device-id plus the smallest legal terminator
// (2 header words + 1 global_crc word).
const minImageWords = 1 + regmap.StaticConfBlockLastSize

func bytesToWords(image []byte) []uint32 {
	out := make([]uint32, len(image)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(image[4*i:])
	}
	return out
}

// Load parses image into store, validating every block as it goes
// (spec.md §4.2 "Load").
func Load(store *tablestore.Store, image []byte, cfg Config) error {
	words := bytesToWords(image)
	if len(words) < minImageWords {
		return &errcode.E{C: errcode.StaticConf, Op: "staticconf.Load", Msg: "image smaller than minimum size"}
	}

	store.Reset()

	wantID := regmap.DeviceIDFor(cfg.Variant)
	if words[0] != wantID {
		return &errcode.E{C: errcode.Id, Op: "staticconf.Load", Msg: "device-id mismatch for configured variant"}
	}
	store.SetDeviceID(words[0])

	pos := regmap.StaticConfBlockFirstOffset
	var globalCRC uint32
	for {
		if pos+2 > len(words) {
			return &errcode.E{C: errcode.StaticConf, Op: "staticconf.Load", Msg: "image truncated before next block header"}
		}
		w0, w1 := words[pos], words[pos+1]
		id := tablestore.BlockID(w0 >> regmap.StaticConfBlockIDShift)
		size := w1 & regmap.StaticConfBlockSizeMask

		if size == 0 {
			if pos+3 > len(words) {
				return &errcode.E{C: errcode.StaticConf, Op: "staticconf.Load", Msg: "image truncated at terminator"}
			}
			globalCRC = words[pos+2]
			pos += 3
			break
		}

		if pos+3+int(size)+1 > len(words) {
			return &errcode.E{C: errcode.StaticConf, Op: "staticconf.Load", Msg: "block exceeds image bounds"}
		}
		headerCRCWord := words[pos+2]
		dataStart := pos + 3
		data := words[dataStart : dataStart+int(size)]
		dataCRCWord := words[dataStart+int(size)]

		computedHeaderCRC := store.ComputeCRC([]uint32{w0, w1})
		if headerCRCWord != 0 && headerCRCWord != computedHeaderCRC {
			return &errcode.E{C: errcode.Crc, Op: "staticconf.Load", Msg: "header_crc mismatch for " + tablestore.NameOf(id)}
		}

		lt, known := tablestore.LengthTypeOf(id)
		if !known {
			return &errcode.E{C: errcode.StaticConf, Op: "staticconf.Load", Msg: "unknown block id"}
		}

		var t *tablestore.Table
		var err error
		if lt == tablestore.LengthFixed {
			t, err = store.AllocateFixed(id, size)
		} else {
			t, err = store.AllocateVariable(id, size)
		}
		if err != nil {
			return err
		}
		t.HeaderCRC = computedHeaderCRC
		t.CopyIn(data)

		computedDataCRC := store.ComputeDataCRC(t)
		if dataCRCWord != 0 && dataCRCWord != computedDataCRC {
			return &errcode.E{C: errcode.Crc, Op: "staticconf.Load", Msg: "data_crc mismatch for " + tablestore.NameOf(id)}
		}

		if err := validateByID(id, t, cfg); err != nil {
			return err
		}

		pos = dataStart + int(size) + 1
	}
	// Stored but not yet compared: Write recomputes and substitutes it
	// whenever any table's data has changed since (spec.md §4.2 step 3).
	store.SetGlobalCRC(globalCRC)

	if err := store.RequiredTablesPresent(); err != nil {
		return err
	}

	hasPort4 := cfg.Variant.HasPort4()
	if cguTable, ok := store.Table(tablestore.BlockCGU); ok && cguTable.InUse {
		portctrl.ProgramMirror(cguTable, cfg.Ports, hasPort4, cfg.SkewClocks)
	}
	if acuTable, ok := store.Table(tablestore.BlockACU); ok && acuTable.InUse {
		portctrl.ProgramACU(acuTable, cfg.Ports, hasPort4)
	}

	if macTable, ok := store.Table(tablestore.BlockMACConfiguration); ok {
		for p := 0; p < 5; p++ {
			tables.ResetPort(macTable, p, cfg.PortsStartEnabled)
		}
	}

	// CGU/ACU back-fill and the MAC port reset above edit table data
	// directly (through the typed accessors, not Store.SetWord), so the
	// global CRC carried over from the image no longer covers it.
	store.InvalidateGlobalCRC()

	return nil
}

// validateByID runs the table-specific checker for the ids that have one
// (spec.md §4.3); every other id has no additional structural check here
// beyond what AllocateFixed/AllocateVariable already enforce.
func validateByID(id tablestore.BlockID, t *tablestore.Table, cfg Config) error {
	switch id {
	case tablestore.BlockMACConfiguration:
		return tables.ValidateMACConfiguration(t, cfg.Ports)
	case tablestore.BlockGeneralParameters:
		return tables.ValidateGeneralParameters(t, cfg.HostPort)
	case tablestore.BlockXMIIModeParameters:
		for p := 0; p < 5; p++ {
			if err := tables.ValidateXMIIModeParameters(t, cfg.Ports[p]); err != nil {
				return err
			}
		}
	}
	return nil
}

// Write streams store to the chip (spec.md §4.2 "Write"). In safe mode
// every table streams individually with a per-table local-CRC check;
// unsafe mode bulk-streams the fixed arena in one SPI burst and only the
// variable-length tables individually.
func Write(tr *transport.Transport, store *tablestore.Store, safe bool) error {
	for _, t := range store.OrderedTables() {
		if !t.DataCRCValid {
			store.ComputeDataCRC(t)
			store.InvalidateGlobalCRC()
		}
	}

	if err := tr.Write(regmap.StaticConfBaseAddr, []uint32{store.DeviceID()}); err != nil {
		return err
	}
	ids, err := tr.ReadFlag(regmap.RegStaticConfFlags, regmap.IDSBitMask)
	if err != nil {
		return err
	}
	if ids {
		return &errcode.E{C: errcode.Id, Op: "staticconf.Write", Msg: "chip reported device-id mismatch"}
	}

	accumulated := make([]uint32, 0, 256)
	accumulate := func(words ...uint32) { accumulated = append(accumulated, words...) }
	accumulate(store.DeviceID())

	if err := waitL2LookupReady(tr); err != nil {
		return err
	}

	if safe {
		for _, t := range store.OrderedTables() {
			if err := tr.WriteTable(regmap.StaticConfBaseAddr, t, accumulate, true); err != nil {
				return err
			}
		}
	} else {
		arena := store.Arena()
		if err := tr.Write(regmap.StaticConfBaseAddr, arena[1:store.FirstFree()]); err != nil {
			return err
		}
		accumulate(arena[1:store.FirstFree()]...)
		for _, t := range store.OrderedTables() {
			lt, _ := tablestore.LengthTypeOf(t.ID)
			if lt != tablestore.LengthVariable {
				continue
			}
			if err := tr.WriteTable(regmap.StaticConfBaseAddr, t, accumulate, false); err != nil {
				return err
			}
		}
	}

	terminator := []uint32{0, 0}
	accumulate(terminator...)

	globalCRC, valid := store.GlobalCRC()
	if !valid {
		globalCRC = store.ComputeCRC(accumulated)
		store.SetGlobalCRC(globalCRC)
	}

	if err := tr.Write(regmap.StaticConfBaseAddr, []uint32{terminator[0], terminator[1], globalCRC}); err != nil {
		return err
	}

	flags, err := tr.ReadOne(regmap.RegStaticConfFlags)
	if err != nil {
		return err
	}
	if flags&regmap.ConfigsBitMask == 0 {
		return &errcode.E{C: errcode.StaticConf, Op: "staticconf.Write", Msg: "chip did not accept static configuration"}
	}
	if flags&regmap.CrcChkGBitMask != 0 {
		return &errcode.E{C: errcode.Crc, Op: "staticconf.Write", Msg: "chip reported global CRC error"}
	}
	return nil
}

// waitL2LookupReady polls L2BUSYS before l2_address_lookup may be
// streamed (spec.md §4.2 "Ordering").
func waitL2LookupReady(tr *transport.Transport) error {
	return tr.PollFlag(regmap.RegL2LookupStatus, regmap.L2BusySMask, false, 100)
}

// Sync resets the chip's configuration state and re-uploads store,
// retrying once in safe mode on a CRC failure (spec.md §4.2 "Sync").
func Sync(tr *transport.Transport, store *tablestore.Store, counters *stats.Counters) error {
	if err := tr.CfgReset(regmap.RegRGUResetCtrl, regmap.CfgResetBitMask); err != nil {
		tr.FullReset()
	}

	if err := Write(tr, store, false); err != nil {
		if errcode.Of(err) == errcode.Crc {
			// Safe and unsafe streams accumulate the global CRC over
			// differently-framed bytes (unsafe bulk-dumps the fixed
			// arena header-less); a CRC cached from the failed unsafe
			// attempt does not describe the safe retry's byte stream.
			store.InvalidateGlobalCRC()
			if retryErr := Write(tr, store, true); retryErr != nil {
				return retryErr
			}
			counters.IncStaticConfUploads()
			return nil
		}
		return err
	}
	counters.IncStaticConfUploads()
	return nil
}
