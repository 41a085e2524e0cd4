package transport

import (
	"github.com/jangala-dev/sja1105-go/errcode"
	"github.com/jangala-dev/sja1105-go/regmap"
	"github.com/jangala-dev/sja1105-go/tablestore"
)

// headerWord builds the {id, size} header's first word: the id byte
// MSB-aligned (spec.md §4.1 "write_table").
func headerWord(id tablestore.BlockID) uint32 {
	return uint32(id) << regmap.StaticConfBlockIDShift
}

// WriteTable streams one table's header, data and data_crc to addr:
// {id,size} (2 words) ‖ header_crc ‖ data ‖ data_crc. t.DataCRCValid must
// already be true on entry (the caller recomputes dirty CRCs first,
// spec.md §4.2 "Write" step 1). When accumulate is non-nil, every
// streamed word is folded into the caller's running global-CRC
// computation (used when the store's global_crc_valid is false). When
// safe is true, the static-configuration flags register is read
// afterwards and a set local-CRC bit is reported as a CRC error.
func (tr *Transport) WriteTable(addr uint32, t *tablestore.Table, accumulate func(words ...uint32), safe bool) error {
	if !t.DataCRCValid {
		return &errcode.E{C: errcode.Crc, Op: "transport.WriteTable", Msg: "table data_crc not valid"}
	}

	words := make([]uint32, 0, 2+t.Size+1)
	words = append(words, headerWord(t.ID), t.Size)
	words = append(words, t.HeaderCRC)
	words = append(words, t.CopyOut()...)
	words = append(words, t.DataCRC)

	if err := tr.Write(addr, words); err != nil {
		return err
	}
	if accumulate != nil {
		accumulate(words...)
	}

	if safe {
		local, err := tr.ReadFlag(regmap.RegStaticConfFlags, regmap.CrcChkLBitMask)
		if err != nil {
			return err
		}
		if local {
			tr.counters.IncCRCErrors()
			return &errcode.E{C: errcode.Crc, Op: "transport.WriteTable", Msg: "local CRC error reported by chip"}
		}
	}
	return nil
}
