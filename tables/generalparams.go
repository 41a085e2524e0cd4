package tables

import (
	"github.com/jangala-dev/sja1105-go/errcode"
	"github.com/jangala-dev/sja1105-go/tablestore"
)

// Bit position of the host-port field within word 4 of general_parameters
// (spec.md §4.3: "host-port field at word 4 bits[16:14]").
const (
	hostPortShift = 14
	hostPortMask  = 0x7
)

// sendMeta/inclSrcpt are single-bit management-trap flags adjacent to the
// host-port field within word 4: whether a frame matching a MAC filter
// carries switch metadata to the host, and whether it includes the
// ingress source port (design decision: no grounding source named an
// exact bit position for these, see DESIGN.md).
const (
	sendMetaShift  = 13
	inclSrcptShift = 12
)

// GetSendMeta reports whether frames matching a MAC filter are tagged
// with switch metadata before being trapped to the host.
func GetSendMeta(t *tablestore.Table) bool {
	return t.Word(4)&(1<<sendMetaShift) != 0
}

// GetInclSrcpt reports whether frames matching a MAC filter carry their
// ingress source port to the host.
func GetInclSrcpt(t *tablestore.Table) bool {
	return t.Word(4)&(1<<inclSrcptShift) != 0
}

// macFilterBitOffset is the bit offset of the first MAC-filter field
// within general_parameters, counting from bit 0 of word 0 (spec.md
// §4.3: "MAC filter extraction: four 6-byte fields starting at word 4
// byte 3, i.e. bit 152"). word 4 starts at bit 128, so byte 3 of word 4
// starts at bit 128+24 = 152.
const macFilterBitOffset = 152

// macFilterFieldBytes is one field's width; four such fields follow
// contiguously.
const macFilterFieldBytes = 6

// GetHostPort reads the configured host-port index out of word 4.
func GetHostPort(t *tablestore.Table) int {
	return int((t.Word(4) >> hostPortShift) & hostPortMask)
}

// ValidateGeneralParameters checks the host-port field against the
// handle's configured host-port index.
func ValidateGeneralParameters(t *tablestore.Table, hostPort int) error {
	if GetHostPort(t) != hostPort {
		return &errcode.E{C: errcode.StaticConf, Op: "tables.ValidateGeneralParameters",
			Msg: "host_port field does not match configured host port"}
	}
	return nil
}

// readByteAt reads a Table's words as a flat, MSB-agnostic bit/byte stream
// for fields that straddle 32-bit words (spec.md §9: "Express as typed
// accessors... never expose raw word arrays").
func readByteAt(t *tablestore.Table, bitOffset int) byte {
	wordIdx := uint32(bitOffset / 32)
	byteInWord := (bitOffset % 32) / 8
	w := t.Word(wordIdx)
	return byte(w >> (byteInWord * 8))
}

// MACFilter is one of the four 6-byte MAC-address filter fields embedded
// in general_parameters, not 32-bit-aligned.
type MACFilter [macFilterFieldBytes]byte

// GetMACFilters reads all four MAC-filter fields as raw bytes, starting
// at bit 152, each field immediately following the previous one.
func GetMACFilters(t *tablestore.Table) [4]MACFilter {
	var out [4]MACFilter
	bit := macFilterBitOffset
	for f := 0; f < 4; f++ {
		for b := 0; b < macFilterFieldBytes; b++ {
			out[f][b] = readByteAt(t, bit)
			bit += 8
		}
	}
	return out
}
