package tablestore

// BlockID identifies one of the 25 static-configuration table types a
// SJA1105 image can carry (spec.md §3 "Table store").
//
// Numeric values follow the publicly documented NXP/Linux-kernel SJA1105
// static-configuration block-id numbering where known (l2_address_lookup
// = 0x05, cgu = 0x80, acu = 0x82, matching original_source/Inc/sja1105_regs.h);
// rgu = 0x81 follows directly from that same gap between cgu and acu.
// original_source/Src/sja1105_tables.c's SJA1105_TABLE_INDEX_LUT fixes the
// table-index order (and therefore orderedIDs below) for every one of the
// 25 ids, rgu included (index 23, between cgu at 22 and acu at 24); the
// remaining ids without a documented numeric value are assigned in the
// same low-to-high grouping the silicon uses (forwarding/lookup tables
// first, parameter tables next, CGU/RGU/ACU last) since the functional
// spec never requires a specific value for them, only that each id is
// distinct and maps to the right length-type and validator.
type BlockID byte

const (
	BlockSchedule                     BlockID = 0x00
	BlockScheduleEntryPoints          BlockID = 0x01
	BlockVLLookup                     BlockID = 0x02
	BlockVLPolicing                   BlockID = 0x03
	BlockVLForwarding                 BlockID = 0x04
	BlockL2AddressLookup              BlockID = 0x05
	BlockL2Policing                   BlockID = 0x06
	BlockVLANLookup                   BlockID = 0x07
	BlockL2Forwarding                 BlockID = 0x08
	BlockMACConfiguration             BlockID = 0x09
	BlockScheduleParameters           BlockID = 0x0A
	BlockScheduleEntryPointParameters BlockID = 0x0B
	BlockVLForwardingParameters       BlockID = 0x0C
	BlockL2LookupParameters           BlockID = 0x0D
	BlockL2ForwardingParameters       BlockID = 0x0E
	BlockAVBParameters                BlockID = 0x10
	BlockGeneralParameters            BlockID = 0x11
	BlockRetagging                    BlockID = 0x12
	BlockCBS                          BlockID = 0x13
	BlockClockSyncParameters          BlockID = 0x17
	BlockXMIIModeParameters           BlockID = 0x4E
	BlockSGMIIConfiguration           BlockID = 0x4F
	BlockCGU                          BlockID = 0x80
	BlockRGU                          BlockID = 0x81
	BlockACU                          BlockID = 0x82

	// blockTerminator is the {id=0,size=0} terminator marker. It shares
	// BlockSchedule's id byte (0x00) on the wire; Load distinguishes a
	// terminator from the schedule table by size==0 at the top-level
	// walk, never by id alone.
	blockTerminator BlockID = 0x00
)

// LengthType says whether a table's word count is a compile-time constant
// of its id (Fixed) or varies with the image (Variable).
type LengthType uint8

const (
	LengthFixed LengthType = iota
	LengthVariable
)

type blockMeta struct {
	name       string
	lengthType LengthType
	fixedSize  uint32 // words, only meaningful when lengthType == LengthFixed
}

// knownBlocks is the static id -> metadata table (spec.md §3 "fixed id->index
// lookup and id->length-type lookup are static"). Fixed sizes are
// representative of the real silicon's per-table word counts for a
// 5-port device; they are not separately specified by the functional
// spec, which only fixes the sizes of mac_configuration (40 = 5*8),
// general_parameters (11) and xmii_mode_parameters (1).
var knownBlocks = map[BlockID]blockMeta{
	BlockSchedule:                     {"schedule", LengthVariable, 0},
	BlockScheduleEntryPoints:          {"schedule_entry_points", LengthVariable, 0},
	BlockVLLookup:                     {"vl_lookup", LengthVariable, 0},
	BlockVLPolicing:                   {"vl_policing", LengthVariable, 0},
	BlockVLForwarding:                 {"vl_forwarding", LengthVariable, 0},
	BlockL2AddressLookup:              {"l2_address_lookup", LengthVariable, 0},
	BlockL2Policing:                   {"l2_policing", LengthVariable, 0},
	BlockVLANLookup:                   {"vlan_lookup", LengthVariable, 0},
	BlockL2Forwarding:                 {"l2_forwarding", LengthVariable, 0},
	BlockMACConfiguration:             {"mac_configuration", LengthFixed, 40},
	BlockScheduleParameters:           {"schedule_parameters", LengthFixed, 16},
	BlockScheduleEntryPointParameters: {"schedule_entry_point_parameters", LengthFixed, 4},
	BlockVLForwardingParameters:       {"vl_forwarding_parameters", LengthFixed, 4},
	BlockL2LookupParameters:           {"l2_lookup_parameters", LengthFixed, 7},
	BlockL2ForwardingParameters:       {"l2_forwarding_parameters", LengthFixed, 3},
	BlockAVBParameters:                {"avb_parameters", LengthFixed, 3},
	BlockGeneralParameters:            {"general_parameters", LengthFixed, 11},
	BlockRetagging:                    {"retagging", LengthVariable, 0},
	BlockCBS:                          {"cbs", LengthVariable, 0},
	BlockClockSyncParameters:          {"clock_sync_parameters", LengthFixed, 3},
	BlockXMIIModeParameters:           {"xmii_mode_parameters", LengthFixed, 1},
	BlockSGMIIConfiguration:           {"sgmii_configuration", LengthFixed, 1},
	BlockCGU:                          {"cgu", LengthFixed, 40},
	BlockRGU:                          {"rgu", LengthFixed, 1},
	BlockACU:                          {"acu", LengthFixed, 30},
}

// NumTables is the number of distinct table slots the store owns (the 25
// known block ids, spec.md §3).
const NumTables = 25

// orderedIDs is the fixed table-index order: write order for a
// static-config stream is always this order (spec.md §4.2 "Ordering").
var orderedIDs = []BlockID{
	BlockSchedule, BlockScheduleEntryPoints, BlockVLLookup, BlockVLPolicing,
	BlockVLForwarding, BlockL2AddressLookup, BlockL2Policing, BlockVLANLookup,
	BlockL2Forwarding, BlockMACConfiguration, BlockScheduleParameters,
	BlockScheduleEntryPointParameters, BlockVLForwardingParameters,
	BlockL2LookupParameters, BlockL2ForwardingParameters, BlockAVBParameters,
	BlockGeneralParameters, BlockRetagging, BlockCBS, BlockClockSyncParameters,
	BlockXMIIModeParameters, BlockSGMIIConfiguration,
	BlockCGU, BlockRGU, BlockACU,
}

var indexOf = func() map[BlockID]int {
	m := make(map[BlockID]int, len(orderedIDs))
	for i, id := range orderedIDs {
		m[id] = i
	}
	return m
}()

// IndexOf returns the fixed slot index for id, and false for an unknown id.
func IndexOf(id BlockID) (int, bool) {
	i, ok := indexOf[id]
	return i, ok
}

// LengthTypeOf returns the length type for id.
func LengthTypeOf(id BlockID) (LengthType, bool) {
	m, ok := knownBlocks[id]
	return m.lengthType, ok
}

// FixedSizeOf returns the compile-time word count for a fixed-length id.
func FixedSizeOf(id BlockID) (uint32, bool) {
	m, ok := knownBlocks[id]
	if !ok || m.lengthType != LengthFixed {
		return 0, false
	}
	return m.fixedSize, true
}

// NameOf returns a human-readable name for id, used in error messages.
func NameOf(id BlockID) string {
	if m, ok := knownBlocks[id]; ok {
		return m.name
	}
	return "unknown"
}

// TotalFixedArenaWords is the sum of every fixed-length table's word
// count, i.e. the size of the pre-allocated arena (spec.md §9, "Manual
// arena for fixed-length tables").
func TotalFixedArenaWords() uint32 {
	var total uint32
	for _, m := range knownBlocks {
		if m.lengthType == LengthFixed {
			total += m.fixedSize
		}
	}
	return total
}
