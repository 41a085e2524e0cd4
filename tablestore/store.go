// Package tablestore owns the in-driver mirror of every SJA1105
// static-configuration table: a fixed id->slot lookup, a contiguous arena
// for fixed-length tables, allocator-backed storage for variable-length
// tables, and the per-table / global CRC validity bookkeeping spec.md §3
// describes.
package tablestore

import (
	"github.com/jangala-dev/sja1105-go/caps"
	"github.com/jangala-dev/sja1105-go/errcode"
)

// Store is the device's table-store instance. The zero value is not
// usable; construct with New.
type Store struct {
	slots    [NumTables]Table
	arena    []uint32
	firstFree uint32
	deviceID uint32

	globalCRC      uint32
	globalCRCValid bool

	alloc caps.Allocator
	crc   caps.CRC32
}

// New allocates the fixed-length arena (word 0 reserved for the device-id)
// and returns a ready Store.
func New(alloc caps.Allocator, crc caps.CRC32) *Store {
	s := &Store{
		arena: make([]uint32, TotalFixedArenaWords()+1),
		alloc: alloc,
		crc:   crc,
	}
	s.firstFree = 1
	return s
}

// DeviceID returns the word stored at arena[0].
func (s *Store) DeviceID() uint32 { return s.deviceID }

// SetDeviceID stores the device-id word at arena[0].
func (s *Store) SetDeviceID(id uint32) {
	s.deviceID = id
	s.arena[0] = id
}

// Reset frees every variable-length table's allocator block, resets the
// arena cursor and clears every slot. Equivalent to the fixed-length
// "destroyed by arena reset" / variable-length "destroyed by per-field
// free" lifecycle step (spec.md §3 "Lifecycle").
func (s *Store) Reset() {
	for i := range s.slots {
		t := &s.slots[i]
		if t.InUse && t.block != nil {
			_ = s.alloc.Free(t.block)
		}
		s.slots[i] = Table{}
	}
	s.firstFree = 1
	for i := range s.arena {
		s.arena[i] = 0
	}
	s.globalCRC = 0
	s.globalCRCValid = false
	s.deviceID = 0
}

// Table returns the slot for id, or (nil, false) for an unknown id.
func (s *Store) Table(id BlockID) (*Table, bool) {
	idx, ok := IndexOf(id)
	if !ok {
		return nil, false
	}
	return &s.slots[idx], true
}

// InUse reports whether id's slot currently holds live data.
func (s *Store) InUse(id BlockID) bool {
	t, ok := s.Table(id)
	return ok && t.InUse
}

// OrderedTables returns every in-use table in fixed table-index order
// (spec.md §4.2 "Ordering": blocks appear on the wire in table-index
// order).
func (s *Store) OrderedTables() []*Table {
	out := make([]*Table, 0, NumTables)
	for i := range orderedIDs {
		if s.slots[i].InUse {
			out = append(out, &s.slots[i])
		}
	}
	return out
}

// AllocateFixed places a fixed-length table into the arena, advancing the
// arena cursor, and marks it in_use. Fails if id is not a fixed-length id,
// if size does not match the compile-time constant, or if the arena is
// exhausted (should not happen with a correctly sized arena).
func (s *Store) AllocateFixed(id BlockID, size uint32) (*Table, error) {
	lt, ok := LengthTypeOf(id)
	if !ok || lt != LengthFixed {
		return nil, &errcode.E{C: errcode.StaticConf, Op: "tablestore.AllocateFixed", Msg: "not a fixed-length id"}
	}
	want, _ := FixedSizeOf(id)
	if size != want {
		return nil, &errcode.E{C: errcode.StaticConf, Op: "tablestore.AllocateFixed", Msg: "size mismatch for " + NameOf(id)}
	}
	idx, _ := IndexOf(id)
	if s.firstFree+size > uint32(len(s.arena)) {
		return nil, &errcode.E{C: errcode.DynMemory, Op: "tablestore.AllocateFixed", Msg: "arena exhausted"}
	}
	t := &s.slots[idx]
	*t = Table{
		ID:   id,
		Size: size,
		data: arenaView{arena: s.arena, offset: s.firstFree, size: size},
	}
	s.firstFree += size
	t.InUse = true
	return t, nil
}

// AllocateVariable obtains an allocator-backed block for a variable-length
// table and marks it in_use.
func (s *Store) AllocateVariable(id BlockID, size uint32) (*Table, error) {
	lt, ok := LengthTypeOf(id)
	if !ok || lt != LengthVariable {
		return nil, &errcode.E{C: errcode.StaticConf, Op: "tablestore.AllocateVariable", Msg: "not a variable-length id"}
	}
	idx, _ := IndexOf(id)
	blk, err := s.alloc.Alloc(size)
	if err != nil {
		return nil, &errcode.E{C: errcode.DynMemory, Op: "tablestore.AllocateVariable", Msg: "allocator exhausted", Err: err}
	}
	t := &s.slots[idx]
	*t = Table{
		ID:    id,
		Size:  size,
		data:  blockView{b: blk},
		block: blk,
	}
	t.InUse = true
	return t, nil
}

// ComputeCRC runs the store's CRC engine over an arbitrary word sequence,
// used by the static-config loader to check a block's header_crc and by
// the write path to accumulate the running global_crc (spec.md §4.2).
func (s *Store) ComputeCRC(words []uint32) uint32 {
	s.crc.Reset()
	return s.crc.Accumulate(wordsToBytesSlice(words))
}

// ComputeDataCRC recomputes and stores t.DataCRC from its current words,
// marking it valid.
func (s *Store) ComputeDataCRC(t *Table) uint32 {
	s.crc.Reset()
	v := s.crc.Accumulate(wordsToBytesSlice(t.CopyOut()))
	t.DataCRC = v
	t.DataCRCValid = true
	return v
}

// VerifyDataCRC reports whether t.DataCRC matches a fresh recomputation.
func (s *Store) VerifyDataCRC(t *Table) bool {
	s.crc.Reset()
	return s.crc.Accumulate(wordsToBytesSlice(t.CopyOut())) == t.DataCRC
}

// InvalidateGlobalCRC clears the cached global CRC's validity. Called by
// any operation that edits a table's data (spec.md §3 "Editing any
// table's data clears data_crc_valid and global_crc_valid").
func (s *Store) InvalidateGlobalCRC() {
	s.globalCRCValid = false
}

// GlobalCRC returns the cached global CRC and its validity.
func (s *Store) GlobalCRC() (uint32, bool) { return s.globalCRC, s.globalCRCValid }

// SetGlobalCRC stores a freshly computed global CRC and marks it valid.
func (s *Store) SetGlobalCRC(v uint32) {
	s.globalCRC = v
	s.globalCRCValid = true
}

// RequiredTablesPresent checks spec.md §3's required-table and
// dependency rules. Returns the missing table's name in the error on
// failure.
func (s *Store) RequiredTablesPresent() error {
	required := []BlockID{
		BlockL2Policing, BlockL2Forwarding, BlockL2ForwardingParameters,
		BlockMACConfiguration, BlockGeneralParameters, BlockXMIIModeParameters,
	}
	for _, id := range required {
		t, ok := s.Table(id)
		if !ok || !t.InUse {
			return &errcode.E{C: errcode.MissingTable, Op: "tablestore.RequiredTablesPresent", Msg: "missing " + NameOf(id)}
		}
	}
	if t, _ := s.Table(BlockL2Policing); t.Size == 0 {
		return &errcode.E{C: errcode.MissingTable, Op: "tablestore.RequiredTablesPresent", Msg: "l2_policing must be non-empty"}
	}
	if s.InUse(BlockSchedule) {
		if !s.InUse(BlockScheduleParameters) || !s.InUse(BlockScheduleEntryPointParameters) {
			return &errcode.E{C: errcode.MissingTable, Op: "tablestore.RequiredTablesPresent", Msg: "schedule requires schedule_parameters and schedule_entry_point_parameters"}
		}
	}
	if s.InUse(BlockVLForwarding) {
		if !s.InUse(BlockVLForwardingParameters) {
			return &errcode.E{C: errcode.MissingTable, Op: "tablestore.RequiredTablesPresent", Msg: "vl_forwarding requires vl_forwarding_parameters"}
		}
	}
	return nil
}

// SetWord writes word i of id's table and invalidates both that table's
// data CRC and the store's global CRC (spec.md §3: "editing any table's
// data clears data_crc_valid and global_crc_valid").
func (s *Store) SetWord(id BlockID, i uint32, v uint32) error {
	t, ok := s.Table(id)
	if !ok || !t.InUse {
		return &errcode.E{C: errcode.MissingTable, Op: "tablestore.SetWord", Msg: "no such in-use table " + NameOf(id)}
	}
	t.SetWord(i, v)
	s.globalCRCValid = false
	return nil
}

// CopyIn overwrites id's table data wholesale and invalidates both CRCs.
func (s *Store) CopyIn(id BlockID, words []uint32) error {
	t, ok := s.Table(id)
	if !ok || !t.InUse {
		return &errcode.E{C: errcode.MissingTable, Op: "tablestore.CopyIn", Msg: "no such in-use table " + NameOf(id)}
	}
	t.CopyIn(words)
	s.globalCRCValid = false
	return nil
}

// Arena returns the raw fixed-length arena backing store, for the
// static-config engine's unsafe bulk-write path (spec.md §4.2 "Write"
// step 4, else-branch: "stream the whole fixed-length arena").
func (s *Store) Arena() []uint32 { return s.arena }

// FirstFree is the current arena cursor.
func (s *Store) FirstFree() uint32 { return s.firstFree }
