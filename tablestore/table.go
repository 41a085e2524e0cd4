package tablestore

import "github.com/jangala-dev/sja1105-go/caps"

// storage abstracts over the two backing stores a table's data words can
// live in: a slice of the fixed-length arena, or a caps.Allocator block
// for variable-length tables (spec.md §3 "Table store").
type storage interface {
	Len() uint32
	Get(i uint32) uint32
	Set(i uint32, v uint32)
}

type arenaView struct {
	arena  []uint32
	offset uint32
	size   uint32
}

func (a arenaView) Len() uint32 { return a.size }
func (a arenaView) Get(i uint32) uint32 {
	return a.arena[a.offset+i]
}
func (a arenaView) Set(i uint32, v uint32) {
	a.arena[a.offset+i] = v
}

type blockView struct {
	b caps.Block
}

func (v blockView) Len() uint32 { return v.b.Len() }
func (v blockView) Get(i uint32) uint32 {
	return *v.b.Word(i)
}
func (v blockView) Set(i uint32, val uint32) {
	*v.b.Word(i) = val
}

// Table is one typed block of the static-configuration mirror (spec.md §3
// "Table"). Zero value is an empty, not-in-use table.
type Table struct {
	ID           BlockID
	Size         uint32 // words of data
	HeaderCRC    uint32
	DataCRC      uint32
	InUse        bool
	DataCRCValid bool

	data  storage
	block caps.Block // non-nil only for variable-length tables, for Free
}

// Word returns data word i. Writes go through SetWord, which clears the
// data-CRC validity flag.
func (t *Table) Word(i uint32) uint32 {
	return t.data.Get(i)
}

// SetWord writes word i and clears the data-CRC validity flag, per
// spec.md §3's invariant "editing any table's data clears data_crc_valid
// and global_crc_valid" (global invalidation is the store's job, see
// Store.SetWord and Store.InvalidateGlobalCRC).
func (t *Table) SetWord(i uint32, v uint32) {
	t.data.Set(i, v)
	t.DataCRCValid = false
}

// CopyIn overwrites the table's data from src (len(src) must equal
// t.Size) and clears data-CRC validity.
func (t *Table) CopyIn(src []uint32) {
	for i, v := range src {
		t.data.Set(uint32(i), v)
	}
	t.DataCRCValid = false
}

// CopyOut returns a fresh copy of the table's data words.
func (t *Table) CopyOut() []uint32 {
	out := make([]uint32, t.Size)
	for i := range out {
		out[i] = t.data.Get(uint32(i))
	}
	return out
}
