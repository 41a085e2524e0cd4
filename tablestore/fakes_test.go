package tablestore

import "github.com/jangala-dev/sja1105-go/caps"

// fakeBlock is a simple []uint32-backed caps.Block.
type fakeBlock struct {
	words []uint32
	freed bool
}

func (b *fakeBlock) Len() uint32        { return uint32(len(b.words)) }
func (b *fakeBlock) Word(i uint32) *uint32 { return &b.words[i] }

// fakeAllocator hands out fakeBlocks and tracks frees, mirroring the
// bump-allocator fakes used for caps.Allocator elsewhere in the driver.
type fakeAllocator struct {
	allocs    []*fakeBlock
	failAfter int // -1 = never fail
}

func newFakeAllocator() *fakeAllocator { return &fakeAllocator{failAfter: -1} }

func (a *fakeAllocator) Alloc(sizeWords uint32) (caps.Block, error) {
	if a.failAfter == 0 {
		return nil, errAllocExhausted
	}
	if a.failAfter > 0 {
		a.failAfter--
	}
	b := &fakeBlock{words: make([]uint32, sizeWords)}
	a.allocs = append(a.allocs, b)
	return b, nil
}

func (a *fakeAllocator) Free(b caps.Block) error {
	fb := b.(*fakeBlock)
	fb.freed = true
	return nil
}

func (a *fakeAllocator) FreeAll() {
	for _, b := range a.allocs {
		b.freed = true
	}
}

type simpleErr string

func (e simpleErr) Error() string { return string(e) }

var errAllocExhausted = simpleErr("alloc exhausted")

// fakeCRC32 is a trivial multiply-add checksum (acc*31 + byte), good enough to exercise the
// store's CRC bookkeeping without depending on a real polynomial.
type fakeCRC32 struct {
	acc uint32
}

func (f *fakeCRC32) Reset() { f.acc = 0 }
func (f *fakeCRC32) Accumulate(buf []byte) uint32 {
	for _, b := range buf {
		f.acc = f.acc*31 + uint32(b)
	}
	return f.acc
}
