// Package stats holds the driver's monotonic event counters (spec.md §3
// "Event counters"), each a plain atomic counter in the style of the
// teacher's ISR drop counter (services/hal/gpio_worker.go's
// atomic.AddUint32 on gpioIRQWorker.drops).
package stats

import "sync/atomic"

// Counters is shared by every subsystem that needs to record an event;
// the zero value is ready to use.
type Counters struct {
	staticConfUploads uint32
	wordsRead         uint64
	wordsWritten      uint64
	crcErrors         uint32
	mgmtFramesSent    uint32
	mgmtEntriesDropped uint32
	resets            uint32
}

func (c *Counters) IncStaticConfUploads()  { atomic.AddUint32(&c.staticConfUploads, 1) }
func (c *Counters) AddWordsRead(n uint32)  { atomic.AddUint64(&c.wordsRead, uint64(n)) }
func (c *Counters) AddWordsWritten(n uint32) { atomic.AddUint64(&c.wordsWritten, uint64(n)) }
func (c *Counters) IncCRCErrors()          { atomic.AddUint32(&c.crcErrors, 1) }
func (c *Counters) IncMgmtFramesSent()     { atomic.AddUint32(&c.mgmtFramesSent, 1) }
func (c *Counters) IncMgmtEntriesDropped() { atomic.AddUint32(&c.mgmtEntriesDropped, 1) }
func (c *Counters) IncResets()             { atomic.AddUint32(&c.resets, 1) }

// Snapshot is a point-in-time, non-atomic read of every counter.
type Snapshot struct {
	StaticConfUploads uint32
	WordsRead         uint64
	WordsWritten      uint64
	CRCErrors         uint32
	MgmtFramesSent    uint32
	MgmtEntriesDropped uint32
	Resets            uint32
}

func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		StaticConfUploads: atomic.LoadUint32(&c.staticConfUploads),
		WordsRead:         atomic.LoadUint64(&c.wordsRead),
		WordsWritten:      atomic.LoadUint64(&c.wordsWritten),
		CRCErrors:         atomic.LoadUint32(&c.crcErrors),
		MgmtFramesSent:    atomic.LoadUint32(&c.mgmtFramesSent),
		MgmtEntriesDropped: atomic.LoadUint32(&c.mgmtEntriesDropped),
		Resets:            atomic.LoadUint32(&c.resets),
	}
}
