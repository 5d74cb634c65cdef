package buffer

import (
	"sync"

	"github.com/Chichichkin/LogzioShipper/internal/logging"
)

// Buffer is the ordered queue of records waiting for the next flush.
// All methods are safe for concurrent use.
type Buffer struct {
	mu      sync.Mutex
	records []logging.Record
	hint    int
}

func New(capacityHint int) *Buffer {
	if capacityHint < 0 {
		capacityHint = 0
	}
	return &Buffer{
		records: make([]logging.Record, 0, capacityHint),
		hint:    capacityHint,
	}
}

// Append adds record to the tail and returns the new size.
func (b *Buffer) Append(record logging.Record) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.records = append(b.records, record)
	return len(b.records)
}

// DrainAll detaches every held record and leaves the buffer empty.
// It returns nil when there is nothing to drain.
func (b *Buffer) DrainAll() []logging.Record {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.records) == 0 {
		return nil
	}

	drained := b.records
	b.records = make([]logging.Record, 0, b.hint)
	return drained
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}
