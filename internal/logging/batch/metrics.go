package batch

import (
	"sync"
)

type Metrics struct {
	RecordsAppended  int
	RecordsSent      int
	BatchesFlushed   int
	BatchesSucceeded int
	BatchesFailed    int
	Retries          int
	mu               sync.RWMutex
}

func (m *Metrics) IncRecordsAppended() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RecordsAppended++
}

func (m *Metrics) AddRecordsSent(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RecordsSent += n
}

func (m *Metrics) IncBatchesFlushed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BatchesFlushed++
}

func (m *Metrics) IncBatchesSucceeded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BatchesSucceeded++
}

func (m *Metrics) IncBatchesFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BatchesFailed++
}

func (m *Metrics) IncRetries() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Retries++
}

func (m *Metrics) GetMetricsStamp() Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Metrics{
		RecordsAppended:  m.RecordsAppended,
		RecordsSent:      m.RecordsSent,
		BatchesFlushed:   m.BatchesFlushed,
		BatchesSucceeded: m.BatchesSucceeded,
		BatchesFailed:    m.BatchesFailed,
		Retries:          m.Retries,
	}
}

// InFlight is the number of flushed batches that have not reported yet.
func (m *Metrics) InFlight() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.BatchesFlushed - m.BatchesSucceeded - m.BatchesFailed
}
