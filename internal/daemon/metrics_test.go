package daemon

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDaemonMetrics_BasicOperations(t *testing.T) {
	metrics := &LogDaemonMetrics{}

	metrics.IncFilesDiscovered()
	metrics.IncFilesProcessed()
	metrics.IncFilesFailed()
	metrics.IncWorkersActive()
	metrics.IncWorkersBusy()
	metrics.IncLinesShipped()

	result := metrics.GetMetricsStamp()

	assert.Equal(t, 1, result.FilesDiscovered)
	assert.Equal(t, 1, result.FilesProcessed)
	assert.Equal(t, 1, result.FilesFailed)
	assert.Equal(t, 1, result.WorkersActive)
	assert.Equal(t, 1, result.WorkersBusy)
	assert.Equal(t, 1, result.LinesShipped)
}

func TestDaemonMetrics_QueueUsage(t *testing.T) {
	metrics := &LogDaemonMetrics{}
	assert.Equal(t, 0.0, metrics.GetQueueUsage())

	metrics.FilesQueueCapacity = 10
	for i := 0; i < 5; i++ {
		metrics.IncAmountQueueFiles()
	}
	assert.InDelta(t, 0.5, metrics.GetQueueUsage(), 1e-9)

	metrics.DecAmountQueueFiles()
	assert.InDelta(t, 0.4, metrics.GetQueueUsage(), 1e-9)
}

func TestDaemonMetrics_ConcurrentUpdates(t *testing.T) {
	metrics := &LogDaemonMetrics{FilesQueueCapacity: 1000}

	var wg sync.WaitGroup
	inc := func(fn func()) {
		for i := 0; i < 1000; i++ {
			fn()
		}
		wg.Done()
	}

	wg.Add(4)
	go inc(metrics.IncFilesDiscovered)
	go inc(metrics.IncFilesProcessed)
	go inc(metrics.IncLinesShipped)
	go inc(metrics.IncAmountQueueFiles)
	wg.Wait()

	stamp := metrics.GetMetricsStamp()
	assert.Equal(t, 1000, stamp.FilesDiscovered)
	assert.Equal(t, 1000, stamp.FilesProcessed)
	assert.Equal(t, 1000, stamp.LinesShipped)
	assert.InDelta(t, 1.0, metrics.GetQueueUsage(), 0.001)
}
