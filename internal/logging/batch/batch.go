package batch

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Chichichkin/LogzioShipper/internal/logging"
	"github.com/Chichichkin/LogzioShipper/internal/logging/buffer"
)

// scheduleFunc runs f once after d. It is time.AfterFunc outside of tests.
type scheduleFunc func(d time.Duration, f func())

type Processor struct {
	ctx      context.Context
	sendCtx  context.Context
	sender   logging.LogSender
	config   logging.Config
	buffer   *buffer.Buffer
	reporter *reporter
	logger   *slog.Logger
	metrics  *Metrics
	schedule scheduleFunc
	nextID   atomic.Uint64
	stopCtx  context.CancelFunc
	timerWg  sync.WaitGroup
	flightWg sync.WaitGroup
	started  atomic.Bool
}

func NewBatchProcessor(ctx context.Context, sender logging.LogSender, config logging.Config, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	config = config.WithDefaults()

	nCtx, cancel := context.WithCancel(ctx)
	return &Processor{
		ctx:      nCtx,
		sendCtx:  context.WithoutCancel(ctx),
		sender:   sender,
		config:   config,
		buffer:   buffer.New(config.BufferSize),
		reporter: newReporter(config.OnResult, logger),
		logger:   logger,
		metrics:  &Metrics{},
		schedule: func(d time.Duration, f func()) { time.AfterFunc(d, f) },
		stopCtx:  cancel,
	}
}

// AddEntry normalizes entry and queues it. Reaching the buffer size flushes
// inline; the network send itself always happens on another goroutine.
func (bp *Processor) AddEntry(entry any) {
	record := logging.Normalize(entry, bp.config.ExtraFields, bp.config.LogType)
	bp.metrics.IncRecordsAppended()

	if bp.buffer.Append(record) >= bp.config.BufferSize {
		bp.logger.Debug("buffer is full, sending bulk", "size", bp.config.BufferSize)
		bp.Flush()
	}
}

// Flush drains the buffer into a new batch and starts its delivery.
func (bp *Processor) Flush() {
	records := bp.buffer.DrainAll()
	if len(records) == 0 {
		return
	}

	b := newBatch(bp.nextID.Add(1), records, bp.config.RetryBackoff)
	bp.metrics.IncBatchesFlushed()
	bp.logger.Debug("sending bulk", "bulk_id", b.ID, "records", len(b.Records))

	bp.flightWg.Add(1)
	go bp.attempt(b)
}

func (bp *Processor) Start() {
	if !bp.started.CompareAndSwap(false, true) {
		return
	}
	bp.timerWg.Add(1)
	go bp.batchTimer()
}

// Stop halts the timer, flushes what is left and waits until every batch in
// flight, pending retries included, has reported its result.
func (bp *Processor) Stop() {
	bp.stopCtx()
	bp.timerWg.Wait()
	bp.Flush()
	bp.flightWg.Wait()
}

func (bp *Processor) Pending() int {
	return bp.buffer.Len()
}

func (bp *Processor) Metrics() *Metrics {
	return bp.metrics
}

func (bp *Processor) batchTimer() {
	defer bp.timerWg.Done()

	ticker := time.NewTicker(bp.config.SendInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := bp.buffer.Len(); n > 0 {
				bp.logger.Debug("woke up with records to send", "records", n)
				bp.Flush()
			}
		case <-bp.ctx.Done():
			return
		}
	}
}
