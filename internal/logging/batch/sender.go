package batch

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Chichichkin/LogzioShipper/internal/logging"
	"github.com/Chichichkin/LogzioShipper/internal/logging/wire"
)

type State int

const (
	StatePending State = iota
	StateSending
	StateRetryWaiting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSending:
		return "sending"
	case StateRetryWaiting:
		return "retry_waiting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Batch is the snapshot of records taken at one flush. Only Attempt, Backoff
// and State change between retries.
type Batch struct {
	ID      uint64
	Records []logging.Record
	Attempt int
	Backoff time.Duration
	State   State

	body     []byte
	reported atomic.Bool
}

func newBatch(id uint64, records []logging.Record, backoff time.Duration) *Batch {
	return &Batch{
		ID:      id,
		Records: records,
		Attempt: 1,
		Backoff: backoff,
		State:   StatePending,
	}
}

// Body is the serialized request body, built on the first attempt and reused
// by every retry.
func (b *Batch) Body() []byte {
	if b.body == nil {
		b.body = wire.Body(b.Records)
	}
	return b.body
}

func (bp *Processor) attempt(b *Batch) {
	defer func() {
		if r := recover(); r != nil {
			bp.fail(b, fmt.Errorf("bulk #%d: sending panicked: %v", b.ID, r))
		}
	}()

	body := b.Body()
	b.State = StateSending

	delivery := bp.sender.SendBatch(bp.sendCtx, body)

	switch delivery.Outcome {
	case logging.OutcomeSuccess:
		b.State = StateSucceeded
		bp.metrics.IncBatchesSucceeded()
		bp.metrics.AddRecordsSent(len(b.Records))
		bp.logger.Debug("bulk sent successfully", "bulk_id", b.ID, "attempt", b.Attempt)
		bp.reporter.report(b, nil)
		bp.flightWg.Done()

	case logging.OutcomeRetryable:
		if b.Attempt > bp.config.NumberOfRetries {
			bp.fail(b, fmt.Errorf("%w: failed after %d attempts on error = %w",
				logging.ErrRetriesExhausted, b.Attempt, causeOf(delivery)))
			return
		}

		wait := b.Backoff
		b.Backoff *= 2
		b.Attempt++
		b.State = StateRetryWaiting
		bp.metrics.IncRetries()
		bp.logger.Debug("trying again",
			"bulk_id", b.ID, "in", wait, "attempt", b.Attempt, "error", delivery.Err)

		bp.schedule(wait, func() { bp.attempt(b) })

	default:
		bp.fail(b, causeOf(delivery))
	}
}

func (bp *Processor) fail(b *Batch, err error) {
	b.State = StateFailed
	bp.metrics.IncBatchesFailed()
	bp.reporter.report(b, err)
	bp.flightWg.Done()
}

func causeOf(d logging.Delivery) error {
	if d.Err != nil {
		return d.Err
	}
	if d.StatusCode != 0 {
		return &logging.StatusError{StatusCode: d.StatusCode, Body: d.Body}
	}
	return errors.New(d.Outcome.String() + " delivery")
}
