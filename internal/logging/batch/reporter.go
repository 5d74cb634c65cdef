package batch

import (
	"fmt"
	"log/slog"

	"github.com/Chichichkin/LogzioShipper/internal/logging"
)

type reporter struct {
	handler logging.ResultHandler
	logger  *slog.Logger
}

func newReporter(handler logging.ResultHandler, logger *slog.Logger) *reporter {
	r := &reporter{
		handler: handler,
		logger:  logger,
	}
	if r.handler == nil {
		r.handler = r.defaultHandler
	}
	return r
}

// report hands the terminal result of b to the handler, once per batch.
func (r *reporter) report(b *Batch, err error) {
	if !b.reported.CompareAndSwap(false, true) {
		r.logger.Warn("result already reported", "bulk_id", b.ID)
		return
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("result handler panicked", "bulk_id", b.ID, "panic", fmt.Sprint(p))
		}
	}()
	r.handler(err)
}

func (r *reporter) defaultHandler(err error) {
	if err != nil {
		r.logger.Error("logzio-logger error", "error", err)
	}
}
