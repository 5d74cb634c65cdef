// Package logzio ships application log records to a Logz.io style bulk
// listener. Records are buffered in memory and sent as newline-delimited JSON
// either when the buffer fills up or on a fixed interval. Timeouts and
// connection resets are retried with exponential backoff; every batch ends in
// exactly one call to Options.OnResult.
package logzio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/Chichichkin/LogzioShipper/internal/logging"
	"github.com/Chichichkin/LogzioShipper/internal/logging/batch"
	"github.com/Chichichkin/LogzioShipper/internal/logging/transport"
)

var (
	ErrMissingToken     = logging.ErrMissingToken
	ErrInvalidProtocol  = logging.ErrInvalidProtocol
	ErrRetriesExhausted = logging.ErrRetriesExhausted
	ErrUnexpectedStatus = logging.ErrUnexpectedStatus
)

type StatusError = logging.StatusError

type Options struct {
	// Token identifies the destination account. Required.
	Token string
	// Protocol is "http" (default) or "https".
	Protocol string
	Host     string
	// Port defaults to 8070 for http and 8071 for https.
	Port int

	SendInterval    time.Duration
	BufferSize      int
	NumberOfRetries int
	// RetryBackoff is the delay before the first retry; it doubles each time.
	RetryBackoff time.Duration
	// Timeout bounds each individual POST. Zero means no timeout.
	Timeout     time.Duration
	ExtraFields map[string]any
	LogType     string
	OnResult    func(err error)

	Debug  bool
	Logger *slog.Logger
}

type Logger struct {
	processor *batch.Processor
	url       string
	session   string
	logger    *slog.Logger
}

// New validates opts and starts the flush timer.
func New(opts Options) (*Logger, error) {
	if opts.Token == "" {
		return nil, ErrMissingToken
	}
	if opts.Protocol == "" {
		opts.Protocol = "http"
	}
	if opts.Protocol != "http" && opts.Protocol != "https" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProtocol, opts.Protocol)
	}
	if opts.BufferSize < 0 || opts.NumberOfRetries < 0 || opts.SendInterval < 0 || opts.Timeout < 0 {
		return nil, fmt.Errorf("logzio: negative buffer size, retry count or duration")
	}
	if opts.Host == "" {
		opts.Host = transport.DefaultHost
	}
	if opts.Port == 0 {
		opts.Port = transport.DefaultPort(opts.Protocol)
	}

	session := uuid.NewString()
	logger := opts.Logger
	if logger == nil {
		level := slog.LevelInfo
		if opts.Debug {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}
	logger = logger.With("component", "logzio", "session", session)

	url := transport.ListenerURL(opts.Protocol, opts.Host, opts.Port, opts.Token)
	sender := transport.NewHTTPSender(url, opts.Timeout)

	processor := batch.NewBatchProcessor(context.Background(), sender, logging.Config{
		BufferSize:      opts.BufferSize,
		SendInterval:    opts.SendInterval,
		NumberOfRetries: opts.NumberOfRetries,
		RetryBackoff:    opts.RetryBackoff,
		LogType:         opts.LogType,
		ExtraFields:     opts.ExtraFields,
		OnResult:        opts.OnResult,
	}, logger)
	processor.Start()

	logger.Debug("logger created", "host", opts.Host, "port", opts.Port, "protocol", opts.Protocol)

	return &Logger{
		processor: processor,
		url:       url,
		session:   session,
		logger:    logger,
	}, nil
}

// Log queues msg. Strings become {"message": msg}; maps and structs keep
// their fields. It never blocks on the network.
func (l *Logger) Log(msg any) {
	l.processor.AddEntry(msg)
}

// Flush sends whatever is buffered without waiting for the timer.
func (l *Logger) Flush() {
	l.processor.Flush()
}

// Close stops the timer, sends the remaining records and waits for every
// batch to report, or for ctx to expire.
func (l *Logger) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		l.processor.Stop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("logzio: close: %w", ctx.Err())
	}
}

func (l *Logger) Metrics() batch.Metrics {
	return l.processor.Metrics().GetMetricsStamp()
}

// Session is a random id attached to this logger's own diagnostics.
func (l *Logger) Session() string {
	return l.session
}

func (l *Logger) URL() string {
	return l.url
}
