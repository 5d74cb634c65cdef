package logging

import (
	"context"
	"time"
)

// Record is one normalized log entry. It always carries a "type" field.
type Record map[string]any

const (
	TypeKey    = "type"
	MessageKey = "message"
)

type BatchProcessor interface {
	AddEntry(entry any)
	Flush()
	Start()
	Stop()
}

type LogSender interface {
	SendBatch(ctx context.Context, body []byte) Delivery
}

// ResultHandler receives the terminal outcome of a batch: nil on success.
type ResultHandler func(err error)

type Config struct {
	BufferSize      int
	SendInterval    time.Duration
	NumberOfRetries int
	RetryBackoff    time.Duration
	LogType         string
	ExtraFields     map[string]any
	OnResult        ResultHandler
}

const (
	DefaultBufferSize      = 100
	DefaultSendInterval    = 10 * time.Second
	DefaultNumberOfRetries = 3
	DefaultRetryBackoff    = 2 * time.Second
	DefaultLogType         = "generic"
)

// WithDefaults fills zero values with the package defaults.
func (c Config) WithDefaults() Config {
	if c.BufferSize <= 0 {
		c.BufferSize = DefaultBufferSize
	}
	if c.SendInterval <= 0 {
		c.SendInterval = DefaultSendInterval
	}
	if c.NumberOfRetries <= 0 {
		c.NumberOfRetries = DefaultNumberOfRetries
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = DefaultRetryBackoff
	}
	if c.LogType == "" {
		c.LogType = DefaultLogType
	}
	return c
}
