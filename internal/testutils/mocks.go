package testutils

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Chichichkin/LogzioShipper/internal/logging"
)

var (
	ErrMockTimeout = errors.New("mock timeout")
	ErrMockRefused = errors.New("mock connection refused")
)

// MockLogSender records every body it receives. Scripted outcomes are
// consumed one per attempt; once exhausted every attempt succeeds, unless
// Fallback is set.
type MockLogSender struct {
	SentBodies [][]byte
	Script     []logging.Delivery
	Fallback   *logging.Delivery
	Delay      time.Duration
	mu         sync.Mutex
}

func (m *MockLogSender) SendBatch(ctx context.Context, body []byte) logging.Delivery {
	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.SentBodies = append(m.SentBodies, body)

	if len(m.Script) > 0 {
		next := m.Script[0]
		m.Script = m.Script[1:]
		return next
	}
	if m.Fallback != nil {
		return *m.Fallback
	}
	return Success()
}

func (m *MockLogSender) GetSentBodies() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.SentBodies))
	copy(out, m.SentBodies)
	return out
}

func (m *MockLogSender) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.SentBodies)
}

func Success() logging.Delivery {
	return logging.Delivery{Outcome: logging.OutcomeSuccess, StatusCode: 200}
}

func Timeout() logging.Delivery {
	return logging.Delivery{Outcome: logging.OutcomeRetryable, Err: ErrMockTimeout}
}

func Refused() logging.Delivery {
	return logging.Delivery{Outcome: logging.OutcomeFatal, Err: ErrMockRefused}
}

func Status(code int, body string) logging.Delivery {
	return logging.Delivery{
		Outcome:    logging.OutcomeFatal,
		StatusCode: code,
		Body:       body,
		Err:        &logging.StatusError{StatusCode: code, Body: body},
	}
}

// ResultRecorder is a logging.ResultHandler that keeps every reported result.
type ResultRecorder struct {
	mu      sync.Mutex
	results []error
	signal  chan struct{}
}

func NewResultRecorder() *ResultRecorder {
	return &ResultRecorder{signal: make(chan struct{}, 1)}
}

func (r *ResultRecorder) Handle(err error) {
	r.mu.Lock()
	r.results = append(r.results, err)
	r.mu.Unlock()

	select {
	case r.signal <- struct{}{}:
	default:
	}
}

func (r *ResultRecorder) Results() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]error, len(r.results))
	copy(out, r.results)
	return out
}

// WaitFor blocks until n results arrived in total or the timeout elapses.
func (r *ResultRecorder) WaitFor(n int, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		r.mu.Lock()
		got := len(r.results)
		r.mu.Unlock()
		if got >= n {
			return true
		}
		select {
		case <-r.signal:
		case <-deadline:
			return false
		}
	}
}

// MockBatchProcessor keeps every entry the daemon hands it.
type MockBatchProcessor struct {
	Entries []any
	mu      sync.Mutex
}

func (m *MockBatchProcessor) AddEntry(entry any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, entry)
}

func (m *MockBatchProcessor) Flush() {}
func (m *MockBatchProcessor) Start() {}
func (m *MockBatchProcessor) Stop()  {}

func (m *MockBatchProcessor) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Entries)
}

func (m *MockBatchProcessor) GetEntries() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]any, len(m.Entries))
	copy(out, m.Entries)
	return out
}

func CreateTempLogStructure(t *testing.T) string {
	tempDir := t.TempDir()

	structure := map[string]string{
		"default_pod-1_uid123/container-1/app.log":          "log content 1\nline 2\n",
		"default_pod-1_uid123/container-2/app.log":          "log content 2\nerror log\n",
		"kube-system_pod-2_uid456/container/app.log":        "log content 3\ninfo message\n",
		"default_pod-3_uid789/container/app.log":            "log content 4\n",
		"monitoring_pod-4_uid101/grafana/grafana.log":       "grafana starting\n",
		"monitoring_pod-4_uid101/prometheus/prometheus.log": "prometheus ready\n",
	}

	for path, content := range structure {
		fullPath := filepath.Join(tempDir, path)
		dir := filepath.Dir(fullPath)

		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("Failed to create directory %s: %v", dir, err)
		}

		if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write file %s: %v", fullPath, err)
		}
	}

	return tempDir
}
