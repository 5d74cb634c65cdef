package logzio

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chichichkin/LogzioShipper/internal/listener"
	"github.com/Chichichkin/LogzioShipper/internal/testutils"
)

func startListener(t *testing.T, token string) (*listener.Server, string, int) {
	t.Helper()

	s := listener.NewServer("", token, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	u, err := url.Parse(ts.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	return s, host, port
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{})
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = New(Options{Token: "t", Protocol: "udp"})
	assert.ErrorIs(t, err, ErrInvalidProtocol)

	_, err = New(Options{Token: "t", BufferSize: -1})
	assert.Error(t, err)
}

func TestNew_DefaultURL(t *testing.T) {
	l, err := New(Options{Token: "abc", Logger: quietLogger()})
	require.NoError(t, err)
	defer l.Close(context.Background())

	assert.Equal(t, "http://listener.logz.io:8070?token=abc", l.URL())
	assert.NotEmpty(t, l.Session())

	s, err := New(Options{Token: "abc", Protocol: "https", Logger: quietLogger()})
	require.NoError(t, err)
	defer s.Close(context.Background())
	assert.Equal(t, "https://listener.logz.io:8071?token=abc", s.URL())
}

func TestLogger_EndToEnd(t *testing.T) {
	srv, host, port := startListener(t, "secret")
	results := testutils.NewResultRecorder()

	l, err := New(Options{
		Token:        "secret",
		Host:         host,
		Port:         port,
		BufferSize:   2,
		SendInterval: time.Hour,
		LogType:      "e2e",
		ExtraFields:  map[string]any{"service": "checkout"},
		OnResult:     results.Handle,
		Logger:       quietLogger(),
	})
	require.NoError(t, err)

	l.Log("hello")
	l.Log(map[string]any{"message": "world", "type": "ignored"})
	l.Log("tail")

	require.True(t, results.WaitFor(1, 2*time.Second))
	require.NoError(t, l.Close(context.Background()))

	records := srv.Records()
	require.Len(t, records, 3)
	assert.Equal(t, "hello", records[0]["message"])
	assert.Equal(t, "world", records[1]["message"])
	assert.Equal(t, "tail", records[2]["message"])
	for _, r := range records {
		assert.Equal(t, "e2e", r["type"])
		assert.Equal(t, "checkout", r["service"])
	}

	assert.Equal(t, []error{nil, nil}, results.Results())
	m := l.Metrics()
	assert.Equal(t, 3, m.RecordsSent)
	assert.Equal(t, 2, m.BatchesSucceeded)
}

func TestLogger_WrongTokenReportsStatusError(t *testing.T) {
	_, host, port := startListener(t, "secret")
	results := testutils.NewResultRecorder()

	l, err := New(Options{
		Token:        "wrong",
		Host:         host,
		Port:         port,
		SendInterval: time.Hour,
		OnResult:     results.Handle,
		Logger:       quietLogger(),
	})
	require.NoError(t, err)

	l.Log("denied")
	l.Flush()
	require.True(t, results.WaitFor(1, 2*time.Second))
	require.NoError(t, l.Close(context.Background()))

	got := results.Results()
	require.Len(t, got, 1)
	var statusErr *StatusError
	require.True(t, errors.As(got[0], &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Equal(t, 0, l.Metrics().Retries)
}

func TestLogger_TimeoutRetriedThenExhausted(t *testing.T) {
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-time.After(time.Second):
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer slow.Close()
	defer close(release)

	u, err := url.Parse(slow.URL)
	require.NoError(t, err)
	host, portStr, _ := net.SplitHostPort(u.Host)
	port, _ := strconv.Atoi(portStr)

	results := testutils.NewResultRecorder()
	l, err := New(Options{
		Token:           "t",
		Host:            host,
		Port:            port,
		SendInterval:    time.Hour,
		NumberOfRetries: 2,
		RetryBackoff:    5 * time.Millisecond,
		Timeout:         20 * time.Millisecond,
		OnResult:        results.Handle,
		Logger:          quietLogger(),
	})
	require.NoError(t, err)

	l.Log("slow")
	l.Flush()
	require.True(t, results.WaitFor(1, 3*time.Second))
	require.NoError(t, l.Close(context.Background()))

	got := results.Results()
	require.Len(t, got, 1)
	assert.ErrorIs(t, got[0], ErrRetriesExhausted)
	assert.Contains(t, got[0].Error(), "3 attempts")
	assert.Equal(t, 2, l.Metrics().Retries)
}

func TestLogger_CloseHonorsContext(t *testing.T) {
	blocked := make(chan struct{})
	stuck := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
		w.WriteHeader(http.StatusOK)
	}))
	defer stuck.Close()
	defer close(blocked)

	u, err := url.Parse(stuck.URL)
	require.NoError(t, err)
	host, portStr, _ := net.SplitHostPort(u.Host)
	port, _ := strconv.Atoi(portStr)

	l, err := New(Options{Token: "t", Host: host, Port: port, SendInterval: time.Hour, Logger: quietLogger()})
	require.NoError(t, err)

	l.Log("never answered")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Close(ctx), context.DeadlineExceeded)
}
