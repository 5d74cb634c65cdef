package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"syscall"
	"time"

	"github.com/Chichichkin/LogzioShipper/internal/logging"
)

const (
	UserAgent = "logzio-go-shipper"

	DefaultHost      = "listener.logz.io"
	DefaultHTTPPort  = 8070
	DefaultHTTPSPort = 8071
)

type Sender struct {
	url        string
	httpClient *http.Client
	timeout    time.Duration
}

// NewHTTPSender posts bulks to url. A positive timeout bounds every attempt.
func NewHTTPSender(url string, timeout time.Duration) *Sender {
	return &Sender{
		url:        url,
		httpClient: &http.Client{},
		timeout:    timeout,
	}
}

// ListenerURL builds protocol://host:port?token=<token>.
func ListenerURL(protocol, host string, port int, token string) string {
	u := url.URL{
		Scheme:   protocol,
		Host:     net.JoinHostPort(host, strconv.Itoa(port)),
		RawQuery: url.Values{"token": []string{token}}.Encode(),
	}
	return u.String()
}

func DefaultPort(protocol string) int {
	if protocol == "https" {
		return DefaultHTTPSPort
	}
	return DefaultHTTPPort
}

func (s *Sender) SendBatch(ctx context.Context, body []byte) logging.Delivery {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return logging.Delivery{
			Outcome: logging.OutcomeFatal,
			Err:     fmt.Errorf("failed to create request: %w", err),
		}
	}

	req.ContentLength = int64(len(body))
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Content-Length", strconv.Itoa(len(body)))
	req.Header.Set("User-Agent", UserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return logging.Delivery{
			Outcome: Classify(err),
			Err:     fmt.Errorf("failed to send request: %w", err),
		}
	}
	defer resp.Body.Close()

	responseBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return logging.Delivery{
			Outcome:    logging.OutcomeFatal,
			StatusCode: resp.StatusCode,
			Body:       string(responseBody),
			Err:        &logging.StatusError{StatusCode: resp.StatusCode, Body: string(responseBody)},
		}
	}

	return logging.Delivery{
		Outcome:    logging.OutcomeSuccess,
		StatusCode: resp.StatusCode,
		Body:       string(responseBody),
	}
}

// Classify maps a transport error to retryable (timeouts and connection
// resets) or fatal. A connection closed before any response arrives, as a
// stale keep-alive does, counts as a reset.
func Classify(err error) logging.Outcome {
	if err == nil {
		return logging.OutcomeSuccess
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, syscall.ECONNRESET) {
		return logging.OutcomeRetryable
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return logging.OutcomeRetryable
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return logging.OutcomeRetryable
	}
	return logging.OutcomeFatal
}
