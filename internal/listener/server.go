// Package listener is a small bulk ingestion endpoint for local development
// and end-to-end tests. It accepts the same NDJSON bulks the shipper sends.
package listener

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/segmentio/encoding/json"

	"github.com/Chichichkin/LogzioShipper/internal/logging"
)

const (
	contentTypeText        = "text/plain"
	defaultShutdownTimeout = 5 * time.Second
	maxBulkBytes           = 10 << 20
)

type Stats struct {
	Bulks    int
	Records  int
	Rejected int
}

// Server keeps every accepted record in memory.
type Server struct {
	token      string
	logger     *slog.Logger
	httpServer *http.Server

	mu      sync.Mutex
	records []logging.Record
	stats   Stats
	// failNext makes the next n bulks answer with failStatus
	failNext   int
	failStatus int
}

func NewServer(addr, token string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		token:  token,
		logger: logger,
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/", s.handleBulk)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return r
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listener started", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// FailNext makes the next n bulks fail with status.
func (s *Server) FailNext(n, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
	s.failStatus = status
}

func (s *Server) Records() []logging.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]logging.Record, len(s.records))
	copy(out, s.records)
	return out
}

func (s *Server) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request) {
	if s.token != "" && r.URL.Query().Get("token") != s.token {
		s.reject(w, http.StatusUnauthorized, "invalid token")
		return
	}

	if status, ok := s.takeFailure(); ok {
		s.reject(w, status, "injected failure")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBulkBytes))
	if err != nil {
		s.reject(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}

	records, err := parseBulk(body)
	if err != nil {
		s.reject(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	s.records = append(s.records, records...)
	s.stats.Bulks++
	s.stats.Records += len(records)
	s.mu.Unlock()

	s.logger.Debug("bulk accepted", "records", len(records), "bytes", len(body))
	w.WriteHeader(http.StatusOK)
}

func (s *Server) takeFailure() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext <= 0 {
		return 0, false
	}
	s.failNext--
	return s.failStatus, true
}

func (s *Server) reject(w http.ResponseWriter, status int, msg string) {
	s.mu.Lock()
	s.stats.Rejected++
	s.mu.Unlock()

	s.logger.Warn("bulk rejected", "status", status, "reason", msg)
	w.Header().Set("Content-Type", contentTypeText)
	w.WriteHeader(status)
	_, _ = io.WriteString(w, msg)
}

func parseBulk(body []byte) ([]logging.Record, error) {
	var records []logging.Record

	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 64*1024), maxBulkBytes)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var record logging.Record
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, errors.New("malformed line: " + err.Error())
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
