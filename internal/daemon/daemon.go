package daemon

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hpcloud/tail"

	"github.com/Chichichkin/LogzioShipper/internal/logging"
)

// LogDaemonService tails *.log files under a root directory and ships every
// new line through the batch processor.
type LogDaemonService struct {
	config         Config
	batchProcessor logging.BatchProcessor
	logger         *slog.Logger
	fileQueue      chan string
	workersWg      sync.WaitGroup
	subServicesWg  sync.WaitGroup
	ctx            context.Context
	cancel         context.CancelFunc
	metrics        *LogDaemonMetrics

	// files currently tailed or queued, so a rescan does not tail twice
	activeMu sync.Mutex
	active   map[string]struct{}
}

type Config struct {
	LogRootPath     string
	ScanInterval    time.Duration
	Workers         int
	FileQueueSize   int
	NodeName        string
	MetricsInterval time.Duration
	// If > 0, stop tailing a file after this period without new lines
	FileIdleTimeout time.Duration
	// FromStart ships a file's existing content too, not only appended lines
	FromStart bool
}

func NewLogDaemonService(ctx context.Context, config Config, batchProcessor logging.BatchProcessor, logger *slog.Logger) *LogDaemonService {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.MetricsInterval <= 0 {
		config.MetricsInterval = 30 * time.Second
	}
	nCtx, cancel := context.WithCancel(ctx)

	return &LogDaemonService{
		config:         config,
		batchProcessor: batchProcessor,
		logger:         logger.With("component", "daemon"),
		fileQueue:      make(chan string, config.FileQueueSize),
		ctx:            nCtx,
		cancel:         cancel,
		metrics: &LogDaemonMetrics{
			FilesQueueCapacity: config.FileQueueSize,
		},
		active: make(map[string]struct{}),
	}
}

// Start runs Workers tailing goroutines plus the scanner and metrics reporter.
func (s *LogDaemonService) Start() {
	s.logger.Info("starting log daemon service",
		"workers", s.config.Workers, "queue_size", s.config.FileQueueSize, "root", s.config.LogRootPath)

	for i := 0; i < s.config.Workers; i++ {
		s.workersWg.Add(1)
		go s.worker(i)
	}

	s.subServicesWg.Add(2)
	go s.scanner()
	go s.metricsReporter()
}

func (s *LogDaemonService) Stop() {
	s.logger.Info("stopping log daemon service")
	s.cancel()

	s.subServicesWg.Wait()
	s.workersWg.Wait()

	s.logger.Info("log daemon service stopped")
}

func (s *LogDaemonService) Metrics() *LogDaemonMetrics {
	return s.metrics
}

func (s *LogDaemonService) worker(id int) {
	defer s.workersWg.Done()
	s.metrics.IncWorkersActive()
	defer s.metrics.DecWorkersActive()

	for {
		select {
		case filePath := <-s.fileQueue:
			s.metrics.DecAmountQueueFiles()
			s.metrics.IncWorkersBusy()
			s.processFile(s.ctx, filePath)
			s.metrics.DecWorkersBusy()
			s.release(filePath)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *LogDaemonService) processFile(ctx context.Context, filePath string) {
	defer s.metrics.IncFilesProcessed()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("file processing panicked", "file", filePath, "panic", r)
			s.metrics.IncFilesFailed()
		}
	}()

	whence := io.SeekEnd
	if s.config.FromStart {
		whence = io.SeekStart
	}

	t, err := tail.TailFile(filePath, tail.Config{
		Follow:   true,
		ReOpen:   true,
		Poll:     true,
		Location: &tail.SeekInfo{Offset: 0, Whence: whence},
		Logger:   tail.DiscardingLogger,
	})
	if err != nil {
		s.logger.Error("failed to tail file", "file", filePath, "error", err)
		s.metrics.IncFilesFailed()
		return
	}
	defer t.Cleanup()
	defer func() { _ = t.Stop() }()

	s.followLines(ctx, filePath, t.Lines, s.extractFields(filePath))
}

// followLines ships lines until the context ends, the file goes idle or the
// tail closes its channel.
func (s *LogDaemonService) followLines(ctx context.Context, filePath string, lines <-chan *tail.Line, fields map[string]string) {
	checkTicker := time.NewTicker(1 * time.Second)
	defer checkTicker.Stop()

	lastActivity := time.Now()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				s.logger.Warn("tail stopped", "file", filePath)
				return
			}
			if line == nil {
				continue
			}
			if line.Err != nil {
				s.logger.Warn("error reading file", "file", filePath, "error", line.Err)
				continue
			}

			s.batchProcessor.AddEntry(lineRecord(line.Text, line.Time, fields))
			s.metrics.IncLinesShipped()
			lastActivity = time.Now()

		case <-checkTicker.C:
			// waking up from blocking line reading to check context status and idle timeout
			if s.config.FileIdleTimeout > 0 && time.Since(lastActivity) > s.config.FileIdleTimeout {
				s.logger.Debug("file idle, releasing", "file", filePath)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func lineRecord(text string, at time.Time, fields map[string]string) logging.Record {
	record := make(logging.Record, len(fields)+2)
	for k, v := range fields {
		record[k] = v
	}
	record[logging.MessageKey] = text
	if at.IsZero() {
		at = time.Now()
	}
	record["@timestamp"] = at.UTC().Format(time.RFC3339Nano)
	return record
}

func (s *LogDaemonService) scanner() {
	defer s.subServicesWg.Done()

	s.scanFiles()

	ticker := time.NewTicker(s.config.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.scanFiles()

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *LogDaemonService) scanFiles() {
	files, err := s.discoverLogFiles()
	if err != nil {
		s.logger.Error("error discovering log files", "error", err)
		return
	}

	for _, file := range files {
		if !s.claim(file) {
			continue
		}
		s.metrics.IncFilesDiscovered()

		select {
		case s.fileQueue <- file:
			s.metrics.IncAmountQueueFiles()
		case <-s.ctx.Done():
			s.release(file)
			return
		default:
			s.release(file)
			s.logger.Warn("file queue full, skipping",
				"queued", len(s.fileQueue), "capacity", cap(s.fileQueue), "file", file)
		}
	}
}

func (s *LogDaemonService) claim(file string) bool {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	if _, ok := s.active[file]; ok {
		return false
	}
	s.active[file] = struct{}{}
	return true
}

func (s *LogDaemonService) release(file string) {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	delete(s.active, file)
}

func (s *LogDaemonService) metricsReporter() {
	defer s.subServicesWg.Done()

	ticker := time.NewTicker(s.config.MetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m := s.metrics.GetMetricsStamp()
			s.logger.Info("daemon metrics",
				"workers_active", m.WorkersActive,
				"workers_busy", m.WorkersBusy,
				"queued", m.QueuedFiles,
				"queue_usage_pct", int(s.metrics.GetQueueUsage()*100),
				"files_processed", m.FilesProcessed,
				"files_discovered", m.FilesDiscovered,
				"files_failed", m.FilesFailed,
				"lines_shipped", m.LinesShipped,
			)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *LogDaemonService) discoverLogFiles() ([]string, error) {
	var logFiles []string

	err := filepath.Walk(s.config.LogRootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			s.logger.Debug("error accessing path", "path", path, "error", err)
			return nil
		}

		if !info.IsDir() && strings.HasSuffix(info.Name(), ".log") {
			logFiles = append(logFiles, path)
		}
		return nil
	})

	return logFiles, err
}

// extractFields derives per-line fields from a kubelet pod log path:
// <root>/<namespace>_<pod>_<uid>/<container>/<n>.log
func (s *LogDaemonService) extractFields(filePath string) map[string]string {
	fields := map[string]string{
		"node": s.config.NodeName,
		"file": filepath.Base(filePath),
	}

	rel, err := filepath.Rel(s.config.LogRootPath, filePath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return fields
	}

	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) >= 2 {
		podParts := strings.Split(parts[0], "_")
		if len(podParts) >= 3 {
			fields["namespace"] = podParts[0]
			fields["pod"] = podParts[1]
			fields["pod_uid"] = podParts[2]
		}
		if len(parts) >= 3 {
			fields["container"] = parts[1]
		}
	}

	return fields
}
