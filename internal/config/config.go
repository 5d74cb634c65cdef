// Package config holds the shipper configuration: YAML file first, then
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/Chichichkin/LogzioShipper/internal/logging"
)

type Config struct {
	Shipper  ShipperConfig  `yaml:"shipper"`
	Agent    AgentConfig    `yaml:"agent"`
	Listener ListenerConfig `yaml:"listener"`
	Logger   LoggerConfig   `yaml:"logger"`
}

type ShipperConfig struct {
	Token           string            `yaml:"token"`
	Protocol        string            `yaml:"protocol"`
	Host            string            `yaml:"host"`
	Port            int               `yaml:"port"`
	SendInterval    time.Duration     `yaml:"send_interval"`
	BufferSize      int               `yaml:"buffer_size"`
	NumberOfRetries int               `yaml:"number_of_retries"`
	RetryBackoff    time.Duration     `yaml:"retry_backoff"`
	Timeout         time.Duration     `yaml:"timeout"`
	LogType         string            `yaml:"log_type"`
	ExtraFields     map[string]any    `yaml:"extra_fields"`
	Debug           bool              `yaml:"debug"`
}

type AgentConfig struct {
	LogRootPath     string        `yaml:"log_root_path"`
	NodeName        string        `yaml:"node_name"`
	ScanInterval    time.Duration `yaml:"scan_interval"`
	Workers         int           `yaml:"workers"`
	FileQueueSize   int           `yaml:"file_queue_size"`
	FileIdleTimeout time.Duration `yaml:"file_idle_timeout"`
	MetricsInterval time.Duration `yaml:"metrics_interval"`
}

type ListenerConfig struct {
	Addr  string `yaml:"addr"`
	Token string `yaml:"token"`
}

type LoggerConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns a baseline development config.
func Default() Config {
	return Config{
		Shipper: ShipperConfig{
			Protocol:        "http",
			SendInterval:    logging.DefaultSendInterval,
			BufferSize:      logging.DefaultBufferSize,
			NumberOfRetries: logging.DefaultNumberOfRetries,
			RetryBackoff:    logging.DefaultRetryBackoff,
			LogType:         logging.DefaultLogType,
		},
		Agent: AgentConfig{
			LogRootPath:     "/var/log/pods",
			NodeName:        "unknown",
			ScanInterval:    30 * time.Second,
			Workers:         4,
			FileQueueSize:   50,
			FileIdleTimeout: 5 * time.Minute,
			MetricsInterval: 30 * time.Second,
		},
		Listener: ListenerConfig{
			Addr: ":8070",
		},
		Logger: LoggerConfig{
			Level: "INFO",
		},
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func (c Config) Validate() error {
	s := c.Shipper
	if s.Token == "" {
		return logging.ErrMissingToken
	}
	if s.Protocol != "" && s.Protocol != "http" && s.Protocol != "https" {
		return fmt.Errorf("%w: %q", logging.ErrInvalidProtocol, s.Protocol)
	}
	if s.BufferSize < 0 || s.NumberOfRetries < 0 || s.SendInterval < 0 || s.RetryBackoff < 0 || s.Timeout < 0 {
		return fmt.Errorf("shipper: negative size, retry count or duration")
	}
	if c.Agent.Workers < 0 || c.Agent.FileQueueSize < 0 {
		return fmt.Errorf("agent: negative workers or queue size")
	}
	return nil
}

func applyEnv(cfg *Config) {
	s := &cfg.Shipper
	s.Token = getEnv("LOGZIO_TOKEN", s.Token)
	s.Protocol = getEnv("LOGZIO_PROTOCOL", s.Protocol)
	s.Host = getEnv("LOGZIO_HOST", s.Host)
	s.Port = getEnvAsInt("LOGZIO_PORT", s.Port)
	s.SendInterval = getEnvAsDuration("SEND_INTERVAL", s.SendInterval)
	s.BufferSize = getEnvAsInt("BUFFER_SIZE", s.BufferSize)
	s.NumberOfRetries = getEnvAsInt("MAX_RETRIES", s.NumberOfRetries)
	s.RetryBackoff = getEnvAsDuration("RETRY_BACKOFF", s.RetryBackoff)
	s.Timeout = getEnvAsDuration("SEND_TIMEOUT", s.Timeout)
	s.LogType = getEnv("LOG_TYPE", s.LogType)
	s.Debug = getEnvAsBool("LOGZIO_DEBUG", s.Debug)

	a := &cfg.Agent
	a.LogRootPath = getEnv("LOG_PATH", a.LogRootPath)
	a.NodeName = getEnv("NODE_NAME", a.NodeName)
	a.ScanInterval = getEnvAsDuration("SCAN_INTERVAL", a.ScanInterval)
	a.Workers = getEnvAsInt("WORKERS", a.Workers)
	a.FileQueueSize = getEnvAsInt("QUEUE_SIZE", a.FileQueueSize)
	a.FileIdleTimeout = getEnvAsDuration("FILE_IDLE_TIMEOUT", a.FileIdleTimeout)

	cfg.Listener.Addr = getEnv("LISTENER_ADDR", cfg.Listener.Addr)
	cfg.Listener.Token = getEnv("LISTENER_TOKEN", cfg.Listener.Token)

	cfg.Logger.Level = getEnv("LOG_LEVEL", cfg.Logger.Level)
	cfg.Logger.JSON = getEnvAsBool("LOG_JSON", cfg.Logger.JSON)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.Atoi(value); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.ParseBool(value); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if result, err := time.ParseDuration(value); err == nil {
			return result
		}
	}
	return defaultValue
}
