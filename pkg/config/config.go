package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"metro/pkg/logger"
)

type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	NetworkFile string
	TotalSeats  int

	FareBase      int
	FarePerHop    int
	MinutesPerHop int

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	KafkaEnabled      bool
	KafkaBookingTopic string
	KafkaReleaseTopic string
	KafkaDLQTopic     string
	KafkaGroupID      string

	Log *logger.Logger
}

// Load reads the configuration from the environment and exits the process
// if it is invalid.
func Load(serviceName string) *Config {
	cfg, err := New(serviceName)
	if err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// New reads the configuration from the environment. The returned Config
// always carries a usable logger, even alongside a validation error.
func New(serviceName string) (*Config, error) {
	cfg := &Config{
		Port:      getEnvStr(EnvPort, DefaultPort),
		LogLevel:  getEnvStr(EnvLogLevel, DefaultLogLevel),
		LogFormat: getEnvStr(EnvLogFormat, DefaultLogFormat),

		NetworkFile: getEnvStr(EnvNetworkFile, ""),
		TotalSeats:  getEnvNum(EnvTotalSeats, DefaultTotalSeats),

		FareBase:      getEnvNum(EnvFareBase, DefaultFareBase),
		FarePerHop:    getEnvNum(EnvFarePerHop, DefaultFarePerHop),
		MinutesPerHop: getEnvNum(EnvMinutesPerHop, DefaultMinutesPerHop),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		KafkaEnabled:      getEnvBool(EnvKafkaEnabled, DefaultKafkaEnabled),
		KafkaBookingTopic: getEnvStr(EnvKafkaBookingTopic, DefaultKafkaBookingTopic),
		KafkaReleaseTopic: getEnvStr(EnvKafkaReleaseTopic, DefaultKafkaReleaseTopic),
		KafkaDLQTopic:     getEnvStr(EnvKafkaDLQTopic, DefaultKafkaDLQTopic),
		KafkaGroupID:      getEnvStr(EnvKafkaGroupID, DefaultKafkaGroupID),
	}

	cfg.Log = logger.New(logger.Config{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		AddSource: true,
		Service:   serviceName,
	})

	return cfg, cfg.Validate()
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}
	if !logger.ValidLevel(cfg.LogLevel) {
		errors = append(errors, fmt.Sprintf("LogLevel must be one of [debug, info, warn, error], got: %s", cfg.LogLevel))
	}
	if f := strings.ToLower(cfg.LogFormat); f != logger.JSON && f != logger.TEXT {
		errors = append(errors, fmt.Sprintf("LogFormat must be json or text, got: %s", cfg.LogFormat))
	}

	if cfg.NetworkFile != "" {
		if _, err := os.Stat(cfg.NetworkFile); err != nil {
			errors = append(errors, fmt.Sprintf("NetworkFile is not readable: %v", err))
		}
	}
	if cfg.TotalSeats < 0 {
		errors = append(errors, fmt.Sprintf("TotalSeats cannot be negative, got: %d", cfg.TotalSeats))
	}

	if cfg.FareBase < 0 {
		errors = append(errors, fmt.Sprintf("FareBase cannot be negative, got: %d", cfg.FareBase))
	}
	if cfg.FarePerHop < 0 {
		errors = append(errors, fmt.Sprintf("FarePerHop cannot be negative, got: %d", cfg.FarePerHop))
	}
	if cfg.MinutesPerHop <= 0 {
		errors = append(errors, fmt.Sprintf("MinutesPerHop must be positive, got: %d", cfg.MinutesPerHop))
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"RateLimitWindow", cfg.RateLimitWindow},
		{"RequestTimeout", cfg.RequestTimeout},
		{"IdempotencyTTL", cfg.IdempotencyTTL},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
	} {
		if d.value <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", d.name, d.value))
		}
	}
	if cfg.RequestTimeout >= cfg.WriteTimeout {
		errors = append(errors, fmt.Sprintf("RequestTimeout (%s) must be shorter than WriteTimeout (%s)", cfg.RequestTimeout, cfg.WriteTimeout))
	}

	if cfg.KafkaEnabled {
		if cfg.KafkaBookingTopic == "" {
			errors = append(errors, "KafkaBookingTopic cannot be empty when Kafka is enabled")
		}
		if cfg.KafkaReleaseTopic == "" {
			errors = append(errors, "KafkaReleaseTopic cannot be empty when Kafka is enabled")
		}
		if cfg.KafkaGroupID == "" {
			errors = append(errors, "KafkaGroupID cannot be empty when Kafka is enabled")
		}
		if cfg.KafkaDLQTopic != "" && (cfg.KafkaDLQTopic == cfg.KafkaBookingTopic || cfg.KafkaDLQTopic == cfg.KafkaReleaseTopic) {
			errors = append(errors, fmt.Sprintf("KafkaDLQTopic must differ from the booking and release topics, got: %s", cfg.KafkaDLQTopic))
		}
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"port", cfg.Port,
		"log_level", cfg.LogLevel,
		"log_format", cfg.LogFormat,
		"network_file", cfg.NetworkFile,
		"total_seats", cfg.TotalSeats,
		"fare_base", cfg.FareBase,
		"fare_per_hop", cfg.FarePerHop,
		"minutes_per_hop", cfg.MinutesPerHop,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"kafka_enabled", cfg.KafkaEnabled,
		"kafka_booking_topic", cfg.KafkaBookingTopic,
		"kafka_release_topic", cfg.KafkaReleaseTopic,
		"kafka_dlq_topic", cfg.KafkaDLQTopic,
		"kafka_group_id", cfg.KafkaGroupID,
	)
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
