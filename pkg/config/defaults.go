package config

import (
	"time"

	"metro/internal/routing/fare"
	"metro/pkg/logger"
)

const (
	DefaultPort      = "8080"
	DefaultLogLevel  = logger.INFO
	DefaultLogFormat = logger.JSON

	DefaultTotalSeats = 200

	DefaultFareBase      = fare.DefaultBaseFare
	DefaultFarePerHop    = fare.DefaultPerHopFare
	DefaultMinutesPerHop = fare.DefaultPerHopMinutes

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 10 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultKafkaEnabled      = false
	DefaultKafkaBookingTopic = "metro.bookings"
	DefaultKafkaReleaseTopic = "metro.capacity.release"
	DefaultKafkaDLQTopic     = "metro.dlq"
	DefaultKafkaGroupID      = "metro-booking"
)
