package config

const (
	EnvPort      = "PORT"
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"

	EnvNetworkFile = "NETWORK_FILE"
	EnvTotalSeats  = "TOTAL_SEATS"

	EnvFareBase      = "FARE_BASE"
	EnvFarePerHop    = "FARE_PER_HOP"
	EnvMinutesPerHop = "MINUTES_PER_HOP"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvKafkaEnabled      = "KAFKA_ENABLED"
	EnvKafkaBookingTopic = "KAFKA_BOOKING_TOPIC"
	EnvKafkaReleaseTopic = "KAFKA_RELEASE_TOPIC"
	EnvKafkaDLQTopic     = "KAFKA_DLQ_TOPIC"
	EnvKafkaGroupID      = "KAFKA_GROUP_ID"
)
