// Package config provides configuration structures and validation for the
// decision ledger services. It handles environment-based configuration for the
// ledger RPC connection, retry policy, HTTP server, message intake, and the
// derived stores (counter cache, audit mirror).
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete application configuration. Each field represents a
// major subsystem (ledger transport, HTTP server, Kafka intake, derived
// stores) and is validated during startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Ledger      LedgerConfig
	Counter     CounterConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	WorkerPool  WorkerPoolConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// LedgerConfig contains the ledger RPC connection and submission policy.
// SigningKey is the hex-encoded ed25519 seed of the caller-held credential;
// the services never manage or rotate it.
type LedgerConfig struct {
	RPCURL              string
	SigningKey          string
	RequestTimeout      time.Duration // Per RPC round trip
	ConfirmTimeout      time.Duration // Overall wait for a submission to confirm
	ConfirmPollInterval time.Duration
	MaxAttempts         int // Submission retry ceiling
	RetryBaseDelay      time.Duration
	RetryMaxDelay       time.Duration
}

// CounterConfig contains the read-cache settings for the decision counter
type CounterConfig struct {
	CacheTTL time.Duration // Freshness window for the cached total
}

// KafkaConfig contains decision-event intake configuration
type KafkaConfig struct {
	Brokers           string
	DecisionTopic     string
	NumPartitions     int // Number of partitions for topics
	ReplicationFactor int // Replication factor for topics
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	StartOffset       int64
	DLQTopic          string // Topic for events that can never be recorded
}

// PostgresConfig contains PostgreSQL configuration for the shared counter cache
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// MongoDBConfig contains MongoDB configuration for the audit mirror
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// WorkerPoolConfig contains ingest worker pool configuration
type WorkerPoolConfig struct {
	Size int // Maximum number of workers in the pool
}

// validate performs comprehensive validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
func (c *Config) validate() error {
	var validationErrors []string

	// Validate Server config
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Validate Ledger config
	if c.Ledger.RPCURL == "" {
		validationErrors = append(validationErrors, "LEDGER_RPC_URL is required")
	}
	if c.Ledger.SigningKey == "" {
		validationErrors = append(validationErrors, "LEDGER_SIGNING_KEY is required")
	}
	if c.Ledger.RequestTimeout <= 0 {
		validationErrors = append(validationErrors, "LEDGER_REQUEST_TIMEOUT must be greater than 0")
	}
	if c.Ledger.ConfirmTimeout <= 0 {
		validationErrors = append(validationErrors, "LEDGER_CONFIRM_TIMEOUT must be greater than 0")
	}
	if c.Ledger.ConfirmPollInterval <= 0 {
		validationErrors = append(validationErrors, "LEDGER_CONFIRM_POLL_INTERVAL must be greater than 0")
	}
	if c.Ledger.MaxAttempts <= 0 {
		validationErrors = append(validationErrors, "LEDGER_MAX_ATTEMPTS must be greater than 0")
	}
	if c.Ledger.RetryBaseDelay <= 0 {
		validationErrors = append(validationErrors, "LEDGER_RETRY_BASE_DELAY must be greater than 0")
	}
	if c.Ledger.RetryMaxDelay < c.Ledger.RetryBaseDelay {
		validationErrors = append(validationErrors, "LEDGER_RETRY_MAX_DELAY must be at least LEDGER_RETRY_BASE_DELAY")
	}

	// Validate Counter config
	if c.Counter.CacheTTL <= 0 {
		validationErrors = append(validationErrors, "COUNTER_CACHE_TTL must be greater than 0")
	}

	// Validate Kafka config
	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.DecisionTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_DECISION_TOPIC is required")
	}
	if c.Kafka.ConsumerGroup == "" {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_GROUP is required")
	}
	if c.Kafka.MinBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
	}
	if c.Kafka.MaxBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
	}
	if c.Kafka.MaxWait <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
	}
	if c.Kafka.DLQTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_DLQ_TOPIC is required")
	}

	// Validate PostgreSQL config
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate MongoDB config
	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MinPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MIN_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MaxConnIdleTime <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate WorkerPool config
	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
