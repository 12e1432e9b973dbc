// Package config builds runtime configuration from environment variables so
// main stays lean.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
)

// StoreKind selects the case store backend.
type StoreKind string

const (
	StoreMemory   StoreKind = "memory"
	StorePostgres StoreKind = "postgres"
	StoreRedis    StoreKind = "redis"
)

// Config is the full runtime configuration for the server.
type Config struct {
	Server   Server
	Store    Store
	Analysis Analysis
	Review   Review
	Kafka    Kafka
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// Store selects and parameterizes the case and audit persistence backend.
type Store struct {
	Kind        StoreKind
	PostgresURL string
	RedisURL    string
}

// Analysis configures the external document analysis client and its retry
// policy.
type Analysis struct {
	Endpoint    string
	Timeout     time.Duration
	Retries     int
	BackoffBase time.Duration
}

// Review configures the human review queue.
type Review struct {
	QueueOwners []string
}

// Kafka configures the optional audit mirror. Empty brokers disable it.
type Kafka struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Config from DRIVEPASS_* environment variables, applying
// defaults suitable for local development.
func FromEnv() (Config, error) {
	cfg := Config{
		Server: Server{
			Addr:            envOr("DRIVEPASS_ADDR", ":8080"),
			ShutdownTimeout: 10 * time.Second,
		},
		Store: Store{
			Kind:        StoreKind(envOr("DRIVEPASS_STORE", string(StoreMemory))),
			PostgresURL: os.Getenv("DRIVEPASS_POSTGRES_URL"),
			RedisURL:    os.Getenv("DRIVEPASS_REDIS_URL"),
		},
		Analysis: Analysis{
			Endpoint:    os.Getenv("DRIVEPASS_ANALYSIS_URL"),
			Timeout:     30 * time.Second,
			Retries:     2,
			BackoffBase: 2 * time.Second,
		},
		Kafka: Kafka{
			Brokers: splitNonEmpty(os.Getenv("DRIVEPASS_KAFKA_BROKERS")),
			Topic:   envOr("DRIVEPASS_KAFKA_TOPIC", "drivepass.audit"),
		},
	}

	if v := os.Getenv("DRIVEPASS_SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse DRIVEPASS_SHUTDOWN_TIMEOUT: %w", err)
		}
		cfg.Server.ShutdownTimeout = d
	}
	if v := os.Getenv("DRIVEPASS_ANALYSIS_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse DRIVEPASS_ANALYSIS_TIMEOUT: %w", err)
		}
		cfg.Analysis.Timeout = d
	}
	if v := os.Getenv("DRIVEPASS_ANALYSIS_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("DRIVEPASS_ANALYSIS_RETRIES must be a non-negative integer, got %q", v)
		}
		cfg.Analysis.Retries = n
	}
	if v := os.Getenv("DRIVEPASS_ANALYSIS_BACKOFF"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse DRIVEPASS_ANALYSIS_BACKOFF: %w", err)
		}
		cfg.Analysis.BackoffBase = d
	}

	owners := splitNonEmpty(os.Getenv("DRIVEPASS_REVIEW_QUEUE_OWNERS"))
	for _, owner := range owners {
		if !govalidator.IsEmail(owner) {
			return Config{}, fmt.Errorf("DRIVEPASS_REVIEW_QUEUE_OWNERS contains invalid email %q", owner)
		}
	}
	cfg.Review.QueueOwners = owners

	switch cfg.Store.Kind {
	case StoreMemory:
	case StorePostgres:
		if cfg.Store.PostgresURL == "" {
			return Config{}, fmt.Errorf("DRIVEPASS_POSTGRES_URL is required when DRIVEPASS_STORE=postgres")
		}
	case StoreRedis:
		if cfg.Store.RedisURL == "" {
			return Config{}, fmt.Errorf("DRIVEPASS_REDIS_URL is required when DRIVEPASS_STORE=redis")
		}
	default:
		return Config{}, fmt.Errorf("unknown DRIVEPASS_STORE %q", cfg.Store.Kind)
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitNonEmpty(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
