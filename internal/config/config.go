// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full process configuration. Flags override it in cmd.
type Config struct {
	Addr      string `env:"CALLFLOW_ADDR" envDefault:":8080"`
	LogLevel  string `env:"CALLFLOW_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"CALLFLOW_LOG_FORMAT" envDefault:"text"`

	// FlowFile is an optional YAML definition replacing the built-in flow.
	FlowFile string `env:"CALLFLOW_FLOW_FILE"`

	Persona Persona
	Booking Booking
	Store   Store
	Session Session
	OpenAI  OpenAI
}

// Persona is the assistant identity threaded into prompts and fallback messages.
type Persona struct {
	Name           string `env:"CALLFLOW_BOT_NAME" envDefault:"Marissa"`
	Company        string `env:"CALLFLOW_COMPANY" envDefault:"John George Voice AI Solutions"`
	Host           string `env:"CALLFLOW_HOST_NAME" envDefault:"John George"`
	SchedulingLine string `env:"CALLFLOW_SCHEDULING_LINE" envDefault:"555-0123"`
	TimeZone       string `env:"CALLFLOW_TIMEZONE" envDefault:"Europe/London"`
	LocationLabel  string `env:"CALLFLOW_LOCATION_LABEL" envDefault:"UK"`
}

// Booking configures the scheduling API client.
type Booking struct {
	APIKey      string        `env:"CALCOM_API_KEY"`
	EventTypeID int           `env:"CALCOM_EVENT_TYPE_ID"`
	BaseURL     string        `env:"CALCOM_BASE_URL" envDefault:"https://api.cal.com/v2"`
	Retries     uint64        `env:"CALLFLOW_RETRIES" envDefault:"1"`
	Backoff     time.Duration `env:"CALLFLOW_RETRY_BACKOFF" envDefault:"250ms"`
	Timeout     time.Duration `env:"CALLFLOW_ATTEMPT_TIMEOUT" envDefault:"8s"`

	// BreakerTrip consecutive failures open the circuit for BreakerTimeout.
	BreakerTrip    uint32        `env:"CALLFLOW_BREAKER_TRIP" envDefault:"5"`
	BreakerTimeout time.Duration `env:"CALLFLOW_BREAKER_TIMEOUT" envDefault:"30s"`
}

// Store selects where flow-state snapshots go: "memory", "file" or "redis".
type Store struct {
	Kind      string `env:"CALLFLOW_STORE" envDefault:"memory"`
	Dir       string `env:"CALLFLOW_STORE_DIR" envDefault:".callflow/sessions"`
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`
	// Lock enables the Redis distributed session lock.
	Lock bool `env:"CALLFLOW_DISTRIBUTED_LOCK" envDefault:"false"`

	// Key is a base64 AES-256 key sealing snapshots at rest. Empty stores them in the clear.
	Key          string   `env:"CALLFLOW_STORE_KEY"`
	FallbackKeys []string `env:"CALLFLOW_STORE_FALLBACK_KEYS" envSeparator:","`
	// RedactPII masks the caller's name, email and phone in stored snapshots.
	RedactPII bool `env:"CALLFLOW_REDACT_PII" envDefault:"false"`
}

// Session bounds the lifetime of idle conversations.
type Session struct {
	TTL          time.Duration `env:"CALLFLOW_SESSION_TTL" envDefault:"30m"`
	ReapInterval time.Duration `env:"CALLFLOW_REAP_INTERVAL" envDefault:"1m"`
	SnapshotTTL  time.Duration `env:"CALLFLOW_SNAPSHOT_TTL" envDefault:"24h"`
}

// OpenAI configures the chat driver.
type OpenAI struct {
	APIKey  string `env:"OPENAI_API_KEY"`
	Model   string `env:"OPENAI_MODEL" envDefault:"gpt-4o"`
	BaseURL string `env:"OPENAI_BASE_URL"`
}

// BookingConfigured reports whether the scheduling API credentials are present.
func (c Config) BookingConfigured() bool {
	return c.Booking.APIKey != "" && c.Booking.EventTypeID > 0
}

// Load reads the optional dotenv files, then parses the environment.
// Variables already set in the environment win over the files.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
