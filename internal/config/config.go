package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Bucketing selects the report aggregation shape.
const (
	BucketingCategory = "category"
	BucketingDate     = "date"
)

type Config struct {
	// HTTP server
	Port string

	// Database; empty means the in-memory store
	DatabaseURL string

	// AMQP; empty means the in-process job queue
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Report builder
	ReportBucketing string
	Timezone        string

	// Worker
	WorkerCount   int
	QueueBuffer   int
	JobMaxRetries int

	// Sentiment classifier
	ClassifierModel   string
	ClassifierTimeout time.Duration
}

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finbook"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "spending_reports"),

		ReportBucketing: getEnv("REPORT_BUCKETING", BucketingCategory),
		Timezone:        getEnv("TZ_NAME", "Asia/Seoul"),

		WorkerCount:   getEnvInt("WORKER_COUNT", 4),
		QueueBuffer:   getEnvInt("QUEUE_BUFFER", 64),
		JobMaxRetries: getEnvInt("JOB_MAX_RETRIES", 3),

		ClassifierModel:   getEnv("CLASSIFIER_MODEL", "gemini-2.0-flash"),
		ClassifierTimeout: getEnvDuration("CLASSIFIER_TIMEOUT", 10*time.Second),
	}
}

// Validate checks the configuration and returns an error describing every
// invalid field at once.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.ReportBucketing != BucketingCategory && c.ReportBucketing != BucketingDate {
		problems = append(problems, fmt.Sprintf("invalid report bucketing '%s': must be '%s' or '%s'", c.ReportBucketing, BucketingCategory, BucketingDate))
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		problems = append(problems, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			problems = append(problems, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.WorkerCount < 1 {
		problems = append(problems, fmt.Sprintf("invalid worker count %d: must be >= 1", c.WorkerCount))
	}
	if c.ClassifierTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("invalid classifier timeout %s: must be positive", c.ClassifierTimeout))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Location resolves the configured fixed time zone. Validate must have passed.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
