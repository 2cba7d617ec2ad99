// shared/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// CommonConfig holds infrastructure details used by every process of the billing stack
// (API server, reminder worker, Temporal worker).
type CommonConfig struct {
	// PostgreSQL
	DBUser     string
	DBPassword string
	DBName     string
	DBHost     string
	DBPort     string
	DBSSLMode  string

	// Kafka carries fleet invoice domain events.
	KafkaBroker  string
	KafkaTopic   string
	KafkaGroupID string

	// RabbitMQ carries reminder jobs to the outbound delivery service.
	RabbitMQUser     string
	RabbitMQPassword string
	RabbitMQHost     string
	RabbitMQPort     string

	TemporalHostPort string
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env") into the process
// environment. A missing file is not an error: containers get their env from the orchestrator.
func LoadDotEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// LoadCommonConfig reads the shared infrastructure config from the environment.
func LoadCommonConfig() *CommonConfig {
	return &CommonConfig{
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		KafkaBroker:  os.Getenv("KAFKA_BROKER"),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "fleet-invoices"),
		KafkaGroupID: getEnv("KAFKA_GROUP_ID", "fleet-billing"),

		RabbitMQUser:     os.Getenv("RABBITMQ_USER"),
		RabbitMQPassword: os.Getenv("RABBITMQ_PASSWORD"),
		RabbitMQHost:     os.Getenv("RABBITMQ_HOST"),
		RabbitMQPort:     os.Getenv("RABBITMQ_PORT"),

		TemporalHostPort: os.Getenv("TEMPORAL_HOST_PORT"),
	}
}

// DatabaseEnabled reports whether a Postgres host was configured.
func (c *CommonConfig) DatabaseEnabled() bool { return c.DBHost != "" }

// KafkaEnabled reports whether domain events should be published to Kafka.
func (c *CommonConfig) KafkaEnabled() bool { return c.KafkaBroker != "" && c.KafkaTopic != "" }

// RabbitMQEnabled reports whether reminder jobs can be queued.
func (c *CommonConfig) RabbitMQEnabled() bool { return c.RabbitMQHost != "" }

// TemporalEnabled reports whether the send flow runs as a Temporal workflow.
func (c *CommonConfig) TemporalEnabled() bool { return c.TemporalHostPort != "" }

// GetDBURL formats the config into a PostgreSQL connection string.
func (c *CommonConfig) GetDBURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// GetRabbitMQURL formats the config into an AMQP connection string.
// Host and port fall back to the RabbitMQ defaults.
func (c *CommonConfig) GetRabbitMQURL() string {
	host := c.RabbitMQHost
	if host == "" {
		host = "localhost"
	}
	port := c.RabbitMQPort
	if port == "" {
		port = "5672"
	}
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", c.RabbitMQUser, c.RabbitMQPassword, host, port)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
