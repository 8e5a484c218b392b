package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppPort    string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	AdminAPIKey string

	RedisAddr string

	KafkaBrokers           string
	KafkaClientID          string
	KafkaTopicPartitions   string
	KafkaReplicationFactor string
	EventsEnabled          string

	RateLimitMax    string
	RateLimitWindow string
	MaxBodyBytes    string
}

func Load() *Config {
	return &Config{
		AppPort:    getEnv("APP_PORT", "8080"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "dealsdb"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),

		RedisAddr: getEnv("REDIS_ADDR", ""),

		KafkaBrokers:           getEnv("KAFKA_BROKERS", "kafka:9092"),
		KafkaClientID:          getEnv("KAFKA_CLIENT_ID", "deals-api"),
		KafkaTopicPartitions:   getEnv("KAFKA_TOPIC_PARTITIONS", "3"),
		KafkaReplicationFactor: getEnv("KAFKA_REPLICATION_FACTOR", "1"),
		EventsEnabled:          getEnv("EVENTS_ENABLED", "false"),

		RateLimitMax:    getEnv("RATE_LIMIT_MAX", "3"),
		RateLimitWindow: getEnv("RATE_LIMIT_WINDOW", "1h"),
		MaxBodyBytes:    getEnv("MAX_BODY_BYTES", "51200"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (c *Config) TopicPartitions() int {
	return parseInt(c.KafkaTopicPartitions, 3)
}

func (c *Config) ReplicationFactor() int16 {
	return int16(parseInt(c.KafkaReplicationFactor, 1))
}

func (c *Config) SubmissionLimit() int {
	return parseInt(c.RateLimitMax, 3)
}

func (c *Config) SubmissionWindow() time.Duration {
	d, err := time.ParseDuration(c.RateLimitWindow)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

func (c *Config) BodyLimit() int64 {
	return int64(parseInt(c.MaxBodyBytes, 51200))
}

func parseInt(value string, fallback int) int {
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
