package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures process-level configuration so main stays lean.
type Config struct {
	Addr        string
	DatabaseURL string
	Redis       RedisConfig
	Kafka       KafkaConfig

	// FuzzyThreshold is the minimum similarity ratio accepted by the
	// name matcher's last-resort strategy.
	FuzzyThreshold float64
}

// RedisConfig controls the optional read-through status cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	StatusTTL    time.Duration
}

// KafkaConfig controls the optional change-feed publisher.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// StatusCacheTTL bounds how stale a cached drug record may be served.
var StatusCacheTTL = 5 * time.Minute

// FromEnv builds a Config from environment variables with development
// defaults.
func FromEnv() Config {
	addr := os.Getenv("REGSCOPE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	threshold := 0.85
	if raw := os.Getenv("REGSCOPE_FUZZY_THRESHOLD"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 && v <= 1 {
			threshold = v
		}
	}

	cfg := Config{
		Addr:        addr,
		DatabaseURL: os.Getenv("REGSCOPE_DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REGSCOPE_REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			StatusTTL:    StatusCacheTTL,
		},
		FuzzyThreshold: threshold,
	}

	if brokers := os.Getenv("REGSCOPE_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.Kafka.Brokers = append(cfg.Kafka.Brokers, b)
			}
		}
		cfg.Kafka.Topic = os.Getenv("REGSCOPE_KAFKA_TOPIC")
		if cfg.Kafka.Topic == "" {
			cfg.Kafka.Topic = "regscope.drug-changes"
		}
	}

	return cfg
}
