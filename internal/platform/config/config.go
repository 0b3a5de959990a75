// Package config builds runtime configuration from the environment so main
// stays lean. Empty values select in-memory or stub implementations; the
// bridge always boots, even with nothing configured.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full bridge configuration.
type Config struct {
	Addr        string
	DatabaseURL string
	Redis       RedisConfig
	Kafka       KafkaConfig
	LOS         LOSConfig
	Webhook     WebhookConfig
}

// RedisConfig configures the shared delivery-dedupe store. An empty URL
// selects the in-process store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the event bus. Empty brokers select the in-memory
// bus.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// LOSConfig configures the external client. Missing credentials select the
// stub.
type LOSConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Folder       string
}

// WebhookConfig configures the delivery edge.
type WebhookConfig struct {
	Secret     string
	DedupeTTL  time.Duration
	EncryptKey []byte
}

// FromEnv reads configuration from environment variables.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:        envOr("LOSBRIDGE_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
			Topic:   envOr("KAFKA_EVENTS_TOPIC", "losbridge.events"),
		},
		LOS: LOSConfig{
			BaseURL:      os.Getenv("LOS_BASE_URL"),
			ClientID:     os.Getenv("LOS_CLIENT_ID"),
			ClientSecret: os.Getenv("LOS_CLIENT_SECRET"),
			Folder:       envOr("LOS_LOAN_FOLDER", "Pipeline"),
		},
		Webhook: WebhookConfig{
			Secret:    os.Getenv("WEBHOOK_SECRET"),
			DedupeTTL: 24 * time.Hour,
		},
	}

	if raw := os.Getenv("FIELD_ENCRYPTION_KEY"); raw != "" {
		key, err := hex.DecodeString(raw)
		if err != nil {
			return Config{}, fmt.Errorf("decode FIELD_ENCRYPTION_KEY: %w", err)
		}
		cfg.Webhook.EncryptKey = key
	}

	return cfg, nil
}

// StubLOS reports whether the external client should run against the stub.
func (c Config) StubLOS() bool {
	return c.LOS.BaseURL == "" || c.LOS.ClientID == "" || c.LOS.ClientSecret == ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
