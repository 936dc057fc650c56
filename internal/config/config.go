package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port string `envconfig:"PORT" default:"8080"`

	DBHost string `envconfig:"DB_HOST" default:"localhost"`
	DBPort string `envconfig:"DB_PORT" default:"3306"`
	DBUser string `envconfig:"DB_USER" default:"root"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"storefront"`

	RedisAddr    string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	KafkaBrokers string `envconfig:"KAFKA_BROKERS" default:"localhost:9092,localhost:9093,localhost:9094"`
	OrderTopic   string `envconfig:"ORDER_TOPIC" default:"order_events"`

	JWTSecret      string        `envconfig:"JWT_SECRET" default:"secret"`
	AccessTokenTTL time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"30m"`

	StripeSecretKey string `envconfig:"STRIPE_SECRET_KEY"`
	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	OpenAIModel     string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`

	AWSRegion string `envconfig:"AWS_REGION" default:"us-east-1"`
	S3Bucket  string `envconfig:"S3_BUCKET"`

	AllowedOrigins   string        `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`
	ChatShards       int           `envconfig:"CHAT_SHARDS" default:"16"`
	RateLimit        float64       `envconfig:"RATE_LIMIT" default:"20"`
	RateBurst        int           `envconfig:"RATE_BURST" default:"40"`
	ProductCacheTTL  time.Duration `envconfig:"PRODUCT_CACHE_TTL" default:"10m"`
	LogLevel         string        `envconfig:"LOG_LEVEL" default:"info"`
	MigrationRetries int           `envconfig:"MIGRATION_RETRIES" default:"5"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.ChatShards < 1 {
		return nil, fmt.Errorf("CHAT_SHARDS must be positive, got %d", cfg.ChatShards)
	}
	return &cfg, nil
}

// DSN is the MySQL data source name. clientFoundRows makes a matched-but-
// unchanged UPDATE count as affected, which the conditional status updates
// rely on.
func (c *Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&clientFoundRows=true&multiStatements=false",
		c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName)
}

func (c *Config) Brokers() []string {
	return splitList(c.KafkaBrokers)
}

func (c *Config) Origins() []string {
	return splitList(c.AllowedOrigins)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
