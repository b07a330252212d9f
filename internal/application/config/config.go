package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Debug      bool   `env:"DEBUG" envDefault:"false"`
	Port       string `env:"PORT" envDefault:"3000"`
	MetricPort string `env:"METRIC_PORT" envDefault:"9090"`
	Domain     string `env:"DOMAIN" envDefault:"http://localhost:3000"`

	// GracePeriod - сколько отключившийся участник остаётся в комнате.
	// Значение <= 0 отключает автоматическое удаление.
	GracePeriod time.Duration `env:"GRACE_PERIOD" envDefault:"20m"`
	TypingTTL   time.Duration `env:"TYPING_TTL" envDefault:"3s"`

	TimeZone string `env:"TIMEZONE" envDefault:"Local"`
	Location *time.Location

	// RevealHistory - сколько результатов хранить на комнату в памяти
	RevealHistory int `env:"REVEAL_HISTORY" envDefault:"50"`

	WS       WSConfig
	Postgres PostgresConfig
	S3       S3Config
}

type WSConfig struct {
	// ReadLimit - максимальный размер входящего сообщения в байтах.
	// Более длинное сообщение закрывает сокет, и участник уходит в grace период.
	ReadLimit    int64         `env:"WS_READ_LIMIT" envDefault:"65536"`
	PongWait     time.Duration `env:"WS_PONG_WAIT" envDefault:"60s"`
	PingInterval time.Duration `env:"WS_PING_INTERVAL" envDefault:"30s"`
	WriteWait    time.Duration `env:"WS_WRITE_WAIT" envDefault:"10s"`
	OutboxSize   int           `env:"WS_OUTBOX_SIZE" envDefault:"256"`

	// RateLimit - событий в секунду на одно соединение
	RateLimit float64 `env:"WS_RATE_LIMIT" envDefault:"20"`
	RateBurst int     `env:"WS_RATE_BURST" envDefault:"40"`
}

type PostgresConfig struct {
	Enabled bool   `env:"POSTGRES_ENABLED" envDefault:"false"`
	URL     string `env:"POSTGRES_URL"`

	Host     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	User     string `env:"POSTGRES_USER" envDefault:"postgres"`
	Password string `env:"POSTGRES_PASSWORD" envDefault:"postgres"`
	Name     string `env:"POSTGRES_NAME" envDefault:"roompoint"`
	SSL      string `env:"POSTGRES_SSL" envDefault:"disable"`
}

// S3Config - архив раскрытий в S3 совместимом хранилище
type S3Config struct {
	Enabled bool   `env:"S3_ENABLED" envDefault:"false"`
	Bucket  string `env:"S3_BUCKET"`
	Prefix  string `env:"S3_PREFIX" envDefault:"reveals/"`
	Region  string `env:"S3_REGION" envDefault:"us-east-1"`

	// Endpoint задаётся для MinIO и других S3 совместимых хранилищ
	Endpoint     string `env:"S3_ENDPOINT"`
	UsePathStyle bool   `env:"S3_USE_PATH_STYLE" envDefault:"false"`

	AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
}

func (p *PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}

	return fmt.Sprintf("postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		p.User,
		p.Password,
		p.Host,
		p.Port,
		p.Name,
		p.SSL,
	)
}

func New() (*Config, error) {
	c, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	c.Location, err = time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("load location %q: %w", c.TimeZone, err)
	}

	if c.TypingTTL <= 0 {
		return nil, fmt.Errorf("typing ttl must be positive, got %s", c.TypingTTL)
	}

	if c.Postgres.Enabled && c.S3.Enabled {
		return nil, fmt.Errorf("postgres and s3 archives are mutually exclusive")
	}

	if c.S3.Enabled && c.S3.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required when s3 archive is enabled")
	}

	if c.WS.OutboxSize <= 0 {
		return nil, fmt.Errorf("ws outbox size must be positive, got %d", c.WS.OutboxSize)
	}

	return &c, nil
}
