package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	StoreLocal = "local"
	StoreS3    = "s3"
)

type Config struct {
	Port int `env:"PORT" envDefault:"8000"`

	TemplateStore  string `env:"TEMPLATE_STORE" envDefault:"local"`
	TemplateDir    string `env:"TEMPLATE_DIR" envDefault:"./assets"`
	TemplateBucket string `env:"TEMPLATE_BUCKET" envDefault:""`

	S3EndpointURL     string `env:"S3_ENDPOINT_URL"`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	S3Region          string `env:"AWS_REGION" envDefault:"us-east-1"`

	// RandomSeed of 0 seeds template selection from the clock.
	RandomSeed         int64         `env:"RANDOM_SEED" envDefault:"0"`
	CorsAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`
	PreloadWorkers     int           `env:"PRELOAD_WORKERS" envDefault:"4"`
	LogFile            string        `env:"LOG_FILE"`
}

func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	switch cfg.TemplateStore {
	case StoreLocal:
		if cfg.TemplateDir == "" {
			return nil, fmt.Errorf("TEMPLATE_DIR must be set when TEMPLATE_STORE=%s", StoreLocal)
		}
	case StoreS3:
		if cfg.TemplateBucket == "" {
			return nil, fmt.Errorf("TEMPLATE_BUCKET must be set when TEMPLATE_STORE=%s", StoreS3)
		}
		if cfg.S3EndpointURL != "" && (cfg.S3AccessKeyID == "" || cfg.S3SecretAccessKey == "") {
			log.Println("Warning: S3_ENDPOINT_URL is set, but AWS_ACCESS_KEY_ID or AWS_SECRET_ACCESS_KEY are missing.")
		}
	default:
		return nil, fmt.Errorf("invalid TEMPLATE_STORE '%s', expected '%s' or '%s'", cfg.TemplateStore, StoreLocal, StoreS3)
	}

	if cfg.PreloadWorkers < 1 {
		cfg.PreloadWorkers = 1
	}

	return &cfg, nil
}
