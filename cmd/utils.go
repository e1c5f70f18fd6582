package cmd

import (
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"hearts-echo/internal/config"
	"hearts-echo/internal/storage"

	"github.com/joho/godotenv"
)

func LoadEnvFile() {
	var configPath string

	flag.StringVar(&configPath, "env", "", "path to load env from")
	flag.Parse()

	if configPath == "" {
		log.Printf("no env file specified, using os.Environ only")
		return
	}

	log.Printf("loading env from file %s", configPath)
	err := godotenv.Load(configPath)
	if err != nil {
		log.Fatalf("error loading .env file '%s': %v", configPath, err)
	}
}

// SetupLogging tees log and slog output into path when it is set. The returned
// func closes the log file.
func SetupLogging(path string) func() {
	if path == "" {
		return func() {}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		log.Fatalf("error opening log file '%s': %v", path, err)
	}

	mw := io.MultiWriter(f, os.Stderr)
	log.SetOutput(mw)
	slog.SetDefault(slog.New(slog.NewTextHandler(mw, nil)))

	return func() {
		if err := f.Close(); err != nil {
			log.Printf("error closing log file: %v", err)
		}
	}
}

// NewTemplateStore returns the provider and bucket holding the template banks.
func NewTemplateStore(cfg *config.Config) (storage.Provider, string, error) {
	switch cfg.TemplateStore {
	case config.StoreLocal:
		slog.Info("using local template store", "dir", cfg.TemplateDir)
		return storage.NewLocalProvider(cfg.TemplateDir), "", nil
	case config.StoreS3:
		provider, err := storage.NewS3Provider(&storage.S3ProviderConfig{
			S3EndpointURL:     cfg.S3EndpointURL,
			S3AccessKeyID:     cfg.S3AccessKeyID,
			S3SecretAccessKey: cfg.S3SecretAccessKey,
			S3Region:          cfg.S3Region,
		})
		if err != nil {
			return nil, "", fmt.Errorf("error creating s3 provider: %w", err)
		}
		slog.Info("using s3 template store", "bucket", cfg.TemplateBucket, "endpoint", cfg.S3EndpointURL)
		return provider, cfg.TemplateBucket, nil
	default:
		return nil, "", fmt.Errorf("unknown template store '%s'", cfg.TemplateStore)
	}
}
